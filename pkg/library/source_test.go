package library

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gnana997/mrcusage/pkg/parser"
	"github.com/gnana997/mrcusage/pkg/parser/queries"
	"github.com/gnana997/mrcusage/pkg/registry"
	"github.com/gnana997/mrcusage/pkg/remote"
)

func newTestDeps(t *testing.T) (*parser.ParserManager, *queries.QueryManager, *slog.Logger) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
	pm := parser.NewParserManager(logger)
	qm := queries.NewQueryManager(pm, logger)
	t.Cleanup(func() {
		qm.Close()
		pm.Close()
	})
	return pm, qm, logger
}

func names(defs []registry.Definition) []string {
	out := make([]string, len(defs))
	for i, d := range defs {
		out[i] = d.ExportedName
	}
	return out
}

func TestParseReexports(t *testing.T) {
	pm, qm, _ := newTestDeps(t)

	source := []byte(`
export { default as Button } from "./Button";
export { Card, CardHeader as Header, cardUtils } from './Card';
export * from "./Dialog/Dialog";
export * as icons from "./icons";
export { theme } from "./theme";
export const VERSION = "1.0.0";
`)

	defs, err := ParseReexports(source, "src/index.ts", pm, qm)
	require.NoError(t, err)

	assert.Equal(t, []registry.Definition{
		{ExportedName: "Button", Path: "src/Button"},
		{ExportedName: "Card", Path: "src/Card"},
		{ExportedName: "Header", Path: "src/Card"},
		{ExportedName: "Dialog", Path: "src/Dialog/Dialog"},
	}, defs)
}

func TestParseReexports_NoReexports(t *testing.T) {
	pm, qm, _ := newTestDeps(t)

	defs, err := ParseReexports([]byte(`export const x = 1;`), "index.js", pm, qm)
	require.NoError(t, err)
	assert.Empty(t, defs)
}

func TestIsComponentFile(t *testing.T) {
	testCases := []struct {
		name string
		want bool
	}{
		{"Button.tsx", true},
		{"Button.jsx", true},
		{"button.tsx", false},
		{"index.ts", false},
		{"Button.test.tsx", false},
		{"Button.stories.jsx", false},
		{"Button.d.ts", false},
		{"Button.css", false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, IsComponentFile(tc.name))
		})
	}
}

func TestLocalSource_Index(t *testing.T) {
	pm, qm, logger := newTestDeps(t)
	dir := t.TempDir()
	writeFile(t, dir, "index.ts", `export { default as Button } from "./Button";
export { MrcDialog as Dialog } from "./MrcDialog";`)
	writeFile(t, dir, "Button.tsx", "export default function Button() {}")
	writeFile(t, dir, "Ignored.tsx", "export default function Ignored() {}")

	defs, err := NewLocalSource(dir, pm, qm, nil, logger).Definitions(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"Button", "Dialog"}, names(defs))

	reg := registry.Build(defs)
	name, ok := reg.Resolve("MrcDialog")
	require.True(t, ok)
	assert.Equal(t, "Dialog", name)
}

func TestLocalSource_Listing(t *testing.T) {
	pm, qm, logger := newTestDeps(t)
	dir := t.TempDir()
	writeFile(t, dir, "Button.tsx", "")
	writeFile(t, dir, "Button.test.tsx", "")
	writeFile(t, dir, "helpers.ts", "")
	writeFile(t, dir, "Card/index.ts", `export { Card } from "./Card";
export { CardHeader } from "./CardHeader";`)
	writeFile(t, dir, "Card/Card.tsx", "")
	writeFile(t, dir, "Dialog/Dialog.jsx", "")
	writeFile(t, dir, "Empty/readme.md", "")
	writeFile(t, dir, "Tabs/index.js", "export default function Tabs() {}")
	writeFile(t, dir, "utils/format.ts", "")

	defs, err := NewLocalSource(dir, pm, qm, nil, logger).Definitions(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"Button", "Dialog", "Card", "CardHeader", "Tabs"}, names(defs))

	reg := registry.Build(defs)
	file, ok := reg.FileOf("Tabs")
	require.True(t, ok)
	assert.Equal(t, "Tabs", file)
}

func TestLocalSource_IndexWithoutReexportsFallsBack(t *testing.T) {
	pm, qm, logger := newTestDeps(t)
	dir := t.TempDir()
	writeFile(t, dir, "index.js", "module.exports = require('./lib');")
	writeFile(t, dir, "Badge.jsx", "")

	defs, err := NewLocalSource(dir, pm, qm, nil, logger).Definitions(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"Badge"}, names(defs))
}

func TestLocalSource_MissingDirectory(t *testing.T) {
	pm, qm, logger := newTestDeps(t)

	_, err := NewLocalSource(filepath.Join(t.TempDir(), "nope"), pm, qm, nil, logger).Definitions(context.Background())
	assert.ErrorIs(t, err, ErrLibraryNotFound)
}

// fakeContents serves an in-memory repository.
type fakeContents struct {
	mu      sync.Mutex
	dirs    map[string][]remote.Entry
	files   map[string]string
	failDir map[string]error
	fetched []string
}

func (f *fakeContents) List(_ context.Context, dir string) ([]remote.Entry, error) {
	if err := f.failDir[dir]; err != nil {
		return nil, err
	}
	return f.dirs[dir], nil
}

func (f *fakeContents) ListAll(ctx context.Context, dirs []string) ([]remote.Listing, error) {
	out := make([]remote.Listing, len(dirs))
	for i, d := range dirs {
		entries, err := f.List(ctx, d)
		out[i] = remote.Listing{Path: d, Entries: entries, Err: err}
	}
	return out, nil
}

func (f *fakeContents) Fetch(_ context.Context, p string) ([]byte, error) {
	f.mu.Lock()
	f.fetched = append(f.fetched, p)
	f.mu.Unlock()
	content, ok := f.files[p]
	if !ok {
		return nil, nil
	}
	return []byte(content), nil
}

func (f *fakeContents) FetchAll(ctx context.Context, paths []string) ([]remote.Result, error) {
	out := make([]remote.Result, len(paths))
	for i, p := range paths {
		content, err := f.Fetch(ctx, p)
		out[i] = remote.Result{Path: p, Content: content, Err: err}
	}
	return out, nil
}

func TestRemoteSource_Index(t *testing.T) {
	pm, qm, logger := newTestDeps(t)
	contents := &fakeContents{
		dirs: map[string][]remote.Entry{
			"src": {
				{Name: "index.ts", Path: "src/index.ts", Type: remote.EntryFile},
				{Name: "Button", Path: "src/Button", Type: remote.EntryDir},
			},
		},
		files: map[string]string{
			"src/index.ts": `export { default as Button } from "./Button";`,
		},
	}

	defs, err := NewRemoteSource(contents, "/src/", pm, qm, logger).Definitions(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []registry.Definition{{ExportedName: "Button", Path: "src/Button"}}, defs)
	assert.Equal(t, []string{"src/index.ts"}, contents.fetched)
}

func TestRemoteSource_Listing(t *testing.T) {
	pm, qm, logger := newTestDeps(t)
	contents := &fakeContents{
		dirs: map[string][]remote.Entry{
			"src": {
				{Name: "Tooltip.tsx", Path: "src/Tooltip.tsx", Type: remote.EntryFile},
				{Name: "Card", Path: "src/Card", Type: remote.EntryDir},
				{Name: "Broken", Path: "src/Broken", Type: remote.EntryDir},
			},
			"src/Card": {
				{Name: "index.tsx", Path: "src/Card/index.tsx", Type: remote.EntryFile},
			},
		},
		files: map[string]string{
			"src/Card/index.tsx": `export { Card, CardBody } from "./Card";`,
		},
		failDir: map[string]error{"src/Broken": errors.New("status 500")},
	}

	defs, err := NewRemoteSource(contents, "src", pm, qm, logger).Definitions(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"Tooltip", "Card", "CardBody"}, names(defs))
}

func TestRemoteSource_TopLevelFailureIsFatal(t *testing.T) {
	pm, qm, logger := newTestDeps(t)
	contents := &fakeContents{failDir: map[string]error{"src": errors.New("status 401")}}

	_, err := NewRemoteSource(contents, "src", pm, qm, logger).Definitions(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 401")
}

func TestRemoteSource_NotFound(t *testing.T) {
	pm, qm, logger := newTestDeps(t)

	_, err := NewRemoteSource(&fakeContents{}, "src", pm, qm, logger).Definitions(context.Background())
	assert.ErrorIs(t, err, ErrLibraryNotFound)
}

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	full := filepath.Join(dir, filepath.FromSlash(name))
	require.NoError(t, os.MkdirAll(filepath.Dir(full), 0755))
	require.NoError(t, os.WriteFile(full, []byte(content), 0644))
}
