package report

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/gnana997/mrcusage/pkg/aggregate"
	"github.com/gnana997/mrcusage/pkg/registry"
	"github.com/gnana997/mrcusage/pkg/usage"
)

func testReport() *aggregate.Report {
	reg := registry.Build([]registry.Definition{
		{ExportedName: "Button", Path: "Button.tsx"},
		{ExportedName: "Dialog", Path: "Dialog/index.tsx"},
	})
	records := []usage.Record{
		{
			ComponentName: "Button",
			LocalName:     "Button",
			SourceFile:    "src/App.jsx",
			Group:         "checkout",
			Line:          3,
			Attributes: []usage.Attribute{
				{Name: "label", Kind: usage.KindString, Value: "</script><b>x</b>"},
			},
		},
	}
	return aggregate.Aggregate(aggregate.Input{
		Records:         records,
		Groups:          []string{"checkout", "search"},
		Registry:        reg,
		LibraryVersions: map[string]string{"checkout": "^4.0.0", "search": "not found"},
		Config:          map[string]any{"groups": []string{"checkout", "search"}},
		GeneratedAt:     time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
	})
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

func TestFileBaseName(t *testing.T) {
	assert.Equal(t, "mrc-usage-report-all", FileBaseName([]string{"a", "b"}, true))
	assert.Equal(t, "mrc-usage-report-all", FileBaseName(nil, false))
	assert.Equal(t, "mrc-usage-report-checkout-search", FileBaseName([]string{"search", "checkout"}, false))
	assert.Equal(t, "mrc-usage-report-checkout", FileBaseName([]string{"checkout"}, false))
}

func TestParseFormat(t *testing.T) {
	for in, want := range map[string]Format{"html": FormatHTML, "JSON": FormatJSON, "yml": FormatYAML, " yaml ": FormatYAML} {
		got, err := ParseFormat(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got)
	}

	_, err := ParseFormat("csv")
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestRenderJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Render(&buf, testReport(), FormatJSON))

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Contains(t, decoded, "components")
	assert.Contains(t, decoded, "unused_components_per_group")
	assert.Equal(t, "2024-05-01T12:00:00Z", decoded["generated_at"])

	overall := decoded["overall"].(map[string]any)
	assert.Equal(t, float64(1), overall["total_usages"])
}

func TestRenderYAML(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Render(&buf, testReport(), FormatYAML))

	var decoded map[string]any
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &decoded))
	assert.Contains(t, decoded, "library_versions")

	perGroup := decoded["unused_components_per_group"].(map[string]any)
	assert.Equal(t, []any{"Dialog"}, perGroup["checkout"])
	assert.Equal(t, []any{"Button", "Dialog"}, perGroup["search"])
}

func TestRenderStableOutput(t *testing.T) {
	for _, format := range []Format{FormatJSON, FormatYAML} {
		var a, b bytes.Buffer
		require.NoError(t, Render(&a, testReport(), format))
		require.NoError(t, Render(&b, testReport(), format))
		assert.Equal(t, a.String(), b.String(), string(format))
	}
}

func TestRenderHTML(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Render(&buf, testReport(), FormatHTML))
	out := buf.String()

	assert.True(t, strings.HasPrefix(out, "<!DOCTYPE html>"))
	assert.Contains(t, out, "const REPORT = ")
	assert.Contains(t, out, `"component":"Button"`)
	assert.Contains(t, out, "filter-attr-value")
	assert.NotContains(t, out, "<script src", "report must be self-contained")
	assert.NotContains(t, out, "</script><b>", "inline data must be escaped")
}

func TestRenderUnsupported(t *testing.T) {
	err := Render(&bytes.Buffer{}, testReport(), Format("csv"))
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestWriteAll(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")

	written, err := WriteAll(context.Background(), dir, "mrc-usage-report-all", testReport(),
		[]string{"html", "csv", "json", "yaml", "html"}, quietLogger())
	require.NoError(t, err)

	assert.Equal(t, []string{
		filepath.Join(dir, "mrc-usage-report-all.html"),
		filepath.Join(dir, "mrc-usage-report-all.json"),
		filepath.Join(dir, "mrc-usage-report-all.yaml"),
	}, written)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 3, "no temp files or csv output left behind")

	for _, p := range written {
		info, err := os.Stat(p)
		require.NoError(t, err)
		assert.Greater(t, info.Size(), int64(0))
	}
}

func TestWriteAll_HTMLAndCSV(t *testing.T) {
	dir := t.TempDir()

	written, err := WriteAll(context.Background(), dir, "r", testReport(), []string{"html", "csv"}, quietLogger())
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(dir, "r.html")}, written)
}

func TestWriteAll_Cancelled(t *testing.T) {
	dir := t.TempDir()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	written, err := WriteAll(ctx, dir, "r", testReport(), []string{"json"}, quietLogger())
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, written)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}
