package library

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/gnana997/mrcusage/pkg/parser"
	"github.com/gnana997/mrcusage/pkg/parser/queries"
	"github.com/gnana997/mrcusage/pkg/registry"
	"github.com/gnana997/mrcusage/pkg/remote"
	"github.com/gnana997/mrcusage/pkg/util"
)

// ErrLibraryNotFound is returned when the library directory does not exist.
var ErrLibraryNotFound = errors.New("library directory not found")

// skipDirs are never treated as component directories.
var skipDirs = map[string]bool{
	"node_modules": true,
	"__tests__":    true,
	"__mocks__":    true,
	"dist":         true,
	"build":        true,
}

type entry struct {
	name string
	path string
	dir  bool
}

// tree abstracts the storage a library is read from.
type tree interface {
	list(ctx context.Context, dir string) ([]entry, error)
	// listAll and readAll return per-item results in input order; the error
	// return is reserved for cancellation.
	listAll(ctx context.Context, dirs []string) ([][]entry, []error, error)
	read(ctx context.Context, p string) ([]byte, error)
	readAll(ctx context.Context, paths []string) ([][]byte, []error, error)
}

// discoverer runs the discovery algorithm shared by local and remote
// sources.
type discoverer struct {
	tree   tree
	pm     *parser.ParserManager
	qm     *queries.QueryManager
	logger *slog.Logger
}

// definitions lists the components of the library rooted at dir:
//
//  1. if dir has an index file with component re-exports, those define the
//     library;
//  2. otherwise every capitalised component file directly in dir is a
//     component, and every capitalised sub-directory contributes the
//     re-exports of its own index file, or itself when it has none.
//
// Failing to list dir is fatal; failures below it are logged and skipped.
func (d *discoverer) definitions(ctx context.Context, dir string) ([]registry.Definition, error) {
	entries, err := d.tree.list(ctx, dir)
	if err != nil {
		return nil, fmt.Errorf("list library directory %s: %w", dir, err)
	}
	if entries == nil {
		return nil, fmt.Errorf("%w: %s", ErrLibraryNotFound, dir)
	}
	sortEntries(entries)

	if index := findIndex(entries); index != "" {
		content, err := d.tree.read(ctx, index)
		if err != nil {
			return nil, fmt.Errorf("read library index %s: %w", index, err)
		}
		defs, err := ParseReexports(content, index, d.pm, d.qm)
		if err != nil {
			d.logger.Warn("failed to parse library index", "path", index, "error", err)
		} else if len(defs) > 0 {
			d.logger.Debug("library components from index", "path", index, "count", len(defs))
			return defs, nil
		}
	}

	var defs []registry.Definition
	var subdirs []string
	for _, e := range entries {
		switch {
		case e.dir && isComponentName(e.name) && !skipDirs[e.name]:
			subdirs = append(subdirs, e.path)
		case !e.dir && IsComponentFile(e.name):
			defs = append(defs, registry.Definition{ExportedName: registry.FileBaseName(e.name), Path: e.path})
		}
	}

	listings, listErrs, err := d.tree.listAll(ctx, subdirs)
	if err != nil {
		return nil, err
	}

	var indexPaths []string
	var indexDirs []string
	for i, sub := range subdirs {
		name := path.Base(sub)
		if listErrs[i] != nil {
			d.logger.Warn("failed to list component directory", "path", sub, "error", listErrs[i])
			continue
		}
		children := listings[i]
		sortEntries(children)

		if index := findIndex(children); index != "" {
			indexPaths = append(indexPaths, index)
			indexDirs = append(indexDirs, sub)
			continue
		}
		if own := findNamed(children, name); own != "" {
			defs = append(defs, registry.Definition{ExportedName: name, Path: own})
		}
	}

	contents, readErrs, err := d.tree.readAll(ctx, indexPaths)
	if err != nil {
		return nil, err
	}
	for i, index := range indexPaths {
		fallback := registry.Definition{ExportedName: path.Base(indexDirs[i]), Path: index}
		if readErrs[i] != nil {
			d.logger.Warn("failed to read component index", "path", index, "error", readErrs[i])
			defs = append(defs, fallback)
			continue
		}
		sub, err := ParseReexports(contents[i], index, d.pm, d.qm)
		if err != nil || len(sub) == 0 {
			defs = append(defs, fallback)
			continue
		}
		defs = append(defs, sub...)
	}

	d.logger.Debug("library components from listing", "path", dir, "count", len(defs))
	return defs, nil
}

func findIndex(entries []entry) string {
	for _, name := range IndexFiles {
		for _, e := range entries {
			if !e.dir && e.name == name {
				return e.path
			}
		}
	}
	return ""
}

// findNamed returns the source file whose base name equals name.
func findNamed(entries []entry, name string) string {
	for _, e := range entries {
		if !e.dir && IsComponentFile(e.name) && registry.FileBaseName(e.name) == name {
			return e.path
		}
	}
	return ""
}

func sortEntries(entries []entry) {
	sort.Slice(entries, func(i, j int) bool { return entries[i].name < entries[j].name })
}

// LocalSource reads a library from a directory on disk.
type LocalSource struct {
	Dir string
	d   *discoverer
}

// NewLocalSource creates a source for the library checked out at dir.
func NewLocalSource(dir string, pm *parser.ParserManager, qm *queries.QueryManager, reader *util.FileReader, logger *slog.Logger) *LocalSource {
	if logger == nil {
		logger = slog.Default()
	}
	if reader == nil {
		reader = util.NewFileReader(logger)
	}
	return &LocalSource{
		Dir: dir,
		d: &discoverer{
			tree:   &localTree{reader: reader},
			pm:     pm,
			qm:     qm,
			logger: logger,
		},
	}
}

// Definitions implements Source.
func (s *LocalSource) Definitions(ctx context.Context) ([]registry.Definition, error) {
	return s.d.definitions(ctx, s.Dir)
}

type localTree struct {
	reader *util.FileReader
}

func (t *localTree) list(ctx context.Context, dir string) ([]entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	items, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	entries := make([]entry, 0, len(items))
	for _, item := range items {
		entries = append(entries, entry{
			name: item.Name(),
			path: filepath.ToSlash(filepath.Join(dir, item.Name())),
			dir:  item.IsDir(),
		})
	}
	return entries, nil
}

func (t *localTree) listAll(ctx context.Context, dirs []string) ([][]entry, []error, error) {
	out := make([][]entry, len(dirs))
	errs := make([]error, len(dirs))
	for i, dir := range dirs {
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}
		out[i], errs[i] = t.list(ctx, dir)
	}
	return out, errs, nil
}

func (t *localTree) read(ctx context.Context, p string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return t.reader.ReadAll(filepath.FromSlash(p))
}

func (t *localTree) readAll(ctx context.Context, paths []string) ([][]byte, []error, error) {
	out := make([][]byte, len(paths))
	errs := make([]error, len(paths))
	for i, p := range paths {
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}
		out[i], errs[i] = t.read(ctx, p)
	}
	return out, errs, nil
}

// Contents is the subset of the remote client used by RemoteSource.
type Contents interface {
	List(ctx context.Context, dir string) ([]remote.Entry, error)
	ListAll(ctx context.Context, dirs []string) ([]remote.Listing, error)
	Fetch(ctx context.Context, filePath string) ([]byte, error)
	FetchAll(ctx context.Context, paths []string) ([]remote.Result, error)
}

// RemoteSource reads a library directory from a remote repository.
type RemoteSource struct {
	Dir string
	d   *discoverer
}

// NewRemoteSource creates a source for dir inside the repository served by
// contents.
func NewRemoteSource(contents Contents, dir string, pm *parser.ParserManager, qm *queries.QueryManager, logger *slog.Logger) *RemoteSource {
	if logger == nil {
		logger = slog.Default()
	}
	return &RemoteSource{
		Dir: strings.Trim(dir, "/"),
		d: &discoverer{
			tree:   &remoteTree{c: contents},
			pm:     pm,
			qm:     qm,
			logger: logger,
		},
	}
}

// Definitions implements Source.
func (s *RemoteSource) Definitions(ctx context.Context) ([]registry.Definition, error) {
	return s.d.definitions(ctx, s.Dir)
}

type remoteTree struct {
	c Contents
}

func toEntries(items []remote.Entry) []entry {
	if items == nil {
		return nil
	}
	entries := make([]entry, 0, len(items))
	for _, item := range items {
		entries = append(entries, entry{name: item.Name, path: item.Path, dir: item.Type == remote.EntryDir})
	}
	return entries
}

func (t *remoteTree) list(ctx context.Context, dir string) ([]entry, error) {
	items, err := t.c.List(ctx, dir)
	if err != nil {
		return nil, err
	}
	return toEntries(items), nil
}

func (t *remoteTree) listAll(ctx context.Context, dirs []string) ([][]entry, []error, error) {
	listings, err := t.c.ListAll(ctx, dirs)
	if err != nil {
		return nil, nil, err
	}
	out := make([][]entry, len(listings))
	errs := make([]error, len(listings))
	for i, l := range listings {
		out[i], errs[i] = toEntries(l.Entries), l.Err
	}
	return out, errs, nil
}

func (t *remoteTree) read(ctx context.Context, p string) ([]byte, error) {
	return t.c.Fetch(ctx, p)
}

func (t *remoteTree) readAll(ctx context.Context, paths []string) ([][]byte, []error, error) {
	results, err := t.c.FetchAll(ctx, paths)
	if err != nil {
		return nil, nil, err
	}
	out := make([][]byte, len(results))
	errs := make([]error, len(results))
	for i, r := range results {
		out[i], errs[i] = r.Content, r.Err
	}
	return out, errs, nil
}
