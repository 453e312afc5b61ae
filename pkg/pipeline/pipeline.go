// Package pipeline runs a complete usage scan: discovery, library
// definitions, registry, parsing, manifest versions and aggregation.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/gnana997/mrcusage/pkg/aggregate"
	"github.com/gnana997/mrcusage/pkg/library"
	"github.com/gnana997/mrcusage/pkg/manifest"
	"github.com/gnana997/mrcusage/pkg/parser"
	"github.com/gnana997/mrcusage/pkg/parser/queries"
	"github.com/gnana997/mrcusage/pkg/registry"
	"github.com/gnana997/mrcusage/pkg/remote"
	"github.com/gnana997/mrcusage/pkg/scanner"
	"github.com/gnana997/mrcusage/pkg/usage"
	"github.com/gnana997/mrcusage/pkg/util"
)

// Options configures one run.
type Options struct {
	Groups     []scanner.Group
	ScanConfig scanner.ScanConfig
	Library    library.Source
	// LibraryModules are the import specifiers of the design-system
	// library; sub-paths of each are matched too.
	LibraryModules []string
	// LibraryPackages are looked up in each group's package.json. Defaults
	// to LibraryModules.
	LibraryPackages []string
	// Config is copied into the report.
	Config any
	// Now stamps the report. Defaults to time.Now.
	Now func() time.Time
}

// Stats reports what a run did.
type Stats struct {
	GroupsScanned        int
	GroupsMissing        int
	FilesDiscovered      int
	FilesParsed          int
	FilesFailed          int
	ComponentsRegistered int
	Records              int
	DiscoveryTimeMs      int64
	LibraryTimeMs        int64
	ParseTimeMs          int64
	AggregateTimeMs      int64
	TotalTimeMs          int64
}

// Pipeline owns the parser resources shared across runs.
type Pipeline struct {
	pm     *parser.ParserManager
	qm     *queries.QueryManager
	reader *util.FileReader
	log    *slog.Logger
}

// New creates a pipeline with all required dependencies.
func New(logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	pm := parser.NewParserManager(logger)
	return &Pipeline{
		pm:     pm,
		qm:     queries.NewQueryManager(pm, logger),
		reader: util.NewFileReader(logger),
		log:    logger,
	}
}

// LocalLibrary returns a library source reading dir from disk.
func (p *Pipeline) LocalLibrary(dir string) library.Source {
	return library.NewLocalSource(dir, p.pm, p.qm, p.reader, p.log)
}

// RemoteLibrary returns a library source reading dir through client.
func (p *Pipeline) RemoteLibrary(client *remote.Client, dir string) library.Source {
	return library.NewRemoteSource(client, dir, p.pm, p.qm, p.log)
}

// Run executes a scan. Per-file and per-group problems are logged and
// skipped; errors are returned only for configuration, library discovery and
// cancellation. On cancellation no report is returned.
func (p *Pipeline) Run(ctx context.Context, opts Options) (*aggregate.Report, Stats, error) {
	totalStart := time.Now()
	stats := Stats{}

	if opts.Library == nil {
		return nil, stats, errors.New("no library source configured")
	}
	if len(opts.LibraryModules) == 0 {
		return nil, stats, errors.New("no library module configured")
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	// Phase 1: File Discovery
	discoveryStart := time.Now()
	files, dstats, err := scanner.DiscoverGroupFiles(opts.Groups, opts.ScanConfig, p.log)
	if err != nil {
		return nil, stats, fmt.Errorf("discovery failed: %w", err)
	}
	stats.GroupsScanned = len(opts.Groups)
	stats.GroupsMissing = len(dstats.MissingGroups)
	stats.FilesDiscovered = len(files)
	stats.DiscoveryTimeMs = time.Since(discoveryStart).Milliseconds()

	p.log.Info("discovery complete",
		"groups", stats.GroupsScanned, "files", len(files), "ms", stats.DiscoveryTimeMs)

	// Phase 2: Library Definitions and Registry
	libraryStart := time.Now()
	defs, err := opts.Library.Definitions(ctx)
	if err != nil {
		return nil, stats, fmt.Errorf("library discovery failed: %w", err)
	}
	reg := registry.Build(defs)
	stats.ComponentsRegistered = reg.Len()
	stats.LibraryTimeMs = time.Since(libraryStart).Milliseconds()

	if reg.Len() == 0 {
		p.log.Warn("library exports no components")
	}
	p.log.Info("registry built", "components", reg.Len(), "ms", stats.LibraryTimeMs)

	// Phase 3: Usage Parsing
	parseStart := time.Now()
	roots := make(map[string]string, len(opts.Groups))
	for _, g := range opts.Groups {
		roots[g.Name] = g.Root
	}

	up := usage.NewParser(p.pm, reg, opts.LibraryModules, p.log)
	var records []usage.Record
	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return nil, stats, err
		}

		display := displayPath(f, roots[f.Group])
		var fileRecords []usage.Record
		err := p.reader.Read(f.Path, func(data []byte) error {
			var perr error
			fileRecords, perr = up.ParseFile(display, f.Group, data)
			return perr
		})
		if err != nil {
			p.log.Warn("skipping file", "path", f.Path, "group", f.Group, "error", err)
			stats.FilesFailed++
			continue
		}
		stats.FilesParsed++
		records = append(records, fileRecords...)
	}
	stats.Records = len(records)
	stats.ParseTimeMs = time.Since(parseStart).Milliseconds()

	p.log.Info("parsing complete",
		"parsed", stats.FilesParsed, "failed", stats.FilesFailed,
		"records", len(records), "ms", stats.ParseTimeMs)

	// Phase 4: Versions and Aggregation
	aggregateStart := time.Now()
	packages := opts.LibraryPackages
	if len(packages) == 0 {
		packages = opts.LibraryModules
	}

	groupNames := make([]string, len(opts.Groups))
	for i, g := range opts.Groups {
		groupNames[i] = g.Name
	}

	report := aggregate.Aggregate(aggregate.Input{
		Records:         records,
		Groups:          groupNames,
		Registry:        reg,
		LibraryVersions: manifest.Versions(roots, packages...),
		Config:          opts.Config,
		GeneratedAt:     now().UTC(),
	})
	stats.AggregateTimeMs = time.Since(aggregateStart).Milliseconds()
	stats.TotalTimeMs = time.Since(totalStart).Milliseconds()

	p.log.Info("aggregation complete",
		"components_used", report.Overall.ComponentsUsed,
		"unused", len(report.UnusedComponents),
		"ms", stats.AggregateTimeMs)

	return report, stats, nil
}

// displayPath renders a file as "<group>/<path relative to the group root>".
func displayPath(f scanner.SourceFile, root string) string {
	if root != "" {
		if absRoot, err := filepath.Abs(root); err == nil {
			if rel, err := filepath.Rel(absRoot, f.Path); err == nil {
				return f.Group + "/" + filepath.ToSlash(rel)
			}
		}
	}
	return filepath.ToSlash(f.Path)
}

// Close releases parser and query manager resources.
func (p *Pipeline) Close() {
	p.qm.Close()
	p.pm.Close()
}
