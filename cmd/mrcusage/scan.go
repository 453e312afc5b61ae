package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/gnana997/mrcusage/pkg/pipeline"
	"github.com/gnana997/mrcusage/pkg/remote"
	"github.com/gnana997/mrcusage/pkg/report"
	"github.com/gnana997/mrcusage/pkg/scanner"
)

func newScanCmd() *cobra.Command {
	flags := &scanFlags{}
	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Scan groups and write usage reports",
		Long: `Scan the selected groups for usages of the library's components and
write one report per requested format into the output directory.

Examples:
  mrcusage scan --groups checkout,search --library-module @acme/mrc --library-path ../mrc/src
  mrcusage scan --all --groups-root apps --format html,json \
      --library-module @acme/mrc --library-remote --library-repo https://github.com/acme/mrc

The report file name encodes the selection: mrc-usage-report-all.<ext> or
mrc-usage-report-<sorted groups>.<ext>. GITHUB_TOKEN (environment or .env)
is used for remote libraries when set.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := resolveConfig(cmd, flags)
			if err != nil {
				return err
			}
			r, err := newRunner(cfg, logger)
			if err != nil {
				return err
			}
			defer r.Close()

			_, err = r.scan(cmd.Context(), cmd.OutOrStdout())
			return err
		},
	}
	flags.register(cmd.Flags())
	return cmd
}

// runner holds everything that stays fixed between scans of one process.
type runner struct {
	cfg    Config
	groups []scanner.Group
	names  []string
	pipe   *pipeline.Pipeline
	opts   pipeline.Options
	logger *slog.Logger
}

func newRunner(cfg Config, logger *slog.Logger) (*runner, error) {
	if logger == nil {
		logger = slog.Default()
	}

	index := scanner.NewGroupIndex(cfg.GroupsRoot, cfg.GroupPaths)
	var groups []scanner.Group
	if cfg.All {
		all, err := index.All()
		if err != nil {
			return nil, &ConfigError{Err: err}
		}
		groups = all
	} else {
		groups = index.Resolve(cfg.Groups)
	}

	names := make([]string, len(groups))
	for i, g := range groups {
		names[i] = g.Name
	}

	scanCfg := scanner.DefaultScanConfig()
	scanCfg.Exclude = append(scanCfg.Exclude, cfg.Exclude...)
	if err := scanner.ValidateConfig(scanCfg); err != nil {
		return nil, &ConfigError{Err: err}
	}

	pipe := pipeline.New(logger)
	opts := pipeline.Options{
		Groups:         groups,
		ScanConfig:     scanCfg,
		LibraryModules: cfg.LibraryModules,
		Config:         cfg,
	}

	if cfg.LibraryRemote {
		timeout, _ := cfg.timeout()
		client, err := remote.NewClient(remote.Config{
			Repository: cfg.LibraryRepo,
			Branch:     cfg.LibraryBranch,
			Token:      cfg.Token,
			Timeout:    timeout,
			MaxWorkers: cfg.Concurrency,
		}, logger)
		if err != nil {
			pipe.Close()
			return nil, &ConfigError{Err: err}
		}
		opts.Library = pipe.RemoteLibrary(client, cfg.LibraryDir)
	} else {
		opts.Library = pipe.LocalLibrary(cfg.LibraryPath)
	}

	return &runner{
		cfg:    cfg,
		groups: groups,
		names:  names,
		pipe:   pipe,
		opts:   opts,
		logger: logger,
	}, nil
}

// scan runs the pipeline once and writes the reports. It returns the paths
// written.
func (r *runner) scan(ctx context.Context, out io.Writer) ([]string, error) {
	rep, stats, err := r.pipe.Run(ctx, r.opts)
	if err != nil {
		return nil, err
	}

	baseName := report.FileBaseName(r.names, r.cfg.All)
	written, err := report.WriteAll(ctx, r.cfg.OutputDir, baseName, rep, r.cfg.Formats, r.logger)
	if err != nil {
		return written, err
	}

	fmt.Fprintf(out, "Scanned %d groups (%d missing), %d files (%d skipped) in %dms\n",
		stats.GroupsScanned, stats.GroupsMissing, stats.FilesParsed, stats.FilesFailed, stats.TotalTimeMs)
	fmt.Fprintf(out, "Components: %d registered, %d used, %d unused; %d usages\n",
		stats.ComponentsRegistered, rep.Overall.ComponentsUsed, len(rep.UnusedComponents), rep.Overall.TotalUsages)
	for _, p := range written {
		fmt.Fprintf(out, "Wrote %s\n", p)
	}
	if len(written) == 0 {
		r.logger.Warn("no reports written", "formats", r.cfg.Formats)
	}
	return written, nil
}

// roots returns the directories of the selected groups.
func (r *runner) roots() []string {
	roots := make([]string, len(r.groups))
	for i, g := range r.groups {
		roots[i] = g.Root
	}
	return roots
}

func (r *runner) Close() {
	r.pipe.Close()
}
