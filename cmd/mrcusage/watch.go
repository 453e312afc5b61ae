package main

import (
	"context"
	"errors"
	"io"

	"github.com/spf13/cobra"

	"github.com/gnana997/mrcusage/pkg/watcher"
)

func newWatchCmd() *cobra.Command {
	flags := &scanFlags{}
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Scan, then rescan whenever a source file changes",
		Long: `Run a scan and keep the reports current: every change to a source file
under the selected groups triggers a new scan once the files have been
quiet for the debounce period. Stops on Ctrl-C.

Accepts the same flags as scan.`,
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

			return r.watch(cmd.Context(), cmd.OutOrStdout())
		},
	}
	flags.register(cmd.Flags())
	cmd.Flags().IntVar(&flags.debounceMs, "debounce", 300, "Quiet period in milliseconds before rescanning")
	return cmd
}

// watch scans once and then after every batch of changes until ctx is done.
// Failed rescans are logged; the next change tries again.
func (r *runner) watch(ctx context.Context, out io.Writer) error {
	if _, err := r.scan(ctx, out); err != nil {
		return err
	}

	w, err := watcher.New(r.roots(), watcher.Options{DebounceMs: r.cfg.DebounceMs}, func(ctx context.Context, changed []string) {
		r.logger.Debug("rescanning", "changed", changed)
		if _, err := r.scan(ctx, out); err != nil && !errors.Is(err, context.Canceled) {
			r.logger.Error("rescan failed", "error", err)
		}
	}, r.logger)
	if err != nil {
		return err
	}
	return w.Run(ctx)
}
