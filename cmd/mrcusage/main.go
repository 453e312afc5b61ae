package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/gnana997/mrcusage/pkg/util"
)

var (
	// Version information (set by build flags)
	Version   = "dev"
	GitCommit = "unknown"

	cfgFile   string
	logLevel  string
	logFormat string
	logger    *slog.Logger
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	os.Exit(run(ctx, os.Args[1:]))
}

// run executes the CLI and maps the outcome to an exit code.
func run(ctx context.Context, args []string) int {
	root := newRootCmd()
	root.SetArgs(args)

	err := root.ExecuteContext(ctx)
	if err == nil {
		return 0
	}

	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	var cfgErr *ConfigError
	if errors.As(err, &cfgErr) {
		return 2
	}
	return 1
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "mrcusage",
		Short: "Report how design-system components are used across code groups",
		Long: `mrcusage scans JavaScript and TypeScript sources for usages of the
components exported by a design-system library and writes HTML, JSON and
YAML reports: per-component counts, per-group breakdowns, attribute
statistics, customization signals and components nobody uses.`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			level, err := util.ParseLogLevel(logLevel)
			if err != nil {
				return &ConfigError{Err: err}
			}
			format, err := util.ParseLogFormat(logFormat)
			if err != nil {
				return &ConfigError{Err: err}
			}
			cfg := util.DefaultLoggerConfig()
			cfg.Level = level
			cfg.Format = format
			cfg.Output = cmd.ErrOrStderr()
			logger = util.NewLogger(cfg)
			return nil
		},
	}

	root.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: "+defaultConfigPath+")")
	root.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level: debug, info, warn, error")
	root.PersistentFlags().StringVar(&logFormat, "log-format", "text", "Log format: text or json")

	root.SetVersionTemplate("mrcusage {{.Version}} (commit " + GitCommit + ")\n")

	root.AddCommand(newScanCmd())
	root.AddCommand(newWatchCmd())
	root.AddCommand(newVersionCmd())
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "mrcusage %s (commit %s)\n", Version, GitCommit)
		},
	}
}

// resolveConfig builds the effective configuration: defaults, then the
// project file, then explicitly set flags.
func resolveConfig(cmd *cobra.Command, flags *scanFlags) (Config, error) {
	cfg := defaultConfig()

	path, explicit := cfgFile, cfgFile != ""
	if !explicit {
		path = defaultConfigPath
	}
	if err := loadProjectConfig(path, explicit, &cfg); err != nil {
		return Config{}, err
	}

	flags.apply(cmd.Flags(), &cfg)
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	cfg.Token = loadToken(defaultEnvPath)
	return cfg, nil
}
