package main

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"

	"github.com/gnana997/mrcusage/pkg/report"
)

const (
	defaultConfigPath = ".mrcusage/config.yaml"
	defaultEnvPath    = ".env"
	tokenEnvVar       = "GITHUB_TOKEN"
)

// Config is the effective configuration of a run. It is copied into the
// report, so secrets are excluded from both encodings.
type Config struct {
	OutputDir      string            `yaml:"output_dir" json:"output_dir"`
	Formats        []string          `yaml:"formats" json:"formats"`
	Groups         []string          `yaml:"groups" json:"groups,omitempty"`
	All            bool              `yaml:"all" json:"all"`
	GroupsRoot     string            `yaml:"groups_root" json:"groups_root"`
	GroupPaths     map[string]string `yaml:"group_paths" json:"group_paths,omitempty"`
	Exclude        []string          `yaml:"exclude" json:"exclude,omitempty"`
	LibraryModules []string          `yaml:"library_modules" json:"library_modules"`
	LibraryPath    string            `yaml:"library_path" json:"library_path,omitempty"`
	LibraryRemote  bool              `yaml:"library_remote" json:"library_remote"`
	LibraryRepo    string            `yaml:"library_repo" json:"library_repo,omitempty"`
	LibraryBranch  string            `yaml:"library_branch" json:"library_branch,omitempty"`
	LibraryDir     string            `yaml:"library_dir" json:"library_dir,omitempty"`
	Concurrency    int               `yaml:"concurrency" json:"concurrency"`
	Timeout        string            `yaml:"timeout" json:"timeout"`
	DebounceMs     int               `yaml:"debounce_ms" json:"debounce_ms,omitempty"`

	Token string `yaml:"-" json:"-"`
}

// ConfigError marks invalid or contradictory options. The process exits with
// code 2 for these.
type ConfigError struct {
	Err error
}

func (e *ConfigError) Error() string { return "configuration error: " + e.Err.Error() }

func (e *ConfigError) Unwrap() error { return e.Err }

func configErrorf(format string, args ...any) error {
	return &ConfigError{Err: fmt.Errorf(format, args...)}
}

// defaultConfig returns the values used when neither the project file nor a
// flag sets an option.
func defaultConfig() Config {
	return Config{
		OutputDir:   "mrc-usage-reports",
		Formats:     []string{string(report.FormatHTML)},
		GroupsRoot:  ".",
		LibraryDir:  "src",
		Timeout:     "30s",
	}
}

// loadProjectConfig overlays the YAML file at path onto cfg. A missing file is
// not an error unless the path was given explicitly.
func loadProjectConfig(path string, explicit bool, cfg *Config) error {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) && !explicit {
		return nil
	}
	if err != nil {
		return configErrorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return configErrorf("parse config %s: %w", path, err)
	}
	return nil
}

// loadToken reads GITHUB_TOKEN, loading envPath first when it exists. Values
// already in the environment win over the file.
func loadToken(envPath string) string {
	if _, err := os.Stat(envPath); err == nil {
		_ = godotenv.Load(envPath)
	}
	return strings.TrimSpace(os.Getenv(tokenEnvVar))
}

// scanFlags holds the raw flag values; only flags the user set are applied.
type scanFlags struct {
	outputDir      string
	formats        []string
	groups         []string
	all            bool
	groupsRoot     string
	groupPaths     map[string]string
	exclude        []string
	libraryModules []string
	libraryPath    string
	libraryRemote  bool
	libraryRepo    string
	libraryBranch  string
	libraryDir     string
	concurrency    int
	timeout        string
	debounceMs     int
}

func (f *scanFlags) register(fs *pflag.FlagSet) {
	d := defaultConfig()
	fs.StringVarP(&f.outputDir, "output-dir", "o", d.OutputDir, "Directory the reports are written to")
	fs.StringSliceVarP(&f.formats, "format", "f", d.Formats, "Report formats: html, json, yaml (repeatable or comma separated)")
	fs.StringSliceVarP(&f.groups, "groups", "g", nil, "Comma separated groups to scan")
	fs.BoolVar(&f.all, "all", false, "Scan every group under --groups-root")
	fs.StringVar(&f.groupsRoot, "groups-root", d.GroupsRoot, "Directory containing one sub-directory per group")
	fs.StringToStringVar(&f.groupPaths, "group-path", nil, "Explicit group location as name=path (repeatable)")
	fs.StringSliceVar(&f.exclude, "exclude", nil, "Additional exclusion globs")
	fs.StringSliceVarP(&f.libraryModules, "library-module", "m", nil, "Import specifier of the component library (repeatable)")
	fs.StringVar(&f.libraryPath, "library-path", "", "Local directory of the library's components")
	fs.BoolVar(&f.libraryRemote, "library-remote", false, "Read the library from its GitHub repository")
	fs.StringVar(&f.libraryRepo, "library-repo", "", "Library repository URL (with --library-remote)")
	fs.StringVar(&f.libraryBranch, "library-branch", "", "Library branch (default: repository default branch)")
	fs.StringVar(&f.libraryDir, "library-dir", d.LibraryDir, "Components directory inside the library repository")
	fs.IntVar(&f.concurrency, "concurrency", d.Concurrency, "Maximum concurrent remote requests (0 picks a value from the CPU count)")
	fs.StringVar(&f.timeout, "timeout", d.Timeout, "Timeout for each remote request")
}

// apply copies every flag the user set onto cfg.
func (f *scanFlags) apply(fs *pflag.FlagSet, cfg *Config) {
	fs.Visit(func(fl *pflag.Flag) {
		switch fl.Name {
		case "output-dir":
			cfg.OutputDir = f.outputDir
		case "format":
			cfg.Formats = f.formats
		case "groups":
			cfg.Groups = f.groups
			if !fs.Changed("all") {
				cfg.All = false
			}
		case "all":
			cfg.All = f.all
			if f.all && !fs.Changed("groups") {
				cfg.Groups = nil
			}
		case "groups-root":
			cfg.GroupsRoot = f.groupsRoot
		case "group-path":
			if cfg.GroupPaths == nil {
				cfg.GroupPaths = make(map[string]string, len(f.groupPaths))
			}
			for name, p := range f.groupPaths {
				cfg.GroupPaths[name] = p
			}
		case "exclude":
			cfg.Exclude = append(cfg.Exclude, f.exclude...)
		case "library-module":
			cfg.LibraryModules = f.libraryModules
		case "library-path":
			cfg.LibraryPath = f.libraryPath
		case "library-remote":
			cfg.LibraryRemote = f.libraryRemote
		case "library-repo":
			cfg.LibraryRepo = f.libraryRepo
		case "library-branch":
			cfg.LibraryBranch = f.libraryBranch
		case "library-dir":
			cfg.LibraryDir = f.libraryDir
		case "concurrency":
			cfg.Concurrency = f.concurrency
		case "timeout":
			cfg.Timeout = f.timeout
		case "debounce":
			cfg.DebounceMs = f.debounceMs
		}
	})
}

// Validate rejects contradictory or incomplete configurations before any
// work starts.
func (c *Config) Validate() error {
	c.Groups = trimAll(c.Groups)
	c.Formats = trimAll(c.Formats)
	c.LibraryModules = trimAll(c.LibraryModules)

	switch {
	case c.All && len(c.Groups) > 0:
		return configErrorf("--groups and --all are mutually exclusive")
	case !c.All && len(c.Groups) == 0:
		return configErrorf("one of --groups or --all is required")
	case len(c.Formats) == 0:
		return configErrorf("at least one --format is required")
	case len(c.LibraryModules) == 0:
		return configErrorf("--library-module is required")
	case c.OutputDir == "":
		return configErrorf("--output-dir must not be empty")
	case c.Concurrency < 0:
		return configErrorf("--concurrency must not be negative, got %d", c.Concurrency)
	}

	if c.LibraryRemote {
		if c.LibraryRepo == "" {
			return configErrorf("--library-remote requires --library-repo")
		}
	} else if c.LibraryPath == "" {
		return configErrorf("--library-path is required unless --library-remote is set")
	}

	if _, err := c.timeout(); err != nil {
		return configErrorf("invalid --timeout %q: %w", c.Timeout, err)
	}
	return nil
}

func (c *Config) timeout() (time.Duration, error) {
	if c.Timeout == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(c.Timeout)
	if err != nil {
		return 0, err
	}
	if d < 0 {
		return 0, errors.New("must not be negative")
	}
	return d, nil
}

func trimAll(values []string) []string {
	out := values[:0:0]
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
