package scanner

import (
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	"github.com/bmatcuk/doublestar/v4"
)

// ValidateConfig checks every include/exclude pattern.
func ValidateConfig(cfg ScanConfig) error {
	for _, pattern := range cfg.Exclude {
		if !doublestar.ValidatePattern(pattern) {
			return fmt.Errorf("invalid exclude pattern: %s", pattern)
		}
	}
	for _, pattern := range cfg.Include {
		if !doublestar.ValidatePattern(pattern) {
			return fmt.Errorf("invalid include pattern: %s", pattern)
		}
	}
	return nil
}

// DiscoverFiles walks rootDir applying include/exclude globs from cfg.
// Returns a sorted slice of absolute file paths for deterministic output.
func DiscoverFiles(rootDir string, cfg ScanConfig) ([]string, error) {
	if err := ValidateConfig(cfg); err != nil {
		return nil, err
	}

	absRoot, err := filepath.Abs(rootDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve root path: %w", err)
	}

	info, err := os.Stat(absRoot)
	if err != nil {
		return nil, fmt.Errorf("group root %s: %w", rootDir, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("group root %s is not a directory", rootDir)
	}

	var files []string

	err = filepath.WalkDir(absRoot, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil // Continue walking on errors.
		}
		if path == absRoot {
			return nil
		}

		relPath, err := filepath.Rel(absRoot, path)
		if err != nil {
			relPath = path
		}
		relPath = filepath.ToSlash(relPath)

		if excluded(cfg.Exclude, relPath, d.IsDir()) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		if d.IsDir() {
			return nil
		}

		if len(cfg.Include) > 0 {
			matched := false
			for _, pattern := range cfg.Include {
				if m, _ := doublestar.Match(pattern, relPath); m {
					matched = true
					break
				}
			}
			if !matched {
				return nil
			}
		}

		files = append(files, path)
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Strings(files)
	return files, nil
}

// excluded matches relPath against the exclude globs. Directories are also
// tested with a trailing "/x" so "**/dist/**" prunes dist itself.
func excluded(patterns []string, relPath string, isDir bool) bool {
	for _, pattern := range patterns {
		if m, _ := doublestar.Match(pattern, relPath); m {
			return true
		}
		if isDir {
			if m, _ := doublestar.Match(pattern, relPath+"/x"); m {
				return true
			}
		}
	}
	return false
}

// DiscoverGroupFiles discovers the files of every group, in group order.
//
// A group whose root is missing or unreadable is logged and contributes no
// files; it never aborts the run. A file reachable from more than one group
// root (nested roots) belongs to the first group that lists it.
func DiscoverGroupFiles(groups []Group, cfg ScanConfig, logger *slog.Logger) ([]SourceFile, DiscoveryStats, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := ValidateConfig(cfg); err != nil {
		return nil, DiscoveryStats{}, err
	}

	stats := DiscoveryStats{FilesPerGroup: make(map[string]int, len(groups))}
	seen := make(map[string]bool)
	var out []SourceFile

	for _, g := range groups {
		files, err := DiscoverFiles(g.Root, cfg)
		if err != nil {
			logger.Warn("skipping group", "group", g.Name, "path", g.Root, "error", err)
			stats.MissingGroups = append(stats.MissingGroups, g.Name)
			stats.FilesPerGroup[g.Name] = 0
			continue
		}

		count := 0
		for _, f := range files {
			if seen[f] {
				stats.Duplicates++
				continue
			}
			seen[f] = true
			out = append(out, SourceFile{Path: f, Group: g.Name})
			count++
		}
		stats.FilesPerGroup[g.Name] = count

		logger.Debug("group discovered", "group", g.Name, "files", count)
	}

	return out, stats, nil
}
