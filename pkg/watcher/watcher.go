// Package watcher re-runs a scan when source files under the scanned groups
// change.
package watcher

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/gnana997/mrcusage/pkg/parser"
)

// Options configures a Watcher.
type Options struct {
	// DebounceMs is the quiet period after the last change before OnChange
	// runs. Zero means 300ms.
	DebounceMs int
	// IgnorePatterns are filepath.Match patterns tested against base names.
	IgnorePatterns []string
}

// Watcher watches directory trees and calls OnChange, debounced, with the
// source files that changed.
//
// **Usage:**
//
//	w, err := watcher.New(roots, watcher.Options{}, rescan, logger)
//	if err != nil {
//	    return err
//	}
//	return w.Run(ctx) // blocks until ctx is cancelled
type Watcher struct {
	watcher  *fsnotify.Watcher
	roots    []string
	onChange func(ctx context.Context, changed []string)
	options  Options
	logger   *slog.Logger

	// Debouncing
	mu      sync.Mutex
	pending map[string]bool
	timer   *time.Timer
	trigger chan struct{}
}

// New creates a watcher over roots. onChange is never called concurrently
// with itself.
func New(roots []string, options Options, onChange func(ctx context.Context, changed []string), logger *slog.Logger) (*Watcher, error) {
	if logger == nil {
		logger = slog.Default()
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}
	if options.DebounceMs <= 0 {
		options.DebounceMs = 300
	}

	return &Watcher{
		watcher:  fsw,
		roots:    roots,
		onChange: onChange,
		options:  options,
		logger:   logger,
		pending:  make(map[string]bool),
		trigger:  make(chan struct{}, 1),
	}, nil
}

// Run adds watches for every root and processes events until ctx is
// cancelled. Roots that do not exist are logged and skipped. It returns an
// error only if no root could be watched.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.close()

	watched := 0
	for _, root := range w.roots {
		if err := w.addTree(root); err != nil {
			w.logger.Warn("not watching group root", "path", root, "error", err)
			continue
		}
		watched++
	}
	if watched == 0 {
		return fmt.Errorf("no directories to watch")
	}

	w.logger.Info("file watcher started", "roots", watched)

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("file watcher stopped")
			return nil

		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			w.handleEvent(event)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Error("file watcher error", "error", err)

		case <-w.trigger:
			changed := w.drain()
			if len(changed) > 0 {
				w.logger.Info("changes detected", "files", len(changed))
				w.onChange(ctx, changed)
			}
		}
	}
}

// addTree watches root and every non-ignored directory below it.
func (w *Watcher) addTree(root string) error {
	info, err := os.Stat(root)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", root)
	}

	return filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil // Continue on error
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && w.shouldIgnore(path) {
			return filepath.SkipDir
		}
		if err := w.watcher.Add(path); err != nil {
			w.logger.Warn("failed to watch directory", "path", path, "error", err)
		}
		return nil
	})
}

// handleEvent processes a file system event.
func (w *Watcher) handleEvent(event fsnotify.Event) {
	path := event.Name
	if w.shouldIgnore(path) {
		return
	}

	// New directories are watched too; files created inside them before the
	// watch is added are picked up by the next scan.
	if event.Op&fsnotify.Create == fsnotify.Create {
		if info, err := os.Stat(path); err == nil && info.IsDir() {
			if err := w.addTree(path); err != nil {
				w.logger.Warn("failed to watch new directory", "path", path, "error", err)
			}
			return
		}
	}

	if parser.DetectLanguage(path) == parser.LanguageUnknown {
		return
	}
	if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
		return
	}

	w.logger.Debug("file event", "op", event.Op.String(), "file", path)
	w.schedule(path)
}

// schedule records a change and restarts the debounce timer.
func (w *Watcher) schedule(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.pending[path] = true
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(time.Duration(w.options.DebounceMs)*time.Millisecond, func() {
		select {
		case w.trigger <- struct{}{}:
		default:
		}
	})
}

// drain returns and clears the pending changes, sorted.
func (w *Watcher) drain() []string {
	w.mu.Lock()
	defer w.mu.Unlock()

	changed := make([]string, 0, len(w.pending))
	for p := range w.pending {
		changed = append(changed, p)
	}
	w.pending = make(map[string]bool)
	sort.Strings(changed)
	return changed
}

func (w *Watcher) close() {
	w.mu.Lock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.mu.Unlock()

	if err := w.watcher.Close(); err != nil {
		w.logger.Debug("closing file watcher", "error", err)
	}
}

// shouldIgnore checks if a path should be ignored.
func (w *Watcher) shouldIgnore(path string) bool {
	base := filepath.Base(path)
	for _, pattern := range w.options.IgnorePatterns {
		if matched, _ := filepath.Match(pattern, base); matched {
			return true
		}
	}

	// Ignore common build/dependency directories
	switch base {
	case "node_modules", ".git", "dist", "build", ".next", "coverage", ".mrcusage":
		return true
	}
	return false
}
