package pipeline

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce lets a scanner finish writing a batch of files before a
// run starts.
const DefaultDebounce = 2 * time.Second

// Watcher runs a batch at start and again whenever a paper lands under dir.
// Events are debounced; events for non-paper files such as sidecars are
// ignored so a batch does not trigger itself.
type Watcher struct {
	dir      string
	excludes []string
	skip     string // Absolute
	debounce time.Duration
	logger   *slog.Logger
}

// NewWatcher creates a watcher over dir on the local filesystem. Directories
// matching excludes, and skipDir, are not watched.
func NewWatcher(dir string, excludes []string, skipDir string, debounce time.Duration, logger *slog.Logger) *Watcher {
	if excludes == nil {
		excludes = DefaultExcludes
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Watcher{
		dir:      filepath.Clean(dir),
		excludes: excludes,
		skip:     absPath(skipDir),
		debounce: debounce,
		logger:   logger.With("component", "watcher"),
	}
}

// Run blocks until ctx is done. batch is called serially.
func (w *Watcher) Run(ctx context.Context, batch func(ctx context.Context)) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer fw.Close()

	if err := w.addTree(fw, w.dir); err != nil {
		return err
	}
	w.logger.Info("watching for new papers", "dir", w.dir, "debounce", w.debounce)

	batch(ctx)

	timer := time.NewTimer(w.debounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if event.Has(fsnotify.Create) {
				if w.isWatchableDir(event.Name) {
					if err := w.addTree(fw, event.Name); err != nil {
						w.logger.Warn("failed to watch new directory", "dir", event.Name, "error", err)
					}
					timer.Reset(w.debounce)
					continue
				}
			}
			if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) && !event.Has(fsnotify.Rename) {
				continue
			}
			if !allowed(filepath.Base(event.Name)) {
				continue
			}
			w.logger.Debug("paper changed", "path", event.Name, "op", event.Op.String())
			timer.Reset(w.debounce)

		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watch error", "error", err)

		case <-timer.C:
			batch(ctx)
		}
	}
}

func (w *Watcher) isWatchableDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir() && !w.excluded(path)
}

func (w *Watcher) excluded(dir string) bool {
	if dir == w.dir {
		return false
	}
	if w.skip != "" && absPath(dir) == w.skip {
		return true
	}
	rel, err := filepath.Rel(w.dir, dir)
	if err != nil {
		return false
	}
	rel = filepath.ToSlash(rel)
	for _, pattern := range w.excludes {
		if matchesExcludePattern(pattern, rel, filepath.Base(dir)) {
			return true
		}
	}
	return false
}

// addTree watches root and every non-excluded directory below it.
func (w *Watcher) addTree(fw *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if w.excluded(path) {
			return filepath.SkipDir
		}
		if err := fw.Add(path); err != nil {
			return fmt.Errorf("failed to watch %s: %w", path, err)
		}
		return nil
	})
}
