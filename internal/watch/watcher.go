// internal/watch/watcher.go
package watch

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"time"

	"wit/internal/logging"
	"wit/internal/paths"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// Watcher reports batches of working-tree changes. Events inside the
// metadata directory and ignored paths never trigger a batch.
type Watcher struct {
	root     string
	ignore   paths.IgnoreRules
	debounce time.Duration
	watcher  *fsnotify.Watcher
}

// New watches every non-ignored directory under root. Events arriving within
// debounce of each other are delivered as one batch.
func New(root string, ignore paths.IgnoreRules, debounce time.Duration) (*Watcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating watcher: %w", err)
	}

	w := &Watcher{
		root:     root,
		ignore:   ignore,
		debounce: debounce,
		watcher:  watcher,
	}
	if err := w.addTree(root); err != nil {
		watcher.Close()
		return nil, err
	}
	return w, nil
}

func (w *Watcher) addTree(dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if rel, err := filepath.Rel(w.root, path); err == nil && rel != "." && w.ignore.Match(rel) {
			return filepath.SkipDir
		}
		if err := w.watcher.Add(path); err != nil {
			return fmt.Errorf("watching %s: %w", path, err)
		}
		return nil
	})
}

// Run blocks until ctx is done, calling onChange with the sorted relative
// paths touched since the previous call. An error from onChange stops Run.
func (w *Watcher) Run(ctx context.Context, onChange func(ctx context.Context, changed []string) error) error {
	log := logging.FromContext(ctx)

	timer := time.NewTimer(w.debounce)
	timer.Stop()
	pending := make(map[string]bool)

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			rel, err := filepath.Rel(w.root, event.Name)
			if err != nil || w.ignore.Match(rel) {
				continue
			}
			if event.Op&fsnotify.Create == fsnotify.Create {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					if err := w.addTree(event.Name); err != nil {
						log.Warn("watching new directory", zap.String("path", rel), zap.Error(err))
					}
				}
			}
			pending[filepath.ToSlash(rel)] = true
			timer.Reset(w.debounce)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			log.Error("watcher error", zap.Error(err))

		case <-timer.C:
			changed := make([]string, 0, len(pending))
			for rel := range pending {
				changed = append(changed, rel)
			}
			sort.Strings(changed)
			pending = make(map[string]bool)

			log.Debug("working tree changed", zap.Strings("paths", changed))
			if err := onChange(ctx, changed); err != nil {
				return err
			}
		}
	}
}

// Close cleans up resources
func (w *Watcher) Close() error {
	return w.watcher.Close()
}
