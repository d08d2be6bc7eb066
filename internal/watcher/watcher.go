// Package watcher keeps an index in sync with a directory tree: file
// changes re-index through the manager's add path, deletions remove the
// document.
package watcher

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/searchmix/searchmix/internal/index"
)

// DefaultDebounceWindow coalesces editor save bursts into one re-index.
const DefaultDebounceWindow = 500 * time.Millisecond

// Watcher drives incremental re-indexing from filesystem events.
type Watcher struct {
	manager  *index.Manager
	opts     index.AddOptions
	debounce time.Duration
	logger   *slog.Logger
}

// New creates a watcher indexing through manager with opts.
func New(manager *index.Manager, opts index.AddOptions, debounce time.Duration) *Watcher {
	if debounce <= 0 {
		debounce = DefaultDebounceWindow
	}
	return &Watcher{
		manager:  manager,
		opts:     opts,
		debounce: debounce,
		logger:   slog.Default(),
	}
}

// Watch blocks, processing events under dir until ctx is done. The initial
// state of the tree is indexed first so the watch starts consistent.
func (w *Watcher) Watch(ctx context.Context, dir string) error {
	if _, err := w.manager.Add(ctx, dir, w.opts); err != nil {
		return err
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer fsw.Close()

	if err := w.addDirs(fsw, dir); err != nil {
		return err
	}

	deb := NewDebouncer(w.debounce)
	defer deb.Stop()

	supported := map[string]bool{}
	for _, ext := range w.manager.Extensions() {
		supported[ext] = true
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			w.handleEvent(fsw, deb, event, supported)

		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watch_error", slog.String("error", err.Error()))

		case batch := <-deb.Output():
			w.apply(ctx, batch)
		}
	}
}

func (w *Watcher) handleEvent(fsw *fsnotify.Watcher, deb *Debouncer, event fsnotify.Event, supported map[string]bool) {
	// New directories join the watch set.
	if event.Op.Has(fsnotify.Create) {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if w.opts.Recursive {
				_ = w.addDirs(fsw, event.Name)
			}
			return
		}
	}

	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(event.Name)), ".")
	if !supported[ext] {
		return
	}

	switch {
	case event.Op.Has(fsnotify.Create):
		deb.Add(FileEvent{Path: event.Name, Operation: OpCreate})
	case event.Op.Has(fsnotify.Write):
		deb.Add(FileEvent{Path: event.Name, Operation: OpModify})
	case event.Op.Has(fsnotify.Remove) || event.Op.Has(fsnotify.Rename):
		deb.Add(FileEvent{Path: event.Name, Operation: OpDelete})
	}
}

// apply re-indexes or removes the files of one debounced batch.
func (w *Watcher) apply(ctx context.Context, batch []FileEvent) {
	for _, ev := range batch {
		abs, err := filepath.Abs(ev.Path)
		if err != nil {
			abs = ev.Path
		}
		switch ev.Operation {
		case OpDelete:
			if err := w.manager.RemoveDocument(ctx, abs); err != nil {
				w.logger.Warn("watch_remove_failed",
					slog.String("path", abs),
					slog.String("error", err.Error()))
			}
		default:
			opts := w.opts
			opts.Update = ev.Operation == OpModify
			if _, err := w.manager.Add(ctx, abs, opts); err != nil {
				w.logger.Warn("watch_index_failed",
					slog.String("path", abs),
					slog.String("error", err.Error()))
			}
		}
	}
}

// addDirs registers dir (and, recursively, its subdirectories) with the
// fsnotify watcher.
func (w *Watcher) addDirs(fsw *fsnotify.Watcher, dir string) error {
	if !w.opts.Recursive {
		return fsw.Add(dir)
	}
	return filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			return fsw.Add(path)
		}
		return nil
	})
}
