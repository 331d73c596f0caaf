package server

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// DefaultDebounce coalesces the burst of events a single save produces.
const DefaultDebounce = 250 * time.Millisecond

// Watcher reloads a Store when its dataset file changes on disk. It watches
// the parent directory so that atomic replace-by-rename is seen.
type Watcher struct {
	store    *Store
	debounce time.Duration
	logger   *zap.Logger
	watcher  *fsnotify.Watcher

	// reloaded, when set, receives the result of every reload.
	reloaded func(error)
}

// NewWatcher creates a watcher for store's dataset path.
func NewWatcher(store *Store, debounce time.Duration, logger *zap.Logger) (*Watcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Watcher{store: store, debounce: debounce, logger: logger, watcher: w}, nil
}

// Run blocks until ctx is cancelled, reloading the store after each
// settled burst of changes to the dataset file.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.watcher.Close()
	target, err := filepath.Abs(w.store.Path())
	if err != nil {
		return fmt.Errorf("resolve dataset path: %w", err)
	}
	dir := filepath.Dir(target)
	if err := w.watcher.Add(dir); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}
	w.logger.Debug("watching dataset", zap.String("path", target))

	timer := time.NewTimer(time.Hour)
	timer.Stop()
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != target {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
				continue
			}
			timer.Reset(w.debounce)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watch error", zap.Error(err))
		case <-timer.C:
			err := w.store.Reload()
			if err == nil {
				w.logger.Info("dataset reloaded after change", zap.Int("rows", w.store.Len()))
			}
			if w.reloaded != nil {
				w.reloaded(err)
			}
		}
	}
}
