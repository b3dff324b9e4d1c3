package corpus

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// reloadDelay coalesces the bursts of events a single save produces.
const reloadDelay = 100 * time.Millisecond

// Watcher reloads a Store whenever its corpus file is written or replaced.
// It watches the parent directory so editors that save by renaming a temp
// file over the original keep triggering reloads.
type Watcher struct {
	path    string
	store   *Store
	watcher *fsnotify.Watcher
	logger  *slog.Logger
	delay   time.Duration
}

// NewWatcher starts watching path. Call Run to process events.
func NewWatcher(path string, store *Store, logger *slog.Logger) (*Watcher, error) {
	if path == "" {
		return nil, fmt.Errorf("corpus path cannot be empty")
	}
	if logger == nil {
		logger = slog.Default()
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", path, err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("watch %s: %w", filepath.Dir(abs), err)
	}

	logger.Info("watching corpus file for changes", slog.String("path", abs))

	return &Watcher{path: abs, store: store, watcher: watcher, logger: logger, delay: reloadDelay}, nil
}

// relevant reports whether event may have changed the corpus file's contents.
func (w *Watcher) relevant(event fsnotify.Event) bool {
	if filepath.Clean(event.Name) != w.path {
		return false
	}
	return event.Has(fsnotify.Write) || event.Has(fsnotify.Create)
}

// Run processes file events until ctx is done.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.watcher.Close()

	var (
		timer *time.Timer
		fire  <-chan time.Time
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			w.logger.Debug("corpus watch stopped")
			return nil

		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if !w.relevant(event) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(w.delay)
			} else {
				timer.Reset(w.delay)
			}
			fire = timer.C

		case <-fire:
			fire = nil
			w.reload()

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Error("corpus watch error", slog.String("error", err.Error()))
		}
	}
}

func (w *Watcher) reload() {
	w.logger.Info("corpus file changed, reloading", slog.String("path", w.path))
	n, err := LoadInto(w.store, w.path)
	if err != nil {
		// The previous corpus stays in place until the file parses again.
		w.logger.Error("failed to reload corpus",
			slog.String("error", err.Error()),
			slog.String("path", w.path))
		return
	}
	w.logger.Info("corpus reloaded", slog.Int("documents", n))
}

// Close stops watching the corpus file.
func (w *Watcher) Close() error {
	return w.watcher.Close()
}
