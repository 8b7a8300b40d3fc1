package manifest

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// WatcherConfig contains configuration for the manifest watcher.
type WatcherConfig struct {
	// Path is the manifest file to watch.
	Path string

	// DebounceInterval is how long to coalesce file events before
	// triggering a reload (default: 100ms).
	DebounceInterval time.Duration
}

// Watcher watches the manifest file and re-applies it on change. Write
// storms (editors writing temp files, chunked saves) are debounced into a
// single reload.
type Watcher struct {
	watcher *fsnotify.Watcher
	config  *WatcherConfig
	logger  *slog.Logger
}

// NewWatcher creates a watcher for the configured manifest file.
func NewWatcher(config *WatcherConfig, logger *slog.Logger) (*Watcher, error) {
	if config == nil || config.Path == "" {
		return nil, fmt.Errorf("manifest watcher requires a path")
	}
	if config.DebounceInterval <= 0 {
		config.DebounceInterval = 100 * time.Millisecond
	}
	if logger == nil {
		logger = slog.Default()
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}

	return &Watcher{
		watcher: fw,
		config:  config,
		logger:  logger.With("component", "manifest.watcher"),
	}, nil
}

// Watch blocks until ctx is cancelled, calling onReload after each
// debounced change to the manifest file. Reload errors are logged and
// watching continues; the previously applied state stays in effect.
//
// The parent directory is watched rather than the file itself so
// atomic-rename saves (write temp, rename over) keep working.
func (w *Watcher) Watch(ctx context.Context, onReload func() error) error {
	dir := filepath.Dir(w.config.Path)
	if err := w.watcher.Add(dir); err != nil {
		return fmt.Errorf("failed to watch %q: %w", dir, err)
	}
	defer w.watcher.Close()

	w.logger.Info("watching manifest", "path", w.config.Path,
		"debounce", w.config.DebounceInterval)

	target, err := filepath.Abs(w.config.Path)
	if err != nil {
		return fmt.Errorf("failed to resolve manifest path: %w", err)
	}

	var timer *time.Timer
	var timerCh <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			abs, err := filepath.Abs(event.Name)
			if err != nil || abs != target {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(w.config.DebounceInterval)
				timerCh = timer.C
			} else {
				timer.Reset(w.config.DebounceInterval)
			}

		case <-timerCh:
			timer = nil
			timerCh = nil
			w.logger.Info("manifest changed, reloading", "path", w.config.Path)
			if err := onReload(); err != nil {
				w.logger.Error("manifest reload failed", "error", err)
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Error("watch error", "error", err)
		}
	}
}
