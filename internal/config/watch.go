package config

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/stehlfi1/serial-experiment-temperature-sub004/internal/logger"
)

// reloadDelay coalesces the burst of events editors emit on save
const reloadDelay = 150 * time.Millisecond

// Watcher reloads a config file whenever it changes on disk
type Watcher struct {
	path     string
	watcher  *fsnotify.Watcher
	onChange func(*Config)
	log      *logger.Logger
}

// NewWatcher watches the directory holding path. The directory is watched
// instead of the file so that atomic renames are seen.
func NewWatcher(path string, onChange func(*Config)) (*Watcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create config watcher: %w", err)
	}
	if err := w.Add(filepath.Dir(path)); err != nil {
		_ = w.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", filepath.Dir(path), err)
	}

	return &Watcher{
		path:     filepath.Clean(path),
		watcher:  w,
		onChange: onChange,
		log:      logger.Global().WithPrefix("config"),
	}, nil
}

// Run delivers reloaded configs until ctx is done. Files that fail to
// parse are logged and skipped; the previous config stays in effect.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.watcher.Close()

	var timer *time.Timer
	var fire <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return ctx.Err()

		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(reloadDelay)
			} else {
				timer.Reset(reloadDelay)
			}
			fire = timer.C

		case <-fire:
			fire = nil
			cfg, err := Load(w.path)
			if err != nil {
				w.log.Warn("ignoring config change: %v", err)
				continue
			}
			w.log.Info("reloaded %s", w.path)
			if w.onChange != nil {
				w.onChange(cfg)
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			w.log.Error("config watcher error: %v", err)
		}
	}
}
