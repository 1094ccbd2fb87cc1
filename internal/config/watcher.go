package config

import (
	"context"
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	"github.com/hugo-lorenzo-mato/fedbridge/internal/logging"
)

// Watcher reloads configuration when the config file changes on disk.
type Watcher struct {
	loader   *Loader
	path     string
	onChange func(*Config)
	logger   *logging.Logger
}

// NewWatcher creates a watcher over the given config file. onChange is
// invoked with the reloaded config after every successful reload.
func NewWatcher(loader *Loader, path string, onChange func(*Config), logger *logging.Logger) *Watcher {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Watcher{
		loader:   loader,
		path:     path,
		onChange: onChange,
		logger:   logger,
	}
}

// Run watches until ctx is cancelled. Editors replace files on save, so
// the parent directory is watched and events filtered by name.
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer fw.Close()

	if err := fw.Add(filepath.Dir(w.path)); err != nil {
		return err
	}

	base := filepath.Base(w.path)
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if filepath.Base(event.Name) != base {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}

			cfg, err := w.loader.Load()
			if err != nil {
				w.logger.Warn("config reload failed", "error", err)
				continue
			}
			if err := cfg.Validate(); err != nil {
				w.logger.Warn("reloaded config invalid, keeping previous", "error", err)
				continue
			}
			w.logger.Info("configuration reloaded", "path", w.path)
			w.onChange(cfg)
		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("config watcher error", "error", err)
		}
	}
}
