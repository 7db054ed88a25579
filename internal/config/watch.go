package config

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// Watch calls fn with freshly loaded settings whenever path is written, created or
// renamed into place. The parent directory is watched so editors that replace the file
// are still seen. Watch blocks until ctx is done.
func Watch(ctx context.Context, path string, fn func(Settings, error)) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating settings watcher: %w", err)
	}
	defer w.Close()

	target := filepath.Clean(path)
	if err := w.Add(filepath.Dir(target)); err != nil {
		return fmt.Errorf("watching %s: %w", filepath.Dir(target), err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != target {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
				continue
			}
			fn(LoadSettings(target))
		case _, ok := <-w.Errors:
			if !ok {
				return nil
			}
			// Events may have been dropped; reload to catch up.
			fn(LoadSettings(target))
		}
	}
}
