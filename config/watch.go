package config

import (
	"context"
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	"voxelradiosity/logger"
)

// Watch reloads path whenever it is written and passes the result to fn. It
// watches the parent directory so editors that replace the file are seen
// too. Watch blocks until ctx is done.
func Watch(ctx context.Context, path string, fn func(*Settings)) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	target := filepath.Clean(path)
	if err := w.Add(filepath.Dir(target)); err != nil {
		return err
	}

	log := logger.Logger()
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target || !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			s, err := Load(path)
			if err != nil {
				log.Warn("settings reload failed", "path", path, "err", err)
				continue
			}
			fn(s)
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			log.Warn("settings watcher", "err", err)
		}
	}
}
