package ml

import (
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// ArtifactWatcher reloads the cache when the artifact file is replaced on
// disk, so a retrain is picked up without restarting the server. The watch
// is on the containing directory because atomic saves rename a temp file
// into place.
type ArtifactWatcher struct {
	watcher *fsnotify.Watcher
	done    chan struct{}
}

func WatchArtifact(path string, cache *ArtifactCache) (*ArtifactWatcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		watcher.Close()
		return nil, err
	}

	w := &ArtifactWatcher{watcher: watcher, done: make(chan struct{})}
	target := filepath.Clean(path)
	go func() {
		defer close(w.done)
		for {
			select {
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != target {
					continue
				}
				if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
					continue
				}
				if err := cache.Reload(); err != nil {
					zap.S().Warnw("artifact reload failed", "path", target, "error", err)
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				zap.S().Warnw("artifact watch error", "error", err)
			}
		}
	}()
	return w, nil
}

func (w *ArtifactWatcher) Close() error {
	err := w.watcher.Close()
	<-w.done
	return err
}
