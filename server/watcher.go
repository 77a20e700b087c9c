package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/c360studio/pagelens/model"
)

// debounceWindow absorbs editor write bursts before a reload.
const debounceWindow = 250 * time.Millisecond

// RegistryWatcher hot-reloads the model registry when its backing file
// changes. The directory is watched rather than the file itself so
// rename-based atomic writes are still observed.
type RegistryWatcher struct {
	path     string
	registry *model.Registry
	log      *slog.Logger
}

// NewRegistryWatcher creates a watcher for the registry file at path.
func NewRegistryWatcher(path string, registry *model.Registry, log *slog.Logger) *RegistryWatcher {
	if log == nil {
		log = slog.Default()
	}
	return &RegistryWatcher{
		path:     path,
		registry: registry,
		log:      log,
	}
}

// Watch blocks until ctx is done, reloading the registry after each
// change to the file. A reload failure keeps the previous registry.
func (w *RegistryWatcher) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	if err := watcher.Add(filepath.Dir(w.path)); err != nil {
		return err
	}

	w.log.Info("Watching model registry", "path", w.path)

	var reload <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != filepath.Clean(w.path) {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			reload = time.After(debounceWindow)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			w.log.Warn("Registry watch error", "error", err)

		case <-reload:
			reload = nil
			w.reload()
		}
	}
}

func (w *RegistryWatcher) reload() {
	data, err := os.ReadFile(w.path)
	if err != nil {
		w.log.Warn("Registry reload failed, keeping previous", "error", err)
		return
	}

	fresh := model.NewDefaultRegistry()
	if err := json.Unmarshal(data, fresh); err != nil {
		w.log.Warn("Registry file invalid, keeping previous", "error", err)
		return
	}

	w.registry.Replace(fresh)
	w.log.Info("Model registry reloaded", "path", w.path)
}
