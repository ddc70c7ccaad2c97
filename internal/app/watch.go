package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/vk/glgrid/internal/ctxlog"
	"github.com/vk/glgrid/internal/fsutil"
)

// watch reloads the project whenever one of its files or assets changes,
// until ctx is done.
func (a *App) watch(ctx context.Context) error {
	logger := ctxlog.FromContext(ctx)
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	defer watcher.Close()

	if err := a.addWatches(watcher); err != nil {
		return err
	}
	logger.Info("👀 Watching project for changes.", "path", a.config.ProjectPath)

	var debounce <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			logger.Info("Watcher stopped.")
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&fsnotify.Create == fsnotify.Create {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					if err := watcher.Add(event.Name); err != nil {
						logger.Warn("Failed to watch new directory.", "dir", event.Name, "error", err)
					}
					continue
				}
			}
			if !a.relevant(event.Name) {
				continue
			}
			logger.Debug("Project file changed.", "file", event.Name, "op", event.Op.String())
			debounce = time.After(a.config.WatchDebounce)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Error("File watcher error.", "error", err)

		case <-debounce:
			debounce = nil
			logger.Info("🔄 Reloading project...")
			if err := a.Reload(ctx); err != nil {
				logger.Error("Reload failed.", "error", err)
			}
		}
	}
}

// addWatches registers every directory of the project, and the directory
// of a single project file.
func (a *App) addWatches(watcher *fsnotify.Watcher) error {
	root := a.config.ProjectPath
	info, err := os.Stat(root)
	if err != nil {
		return fmt.Errorf("error accessing path %s: %w", root, err)
	}
	if !info.IsDir() {
		return watcher.Add(filepath.Dir(root))
	}
	dirs, err := fsutil.FindDirs(root)
	if err != nil {
		return err
	}
	for _, dir := range dirs {
		if err := watcher.Add(dir); err != nil {
			return err
		}
	}
	return nil
}

// relevant reports whether a change to path affects the project. The save
// target is ignored so that saving does not trigger another reload.
func (a *App) relevant(path string) bool {
	abs := a.resolve(path)
	if a.config.SavePath != "" && abs == a.resolve(a.config.SavePath) {
		return false
	}

	a.mu.Lock()
	asset := a.assets[abs]
	a.mu.Unlock()
	if asset {
		return true
	}

	if filepath.Ext(path) != ".hcl" {
		return false
	}
	info, err := os.Stat(a.config.ProjectPath)
	if err == nil && !info.IsDir() {
		return abs == a.resolve(a.config.ProjectPath)
	}
	return true
}
