package config

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/runoshun/crew-board/internal/domain"
)

// debounceDuration collapses the burst of events editors produce on save.
const debounceDuration = 100 * time.Millisecond

// Watcher reloads the configuration when one of its files changes.
// Fields are ordered to minimize memory padding.
type Watcher struct {
	loader   domain.ConfigLoader
	onReload func(*domain.Config)
	onError  func(error)
	debounce time.Duration
}

// NewWatcher creates a watcher that calls onReload with every successfully
// reloaded configuration. Load errors go to onError when set.
func NewWatcher(loader domain.ConfigLoader, onReload func(*domain.Config), onError func(error)) *Watcher {
	if onError == nil {
		onError = func(error) {}
	}
	return &Watcher{
		loader:   loader,
		onReload: onReload,
		onError:  onError,
		debounce: debounceDuration,
	}
}

// Run watches the directories of the config files until ctx is done.
// Directories are watched instead of files so that files created later
// and editors that replace files by rename are both noticed.
func (w *Watcher) Run(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer func() { _ = watcher.Close() }()

	watched := make(map[string]bool)
	for _, src := range w.loader.Sources() {
		watched[filepath.Clean(src.Path)] = true
		dir := filepath.Dir(src.Path)
		if _, err := os.Stat(dir); err != nil {
			continue // Directory doesn't exist, nothing to watch
		}
		if err := watcher.Add(dir); err != nil {
			return fmt.Errorf("watch %s: %w", dir, err)
		}
	}

	timer := time.NewTimer(0)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !watched[filepath.Clean(event.Name)] {
				continue
			}
			timer.Reset(w.debounce)
		case <-timer.C:
			cfg, err := w.loader.Load()
			if err != nil {
				w.onError(err)
				continue
			}
			w.onReload(cfg)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			w.onError(fmt.Errorf("watcher: %w", err))
		}
	}
}
