package config

import (
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	"supplyline/internal/logging"
)

// Watch monitors the config file and invokes onReload with the freshly parsed
// config whenever it changes on disk. Only a subset of settings is safe to
// apply at runtime (the simulation section); callers decide what to pick up.
// Returns a stop function. A watcher that cannot be created is a warning, not
// an error: hot reload is a convenience, never a requirement.
func Watch(path string, log *logging.Logger, onReload func(*Config)) (stop func()) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		log.Warn("config_watch", "failed to create config watcher, hot reload disabled", map[string]any{"error": err.Error()})
		return func() {}
	}

	// Watch the directory, not the file: editors replace files on save and
	// the original inode stops receiving events.
	dir := filepath.Dir(path)
	if err := watcher.Add(dir); err != nil {
		_ = watcher.Close()
		log.Warn("config_watch", "failed to watch config directory, hot reload disabled", map[string]any{"dir": dir, "error": err.Error()})
		return func() {}
	}

	done := make(chan struct{})
	go func() {
		for {
			select {
			case <-done:
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != filepath.Clean(path) {
					continue
				}
				if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
					continue
				}
				cfg, err := LoadFromFile(path)
				if err != nil {
					log.Warn("config_reload", "ignoring config change that failed to parse", map[string]any{"error": err.Error()})
					continue
				}
				log.Info("config_reload", "config file changed, applying runtime settings", nil)
				onReload(cfg)
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				if err != nil {
					log.Warn("config_watch", "config watcher error", map[string]any{"error": err.Error()})
				}
			}
		}
	}()

	return func() {
		close(done)
		_ = watcher.Close()
	}
}
