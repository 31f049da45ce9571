package config

import (
	"context"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// debounceWindow coalesces the burst of write events editors emit when
// saving into a single reload.
const debounceWindow = 200 * time.Millisecond

// watcher tracks one config file and the reload timer pending for it.
// Events arrive on viper's watch goroutine, one at a time.
type watcher struct {
	path    string
	pending *time.Timer
}

// Watch hot-reloads the config file until ctx is done. Each accepted change
// swaps the in-memory config via Set and fires the registered reload
// callbacks. Run in a goroutine.
func Watch(ctx context.Context) {
	w := &watcher{path: Path()}

	v := viper.New()
	v.SetConfigFile(w.path)
	if err := v.ReadInConfig(); err != nil {
		slog.Warn("config watch disabled", "path", w.path, "error", err)
		return
	}
	v.OnConfigChange(w.onChange)
	v.WatchConfig()

	<-ctx.Done()
}

func (w *watcher) onChange(e fsnotify.Event) {
	if e.Op&(fsnotify.Write|fsnotify.Create) == 0 {
		return
	}
	if filepath.Clean(e.Name) != filepath.Clean(w.path) {
		return
	}
	if w.pending != nil {
		w.pending.Stop()
	}
	w.pending = time.AfterFunc(debounceWindow, w.reload)
}

// reload re-parses the file. A file that no longer parses keeps the
// previous config in place.
func (w *watcher) reload() {
	cfg, err := Load(w.path)
	if err != nil {
		slog.Warn("config reload failed, keeping previous config", "path", w.path, "error", err)
		return
	}
	Set(cfg)
	notifyReload(cfg)
	slog.Info("config reloaded", "path", w.path)
}
