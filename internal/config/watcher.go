package config

import (
	"path/filepath"
	"sync"
	"time"

	"github.com/forgeai-dev/ForgeAI-sub001/pkg/router"
	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

// Watcher reloads the config file on change and pushes the new routes to
// the callback. Routes are the only hot-reloadable section; everything else
// requires a restart.
type Watcher struct {
	loader   *Loader
	watcher  *fsnotify.Watcher
	logger   zerolog.Logger
	onRoutes func([]router.Route)
	debounce time.Duration
	stopCh   chan struct{}

	mu      sync.Mutex
	timer   *time.Timer
	stopped bool
}

// NewWatcher starts watching the loader's config file. Editors often
// replace the file instead of writing in place, so the parent directory is
// watched and events are filtered by name.
func NewWatcher(loader *Loader, logger zerolog.Logger, onRoutes func([]router.Route)) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	w := &Watcher{
		loader:   loader,
		watcher:  fsw,
		logger:   logger,
		onRoutes: onRoutes,
		debounce: 500 * time.Millisecond,
		stopCh:   make(chan struct{}),
	}

	if err := fsw.Add(filepath.Dir(loader.GetConfigPath())); err != nil {
		fsw.Close()
		return nil, err
	}

	go w.run()

	return w, nil
}

// Stop stops the watcher and cancels any pending debounced reload. It is
// safe to call more than once.
func (w *Watcher) Stop() error {
	w.mu.Lock()
	if w.stopped {
		w.mu.Unlock()
		return nil
	}
	w.stopped = true
	if w.timer != nil {
		w.timer.Stop()
	}
	w.mu.Unlock()

	close(w.stopCh)
	return w.watcher.Close()
}

func (w *Watcher) run() {
	configPath := w.loader.GetConfigPath()

	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != filepath.Clean(configPath) {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Rename) {
				w.logger.Debug().
					Str("file", filepath.Base(event.Name)).
					Str("op", event.Op.String()).
					Msg("Config change detected")
				w.scheduleReload()
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Error().Err(err).Msg("Config watcher error")

		case <-w.stopCh:
			return
		}
	}
}

// scheduleReload debounces bursts of write events into one reload.
func (w *Watcher) scheduleReload() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.stopped {
		return
	}
	if w.timer != nil {
		w.timer.Stop()
	}

	w.timer = time.AfterFunc(w.debounce, w.reload)
}

// reload re-reads the file and pushes the routes if they validate. A broken
// config keeps the previous routes in effect.
func (w *Watcher) reload() {
	cfg, err := w.loader.Load()
	if err != nil {
		w.logger.Error().Err(err).Msg("Config reload failed, keeping previous routes")
		return
	}

	if errs := NewValidator().ValidateRoutes(cfg.Routes, cfg.Providers); len(errs) > 0 {
		for _, err := range errs {
			w.logger.Error().Err(err).Msg("Config reload rejected")
		}
		return
	}

	w.logger.Info().Int("routes", len(cfg.Routes)).Msg("Routes reloaded from config")
	w.onRoutes(cfg.RouterRoutes())
}
