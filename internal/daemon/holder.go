// SPDX-License-Identifier: MIT

package daemon

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/jimyag/profilesync/internal/config"
	"github.com/rs/zerolog"
)

// Holder keeps the current configuration snapshot and supports hot reload
// from the config file (fsnotify) and SIGHUP. A reload never interrupts a
// running refresh; consumers pick up the new snapshot on their next cycle.
type Holder struct {
	mu       sync.RWMutex
	cfg      config.AppConfig
	loader   *config.Loader
	path     string
	onReload []func(config.AppConfig)
	logger   zerolog.Logger
}

// NewHolder wraps the initial configuration. path may be empty, in which case
// only SIGHUP triggers reloads.
func NewHolder(cfg config.AppConfig, loader *config.Loader, path string, logger zerolog.Logger) *Holder {
	return &Holder{
		cfg:    cfg,
		loader: loader,
		path:   path,
		logger: logger,
	}
}

// Current returns the active configuration snapshot.
func (h *Holder) Current() config.AppConfig {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.cfg
}

// OnReload registers a callback invoked with every successfully loaded config.
func (h *Holder) OnReload(fn func(config.AppConfig)) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.onReload = append(h.onReload, fn)
}

// Reload re-runs the loader and swaps the snapshot. A failed load keeps the
// previous snapshot in place.
func (h *Holder) Reload() error {
	cfg, err := h.loader.Load()
	if err != nil {
		h.logger.Error().Err(err).
			Str("event", "config.reload_failed").
			Msg("config reload failed, keeping previous configuration")
		return err
	}

	h.mu.Lock()
	h.cfg = cfg
	callbacks := make([]func(config.AppConfig), len(h.onReload))
	copy(callbacks, h.onReload)
	h.mu.Unlock()

	for _, fn := range callbacks {
		fn(cfg)
	}

	h.logger.Info().Str("event", "config.reloaded").Msg("configuration reloaded")
	return nil
}

// Watch blocks until ctx is cancelled, reloading on SIGHUP and on config
// file changes. Editor write bursts are debounced.
func (h *Holder) Watch(ctx context.Context) error {
	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)

	var fsEvents chan fsnotify.Event
	var fsErrors chan error
	if h.path != "" {
		watcher, err := fsnotify.NewWatcher()
		if err != nil {
			return err
		}
		defer watcher.Close() //nolint:errcheck
		// Watch the containing directory, not the file itself: editors and
		// ConfigMap updates replace the file via rename, which kills a
		// file-level watch.
		if err := watcher.Add(filepath.Dir(h.path)); err != nil {
			h.logger.Warn().Err(err).
				Str("path", h.path).
				Msg("cannot watch config directory, hot reload limited to SIGHUP")
		} else {
			fsEvents = watcher.Events
			fsErrors = watcher.Errors
		}
	}

	var debounce *time.Timer
	debounced := make(chan struct{}, 1)

	for {
		select {
		case <-ctx.Done():
			if debounce != nil {
				debounce.Stop()
			}
			return nil
		case <-hup:
			h.logger.Info().Str("event", "config.sighup").Msg("SIGHUP received")
			_ = h.Reload()
		case ev, ok := <-fsEvents:
			if !ok {
				fsEvents = nil
				continue
			}
			if filepath.Clean(ev.Name) != filepath.Clean(h.path) {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if debounce != nil {
				debounce.Stop()
			}
			debounce = time.AfterFunc(250*time.Millisecond, func() {
				select {
				case debounced <- struct{}{}:
				default:
				}
			})
		case <-debounced:
			_ = h.Reload()
		case err, ok := <-fsErrors:
			if !ok {
				fsErrors = nil
				continue
			}
			h.logger.Warn().Err(err).Msg("config watcher error")
		}
	}
}
