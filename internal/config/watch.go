// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// =============================================================================
// CONFIG WATCHER
// =============================================================================

// DefaultDebounce is how long a burst of file events must settle before
// the config is reloaded. Editors typically write a config file several
// times in quick succession (truncate, write, rename).
const DefaultDebounce = 250 * time.Millisecond

// Watcher reloads the configuration when the file changes on disk.
// Each successful reload updates the global config and invokes the
// registered callback with the fresh snapshot.
type Watcher struct {
	watcher  *fsnotify.Watcher
	debounce time.Duration
	onReload func(*Config)
	logger   *zap.Logger

	mu          sync.Mutex
	lastChange  time.Time
	changeSeen  bool
	ctx         context.Context
	cancel      context.CancelFunc
	wg          sync.WaitGroup
}

// NewWatcher creates a watcher for the default config directory.
// onReload may be nil if only the global config needs updating.
func NewWatcher(onReload func(*Config), logger *zap.Logger) (*Watcher, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Watcher{
		watcher:  fsw,
		debounce: DefaultDebounce,
		onReload: onReload,
		logger:   logger,
		ctx:      ctx,
		cancel:   cancel,
	}, nil
}

// Watch starts watching the config directory for changes. Watching the
// directory rather than the file survives the atomic rename Save does.
func (w *Watcher) Watch() error {
	dir, err := ConfigDir()
	if err != nil {
		return err
	}
	if err := EnsureConfigDir(); err != nil {
		return err
	}
	if err := w.watcher.Add(dir); err != nil {
		return err
	}

	w.wg.Add(2)
	go w.processEvents()
	go w.processPending()

	return nil
}

// Close stops the watcher and waits for its goroutines to exit.
func (w *Watcher) Close() error {
	w.cancel()
	err := w.watcher.Close()
	w.wg.Wait()
	return err
}

// isConfigFile reports whether the event path is one of our config files.
func isConfigFile(path string) bool {
	base := filepath.Base(path)
	return base == "config.toml" || base == "config.json"
}

func (w *Watcher) processEvents() {
	defer w.wg.Done()

	for {
		select {
		case <-w.ctx.Done():
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if !isConfigFile(event.Name) {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}

			w.mu.Lock()
			w.lastChange = time.Now()
			w.changeSeen = true
			w.mu.Unlock()

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("config watch error", zap.Error(err))
		}
	}
}

func (w *Watcher) processPending() {
	defer w.wg.Done()

	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-w.ctx.Done():
			return

		case <-ticker.C:
			w.mu.Lock()
			ready := w.changeSeen && time.Since(w.lastChange) >= w.debounce
			if ready {
				w.changeSeen = false
			}
			w.mu.Unlock()

			if !ready {
				continue
			}

			if err := ReloadGlobal(); err != nil {
				w.logger.Warn("config reload failed, keeping previous config", zap.Error(err))
				continue
			}
			w.logger.Info("configuration reloaded")
			if w.onReload != nil {
				w.onReload(Global())
			}
		}
	}
}
