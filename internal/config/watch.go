// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"fmt"
	"log"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watcher reloads configuration when the config file changes on disk.
// Rapid successive writes (editors often write twice) are debounced.
type Watcher struct {
	watcher  *fsnotify.Watcher
	path     string
	debounce time.Duration
	onChange func(*Config)

	mu      sync.Mutex
	pending bool
	closed  bool
	done    chan struct{}
}

// NewWatcher creates a watcher for the given config file. onChange is
// called with the freshly loaded config after each debounced change.
func NewWatcher(path string, onChange func(*Config)) (*Watcher, error) {
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}

	w := &Watcher{
		watcher:  fsWatcher,
		path:     path,
		debounce: 500 * time.Millisecond,
		onChange: onChange,
		done:     make(chan struct{}),
	}

	// Watch the directory, not the file: editors replace files via
	// rename, which drops a watch on the file itself.
	if err := fsWatcher.Add(filepath.Dir(path)); err != nil {
		fsWatcher.Close()
		return nil, fmt.Errorf("failed to watch config directory: %w", err)
	}

	go w.processEvents()
	return w, nil
}

// processEvents handles file system events.
func (w *Watcher) processEvents() {
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if event.Name != w.path {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0 {
				w.scheduleReload()
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			log.Printf("CONFIG_WATCH_ERROR | error=%v", err)

		case <-w.done:
			return
		}
	}
}

// scheduleReload arms the debounce timer; events arriving while a
// reload is pending are coalesced.
func (w *Watcher) scheduleReload() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.pending || w.closed {
		return
	}
	w.pending = true

	time.AfterFunc(w.debounce, func() {
		w.mu.Lock()
		w.pending = false
		closed := w.closed
		w.mu.Unlock()
		if closed {
			return
		}

		cfg, err := LoadFromPath(w.path)
		if err != nil {
			log.Printf("CONFIG_RELOAD_FAILED | path=%s error=%v", w.path, err)
			return
		}
		log.Printf("CONFIG_RELOADED | path=%s", w.path)
		if w.onChange != nil {
			w.onChange(cfg)
		}
	})
}

// Close stops watching. Safe to call more than once.
func (w *Watcher) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	w.mu.Unlock()

	close(w.done)
	return w.watcher.Close()
}
