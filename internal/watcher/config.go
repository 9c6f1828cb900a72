// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package watcher watches the repository's devcontainer config so cached
// discovery stays honest while a session is being edited.
package watcher

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/wingedpig/arbor/internal/devcontainer"
	"github.com/wingedpig/arbor/internal/events"
)

// ConfigWatcher invalidates the container manager's cached config
// discovery when a devcontainer config file changes under the repo root.
type ConfigWatcher struct {
	mu         sync.Mutex
	containers devcontainer.Manager
	bus        events.EventBus
	root       string
	watcher    *fsnotify.Watcher
	debouncer  *Debouncer
	closed     bool
	closeCh    chan struct{}
	wg         sync.WaitGroup
}

// NewConfigWatcher watches root for devcontainer config changes. The
// repo root is always watched; the .devcontainer directory is watched
// when it exists, and picked up later if it appears.
func NewConfigWatcher(containers devcontainer.Manager, bus events.EventBus, root string, debounce time.Duration) (*ConfigWatcher, error) {
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}

	w := &ConfigWatcher{
		containers: containers,
		bus:        bus,
		root:       root,
		watcher:    fsWatcher,
		debouncer:  NewDebouncer(debounce),
		closeCh:    make(chan struct{}),
	}

	if err := fsWatcher.Add(root); err != nil {
		fsWatcher.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", root, err)
	}
	dotDir := filepath.Join(root, ".devcontainer")
	if _, err := os.Stat(dotDir); err == nil {
		if err := fsWatcher.Add(dotDir); err != nil {
			log.Printf("watcher: cannot watch %s: %v", dotDir, err)
		}
	}

	w.wg.Add(1)
	go w.processEvents()

	return w, nil
}

// Close stops the watcher and releases resources.
func (w *ConfigWatcher) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	close(w.closeCh)
	w.mu.Unlock()

	w.debouncer.Stop()
	w.watcher.Close()
	w.wg.Wait()

	return nil
}

func (w *ConfigWatcher) processEvents() {
	defer w.wg.Done()

	for {
		select {
		case <-w.closeCh:
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(event)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			log.Printf("watcher: %v", err)
		}
	}
}

func (w *ConfigWatcher) handleEvent(event fsnotify.Event) {
	// Chmod fires on unrelated activity and would churn the cache.
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) &&
		!event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
		return
	}

	name := filepath.Base(event.Name)

	// The .devcontainer directory appearing means a config may follow.
	if name == ".devcontainer" && event.Has(fsnotify.Create) {
		if err := w.watcher.Add(event.Name); err != nil {
			log.Printf("watcher: cannot watch %s: %v", event.Name, err)
		}
		w.trigger(event.Name)
		return
	}

	if name != ".devcontainer.json" && name != "devcontainer.json" {
		return
	}
	w.trigger(event.Name)
}

func (w *ConfigWatcher) trigger(path string) {
	w.debouncer.Debounce(w.root, func() {
		log.Printf("watcher: devcontainer config changed under %s", w.root)
		w.containers.Invalidate(w.root)
		if w.bus != nil {
			w.bus.Publish(context.Background(), events.Event{
				Type:    events.EventContainerConfigChanged,
				Payload: map[string]interface{}{"path": path},
			})
		}
	})
}
