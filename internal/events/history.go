// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package events

import (
	"sync"
	"time"
)

// EventHistoryConfig configures the event history buffer.
type EventHistoryConfig struct {
	MaxEvents int           // Maximum events retained (0 = default)
	MaxAge    time.Duration // Maximum event age (0 = no age limit)
}

const defaultHistoryMaxEvents = 1000

// EventHistory is a bounded, in-memory event log.
type EventHistory struct {
	mu        sync.RWMutex
	events    []Event
	maxEvents int
	maxAge    time.Duration
}

// NewEventHistory creates a new event history buffer.
func NewEventHistory(cfg EventHistoryConfig) *EventHistory {
	maxEvents := cfg.MaxEvents
	if maxEvents <= 0 {
		maxEvents = defaultHistoryMaxEvents
	}
	return &EventHistory{
		maxEvents: maxEvents,
		maxAge:    cfg.MaxAge,
	}
}

// Add appends an event, evicting the oldest when over capacity.
func (h *EventHistory) Add(event Event) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.events = append(h.events, event)
	if len(h.events) > h.maxEvents {
		h.events = h.events[len(h.events)-h.maxEvents:]
	}
}

// Prune drops events older than the configured max age.
func (h *EventHistory) Prune() {
	if h.maxAge <= 0 {
		return
	}

	cutoff := time.Now().Add(-h.maxAge)

	h.mu.Lock()
	defer h.mu.Unlock()

	idx := 0
	for idx < len(h.events) && h.events[idx].Timestamp.Before(cutoff) {
		idx++
	}
	if idx > 0 {
		h.events = append([]Event(nil), h.events[idx:]...)
	}
}

// Query returns events matching the filter, oldest first.
func (h *EventHistory) Query(filter EventFilter) ([]Event, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	var result []Event
	for _, ev := range h.events {
		if !filter.Since.IsZero() && !ev.Timestamp.After(filter.Since) {
			continue
		}
		if filter.Card != "" && ev.Card != filter.Card {
			continue
		}
		if len(filter.Types) > 0 && !matchAny(ev.Type, filter.Types) {
			continue
		}
		result = append(result, ev)
	}

	if filter.Limit > 0 && len(result) > filter.Limit {
		result = result[len(result)-filter.Limit:]
	}

	return result, nil
}

// Size returns the number of retained events.
func (h *EventHistory) Size() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.events)
}

func matchAny(eventType string, patterns []string) bool {
	for _, p := range patterns {
		if MatchPattern(eventType, p) {
			return true
		}
	}
	return false
}
