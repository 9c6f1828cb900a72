// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package events provides the event bus for Arbor.
package events

import (
	"context"
	"time"
)

// Event types emitted by the session and board subsystems.
const (
	EventSessionStarting    = "session.starting"
	EventSessionStarted     = "session.started"
	EventSessionStartFailed = "session.start_failed"
	EventSessionStopping    = "session.stopping"
	EventSessionStopped     = "session.stopped"
	EventSessionStopFailed  = "session.stop_failed"
	EventSessionCancelled   = "session.cancelled"

	EventCardUpdated = "card.updated"
	EventCardError   = "card.error"

	EventWorktreeCreated = "worktree.created"
	EventWorktreeRemoved = "worktree.removed"

	EventContainerConfigChanged = "container.config_changed"
)

// Event represents an immutable event record.
type Event struct {
	ID        string                 `json:"id"`
	Type      string                 `json:"type"`
	Timestamp time.Time              `json:"timestamp"`
	Card      string                 `json:"card"` // Card session ID, if card-scoped
	Payload   map[string]interface{} `json:"payload"`
}

// EventHandler processes received events.
type EventHandler func(ctx context.Context, event Event) error

// SubscriptionID uniquely identifies a subscription.
type SubscriptionID string

// EventFilter for querying event history.
type EventFilter struct {
	Types []string  // Event types to match (supports wildcards)
	Card  string    // Filter by card session ID
	Since time.Time // Events after this time
	Limit int       // Maximum events to return
}

// EventBus is the core event pub/sub system.
type EventBus interface {
	// Publish emits an event to all matching subscribers.
	Publish(ctx context.Context, event Event) error

	// Subscribe registers a synchronous handler for events matching pattern.
	Subscribe(pattern string, handler EventHandler) (SubscriptionID, error)

	// SubscribeAsync registers an async handler with a buffered channel.
	SubscribeAsync(pattern string, handler EventHandler, bufferSize int) (SubscriptionID, error)

	// Unsubscribe removes a subscription.
	Unsubscribe(id SubscriptionID) error

	// History retrieves past events matching filter.
	History(filter EventFilter) ([]Event, error)

	// Close shuts down the event bus gracefully.
	Close() error
}
