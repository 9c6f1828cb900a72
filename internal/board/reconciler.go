// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package board

import (
	"context"
	"fmt"
	"log"
	"sync"

	"github.com/wingedpig/arbor/internal/events"
	"github.com/wingedpig/arbor/internal/session"
)

// SessionManager is the slice of the orchestrator the reconciler needs.
type SessionManager interface {
	Start(ctx context.Context, req session.Request) (session.Info, error)
	Stop(ctx context.Context, req session.Request) error
}

// StatusStore persists board statuses across restarts. Best effort: the
// reconciler logs write failures and moves on.
type StatusStore interface {
	Set(issueNumber int, status string) error
	Delete(issueNumber int) error
}

// operation is one in-flight session operation for a card. gen detects
// supersession: a completion handler whose generation no longer matches
// the card's current one discards its result.
type operation struct {
	cancel context.CancelFunc
	gen    uint64
}

// Reconciler owns the card list and maps status transitions onto session
// operations. The card list and the operation registry are the only
// shared mutable state; both are mutated under mu by whole-value
// replacement.
type Reconciler struct {
	sessions SessionManager
	store    StatusStore
	bus      events.EventBus

	mu       sync.Mutex
	cards    []Card
	inflight map[string]operation
	gens     map[string]uint64
}

// NewReconciler creates a reconciler. store and bus may be nil.
func NewReconciler(sessions SessionManager, store StatusStore, bus events.EventBus) *Reconciler {
	return &Reconciler{
		sessions: sessions,
		store:    store,
		bus:      bus,
		inflight: make(map[string]operation),
		gens:     make(map[string]uint64),
	}
}

// Load replaces the card list wholesale. Used once at startup to seed
// cards restored from disk.
func (r *Reconciler) Load(cards []Card) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cards = append([]Card(nil), cards...)
}

// Snapshot returns a copy of the card list.
func (r *Reconciler) Snapshot() []Card {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Card, len(r.cards))
	copy(out, r.cards)
	return out
}

// Get returns the card with the given id.
func (r *Reconciler) Get(cardID string) (Card, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.cards {
		if c.ID == cardID {
			return c, true
		}
	}
	return Card{}, false
}

// Upsert merges incoming cards (from the issue sync) into the list. Issue
// metadata and titles are taken from the incoming record; session fields
// (status, workspace, error state) are preserved from the existing card
// so a sync cannot clobber an in-flight operation. Unknown cards are
// appended as idle.
func (r *Reconciler) Upsert(incoming []Card) {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing := make(map[string]Card, len(r.cards))
	for _, c := range r.cards {
		existing[c.ID] = c
	}

	next := make([]Card, 0, len(r.cards)+len(incoming))
	next = append(next, r.cards...)
	for _, in := range incoming {
		cur, ok := existing[in.ID]
		if !ok {
			in.Status = StatusIdle
			in.WorktreeOp = OpNone
			next = append(next, in)
			continue
		}
		cur.Title = in.Title
		cur.GitHub = in.GitHub
		for i := range next {
			if next[i].ID == cur.ID {
				next[i] = cur
				break
			}
		}
	}
	r.cards = next
}

// SetStatus applies a status transition for a card. idle -> in_progress
// starts a session, in_progress -> idle stops one; everything else is a
// plain field update. The session work runs asynchronously; the returned
// card reflects the immediate (optimistic) state.
func (r *Reconciler) SetStatus(cardID string, newStatus Status) (Card, error) {
	if !ValidStatus(newStatus) {
		return Card{}, fmt.Errorf("unknown status %q", newStatus)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	card, idx := r.find(cardID)
	if idx < 0 {
		return Card{}, fmt.Errorf("card %s not found", cardID)
	}

	log.Printf("board: card %s: %s -> %s", cardID, card.Status, newStatus)

	switch {
	case card.Status == StatusIdle && newStatus == StatusInProgress:
		return r.startTransition(card, idx), nil
	case card.Status == StatusInProgress && newStatus == StatusIdle:
		return r.stopTransition(card, idx), nil
	default:
		return r.plainTransition(card, idx, newStatus), nil
	}
}

// find returns the card and its index, or -1. Caller holds mu.
func (r *Reconciler) find(cardID string) (Card, int) {
	for i, c := range r.cards {
		if c.ID == cardID {
			return c, i
		}
	}
	return Card{}, -1
}

// replace swaps the card at idx via whole-list replacement and publishes
// the update. Caller holds mu.
func (r *Reconciler) replace(idx int, card Card) {
	next := make([]Card, len(r.cards))
	copy(next, r.cards)
	next[idx] = card
	r.cards = next
	r.publish(events.EventCardUpdated, card)
}

// begin supersedes any in-flight operation for the card and registers a
// fresh token under a new generation. Caller holds mu.
func (r *Reconciler) begin(cardID string) (context.Context, uint64) {
	if op, ok := r.inflight[cardID]; ok {
		op.cancel()
	}
	r.gens[cardID]++
	gen := r.gens[cardID]
	ctx, cancel := context.WithCancel(context.Background())
	r.inflight[cardID] = operation{cancel: cancel, gen: gen}
	return ctx, gen
}

// finish releases the card's token if the operation still owns it.
func (r *Reconciler) finish(cardID string, gen uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if op, ok := r.inflight[cardID]; ok && op.gen == gen {
		op.cancel()
		delete(r.inflight, cardID)
	}
}

// current reports whether gen is still the card's newest operation.
// Caller holds mu.
func (r *Reconciler) current(cardID string, gen uint64) bool {
	return r.gens[cardID] == gen
}

func (r *Reconciler) startTransition(card Card, idx int) Card {
	ctx, gen := r.begin(card.ID)

	card.Status = StatusInProgress
	card.WorktreeOp = OpCreating
	card.HasError = false
	card.ErrorMessage = ""
	r.replace(idx, card)

	req := r.requestFor(card)
	go r.runStart(ctx, card.ID, gen, req)
	return card
}

func (r *Reconciler) runStart(ctx context.Context, cardID string, gen uint64, req session.Request) {
	defer r.finish(cardID, gen)

	info, err := r.sessions.Start(ctx, req)

	// Apply against the list as of completion time, never dispatch time.
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.current(cardID, gen) {
		log.Printf("board: card %s: stale start result discarded", cardID)
		return
	}
	card, idx := r.find(cardID)
	if idx < 0 {
		return
	}

	switch {
	case err == nil:
		card.WorktreeCreated = true
		card.WorktreePath = info.WorktreePath
		port := info.Port
		card.Port = &port
		card.WorktreeOp = OpNone
		r.replace(idx, card)
		r.saveStatus(card)

	case session.IsCancelled(err):
		// Deliberate supersession, not a fault. No user-visible error.
		card.Status = StatusIdle
		card.WorktreeOp = OpNone
		r.replace(idx, card)

	default:
		card.Status = StatusIdle
		card.WorktreeOp = OpNone
		card.HasError = true
		card.ErrorMessage = err.Error()
		r.replace(idx, card)
		r.publish(events.EventCardError, card)
	}
}

func (r *Reconciler) stopTransition(card Card, idx int) Card {
	// A start still in flight: cancelling its token is enough, the
	// start's own rollback cleans up. No stop call.
	if op, ok := r.inflight[card.ID]; ok {
		op.cancel()
		delete(r.inflight, card.ID)
		card.Status = StatusIdle
		card.WorktreeOp = OpNone
		r.replace(idx, card)
		return card
	}

	if !card.WorktreeCreated {
		return r.plainTransition(card, idx, StatusIdle)
	}

	ctx, gen := r.begin(card.ID)

	card.Status = StatusIdle
	card.WorktreeOp = OpRemoving
	r.replace(idx, card)

	req := r.requestFor(card)
	go r.runStop(ctx, card.ID, gen, req)
	return card
}

func (r *Reconciler) runStop(ctx context.Context, cardID string, gen uint64, req session.Request) {
	defer r.finish(cardID, gen)

	err := r.sessions.Stop(ctx, req)

	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.current(cardID, gen) {
		log.Printf("board: card %s: stale stop result discarded", cardID)
		return
	}
	card, idx := r.find(cardID)
	if idx < 0 {
		return
	}

	if err != nil {
		// Workspace fields stay intact so the user can retry.
		card.WorktreeOp = OpNone
		card.HasError = true
		card.ErrorMessage = err.Error()
		r.replace(idx, card)
		r.publish(events.EventCardError, card)
		return
	}

	card.WorktreeCreated = false
	card.WorktreePath = ""
	card.Port = nil
	card.WorktreeOp = OpNone
	r.replace(idx, card)
	r.clearStatus(card)
}

func (r *Reconciler) plainTransition(card Card, idx int, newStatus Status) Card {
	// Dragging an error-flagged card out of waiting clears the flag as
	// part of the same replacement.
	if card.Status == StatusWaiting && card.HasError {
		card.HasError = false
		card.ErrorMessage = ""
	}
	card.Status = newStatus
	r.replace(idx, card)
	return card
}

func (r *Reconciler) requestFor(card Card) session.Request {
	return session.Request{
		CardID:       card.ID,
		IssueNumber:  card.GitHub.IssueNumber,
		IssueTitle:   card.GitHub.Title,
		PRBranch:     card.GitHub.PRBranch,
		WorktreePath: card.WorktreePath,
	}
}

func (r *Reconciler) saveStatus(card Card) {
	if r.store == nil || card.GitHub.IssueNumber <= 0 {
		return
	}
	if err := r.store.Set(card.GitHub.IssueNumber, string(card.Status)); err != nil {
		log.Printf("board: persist status for issue %d: %v", card.GitHub.IssueNumber, err)
	}
}

func (r *Reconciler) clearStatus(card Card) {
	if r.store == nil || card.GitHub.IssueNumber <= 0 {
		return
	}
	if err := r.store.Delete(card.GitHub.IssueNumber); err != nil {
		log.Printf("board: clear status for issue %d: %v", card.GitHub.IssueNumber, err)
	}
}

func (r *Reconciler) publish(eventType string, card Card) {
	if r.bus == nil {
		return
	}
	payload := map[string]interface{}{
		"status":    string(card.Status),
		"operation": string(card.WorktreeOp),
	}
	if card.HasError {
		payload["error"] = card.ErrorMessage
	}
	r.bus.Publish(context.Background(), events.Event{
		Type:    eventType,
		Card:    card.ID,
		Payload: payload,
	})
}
