// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/wingedpig/arbor/internal/board"
)

// CardHandler handles card-related API requests.
type CardHandler struct {
	board *board.Reconciler
}

// NewCardHandler creates a new card handler.
func NewCardHandler(b *board.Reconciler) *CardHandler {
	return &CardHandler{board: b}
}

// List returns all cards.
func (h *CardHandler) List(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, h.board.Snapshot())
}

// Get returns a single card.
func (h *CardHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	card, ok := h.board.Get(id)
	if !ok {
		WriteError(w, http.StatusNotFound, ErrNotFound, "card "+id+" not found")
		return
	}
	WriteJSON(w, http.StatusOK, card)
}

// statusRequest is the body of a status-change request.
type statusRequest struct {
	Status string `json:"status"`
}

// SetStatus applies a status transition to a card. Session work triggered
// by the transition runs asynchronously; the response carries the
// immediate card state.
func (h *CardHandler) SetStatus(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	var req statusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, ErrBadRequest, "invalid request body: "+err.Error())
		return
	}
	if req.Status == "" {
		WriteError(w, http.StatusBadRequest, ErrBadRequest, "status is required")
		return
	}

	card, err := h.board.SetStatus(id, board.Status(req.Status))
	if err != nil {
		if _, ok := h.board.Get(id); !ok {
			WriteError(w, http.StatusNotFound, ErrNotFound, err.Error())
			return
		}
		WriteError(w, http.StatusBadRequest, ErrCardError, err.Error())
		return
	}
	WriteJSON(w, http.StatusOK, card)
}
