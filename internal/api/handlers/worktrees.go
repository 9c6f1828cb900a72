// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package handlers

import (
	"net/http"

	"github.com/wingedpig/arbor/internal/worktree"
)

// WorktreeHandler handles worktree-related API requests.
type WorktreeHandler struct {
	mgr worktree.Manager
}

// NewWorktreeHandler creates a new worktree handler.
func NewWorktreeHandler(mgr worktree.Manager) *WorktreeHandler {
	return &WorktreeHandler{mgr: mgr}
}

// WorktreeResponse is the API shape of a worktree listing entry.
type WorktreeResponse struct {
	Path        string `json:"Path"`
	Branch      string `json:"Branch"`
	Commit      string `json:"Commit"`
	Detached    bool   `json:"Detached"`
	IsBare      bool   `json:"IsBare"`
	IssueNumber int    `json:"IssueNumber,omitempty"`
}

// List returns all worktrees known to the repository.
func (h *WorktreeHandler) List(w http.ResponseWriter, r *http.Request) {
	worktrees, err := h.mgr.List(r.Context())
	if err != nil {
		WriteError(w, http.StatusInternalServerError, ErrWorktreeError, err.Error())
		return
	}

	responses := make([]WorktreeResponse, len(worktrees))
	for i, wt := range worktrees {
		resp := WorktreeResponse{
			Path:     wt.Path,
			Branch:   wt.Branch,
			Commit:   wt.Commit,
			Detached: wt.Detached,
			IsBare:   wt.IsBare,
		}
		if n, ok := worktree.IssueNumber(wt.Branch); ok {
			resp.IssueNumber = n
		}
		responses[i] = resp
	}
	WriteJSON(w, http.StatusOK, responses)
}
