// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package board holds the kanban card model and the reconciler that maps
// card status transitions onto work sessions.
package board

// Status is a card's board column. Transitions are caller-driven (the UI
// drags cards around); nothing here derives a status on its own.
type Status string

const (
	StatusIdle       Status = "idle"
	StatusInProgress Status = "in_progress"
	StatusWaiting    Status = "waiting"
	StatusDone       Status = "done"
)

// ValidStatus reports whether s is one of the board columns.
func ValidStatus(s Status) bool {
	switch s {
	case StatusIdle, StatusInProgress, StatusWaiting, StatusDone:
		return true
	}
	return false
}

// WorktreeOp reflects an in-flight session operation for UI feedback only.
// Correctness comes from the reconciler's token registry, not this field.
type WorktreeOp string

const (
	OpNone     WorktreeOp = "none"
	OpCreating WorktreeOp = "creating"
	OpRemoving WorktreeOp = "removing"
)

// GitHubInfo is the issue/PR metadata a card carries. Read-only input to
// branch derivation; the issue sync owns these fields.
type GitHubInfo struct {
	IssueNumber int    `json:"issueNumber"`
	Title       string `json:"title"`
	PRBranch    string `json:"prBranch,omitempty"`
}

// Card is a unit of work on the board. Cards are value types: every
// mutation builds a new Card and replaces the whole list snapshot, so
// readers never observe a partial update.
type Card struct {
	ID           string     `json:"id"`
	Title        string     `json:"title"`
	Status       Status     `json:"status"`
	HasError     bool       `json:"hasError,omitempty"`
	ErrorMessage string     `json:"errorMessage,omitempty"`

	WorktreeCreated bool       `json:"worktreeCreated"`
	WorktreeOp      WorktreeOp `json:"worktreeOperation"`
	WorktreePath    string     `json:"worktreePath,omitempty"`
	Port            *int       `json:"port,omitempty"`

	GitHub GitHubInfo `json:"github"`
}
