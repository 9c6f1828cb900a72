// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package worktree manages git worktrees for issue work sessions.
package worktree

import (
	"context"
	"fmt"
	"path/filepath"
)

// WorktreeInfo contains information about a git worktree.
type WorktreeInfo struct {
	Path     string
	Commit   string // Current commit SHA (head)
	Branch   string
	Detached bool
	IsBare   bool
}

// Name returns the directory name of the worktree.
func (w *WorktreeInfo) Name() string {
	return filepath.Base(w.Path)
}

// ErrorKind classifies worktree failures.
type ErrorKind string

const (
	KindBranchCheckedOut ErrorKind = "branch_checked_out"
	KindWorktreeExists   ErrorKind = "worktree_exists"
	KindCreateFailed     ErrorKind = "worktree_create_failed"
	KindRemoveFailed     ErrorKind = "worktree_remove_failed"
	KindNotInstalled     ErrorKind = "not_installed"
	KindCancelled        ErrorKind = "cancelled"
)

// Error is the typed failure value returned by a Manager.
type Error struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf returns the ErrorKind of err, or KindCreateFailed for foreign errors.
func KindOf(err error) ErrorKind {
	if werr, ok := err.(*Error); ok {
		return werr.Kind
	}
	return KindCreateFailed
}

// Manager is the interface for worktree management.
type Manager interface {
	// Create creates (or reuses) the worktree for branch and returns it.
	Create(ctx context.Context, branch string) (WorktreeInfo, error)

	// Remove force-removes the worktree for branch and prunes stale metadata.
	Remove(ctx context.Context, branch string) error

	// List returns all worktrees known to the repository.
	List(ctx context.Context) ([]WorktreeInfo, error)

	// PathFor returns the worktree path that Create would use for branch.
	PathFor(branch string) string
}
