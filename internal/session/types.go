// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package session orchestrates work sessions: it sequences worktree
// creation, port allocation and container startup behind a single
// start/stop contract, with rollback of completed steps on partial failure.
package session

import "fmt"

// Request identifies the card a session operation is for and carries the
// fields the orchestrator reads from it.
type Request struct {
	CardID       string
	IssueNumber  int
	IssueTitle   string
	PRBranch     string // Branch of an already-linked PR, preferred over derivation
	WorktreePath string // Known workspace path, used by Stop
}

// Info is the successful outcome of a session start.
type Info struct {
	Branch       string
	WorktreePath string
	Port         int
}

// ErrorKind classifies orchestrator failures with a stable outer code.
type ErrorKind string

const (
	KindPrerequisite ErrorKind = "prerequisite_failed"
	KindNoConfig     ErrorKind = "no_config"
	KindWorktree     ErrorKind = "worktree_failed"
	KindEnvironment  ErrorKind = "environment_failed"
	KindCancelled    ErrorKind = "cancelled"
)

// Error wraps component failures with the orchestrator's outer code.
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

// KindOf returns the ErrorKind of err, or KindWorktree for foreign errors.
func KindOf(err error) ErrorKind {
	if serr, ok := err.(*Error); ok {
		return serr.Kind
	}
	return KindWorktree
}

// IsCancelled reports whether err is a session cancellation.
func IsCancelled(err error) bool {
	return err != nil && KindOf(err) == KindCancelled
}
