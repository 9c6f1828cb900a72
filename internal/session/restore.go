// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package session

import (
	"context"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/wingedpig/arbor/internal/worktree"
)

// Restored describes a session workspace found on disk at startup.
type Restored struct {
	IssueNumber  int
	Branch       string
	WorktreePath string
	Port         *int   // Nil when the port file is missing or unreadable
	Status       string // Saved board status, empty if none recorded
}

// Restore reconciles workspaces left on disk from a previous run against
// the durable status store, so the board can be restored after a restart.
func (o *Orchestrator) Restore(ctx context.Context, store *StatusStore) ([]Restored, error) {
	worktrees, err := o.worktrees.List(ctx)
	if err != nil {
		return nil, err
	}

	var restored []Restored
	for _, wt := range worktrees {
		if wt.IsBare || wt.Detached {
			continue
		}

		issueNumber, ok := worktree.IssueNumber(wt.Branch)
		if !ok {
			continue // Not a session branch
		}

		r := Restored{
			IssueNumber:  issueNumber,
			Branch:       wt.Branch,
			WorktreePath: wt.Path,
			Port:         readPortFile(wt.Path),
		}
		if store != nil {
			if status, ok := store.Get(issueNumber); ok {
				r.Status = status
			}
		}
		restored = append(restored, r)
	}

	return restored, nil
}

// readPortFile reads the recorded port from a workspace. A missing or
// malformed file leaves the port nil; a workspace without a running
// environment is still valid.
func readPortFile(wsPath string) *int {
	data, err := os.ReadFile(filepath.Join(wsPath, PortFileName))
	if err != nil {
		return nil
	}
	port, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		log.Printf("session: malformed port file in %s: %v", wsPath, err)
		return nil
	}
	return &port
}
