// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package client

import (
	"context"
	"encoding/json"
	"fmt"
)

// WorktreeClient provides access to workspace listing.
//
// Access this client through [Client.Worktrees]:
//
//	worktrees, err := client.Worktrees.List(ctx)
type WorktreeClient struct {
	c *Client
}

// List returns all worktrees known to the repository, including the main
// checkout and any session workspaces.
func (w *WorktreeClient) List(ctx context.Context) ([]Worktree, error) {
	data, err := w.c.get(ctx, "/api/worktrees")
	if err != nil {
		return nil, err
	}

	var worktrees []Worktree
	if err := json.Unmarshal(data, &worktrees); err != nil {
		return nil, fmt.Errorf("failed to parse worktrees: %w", err)
	}
	return worktrees, nil
}
