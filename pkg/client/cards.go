// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package client

import (
	"context"
	"encoding/json"
	"fmt"
)

// CardClient provides access to board card operations.
//
// Access this client through [Client.Cards]:
//
//	cards, err := client.Cards.List(ctx)
type CardClient struct {
	c *Client
}

// List returns all cards on the board.
func (cc *CardClient) List(ctx context.Context) ([]Card, error) {
	data, err := cc.c.get(ctx, "/api/cards")
	if err != nil {
		return nil, err
	}

	var cards []Card
	if err := json.Unmarshal(data, &cards); err != nil {
		return nil, fmt.Errorf("failed to parse cards: %w", err)
	}
	return cards, nil
}

// Get returns a single card by id.
func (cc *CardClient) Get(ctx context.Context, id string) (*Card, error) {
	data, err := cc.c.get(ctx, "/api/cards/"+id)
	if err != nil {
		return nil, err
	}

	var card Card
	if err := json.Unmarshal(data, &card); err != nil {
		return nil, fmt.Errorf("failed to parse card: %w", err)
	}
	return &card, nil
}

// SetStatus applies a status transition to a card.
//
// Moving a card to "in_progress" starts a work session (worktree plus
// container environment); moving it back to "idle" tears the session
// down. The returned card reflects the immediate state; session work
// continues asynchronously and can be followed via [Client.Events].
func (cc *CardClient) SetStatus(ctx context.Context, id, status string) (*Card, error) {
	data, err := cc.c.postJSON(ctx, "/api/cards/"+id+"/status", map[string]string{"status": status})
	if err != nil {
		return nil, err
	}

	var card Card
	if err := json.Unmarshal(data, &card); err != nil {
		return nil, fmt.Errorf("failed to parse card: %w", err)
	}
	return &card, nil
}
