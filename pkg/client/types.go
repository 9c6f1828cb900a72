// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package client

import "time"

// Card is a unit of work on the board.
type Card struct {
	ID           string `json:"id"`
	Title        string `json:"title"`
	Status       string `json:"status"`
	HasError     bool   `json:"hasError,omitempty"`
	ErrorMessage string `json:"errorMessage,omitempty"`

	WorktreeCreated bool   `json:"worktreeCreated"`
	WorktreeOp      string `json:"worktreeOperation"`
	WorktreePath    string `json:"worktreePath,omitempty"`
	Port            *int   `json:"port,omitempty"`

	GitHub GitHubInfo `json:"github"`
}

// GitHubInfo is the issue/PR metadata a card carries.
type GitHubInfo struct {
	IssueNumber int    `json:"issueNumber"`
	Title       string `json:"title"`
	PRBranch    string `json:"prBranch,omitempty"`
}

// Worktree describes one workspace known to the repository.
type Worktree struct {
	Path        string `json:"Path"`
	Branch      string `json:"Branch"`
	Commit      string `json:"Commit"`
	Detached    bool   `json:"Detached"`
	IsBare      bool   `json:"IsBare"`
	IssueNumber int    `json:"IssueNumber,omitempty"`
}

// Event is one entry in the server's event history.
type Event struct {
	ID        string                 `json:"id"`
	Type      string                 `json:"type"`
	Timestamp time.Time              `json:"timestamp"`
	Card      string                 `json:"card"`
	Payload   map[string]interface{} `json:"payload"`
}
