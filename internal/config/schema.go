// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package config handles HJSON configuration loading for Arbor.
package config

import "time"

// Config is the root configuration structure for Arbor.
type Config struct {
	Version   string          `json:"version"`
	Project   ProjectConfig   `json:"project"`
	Server    ServerConfig    `json:"server"`
	Worktree  WorktreeConfig  `json:"worktree"`
	Container ContainerConfig `json:"container"`
	Session   SessionConfig   `json:"session"`
	Terminal  TerminalConfig  `json:"terminal"`
	Events    EventsConfig    `json:"events"`
}

// ProjectConfig contains project metadata.
type ProjectConfig struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Host string `json:"host"`
	Port int    `json:"port"`
}

// WorktreeConfig configures worktree management.
type WorktreeConfig struct {
	RepoDir   string `json:"repo_dir"`   // Repository to create session branches from (defaults to config file dir)
	CreateDir string `json:"create_dir"` // Directory where session worktrees are created (defaults to parent of repo_dir)
}

// ContainerConfig configures the devcontainer environment manager.
type ContainerConfig struct {
	Command      string    `json:"command"`       // Devcontainer CLI binary (default "devcontainer")
	Runtime      string    `json:"runtime"`       // Container runtime CLI (default "docker")
	PortRange    PortRange `json:"port_range"`
	StartTimeout string    `json:"start_timeout"` // Duration for environment builds (default "300s")
}

// PortRange is an inclusive range of candidate ports.
type PortRange struct {
	First int `json:"first"`
	Last  int `json:"last"`
}

// SessionConfig configures session orchestration.
type SessionConfig struct {
	StorePath      string `json:"store_path"`      // Durable issue->status map (default .arbor/sessions.json under repo_dir)
	CommandTimeout string `json:"command_timeout"` // Duration for short external commands (default "30s")
}

// TerminalConfig is read by the (external) terminal integration.
type TerminalConfig struct {
	App        string `json:"app"`         // Terminal application name
	AutoPrompt bool   `json:"auto_prompt"` // Whether to auto-open a prompt in new sessions
}

// EventsConfig configures the event bus history.
type EventsConfig struct {
	HistoryMaxEvents int    `json:"history_max_events"`
	HistoryMaxAge    string `json:"history_max_age"`
}

// CommandTimeoutDuration returns the parsed short-command timeout.
func (c *SessionConfig) CommandTimeoutDuration() time.Duration {
	if d, err := time.ParseDuration(c.CommandTimeout); err == nil && d > 0 {
		return d
	}
	return 30 * time.Second
}

// StartTimeoutDuration returns the parsed environment-start timeout.
func (c *ContainerConfig) StartTimeoutDuration() time.Duration {
	if d, err := time.ParseDuration(c.StartTimeout); err == nil && d > 0 {
		return d
	}
	return 300 * time.Second
}

// HistoryMaxAgeDuration returns the parsed history max age.
func (c *EventsConfig) HistoryMaxAgeDuration() time.Duration {
	if d, err := time.ParseDuration(c.HistoryMaxAge); err == nil && d > 0 {
		return d
	}
	return 24 * time.Hour
}
