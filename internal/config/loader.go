// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/hjson/hjson-go/v4"
)

// Loader handles configuration file loading.
type Loader struct{}

// NewLoader creates a new config loader.
func NewLoader() *Loader {
	return &Loader{}
}

// Load reads and parses the configuration from the given path.
func (l *Loader) Load(ctx context.Context, path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	// Parse HJSON to intermediate map
	var raw map[string]interface{}
	if err := hjson.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse hjson: %w", err)
	}

	// Convert to JSON and unmarshal to struct (for type safety)
	jsonData, err := json.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("convert to json: %w", err)
	}

	var cfg Config
	if err := json.Unmarshal(jsonData, &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	return &cfg, nil
}

// LoadWithDefaults loads config with default values applied.
func (l *Loader) LoadWithDefaults(ctx context.Context, path string) (*Config, error) {
	cfg, err := l.Load(ctx, path)
	if err != nil {
		return nil, err
	}

	applyDefaults(cfg, filepath.Dir(path))
	return cfg, nil
}

// FindConfig searches for a config file in the current directory.
// It looks for arbor.hjson first, then arbor.json.
func (l *Loader) FindConfig() (string, error) {
	candidates := []string{
		"arbor.hjson",
		"arbor.json",
	}

	for _, name := range candidates {
		path := filepath.Join(".", name)
		if _, err := os.Stat(path); err == nil {
			abs, err := filepath.Abs(path)
			if err != nil {
				return path, nil
			}
			return abs, nil
		}
	}

	return "", fmt.Errorf("no config file found (looked for %v)", candidates)
}

func applyDefaults(cfg *Config, configDir string) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8939
	}
	if cfg.Worktree.RepoDir == "" {
		cfg.Worktree.RepoDir = configDir
	}
	if cfg.Worktree.CreateDir == "" {
		cfg.Worktree.CreateDir = filepath.Dir(cfg.Worktree.RepoDir)
	}
	if cfg.Container.Command == "" {
		cfg.Container.Command = "devcontainer"
	}
	if cfg.Container.Runtime == "" {
		cfg.Container.Runtime = "docker"
	}
	if cfg.Container.PortRange.First == 0 {
		cfg.Container.PortRange.First = 3000
	}
	if cfg.Container.PortRange.Last == 0 {
		cfg.Container.PortRange.Last = 3100
	}
	if cfg.Container.StartTimeout == "" {
		cfg.Container.StartTimeout = "300s"
	}
	if cfg.Session.StorePath == "" {
		cfg.Session.StorePath = filepath.Join(cfg.Worktree.RepoDir, ".arbor", "sessions.json")
	}
	if cfg.Session.CommandTimeout == "" {
		cfg.Session.CommandTimeout = "30s"
	}
	if cfg.Events.HistoryMaxEvents == 0 {
		cfg.Events.HistoryMaxEvents = 1000
	}
	if cfg.Events.HistoryMaxAge == "" {
		cfg.Events.HistoryMaxAge = "24h"
	}
	if cfg.Project.Name == "" {
		cfg.Project.Name = filepath.Base(cfg.Worktree.RepoDir)
	}
}
