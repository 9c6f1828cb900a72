// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package devcontainer

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/wingedpig/arbor/internal/config"
	"github.com/wingedpig/arbor/internal/proc"
)

// configCandidates are checked in order; the first that exists wins.
var configCandidates = []string{
	".devcontainer.json",
	filepath.Join(".devcontainer", "devcontainer.json"),
}

// CLIManager manages environments through the devcontainer and container
// runtime CLIs.
type CLIManager struct {
	runner proc.Runner
	cfg    config.ContainerConfig

	mu    sync.Mutex
	cache map[string]discovery // root -> cached config discovery
}

type discovery struct {
	path string
	ok   bool
}

// NewCLIManager creates a manager using the given runner and config.
func NewCLIManager(runner proc.Runner, cfg config.ContainerConfig) *CLIManager {
	return &CLIManager{
		runner: runner,
		cfg:    cfg,
		cache:  make(map[string]discovery),
	}
}

// DiscoverConfig returns the devcontainer config path under root, if any.
// Results are cached per root until Invalidate is called.
func (m *CLIManager) DiscoverConfig(root string) (string, bool) {
	m.mu.Lock()
	if d, ok := m.cache[root]; ok {
		m.mu.Unlock()
		return d.path, d.ok
	}
	m.mu.Unlock()

	d := discovery{}
	for _, candidate := range configCandidates {
		path := filepath.Join(root, candidate)
		if _, err := os.Stat(path); err == nil {
			d = discovery{path: path, ok: true}
			break
		}
	}

	m.mu.Lock()
	m.cache[root] = d
	m.mu.Unlock()

	return d.path, d.ok
}

// Invalidate clears the cached config discovery for root.
func (m *CLIManager) Invalidate(root string) {
	m.mu.Lock()
	delete(m.cache, root)
	m.mu.Unlock()
}

// AllocatePort scans the configured range for the first port not bound by a
// running container.
func (m *CLIManager) AllocatePort(ctx context.Context) (int, error) {
	result, err := m.runner.Run(ctx, proc.Command{
		Name: m.cfg.Runtime,
		Args: []string{"ps", "--format", "{{.Ports}}"},
	})
	if err != nil {
		return 0, m.classify(err, result, "list container ports")
	}

	bound := ParseBoundPorts(result.Stdout)

	for port := m.cfg.PortRange.First; port <= m.cfg.PortRange.Last; port++ {
		if !bound[port] {
			return port, nil
		}
	}

	return 0, &Error{
		Kind: KindNoAvailablePorts,
		Message: fmt.Sprintf("no free port in range %d-%d",
			m.cfg.PortRange.First, m.cfg.PortRange.Last),
	}
}

// Start brings up the environment at workspacePath with the port injected
// as an environment variable. Callers must have verified config discovery;
// cleanup of partially provisioned workspaces is the caller's job.
func (m *CLIManager) Start(ctx context.Context, workspacePath string, port int) error {
	result, err := m.runner.Run(ctx, proc.Command{
		Name: m.cfg.Command,
		Args: []string{
			"up",
			"--workspace-folder", workspacePath,
			"--id-label", WorkspaceLabel + "=" + workspacePath,
		},
		Env:     map[string]string{PortEnvVar: strconv.Itoa(port)},
		Timeout: m.cfg.StartTimeoutDuration(),
	})
	if err != nil {
		return m.classify(err, result, "start environment at "+workspacePath)
	}

	log.Printf("devcontainer: environment up at %s on port %d", workspacePath, port)
	return nil
}

// Stop stops every container labeled with workspacePath, in parallel,
// collecting all outcomes. It fails only when every stop attempt fails;
// partial failures are logged and reported as success so a stuck container
// cannot block workspace teardown.
func (m *CLIManager) Stop(ctx context.Context, workspacePath string) error {
	result, err := m.runner.Run(ctx, proc.Command{
		Name: m.cfg.Runtime,
		Args: []string{"ps", "-q", "--filter", "label=" + WorkspaceLabel + "=" + workspacePath},
	})
	if err != nil {
		return m.classifyStop(err, result, "list containers for "+workspacePath)
	}

	ids := splitLines(result.Stdout)
	if len(ids) == 0 {
		return nil
	}

	failures := make([]error, len(ids))
	var g errgroup.Group
	for i, id := range ids {
		i, id := i, id
		g.Go(func() error {
			if _, stopErr := m.runner.Run(ctx, proc.Command{
				Name: m.cfg.Runtime,
				Args: []string{"stop", id},
			}); stopErr != nil {
				failures[i] = fmt.Errorf("stop container %s: %w", id, stopErr)
			}
			// Errors are collected, not returned: a failed stop must not
			// short-circuit the others.
			return nil
		})
	}
	g.Wait()

	failed := 0
	for _, f := range failures {
		if f != nil {
			failed++
			log.Printf("devcontainer: %v", f)
		}
	}

	switch {
	case failed == len(ids):
		return &Error{
			Kind:    KindStopFailed,
			Message: fmt.Sprintf("all %d containers for %s failed to stop", len(ids), workspacePath),
		}
	case failed > 0:
		log.Printf("devcontainer: stopped %d/%d containers for %s; continuing teardown",
			len(ids)-failed, len(ids), workspacePath)
	}

	return nil
}

func (m *CLIManager) classify(err error, result proc.Result, op string) error {
	switch proc.KindOf(err) {
	case proc.KindCancelled:
		return &Error{Kind: KindCancelled, Message: op + " cancelled", Err: err}
	case proc.KindTimeout:
		return &Error{Kind: KindTimeout, Message: op + " timed out", Err: err}
	}
	msg := op
	if s := strings.TrimSpace(result.Stderr); s != "" {
		msg = op + ": " + s
	}
	return &Error{Kind: KindStartFailed, Message: msg, Err: err}
}

func (m *CLIManager) classifyStop(err error, result proc.Result, op string) error {
	e := m.classify(err, result, op).(*Error)
	if e.Kind == KindStartFailed {
		e.Kind = KindStopFailed
	}
	return e
}

func splitLines(s string) []string {
	var lines []string
	for _, line := range strings.Split(s, "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}
