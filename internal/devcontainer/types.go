// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package devcontainer manages containerized dev environments for work
// sessions: config discovery, port allocation, startup and teardown.
package devcontainer

import (
	"context"
	"fmt"
)

// WorkspaceLabel is the container label that ties a running environment to
// its workspace path.
const WorkspaceLabel = "arbor.workspace"

// PortEnvVar carries the allocated port into the environment.
const PortEnvVar = "ARBOR_APP_PORT"

// ErrorKind classifies container environment failures.
type ErrorKind string

const (
	KindNoConfig         ErrorKind = "no_config"
	KindNoAvailablePorts ErrorKind = "no_available_ports"
	KindStartFailed      ErrorKind = "start_failed"
	KindStopFailed       ErrorKind = "stop_failed"
	KindTimeout          ErrorKind = "timeout"
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

// KindOf returns the ErrorKind of err, or KindStartFailed for foreign errors.
func KindOf(err error) ErrorKind {
	if derr, ok := err.(*Error); ok {
		return derr.Kind
	}
	return KindStartFailed
}

// Manager is the interface for container environment management.
type Manager interface {
	// DiscoverConfig returns the devcontainer config path under root, if any.
	// Absence is a normal state, not an error.
	DiscoverConfig(root string) (string, bool)

	// Invalidate clears the cached config discovery for root.
	Invalidate(root string)

	// AllocatePort returns a free port from the configured range.
	AllocatePort(ctx context.Context) (int, error)

	// Start brings up the environment at workspacePath bound to port.
	Start(ctx context.Context, workspacePath string, port int) error

	// Stop stops all containers labeled with workspacePath, best-effort.
	Stop(ctx context.Context, workspacePath string) error
}
