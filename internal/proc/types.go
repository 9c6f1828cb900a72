// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package proc executes external commands with bounded timeouts, cooperative
// cancellation and optional retry with backoff.
package proc

import (
	"context"
	"fmt"
	"time"
)

// Command describes a single external command invocation.
type Command struct {
	Name    string
	Args    []string
	Dir     string
	Env     map[string]string // Appended to the inherited environment
	Timeout time.Duration     // Zero means the runner default
}

// Result is the outcome of a completed command.
type Result struct {
	Stdout   string
	Stderr   string
	ExitCode int
	TimedOut bool
}

// ErrorKind classifies runner failures.
type ErrorKind string

const (
	KindCommandFailed ErrorKind = "command_failed"
	KindTimeout       ErrorKind = "timeout"
	KindCancelled     ErrorKind = "cancelled"
	KindNotInstalled  ErrorKind = "not_installed"
	KindNetwork       ErrorKind = "network_error"
	KindUnknown       ErrorKind = "unknown"
)

// Error is the typed failure value returned by a Runner.
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

// KindOf returns the ErrorKind of err, or KindUnknown for foreign errors.
func KindOf(err error) ErrorKind {
	if perr, ok := err.(*Error); ok {
		return perr.Kind
	}
	return KindUnknown
}

// RetryPolicy controls retry behavior for RunRetry.
type RetryPolicy struct {
	MaxRetries int
	BaseDelay  time.Duration
	MaxDelay   time.Duration

	// Retryable decides whether a failed attempt should be retried.
	// Nil means DefaultRetryable.
	Retryable func(Result, error) bool

	// Seed fixes the jitter source for deterministic tests. Zero means
	// time-seeded.
	Seed int64
}

// Runner executes external commands.
type Runner interface {
	Run(ctx context.Context, cmd Command) (Result, error)
	RunRetry(ctx context.Context, cmd Command, policy RetryPolicy) (Result, error)
}
