// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package proc

import (
	"bytes"
	"context"
	"errors"
	"log"
	"os"
	"os/exec"
	"regexp"
	"strconv"
	"strings"
	"syscall"
	"time"
)

const defaultTimeout = 30 * time.Second

// networkErrorPattern matches transient network failure text in stderr.
var networkErrorPattern = regexp.MustCompile(`(?i)network|connection (refused|reset|timed out)|dial tcp|no such host|could not resolve|temporary failure in name resolution`)

// ExecRunner runs commands via os/exec.
type ExecRunner struct {
	// DefaultTimeout applies when Command.Timeout is zero.
	DefaultTimeout time.Duration

	// Debug enables per-attempt logging.
	Debug bool
}

// NewExecRunner creates a runner with the standard default timeout.
func NewExecRunner() *ExecRunner {
	return &ExecRunner{DefaultTimeout: defaultTimeout}
}

// Run executes the command once, enforcing the timeout and cancellation.
// Exactly one terminal outcome is reported; the spawned process group is
// killed and reaped on every exit path.
func (r *ExecRunner) Run(ctx context.Context, cmd Command) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, &Error{Kind: KindCancelled, Message: cmd.Name + " not started", Err: err}
	}

	timeout := cmd.Timeout
	if timeout <= 0 {
		timeout = r.DefaultTimeout
		if timeout <= 0 {
			timeout = defaultTimeout
		}
	}

	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	c := exec.Command(cmd.Name, cmd.Args...)
	c.Dir = cmd.Dir

	// New process group so children die with the parent.
	c.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	c.Env = os.Environ()
	for k, v := range cmd.Env {
		c.Env = append(c.Env, k+"="+v)
	}

	var stdout, stderr bytes.Buffer
	c.Stdout = &stdout
	c.Stderr = &stderr

	if r.Debug {
		log.Printf("proc: running %s %s", cmd.Name, strings.Join(cmd.Args, " "))
	}

	if err := c.Start(); err != nil {
		if errors.Is(err, exec.ErrNotFound) {
			return Result{}, &Error{Kind: KindNotInstalled, Message: cmd.Name + " not found in PATH", Err: err}
		}
		return Result{}, &Error{Kind: KindUnknown, Message: "start " + cmd.Name, Err: err}
	}

	pgid := c.Process.Pid

	waitDone := make(chan error, 1)
	go func() {
		waitDone <- c.Wait()
	}()

	var waitErr error
	timedOut := false
	cancelled := false

	select {
	case waitErr = <-waitDone:
		// Natural exit won the race.
	case <-runCtx.Done():
		// Timeout or cancellation; kill the whole group and reap.
		syscall.Kill(-pgid, syscall.SIGKILL)
		waitErr = <-waitDone
		if ctx.Err() != nil {
			cancelled = true
		} else {
			timedOut = true
		}
	}

	result := Result{
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		TimedOut: timedOut,
	}

	if cancelled {
		return result, &Error{Kind: KindCancelled, Message: cmd.Name + " cancelled", Err: ctx.Err()}
	}
	if timedOut {
		return result, &Error{Kind: KindTimeout, Message: cmd.Name + " timed out after " + timeout.String()}
	}

	if waitErr != nil {
		var exitErr *exec.ExitError
		if errors.As(waitErr, &exitErr) {
			result.ExitCode = exitErr.ExitCode()
			kind := KindCommandFailed
			if networkErrorPattern.MatchString(result.Stderr) {
				kind = KindNetwork
			}
			return result, &Error{
				Kind:    kind,
				Message: cmd.Name + " exited with code " + strconv.Itoa(exitErr.ExitCode()),
				Err:     waitErr,
			}
		}
		return result, &Error{Kind: KindUnknown, Message: "wait for " + cmd.Name, Err: waitErr}
	}

	return result, nil
}

// RunRetry executes the command with retry-with-backoff applied to
// retryable failures.
func (r *ExecRunner) RunRetry(ctx context.Context, cmd Command, policy RetryPolicy) (Result, error) {
	retryable := policy.Retryable
	if retryable == nil {
		retryable = DefaultRetryable
	}

	backoff := newBackoff(policy)

	var result Result
	var err error
	for attempt := 0; ; attempt++ {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return result, &Error{Kind: KindCancelled, Message: cmd.Name + " not started", Err: ctxErr}
		}

		result, err = r.Run(ctx, cmd)
		if err == nil {
			if r.Debug && attempt > 0 {
				log.Printf("proc: %s succeeded after %d retries", cmd.Name, attempt)
			}
			return result, nil
		}

		if KindOf(err) == KindCancelled {
			return result, err
		}
		if attempt >= policy.MaxRetries || !retryable(result, err) {
			log.Printf("proc: %s failed after %d attempts: %v", cmd.Name, attempt+1, err)
			return result, err
		}

		delay := backoff.Delay(attempt)
		if r.Debug {
			log.Printf("proc: %s attempt %d failed (%v), retrying in %s", cmd.Name, attempt+1, err, delay)
		}

		timer := time.NewTimer(delay)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return result, &Error{Kind: KindCancelled, Message: cmd.Name + " cancelled during backoff", Err: ctx.Err()}
		}
	}
}

// DefaultRetryable marks timeouts and network-pattern failures as retryable.
func DefaultRetryable(result Result, err error) bool {
	switch KindOf(err) {
	case KindTimeout, KindNetwork:
		return true
	}
	return false
}
