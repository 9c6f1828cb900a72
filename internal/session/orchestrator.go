// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package session

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"time"

	"github.com/wingedpig/arbor/internal/devcontainer"
	"github.com/wingedpig/arbor/internal/events"
	"github.com/wingedpig/arbor/internal/worktree"
)

// PortFileName is written into a provisioned workspace so the port can be
// recovered on restart.
const PortFileName = ".arbor-port"

// rollbackTimeout bounds compensation work; compensations run on a fresh
// context because the triggering context may already be cancelled.
const rollbackTimeout = 60 * time.Second

// Orchestrator sequences the steps of a work session.
type Orchestrator struct {
	worktrees  worktree.Manager
	containers devcontainer.Manager
	bus        events.EventBus
	repoDir    string

	// lookPath is swapped in tests.
	lookPath func(string) (string, error)

	// containerCmd is the devcontainer CLI binary checked as a prerequisite.
	containerCmd string
}

// NewOrchestrator creates a session orchestrator.
func NewOrchestrator(worktrees worktree.Manager, containers devcontainer.Manager, bus events.EventBus, repoDir, containerCmd string) *Orchestrator {
	return &Orchestrator{
		worktrees:    worktrees,
		containers:   containers,
		bus:          bus,
		repoDir:      repoDir,
		lookPath:     exec.LookPath,
		containerCmd: containerCmd,
	}
}

// compensation undoes one completed step during rollback.
type compensation struct {
	name string
	run  func(ctx context.Context) error
}

// Start provisions a session: prerequisites, branch resolution, config
// check, worktree creation, port allocation, environment startup. A failure
// or cancellation after worktree creation rolls back every completed step
// in reverse order; a failed Start never leaves a workspace behind.
func (o *Orchestrator) Start(ctx context.Context, req Request) (Info, error) {
	o.publish(events.EventSessionStarting, req.CardID, nil)

	var undo []compensation

	info, err := o.start(ctx, req, &undo)
	if err != nil {
		o.rollback(undo)
		if IsCancelled(err) {
			o.publish(events.EventSessionCancelled, req.CardID, nil)
		} else {
			o.publish(events.EventSessionStartFailed, req.CardID, map[string]interface{}{
				"error": err.Error(),
			})
		}
		return Info{}, err
	}

	o.publish(events.EventSessionStarted, req.CardID, map[string]interface{}{
		"branch": info.Branch,
		"path":   info.WorktreePath,
		"port":   info.Port,
	})
	return info, nil
}

func (o *Orchestrator) start(ctx context.Context, req Request, undo *[]compensation) (Info, error) {
	// Step 1: prerequisites. Nothing created yet, so failure needs no rollback.
	if _, err := o.lookPath("git"); err != nil {
		return Info{}, &Error{Kind: KindPrerequisite, Message: "git is not installed", Err: err}
	}
	if _, err := o.lookPath(o.containerCmd); err != nil {
		return Info{}, &Error{Kind: KindPrerequisite, Message: o.containerCmd + " is not installed", Err: err}
	}

	// Step 2: resolve the branch name.
	branch, err := o.resolveBranch(req)
	if err != nil {
		return Info{}, err
	}

	// Step 3: a container environment config must exist in the source repo;
	// the worktree inherits it through the checkout.
	if _, ok := o.containers.DiscoverConfig(o.repoDir); !ok {
		return Info{}, &Error{
			Kind:    KindNoConfig,
			Message: "no devcontainer config found in " + o.repoDir,
		}
	}

	if err := checkCancelled(ctx); err != nil {
		return Info{}, err
	}

	// Step 4: create the workspace.
	wt, err := o.worktrees.Create(ctx, branch)
	if err != nil {
		return Info{}, o.wrapWorktree(err, "create workspace for "+branch)
	}
	*undo = append(*undo, compensation{
		name: "remove workspace " + wt.Path,
		run: func(ctx context.Context) error {
			return o.worktrees.Remove(ctx, branch)
		},
	})
	o.publish(events.EventWorktreeCreated, req.CardID, map[string]interface{}{
		"branch": branch,
		"path":   wt.Path,
	})

	if err := checkCancelled(ctx); err != nil {
		return Info{}, err
	}

	// Step 5: allocate a port.
	port, err := o.containers.AllocatePort(ctx)
	if err != nil {
		return Info{}, o.wrapContainer(err, "allocate port")
	}

	if err := checkCancelled(ctx); err != nil {
		return Info{}, err
	}

	// Step 6: start the environment.
	if err := o.containers.Start(ctx, wt.Path, port); err != nil {
		return Info{}, o.wrapContainer(err, "start environment")
	}

	// Record the port in the workspace for restart recovery. Best effort.
	portFile := filepath.Join(wt.Path, PortFileName)
	if err := os.WriteFile(portFile, []byte(strconv.Itoa(port)+"\n"), 0644); err != nil {
		log.Printf("session: write %s: %v", portFile, err)
	}

	return Info{Branch: branch, WorktreePath: wt.Path, Port: port}, nil
}

// Stop tears a session down. Container teardown is best-effort and never
// blocks workspace removal; workspace removal failures are surfaced.
func (o *Orchestrator) Stop(ctx context.Context, req Request) error {
	branch, err := o.resolveBranch(req)
	if err != nil {
		// No linked issue or PR means nothing was ever provisioned.
		log.Printf("session: stop for card %s: no resolvable branch, treating as stopped", req.CardID)
		return nil
	}

	o.publish(events.EventSessionStopping, req.CardID, map[string]interface{}{"branch": branch})

	wsPath := req.WorktreePath
	if wsPath == "" {
		wsPath = o.worktrees.PathFor(branch)
	}

	if err := o.containers.Stop(ctx, wsPath); err != nil {
		log.Printf("session: container teardown for %s failed, continuing: %v", wsPath, err)
	}

	if err := o.worktrees.Remove(ctx, branch); err != nil {
		o.publish(events.EventSessionStopFailed, req.CardID, map[string]interface{}{
			"error": err.Error(),
		})
		return o.wrapWorktree(err, "remove workspace for "+branch)
	}

	o.publish(events.EventWorktreeRemoved, req.CardID, map[string]interface{}{"branch": branch})
	o.publish(events.EventSessionStopped, req.CardID, nil)
	return nil
}

// resolveBranch prefers a linked PR's branch, then derives one from the
// issue. A card with neither cannot have a session.
func (o *Orchestrator) resolveBranch(req Request) (string, error) {
	if req.PRBranch != "" {
		return req.PRBranch, nil
	}
	if req.IssueNumber > 0 {
		return worktree.BranchName(req.IssueNumber, req.IssueTitle), nil
	}
	return "", &Error{
		Kind:    KindPrerequisite,
		Message: fmt.Sprintf("card %s has no linked issue or PR", req.CardID),
	}
}

// rollback runs compensations in reverse order on a fresh context.
func (o *Orchestrator) rollback(undo []compensation) {
	if len(undo) == 0 {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), rollbackTimeout)
	defer cancel()

	for i := len(undo) - 1; i >= 0; i-- {
		c := undo[i]
		if err := c.run(ctx); err != nil {
			log.Printf("session: rollback %s: %v", c.name, err)
		} else {
			log.Printf("session: rolled back: %s", c.name)
		}
	}
}

func (o *Orchestrator) wrapWorktree(err error, op string) error {
	if worktree.KindOf(err) == worktree.KindCancelled {
		return &Error{Kind: KindCancelled, Message: op + " cancelled", Err: err}
	}
	return &Error{Kind: KindWorktree, Message: op, Err: err}
}

func (o *Orchestrator) wrapContainer(err error, op string) error {
	if devcontainer.KindOf(err) == devcontainer.KindCancelled {
		return &Error{Kind: KindCancelled, Message: op + " cancelled", Err: err}
	}
	return &Error{Kind: KindEnvironment, Message: op, Err: err}
}

func checkCancelled(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return &Error{Kind: KindCancelled, Message: "session start cancelled", Err: err}
	}
	return nil
}

func (o *Orchestrator) publish(eventType, cardID string, payload map[string]interface{}) {
	if o.bus == nil {
		return
	}
	o.bus.Publish(context.Background(), events.Event{
		Type:    eventType,
		Card:    cardID,
		Payload: payload,
	})
}
