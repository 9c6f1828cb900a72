// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package session

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wingedpig/arbor/internal/devcontainer"
	"github.com/wingedpig/arbor/internal/worktree"
)

// fakeWorktrees tracks created worktrees in memory, backing them with real
// directories so port files can be written.
type fakeWorktrees struct {
	mu        sync.Mutex
	dir       string
	created   map[string]worktree.WorktreeInfo
	createErr error
	removeErr error
	onCreate  func() // Called after a successful create
}

func newFakeWorktrees(dir string) *fakeWorktrees {
	return &fakeWorktrees{dir: dir, created: make(map[string]worktree.WorktreeInfo)}
}

func (f *fakeWorktrees) PathFor(branch string) string {
	return filepath.Join(f.dir, "proj-"+branch)
}

func (f *fakeWorktrees) Create(ctx context.Context, branch string) (worktree.WorktreeInfo, error) {
	if err := ctx.Err(); err != nil {
		return worktree.WorktreeInfo{}, &worktree.Error{Kind: worktree.KindCancelled, Message: "cancelled", Err: err}
	}
	if f.createErr != nil {
		return worktree.WorktreeInfo{}, f.createErr
	}

	path := f.PathFor(branch)
	os.MkdirAll(path, 0755)

	wt := worktree.WorktreeInfo{Path: path, Branch: branch}
	f.mu.Lock()
	f.created[branch] = wt
	f.mu.Unlock()

	if f.onCreate != nil {
		f.onCreate()
	}
	return wt, nil
}

func (f *fakeWorktrees) Remove(ctx context.Context, branch string) error {
	if f.removeErr != nil {
		return f.removeErr
	}
	f.mu.Lock()
	wt, ok := f.created[branch]
	delete(f.created, branch)
	f.mu.Unlock()
	if ok {
		os.RemoveAll(wt.Path)
	}
	return nil
}

func (f *fakeWorktrees) List(ctx context.Context) ([]worktree.WorktreeInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []worktree.WorktreeInfo
	for _, wt := range f.created {
		out = append(out, wt)
	}
	return out, nil
}

func (f *fakeWorktrees) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.created)
}

// fakeContainers scripts the container environment manager.
type fakeContainers struct {
	hasConfig   bool
	port        int
	allocErr    error
	startErr    error
	stopErr     error
	startCalled bool
	stopCalled  bool
}

func (f *fakeContainers) DiscoverConfig(root string) (string, bool) {
	if f.hasConfig {
		return filepath.Join(root, ".devcontainer.json"), true
	}
	return "", false
}

func (f *fakeContainers) Invalidate(root string) {}

func (f *fakeContainers) AllocatePort(ctx context.Context) (int, error) {
	if f.allocErr != nil {
		return 0, f.allocErr
	}
	if f.port == 0 {
		f.port = 3000
	}
	return f.port, nil
}

func (f *fakeContainers) Start(ctx context.Context, workspacePath string, port int) error {
	f.startCalled = true
	if err := ctx.Err(); err != nil {
		return &devcontainer.Error{Kind: devcontainer.KindCancelled, Message: "cancelled", Err: err}
	}
	return f.startErr
}

func (f *fakeContainers) Stop(ctx context.Context, workspacePath string) error {
	f.stopCalled = true
	return f.stopErr
}

func newTestOrchestrator(t *testing.T) (*Orchestrator, *fakeWorktrees, *fakeContainers) {
	t.Helper()
	wts := newFakeWorktrees(t.TempDir())
	containers := &fakeContainers{hasConfig: true, port: 3004}
	o := NewOrchestrator(wts, containers, nil, t.TempDir(), "devcontainer")
	o.lookPath = func(string) (string, error) { return "/usr/bin/fake", nil }
	return o, wts, containers
}

func startRequest() Request {
	return Request{CardID: "card-1", IssueNumber: 42, IssueTitle: "Fix Login Bug!!"}
}

func TestStart_Success(t *testing.T) {
	o, wts, _ := newTestOrchestrator(t)

	info, err := o.Start(context.Background(), startRequest())
	require.NoError(t, err)

	assert.Equal(t, "42-fix-login-bug", info.Branch)
	assert.Equal(t, wts.PathFor("42-fix-login-bug"), info.WorktreePath)
	assert.Equal(t, 3004, info.Port)
	assert.Equal(t, 1, wts.count())

	// Port recorded in the workspace for restart recovery.
	data, err := os.ReadFile(filepath.Join(info.WorktreePath, PortFileName))
	require.NoError(t, err)
	assert.Equal(t, "3004\n", string(data))
}

func TestStart_PrefersPRBranch(t *testing.T) {
	o, _, _ := newTestOrchestrator(t)

	req := startRequest()
	req.PRBranch = "42-existing-pr-branch"

	info, err := o.Start(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "42-existing-pr-branch", info.Branch)
}

func TestStart_NoIssueOrPR(t *testing.T) {
	o, wts, _ := newTestOrchestrator(t)

	_, err := o.Start(context.Background(), Request{CardID: "card-1"})
	require.Error(t, err)
	assert.Equal(t, KindPrerequisite, KindOf(err))
	assert.Equal(t, 0, wts.count())
}

func TestStart_MissingPrerequisite(t *testing.T) {
	o, wts, _ := newTestOrchestrator(t)
	o.lookPath = func(name string) (string, error) {
		return "", errors.New("not found")
	}

	_, err := o.Start(context.Background(), startRequest())
	require.Error(t, err)
	assert.Equal(t, KindPrerequisite, KindOf(err))
	assert.Equal(t, 0, wts.count())
}

func TestStart_NoConfigIsFatal(t *testing.T) {
	o, wts, containers := newTestOrchestrator(t)
	containers.hasConfig = false

	_, err := o.Start(context.Background(), startRequest())
	require.Error(t, err)
	assert.Equal(t, KindNoConfig, KindOf(err))
	assert.Equal(t, 0, wts.count())
}

func TestStart_PortAllocationFailureRollsBack(t *testing.T) {
	o, wts, containers := newTestOrchestrator(t)
	containers.allocErr = &devcontainer.Error{Kind: devcontainer.KindNoAvailablePorts, Message: "range exhausted"}

	_, err := o.Start(context.Background(), startRequest())
	require.Error(t, err)
	assert.Equal(t, KindEnvironment, KindOf(err))

	// Rollback invariant: no worktree left behind.
	assert.Equal(t, 0, wts.count())
	assert.False(t, containers.startCalled)
}

func TestStart_EnvironmentFailureRollsBack(t *testing.T) {
	o, wts, containers := newTestOrchestrator(t)
	containers.startErr = &devcontainer.Error{Kind: devcontainer.KindStartFailed, Message: "build failed"}

	_, err := o.Start(context.Background(), startRequest())
	require.Error(t, err)
	assert.Equal(t, KindEnvironment, KindOf(err))
	assert.Equal(t, 0, wts.count())
}

func TestStart_CancelledAfterCreateRemovesWorkspace(t *testing.T) {
	o, wts, containers := newTestOrchestrator(t)

	ctx, cancel := context.WithCancel(context.Background())
	wts.onCreate = cancel // Cancellation lands after the workspace exists

	_, err := o.Start(ctx, startRequest())
	require.Error(t, err)
	assert.Equal(t, KindCancelled, KindOf(err))
	assert.Equal(t, 0, wts.count(), "cancelled start must not leave a workspace")
	assert.False(t, containers.startCalled)
}

func TestStart_CancelledBeforeCreate(t *testing.T) {
	o, wts, _ := newTestOrchestrator(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := o.Start(ctx, startRequest())
	require.Error(t, err)
	assert.Equal(t, KindCancelled, KindOf(err))
	assert.Equal(t, 0, wts.count())
}

func TestStop_Success(t *testing.T) {
	o, wts, containers := newTestOrchestrator(t)

	info, err := o.Start(context.Background(), startRequest())
	require.NoError(t, err)

	req := startRequest()
	req.WorktreePath = info.WorktreePath
	require.NoError(t, o.Stop(context.Background(), req))

	assert.True(t, containers.stopCalled)
	assert.Equal(t, 0, wts.count())
}

func TestStop_ContainerFailureDoesNotBlockRemoval(t *testing.T) {
	o, wts, containers := newTestOrchestrator(t)

	_, err := o.Start(context.Background(), startRequest())
	require.NoError(t, err)

	containers.stopErr = &devcontainer.Error{Kind: devcontainer.KindStopFailed, Message: "all containers stuck"}

	require.NoError(t, o.Stop(context.Background(), startRequest()))
	assert.Equal(t, 0, wts.count(), "workspace removed despite container teardown failure")
}

func TestStop_WorktreeFailureSurfaced(t *testing.T) {
	o, wts, _ := newTestOrchestrator(t)

	_, err := o.Start(context.Background(), startRequest())
	require.NoError(t, err)

	wts.removeErr = &worktree.Error{Kind: worktree.KindRemoveFailed, Message: "locked"}

	err = o.Stop(context.Background(), startRequest())
	require.Error(t, err)
	assert.Equal(t, KindWorktree, KindOf(err))
}

func TestStop_NoResolvableBranchIsNoop(t *testing.T) {
	o, _, containers := newTestOrchestrator(t)

	require.NoError(t, o.Stop(context.Background(), Request{CardID: "card-1"}))
	assert.False(t, containers.stopCalled)
}

func TestRestore(t *testing.T) {
	o, wts, _ := newTestOrchestrator(t)

	info, err := o.Start(context.Background(), startRequest())
	require.NoError(t, err)

	// A non-session worktree is ignored.
	wts.Create(context.Background(), "main")

	store := NewStatusStore(filepath.Join(t.TempDir(), "sessions.json"))
	require.NoError(t, store.Set(42, "in_progress"))

	restored, err := o.Restore(context.Background(), store)
	require.NoError(t, err)
	require.Len(t, restored, 1)

	r := restored[0]
	assert.Equal(t, 42, r.IssueNumber)
	assert.Equal(t, "42-fix-login-bug", r.Branch)
	assert.Equal(t, info.WorktreePath, r.WorktreePath)
	require.NotNil(t, r.Port)
	assert.Equal(t, 3004, *r.Port)
	assert.Equal(t, "in_progress", r.Status)
}

func TestRestore_MissingPortFile(t *testing.T) {
	o, wts, _ := newTestOrchestrator(t)

	wts.Create(context.Background(), "7-issue")

	restored, err := o.Restore(context.Background(), nil)
	require.NoError(t, err)
	require.Len(t, restored, 1)
	assert.Nil(t, restored[0].Port, "port stays nil when the port file is unreadable")
}
