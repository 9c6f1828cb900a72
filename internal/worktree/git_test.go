// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package worktree

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wingedpig/arbor/internal/proc"
)

// fakeRunner scripts git responses by argument substring.
type fakeRunner struct {
	calls   []proc.Command
	respond func(cmd proc.Command) (proc.Result, error)
}

func (f *fakeRunner) Run(ctx context.Context, cmd proc.Command) (proc.Result, error) {
	if err := ctx.Err(); err != nil {
		return proc.Result{}, &proc.Error{Kind: proc.KindCancelled, Message: "cancelled", Err: err}
	}
	f.calls = append(f.calls, cmd)
	if f.respond == nil {
		return proc.Result{}, nil
	}
	return f.respond(cmd)
}

func (f *fakeRunner) RunRetry(ctx context.Context, cmd proc.Command, policy proc.RetryPolicy) (proc.Result, error) {
	return f.Run(ctx, cmd)
}

func argsContain(cmd proc.Command, s string) bool {
	return strings.Contains(strings.Join(cmd.Args, " "), s)
}

func TestParseWorktreeListPorcelain(t *testing.T) {
	output := `worktree /home/u/proj
HEAD abcdef1234
branch refs/heads/main

worktree /home/u/proj-42-fix-login-bug
HEAD 1234abcdef
branch refs/heads/42-fix-login-bug

worktree /home/u/bare.git
bare

worktree /home/u/det
HEAD fedcba
detached
`

	worktrees := ParseWorktreeListPorcelain(output)
	require.Len(t, worktrees, 4)

	assert.Equal(t, "/home/u/proj", worktrees[0].Path)
	assert.Equal(t, "main", worktrees[0].Branch)
	assert.Equal(t, "abcdef1234", worktrees[0].Commit)

	assert.Equal(t, "42-fix-login-bug", worktrees[1].Branch)
	assert.Equal(t, "proj-42-fix-login-bug", worktrees[1].Name())

	assert.True(t, worktrees[2].IsBare)
	assert.True(t, worktrees[3].Detached)
}

func TestParseWorktreeListPorcelain_Empty(t *testing.T) {
	assert.Empty(t, ParseWorktreeListPorcelain(""))
	assert.Empty(t, ParseWorktreeListPorcelain("\n\n"))
}

func newTestManager(t *testing.T, respond func(proc.Command) (proc.Result, error)) (*GitManager, *fakeRunner) {
	t.Helper()
	runner := &fakeRunner{respond: respond}
	createDir := t.TempDir()
	return NewGitManager(runner, "/repo", createDir, "proj"), runner
}

func TestCreate_ReusesRegisteredWorktree(t *testing.T) {
	var mgr *GitManager
	mgr, runner := newTestManager(t, nil)
	path := mgr.PathFor("42-fix")

	runner.respond = func(cmd proc.Command) (proc.Result, error) {
		if argsContain(cmd, "worktree list") {
			return proc.Result{Stdout: "worktree " + path + "\nHEAD abc\nbranch refs/heads/42-fix\n"}, nil
		}
		t.Fatalf("unexpected git call: %v", cmd.Args)
		return proc.Result{}, nil
	}

	wt, err := mgr.Create(context.Background(), "42-fix")
	require.NoError(t, err)
	assert.Equal(t, path, wt.Path)
	assert.Equal(t, "42-fix", wt.Branch)
	assert.Len(t, runner.calls, 1)
}

func TestCreate_RemovesOrphanedDirectory(t *testing.T) {
	mgr, runner := newTestManager(t, nil)
	path := mgr.PathFor("42-fix")
	require.NoError(t, os.MkdirAll(filepath.Join(path, "sub"), 0755))

	runner.respond = func(cmd proc.Command) (proc.Result, error) {
		switch {
		case argsContain(cmd, "worktree list"):
			return proc.Result{}, nil // git does not know the directory
		case argsContain(cmd, "rev-parse"):
			return proc.Result{ExitCode: 1}, &proc.Error{Kind: proc.KindCommandFailed, Message: "no ref"}
		case argsContain(cmd, "ls-remote"):
			return proc.Result{}, nil // no remote branch
		case argsContain(cmd, "worktree add"):
			return proc.Result{}, nil
		}
		return proc.Result{}, nil
	}

	_, err := mgr.Create(context.Background(), "42-fix")
	require.NoError(t, err)

	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr), "orphaned directory should have been deleted before worktree add")
}

func TestCreate_NewBranchFromHead(t *testing.T) {
	mgr, runner := newTestManager(t, func(cmd proc.Command) (proc.Result, error) {
		switch {
		case argsContain(cmd, "rev-parse"):
			return proc.Result{ExitCode: 1}, &proc.Error{Kind: proc.KindCommandFailed, Message: "no ref"}
		}
		return proc.Result{}, nil
	})

	_, err := mgr.Create(context.Background(), "7-issue")
	require.NoError(t, err)

	last := runner.calls[len(runner.calls)-1]
	assert.Contains(t, strings.Join(last.Args, " "), "worktree add -b 7-issue")
}

func TestCreate_AttachesToLocalBranch(t *testing.T) {
	mgr, runner := newTestManager(t, func(cmd proc.Command) (proc.Result, error) {
		return proc.Result{}, nil // rev-parse succeeds: branch exists locally
	})

	_, err := mgr.Create(context.Background(), "7-issue")
	require.NoError(t, err)

	last := runner.calls[len(runner.calls)-1]
	joined := strings.Join(last.Args, " ")
	assert.Contains(t, joined, "worktree add")
	assert.NotContains(t, joined, "-b")
}

func TestCreate_AttachesToRemoteBranch(t *testing.T) {
	mgr, runner := newTestManager(t, func(cmd proc.Command) (proc.Result, error) {
		switch {
		case argsContain(cmd, "rev-parse"):
			return proc.Result{ExitCode: 1}, &proc.Error{Kind: proc.KindCommandFailed, Message: "no ref"}
		case argsContain(cmd, "ls-remote"):
			return proc.Result{Stdout: "abc123\trefs/heads/7-issue\n"}, nil
		}
		return proc.Result{}, nil
	})

	_, err := mgr.Create(context.Background(), "7-issue")
	require.NoError(t, err)

	last := runner.calls[len(runner.calls)-1]
	assert.Contains(t, strings.Join(last.Args, " "), "origin/7-issue")
}

func TestCreate_ClassifiesBranchCheckedOut(t *testing.T) {
	mgr, _ := newTestManager(t, func(cmd proc.Command) (proc.Result, error) {
		switch {
		case argsContain(cmd, "worktree add"):
			return proc.Result{ExitCode: 128, Stderr: "fatal: '7-issue' is already checked out at '/elsewhere'"},
				&proc.Error{Kind: proc.KindCommandFailed, Message: "git exited with code 128"}
		case argsContain(cmd, "rev-parse"):
			return proc.Result{}, nil
		}
		return proc.Result{}, nil
	})

	_, err := mgr.Create(context.Background(), "7-issue")
	require.Error(t, err)
	assert.Equal(t, KindBranchCheckedOut, KindOf(err))
}

func TestCreate_ClassifiesNotInstalled(t *testing.T) {
	mgr, _ := newTestManager(t, func(cmd proc.Command) (proc.Result, error) {
		return proc.Result{}, &proc.Error{Kind: proc.KindNotInstalled, Message: "git not found in PATH"}
	})

	_, err := mgr.Create(context.Background(), "7-issue")
	require.Error(t, err)
	assert.Equal(t, KindNotInstalled, KindOf(err))
}

func TestRemove(t *testing.T) {
	mgr, runner := newTestManager(t, nil)

	require.NoError(t, mgr.Remove(context.Background(), "42-fix"))

	require.Len(t, runner.calls, 2)
	assert.Contains(t, strings.Join(runner.calls[0].Args, " "), "worktree remove --force")
	assert.Contains(t, strings.Join(runner.calls[1].Args, " "), "worktree prune")
}

func TestRemove_PruneFailureSwallowed(t *testing.T) {
	mgr, _ := newTestManager(t, func(cmd proc.Command) (proc.Result, error) {
		if argsContain(cmd, "prune") {
			return proc.Result{ExitCode: 1}, &proc.Error{Kind: proc.KindCommandFailed, Message: "prune failed"}
		}
		return proc.Result{}, nil
	})

	assert.NoError(t, mgr.Remove(context.Background(), "42-fix"))
}

func TestRemove_FailureSurfaced(t *testing.T) {
	mgr, _ := newTestManager(t, func(cmd proc.Command) (proc.Result, error) {
		if argsContain(cmd, "worktree remove") {
			return proc.Result{ExitCode: 1, Stderr: "fatal: working tree is locked"},
				&proc.Error{Kind: proc.KindCommandFailed, Message: "git exited with code 1"}
		}
		return proc.Result{}, nil
	})

	err := mgr.Remove(context.Background(), "42-fix")
	require.Error(t, err)
	assert.Equal(t, KindRemoveFailed, KindOf(err))
}

func TestCreate_Cancelled(t *testing.T) {
	mgr, _ := newTestManager(t, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := mgr.Create(ctx, "42-fix")
	require.Error(t, err)
	assert.Equal(t, KindCancelled, KindOf(err))
}
