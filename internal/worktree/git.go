// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package worktree

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/wingedpig/arbor/internal/proc"
)

// GitManager manages worktrees by shelling out to git.
type GitManager struct {
	runner    proc.Runner
	repoDir   string // Directory to run git commands in
	createDir string // Directory where new worktrees are created
	project   string // Project name, used as the worktree directory prefix
}

// NewGitManager creates a worktree manager for the given repository.
func NewGitManager(runner proc.Runner, repoDir, createDir, project string) *GitManager {
	return &GitManager{
		runner:    runner,
		repoDir:   repoDir,
		createDir: createDir,
		project:   project,
	}
}

// PathFor returns the worktree path used for a branch.
func (m *GitManager) PathFor(branch string) string {
	return filepath.Join(m.createDir, m.project+"-"+branch)
}

// List returns all worktrees known to the repository.
func (m *GitManager) List(ctx context.Context) ([]WorktreeInfo, error) {
	result, err := m.git(ctx, "worktree", "list", "--porcelain")
	if err != nil {
		return nil, m.classify(err, "list worktrees")
	}
	return ParseWorktreeListPorcelain(result.Stdout), nil
}

// Create creates the worktree for branch, reusing an existing registration
// and clearing orphaned directories left behind by a crash.
func (m *GitManager) Create(ctx context.Context, branch string) (WorktreeInfo, error) {
	path := m.PathFor(branch)

	existing, err := m.List(ctx)
	if err != nil {
		return WorktreeInfo{}, err
	}

	// Already registered with git: reuse.
	for _, wt := range existing {
		if wt.Path == path {
			return wt, nil
		}
	}

	// Directory exists but git does not know it: orphan from a crash.
	if _, statErr := os.Stat(path); statErr == nil {
		log.Printf("worktree: removing orphaned directory %s", path)
		if rmErr := os.RemoveAll(path); rmErr != nil {
			return WorktreeInfo{}, &Error{
				Kind:    KindCreateFailed,
				Message: fmt.Sprintf("remove orphaned directory %s", path),
				Err:     rmErr,
			}
		}
	}

	args := []string{"worktree", "add"}
	switch {
	case m.branchExistsLocally(ctx, branch):
		args = append(args, path, branch)
	case m.branchExistsOnRemote(ctx, branch):
		args = append(args, "--track", "-b", branch, path, "origin/"+branch)
	default:
		// New branch from current HEAD, created together with the worktree.
		args = append(args, "-b", branch, path)
	}

	if result, gitErr := m.git(ctx, args...); gitErr != nil {
		return WorktreeInfo{}, m.classifyCreate(gitErr, result.Stderr, branch, path)
	}

	return WorktreeInfo{Path: path, Branch: branch}, nil
}

// Remove force-removes the worktree for branch, then prunes stale metadata.
// Prune failures are non-fatal.
func (m *GitManager) Remove(ctx context.Context, branch string) error {
	path := m.PathFor(branch)

	if result, err := m.git(ctx, "worktree", "remove", "--force", path); err != nil {
		return &Error{
			Kind:    KindRemoveFailed,
			Message: fmt.Sprintf("remove worktree %s: %s", path, strings.TrimSpace(result.Stderr)),
			Err:     err,
		}
	}

	if _, err := m.git(ctx, "worktree", "prune"); err != nil {
		log.Printf("worktree: prune failed (ignored): %v", err)
	}

	return nil
}

func (m *GitManager) branchExistsLocally(ctx context.Context, branch string) bool {
	_, err := m.git(ctx, "rev-parse", "--verify", "--quiet", "refs/heads/"+branch)
	return err == nil
}

func (m *GitManager) branchExistsOnRemote(ctx context.Context, branch string) bool {
	result, err := m.git(ctx, "ls-remote", "--heads", "origin", branch)
	return err == nil && strings.TrimSpace(result.Stdout) != ""
}

func (m *GitManager) git(ctx context.Context, args ...string) (proc.Result, error) {
	return m.runner.Run(ctx, proc.Command{
		Name: "git",
		Args: append([]string{"-C", m.repoDir}, args...),
	})
}

func (m *GitManager) classify(err error, op string) error {
	switch proc.KindOf(err) {
	case proc.KindNotInstalled:
		return &Error{Kind: KindNotInstalled, Message: "git is not installed", Err: err}
	case proc.KindCancelled:
		return &Error{Kind: KindCancelled, Message: op + " cancelled", Err: err}
	}
	return &Error{Kind: KindCreateFailed, Message: op, Err: err}
}

func (m *GitManager) classifyCreate(err error, stderr, branch, path string) error {
	switch proc.KindOf(err) {
	case proc.KindNotInstalled:
		return &Error{Kind: KindNotInstalled, Message: "git is not installed", Err: err}
	case proc.KindCancelled:
		return &Error{Kind: KindCancelled, Message: "worktree creation cancelled", Err: err}
	}

	lower := strings.ToLower(stderr)
	switch {
	case strings.Contains(lower, "already checked out") || strings.Contains(lower, "already used by worktree"):
		return &Error{
			Kind:    KindBranchCheckedOut,
			Message: fmt.Sprintf("branch %s is checked out in another worktree", branch),
			Err:     err,
		}
	case strings.Contains(lower, "already exists"):
		return &Error{
			Kind:    KindWorktreeExists,
			Message: fmt.Sprintf("worktree path %s already exists", path),
			Err:     err,
		}
	}

	return &Error{
		Kind:    KindCreateFailed,
		Message: fmt.Sprintf("create worktree for %s: %s", branch, strings.TrimSpace(stderr)),
		Err:     err,
	}
}

// ParseWorktreeListPorcelain parses the output of `git worktree list --porcelain`.
// Format:
//
//	worktree /path/to/worktree
//	HEAD abc1234...
//	branch refs/heads/main
//
//	worktree /path/to/bare
//	bare
func ParseWorktreeListPorcelain(output string) []WorktreeInfo {
	result := []WorktreeInfo{}

	blocks := strings.Split(output, "\n\n")
	for _, block := range blocks {
		block = strings.TrimSpace(block)
		if block == "" {
			continue
		}

		info := parseWorktreeBlock(block)
		if info.Path != "" {
			result = append(result, info)
		}
	}

	return result
}

func parseWorktreeBlock(block string) WorktreeInfo {
	var info WorktreeInfo

	for _, line := range strings.Split(block, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		switch {
		case strings.HasPrefix(line, "worktree "):
			info.Path = strings.TrimPrefix(line, "worktree ")
		case strings.HasPrefix(line, "HEAD "):
			info.Commit = strings.TrimPrefix(line, "HEAD ")
		case strings.HasPrefix(line, "branch "):
			ref := strings.TrimPrefix(line, "branch ")
			info.Branch = strings.TrimPrefix(ref, "refs/heads/")
		case line == "bare":
			info.IsBare = true
		case line == "detached":
			info.Detached = true
		}
	}

	return info
}
