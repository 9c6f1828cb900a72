// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package app wires the Arbor components together.
package app

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"syscall"
	"time"

	"github.com/wingedpig/arbor/internal/api"
	"github.com/wingedpig/arbor/internal/board"
	"github.com/wingedpig/arbor/internal/config"
	"github.com/wingedpig/arbor/internal/devcontainer"
	"github.com/wingedpig/arbor/internal/events"
	"github.com/wingedpig/arbor/internal/proc"
	"github.com/wingedpig/arbor/internal/session"
	"github.com/wingedpig/arbor/internal/watcher"
	"github.com/wingedpig/arbor/internal/worktree"
)

// App is the main application container.
type App struct {
	mu sync.RWMutex

	configPath string
	version    string
	config     *config.Config

	eventBus        events.EventBus
	runner          *proc.ExecRunner
	worktreeManager worktree.Manager
	containers      devcontainer.Manager
	statusStore     *session.StatusStore
	orchestrator    *session.Orchestrator
	board           *board.Reconciler
	configWatcher   *watcher.ConfigWatcher
	apiServer       *api.Server

	done     chan struct{}
	stopOnce sync.Once
}

// Options holds configuration options for the app.
type Options struct {
	ConfigPath string
	Host       string
	Port       int
	Debug      bool
	Version    string
}

// New creates a new App instance.
func New(opts Options) (*App, error) {
	app := &App{
		configPath: opts.ConfigPath,
		version:    opts.Version,
		done:       make(chan struct{}),
	}

	loader := config.NewLoader()
	cfg, err := loader.LoadWithDefaults(context.Background(), opts.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	app.config = cfg

	if opts.Host != "" {
		cfg.Server.Host = opts.Host
	}
	if opts.Port > 0 {
		cfg.Server.Port = opts.Port
	}

	app.eventBus = events.NewMemoryEventBus(events.MemoryBusConfig{
		HistoryMaxEvents: cfg.Events.HistoryMaxEvents,
		HistoryMaxAge:    cfg.Events.HistoryMaxAgeDuration(),
	})

	app.runner = proc.NewExecRunner()
	app.runner.DefaultTimeout = cfg.Session.CommandTimeoutDuration()
	app.runner.Debug = opts.Debug

	return app, nil
}

// Initialize sets up all components.
func (app *App) Initialize(ctx context.Context) error {
	cfg := app.config

	repoDir := cfg.Worktree.RepoDir
	log.Printf("Using repo directory: %s", repoDir)
	log.Printf("Using create directory for session worktrees: %s", cfg.Worktree.CreateDir)

	app.worktreeManager = worktree.NewGitManager(app.runner, repoDir, cfg.Worktree.CreateDir, cfg.Project.Name)
	app.containers = devcontainer.NewCLIManager(app.runner, cfg.Container)
	app.statusStore = session.NewStatusStore(cfg.Session.StorePath)
	app.orchestrator = session.NewOrchestrator(app.worktreeManager, app.containers, app.eventBus, repoDir, cfg.Container.Command)
	app.board = board.NewReconciler(app.orchestrator, app.statusStore, app.eventBus)

	// Reconcile session workspaces left on disk from a previous run.
	restored, err := app.orchestrator.Restore(ctx, app.statusStore)
	if err != nil {
		log.Printf("Warning: failed to restore sessions: %v", err)
	} else if len(restored) > 0 {
		cards := make([]board.Card, 0, len(restored))
		for _, r := range restored {
			log.Printf("Restored session: issue #%d on %s at %s", r.IssueNumber, r.Branch, r.WorktreePath)
			status := board.StatusInProgress
			if r.Status != "" {
				status = board.Status(r.Status)
			}
			cards = append(cards, board.Card{
				ID:              "issue-" + strconv.Itoa(r.IssueNumber),
				Title:           r.Branch,
				Status:          status,
				WorktreeCreated: true,
				WorktreeOp:      board.OpNone,
				WorktreePath:    r.WorktreePath,
				Port:            r.Port,
				GitHub:          board.GitHubInfo{IssueNumber: r.IssueNumber},
			})
		}
		app.board.Load(cards)
	}

	cw, err := watcher.NewConfigWatcher(app.containers, app.eventBus, repoDir, 0)
	if err != nil {
		log.Printf("Warning: devcontainer config watching disabled: %v", err)
	} else {
		app.configWatcher = cw
	}

	app.apiServer = api.NewServer(api.ServerConfig{
		Host: cfg.Server.Host,
		Port: cfg.Server.Port,
	}, api.Dependencies{
		Board:           app.board,
		WorktreeManager: app.worktreeManager,
		EventBus:        app.eventBus,
	})

	return nil
}

// Board returns the card reconciler.
func (app *App) Board() *board.Reconciler {
	return app.board
}

// Start launches the API server.
func (app *App) Start(ctx context.Context) error {
	go func() {
		if err := app.apiServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("API server error: %v", err)
		}
	}()
	return nil
}

// Run starts the app and blocks until shutdown.
func (app *App) Run(ctx context.Context) error {
	if err := app.Initialize(ctx); err != nil {
		return err
	}

	if err := app.Start(ctx); err != nil {
		return err
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Printf("Received signal %v, shutting down...", sig)
	case <-ctx.Done():
		log.Printf("Context cancelled, shutting down...")
	case <-app.done:
		log.Printf("Shutdown requested...")
	}

	return app.Shutdown(context.Background())
}

// Shutdown gracefully shuts down all components. Running sessions are
// left in place; they are restored on the next launch.
func (app *App) Shutdown(ctx context.Context) error {
	app.mu.Lock()
	defer app.mu.Unlock()

	log.Println("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if app.apiServer != nil {
		if err := app.apiServer.Shutdown(shutdownCtx); err != nil {
			log.Printf("Error shutting down API server: %v", err)
		}
	}

	if app.configWatcher != nil {
		app.configWatcher.Close()
	}

	if app.eventBus != nil {
		app.eventBus.Close()
	}

	log.Println("Shutdown complete")
	return nil
}

// Stop requests a shutdown from another goroutine.
func (app *App) Stop() {
	app.stopOnce.Do(func() {
		close(app.done)
	})
}
