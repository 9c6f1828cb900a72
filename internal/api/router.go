// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package api provides the HTTP API server.
package api

import (
	"context"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/wingedpig/arbor/internal/api/handlers"
	"github.com/wingedpig/arbor/internal/api/middleware"
	"github.com/wingedpig/arbor/internal/board"
	"github.com/wingedpig/arbor/internal/events"
	"github.com/wingedpig/arbor/internal/worktree"
)

// ServerConfig holds configuration for the API server.
type ServerConfig struct {
	Host string
	Port int
}

// Dependencies holds all dependencies for API handlers.
type Dependencies struct {
	Board           *board.Reconciler
	WorktreeManager worktree.Manager
	EventBus        events.EventBus
}

// NewRouter creates a new API router.
func NewRouter(deps Dependencies) *mux.Router {
	r := mux.NewRouter()

	r.Use(middleware.Logging)
	r.Use(middleware.Recovery)
	r.Use(middleware.CORS)

	api := r.PathPrefix("/api").Subrouter()

	cardHandler := handlers.NewCardHandler(deps.Board)
	api.HandleFunc("/cards", cardHandler.List).Methods("GET")
	api.HandleFunc("/cards/{id}", cardHandler.Get).Methods("GET")
	api.HandleFunc("/cards/{id}/status", cardHandler.SetStatus).Methods("POST")

	worktreeHandler := handlers.NewWorktreeHandler(deps.WorktreeManager)
	api.HandleFunc("/worktrees", worktreeHandler.List).Methods("GET")

	eventHandler := handlers.NewEventHandler(deps.EventBus)
	api.HandleFunc("/events/history", eventHandler.History).Methods("GET")
	api.HandleFunc("/ws/events", eventHandler.WebSocket).Methods("GET")

	return r
}

// Server represents the API server.
type Server struct {
	router *mux.Router
	cfg    ServerConfig
	server *http.Server
}

// NewServer creates a new API server.
func NewServer(cfg ServerConfig, deps Dependencies) *Server {
	return &Server{
		router: NewRouter(deps),
		cfg:    cfg,
	}
}

// Router returns the underlying router.
func (s *Server) Router() *mux.Router {
	return s.router
}

// ListenAndServe starts the server.
func (s *Server) ListenAndServe() error {
	addr := s.cfg.Host + ":" + strconv.Itoa(s.cfg.Port)
	s.server = &http.Server{
		Addr:    addr,
		Handler: s.router,
	}

	log.Printf("API server listening on http://%s", addr)
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}

	log.Println("Shutting down API server...")

	shutdownCtx := ctx
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		shutdownCtx, cancel = context.WithTimeout(ctx, 30*time.Second)
		defer cancel()
	}

	return s.server.Shutdown(shutdownCtx)
}
