// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wingedpig/arbor/internal/board"
	"github.com/wingedpig/arbor/internal/events"
	"github.com/wingedpig/arbor/internal/session"
	"github.com/wingedpig/arbor/internal/worktree"
)

// Mock implementations

type mockSessions struct {
	info session.Info
}

func (m *mockSessions) Start(ctx context.Context, req session.Request) (session.Info, error) {
	return m.info, nil
}

func (m *mockSessions) Stop(ctx context.Context, req session.Request) error {
	return nil
}

type mockWorktreeManager struct {
	worktrees []worktree.WorktreeInfo
	listErr   error
}

func (m *mockWorktreeManager) Create(ctx context.Context, branch string) (worktree.WorktreeInfo, error) {
	return worktree.WorktreeInfo{}, nil
}

func (m *mockWorktreeManager) Remove(ctx context.Context, branch string) error {
	return nil
}

func (m *mockWorktreeManager) List(ctx context.Context) ([]worktree.WorktreeInfo, error) {
	return m.worktrees, m.listErr
}

func (m *mockWorktreeManager) PathFor(branch string) string {
	return "/wt/" + branch
}

func newTestBoard() *board.Reconciler {
	r := board.NewReconciler(&mockSessions{info: session.Info{WorktreePath: "/wt/42", Port: 3004}}, nil, nil)
	r.Load([]board.Card{
		{ID: "card-1", Title: "Fix login bug", Status: board.StatusIdle, WorktreeOp: board.OpNone,
			GitHub: board.GitHubInfo{IssueNumber: 42, Title: "Fix login bug"}},
		{ID: "card-2", Title: "Add dark mode", Status: board.StatusDone, WorktreeOp: board.OpNone,
			GitHub: board.GitHubInfo{IssueNumber: 43, Title: "Add dark mode"}},
	})
	return r
}

func decodeResponse(t *testing.T, rec *httptest.ResponseRecorder) Response {
	t.Helper()
	var resp Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func newCardRouter(b *board.Reconciler) *mux.Router {
	r := mux.NewRouter()
	h := NewCardHandler(b)
	r.HandleFunc("/api/cards", h.List).Methods("GET")
	r.HandleFunc("/api/cards/{id}", h.Get).Methods("GET")
	r.HandleFunc("/api/cards/{id}/status", h.SetStatus).Methods("POST")
	return r
}

func TestCardHandler_List(t *testing.T) {
	router := newCardRouter(newTestBoard())

	req := httptest.NewRequest("GET", "/api/cards", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	resp := decodeResponse(t, rec)
	require.Nil(t, resp.Error)

	cards, ok := resp.Data.([]interface{})
	require.True(t, ok)
	assert.Len(t, cards, 2)
}

func TestCardHandler_Get(t *testing.T) {
	router := newCardRouter(newTestBoard())

	req := httptest.NewRequest("GET", "/api/cards/card-1", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	resp := decodeResponse(t, rec)
	card, ok := resp.Data.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "card-1", card["id"])
}

func TestCardHandler_GetNotFound(t *testing.T) {
	router := newCardRouter(newTestBoard())

	req := httptest.NewRequest("GET", "/api/cards/missing", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNotFound, rec.Code)
	resp := decodeResponse(t, rec)
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrNotFound, resp.Error.Code)
}

func TestCardHandler_SetStatus(t *testing.T) {
	router := newCardRouter(newTestBoard())

	body := bytes.NewBufferString(`{"status":"in_progress"}`)
	req := httptest.NewRequest("POST", "/api/cards/card-1/status", body)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	resp := decodeResponse(t, rec)
	require.Nil(t, resp.Error)

	card, ok := resp.Data.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "in_progress", card["status"])
	assert.Equal(t, "creating", card["worktreeOperation"])
}

func TestCardHandler_SetStatusMissingBody(t *testing.T) {
	router := newCardRouter(newTestBoard())

	req := httptest.NewRequest("POST", "/api/cards/card-1/status", bytes.NewBufferString(`{}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	resp := decodeResponse(t, rec)
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrBadRequest, resp.Error.Code)
}

func TestCardHandler_SetStatusUnknownCard(t *testing.T) {
	router := newCardRouter(newTestBoard())

	body := bytes.NewBufferString(`{"status":"done"}`)
	req := httptest.NewRequest("POST", "/api/cards/missing/status", body)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCardHandler_SetStatusInvalidStatus(t *testing.T) {
	router := newCardRouter(newTestBoard())

	body := bytes.NewBufferString(`{"status":"archived"}`)
	req := httptest.NewRequest("POST", "/api/cards/card-1/status", body)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	resp := decodeResponse(t, rec)
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCardError, resp.Error.Code)
}

func TestWorktreeHandler_List(t *testing.T) {
	mgr := &mockWorktreeManager{
		worktrees: []worktree.WorktreeInfo{
			{Path: "/repo", Branch: "main", Commit: "abc123"},
			{Path: "/wt/42-fix-login-bug", Branch: "42-fix-login-bug", Commit: "def456"},
		},
	}

	h := NewWorktreeHandler(mgr)
	req := httptest.NewRequest("GET", "/api/worktrees", nil)
	rec := httptest.NewRecorder()
	h.List(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Data []WorktreeResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Data, 2)
	assert.Equal(t, 0, resp.Data[0].IssueNumber)
	assert.Equal(t, 42, resp.Data[1].IssueNumber)
}

func TestEventHandler_History(t *testing.T) {
	bus := events.NewMemoryEventBus(events.MemoryBusConfig{HistoryMaxEvents: 100, HistoryMaxAge: time.Hour})
	defer bus.Close()

	require.NoError(t, bus.Publish(context.Background(), events.Event{Type: events.EventSessionStarted, Card: "card-1"}))
	require.NoError(t, bus.Publish(context.Background(), events.Event{Type: events.EventCardUpdated, Card: "card-2"}))

	h := NewEventHandler(bus)

	req := httptest.NewRequest("GET", "/api/events/history?type=session.*", nil)
	rec := httptest.NewRecorder()
	h.History(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Data []events.Event `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Data, 1)
	assert.Equal(t, events.EventSessionStarted, resp.Data[0].Type)
}

func TestEventHandler_HistoryWithLimit(t *testing.T) {
	bus := events.NewMemoryEventBus(events.MemoryBusConfig{HistoryMaxEvents: 100, HistoryMaxAge: time.Hour})
	defer bus.Close()

	for i := 0; i < 5; i++ {
		require.NoError(t, bus.Publish(context.Background(), events.Event{Type: events.EventCardUpdated}))
	}

	h := NewEventHandler(bus)

	req := httptest.NewRequest("GET", "/api/events/history?limit=2", nil)
	rec := httptest.NewRecorder()
	h.History(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Data []events.Event `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Len(t, resp.Data, 2)
}
