// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/jinterlante1206/TIASmartChat/services/llm"
	"github.com/jinterlante1206/TIASmartChat/services/smartchat/assistant"
	"github.com/jinterlante1206/TIASmartChat/services/smartchat/coordinator"
	"github.com/jinterlante1206/TIASmartChat/services/smartchat/datatypes"
	"github.com/jinterlante1206/TIASmartChat/services/smartchat/session"
)

type stubRouter struct {
	outcome   *coordinator.TurnOutcome
	err       error
	lastInput coordinator.TurnInput
	resetIDs  []string
}

func (s *stubRouter) RouteTurn(_ context.Context, input coordinator.TurnInput) (*coordinator.TurnOutcome, error) {
	s.lastInput = input
	return s.outcome, s.err
}

func (s *stubRouter) Reset(_ context.Context, sessionID string) bool {
	s.resetIDs = append(s.resetIDs, sessionID)
	return true
}

type stubStore struct {
	sessions  []datatypes.SessionSummary
	listErr   error
	deleted   []string
	deleteErr error
}

func (s *stubStore) ListSessions(_ context.Context) ([]datatypes.SessionSummary, error) {
	return s.sessions, s.listErr
}

func (s *stubStore) DeleteSessionData(_ context.Context, sessionID string) error {
	s.deleted = append(s.deleted, sessionID)
	return s.deleteErr
}

func turnRouterEngine(router TurnRouter) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/v1/chat/turn", SubmitTurn(router))
	r.POST("/v1/chat/reset", ResetSession(router))
	return r
}

func postJSON(t *testing.T, engine *gin.Engine, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	return w
}

func TestSubmitTurn(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		router := &stubRouter{outcome: &coordinator.TurnOutcome{
			SessionID:   "sess-1",
			Response:    "what is your role?",
			ActiveAgent: datatypes.AgentVision,
			ChatState:   datatypes.ChatStateChat,
			Phase:       0,
			TotalPhases: 2,
		}}
		w := postJSON(t, turnRouterEngine(router), "/v1/chat/turn",
			`{"user_id":"user-1","message":"hello","agent":"VisionAgent"}`)

		if w.Code != http.StatusOK {
			t.Fatalf("status %d: %s", w.Code, w.Body.String())
		}
		var got coordinator.TurnOutcome
		if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
			t.Fatalf("bad response body: %v", err)
		}
		if got.SessionID != "sess-1" || got.Response != "what is your role?" {
			t.Errorf("unexpected outcome: %+v", got)
		}
		if router.lastInput.Agent != datatypes.AgentVision {
			t.Errorf("agent not passed through: %q", router.lastInput.Agent)
		}
	})

	t.Run("connection type passes through", func(t *testing.T) {
		router := &stubRouter{outcome: &coordinator.TurnOutcome{SessionID: "sess-1"}}
		w := postJSON(t, turnRouterEngine(router), "/v1/chat/turn",
			`{"user_id":"u","message":"hi","agent":"ConnectAgent","connection_type":"alliance"}`)
		if w.Code != http.StatusOK {
			t.Fatalf("status %d: %s", w.Code, w.Body.String())
		}
		if router.lastInput.ConnectionType != "alliance" {
			t.Errorf("connection type not passed through: %q", router.lastInput.ConnectionType)
		}
	})

	t.Run("unknown connection type is a client error", func(t *testing.T) {
		router := &stubRouter{err: coordinator.ErrUnknownConnectionType}
		w := postJSON(t, turnRouterEngine(router), "/v1/chat/turn",
			`{"user_id":"u","message":"hi","connection_type":"rivals"}`)
		if w.Code != http.StatusBadRequest {
			t.Errorf("status %d, want 400", w.Code)
		}
	})

	t.Run("missing fields", func(t *testing.T) {
		w := postJSON(t, turnRouterEngine(&stubRouter{}), "/v1/chat/turn", `{"user_id":"u"}`)
		if w.Code != http.StatusBadRequest {
			t.Errorf("status %d, want 400", w.Code)
		}
	})

	t.Run("unknown agent is a client error", func(t *testing.T) {
		router := &stubRouter{err: coordinator.ErrUnknownAgent}
		w := postJSON(t, turnRouterEngine(router), "/v1/chat/turn",
			`{"user_id":"u","message":"hi","agent":"WeirdAgent"}`)
		if w.Code != http.StatusBadRequest {
			t.Errorf("status %d, want 400", w.Code)
		}
	})

	t.Run("closed session conflicts", func(t *testing.T) {
		router := &stubRouter{err: assistant.ErrSessionClosed}
		w := postJSON(t, turnRouterEngine(router), "/v1/chat/turn",
			`{"user_id":"u","session_id":"sess-1","message":"hi"}`)
		if w.Code != http.StatusConflict {
			t.Errorf("status %d, want 409", w.Code)
		}
	})

	t.Run("gateway failure maps to retryable 502", func(t *testing.T) {
		router := &stubRouter{err: &llm.GenerationError{Backend: "openai", Err: errors.New("timeout")}}
		w := postJSON(t, turnRouterEngine(router), "/v1/chat/turn",
			`{"user_id":"u","message":"hi"}`)
		if w.Code != http.StatusBadGateway {
			t.Fatalf("status %d, want 502", w.Code)
		}
		var body map[string]any
		if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
			t.Fatal(err)
		}
		if body["retryable"] != true {
			t.Errorf("retryable flag missing: %v", body)
		}
	})
}

func TestResetSession(t *testing.T) {
	router := &stubRouter{}
	w := postJSON(t, turnRouterEngine(router), "/v1/chat/reset",
		`{"user_id":"u","session_id":"sess-1"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status %d: %s", w.Code, w.Body.String())
	}
	if len(router.resetIDs) != 1 || router.resetIDs[0] != "sess-1" {
		t.Errorf("reset not forwarded: %v", router.resetIDs)
	}

	t.Run("requires session id", func(t *testing.T) {
		w := postJSON(t, turnRouterEngine(&stubRouter{}), "/v1/chat/reset", `{"user_id":"u"}`)
		if w.Code != http.StatusBadRequest {
			t.Errorf("status %d, want 400", w.Code)
		}
	})
}

func TestSessionAdmin(t *testing.T) {
	gin.SetMode(gin.TestMode)

	t.Run("list includes stored and live", func(t *testing.T) {
		store := &stubStore{sessions: []datatypes.SessionSummary{
			{SessionID: "sess-1", UserID: "u", Agent: "VisionAgent", Timestamp: 1700000000000},
		}}
		registry := session.NewRegistry()
		registry.GetOrCreate("live-1", "u")

		r := gin.New()
		r.GET("/v1/sessions", ListSessions(store, registry))
		req := httptest.NewRequest(http.MethodGet, "/v1/sessions", nil)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			t.Fatalf("status %d", w.Code)
		}
		var body struct {
			Sessions []datatypes.SessionSummary `json:"sessions"`
			Live     []string                   `json:"live"`
		}
		if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
			t.Fatal(err)
		}
		if len(body.Sessions) != 1 || len(body.Live) != 1 || body.Live[0] != "live-1" {
			t.Errorf("unexpected listing: %+v", body)
		}
	})

	t.Run("delete releases and purges", func(t *testing.T) {
		store := &stubStore{}
		registry := session.NewRegistry()
		registry.GetOrCreate("sess-1", "u")

		r := gin.New()
		r.DELETE("/v1/sessions/:sessionId", DeleteSession(store, registry))
		req := httptest.NewRequest(http.MethodDelete, "/v1/sessions/sess-1", nil)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			t.Fatalf("status %d: %s", w.Code, w.Body.String())
		}
		if len(store.deleted) != 1 || store.deleted[0] != "sess-1" {
			t.Errorf("stored data not purged: %v", store.deleted)
		}
		if registry.Len() != 0 {
			t.Error("live session not released")
		}
	})

	t.Run("delete failure is a 500", func(t *testing.T) {
		store := &stubStore{deleteErr: errors.New("weaviate down")}
		r := gin.New()
		r.DELETE("/v1/sessions/:sessionId", DeleteSession(store, session.NewRegistry()))
		req := httptest.NewRequest(http.MethodDelete, "/v1/sessions/sess-1", nil)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		if w.Code != http.StatusInternalServerError {
			t.Errorf("status %d, want 500", w.Code)
		}
	})
}
