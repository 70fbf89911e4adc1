// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package handlers implements the HTTP endpoints of the smartchat
// service: turn submission, session reset, and session administration.
package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/jinterlante1206/TIASmartChat/services/llm"
	"github.com/jinterlante1206/TIASmartChat/services/smartchat/assistant"
	"github.com/jinterlante1206/TIASmartChat/services/smartchat/coordinator"
	"github.com/jinterlante1206/TIASmartChat/services/smartchat/datatypes"
)

var tracer = otel.Tracer("smartchat.handlers")

// TurnRouter is the coordinator surface the turn endpoints need.
type TurnRouter interface {
	RouteTurn(ctx context.Context, input coordinator.TurnInput) (*coordinator.TurnOutcome, error)
	Reset(ctx context.Context, sessionID string) bool
}

// TurnRequest is the body of POST /v1/chat/turn.
type TurnRequest struct {
	UserID    string `json:"user_id" binding:"required"`
	SessionID string `json:"session_id"`
	Message   string `json:"message" binding:"required"`
	// Agent optionally names the conversation to start; defaults to the
	// vision flow for new users.
	Agent string `json:"agent"`
	// ConnectionType optionally names the partner relationship a connect
	// conversation should match on.
	ConnectionType string `json:"connection_type"`
}

// ResetRequest is the body of POST /v1/chat/reset.
type ResetRequest struct {
	UserID    string `json:"user_id" binding:"required"`
	SessionID string `json:"session_id" binding:"required"`
}

// SubmitTurn handles POST /v1/chat/turn.
func SubmitTurn(router TurnRouter) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := tracer.Start(c.Request.Context(), "chat.turn",
			trace.WithSpanKind(trace.SpanKindServer))
		defer span.End()

		var req TurnRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "user_id and message are required"})
			return
		}
		span.SetAttributes(
			attribute.String("session.id", req.SessionID),
			attribute.String("agent.requested", req.Agent),
		)

		outcome, err := router.RouteTurn(ctx, coordinator.TurnInput{
			SessionID:      req.SessionID,
			UserID:         req.UserID,
			Message:        req.Message,
			Agent:          datatypes.AgentName(req.Agent),
			ConnectionType: req.ConnectionType,
		})
		if err != nil {
			writeTurnError(c, req.SessionID, err)
			return
		}
		c.JSON(http.StatusOK, outcome)
	}
}

// ResetSession handles POST /v1/chat/reset.
func ResetSession(router TurnRouter) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req ResetRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "user_id and session_id are required"})
			return
		}

		released := router.Reset(c.Request.Context(), req.SessionID)
		slog.Info("Session reset requested",
			"sessionId", req.SessionID, "userId", req.UserID, "released", released)
		c.JSON(http.StatusOK, gin.H{
			"status":     "reset",
			"session_id": req.SessionID,
			"released":   released,
		})
	}
}

// writeTurnError maps routing errors onto HTTP statuses. The gateway
// failure mapping is deliberate: 502 with retryable=true tells the
// client that resubmitting the identical turn is safe.
func writeTurnError(c *gin.Context, sessionID string, err error) {
	switch {
	case errors.Is(err, coordinator.ErrMissingState),
		errors.Is(err, coordinator.ErrUnknownAgent),
		errors.Is(err, coordinator.ErrUnknownConnectionType):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, assistant.ErrSessionClosed):
		c.JSON(http.StatusConflict, gin.H{
			"error":      "session is closed, start a new one",
			"session_id": sessionID,
		})
	case llm.IsGenerationError(err):
		slog.Error("Turn failed at the completion gateway", "sessionId", sessionID, "error", err)
		c.JSON(http.StatusBadGateway, gin.H{
			"error":     "generation backend unavailable",
			"retryable": true,
		})
	default:
		slog.Error("Turn failed", "sessionId", sessionID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
