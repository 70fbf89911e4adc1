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
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jinterlante1206/TIASmartChat/services/smartchat/datatypes"
	"github.com/jinterlante1206/TIASmartChat/services/smartchat/session"
)

// SessionAdminStore is the persistence surface for session
// administration.
type SessionAdminStore interface {
	ListSessions(ctx context.Context) ([]datatypes.SessionSummary, error)
	DeleteSessionData(ctx context.Context, sessionID string) error
}

// ListSessions handles GET /v1/sessions: the stored session index plus
// which of those sessions are currently live in memory.
func ListSessions(store SessionAdminStore, registry *session.Registry) gin.HandlerFunc {
	return func(c *gin.Context) {
		slog.Info("Received request to list sessions")
		sessions, err := store.ListSessions(c.Request.Context())
		if err != nil {
			slog.Error("Failed to query stored sessions", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to query sessions"})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"sessions": sessions,
			"live":     registry.SessionIDs(),
		})
	}
}

// DeleteSession handles DELETE /v1/sessions/:sessionId: releases the
// live session if any and removes its stored answer log and index
// entry.
func DeleteSession(store SessionAdminStore, registry *session.Registry) gin.HandlerFunc {
	return func(c *gin.Context) {
		sessionID := c.Param("sessionId")
		slog.Info("Received a request to delete a session", "sessionId", sessionID)

		released := registry.Release(sessionID)
		if err := store.DeleteSessionData(c.Request.Context(), sessionID); err != nil {
			slog.Error("Failed to delete stored session data", "sessionId", sessionID, "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fully delete session"})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"status":             "success",
			"deleted_session_id": sessionID,
			"was_live":           released,
		})
	}
}

// Health handles GET /health.
func Health() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
}
