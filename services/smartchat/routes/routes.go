// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jinterlante1206/TIASmartChat/services/smartchat/handlers"
	"github.com/jinterlante1206/TIASmartChat/services/smartchat/middleware"
	"github.com/jinterlante1206/TIASmartChat/services/smartchat/session"
)

// SetupRoutes wires the service endpoints. authToken empty means open
// mode (no bearer-token enforcement).
func SetupRoutes(router *gin.Engine, turns handlers.TurnRouter, store handlers.SessionAdminStore,
	registry *session.Registry, authToken string) {

	router.GET("/health", handlers.Health())
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// API version 1 group
	v1 := router.Group("/v1")
	v1.Use(middleware.AuthMiddleware(authToken))
	{
		chat := v1.Group("/chat")
		{
			chat.POST("/turn", handlers.SubmitTurn(turns))
			chat.POST("/reset", handlers.ResetSession(turns))
		}
		// Session administration routes
		sessions := v1.Group("/sessions")
		{
			sessions.GET("", handlers.ListSessions(store, registry))
			sessions.DELETE("/:sessionId", handlers.DeleteSession(store, registry))
		}
	}
}
