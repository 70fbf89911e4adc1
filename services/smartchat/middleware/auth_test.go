// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func authRouter(token string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(AuthMiddleware(token))
	r.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })
	return r
}

func TestAuthMiddleware(t *testing.T) {
	cases := []struct {
		name       string
		configured string
		header     string
		wantStatus int
	}{
		{"open mode passes everything", "", "", http.StatusOK},
		{"open mode ignores stray tokens", "", "Bearer whatever", http.StatusOK},
		{"valid token", "secret-1", "Bearer secret-1", http.StatusOK},
		{"case-insensitive scheme", "secret-1", "bearer secret-1", http.StatusOK},
		{"wrong token", "secret-1", "Bearer nope", http.StatusUnauthorized},
		{"missing header", "secret-1", "", http.StatusUnauthorized},
		{"malformed header", "secret-1", "secret-1", http.StatusUnauthorized},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/ping", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			w := httptest.NewRecorder()
			authRouter(tc.configured).ServeHTTP(w, req)
			if w.Code != tc.wantStatus {
				t.Errorf("status %d, want %d", w.Code, tc.wantStatus)
			}
		})
	}
}
