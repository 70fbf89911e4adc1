// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Wire shapes for the smartchat service. These mirror the handler
// request types and the coordinator turn outcome.

type TurnRequest struct {
	UserID         string `json:"user_id"`
	SessionID      string `json:"session_id,omitempty"`
	Message        string `json:"message"`
	Agent          string `json:"agent,omitempty"`
	ConnectionType string `json:"connection_type,omitempty"`
}

type ResetRequest struct {
	UserID    string `json:"user_id"`
	SessionID string `json:"session_id"`
}

type BusinessInfo struct {
	Name         string  `json:"name"`
	BusinessType string  `json:"business_type,omitempty"`
	Rating       float64 `json:"rating,omitempty"`
	Address      string  `json:"address,omitempty"`
	PhoneNumber  string  `json:"phone_number,omitempty"`
	Website      string  `json:"website,omitempty"`
	Email        string  `json:"email,omitempty"`
}

type EmailTemplate struct {
	BusinessName  string `json:"business_name"`
	BusinessEmail string `json:"business_email,omitempty"`
	Body          string `json:"body"`
}

type TurnResponse struct {
	SessionID            string          `json:"session_id"`
	Response             string          `json:"response"`
	ActiveAgent          string          `json:"active_agent,omitempty"`
	ChatState            string          `json:"chat_state"`
	ProfileState         string          `json:"profile_state"`
	Phase                int             `json:"phase"`
	TotalPhases          int             `json:"total_phases"`
	Completed            bool            `json:"completed"`
	RecommendationSource string          `json:"recommendation_source,omitempty"`
	Recommendations      []BusinessInfo  `json:"recommendations,omitempty"`
	EmailTemplates       []EmailTemplate `json:"email_templates,omitempty"`
}

type SessionSummaryInfo struct {
	SessionID string `json:"session_id"`
	UserID    string `json:"user_id"`
	Agent     string `json:"agent"`
	Timestamp int64  `json:"timestamp"`
}

type sessionListResponse struct {
	Sessions []SessionSummaryInfo `json:"sessions"`
	Live     []string             `json:"live"`
}

type errorResponse struct {
	Error     string `json:"error"`
	Retryable bool   `json:"retryable"`
}

// apiClient is a minimal HTTP client for the smartchat service.
type apiClient struct {
	baseURL string
	token   string
	httpc   *http.Client
}

func newAPIClient(baseURL, token string) *apiClient {
	return &apiClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		// Turn handling includes LLM calls, so the budget is generous.
		httpc: &http.Client{Timeout: 180 * time.Second},
	}
}

func (c *apiClient) do(ctx context.Context, method, path string, body, out any) error {
	var payload io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encoding request: %w", err)
		}
		payload = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, payload)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return fmt.Errorf("calling the smartchat service: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode >= 400 {
		var apiErr errorResponse
		if json.Unmarshal(raw, &apiErr) == nil && apiErr.Error != "" {
			if apiErr.Retryable {
				return fmt.Errorf("%s (temporary, try again)", apiErr.Error)
			}
			return fmt.Errorf("%s", apiErr.Error)
		}
		return fmt.Errorf("service returned %s", resp.Status)
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

func (c *apiClient) SubmitTurn(ctx context.Context, req TurnRequest) (*TurnResponse, error) {
	var out TurnResponse
	if err := c.do(ctx, http.MethodPost, "/v1/chat/turn", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *apiClient) ResetSession(ctx context.Context, req ResetRequest) error {
	return c.do(ctx, http.MethodPost, "/v1/chat/reset", req, nil)
}

func (c *apiClient) ListSessions(ctx context.Context) (*sessionListResponse, error) {
	var out sessionListResponse
	if err := c.do(ctx, http.MethodGet, "/v1/sessions", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *apiClient) DeleteSession(ctx context.Context, sessionID string) error {
	return c.do(ctx, http.MethodDelete, "/v1/sessions/"+sessionID, nil, nil)
}
