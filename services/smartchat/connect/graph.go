// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package connect produces referral-partner recommendations for a
// completed connect conversation: first from the TIA partner graph
// service, falling back to a local-business web search, plus intro
// email templates for whichever batch was returned.
package connect

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/jinterlante1206/TIASmartChat/services/smartchat/datatypes"
)

// Connection types understood by the partner graph service.
const (
	ConnectionComplementary = "complementary"
	ConnectionAlliance      = "alliance"
	ConnectionMastermind    = "mastermind"
	ConnectionIntelligent   = "intelligent"
)

// graphEndpoints maps a connection type to its graph service route.
var graphEndpoints = map[string]string{
	ConnectionComplementary: "complementary_partners",
	ConnectionAlliance:      "alliance_partners",
	ConnectionMastermind:    "mastermind_partners",
	ConnectionIntelligent:   "intelligent_partners",
}

// ValidConnectionType reports whether the connection type names one of
// the partner relationships the graph service understands.
func ValidConnectionType(connectionType string) bool {
	_, ok := graphEndpoints[connectionType]
	return ok
}

// GraphClient queries the TIA partner graph service for recommendations
// among existing users.
type GraphClient struct {
	baseURL string
	httpc   *http.Client
}

// NewGraphClient returns a client for the graph service at baseURL. An
// empty baseURL yields a client whose lookups always miss, which is the
// degraded mode when no graph service is deployed.
func NewGraphClient(baseURL string) *GraphClient {
	return &GraphClient{
		baseURL: baseURL,
		httpc:   &http.Client{Timeout: 10 * time.Second},
	}
}

type graphRecommendation struct {
	Recommendation struct {
		Score float64 `json:"score"`
		User  struct {
			ID           string `json:"id"`
			Name         string `json:"name"`
			BusinessName string `json:"business_name"`
			BusinessType string `json:"business_type"`
			Email        string `json:"email"`
		} `json:"user"`
	} `json:"recommendation"`
}

// Recommend returns graph-service partner matches for the user, or an
// empty slice when the graph has none. An unreachable or misbehaving
// graph service is an error; the caller decides whether to fall back.
func (g *GraphClient) Recommend(ctx context.Context, userID, connectionType string) ([]datatypes.Business, error) {
	if g.baseURL == "" {
		return nil, nil
	}
	endpoint, ok := graphEndpoints[connectionType]
	if !ok {
		endpoint = graphEndpoints[ConnectionComplementary]
	}

	url := fmt.Sprintf("%s/user/%s/%s", g.baseURL, userID, endpoint)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build graph service request: %w", err)
	}

	resp, err := g.httpc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("graph service request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("graph service returned status %d: %s", resp.StatusCode, string(body))
	}

	var recs []graphRecommendation
	if err := json.NewDecoder(resp.Body).Decode(&recs); err != nil {
		return nil, fmt.Errorf("failed to decode graph service response: %w", err)
	}

	businesses := make([]datatypes.Business, 0, len(recs))
	for _, rec := range recs {
		u := rec.Recommendation.User
		name := u.BusinessName
		if name == "" {
			name = u.Name
		}
		businesses = append(businesses, datatypes.Business{
			Name:         name,
			BusinessType: u.BusinessType,
			Email:        u.Email,
			UserID:       u.ID,
		})
	}
	return businesses, nil
}
