// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package connect

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/jinterlante1206/TIASmartChat/services/llm"
	"github.com/jinterlante1206/TIASmartChat/services/smartchat/datatypes"
)

// Source labels for where a recommendation batch came from.
const (
	SourceGraph = "graph"
	SourceWeb   = "web"
)

// ErrNoRecommendations is returned when neither the graph nor the web
// search produced a single candidate.
var ErrNoRecommendations = errors.New("connect: no recommendations found")

// GraphRecommender is the partner-graph lookup surface.
type GraphRecommender interface {
	Recommend(ctx context.Context, userID, connectionType string) ([]datatypes.Business, error)
}

// BusinessSearcher is the web-search fallback surface.
type BusinessSearcher interface {
	Search(ctx context.Context, query string, area SearchArea) ([]datatypes.Business, error)
}

// Result is one recommendation batch with its provenance.
type Result struct {
	Source     string               `json:"source"`
	Businesses []datatypes.Business `json:"businesses"`
}

// Recommender resolves referral-partner recommendations: existing TIA
// users from the graph first, web businesses as the fallback.
type Recommender struct {
	graph   GraphRecommender
	search  BusinessSearcher
	gateway llm.CompletionClient
	area    SearchArea
}

func NewRecommender(graph GraphRecommender, search BusinessSearcher, gateway llm.CompletionClient, area SearchArea) *Recommender {
	return &Recommender{graph: graph, search: search, gateway: gateway, area: area}
}

// queryAttributes selects which profile fields seed the web search
// query for each connection type.
func queryAttributes(connectionType string, profile *datatypes.Profile) map[string]string {
	switch connectionType {
	case ConnectionAlliance:
		return map[string]string{
			"User_skills":     profile.UserSkills,
			"Business_Skills": profile.BusinessSkills,
		}
	case ConnectionMastermind:
		return map[string]string{
			"User_Strength": profile.UserStrength,
		}
	case ConnectionIntelligent:
		return map[string]string{
			"User_skills":   profile.UserSkills,
			"Business_Type": profile.BusinessType,
			"Business_Name": profile.BusinessName,
		}
	default:
		return map[string]string{
			"Business_Type":     profile.BusinessType,
			"Business_Category": profile.BusinessCategory,
			"Business_Name":     profile.BusinessName,
		}
	}
}

// Recommend returns the best available batch for the user. Graph
// failures degrade to the web fallback rather than failing the turn; an
// empty result from both is ErrNoRecommendations.
func (r *Recommender) Recommend(ctx context.Context, userID, connectionType string, profile *datatypes.Profile) (*Result, error) {
	matches, err := r.graph.Recommend(ctx, userID, connectionType)
	if err != nil {
		slog.Warn("Partner graph lookup failed, falling back to web search",
			"userId", userID, "connection_type", connectionType, "error", err)
	}
	if len(matches) > 0 {
		slog.Info("Recommending existing TIA users",
			"userId", userID, "connection_type", connectionType, "count", len(matches))
		return &Result{Source: SourceGraph, Businesses: matches}, nil
	}

	query, err := r.buildSearchQuery(ctx, connectionType, profile)
	if err != nil {
		return nil, err
	}

	hits, err := r.search.Search(ctx, query, r.area)
	if err != nil {
		return nil, fmt.Errorf("web search fallback failed: %w", err)
	}
	if len(hits) == 0 {
		return nil, ErrNoRecommendations
	}

	slog.Info("Recommending web search results",
		"userId", userID, "connection_type", connectionType, "query", query, "count", len(hits))
	return &Result{Source: SourceWeb, Businesses: hits}, nil
}

// buildSearchQuery asks the backend to compress the relevant profile
// attributes into a short business-search query.
func (r *Recommender) buildSearchQuery(ctx context.Context, connectionType string, profile *datatypes.Profile) (string, error) {
	attrs, err := json.Marshal(queryAttributes(connectionType, profile))
	if err != nil {
		return "", fmt.Errorf("failed to encode query attributes: %w", err)
	}

	query, err := r.gateway.Chat(ctx,
		"You are an assistant that generates concise business search queries for local business data APIs.",
		[]llm.Message{{
			Role: llm.RoleUser,
			Content: fmt.Sprintf(
				"Connection Type: %s\nSelected Attributes: %s\nGenerate a 1-5 word search query that best fits this for finding relevant businesses. Output only the query.",
				connectionType, attrs),
		}},
		llm.GenerationParams{})
	if err != nil {
		return "", fmt.Errorf("search query generation failed: %w", err)
	}

	query = strings.Trim(strings.TrimSpace(query), `"`)
	if query == "" {
		// Backend gave nothing usable; the raw business type is a
		// serviceable query on its own.
		query = profile.BusinessType
	}
	return query, nil
}
