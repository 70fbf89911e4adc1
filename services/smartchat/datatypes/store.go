// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package datatypes

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/weaviate/weaviate-go-client/v5/weaviate"
	"github.com/weaviate/weaviate-go-client/v5/weaviate/filters"
	"github.com/weaviate/weaviate-go-client/v5/weaviate/graphql"
	"github.com/weaviate/weaviate/entities/models"
)

// Store persists sessions, answer logs, and generated profiles in
// weaviate. All classes are created without a vectorizer; this is plain
// structured storage, retrieval is always by filter.
type Store struct {
	client *weaviate.Client
}

func NewStore(client *weaviate.Client) *Store {
	return &Store{client: client}
}

// SessionSummary is one row of the session administration listing.
type SessionSummary struct {
	SessionID string `json:"session_id"`
	UserID    string `json:"user_id"`
	Agent     string `json:"agent"`
	Timestamp int64  `json:"timestamp"`
}

func getSessionSchema() *models.Class {
	indexFilterable := new(bool)
	*indexFilterable = true

	return &models.Class{
		Class:       "ChatSession",
		Description: "One guided-conversation session and which agent ran it.",
		Vectorizer:  "none",
		Properties: []*models.Property{
			{Name: "session_id", DataType: []string{"text"}, IndexFilterable: indexFilterable, Tokenization: "field"},
			{Name: "user_id", DataType: []string{"text"}, IndexFilterable: indexFilterable, Tokenization: "field"},
			{Name: "agent", DataType: []string{"text"}, Tokenization: "field"},
			{Name: "timestamp", DataType: []string{"int"}},
		},
	}
}

func getPhaseResponseSchema() *models.Class {
	indexFilterable := new(bool)
	*indexFilterable = true

	return &models.Class{
		Class:       "PhaseResponse",
		Description: "One user answer from a phase assistant's answer log.",
		Vectorizer:  "none",
		Properties: []*models.Property{
			{Name: "session_id", DataType: []string{"text"}, IndexFilterable: indexFilterable, Tokenization: "field"},
			{Name: "user_id", DataType: []string{"text"}, IndexFilterable: indexFilterable, Tokenization: "field"},
			{Name: "agent", DataType: []string{"text"}, IndexFilterable: indexFilterable, Tokenization: "field"},
			{Name: "phase", DataType: []string{"int"}},
			{Name: "question", DataType: []string{"text"}},
			{Name: "message", DataType: []string{"text"}},
			{Name: "timestamp", DataType: []string{"int"}},
		},
	}
}

func getUserProfileSchema() *models.Class {
	indexFilterable := new(bool)
	*indexFilterable = true

	return &models.Class{
		Class:       "UserProfile",
		Description: "A generated user profile extracted from a vision conversation.",
		Vectorizer:  "none",
		Properties: []*models.Property{
			{Name: "user_id", DataType: []string{"text"}, IndexFilterable: indexFilterable, Tokenization: "field"},
			{Name: "business_name", DataType: []string{"text"}},
			{Name: "business_type", DataType: []string{"text"}},
			{Name: "user_job", DataType: []string{"text"}},
			{Name: "user_strength", DataType: []string{"text"}},
			{Name: "user_skills", DataType: []string{"text"}},
			{Name: "business_strength", DataType: []string{"text"}},
			{Name: "business_skills", DataType: []string{"text"}},
			{Name: "business_category", DataType: []string{"text"}},
			{Name: "skill_category", DataType: []string{"text"}},
			{Name: "strength_category", DataType: []string{"text"}},
			{Name: "timestamp", DataType: []string{"int"}},
		},
	}
}

// EnsureSchema creates any missing classes. Existing classes are left
// untouched.
func (s *Store) EnsureSchema(ctx context.Context) error {
	for _, class := range []*models.Class{
		getSessionSchema(),
		getPhaseResponseSchema(),
		getUserProfileSchema(),
	} {
		_, err := s.client.Schema().ClassGetter().WithClassName(class.Class).Do(ctx)
		if err == nil {
			slog.Info("Schema already exists", "class", class.Class)
			continue
		}
		slog.Info("Schema not found, creating it", "class", class.Class)
		if err := s.client.Schema().ClassCreator().WithClass(class).Do(ctx); err != nil {
			return fmt.Errorf("failed to create schema for class %s: %w", class.Class, err)
		}
	}
	return nil
}

// SaveSession records the session in the administration index.
func (s *Store) SaveSession(ctx context.Context, sessionID, userID string, agent AgentName) error {
	slog.Info("Saving session metadata", "sessionId", sessionID, "agent", agent)
	_, err := s.client.Data().Creator().
		WithClassName("ChatSession").
		WithProperties(map[string]interface{}{
			"session_id": sessionID,
			"user_id":    userID,
			"agent":      string(agent),
			"timestamp":  time.Now().UnixMilli(),
		}).
		Do(ctx)
	if err != nil {
		return fmt.Errorf("failed to save ChatSession object: %w", err)
	}
	return nil
}

// SaveAnswerLog flushes a terminated assistant's answer log. Records are
// written individually; a partial failure aborts with the first error so
// the caller can log it, but already-written records are not rolled back
// (duplicates on a later retry are acceptable for synthesis input).
func (s *Store) SaveAnswerLog(ctx context.Context, sessionID, userID string, agent AgentName, log []AnswerRecord) error {
	slog.Info("Saving answer log", "sessionId", sessionID, "agent", agent, "records", len(log))
	for _, rec := range log {
		_, err := s.client.Data().Creator().
			WithClassName("PhaseResponse").
			WithProperties(map[string]interface{}{
				"session_id": sessionID,
				"user_id":    userID,
				"agent":      string(agent),
				"phase":      rec.Phase,
				"question":   rec.Question,
				"message":    rec.Message,
				"timestamp":  rec.Timestamp.UnixMilli(),
			}).
			Do(ctx)
		if err != nil {
			return fmt.Errorf("failed to save PhaseResponse object: %w", err)
		}
	}
	return nil
}

// SaveProfile clamps and persists a generated profile.
func (s *Store) SaveProfile(ctx context.Context, profile *Profile) error {
	profile.Clamp()
	slog.Info("Saving generated profile", "userId", profile.UserID)
	_, err := s.client.Data().Creator().
		WithClassName("UserProfile").
		WithProperties(map[string]interface{}{
			"user_id":           profile.UserID,
			"business_name":     profile.BusinessName,
			"business_type":     profile.BusinessType,
			"user_job":          profile.UserJob,
			"user_strength":     profile.UserStrength,
			"user_skills":       profile.UserSkills,
			"business_strength": profile.BusinessStrength,
			"business_skills":   profile.BusinessSkills,
			"business_category": profile.BusinessCategory,
			"skill_category":    profile.SkillCategory,
			"strength_category": profile.StrengthCategory,
			"timestamp":         time.Now().UnixMilli(),
		}).
		Do(ctx)
	if err != nil {
		return fmt.Errorf("failed to save UserProfile object: %w", err)
	}
	return nil
}

// FetchProfile returns the most recently generated profile for the user,
// or found=false when none exists. Read-only and idempotent.
func (s *Store) FetchProfile(ctx context.Context, userID string) (*Profile, bool, error) {
	where := filters.Where().
		WithPath([]string{"user_id"}).
		WithOperator(filters.Equal).
		WithValueString(userID)

	fields := []graphql.Field{
		{Name: "user_id"}, {Name: "business_name"}, {Name: "business_type"},
		{Name: "user_job"}, {Name: "user_strength"}, {Name: "user_skills"},
		{Name: "business_strength"}, {Name: "business_skills"},
		{Name: "business_category"}, {Name: "skill_category"},
		{Name: "strength_category"},
	}

	resp, err := s.client.GraphQL().Get().
		WithClassName("UserProfile").
		WithWhere(where).
		WithFields(fields...).
		WithSort(graphql.Sort{Path: []string{"timestamp"}, Order: graphql.Desc}).
		WithLimit(1).
		Do(ctx)
	if err != nil {
		return nil, false, fmt.Errorf("error querying for profile: %w", err)
	}

	get, ok := resp.Data["Get"].(map[string]interface{})
	if !ok {
		return nil, false, nil
	}
	rows, ok := get["UserProfile"].([]interface{})
	if !ok || len(rows) == 0 {
		return nil, false, nil
	}
	obj, ok := rows[0].(map[string]interface{})
	if !ok {
		return nil, false, fmt.Errorf("unexpected profile row shape: %T", rows[0])
	}

	str := func(key string) string {
		v, _ := obj[key].(string)
		return v
	}
	profile := &Profile{
		UserID:           str("user_id"),
		BusinessName:     str("business_name"),
		BusinessType:     str("business_type"),
		UserJob:          str("user_job"),
		UserStrength:     str("user_strength"),
		UserSkills:       str("user_skills"),
		BusinessStrength: str("business_strength"),
		BusinessSkills:   str("business_skills"),
		BusinessCategory: str("business_category"),
		SkillCategory:    str("skill_category"),
		StrengthCategory: str("strength_category"),
	}
	return profile, true, nil
}

// ListSessions returns the session administration index, newest first.
func (s *Store) ListSessions(ctx context.Context) ([]SessionSummary, error) {
	fields := []graphql.Field{
		{Name: "session_id"}, {Name: "user_id"}, {Name: "agent"}, {Name: "timestamp"},
	}
	resp, err := s.client.GraphQL().Get().
		WithClassName("ChatSession").
		WithFields(fields...).
		WithSort(graphql.Sort{Path: []string{"timestamp"}, Order: graphql.Desc}).
		Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to query sessions: %w", err)
	}

	var sessions []SessionSummary
	if get, ok := resp.Data["Get"].(map[string]interface{}); ok {
		if rows, ok := get["ChatSession"].([]interface{}); ok {
			for _, row := range rows {
				obj, ok := row.(map[string]interface{})
				if !ok {
					continue
				}
				summary := SessionSummary{}
				summary.SessionID, _ = obj["session_id"].(string)
				summary.UserID, _ = obj["user_id"].(string)
				summary.Agent, _ = obj["agent"].(string)
				if ts, ok := obj["timestamp"].(float64); ok {
					summary.Timestamp = int64(ts)
				}
				sessions = append(sessions, summary)
			}
		}
	}
	return sessions, nil
}

// DeleteSessionData removes the session's answer log and its index entry.
func (s *Store) DeleteSessionData(ctx context.Context, sessionID string) error {
	where := filters.Where().
		WithPath([]string{"session_id"}).
		WithOperator(filters.Equal).
		WithValueString(sessionID)

	for _, class := range []string{"PhaseResponse", "ChatSession"} {
		_, err := s.client.Batch().ObjectsBatchDeleter().
			WithClassName(class).
			WithOutput("minimal").
			WithWhere(where).
			Do(ctx)
		if err != nil {
			return fmt.Errorf("failed to delete %s objects for session %s: %w", class, sessionID, err)
		}
	}
	slog.Info("Deleted stored data for session", "sessionId", sessionID)
	return nil
}
