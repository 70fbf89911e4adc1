// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package profiler turns a completed vision conversation's answer log
// into a structured user profile. It is not conversational: one
// extraction call against the completion backend, one write to the
// store, no user-facing output.
package profiler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jinterlante1206/TIASmartChat/services/llm"
	"github.com/jinterlante1206/TIASmartChat/services/smartchat/datatypes"
)

// ErrEmptyHistory is returned when there are no answers to profile.
var ErrEmptyHistory = errors.New("profiler: no conversation history to profile")

// ErrUnparsableProfile is returned when the backend's output cannot be
// read as a profile object even after cleanup.
var ErrUnparsableProfile = errors.New("profiler: backend output is not a profile")

// ProfileStore is the persistence surface the profiler needs.
type ProfileStore interface {
	SaveProfile(ctx context.Context, profile *datatypes.Profile) error
	FetchProfile(ctx context.Context, userID string) (*datatypes.Profile, bool, error)
}

// Profiler extracts and persists user profiles.
type Profiler struct {
	gateway llm.CompletionClient
	store   ProfileStore
	params  llm.GenerationParams
}

func New(gateway llm.CompletionClient, store ProfileStore) *Profiler {
	temp := float32(0.1)
	return &Profiler{
		gateway: gateway,
		store:   store,
		// Extraction wants determinism, not creativity.
		params: llm.GenerationParams{Temperature: &temp},
	}
}

// extractionPrompt instructs the backend to fill the profile schema from
// the question/answer pairs. Field names match the persisted schema; the
// 100-character ceiling is the downstream database column limit.
const extractionPrompt = `You are given question/answer pairs from a conversation between an assistant and a business owner. Extract the following fields into a JSON object. Keep every field under 100 characters; summarize or truncate where needed. Use only what the user actually said; leave a field as an empty string when the conversation gives you nothing for it. Respond with the JSON object only, no surrounding text.

Fields:
- Business_Name: the user's main business idea or what their company does
- Business_Type: the type of business
- UserJob: the user's job title or role
- User_Strength: the user's main strength, value, or unique impact
- User_skills: the user's skills as short comma-separated phrases (top 3-5)
- Business_Strength: the strength of the business or job-related capabilities
- Business_Skills: the skills related to the business
- Business_Category: a single category for the business
- Skill_Category: a single category for the skills
- Strength_Category: a single category for the strengths`

// HasProfile reports whether a generated profile already exists for the
// user. Read-only; used by the coordinator's pre-turn routing check.
func (p *Profiler) HasProfile(ctx context.Context, userID string) (bool, error) {
	_, found, err := p.store.FetchProfile(ctx, userID)
	if err != nil {
		return false, fmt.Errorf("profile lookup for user %s failed: %w", userID, err)
	}
	return found, nil
}

// Fetch returns the user's most recent stored profile, if any.
func (p *Profiler) Fetch(ctx context.Context, userID string) (*datatypes.Profile, bool, error) {
	return p.store.FetchProfile(ctx, userID)
}

// Generate extracts a profile from the answer log and persists it.
// Returns the stored profile. The answer log must be non-empty; an
// extraction the backend could not ground in the conversation still
// persists (empty fields are allowed downstream), but unparsable output
// does not.
func (p *Profiler) Generate(ctx context.Context, userID string, history []datatypes.AnswerRecord) (*datatypes.Profile, error) {
	if len(history) == 0 {
		return nil, ErrEmptyHistory
	}

	start := time.Now()
	raw, err := p.gateway.Chat(ctx, extractionPrompt,
		[]llm.Message{{Role: llm.RoleUser, Content: renderHistory(history)}},
		p.params)
	if err != nil {
		return nil, fmt.Errorf("profile extraction for user %s failed: %w", userID, err)
	}

	profile, err := parseProfile(raw)
	if err != nil {
		return nil, err
	}
	profile.UserID = userID
	profile.Clamp()

	if err := p.store.SaveProfile(ctx, profile); err != nil {
		return nil, fmt.Errorf("failed to persist profile for user %s: %w", userID, err)
	}

	slog.Info("Generated user profile",
		"userId", userID,
		"answers", len(history),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return profile, nil
}

// renderHistory flattens the answer log into the numbered Q/A text the
// extraction prompt expects.
func renderHistory(history []datatypes.AnswerRecord) string {
	var b strings.Builder
	for i, rec := range history {
		fmt.Fprintf(&b, "%d. Question: %s\n   Answer: %s\n", i+1, rec.Question, rec.Message)
	}
	return b.String()
}

// parseProfile reads the backend output as a profile object, tolerating
// a markdown code fence around the JSON.
func parseProfile(raw string) (*datatypes.Profile, error) {
	cleaned := strings.TrimSpace(raw)
	cleaned = strings.TrimPrefix(cleaned, "```json")
	cleaned = strings.TrimPrefix(cleaned, "```")
	cleaned = strings.TrimSuffix(cleaned, "```")
	cleaned = strings.TrimSpace(cleaned)

	// Models sometimes wrap the object in prose despite instructions;
	// take the outermost braces.
	if start := strings.Index(cleaned, "{"); start >= 0 {
		if end := strings.LastIndex(cleaned, "}"); end > start {
			cleaned = cleaned[start : end+1]
		}
	}

	var profile datatypes.Profile
	if err := json.Unmarshal([]byte(cleaned), &profile); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnparsableProfile, err)
	}
	return &profile, nil
}
