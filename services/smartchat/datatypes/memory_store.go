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
	"sync"
	"time"
)

// MemoryStore is the lightweight-mode stand-in for the weaviate Store:
// same surface, process-local maps, nothing survives a restart. Used
// when no weaviate deployment is configured, and by tests.
type MemoryStore struct {
	mu       sync.Mutex
	sessions []SessionSummary
	logs     map[string][]AnswerRecord
	profiles map[string][]*Profile
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		logs:     make(map[string][]AnswerRecord),
		profiles: make(map[string][]*Profile),
	}
}

func (m *MemoryStore) SaveSession(_ context.Context, sessionID, userID string, agent AgentName) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions = append(m.sessions, SessionSummary{
		SessionID: sessionID,
		UserID:    userID,
		Agent:     string(agent),
		Timestamp: time.Now().UnixMilli(),
	})
	return nil
}

func (m *MemoryStore) SaveAnswerLog(_ context.Context, sessionID, _ string, _ AgentName, log []AnswerRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.logs[sessionID] = append(m.logs[sessionID], log...)
	return nil
}

func (m *MemoryStore) SaveProfile(_ context.Context, profile *Profile) error {
	profile.Clamp()
	m.mu.Lock()
	defer m.mu.Unlock()
	m.profiles[profile.UserID] = append(m.profiles[profile.UserID], profile)
	return nil
}

// FetchProfile returns the newest stored profile for the user.
func (m *MemoryStore) FetchProfile(_ context.Context, userID string) (*Profile, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored := m.profiles[userID]
	if len(stored) == 0 {
		return nil, false, nil
	}
	return stored[len(stored)-1], true, nil
}

func (m *MemoryStore) ListSessions(_ context.Context) ([]SessionSummary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]SessionSummary, len(m.sessions))
	copy(out, m.sessions)
	return out, nil
}

func (m *MemoryStore) DeleteSessionData(_ context.Context, sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.logs, sessionID)
	kept := m.sessions[:0]
	for _, s := range m.sessions {
		if s.SessionID != sessionID {
			kept = append(kept, s)
		}
	}
	m.sessions = kept
	return nil
}
