// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package session keeps the live conversation sessions: handoff state,
// the assistants spun up for each agent, and the per-session lock that
// serializes turns. Sessions live in memory; the weaviate store only
// sees them at end of conversation.
package session

import (
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jinterlante1206/TIASmartChat/services/smartchat/assistant"
	"github.com/jinterlante1206/TIASmartChat/services/smartchat/datatypes"
)

// Entry is one live session. Callers must hold the entry lock while
// reading or mutating State or the assistants; the lock is what gives
// each session a single writer without a registry-wide stall.
type Entry struct {
	mu         sync.Mutex
	State      *datatypes.SessionState
	assistants map[datatypes.AgentName]*assistant.Assistant
	lastActive time.Time
}

// Lock serializes turn handling for this session.
func (e *Entry) Lock() { e.mu.Lock() }

// Unlock releases the session for the next turn.
func (e *Entry) Unlock() { e.mu.Unlock() }

// Assistant returns the session's assistant for the agent, if one has
// been started. Caller must hold the entry lock.
func (e *Entry) Assistant(agent datatypes.AgentName) (*assistant.Assistant, bool) {
	a, ok := e.assistants[agent]
	return a, ok
}

// SetAssistant installs the agent's assistant. Caller must hold the
// entry lock.
func (e *Entry) SetAssistant(agent datatypes.AgentName, a *assistant.Assistant) {
	e.assistants[agent] = a
}

// DropAssistant removes the agent's assistant, used when a conversation
// is reset so the next turn starts a fresh one. Caller must hold the
// entry lock.
func (e *Entry) DropAssistant(agent datatypes.AgentName) {
	delete(e.assistants, agent)
}

// Registry is the in-memory session index. The registry lock only
// guards the index itself; turn handling happens under the per-entry
// lock, so concurrent turns for different sessions never contend.
type Registry struct {
	mu      sync.Mutex
	entries map[string]*Entry
}

func NewRegistry() *Registry {
	return &Registry{entries: make(map[string]*Entry)}
}

// GetOrCreate returns the session for the given id, creating it when it
// does not exist. A blank sessionID gets a synthesized uuid. Two
// concurrent calls with the same id observe the same entry; the second
// caller's userID is ignored when the session already exists.
func (r *Registry) GetOrCreate(sessionID, userID string) (*Entry, string, bool) {
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if entry, ok := r.entries[sessionID]; ok {
		entry.lastActive = time.Now()
		return entry, sessionID, false
	}

	entry := &Entry{
		State:      datatypes.NewSessionState(sessionID, userID),
		assistants: make(map[datatypes.AgentName]*assistant.Assistant),
		lastActive: time.Now(),
	}
	r.entries[sessionID] = entry
	slog.Info("Created session", "sessionId", sessionID, "userId", userID)
	return entry, sessionID, true
}

// Get returns the session without creating one.
func (r *Registry) Get(sessionID string) (*Entry, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry, ok := r.entries[sessionID]
	if ok {
		entry.lastActive = time.Now()
	}
	return entry, ok
}

// Release drops the session from the index. In-flight turns holding the
// entry lock finish against the detached entry; later lookups miss.
func (r *Registry) Release(sessionID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.entries[sessionID]; !ok {
		return false
	}
	delete(r.entries, sessionID)
	slog.Info("Released session", "sessionId", sessionID)
	return true
}

// Len returns the number of live sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// SessionIDs returns a snapshot of the live session ids.
func (r *Registry) SessionIDs() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := make([]string, 0, len(r.entries))
	for id := range r.entries {
		ids = append(ids, id)
	}
	return ids
}

// releaseIdle drops sessions whose last activity is older than cutoff.
// A session whose entry lock is held (a turn in flight) is skipped and
// picked up on a later sweep.
func (r *Registry) releaseIdle(cutoff time.Time) []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	var released []string
	for id, entry := range r.entries {
		if entry.lastActive.After(cutoff) {
			continue
		}
		if !entry.mu.TryLock() {
			continue
		}
		entry.mu.Unlock()
		delete(r.entries, id)
		released = append(released, id)
	}
	return released
}
