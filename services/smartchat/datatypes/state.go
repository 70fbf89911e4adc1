// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package datatypes holds the shared data model of the smartchat service:
// the per-session handoff state the coordinator and agents communicate
// through, answer-log records, generated profiles, and their weaviate
// persistence.
package datatypes

import "time"

// AgentName identifies which specialized agent owns the next turn.
type AgentName string

const (
	AgentVision   AgentName = "VisionAgent"
	AgentConnect  AgentName = "ConnectAgent"
	AgentProfiler AgentName = "ProfilerAgent"
)

// Valid reports whether the name is a routable conversational agent.
// ProfilerAgent is excluded: it is only ever entered by handoff, never
// requested directly by a caller.
func (a AgentName) Valid() bool {
	return a == AgentVision || a == AgentConnect
}

// ChatState tracks the lifecycle of the active sub-conversation.
type ChatState string

const (
	// ChatStateChat means the conversation is still taking turns.
	ChatStateChat ChatState = "chat"
	// ChatStateExit means the user ended the conversation early.
	ChatStateExit ChatState = "exit"
	// ChatStateComplete means the final phase finished via the sentinel.
	ChatStateComplete ChatState = "complete"
)

// ProfileState tracks how far profile synthesis has progressed for the
// session's user.
type ProfileState string

const (
	ProfileStateUnknown   ProfileState = "unknown"
	ProfileStateCollected ProfileState = "collected"
	ProfileStateGenerated ProfileState = "generated"
)

// SessionState is the shared handoff contract for one conversation
// session. Exactly one agent owns the next turn at any time; once
// ChatState leaves chat, no further turns may be routed to the assistant
// that set it.
//
// Each agent gets its own named sub-record rather than a free-form state
// bag, so an agent can only reach its own fields plus the shared handoff
// fields. The coordinator owns ActiveAgent; the dispatched agent owns
// ChatState; ProfileState is written by the coordinator on the agent's
// behalf when a vision conversation completes and by the profiler when
// synthesis finishes.
type SessionState struct {
	SessionID string    `json:"session_id"`
	UserID    string    `json:"user_id"`
	CreatedAt time.Time `json:"created_at"`

	ActiveAgent  AgentName    `json:"active_agent"`
	ChatState    ChatState    `json:"chat_state"`
	ProfileState ProfileState `json:"profile_state"`

	Vision   VisionState   `json:"vision"`
	Connect  ConnectState  `json:"connect"`
	Profiler ProfilerState `json:"profiler"`
}

// VisionState is the VisionAgent's sub-record.
type VisionState struct {
	CurrentPhase int `json:"current_phase"`
	TotalPhases  int `json:"total_phases"`
}

// ConnectState is the ConnectAgent's sub-record.
type ConnectState struct {
	CurrentPhase int `json:"current_phase"`
	TotalPhases  int `json:"total_phases"`
	// ConnectionType is the partner relationship the caller asked for
	// (complementary, alliance, mastermind, intelligent).
	ConnectionType string `json:"connection_type,omitempty"`
	// Source records where the last recommendation batch came from:
	// "graph" for existing TIA users, "web" for the business search.
	Source          string     `json:"source,omitempty"`
	Recommendations []Business `json:"recommendations,omitempty"`
}

// ProfilerState is the ProfilerAgent's sub-record.
type ProfilerState struct {
	GeneratedAt time.Time `json:"generated_at,omitzero"`
}

// NewSessionState returns the starting state for a fresh session: no
// active agent, an open chat, and an unknown profile.
func NewSessionState(sessionID, userID string) *SessionState {
	return &SessionState{
		SessionID:    sessionID,
		UserID:       userID,
		CreatedAt:    time.Now(),
		ChatState:    ChatStateChat,
		ProfileState: ProfileStateUnknown,
	}
}
