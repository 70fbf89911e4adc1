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

import "time"

// AnswerRecord is one entry of a phase assistant's append-only answer log:
// the question the assistant had just asked, the user's reply, and the
// phase both belong to. The log survives phase transitions (the transcript
// does not) and is the raw material for profile synthesis.
type AnswerRecord struct {
	Phase     int       `json:"phase"`
	Question  string    `json:"question"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// TurnResult is what a phase assistant reports back for one handled turn.
type TurnResult struct {
	// Response is the user-facing text for this turn. Empty when the turn
	// was a termination keyword.
	Response string `json:"response"`

	// ChatState after the turn: ChatStateChat while the conversation is in
	// progress, ChatStateExit on a user-initiated termination, and
	// ChatStateComplete once the final phase's sentinel was seen.
	ChatState ChatState `json:"chat_state"`

	// Phase is the assistant's phase index after the turn.
	Phase       int `json:"phase"`
	TotalPhases int `json:"total_phases"`

	// Completed is true only when the final phase's sentinel was detected,
	// as opposed to a user-initiated exit. The caller decides what
	// completion triggers (profile synthesis, recommendations); the
	// assistant only signals it.
	Completed bool `json:"completed"`
}

// Business is one recommended referral partner, from either the TIA graph
// service or the local-business web search.
type Business struct {
	Name         string  `json:"name"`
	BusinessType string  `json:"business_type,omitempty"`
	Rating       float64 `json:"rating,omitempty"`
	Address      string  `json:"address,omitempty"`
	PhoneNumber  string  `json:"phone_number,omitempty"`
	Website      string  `json:"website,omitempty"`
	Email        string  `json:"email,omitempty"`
	// UserID is set for graph results that map to an existing TIA user.
	UserID string `json:"user_id,omitempty"`
}
