// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package assistant implements the phase-driven conversation state
// machine behind the TIA chat agents. An Assistant walks an ordered list
// of phase prompts, holding a per-phase transcript that is cleared at
// every transition and an append-only answer log that is not, and
// advances when the completion backend emits the phase sentinel.
package assistant

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/jinterlante1206/TIASmartChat/services/llm"
	"github.com/jinterlante1206/TIASmartChat/services/smartchat/datatypes"
	"github.com/jinterlante1206/TIASmartChat/services/smartchat/prompts"
)

// terminationKeywords end the conversation immediately when a user turn,
// lowercased and trimmed, equals one of them. Matching happens before
// the turn is recorded or sent to the backend.
var terminationKeywords = map[string]struct{}{
	"quit":        {},
	"exit":        {},
	"bye":         {},
	"end session": {},
	"reset":       {},
}

// IsTerminationKeyword reports whether the message is an exact
// termination keyword (case-insensitive, surrounding whitespace
// ignored). A keyword appearing inside a longer sentence does not count.
func IsTerminationKeyword(message string) bool {
	_, ok := terminationKeywords[strings.ToLower(strings.TrimSpace(message))]
	return ok
}

// kickoffInstruction is the synthetic user turn used when a reply must
// be generated without any accumulated transcript: the opening turn of a
// phase that follows a transition.
const kickoffInstruction = "The previous part of our conversation just wrapped up. Briefly introduce what comes next and ask the first question."

// LogSink persists a finished or terminated conversation's answer log.
// The weaviate Store satisfies this; tests use an in-memory recorder.
type LogSink interface {
	SaveAnswerLog(ctx context.Context, sessionID, userID string, agent datatypes.AgentName, records []datatypes.AnswerRecord) error
}

// Config wires one Assistant.
type Config struct {
	SessionID string
	UserID    string
	Agent     datatypes.AgentName

	// Prompts is the agent's conversation program. At least one phase is
	// required.
	Prompts prompts.Set

	// Gateway is the completion backend. Required.
	Gateway llm.CompletionClient

	// Sink receives the answer log when the conversation ends. Optional;
	// nil means the log is held in memory only.
	Sink LogSink

	// Params are passed through to every gateway call.
	Params llm.GenerationParams
}

// Assistant is one session's conversation state machine for a single
// agent. It is not safe for concurrent use; the session registry
// serializes turns per session.
type Assistant struct {
	sessionID string
	userID    string
	agent     datatypes.AgentName
	prompts   prompts.Set
	gateway   llm.CompletionClient
	sink      LogSink
	params    llm.GenerationParams
	detector  SentinelDetector
	now       func() time.Time

	phase        int
	transcript   []llm.Message
	answerLog    []datatypes.AnswerRecord
	lastQuestion string
	closed       bool
	completed    bool
}

// New validates the configuration and returns a fresh assistant at
// phase 0 with an empty transcript and answer log.
func New(cfg Config) (*Assistant, error) {
	if len(cfg.Prompts.Phases) == 0 {
		return nil, ErrNoPhases
	}
	if cfg.Gateway == nil {
		return nil, ErrNoGateway
	}
	return &Assistant{
		sessionID: cfg.SessionID,
		userID:    cfg.UserID,
		agent:     cfg.Agent,
		prompts:   cfg.Prompts,
		gateway:   cfg.Gateway,
		sink:      cfg.Sink,
		params:    cfg.Params,
		detector:  NewSentinelDetector(prompts.Sentinel),
		now:       time.Now,
	}, nil
}

// Phase returns the current zero-based phase index. It only ever
// increases, by exactly one per transition.
func (a *Assistant) Phase() int { return a.phase }

// TotalPhases returns the length of the phase program.
func (a *Assistant) TotalPhases() int { return len(a.prompts.Phases) }

// TranscriptLen returns the number of messages accumulated since the
// last phase transition.
func (a *Assistant) TranscriptLen() int { return len(a.transcript) }

// Agent returns the agent this assistant speaks as.
func (a *Assistant) Agent() datatypes.AgentName { return a.agent }

// Closed reports whether the conversation has ended, by keyword or by
// completing the final phase.
func (a *Assistant) Closed() bool { return a.closed }

// Completed reports whether the final phase's sentinel was seen, as
// opposed to a user-initiated exit.
func (a *Assistant) Completed() bool { return a.completed }

// AnswerLog returns a copy of the accumulated answer records.
func (a *Assistant) AnswerLog() []datatypes.AnswerRecord {
	out := make([]datatypes.AnswerRecord, len(a.answerLog))
	copy(out, a.answerLog)
	return out
}

// HandleTurn processes one user turn and returns the user-facing result.
//
// Order of operations is deliberate: the termination check runs before
// anything is recorded, so "quit" as a first message leaves an empty
// answer log and never reaches the backend. A gateway failure rolls the
// user's message back off the transcript, so a retried turn sends the
// backend exactly the context the failed one did; the answer-log entry
// is kept, since the user did give that answer.
func (a *Assistant) HandleTurn(ctx context.Context, message string) (datatypes.TurnResult, error) {
	if a.closed {
		return datatypes.TurnResult{}, ErrSessionClosed
	}

	if IsTerminationKeyword(message) {
		a.closed = true
		a.flushAnswerLog(ctx)
		return datatypes.TurnResult{
			ChatState:   datatypes.ChatStateExit,
			Phase:       a.phase,
			TotalPhases: len(a.prompts.Phases),
		}, nil
	}

	a.answerLog = append(a.answerLog, datatypes.AnswerRecord{
		Phase:     a.phase,
		Question:  a.lastQuestion,
		Message:   message,
		Timestamp: a.now(),
	})

	a.transcript = append(a.transcript, llm.Message{Role: llm.RoleUser, Content: message})
	reply, err := a.gateway.Chat(ctx, a.prompts.Wrap(a.prompts.Phases[a.phase]), a.transcript, a.params)
	if err != nil {
		a.transcript = a.transcript[:len(a.transcript)-1]
		return datatypes.TurnResult{}, err
	}

	if !a.detector.Present(reply) {
		a.transcript = append(a.transcript, llm.Message{Role: llm.RoleAssistant, Content: reply})
		a.lastQuestion = reply
		return datatypes.TurnResult{
			Response:    reply,
			ChatState:   datatypes.ChatStateChat,
			Phase:       a.phase,
			TotalPhases: len(a.prompts.Phases),
		}, nil
	}

	clean := a.detector.Strip(reply)

	if a.phase < len(a.prompts.Phases)-1 {
		a.phase++
		a.transcript = nil

		response := clean
		if intro := a.phaseIntro(ctx); intro != "" {
			if response == "" {
				response = intro
			} else {
				response += "\n\n" + intro
			}
		}
		a.lastQuestion = response
		return datatypes.TurnResult{
			Response:    response,
			ChatState:   datatypes.ChatStateChat,
			Phase:       a.phase,
			TotalPhases: len(a.prompts.Phases),
		}, nil
	}

	// Final phase finished.
	a.transcript = nil
	a.lastQuestion = clean
	a.closed = true
	a.completed = true
	a.flushAnswerLog(ctx)
	return datatypes.TurnResult{
		Response:    clean,
		ChatState:   datatypes.ChatStateComplete,
		Phase:       a.phase,
		TotalPhases: len(a.prompts.Phases),
		Completed:   true,
	}, nil
}

// phaseIntro generates the opening message of the phase just entered.
// The transcript was cleared by the transition, so the call carries only
// the kickoff instruction; the reply is shown to the user but NOT stored,
// keeping the new phase's transcript empty until the user speaks. An
// intro is nice to have, so failure here degrades to an empty string
// rather than failing the turn that earned the transition.
func (a *Assistant) phaseIntro(ctx context.Context) string {
	intro, err := a.gateway.Chat(ctx,
		a.prompts.Wrap(a.prompts.Phases[a.phase]),
		[]llm.Message{{Role: llm.RoleUser, Content: kickoffInstruction}},
		a.params)
	if err != nil {
		slog.Warn("Phase intro generation failed, continuing without one",
			"session_id", a.sessionID, "agent", a.agent, "phase", a.phase, "error", err)
		return ""
	}
	return a.detector.Strip(intro)
}

// flushAnswerLog persists the answer log at end of conversation.
// Best effort: the in-memory log is the source of truth for the rest of
// the turn, and the profiler reads it from there, so a sink failure is
// logged and swallowed.
func (a *Assistant) flushAnswerLog(ctx context.Context) {
	if a.sink == nil || len(a.answerLog) == 0 {
		return
	}
	if err := a.sink.SaveAnswerLog(ctx, a.sessionID, a.userID, a.agent, a.answerLog); err != nil {
		slog.Error("Failed to persist answer log",
			"session_id", a.sessionID, "agent", a.agent, "records", len(a.answerLog), "error", err)
	}
}
