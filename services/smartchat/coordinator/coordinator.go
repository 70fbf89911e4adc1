// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package coordinator routes inbound turns to the agent that owns them
// and drives the handoff protocol over the shared session state. The
// coordinator never touches an assistant's internal phase machinery;
// it only reads the handoff fields the assistant reports and decides
// who speaks next.
package coordinator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jinterlante1206/TIASmartChat/services/llm"
	"github.com/jinterlante1206/TIASmartChat/services/smartchat/assistant"
	"github.com/jinterlante1206/TIASmartChat/services/smartchat/connect"
	"github.com/jinterlante1206/TIASmartChat/services/smartchat/datatypes"
	"github.com/jinterlante1206/TIASmartChat/services/smartchat/observability"
	"github.com/jinterlante1206/TIASmartChat/services/smartchat/prompts"
	"github.com/jinterlante1206/TIASmartChat/services/smartchat/session"
)

var (
	// ErrMissingState is returned when a turn arrives without the state
	// the coordinator needs to route it. Surfaces to the user as a
	// "please restart" condition.
	ErrMissingState = errors.New("coordinator: missing required state")

	// ErrUnknownAgent is returned when a caller requests an agent that
	// cannot be routed to directly.
	ErrUnknownAgent = errors.New("coordinator: unknown agent")

	// ErrUnknownConnectionType is returned when a caller requests a
	// partner relationship the graph service does not understand.
	ErrUnknownConnectionType = errors.New("coordinator: unknown connection type")
)

// resetHandoff labels the "session reset" outcome in the handoff metric.
const resetHandoff = "reset"

// ProfileService is the profiler surface the coordinator drives.
type ProfileService interface {
	HasProfile(ctx context.Context, userID string) (bool, error)
	Generate(ctx context.Context, userID string, history []datatypes.AnswerRecord) (*datatypes.Profile, error)
	Fetch(ctx context.Context, userID string) (*datatypes.Profile, bool, error)
}

// RecommendService resolves referral recommendations after a connect
// conversation completes.
type RecommendService interface {
	Recommend(ctx context.Context, userID, connectionType string, profile *datatypes.Profile) (*connect.Result, error)
}

// SessionSink records session metadata when a conversation starts.
type SessionSink interface {
	SaveSession(ctx context.Context, sessionID, userID string, agent datatypes.AgentName) error
}

// Config wires a Coordinator.
type Config struct {
	Registry    *session.Registry
	Gateway     llm.CompletionClient
	Profiles    ProfileService
	Recommender RecommendService
	Library     prompts.Library

	// LogSink receives assistants' answer logs at end of conversation.
	// Optional.
	LogSink assistant.LogSink
	// SessionSink records new sessions in the admin index. Optional.
	SessionSink SessionSink
	// Metrics may be nil; all observation calls tolerate that.
	Metrics *observability.ChatMetrics

	Params llm.GenerationParams
}

// Coordinator routes turns. Safe for concurrent use; per-session
// serialization comes from the registry's entry locks.
type Coordinator struct {
	cfg Config
}

func New(cfg Config) (*Coordinator, error) {
	if cfg.Registry == nil || cfg.Gateway == nil || cfg.Profiles == nil {
		return nil, fmt.Errorf("coordinator: registry, gateway, and profile service are required")
	}
	if len(cfg.Library.Vision.Phases) == 0 || len(cfg.Library.Connect.Phases) == 0 {
		return nil, fmt.Errorf("coordinator: prompt library has an empty phase list")
	}
	return &Coordinator{cfg: cfg}, nil
}

// TurnInput is one inbound message plus its routing hints.
type TurnInput struct {
	SessionID string
	UserID    string
	Message   string

	// Agent optionally names the conversation to start; defaults to the
	// vision flow for new users.
	Agent datatypes.AgentName

	// ConnectionType optionally names the partner relationship a connect
	// conversation should match on (complementary, alliance, mastermind,
	// intelligent). Empty defaults to complementary at recommendation
	// time.
	ConnectionType string
}

// TurnOutcome is the user-facing result of one routed turn.
type TurnOutcome struct {
	SessionID    string                  `json:"session_id"`
	Response     string                  `json:"response"`
	ActiveAgent  datatypes.AgentName     `json:"active_agent,omitempty"`
	ChatState    datatypes.ChatState     `json:"chat_state"`
	ProfileState datatypes.ProfileState  `json:"profile_state"`
	Phase        int                     `json:"phase"`
	TotalPhases  int                     `json:"total_phases"`
	Completed    bool                    `json:"completed"`

	// Populated only when a completed connect conversation produced
	// recommendations in the same turn.
	RecommendationSource string                  `json:"recommendation_source,omitempty"`
	Recommendations      []datatypes.Business    `json:"recommendations,omitempty"`
	EmailTemplates       []connect.EmailTemplate `json:"email_templates,omitempty"`
}

// decideAgent is the pure pre-turn routing decision: which agent owns a
// fresh session, given what the caller asked for and whether a profile
// already exists. A user with a generated profile skips the vision
// conversation.
func decideAgent(requested datatypes.AgentName, profileExists bool) datatypes.AgentName {
	if requested == "" {
		requested = datatypes.AgentVision
	}
	if profileExists && requested == datatypes.AgentVision {
		return datatypes.AgentConnect
	}
	return requested
}

// RouteTurn handles one inbound message end to end: resolve the
// session, decide the owning agent, dispatch, and apply the post-turn
// handoff protocol. A gateway failure is returned with the session
// state untouched, so resubmitting the same turn retries it.
func (c *Coordinator) RouteTurn(ctx context.Context, input TurnInput) (*TurnOutcome, error) {
	if input.UserID == "" || input.Message == "" {
		return nil, fmt.Errorf("%w: user_id and message are required", ErrMissingState)
	}
	if input.Agent != "" && !input.Agent.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrUnknownAgent, input.Agent)
	}
	if input.ConnectionType != "" && !connect.ValidConnectionType(input.ConnectionType) {
		return nil, fmt.Errorf("%w: %q", ErrUnknownConnectionType, input.ConnectionType)
	}

	entry, sessionID, created := c.cfg.Registry.GetOrCreate(input.SessionID, input.UserID)
	entry.Lock()
	defer entry.Unlock()
	state := entry.State

	if state.ActiveAgent == "" {
		if err := c.routeFreshSession(ctx, state, input.Agent, created); err != nil {
			return nil, err
		}
	}
	if input.ConnectionType != "" {
		state.Connect.ConnectionType = input.ConnectionType
	}

	asst, err := c.assistantFor(entry, state)
	if err != nil {
		return nil, err
	}

	phaseBefore := asst.Phase()
	result, err := asst.HandleTurn(ctx, input.Message)
	if err != nil {
		if errors.Is(err, assistant.ErrSessionClosed) {
			c.cfg.Metrics.ObserveTurn(string(state.ActiveAgent), "closed")
			return nil, err
		}
		// Generation failure: active_agent stays put so the same turn
		// can be retried by resubmission.
		c.cfg.Metrics.ObserveTurn(string(state.ActiveAgent), "error")
		return nil, err
	}
	c.cfg.Metrics.ObserveTurn(string(state.ActiveAgent), "success")
	if result.Phase > phaseBefore {
		c.cfg.Metrics.ObservePhaseTransition(string(state.ActiveAgent))
	}

	c.recordAgentProgress(state, result)

	outcome := &TurnOutcome{
		SessionID:    sessionID,
		Response:     result.Response,
		ActiveAgent:  state.ActiveAgent,
		ChatState:    result.ChatState,
		ProfileState: state.ProfileState,
		Phase:        result.Phase,
		TotalPhases:  result.TotalPhases,
		Completed:    result.Completed,
	}

	if result.ChatState != datatypes.ChatStateChat {
		c.handleTerminal(ctx, entry, state, asst, result, outcome)
		// Terminal state either way; the registry entry is released so
		// the next turn for this user starts a fresh session.
		c.cfg.Registry.Release(sessionID)
		c.cfg.Metrics.ObserveHandoff(resetHandoff)
		outcome.ActiveAgent = ""
	}

	outcome.ProfileState = state.ProfileState
	return outcome, nil
}

// Reset tears down a session on explicit user request.
func (c *Coordinator) Reset(ctx context.Context, sessionID string) bool {
	return c.cfg.Registry.Release(sessionID)
}

// routeFreshSession performs the one-shot profile existence check and
// pins the session's first agent. This is the only routing branch that
// depends on external data.
func (c *Coordinator) routeFreshSession(ctx context.Context, state *datatypes.SessionState, requested datatypes.AgentName, created bool) error {
	exists, err := c.cfg.Profiles.HasProfile(ctx, state.UserID)
	if err != nil {
		// Degrade to the no-profile route rather than blocking the
		// conversation on a storage hiccup.
		slog.Warn("Profile existence check failed, assuming none",
			"userId", state.UserID, "error", err)
		exists = false
	}
	if exists {
		state.ProfileState = datatypes.ProfileStateGenerated
	}

	state.ActiveAgent = decideAgent(requested, exists)
	slog.Info("Routed fresh session",
		"sessionId", state.SessionID,
		"userId", state.UserID,
		"agent", state.ActiveAgent,
		"profile_exists", exists,
	)

	if created && c.cfg.SessionSink != nil {
		if err := c.cfg.SessionSink.SaveSession(ctx, state.SessionID, state.UserID, state.ActiveAgent); err != nil {
			slog.Error("Failed to index session", "sessionId", state.SessionID, "error", err)
		}
	}
	return nil
}

// assistantFor returns the session's assistant for the active agent,
// constructing it on first use.
func (c *Coordinator) assistantFor(entry *session.Entry, state *datatypes.SessionState) (*assistant.Assistant, error) {
	if asst, ok := entry.Assistant(state.ActiveAgent); ok {
		return asst, nil
	}

	var set prompts.Set
	switch state.ActiveAgent {
	case datatypes.AgentVision:
		set = c.cfg.Library.Vision
	case datatypes.AgentConnect:
		set = c.cfg.Library.Connect
	default:
		return nil, fmt.Errorf("%w: no conversation program for %q", ErrUnknownAgent, state.ActiveAgent)
	}

	asst, err := assistant.New(assistant.Config{
		SessionID: state.SessionID,
		UserID:    state.UserID,
		Agent:     state.ActiveAgent,
		Prompts:   set,
		Gateway:   c.cfg.Gateway,
		Sink:      c.cfg.LogSink,
		Params:    c.cfg.Params,
	})
	if err != nil {
		return nil, err
	}
	entry.SetAssistant(state.ActiveAgent, asst)
	return asst, nil
}

// recordAgentProgress mirrors the assistant's reported progress into
// the agent's own sub-record of the shared state.
func (c *Coordinator) recordAgentProgress(state *datatypes.SessionState, result datatypes.TurnResult) {
	state.ChatState = result.ChatState
	switch state.ActiveAgent {
	case datatypes.AgentVision:
		state.Vision.CurrentPhase = result.Phase
		state.Vision.TotalPhases = result.TotalPhases
	case datatypes.AgentConnect:
		state.Connect.CurrentPhase = result.Phase
		state.Connect.TotalPhases = result.TotalPhases
	}
}

// handleTerminal applies the post-turn handoff protocol once an
// assistant reports a terminal state: completed vision conversations
// trigger profile synthesis in the same logical turn, completed connect
// conversations trigger the recommendation lookup, and a plain keyword
// exit just resets. Failures here are translated to user-visible notes;
// the conversation itself already ended successfully.
func (c *Coordinator) handleTerminal(ctx context.Context, entry *session.Entry, state *datatypes.SessionState, asst *assistant.Assistant, result datatypes.TurnResult, outcome *TurnOutcome) {
	defer entry.DropAssistant(state.ActiveAgent)

	if !result.Completed {
		if outcome.Response == "" {
			outcome.Response = "Session ended. Talk soon!"
		}
		return
	}

	switch state.ActiveAgent {
	case datatypes.AgentVision:
		state.ProfileState = datatypes.ProfileStateCollected
		c.cfg.Metrics.ObserveHandoff(string(datatypes.AgentProfiler))
		c.runProfiler(ctx, state, asst, outcome)
	case datatypes.AgentConnect:
		c.runRecommendations(ctx, state, outcome)
	}
}

// runProfiler executes the profile synthesis handoff.
func (c *Coordinator) runProfiler(ctx context.Context, state *datatypes.SessionState, asst *assistant.Assistant, outcome *TurnOutcome) {
	profile, err := c.cfg.Profiles.Generate(ctx, state.UserID, asst.AnswerLog())
	if err != nil {
		slog.Error("Profile synthesis failed",
			"sessionId", state.SessionID, "userId", state.UserID, "error", err)
		outcome.Response += "\n\nI couldn't finish building your profile just now; your answers are saved and we'll pick this up next time."
		return
	}

	state.ProfileState = datatypes.ProfileStateGenerated
	state.Profiler.GeneratedAt = time.Now()
	slog.Info("Profile synthesized on handoff",
		"sessionId", state.SessionID, "userId", state.UserID,
		"has_essentials", profile.HasEssentials())
}

// runRecommendations executes the referral-matching handoff.
func (c *Coordinator) runRecommendations(ctx context.Context, state *datatypes.SessionState, outcome *TurnOutcome) {
	if c.cfg.Recommender == nil {
		return
	}

	profile, found, err := c.cfg.Profiles.Fetch(ctx, state.UserID)
	if err != nil || !found {
		slog.Warn("No profile available for recommendations",
			"sessionId", state.SessionID, "userId", state.UserID, "error", err)
		profile = &datatypes.Profile{UserID: state.UserID}
	}

	connectionType := state.Connect.ConnectionType
	if connectionType == "" {
		connectionType = connect.ConnectionComplementary
	}

	res, err := c.cfg.Recommender.Recommend(ctx, state.UserID, connectionType, profile)
	if err != nil {
		slog.Error("Recommendation lookup failed",
			"sessionId", state.SessionID, "userId", state.UserID, "error", err)
		outcome.Response += "\n\nI couldn't find referral partners right now; please try again later."
		return
	}

	state.Connect.Source = res.Source
	state.Connect.Recommendations = res.Businesses
	outcome.RecommendationSource = res.Source
	outcome.Recommendations = res.Businesses

	templates, err := connect.GenerateEmailTemplates(ctx, c.cfg.Gateway, profile, res.Businesses)
	if err != nil {
		slog.Warn("Email template generation failed",
			"sessionId", state.SessionID, "error", err)
	}
	outcome.EmailTemplates = templates
	c.cfg.Metrics.ObserveHandoff(string(datatypes.AgentConnect))
}
