// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package llm provides the completion gateway used by the TIA Smart Chat
// agents: a system prompt plus a role-tagged transcript in, generated text
// out. Backends are selected at startup via SMARTCHAT_LLM_BACKEND.
package llm

import (
	"context"
	"fmt"
	"os"
)

// Role values for transcript messages.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one role-tagged entry of a conversation transcript.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type GenerationParams struct {
	Temperature *float32 `json:"temperature"`
	TopP        *float32 `json:"top_p"`
	MaxTokens   *int     `json:"max_tokens"`
	Stop        []string `json:"stop"`
}

// CompletionClient defines the standard interface for any completion backend.
//
// Chat sends the system context plus the transcript accumulated since the
// last phase transition and returns the generated assistant text. The call
// is synchronous and carries no internal retry or timeout; callers wrap it
// with their own context deadline.
type CompletionClient interface {
	Chat(ctx context.Context, system string, transcript []Message, params GenerationParams) (string, error)
}

// NewClientFromEnv builds the completion client named by
// SMARTCHAT_LLM_BACKEND ("openai" or "ollama", defaulting to openai).
func NewClientFromEnv() (CompletionClient, error) {
	backend := os.Getenv("SMARTCHAT_LLM_BACKEND")
	switch backend {
	case "", "openai":
		return NewOpenAIClient()
	case "ollama":
		return NewOllamaClient()
	default:
		return nil, fmt.Errorf("unknown SMARTCHAT_LLM_BACKEND %q", backend)
	}
}
