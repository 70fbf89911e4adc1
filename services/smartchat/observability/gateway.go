// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package observability

import (
	"context"
	"time"

	"github.com/jinterlante1206/TIASmartChat/services/llm"
)

// instrumentedGateway times every completion call so the latency
// histogram covers exactly the gateway round-trip, nothing more.
type instrumentedGateway struct {
	inner   llm.CompletionClient
	backend string
	metrics *ChatMetrics
}

// InstrumentGateway wraps a completion client so each Chat call is
// recorded in the gateway duration histogram under the given backend
// label. A nil metrics handle returns the client unwrapped.
func InstrumentGateway(inner llm.CompletionClient, backend string, metrics *ChatMetrics) llm.CompletionClient {
	if metrics == nil {
		return inner
	}
	return &instrumentedGateway{inner: inner, backend: backend, metrics: metrics}
}

func (g *instrumentedGateway) Chat(ctx context.Context, system string, transcript []llm.Message, params llm.GenerationParams) (string, error) {
	start := time.Now()
	reply, err := g.inner.Chat(ctx, system, transcript, params)
	status := "success"
	if err != nil {
		status = "error"
	}
	g.metrics.ObserveGateway(g.backend, status, time.Since(start))
	return reply, err
}
