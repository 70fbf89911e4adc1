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
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/jinterlante1206/TIASmartChat/services/llm"
)

type stubGateway struct {
	reply string
	err   error
	calls int
}

func (g *stubGateway) Chat(_ context.Context, _ string, _ []llm.Message, _ llm.GenerationParams) (string, error) {
	g.calls++
	return g.reply, g.err
}

func TestNilMetricsAreSafe(t *testing.T) {
	var m *ChatMetrics
	m.ObserveTurn("VisionAgent", "success")
	m.ObservePhaseTransition("VisionAgent")
	m.ObserveHandoff("reset")
	m.ObserveGateway("openai", "success", 0)
}

func TestInstrumentGateway(t *testing.T) {
	t.Run("records success and error round-trips", func(t *testing.T) {
		reg := prometheus.NewRegistry()
		m := newChatMetrics(reg, func() int { return 0 })

		inner := &stubGateway{reply: "hello"}
		gw := InstrumentGateway(inner, "openai", m)

		reply, err := gw.Chat(context.Background(), "sys", nil, llm.GenerationParams{})
		if err != nil || reply != "hello" {
			t.Fatalf("wrapped call mangled the result: %q, %v", reply, err)
		}

		inner.err = &llm.GenerationError{Backend: "openai", Err: errors.New("down")}
		if _, err := gw.Chat(context.Background(), "sys", nil, llm.GenerationParams{}); !llm.IsGenerationError(err) {
			t.Fatalf("wrapped call lost the error type: %v", err)
		}

		// One series per backend/status pair: success and error.
		if got := testutil.CollectAndCount(reg, "smartchat_gateway_duration_seconds"); got != 2 {
			t.Errorf("collected %d gateway series, want 2", got)
		}
		if inner.calls != 2 {
			t.Errorf("inner gateway called %d times, want 2", inner.calls)
		}
	})

	t.Run("nil metrics return the client unwrapped", func(t *testing.T) {
		inner := &stubGateway{}
		if got := InstrumentGateway(inner, "openai", nil); got != llm.CompletionClient(inner) {
			t.Error("expected the inner client back")
		}
	})
}
