// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package observability provides Prometheus metrics for the smartchat
// service: turn counters, phase transitions, gateway latency, handoffs,
// and the live-session gauge. Metrics are exposed on /metrics; all
// operations are thread-safe via Prometheus's internal locking.
package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const metricsNamespace = "smartchat"

// ChatMetrics holds all Prometheus metrics for conversation handling.
// Initialize once at startup via NewChatMetrics().
type ChatMetrics struct {
	// TurnsTotal counts handled turns.
	// Labels: agent (VisionAgent, ConnectAgent), status (success, error, closed)
	TurnsTotal *prometheus.CounterVec

	// PhaseTransitionsTotal counts sentinel-driven phase advances.
	// Labels: agent
	PhaseTransitionsTotal *prometheus.CounterVec

	// HandoffsTotal counts agent handoffs made by the coordinator.
	// Labels: to_agent (ProfilerAgent, ConnectAgent, reset)
	HandoffsTotal *prometheus.CounterVec

	// GatewayDurationSeconds measures completion gateway round-trips.
	// Labels: backend, status
	GatewayDurationSeconds *prometheus.HistogramVec

	// ActiveSessions gauges the live sessions held by the registry.
	ActiveSessions prometheus.GaugeFunc
}

// NewChatMetrics registers and returns the service metrics. sessionCount
// feeds the live-session gauge; it is read at scrape time and must be
// safe for concurrent use.
func NewChatMetrics(sessionCount func() int) *ChatMetrics {
	return newChatMetrics(prometheus.DefaultRegisterer, sessionCount)
}

func newChatMetrics(reg prometheus.Registerer, sessionCount func() int) *ChatMetrics {
	factory := promauto.With(reg)
	return &ChatMetrics{
		TurnsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "turns_total",
				Help:      "Total conversation turns handled, by agent and status.",
			},
			[]string{"agent", "status"},
		),
		PhaseTransitionsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "phase_transitions_total",
				Help:      "Total phase advances driven by sentinel detection.",
			},
			[]string{"agent"},
		),
		HandoffsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "handoffs_total",
				Help:      "Total agent handoffs decided by the coordinator.",
			},
			[]string{"to_agent"},
		),
		GatewayDurationSeconds: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Name:      "gateway_duration_seconds",
				Help:      "Completion gateway round-trip latency.",
				Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
			},
			[]string{"backend", "status"},
		),
		ActiveSessions: factory.NewGaugeFunc(
			prometheus.GaugeOpts{
				Namespace: metricsNamespace,
				Name:      "active_sessions",
				Help:      "Live conversation sessions held in memory.",
			},
			func() float64 { return float64(sessionCount()) },
		),
	}
}

// ObserveTurn records one handled turn.
func (m *ChatMetrics) ObserveTurn(agent, status string) {
	if m == nil {
		return
	}
	m.TurnsTotal.WithLabelValues(agent, status).Inc()
}

// ObservePhaseTransition records a phase advance for the agent.
func (m *ChatMetrics) ObservePhaseTransition(agent string) {
	if m == nil {
		return
	}
	m.PhaseTransitionsTotal.WithLabelValues(agent).Inc()
}

// ObserveHandoff records a coordinator handoff decision.
func (m *ChatMetrics) ObserveHandoff(toAgent string) {
	if m == nil {
		return
	}
	m.HandoffsTotal.WithLabelValues(toAgent).Inc()
}

// ObserveGateway records one completion gateway round-trip.
func (m *ChatMetrics) ObserveGateway(backend, status string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.GatewayDurationSeconds.WithLabelValues(backend, status).Observe(elapsed.Seconds())
}
