// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package session

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// SweeperConfig holds configuration for the idle-session sweeper.
type SweeperConfig struct {
	// Interval is how often idle sessions are swept.
	Interval time.Duration
	// IdleTimeout is how long a session may sit without a turn before it
	// is released. Its persisted data is untouched; only the in-memory
	// conversation is dropped.
	IdleTimeout time.Duration
}

// DefaultSweeperConfig returns production defaults: sweep every five
// minutes, release after thirty idle minutes.
func DefaultSweeperConfig() SweeperConfig {
	return SweeperConfig{
		Interval:    5 * time.Minute,
		IdleTimeout: 30 * time.Minute,
	}
}

// Sweeper periodically releases idle sessions from a Registry. Uses the
// ticker + done channel pattern for graceful shutdown.
type Sweeper struct {
	registry *Registry
	config   SweeperConfig
	done     chan struct{}
	mu       sync.Mutex
	running  bool
}

func NewSweeper(registry *Registry, config SweeperConfig) *Sweeper {
	return &Sweeper{
		registry: registry,
		config:   config,
		done:     make(chan struct{}),
	}
}

// Start begins the background sweep loop. It returns an error if the
// sweeper is already running; the loop stops when Stop is called or the
// context is cancelled.
func (s *Sweeper) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return fmt.Errorf("sweeper is already running")
	}
	s.running = true
	s.done = make(chan struct{})
	s.mu.Unlock()

	slog.Info("Idle session sweeper starting",
		"interval", s.config.Interval.String(),
		"idle_timeout", s.config.IdleTimeout.String(),
	)

	go s.runLoop(ctx)
	return nil
}

// Stop signals the sweep loop to exit. Safe to call multiple times.
func (s *Sweeper) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return nil
	}
	slog.Info("Idle session sweeper stopping")
	close(s.done)
	s.running = false
	return nil
}

// RunNow performs one sweep immediately and returns the number of
// sessions released.
func (s *Sweeper) RunNow() int {
	released := s.registry.releaseIdle(time.Now().Add(-s.config.IdleTimeout))
	if len(released) > 0 {
		slog.Info("Released idle sessions", "count", len(released), "session_ids", released)
	}
	return len(released)
}

func (s *Sweeper) runLoop(ctx context.Context) {
	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("Idle session sweeper stopped (context cancelled)")
			return
		case <-s.done:
			slog.Info("Idle session sweeper stopped (stop requested)")
			return
		case <-ticker.C:
			s.RunNow()
		}
	}
}
