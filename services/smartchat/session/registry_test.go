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
	"sync"
	"testing"
	"time"

	"github.com/jinterlante1206/TIASmartChat/services/smartchat/datatypes"
)

func TestRegistry_GetOrCreate(t *testing.T) {
	t.Run("same id yields the same entry", func(t *testing.T) {
		r := NewRegistry()

		first, id, created := r.GetOrCreate("sess-1", "user-1")
		if !created {
			t.Error("first call should create")
		}
		if id != "sess-1" {
			t.Errorf("id rewritten to %q", id)
		}

		second, _, created := r.GetOrCreate("sess-1", "someone-else")
		if created {
			t.Error("second call should find the existing session")
		}
		if first != second {
			t.Error("calls returned distinct entries for one id")
		}
		if second.State.UserID != "user-1" {
			t.Errorf("existing session's user was overwritten: %q", second.State.UserID)
		}
	})

	t.Run("blank id gets a synthesized uuid", func(t *testing.T) {
		r := NewRegistry()
		_, id1, _ := r.GetOrCreate("", "u")
		_, id2, _ := r.GetOrCreate("", "u")
		if id1 == "" || id2 == "" {
			t.Fatal("expected synthesized ids")
		}
		if id1 == id2 {
			t.Errorf("two blank-id sessions collided on %q", id1)
		}
		if r.Len() != 2 {
			t.Errorf("expected 2 sessions, got %d", r.Len())
		}
	})

	t.Run("fresh session state", func(t *testing.T) {
		r := NewRegistry()
		entry, _, _ := r.GetOrCreate("sess-1", "user-1")
		if entry.State.ChatState != datatypes.ChatStateChat {
			t.Errorf("fresh session chat state: %q", entry.State.ChatState)
		}
		if entry.State.ProfileState != datatypes.ProfileStateUnknown {
			t.Errorf("fresh session profile state: %q", entry.State.ProfileState)
		}
		if entry.State.ActiveAgent != "" {
			t.Errorf("fresh session has an active agent: %q", entry.State.ActiveAgent)
		}
	})

	t.Run("concurrent creates converge on one entry", func(t *testing.T) {
		r := NewRegistry()
		const n = 32
		entries := make([]*Entry, n)
		var wg sync.WaitGroup
		for i := 0; i < n; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				entries[i], _, _ = r.GetOrCreate("shared", "u")
			}(i)
		}
		wg.Wait()

		for i := 1; i < n; i++ {
			if entries[i] != entries[0] {
				t.Fatal("concurrent GetOrCreate returned distinct entries")
			}
		}
		if r.Len() != 1 {
			t.Errorf("expected a single session, got %d", r.Len())
		}
	})
}

func TestRegistry_Release(t *testing.T) {
	r := NewRegistry()
	r.GetOrCreate("sess-1", "u")

	if !r.Release("sess-1") {
		t.Error("release of a live session should report true")
	}
	if r.Release("sess-1") {
		t.Error("double release should report false")
	}
	if _, ok := r.Get("sess-1"); ok {
		t.Error("released session still resolvable")
	}

	// A new session under the released id is a fresh conversation.
	entry, _, created := r.GetOrCreate("sess-1", "u")
	if !created {
		t.Error("expected a fresh session after release")
	}
	if _, ok := entry.Assistant(datatypes.AgentVision); ok {
		t.Error("fresh session inherited an assistant")
	}
}

func TestRegistry_ReleaseIdle(t *testing.T) {
	r := NewRegistry()
	r.GetOrCreate("old", "u")
	r.GetOrCreate("busy", "u")

	// Age both, then touch one.
	r.mu.Lock()
	for _, e := range r.entries {
		e.lastActive = time.Now().Add(-time.Hour)
	}
	r.mu.Unlock()
	r.Get("busy")

	released := r.releaseIdle(time.Now().Add(-30 * time.Minute))
	if len(released) != 1 || released[0] != "old" {
		t.Errorf("expected only the idle session to go, got %v", released)
	}
	if _, ok := r.Get("busy"); !ok {
		t.Error("recently active session was swept")
	}
}

func TestRegistry_ReleaseIdleSkipsLockedEntries(t *testing.T) {
	r := NewRegistry()
	entry, _, _ := r.GetOrCreate("in-flight", "u")
	r.mu.Lock()
	entry.lastActive = time.Now().Add(-time.Hour)
	r.mu.Unlock()

	entry.Lock()
	released := r.releaseIdle(time.Now())
	entry.Unlock()

	if len(released) != 0 {
		t.Errorf("swept a session with a turn in flight: %v", released)
	}
	if _, ok := r.Get("in-flight"); !ok {
		t.Error("locked session disappeared")
	}
}

func TestSweeper(t *testing.T) {
	r := NewRegistry()
	r.GetOrCreate("stale", "u")
	r.mu.Lock()
	r.entries["stale"].lastActive = time.Now().Add(-time.Hour)
	r.mu.Unlock()

	s := NewSweeper(r, SweeperConfig{Interval: time.Hour, IdleTimeout: 30 * time.Minute})
	if n := s.RunNow(); n != 1 {
		t.Errorf("RunNow released %d sessions, want 1", n)
	}

	t.Run("double start rejected", func(t *testing.T) {
		if err := s.Start(t.Context()); err != nil {
			t.Fatalf("first start failed: %v", err)
		}
		defer s.Stop()
		if err := s.Start(t.Context()); err == nil {
			t.Error("second start should fail")
		}
	})

	t.Run("stop is idempotent", func(t *testing.T) {
		if err := s.Stop(); err != nil {
			t.Errorf("stop failed: %v", err)
		}
		if err := s.Stop(); err != nil {
			t.Errorf("repeated stop failed: %v", err)
		}
	})
}
