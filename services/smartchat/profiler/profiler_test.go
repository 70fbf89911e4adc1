// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package profiler

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/jinterlante1206/TIASmartChat/services/llm"
	"github.com/jinterlante1206/TIASmartChat/services/smartchat/datatypes"
)

type stubGateway struct {
	reply  string
	err    error
	system string
	input  string
}

func (g *stubGateway) Chat(_ context.Context, system string, transcript []llm.Message, _ llm.GenerationParams) (string, error) {
	g.system = system
	if len(transcript) > 0 {
		g.input = transcript[0].Content
	}
	return g.reply, g.err
}

type stubStore struct {
	saved    *datatypes.Profile
	saveErr  error
	existing *datatypes.Profile
	fetchErr error
}

func (s *stubStore) SaveProfile(_ context.Context, profile *datatypes.Profile) error {
	s.saved = profile
	return s.saveErr
}

func (s *stubStore) FetchProfile(_ context.Context, _ string) (*datatypes.Profile, bool, error) {
	return s.existing, s.existing != nil, s.fetchErr
}

func sampleHistory() []datatypes.AnswerRecord {
	return []datatypes.AnswerRecord{
		{Phase: 0, Question: "tell me about the business?", Message: "we build harbor software"},
		{Phase: 0, Question: "what is your role?", Message: "I am the founder and lead engineer"},
	}
}

func TestGenerate(t *testing.T) {
	t.Run("parses, clamps, persists", func(t *testing.T) {
		gw := &stubGateway{reply: `{"Business_Name":"Harbor software","UserJob":"` + strings.Repeat("x", 150) + `","User_skills":"Go, leadership"}`}
		store := &stubStore{}
		p := New(gw, store)

		profile, err := p.Generate(context.Background(), "user-1", sampleHistory())
		if err != nil {
			t.Fatalf("Generate failed: %v", err)
		}
		if profile.UserID != "user-1" {
			t.Errorf("user id not set: %q", profile.UserID)
		}
		if len(profile.UserJob) != 100 {
			t.Errorf("field not clamped, len=%d", len(profile.UserJob))
		}
		if store.saved != profile {
			t.Error("profile not handed to the store")
		}
		if !strings.Contains(gw.input, "we build harbor software") {
			t.Errorf("history not rendered into extraction input: %q", gw.input)
		}
		if !strings.Contains(gw.input, "what is your role?") {
			t.Errorf("questions missing from extraction input: %q", gw.input)
		}
	})

	t.Run("tolerates a code fence", func(t *testing.T) {
		gw := &stubGateway{reply: "```json\n{\"Business_Name\":\"Boats\",\"UserJob\":\"captain\"}\n```"}
		store := &stubStore{}
		p := New(gw, store)

		profile, err := p.Generate(context.Background(), "u", sampleHistory())
		if err != nil {
			t.Fatalf("Generate failed: %v", err)
		}
		if profile.BusinessName != "Boats" || profile.UserJob != "captain" {
			t.Errorf("unexpected profile: %+v", profile)
		}
	})

	t.Run("tolerates surrounding prose", func(t *testing.T) {
		gw := &stubGateway{reply: "Here is the profile:\n{\"UserJob\":\"captain\"}\nHope that helps!"}
		p := New(gw, &stubStore{})
		profile, err := p.Generate(context.Background(), "u", sampleHistory())
		if err != nil {
			t.Fatalf("Generate failed: %v", err)
		}
		if profile.UserJob != "captain" {
			t.Errorf("unexpected profile: %+v", profile)
		}
	})

	t.Run("empty history", func(t *testing.T) {
		p := New(&stubGateway{}, &stubStore{})
		if _, err := p.Generate(context.Background(), "u", nil); !errors.Is(err, ErrEmptyHistory) {
			t.Errorf("expected ErrEmptyHistory, got %v", err)
		}
	})

	t.Run("unparsable output", func(t *testing.T) {
		gw := &stubGateway{reply: "I could not find any profile information."}
		store := &stubStore{}
		p := New(gw, store)
		if _, err := p.Generate(context.Background(), "u", sampleHistory()); !errors.Is(err, ErrUnparsableProfile) {
			t.Errorf("expected ErrUnparsableProfile, got %v", err)
		}
		if store.saved != nil {
			t.Error("unparsable output must not be persisted")
		}
	})

	t.Run("gateway failure propagates", func(t *testing.T) {
		genErr := &llm.GenerationError{Backend: "test", Err: errors.New("down")}
		gw := &stubGateway{err: genErr}
		p := New(gw, &stubStore{})
		_, err := p.Generate(context.Background(), "u", sampleHistory())
		if !llm.IsGenerationError(err) {
			t.Errorf("expected wrapped generation error, got %v", err)
		}
	})
}

func TestHasProfile(t *testing.T) {
	t.Run("found", func(t *testing.T) {
		p := New(&stubGateway{}, &stubStore{existing: &datatypes.Profile{UserID: "u"}})
		found, err := p.HasProfile(context.Background(), "u")
		if err != nil || !found {
			t.Errorf("expected found profile, got found=%v err=%v", found, err)
		}
	})

	t.Run("absent", func(t *testing.T) {
		p := New(&stubGateway{}, &stubStore{})
		found, err := p.HasProfile(context.Background(), "u")
		if err != nil || found {
			t.Errorf("expected no profile, got found=%v err=%v", found, err)
		}
	})

	t.Run("lookup failure", func(t *testing.T) {
		p := New(&stubGateway{}, &stubStore{fetchErr: errors.New("weaviate down")})
		if _, err := p.HasProfile(context.Background(), "u"); err == nil {
			t.Error("expected an error")
		}
	})
}
