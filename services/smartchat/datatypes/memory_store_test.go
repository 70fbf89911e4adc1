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

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMemoryStore_AnswerLogs(t *testing.T) {
	store := NewMemoryStore()
	ctx := t.Context()

	err := store.SaveAnswerLog(ctx, "sess-1", "user-1", AgentVision, []AnswerRecord{
		{Phase: 0, Question: "Q1", Message: "A1"},
	})
	require.NoError(t, err)
	err = store.SaveAnswerLog(ctx, "sess-1", "user-1", AgentVision, []AnswerRecord{
		{Phase: 1, Question: "Q2", Message: "A2"},
	})
	require.NoError(t, err)

	// Flushes append rather than overwrite.
	require.Len(t, store.logs["sess-1"], 2)
	require.Equal(t, 1, store.logs["sess-1"][1].Phase)
}

func TestMemoryStore_Profiles(t *testing.T) {
	store := NewMemoryStore()
	ctx := t.Context()

	_, found, err := store.FetchProfile(ctx, "user-1")
	require.NoError(t, err)
	require.False(t, found)

	first := &Profile{UserID: "user-1", BusinessName: "Old Name"}
	require.NoError(t, store.SaveProfile(ctx, first))

	second := &Profile{
		UserID:       "user-1",
		BusinessName: "New Name",
		UserStrength: strings.Repeat("x", 300),
	}
	require.NoError(t, store.SaveProfile(ctx, second))

	got, found, err := store.FetchProfile(ctx, "user-1")
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, "New Name", got.BusinessName, "newest profile wins")
	require.Len(t, got.UserStrength, 100, "attributes are clamped on save")
}

func TestMemoryStore_Sessions(t *testing.T) {
	store := NewMemoryStore()
	ctx := t.Context()

	require.NoError(t, store.SaveSession(ctx, "sess-1", "user-1", AgentVision))
	require.NoError(t, store.SaveSession(ctx, "sess-2", "user-2", AgentConnect))
	require.NoError(t, store.SaveAnswerLog(ctx, "sess-1", "user-1", AgentVision, []AnswerRecord{
		{Question: "Q1", Message: "A1"},
	}))

	sessions, err := store.ListSessions(ctx)
	require.NoError(t, err)
	require.Len(t, sessions, 2)
	require.Equal(t, "VisionAgent", sessions[0].Agent)

	require.NoError(t, store.DeleteSessionData(ctx, "sess-1"))
	sessions, err = store.ListSessions(ctx)
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	require.Equal(t, "sess-2", sessions[0].SessionID)
	require.Empty(t, store.logs["sess-1"], "answer logs are purged with the session")
}
