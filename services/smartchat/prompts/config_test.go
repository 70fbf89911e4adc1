// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package prompts

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestSet_Wrap(t *testing.T) {
	set := Set{Rule: "rules before\n{chat_prompt}\nrules after", Phases: []string{"ask things"}}
	wrapped := set.Wrap(set.Phases[0])
	if !strings.Contains(wrapped, "ask things") {
		t.Errorf("wrapped prompt missing phase text: %q", wrapped)
	}
	if strings.Contains(wrapped, "{chat_prompt}") {
		t.Errorf("placeholder not substituted: %q", wrapped)
	}
}

func TestDefaults_CarrySentinelContract(t *testing.T) {
	for name, set := range map[string]Set{"vision": DefaultVision(), "connect": DefaultConnect()} {
		t.Run(name, func(t *testing.T) {
			if len(set.Phases) == 0 {
				t.Fatal("default set has no phases")
			}
			if !strings.Contains(set.Rule, Sentinel) {
				t.Error("rule prompt does not instruct the sentinel")
			}
			if !strings.Contains(set.Rule, "{chat_prompt}") {
				t.Error("rule prompt has no phase slot")
			}
		})
	}
}

func TestLoad(t *testing.T) {
	t.Run("empty path returns defaults", func(t *testing.T) {
		lib, err := Load("")
		if err != nil {
			t.Fatalf("Load failed: %v", err)
		}
		if len(lib.Vision.Phases) != len(DefaultVision().Phases) {
			t.Error("expected default vision phases")
		}
	})

	t.Run("partial override keeps other defaults", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "prompts.yaml")
		content := "vision:\n  rule: \"custom {chat_prompt}\"\n  phases:\n    - \"only phase\"\n"
		if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
			t.Fatal(err)
		}

		lib, err := Load(path)
		if err != nil {
			t.Fatalf("Load failed: %v", err)
		}
		if len(lib.Vision.Phases) != 1 || lib.Vision.Phases[0] != "only phase" {
			t.Errorf("vision override not applied: %+v", lib.Vision)
		}
		if len(lib.Connect.Phases) != len(DefaultConnect().Phases) {
			t.Error("connect defaults should survive a vision-only override")
		}
	})

	t.Run("override with no phases is rejected", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "prompts.yaml")
		if err := os.WriteFile(path, []byte("connect:\n  rule: \"r\"\n"), 0o600); err != nil {
			t.Fatal(err)
		}
		if _, err := Load(path); err == nil {
			t.Error("expected an error for an empty phase list")
		}
	})
}
