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
	"fmt"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"
)

// Library is the full prompt configuration for the service, one Set per
// conversational agent.
type Library struct {
	Vision  Set `yaml:"vision"`
	Connect Set `yaml:"connect"`
}

// DefaultLibrary returns the built-in prompt programs.
func DefaultLibrary() Library {
	return Library{Vision: DefaultVision(), Connect: DefaultConnect()}
}

// Load returns the default library overlaid with the YAML file at path,
// if any. An agent section present in the file replaces that agent's set
// wholesale; absent sections keep the defaults. An override set with an
// empty phase list is rejected here rather than failing later at
// assistant construction.
func Load(path string) (Library, error) {
	lib := DefaultLibrary()
	if path == "" {
		return lib, nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return lib, fmt.Errorf("failed to read prompts file: %w", err)
	}

	var overrides struct {
		Vision  *Set `yaml:"vision"`
		Connect *Set `yaml:"connect"`
	}
	if err := yaml.Unmarshal(raw, &overrides); err != nil {
		return lib, fmt.Errorf("failed to parse prompts file %s: %w", path, err)
	}

	if overrides.Vision != nil {
		if len(overrides.Vision.Phases) == 0 {
			return lib, fmt.Errorf("prompts file %s: vision override has no phases", path)
		}
		lib.Vision = *overrides.Vision
	}
	if overrides.Connect != nil {
		if len(overrides.Connect.Phases) == 0 {
			return lib, fmt.Errorf("prompts file %s: connect override has no phases", path)
		}
		lib.Connect = *overrides.Connect
	}
	slog.Info("Loaded prompt overrides", "path", path,
		"vision_phases", len(lib.Vision.Phases), "connect_phases", len(lib.Connect.Phases))
	return lib, nil
}
