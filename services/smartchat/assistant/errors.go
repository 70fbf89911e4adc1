// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package assistant

import "errors"

var (
	// ErrNoPhases rejects construction with an empty phase prompt list.
	// Fatal at wiring time, never recovered.
	ErrNoPhases = errors.New("assistant: phase prompt list is empty")

	// ErrNoGateway rejects construction without a completion client.
	ErrNoGateway = errors.New("assistant: completion gateway is required")

	// ErrSessionClosed is returned for a turn submitted after the
	// conversation reached its exit state. The caller must start a new
	// session; a closed assistant never silently restarts.
	ErrSessionClosed = errors.New("assistant: session is closed")
)
