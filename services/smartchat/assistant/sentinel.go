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

import (
	"regexp"
	"strings"
)

// SentinelDetector recognizes the phase-completion marker in generated
// text. A model asked to emit a literal token will produce it with
// inconsistent casing and stray whitespace inside the brackets, so
// detection is case-insensitive and whitespace-tolerant. This is the
// single place sentinel matching lives; agents must not re-implement it.
type SentinelDetector struct {
	re *regexp.Regexp
}

// NewSentinelDetector compiles a detector for the given literal token,
// e.g. "<END_OF_TIA_PROMPT>".
func NewSentinelDetector(token string) SentinelDetector {
	inner := strings.TrimSuffix(strings.TrimPrefix(strings.TrimSpace(token), "<"), ">")
	return SentinelDetector{
		re: regexp.MustCompile(`(?i)<\s*` + regexp.QuoteMeta(inner) + `\s*>`),
	}
}

// Present reports whether the text contains the sentinel.
func (d SentinelDetector) Present(text string) bool {
	return d.re.MatchString(text)
}

// Strip removes every occurrence of the sentinel and trims the result.
func (d SentinelDetector) Strip(text string) string {
	return strings.TrimSpace(d.re.ReplaceAllString(text, ""))
}
