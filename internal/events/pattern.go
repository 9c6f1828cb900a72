// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package events

import (
	"errors"
	"strings"
)

// MatchPattern checks if an event type matches a pattern.
// Patterns support wildcards:
//   - "session.*" matches "session.started", "session.cancelled", etc.
//   - "*.failed" matches "session.failed", "card.failed", etc.
//   - "*" matches everything
func MatchPattern(eventType, pattern string) bool {
	if pattern == "" || eventType == "" {
		return false
	}

	if pattern == "*" {
		return true
	}

	if pattern == eventType {
		return true
	}

	if strings.HasSuffix(pattern, ".*") {
		prefix := strings.TrimSuffix(pattern, ".*")
		return strings.HasPrefix(eventType, prefix+".")
	}

	if strings.HasPrefix(pattern, "*.") {
		suffix := strings.TrimPrefix(pattern, "*.")
		return strings.HasSuffix(eventType, "."+suffix)
	}

	return false
}

// CompiledPattern is a pre-compiled pattern for efficient matching.
type CompiledPattern struct {
	pattern string
}

// CompilePattern validates and compiles a pattern.
func CompilePattern(pattern string) (CompiledPattern, error) {
	if pattern == "" {
		return CompiledPattern{}, errors.New("empty pattern")
	}
	return CompiledPattern{pattern: pattern}, nil
}

// Match checks if an event type matches the compiled pattern.
func (cp CompiledPattern) Match(eventType string) bool {
	return MatchPattern(eventType, cp.pattern)
}
