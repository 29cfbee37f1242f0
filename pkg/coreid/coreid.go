// Package coreid centralizes UUID generation for ToolCall, run, and
// span identifiers, grounded on the teacher's pervasive
// github.com/google/uuid usage (internal/agent/loop.go, event_emitter.go)
// rather than each call site importing the uuid package directly.
package coreid

import "github.com/google/uuid"

// New returns a new random (v4) identifier string.
func New() string {
	return uuid.NewString()
}

// NewShort returns the first 8 hex characters of a new v4 identifier,
// suitable for span IDs where full UUID length adds little readability.
func NewShort() string {
	return New()[:8]
}
