// Package memory provides a reference sliding-window implementation of
// the core.Memory context-construction boundary (spec §4.6). Concrete
// production stores (summary-based, persistent) are external
// collaborators per spec §1; this package exercises the interface for
// tests and the demo binary, grounded on the teacher's internal/sessions
// message-history handling (append-only history, most-recent-first
// windowing) generalized to the spec's add/context/clear contract.
package memory

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/agentcore/orchestrator/pkg/core"
)

// approxCharsPerToken is the crude token-estimation ratio used when no
// provider-specific tokenizer is wired (roughly 4 characters per token
// for English text), matching the rough heuristic providers commonly
// document for budget estimation.
const approxCharsPerToken = 4

// SlidingWindow keeps every message and serves Context() by taking the
// most recent messages that fit within tokenLimit, oldest-first.
type SlidingWindow struct {
	mu       sync.Mutex
	messages []core.MemoryMessage
}

// New returns an empty sliding-window memory.
func New() *SlidingWindow { return &SlidingWindow{} }

// Add appends one message.
func (m *SlidingWindow) Add(msg core.MemoryMessage) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages = append(m.messages, msg)
}

// AddAll appends a batch of messages in order.
func (m *SlidingWindow) AddAll(msgs []core.MemoryMessage) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages = append(m.messages, msgs...)
}

// Context returns the most recent messages, oldest-first, rendered as
// "role: content" lines, trimmed to best-effort fit tokenLimit. query is
// accepted for interface parity with retrieval-augmented implementations
// but unused by this simple sliding window.
func (m *SlidingWindow) Context(ctx context.Context, query string, tokenLimit int) (string, error) {
	m.mu.Lock()
	msgs := make([]core.MemoryMessage, len(m.messages))
	copy(msgs, m.messages)
	m.mu.Unlock()

	if tokenLimit <= 0 {
		tokenLimit = 1 << 30
	}
	budgetChars := tokenLimit * approxCharsPerToken

	var kept []string
	used := 0
	for i := len(msgs) - 1; i >= 0; i-- {
		line := fmt.Sprintf("%s: %s", msgs[i].Role, msgs[i].Content)
		if used+len(line) > budgetChars && len(kept) > 0 {
			break
		}
		kept = append(kept, line)
		used += len(line)
	}
	for l, r := 0, len(kept)-1; l < r; l, r = l+1, r-1 {
		kept[l], kept[r] = kept[r], kept[l]
	}
	return strings.Join(kept, "\n"), nil
}

// GetAllMessages returns every message in insertion order.
func (m *SlidingWindow) GetAllMessages() []core.MemoryMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]core.MemoryMessage, len(m.messages))
	copy(out, m.messages)
	return out
}

// Clear removes every message.
func (m *SlidingWindow) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages = nil
}

// IsEmpty reports whether no messages have been added.
func (m *SlidingWindow) IsEmpty() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.messages) == 0
}

// Count returns the number of stored messages.
func (m *SlidingWindow) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.messages)
}

var _ core.Memory = (*SlidingWindow)(nil)
