// Package session provides a reference in-memory implementation of the
// core.Session actor-like boundary (spec §4.6). Concrete production
// stores (sliding window, persistent DB) are external collaborators per
// spec §1; this package exists to exercise the interface in tests and
// the demo binary, grounded on the teacher's internal/sessions
// (MemoryStore: RWMutex-guarded map, clone-on-write, insertion-ordered
// history).
package session

import (
	"context"
	"sync"

	"github.com/agentcore/orchestrator/pkg/core"
)

// InMemory is a single Session's worth of history, with single-owner
// mutation serialized by a mutex (the "actor isolation" pattern spec §9
// calls out for Session/Memory/RateLimiter/CircuitBreaker).
type InMemory struct {
	mu    sync.Mutex
	items []core.MemoryMessage
}

// New returns an empty in-memory session.
func New() *InMemory { return &InMemory{} }

// GetItems returns the most recent limit items in chronological order;
// limit<=0 returns everything.
func (s *InMemory) GetItems(ctx context.Context, limit int) ([]core.MemoryMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if limit <= 0 || limit >= len(s.items) {
		out := make([]core.MemoryMessage, len(s.items))
		copy(out, s.items)
		return out, nil
	}
	start := len(s.items) - limit
	out := make([]core.MemoryMessage, limit)
	copy(out, s.items[start:])
	return out, nil
}

// AddItems appends items as one batch, preserving the order they were
// added in.
func (s *InMemory) AddItems(ctx context.Context, items []core.MemoryMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = append(s.items, items...)
	return nil
}

// PopItem removes and returns the most recently added item.
func (s *InMemory) PopItem(ctx context.Context) (core.MemoryMessage, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.items) == 0 {
		return core.MemoryMessage{}, false, nil
	}
	last := s.items[len(s.items)-1]
	s.items = s.items[:len(s.items)-1]
	return last, true, nil
}

// Clear removes every item.
func (s *InMemory) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = nil
	return nil
}

var _ core.Session = (*InMemory)(nil)
