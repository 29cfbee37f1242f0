package session

import (
	"context"
	"testing"

	"github.com/agentcore/orchestrator/pkg/core"
)

func TestInMemoryOrderingGuarantee(t *testing.T) {
	s := New()
	ctx := context.Background()
	msgs := []core.MemoryMessage{
		{Role: core.RoleUser, Content: "one"},
		{Role: core.RoleAssistant, Content: "two"},
	}
	if err := s.AddItems(ctx, msgs); err != nil {
		t.Fatalf("AddItems: %v", err)
	}
	if err := s.AddItems(ctx, []core.MemoryMessage{{Role: core.RoleUser, Content: "three"}}); err != nil {
		t.Fatalf("AddItems: %v", err)
	}

	got, err := s.GetItems(ctx, 0)
	if err != nil {
		t.Fatalf("GetItems: %v", err)
	}
	want := []string{"one", "two", "three"}
	for i, w := range want {
		if got[i].Content != w {
			t.Fatalf("expected order %v, got %+v", want, got)
		}
	}
}

func TestInMemoryGetItemsLimit(t *testing.T) {
	s := New()
	ctx := context.Background()
	for _, c := range []string{"a", "b", "c", "d"} {
		_ = s.AddItems(ctx, []core.MemoryMessage{{Content: c}})
	}
	got, _ := s.GetItems(ctx, 2)
	if len(got) != 2 || got[0].Content != "c" || got[1].Content != "d" {
		t.Fatalf("expected last 2 in order [c d], got %+v", got)
	}
}

func TestInMemoryPopAndClear(t *testing.T) {
	s := New()
	ctx := context.Background()
	_ = s.AddItems(ctx, []core.MemoryMessage{{Content: "a"}, {Content: "b"}})

	popped, ok, err := s.PopItem(ctx)
	if err != nil || !ok || popped.Content != "b" {
		t.Fatalf("expected to pop last item 'b', got %+v, %v, %v", popped, ok, err)
	}

	if err := s.Clear(ctx); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	got, _ := s.GetItems(ctx, 0)
	if len(got) != 0 {
		t.Fatalf("expected empty after clear, got %+v", got)
	}
}
