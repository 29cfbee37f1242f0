package memory

import (
	"context"
	"strings"
	"testing"

	"github.com/agentcore/orchestrator/pkg/core"
)

func TestSlidingWindowAddAndCount(t *testing.T) {
	m := New()
	if !m.IsEmpty() {
		t.Fatal("expected new memory to be empty")
	}
	m.Add(core.MemoryMessage{Role: core.RoleUser, Content: "hi"})
	m.AddAll([]core.MemoryMessage{
		{Role: core.RoleAssistant, Content: "hello"},
		{Role: core.RoleUser, Content: "how are you"},
	})
	if m.Count() != 3 {
		t.Fatalf("expected count 3, got %d", m.Count())
	}
	if m.IsEmpty() {
		t.Fatal("expected non-empty after Add")
	}
}

func TestSlidingWindowContextOrdering(t *testing.T) {
	m := New()
	m.AddAll([]core.MemoryMessage{
		{Role: core.RoleUser, Content: "first"},
		{Role: core.RoleAssistant, Content: "second"},
		{Role: core.RoleUser, Content: "third"},
	})
	got, err := m.Context(context.Background(), "", 0)
	if err != nil {
		t.Fatalf("Context: %v", err)
	}
	lines := strings.Split(got, "\n")
	if len(lines) != 3 {
		t.Fatalf("expected 3 lines, got %d: %v", len(lines), lines)
	}
	if !strings.Contains(lines[0], "first") || !strings.Contains(lines[2], "third") {
		t.Fatalf("expected oldest-first ordering, got %v", lines)
	}
}

func TestSlidingWindowContextRespectsTokenLimit(t *testing.T) {
	m := New()
	for i := 0; i < 50; i++ {
		m.Add(core.MemoryMessage{Role: core.RoleUser, Content: "a fairly long message to pad the budget"})
	}
	got, err := m.Context(context.Background(), "", 10)
	if err != nil {
		t.Fatalf("Context: %v", err)
	}
	if len(got) > 10*approxCharsPerToken+100 {
		t.Fatalf("expected trimmed context, got %d chars", len(got))
	}
	if got == "" {
		t.Fatal("expected at least one message kept even under a tight budget")
	}
}

func TestSlidingWindowClear(t *testing.T) {
	m := New()
	m.Add(core.MemoryMessage{Content: "x"})
	m.Clear()
	if !m.IsEmpty() || m.Count() != 0 {
		t.Fatal("expected empty memory after Clear")
	}
	if len(m.GetAllMessages()) != 0 {
		t.Fatal("expected no messages after Clear")
	}
}

func TestSlidingWindowGetAllMessagesIsCopy(t *testing.T) {
	m := New()
	m.Add(core.MemoryMessage{Content: "x"})
	all := m.GetAllMessages()
	all[0].Content = "mutated"
	if m.GetAllMessages()[0].Content != "x" {
		t.Fatal("expected GetAllMessages to return a defensive copy")
	}
}
