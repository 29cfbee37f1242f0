package provider

import (
	"context"
	"testing"

	"github.com/agentcore/orchestrator/pkg/core"
)

func TestFinishReasonNormalizeUnknownBecomesCompleted(t *testing.T) {
	var weird FinishReason = 99
	if weird.Normalize() != FinishCompleted {
		t.Fatalf("expected unknown finish reason to normalize to completed")
	}
	if FinishToolCall.Normalize() != FinishToolCall {
		t.Fatal("expected known finish reason to pass through unchanged")
	}
}

func TestScriptedGenerateWithToolCalls(t *testing.T) {
	p := NewScripted("fake")
	p.QueueResponse(InferenceResponse{
		ToolCalls:    []core.ToolCall{{ID: "1", ToolName: "calculator"}},
		FinishReason: FinishToolCall,
	})
	p.QueueResponse(InferenceResponse{Content: "The answer is 4", FinishReason: FinishCompleted})

	resp, err := p.GenerateWithToolCalls(context.Background(), "2+2?", nil, InferenceOptions{})
	if err != nil {
		t.Fatalf("GenerateWithToolCalls: %v", err)
	}
	if len(resp.ToolCalls) != 1 || resp.ToolCalls[0].ToolName != "calculator" {
		t.Fatalf("expected scripted tool call, got %+v", resp)
	}

	resp2, err := p.GenerateWithToolCalls(context.Background(), "", nil, InferenceOptions{})
	if err != nil {
		t.Fatalf("GenerateWithToolCalls: %v", err)
	}
	if resp2.Content != "The answer is 4" {
		t.Fatalf("expected second scripted response, got %+v", resp2)
	}
	if p.CallCount() != 2 {
		t.Fatalf("expected 2 calls recorded, got %d", p.CallCount())
	}
}

func TestScriptedQueuedErrorSurfaces(t *testing.T) {
	p := NewScripted("fake")
	p.QueueError(core.InferenceProviderUnavailable("down for maintenance"))

	_, err := p.Generate(context.Background(), "hi", InferenceOptions{})
	ce, ok := core.IsCoreError(err)
	if !ok || ce.Kind != core.KindInferenceProviderUnavailable {
		t.Fatalf("expected inferenceProviderUnavailable, got %v", err)
	}
}

func TestScriptedCapabilityGating(t *testing.T) {
	p := NewScripted("text-only")
	p.Caps = Capabilities{SupportsGenerate: true}

	_, err := p.GenerateWithToolCalls(context.Background(), "x", nil, InferenceOptions{})
	ce, ok := core.IsCoreError(err)
	if !ok || ce.Kind != core.KindInferenceProviderUnavailable {
		t.Fatalf("expected capability-gated failure, got %v", err)
	}
}

func TestScriptedStreamWithToolCallsEmitsDone(t *testing.T) {
	p := NewScripted("fake")
	p.QueueResponse(InferenceResponse{Content: "partial", FinishReason: FinishCompleted})

	updates, err := p.StreamWithToolCalls(context.Background(), "x", nil, InferenceOptions{})
	if err != nil {
		t.Fatalf("StreamWithToolCalls: %v", err)
	}
	sawDone := false
	for u := range updates {
		if u.Kind == UpdateDone {
			sawDone = true
		}
	}
	if !sawDone {
		t.Fatal("expected an UpdateDone terminal update")
	}
}
