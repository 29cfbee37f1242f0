package agentloop

import (
	"context"
	"testing"
	"time"

	"github.com/agentcore/orchestrator/internal/provider"
	"github.com/agentcore/orchestrator/internal/registry"
	"github.com/agentcore/orchestrator/pkg/core"
)

type calculatorTool struct{}

func (calculatorTool) Schema() core.ToolSchema {
	return core.ToolSchema{
		Name:        "calculator",
		Description: "evaluates a math expression",
		Parameters: []core.ToolParameter{
			{Name: "expression", Type: core.ParamString, Required: true},
		},
	}
}
func (calculatorTool) IsEnabled() bool { return true }
func (calculatorTool) Execute(ctx context.Context, args map[string]core.Value) (core.Value, error) {
	return core.String("4"), nil
}

func newTestAgent(t *testing.T, p *provider.Scripted) *Agent {
	t.Helper()
	reg := registry.New()
	if err := reg.Register(calculatorTool{}); err != nil {
		t.Fatalf("Register: %v", err)
	}
	return New(p, reg, Configuration{MaxIterations: 5})
}

func TestToolRoundTripNonStreaming(t *testing.T) {
	p := provider.NewScripted("fake")
	p.Caps = provider.Capabilities{SupportsGenerate: true, SupportsTools: true}
	p.QueueResponse(provider.InferenceResponse{
		ToolCalls:    []core.ToolCall{{ID: "1", ToolName: "calculator", Arguments: map[string]core.Value{"expression": core.String("2+2")}}},
		FinishReason: provider.FinishToolCall,
	})
	p.QueueResponse(provider.InferenceResponse{Content: "The answer is 4", FinishReason: provider.FinishCompleted})

	a := newTestAgent(t, p)
	result, err := a.Run(context.Background(), "What is 2+2?", nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.Output != "The answer is 4" {
		t.Fatalf("expected final text output, got %q", result.Output)
	}
	if len(result.ToolCalls) != 1 || result.ToolCalls[0].ToolName != "calculator" {
		t.Fatalf("expected 1 tool call, got %+v", result.ToolCalls)
	}
	if len(result.ToolResults) != 1 || !result.ToolResults[0].Success {
		t.Fatalf("expected 1 successful tool result, got %+v", result.ToolResults)
	}
	if result.Iterations != 2 {
		t.Fatalf("expected iterationCount=2, got %d", result.Iterations)
	}
}

func TestEventStreamOrderingWithinIteration(t *testing.T) {
	p := provider.NewScripted("fake")
	p.QueueResponse(provider.InferenceResponse{Content: "hello", FinishReason: provider.FinishCompleted})

	a := newTestAgent(t, p)
	stream, err := a.Stream(context.Background(), "hi", nil)
	if err != nil {
		t.Fatalf("Stream: %v", err)
	}

	var types []core.EventType
	for e := range stream.Events {
		types = append(types, e.Type)
	}
	if len(types) < 4 {
		t.Fatalf("expected at least 4 events, got %v", types)
	}
	if types[0] != core.EventStarted {
		t.Fatalf("expected first event started, got %v", types[0])
	}
	if types[len(types)-1] != core.EventCompleted {
		t.Fatalf("expected terminal event completed, got %v", types[len(types)-1])
	}
	iterStartIdx, iterEndIdx := -1, -1
	for i, ty := range types {
		if ty == core.EventIterationStarted {
			iterStartIdx = i
		}
		if ty == core.EventIterationCompleted {
			iterEndIdx = i
		}
	}
	if iterStartIdx == -1 || iterEndIdx == -1 || iterStartIdx > iterEndIdx {
		t.Fatalf("expected iterationStarted before iterationCompleted, got %v", types)
	}
}

func TestMaxIterationsExceededCarriesPartial(t *testing.T) {
	p := provider.NewScripted("fake")
	for i := 0; i < 10; i++ {
		p.QueueResponse(provider.InferenceResponse{
			ToolCalls:    []core.ToolCall{{ID: "x", ToolName: "calculator", Arguments: map[string]core.Value{"expression": core.String("1+1")}}},
			FinishReason: provider.FinishToolCall,
		})
	}
	a := newTestAgent(t, p)
	a.Configuration.MaxIterations = 2

	_, err := a.Run(context.Background(), "loop forever", nil)
	ce, ok := core.IsCoreError(err)
	if !ok || ce.Kind != core.KindMaxIterationsExceeded {
		t.Fatalf("expected maxIterationsExceeded, got %v", err)
	}
	if ce.Partial == nil {
		t.Fatal("expected partial result attached to maxIterationsExceeded")
	}
}

func TestCancellationLiveness(t *testing.T) {
	p := provider.NewScripted("fake")
	a := newTestAgent(t, p)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	stream, err := a.Stream(ctx, "hi", nil)
	if err != nil {
		t.Fatalf("Stream: %v", err)
	}
	var sawCancelled bool
	deadline := time.After(2 * time.Second)
	for {
		select {
		case e, ok := <-stream.Events:
			if !ok {
				if !sawCancelled {
					t.Fatal("expected a cancelled terminal event before stream close")
				}
				return
			}
			if e.Type == core.EventCancelled {
				sawCancelled = true
			}
		case <-deadline:
			t.Fatal("timed out waiting for cancellation to propagate")
		}
	}
}

func TestToolCallIDBackfillIsSharedAcrossStartedExecutorAndResult(t *testing.T) {
	p := provider.NewScripted("fake")
	p.QueueResponse(provider.InferenceResponse{
		ToolCalls:    []core.ToolCall{{ToolName: "calculator", Arguments: map[string]core.Value{"expression": core.String("2+2")}}},
		FinishReason: provider.FinishToolCall,
	})
	p.QueueResponse(provider.InferenceResponse{Content: "done", FinishReason: provider.FinishCompleted})

	a := newTestAgent(t, p)
	stream, err := a.Stream(context.Background(), "what is 2+2?", nil)
	if err != nil {
		t.Fatalf("Stream: %v", err)
	}

	var startedID, completedCallID string
	var result core.StepResult
	for e := range stream.Events {
		switch e.Type {
		case core.EventToolCallStarted:
			startedID = e.ToolCall.ID
		case core.EventToolCallCompleted:
			completedCallID = e.ToolResult.CallID
		case core.EventCompleted:
			result = *e.Result
		}
	}

	if startedID == "" {
		t.Fatal("expected a backfilled, non-empty id on toolCallStarted")
	}
	if completedCallID != startedID {
		t.Fatalf("expected tool result CallID %q to match started event id %q", completedCallID, startedID)
	}
	if len(result.ToolCalls) != 1 || result.ToolCalls[0].ID != startedID {
		t.Fatalf("expected StepResult.ToolCalls[0].ID %q to match started event id %q", result.ToolCalls[0].ID, startedID)
	}
	if len(result.ToolResults) != 1 || result.ToolResults[0].CallID != startedID {
		t.Fatalf("expected StepResult.ToolResults[0].CallID %q to match started event id %q", result.ToolResults[0].CallID, startedID)
	}
}

func TestGuardrailTripEndsRunWithoutDispatchingTools(t *testing.T) {
	p := provider.NewScripted("fake")
	p.QueueResponse(provider.InferenceResponse{
		ToolCalls:    []core.ToolCall{{ID: "1", ToolName: "calculator", Arguments: map[string]core.Value{"expression": core.String("2+2")}}},
		FinishReason: provider.FinishToolCall,
	})

	a := newTestAgent(t, p)
	a.Guardrail = func(rc *core.RunContext, output string, toolCalls []core.ToolCall) error {
		return core.GuardrailViolation("blocked tool call")
	}

	stream, err := a.Stream(context.Background(), "hi", nil)
	if err != nil {
		t.Fatalf("Stream: %v", err)
	}

	var sawGuardrailFailed, sawToolStarted bool
	var failErr error
	for e := range stream.Events {
		switch e.Type {
		case core.EventGuardrailFailed:
			sawGuardrailFailed = true
		case core.EventToolCallStarted:
			sawToolStarted = true
		case core.EventFailed:
			failErr = e.Err
		}
	}

	if !sawGuardrailFailed {
		t.Fatal("expected a guardrailFailed event")
	}
	if sawToolStarted {
		t.Fatal("expected no tool dispatch once the guardrail trips")
	}
	ce, ok := core.IsCoreError(failErr)
	if !ok || ce.Kind != core.KindGuardrailViolation {
		t.Fatalf("expected terminal failed event to carry guardrailViolation, got %v", failErr)
	}
}

func TestAgentCancelMethodStopsActiveRun(t *testing.T) {
	p := provider.NewScripted("fake")
	p.QueueResponse(provider.InferenceResponse{Content: "done", FinishReason: provider.FinishCompleted})
	a := newTestAgent(t, p)

	stream, err := a.Stream(context.Background(), "hi", nil)
	if err != nil {
		t.Fatalf("Stream: %v", err)
	}
	a.Cancel()
	for range stream.Events {
	}
}
