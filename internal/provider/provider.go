// Package provider defines the inference-backend boundary the loop
// consumes (spec §4.8), generalized from the teacher's
// internal/agent.LLMProvider (a channel-based streaming interface to
// Anthropic/OpenAI-shaped backends) into the spec's four-method,
// capability-gated contract. Concrete backends (Anthropic, OpenAI,
// Bedrock SDKs) are out of this core's scope per spec §1 — only the
// interface and a fake used for tests live here.
package provider

import (
	"context"

	"github.com/agentcore/orchestrator/pkg/core"
)

// ToolChoice selects how strongly a provider should be steered toward
// calling a tool.
type ToolChoice struct {
	Mode ToolChoiceMode
	Name string // only meaningful when Mode == ToolChoiceSpecific
}

// ToolChoiceMode enumerates the ∈{auto,none,required,specific(name)} set.
type ToolChoiceMode int

const (
	ToolChoiceAuto ToolChoiceMode = iota
	ToolChoiceNone
	ToolChoiceRequired
	ToolChoiceSpecific
)

// InferenceOptions carries every enumerated generation knob from spec §4.8.
// Unknown/unsupported options are ignored by the provider contractually —
// callers must not assume an option took effect.
type InferenceOptions struct {
	Temperature      float64 // 0..2
	TopP             float64 // 0..1
	TopK             int
	MaxTokens        int
	FrequencyPenalty float64
	PresencePenalty  float64
	StopSequences    []string
	ToolChoice       ToolChoice
}

// FinishReason enumerates why generation stopped. The loop treats any
// value outside this set as FinishCompleted per spec §4.8.
type FinishReason int

const (
	FinishCompleted FinishReason = iota
	FinishMaxTokens
	FinishToolCall
	FinishContentFilter
	FinishCancelled
)

// Normalize maps any out-of-range FinishReason to FinishCompleted, per
// the "loop must treat unknown values as completed" rule.
func (f FinishReason) Normalize() FinishReason {
	if f < FinishCompleted || f > FinishCancelled {
		return FinishCompleted
	}
	return f
}

// InferenceResponse is the non-streaming tool-aware generation result.
type InferenceResponse struct {
	Content      string
	ToolCalls    []core.ToolCall
	FinishReason FinishReason
	Usage        *core.TokenUsage
}

// InferenceStreamUpdateKind tags the variant of InferenceStreamUpdate.
type InferenceStreamUpdateKind int

const (
	UpdateOutputChunk InferenceStreamUpdateKind = iota
	UpdateToolCallPartial
	UpdateToolCallsCompleted
	UpdateUsage
	UpdateDone
	UpdateError
)

// InferenceStreamUpdate is one element of the AsyncSeq a streaming,
// tool-aware call yields.
type InferenceStreamUpdate struct {
	Kind  InferenceStreamUpdateKind
	Chunk string

	// Partial tool-call-in-progress fields, populated on UpdateToolCallPartial.
	ProviderCallID string
	ToolName       string
	ArgsFragment   string
	Index          int

	ToolCalls []core.ToolCall // complete calls, populated on UpdateToolCallsCompleted
	Usage     *core.TokenUsage
	Err       error
}

// Provider is the inference-backend boundary. A concrete implementation
// may support only a subset — capability is advertised via Capabilities()
// so the loop can choose generate vs. generateWithToolCalls without
// trial-and-error, mirroring the teacher's Provider.SupportsTools().
type Provider interface {
	Name() string
	Capabilities() Capabilities

	Generate(ctx context.Context, prompt string, opts InferenceOptions) (string, error)
	Stream(ctx context.Context, prompt string, opts InferenceOptions) (<-chan string, <-chan error)
	GenerateWithToolCalls(ctx context.Context, prompt string, tools []core.ToolSchema, opts InferenceOptions) (InferenceResponse, error)
	StreamWithToolCalls(ctx context.Context, prompt string, tools []core.ToolSchema, opts InferenceOptions) (<-chan InferenceStreamUpdate, error)
}

// Capabilities advertises which of the four Provider operations a
// concrete backend actually implements, so the loop can fail fast with
// core.InferenceProviderUnavailable instead of calling into a stub.
type Capabilities struct {
	SupportsGenerate    bool
	SupportsStream      bool
	SupportsTools       bool
	SupportsToolStream  bool
	MaxContextTokens    int
}
