package core

import (
	"context"
	"sync"
)

// Step is the uniform "do one unit of work" contract. Every workflow
// primitive, agent, and tool wrapper implements it. A Step value is a
// description (configuration); RunContext carries the per-invocation
// runtime state.
type Step interface {
	Execute(ctx context.Context, input string, rc *RunContext) (StepResult, error)
}

// StepFunc adapts a plain function to the Step interface.
type StepFunc func(ctx context.Context, input string, rc *RunContext) (StepResult, error)

func (f StepFunc) Execute(ctx context.Context, input string, rc *RunContext) (StepResult, error) {
	return f(ctx, input, rc)
}

// Named is implemented by Steps that carry a configured name, used by
// the `named()` modifier and by Supervisor/Route for display.
type Named interface {
	StepName() string
}

// Session is the actor-like, single-ownership interface over a
// caller-owned conversation history. Concrete stores (sliding window,
// persistent DB, …) are external collaborators; this is the only
// contract the loop depends on.
type Session interface {
	GetItems(ctx context.Context, limit int) ([]MemoryMessage, error)
	AddItems(ctx context.Context, items []MemoryMessage) error
	PopItem(ctx context.Context) (MemoryMessage, bool, error)
	Clear(ctx context.Context) error
}

// Memory is the pluggable context-construction boundary the agent loop
// calls every turn. Concrete stores implement sliding-window, summary,
// or persistent strategies; the loop only requires that Context(...)
// return a string that best-effort fits tokenLimit.
type Memory interface {
	Add(msg MemoryMessage)
	AddAll(msgs []MemoryMessage)
	Context(ctx context.Context, query string, tokenLimit int) (string, error)
	GetAllMessages() []MemoryMessage
	Clear()
	IsEmpty() bool
	Count() int
}

// TraceEventKind enumerates the kinds of TraceEvent a Tracer observes.
type TraceEventKind string

const (
	TraceAgentStart    TraceEventKind = "agent_start"
	TraceAgentComplete TraceEventKind = "agent_complete"
	TraceToolCall      TraceEventKind = "tool_call"
	TraceToolResult    TraceEventKind = "tool_result"
	TraceThought       TraceEventKind = "thought"
	TraceCustom        TraceEventKind = "custom"
)

// TraceLevel mirrors slog's severity ladder so tracers can filter
// consistently with the ambient logger.
type TraceLevel int

const (
	TraceLevelDebug TraceLevel = iota
	TraceLevelInfo
	TraceLevelWarn
	TraceLevelError
)

// TraceErrorInfo captures error detail attached to a TraceEvent.
type TraceErrorInfo struct {
	Message string
	Kind    ErrorKind
}

// TraceEvent is the structured record a Tracer receives, independent of
// the public Event stream's consumers.
type TraceEvent struct {
	Name         string
	Kind         TraceEventKind
	Level        TraceLevel
	SpanID       string
	ParentSpanID string
	Timestamp    int64 // unix nanos; callers stamp this, core never calls time.Now in test-sensitive paths
	Metadata     map[string]Value
	Error        *TraceErrorInfo
}

// Tracer is a separate sink from the public Event stream: every tracer
// attached to a run receives every TraceEvent regardless of how many
// consumers are reading the Event stream.
type Tracer interface {
	Trace(e TraceEvent)
}

// RunHooks lets an embedder observe loop-level lifecycle transitions
// without wiring a full Tracer. All methods are optional; embed
// NoopRunHooks to satisfy the interface without implementing every hook.
type RunHooks interface {
	OnIterationStart(rc *RunContext, iteration int)
	OnIterationEnd(rc *RunContext, iteration int, result StepResult)
	OnToolStart(rc *RunContext, call ToolCall)
	OnToolEnd(rc *RunContext, result ToolResult)
	OnHandoff(rc *RunContext, from, to, reason string)
}

// NoopRunHooks is embeddable by callers that only want to override a
// subset of RunHooks methods.
type NoopRunHooks struct{}

func (NoopRunHooks) OnIterationStart(*RunContext, int)            {}
func (NoopRunHooks) OnIterationEnd(*RunContext, int, StepResult)  {}
func (NoopRunHooks) OnToolStart(*RunContext, ToolCall)            {}
func (NoopRunHooks) OnToolEnd(*RunContext, ToolResult)            {}
func (NoopRunHooks) OnHandoff(*RunContext, string, string, string) {}

// ToolImpl is one registered tool: its schema, an enable-gate, and the
// execute entry point. Unlike Step, a ToolImpl takes structured
// arguments and returns a Value rather than a StepResult.
type ToolImpl interface {
	Schema() ToolSchema
	IsEnabled() bool
	Execute(ctx context.Context, args map[string]Value) (Value, error)
}

// ContextKey addresses a user-supplied context object stashed in
// RunContext's typed key/value map.
type ContextKey string

// RunContext is the per-run state shared by every Step invocation
// within one top-level invocation (spec §3 "Context", renamed to avoid
// colliding with the stdlib context.Context it carries).
type RunContext struct {
	OriginalInput string

	mu        sync.RWMutex
	iteration int
	values    map[ContextKey]any

	Session  Session
	Memory   Memory
	Tracer   Tracer
	Hooks    RunHooks

	// Orchestrator is an opaque handle to the enclosing orchestrator
	// (e.g. a multi-agent Supervisor), set by combinators that need to
	// resolve sibling agents. Nil for a standalone run.
	Orchestrator any
}

// NewRunContext creates a RunContext for a fresh top-level invocation.
func NewRunContext(input string) *RunContext {
	return &RunContext{
		OriginalInput: input,
		values:        make(map[ContextKey]any),
	}
}

// Iteration returns the current iteration counter.
func (rc *RunContext) Iteration() int {
	rc.mu.RLock()
	defer rc.mu.RUnlock()
	return rc.iteration
}

// SetIteration updates the current iteration counter.
func (rc *RunContext) SetIteration(n int) {
	rc.mu.Lock()
	rc.iteration = n
	rc.mu.Unlock()
}

// Value looks up a user-supplied context object by key.
func (rc *RunContext) Value(key ContextKey) (any, bool) {
	rc.mu.RLock()
	defer rc.mu.RUnlock()
	v, ok := rc.values[key]
	return v, ok
}

// WithValue stashes a user-supplied context object under key.
func (rc *RunContext) WithValue(key ContextKey, value any) {
	rc.mu.Lock()
	rc.values[key] = value
	rc.mu.Unlock()
}

// ContextHas reports whether key has been stashed (used by the Route
// combinator's contextHas condition).
func (rc *RunContext) ContextHas(key ContextKey) bool {
	_, ok := rc.Value(key)
	return ok
}

// Child returns a RunContext for a nested invocation (e.g. a Supervisor
// delegating to a sub-agent) that shares Session/Memory/Tracer/Hooks but
// starts its own iteration counter and input.
func (rc *RunContext) Child(input string) *RunContext {
	child := NewRunContext(input)
	child.Session, child.Memory, child.Tracer, child.Hooks = rc.Session, rc.Memory, rc.Tracer, rc.Hooks
	child.Orchestrator = rc.Orchestrator
	rc.mu.RLock()
	for k, v := range rc.values {
		child.values[k] = v
	}
	rc.mu.RUnlock()
	return child
}
