// Package agentloop implements the turn-engine agent loop of spec §4.2,
// generalized from the teacher's internal/agent.AgenticLoop (a
// multi-channel chat-bot state machine: Init → Stream → ExecuteTools →
// Continue/Complete) into the spec's abstract
// LOAD_HISTORY → BUILD_PROMPT → MODEL_TURN → DECIDE → TOOL_TURN/FINALIZE
// contract over the Provider/Registry/Session/Memory/Tracer interfaces.
package agentloop

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/agentcore/orchestrator/internal/memory"
	"github.com/agentcore/orchestrator/internal/provider"
	"github.com/agentcore/orchestrator/internal/registry"
	"github.com/agentcore/orchestrator/internal/trace"
	"github.com/agentcore/orchestrator/pkg/core"
	"github.com/agentcore/orchestrator/pkg/coreid"
)

// Agent is a Step that also satisfies spec §6's Agent extension
// (name, tools, instructions, configuration, stream, cancel).
type Agent struct {
	Instructions  string
	Configuration Configuration
	Options       provider.InferenceOptions

	// PersistToolMessagesToSession toggles whether tool-role messages
	// are appended to Session in addition to Memory, per the Open
	// Question resolution "tool-role Session persistence is
	// configuration-controlled, default true" — this is the knob that
	// controls it; it is additive to spec §6's six enumerated
	// AgentConfiguration fields, not a replacement for any of them.
	PersistToolMessagesToSession bool

	Provider provider.Provider
	Registry *registry.Registry
	Executor *registry.Executor

	Session core.Session
	Memory  core.Memory
	Tracer  core.Tracer
	Hooks   core.RunHooks
	Logger  *slog.Logger

	// Guardrail is the loop's hook into an external guardrails
	// subsystem, per spec's "guardrail internals are out of scope,
	// only its hook into the loop is defined". Called once per
	// iteration after MODEL_TURN with the model's proposed output and
	// tool calls; a non-nil error (conventionally
	// core.GuardrailViolation) raises guardrailFailed and ends the run
	// without dispatching any tool calls.
	Guardrail func(rc *core.RunContext, output string, toolCalls []core.ToolCall) error

	mu      sync.Mutex
	cancels map[string]context.CancelFunc
}

// New constructs an Agent wired to a provider and tool registry. cfg is
// passed through sanitize, which fills most zero fields with spec §6
// defaults but keeps a zero SessionHistoryLimit.
func New(p provider.Provider, reg *registry.Registry, cfg Configuration) *Agent {
	if reg == nil {
		reg = registry.New()
	}
	cfg = sanitize(cfg)
	return &Agent{
		Configuration:                cfg,
		PersistToolMessagesToSession: true,
		Provider:                     p,
		Registry:                     reg,
		Executor:                     registry.NewExecutor(reg, cfg.ParallelToolCalls),
		Memory:                       memory.New(),
		Hooks:                        core.NoopRunHooks{},
		cancels:                      make(map[string]context.CancelFunc),
	}
}

// StepName satisfies core.Named.
func (a *Agent) StepName() string { return a.Configuration.Name }

// Execute implements core.Step by running to completion and collecting
// the terminal result, per spec §4.2 ("run is the ground truth's
// collected terminal completed event").
func (a *Agent) Execute(ctx context.Context, input string, rc *core.RunContext) (core.StepResult, error) {
	return a.Run(ctx, input, rc)
}

// Run drives the loop to termination and returns the final StepResult.
func (a *Agent) Run(ctx context.Context, input string, rc *core.RunContext) (core.StepResult, error) {
	stream, err := a.Stream(ctx, input, rc)
	if err != nil {
		return core.StepResult{}, err
	}
	var (
		result core.StepResult
		outErr error
	)
	for e := range stream.Events {
		switch e.Type {
		case core.EventCompleted:
			result = *e.Result
		case core.EventFailed:
			outErr = e.Err
		case core.EventCancelled:
			outErr = core.Cancelled()
		}
	}
	return result, outErr
}

// Stream drives the loop and returns a cancellable EventStream, per
// spec §4.2's "stream is the ground truth" contract.
func (a *Agent) Stream(ctx context.Context, input string, rc *core.RunContext) (*core.EventStream, error) {
	if a.Provider == nil {
		return nil, core.InternalError("agent has no provider configured")
	}
	if rc == nil {
		rc = core.NewRunContext(input)
	}
	if rc.Session == nil {
		rc.Session = a.Session
	}
	if rc.Memory == nil {
		rc.Memory = a.Memory
	}
	if rc.Tracer == nil {
		rc.Tracer = a.effectiveTracer()
	}
	if rc.Hooks == nil {
		rc.Hooks = a.Hooks
	}

	runCtx, cancel := context.WithCancel(ctx)
	runID := coreid.New()

	a.mu.Lock()
	a.cancels[runID] = cancel
	a.mu.Unlock()

	ch := make(chan core.Event, 16)
	done := make(chan struct{})
	sink := core.NewChanSink(ch, done)

	go func() {
		defer close(ch)
		defer close(done)
		defer func() {
			a.mu.Lock()
			delete(a.cancels, runID)
			a.mu.Unlock()
			cancel()
		}()
		a.runLoop(runCtx, input, rc, sink)
	}()

	return core.NewEventStream(ch, cancel), nil
}

// Cancel requests cancellation of every currently active run started by
// this Agent, per spec §6's Agent.cancel(). Safe to call with no active
// runs.
func (a *Agent) Cancel() {
	a.mu.Lock()
	defer a.mu.Unlock()
	for _, cancel := range a.cancels {
		cancel()
	}
}

func (a *Agent) effectiveTracer() core.Tracer {
	if a.Tracer != nil {
		return a.Tracer
	}
	if !a.Configuration.TracingEnabled() {
		return trace.NoOp{}
	}
	return trace.NewConsole(a.logger())
}

func (a *Agent) logger() *slog.Logger {
	if a.Logger != nil {
		return a.Logger
	}
	return slog.Default()
}

func nowUnixNano() int64 { return time.Now().UnixNano() }

var _ core.Step = (*Agent)(nil)
var _ core.Named = (*Agent)(nil)
