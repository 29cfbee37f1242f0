package workflow

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/agentcore/orchestrator/internal/resilience"
	"github.com/agentcore/orchestrator/pkg/core"
)

// RetryModifier delegates to a resilience.RetryPolicy and returns the
// policy's error unchanged: on exhaustion that is retriesExhausted, with
// the inner Step's last error as its Cause.
type RetryModifier struct {
	Inner  core.Step
	Policy *resilience.RetryPolicy
}

// Retry wraps inner with a RetryPolicy-backed modifier.
func Retry(inner core.Step, policy *resilience.RetryPolicy) core.Step {
	return &RetryModifier{Inner: inner, Policy: policy}
}

func (m *RetryModifier) Execute(ctx context.Context, input string, rc *core.RunContext) (core.StepResult, error) {
	var last core.StepResult
	err := m.Policy.Execute(ctx, func(ctx context.Context) error {
		result, err := m.Inner.Execute(ctx, input, rc)
		if err == nil {
			last = result
		}
		return err
	})
	return last, err
}

// TimeoutModifier races the inner Step against a deadline; on timeout
// it cancels the inner Step's context and raises core.Timeout(d). The
// timeout is scoped to the modified Step only — it does not cancel the
// parent, per spec §5.
type TimeoutModifier struct {
	Inner core.Step
	D     time.Duration
}

// Timeout wraps inner with a per-Step deadline.
func Timeout(inner core.Step, d time.Duration) core.Step {
	return &TimeoutModifier{Inner: inner, D: d}
}

func (m *TimeoutModifier) Execute(ctx context.Context, input string, rc *core.RunContext) (core.StepResult, error) {
	innerCtx, cancel := context.WithTimeout(ctx, m.D)
	defer cancel()

	type outcome struct {
		result core.StepResult
		err    error
	}
	done := make(chan outcome, 1)
	go func() {
		result, err := m.Inner.Execute(innerCtx, input, rc)
		done <- outcome{result, err}
	}()

	select {
	case o := <-done:
		if o.err != nil && ctx.Err() == nil && errors.Is(innerCtx.Err(), context.DeadlineExceeded) {
			// the inner Step gave up because this modifier's deadline fired
			return core.StepResult{}, core.Timeout(m.D)
		}
		return o.result, o.err
	case <-innerCtx.Done():
		if ctx.Err() != nil {
			// parent cancellation, not a timeout of this modifier
			return core.StepResult{}, core.Cancelled()
		}
		return core.StepResult{}, core.Timeout(m.D)
	}
}

// NamedModifier sets step.name in the result metadata without altering
// behavior.
type NamedModifier struct {
	Inner core.Step
	Name  string
}

// Named wraps inner, stamping step.name = n in the result metadata.
func Named(inner core.Step, n string) core.Step {
	return &NamedModifier{Inner: inner, Name: n}
}

func (m *NamedModifier) StepName() string { return m.Name }

func (m *NamedModifier) Execute(ctx context.Context, input string, rc *core.RunContext) (core.StepResult, error) {
	result, err := m.Inner.Execute(ctx, input, rc)
	if err != nil {
		return result, err
	}
	return result.WithMetadata("step.name", core.String(m.Name)), nil
}

// LoggedModifier traces entry/exit and stamps logging.{label,input,output}
// metadata. Entry and exit are always logged through Logger
// (slog.Default() when nil), matching the teacher's
// *slog.Logger-everywhere ambient logging convention, and are also
// traced when rc has a Tracer.
type LoggedModifier struct {
	Inner  core.Step
	Label  string
	Logger *slog.Logger
}

// Logged wraps inner with tracer/logging instrumentation. label may be
// empty, in which case the inner Step's name (if Named) is used.
func Logged(inner core.Step, label string) core.Step {
	return &LoggedModifier{Inner: inner, Label: label}
}

func (m *LoggedModifier) label() string {
	if m.Label != "" {
		return m.Label
	}
	if n, ok := m.Inner.(core.Named); ok {
		return n.StepName()
	}
	return "step"
}

func (m *LoggedModifier) Execute(ctx context.Context, input string, rc *core.RunContext) (core.StepResult, error) {
	label := m.label()
	logger := m.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.Debug("step started", "step", label, "input_len", len(input))
	if rc != nil && rc.Tracer != nil {
		rc.Tracer.Trace(core.TraceEvent{Name: label, Kind: core.TraceCustom, Level: core.TraceLevelDebug,
			Metadata: map[string]core.Value{"logging.label": core.String(label), "logging.input": core.String(input)}})
	}

	result, err := m.Inner.Execute(ctx, input, rc)

	if err != nil {
		logger.Warn("step failed", "step", label, "error", err)
		return result, err
	}
	logger.Debug("step completed", "step", label, "output_len", len(result.Output))
	if rc != nil && rc.Tracer != nil {
		rc.Tracer.Trace(core.TraceEvent{Name: label, Kind: core.TraceCustom, Level: core.TraceLevelDebug,
			Metadata: map[string]core.Value{"logging.label": core.String(label), "logging.output": core.String(result.Output)}})
	}
	result = result.WithMetadata("logging.label", core.String(label))
	result = result.WithMetadata("logging.input", core.String(input))
	result = result.WithMetadata("logging.output", core.String(result.Output))
	return result, nil
}
