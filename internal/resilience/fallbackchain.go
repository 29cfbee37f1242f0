package resilience

import (
	"context"

	"github.com/agentcore/orchestrator/pkg/core"
)

// FallbackStep is one named, optionally conditional step of a
// FallbackChain, per spec §4.5.
type FallbackStep struct {
	Name        string
	Op          func(ctx context.Context, input string) (string, error)
	Conditional func(input string) bool // nil means always eligible
	Guaranteed  bool                    // must succeed if reached, else allFallbacksFailed
}

// ChainResult is the ExecutionResult of spec §4.5 / testable scenario 5.
type ChainResult struct {
	Output        string
	StepName      string
	StepIndex     int
	TotalAttempts int
	Errors        []StepError
}

// StepError pairs a failed step's name with its error, preserved in
// ChainResult.Errors. core.CoreError.Fallbacks keeps only the errors,
// without the step names.
type StepError struct {
	StepName string
	Err      error
}

// FallbackChain tries an ordered list of steps, skipping ineligible
// ones, and returns the first success. Grounded on the teacher's
// FailoverOrchestrator (internal/agent/failover.go): ordered providers,
// skip-if-unavailable, try-with-result, record outcome, continue or stop.
type FallbackChain struct {
	Steps     []FallbackStep
	OnFailure func(name string, err error)
}

// NewFallbackChain builds a chain from the given steps.
func NewFallbackChain(steps ...FallbackStep) *FallbackChain {
	return &FallbackChain{Steps: steps}
}

// Execute runs the chain. A guaranteed step that fails short-circuits
// the chain with core.AllFallbacksFailed, per spec §4.5.
func (c *FallbackChain) Execute(ctx context.Context, input string) (ChainResult, error) {
	var errs []StepError
	attempts := 0

	for i, step := range c.Steps {
		if step.Conditional != nil && !step.Conditional(input) {
			continue
		}
		if err := ctx.Err(); err != nil {
			return ChainResult{}, core.Cancelled()
		}

		attempts++
		out, err := step.Op(ctx, input)
		if err == nil {
			return ChainResult{
				Output:        out,
				StepName:      step.Name,
				StepIndex:     i,
				TotalAttempts: attempts,
				Errors:        errs,
			}, nil
		}

		errs = append(errs, StepError{StepName: step.Name, Err: err})
		if c.OnFailure != nil {
			c.OnFailure(step.Name, err)
		}
		if step.Guaranteed {
			break
		}
	}

	errValues := make([]error, len(errs))
	for i, e := range errs {
		errValues[i] = e.Err
	}
	return ChainResult{TotalAttempts: attempts, Errors: errs}, core.AllFallbacksFailed(errValues)
}
