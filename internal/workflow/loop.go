package workflow

import (
	"context"
	"fmt"
	"time"

	"github.com/agentcore/orchestrator/pkg/core"
)

// LoopConditionKind distinguishes the three Loop condition variants of
// spec §4.3.
type LoopConditionKind int

const (
	LoopMaxIterations LoopConditionKind = iota
	LoopUntil
	LoopWhileTrue
)

// loopSafetyCap bounds predicate-driven loops, per spec §4.3.
const loopSafetyCap = 1000

// LoopPredicate evaluates against the current iteration's input/output;
// predicates may be async (hence ctx) and must be pure.
type LoopPredicate func(ctx context.Context, value string, rc *core.RunContext) (bool, error)

// LoopCondition is one of maxIterations(n), until(pred), whileTrue(pred).
type LoopCondition struct {
	Kind LoopConditionKind
	N    int
	Pred LoopPredicate
}

// MaxIterations runs the body exactly n times (0 = identity).
func MaxIterations(n int) LoopCondition { return LoopCondition{Kind: LoopMaxIterations, N: n} }

// Until runs the body until pred(newOutput) is true, re-evaluated
// against the new input each iteration (spec §9 resolves this
// ambiguity explicitly).
func Until(pred LoopPredicate) LoopCondition { return LoopCondition{Kind: LoopUntil, Pred: pred} }

// WhileTrue runs the body while pred(currentInput) is true, tested
// before each iteration.
func WhileTrue(pred LoopPredicate) LoopCondition { return LoopCondition{Kind: LoopWhileTrue, Pred: pred} }

// Loop repeatedly executes Body, feeding each iteration's output as the
// next iteration's input, until Condition is satisfied.
type Loop struct {
	Name      string
	Body      core.Step
	Condition LoopCondition
}

func (l *Loop) StepName() string {
	if l.Name != "" {
		return l.Name
	}
	return "loop"
}

// Execute implements core.Step.
func (l *Loop) Execute(ctx context.Context, input string, rc *core.RunContext) (core.StepResult, error) {
	start := time.Now()
	result := core.NewStepResult(input)
	cur := input
	iterCount := 0

	runIteration := func(k int) (core.StepResult, error) {
		if err := ctx.Err(); err != nil {
			return core.StepResult{}, core.Cancelled()
		}
		stepResult, err := l.Body.Execute(ctx, cur, rc)
		if err != nil {
			return core.StepResult{}, err
		}
		result.ToolCalls = append(result.ToolCalls, stepResult.ToolCalls...)
		result.ToolResults = append(result.ToolResults, stepResult.ToolResults...)
		result.Iterations += stepResult.Iterations
		result = result.MergeMetadata(fmt.Sprintf("loop.iter_%d.", k), stepResult.Metadata)
		result.Output = stepResult.Output
		cur = stepResult.Output
		iterCount++
		return stepResult, nil
	}

	switch l.Condition.Kind {
	case LoopMaxIterations:
		for k := 0; k < l.Condition.N; k++ {
			if _, err := runIteration(k); err != nil {
				return result, err
			}
		}

	case LoopWhileTrue:
		for k := 0; k < loopSafetyCap; k++ {
			cont, err := l.Condition.Pred(ctx, cur, rc)
			if err != nil {
				return result, err
			}
			if !cont {
				break
			}
			if _, err := runIteration(k); err != nil {
				return result, err
			}
		}

	case LoopUntil:
		for k := 0; k < loopSafetyCap; k++ {
			if _, err := runIteration(k); err != nil {
				return result, err
			}
			done, err := l.Condition.Pred(ctx, cur, rc)
			if err != nil {
				return result, err
			}
			if done {
				break
			}
		}
	}

	result = result.WithMetadata("loop.iteration_count", core.Int(int64(iterCount)))
	result.Duration = time.Since(start)
	return result, nil
}
