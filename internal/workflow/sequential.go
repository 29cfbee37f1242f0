// Package workflow implements the Step combinators of spec §4.3:
// Sequential, Parallel, Loop, Fallback, Route, Supervisor, Interrupt,
// plus the modifier wrappers of §4.9 (retry/timeout/named/logged).
// Grounded on the teacher's internal/agent (fork-join executor pattern
// in executor.go), internal/agent/failover.go (ordered fallback), and
// internal/multiagent/router.go + supervisor.go (routing/delegation).
package workflow

import (
	"context"
	"fmt"
	"time"

	"github.com/agentcore/orchestrator/pkg/core"
)

// Sequential executes child Steps in order, feeding each step's output
// as the next step's input. Short-circuits on error with no rollback.
type Sequential struct {
	Name  string
	Steps []core.Step
}

func (s *Sequential) StepName() string {
	if s.Name != "" {
		return s.Name
	}
	return "sequential"
}

// Execute implements core.Step.
func (s *Sequential) Execute(ctx context.Context, input string, rc *core.RunContext) (core.StepResult, error) {
	start := time.Now()
	if len(s.Steps) == 0 {
		out := core.NewStepResult(input)
		out.Duration = time.Since(start)
		return out, nil
	}

	result := core.NewStepResult(input)
	cur := input
	for i, step := range s.Steps {
		if err := ctx.Err(); err != nil {
			return result, core.Cancelled()
		}
		stepResult, err := step.Execute(ctx, cur, rc)
		if err != nil {
			return result, err
		}
		result.ToolCalls = append(result.ToolCalls, stepResult.ToolCalls...)
		result.ToolResults = append(result.ToolResults, stepResult.ToolResults...)
		result.Iterations += stepResult.Iterations
		result = result.MergeMetadata(fmt.Sprintf("sequential.step_%d.", i), stepResult.Metadata)
		result.Output = stepResult.Output
		cur = stepResult.Output
	}
	result.Duration = time.Since(start)
	return result, nil
}
