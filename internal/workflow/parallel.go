package workflow

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/agentcore/orchestrator/pkg/core"
)

// Parallel executes all child Steps concurrently against the same
// input, merging results in declaration order (not completion order).
// Fail-fast: the first error cancels siblings and propagates; completed
// siblings' names are recorded under parallel.partial.
type Parallel struct {
	Name  string
	Steps []core.Step
}

func (p *Parallel) StepName() string {
	if p.Name != "" {
		return p.Name
	}
	return "parallel"
}

type parallelOutcome struct {
	result core.StepResult
	err    error
	name   string
}

// Execute implements core.Step.
func (p *Parallel) Execute(ctx context.Context, input string, rc *core.RunContext) (core.StepResult, error) {
	start := time.Now()
	if len(p.Steps) == 0 {
		out := core.NewStepResult(input)
		out.Duration = time.Since(start)
		return out, nil
	}

	childCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	outcomes := make([]parallelOutcome, len(p.Steps))
	var (
		wg       sync.WaitGroup
		errOnce  sync.Once
		firstErr error
	)
	for i, step := range p.Steps {
		wg.Add(1)
		go func(i int, step core.Step) {
			defer wg.Done()
			name := stepDisplayName(step, i)
			res, err := step.Execute(childCtx, input, rc)
			outcomes[i] = parallelOutcome{result: res, err: err, name: name}
			if err != nil {
				errOnce.Do(func() { firstErr = err })
				cancel()
			}
		}(i, step)
	}
	wg.Wait()

	failErr := firstErr
	var completed []string
	for _, o := range outcomes {
		if o.err == nil {
			completed = append(completed, o.name)
		}
	}
	if failErr != nil {
		partial := core.NewStepResult("")
		partial = partial.WithMetadata("parallel.partial", core.String(strings.Join(completed, ",")))
		partial.Duration = time.Since(start)
		return partial, failErr
	}

	result := core.NewStepResult("")
	outputs := make([]string, len(outcomes))
	for i, o := range outcomes {
		outputs[i] = fmt.Sprintf("[%d] %s", i, o.result.Output)
		result.ToolCalls = append(result.ToolCalls, o.result.ToolCalls...)
		result.ToolResults = append(result.ToolResults, o.result.ToolResults...)
		result.Iterations += o.result.Iterations
		result = result.MergeMetadata(fmt.Sprintf("parallel.step_%d.", i), o.result.Metadata)
	}
	result.Output = strings.Join(outputs, "\n")
	result.Duration = time.Since(start)
	return result, nil
}

func stepDisplayName(step core.Step, index int) string {
	if n, ok := step.(core.Named); ok {
		return n.StepName()
	}
	return fmt.Sprintf("step_%d", index)
}
