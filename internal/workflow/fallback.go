package workflow

import (
	"context"
	"time"

	"github.com/agentcore/orchestrator/pkg/core"
)

// Fallback tries Primary up to Retries+1 times; on final failure it runs
// Backup. Grounded on the teacher's FailoverOrchestrator
// (internal/agent/failover.go), specialized to the Step contract.
type Fallback struct {
	Name    string
	Primary core.Step
	Backup  core.Step
	Retries int
}

func (f *Fallback) StepName() string {
	if f.Name != "" {
		return f.Name
	}
	return "fallback"
}

// Execute implements core.Step. When Primary succeeds on its first
// attempt, the result is returned unmodified (Fallback(primary, backup,
// retries=0) with an always-succeeding primary is identity on primary,
// per spec §8's idempotence law).
func (f *Fallback) Execute(ctx context.Context, input string, rc *core.RunContext) (core.StepResult, error) {
	start := time.Now()
	var lastErr error
	attempts := 0

	for attempts <= f.Retries {
		if err := ctx.Err(); err != nil {
			return core.StepResult{}, core.Cancelled()
		}
		result, err := f.Primary.Execute(ctx, input, rc)
		attempts++
		if err == nil {
			if attempts > 1 {
				result = result.WithMetadata("fallback.retries_before_success", core.Int(int64(attempts-1)))
			}
			result.Duration = time.Since(start)
			return result, nil
		}
		lastErr = err
	}

	result, err := f.Backup.Execute(ctx, input, rc)
	if err != nil {
		return result, err
	}
	result = result.WithMetadata("fallback.used", core.Bool(true))
	if lastErr != nil {
		result = result.WithMetadata("fallback.primary_error", core.String(lastErr.Error()))
	}
	result.Duration = time.Since(start)
	return result, nil
}
