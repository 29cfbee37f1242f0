package workflow

import (
	"context"

	"github.com/agentcore/orchestrator/pkg/core"
)

// Interrupt unconditionally raises workflowInterrupted, with Payload
// computing the reason from the current input.
type Interrupt struct {
	Name    string
	Payload func(input string) string
}

func (i *Interrupt) StepName() string {
	if i.Name != "" {
		return i.Name
	}
	return "interrupt"
}

// Execute implements core.Step.
func (i *Interrupt) Execute(ctx context.Context, input string, rc *core.RunContext) (core.StepResult, error) {
	reason := input
	if i.Payload != nil {
		reason = i.Payload(input)
	}
	return core.StepResult{}, core.WorkflowInterrupted(reason)
}
