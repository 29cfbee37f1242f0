package resilience

import (
	"context"
	"errors"
	"testing"
)

func TestFallbackChainFirstSuccess(t *testing.T) {
	chain := NewFallbackChain(
		FallbackStep{Name: "p", Op: func(ctx context.Context, input string) (string, error) {
			return "", errors.New("primary down")
		}},
		FallbackStep{Name: "b", Op: func(ctx context.Context, input string) (string, error) {
			return "OK", nil
		}},
	)

	result, err := chain.Execute(context.Background(), "hi")
	if err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	if result.Output != "OK" || result.StepName != "b" || result.StepIndex != 1 || result.TotalAttempts != 2 {
		t.Fatalf("unexpected result: %+v", result)
	}
	if len(result.Errors) != 1 || result.Errors[0].StepName != "p" {
		t.Fatalf("expected recorded primary error, got %+v", result.Errors)
	}
}

func TestFallbackChainGuaranteedStepFailureStopsChain(t *testing.T) {
	reached := false
	chain := NewFallbackChain(
		FallbackStep{Name: "required", Guaranteed: true, Op: func(ctx context.Context, input string) (string, error) {
			return "", errors.New("must succeed but doesn't")
		}},
		FallbackStep{Name: "never", Op: func(ctx context.Context, input string) (string, error) {
			reached = true
			return "unreached", nil
		}},
	)

	_, err := chain.Execute(context.Background(), "x")
	if err == nil {
		t.Fatal("expected allFallbacksFailed")
	}
	if reached {
		t.Fatal("guaranteed failure must short-circuit the chain")
	}
}

func TestFallbackChainSkipsIneligibleSteps(t *testing.T) {
	chain := NewFallbackChain(
		FallbackStep{Name: "skip", Conditional: func(string) bool { return false }, Op: func(ctx context.Context, input string) (string, error) {
			t.Fatal("ineligible step must not run")
			return "", nil
		}},
		FallbackStep{Name: "run", Op: func(ctx context.Context, input string) (string, error) {
			return "ran", nil
		}},
	)

	result, err := chain.Execute(context.Background(), "x")
	if err != nil || result.Output != "ran" {
		t.Fatalf("expected eligible step to run: result=%+v err=%v", result, err)
	}
}
