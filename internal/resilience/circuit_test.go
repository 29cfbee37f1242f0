package resilience

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/agentcore/orchestrator/pkg/core"
)

func TestCircuitBreakerTripAndRecover(t *testing.T) {
	cfg := CircuitBreakerConfig{
		Name:                "test",
		FailureThreshold:    2,
		SuccessThreshold:    2,
		ResetTimeout:        50 * time.Millisecond,
		HalfOpenMaxRequests: 1,
	}
	cb := NewCircuitBreaker(cfg)
	ctx := context.Background()
	failing := func(ctx context.Context) error { return errors.New("fail") }
	succeeding := func(ctx context.Context) error { return nil }

	_ = cb.Execute(ctx, failing)
	_ = cb.Execute(ctx, failing)
	if cb.State() != StateOpen {
		t.Fatalf("expected open after %d consecutive failures, got %s", cfg.FailureThreshold, cb.State())
	}

	if err := cb.Execute(ctx, succeeding); !errors.Is(err, core.CircuitBreakerOpen("test")) {
		t.Fatalf("expected circuitBreakerOpen while still within resetTimeout, got %v", err)
	}

	time.Sleep(60 * time.Millisecond)

	if err := cb.Execute(ctx, succeeding); err != nil {
		t.Fatalf("expected half-open call to succeed, got %v", err)
	}
	if cb.State() != StateHalfOpen {
		t.Fatalf("expected half_open after one success, got %s", cb.State())
	}

	if err := cb.Execute(ctx, succeeding); err != nil {
		t.Fatalf("expected second half-open success, got %v", err)
	}
	if cb.State() != StateClosed {
		t.Fatalf("expected closed after successThreshold successes, got %s", cb.State())
	}
}

func TestCircuitBreakerHalfOpenInFlightGate(t *testing.T) {
	cfg := CircuitBreakerConfig{
		Name:                "gate",
		FailureThreshold:    1,
		SuccessThreshold:    2,
		ResetTimeout:        10 * time.Millisecond,
		HalfOpenMaxRequests: 1,
	}
	cb := NewCircuitBreaker(cfg)
	ctx := context.Background()
	_ = cb.Execute(ctx, func(ctx context.Context) error { return errors.New("fail") })
	time.Sleep(15 * time.Millisecond)

	// Force transition to half-open by entering, but hold the slot open
	// by not returning before a second call races in.
	block := make(chan struct{})
	done := make(chan error, 1)
	go func() {
		done <- cb.Execute(ctx, func(ctx context.Context) error {
			<-block
			return nil
		})
	}()
	time.Sleep(5 * time.Millisecond)

	err := cb.Execute(ctx, func(ctx context.Context) error { return nil })
	if !errors.Is(err, core.CircuitBreakerOpen("gate")) {
		t.Fatalf("expected second half-open call to be rejected while in-flight slot held, got %v", err)
	}
	close(block)
	<-done
}

func TestCircuitBreakerRegistryCreateOnFirstAccess(t *testing.T) {
	reg := NewCircuitBreakerRegistry()
	a := reg.Breaker("svc", nil)
	b := reg.Breaker("svc", nil)
	if a != b {
		t.Fatal("expected same breaker instance on repeat access")
	}
}
