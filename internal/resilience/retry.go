// Package resilience implements the cross-cutting resilience primitives
// of spec §4.5: RetryPolicy, CircuitBreaker (+ registry), RateLimiter,
// and FallbackChain. Grounded on the teacher's internal/retry/retry.go
// (generic Do/DoWithValue + jittered backoff), internal/infra/circuit.go
// (CircuitBreaker + Registry), internal/ratelimit/limiter.go (token
// bucket), and internal/agent/failover.go (ordered-fallback orchestrator).
package resilience

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"time"

	"github.com/agentcore/orchestrator/pkg/core"
)

// BackoffFunc computes the sleep duration before the given retry attempt
// (1-indexed: the delay before the first retry is BackoffFunc(1)).
type BackoffFunc func(attempt int) time.Duration

// Fixed always waits d.
func Fixed(d time.Duration) BackoffFunc {
	return func(int) time.Duration { return d }
}

// Linear waits init + inc*(attempt-1), capped at max.
func Linear(init, inc, max time.Duration) BackoffFunc {
	return func(attempt int) time.Duration {
		d := init + inc*time.Duration(attempt-1)
		if d > max {
			d = max
		}
		return d
	}
}

// Exponential waits base*mult^(attempt-1), capped at max.
func Exponential(base time.Duration, mult float64, max time.Duration) BackoffFunc {
	return func(attempt int) time.Duration {
		d := time.Duration(float64(base) * math.Pow(mult, float64(attempt-1)))
		if d > max || d < 0 {
			d = max
		}
		return d
	}
}

// ExponentialWithJitter applies full jitter over [0, cap] where cap is
// the uncapped exponential backoff bounded by max, per spec §4.5.
func ExponentialWithJitter(base time.Duration, mult float64, max time.Duration) BackoffFunc {
	exp := Exponential(base, mult, max)
	return func(attempt int) time.Duration {
		bound := exp(attempt)
		if bound <= 0 {
			return 0
		}
		return time.Duration(rand.Int63n(int64(bound) + 1))
	}
}

// DecorrelatedJitter implements AWS-style decorrelated jitter:
// previous = base * 3^(n-2); next is drawn from [base, previous*3],
// capped at max. The spec pins this exact formula.
func DecorrelatedJitter(base, max time.Duration) BackoffFunc {
	return func(attempt int) time.Duration {
		var previous time.Duration
		if attempt <= 2 {
			previous = base
		} else {
			previous = time.Duration(float64(base) * math.Pow(3, float64(attempt-2)))
		}
		upper := previous * 3
		if upper > max {
			upper = max
		}
		if upper <= base {
			return base
		}
		span := int64(upper - base)
		return base + time.Duration(rand.Int63n(span+1))
	}
}

// Immediate never waits.
func Immediate() BackoffFunc { return func(int) time.Duration { return 0 } }

// Custom wraps an arbitrary backoff function, unchanged.
func Custom(fn BackoffFunc) BackoffFunc { return fn }

// RetryPolicy executes an operation with bounded retries, per spec
// §4.5's RetryPolicy(maxAttempts, backoff, shouldRetry, onRetry?).
type RetryPolicy struct {
	MaxAttempts int
	Backoff     BackoffFunc
	ShouldRetry func(err error) bool
	OnRetry     func(attempt int, err error, delay time.Duration)
}

// NewRetryPolicy returns a RetryPolicy with a default ShouldRetry that
// retries everything except context cancellation and CoreErrors in the
// control/terminal classes.
func NewRetryPolicy(maxAttempts int, backoff BackoffFunc) *RetryPolicy {
	return &RetryPolicy{
		MaxAttempts: maxAttempts,
		Backoff:     backoff,
		ShouldRetry: DefaultShouldRetry,
	}
}

// DefaultShouldRetry retries anything that isn't context cancellation or
// a non-retryable CoreError kind.
func DefaultShouldRetry(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return false
	}
	if ce, ok := core.IsCoreError(err); ok {
		return ce.Kind.Retryable()
	}
	return true
}

// Execute runs op, retrying per the policy. On exhaustion it raises
// core.RetriesExhausted(attempts, lastErr). Cancellation is checked
// before every attempt and during every sleep.
func (p *RetryPolicy) Execute(ctx context.Context, op func(ctx context.Context) error) error {
	var lastErr error
	attempts := 0
	for {
		if err := ctx.Err(); err != nil {
			return core.Cancelled()
		}
		attempts++
		err := op(ctx)
		if err == nil {
			return nil
		}
		lastErr = err
		shouldRetry := p.ShouldRetry
		if shouldRetry == nil {
			shouldRetry = DefaultShouldRetry
		}
		if attempts > p.MaxAttempts || !shouldRetry(err) {
			ce := core.RetriesExhausted(attempts, lastErr)
			return ce
		}
		delay := p.Backoff(attempts)
		if p.OnRetry != nil {
			p.OnRetry(attempts, err, delay)
		}
		if delay > 0 {
			timer := time.NewTimer(delay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return core.Cancelled()
			case <-timer.C:
			}
		}
	}
}

// ExecuteWithValue is the generic companion to Execute for operations
// that return a value alongside an error.
func ExecuteWithValue[T any](ctx context.Context, p *RetryPolicy, op func(ctx context.Context) (T, error)) (T, error) {
	var result T
	err := p.Execute(ctx, func(ctx context.Context) error {
		v, err := op(ctx)
		if err == nil {
			result = v
		}
		return err
	})
	return result, err
}
