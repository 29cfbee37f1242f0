package resilience

import (
	"context"
	"sync"
	"time"

	"github.com/agentcore/orchestrator/pkg/core"
)

// RateLimiterConfig configures a token-bucket RateLimiter, grounded on
// the teacher's ratelimit.Config (yaml-tagged for the ambient config
// stack).
type RateLimiterConfig struct {
	MaxTokens  float64 `yaml:"maxTokens"`
	RefillRate float64 `yaml:"refillRate"` // tokens per second
}

// DefaultRateLimiterConfig mirrors the teacher's ratelimit.DefaultConfig.
func DefaultRateLimiterConfig() RateLimiterConfig {
	return RateLimiterConfig{MaxTokens: 10, RefillRate: 1}
}

// RateLimiter is a token bucket with continuous refill (spec §4.5). The
// teacher's Bucket (internal/ratelimit/limiter.go) only exposes a
// non-blocking Allow/AllowN; this adds the blocking, cancellable
// Acquire the spec requires alongside the non-blocking TryAcquire.
type RateLimiter struct {
	cfg        RateLimiterConfig
	mu         sync.Mutex
	tokens     float64
	lastRefill time.Time
}

// NewRateLimiter constructs a full bucket.
func NewRateLimiter(cfg RateLimiterConfig) *RateLimiter {
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 10
	}
	if cfg.RefillRate <= 0 {
		cfg.RefillRate = 1
	}
	return &RateLimiter{cfg: cfg, tokens: cfg.MaxTokens, lastRefill: time.Now()}
}

func (r *RateLimiter) refillLocked() {
	now := time.Now()
	elapsed := now.Sub(r.lastRefill).Seconds()
	if elapsed <= 0 {
		return
	}
	r.tokens += elapsed * r.cfg.RefillRate
	if r.tokens > r.cfg.MaxTokens {
		r.tokens = r.cfg.MaxTokens
	}
	r.lastRefill = now
}

// TryAcquire is the non-blocking variant: it returns false immediately
// if fewer than one token is available.
func (r *RateLimiter) TryAcquire() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.refillLocked()
	if r.tokens < 1 {
		return false
	}
	r.tokens--
	return true
}

// waitDuration computes how long to sleep before a token will be
// available, assuming no other acquisition races ahead of it.
func (r *RateLimiter) waitDuration() time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.refillLocked()
	if r.tokens >= 1 {
		return 0
	}
	deficit := 1 - r.tokens
	return time.Duration(deficit / r.cfg.RefillRate * float64(time.Second))
}

// Acquire blocks until at least one token is available, then decrements
// it, per spec §4.5. Cancellation aborts the sleep and raises
// core.Cancelled().
func (r *RateLimiter) Acquire(ctx context.Context) error {
	for {
		if r.TryAcquire() {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return core.Cancelled()
		}
		wait := r.waitDuration()
		if wait <= 0 {
			wait = time.Millisecond
		}
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return core.Cancelled()
		case <-timer.C:
		}
	}
}

// Tokens returns the current (refilled) token count, for diagnostics.
func (r *RateLimiter) Tokens() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.refillLocked()
	return r.tokens
}
