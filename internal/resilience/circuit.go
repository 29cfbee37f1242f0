package resilience

import (
	"context"
	"sync"
	"time"

	"github.com/agentcore/orchestrator/pkg/core"
)

// CircuitState mirrors spec §3's CircuitBreaker.State: closed, open
// (until a timestamp), or halfOpen.
type CircuitState string

const (
	StateClosed   CircuitState = "closed"
	StateOpen     CircuitState = "open"
	StateHalfOpen CircuitState = "half_open"
)

// CircuitBreakerConfig configures a CircuitBreaker. Grounded on the
// teacher's CircuitBreakerConfig (internal/infra/circuit.go), extended
// with HalfOpenMaxRequests which the teacher's breaker does not gate.
type CircuitBreakerConfig struct {
	Name                string
	FailureThreshold    int
	SuccessThreshold    int
	ResetTimeout        time.Duration
	HalfOpenMaxRequests int
	OnStateChange       func(name string, from, to CircuitState)
}

// DefaultCircuitBreakerConfig mirrors the teacher's defaults.
func DefaultCircuitBreakerConfig(name string) CircuitBreakerConfig {
	return CircuitBreakerConfig{
		Name:                name,
		FailureThreshold:    5,
		SuccessThreshold:    2,
		ResetTimeout:        30 * time.Second,
		HalfOpenMaxRequests: 1,
	}
}

// CircuitBreakerStats is a point-in-time snapshot, returned atomically.
type CircuitBreakerStats struct {
	Name                string
	State               CircuitState
	ConsecutiveFailures int
	ConsecutiveSuccesses int
	TotalFailures       int
	TotalSuccesses      int
	LastFailureTime     time.Time
	LastStateChange     time.Time
}

// CircuitBreaker implements spec §4.5's four-step execute() contract,
// including the half-open in-flight gate the teacher's breaker omits.
type CircuitBreaker struct {
	cfg CircuitBreakerConfig

	mu                   sync.Mutex
	state                CircuitState
	consecutiveFailures  int
	consecutiveSuccesses int
	totalFailures        int
	totalSuccesses       int
	lastFailure          time.Time
	lastStateChange      time.Time
	openUntil            time.Time
	halfOpenInFlight     int
}

// NewCircuitBreaker constructs a closed breaker.
func NewCircuitBreaker(cfg CircuitBreakerConfig) *CircuitBreaker {
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = 5
	}
	if cfg.SuccessThreshold <= 0 {
		cfg.SuccessThreshold = 2
	}
	if cfg.ResetTimeout <= 0 {
		cfg.ResetTimeout = 30 * time.Second
	}
	if cfg.HalfOpenMaxRequests <= 0 {
		cfg.HalfOpenMaxRequests = 1
	}
	return &CircuitBreaker{cfg: cfg, state: StateClosed, lastStateChange: time.Now()}
}

// Execute runs op under the breaker's gating, releasing the half-open
// in-flight slot on every exit path.
func (cb *CircuitBreaker) Execute(ctx context.Context, op func(ctx context.Context) error) error {
	acquired, err := cb.tryEnter()
	if err != nil {
		return err
	}
	defer func() {
		if acquired {
			cb.leaveHalfOpen()
		}
	}()

	opErr := op(ctx)
	cb.recordResult(opErr)
	return opErr
}

// ExecuteCircuit is the generic companion of Execute.
func ExecuteCircuit[T any](ctx context.Context, cb *CircuitBreaker, op func(ctx context.Context) (T, error)) (T, error) {
	var result T
	err := cb.Execute(ctx, func(ctx context.Context) error {
		v, err := op(ctx)
		if err == nil {
			result = v
		}
		return err
	})
	return result, err
}

// tryEnter implements steps 1-3 of spec §4.5's execute(); it returns
// acquired=true if it incremented the half-open in-flight counter and
// the caller must call leaveHalfOpen on the way out.
func (cb *CircuitBreaker) tryEnter() (acquired bool, err error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	now := time.Now()
	if cb.state == StateOpen {
		if now.Before(cb.openUntil) {
			return false, core.CircuitBreakerOpen(cb.cfg.Name)
		}
		cb.transitionLocked(StateHalfOpen)
		cb.consecutiveFailures = 0
		cb.consecutiveSuccesses = 0
		cb.halfOpenInFlight = 0
	}

	if cb.state == StateHalfOpen {
		if cb.halfOpenInFlight >= cb.cfg.HalfOpenMaxRequests {
			return false, core.CircuitBreakerOpen(cb.cfg.Name)
		}
		cb.halfOpenInFlight++
		return true, nil
	}

	return false, nil
}

func (cb *CircuitBreaker) leaveHalfOpen() {
	cb.mu.Lock()
	if cb.halfOpenInFlight > 0 {
		cb.halfOpenInFlight--
	}
	cb.mu.Unlock()
}

func (cb *CircuitBreaker) recordResult(err error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if err == nil {
		cb.totalSuccesses++
		cb.consecutiveSuccesses++
		cb.consecutiveFailures = 0
		if cb.state == StateHalfOpen && cb.consecutiveSuccesses >= cb.cfg.SuccessThreshold {
			cb.transitionLocked(StateClosed)
		}
		return
	}

	cb.totalFailures++
	cb.consecutiveFailures++
	cb.consecutiveSuccesses = 0
	cb.lastFailure = time.Now()

	switch cb.state {
	case StateClosed:
		if cb.consecutiveFailures >= cb.cfg.FailureThreshold {
			cb.tripLocked()
		}
	case StateHalfOpen:
		cb.tripLocked()
	}
}

func (cb *CircuitBreaker) tripLocked() {
	cb.transitionLocked(StateOpen)
	cb.openUntil = time.Now().Add(cb.cfg.ResetTimeout)
}

func (cb *CircuitBreaker) transitionLocked(to CircuitState) {
	from := cb.state
	if from == to {
		return
	}
	cb.state = to
	cb.lastStateChange = time.Now()
	if cb.cfg.OnStateChange != nil {
		go cb.cfg.OnStateChange(cb.cfg.Name, from, to)
	}
}

// Reset manually forces the breaker closed.
func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.transitionLocked(StateClosed)
	cb.consecutiveFailures = 0
	cb.consecutiveSuccesses = 0
	cb.halfOpenInFlight = 0
}

// Trip manually forces the breaker open for ResetTimeout.
func (cb *CircuitBreaker) Trip() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.tripLocked()
}

// State returns the current state.
func (cb *CircuitBreaker) State() CircuitState {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

// Stats returns an atomic snapshot of breaker statistics.
func (cb *CircuitBreaker) Stats() CircuitBreakerStats {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return CircuitBreakerStats{
		Name:                 cb.cfg.Name,
		State:                cb.state,
		ConsecutiveFailures:  cb.consecutiveFailures,
		ConsecutiveSuccesses: cb.consecutiveSuccesses,
		TotalFailures:        cb.totalFailures,
		TotalSuccesses:       cb.totalSuccesses,
		LastFailureTime:      cb.lastFailure,
		LastStateChange:      cb.lastStateChange,
	}
}

// CircuitBreakerRegistry is a process-global, create-on-first-access map
// of named breakers, grounded on the teacher's CircuitBreakerRegistry.
type CircuitBreakerRegistry struct {
	mu       sync.RWMutex
	breakers map[string]*CircuitBreaker
}

// NewCircuitBreakerRegistry returns an empty registry.
func NewCircuitBreakerRegistry() *CircuitBreakerRegistry {
	return &CircuitBreakerRegistry{breakers: make(map[string]*CircuitBreaker)}
}

// Breaker returns the named breaker, creating it with cfg (or defaults
// if cfg is nil) on first access.
func (r *CircuitBreakerRegistry) Breaker(name string, cfg *CircuitBreakerConfig) *CircuitBreaker {
	r.mu.RLock()
	cb, ok := r.breakers[name]
	r.mu.RUnlock()
	if ok {
		return cb
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if cb, ok := r.breakers[name]; ok {
		return cb
	}
	var c CircuitBreakerConfig
	if cfg != nil {
		c = *cfg
	} else {
		c = DefaultCircuitBreakerConfig(name)
	}
	c.Name = name
	cb = NewCircuitBreaker(c)
	r.breakers[name] = cb
	return cb
}

// ResetAll resets every registered breaker to closed.
func (r *CircuitBreakerRegistry) ResetAll() {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, cb := range r.breakers {
		cb.Reset()
	}
}

// Remove drops a breaker from the registry.
func (r *CircuitBreakerRegistry) Remove(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.breakers, name)
}

// RemoveAll clears the registry.
func (r *CircuitBreakerRegistry) RemoveAll() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.breakers = make(map[string]*CircuitBreaker)
}

// AllStatistics returns a snapshot of every registered breaker's stats.
func (r *CircuitBreakerRegistry) AllStatistics() map[string]CircuitBreakerStats {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]CircuitBreakerStats, len(r.breakers))
	for name, cb := range r.breakers {
		out[name] = cb.Stats()
	}
	return out
}

// DefaultCircuitBreakerRegistry is the package-global singleton, mirroring
// the teacher's convenience default while remaining overridable: callers
// that need isolation (tests, multi-tenant hosts) construct their own
// registry instead of using this one.
var DefaultCircuitBreakerRegistry = NewCircuitBreakerRegistry()
