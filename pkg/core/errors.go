package core

import (
	"errors"
	"fmt"
	"time"
)

// ErrorKind classifies a CoreError into the taxonomy of spec §7: input,
// capacity/availability, execution, control, and terminal errors.
// Modeled on the teacher's ToolErrorType / LoopPhase classification
// shape (agent.ToolError), generalized to the full core taxonomy.
type ErrorKind string

const (
	KindInvalidInput                ErrorKind = "invalid_input"
	KindCancelled                   ErrorKind = "cancelled"
	KindMaxIterationsExceeded       ErrorKind = "max_iterations_exceeded"
	KindTimeout                     ErrorKind = "timeout"
	KindToolNotFound                ErrorKind = "tool_not_found"
	KindToolExecutionFailed         ErrorKind = "tool_execution_failed"
	KindInvalidToolArguments        ErrorKind = "invalid_tool_arguments"
	KindInferenceProviderUnavailable ErrorKind = "inference_provider_unavailable"
	KindRateLimitExceeded           ErrorKind = "rate_limit_exceeded"
	KindModelNotAvailable           ErrorKind = "model_not_available"
	KindContextLengthExceeded       ErrorKind = "context_length_exceeded"
	KindGenerationFailed            ErrorKind = "generation_failed"
	KindGuardrailViolation          ErrorKind = "guardrail_violation"
	KindWorkflowInterrupted         ErrorKind = "workflow_interrupted"
	KindRetriesExhausted            ErrorKind = "retries_exhausted"
	KindCircuitBreakerOpen          ErrorKind = "circuit_breaker_open"
	KindAllFallbacksFailed          ErrorKind = "all_fallbacks_failed"
	KindNoRouteMatched              ErrorKind = "no_route_matched"
	KindInternalError               ErrorKind = "internal_error"
)

// Retryable reports whether errors of this kind are retryable by
// default, per spec §7's class breakdown. Execution errors default to
// retryable but are caller-configurable via RetryPolicy.shouldRetry.
func (k ErrorKind) Retryable() bool {
	switch k {
	case KindRateLimitExceeded, KindInferenceProviderUnavailable, KindModelNotAvailable,
		KindContextLengthExceeded, KindCircuitBreakerOpen,
		KindToolExecutionFailed, KindGenerationFailed:
		return true
	default:
		return false
	}
}

// CoreError is the single typed error value crossing every boundary in
// this module. It carries a Kind for classification plus kind-specific
// fields, and supports errors.Is/errors.As via Unwrap.
type CoreError struct {
	Kind    ErrorKind
	Message string
	Cause   error

	// Kind-specific fields, populated as applicable.
	ToolName     string
	Duration     time.Duration
	RetryAfter   time.Duration
	Model        string
	CurrentLen   int
	MaxLen       int
	Attempts     int
	BreakerName  string
	Fallbacks    []error

	// Partial carries the last partial StepResult for errors that
	// terminate a run mid-flight with useful accumulated work (notably
	// maxIterationsExceeded), per spec §4.2.
	Partial *StepResult
}

func (e *CoreError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Kind, e.Message)
}

func (e *CoreError) Unwrap() error { return e.Cause }

// Is supports errors.Is comparisons against a sentinel CoreError created
// with the same Kind (ignoring message/cause).
func (e *CoreError) Is(target error) bool {
	var t *CoreError
	if !errors.As(target, &t) {
		return false
	}
	return e.Kind == t.Kind
}

func newErr(kind ErrorKind, msg string) *CoreError {
	return &CoreError{Kind: kind, Message: msg}
}

func InvalidInput(msg string) *CoreError { return newErr(KindInvalidInput, msg) }

func Cancelled() *CoreError { return newErr(KindCancelled, "operation cancelled") }

func MaxIterationsExceeded(n int) *CoreError {
	e := newErr(KindMaxIterationsExceeded, fmt.Sprintf("exceeded maxIterations=%d", n))
	e.Attempts = n
	return e
}

func Timeout(d time.Duration) *CoreError {
	e := newErr(KindTimeout, fmt.Sprintf("timed out after %v", d))
	e.Duration = d
	return e
}

func ToolNotFound(name string) *CoreError {
	e := newErr(KindToolNotFound, fmt.Sprintf("tool %q not found or disabled", name))
	e.ToolName = name
	return e
}

func ToolExecutionFailed(name, reason string) *CoreError {
	e := newErr(KindToolExecutionFailed, reason)
	e.ToolName = name
	return e
}

func InvalidToolArguments(name, reason string) *CoreError {
	e := newErr(KindInvalidToolArguments, reason)
	e.ToolName = name
	return e
}

func InferenceProviderUnavailable(reason string) *CoreError {
	return newErr(KindInferenceProviderUnavailable, reason)
}

func RateLimitExceeded(retryAfter time.Duration) *CoreError {
	e := newErr(KindRateLimitExceeded, "rate limit exceeded")
	e.RetryAfter = retryAfter
	return e
}

func ModelNotAvailable(model string) *CoreError {
	e := newErr(KindModelNotAvailable, fmt.Sprintf("model %q not available", model))
	e.Model = model
	return e
}

func ContextLengthExceeded(current, max int) *CoreError {
	e := newErr(KindContextLengthExceeded, fmt.Sprintf("context length %d exceeds max %d", current, max))
	e.CurrentLen, e.MaxLen = current, max
	return e
}

func GenerationFailed(reason string) *CoreError { return newErr(KindGenerationFailed, reason) }

func GuardrailViolation(reason string) *CoreError { return newErr(KindGuardrailViolation, reason) }

func WorkflowInterrupted(reason string) *CoreError { return newErr(KindWorkflowInterrupted, reason) }

func RetriesExhausted(attempts int, lastErr error) *CoreError {
	e := newErr(KindRetriesExhausted, fmt.Sprintf("exhausted after %d attempts", attempts))
	e.Attempts = attempts
	e.Cause = lastErr
	return e
}

func CircuitBreakerOpen(name string) *CoreError {
	e := newErr(KindCircuitBreakerOpen, fmt.Sprintf("circuit %q is open", name))
	e.BreakerName = name
	return e
}

func AllFallbacksFailed(errs []error) *CoreError {
	e := newErr(KindAllFallbacksFailed, fmt.Sprintf("all %d fallback steps failed", len(errs)))
	e.Fallbacks = errs
	return e
}

func NoRouteMatched() *CoreError { return newErr(KindNoRouteMatched, "no route condition matched and no default step configured") }

func InternalError(reason string) *CoreError { return newErr(KindInternalError, reason) }

// IsCoreError unwraps err into a *CoreError if possible.
func IsCoreError(err error) (*CoreError, bool) {
	var ce *CoreError
	ok := errors.As(err, &ce)
	return ce, ok
}

// KindOf returns the ErrorKind of err, or KindInternalError if err is
// not a *CoreError.
func KindOf(err error) ErrorKind {
	if ce, ok := IsCoreError(err); ok {
		return ce.Kind
	}
	return KindInternalError
}
