package core

import (
	"errors"
	"fmt"
)

// ErrorKind is the closed, exhaustive taxonomy of §7. It is returned in
// RunResult.ErrorKind and in terminal `error` events, never as a raised
// exception through any other channel.
type ErrorKind string

const (
	ErrKindNoCredentials    ErrorKind = "no_credentials"
	ErrKindNoProvider       ErrorKind = "no_provider"
	ErrKindUnauthorized     ErrorKind = "unauthorized"
	ErrKindRateLimited      ErrorKind = "rate_limited"
	ErrKindUnavailable      ErrorKind = "unavailable"
	ErrKindTimeout          ErrorKind = "timeout"
	ErrKindInvalidResponse  ErrorKind = "invalid_response"
	ErrKindCancelled        ErrorKind = "cancelled"
	ErrKindPhase1Empty      ErrorKind = "phase1_empty"
	ErrKindSynthesisFailed  ErrorKind = "synthesis_failed"
	ErrKindJudgementFailed  ErrorKind = "judgement_failed"
	ErrKindValidationFailed ErrorKind = "validation_failed"
	ErrKindInternal         ErrorKind = "internal"
)

// Transient reports whether the kind should trigger a retry/fallback within
// the Agent Executor rather than dropping the candidate outright (§4.3, §7).
func (k ErrorKind) Transient() bool {
	return k == ErrKindRateLimited || k == ErrKindUnavailable
}

// Terminal reports whether the kind should drop the candidate from further
// retries within the same executor invocation (§7).
func (k ErrorKind) Terminal() bool {
	return k == ErrKindUnauthorized || k == ErrKindInvalidResponse
}

// CouncilError wraps an ErrorKind with operation context, implementing the
// closed-error-kind-enum redesign note in §9: every external boundary in this
// module catches internal errors and maps them to one of these before they
// cross a component seam.
type CouncilError struct {
	Op    string
	Kind  ErrorKind
	Phase AbstractPhase // optional, empty if not phase-scoped
	Err   error
}

func (e *CouncilError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Kind)
}

func (e *CouncilError) Unwrap() error { return e.Err }

// NewError builds a CouncilError for the given operation and kind.
func NewError(op string, kind ErrorKind, err error) *CouncilError {
	return &CouncilError{Op: op, Kind: kind, Err: err}
}

// KindOf extracts the ErrorKind from err if it (or something it wraps) is a
// *CouncilError; otherwise returns ErrKindInternal.
func KindOf(err error) ErrorKind {
	if err == nil {
		return ""
	}
	var ce *CouncilError
	if errors.As(err, &ce) {
		return ce.Kind
	}
	return ErrKindInternal
}

// Sentinel errors used with errors.Is for common cross-cutting conditions not
// tied to one specific operation.
var (
	ErrCircuitBreakerOpen = errors.New("circuit breaker open")
	ErrMaxRetriesExceeded = errors.New("maximum retries exceeded")
	ErrNoCandidates       = errors.New("no provider candidates available")
)
