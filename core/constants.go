package core

import "time"

// Default deadlines, matching spec defaults (overridable via RunInput.Deadlines).
const (
	DefaultPhase1Deadline = 60 * time.Second
	DefaultPhase2Deadline = 30 * time.Second
	DefaultPhase3Deadline = 60 * time.Second
	DefaultRunDeadline    = 180 * time.Second
)

// DefaultContextPackTokenBudget is the ~250-token-equivalent size cap for a ContextPack.
const DefaultContextPackTokenBudget = 250

// DefaultSessionTTL is the age, counted from a session's CreatedAt, past
// which a terminal session is removed by the GC sweep.
const DefaultSessionTTL = 30 * time.Minute

// Retry backoff bounds for Agent Executor candidate retries (§4.3).
const (
	ExecutorRetryInitialDelay = 250 * time.Millisecond
	ExecutorRetryMaxDelay     = 1 * time.Second
)

// EventBusBufferSize bounds the internal stage-event channel before back-pressure
// drop policy kicks in (§4.7).
const EventBusBufferSize = 64
