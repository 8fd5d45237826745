package core

import "time"

// SessionStatus is the closed lifecycle state set of one run (§4.9).
type SessionStatus string

const (
	SessionPending   SessionStatus = "pending"
	SessionRunning   SessionStatus = "running"
	SessionSuccess   SessionStatus = "success"
	SessionError     SessionStatus = "error"
	SessionCancelled SessionStatus = "cancelled"
)

// Terminal reports whether s is one of the three states a session cannot
// leave once entered.
func (s SessionStatus) Terminal() bool {
	return s == SessionSuccess || s == SessionError || s == SessionCancelled
}

// Session is the Session Manager's per-run bookkeeping record. Mutations go
// through the manager's per-entry lock; this struct itself carries no
// synchronization. Invariant: Output is non-empty iff Status == SessionSuccess;
// Error is non-empty iff Status is SessionError or SessionCancelled and the
// run failed before producing output (§3).
type Session struct {
	ID              string
	CreatedAt       time.Time
	OrgScope        string
	Status          SessionStatus
	CurrentPhase    AbstractPhase
	ExecutionTimeMs int64
	Output          string
	Error           string
	CancelRequested bool
}

// RunResult is the Orchestrator Facade's return value for a completed run
// (§4.10, §6). ErrorKind and Error are populated only when Status != success.
type RunResult struct {
	Status              SessionStatus
	Output              string
	PhaseOutputs        map[Role]string
	ExecutionTimeMs     int64
	ProviderUsedPerRole map[Role]Provider
	QualityScore        *QualityScore
	Error               string
	ErrorKind           ErrorKind
}
