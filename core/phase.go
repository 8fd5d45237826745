package core

import "time"

// PhaseStatus is the closed outcome set of a public AbstractPhase.
type PhaseStatus string

const (
	PhasePending   PhaseStatus = "pending"
	PhaseRunning   PhaseStatus = "running"
	PhaseCompleted PhaseStatus = "completed"
	PhaseFailed    PhaseStatus = "failed"
)

// ModelInfo is the trimmed, user-facing projection of a ModelInvocation/
// InvocationResult pair attached to a PhaseRecord.
type ModelInfo struct {
	Provider Provider
	Model    string
}

// PhaseRecord is the per-phase bookkeeping the Phase Scheduler and Event Bus
// project from internal Role-level results onto one of the five public
// AbstractPhases (§4.6, §4.7).
type PhaseRecord struct {
	Phase          AbstractPhase
	StepIndex      int
	Status         PhaseStatus
	PreviewText    string
	StartedAt      time.Time
	EndedAt        time.Time
	LatencyMs      int64
	ModelInfo      []ModelInfo
	CouncilSummary string
}
