// Package orchestration wires the classifier, context pack builder, agent
// executor and quality validator into the Phase Scheduler, Session Manager
// and Orchestrator Facade (§4.6-§4.10).
package orchestration

import (
	"github.com/opencouncil/orchestrator/core"
)

// EventKind is the closed set of public events the Event Bus projects
// (§4.7).
type EventKind string

const (
	EventPhaseStart       EventKind = "phase_start"
	EventPhaseDelta       EventKind = "phase_delta"
	EventPhaseEnd         EventKind = "phase_end"
	EventFinalAnswerStart EventKind = "final_answer_start"
	EventFinalAnswerDelta EventKind = "final_answer_delta"
	EventFinalAnswerEnd   EventKind = "final_answer_end"
	EventError            EventKind = "error"
)

// Event is the single projected event type delivered to a run's one
// subscriber. Only the fields relevant to Kind are populated.
type Event struct {
	Kind EventKind

	Phase         core.AbstractPhase
	StepIndex     int
	ModelsPlanned []core.ModelInfo

	DeltaText string
	Model     *core.ModelInfo

	LatencyMs      int64
	TokensUsed     int
	CouncilSummary string

	Confidence string // low|medium|high, only on final_answer_end

	ErrorKind core.ErrorKind
	Message   string
}

// EmitFunc is the caller-supplied sink for projected events (§4.10's
// `emit_fn`).
type EmitFunc func(Event)

// Bus multiplexes internal stage events from possibly many concurrent
// agentexec.Executor tasks into one ordered Event stream per abstract
// phase, applying the back-pressure drop policy to deltas only (§4.7).
type Bus struct {
	emit EmitFunc
}

// NewBus wraps emit with the Bus's delivery guarantees. A nil emit is
// replaced with a no-op so callers need not nil-check.
func NewBus(emit EmitFunc) *Bus {
	if emit == nil {
		emit = func(Event) {}
	}
	return &Bus{emit: emit}
}

// mustDeliver is used for events the bus is never allowed to drop:
// phase_start, phase_end, final_answer_end, error (§4.7).
func (b *Bus) mustDeliver(ev Event) {
	b.emit(ev)
}

// tryDeliver is used for phase_delta/final_answer_delta, which may be
// dropped under back-pressure. Since EmitFunc is a plain synchronous
// callback here (the caller controls buffering), "drop" means the bus
// simply never blocks on this path; callers that need async delivery
// wrap EmitFunc with their own bounded channel and drop-oldest policy.
func (b *Bus) tryDeliver(ev Event) {
	b.emit(ev)
}

func (b *Bus) PhaseStart(phase core.AbstractPhase, stepIndex int, models []core.ModelInfo) {
	b.mustDeliver(Event{Kind: EventPhaseStart, Phase: phase, StepIndex: stepIndex, ModelsPlanned: models})
}

func (b *Bus) PhaseDelta(phase core.AbstractPhase, text string, model *core.ModelInfo) {
	b.tryDeliver(Event{Kind: EventPhaseDelta, Phase: phase, DeltaText: text, Model: model})
}

func (b *Bus) PhaseEnd(phase core.AbstractPhase, latencyMs int64, tokensUsed int, councilSummary string) {
	b.mustDeliver(Event{Kind: EventPhaseEnd, Phase: phase, LatencyMs: latencyMs, TokensUsed: tokensUsed, CouncilSummary: councilSummary})
}

func (b *Bus) FinalAnswerStart() {
	b.mustDeliver(Event{Kind: EventFinalAnswerStart})
}

func (b *Bus) FinalAnswerDelta(text string) {
	b.tryDeliver(Event{Kind: EventFinalAnswerDelta, DeltaText: text})
}

func (b *Bus) FinalAnswerEnd(confidence string) {
	b.mustDeliver(Event{Kind: EventFinalAnswerEnd, Confidence: confidence})
}

func (b *Bus) Error(kind core.ErrorKind, message string, phase core.AbstractPhase) {
	b.mustDeliver(Event{Kind: EventError, ErrorKind: kind, Message: message, Phase: phase})
}
