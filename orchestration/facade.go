package orchestration

import (
	"context"
	"time"

	"github.com/opencouncil/orchestrator/agentexec"
	"github.com/opencouncil/orchestrator/ai"
	"github.com/opencouncil/orchestrator/classifier"
	"github.com/opencouncil/orchestrator/contextpack"
	"github.com/opencouncil/orchestrator/core"
	"github.com/opencouncil/orchestrator/pacer"
)

// Facade is the Orchestrator Facade (§4.10): it sequences classifier ->
// context pack -> scheduler -> validator for one run, zeroing credentials
// on return regardless of outcome.
type Facade struct {
	Adapters *ai.Registry
	Pacers   *pacer.Registry
	Sessions *Manager
	Assist   classifier.Assist // optional LLM-assisted classification
	Logger   core.Logger
}

// NewFacade wires a Facade from its collaborators.
func NewFacade(adapters *ai.Registry, pacers *pacer.Registry, sessions *Manager, assist classifier.Assist, logger core.Logger) *Facade {
	if logger == nil {
		logger = core.NoOpLogger{}
	}
	return &Facade{Adapters: adapters, Pacers: pacers, Sessions: sessions, Assist: assist, Logger: logger}
}

// Run executes input end to end: classify, build the context pack, drive
// the scheduler, validate the artefact, and always wipe credentials
// before returning (§4.10, P4).
func (f *Facade) Run(ctx context.Context, input core.RunInput, emit EmitFunc) core.RunResult {
	defer input.Credentials.Wipe()

	bus := NewBus(emit)
	start := time.Now()

	if !anyCredentialPresent(input.Credentials) {
		err := core.NewError("orchestration.Facade.Run", core.ErrKindNoCredentials, nil)
		bus.Error(core.ErrKindNoCredentials, err.Error(), "")
		return errorResult(err, start)
	}

	level := input.ComplexityOverride
	if level == 0 {
		level = classifier.Classify(ctx, input.Query, f.Assist).Level
	}

	pack := contextpack.NewBuilder().Build(input.Query, input.ContextPackFragments, level)

	overall := input.Deadlines.OverallMs
	if overall == 0 {
		overall = core.DefaultRunDeadline
	}
	ctx, cancelRun := context.WithTimeout(ctx, overall)
	defer cancelRun()

	deadlines := Deadlines{
		Phase1: input.Deadlines.Phase1Ms,
		Phase2: input.Deadlines.Phase2Ms,
		Phase3: input.Deadlines.Phase3Ms,
	}

	executor := &agentexec.Executor{Adapters: f.Adapters, Pacers: f.Pacers}
	scheduler := NewScheduler(executor, deadlines)

	outcome := scheduler.Run(ctx, input.Query, pack, input.Credentials, input.PreferredProviders, input.OutputMode, bus, func() bool { return ctx.Err() != nil })
	if outcome.Err != nil {
		return core.RunResult{
			Status:              core.SessionError,
			PhaseOutputs:        outcome.PhaseOutputs,
			ProviderUsedPerRole: outcome.ProviderUsedPerRole,
			ExecutionTimeMs:     time.Since(start).Milliseconds(),
			Error:               outcome.Err.Error(),
			ErrorKind:           core.KindOf(outcome.Err),
		}
	}

	var qualityScore *core.QualityScore
	if input.EnableValidation {
		score := Validator{}.Validate(input.Query, outcome.FinalArtefact, pack)
		qualityScore = &score
	}

	return core.RunResult{
		Status:              core.SessionSuccess,
		Output:              outcome.FinalArtefact,
		PhaseOutputs:        outcome.PhaseOutputs,
		ExecutionTimeMs:     time.Since(start).Milliseconds(),
		ProviderUsedPerRole: outcome.ProviderUsedPerRole,
		QualityScore:        qualityScore,
	}
}

func anyCredentialPresent(creds core.CredentialMap) bool {
	for _, v := range creds {
		if v != "" {
			return true
		}
	}
	return false
}

func errorResult(err error, start time.Time) core.RunResult {
	return core.RunResult{
		Status:          core.SessionError,
		ExecutionTimeMs: time.Since(start).Milliseconds(),
		Error:           err.Error(),
		ErrorKind:       core.KindOf(err),
	}
}
