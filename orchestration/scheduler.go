package orchestration

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/opencouncil/orchestrator/agentexec"
	"github.com/opencouncil/orchestrator/core"
)

// RunState is the scheduler's internal three-phase state machine (§4.6).
type RunState string

const (
	StateInit      RunState = "INIT"
	StateP1Running RunState = "P1_RUNNING"
	StateP1Done    RunState = "P1_DONE"
	StateP2Running RunState = "P2_RUNNING"
	StateP2Done    RunState = "P2_DONE"
	StateP3Running RunState = "P3_RUNNING"
	StateP3Done    RunState = "P3_DONE"
	StateFinalized RunState = "FINALIZED"
	StateAborted   RunState = "ABORTED"
)

// Deadlines bundles the per-phase timeouts the scheduler honors.
type Deadlines struct {
	Phase1 time.Duration
	Phase2 time.Duration
	Phase3 time.Duration
}

// DefaultDeadlines returns the spec's default per-phase timeouts.
func DefaultDeadlines() Deadlines {
	return Deadlines{
		Phase1: core.DefaultPhase1Deadline,
		Phase2: core.DefaultPhase2Deadline,
		Phase3: core.DefaultPhase3Deadline,
	}
}

// specialistResult is one Phase 1 role's outcome, partial or complete.
type specialistResult struct {
	role    core.Role
	result  core.InvocationResult
	err     error
	partial string // last preview text reported before the role failed (empty: previews come only with a success)
}

// Scheduler drives the three internal phases and reports state/result.
type Scheduler struct {
	Executor  *agentexec.Executor
	Deadlines Deadlines

	mu    sync.Mutex
	state RunState
}

// NewScheduler builds a Scheduler with the given executor and deadlines,
// defaulting zero-value deadlines to the package defaults.
func NewScheduler(executor *agentexec.Executor, deadlines Deadlines) *Scheduler {
	if deadlines.Phase1 == 0 {
		deadlines.Phase1 = core.DefaultPhase1Deadline
	}
	if deadlines.Phase2 == 0 {
		deadlines.Phase2 = core.DefaultPhase2Deadline
	}
	if deadlines.Phase3 == 0 {
		deadlines.Phase3 = core.DefaultPhase3Deadline
	}
	executor.EnsureBreakerCache()
	return &Scheduler{Executor: executor, Deadlines: deadlines, state: StateInit}
}

func (s *Scheduler) State() RunState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Scheduler) setState(st RunState) {
	s.mu.Lock()
	s.state = st
	s.mu.Unlock()
}

// RunOutcome is everything the Facade needs after the scheduler finishes:
// the final candidate artefact, per-role outputs/providers, and a non-nil
// Err when the run aborted.
type RunOutcome struct {
	FinalArtefact       string
	PhaseOutputs        map[core.Role]string
	ProviderUsedPerRole map[core.Role]core.Provider
	Err                 error
}

// Run drives INIT -> ... -> FINALIZED (or ABORTED) for one query, emitting
// projected events to bus as it goes (§4.6).
func (s *Scheduler) Run(ctx context.Context, query string, pack core.ContextPack, creds core.CredentialMap, preferred map[core.Role]core.Provider, outputMode core.OutputMode, bus *Bus, isCancelled func() bool) RunOutcome {
	s.setState(StateP1Running)

	if isCancelled() {
		s.setState(StateAborted)
		return RunOutcome{Err: core.NewError("scheduler.Run", core.ErrKindCancelled, nil)}
	}

	specialists, err := s.runPhase1(ctx, query, pack, creds, preferred, bus)
	if err != nil {
		s.setState(StateAborted)
		bus.Error(core.KindOf(err), err.Error(), core.PhaseUnderstand)
		return RunOutcome{Err: err}
	}
	s.setState(StateP1Done)

	if isCancelled() {
		s.setState(StateAborted)
		return RunOutcome{Err: core.NewError("scheduler.Run", core.ErrKindCancelled, nil)}
	}

	phaseOutputs := map[core.Role]string{}
	providerUsed := map[core.Role]core.Provider{}
	for _, sr := range specialists {
		if sr.result.Status == core.InvocationSucceeded {
			phaseOutputs[sr.role] = sr.result.Content
			providerUsed[sr.role] = sr.result.ProviderUsed
		} else if sr.partial != "" {
			phaseOutputs[sr.role] = sr.partial
		}
	}

	s.setState(StateP2Running)
	synthesis, err := s.runPhase2(ctx, query, pack, creds, preferred, specialists, bus)
	if err != nil {
		s.setState(StateAborted)
		bus.Error(core.ErrKindSynthesisFailed, err.Error(), core.PhaseCrosscheck)
		return RunOutcome{Err: core.NewError("scheduler.runPhase2", core.ErrKindSynthesisFailed, err), PhaseOutputs: phaseOutputs, ProviderUsedPerRole: providerUsed}
	}
	phaseOutputs[core.RoleSynthesizer] = synthesis.Content
	providerUsed[core.RoleSynthesizer] = synthesis.ProviderUsed
	s.setState(StateP2Done)

	if isCancelled() {
		s.setState(StateAborted)
		return RunOutcome{Err: core.NewError("scheduler.Run", core.ErrKindCancelled, nil), PhaseOutputs: phaseOutputs, ProviderUsedPerRole: providerUsed}
	}

	s.setState(StateP3Running)
	judgement, err := s.runPhase3(ctx, query, pack, creds, preferred, synthesis, specialists, outputMode, bus)
	if err != nil {
		s.setState(StateAborted)
		bus.Error(core.ErrKindJudgementFailed, err.Error(), core.PhaseSynthesize)
		return RunOutcome{Err: core.NewError("scheduler.runPhase3", core.ErrKindJudgementFailed, err), PhaseOutputs: phaseOutputs, ProviderUsedPerRole: providerUsed}
	}
	phaseOutputs[core.RoleJudge] = judgement.Content
	providerUsed[core.RoleJudge] = judgement.ProviderUsed
	s.setState(StateP3Done)
	s.setState(StateFinalized)

	return RunOutcome{
		FinalArtefact:       judgement.Content,
		PhaseOutputs:        phaseOutputs,
		ProviderUsedPerRole: providerUsed,
	}
}

// runPhase1 fans out the five specialists concurrently via errgroup, under
// a shared deadline, and fans back in once all five return (§4.6). A failed
// role keeps the last preview text its executor reported; the executor
// reports preview text only with a successful stage_end, so a failed role
// contributes no output, even if it timed out mid-call.
func (s *Scheduler) runPhase1(ctx context.Context, query string, pack core.ContextPack, creds core.CredentialMap, preferred map[core.Role]core.Provider, bus *Bus) ([]specialistResult, error) {
	deadline := time.Now().Add(s.Deadlines.Phase1)
	phaseCtx, cancel := context.WithDeadline(ctx, deadline)
	defer cancel()

	models := make([]core.ModelInfo, 0, len(core.SpecialistRoles))
	for _, r := range core.SpecialistRoles {
		if p, ok := core.CanonicalPreferredProvider(r); ok {
			defaults, _ := core.LookupProviderDefaults(p)
			models = append(models, core.ModelInfo{Provider: p, Model: defaults.DefaultModel})
		}
	}
	bus.PhaseStart(core.PhaseUnderstand, core.StepIndexForPhase(core.PhaseUnderstand), models)
	bus.PhaseStart(core.PhaseResearch, core.StepIndexForPhase(core.PhaseResearch), models)
	bus.PhaseStart(core.PhaseReasonRefine, core.StepIndexForPhase(core.PhaseReasonRefine), models)

	results := make([]specialistResult, len(core.SpecialistRoles))
	g, gctx := errgroup.WithContext(phaseCtx)
	start := time.Now()

	for i, role := range core.SpecialistRoles {
		i, role := i, role
		g.Go(func() error {
			events := make(chan agentexec.StageEvent, core.EventBusBufferSize)
			localExec := *s.Executor
			localExec.Events = events
			done := make(chan struct{})
			var lastPreview string
			go func() {
				for ev := range events {
					if ev.Kind == agentexec.StageDelta || ev.Kind == agentexec.StageEnd {
						if ev.PreviewText != "" {
							lastPreview = ev.PreviewText
						}
						phase, _ := core.PhaseForRole(role)
						var model *core.ModelInfo
						if ev.Provider != "" {
							defaults, _ := core.LookupProviderDefaults(ev.Provider)
							model = &core.ModelInfo{Provider: ev.Provider, Model: defaults.DefaultModel}
						}
						bus.PhaseDelta(phase, ev.PreviewText, model)
					}
				}
				close(done)
			}()

			result, err := localExec.Execute(gctx, agentexec.Request{
				Role:        role,
				ContextPack: pack,
				Query:       query,
				Credentials: creds,
				Deadline:    deadline,
			})
			close(events)
			<-done

			if err != nil {
				results[i] = specialistResult{role: role, err: err, partial: lastPreview}
				return nil // a specialist failure never aborts the group; P1 only fails if all five fail
			}
			results[i] = specialistResult{role: role, result: result}
			return nil
		})
	}
	_ = g.Wait()

	succeeded := 0
	var maxLatency int64
	var researchLatency int64
	var researchTokens int
	for i, r := range results {
		if r.result.Status == core.InvocationSucceeded {
			succeeded++
			if r.result.LatencyMs > maxLatency {
				maxLatency = r.result.LatencyMs
			}
		}
		if core.SpecialistRoles[i] == core.RoleResearcher {
			researchLatency = r.result.LatencyMs
			researchTokens = r.result.OutputTokens
		}
	}
	bus.PhaseEnd(core.PhaseUnderstand, time.Since(start).Milliseconds(), 0, "")
	bus.PhaseEnd(core.PhaseResearch, researchLatency, researchTokens, summarizeRole(results, core.RoleResearcher))
	bus.PhaseEnd(core.PhaseReasonRefine, maxLatency, 0, summarizeSpecialists(results))

	if succeeded == 0 {
		return results, core.NewError("scheduler.runPhase1", core.ErrKindPhase1Empty, nil)
	}
	return results, nil
}

// summarizeRole reports the single-role outcome line for roles projected
// onto their own dedicated phase (e.g. researcher -> research).
func summarizeRole(results []specialistResult, role core.Role) string {
	for i, r := range results {
		if core.SpecialistRoles[i] != role {
			continue
		}
		if r.result.Status == core.InvocationSucceeded {
			return fmt.Sprintf("%s succeeded", role)
		}
		return fmt.Sprintf("%s failed", role)
	}
	return ""
}

func summarizeSpecialists(results []specialistResult) string {
	var ok []string
	for _, r := range results {
		if r.result.Status == core.InvocationSucceeded {
			ok = append(ok, string(r.role))
		}
	}
	return fmt.Sprintf("%d/%d specialists succeeded: %s", len(ok), len(results), strings.Join(ok, ", "))
}

// runPhase2 runs the synthesizer role sequentially over the concatenated,
// role-labelled specialist outputs (§4.6).
func (s *Scheduler) runPhase2(ctx context.Context, query string, pack core.ContextPack, creds core.CredentialMap, preferred map[core.Role]core.Provider, specialists []specialistResult, bus *Bus) (core.InvocationResult, error) {
	deadline := time.Now().Add(s.Deadlines.Phase2)
	phaseCtx, cancel := context.WithDeadline(ctx, deadline)
	defer cancel()

	bus.PhaseStart(core.PhaseCrosscheck, core.StepIndexForPhase(core.PhaseCrosscheck), nil)
	start := time.Now()

	input := buildSynthesisInput(query, pack, specialists)

	localExec := *s.Executor
	result, err := localExec.Execute(phaseCtx, agentexec.Request{
		Role:              core.RoleSynthesizer,
		ContextPack:       pack,
		Query:             input,
		Credentials:       creds,
		PreferredProvider: preferred[core.RoleSynthesizer],
		Deadline:          deadline,
	})
	if err != nil {
		return core.InvocationResult{}, err
	}

	bus.PhaseDelta(core.PhaseCrosscheck, result.Content, &core.ModelInfo{Provider: result.ProviderUsed, Model: result.ModelUsed})
	bus.PhaseEnd(core.PhaseCrosscheck, time.Since(start).Milliseconds(), result.OutputTokens, "")
	return result, nil
}

func buildSynthesisInput(query string, pack core.ContextPack, specialists []specialistResult) string {
	var sb strings.Builder
	sb.WriteString("query: ")
	sb.WriteString(query)
	sb.WriteString("\ngoal: ")
	sb.WriteString(pack.Goal)
	sb.WriteString("\n\nspecialist perspectives:\n")
	for _, sr := range specialists {
		content := sr.result.Content
		if content == "" {
			content = sr.partial
		}
		if content == "" {
			continue
		}
		fmt.Fprintf(&sb, "[%s]\n%s\n\n", sr.role, content)
	}
	return sb.String()
}

// runPhase3 runs the judge role sequentially over the synthesizer's output,
// optionally including raw specialist transcripts for full-transcript mode
// (§4.6).
func (s *Scheduler) runPhase3(ctx context.Context, query string, pack core.ContextPack, creds core.CredentialMap, preferred map[core.Role]core.Provider, synthesis core.InvocationResult, specialists []specialistResult, outputMode core.OutputMode, bus *Bus) (core.InvocationResult, error) {
	deadline := time.Now().Add(s.Deadlines.Phase3)
	phaseCtx, cancel := context.WithDeadline(ctx, deadline)
	defer cancel()

	bus.PhaseStart(core.PhaseSynthesize, core.StepIndexForPhase(core.PhaseSynthesize), nil)
	bus.FinalAnswerStart()
	start := time.Now()

	var sb strings.Builder
	sb.WriteString("query: ")
	sb.WriteString(query)
	sb.WriteString("\n\nsynthesized draft:\n")
	sb.WriteString(synthesis.Content)
	if outputMode == core.OutputFullTranscript {
		sb.WriteString("\n\nraw specialist transcripts:\n")
		for _, sr := range specialists {
			content := sr.result.Content
			if content == "" {
				content = sr.partial
			}
			fmt.Fprintf(&sb, "[%s]\n%s\n\n", sr.role, content)
		}
	}

	localExec := *s.Executor
	result, err := localExec.Execute(phaseCtx, agentexec.Request{
		Role:              core.RoleJudge,
		ContextPack:       pack,
		Query:             sb.String(),
		Credentials:       creds,
		PreferredProvider: preferred[core.RoleJudge],
		Deadline:          deadline,
	})
	if err != nil {
		return core.InvocationResult{}, err
	}

	bus.FinalAnswerDelta(result.Content)
	bus.FinalAnswerEnd("medium")
	bus.PhaseEnd(core.PhaseSynthesize, time.Since(start).Milliseconds(), result.OutputTokens, "")
	return result, nil
}
