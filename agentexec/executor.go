// Package agentexec implements the Agent Executor (§4.3): it picks a
// provider candidate list for one role, invokes it through the pacer and
// the ai.Adapter registry with retry/fallback, and reports stage events.
package agentexec

import (
	"context"
	"sync"
	"time"

	"github.com/opencouncil/orchestrator/ai"
	"github.com/opencouncil/orchestrator/core"
	"github.com/opencouncil/orchestrator/pacer"
	"github.com/opencouncil/orchestrator/resilience"
)

// StageEventKind is the closed set of internal stage events the executor
// emits to the Phase Scheduler (§4.3's side effects).
type StageEventKind string

const (
	StageStart StageEventKind = "stage_start"
	StageDelta StageEventKind = "stage_delta"
	StageEnd   StageEventKind = "stage_end"
)

// StageEvent is one executor lifecycle notification for a single role
// invocation.
type StageEvent struct {
	Kind        StageEventKind
	Role        core.Role
	Provider    core.Provider
	PreviewText string
	Err         error
}

// Request is everything Execute needs to run one role once (§4.3).
type Request struct {
	Role               core.Role
	ContextPack        core.ContextPack
	Query              string
	Credentials        core.CredentialMap
	PreferredProvider  core.Provider // empty means "no override"
	Deadline           time.Time
	MaxCompletionTokens int
}

// Executor runs one role invocation at a time, selecting among provider
// candidates per the §4.3 policy.
type Executor struct {
	Adapters *ai.Registry
	Pacers   *pacer.Registry
	Events   chan<- StageEvent // optional; nil drops events on the floor

	// breakers is a pointer so Executor stays copyable by value (the Phase
	// Scheduler hands each specialist goroutine its own copy with a
	// distinct Events channel) without duplicating the underlying lock.
	breakers *breakerCache
}

type breakerCache struct {
	mu       sync.Mutex
	breakers map[core.Provider]*resilience.CircuitBreaker
}

// EnsureBreakerCache allocates the shared circuit-breaker cache if it
// isn't already set. Callers that copy an Executor by value to give
// concurrent goroutines distinct Events channels (the Phase Scheduler)
// MUST call this once on the original before copying, so every copy
// shares the same underlying cache instead of each lazily building its
// own and defeating per-provider tripping.
func (e *Executor) EnsureBreakerCache() {
	if e.breakers == nil {
		e.breakers = &breakerCache{}
	}
}

// breakerFor builds (on first use per provider) or reuses a circuit
// breaker from the shared cache, so a failing provider trips
// independently of the others (§4.3).
func (e *Executor) breakerFor(provider core.Provider) (*resilience.CircuitBreaker, error) {
	e.EnsureBreakerCache()
	e.breakers.mu.Lock()
	defer e.breakers.mu.Unlock()
	if e.breakers.breakers == nil {
		e.breakers.breakers = make(map[core.Provider]*resilience.CircuitBreaker)
	}
	if cb, ok := e.breakers.breakers[provider]; ok {
		return cb, nil
	}
	cb, err := resilience.CreateCircuitBreaker(string(provider), resilience.ResilienceDependencies{})
	if err != nil {
		return nil, err
	}
	e.breakers.breakers[provider] = cb
	return cb, nil
}

// retryBackoff is the exponential retry schedule for one candidate (§4.3):
// at most one retry, 250ms then up to 1s.
var retryBackoff = []time.Duration{250 * time.Millisecond, 1 * time.Second}

// Execute runs req.Role once against the ordered candidate list, retrying
// transient failures on the same candidate before advancing, and returns
// the first success or a failure: no_credentials when no candidate has a
// credential, timeout when the deadline expires, otherwise no_provider
// wrapping the last candidate's error (e.g. an unauthorized one).
func (e *Executor) Execute(ctx context.Context, req Request) (core.InvocationResult, error) {
	candidates := buildCandidates(req.PreferredProvider, req.Role, req.Credentials)
	if len(candidates) == 0 {
		return core.InvocationResult{}, core.NewError("agentexec.Execute", core.ErrKindNoCredentials, core.ErrNoCandidates)
	}

	e.emit(StageEvent{Kind: StageStart, Role: req.Role})

	var lastErr error
	for _, provider := range candidates {
		result, err := e.tryCandidate(ctx, req, provider)
		if err == nil {
			e.emit(StageEvent{Kind: StageEnd, Role: req.Role, Provider: provider, PreviewText: preview(result.Content)})
			return result, nil
		}

		lastErr = err
		kind := core.KindOf(err)
		if kind == core.ErrKindTimeout && deadlineExhausted(req.Deadline) {
			e.emit(StageEvent{Kind: StageEnd, Role: req.Role, Provider: provider, Err: err})
			return core.InvocationResult{}, err
		}
		// unauthorized or any other terminal kind: drop this candidate and
		// move on; transient kinds already exhausted their retries inside
		// tryCandidate, so we also just advance.
	}

	e.emit(StageEvent{Kind: StageEnd, Role: req.Role, Err: lastErr})
	return core.InvocationResult{}, core.NewError("agentexec.Execute", core.ErrKindNoProvider, lastErr)
}

// tryCandidate runs one provider candidate, retrying at most once with
// backoff on transient errors before giving up on this candidate.
func (e *Executor) tryCandidate(ctx context.Context, req Request, provider core.Provider) (core.InvocationResult, error) {
	var result core.InvocationResult
	var err error

	for attempt := 0; attempt <= 1; attempt++ {
		result, err = e.invokeOnce(ctx, req, provider)
		if err == nil {
			return result, nil
		}
		if !core.KindOf(err).Transient() {
			return result, err
		}
		if attempt == len(retryBackoff)-1 || attempt == 1 {
			break
		}
		select {
		case <-ctx.Done():
			return core.InvocationResult{}, core.NewError("agentexec.tryCandidate", core.ErrKindCancelled, ctx.Err())
		case <-time.After(retryBackoff[attempt]):
		}
	}
	return result, err
}

func (e *Executor) invokeOnce(ctx context.Context, req Request, provider core.Provider) (core.InvocationResult, error) {
	adapter, err := e.Adapters.Adapter(provider, req.Credentials)
	if err != nil {
		return core.InvocationResult{}, err
	}

	release, err := e.Pacers.For(provider).Acquire(ctx)
	if err != nil {
		return core.InvocationResult{}, err
	}
	defer release()

	defaults, _ := core.LookupProviderDefaults(provider)
	maxTokens := req.MaxCompletionTokens
	if maxTokens <= 0 {
		maxTokens = defaults.MaxCompletionTokens
	}

	invocation := core.ModelInvocation{
		Role:                req.Role,
		Provider:            provider,
		ModelName:           defaults.DefaultModel,
		UserPrompt:          req.Query,
		MaxCompletionTokens: maxTokens,
		Deadline:            req.Deadline,
	}

	e.emit(StageEvent{Kind: StageDelta, Role: req.Role, Provider: provider})

	breaker, err := e.breakerFor(provider)
	if err != nil {
		return core.InvocationResult{}, err
	}

	var result core.InvocationResult
	var invokeErr error
	breakerErr := breaker.Execute(ctx, func() error {
		result, invokeErr = adapter.Invoke(ctx, invocation)
		if invokeErr != nil {
			return invokeErr
		}
		if result.Status == core.InvocationFailed {
			invokeErr = core.NewError("agentexec.invokeOnce", result.ErrorKind, nil)
			return invokeErr
		}
		return nil
	})
	if invokeErr != nil {
		return result, invokeErr
	}
	if breakerErr != nil {
		// fn never ran (e.g. circuit open): classify as transient so
		// tryCandidate's retry/backoff path applies before falling back.
		return result, core.NewError("agentexec.invokeOnce", core.ErrKindUnavailable, breakerErr)
	}
	return result, nil
}

func (e *Executor) emit(ev StageEvent) {
	if e.Events == nil {
		return
	}
	select {
	case e.Events <- ev:
	default:
	}
}

func deadlineExhausted(deadline time.Time) bool {
	return !deadline.IsZero() && !time.Now().Before(deadline)
}

func preview(content string) string {
	const maxPreview = 160
	if len(content) <= maxPreview {
		return content
	}
	return content[:maxPreview]
}

// buildCandidates constructs the ordered candidate list per §4.3 step 1:
// preferred override (if credentialed), the role's canonical provider (if
// credentialed), then all other credentialed providers in BuiltinProviders
// priority order, each appearing at most once.
func buildCandidates(preferred core.Provider, role core.Role, creds core.CredentialMap) []core.Provider {
	seen := make(map[core.Provider]bool, len(core.BuiltinProviders))
	var out []core.Provider

	add := func(p core.Provider) {
		if p == "" || seen[p] || !creds.Has(p) {
			return
		}
		seen[p] = true
		out = append(out, p)
	}

	add(preferred)
	if canonical, ok := core.CanonicalPreferredProvider(role); ok {
		add(canonical)
	}
	for _, p := range core.BuiltinProviders {
		add(p)
	}
	return out
}
