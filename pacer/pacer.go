// Package pacer provides per-provider rate limiting and concurrency bounding
// for the Agent Executor: a token-bucket limiter via golang.org/x/time/rate
// for steady-state RPS, paired with a counting semaphore via
// golang.org/x/sync/semaphore bounding in-flight invocations, with FIFO
// admission order (§4.2).
package pacer

import (
	"context"
	"sync"

	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"

	"github.com/opencouncil/orchestrator/core"
)

// Pacer admits invocations for a single provider, enforcing
// both its steady-state rate and its maximum concurrency.
type Pacer struct {
	limiter *rate.Limiter
	sem     *semaphore.Weighted
}

// New builds a Pacer from a provider's RateLimitConfig.
func New(cfg core.RateLimitConfig) *Pacer {
	burst := cfg.Burst
	if burst < 1 {
		burst = 1
	}
	concurrency := cfg.Concurrency
	if concurrency < 1 {
		concurrency = 1
	}
	return &Pacer{
		limiter: rate.NewLimiter(rate.Limit(cfg.RPS), burst),
		sem:     semaphore.NewWeighted(int64(concurrency)),
	}
}

// Release must be called exactly once for every successful Acquire, when
// the caller's invocation has completed (§4.2).
type Release func()

// Acquire blocks, in FIFO order among concurrent callers, until both the
// rate limiter admits the request and a concurrency slot is free, or ctx is
// cancelled first — implementing the cancellation bound property (P6): a
// blocked Acquire returns promptly once ctx.Done() fires.
func (p *Pacer) Acquire(ctx context.Context) (Release, error) {
	if err := p.sem.Acquire(ctx, 1); err != nil {
		return nil, core.NewError("pacer.Acquire", core.ErrKindCancelled, err)
	}

	if err := p.limiter.Wait(ctx); err != nil {
		p.sem.Release(1)
		return nil, core.NewError("pacer.Acquire", core.ErrKindCancelled, err)
	}

	var once sync.Once
	return func() {
		once.Do(func() { p.sem.Release(1) })
	}, nil
}

// Registry holds one Pacer per provider, built from the provider registry's
// ProviderDefaults so callers never construct Pacers by hand.
type Registry struct {
	mu     sync.Mutex
	pacers map[core.Provider]*Pacer
}

// NewRegistry builds an empty Registry; pacers are created lazily on first
// use from the given provider's registered RateLimitConfig.
func NewRegistry() *Registry {
	return &Registry{pacers: make(map[core.Provider]*Pacer)}
}

// For returns the Pacer for p, constructing it from core.LookupProviderDefaults
// on first use.
func (r *Registry) For(p core.Provider) *Pacer {
	r.mu.Lock()
	defer r.mu.Unlock()

	if pc, ok := r.pacers[p]; ok {
		return pc
	}

	defaults, _ := core.LookupProviderDefaults(p)
	pc := New(defaults.RateLimit)
	r.pacers[p] = pc
	return pc
}
