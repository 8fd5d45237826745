package ai

import (
	"fmt"
	"sync"

	"github.com/opencouncil/orchestrator/core"
)

// factoryRegistry holds the AdapterFactory for each known Provider family.
// Provider packages (providers/openai, providers/gemini, ...) register
// themselves from init(), mirroring the teacher framework's provider
// factory registry.
type factoryRegistry struct {
	mu        sync.RWMutex
	factories map[core.Provider]AdapterFactory
}

var globalFactories = &factoryRegistry{
	factories: make(map[core.Provider]AdapterFactory),
}

// Register adds a provider factory to the global registry. Called from each
// provider package's init().
func Register(f AdapterFactory) error {
	if f == nil {
		return fmt.Errorf("factory cannot be nil")
	}
	p := f.Provider()
	if p == "" {
		return fmt.Errorf("factory.Provider() cannot be empty")
	}

	globalFactories.mu.Lock()
	defer globalFactories.mu.Unlock()
	globalFactories.factories[p] = f
	return nil
}

// Registry builds Adapters on demand from a CredentialMap, caching one
// Adapter instance per provider for the lifetime of a run.
type Registry struct {
	mu         sync.Mutex
	httpClient core.HTTPClient
	logger     core.Logger
	adapters   map[core.Provider]Adapter
}

// NewRegistry constructs a Registry bound to one HTTP client and logger,
// shared across every adapter it builds.
func NewRegistry(httpClient core.HTTPClient, logger core.Logger) *Registry {
	if logger == nil {
		logger = core.NoOpLogger{}
	}
	return &Registry{
		httpClient: httpClient,
		logger:     logger,
		adapters:   make(map[core.Provider]Adapter),
	}
}

// Adapter returns the cached Adapter for p, building it from creds on first
// use. Returns core.ErrNoCandidates-shaped error when no factory is
// registered or no credential is present for p.
func (r *Registry) Adapter(p core.Provider, creds core.CredentialMap) (Adapter, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if a, ok := r.adapters[p]; ok {
		return a, nil
	}

	if !creds.Has(p) {
		return nil, core.NewError("ai.Registry.Adapter", core.ErrKindNoCredentials, fmt.Errorf("no credential for provider %q", p))
	}

	globalFactories.mu.RLock()
	factory, ok := globalFactories.factories[p]
	globalFactories.mu.RUnlock()
	if !ok {
		return nil, core.NewError("ai.Registry.Adapter", core.ErrKindNoProvider, fmt.Errorf("no adapter factory registered for provider %q", p))
	}

	adapter := factory.New(creds[p], r.httpClient, r.logger)
	r.adapters[p] = adapter
	return adapter, nil
}

// RegisteredFactoryProviders lists the providers with a registered factory,
// for diagnostics and tests.
func RegisteredFactoryProviders() []core.Provider {
	globalFactories.mu.RLock()
	defer globalFactories.mu.RUnlock()
	out := make([]core.Provider, 0, len(globalFactories.factories))
	for p := range globalFactories.factories {
		out = append(out, p)
	}
	return out
}
