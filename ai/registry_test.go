package ai

import (
	"context"
	"testing"

	"github.com/opencouncil/orchestrator/core"
)

type stubAdapter struct {
	provider core.Provider
}

func (s stubAdapter) Provider() core.Provider { return s.provider }
func (s stubAdapter) Invoke(ctx context.Context, inv core.ModelInvocation) (core.InvocationResult, error) {
	return core.InvocationResult{Status: core.InvocationSucceeded, ProviderUsed: s.provider}, nil
}

type stubFactory struct {
	provider core.Provider
	built    int
	lastKey  string
}

func (f *stubFactory) Provider() core.Provider { return f.provider }
func (f *stubFactory) New(apiKey string, httpClient core.HTTPClient, logger core.Logger) Adapter {
	f.built++
	f.lastKey = apiKey
	return stubAdapter{provider: f.provider}
}

const registryTestProvider core.Provider = "registry-test-provider"

func TestRegisterRejectsNilAndEmptyProvider(t *testing.T) {
	if err := Register(nil); err == nil {
		t.Fatal("expected an error registering a nil factory")
	}
	if err := Register(&stubFactory{provider: ""}); err == nil {
		t.Fatal("expected an error registering a factory with an empty provider")
	}
}

func TestRegistryAdapterBuildsAndCachesOnePerProvider(t *testing.T) {
	factory := &stubFactory{provider: registryTestProvider}
	if err := Register(factory); err != nil {
		t.Fatalf("Register: %v", err)
	}

	r := NewRegistry(nil, nil)
	creds := core.CredentialMap{registryTestProvider: "key-123"}

	a1, err := r.Adapter(registryTestProvider, creds)
	if err != nil {
		t.Fatalf("Adapter: %v", err)
	}
	a2, err := r.Adapter(registryTestProvider, creds)
	if err != nil {
		t.Fatalf("Adapter: %v", err)
	}
	if a1 != a2 {
		t.Fatal("expected the same cached adapter instance on the second call")
	}
	if factory.built != 1 {
		t.Fatalf("expected the factory to build exactly once, built %d times", factory.built)
	}
	if factory.lastKey != "key-123" {
		t.Fatalf("expected the credential to be passed through, got %q", factory.lastKey)
	}
}

func TestRegistryAdapterFailsWithoutCredential(t *testing.T) {
	factory := &stubFactory{provider: registryTestProvider + "-no-cred"}
	if err := Register(factory); err != nil {
		t.Fatalf("Register: %v", err)
	}

	r := NewRegistry(nil, nil)
	_, err := r.Adapter(factory.Provider(), core.CredentialMap{})
	if core.KindOf(err) != core.ErrKindNoCredentials {
		t.Fatalf("expected ErrKindNoCredentials, got %v", err)
	}
}

func TestRegistryAdapterFailsWithoutRegisteredFactory(t *testing.T) {
	r := NewRegistry(nil, nil)
	creds := core.CredentialMap{"unregistered-provider": "key"}

	_, err := r.Adapter("unregistered-provider", creds)
	if core.KindOf(err) != core.ErrKindNoProvider {
		t.Fatalf("expected ErrKindNoProvider, got %v", err)
	}
}

func TestRegisteredFactoryProvidersIncludesRegistered(t *testing.T) {
	factory := &stubFactory{provider: registryTestProvider + "-listed"}
	if err := Register(factory); err != nil {
		t.Fatalf("Register: %v", err)
	}

	found := false
	for _, p := range RegisteredFactoryProviders() {
		if p == factory.Provider() {
			found = true
		}
	}
	if !found {
		t.Fatal("expected RegisteredFactoryProviders to include the newly registered provider")
	}
}
