package orchestration

import (
	"context"
	"testing"

	"github.com/opencouncil/orchestrator/ai"
	"github.com/opencouncil/orchestrator/ai/providers/mock"
	"github.com/opencouncil/orchestrator/core"
	"github.com/opencouncil/orchestrator/pacer"
)

type facadeMockFactory struct {
	provider core.Provider
	client   *mock.Client
}

func (f facadeMockFactory) Provider() core.Provider { return f.provider }
func (f facadeMockFactory) New(apiKey string, httpClient core.HTTPClient, logger core.Logger) ai.Adapter {
	return f.client
}

func wireFacade(t *testing.T) (*Facade, core.CredentialMap) {
	t.Helper()
	registry := ai.NewRegistry(nil, core.NoOpLogger{})
	creds := core.CredentialMap{}
	for _, p := range core.BuiltinProviders {
		c := mock.NewClient(p)
		for i := 0; i < 10; i++ {
			c.QueueSuccess("# Summary\n1. did the thing\n")
		}
		if err := ai.Register(facadeMockFactory{provider: p, client: c}); err != nil {
			t.Fatalf("register %s: %v", p, err)
		}
		creds[p] = "secret-cred"
	}
	f := NewFacade(registry, pacer.NewRegistry(), NewManager(0), nil, nil)
	return f, creds
}

func TestFacadeRunWipesCredentialsOnSuccess(t *testing.T) {
	f, creds := wireFacade(t)

	input := core.RunInput{
		Query:            "design something",
		Credentials:      creds,
		OutputMode:       core.OutputDeliverableOnly,
		EnableValidation: true,
	}
	result := f.Run(context.Background(), input, nil)

	if result.Status != core.SessionSuccess {
		t.Fatalf("expected success, got %s (%s)", result.Status, result.Error)
	}
	for provider, value := range creds {
		if value != "" {
			t.Fatalf("expected credential for %s to be wiped, got %q", provider, value)
		}
	}
	if result.QualityScore == nil {
		t.Fatal("expected a quality score when EnableValidation is set")
	}
}

func TestFacadeRunFailsFastWithNoCredentials(t *testing.T) {
	f, _ := wireFacade(t)
	result := f.Run(context.Background(), core.RunInput{Query: "q", Credentials: core.CredentialMap{}}, nil)

	if result.Status != core.SessionError {
		t.Fatalf("expected error status, got %s", result.Status)
	}
	if result.ErrorKind != core.ErrKindNoCredentials {
		t.Fatalf("expected ErrKindNoCredentials, got %s", result.ErrorKind)
	}
}

func TestFacadeRunWipesCredentialsEvenOnFailure(t *testing.T) {
	registry := ai.NewRegistry(nil, core.NoOpLogger{})
	creds := core.CredentialMap{}
	for _, p := range core.BuiltinProviders {
		c := mock.NewClient(p)
		for i := 0; i < 10; i++ {
			c.QueueFailure(core.ErrKindUnauthorized)
		}
		if err := ai.Register(facadeMockFactory{provider: p, client: c}); err != nil {
			t.Fatalf("register %s: %v", p, err)
		}
		creds[p] = "secret-cred"
	}
	f := NewFacade(registry, pacer.NewRegistry(), NewManager(0), nil, nil)

	result := f.Run(context.Background(), core.RunInput{Query: "q", Credentials: creds}, nil)
	if result.Status != core.SessionError {
		t.Fatalf("expected error status, got %s", result.Status)
	}
	for provider, value := range creds {
		if value != "" {
			t.Fatalf("expected credential for %s to be wiped even on failure, got %q", provider, value)
		}
	}
}
