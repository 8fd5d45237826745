// Package ai adapts the closed set of LLM provider families onto one
// invocation contract the rest of the orchestrator calls against: an
// Adapter takes a core.ModelInvocation and returns a core.InvocationResult,
// never an error for anything the caller can act on — transport failures,
// auth failures, and rate limits are all classified into a core.ErrorKind
// and folded into the result, per the closed-error-kind-enum note in core.
package ai

import (
	"context"

	"github.com/opencouncil/orchestrator/core"
)

// Adapter invokes one model on behalf of a role. Implementations must be
// safe for concurrent use — the Agent Executor shares one Adapter instance
// across a run's parallel specialist fan-out.
type Adapter interface {
	// Invoke runs one ModelInvocation to completion or failure. It never
	// panics and never returns a bare Go error for provider-side failures;
	// those are reported via InvocationResult.Status/ErrorKind so the
	// Agent Executor's candidate/retry policy can inspect them uniformly.
	Invoke(ctx context.Context, inv core.ModelInvocation) (core.InvocationResult, error)

	// Provider identifies which family this adapter serves.
	Provider() core.Provider
}

// AdapterFactory builds an Adapter for one credential. Provider packages
// register a factory via Register during their init().
type AdapterFactory interface {
	// New builds an Adapter authenticated with apiKey. httpClient is the
	// injected transport (§6) — adapters never open sockets directly.
	New(apiKey string, httpClient core.HTTPClient, logger core.Logger) Adapter

	// Provider identifies the family this factory builds adapters for.
	Provider() core.Provider
}
