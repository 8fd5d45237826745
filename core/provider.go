package core

import "sync"

// Provider tags one of the heterogeneous LLM backends. It is a closed set at
// build time, extensible by registration (RegisterProviderDefaults), matching
// the "tagged variant with a dispatch table keyed by tag" redesign note
// instead of a duck-typed/polymorphic provider object.
type Provider string

const (
	OpenAIFamily     Provider = "openai"
	GeminiFamily     Provider = "gemini"
	PerplexityFamily Provider = "perplexity"
	KimiFamily       Provider = "kimi"
)

// BuiltinProviders lists the four provider families specified by SPEC_FULL.md.
var BuiltinProviders = []Provider{OpenAIFamily, GeminiFamily, PerplexityFamily, KimiFamily}

// RateLimitConfig configures a Provider Pacer instance for one provider.
type RateLimitConfig struct {
	RPS         float64 // steady-state requests/sec
	Burst       int     // token bucket burst capacity
	Concurrency int     // max in-flight invocations
}

// ProviderDefaults is the registration record backing a Provider tag: its
// default model, completion-token budget, rate limit policy.
type ProviderDefaults struct {
	Provider             Provider
	DefaultModel         string
	MaxCompletionTokens  int
	RateLimit            RateLimitConfig
}

var (
	providerRegistryMu sync.RWMutex
	providerRegistry   = map[Provider]ProviderDefaults{}
)

// RegisterProviderDefaults registers (or overwrites) the defaults for a
// Provider tag. Called once at process init for built-in families, and by
// callers wishing to extend the closed set with a new backend.
func RegisterProviderDefaults(d ProviderDefaults) {
	providerRegistryMu.Lock()
	defer providerRegistryMu.Unlock()
	providerRegistry[d.Provider] = d
}

// LookupProviderDefaults returns the registered defaults for a Provider tag.
func LookupProviderDefaults(p Provider) (ProviderDefaults, bool) {
	providerRegistryMu.RLock()
	defer providerRegistryMu.RUnlock()
	d, ok := providerRegistry[p]
	return d, ok
}

// RegisteredProviders returns the tags currently registered, in map iteration
// order (closed-set membership test only; callers needing a fixed priority
// order should use BuiltinProviders or their own explicit ordering).
func RegisteredProviders() []Provider {
	providerRegistryMu.RLock()
	defer providerRegistryMu.RUnlock()
	out := make([]Provider, 0, len(providerRegistry))
	for p := range providerRegistry {
		out = append(out, p)
	}
	return out
}

func init() {
	RegisterProviderDefaults(ProviderDefaults{
		Provider:            OpenAIFamily,
		DefaultModel:        "gpt-4o-mini",
		MaxCompletionTokens: 2048,
		RateLimit:           RateLimitConfig{RPS: 5, Burst: 10, Concurrency: 8},
	})
	RegisterProviderDefaults(ProviderDefaults{
		Provider:            GeminiFamily,
		DefaultModel:        "gemini-1.5-pro",
		MaxCompletionTokens: 2048,
		RateLimit:           RateLimitConfig{RPS: 4, Burst: 8, Concurrency: 6},
	})
	RegisterProviderDefaults(ProviderDefaults{
		Provider:            PerplexityFamily,
		DefaultModel:        "sonar-pro",
		MaxCompletionTokens: 2048,
		RateLimit:           RateLimitConfig{RPS: 3, Burst: 6, Concurrency: 4},
	})
	RegisterProviderDefaults(ProviderDefaults{
		Provider:            KimiFamily,
		DefaultModel:        "moonshot-v1-32k",
		MaxCompletionTokens: 2048,
		RateLimit:           RateLimitConfig{RPS: 3, Burst: 6, Concurrency: 4},
	})
}

// canonicalPreferredProvider is each specialist/synth/judge role's preferred
// backend when a credential for it is present (§4.3 selection policy step 1).
var canonicalPreferredProvider = map[Role]Provider{
	RoleArchitect:    OpenAIFamily,
	RoleDataEngineer: GeminiFamily,
	RoleResearcher:   PerplexityFamily,
	RoleRedTeamer:    OpenAIFamily,
	RoleOptimizer:    KimiFamily,
	RoleSynthesizer:  OpenAIFamily,
	RoleJudge:        GeminiFamily,
}

// CanonicalPreferredProvider returns the role's canonical preferred provider.
func CanonicalPreferredProvider(r Role) (Provider, bool) {
	p, ok := canonicalPreferredProvider[r]
	return p, ok
}

// CredentialMap maps a Provider identifier to an opaque credential string.
// It is supplied per-run by the caller and MUST be wiped (zeroed) when the
// run completes (P4), regardless of outcome.
type CredentialMap map[Provider]string

// Wipe overwrites every credential value in place so no plaintext secret
// material survives a run past the point the Facade returns. The map's key
// set remains (callers historically iterate it for diagnostics) but values
// are cleared.
func (c CredentialMap) Wipe() {
	for k := range c {
		c[k] = ""
	}
}

// Clone returns a shallow copy safe to mutate independently (e.g. to drop a
// credential when the Agent Executor learns it is unauthorized) without
// perturbing the caller's original map.
func (c CredentialMap) Clone() CredentialMap {
	out := make(CredentialMap, len(c))
	for k, v := range c {
		out[k] = v
	}
	return out
}

// Has reports whether a non-empty credential is present for p.
func (c CredentialMap) Has(p Provider) bool {
	v, ok := c[p]
	return ok && v != ""
}
