package core

import "time"

// ModelInvocation is one request to a provider adapter: a single role's
// system/user prompt pair, bound to a candidate provider and model, with its
// own completion-token budget and deadline.
type ModelInvocation struct {
	Role                Role
	Provider            Provider
	ModelName           string
	SystemPrompt        string
	UserPrompt          string
	MaxCompletionTokens int
	Deadline            time.Time
}

// InvocationStatus is the closed outcome set of one ModelInvocation attempt.
type InvocationStatus string

const (
	InvocationSucceeded InvocationStatus = "succeeded"
	InvocationFailed    InvocationStatus = "failed"
)

// InvocationResult is what a provider adapter returns for one ModelInvocation
// attempt, successful or not. ErrorKind is only meaningful when Status is
// InvocationFailed.
type InvocationResult struct {
	Content      string
	ProviderUsed Provider
	ModelUsed    string
	InputTokens  int
	OutputTokens int
	LatencyMs    int64
	Status       InvocationStatus
	ErrorKind    ErrorKind
}
