// Package mock provides a scriptable ai.Adapter for tests, never registered
// against a real Provider tag automatically — callers wire it in explicitly
// via ai.Registry or directly against agentexec.
package mock

import (
	"context"
	"errors"
	"sync"

	"github.com/opencouncil/orchestrator/core"
)

// Client is a scriptable ai.Adapter: each Invoke call consumes the next
// queued response or error.
type Client struct {
	mu sync.Mutex

	provider  core.Provider
	responses []core.InvocationResult
	errs      []error
	index     int

	CallCount  int
	LastInput  core.ModelInvocation
	LastInputs []core.ModelInvocation
}

// NewClient builds a mock adapter tagged with provider p.
func NewClient(p core.Provider) *Client {
	return &Client{provider: p}
}

func (c *Client) Provider() core.Provider { return c.provider }

// Invoke consumes the next queued response/error, or returns a bare Go
// error once the queue is exhausted.
func (c *Client) Invoke(ctx context.Context, inv core.ModelInvocation) (core.InvocationResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.CallCount++
	c.LastInput = inv
	c.LastInputs = append(c.LastInputs, inv)

	select {
	case <-ctx.Done():
		return core.InvocationResult{
			ProviderUsed: c.provider,
			Status:       core.InvocationFailed,
			ErrorKind:    core.ErrKindCancelled,
		}, nil
	default:
	}

	if c.index < len(c.errs) && c.errs[c.index] != nil {
		err := c.errs[c.index]
		c.index++
		return core.InvocationResult{}, err
	}

	if c.index >= len(c.responses) {
		return core.InvocationResult{}, errors.New("mock: no more scripted responses")
	}

	resp := c.responses[c.index]
	c.index++
	if resp.ProviderUsed == "" {
		resp.ProviderUsed = c.provider
	}
	return resp, nil
}

// QueueSuccess appends a successful scripted response.
func (c *Client) QueueSuccess(content string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.responses = append(c.responses, core.InvocationResult{
		Content: content,
		Status:  core.InvocationSucceeded,
	})
	c.errs = append(c.errs, nil)
}

// QueueFailure appends a scripted provider-level failure (not a Go error).
func (c *Client) QueueFailure(kind core.ErrorKind) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.responses = append(c.responses, core.InvocationResult{
		Status:    core.InvocationFailed,
		ErrorKind: kind,
	})
	c.errs = append(c.errs, nil)
}

// QueueError appends a bare Go error to be returned from Invoke.
func (c *Client) QueueError(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.responses = append(c.responses, core.InvocationResult{})
	c.errs = append(c.errs, err)
}

// Reset clears scripted responses and call history.
func (c *Client) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.responses = nil
	c.errs = nil
	c.index = 0
	c.CallCount = 0
	c.LastInput = core.ModelInvocation{}
	c.LastInputs = nil
}
