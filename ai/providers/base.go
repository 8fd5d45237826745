// Package providers holds the shared request/response plumbing for concrete
// LLM provider adapters (openai, gemini, perplexity, kimi, mock).
package providers

import (
	"context"
	"fmt"
	"time"

	"github.com/opencouncil/orchestrator/core"
)

// BaseClient provides common request execution, error classification, and
// logging for provider adapters built on core.HTTPClient rather than
// net/http directly (§6: the core never opens a raw socket).
type BaseClient struct {
	HTTPClient core.HTTPClient
	Logger     core.Logger

	MaxRetries int
	RetryDelay time.Duration
}

// NewBaseClient creates a base client wrapping an injected HTTPClient.
func NewBaseClient(httpClient core.HTTPClient, logger core.Logger) *BaseClient {
	if logger == nil {
		logger = core.NoOpLogger{}
	}
	return &BaseClient{
		HTTPClient: httpClient,
		Logger:     logger,
		MaxRetries: 2,
		RetryDelay: 250 * time.Millisecond,
	}
}

// Do executes req, retrying transport-level failures and 5xx/429 responses
// with linear backoff up to MaxRetries. 4xx responses other than 429 are
// returned immediately since retrying them cannot help. When the retries
// are exhausted and the last attempt produced a response, that response is
// returned (with a nil error) so callers can classify its status code.
func (b *BaseClient) Do(ctx context.Context, req *core.HTTPRequest) (*core.HTTPResponse, error) {
	var lastErr error
	var lastResp *core.HTTPResponse

	for attempt := 0; attempt <= b.MaxRetries; attempt++ {
		resp, err := b.HTTPClient.Do(ctx, req)
		if err == nil && resp.StatusCode < 400 {
			return resp, nil
		}
		if err == nil && resp.StatusCode >= 400 && resp.StatusCode < 500 && resp.StatusCode != 429 {
			return resp, nil
		}

		if err != nil {
			lastErr = err
			lastResp = nil
		} else {
			lastErr = fmt.Errorf("server error: status %d", resp.StatusCode)
			lastResp = resp
		}

		if attempt < b.MaxRetries {
			delay := b.RetryDelay * time.Duration(attempt+1)
			b.Logger.Debug("retrying provider request", map[string]interface{}{
				"attempt": attempt + 1,
				"delay":   delay,
				"error":   lastErr,
			})
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
	}

	if lastResp != nil {
		return lastResp, nil
	}
	return nil, fmt.Errorf("request failed after %d retries: %w", b.MaxRetries, lastErr)
}

// ClassifyHTTPStatus maps an HTTP status code to the closed ErrorKind
// taxonomy (§7).
func ClassifyHTTPStatus(statusCode int) core.ErrorKind {
	switch {
	case statusCode == 401 || statusCode == 403:
		return core.ErrKindUnauthorized
	case statusCode == 429:
		return core.ErrKindRateLimited
	case statusCode == 408:
		return core.ErrKindTimeout
	case statusCode >= 500:
		return core.ErrKindUnavailable
	case statusCode >= 400:
		return core.ErrKindInvalidResponse
	default:
		return ""
	}
}

// LogInvocation logs a completed invocation at debug level.
func (b *BaseClient) LogInvocation(provider core.Provider, model string, result core.InvocationResult) {
	b.Logger.Debug("provider invocation", map[string]interface{}{
		"provider":      string(provider),
		"model":         model,
		"status":        string(result.Status),
		"input_tokens":  result.InputTokens,
		"output_tokens": result.OutputTokens,
		"latency_ms":    result.LatencyMs,
	})
}
