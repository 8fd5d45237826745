// Package openai adapts the OpenAI chat completions API to the orchestrator's
// Adapter contract using the go-openai SDK.
package openai

import (
	"context"
	"time"

	goopenai "github.com/sashabaranov/go-openai"

	"github.com/opencouncil/orchestrator/ai"
	"github.com/opencouncil/orchestrator/ai/providers"
	"github.com/opencouncil/orchestrator/core"
)

func init() {
	_ = ai.Register(factory{})
}

type factory struct{}

func (factory) Provider() core.Provider { return core.OpenAIFamily }

func (factory) New(apiKey string, httpClient core.HTTPClient, logger core.Logger) ai.Adapter {
	return NewClient(apiKey, logger)
}

// Client implements ai.Adapter against the OpenAI API.
type Client struct {
	base   *providers.BaseClient
	sdk    *goopenai.Client
	logger core.Logger
}

// NewClient builds an OpenAI adapter. The go-openai SDK manages its own
// transport; the injected core.HTTPClient governs the other provider
// adapters (gemini/perplexity/kimi) that speak raw REST.
func NewClient(apiKey string, logger core.Logger) *Client {
	if logger == nil {
		logger = core.NoOpLogger{}
	}
	return &Client{
		base:   providers.NewBaseClient(nil, logger),
		sdk:    goopenai.NewClient(apiKey),
		logger: logger,
	}
}

func (c *Client) Provider() core.Provider { return core.OpenAIFamily }

// Invoke sends inv as a single-turn chat completion request.
func (c *Client) Invoke(ctx context.Context, inv core.ModelInvocation) (core.InvocationResult, error) {
	start := time.Now()

	if !inv.Deadline.IsZero() {
		var cancel context.CancelFunc
		ctx, cancel = context.WithDeadline(ctx, inv.Deadline)
		defer cancel()
	}

	messages := make([]goopenai.ChatCompletionMessage, 0, 2)
	if inv.SystemPrompt != "" {
		messages = append(messages, goopenai.ChatCompletionMessage{
			Role:    goopenai.ChatMessageRoleSystem,
			Content: inv.SystemPrompt,
		})
	}
	messages = append(messages, goopenai.ChatCompletionMessage{
		Role:    goopenai.ChatMessageRoleUser,
		Content: inv.UserPrompt,
	})

	model := inv.ModelName
	if model == "" {
		model = "gpt-4o-mini"
	}

	resp, err := c.sdk.CreateChatCompletion(ctx, goopenai.ChatCompletionRequest{
		Model:     model,
		Messages:  messages,
		MaxTokens: inv.MaxCompletionTokens,
	})
	latency := time.Since(start).Milliseconds()

	if err != nil {
		kind := classifyOpenAIError(err)
		c.logger.Warn("openai invocation failed", map[string]interface{}{
			"role": string(inv.Role), "error": err.Error(), "error_kind": string(kind),
		})
		return core.InvocationResult{
			ProviderUsed: core.OpenAIFamily,
			ModelUsed:    model,
			LatencyMs:    latency,
			Status:       core.InvocationFailed,
			ErrorKind:    kind,
		}, nil
	}

	if len(resp.Choices) == 0 {
		return core.InvocationResult{
			ProviderUsed: core.OpenAIFamily,
			ModelUsed:    model,
			LatencyMs:    latency,
			Status:       core.InvocationFailed,
			ErrorKind:    core.ErrKindInvalidResponse,
		}, nil
	}

	result := core.InvocationResult{
		Content:      resp.Choices[0].Message.Content,
		ProviderUsed: core.OpenAIFamily,
		ModelUsed:    model,
		InputTokens:  resp.Usage.PromptTokens,
		OutputTokens: resp.Usage.CompletionTokens,
		LatencyMs:    latency,
		Status:       core.InvocationSucceeded,
	}
	c.base.LogInvocation(core.OpenAIFamily, model, result)
	return result, nil
}

func classifyOpenAIError(err error) core.ErrorKind {
	var apiErr *goopenai.APIError
	if ok := asAPIError(err, &apiErr); ok {
		return providers.ClassifyHTTPStatus(apiErr.HTTPStatusCode)
	}
	if ctxErr := ctxErrorKind(err); ctxErr != "" {
		return ctxErr
	}
	return core.ErrKindUnavailable
}
