// Package kimi adapts Moonshot AI's OpenAI-compatible chat completions API
// (the "Kimi" models) to the orchestrator's Adapter contract.
package kimi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/opencouncil/orchestrator/ai"
	"github.com/opencouncil/orchestrator/ai/providers"
	"github.com/opencouncil/orchestrator/core"
)

func init() {
	_ = ai.Register(factory{})
}

type factory struct{}

func (factory) Provider() core.Provider { return core.KimiFamily }

func (factory) New(apiKey string, httpClient core.HTTPClient, logger core.Logger) ai.Adapter {
	return NewClient(apiKey, httpClient, logger)
}

const defaultBaseURL = "https://api.moonshot.cn/v1"

// Client implements ai.Adapter against the Moonshot chat completions API.
type Client struct {
	base    *providers.BaseClient
	apiKey  string
	baseURL string
}

// NewClient builds a Kimi/Moonshot adapter.
func NewClient(apiKey string, httpClient core.HTTPClient, logger core.Logger) *Client {
	return &Client{
		base:    providers.NewBaseClient(httpClient, logger),
		apiKey:  apiKey,
		baseURL: defaultBaseURL,
	}
}

func (c *Client) Provider() core.Provider { return core.KimiFamily }

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatCompletionRequest struct {
	Model     string        `json:"model"`
	Messages  []chatMessage `json:"messages"`
	MaxTokens int           `json:"max_tokens,omitempty"`
}

type chatCompletionResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
	} `json:"usage"`
}

// Invoke sends inv as a single-turn chat completion request.
func (c *Client) Invoke(ctx context.Context, inv core.ModelInvocation) (core.InvocationResult, error) {
	start := time.Now()

	if !inv.Deadline.IsZero() {
		var cancel context.CancelFunc
		ctx, cancel = context.WithDeadline(ctx, inv.Deadline)
		defer cancel()
	}

	model := inv.ModelName
	if model == "" {
		model = "moonshot-v1-32k"
	}

	messages := make([]chatMessage, 0, 2)
	if inv.SystemPrompt != "" {
		messages = append(messages, chatMessage{Role: "system", Content: inv.SystemPrompt})
	}
	messages = append(messages, chatMessage{Role: "user", Content: inv.UserPrompt})

	body, err := json.Marshal(chatCompletionRequest{
		Model:     model,
		Messages:  messages,
		MaxTokens: inv.MaxCompletionTokens,
	})
	if err != nil {
		return core.InvocationResult{}, fmt.Errorf("kimi: marshal request: %w", err)
	}

	resp, err := c.base.Do(ctx, &core.HTTPRequest{
		Method: "POST",
		URL:    c.baseURL + "/chat/completions",
		Headers: map[string]string{
			"Content-Type":  "application/json",
			"Authorization": "Bearer " + c.apiKey,
		},
		Body: body,
	})
	latency := time.Since(start).Milliseconds()

	if err != nil {
		return core.InvocationResult{
			ProviderUsed: core.KimiFamily,
			ModelUsed:    model,
			LatencyMs:    latency,
			Status:       core.InvocationFailed,
			ErrorKind:    classifyTransportError(err),
		}, nil
	}

	if kind := providers.ClassifyHTTPStatus(resp.StatusCode); kind != "" {
		return core.InvocationResult{
			ProviderUsed: core.KimiFamily,
			ModelUsed:    model,
			LatencyMs:    latency,
			Status:       core.InvocationFailed,
			ErrorKind:    kind,
		}, nil
	}

	var parsed chatCompletionResponse
	if err := json.Unmarshal(resp.Body, &parsed); err != nil || len(parsed.Choices) == 0 {
		return core.InvocationResult{
			ProviderUsed: core.KimiFamily,
			ModelUsed:    model,
			LatencyMs:    latency,
			Status:       core.InvocationFailed,
			ErrorKind:    core.ErrKindInvalidResponse,
		}, nil
	}

	result := core.InvocationResult{
		Content:      parsed.Choices[0].Message.Content,
		ProviderUsed: core.KimiFamily,
		ModelUsed:    model,
		InputTokens:  parsed.Usage.PromptTokens,
		OutputTokens: parsed.Usage.CompletionTokens,
		LatencyMs:    latency,
		Status:       core.InvocationSucceeded,
	}
	c.base.LogInvocation(core.KimiFamily, model, result)
	return result, nil
}

func classifyTransportError(err error) core.ErrorKind {
	if errors.Is(err, context.DeadlineExceeded) {
		return core.ErrKindTimeout
	}
	if errors.Is(err, context.Canceled) {
		return core.ErrKindCancelled
	}
	return core.ErrKindUnavailable
}
