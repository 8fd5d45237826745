// Package gemini adapts Google's Generative Language REST API to the
// orchestrator's Adapter contract.
package gemini

import (
	"bytes"
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

func (factory) Provider() core.Provider { return core.GeminiFamily }

func (factory) New(apiKey string, httpClient core.HTTPClient, logger core.Logger) ai.Adapter {
	return NewClient(apiKey, httpClient, logger)
}

const defaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"

// Client implements ai.Adapter against the Gemini generateContent endpoint.
type Client struct {
	base    *providers.BaseClient
	apiKey  string
	baseURL string
}

// NewClient builds a Gemini adapter.
func NewClient(apiKey string, httpClient core.HTTPClient, logger core.Logger) *Client {
	return &Client{
		base:    providers.NewBaseClient(httpClient, logger),
		apiKey:  apiKey,
		baseURL: defaultBaseURL,
	}
}

func (c *Client) Provider() core.Provider { return core.GeminiFamily }

type generateContentRequest struct {
	Contents          []content        `json:"contents"`
	SystemInstruction *content         `json:"systemInstruction,omitempty"`
	GenerationConfig  generationConfig `json:"generationConfig"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

type generationConfig struct {
	MaxOutputTokens int `json:"maxOutputTokens,omitempty"`
}

type generateContentResponse struct {
	Candidates []struct {
		Content content `json:"content"`
	} `json:"candidates"`
	UsageMetadata struct {
		PromptTokenCount     int `json:"promptTokenCount"`
		CandidatesTokenCount int `json:"candidatesTokenCount"`
	} `json:"usageMetadata"`
}

// Invoke sends inv as a single-turn generateContent request.
func (c *Client) Invoke(ctx context.Context, inv core.ModelInvocation) (core.InvocationResult, error) {
	start := time.Now()

	if !inv.Deadline.IsZero() {
		var cancel context.CancelFunc
		ctx, cancel = context.WithDeadline(ctx, inv.Deadline)
		defer cancel()
	}

	model := inv.ModelName
	if model == "" {
		model = "gemini-1.5-pro"
	}

	reqBody := generateContentRequest{
		Contents: []content{{
			Role:  "user",
			Parts: []part{{Text: inv.UserPrompt}},
		}},
		GenerationConfig: generationConfig{MaxOutputTokens: inv.MaxCompletionTokens},
	}
	if inv.SystemPrompt != "" {
		reqBody.SystemInstruction = &content{Parts: []part{{Text: inv.SystemPrompt}}}
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return core.InvocationResult{}, fmt.Errorf("gemini: marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/models/%s:generateContent?key=%s", c.baseURL, model, c.apiKey)
	resp, err := c.base.Do(ctx, &core.HTTPRequest{
		Method:  "POST",
		URL:     url,
		Headers: map[string]string{"Content-Type": "application/json"},
		Body:    body,
	})
	latency := time.Since(start).Milliseconds()

	if err != nil {
		return core.InvocationResult{
			ProviderUsed: core.GeminiFamily,
			ModelUsed:    model,
			LatencyMs:    latency,
			Status:       core.InvocationFailed,
			ErrorKind:    classifyTransportError(err),
		}, nil
	}

	if kind := providers.ClassifyHTTPStatus(resp.StatusCode); kind != "" {
		return core.InvocationResult{
			ProviderUsed: core.GeminiFamily,
			ModelUsed:    model,
			LatencyMs:    latency,
			Status:       core.InvocationFailed,
			ErrorKind:    kind,
		}, nil
	}

	var parsed generateContentResponse
	if err := json.Unmarshal(resp.Body, &parsed); err != nil || len(parsed.Candidates) == 0 {
		return core.InvocationResult{
			ProviderUsed: core.GeminiFamily,
			ModelUsed:    model,
			LatencyMs:    latency,
			Status:       core.InvocationFailed,
			ErrorKind:    core.ErrKindInvalidResponse,
		}, nil
	}

	var text bytes.Buffer
	for _, p := range parsed.Candidates[0].Content.Parts {
		text.WriteString(p.Text)
	}

	result := core.InvocationResult{
		Content:      text.String(),
		ProviderUsed: core.GeminiFamily,
		ModelUsed:    model,
		InputTokens:  parsed.UsageMetadata.PromptTokenCount,
		OutputTokens: parsed.UsageMetadata.CandidatesTokenCount,
		LatencyMs:    latency,
		Status:       core.InvocationSucceeded,
	}
	c.base.LogInvocation(core.GeminiFamily, model, result)
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
