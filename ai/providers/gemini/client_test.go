package gemini

import (
	"context"
	"testing"

	"github.com/opencouncil/orchestrator/core"
)

type fakeHTTPClient struct {
	resp *core.HTTPResponse
	err  error
	req  *core.HTTPRequest
}

func (f *fakeHTTPClient) Do(ctx context.Context, req *core.HTTPRequest) (*core.HTTPResponse, error) {
	f.req = req
	return f.resp, f.err
}

func TestInvokeSucceedsOnWellFormedResponse(t *testing.T) {
	fake := &fakeHTTPClient{resp: &core.HTTPResponse{
		StatusCode: 200,
		Body: []byte(`{
			"candidates": [{"content": {"parts": [{"text": "hello there"}]}}],
			"usageMetadata": {"promptTokenCount": 5, "candidatesTokenCount": 2}
		}`),
	}}
	c := NewClient("key", fake, nil)

	result, err := c.Invoke(context.Background(), core.ModelInvocation{UserPrompt: "hi"})
	if err != nil {
		t.Fatalf("Invoke: %v", err)
	}
	if result.Status != core.InvocationSucceeded || result.Content != "hello there" {
		t.Fatalf("unexpected result: %+v", result)
	}
	if result.InputTokens != 5 || result.OutputTokens != 2 {
		t.Fatalf("expected usage to be carried through, got %+v", result)
	}
	if result.ProviderUsed != core.GeminiFamily {
		t.Fatalf("expected ProviderUsed gemini, got %s", result.ProviderUsed)
	}
}

func TestInvokeClassifiesHTTPErrorStatusAsFailedNotGoError(t *testing.T) {
	fake := &fakeHTTPClient{resp: &core.HTTPResponse{StatusCode: 401}}
	c := NewClient("key", fake, nil)

	result, err := c.Invoke(context.Background(), core.ModelInvocation{UserPrompt: "hi"})
	if err != nil {
		t.Fatalf("expected nil Go error for an HTTP-level failure, got %v", err)
	}
	if result.Status != core.InvocationFailed || result.ErrorKind != core.ErrKindUnauthorized {
		t.Fatalf("unexpected result: %+v", result)
	}
}

func TestInvokeClassifiesRateLimitStatus(t *testing.T) {
	fake := &fakeHTTPClient{resp: &core.HTTPResponse{StatusCode: 429}}
	c := NewClient("key", fake, nil)
	c.base.RetryDelay = 0

	result, _ := c.Invoke(context.Background(), core.ModelInvocation{UserPrompt: "hi"})
	if result.ErrorKind != core.ErrKindRateLimited {
		t.Fatalf("expected rate_limited, got %s", result.ErrorKind)
	}
}

func TestInvokeFailsWithInvalidResponseOnMalformedBody(t *testing.T) {
	fake := &fakeHTTPClient{resp: &core.HTTPResponse{StatusCode: 200, Body: []byte(`not json`)}}
	c := NewClient("key", fake, nil)

	result, err := c.Invoke(context.Background(), core.ModelInvocation{UserPrompt: "hi"})
	if err != nil {
		t.Fatalf("expected nil Go error, got %v", err)
	}
	if result.Status != core.InvocationFailed || result.ErrorKind != core.ErrKindInvalidResponse {
		t.Fatalf("unexpected result: %+v", result)
	}
}

func TestInvokeFailsWithInvalidResponseOnEmptyCandidates(t *testing.T) {
	fake := &fakeHTTPClient{resp: &core.HTTPResponse{StatusCode: 200, Body: []byte(`{"candidates": []}`)}}
	c := NewClient("key", fake, nil)

	result, _ := c.Invoke(context.Background(), core.ModelInvocation{UserPrompt: "hi"})
	if result.Status != core.InvocationFailed || result.ErrorKind != core.ErrKindInvalidResponse {
		t.Fatalf("unexpected result: %+v", result)
	}
}

func TestInvokeClassifiesTransportTimeout(t *testing.T) {
	fake := &fakeHTTPClient{err: context.DeadlineExceeded}
	c := NewClient("key", fake, nil)

	result, err := c.Invoke(context.Background(), core.ModelInvocation{UserPrompt: "hi"})
	if err != nil {
		t.Fatalf("expected nil Go error, got %v", err)
	}
	if result.ErrorKind != core.ErrKindTimeout {
		t.Fatalf("expected timeout, got %s", result.ErrorKind)
	}
}

func TestInvokeDefaultsModelWhenUnset(t *testing.T) {
	fake := &fakeHTTPClient{resp: &core.HTTPResponse{
		StatusCode: 200,
		Body:       []byte(`{"candidates": [{"content": {"parts": [{"text": "ok"}]}}]}`),
	}}
	c := NewClient("key", fake, nil)

	result, _ := c.Invoke(context.Background(), core.ModelInvocation{UserPrompt: "hi"})
	if result.ModelUsed == "" {
		t.Fatal("expected a default model name to be used")
	}
}

func TestProviderReportsGeminiFamily(t *testing.T) {
	c := NewClient("key", &fakeHTTPClient{}, nil)
	if c.Provider() != core.GeminiFamily {
		t.Fatalf("expected GeminiFamily, got %s", c.Provider())
	}
}
