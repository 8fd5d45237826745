package kimi

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
			"choices": [{"message": {"role": "assistant", "content": "judged answer"}}],
			"usage": {"prompt_tokens": 20, "completion_tokens": 6}
		}`),
	}}
	c := NewClient("key", fake, nil)

	result, err := c.Invoke(context.Background(), core.ModelInvocation{UserPrompt: "judge this"})
	if err != nil {
		t.Fatalf("Invoke: %v", err)
	}
	if result.Status != core.InvocationSucceeded || result.Content != "judged answer" {
		t.Fatalf("unexpected result: %+v", result)
	}
	if result.InputTokens != 20 || result.OutputTokens != 6 {
		t.Fatalf("expected usage to be carried through, got %+v", result)
	}
}

func TestInvokeSendsBearerAuthorizationHeader(t *testing.T) {
	fake := &fakeHTTPClient{resp: &core.HTTPResponse{
		StatusCode: 200,
		Body:       []byte(`{"choices": [{"message": {"content": "ok"}}]}`),
	}}
	c := NewClient("secret-key", fake, nil)

	if _, err := c.Invoke(context.Background(), core.ModelInvocation{UserPrompt: "hi"}); err != nil {
		t.Fatalf("Invoke: %v", err)
	}
	if fake.req.Headers["Authorization"] != "Bearer secret-key" {
		t.Fatalf("expected bearer auth header, got %q", fake.req.Headers["Authorization"])
	}
}

func TestInvokeClassifiesServerErrorAsUnavailable(t *testing.T) {
	fake := &fakeHTTPClient{resp: &core.HTTPResponse{StatusCode: 503}}
	c := NewClient("key", fake, nil)
	c.base.RetryDelay = 0

	result, err := c.Invoke(context.Background(), core.ModelInvocation{UserPrompt: "hi"})
	if err != nil {
		t.Fatalf("expected nil Go error, got %v", err)
	}
	if result.Status != core.InvocationFailed || result.ErrorKind != core.ErrKindUnavailable {
		t.Fatalf("unexpected result: %+v", result)
	}
}

func TestInvokeFailsWithInvalidResponseOnMalformedBody(t *testing.T) {
	fake := &fakeHTTPClient{resp: &core.HTTPResponse{StatusCode: 200, Body: []byte(`{not valid`)}}
	c := NewClient("key", fake, nil)

	result, err := c.Invoke(context.Background(), core.ModelInvocation{UserPrompt: "hi"})
	if err != nil {
		t.Fatalf("expected nil Go error, got %v", err)
	}
	if result.Status != core.InvocationFailed || result.ErrorKind != core.ErrKindInvalidResponse {
		t.Fatalf("unexpected result: %+v", result)
	}
}

func TestInvokeDefaultsModelWhenUnset(t *testing.T) {
	fake := &fakeHTTPClient{resp: &core.HTTPResponse{
		StatusCode: 200,
		Body:       []byte(`{"choices": [{"message": {"content": "ok"}}]}`),
	}}
	c := NewClient("key", fake, nil)

	result, _ := c.Invoke(context.Background(), core.ModelInvocation{UserPrompt: "hi"})
	if result.ModelUsed == "" {
		t.Fatal("expected a default model name to be used")
	}
}

func TestProviderReportsKimiFamily(t *testing.T) {
	c := NewClient("key", &fakeHTTPClient{}, nil)
	if c.Provider() != core.KimiFamily {
		t.Fatalf("expected KimiFamily, got %s", c.Provider())
	}
}
