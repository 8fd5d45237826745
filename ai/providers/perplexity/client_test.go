package perplexity

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
			"choices": [{"message": {"role": "assistant", "content": "here is the research"}}],
			"usage": {"prompt_tokens": 12, "completion_tokens": 8}
		}`),
	}}
	c := NewClient("key", fake, nil)

	result, err := c.Invoke(context.Background(), core.ModelInvocation{UserPrompt: "research something"})
	if err != nil {
		t.Fatalf("Invoke: %v", err)
	}
	if result.Status != core.InvocationSucceeded || result.Content != "here is the research" {
		t.Fatalf("unexpected result: %+v", result)
	}
	if result.InputTokens != 12 || result.OutputTokens != 8 {
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

func TestInvokeClassifiesHTTPErrorStatusAsFailedNotGoError(t *testing.T) {
	fake := &fakeHTTPClient{resp: &core.HTTPResponse{StatusCode: 403}}
	c := NewClient("key", fake, nil)

	result, err := c.Invoke(context.Background(), core.ModelInvocation{UserPrompt: "hi"})
	if err != nil {
		t.Fatalf("expected nil Go error, got %v", err)
	}
	if result.Status != core.InvocationFailed || result.ErrorKind != core.ErrKindUnauthorized {
		t.Fatalf("unexpected result: %+v", result)
	}
}

func TestInvokeFailsWithInvalidResponseOnEmptyChoices(t *testing.T) {
	fake := &fakeHTTPClient{resp: &core.HTTPResponse{StatusCode: 200, Body: []byte(`{"choices": []}`)}}
	c := NewClient("key", fake, nil)

	result, _ := c.Invoke(context.Background(), core.ModelInvocation{UserPrompt: "hi"})
	if result.Status != core.InvocationFailed || result.ErrorKind != core.ErrKindInvalidResponse {
		t.Fatalf("unexpected result: %+v", result)
	}
}

func TestInvokeClassifiesTransportCancellation(t *testing.T) {
	fake := &fakeHTTPClient{err: context.Canceled}
	c := NewClient("key", fake, nil)

	result, err := c.Invoke(context.Background(), core.ModelInvocation{UserPrompt: "hi"})
	if err != nil {
		t.Fatalf("expected nil Go error, got %v", err)
	}
	if result.ErrorKind != core.ErrKindCancelled {
		t.Fatalf("expected cancelled, got %s", result.ErrorKind)
	}
}

func TestInvokeIncludesSystemPromptWhenSet(t *testing.T) {
	fake := &fakeHTTPClient{resp: &core.HTTPResponse{
		StatusCode: 200,
		Body:       []byte(`{"choices": [{"message": {"content": "ok"}}]}`),
	}}
	c := NewClient("key", fake, nil)

	if _, err := c.Invoke(context.Background(), core.ModelInvocation{SystemPrompt: "be concise", UserPrompt: "hi"}); err != nil {
		t.Fatalf("Invoke: %v", err)
	}
	if fake.req == nil {
		t.Fatal("expected a request to be issued")
	}
}

func TestProviderReportsPerplexityFamily(t *testing.T) {
	c := NewClient("key", &fakeHTTPClient{}, nil)
	if c.Provider() != core.PerplexityFamily {
		t.Fatalf("expected PerplexityFamily, got %s", c.Provider())
	}
}
