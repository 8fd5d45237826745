package providers

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/opencouncil/orchestrator/core"
)

type fakeHTTPClient struct {
	calls     int
	responses []*core.HTTPResponse
	errs      []error
}

func (f *fakeHTTPClient) Do(ctx context.Context, req *core.HTTPRequest) (*core.HTTPResponse, error) {
	i := f.calls
	f.calls++
	if i < len(f.errs) && f.errs[i] != nil {
		return nil, f.errs[i]
	}
	if i < len(f.responses) {
		return f.responses[i], nil
	}
	return f.responses[len(f.responses)-1], nil
}

func TestBaseClientDoReturnsImmediatelyOnSuccess(t *testing.T) {
	fake := &fakeHTTPClient{responses: []*core.HTTPResponse{{StatusCode: 200, Body: []byte("ok")}}}
	b := NewBaseClient(fake, nil)
	b.RetryDelay = 0

	resp, err := b.Do(context.Background(), &core.HTTPRequest{Method: "GET", URL: "https://example.test"})
	if err != nil {
		t.Fatalf("Do: %v", err)
	}
	if resp.StatusCode != 200 || fake.calls != 1 {
		t.Fatalf("expected a single call returning 200, got %d calls, status %d", fake.calls, resp.StatusCode)
	}
}

func TestBaseClientDoDoesNotRetryClientErrors(t *testing.T) {
	fake := &fakeHTTPClient{responses: []*core.HTTPResponse{{StatusCode: 400}}}
	b := NewBaseClient(fake, nil)
	b.RetryDelay = 0

	resp, err := b.Do(context.Background(), &core.HTTPRequest{Method: "GET", URL: "https://example.test"})
	if err != nil {
		t.Fatalf("Do: %v", err)
	}
	if resp.StatusCode != 400 || fake.calls != 1 {
		t.Fatalf("expected a single call returning 400 unchanged, got %d calls, status %d", fake.calls, resp.StatusCode)
	}
}

func TestBaseClientDoRetriesRateLimitedAndServerErrors(t *testing.T) {
	fake := &fakeHTTPClient{responses: []*core.HTTPResponse{{StatusCode: 429}, {StatusCode: 500}, {StatusCode: 200}}}
	b := NewBaseClient(fake, nil)
	b.MaxRetries = 2
	b.RetryDelay = 0

	resp, err := b.Do(context.Background(), &core.HTTPRequest{Method: "GET", URL: "https://example.test"})
	if err != nil {
		t.Fatalf("Do: %v", err)
	}
	if resp.StatusCode != 200 || fake.calls != 3 {
		t.Fatalf("expected 3 attempts ending in 200, got %d calls, status %d", fake.calls, resp.StatusCode)
	}
}

func TestBaseClientDoExhaustsRetriesAndReturnsError(t *testing.T) {
	fake := &fakeHTTPClient{errs: []error{errors.New("boom"), errors.New("boom"), errors.New("boom")}}
	b := NewBaseClient(fake, nil)
	b.MaxRetries = 2
	b.RetryDelay = 0

	_, err := b.Do(context.Background(), &core.HTTPRequest{Method: "GET", URL: "https://example.test"})
	if err == nil {
		t.Fatal("expected an error after exhausting retries")
	}
	if fake.calls != 3 {
		t.Fatalf("expected 1 + MaxRetries attempts, got %d", fake.calls)
	}
}

func TestBaseClientDoAbortsOnContextCancellationDuringBackoff(t *testing.T) {
	fake := &fakeHTTPClient{responses: []*core.HTTPResponse{{StatusCode: 500}, {StatusCode: 200}}}
	b := NewBaseClient(fake, nil)
	b.RetryDelay = 50 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := b.Do(ctx, &core.HTTPRequest{Method: "GET", URL: "https://example.test"})
	if err == nil {
		t.Fatal("expected the cancelled context to abort the retry backoff")
	}
}

func TestClassifyHTTPStatus(t *testing.T) {
	cases := map[int]core.ErrorKind{
		401: core.ErrKindUnauthorized,
		403: core.ErrKindUnauthorized,
		429: core.ErrKindRateLimited,
		408: core.ErrKindTimeout,
		500: core.ErrKindUnavailable,
		503: core.ErrKindUnavailable,
		400: core.ErrKindInvalidResponse,
		404: core.ErrKindInvalidResponse,
		200: "",
	}
	for status, want := range cases {
		if got := ClassifyHTTPStatus(status); got != want {
			t.Errorf("ClassifyHTTPStatus(%d) = %q, want %q", status, got, want)
		}
	}
}
