package telemetry

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
)

func TestNewTracedHTTPClient(t *testing.T) {
	client := NewTracedHTTPClient(nil)
	if client == nil {
		t.Fatal("Expected non-nil client")
	}
	if client.Transport == nil {
		t.Fatal("Expected non-nil transport")
	}
}

func TestNewTracedHTTPClient_WithExistingTransport(t *testing.T) {
	existingTransport := &http.Transport{
		MaxIdleConns: 25,
	}

	client := NewTracedHTTPClient(existingTransport)
	if client == nil {
		t.Fatal("Expected non-nil client")
	}
	if client.Transport == nil {
		t.Fatal("Expected non-nil transport")
	}
}

func TestNewTracedHTTPClientWithTransport(t *testing.T) {
	client := NewTracedHTTPClientWithTransport(nil)
	if client == nil {
		t.Fatal("Expected non-nil client")
	}
	if client.Transport == nil {
		t.Fatal("Expected non-nil transport")
	}

	customTransport := &http.Transport{
		MaxIdleConns: 50,
	}
	client2 := NewTracedHTTPClientWithTransport(customTransport)
	if client2 == nil {
		t.Fatal("Expected non-nil client with custom transport")
	}
}

func TestTracedHTTPClient_PropagatesContext(t *testing.T) {
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// When there's an active trace in context, otelhttp will inject this header.
		_ = r.Header.Get("traceparent")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	}))
	defer server.Close()

	client := NewTracedHTTPClient(nil)

	ctx := context.Background()
	req, err := http.NewRequestWithContext(ctx, "GET", server.URL, nil)
	if err != nil {
		t.Fatalf("Failed to create request: %v", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	defer resp.Body.Close()

	_, _ = io.ReadAll(resp.Body)

	if resp.StatusCode != http.StatusOK {
		t.Errorf("Expected status 200, got %d", resp.StatusCode)
	}
}

func TestTracedHTTPClient_MultipleRequests(t *testing.T) {
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	requestCount := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestCount++
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := NewTracedHTTPClient(nil)

	for i := 0; i < 5; i++ {
		req, _ := http.NewRequestWithContext(context.Background(), "GET", server.URL, nil)
		resp, err := client.Do(req)
		if err != nil {
			t.Fatalf("Request %d failed: %v", i, err)
		}
		resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			t.Errorf("Request %d: Expected status 200, got %d", i, resp.StatusCode)
		}
	}

	if requestCount != 5 {
		t.Errorf("Expected 5 requests, server received %d", requestCount)
	}
}
