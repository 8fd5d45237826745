// Package telemetry provides distributed tracing HTTP instrumentation.
//
// This file provides an outbound HTTP client that automatically propagates
// W3C trace context to downstream services using OpenTelemetry. The council
// orchestrator has no inbound HTTP surface of its own (councild drives one
// query per process and exits), so only the client side of the teacher's
// tracing helpers applies here: the gemini, perplexity and kimi adapters'
// outbound calls go through a transport built by
// NewTracedHTTPClientWithTransport, so each call gets a client span. No root
// span is started per query, so those spans are not joined under one trace,
// and the openai adapter uses the go-openai SDK's own transport, which is
// not traced.
//
// # Initialization Requirement
//
// IMPORTANT: Call telemetry.Initialize() before using these functions.
// If telemetry is not initialized, the client will use a no-op tracer
// (safe but no traces will be generated).
package telemetry

import (
	"net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// NewTracedHTTPClient creates an HTTP client that automatically propagates
// trace context to downstream services via W3C TraceContext headers.
//
// When making HTTP requests with this client, the traceparent and tracestate
// headers are automatically injected, allowing downstream services to
// continue the distributed trace.
//
// Parameters:
//   - baseTransport: The underlying transport to use. If nil, uses http.DefaultTransport.
//
// The returned client is safe to use concurrently and should be reused
// across requests for connection pooling benefits.
func NewTracedHTTPClient(baseTransport http.RoundTripper) *http.Client {
	if baseTransport == nil {
		baseTransport = http.DefaultTransport
	}

	return &http.Client{
		Transport: otelhttp.NewTransport(baseTransport),
	}
}

// NewTracedHTTPClientWithTransport creates a traced HTTP client with a custom transport.
//
// This is a convenience function that creates a traced client with connection
// pooling configured for service-to-service communication.
//
// Parameters:
//   - transport: Custom transport configuration. If nil, creates a default pooled transport.
func NewTracedHTTPClientWithTransport(transport *http.Transport) *http.Client {
	if transport == nil {
		transport = &http.Transport{
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
			DisableKeepAlives:   false,
			ForceAttemptHTTP2:   true,
		}
	}

	return &http.Client{
		Transport: otelhttp.NewTransport(transport),
	}
}
