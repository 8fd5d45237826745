package core

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"time"
)

// defaultHTTPClient is the net/http-backed HTTPClient implementation. This is
// the only file in the module allowed to import net/http for outbound
// requests; provider adapters depend on the HTTPClient interface instead
// (§6), so they remain testable against a fake.
type defaultHTTPClient struct {
	client *http.Client
}

// NewDefaultHTTPClient builds an HTTPClient backed by net/http, configured
// from HTTPClientConfig.
func NewDefaultHTTPClient(cfg HTTPClientConfig) HTTPClient {
	return NewDefaultHTTPClientWithTransport(cfg, nil)
}

// NewDefaultHTTPClientWithTransport builds an HTTPClient backed by net/http,
// using transport for the underlying round trip instead of the plain
// *http.Transport NewDefaultHTTPClient builds. Callers that want outbound
// provider calls traced (e.g. cmd/councild wiring in an
// otelhttp-instrumented transport via telemetry.NewTracedHTTPClientWithTransport)
// use this constructor; core itself never imports telemetry to avoid a
// dependency cycle back through core.
func NewDefaultHTTPClientWithTransport(cfg HTTPClientConfig, transport http.RoundTripper) HTTPClient {
	if transport == nil {
		transport = &http.Transport{
			MaxIdleConns:    cfg.MaxIdleConns,
			IdleConnTimeout: cfg.IdleConnTimeout,
		}
	}
	return &defaultHTTPClient{
		client: &http.Client{
			Timeout:   cfg.RequestTimeout,
			Transport: transport,
		},
	}
}

func (d *defaultHTTPClient) Do(ctx context.Context, req *HTTPRequest) (*HTTPResponse, error) {
	httpReq, err := http.NewRequestWithContext(ctx, req.Method, req.URL, bytes.NewReader(req.Body))
	if err != nil {
		return nil, err
	}
	for k, v := range req.Headers {
		httpReq.Header.Set(k, v)
	}

	resp, err := d.client.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	return &HTTPResponse{StatusCode: resp.StatusCode, Body: body}, nil
}

// NewTimeoutHTTPClient is a convenience constructor for call sites that only
// care about the request timeout.
func NewTimeoutHTTPClient(timeout time.Duration) HTTPClient {
	return NewDefaultHTTPClient(HTTPClientConfig{
		RequestTimeout:  timeout,
		MaxIdleConns:    100,
		IdleConnTimeout: 90 * time.Second,
	})
}
