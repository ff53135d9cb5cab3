package session

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/endorses/gridsync/internal/pkg/logger"
	"github.com/endorses/gridsync/internal/pkg/version"
)

const (
	contentTypeJSON = "application/json; charset=UTF-8"
	maxResponseSize = 32 * 1024 * 1024
)

// Transport carries requests to the server. Send blocks until the response
// has been decoded. Failures are reported as *TransportError.
type Transport interface {
	Send(ctx context.Context, req *Request) (*Response, error)
	// Beacon delivers req without waiting for a usable answer
	Beacon(ctx context.Context, req *Request) error
	// Ping checks whether the server is reachable again
	Ping(ctx context.Context) error
}

// HTTPTransport posts JSON requests to a single endpoint
type HTTPTransport struct {
	endpoint  string
	client    *http.Client
	userAgent string
}

// NewHTTPTransport creates a transport for endpoint. A nil client gets a
// default one with pooled connections.
func NewHTTPTransport(endpoint string, client *http.Client) *HTTPTransport {
	if client == nil {
		client = &http.Client{
			Transport: &http.Transport{
				MaxIdleConns:        10,
				MaxIdleConnsPerHost: 5,
				IdleConnTimeout:     90 * time.Second,
			},
		}
	}
	return &HTTPTransport{
		endpoint:  endpoint,
		client:    client,
		userAgent: version.UserAgent(),
	}
}

// Send implements Transport
func (t *HTTPTransport) Send(ctx context.Context, req *Request) (*Response, error) {
	endpoint := t.endpoint
	if req.PollForBackgroundJobs {
		// Marker for server logs
		endpoint = withQuery(endpoint, "poll")
	}
	body, status, err := t.post(ctx, endpoint, req)
	if err != nil {
		return nil, err
	}

	var resp Response
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, &TransportError{Status: status, Err: fmt.Errorf("failed to decode response: %w", err)}
	}
	return &resp, nil
}

// Beacon implements Transport. The response body is discarded.
func (t *HTTPTransport) Beacon(ctx context.Context, req *Request) error {
	_, _, err := t.post(ctx, t.endpoint, req)
	return err
}

// Ping implements Transport
func (t *HTTPTransport) Ping(ctx context.Context) error {
	_, _, err := t.post(ctx, withQuery(t.endpoint, "ping"), &Request{Ping: true})
	return err
}

func (t *HTTPTransport) post(ctx context.Context, endpoint string, req *Request) ([]byte, int, error) {
	data, err := json.Marshal(req)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to marshal %s request: %w", req.Kind(), err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(data))
	if err != nil {
		return nil, 0, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", contentTypeJSON)
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("Cache-Control", "no-cache")
	httpReq.Header.Set("User-Agent", t.userAgent)

	resp, err := t.client.Do(httpReq)
	if err != nil {
		return nil, 0, &TransportError{Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, resp.StatusCode, &TransportError{Status: resp.StatusCode, Err: fmt.Errorf("failed to read response: %w", err)}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, resp.StatusCode, &TransportError{Status: resp.StatusCode, Err: fmt.Errorf("HTTP status %d: %s", resp.StatusCode, truncate(body, 200))}
	}

	logger.Debug("Response received",
		"kind", req.Kind(),
		"status", resp.StatusCode,
		"body_length", len(body))
	return body, resp.StatusCode, nil
}

func withQuery(endpoint, marker string) string {
	u, err := url.Parse(endpoint)
	if err != nil {
		return endpoint
	}
	q := u.RawQuery
	if q != "" {
		q += "&"
	}
	u.RawQuery = q + marker
	return u.String()
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
