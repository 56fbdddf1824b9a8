package ajarin

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// requestDescriptor is the immutable per-call request description flowing
// through the pipeline.
type requestDescriptor struct {
	method string
	path   string // normalized
	body   []byte
	public bool
	bearer string // overrides the stored access token (refresh calls)
}

// transportAttempt describes one physical network call.
type transportAttempt struct {
	targetURL string
	timeout   time.Duration
}

// transportResult is a fully drained response: sharing raw *http.Response
// bodies between dedup waiters and retry attempts is not safe, so the
// transport reads everything eagerly.
type transportResult struct {
	statusCode int
	header     http.Header
	body       []byte
}

// dispatch issues the request against the primary (proxied) address and,
// when the primary fails with a network-class error in development mode
// with a direct address configured, retries once against the direct
// address. A well-formed HTTP response is returned whatever its status: the
// server was reachable and the failure is meaningful, so it must not
// trigger the fallback.
func (c *Client) dispatch(ctx context.Context, desc *requestDescriptor, requestID string) (*transportResult, error) {
	timeout := c.timeoutFor(desc.path)

	res, err := c.attempt(ctx, desc, transportAttempt{targetURL: c.config.BaseURL, timeout: timeout})
	if err == nil {
		return res, nil
	}
	if ctx.Err() != nil || !isNetworkError(err) {
		return nil, err
	}

	if !c.config.fallbackConfigured() {
		return nil, &APIError{
			Class:    ErrorClassNetwork,
			Message:  "network request failed",
			Method:   desc.method,
			Endpoint: desc.path,
			Cause:    err,
		}
	}

	if c.metrics != nil {
		c.metrics.RecordFallback(desc.method, desc.path)
	}
	if c.debug != nil && c.debug.Enabled && c.debug.LogFallback && c.logger != nil {
		c.logger.Warn("Primary address unreachable, trying direct backend",
			"requestID", requestID, "endpoint", desc.path, "error", err.Error())
	}

	res, directErr := c.attempt(ctx, desc, transportAttempt{targetURL: c.config.directURL(), timeout: timeout})
	if directErr == nil {
		return res, nil
	}
	if ctx.Err() != nil {
		return nil, directErr
	}

	return nil, &APIError{
		Class:    ErrorClassNetwork,
		Message:  fmt.Sprintf("backend unreachable via proxy and directly; is the backend running on port %d?", c.config.BackendPort),
		Method:   desc.method,
		Endpoint: desc.path,
		Cause:    errors.Join(err, directErr),
	}
}

// attempt performs one physical call bounded by its own timeout and drains
// the response body.
func (c *Client) attempt(ctx context.Context, desc *requestDescriptor, at transportAttempt) (*transportResult, error) {
	attemptCtx := ctx
	if at.timeout > 0 {
		var cancel context.CancelFunc
		attemptCtx, cancel = context.WithTimeout(ctx, at.timeout)
		defer cancel()
	}

	var bodyReader io.Reader
	if len(desc.body) > 0 {
		bodyReader = bytes.NewReader(desc.body)
	}

	req, err := http.NewRequestWithContext(attemptCtx, desc.method, joinURL(at.targetURL, desc.path), bodyReader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	switch {
	case desc.bearer != "":
		req.Header.Set("Authorization", "Bearer "+desc.bearer)
	case !desc.public:
		if token := c.creds.AccessToken(); token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	return &transportResult{
		statusCode: resp.StatusCode,
		header:     resp.Header.Clone(),
		body:       raw,
	}, nil
}

// timeoutFor returns the per-attempt timeout: longer for the designated
// known-slow routes, shorter otherwise.
func (c *Client) timeoutFor(path string) time.Duration {
	for _, prefix := range c.slowRoutes {
		if path == prefix || strings.HasPrefix(path, prefix+"/") {
			return c.config.SlowTimeout
		}
	}
	return c.config.Timeout
}

func joinURL(base, path string) string {
	return strings.TrimSuffix(base, "/") + path
}

// isNetworkError reports whether an error means no meaningful response
// reached the client (timeout, refused connection, DNS failure). Caller
// cancellation is not a network error.
func isNetworkError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return true
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Class == ErrorClassNetwork
	}
	return false
}
