package ajarin

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/ambiyansyah-risyal/ajarin/internal/backoff"
	"github.com/ambiyansyah-risyal/ajarin/internal/singleflight"
)

// Client is the resilient request core every endpoint wrapper funnels
// through. It layers endpoint normalization, in-flight de-duplication,
// dual-transport failover, bounded retries, single-flight token refresh and
// envelope unwrapping around the standard net/http Client. It is safe for
// concurrent use; construct one per backend and pass it by reference.
type Client struct {
	httpClient *http.Client
	config     Config
	creds      *CredentialStore

	registry     *InFlightRegistry
	refreshGroup *singleflight.Group
	backoff      *backoff.Calculator

	maxRetries      int // read-only calls
	writeMaxRetries int // consequential writes (lesson completion etc.)
	baseDelay       time.Duration
	maxDelay        time.Duration
	jitterCap       time.Duration

	slowRoutes     []string
	circuitBreaker *CircuitBreaker
	rateLimiter    *RateLimiter
	metrics        *MetricsCollector
	logger         Logger
	debug          *DebugConfig

	validationError error
}

// Result is the settled outcome of a successful request: the raw body plus
// the unwrapped payload and which envelope shape matched.
type Result struct {
	StatusCode int
	Header     http.Header
	Body       json.RawMessage
	Payload    json.RawMessage
	Shape      EnvelopeShape
	Endpoint   string
}

// New constructs a Client using the provided functional options. A best
// effort validation is performed; call IsValid / ValidationError for errors.
func New(options ...Option) *Client {
	client := &Client{
		httpClient:      &http.Client{},
		config:          DefaultConfig(),
		creds:           NewCredentialStore(NewMemoryStore()),
		registry:        NewInFlightRegistry(),
		refreshGroup:    singleflight.New(),
		maxRetries:      2,
		writeMaxRetries: 3,
		baseDelay:       500 * time.Millisecond,
		maxDelay:        10 * time.Second,
		jitterCap:       time.Second,
		slowRoutes:      []string{"/openai"},
		debug:           DefaultDebugConfig(),
	}

	for _, option := range options {
		option(client)
	}

	client.backoff = backoff.NewExponentialJitter(client.baseDelay, client.maxDelay, client.jitterCap)

	if err := client.ValidateConfiguration(); err != nil {
		client.validationError = err
	}

	return client
}

// Request runs the full pipeline for one logical request. body may be nil,
// a []byte / json.RawMessage used verbatim, or any value marshaled to JSON.
// The returned Result carries the unwrapped payload; errors are *APIError
// values (or the caller's own cancellation error).
func (c *Client) Request(ctx context.Context, method, path string, body any, opts ...RequestOption) (*Result, error) {
	if c.validationError != nil {
		return nil, c.validationError
	}

	ro := newRequestOptions(c, method)
	for _, opt := range opts {
		opt(&ro)
	}

	payload, err := marshalBody(body)
	if err != nil {
		return nil, &APIError{
			Class:     ErrorClassValidation,
			Message:   "request body is not serializable",
			Method:    method,
			Endpoint:  path,
			Timestamp: time.Now(),
			Cause:     err,
		}
	}

	desc := &requestDescriptor{
		method: method,
		path:   NormalizeEndpoint(path),
		body:   payload,
	}
	desc.public = IsPublicRoute(desc.path)

	var requestID string
	if c.debug != nil && c.debug.Enabled && c.debug.RequestIDGen != nil {
		requestID = c.debug.RequestIDGen()
	}
	if c.debug != nil && c.debug.Enabled && c.debug.LogRequests && c.logger != nil {
		c.logger.Debug("Starting request", "requestID", requestID, "method", method, "endpoint", desc.path, "public", desc.public)
	}

	start := time.Now()
	if c.metrics != nil {
		c.metrics.RecordRequestStart(method, desc.path)
	}
	result, err := c.requestShared(ctx, desc, requestID, ro)
	if c.metrics != nil {
		c.metrics.RecordRequestEnd(method, desc.path)
		statusCode := 0
		if result != nil {
			statusCode = result.StatusCode
		} else if apiErr, ok := err.(*APIError); ok {
			statusCode = apiErr.StatusCode
		}
		c.metrics.RecordRequest(method, desc.path, statusCode, time.Since(start))
	}
	return result, err
}

// requestShared routes the call through the dedup/cancellation registry
// unless the caller carries its own cancellation signal.
func (c *Client) requestShared(ctx context.Context, desc *requestDescriptor, requestID string, ro requestOptions) (*Result, error) {
	if ro.callerCancellation {
		return c.execute(ctx, desc, requestID, ro)
	}

	fingerprint := Fingerprint(desc.method, desc.path, desc.body)
	// The owner's transport call can be aborted through the registry (Cancel
	// / CancelAll / latest-wins eviction) as well as by its own context.
	runCtx, cancel := context.WithCancel(ctx)
	entry, owner := c.registry.Acquire(fingerprint, desc.path, cancel)
	if !owner {
		cancel()
		if c.metrics != nil {
			c.metrics.RecordDeduplicationHit(desc.method, desc.path)
		}
		if c.debug != nil && c.debug.Enabled && c.debug.LogDedup && c.logger != nil {
			c.logger.Debug("Joined in-flight request", "requestID", requestID, "fingerprint", fingerprint, "endpoint", desc.path)
		}
		return entry.Wait(ctx)
	}

	result, err := c.execute(runCtx, desc, requestID, ro)
	if runCtx.Err() != nil && ctx.Err() == nil {
		// Evicted by a newer call to the same endpoint: the registry already
		// settled and removed the entry; surface the abort to this caller.
		return nil, &APIError{
			Class:    ErrorClassAbort,
			Message:  "request superseded",
			Method:   desc.method,
			Endpoint: desc.path,
			Cause:    context.Canceled,
		}
	}
	c.registry.Complete(fingerprint, result, err)
	cancel()
	return result, err
}

// execute runs retry plus the 401 refresh-and-replay path and unwraps the
// response envelope.
func (c *Client) execute(ctx context.Context, desc *requestDescriptor, requestID string, ro requestOptions) (*Result, error) {
	res, err := c.executeWithRetry(ctx, desc, requestID, ro.maxRetries)

	if apiErr, ok := err.(*APIError); ok && c.shouldRefresh(apiErr, desc) {
		if refreshErr := c.refreshAccessToken(ctx); refreshErr != nil {
			return nil, refreshErr
		}
		// Replay the original request exactly once with the new token.
		res, err = c.executeWithRetry(ctx, desc, requestID, 0)
		if replayErr, ok := err.(*APIError); ok && replayErr.StatusCode == http.StatusUnauthorized {
			return nil, c.expireSession(replayErr)
		}
	}
	if err != nil {
		return nil, err
	}

	payload, shape := UnwrapEnvelope(res.body, ro.entityKey)
	if shape == ShapeUnrecognized && c.logger != nil && (c.debug == nil || !c.debug.Enabled || c.debug.LogEnvelope) {
		c.logger.Warn("Unrecognized response envelope, passing body through",
			"requestID", requestID, "endpoint", desc.path)
	}

	return &Result{
		StatusCode: res.statusCode,
		Header:     res.header,
		Body:       res.body,
		Payload:    payload,
		Shape:      shape,
		Endpoint:   desc.path,
	}, nil
}

// shouldRefresh reports whether a failure triggers the refresh coordinator:
// a 401 on a non-public route while an access token is present. The refresh
// call itself never re-enters this path.
func (c *Client) shouldRefresh(apiErr *APIError, desc *requestDescriptor) bool {
	return apiErr.StatusCode == http.StatusUnauthorized &&
		!desc.public &&
		desc.bearer == "" &&
		c.creds.AccessToken() != ""
}

// Get performs a GET request through the pipeline.
func (c *Client) Get(ctx context.Context, path string, opts ...RequestOption) (*Result, error) {
	return c.Request(ctx, http.MethodGet, path, nil, opts...)
}

// Post performs a POST request through the pipeline.
func (c *Client) Post(ctx context.Context, path string, body any, opts ...RequestOption) (*Result, error) {
	return c.Request(ctx, http.MethodPost, path, body, opts...)
}

// Put performs a PUT request through the pipeline.
func (c *Client) Put(ctx context.Context, path string, body any, opts ...RequestOption) (*Result, error) {
	return c.Request(ctx, http.MethodPut, path, body, opts...)
}

// Delete performs a DELETE request through the pipeline.
func (c *Client) Delete(ctx context.Context, path string, opts ...RequestOption) (*Result, error) {
	return c.Request(ctx, http.MethodDelete, path, nil, opts...)
}

// Cancel aborts the in-flight request matching method+path+body, if any.
// The transport call aborts and the registry entry is removed immediately;
// a subsequent identical call issues a fresh network round-trip.
func (c *Client) Cancel(method, path string, body any) error {
	payload, err := marshalBody(body)
	if err != nil {
		return err
	}
	normalized := NormalizeEndpoint(path)
	c.registry.Cancel(Fingerprint(method, normalized, payload))
	return nil
}

// CancelAll aborts every in-flight request; used for caller-driven teardown
// such as page navigation.
func (c *Client) CancelAll() {
	c.registry.CancelAll()
}

// Credentials exposes the client's credential store for login/logout flows.
func (c *Client) Credentials() *CredentialStore {
	return c.creds
}

// IsValid reports whether configuration validation passed at construction.
func (c *Client) IsValid() bool {
	return c.validationError == nil
}

// ValidationError returns the configuration validation error, if any.
func (c *Client) ValidationError() error {
	return c.validationError
}

func marshalBody(body any) ([]byte, error) {
	switch b := body.(type) {
	case nil:
		return nil, nil
	case []byte:
		return b, nil
	case json.RawMessage:
		return b, nil
	default:
		return json.Marshal(body)
	}
}
