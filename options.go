package ajarin

import (
	"fmt"
	"net/http"
	"time"
)

// Option represents a client configuration option.
type Option func(*Client)

// WithConfig sets the environment-sourced configuration.
func WithConfig(cfg Config) Option {
	return func(c *Client) {
		c.config = cfg
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		c.httpClient = client
	}
}

// WithCredentialStore sets the credential store the pipeline reads tokens
// from.
func WithCredentialStore(store *CredentialStore) Option {
	return func(c *Client) {
		c.creds = store
	}
}

// WithMaxRetries sets the retry bound for read-only calls.
func WithMaxRetries(n int) Option {
	return func(c *Client) {
		c.maxRetries = n
	}
}

// WithWriteMaxRetries sets the retry bound for consequential writes
// (lesson completion and similar), which default higher than reads.
func WithWriteMaxRetries(n int) Option {
	return func(c *Client) {
		c.writeMaxRetries = n
	}
}

// WithBackoff sets the retry delay schedule: delay = baseDelay x 2^attempt
// plus a uniform random term below jitterCap, capped at maxDelay.
func WithBackoff(baseDelay, maxDelay, jitterCap time.Duration) Option {
	return func(c *Client) {
		c.baseDelay = baseDelay
		c.maxDelay = maxDelay
		c.jitterCap = jitterCap
	}
}

// WithSlowRoutes replaces the set of route prefixes granted the longer
// SlowTimeout.
func WithSlowRoutes(prefixes ...string) Option {
	return func(c *Client) {
		c.slowRoutes = prefixes
	}
}

// WithCircuitBreaker enables the circuit breaker.
func WithCircuitBreaker(config CircuitBreakerConfig) Option {
	return func(c *Client) {
		c.circuitBreaker = NewCircuitBreaker(config)
	}
}

// WithRateLimiter enables the client-side token bucket.
func WithRateLimiter(maxTokens int, refillRate time.Duration) Option {
	return func(c *Client) {
		c.rateLimiter = NewRateLimiter(maxTokens, refillRate)
	}
}

// WithMetrics enables Prometheus metrics collection on the default
// registerer.
func WithMetrics() Option {
	return func(c *Client) {
		c.metrics = NewMetricsCollector()
	}
}

// WithMetricsCollector sets a custom metrics collector.
func WithMetricsCollector(collector *MetricsCollector) Option {
	return func(c *Client) {
		c.metrics = collector
	}
}

// WithLogger sets a custom logger for debug output.
func WithLogger(logger Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithSimpleLogger enables debug logging with a simple console logger.
func WithSimpleLogger() Option {
	return func(c *Client) {
		if c.debug == nil {
			c.debug = DefaultDebugConfig()
		}
		c.debug.Enabled = true
		c.logger = NewSimpleLogger()
	}
}

// WithDebug enables debug logging with default configuration.
func WithDebug() Option {
	return func(c *Client) {
		if c.debug == nil {
			c.debug = DefaultDebugConfig()
		}
		c.debug.Enabled = true
	}
}

// WithDebugConfig sets custom debug configuration.
func WithDebugConfig(config *DebugConfig) Option {
	return func(c *Client) {
		c.debug = config
	}
}

// WithRequestIDGenerator sets a custom function for generating request IDs.
func WithRequestIDGenerator(gen func() string) Option {
	return func(c *Client) {
		if c.debug == nil {
			c.debug = DefaultDebugConfig()
		}
		c.debug.RequestIDGen = gen
	}
}

// RequestOption adjusts a single call.
type RequestOption func(*requestOptions)

type requestOptions struct {
	maxRetries         int
	entityKey          string
	callerCancellation bool
}

func newRequestOptions(c *Client, method string) requestOptions {
	retries := c.writeMaxRetries
	if method == http.MethodGet || method == http.MethodHead {
		retries = c.maxRetries
	}
	return requestOptions{maxRetries: retries}
}

// WithRequestMaxRetries overrides the retry bound for this call.
func WithRequestMaxRetries(n int) RequestOption {
	return func(ro *requestOptions) {
		ro.maxRetries = n
	}
}

// WithEntityKey names the legacy envelope key to unwrap
// ({success, <entityKey>: ...} responses).
func WithEntityKey(key string) RequestOption {
	return func(ro *requestOptions) {
		ro.entityKey = key
	}
}

// WithCallerCancellation marks the call as owning its teardown: it bypasses
// fingerprint sharing and is neither evicted by nor evicts other calls to
// the same endpoint. Cancellation happens solely through the caller's
// context.
func WithCallerCancellation() RequestOption {
	return func(ro *requestOptions) {
		ro.callerCancellation = true
	}
}

// ValidateConfiguration validates the client configuration and returns an
// error if invalid.
func (c *Client) ValidateConfiguration() error {
	var problems []string

	problems = append(problems, c.validateRetryConfig()...)
	problems = append(problems, c.validateTransportConfig()...)
	problems = append(problems, c.validateRateLimiterConfig()...)
	problems = append(problems, c.validateDebugConfig()...)
	problems = append(problems, c.validateExtremeValues()...)

	if len(problems) > 0 {
		return &APIError{
			Class:   ErrorClassValidation,
			Message: "configuration validation failed",
			Cause:   fmt.Errorf("validation errors: %v", problems),
		}
	}
	return nil
}

func (c *Client) validateRetryConfig() []string {
	var problems []string

	if c.maxRetries < 0 {
		problems = append(problems, "maxRetries must be non-negative")
	}
	if c.writeMaxRetries < 0 {
		problems = append(problems, "writeMaxRetries must be non-negative")
	}
	if c.baseDelay <= 0 {
		problems = append(problems, "baseDelay must be positive")
	}
	if c.maxDelay < c.baseDelay {
		problems = append(problems, "maxDelay must be greater than or equal to baseDelay")
	}
	if c.jitterCap < 0 {
		problems = append(problems, "jitterCap must be non-negative")
	}

	return problems
}

func (c *Client) validateTransportConfig() []string {
	var problems []string

	if c.httpClient == nil {
		problems = append(problems, "HTTP client cannot be nil")
	}
	if c.config.BaseURL == "" {
		problems = append(problems, "base URL cannot be empty")
	}
	if c.config.Timeout <= 0 {
		problems = append(problems, "timeout must be positive")
	}
	if c.config.SlowTimeout < c.config.Timeout {
		problems = append(problems, "slow timeout must be greater than or equal to timeout")
	}
	if c.creds == nil {
		problems = append(problems, "credential store cannot be nil")
	}

	return problems
}

func (c *Client) validateRateLimiterConfig() []string {
	var problems []string

	if c.rateLimiter != nil {
		if c.rateLimiter.maxTokens <= 0 {
			problems = append(problems, "rateLimiter maxTokens must be positive")
		}
		if c.rateLimiter.refillRate <= 0 {
			problems = append(problems, "rateLimiter refillRate must be positive")
		}
	}

	return problems
}

func (c *Client) validateDebugConfig() []string {
	var problems []string

	if c.debug != nil && c.debug.Enabled {
		if c.debug.RequestIDGen == nil {
			problems = append(problems, "debug RequestIDGen must be set when debug is enabled")
		}
		if c.logger == nil {
			problems = append(problems, "logger must be set when debug is enabled")
		}
	}

	return problems
}

func (c *Client) validateExtremeValues() []string {
	var problems []string

	if c.maxRetries > 10 || c.writeMaxRetries > 10 {
		problems = append(problems, "retry bounds > 10 may hammer a struggling backend")
	}
	if c.baseDelay > time.Minute {
		problems = append(problems, "baseDelay > 1m may cause very long delays")
	}
	if c.maxDelay > 10*time.Minute {
		problems = append(problems, "maxDelay > 10m may cause extremely long delays")
	}
	if c.config.Timeout > 10*time.Minute {
		problems = append(problems, "timeout > 10m may cause requests to hang for too long")
	}

	return problems
}
