package ajarin

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// executeWithRetry wraps transport dispatch in the bounded retry loop. Only
// errors the classifier marks retryable are attempted again (absent status,
// 5xx other than 501/505, 408, 429); validation and other client errors
// fail on the first attempt. maxRetries bounds retries, so a call is
// attempted at most maxRetries+1 times. The surfaced error is the last one
// observed, annotated with the attempt count.
func (c *Client) executeWithRetry(ctx context.Context, desc *requestDescriptor, requestID string, maxRetries int) (*transportResult, error) {
	for attempt := 0; ; attempt++ {
		if c.rateLimiter != nil && !c.rateLimiter.Allow() {
			if c.metrics != nil {
				c.metrics.RecordError(ErrorClassRateLimit, desc.method, desc.path)
			}
			return nil, fmt.Errorf("%w: %s %s", ErrRateLimited, desc.method, desc.path)
		}

		if c.circuitBreaker != nil && !c.circuitBreaker.Allow() {
			if c.debug != nil && c.debug.Enabled && c.debug.LogRetries && c.logger != nil {
				c.logger.Warn("Circuit breaker open", "requestID", requestID, "endpoint", desc.path)
			}
			if c.metrics != nil {
				c.metrics.RecordError("CircuitOpen", desc.method, desc.path)
			}
			return nil, fmt.Errorf("%w: %s %s", ErrCircuitOpen, desc.method, desc.path)
		}

		if attempt > 0 {
			if c.debug != nil && c.debug.Enabled && c.debug.LogRetries && c.logger != nil {
				c.logger.Info("Retry attempt", "requestID", requestID, "attempt", attempt, "maxRetries", maxRetries, "endpoint", desc.path)
			}
			if c.metrics != nil {
				c.metrics.RecordRetry(desc.method, desc.path, attempt)
			}
		}

		res, err := c.dispatch(ctx, desc, requestID)

		var apiErr *APIError
		switch {
		case err != nil:
			if ctx.Err() != nil || IsAbort(err) {
				return nil, err
			}
			if c.circuitBreaker != nil {
				c.circuitBreaker.RecordFailure()
			}
			apiErr = toNetworkError(err, desc)
			if c.metrics != nil {
				c.metrics.RecordError(apiErr.Class, desc.method, desc.path)
			}
		case res.statusCode >= 400:
			apiErr = ClassifyError(res.statusCode, res.body, desc.method, desc.path)
			if c.circuitBreaker != nil {
				if res.statusCode >= 500 {
					c.circuitBreaker.RecordFailure()
				} else {
					c.circuitBreaker.RecordSuccess()
				}
			}
			if c.metrics != nil {
				c.metrics.RecordError(apiErr.Class, desc.method, desc.path)
			}
		default:
			if c.circuitBreaker != nil {
				c.circuitBreaker.RecordSuccess()
			}
			return res, nil
		}

		if attempt >= maxRetries || !apiErr.Retryable() {
			apiErr.Attempts = attempt + 1
			return nil, apiErr
		}

		delay := time.Duration(0)
		if res != nil {
			delay = parseRetryAfter(res.header.Get("Retry-After"))
		}
		if delay == 0 {
			delay = c.backoff.Delay(attempt)
		}

		if c.debug != nil && c.debug.Enabled && c.debug.LogRetries && c.logger != nil {
			c.logger.Info("Scheduling retry", "requestID", requestID, "attempt", attempt+1, "backoff", delay, "endpoint", desc.path)
		}

		if err := sleepCtx(ctx, delay); err != nil {
			return nil, err
		}
	}
}

// toNetworkError normalizes a transport-level failure into an APIError,
// preserving one that already is.
func toNetworkError(err error, desc *requestDescriptor) *APIError {
	if apiErr, ok := err.(*APIError); ok {
		return apiErr
	}
	return &APIError{
		Class:     ErrorClassNetwork,
		Message:   "network request failed",
		Method:    desc.method,
		Endpoint:  desc.path,
		Timestamp: time.Now(),
		Cause:     err,
	}
}

// sleepCtx waits for the backoff delay, aborting early on cancellation.
func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// parseRetryAfter parses a Retry-After header value, supporting both
// delay-seconds and HTTP-date formats. Capped at one hour.
func parseRetryAfter(value string) time.Duration {
	if value == "" {
		return 0
	}

	if seconds, err := strconv.Atoi(strings.TrimSpace(value)); err == nil {
		if seconds > 0 {
			delay := time.Duration(seconds) * time.Second
			if delay > time.Hour {
				delay = time.Hour
			}
			return delay
		}
		return 0
	}

	if t, err := http.ParseTime(value); err == nil {
		delay := time.Until(t)
		if delay > 0 && delay <= time.Hour {
			return delay
		}
	}

	return 0
}
