package ajarin

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"
)

// Sentinel errors for common failure scenarios
var (
	// ErrSessionExpired is returned when a token refresh fails terminally and
	// the caller must re-authenticate.
	ErrSessionExpired = errors.New("ajarin: session expired")

	// ErrCircuitOpen is returned when the circuit breaker is in open state.
	ErrCircuitOpen = errors.New("ajarin: circuit open")

	// ErrRateLimited is returned when a request is denied by the local rate limiter.
	ErrRateLimited = errors.New("ajarin: rate limited")
)

// Canonical error classes produced by the classifier. The Retry Engine and
// UI layers key off these, never off raw status codes.
const (
	ErrorClassNetwork    = "Network"    // no response reached the client
	ErrorClassAuth       = "Auth"       // 401 / 403
	ErrorClassValidation = "Validation" // 400 / 422
	ErrorClassRateLimit  = "RateLimit"  // 408 / 429
	ErrorClassServer     = "Server"     // 5xx
	ErrorClassClient     = "Client"     // remaining 4xx
	ErrorClassAbort      = "Abort"      // caller- or registry-initiated cancellation
)

// APIError is the one normalized error type surfaced by the request core.
// It carries a human-readable message plus a machine-checkable class, code
// and status so calling UI code can distinguish "retry", "fix your input"
// and "log in again".
type APIError struct {
	Class      string
	Message    string
	StatusCode int    // 0 when no response reached the client
	Code       string // backend error code when present
	Details    map[string]any
	Endpoint   string
	Method     string
	Attempts   int // physical attempts made before surfacing
	Timestamp  time.Time
	Cause      error
}

// errorBody is the backend's error response shape; any subset of fields may
// be present.
type errorBody struct {
	ErrorCode string          `json:"error_code"`
	Code      string          `json:"code"`
	Message   string          `json:"message"`
	Error     string          `json:"error"`
	Details   map[string]any  `json:"details"`
	Data      json.RawMessage `json:"data"`
}

// ClassifyError builds an APIError from an HTTP status and the decoded error
// body. A zero status means no response reached the client.
func ClassifyError(statusCode int, body []byte, method, endpoint string) *APIError {
	apiErr := &APIError{
		Class:      classFor(statusCode),
		StatusCode: statusCode,
		Method:     method,
		Endpoint:   endpoint,
		Timestamp:  time.Now(),
	}

	var parsed errorBody
	if len(body) > 0 && json.Unmarshal(body, &parsed) == nil {
		switch {
		case parsed.Message != "":
			apiErr.Message = parsed.Message
		case parsed.Error != "":
			apiErr.Message = parsed.Error
		}
		switch {
		case parsed.ErrorCode != "":
			apiErr.Code = parsed.ErrorCode
		case parsed.Code != "":
			apiErr.Code = parsed.Code
		}
		apiErr.Details = parsed.Details
	}

	if apiErr.Message == "" {
		if statusCode > 0 {
			apiErr.Message = http.StatusText(statusCode)
		} else {
			apiErr.Message = "network request failed"
		}
	}

	return apiErr
}

func classFor(statusCode int) string {
	switch {
	case statusCode == 0:
		return ErrorClassNetwork
	case statusCode == 401 || statusCode == 403:
		return ErrorClassAuth
	case statusCode == 400 || statusCode == 422:
		return ErrorClassValidation
	case statusCode == 408 || statusCode == 429:
		return ErrorClassRateLimit
	case statusCode >= 500:
		return ErrorClassServer
	case statusCode >= 400:
		return ErrorClassClient
	default:
		return ErrorClassServer
	}
}

// IsNetwork reports a network-class failure: no status at all, or a 5xx
// other than 501/505 (the server-side equivalents of "the path is broken").
func (e *APIError) IsNetwork() bool {
	if e == nil {
		return false
	}
	if e.StatusCode == 0 {
		return true
	}
	return e.StatusCode >= 500 && e.StatusCode != 501 && e.StatusCode != 505
}

// IsAuth reports an authentication/authorization failure (401/403).
func (e *APIError) IsAuth() bool {
	return e != nil && (e.StatusCode == 401 || e.StatusCode == 403)
}

// IsValidation reports a malformed-request failure (400/422); never retried.
func (e *APIError) IsValidation() bool {
	return e != nil && (e.StatusCode == 400 || e.StatusCode == 422)
}

// Retryable reports whether the retry engine may attempt this request again:
// absent status, 5xx other than 501/505, 408 or 429.
func (e *APIError) Retryable() bool {
	if e == nil {
		return false
	}
	switch {
	case e.StatusCode == 0:
		return true
	case e.StatusCode == 408 || e.StatusCode == 429:
		return true
	case e.StatusCode >= 500:
		return e.StatusCode != 501 && e.StatusCode != 505
	default:
		return false
	}
}

// Error implements error interface.
func (e *APIError) Error() string {
	if e == nil {
		return "<nil>"
	}
	msg := fmt.Sprintf("%s: %s", e.Class, e.Message)
	if e.StatusCode > 0 {
		msg = fmt.Sprintf("%s (status %d)", msg, e.StatusCode)
	}
	if e.Endpoint != "" {
		msg = fmt.Sprintf("%s (%s %s)", msg, e.Method, e.Endpoint)
	}
	if e.Attempts > 1 {
		msg = fmt.Sprintf("%s after %d attempts", msg, e.Attempts)
	}
	if e.Cause != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Cause)
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *APIError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// Is compares error classes for errors.Is.
func (e *APIError) Is(target error) bool {
	if e == nil {
		return false
	}
	if targetErr, ok := target.(*APIError); ok {
		return e.Class == targetErr.Class
	}
	return false
}

// IsTransient determines if an error represents a transient failure that
// might succeed on retry.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrCircuitOpen) || errors.Is(err, ErrRateLimited) {
		return true
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Retryable()
	}
	return false
}

// IsAbort reports whether an error stems from cancellation. A caller
// observing its own abort must not treat it as a reportable failure.
func IsAbort(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return true
	}
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Class == ErrorClassAbort
}
