package ajarin

import (
	"net/http"
	"testing"
	"time"
)

func TestValidateConfiguration(t *testing.T) {
	tests := []struct {
		name    string
		options []Option
		valid   bool
	}{
		{"defaults", nil, true},
		{"negative read retries", []Option{WithMaxRetries(-1)}, false},
		{"negative write retries", []Option{WithWriteMaxRetries(-1)}, false},
		{"zero base delay", []Option{WithBackoff(0, time.Second, 0)}, false},
		{"max below base", []Option{WithBackoff(time.Second, time.Millisecond, 0)}, false},
		{"nil http client", []Option{WithHTTPClient(nil)}, false},
		{"empty base url", []Option{WithConfig(Config{Timeout: time.Second, SlowTimeout: time.Second})}, false},
		{"slow timeout below timeout", []Option{WithConfig(Config{BaseURL: "/api/v1", Timeout: 10 * time.Second, SlowTimeout: time.Second})}, false},
		{"excessive retries", []Option{WithMaxRetries(50)}, false},
		{"debug without logger", []Option{WithDebug()}, false},
		{"debug with logger", []Option{WithDebug(), WithLogger(NewSimpleLogger())}, true},
		{"rate limiter", []Option{WithRateLimiter(10, time.Second)}, true},
		{"circuit breaker", []Option{WithCircuitBreaker(CircuitBreakerConfig{})}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := New(tt.options...)
			if got := client.IsValid(); got != tt.valid {
				t.Errorf("IsValid() = %v, want %v (validation error: %v)", got, tt.valid, client.ValidationError())
			}
		})
	}
}

func TestRequestOptionsDefaultRetryBudgets(t *testing.T) {
	client := New(WithMaxRetries(2), WithWriteMaxRetries(3))

	tests := []struct {
		method string
		want   int
	}{
		{http.MethodGet, 2},
		{http.MethodHead, 2},
		{http.MethodPost, 3},
		{http.MethodPut, 3},
		{http.MethodDelete, 3},
	}
	for _, tt := range tests {
		if ro := newRequestOptions(client, tt.method); ro.maxRetries != tt.want {
			t.Errorf("%s default maxRetries = %d, want %d", tt.method, ro.maxRetries, tt.want)
		}
	}

	ro := newRequestOptions(client, http.MethodGet)
	WithRequestMaxRetries(7)(&ro)
	if ro.maxRetries != 7 {
		t.Errorf("override maxRetries = %d, want 7", ro.maxRetries)
	}
	WithEntityKey("lessons")(&ro)
	if ro.entityKey != "lessons" {
		t.Errorf("entityKey = %q, want lessons", ro.entityKey)
	}
	WithCallerCancellation()(&ro)
	if !ro.callerCancellation {
		t.Error("callerCancellation not set")
	}
}

func TestWithRequestIDGenerator(t *testing.T) {
	client := New(
		WithLogger(NewSimpleLogger()),
		WithDebug(),
		WithRequestIDGenerator(func() string { return "req_fixed" }),
	)
	if !client.IsValid() {
		t.Fatalf("client invalid: %v", client.ValidationError())
	}
	if got := client.debug.RequestIDGen(); got != "req_fixed" {
		t.Errorf("RequestIDGen() = %q, want req_fixed", got)
	}
}
