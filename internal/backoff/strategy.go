// Package backoff centralizes retry delay calculation for the request core.
package backoff

import (
	"math/rand"
	"time"
)

// Strategy defines the interface for backoff calculation algorithms.
type Strategy interface {
	// Calculate returns the delay before the given retry attempt.
	// jitterCap bounds the absolute random term added to the base delay.
	Calculate(attempt int, baseDelay, maxDelay, jitterCap time.Duration) time.Duration
}

// ExponentialJitterStrategy computes baseDelay * 2^attempt plus a uniform
// random term in [0, jitterCap). This is the schedule every retrying call
// site uses.
type ExponentialJitterStrategy struct{}

// Calculate implements Strategy.
func (ExponentialJitterStrategy) Calculate(attempt int, baseDelay, maxDelay, jitterCap time.Duration) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	// Cap the exponent so the shift below cannot overflow.
	if attempt > 30 {
		attempt = 30
	}

	delay := baseDelay << uint(attempt)
	if delay < 0 || (maxDelay > 0 && delay > maxDelay) {
		delay = maxDelay
	}

	if jitterCap > 0 {
		delay += time.Duration(rand.Int63n(int64(jitterCap)))
	}
	if maxDelay > 0 && delay > maxDelay {
		delay = maxDelay
	}
	return delay
}

// DecorrelatedJitterStrategy implements AWS-style decorrelated jitter:
// random between baseDelay and min(maxDelay, baseDelay * 3^attempt).
// Retained for call sites that prefer smoother tail latencies.
type DecorrelatedJitterStrategy struct{}

// Calculate implements Strategy.
func (DecorrelatedJitterStrategy) Calculate(attempt int, baseDelay, maxDelay, _ time.Duration) time.Duration {
	if attempt <= 0 {
		return baseDelay
	}
	if attempt > 10 {
		attempt = 10
	}

	base := float64(baseDelay)
	upper := base
	for i := 0; i < attempt; i++ {
		upper *= 3
	}
	if maxDelay > 0 && (upper > float64(maxDelay) || upper < 0) {
		upper = float64(maxDelay)
	}
	if upper < base {
		upper = base
	}

	delay := time.Duration(base + rand.Float64()*(upper-base))
	if maxDelay > 0 && delay > maxDelay {
		delay = maxDelay
	}
	return delay
}
