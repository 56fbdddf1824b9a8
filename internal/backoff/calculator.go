package backoff

import "time"

// Calculator binds a Strategy to the client's configured delay bounds so
// call sites only supply the attempt number.
type Calculator struct {
	strategy  Strategy
	baseDelay time.Duration
	maxDelay  time.Duration
	jitterCap time.Duration
}

// NewCalculator creates a calculator with the given strategy and bounds.
func NewCalculator(strategy Strategy, baseDelay, maxDelay, jitterCap time.Duration) *Calculator {
	return &Calculator{
		strategy:  strategy,
		baseDelay: baseDelay,
		maxDelay:  maxDelay,
		jitterCap: jitterCap,
	}
}

// NewExponentialJitter returns the default calculator: exponential doubling
// with a capped uniform jitter term.
func NewExponentialJitter(baseDelay, maxDelay, jitterCap time.Duration) *Calculator {
	return NewCalculator(ExponentialJitterStrategy{}, baseDelay, maxDelay, jitterCap)
}

// Delay computes the delay before retry attempt n (0-based).
func (c *Calculator) Delay(attempt int) time.Duration {
	return c.strategy.Calculate(attempt, c.baseDelay, c.maxDelay, c.jitterCap)
}

// Base returns the configured base delay.
func (c *Calculator) Base() time.Duration {
	return c.baseDelay
}
