package llm

import (
	"math/rand/v2"
	"time"
)

// RetryConfig shapes per-endpoint retry behavior. The pipeline issues
// few but long completion calls (one draft, one merge, a bounded batch
// of image critiques), and critique jobs already run under their own
// deadline, so backoff stays short: a long wait inside a job's timeout
// only converts a retryable failure into a timeout.
type RetryConfig struct {
	// MaxAttempts bounds attempts against one endpoint before the
	// client falls through to the next model in the capability chain.
	MaxAttempts int

	// BackoffBase is the wait after the first failed attempt.
	BackoffBase time.Duration

	// BackoffMultiplier grows the wait on each further failure.
	BackoffMultiplier float64

	// MaxBackoff caps the wait regardless of attempt count.
	MaxBackoff time.Duration
}

// DefaultRetryConfig returns retry defaults sized for completion calls
// made under per-stage deadlines.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:       3,
		BackoffBase:       time.Second,
		BackoffMultiplier: 2.0,
		MaxBackoff:        10 * time.Second,
	}
}

// backoff returns the jittered wait before the next attempt (1-based).
// Jitter of +/- 25% spreads simultaneously dispatched critique retries
// apart.
func (c RetryConfig) backoff(attempt int) time.Duration {
	wait := float64(c.BackoffBase)
	for i := 1; i < attempt; i++ {
		wait *= c.BackoffMultiplier
	}
	if limit := float64(c.MaxBackoff); wait > limit {
		wait = limit
	}
	return time.Duration(wait * (0.75 + rand.Float64()*0.5))
}
