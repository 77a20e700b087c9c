package llm

import (
	"errors"
	"testing"
	"time"
)

func TestBackoffStaysWithinBounds(t *testing.T) {
	cfg := DefaultRetryConfig()
	limit := time.Duration(float64(cfg.MaxBackoff) * 1.25)

	for attempt := 1; attempt <= 6; attempt++ {
		got := cfg.backoff(attempt)
		if got <= 0 {
			t.Fatalf("attempt %d: non-positive backoff %v", attempt, got)
		}
		if got > limit {
			t.Errorf("attempt %d: backoff %v exceeds jittered cap %v", attempt, got, limit)
		}
	}
}

func TestBackoffGrowsWithAttempts(t *testing.T) {
	cfg := RetryConfig{
		MaxAttempts:       5,
		BackoffBase:       time.Second,
		BackoffMultiplier: 2.0,
		MaxBackoff:        time.Minute,
	}

	// Jitter is at most +/- 25%, so attempt 3 (4s nominal) always
	// exceeds attempt 1 (1s nominal).
	if a1, a3 := cfg.backoff(1), cfg.backoff(3); a3 <= a1 {
		t.Errorf("backoff(3)=%v not greater than backoff(1)=%v", a3, a1)
	}
}

func TestErrorClassification(t *testing.T) {
	base := errors.New("boom")

	tr := NewTransientError(base)
	if !IsTransient(tr) || IsFatal(tr) {
		t.Error("transient error misclassified")
	}

	fa := NewFatalError(base)
	if !IsFatal(fa) || IsTransient(fa) {
		t.Error("fatal error misclassified")
	}

	if IsTransient(base) || IsFatal(base) {
		t.Error("unclassified error should be neither")
	}
	if !errors.Is(tr, base) {
		t.Error("classification should preserve the wrapped error")
	}
}
