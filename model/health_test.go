package model

import (
	"testing"
	"time"
)

func TestEndpointHealthTracking(t *testing.T) {
	r := NewDefaultRegistry()

	if !r.IsEndpointAvailable("claude-sonnet") {
		t.Error("expected endpoint to be available initially")
	}
	if r.GetEndpointHealth("claude-sonnet") != nil {
		t.Error("expected no health info before any requests")
	}

	r.MarkEndpointSuccess("claude-sonnet")

	health := r.GetEndpointHealth("claude-sonnet")
	if health == nil {
		t.Fatal("expected health info after success")
	}
	if !health.Available {
		t.Error("expected endpoint to be available after success")
	}
	if health.FailureCount != 0 {
		t.Errorf("expected failure count 0, got %d", health.FailureCount)
	}
	if health.LastSuccess.IsZero() {
		t.Error("expected last success to be set")
	}
}

func TestCircuitBreakerOpens(t *testing.T) {
	r := NewDefaultRegistry()

	for i := 0; i < DefaultHealthConfig().FailureThreshold; i++ {
		r.MarkEndpointFailure("gpt-4o")
	}

	health := r.GetEndpointHealth("gpt-4o")
	if health == nil {
		t.Fatal("expected health info")
	}
	if !health.CircuitOpen {
		t.Error("expected circuit to be open after threshold failures")
	}
	if r.IsEndpointAvailable("gpt-4o") {
		t.Error("expected endpoint to be unavailable with open circuit")
	}
}

func TestCircuitBreakerRecovery(t *testing.T) {
	r := NewDefaultRegistry()
	r.SetHealthConfig(HealthConfig{
		FailureThreshold: 1,
		RecoveryTimeout:  time.Millisecond,
	})

	r.MarkEndpointFailure("gpt-4o")
	if r.IsEndpointAvailable("gpt-4o") {
		t.Error("expected endpoint unavailable right after circuit opened")
	}

	time.Sleep(5 * time.Millisecond)
	if !r.IsEndpointAvailable("gpt-4o") {
		t.Error("expected half-open retry after recovery timeout")
	}

	// A success closes the circuit fully.
	r.MarkEndpointSuccess("gpt-4o")
	health := r.GetEndpointHealth("gpt-4o")
	if health.CircuitOpen {
		t.Error("expected circuit closed after success")
	}
}

func TestGetAvailableFallbackChain(t *testing.T) {
	r := NewDefaultRegistry()
	r.SetHealthConfig(HealthConfig{FailureThreshold: 1, RecoveryTimeout: time.Hour})

	full := r.GetFallbackChain(CapabilityVision)
	if len(full) < 2 {
		t.Fatalf("need at least 2 models in vision chain, got %d", len(full))
	}

	r.MarkEndpointFailure(full[0])

	available := r.GetAvailableFallbackChain(CapabilityVision)
	for _, name := range available {
		if name == full[0] {
			t.Errorf("tripped endpoint %s still in available chain", name)
		}
	}
	if len(available) != len(full)-1 {
		t.Errorf("available chain len = %d, want %d", len(available), len(full)-1)
	}
}

func TestGetAvailableFallbackChainAllUnavailable(t *testing.T) {
	r := NewDefaultRegistry()
	r.SetHealthConfig(HealthConfig{FailureThreshold: 1, RecoveryTimeout: time.Hour})

	full := r.GetFallbackChain(CapabilitySynthesis)
	for _, name := range full {
		r.MarkEndpointFailure(name)
	}

	// With every circuit open the full chain comes back; trying something
	// beats trying nothing.
	available := r.GetAvailableFallbackChain(CapabilitySynthesis)
	if len(available) != len(full) {
		t.Errorf("expected full chain when all unavailable, got %d of %d", len(available), len(full))
	}
}
