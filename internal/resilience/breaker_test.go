package resilience

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/sony/gobreaker"
)

func testRegistry(threshold uint32, cooldown time.Duration) *Registry {
	return NewRegistry(BreakerConfig{FailureThreshold: threshold, Cooldown: cooldown}, nil)
}

func TestBreakerOpensAfterConsecutiveFailures(t *testing.T) {
	r := testRegistry(3, time.Minute)
	key := CircuitKey("openai", "sk-test")
	boom := errors.New("boom")

	for i := 0; i < 3; i++ {
		if err := r.Execute(key, func() error { return boom }); !errors.Is(err, boom) {
			t.Fatalf("call %d: expected the operation error, got %v", i, err)
		}
	}

	if got := r.State(key); got != gobreaker.StateOpen {
		t.Fatalf("expected open circuit, got %s", got)
	}

	calls := 0
	err := r.Execute(key, func() error { calls++; return nil })
	if !IsOpen(err) {
		t.Errorf("expected fail-fast rejection, got %v", err)
	}
	if calls != 0 {
		t.Error("open circuit must not invoke the operation")
	}
}

func TestBreakerSuccessResetsCount(t *testing.T) {
	r := testRegistry(3, time.Minute)
	key := CircuitKey("openai", "sk-test")
	boom := errors.New("boom")

	r.Execute(key, func() error { return boom })
	r.Execute(key, func() error { return boom })
	r.Execute(key, func() error { return nil })
	r.Execute(key, func() error { return boom })
	r.Execute(key, func() error { return boom })

	if got := r.State(key); got != gobreaker.StateClosed {
		t.Errorf("interleaved success must reset the failure count, state is %s", got)
	}
}

func TestBreakerHalfOpenRecovery(t *testing.T) {
	r := testRegistry(2, 30*time.Millisecond)
	key := CircuitKey("ollama", "")
	boom := errors.New("boom")

	r.Execute(key, func() error { return boom })
	r.Execute(key, func() error { return boom })
	if got := r.State(key); got != gobreaker.StateOpen {
		t.Fatalf("expected open circuit, got %s", got)
	}

	time.Sleep(50 * time.Millisecond)

	if err := r.Execute(key, func() error { return nil }); err != nil {
		t.Fatalf("half-open trial should pass through: %v", err)
	}
	if got := r.State(key); got != gobreaker.StateClosed {
		t.Errorf("successful trial must close the circuit, state is %s", got)
	}
}

func TestBreakerCircuitsAreIndependent(t *testing.T) {
	r := testRegistry(2, time.Minute)
	keyA := CircuitKey("openai", "sk-team-a")
	keyB := CircuitKey("openai", "sk-team-b")
	boom := errors.New("boom")

	r.Execute(keyA, func() error { return boom })
	r.Execute(keyA, func() error { return boom })

	if got := r.State(keyA); got != gobreaker.StateOpen {
		t.Fatalf("expected circuit A open, got %s", got)
	}
	if err := r.Execute(keyB, func() error { return nil }); err != nil {
		t.Errorf("circuit B must be unaffected by circuit A: %v", err)
	}
}

func TestCircuitKeyHidesCredential(t *testing.T) {
	key := CircuitKey("openai", "sk-very-secret-credential")
	if strings.Contains(key, "secret") {
		t.Errorf("credential material leaked into circuit key: %s", key)
	}
	if !strings.HasPrefix(key, "openai:") {
		t.Errorf("key must be scoped by provider: %s", key)
	}
	if key == CircuitKey("openai", "sk-other") {
		t.Error("different credentials must map to different circuits")
	}
}
