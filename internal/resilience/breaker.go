package resilience

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/sony/gobreaker"

	"github.com/valpere/qualitran/internal/metrics"
)

// BreakerConfig tunes the per-circuit trip behavior.
type BreakerConfig struct {
	// FailureThreshold is the consecutive-failure count that opens the circuit.
	FailureThreshold uint32 `mapstructure:"failure_threshold" json:"failure_threshold"`
	// Cooldown is how long an open circuit rejects calls before a trial.
	Cooldown time.Duration `mapstructure:"cooldown" json:"cooldown"`
}

// DefaultBreakerConfig opens after five consecutive failures for one minute.
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		FailureThreshold: 5,
		Cooldown:         1 * time.Minute,
	}
}

// Registry hands out one circuit breaker per provider credential. Scoping
// circuits to (provider, credential) keeps one exhausted API key from
// blocking traffic on a different key for the same provider.
type Registry struct {
	config BreakerConfig
	logger *slog.Logger

	mu       sync.Mutex
	breakers map[string]*gobreaker.CircuitBreaker
}

func NewRegistry(config BreakerConfig, logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		config:   config,
		logger:   logger,
		breakers: make(map[string]*gobreaker.CircuitBreaker),
	}
}

// CircuitKey names the circuit for one provider credential. The key material
// is hashed so credentials never reach logs or metric labels.
func CircuitKey(providerName, apiKey string) string {
	sum := sha256.Sum256([]byte(apiKey))
	return fmt.Sprintf("%s:%s", providerName, hex.EncodeToString(sum[:4]))
}

func (r *Registry) get(key string) *gobreaker.CircuitBreaker {
	r.mu.Lock()
	defer r.mu.Unlock()

	if cb, ok := r.breakers[key]; ok {
		return cb
	}

	threshold := r.config.FailureThreshold
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name: key,
		// One trial request in half-open; a success closes the circuit.
		MaxRequests: 1,
		Timeout:     r.config.Cooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			r.logger.Warn("circuit breaker state change",
				"circuit", name, "from", from.String(), "to", to.String())
			metrics.BreakerState.WithLabelValues(name).Set(stateValue(to))
			metrics.BreakerTransitions.WithLabelValues(name, to.String()).Inc()
		},
	})
	r.breakers[key] = cb
	return cb
}

// Execute runs op through the circuit named by key. When the circuit is open
// the call fails immediately without touching the provider.
func (r *Registry) Execute(key string, op func() error) error {
	_, err := r.get(key).Execute(func() (any, error) {
		return nil, op()
	})
	return err
}

// State reports the current state of the circuit named by key.
func (r *Registry) State(key string) gobreaker.State {
	return r.get(key).State()
}

// IsOpen reports whether err is the breaker's fail-fast rejection.
func IsOpen(err error) bool {
	return errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests)
}

func stateValue(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateOpen:
		return 2
	case gobreaker.StateHalfOpen:
		return 1
	default:
		return 0
	}
}
