// Package resilience wraps AI provider calls with retries and per-credential
// circuit breakers, so one failing provider degrades service instead of
// taking it down.
package resilience

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/valpere/qualitran/internal/provider"
)

// RetryPolicy bounds the retry loop around one provider call.
type RetryPolicy struct {
	MaxRetries   int           `mapstructure:"max_retries" json:"max_retries"`
	InitialDelay time.Duration `mapstructure:"initial_delay" json:"initial_delay"`
	MaxDelay     time.Duration `mapstructure:"max_delay" json:"max_delay"`
	Multiplier   float64       `mapstructure:"multiplier" json:"multiplier"`
}

// DefaultRetryPolicy retries three times over roughly seven seconds.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries:   3,
		InitialDelay: 1 * time.Second,
		MaxDelay:     30 * time.Second,
		Multiplier:   2.0,
	}
}

func (p RetryPolicy) newBackOff(ctx context.Context) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = p.InitialDelay
	b.MaxInterval = p.MaxDelay
	b.Multiplier = p.Multiplier
	// Deterministic delays; the per-call budget matters more than herd
	// dispersion for a single-tenant engine.
	b.RandomizationFactor = 0
	b.MaxElapsedTime = 0
	return backoff.WithContext(backoff.WithMaxRetries(b, uint64(p.MaxRetries)), ctx)
}

// Do runs op with exponential backoff. Only transient provider failures are
// retried; permanent and malformed-response errors surface on first sight.
func Do(ctx context.Context, policy RetryPolicy, op func() error) error {
	return backoff.Retry(func() error {
		err := op()
		if err == nil {
			return nil
		}
		if !provider.IsTransient(err) {
			return backoff.Permanent(err)
		}
		return err
	}, policy.newBackOff(ctx))
}
