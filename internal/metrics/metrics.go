// Package metrics exposes the engine's Prometheus instrumentation.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Evaluations counts finished evaluations by kind ("heuristic", "ai").
	Evaluations = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "qualitran",
		Name:      "evaluations_total",
		Help:      "Finished quality evaluations by evaluation type.",
	}, []string{"type"})

	// CacheHits counts evaluations answered from stored scores.
	CacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "qualitran",
		Name:      "cache_hits_total",
		Help:      "Evaluations served from the score cache without recomputation.",
	})

	// AIFallbacks counts AI escalations that degraded to heuristic-only scores.
	AIFallbacks = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "qualitran",
		Name:      "ai_fallback_total",
		Help:      "AI evaluations that fell back to heuristic scores after provider failure.",
	})

	// ProviderRequests counts upstream AI calls by provider and outcome.
	ProviderRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "qualitran",
		Name:      "provider_requests_total",
		Help:      "Upstream AI provider calls by provider name and outcome.",
	}, []string{"provider", "outcome"})

	// BreakerState reports each circuit breaker's state (0 closed, 1 half-open, 2 open).
	BreakerState = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "qualitran",
		Name:      "breaker_state",
		Help:      "Circuit breaker state per provider circuit (0=closed, 1=half-open, 2=open).",
	}, []string{"circuit"})

	// BreakerTransitions counts breaker state changes per circuit.
	BreakerTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "qualitran",
		Name:      "breaker_transitions_total",
		Help:      "Circuit breaker state transitions per circuit.",
	}, []string{"circuit", "to"})
)
