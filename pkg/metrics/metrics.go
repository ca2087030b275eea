// Package metrics declares the Prometheus collectors of the service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTPRequestsTotal counts requests by route pattern, method and status.
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "card_flasher_http_requests_total",
		Help: "The total number of HTTP requests",
	}, []string{"route", "method", "status"})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "card_flasher_http_request_duration_seconds",
		Help:    "The HTTP request duration in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"route", "method"})

	// AuthAttemptsTotal counts register and login attempts by outcome.
	AuthAttemptsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "card_flasher_auth_attempts_total",
		Help: "The total number of register and login attempts",
	}, []string{"action", "status"})

	RateLimitedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "card_flasher_rate_limited_total",
		Help: "The total number of requests rejected by the auth rate limiter",
	})

	// GenerationRequestsTotal counts model calls by kind (cards, examples) and status.
	GenerationRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "card_flasher_generation_requests_total",
		Help: "The total number of generative model calls",
	}, []string{"kind", "status"})

	GenerationDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "card_flasher_generation_duration_seconds",
		Help:    "The generative model call duration in seconds",
		Buckets: []float64{0.5, 1, 2, 5, 10, 20, 40, 60},
	}, []string{"kind"})

	CardsCreatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "card_flasher_cards_created_total",
		Help: "The total number of cards stored",
	})
)
