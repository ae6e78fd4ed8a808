package services

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	upstreamRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "travelagent",
			Name:      "upstream_requests_total",
			Help:      "Calls made to travel-data providers by outcome.",
		},
		[]string{"provider", "operation", "outcome"},
	)

	upstreamDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "travelagent",
			Name:      "upstream_request_duration_seconds",
			Help:      "Latency of calls to travel-data providers.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
		},
		[]string{"provider", "operation"},
	)

	breakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "travelagent",
			Name:      "upstream_breaker_state",
			Help:      "Circuit breaker state per provider (0 closed, 1 half-open, 2 open).",
		},
		[]string{"provider"},
	)

	locationCacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "travelagent",
			Name:      "location_cache_lookups_total",
			Help:      "Keyword to coordinates cache lookups by result.",
		},
		[]string{"result"},
	)
)
