// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ProviderCallsCompleted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "provider_calls_completed_total",
			Help: "Total number of capability calls completed",
		},
		[]string{"capability"},
	)

	ProviderCallsFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "provider_calls_failed_total",
			Help: "Total number of capability calls failed",
		},
		[]string{"capability", "error_code"},
	)

	ProviderCallDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "provider_call_duration_seconds",
			Help: "Duration of capability call processing in seconds",
		},
		[]string{"capability"},
	)

	ProviderCallsActive = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "provider_calls_active",
			Help: "Number of in-flight calls per capability",
		},
		[]string{"capability"},
	)

	CacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "response_cache_lookups_total",
			Help: "Total cache lookups by outcome",
		},
		[]string{"capability", "outcome"},
	)

	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "orchestrator_requests_total",
			Help: "Total orchestrated requests by final status",
		},
		[]string{"status"},
	)

	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "orchestrator_request_duration_seconds",
			Help: "End to end request duration in seconds",
		},
		[]string{"status"},
	)
)
