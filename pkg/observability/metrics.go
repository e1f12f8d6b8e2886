// Package observability provides Prometheus metrics and HTTP middleware
// for monitoring the llmhub node and its host API.
package observability

import "github.com/prometheus/client_golang/prometheus"

// LLMBuckets defines histogram buckets suited for LLM inference latencies,
// ranging from 100ms to 120s.
var LLMBuckets = []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120}

var (
	// RequestsTotal counts host API requests by method, status class, and route.
	RequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "llmhub_requests_total",
			Help: "Total requests",
		},
		[]string{"method", "status", "route"},
	)

	// RequestDuration records host API request duration in seconds by method and route.
	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "llmhub_request_duration_seconds",
			Help:    "Request duration",
			Buckets: LLMBuckets,
		},
		[]string{"method", "route"},
	)

	// HubRequestsTotal counts calls made to the LLM Hub by operation and outcome.
	HubRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "llmhub_hub_requests_total",
			Help: "Hub requests",
		},
		[]string{"operation", "status"},
	)

	// HubLatency records LLM Hub call latency in seconds.
	HubLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "llmhub_hub_latency_seconds",
			Help:    "Hub latency",
			Buckets: LLMBuckets,
		},
		[]string{"operation"},
	)

	// ModelFallbacksTotal counts model listings answered from the fallback set.
	ModelFallbacksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "llmhub_model_fallbacks_total",
			Help: "Model listing fallbacks",
		},
		[]string{"reason"},
	)

	// ExecutionsTotal counts batch executions by outcome.
	ExecutionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "llmhub_executions_total",
			Help: "Batch executions",
		},
		[]string{"status"},
	)

	// ExecutionItemsTotal counts items that produced an output record.
	ExecutionItemsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "llmhub_execution_items_total",
			Help: "Items completed",
		},
	)

	// ExecutionsInFlight tracks batch executions currently running.
	ExecutionsInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "llmhub_executions_in_flight",
			Help: "Active batch executions",
		},
	)

	// RateLimitRejectedTotal counts requests rejected by the rate limiter.
	RateLimitRejectedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "llmhub_ratelimit_rejected_total",
			Help: "Rate limit rejections",
		},
		[]string{"tier"},
	)
)

func init() {
	prometheus.MustRegister(
		RequestsTotal,
		RequestDuration,
		HubRequestsTotal,
		HubLatency,
		ModelFallbacksTotal,
		ExecutionsTotal,
		ExecutionItemsTotal,
		ExecutionsInFlight,
		RateLimitRejectedTotal,
	)
}
