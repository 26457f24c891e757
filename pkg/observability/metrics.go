// Package observability provides Prometheus metrics and HTTP middleware
// for monitoring the gateway.
package observability

import "github.com/prometheus/client_golang/prometheus"

// LLMBuckets defines histogram buckets suited for LLM inference latencies,
// ranging from 100ms to 120s.
var LLMBuckets = []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120}

var (
	// RequestsTotal counts all HTTP requests by method, status class, and endpoint.
	RequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "modelgate_requests_total",
			Help: "Total requests",
		},
		[]string{"method", "status", "endpoint"},
	)

	// RequestDuration records HTTP request duration in seconds by method and endpoint.
	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "modelgate_request_duration_seconds",
			Help:    "Request duration",
			Buckets: LLMBuckets,
		},
		[]string{"method", "endpoint"},
	)

	// ProviderRequestsTotal counts requests sent to upstream providers.
	ProviderRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "modelgate_provider_requests_total",
			Help: "Provider requests",
		},
		[]string{"provider", "model", "status"},
	)

	// ProviderLatency records upstream provider latency in seconds.
	ProviderLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "modelgate_provider_latency_seconds",
			Help:    "Provider latency",
			Buckets: LLMBuckets,
		},
		[]string{"provider", "model"},
	)

	// ProviderTokensTotal counts tokens processed by direction (prompt/completion).
	ProviderTokensTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "modelgate_provider_tokens_total",
			Help: "Token count",
		},
		[]string{"provider", "model", "direction"},
	)

	// QuotaRejectedTotal counts requests denied by the quota tracker.
	QuotaRejectedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "modelgate_quota_rejected_total",
			Help: "Quota rejections",
		},
		[]string{"endpoint"},
	)

	// AuthFailuresTotal counts verification failures by sub-reason.
	AuthFailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "modelgate_auth_failures_total",
			Help: "Authentication failures",
		},
		[]string{"reason"},
	)

	// AuditDroppedTotal counts audit entries lost to a full buffer or a
	// failed insert.
	AuditDroppedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "modelgate_audit_dropped_total",
			Help: "Dropped audit entries",
		},
	)
)

func init() {
	prometheus.MustRegister(
		RequestsTotal,
		RequestDuration,
		ProviderRequestsTotal,
		ProviderLatency,
		ProviderTokensTotal,
		QuotaRejectedTotal,
		AuthFailuresTotal,
		AuditDroppedTotal,
	)
}
