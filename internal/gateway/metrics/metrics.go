package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds Prometheus collectors for request forwarding.
type Metrics struct {
	ForwardedRequests *prometheus.CounterVec
	ForwardDuration   *prometheus.HistogramVec
	UpstreamFailures  *prometheus.CounterVec
	Retries           *prometheus.CounterVec
	UnmatchedRequests prometheus.Counter
	BreakerOpen       *prometheus.GaugeVec
}

// New registers and returns gateway metrics collectors.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		ForwardedRequests: f.NewCounterVec(prometheus.CounterOpts{
			Name: "tuition_gateway_forwarded_requests_total",
			Help: "Requests relayed to a backend, by route and backend status code",
		}, []string{"route", "method", "status"}),
		ForwardDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "tuition_gateway_forward_duration_seconds",
			Help:    "Time spent forwarding a request, including retries",
			Buckets: prometheus.DefBuckets,
		}, []string{"route"}),
		UpstreamFailures: f.NewCounterVec(prometheus.CounterOpts{
			Name: "tuition_gateway_upstream_failures_total",
			Help: "Forward attempts that failed before a response, by reason (unavailable, timeout, circuit_open)",
		}, []string{"route", "reason"}),
		Retries: f.NewCounterVec(prometheus.CounterOpts{
			Name: "tuition_gateway_retries_total",
			Help: "Read requests retried after a transport failure",
		}, []string{"route"}),
		UnmatchedRequests: f.NewCounter(prometheus.CounterOpts{
			Name: "tuition_gateway_unmatched_requests_total",
			Help: "Requests whose path matched no route prefix",
		}),
		BreakerOpen: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "tuition_gateway_circuit_open",
			Help: "1 while the backend circuit breaker is open",
		}, []string{"route"}),
	}
}
