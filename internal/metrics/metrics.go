package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

var (
	// Registry is the dedicated Prometheus registry for the solver and API
	Registry = prometheus.NewRegistry()
	// HTTPRequests counts requests by method, path, and status
	HTTPRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "http_requests_total", Help: "Total HTTP requests."},
		[]string{"method", "path", "status"},
	)
	// HTTPDuration records request durations in seconds
	HTTPDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{Name: "http_request_duration_seconds", Help: "HTTP request duration in seconds.", Buckets: prometheus.DefBuckets},
		[]string{"method", "path", "status"},
	)

	// Candidates counts proposals by operator and outcome (feasible, infeasible, failed)
	Candidates = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "search_candidates_total", Help: "Candidate solutions evaluated by operator and outcome."},
		[]string{"operator", "outcome"},
	)
	// BatchDuration records the wall time of one candidate batch
	BatchDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{Name: "search_batch_duration_seconds", Help: "Candidate batch duration in seconds.", Buckets: []float64{.0001, .0005, .001, .005, .01, .05, .1, .5}},
	)
	// SearchEvents counts controller transitions by event kind
	SearchEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "search_events_total", Help: "Search controller events by kind."},
		[]string{"kind"},
	)
	// IncumbentDistance is the best distance of the most recently updated run.
	// Concurrent runs overwrite each other; per-run values are in run metrics.
	IncumbentDistance = prometheus.NewGauge(
		prometheus.GaugeOpts{Name: "search_incumbent_distance", Help: "Total distance of the latest incumbent."},
	)
	// Tolerance is the current acceptance tolerance of the most recently updated run
	Tolerance = prometheus.NewGauge(
		prometheus.GaugeOpts{Name: "search_tolerance", Help: "Current acceptance tolerance."},
	)
	// Runs counts finished runs by status
	Runs = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "search_runs_total", Help: "Search runs by final status."},
		[]string{"status"},
	)

	// WebhookDeliveries counts webhook delivery outcomes by event type and status
	WebhookDeliveries = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "webhook_deliveries_total", Help: "Webhook deliveries by event type and status."},
		[]string{"event_type", "status"},
	)
	// WebhookLatency tracks webhook delivery latencies in milliseconds
	WebhookLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{Name: "webhook_delivery_latency_ms", Help: "Webhook delivery latency in ms.", Buckets: []float64{10, 50, 100, 200, 500, 1000, 2000, 5000}},
		[]string{"event_type", "status"},
	)
)

// RegisterDefault registers collectors to the package registry.
func RegisterDefault() {
	regOnce.Do(func() {
		Registry.MustRegister(HTTPRequests, HTTPDuration)
		Registry.MustRegister(Candidates, BatchDuration, SearchEvents, IncumbentDistance, Tolerance, Runs)
		Registry.MustRegister(WebhookDeliveries, WebhookLatency)
		// Go/process collectors on our registry
		Registry.MustRegister(collectors.NewGoCollector())
		Registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	})
}

var regOnce sync.Once
