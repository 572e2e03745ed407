package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce          sync.Once
	httpRequestsTotal     *prometheus.CounterVec
	httpLatencySeconds    *prometheus.HistogramVec
	httpErrorsTotal       *prometheus.CounterVec
	workflowTransitions   *prometheus.CounterVec
	casConflictsTotal     prometheus.Counter
	reviewEventsPublished *prometheus.CounterVec
	workloadLatencySecs   prometheus.Histogram
)

// RegisterMetrics initialises the Prometheus collectors used by the API.
func RegisterMetrics() {
	registerOnce.Do(func() {
		httpRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "satria_requests_total",
			Help: "Total number of API requests served.",
		}, []string{"method", "route", "status"})

		httpLatencySeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "satria_latency_seconds",
			Help:    "Latency distribution for API requests.",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.0},
		}, []string{"method", "route"})

		httpErrorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "satria_errors_total",
			Help: "Total number of error responses returned by the API.",
		}, []string{"method", "route", "status"})

		workflowTransitions = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "satria_workflow_transitions_total",
			Help: "Total number of approval workflow transitions applied.",
		}, []string{"action"})

		casConflictsTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "satria_cas_conflicts_total",
			Help: "Total number of optimistic-concurrency conflicts detected.",
		})

		reviewEventsPublished = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "satria_review_events_published_total",
			Help: "Total number of review events published to subscribers.",
		}, []string{"action"})

		workloadLatencySecs = prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "satria_workload_latency_seconds",
			Help:    "Latency distribution for workload aggregations.",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0},
		})

		prometheus.MustRegister(
			httpRequestsTotal,
			httpLatencySeconds,
			httpErrorsTotal,
			workflowTransitions,
			casConflictsTotal,
			reviewEventsPublished,
			workloadLatencySecs,
		)
	})
}

// HTTPRequests exposes the counter for API requests.
func HTTPRequests() *prometheus.CounterVec {
	RegisterMetrics()
	return httpRequestsTotal
}

// HTTPLatency exposes the latency histogram for API requests.
func HTTPLatency() *prometheus.HistogramVec {
	RegisterMetrics()
	return httpLatencySeconds
}

// HTTPErrors exposes the counter for API error responses.
func HTTPErrors() *prometheus.CounterVec {
	RegisterMetrics()
	return httpErrorsTotal
}

// WorkflowTransitions exposes the counter for applied workflow transitions.
func WorkflowTransitions() *prometheus.CounterVec {
	RegisterMetrics()
	return workflowTransitions
}

// CASConflicts exposes the counter for optimistic-concurrency conflicts.
func CASConflicts() prometheus.Counter {
	RegisterMetrics()
	return casConflictsTotal
}

// ReviewEventsPublished exposes the counter for published review events.
func ReviewEventsPublished() *prometheus.CounterVec {
	RegisterMetrics()
	return reviewEventsPublished
}

// WorkloadLatency exposes the latency histogram for workload aggregations.
func WorkloadLatency() prometheus.Histogram {
	RegisterMetrics()
	return workloadLatencySecs
}
