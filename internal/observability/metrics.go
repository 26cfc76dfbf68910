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
	blacklistQueriesTotal prometheus.Counter
	blacklistSize         prometheus.Gauge
	importRowsTotal       *prometheus.CounterVec
	eventsPublishedTotal  *prometheus.CounterVec
	eventSubscribers      prometheus.Gauge
	dashboardCacheTotal   *prometheus.CounterVec
)

// RegisterMetrics initialises the Prometheus collectors exposed on /metrics.
func RegisterMetrics() {
	registerOnce.Do(func() {
		httpRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "scolarite_http_requests_total",
			Help: "Total number of API requests served.",
		}, []string{"method", "route", "status"})

		httpLatencySeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "scolarite_http_latency_seconds",
			Help:    "Latency distribution for API requests.",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.0},
		}, []string{"method", "route"})

		httpErrorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "scolarite_http_errors_total",
			Help: "Total number of error responses returned by the API.",
		}, []string{"method", "route", "status"})

		blacklistQueriesTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "scolarite_blacklist_queries_total",
			Help: "Number of blacklist computations.",
		})

		blacklistSize = prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "scolarite_blacklist_size",
			Help: "Number of students on the most recently computed blacklist.",
		})

		importRowsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "scolarite_absence_import_rows_total",
			Help: "Spreadsheet rows processed by absence imports.",
		}, []string{"outcome"})

		eventsPublishedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "scolarite_events_published_total",
			Help: "Domain events delivered to local subscribers.",
		}, []string{"type"})

		eventSubscribers = prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "scolarite_event_subscribers_active",
			Help: "Websocket clients currently subscribed to domain events.",
		})

		dashboardCacheTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "scolarite_dashboard_cache_total",
			Help: "Dashboard statistics cache lookups by result.",
		}, []string{"result"})

		prometheus.MustRegister(
			httpRequestsTotal,
			httpLatencySeconds,
			httpErrorsTotal,
			blacklistQueriesTotal,
			blacklistSize,
			importRowsTotal,
			eventsPublishedTotal,
			eventSubscribers,
			dashboardCacheTotal,
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

// BlacklistQueries counts blacklist computations.
func BlacklistQueries() prometheus.Counter {
	RegisterMetrics()
	return blacklistQueriesTotal
}

// BlacklistSize tracks the size of the last computed blacklist.
func BlacklistSize() prometheus.Gauge {
	RegisterMetrics()
	return blacklistSize
}

// ImportRows counts imported and rejected spreadsheet rows.
func ImportRows() *prometheus.CounterVec {
	RegisterMetrics()
	return importRowsTotal
}

// EventsPublished counts events delivered to local subscribers.
func EventsPublished() *prometheus.CounterVec {
	RegisterMetrics()
	return eventsPublishedTotal
}

// EventSubscribers tracks connected websocket subscribers.
func EventSubscribers() prometheus.Gauge {
	RegisterMetrics()
	return eventSubscribers
}

// DashboardCache counts dashboard cache hits and misses.
func DashboardCache() *prometheus.CounterVec {
	RegisterMetrics()
	return dashboardCacheTotal
}
