// Package observability provides Prometheus metrics, health endpoints,
// and OpenTelemetry tracing for the bot.
package observability

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// HTTP metrics
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shopbot_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "shopbot_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	// Dialogue metrics
	messagesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shopbot_messages_total",
			Help: "Total number of handled user messages",
		},
		[]string{"intent", "state"},
	)

	turnDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "shopbot_turn_duration_seconds",
			Help:    "Duration of one dialogue turn in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"state"},
	)

	// Retrieval metrics
	retrievalDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "shopbot_retrieval_duration_seconds",
			Help:    "Duration of a retrieval query in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"index"},
	)

	indexDocuments = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "shopbot_index_documents",
			Help: "Number of documents in each retrieval index",
		},
		[]string{"index"},
	)

	// Order metrics
	ordersTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "shopbot_orders_total",
			Help: "Total number of orders created",
		},
	)

	orderValue = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "shopbot_order_value",
			Help:    "Value of created orders",
			Buckets: prometheus.ExponentialBuckets(10, 4, 8),
		},
	)

	// Session metrics
	activeSessions = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "shopbot_active_sessions",
			Help: "Number of active sessions",
		},
	)

	initOnce sync.Once
)

// InitMetrics initializes Prometheus metrics
func InitMetrics() {
	initOnce.Do(func() {
		prometheus.MustRegister(
			httpRequestsTotal,
			httpRequestDuration,
			messagesTotal,
			turnDuration,
			retrievalDuration,
			indexDocuments,
			ordersTotal,
			orderValue,
			activeSessions,
		)
	})
}

// MetricsHandler returns an HTTP handler for Prometheus metrics
func MetricsHandler() http.Handler {
	return promhttp.Handler()
}

// RecordHTTPRequest records HTTP request metrics
func RecordHTTPRequest(method, path, status string, duration time.Duration) {
	httpRequestsTotal.WithLabelValues(method, path, status).Inc()
	httpRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// RecordMessage records one handled dialogue turn
func RecordMessage(intent, state string, duration time.Duration) {
	messagesTotal.WithLabelValues(intent, state).Inc()
	turnDuration.WithLabelValues(state).Observe(duration.Seconds())
}

// RecordRetrieval records a retrieval query against the named index
func RecordRetrieval(index string, duration time.Duration) {
	retrievalDuration.WithLabelValues(index).Observe(duration.Seconds())
}

// SetIndexDocuments sets the document count gauge for an index
func SetIndexDocuments(index string, count int) {
	indexDocuments.WithLabelValues(index).Set(float64(count))
}

// RecordOrder records a created order
func RecordOrder(total float64) {
	ordersTotal.Inc()
	orderValue.Observe(total)
}

// SetActiveSessions sets the active sessions gauge
func SetActiveSessions(count int) {
	activeSessions.Set(float64(count))
}
