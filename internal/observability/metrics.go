// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Contract metrics
	ContractCalls       *prometheus.CounterVec
	ContractCallLatency *prometheus.HistogramVec

	// Cache metrics
	CacheLookups *prometheus.CounterVec

	// Write metrics
	WriteSubmissions *prometheus.CounterVec
	Uploads          *prometheus.CounterVec
	UploadLatency    prometheus.Histogram

	// Ingestion metrics
	IngestionRuns     *prometheus.CounterVec
	IngestionDuration prometheus.Histogram
	TokensObserved    prometheus.Gauge
	IngestionErrors   *prometheus.CounterVec
	IngestionSkipped  prometheus.Counter

	// Database metrics
	DBQueryDuration *prometheus.HistogramVec
	DBQueryErrors   *prometheus.CounterVec

	// API metrics
	HTTPRequests     *prometheus.CounterVec
	WebsocketClients prometheus.Gauge

	// Health metrics
	LastSuccessfulIngestion prometheus.Gauge
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "pumpcore"
	}

	return &Metrics{
		// Contract metrics
		ContractCalls: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "contract",
			Name:      "calls_total",
			Help:      "Total number of factory contract calls by method and status",
		}, []string{"method", "status"}),
		ContractCallLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "contract",
			Name:      "call_latency_seconds",
			Help:      "Factory contract call latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),

		// Cache metrics
		CacheLookups: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "lookups_total",
			Help:      "Total number of request cache lookups by result (hit, miss, shared)",
		}, []string{"result"}),

		// Write metrics
		WriteSubmissions: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "writes",
			Name:      "submissions_total",
			Help:      "Total number of write calls submitted by method and status",
		}, []string{"method", "status"}),
		Uploads: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "writes",
			Name:      "uploads_total",
			Help:      "Total number of image uploads by status",
		}, []string{"status"}),
		UploadLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "writes",
			Name:      "upload_latency_seconds",
			Help:      "Image upload latency in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
		}),

		// Ingestion metrics
		IngestionRuns: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "runs_total",
			Help:      "Total number of ingestion runs by status",
		}, []string{"status"}),
		IngestionDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "duration_seconds",
			Help:      "Ingestion run duration in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 5, 10, 30, 60},
		}),
		TokensObserved: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "tokens_observed",
			Help:      "Number of tokens read in the last ingestion run",
		}),
		IngestionErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "errors_total",
			Help:      "Total number of ingestion errors by stage",
		}, []string{"stage"}),
		IngestionSkipped: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "skipped_total",
			Help:      "Total number of ticks skipped because a run was still in progress",
		}),

		// Database metrics
		DBQueryDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_duration_seconds",
			Help:      "Database query duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"database", "operation"}),
		DBQueryErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_errors_total",
			Help:      "Total number of database query errors",
		}, []string{"database", "operation"}),

		// API metrics
		HTTPRequests: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "api",
			Name:      "requests_total",
			Help:      "Total number of API requests by route and status code",
		}, []string{"route", "code"}),
		WebsocketClients: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "api",
			Name:      "websocket_clients",
			Help:      "Number of connected live feed clients",
		}),

		// Health metrics
		LastSuccessfulIngestion: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_successful_ingestion_timestamp",
			Help:      "Unix timestamp of last successful ingestion",
		}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("")

// RecordContractCall records a factory call outcome and latency.
func RecordContractCall(method, status string, seconds float64) {
	DefaultMetrics.ContractCalls.WithLabelValues(method, status).Inc()
	DefaultMetrics.ContractCallLatency.WithLabelValues(method).Observe(seconds)
}

// RecordCacheLookup records how a request cache lookup was served.
func RecordCacheLookup(result string) {
	DefaultMetrics.CacheLookups.WithLabelValues(result).Inc()
}

// RecordWrite records a write submission.
func RecordWrite(method, status string) {
	DefaultMetrics.WriteSubmissions.WithLabelValues(method, status).Inc()
}

// RecordUpload records an image upload.
func RecordUpload(status string, seconds float64) {
	DefaultMetrics.Uploads.WithLabelValues(status).Inc()
	DefaultMetrics.UploadLatency.Observe(seconds)
}

// RecordIngestionRun records an ingestion run.
func RecordIngestionRun(status string, tokens int, seconds float64, finishedAt int64) {
	DefaultMetrics.IngestionRuns.WithLabelValues(status).Inc()
	DefaultMetrics.IngestionDuration.Observe(seconds)
	DefaultMetrics.TokensObserved.Set(float64(tokens))
	if status == "success" {
		DefaultMetrics.LastSuccessfulIngestion.Set(float64(finishedAt))
	}
}

// RecordIngestionError records a scoped ingestion failure.
func RecordIngestionError(stage string) {
	DefaultMetrics.IngestionErrors.WithLabelValues(stage).Inc()
}

// RecordIngestionSkipped records a tick dropped due to an overlapping run.
func RecordIngestionSkipped() {
	DefaultMetrics.IngestionSkipped.Inc()
}

// RecordDBQuery records database query metrics.
func RecordDBQuery(database, operation string, seconds float64, err error) {
	DefaultMetrics.DBQueryDuration.WithLabelValues(database, operation).Observe(seconds)
	if err != nil {
		DefaultMetrics.DBQueryErrors.WithLabelValues(database, operation).Inc()
	}
}

// RecordHTTPRequest records an API request.
func RecordHTTPRequest(route, code string) {
	DefaultMetrics.HTTPRequests.WithLabelValues(route, code).Inc()
}

// SetWebsocketClients updates the live feed client gauge.
func SetWebsocketClients(n int) {
	DefaultMetrics.WebsocketClients.Set(float64(n))
}
