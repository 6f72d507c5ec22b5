// Package telemetry provides application-level observability for the deployment platform.
//
// # Prometheus Metrics Endpoint
//
// All metrics are registered against the default Prometheus registry and are
// automatically available on the side-channel HTTP server started by main.go:
//
//	GET http(s)://<host>:<CDP_TELEMETRY_METRICS_PROMETHEUS_PORT>/metrics
//
// Default port: 9090.  The endpoint returns data in the Prometheus text exposition
// format and is intended to be scraped by a Prometheus server every 15–60 seconds.
// It is NOT served by the Gin router and is therefore absent from the OpenAPI spec.
//
// # Metric Groups
//
//   - HTTP request counters and latency histograms (labelled by route template, not raw URL)
//   - Deployment pipeline counters, queue depth, and duration histograms
//   - Rate limiter rejection counters
//   - Authentication failure counters
//   - Database connection pool gauge (polled every 30 s)
//
// # Label Cardinality
//
// HTTP metrics use c.FullPath() (route template such as /api/apps/:app_id)
// rather than the raw request URL to prevent unbounded label cardinality from
// user-supplied path segments such as app IDs.
package telemetry

import (
	"database/sql"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTP metrics — labelled by method, route template, and status code.
//
// HTTPRequestsTotal is a CounterVec with labels {method, path, status}.
// The path label holds the Gin route template (e.g. /api/apps/:app_id/deploy),
// NOT the raw URL, to prevent unbounded cardinality.
//
// Example PromQL queries:
//   - Request rate (req/s, 5 m window):  rate(http_requests_total[5m])
//   - Error rate (%):                    sum(rate(http_requests_total{status=~"5.."}[5m])) / sum(rate(http_requests_total[5m])) * 100
//
// HTTPRequestDuration is a HistogramVec with labels {method, path} and exponential-ish
// buckets from 5 ms to 30 s.  Use histogram_quantile to compute latency percentiles.
var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests processed, by method, route template, and status code.",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Histogram of HTTP request latencies, by method and route template.",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"method", "path"},
	)
)

// Deployment pipeline metrics — recorded by the deployment runner.
//
// DeploymentsProcessedTotal is a CounterVec with label {status} ("running" or
// "failed") incremented once per deployment reaching a terminal status.
//
// Example PromQL queries:
//   - Failure rate (%):  sum(rate(deployments_processed_total{status="failed"}[1h])) / sum(rate(deployments_processed_total[1h])) * 100
//
// DeploymentQueueDepth is a Gauge tracking the number of jobs waiting in the
// deployment queue.  A persistently high value means the worker pool is
// undersized for the submission rate.
//
// DeploymentDuration is a Histogram observing the wall-clock time of one
// complete pipeline run, from dequeue to terminal status.
var (
	DeploymentsProcessedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "deployments_processed_total",
			Help: "Total number of deployments that reached a terminal status, by status.",
		},
		[]string{"status"},
	)

	DeploymentQueueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "deployment_queue_depth",
			Help: "Current number of deployment jobs waiting in the queue.",
		},
	)

	DeploymentDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "deployment_duration_seconds",
			Help:    "Duration of a single deployment pipeline run.",
			Buckets: prometheus.DefBuckets,
		},
	)
)

// RateLimitRejectionsTotal is a plain Counter incremented once per request
// rejected by the sliding-window rate limiter with HTTP 429.
//
// Example PromQL queries:
//   - Rejection rate:  rate(rate_limit_rejections_total[5m])
var RateLimitRejectionsTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Name: "rate_limit_rejections_total",
		Help: "Total number of requests rejected by the rate limiter.",
	},
)

// AuthFailuresTotal is a CounterVec with label {mode} ("jwt" or "api_key")
// incremented on each failed credential verification.  A sudden spike is a
// useful signal for credential-stuffing attempts.
var AuthFailuresTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "auth_failures_total",
		Help: "Total number of failed authentication attempts, by credential mode.",
	},
	[]string{"mode"},
)

// DBOpenConnections is a Gauge that tracks the number of open connections currently
// held by the sql.DB connection pool.  It is sampled every 30 seconds by
// StartDBStatsCollector rather than per-request to avoid the overhead of sql.DB.Stats().
var DBOpenConnections = promauto.NewGauge(
	prometheus.GaugeOpts{
		Name: "db_open_connections",
		Help: "Current number of open database connections in the pool.",
	},
)

// StartDBStatsCollector launches a background goroutine that samples sql.DB connection
// pool statistics every 30 seconds and updates the DBOpenConnections gauge.
// The goroutine exits cleanly when the database becomes unreachable (db.Ping fails),
// which happens automatically when the application shuts down and defers db.Close().
//
// Call this once, immediately after db.Connect() succeeds in main.go:
//
//	telemetry.StartDBStatsCollector(database)
func StartDBStatsCollector(db *sql.DB) {
	go func() {
		ticker := time.NewTicker(30 * time.Second)
		defer ticker.Stop()
		for range ticker.C {
			if err := db.Ping(); err != nil {
				slog.Warn("db stats collector: database unreachable, stopping collector", "error", err)
				return
			}
			DBOpenConnections.Set(float64(db.Stats().OpenConnections))
		}
	}()
}
