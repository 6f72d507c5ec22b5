// metrics.go instruments the router with per-request Prometheus metrics.
package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/cloud-deploy-platform/cloud-deploy-platform/internal/telemetry"
)

// MetricsMiddleware records a counter and a latency histogram for every
// request the router serves:
//
//   - http_requests_total{method, path, status}
//   - http_request_duration_seconds{method, path}
//
// The path label uses the matched route template from c.FullPath()
// (e.g. /api/apps/:app_id/deployments), never the raw request URL, so
// per-resource IDs cannot explode label cardinality. Requests that match no
// route at all (404/405) are bucketed under the literal "<no-route>".
//
// Register this after gin.Recovery() and RequestIDMiddleware in
// internal/api/router.go; the status label reads c.Writer.Status() after the
// handler chain runs, so recovery-produced 500s are counted correctly.
func MetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "<no-route>"
		}

		status := strconv.Itoa(c.Writer.Status())
		telemetry.HTTPRequestsTotal.WithLabelValues(c.Request.Method, path, status).Inc()
		telemetry.HTTPRequestDuration.WithLabelValues(c.Request.Method, path).Observe(time.Since(start).Seconds())
	}
}
