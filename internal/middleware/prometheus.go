package middleware

import (
	"slices"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/cbdb-network/cbdbnet/internal/metrics"
)

// MetricsOptions configures HTTPMetrics.
type MetricsOptions struct {
	// Skip lists route patterns that are not recorded at all, such as the
	// scrape endpoint and health probes.
	Skip []string
	// LongLived lists route patterns, such as websocket upgrades, that are
	// counted but kept out of the latency histogram.
	LongLived []string
}

// HTTPMetrics records request counts and latency by route pattern. Requests
// that match no route share the "unmatched" label.
func HTTPMetrics(opts MetricsOptions) gin.HandlerFunc {
	return func(c *gin.Context) {
		route := c.FullPath()
		if slices.Contains(opts.Skip, route) {
			c.Next()
			return
		}

		if route == "" {
			route = "unmatched"
		}

		start := time.Now()
		c.Next()

		status := strconv.Itoa(c.Writer.Status())
		metrics.RequestsTotal.WithLabelValues(c.Request.Method, route, status).Inc()

		if !slices.Contains(opts.LongLived, route) {
			metrics.RequestDuration.WithLabelValues(c.Request.Method, route, status).Observe(time.Since(start).Seconds())
		}
	}
}
