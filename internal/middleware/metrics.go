package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/charlesng35/tradeflow/pkg/metrics"
)

// Metrics observes request latency per route template and tracks in-flight requests.
// Unmatched paths share one label so scanners cannot explode the series count.
func Metrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		metrics.APIInFlight.Inc()
		defer metrics.APIInFlight.Dec()

		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		metrics.APILatency.
			WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).
			Observe(time.Since(start).Seconds())
	}
}
