package middleware

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/quocanhngo/airguard/pkg/metrics"
)

// MetricsMiddleware counts requests by route template
func MetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		metrics.HTTPRequests.WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).Inc()
	}
}
