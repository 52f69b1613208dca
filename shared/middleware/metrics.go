package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/pennywise/finance/shared/metrics"
)

// MetricsMiddleware records request count and latency per route template.
func MetricsMiddleware(service string) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		metrics.RecordHTTPRequest(service, c.Request.Method, c.FullPath(), c.Writer.Status(), time.Since(start))
	}
}

// MetricsHandler serves the default Prometheus registry.
func MetricsHandler() gin.HandlerFunc {
	return gin.WrapH(promhttp.Handler())
}
