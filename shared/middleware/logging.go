package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/pennywise/finance/shared/logging"
)

const RequestIDHeader = "X-Request-ID"

// LoggingMiddleware assigns a request ID (reusing an incoming X-Request-ID),
// stores it on the request context and writes one access log line per request.
func LoggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		requestID := c.GetHeader(RequestIDHeader)
		if requestID == "" {
			requestID = logging.NewRequestID()
		}
		c.Header(RequestIDHeader, requestID)
		c.Request = c.Request.WithContext(logging.ContextWithRequestID(c.Request.Context(), requestID))

		c.Next()

		status := c.Writer.Status()
		logger := logging.Ctx(c.Request.Context())
		event := logger.Info()
		switch {
		case status >= 500:
			event = logger.Error()
		case status >= 400:
			event = logger.Warn()
		}
		if len(c.Errors) > 0 {
			event = event.Str("errors", c.Errors.String())
		}
		event.
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", status).
			Dur("latency", time.Since(start)).
			Str("client_ip", c.ClientIP()).
			Int("size", c.Writer.Size()).
			Msg("request completed")
	}
}
