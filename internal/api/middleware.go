package api

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/signalsfoundry/gridgen/internal/logging"
)

const requestIDHeader = "X-Request-Id"

// RequestID ensures every request carries a request_id, honoring a
// client-supplied header, and echoes it back on the response.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		if id := c.GetHeader(requestIDHeader); id != "" {
			ctx = logging.ContextWithRequestID(ctx, id)
		}
		ctx, id := logging.EnsureRequestID(ctx)
		c.Request = c.Request.WithContext(ctx)
		c.Writer.Header().Set(requestIDHeader, id)
		c.Next()
	}
}

// AccessLog logs each request with method, path, status, and latency.
func AccessLog(log logging.Logger) gin.HandlerFunc {
	if log == nil {
		log = logging.Noop()
	}
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		ctx := c.Request.Context()
		log.Info(ctx, "http request",
			logging.String("request_id", logging.RequestIDFromContext(ctx)),
			logging.String("method", c.Request.Method),
			logging.String("path", c.FullPath()),
			logging.Int("status", c.Writer.Status()),
			logging.Duration("latency", time.Since(start)),
		)
	}
}
