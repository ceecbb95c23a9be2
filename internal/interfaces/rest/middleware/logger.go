package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"go-dashboard-hub/internal/infrastructure/logger"
)

// RequestLogger logs one line per request through the application logger.
func RequestLogger(log logger.Logger) gin.HandlerFunc {
	log = log.WithField("component", "http")

	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		entry := log.WithFields(logger.Fields{
			"method":     c.Request.Method,
			"path":       c.Request.URL.Path,
			"status":     c.Writer.Status(),
			"latency_ms": time.Since(start).Milliseconds(),
			"client_ip":  c.ClientIP(),
		})

		switch status := c.Writer.Status(); {
		case status >= 500:
			entry.Error("request failed")
		case status >= 400:
			entry.Warn("request rejected")
		default:
			entry.Info("request served")
		}
	}
}
