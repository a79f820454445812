package middleware

import (
	"time"

	"claimcheck/internal/logger"
	"claimcheck/internal/utils"

	"github.com/gin-gonic/gin"
)

// CorrelationIDKey is the gin context key holding the request's correlation ID
const CorrelationIDKey = "correlation_id"

// RequestIDMiddleware assigns every request a correlation ID, echoes it in the
// response and stores it on both the gin and request contexts
func RequestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		correlationID := utils.GetCorrelationID(c.Request)
		c.Header("X-Correlation-ID", correlationID)
		c.Set(CorrelationIDKey, correlationID)
		c.Request = c.Request.WithContext(logger.ContextWithCorrelationID(c.Request.Context(), correlationID))
		c.Next()
	}
}

// LoggingMiddleware logs HTTP requests with structured logging
func LoggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		fields := map[string]interface{}{
			"correlation_id": c.GetString(CorrelationIDKey),
			"method":         c.Request.Method,
			"path":           c.Request.URL.Path,
			"route":          c.FullPath(),
			"status":         c.Writer.Status(),
			"latency_ms":     time.Since(start).Milliseconds(),
			"client_ip":      utils.GetClientIP(c.Request),
			"user_agent":     c.Request.UserAgent(),
			"response_size":  c.Writer.Size(),
		}
		entry := logger.Log.WithFields(fields)
		switch {
		case c.Writer.Status() >= 500:
			entry.Error("HTTP request failed")
		case c.Writer.Status() >= 400:
			entry.Warn("HTTP request rejected")
		default:
			entry.Info("HTTP request processed")
		}
	}
}
