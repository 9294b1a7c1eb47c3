package middleware

import (
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"neurolearn-backend/internal/shared/logging"
)

// Logging emits a structured log line per request.
func Logging(log *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if strings.EqualFold(c.Request.Method, "OPTIONS") {
			c.Next()
			return
		}

		start := time.Now()
		c.Next()
		latency := time.Since(start)

		kvs := []any{
			"request_id", RequestIDFromContext(c),
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration_ms", float64(latency.Microseconds()) / 1000.0,
			"client_ip", c.ClientIP(),
		}
		if userID := UserIDFromContext(c); userID != "" {
			kvs = append(kvs, "user_id", userID, "is_guest", IsGuest(c))
		}
		if documentID := c.GetString("documentId"); documentID != "" {
			kvs = append(kvs, "document_id", documentID)
		}
		if generationID := c.GetString("generationId"); generationID != "" {
			kvs = append(kvs, "generation_id", generationID)
		}

		log.Info("request.complete", kvs...)
	}
}
