package middleware

import (
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"cvpro-backend/internal/shared/telemetry"
)

// Context keys handlers may set to enrich the request log line.
const (
	ResumeIDKey    = "resumeId"
	IngestStateKey = "ingestState"
)

// Logging emits a structured log per request.
func Logging() gin.HandlerFunc {
	return func(c *gin.Context) {
		if strings.EqualFold(c.Request.Method, "OPTIONS") {
			c.Next()
			return
		}

		start := time.Now()
		c.Next()
		latency := time.Since(start)

		telemetry.Info("request.complete", map[string]any{
			"request_id":   RequestIDFromContext(c),
			"method":       c.Request.Method,
			"path":         c.Request.URL.Path,
			"route":        c.FullPath(),
			"status":       c.Writer.Status(),
			"duration_ms":  float64(latency.Microseconds()) / 1000.0,
			"user_id":      UserIDFromContext(c),
			"resume_id":    c.GetString(ResumeIDKey),
			"ingest_state": c.GetString(IngestStateKey),
			"client_ip":    c.ClientIP(),
			"user_agent":   c.Request.UserAgent(),
		})
	}
}
