package respond

import (
	"github.com/gin-gonic/gin"

	"cvpro-backend/internal/shared/telemetry"
)

// ErrorResponse is the single error shape returned by every endpoint.
type ErrorResponse struct {
	Error string `json:"error"`
}

// Error logs the failure under code and sends {"error": message}.
func Error(c *gin.Context, status int, code, message string) {
	fields := map[string]any{
		"status":     status,
		"code":       code,
		"message":    message,
		"path":       c.Request.URL.Path,
		"method":     c.Request.Method,
		"request_id": c.GetString("requestId"),
	}
	if userID := c.GetString("userId"); userID != "" {
		fields["user_id"] = userID
	}
	if status >= 500 {
		telemetry.Error("http.error", fields)
	} else {
		telemetry.Warn("http.error", fields)
	}

	c.AbortWithStatusJSON(status, ErrorResponse{Error: message})
}
