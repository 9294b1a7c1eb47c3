package respond

import (
	"github.com/gin-gonic/gin"

	"neurolearn-backend/internal/shared/logging"
)

// ErrorBody defines the standardized error object.
type ErrorBody struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

// ErrorResponse wraps the error body.
type ErrorResponse struct {
	Error ErrorBody `json:"error"`
}

var log = logging.Nop()

// SetLogger installs the logger used for error responses. Called once during
// bootstrap before the router starts serving.
func SetLogger(l *logging.Logger) {
	if l != nil {
		log = l
	}
}

// Error sends a standardized error response.
func Error(c *gin.Context, status int, code, message string, details interface{}) {
	kvs := []any{
		"status", status,
		"code", code,
		"message", message,
		"path", c.Request.URL.Path,
		"method", c.Request.Method,
		"request_id", c.GetString("requestId"),
	}
	if userID := c.GetString("userId"); userID != "" {
		kvs = append(kvs, "user_id", userID)
	}
	if isGuest, ok := c.Get("isGuest"); ok {
		kvs = append(kvs, "is_guest", isGuest)
	}
	log.Warn("http.error", kvs...)

	c.AbortWithStatusJSON(status, ErrorResponse{
		Error: ErrorBody{
			Code:    code,
			Message: message,
			Details: details,
		},
	})
}
