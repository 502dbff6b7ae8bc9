package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/msp-alerts/pkg/errors"
)

// ErrorResponse represents a standardized error response
type ErrorResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	TraceID string `json:"trace_id,omitempty"`
}

// ErrorHandler renders errors attached with c.Error when the handler did not
// write a body itself.
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}

		lastErr := c.Errors.Last().Err
		status := errors.HTTPStatus(lastErr)
		message := "Internal server error"
		if appErr, ok := lastErr.(*errors.AppError); ok && status < 500 {
			message = appErr.Message
		}

		c.JSON(status, ErrorResponse{
			Code:    status,
			Message: message,
			TraceID: c.GetString(ContextRequestID),
		})
	}
}
