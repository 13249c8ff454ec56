package middleware

import (
	"log/slog"
	"net/http"
	"runtime/debug"

	"github.com/edocument-exchange/internal/logger"
	"github.com/gin-gonic/gin"
)

// Recovery turns a panicking handler into a 500 in the standard error envelope,
// keeping the correlation ID so the caller can quote it. A handler that already
// started a response (an attachment download) is cut short without a body.
// http.ErrAbortHandler is passed on to net/http untouched.
func Recovery(base *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			r := recover()
			if r == nil {
				return
			}
			if r == http.ErrAbortHandler {
				panic(r)
			}

			logger.FromContext(c.Request.Context(), base).Error("Panic recovered",
				"error", r,
				"stack", string(debug.Stack()),
				"route", c.FullPath(),
				"path", c.Request.URL.Path,
				"method", c.Request.Method,
				"response_started", c.Writer.Written(),
			)

			if c.Writer.Written() {
				c.Abort()
				return
			}

			response := gin.H{
				"error": gin.H{
					"code":    "INTERNAL_SERVER_ERROR",
					"message": "An internal server error occurred",
				},
			}
			if correlationID := GetCorrelationID(c); correlationID != "" {
				response["correlation_id"] = correlationID
			}
			c.AbortWithStatusJSON(http.StatusInternalServerError, response)
		}()

		c.Next()
	}
}
