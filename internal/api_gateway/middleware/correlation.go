package middleware

import (
	"github.com/edocument-exchange/internal/logger"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	// CorrelationIDHeader is the HTTP header carrying the correlation ID
	CorrelationIDHeader = "X-Correlation-ID"

	// CorrelationIDKey is the gin context key of the correlation ID
	CorrelationIDKey = "correlation_id"

	maxCorrelationIDLength = 128
)

// CorrelationID reuses the caller's correlation ID or issues one, echoes it in the
// response and stores it on the request context. Submission requests carry it to
// the processor, so a document's log lines and government calls share the id of
// the HTTP call that queued it. Caller ids that could not travel in an upstream
// header are replaced.
func CorrelationID() gin.HandlerFunc {
	return func(c *gin.Context) {
		correlationID := c.GetHeader(CorrelationIDHeader)
		if !usableCorrelationID(correlationID) {
			correlationID = uuid.New().String()
		}

		c.Header(CorrelationIDHeader, correlationID)
		c.Set(CorrelationIDKey, correlationID)
		c.Request = c.Request.WithContext(logger.WithCorrelationID(c.Request.Context(), correlationID))

		c.Next()
	}
}

// GetCorrelationID returns the request's correlation ID, or "" outside the middleware
func GetCorrelationID(c *gin.Context) string {
	if id, ok := c.Get(CorrelationIDKey); ok {
		if correlationID, ok := id.(string); ok {
			return correlationID
		}
	}
	if c.Request != nil {
		return logger.CorrelationID(c.Request.Context())
	}
	return ""
}

func usableCorrelationID(id string) bool {
	if id == "" || len(id) > maxCorrelationIDLength {
		return false
	}
	for _, r := range id {
		if r <= ' ' || r > '~' {
			return false
		}
	}
	return true
}
