package middleware

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/edocument-exchange/internal/logger"
	"github.com/gin-gonic/gin"
)

// quietPaths are polled by orchestrators and logged only when they fail.
var quietPaths = map[string]bool{
	"/health": true,
}

// Logger logs one line per request. Client errors are warnings and server errors
// are errors, so rejected submissions stand out from reads.
func Logger(base *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		raw := c.Request.URL.RawQuery

		c.Next()

		status := c.Writer.Status()
		if quietPaths[path] && status < http.StatusBadRequest {
			return
		}
		if raw != "" {
			path = path + "?" + raw
		}

		level := slog.LevelInfo
		switch {
		case status >= http.StatusInternalServerError:
			level = slog.LevelError
		case status >= http.StatusBadRequest:
			level = slog.LevelWarn
		}

		attrs := []any{
			"method", c.Request.Method,
			"path", path,
			"route", c.FullPath(),
			"status", status,
			"latency", time.Since(start),
			"client_ip", c.ClientIP(),
			"user_agent", c.Request.UserAgent(),
		}
		if len(c.Errors) > 0 {
			attrs = append(attrs, "errors", c.Errors.String())
		}
		logger.FromContext(c.Request.Context(), base).Log(c.Request.Context(), level, "HTTP request", attrs...)
	}
}
