package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/edocument-exchange/internal/config"
)

type correlationKey struct{}

// NewLogger creates the service logger. Every entry carries the application name
// so that gateway and processor output can be told apart in a shared sink.
func NewLogger(cfg *config.Config) *slog.Logger {
	return NewWriterLogger(os.Stdout, cfg)
}

// NewWriterLogger is NewLogger writing to w. The command line tool logs to
// stderr and keeps stdout for its output.
func NewWriterLogger(w io.Writer, cfg *config.Config) *slog.Logger {
	level := ParseLevel(cfg.Logging.Level)

	opts := &slog.HandlerOptions{
		Level:     level,
		AddSource: level == slog.LevelDebug,
	}

	handler := slog.NewJSONHandler(w, opts)
	logger := slog.New(handler)
	if cfg.Application.Name != "" {
		logger = logger.With("app", cfg.Application.Name)
	}

	logger.Info("logger initialized", "level", level)

	return logger
}

// ParseLevel maps a configured level name to a slog level, defaulting to info.
func ParseLevel(name string) slog.Level {
	switch strings.ToLower(name) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// WithCorrelationID stores the correlation id on the context so that outbound
// government calls and log lines share it.
func WithCorrelationID(ctx context.Context, correlationID string) context.Context {
	if correlationID == "" {
		return ctx
	}
	return context.WithValue(ctx, correlationKey{}, correlationID)
}

// CorrelationID returns the correlation id stored on ctx, if any.
func CorrelationID(ctx context.Context) string {
	if id, ok := ctx.Value(correlationKey{}).(string); ok {
		return id
	}
	return ""
}

// FromContext enriches base with the correlation id found on ctx.
func FromContext(ctx context.Context, base *slog.Logger) *slog.Logger {
	if id := CorrelationID(ctx); id != "" {
		return base.With("correlation_id", id)
	}
	return base
}
