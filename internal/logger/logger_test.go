package logger

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/edocument-exchange/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLogger(t *testing.T) {
	testCases := []struct {
		name              string
		logLevel          string
		expectedSlogLevel slog.Level
	}{
		{"DebugLevel", "debug", slog.LevelDebug},
		{"InfoLevel", "info", slog.LevelInfo},
		{"WarnLevel", "WARN", slog.LevelWarn},
		{"ErrorLevel", "error", slog.LevelError},
		{"DefaultToInfo", "verbose", slog.LevelInfo},
		{"EmptyToInfo", "", slog.LevelInfo},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := &config.Config{
				Application: config.ApplicationConfig{Name: "edocument-processor"},
				Logging:     config.LoggingConfig{Level: tc.logLevel},
			}

			logger := NewLogger(cfg)
			require.NotNil(t, logger)

			assert.True(t, logger.Enabled(context.Background(), tc.expectedSlogLevel))
			if tc.expectedSlogLevel > slog.LevelDebug {
				assert.False(t, logger.Enabled(context.Background(), tc.expectedSlogLevel-4))
			}
		})
	}
}

func TestCorrelationContext(t *testing.T) {
	ctx := context.Background()
	assert.Empty(t, CorrelationID(ctx))
	assert.Equal(t, ctx, WithCorrelationID(ctx, ""))

	ctx = WithCorrelationID(ctx, "corr-1")
	assert.Equal(t, "corr-1", CorrelationID(ctx))

	var buf bytes.Buffer
	base := slog.New(slog.NewJSONHandler(&buf, nil))
	FromContext(ctx, base).Info("polled")
	assert.Contains(t, buf.String(), `"correlation_id":"corr-1"`)
}

func TestNewWriterLogger(t *testing.T) {
	var buf bytes.Buffer
	cfg := &config.Config{
		Application: config.ApplicationConfig{Name: "edsctl"},
		Logging:     config.LoggingConfig{Level: "warn"},
	}

	logger := NewWriterLogger(&buf, cfg)
	logger.Info("dropped")
	logger.Warn("kept")

	assert.NotContains(t, buf.String(), "dropped")
	assert.Contains(t, buf.String(), `"app":"edsctl"`)
	assert.Contains(t, buf.String(), `"msg":"kept"`)
}
