package logger_test

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bookworm/library-api/internal/config"
	"github.com/bookworm/library-api/internal/platform/logger"
)

func TestSetup(t *testing.T) {
	tests := []struct {
		name     string
		logLevel string
	}{
		{"debug level", "debug"},
		{"info level", "info"},
		{"warn level", "warn"},
		{"error level", "error"},
		{"invalid level falls back to info", "noisy"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			log, err := logger.Setup(config.ServerConfig{Port: 8080, LogLevel: tt.logLevel})
			require.NoError(t, err)
			require.NotNil(t, log)
		})
	}
}

func TestFromContextOrDefault(t *testing.T) {
	customLogger := slog.New(slog.NewTextHandler(io.Discard, nil))
	defaultLogger := slog.New(slog.NewTextHandler(io.Discard, nil))

	tests := []struct {
		name     string
		ctx      context.Context
		expected *slog.Logger
	}{
		{
			name:     "logger in context",
			ctx:      logger.WithLogger(context.Background(), customLogger),
			expected: customLogger,
		},
		{
			name:     "no logger in context falls back to default",
			ctx:      context.Background(),
			expected: defaultLogger,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := logger.FromContextOrDefault(tt.ctx, defaultLogger)
			assert.Same(t, tt.expected, result)
		})
	}
}

func TestWithLogger(t *testing.T) {
	customLogger := slog.New(slog.NewTextHandler(io.Discard, nil))

	ctx := logger.WithLogger(context.Background(), customLogger)
	assert.Same(t, customLogger, logger.FromContext(ctx))

	assert.Panics(t, func() {
		logger.WithLogger(context.Background(), nil)
	})
}

func TestFromContextFallsBackToDefault(t *testing.T) {
	result := logger.FromContext(context.Background())
	assert.NotNil(t, result)
}
