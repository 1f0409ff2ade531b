package logutil

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestSetLoggerAndLRoundTrip(t *testing.T) {
	original := L()
	defer SetLogger(original)

	core, observed := observer.New(zapcore.InfoLevel)
	custom := zap.New(core)
	SetLogger(custom)
	require.Same(t, custom, L())

	L().Info("hello", zap.String("column", "id"))
	require.Equal(t, 1, observed.Len())
}

func TestNewRotatingWithoutFilenameFallsBackToStderr(t *testing.T) {
	logger := NewRotating(RotatingConfig{Level: zapcore.InfoLevel})
	require.NotNil(t, logger)
	logger.Info("segment sealed", zap.Uint64("row_count", 1024))
}
