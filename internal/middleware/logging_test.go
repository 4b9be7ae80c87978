package middleware

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigureLogger(t *testing.T) {
	prev, prevDefault := Logger, slog.Default()
	t.Cleanup(func() {
		Logger = prev
		slog.SetDefault(prevDefault)
	})

	ConfigureLogger("production", "debug")
	h, ok := Logger.Handler().(*ctxHandler)
	require.True(t, ok)
	assert.IsType(t, &slog.JSONHandler{}, h.Handler)
	assert.True(t, Logger.Enabled(context.Background(), slog.LevelDebug))
	assert.Same(t, Logger, slog.Default())

	ConfigureLogger("development", "warn")
	h, ok = Logger.Handler().(*ctxHandler)
	require.True(t, ok)
	assert.IsType(t, &slog.TextHandler{}, h.Handler)
	assert.False(t, Logger.Enabled(context.Background(), slog.LevelInfo))
}
