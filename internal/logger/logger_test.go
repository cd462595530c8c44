package logger

import (
	"testing"

	"github.com/inkwell-notes/notes-api/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zapcore.DebugLevel, ParseLevel("debug"))
	assert.Equal(t, zapcore.WarnLevel, ParseLevel(" warn "))
	assert.Equal(t, zapcore.InfoLevel, ParseLevel("chatty"))
	assert.Equal(t, zapcore.InfoLevel, ParseLevel(""))
}

func TestNewLogger(t *testing.T) {
	log, err := NewLogger(&config.LoggingConfig{Level: "warn", Format: "json"}, &config.AppConfig{Name: "notes", Environment: "staging"})
	require.NoError(t, err)
	assert.False(t, log.Core().Enabled(zapcore.InfoLevel))
	assert.True(t, log.Core().Enabled(zapcore.WarnLevel))

	log, err = NewLogger(&config.LoggingConfig{Level: "debug"}, &config.AppConfig{Name: "notes", Environment: "development"})
	require.NoError(t, err)
	assert.True(t, log.Core().Enabled(zapcore.DebugLevel))
}

func TestContextHelpers(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	base := zap.New(core)

	WithUser(WithRequest(Component(base, "jobs"), "GET", "/api/v1/notes", "req-1"), "u-1", "ada").Info("hello")

	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, "jobs", entry.LoggerName)
	fields := entry.ContextMap()
	assert.Equal(t, "GET", fields["method"])
	assert.Equal(t, "req-1", fields["request_id"])
	assert.Equal(t, "ada", fields["username"])
}
