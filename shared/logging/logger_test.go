package logging

import (
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestLogger_KeyValueFields(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	logger := FromZap(zap.New(core)).With("component", "draft")

	logger.Info("pick applied", "event", "Weekly #12", "picks", 3, "error", errors.New("boom"), "dangling")

	entries := logs.All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "pick applied", entries[0].Message)
	assert.Equal(t, "draft", fields["component"])
	assert.Equal(t, "Weekly #12", fields["event"])
	assert.EqualValues(t, 3, fields["picks"])
	assert.Equal(t, "boom", fields["error"])
	assert.Contains(t, fields, "dangling")
}

func TestLogger_LevelFiltering(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	logger := FromZap(zap.New(core))

	logger.Debug("hidden")
	logger.Info("hidden")
	logger.Warn("shown")
	logger.Error("shown")

	assert.Equal(t, 2, logs.Len())
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, LevelDebug, ParseLevel("DEBUG"))
	assert.Equal(t, LevelWarn, ParseLevel(" warn "))
	assert.Equal(t, LevelInfo, ParseLevel("verbose"))
}

func TestDefault_NilSafe(t *testing.T) {
	var l *Logger
	assert.NotPanics(t, func() {
		l.Info("nil receiver falls back to default")
		_ = l.With("k", "v")
		_ = l.Sync()
	})

	SetDefault(nil)
	assert.NotNil(t, Default())
}
