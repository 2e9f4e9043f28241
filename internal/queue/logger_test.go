package queue

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.temporal.io/sdk/log"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestLoggerRoutesToZap(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zapcore.DebugLevel)
	l := NewLogger(zap.New(core))

	l.Info("worker started", "task_queue", "profile-builds")
	l.Warn("dangling key", "orphan")
	l.(log.WithLogger).With("namespace", "default").Error("poll failed", "attempt", 2)

	entries := logs.AllUntimed()
	require.Len(t, entries, 3)

	assert.Equal(t, "worker started", entries[0].Message)
	assert.Equal(t, "profile-builds", entries[0].ContextMap()["task_queue"])

	assert.Equal(t, zapcore.WarnLevel, entries[1].Level)
	assert.Equal(t, "(missing)", entries[1].ContextMap()["orphan"])

	assert.Equal(t, zapcore.ErrorLevel, entries[2].Level)
	ctx := entries[2].ContextMap()
	assert.Equal(t, "default", ctx["namespace"])
	assert.EqualValues(t, 2, ctx["attempt"])
}
