package log

import (
	"errors"
	"testing"

	"github.com/EasterCompany/pulse-service/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestNew_Levels(t *testing.T) {
	l, err := New(config.LogConfig{Level: "debug"})
	require.NoError(t, err)
	assert.True(t, l.Core().Enabled(zapcore.DebugLevel))

	l, err = New(config.LogConfig{Level: "warn", Development: true})
	require.NoError(t, err)
	assert.False(t, l.Core().Enabled(zapcore.InfoLevel))

	_, err = New(config.LogConfig{Level: "loud"})
	assert.Error(t, err)
}

func TestError_IncludesCaller(t *testing.T) {
	core, logs := observer.New(zapcore.ErrorLevel)
	prev := L()
	Init(zap.New(core))
	t.Cleanup(func() { Init(prev) })

	Error("saving persona", errors.New("boom"))

	entries := logs.All()
	require.Len(t, entries, 1)
	assert.Equal(t, "saving persona", entries[0].Message)
	fields := entries[0].ContextMap()
	assert.Contains(t, fields["at"], "log/log_test.go")
	assert.Equal(t, "boom", fields["error"])
}
