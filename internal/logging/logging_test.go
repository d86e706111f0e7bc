package logging

import (
	"testing"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/NethermindEth/wei/pkg/config"
)

func TestLogger_HelperMessageAndFields(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	logger := NewLogger(zap.New(core))

	helper := log.NewHelper(log.With(logger, "module", "graphql"))
	helper.Infow(log.DefaultMessageKey, "page loaded", "items", 20)

	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, "page loaded", entry.Message)
	assert.Equal(t, zapcore.InfoLevel, entry.Level)

	ctx := entry.ContextMap()
	assert.Equal(t, "graphql", ctx["module"])
	assert.EqualValues(t, 20, ctx["items"])
}

func TestLogger_Levels(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	helper := log.NewHelper(NewLogger(zap.New(core)))

	helper.Debug("dropped")
	helper.Info("dropped")
	helper.Warn("kept")
	helper.Error("kept")

	require.Equal(t, 2, logs.Len())
	assert.Equal(t, zapcore.WarnLevel, logs.All()[0].Level)
	assert.Equal(t, zapcore.ErrorLevel, logs.All()[1].Level)
}

func TestLogger_OddKeyvals(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	logger := NewLogger(zap.New(core))

	require.NoError(t, logger.Log(log.LevelInfo, "lonely"))
	require.Equal(t, 1, logs.Len())
	assert.Contains(t, logs.All()[0].ContextMap(), "lonely")
}

func TestNewZap(t *testing.T) {
	zl, err := NewZap(config.LogConfig{Level: "warn", Format: "json"}, map[string]interface{}{"service": "wei"})
	require.NoError(t, err)
	assert.False(t, zl.Core().Enabled(zapcore.InfoLevel))
	assert.True(t, zl.Core().Enabled(zapcore.WarnLevel))

	// 非法级别回落到 info
	zl, err = NewZap(config.LogConfig{Level: "loud"}, nil)
	require.NoError(t, err)
	assert.True(t, zl.Core().Enabled(zapcore.InfoLevel))
	assert.False(t, zl.Core().Enabled(zapcore.DebugLevel))
}
