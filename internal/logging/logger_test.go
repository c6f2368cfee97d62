package logging

import (
	"SmartNotice/internal/config"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestNew_Level(t *testing.T) {
	logger, err := New(&config.Config{LogLevel: "warn"})
	require.NoError(t, err)
	assert.False(t, logger.Core().Enabled(zapcore.InfoLevel))
	assert.True(t, logger.Core().Enabled(zapcore.WarnLevel))

	_, err = New(&config.Config{LogLevel: "loud"})
	assert.Error(t, err)
}

func TestFxEventLogger(t *testing.T) {
	l := FxEventLogger(zap.NewNop())
	assert.NotNil(t, l)
}
