// Package logging builds the process-wide zap logger.
package logging

import (
	"SmartNotice/internal/config"
	"fmt"

	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
)

// New returns a JSON production logger at the configured level.
func New(cfg *config.Config) (*zap.Logger, error) {
	level, err := zap.ParseAtomicLevel(cfg.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("LOG_LEVEL: %w", err)
	}
	zc := zap.NewProductionConfig()
	zc.Level = level
	return zc.Build()
}

// FxEventLogger routes fx's own lifecycle events through logger.
func FxEventLogger(logger *zap.Logger) fxevent.Logger {
	return &fxevent.ZapLogger{Logger: logger.Named("fx")}
}
