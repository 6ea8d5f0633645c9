package logger

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New builds the process logger. Production uses JSON output at info level,
// everything else a colored console encoder at debug level.
func New(isProduction bool) (*zap.Logger, error) {
	if isProduction {
		cfg := zap.NewProductionConfig()
		cfg.EncoderConfig.TimeKey = "timestamp"
		cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
		return cfg.Build()
	}

	cfg := zap.NewDevelopmentConfig()
	cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	cfg.Development = false // keep DPanic from panicking outside tests
	return cfg.Build()
}

// Critical logs an error that needs a human to intervene. zap has no level
// above error that does not exit or panic, so the severity travels as a field.
func Critical(log *zap.Logger, msg string, fields ...zap.Field) {
	log.Error(msg, append(fields, zap.String("severity", "critical"))...)
}
