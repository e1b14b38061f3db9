package logger

import (
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/ManuelReschke/PayFox/internal/pkg/env"
)

var log *zap.Logger = zap.NewNop()

// Setup builds the process logger from the LOG_LEVEL environment variable.
// Invalid or empty levels fall back to info. Production config emits
// structured JSON; debug level switches to the readable console encoder.
func Setup() error {
	levelText := strings.ToLower(strings.TrimSpace(env.GetEnv("LOG_LEVEL", "info")))

	var level zapcore.Level
	if err := level.UnmarshalText([]byte(levelText)); err != nil {
		level = zapcore.InfoLevel
	}

	config := zap.NewProductionConfig()
	config.Level = zap.NewAtomicLevelAt(level)
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	if level == zapcore.DebugLevel {
		config = zap.NewDevelopmentConfig()
		config.Level = zap.NewAtomicLevelAt(level)
		config.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	built, err := config.Build()
	if err != nil {
		return err
	}
	log = built
	return nil
}

// L returns the process logger. Safe to call before Setup; it returns a
// no-op logger until Setup succeeds.
func L() *zap.Logger {
	return log
}

// Sync flushes any buffered log entries.
func Sync() {
	_ = log.Sync()
}
