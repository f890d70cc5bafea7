// Package logging provides structured logging for the join pipeline.
// All pipeline stages log through a zap.Logger; callers may inject their own
// logger, otherwise a console logger is built here.
package logging

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New builds a console logger for the join pipeline. With verbose enabled the
// per-stage debug output is included; otherwise only warnings and errors are
// emitted (degenerate-skew diagnostics log at warn level).
func New(verbose bool) *zap.Logger {
	level := zapcore.WarnLevel
	if verbose {
		level = zapcore.DebugLevel
	}

	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(level)
	cfg.Encoding = "console"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	logger, err := cfg.Build()
	if err != nil {
		return zap.NewNop()
	}
	return logger
}

// Nop returns a logger that discards everything. Used as the default in tests
// and when callers opt out of logging.
func Nop() *zap.Logger {
	return zap.NewNop()
}
