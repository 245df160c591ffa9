// Package logging holds the verbosity levels used across handoff and the
// constructors for the zap-backed logr loggers.
package logging

import (
	"github.com/go-logr/logr"
	"github.com/go-logr/zapr"
	uberzap "go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Verbosity levels passed to logr's V().
const (
	DEFAULT = 2
	VERBOSE = 3
	DEBUG   = 4
	TRACE   = 5
)

// NewLogger creates a development zap logger that emits everything up to
// the given logr verbosity.
func NewLogger(verbosity int) (logr.Logger, error) {
	cfg := uberzap.NewDevelopmentConfig()
	cfg.Level = uberzap.NewAtomicLevelAt(zapcore.Level(int8(-1 * verbosity)))
	zl, err := cfg.Build(uberzap.AddCaller())
	if err != nil {
		return logr.Discard(), err
	}
	return zapr.NewLogger(zl), nil
}

// NewTestLogger creates a new Zap logger using the dev mode at TRACE.
func NewTestLogger() logr.Logger {
	logger, err := NewLogger(TRACE)
	if err != nil {
		return logr.Discard()
	}
	return logger
}
