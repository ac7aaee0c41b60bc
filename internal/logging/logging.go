// Package logging holds the process-wide logger shared by every warpcal
// package.
//
// By default nothing is logged. Commands and the editor install a real
// logger with SetLogger during startup.
package logging

import (
	"strings"

	"github.com/pkg/errors"
	"go.uber.org/atomic"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var current = atomic.NewPointer(zap.NewNop().Sugar())

// Logger returns the current logger. It is safe for concurrent use.
func Logger() *zap.SugaredLogger {
	return current.Load()
}

// SetLogger replaces the process logger. Passing nil restores the silent
// default.
func SetLogger(l *zap.SugaredLogger) {
	if l == nil {
		l = zap.NewNop().Sugar()
	}
	current.Store(l)
}

// Named returns a child of the current logger.
func Named(name string) *zap.SugaredLogger {
	return Logger().Named(name)
}

// New builds a console logger at the given level ("debug", "info", "warn",
// "error"). Debug selects zap's development configuration.
func New(level string) (*zap.SugaredLogger, error) {
	var lvl zapcore.Level
	if err := lvl.UnmarshalText([]byte(strings.ToLower(strings.TrimSpace(level)))); err != nil {
		return nil, errors.Wrapf(err, "invalid log level %q", level)
	}

	cfg := zap.NewProductionConfig()
	if lvl == zapcore.DebugLevel {
		cfg = zap.NewDevelopmentConfig()
	}
	cfg.Encoding = "console"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	cfg.DisableStacktrace = true
	cfg.Level = zap.NewAtomicLevelAt(lvl)

	l, err := cfg.Build()
	if err != nil {
		return nil, errors.Wrap(err, "building logger")
	}
	return l.Sugar(), nil
}
