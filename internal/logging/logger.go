// Package logging wraps zap behind the printf-style Logger interface used
// throughout the pipeline, so call sites read "logger.Warn("...: %v", err)"
// regardless of which backend is wired underneath.
package logging

import (
	"go.uber.org/zap"
)

// Logger is the printf-style logging surface every component depends on.
type Logger interface {
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Warn(format string, args ...any)
	Error(format string, args ...any)
}

type zapLogger struct {
	sugar *zap.SugaredLogger
}

// New builds a Logger backed by zap. format selects "json" or "console"
// encoding; level is parsed via zapcore ("debug", "info", "warn", "error").
func New(level, format string) (Logger, error) {
	cfg := zap.NewProductionConfig()
	if format == "console" {
		cfg = zap.NewDevelopmentConfig()
	}
	if lvl, err := zap.ParseAtomicLevel(level); err == nil {
		cfg.Level = lvl
	}
	base, err := cfg.Build()
	if err != nil {
		return nil, err
	}
	return &zapLogger{sugar: base.Sugar()}, nil
}

func (l *zapLogger) Debug(format string, args ...any) { l.sugar.Debugf(format, args...) }
func (l *zapLogger) Info(format string, args ...any)  { l.sugar.Infof(format, args...) }
func (l *zapLogger) Warn(format string, args ...any)  { l.sugar.Warnf(format, args...) }
func (l *zapLogger) Error(format string, args ...any) { l.sugar.Errorf(format, args...) }

type nopLogger struct{}

func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Info(string, ...any)  {}
func (nopLogger) Warn(string, ...any)  {}
func (nopLogger) Error(string, ...any) {}

// Nop is a Logger that discards everything, used in tests.
var Nop Logger = nopLogger{}

// OrNop returns l unchanged, or Nop if l is nil, so callers never need a
// nil check before logging.
func OrNop(l Logger) Logger {
	if l == nil {
		return Nop
	}
	return l
}

type componentLogger struct {
	inner Logger
	name  string
}

// NewComponentLogger prefixes every message with "[name] " so mixed
// component output stays attributable in a shared log stream.
func NewComponentLogger(inner Logger, name string) Logger {
	return &componentLogger{inner: OrNop(inner), name: name}
}

func (c *componentLogger) Debug(format string, args ...any) {
	c.inner.Debug("["+c.name+"] "+format, args...)
}
func (c *componentLogger) Info(format string, args ...any) {
	c.inner.Info("["+c.name+"] "+format, args...)
}
func (c *componentLogger) Warn(format string, args ...any) {
	c.inner.Warn("["+c.name+"] "+format, args...)
}
func (c *componentLogger) Error(format string, args ...any) {
	c.inner.Error("["+c.name+"] "+format, args...)
}
