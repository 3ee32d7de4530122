// Package zaplog adapts a zap.Logger to the scheduler's core.Logger port.
package zaplog

import (
	"go.uber.org/zap"

	"github.com/perceptlab/go-frame-scheduler/core"
)

// Logger forwards core.Logger calls to a zap.Logger.
type Logger struct {
	base *zap.Logger
}

var _ core.Logger = (*Logger)(nil)

// New wraps base. A nil base falls back to the process-global zap.L().
func New(base *zap.Logger) *Logger {
	if base == nil {
		base = zap.L()
	}
	return &Logger{base: base}
}

// Debug logs at debug level.
func (l *Logger) Debug(msg string, fields ...core.Field) {
	l.base.Debug(msg, convert(fields)...)
}

// Info logs at info level.
func (l *Logger) Info(msg string, fields ...core.Field) {
	l.base.Info(msg, convert(fields)...)
}

// Warn logs at warn level.
func (l *Logger) Warn(msg string, fields ...core.Field) {
	l.base.Warn(msg, convert(fields)...)
}

// Error logs at error level.
func (l *Logger) Error(msg string, fields ...core.Field) {
	l.base.Error(msg, convert(fields)...)
}

func convert(fields []core.Field) []zap.Field {
	if len(fields) == 0 {
		return nil
	}
	out := make([]zap.Field, 0, len(fields))
	for _, f := range fields {
		out = append(out, zap.Any(f.Key, f.Value))
	}
	return out
}
