package logger

import (
	"sync/atomic"

	"go.uber.org/zap"
)

var zaplog atomic.Value

func init() {
	zaplog.Store(zap.NewNop())
}

// SetLogger replaces the package logger. Loggers returned by WithField before the call are not affected.
func SetLogger(l *zap.Logger) {
	if l == nil {
		l = zap.NewNop()
	}
	zaplog.Store(l)
}

// Logger returns the package logger.
func Logger() *zap.Logger {
	return zaplog.Load().(*zap.Logger)
}

// WithField release fields to a new logger.
// Stores use this method to release the store name field.
func WithField(fields ...zap.Field) *zap.Logger {
	return Logger().With(fields...)
}
