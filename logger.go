package postal

import (
	"sync/atomic"

	"go.uber.org/zap"
)

var (
	nopLogger     = zap.NewNop()
	defaultLogger atomic.Pointer[zap.Logger]
)

// Logger returns the logger used by contexts created without WithLogger.
// It is a no-op logger until SetLogger is called.
func Logger() *zap.Logger {
	if l := defaultLogger.Load(); l != nil {
		return l
	}
	return nopLogger
}

// SetLogger sets the default logger for contexts created afterwards.
func SetLogger(l *zap.Logger) {
	defaultLogger.Store(l)
}
