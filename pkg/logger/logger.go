// Package logger holds the process-wide zap logger. Until InitWithOptions runs
// every call goes to a no-op logger.
package logger

import (
	"strings"
	"sync/atomic"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var global atomic.Pointer[zap.Logger]

func init() {
	global.Store(zap.NewNop())
}

type Options struct {
	// Level is a zap level name. Unknown names log at info.
	Level string
	// Format selects "json" (default) or "console" encoding.
	Format string
}

func (o Options) config() zap.Config {
	cfg := zap.NewProductionConfig()
	if strings.EqualFold(strings.TrimSpace(o.Format), "console") {
		cfg = zap.NewDevelopmentConfig()
	}

	level, err := zap.ParseAtomicLevel(strings.TrimSpace(o.Level))
	if err != nil || strings.TrimSpace(o.Level) == "" {
		level = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	}
	cfg.Level = level
	return cfg
}

// InitWithOptions builds a logger from opts and installs it globally.
func InitWithOptions(opts Options) error {
	l, err := opts.config().Build()
	if err != nil {
		return err
	}
	Replace(l)
	return nil
}

// Replace installs l as the global logger. nil restores the no-op logger.
func Replace(l *zap.Logger) {
	if l == nil {
		l = zap.NewNop()
	}
	global.Store(l)
}

func Logger() *zap.Logger {
	return global.Load()
}

func Sync() error {
	return Logger().Sync()
}

// WithModule tags entries with the subsystem that wrote them.
func WithModule(module string) *zap.Logger {
	return Logger().With(zap.String("module", module))
}
