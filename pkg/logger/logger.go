package logger

import (
	"fmt"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	mu                      sync.RWMutex
	InfoLogger, FatalLogger *zap.Logger

	serviceName = "default"
)

func SetServiceName(newName string) string {
	mu.Lock()
	defer mu.Unlock()
	oldName := serviceName
	serviceName = newName

	return oldName
}

// Init builds the process loggers. level is a zap level name ("debug", "info", ...).
func Init(level string, development bool) (*zap.Logger, error) {
	lvl := zapcore.InfoLevel
	if level != "" {
		if err := lvl.UnmarshalText([]byte(level)); err != nil {
			return nil, fmt.Errorf("parse log level %q: %w", level, err)
		}
	}

	cfg := zap.NewProductionConfig()
	if development {
		cfg = zap.NewDevelopmentConfig()
	}
	cfg.Level = zap.NewAtomicLevelAt(lvl)

	l, err := cfg.Build()
	if err != nil {
		return nil, err
	}

	mu.Lock()
	InfoLogger = l
	FatalLogger = l
	mu.Unlock()
	return l, nil
}

// Sync flushes buffered entries.
func Sync() {
	_ = current().Sync()
}

func current() *zap.Logger {
	mu.RLock()
	defer mu.RUnlock()
	if InfoLogger == nil {
		return zap.NewNop()
	}
	return InfoLogger.With(zap.String("service", serviceName))
}

func Debug(format string, args ...interface{}) {
	current().Debug(fmt.Sprintf(format, args...))
}

func Info(format string, args ...interface{}) {
	current().Info(fmt.Sprintf(format, args...))
}

func Warn(format string, args ...interface{}) {
	current().Warn(fmt.Sprintf(format, args...))
}

func Error(format string, args ...interface{}) {
	current().Error(fmt.Sprintf(format, args...))
}

func Fatal(format string, args ...interface{}) {
	mu.RLock()
	l, name := FatalLogger, serviceName
	mu.RUnlock()
	if l == nil {
		panic(fmt.Sprintf(format, args...))
	}
	l.With(zap.String("service", name)).Fatal(fmt.Sprintf(format, args...))
}
