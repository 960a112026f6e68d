// Package log builds the service logger and keeps the package-level
// Error/Fatal helpers used at the edges of the program.
package log

import (
	"fmt"
	"os"
	"runtime"
	"strings"
	"sync"

	"github.com/EasterCompany/pulse-service/config"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	mu     sync.RWMutex
	logger = zap.NewNop()
)

// New builds a zap logger from the log section of the config.
func New(cfg config.LogConfig) (*zap.Logger, error) {
	var zcfg zap.Config
	if cfg.Development {
		zcfg = zap.NewDevelopmentConfig()
	} else {
		zcfg = zap.NewProductionConfig()
	}
	if cfg.Level != "" {
		level, err := zapcore.ParseLevel(cfg.Level)
		if err != nil {
			return nil, fmt.Errorf("invalid log level %q: %w", cfg.Level, err)
		}
		zcfg.Level = zap.NewAtomicLevelAt(level)
	}
	return zcfg.Build()
}

// Init installs l as the package logger and returns it.
func Init(l *zap.Logger) *zap.Logger {
	mu.Lock()
	defer mu.Unlock()
	logger = l
	return l
}

// L returns the package logger.
func L() *zap.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return logger
}

// Error logs an error together with the location of the caller.
func Error(context string, err error) {
	_, file, line, ok := runtime.Caller(1)
	var callerInfo string
	if ok {
		parts := strings.Split(file, "/")
		if len(parts) > 2 {
			file = strings.Join(parts[len(parts)-2:], "/")
		}
		callerInfo = fmt.Sprintf("%s:%d", file, line)
	}
	L().WithOptions(zap.WithCaller(false)).Error(context, zap.String("at", callerInfo), zap.Error(err))
}

// Fatal logs an error and then exits the program.
func Fatal(context string, err error) {
	Error(context, err)
	_ = L().Sync()
	os.Exit(1)
}
