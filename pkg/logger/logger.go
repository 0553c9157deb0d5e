// Package logger provides the process-wide structured logger for the core.
package logger

import (
	"sync"

	"go.uber.org/zap"
)

var (
	once     sync.Once
	instance *zap.Logger
)

// Init creates the global production logger. Safe to call multiple times;
// only the first call takes effect.
func Init() error {
	var err error
	once.Do(func() {
		instance, err = zap.NewProduction()
	})
	return err
}

// Get returns the global logger, lazily initializing a production logger if
// Init was never called.
func Get() *zap.Logger {
	if instance == nil {
		_ = Init()
	}
	return instance
}

// Sync flushes buffered log entries. Call during graceful shutdown.
func Sync() {
	if instance != nil {
		_ = instance.Sync()
	}
}
