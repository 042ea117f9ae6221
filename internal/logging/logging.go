// Package logging provides categorized logging for codewarden.
// Each subsystem logs through its own category so a run can be traced
// per concern. Logging is a no-op until Initialize is called.
package logging

import (
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Category identifies a logging subsystem.
type Category string

const (
	CategoryEngine     Category = "engine"     // Orchestration loop transitions
	CategoryGovernor   Category = "governor"   // Governor registration and verification
	CategoryAggregate  Category = "aggregate"  // Concurrent verification passes
	CategoryCorrection Category = "correction" // Directive synthesis
	CategoryCache      Category = "cache"      // Result/generation cache activity
	CategoryGeneration Category = "generation" // Generation collaborator calls
	CategoryCLI        Category = "cli"        // Command-line front end
)

// Logger is a category-scoped printf-style logger.
type Logger struct {
	s *zap.SugaredLogger
}

var (
	mu      sync.RWMutex
	root    *zap.Logger = zap.NewNop()
	loggers             = make(map[Category]*Logger)
)

// Initialize installs the process-wide logger. Debug mode enables
// development output at debug level; production mode logs warnings
// and errors only.
func Initialize(debug bool) error {
	var logger *zap.Logger
	var err error

	if debug {
		cfg := zap.NewDevelopmentConfig()
		cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		logger, err = cfg.Build()
	} else {
		cfg := zap.NewProductionConfig()
		cfg.Level = zap.NewAtomicLevelAt(zapcore.WarnLevel)
		logger, err = cfg.Build()
	}
	if err != nil {
		return err
	}

	mu.Lock()
	defer mu.Unlock()
	root = logger
	loggers = make(map[Category]*Logger)
	return nil
}

// Get returns the logger for a category, creating it on first use.
func Get(cat Category) *Logger {
	mu.RLock()
	if l, ok := loggers[cat]; ok {
		mu.RUnlock()
		return l
	}
	mu.RUnlock()

	mu.Lock()
	defer mu.Unlock()
	if l, ok := loggers[cat]; ok {
		return l
	}
	l := &Logger{s: root.Named(string(cat)).Sugar()}
	loggers[cat] = l
	return l
}

// Sync flushes buffered log entries. Safe to call on shutdown.
func Sync() {
	mu.RLock()
	defer mu.RUnlock()
	_ = root.Sync()
}

func (l *Logger) Debug(format string, args ...interface{}) { l.s.Debugf(format, args...) }
func (l *Logger) Info(format string, args ...interface{})  { l.s.Infof(format, args...) }
func (l *Logger) Warn(format string, args ...interface{})  { l.s.Warnf(format, args...) }
func (l *Logger) Error(format string, args ...interface{}) { l.s.Errorf(format, args...) }
