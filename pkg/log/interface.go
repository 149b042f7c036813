// Package log provides a structured logging interface for matrix
// factorization training runs.
//
// This package defines a minimal logging interface that allows for flexible
// implementation switching while providing ML-specific structured logging
// capabilities. The default backend is zerolog; a no-op logger and a
// test-capture logger are also provided.
//
// Example usage:
//
//	logger := log.GetLogger().With(
//	    log.ModelNameKey, "SSNMF",
//	)
//	logger.Info("Training completed",
//	    log.OperationKey, "mult",
//	    log.IterationsKey, 100,
//	)
package log

import "sync"

// Logger defines a structured logging interface with key-value fields.
//
// The interface is implementation-agnostic, enabling easy switching between
// different logging backends while maintaining a consistent API. It supports
// method chaining through With, creating contextual loggers with
// pre-populated fields.
type Logger interface {
	// Debug logs a debug-level message with optional structured fields.
	Debug(msg string, fields ...any)

	// Info logs an info-level message with optional structured fields.
	Info(msg string, fields ...any)

	// Warn logs a warning-level message with optional structured fields.
	Warn(msg string, fields ...any)

	// Error logs an error-level message with optional structured fields.
	Error(msg string, fields ...any)

	// With returns a new Logger with the given fields attached to every
	// subsequent log entry.
	With(fields ...any) Logger
}

// Standard structured attribute keys used across the library.
const (
	ModelNameKey   = "model"
	OperationKey   = "operation"
	IterationsKey  = "iterations"
	RankKey        = "rank"
	SamplesKey     = "samples"
	FeaturesKey    = "features"
	ClassesKey     = "classes"
	ReconErrKey    = "recon_err"
	ClassErrKey    = "class_err"
	AccuracyKey    = "accuracy"
	SupervisionKey = "supervision"
)

var (
	mu            sync.RWMutex
	defaultLogger Logger = NewNopLogger()
)

// GetLogger returns the process-wide default logger.
func GetLogger() Logger {
	mu.RLock()
	defer mu.RUnlock()
	return defaultLogger
}

// SetLogger replaces the process-wide default logger.
func SetLogger(l Logger) {
	mu.Lock()
	defer mu.Unlock()
	if l == nil {
		l = NewNopLogger()
	}
	defaultLogger = l
}

// NopLogger discards every log entry. It is the default so that library
// consumers opt in to output rather than having to silence it.
type NopLogger struct{}

// NewNopLogger returns a logger that discards everything.
func NewNopLogger() *NopLogger { return &NopLogger{} }

// Debug implements Logger.
func (*NopLogger) Debug(string, ...any) {}

// Info implements Logger.
func (*NopLogger) Info(string, ...any) {}

// Warn implements Logger.
func (*NopLogger) Warn(string, ...any) {}

// Error implements Logger.
func (*NopLogger) Error(string, ...any) {}

// With implements Logger.
func (l *NopLogger) With(...any) Logger { return l }
