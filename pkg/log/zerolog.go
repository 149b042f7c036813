package log

import (
	"fmt"
	"io"

	"github.com/rs/zerolog"
)

// ZerologLogger is a Logger backed by rs/zerolog.
type ZerologLogger struct {
	zl zerolog.Logger
}

// NewZerologLogger creates a structured JSON logger writing to w.
func NewZerologLogger(w io.Writer) *ZerologLogger {
	return &ZerologLogger{zl: zerolog.New(w).With().Timestamp().Logger()}
}

// NewConsoleLogger creates a human-readable logger writing to w, intended
// for examples and interactive use.
func NewConsoleLogger(w io.Writer) *ZerologLogger {
	cw := zerolog.ConsoleWriter{Out: w}
	return &ZerologLogger{zl: zerolog.New(cw).With().Timestamp().Logger()}
}

// FromZerolog wraps an existing zerolog.Logger.
func FromZerolog(zl zerolog.Logger) *ZerologLogger {
	return &ZerologLogger{zl: zl}
}

// Debug implements Logger.
func (l *ZerologLogger) Debug(msg string, fields ...any) {
	applyFields(l.zl.Debug(), fields).Msg(msg)
}

// Info implements Logger.
func (l *ZerologLogger) Info(msg string, fields ...any) {
	applyFields(l.zl.Info(), fields).Msg(msg)
}

// Warn implements Logger.
func (l *ZerologLogger) Warn(msg string, fields ...any) {
	applyFields(l.zl.Warn(), fields).Msg(msg)
}

// Error implements Logger.
func (l *ZerologLogger) Error(msg string, fields ...any) {
	applyFields(l.zl.Error(), fields).Msg(msg)
}

// With implements Logger.
func (l *ZerologLogger) With(fields ...any) Logger {
	ctx := l.zl.With()
	for i := 0; i+1 < len(fields); i += 2 {
		ctx = ctx.Interface(key(fields[i]), fields[i+1])
	}
	return &ZerologLogger{zl: ctx.Logger()}
}

func applyFields(e *zerolog.Event, fields []any) *zerolog.Event {
	for i := 0; i+1 < len(fields); i += 2 {
		e = e.Interface(key(fields[i]), fields[i+1])
	}
	return e
}

func key(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", v)
}
