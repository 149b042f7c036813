package log

import "sync"

// Entry is a captured log record, used by tests to assert on logging
// behavior without parsing output.
type Entry struct {
	Level  string
	Msg    string
	Fields []any
}

// CaptureLogger records every entry in memory. Safe for concurrent use.
// Loggers derived with With write into the same store, so tests can
// inspect the logger they injected regardless of chaining.
type CaptureLogger struct {
	store *captureStore
	bound []any
}

type captureStore struct {
	mu      sync.Mutex
	entries []Entry
}

// NewCaptureLogger returns a logger that records entries for inspection.
func NewCaptureLogger() *CaptureLogger {
	return &CaptureLogger{store: &captureStore{}}
}

// Entries returns a copy of the recorded entries.
func (l *CaptureLogger) Entries() []Entry {
	l.store.mu.Lock()
	defer l.store.mu.Unlock()
	out := make([]Entry, len(l.store.entries))
	copy(out, l.store.entries)
	return out
}

func (l *CaptureLogger) record(level, msg string, fields []any) {
	all := make([]any, 0, len(l.bound)+len(fields))
	all = append(all, l.bound...)
	all = append(all, fields...)
	l.store.mu.Lock()
	defer l.store.mu.Unlock()
	l.store.entries = append(l.store.entries, Entry{Level: level, Msg: msg, Fields: all})
}

// Debug implements Logger.
func (l *CaptureLogger) Debug(msg string, fields ...any) { l.record("debug", msg, fields) }

// Info implements Logger.
func (l *CaptureLogger) Info(msg string, fields ...any) { l.record("info", msg, fields) }

// Warn implements Logger.
func (l *CaptureLogger) Warn(msg string, fields ...any) { l.record("warn", msg, fields) }

// Error implements Logger.
func (l *CaptureLogger) Error(msg string, fields ...any) { l.record("error", msg, fields) }

// With implements Logger.
func (l *CaptureLogger) With(fields ...any) Logger {
	return &CaptureLogger{
		store: l.store,
		bound: append(append([]any{}, l.bound...), fields...),
	}
}
