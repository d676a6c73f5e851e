// Package logger provides the run logger for backtest activities. It wraps a
// standard library logger around any writer so tests can capture output and
// the CLI can tee to a file.
package logger

import (
	"fmt"
	"io"
	"log"
	"sync"
	"time"
)

// Level represents different types of log entries
type Level string

const (
	LevelInfo  Level = "INFO"
	LevelWarn  Level = "WARN"
	LevelError Level = "ERROR"
	LevelTrade Level = "TRADE"
)

// Logger writes leveled, timestamped entries to a single destination.
type Logger struct {
	mu  sync.Mutex
	out *log.Logger
}

// New creates a logger writing to the given destination.
func New(w io.Writer) *Logger {
	return &Logger{out: log.New(w, "", 0)}
}

// Discard returns a logger that drops everything, for quiet runs and tests.
func Discard() *Logger {
	return New(io.Discard)
}

// Log writes a formatted log entry with the specified level
func (l *Logger) Log(level Level, format string, args ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()

	timestamp := time.Now().Format("2006-01-02 15:04:05")
	message := fmt.Sprintf(format, args...)
	l.out.Printf("[%s] [%s] %s", timestamp, level, message)
}

// Info logs an info message
func (l *Logger) Info(format string, args ...interface{}) {
	l.Log(LevelInfo, format, args...)
}

// Warn logs a warning message
func (l *Logger) Warn(format string, args ...interface{}) {
	l.Log(LevelWarn, format, args...)
}

// Error logs an error message
func (l *Logger) Error(format string, args ...interface{}) {
	l.Log(LevelError, format, args...)
}

// Trade logs a booked trade
func (l *Logger) Trade(format string, args ...interface{}) {
	l.Log(LevelTrade, format, args...)
}
