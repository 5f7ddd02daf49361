// Package logger provides structured logging for the game server.
// Every subsystem decision (purchases, combat turns, saves) should be
// traceable through this.
package logger

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
)

// Logger provides structured logging with context.
type Logger struct {
	zl zerolog.Logger
}

// NewLogger creates a logger writing JSON lines to stdout at info level.
func NewLogger() *Logger {
	return New(os.Stdout, "info")
}

// New creates a logger writing to w at the given level ("debug", "info",
// "warn", "error"). Unknown levels fall back to info.
func New(w io.Writer, level string) *Logger {
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}
	zl := zerolog.New(w).Level(lvl).With().Timestamp().Str("service", "reactor").Logger()
	return &Logger{zl: zl}
}

// NewConsole creates a human readable logger for CLI tools.
func NewConsole(level string) *Logger {
	l := New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"}, level)
	return l
}

// NewNop returns a logger that discards everything. Used by tests.
func NewNop() *Logger {
	return &Logger{zl: zerolog.Nop()}
}

// With returns a child logger tagged with the component name.
func (l *Logger) With(component string) *Logger {
	return &Logger{zl: l.zl.With().Str("component", component).Logger()}
}

// Debug logs verbose diagnostics.
func (l *Logger) Debug(msg string) {
	l.zl.Debug().Msg(msg)
}

// Info logs informational messages.
func (l *Logger) Info(msg string) {
	l.zl.Info().Msg(msg)
}

// Infof logs a formatted informational message.
func (l *Logger) Infof(format string, args ...any) {
	l.zl.Info().Msg(fmt.Sprintf(format, args...))
}

// Warn logs warning messages.
func (l *Logger) Warn(msg string) {
	l.zl.Warn().Msg(msg)
}

// Warnf logs a formatted warning.
func (l *Logger) Warnf(format string, args ...any) {
	l.zl.Warn().Msg(fmt.Sprintf(format, args...))
}

// Error logs error messages.
func (l *Logger) Error(msg string) {
	l.zl.Error().Msg(msg)
}

// Errorf logs a formatted error.
func (l *Logger) Errorf(format string, args ...any) {
	l.zl.Error().Msg(fmt.Sprintf(format, args...))
}

// Event logs a specific game event with the actor that caused it.
func (l *Logger) Event(eventType string, actorID string, details string) {
	l.zl.Info().
		Str("event", eventType).
		Str("actor", actorID).
		Msg(details)
}
