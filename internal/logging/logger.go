// Package logging provides leveled, structured logging for autosave.
//
// Loggers are values passed to the components that need them; there is no
// process-wide debug switch. A component that only wants output when debug
// logging is enabled logs at LevelDebug and lets the configured level decide.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
)

// Level represents the severity level of a log message.
type Level int

const (
	// LevelDebug is for detailed debugging information.
	LevelDebug Level = iota
	// LevelInfo is for general informational messages.
	LevelInfo
	// LevelWarn is for warning messages.
	LevelWarn
	// LevelError is for error messages.
	LevelError
)

// String returns the string representation of the log level.
func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

func (l Level) zerolog() zerolog.Level {
	switch l {
	case LevelDebug:
		return zerolog.DebugLevel
	case LevelInfo:
		return zerolog.InfoLevel
	case LevelWarn:
		return zerolog.WarnLevel
	case LevelError:
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// ParseLevel parses a string into a Level. Unknown strings map to LevelInfo.
func ParseLevel(s string) Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LevelDebug
	case "info":
		return LevelInfo
	case "warn", "warning":
		return LevelWarn
	case "error":
		return LevelError
	default:
		return LevelInfo
	}
}

// Config configures a Logger.
type Config struct {
	// Level is the minimum log level to output.
	Level Level
	// Output is where logs are written. Defaults to os.Stderr.
	Output io.Writer
	// Console renders human-readable lines instead of JSON.
	Console bool
	// Prefix is attached to every message as the "logger" field.
	Prefix string
}

// DefaultConfig returns the default logger configuration.
func DefaultConfig() Config {
	return Config{
		Level:   LevelWarn,
		Output:  os.Stderr,
		Console: true,
		Prefix:  "autosave",
	}
}

// Logger wraps a zerolog.Logger with the printf-style API used across the
// code base.
type Logger struct {
	zl    zerolog.Logger
	level Level
}

// New creates a new logger with the given configuration.
func New(cfg Config) *Logger {
	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}
	if cfg.Console {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: "15:04:05.000", NoColor: true}
	}

	ctx := zerolog.New(out).Level(cfg.Level.zerolog()).With().Timestamp()
	if cfg.Prefix != "" {
		ctx = ctx.Str("logger", cfg.Prefix)
	}
	return &Logger{zl: ctx.Logger(), level: cfg.Level}
}

// Nop returns a logger that discards all output.
func Nop() *Logger {
	return &Logger{zl: zerolog.Nop(), level: LevelError + 1}
}

// Level returns the minimum level the logger writes.
func (l *Logger) Level() Level {
	return l.level
}

// Enabled reports whether messages at level would be written.
func (l *Logger) Enabled(level Level) bool {
	return level >= l.level
}

// WithLevel returns a copy of the logger with a different minimum level.
func (l *Logger) WithLevel(level Level) *Logger {
	return &Logger{zl: l.zl.Level(level.zerolog()), level: level}
}

// WithField returns a new logger with the given field added.
func (l *Logger) WithField(key string, value any) *Logger {
	return &Logger{zl: l.zl.With().Interface(key, value).Logger(), level: l.level}
}

// WithFields returns a new logger with the given fields added.
func (l *Logger) WithFields(fields map[string]any) *Logger {
	return &Logger{zl: l.zl.With().Fields(fields).Logger(), level: l.level}
}

// WithComponent returns a new logger with the component field set.
func (l *Logger) WithComponent(component string) *Logger {
	return &Logger{zl: l.zl.With().Str("component", component).Logger(), level: l.level}
}

// Debug logs a debug message.
func (l *Logger) Debug(msg string, args ...any) {
	write(l.zl.Debug(), msg, args)
}

// Info logs an info message.
func (l *Logger) Info(msg string, args ...any) {
	write(l.zl.Info(), msg, args)
}

// Warn logs a warning message.
func (l *Logger) Warn(msg string, args ...any) {
	write(l.zl.Warn(), msg, args)
}

// Error logs an error message.
func (l *Logger) Error(msg string, args ...any) {
	write(l.zl.Error(), msg, args)
}

// Err logs err at error level with msg as the message.
func (l *Logger) Err(err error, msg string, args ...any) {
	write(l.zl.Error().Err(err), msg, args)
}

func write(ev *zerolog.Event, msg string, args []any) {
	if ev == nil {
		return
	}
	if len(args) > 0 {
		msg = fmt.Sprintf(msg, args...)
	}
	ev.Msg(msg)
}
