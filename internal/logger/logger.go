// Package logger provides a simple leveled logger for the application.
// It supports three levels: off (no output), normal (info/warn/error),
// and verbose (includes debug). Output goes through a zap core with a
// console encoder. The logger is safe for concurrent use.
package logger

import (
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Level controls the verbosity of the logger.
type Level int

const (
	// LevelOff disables all log output.
	LevelOff Level = iota
	// LevelNormal enables info, warn, and error output.
	LevelNormal
	// LevelVerbose enables all output including debug.
	LevelVerbose
)

// ParseLevel maps a config string to a Level. Unknown names yield LevelNormal.
func ParseLevel(s string) Level {
	switch s {
	case "off", "quiet", "none":
		return LevelOff
	case "verbose", "debug":
		return LevelVerbose
	default:
		return LevelNormal
	}
}

// String returns the config name of the level.
func (l Level) String() string {
	switch l {
	case LevelOff:
		return "off"
	case LevelVerbose:
		return "verbose"
	default:
		return "normal"
	}
}

// Logger is a leveled logger. All methods are safe for concurrent use.
type Logger struct {
	atom  zap.AtomicLevel
	sugar *zap.SugaredLogger
}

// New creates a logger with the given level, writing to the given output.
// If out is nil, os.Stderr is used.
func New(level Level, out io.Writer) *Logger {
	if out == nil {
		out = os.Stderr
	}

	enc := zapcore.NewConsoleEncoder(zapcore.EncoderConfig{
		TimeKey:          "time",
		LevelKey:         "level",
		NameKey:          "logger",
		MessageKey:       "msg",
		LineEnding:       zapcore.DefaultLineEnding,
		EncodeTime:       zapcore.TimeEncoderOfLayout("15:04:05"),
		EncodeLevel:      encodeLevel,
		EncodeName:       zapcore.FullNameEncoder,
		ConsoleSeparator: " ",
	})

	atom := zap.NewAtomicLevelAt(zapLevel(level))
	core := zapcore.NewCore(enc, zapcore.Lock(zapcore.AddSync(out)), atom)

	return &Logger{
		atom:  atom,
		sugar: zap.New(core).Sugar(),
	}
}

// Named returns a child logger that prefixes entries with name. The child
// shares the parent's level.
func (l *Logger) Named(name string) *Logger {
	return &Logger{atom: l.atom, sugar: l.sugar.Named(name)}
}

// SetLevel changes the log level at runtime.
func (l *Logger) SetLevel(level Level) {
	l.atom.SetLevel(zapLevel(level))
}

// GetLevel returns the current log level.
func (l *Logger) GetLevel() Level {
	switch l.atom.Level() {
	case zapcore.DebugLevel:
		return LevelVerbose
	case zapcore.InfoLevel:
		return LevelNormal
	default:
		return LevelOff
	}
}

// Debug logs a message at debug level (only visible in verbose mode).
func (l *Logger) Debug(format string, args ...any) {
	l.sugar.Debugf(format, args...)
}

// Info logs a message at info level.
func (l *Logger) Info(format string, args ...any) {
	l.sugar.Infof(format, args...)
}

// Warn logs a message at warn level.
func (l *Logger) Warn(format string, args ...any) {
	l.sugar.Warnf(format, args...)
}

// Error logs a message at error level.
func (l *Logger) Error(format string, args ...any) {
	l.sugar.Errorf(format, args...)
}

// Sync flushes buffered entries.
func (l *Logger) Sync() error {
	return l.sugar.Sync()
}

func zapLevel(level Level) zapcore.Level {
	switch level {
	case LevelVerbose:
		return zapcore.DebugLevel
	case LevelNormal:
		return zapcore.InfoLevel
	default:
		// Above fatal: nothing is enabled.
		return zapcore.FatalLevel + 1
	}
}

// encodeLevel renders levels as the three-letter tags the CLI has always used.
func encodeLevel(lvl zapcore.Level, enc zapcore.PrimitiveArrayEncoder) {
	var tag string
	switch lvl {
	case zapcore.DebugLevel:
		tag = "DBG"
	case zapcore.InfoLevel:
		tag = "INF"
	case zapcore.WarnLevel:
		tag = "WRN"
	default:
		tag = "ERR"
	}
	enc.AppendString(fmt.Sprintf("[%s]", tag))
}
