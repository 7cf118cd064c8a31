// Package logging provides structured logging for wordcloud with consistent
// formatting and context support. It wraps zap to provide leveled logging with
// structured key-value pairs for debugging and monitoring.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Level represents a log level.
type Level int

const (
	// LevelDebug is for verbose debugging information.
	LevelDebug Level = iota
	// LevelInfo is for general informational messages.
	LevelInfo
	// LevelWarn is for recoverable errors and warnings.
	LevelWarn
	// LevelError is for significant errors that may impact functionality.
	LevelError
)

var levelNames = map[Level]string{
	LevelDebug: "debug",
	LevelInfo:  "info",
	LevelWarn:  "warn",
	LevelError: "error",
}

func (l Level) String() string {
	if name, ok := levelNames[l]; ok {
		return name
	}
	return fmt.Sprintf("level(%d)", int(l))
}

func (l Level) zapLevel() zapcore.Level {
	switch l {
	case LevelDebug:
		return zapcore.DebugLevel
	case LevelInfo:
		return zapcore.InfoLevel
	case LevelWarn:
		return zapcore.WarnLevel
	default:
		return zapcore.ErrorLevel
	}
}

// ParseLevel converts a level name such as "info" into a Level.
func ParseLevel(s string) (Level, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	for level, n := range levelNames {
		if n == name {
			return level, nil
		}
	}
	if name == "warning" {
		return LevelWarn, nil
	}
	return LevelInfo, fmt.Errorf("unknown log level %q", s)
}

// Output formats.
const (
	FormatConsole = "console"
	FormatJSON    = "json"
)

// Logger provides structured logging with context.
type Logger struct {
	mu     sync.RWMutex
	level  zap.AtomicLevel
	format string
	fields []interface{}
	base   *zap.Logger
	sugar  *zap.SugaredLogger
}

var (
	// defaultLogger is the package-level logger.
	defaultLogger = New()
)

// New creates a new Logger writing console output to stderr at info level.
func New() *Logger {
	l := &Logger{
		level:  zap.NewAtomicLevelAt(zapcore.InfoLevel),
		format: FormatConsole,
	}
	l.rebuild(zapcore.Lock(os.Stderr))
	return l
}

// NewWithOptions creates a Logger with the given level and format writing to w.
func NewWithOptions(w io.Writer, level Level, format string) *Logger {
	l := &Logger{
		level:  zap.NewAtomicLevelAt(level.zapLevel()),
		format: format,
	}
	l.rebuild(zapcore.AddSync(w))
	return l
}

// FromCore wraps an existing zap core, such as zaptest/observer's. The core's
// own level enabler applies; SetOutput and SetFormat replace it.
func FromCore(core zapcore.Core) *Logger {
	l := &Logger{
		level:  zap.NewAtomicLevelAt(zapcore.DebugLevel),
		format: FormatConsole,
		base:   zap.New(core),
	}
	l.sugar = l.base.Sugar()
	return l
}

func encoderFor(format string) zapcore.Encoder {
	if format == FormatJSON {
		cfg := zap.NewProductionEncoderConfig()
		cfg.EncodeTime = zapcore.ISO8601TimeEncoder
		cfg.EncodeLevel = zapcore.CapitalLevelEncoder
		return zapcore.NewJSONEncoder(cfg)
	}
	cfg := zap.NewDevelopmentEncoderConfig()
	cfg.EncodeLevel = zapcore.CapitalLevelEncoder
	cfg.CallerKey = ""
	return zapcore.NewConsoleEncoder(cfg)
}

// rebuild replaces the zap core. Callers must hold mu or own l exclusively.
func (l *Logger) rebuild(ws zapcore.WriteSyncer) {
	core := zapcore.NewCore(encoderFor(l.format), ws, l.level)
	l.base = zap.New(core)
	l.sugar = l.base.Sugar().With(l.fields...)
}

// SetLevel sets the minimum log level.
func (l *Logger) SetLevel(level Level) {
	l.level.SetLevel(level.zapLevel())
}

// SetOutput redirects the logger to w, keeping its level, format and fields.
func (l *Logger) SetOutput(w io.Writer) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.rebuild(zapcore.AddSync(w))
}

// SetFormat switches between console and JSON encoding, writing to w.
func (l *Logger) SetFormat(format string, w io.Writer) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.format = format
	l.rebuild(zapcore.AddSync(w))
}

// With returns a new Logger with additional context fields.
func (l *Logger) With(key string, value interface{}) *Logger {
	return l.WithFields(map[string]interface{}{key: value})
}

// WithFields returns a new Logger with multiple additional context fields.
func (l *Logger) WithFields(fields map[string]interface{}) *Logger {
	l.mu.RLock()
	defer l.mu.RUnlock()

	newFields := make([]interface{}, 0, len(l.fields)+2*len(fields))
	newFields = append(newFields, l.fields...)
	for k, v := range fields {
		newFields = append(newFields, k, v)
	}

	return &Logger{
		level:  l.level,
		format: l.format,
		fields: newFields,
		base:   l.base,
		sugar:  l.base.Sugar().With(newFields...),
	}
}

// Zap returns the underlying zap logger, including context fields.
func (l *Logger) Zap() *zap.Logger {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.sugar.Desugar()
}

func (l *Logger) current() *zap.SugaredLogger {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.sugar
}

// Debug logs at debug level.
func (l *Logger) Debug(msg string, keyVals ...interface{}) {
	l.current().Debugw(msg, keyVals...)
}

// Info logs at info level.
func (l *Logger) Info(msg string, keyVals ...interface{}) {
	l.current().Infow(msg, keyVals...)
}

// Warn logs at warn level (for recoverable errors).
func (l *Logger) Warn(msg string, keyVals ...interface{}) {
	l.current().Warnw(msg, keyVals...)
}

// Error logs at error level (for significant errors).
func (l *Logger) Error(msg string, keyVals ...interface{}) {
	l.current().Errorw(msg, keyVals...)
}

// Sync flushes buffered log entries.
func (l *Logger) Sync() error {
	return l.current().Sync()
}

// Package-level functions that use the default logger.

// Default returns the package-level logger.
func Default() *Logger {
	return defaultLogger
}

// SetLevel sets the minimum log level for the default logger.
func SetLevel(level Level) {
	defaultLogger.SetLevel(level)
}

// SetOutput sets the output for the default logger.
func SetOutput(w io.Writer) {
	defaultLogger.SetOutput(w)
}

// With returns a new Logger with additional context from the default logger.
func With(key string, value interface{}) *Logger {
	return defaultLogger.With(key, value)
}

// WithFields returns a new Logger with multiple additional context fields.
func WithFields(fields map[string]interface{}) *Logger {
	return defaultLogger.WithFields(fields)
}

// Debug logs at debug level using the default logger.
func Debug(msg string, keyVals ...interface{}) {
	defaultLogger.Debug(msg, keyVals...)
}

// Info logs at info level using the default logger.
func Info(msg string, keyVals ...interface{}) {
	defaultLogger.Info(msg, keyVals...)
}

// Warn logs at warn level using the default logger.
func Warn(msg string, keyVals ...interface{}) {
	defaultLogger.Warn(msg, keyVals...)
}

// Error logs at error level using the default logger.
func Error(msg string, keyVals ...interface{}) {
	defaultLogger.Error(msg, keyVals...)
}
