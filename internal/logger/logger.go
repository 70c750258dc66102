package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// Level represents a logging level
type Level int

const (
	// LevelDebug is the most verbose logging level
	LevelDebug Level = iota
	// LevelInfo logs informational messages
	LevelInfo
	// LevelWarn logs warnings
	LevelWarn
	// LevelError logs errors
	LevelError
	// LevelNone disables all logging
	LevelNone
)

// String returns string representation of log level
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
	case LevelNone:
		return "NONE"
	default:
		return "UNKNOWN"
	}
}

// ParseLevel parses a string into a Level. Unknown values map to LevelInfo.
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
	case "none", "off":
		return LevelNone
	default:
		return LevelInfo
	}
}

// sink is shared between a logger and the loggers derived from it
type sink struct {
	mu     sync.Mutex
	out    io.Writer
	closer io.Closer
}

func (s *sink) writeLine(line string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, _ = io.WriteString(s.out, line+"\n")
}

// Logger is a leveled printf-style logger
type Logger struct {
	mu     sync.RWMutex
	level  Level
	prefix string
	sink   *sink
	now    func() time.Time
}

var (
	globalMu     sync.RWMutex
	globalLogger *Logger
)

// Init initializes the global logger with a file sink. Calling Init again
// replaces the previous global logger and closes it.
func Init(level Level, logPath string) error {
	l, err := New(level, logPath, "")
	if err != nil {
		return err
	}
	SetGlobal(l)
	return nil
}

// SetGlobal installs l as the global logger
func SetGlobal(l *Logger) {
	globalMu.Lock()
	prev := globalLogger
	globalLogger = l
	globalMu.Unlock()

	if prev != nil && prev != l {
		_ = prev.Close()
	}
}

// New creates a Logger that appends to the file at logPath
func New(level Level, logPath string, prefix string) (*Logger, error) {
	if level == LevelNone || logPath == "" {
		return Discard(), nil
	}

	if err := os.MkdirAll(filepath.Dir(logPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	file, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}

	return &Logger{
		level:  level,
		prefix: prefix,
		sink:   &sink{out: file, closer: file},
		now:    time.Now,
	}, nil
}

// NewWriter creates a Logger writing to w. The writer is not closed by Close.
func NewWriter(level Level, w io.Writer, prefix string) *Logger {
	if w == nil || level == LevelNone {
		return Discard()
	}
	return &Logger{
		level:  level,
		prefix: prefix,
		sink:   &sink{out: w},
		now:    time.Now,
	}
}

// Discard returns a logger that drops everything
func Discard() *Logger {
	return &Logger{
		level: LevelNone,
		sink:  &sink{out: io.Discard},
		now:   time.Now,
	}
}

// Global returns the global logger instance
func Global() *Logger {
	globalMu.RLock()
	l := globalLogger
	globalMu.RUnlock()
	if l != nil {
		return l
	}

	globalMu.Lock()
	defer globalMu.Unlock()
	if globalLogger == nil {
		globalLogger = Discard()
	}
	return globalLogger
}

// WithPrefix creates a new logger with an additional prefix
func (l *Logger) WithPrefix(prefix string) *Logger {
	l.mu.RLock()
	defer l.mu.RUnlock()

	newPrefix := prefix
	if l.prefix != "" {
		newPrefix = l.prefix + ":" + prefix
	}

	return &Logger{
		level:  l.level,
		prefix: newPrefix,
		sink:   l.sink,
		now:    l.now,
	}
}

// SetLevel sets the logging level
func (l *Logger) SetLevel(level Level) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.level = level
}

// GetLevel returns the current logging level
func (l *Logger) GetLevel() Level {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.level
}

// Enabled reports whether messages at level would be written
func (l *Logger) Enabled(level Level) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return level != LevelNone && level >= l.level && l.level != LevelNone
}

func (l *Logger) log(level Level, format string, args ...interface{}) {
	if !l.Enabled(level) {
		return
	}

	l.mu.RLock()
	prefix := l.prefix
	now := l.now
	l.mu.RUnlock()

	if prefix != "" {
		prefix = "[" + prefix + "] "
	}

	line := fmt.Sprintf("%s [%s] %s%s",
		now().Format("2006-01-02 15:04:05.000"), level.String(), prefix, fmt.Sprintf(format, args...))
	l.sink.writeLine(line)
}

// Debug logs a debug message
func (l *Logger) Debug(format string, args ...interface{}) {
	l.log(LevelDebug, format, args...)
}

// Info logs an informational message
func (l *Logger) Info(format string, args ...interface{}) {
	l.log(LevelInfo, format, args...)
}

// Warn logs a warning message
func (l *Logger) Warn(format string, args ...interface{}) {
	l.log(LevelWarn, format, args...)
}

// Error logs an error message
func (l *Logger) Error(format string, args ...interface{}) {
	l.log(LevelError, format, args...)
}

// Close closes the underlying file, if any
func (l *Logger) Close() error {
	l.sink.mu.Lock()
	defer l.sink.mu.Unlock()

	if l.sink.closer == nil {
		return nil
	}
	err := l.sink.closer.Close()
	l.sink.closer = nil
	l.sink.out = io.Discard
	return err
}

// Debug logs a debug message using the global logger
func Debug(format string, args ...interface{}) {
	Global().Debug(format, args...)
}

// Info logs an informational message using the global logger
func Info(format string, args ...interface{}) {
	Global().Info(format, args...)
}

// Warn logs a warning message using the global logger
func Warn(format string, args ...interface{}) {
	Global().Warn(format, args...)
}

// Error logs an error message using the global logger
func Error(format string, args ...interface{}) {
	Global().Error(format, args...)
}
