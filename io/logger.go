package rotiniio

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/fatih/color"
)

// LogLevel represents the severity level of a log message
type LogLevel int

const (
	LevelDebug LogLevel = iota
	LevelInfo
	LevelSuccess
	LevelWarning
	LevelError
)

// String returns the string representation of the log level
func (l LogLevel) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelSuccess:
		return "SUCCESS"
	case LevelWarning:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// LogFormat defines the output format for log messages
type LogFormat int

const (
	LogFormatSymbols LogFormat = iota // ● ◆ ✓ ▲ ✗
	LogFormatTagged                   // [DEBUG] [INFO] [SUCCESS] [WARN] [ERROR]
	LogFormatPlain                    // No prefix
)

// Logger writes user-facing messages with semantic levels
type Logger struct {
	io           *IOManager
	format       LogFormat
	prefixes     map[LogLevel]string
	colors       map[LogLevel]color.Attribute
	minLevel     LogLevel
	withTime     bool
	timeFormat   string
	errorsStderr bool
}

// NewLogger creates a new logger bound to the given IOManager
func NewLogger(io *IOManager) *Logger {
	return &Logger{
		io:           io,
		format:       LogFormatSymbols,
		prefixes:     symbolPrefixes(),
		colors:       levelColors(),
		minLevel:     LevelInfo,
		timeFormat:   "15:04:05",
		errorsStderr: true,
	}
}

func symbolPrefixes() map[LogLevel]string {
	return map[LogLevel]string{
		LevelDebug:   "●",
		LevelInfo:    "◆",
		LevelSuccess: "✓",
		LevelWarning: "▲",
		LevelError:   "✗",
	}
}

func taggedPrefixes() map[LogLevel]string {
	return map[LogLevel]string{
		LevelDebug:   "[DEBUG]",
		LevelInfo:    "[INFO]",
		LevelSuccess: "[SUCCESS]",
		LevelWarning: "[WARN]",
		LevelError:   "[ERROR]",
	}
}

func levelColors() map[LogLevel]color.Attribute {
	return map[LogLevel]color.Attribute{
		LevelDebug:   color.FgMagenta,
		LevelInfo:    color.FgBlue,
		LevelSuccess: color.FgGreen,
		LevelWarning: color.FgYellow,
		LevelError:   color.FgRed,
	}
}

// WithFormat sets the log format and returns the logger for chaining
func (l *Logger) WithFormat(format LogFormat) *Logger {
	l.format = format
	switch format {
	case LogFormatSymbols:
		l.prefixes = symbolPrefixes()
	case LogFormatTagged:
		l.prefixes = taggedPrefixes()
	case LogFormatPlain:
		l.prefixes = make(map[LogLevel]string)
	}
	return l
}

// WithLevel drops messages below level
func (l *Logger) WithLevel(level LogLevel) *Logger {
	l.minLevel = level
	return l
}

// SetPrefix sets a custom prefix for a specific log level
func (l *Logger) SetPrefix(level LogLevel, prefix string) *Logger {
	l.prefixes[level] = prefix
	return l
}

// WithTimestamp enables or disables timestamp in log output
func (l *Logger) WithTimestamp(enabled bool) *Logger {
	l.withTime = enabled
	return l
}

// ErrorsToStderr controls whether errors and warnings go to stderr
func (l *Logger) ErrorsToStderr(enabled bool) *Logger {
	l.errorsStderr = enabled
	return l
}

// Log outputs a log message at the specified level
func (l *Logger) Log(level LogLevel, format string, args ...any) {
	if level < l.minLevel {
		return
	}
	msg := fmt.Sprintf(format, args...)
	fmt.Fprintln(l.selectWriter(level), l.formatMessage(level, msg))
}

func (l *Logger) formatMessage(level LogLevel, msg string) string {
	if strings.TrimSpace(msg) == "" {
		return msg
	}

	parts := make([]string, 0, 3)
	if prefix := l.prefixes[level]; prefix != "" {
		parts = append(parts, prefix)
	}
	if l.withTime {
		parts = append(parts, "["+time.Now().Format(l.timeFormat)+"]")
	}
	parts = append(parts, msg)

	return l.io.Style(l.colors[level]).Sprint(strings.Join(parts, " "))
}

// selectWriter chooses stdout or stderr based on log level and configuration
func (l *Logger) selectWriter(level LogLevel) io.Writer {
	if l.errorsStderr && (level == LevelError || level == LevelWarning) {
		return l.io.Err()
	}
	return l.io.Out()
}

// Debug logs a debug message
func (l *Logger) Debug(format string, args ...any) { l.Log(LevelDebug, format, args...) }

// Info logs an informational message
func (l *Logger) Info(format string, args ...any) { l.Log(LevelInfo, format, args...) }

// Success logs a success message
func (l *Logger) Success(format string, args ...any) { l.Log(LevelSuccess, format, args...) }

// Warning logs a warning message
func (l *Logger) Warning(format string, args ...any) { l.Log(LevelWarning, format, args...) }

// Error logs an error message
func (l *Logger) Error(format string, args ...any) { l.Log(LevelError, format, args...) }
