/*
 * This file is subject to the terms and conditions defined in
 * file 'LICENSE.md', which is part of this source code package.
 */

// Package common holds logging and version information shared by the
// pdfcore subpackages.
package common

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
)

// Logger is the interface used for logging within pdfcore.
type Logger interface {
	Error(format string, args ...interface{})
	Warning(format string, args ...interface{})
	Notice(format string, args ...interface{})
	Info(format string, args ...interface{})
	Debug(format string, args ...interface{})
	Trace(format string, args ...interface{})
	IsLogLevel(level LogLevel) bool
}

// DummyLogger discards everything. It is the default so that importers must
// opt in to logging via SetLogger.
type DummyLogger struct{}

// Error does nothing for the dummy logger.
func (DummyLogger) Error(format string, args ...interface{}) {}

// Warning does nothing for the dummy logger.
func (DummyLogger) Warning(format string, args ...interface{}) {}

// Notice does nothing for the dummy logger.
func (DummyLogger) Notice(format string, args ...interface{}) {}

// Info does nothing for the dummy logger.
func (DummyLogger) Info(format string, args ...interface{}) {}

// Debug does nothing for the dummy logger.
func (DummyLogger) Debug(format string, args ...interface{}) {}

// Trace does nothing for the dummy logger.
func (DummyLogger) Trace(format string, args ...interface{}) {}

// IsLogLevel always reports true for the dummy logger so that callers never
// skip a Trace/Debug call thinking it would be cheap to take.
func (DummyLogger) IsLogLevel(level LogLevel) bool {
	return true
}

// LogLevel is the verbosity level for logging.
type LogLevel int

// Log levels, most verbose first; Error is the least verbose.
const (
	LogLevelTrace   LogLevel = 5
	LogLevelDebug   LogLevel = 4
	LogLevelInfo    LogLevel = 3
	LogLevelNotice  LogLevel = 2
	LogLevelWarning LogLevel = 1
	LogLevelError   LogLevel = 0
)

// ConsoleLogger writes logs to os.Stdout.
type ConsoleLogger struct {
	LogLevel LogLevel
}

// NewConsoleLogger creates a console logger at the given level.
func NewConsoleLogger(logLevel LogLevel) *ConsoleLogger {
	return &ConsoleLogger{LogLevel: logLevel}
}

// IsLogLevel reports whether `level` would be emitted by this logger.
func (l ConsoleLogger) IsLogLevel(level LogLevel) bool {
	return l.LogLevel >= level
}

// Error logs an error message.
func (l ConsoleLogger) Error(format string, args ...interface{}) {
	if l.LogLevel >= LogLevelError {
		l.output(os.Stdout, "[ERROR] ", format, args...)
	}
}

// Warning logs a warning message.
func (l ConsoleLogger) Warning(format string, args ...interface{}) {
	if l.LogLevel >= LogLevelWarning {
		l.output(os.Stdout, "[WARNING] ", format, args...)
	}
}

// Notice logs a notice message.
func (l ConsoleLogger) Notice(format string, args ...interface{}) {
	if l.LogLevel >= LogLevelNotice {
		l.output(os.Stdout, "[NOTICE] ", format, args...)
	}
}

// Info logs an info message.
func (l ConsoleLogger) Info(format string, args ...interface{}) {
	if l.LogLevel >= LogLevelInfo {
		l.output(os.Stdout, "[INFO] ", format, args...)
	}
}

// Debug logs a debug message.
func (l ConsoleLogger) Debug(format string, args ...interface{}) {
	if l.LogLevel >= LogLevelDebug {
		l.output(os.Stdout, "[DEBUG] ", format, args...)
	}
}

// Trace logs a trace message.
func (l ConsoleLogger) Trace(format string, args ...interface{}) {
	if l.LogLevel >= LogLevelTrace {
		l.output(os.Stdout, "[TRACE] ", format, args...)
	}
}

func (l ConsoleLogger) output(f io.Writer, prefix, format string, args ...interface{}) {
	logToWriter(f, prefix, format, args...)
}

// Log is the package-level logger used throughout pdfcore. It defaults to a
// DummyLogger; call SetLogger to receive diagnostic output.
var Log Logger = DummyLogger{}

// SetLogger installs `logger` as the package-level logger.
func SetLogger(logger Logger) {
	Log = logger
}

// WriterLogger writes logs to an arbitrary io.Writer, e.g. a file or the
// opaque sink an Open caller supplies alongside its report callback.
type WriterLogger struct {
	LogLevel LogLevel
	Output   io.Writer
}

// NewWriterLogger creates a logger that writes to `writer`.
func NewWriterLogger(logLevel LogLevel, writer io.Writer) *WriterLogger {
	return &WriterLogger{Output: writer, LogLevel: logLevel}
}

// IsLogLevel reports whether `level` would be emitted by this logger.
func (l WriterLogger) IsLogLevel(level LogLevel) bool {
	return l.LogLevel >= level
}

// Error logs an error message.
func (l WriterLogger) Error(format string, args ...interface{}) {
	if l.LogLevel >= LogLevelError {
		logToWriter(l.Output, "[ERROR] ", format, args...)
	}
}

// Warning logs a warning message.
func (l WriterLogger) Warning(format string, args ...interface{}) {
	if l.LogLevel >= LogLevelWarning {
		logToWriter(l.Output, "[WARNING] ", format, args...)
	}
}

// Notice logs a notice message.
func (l WriterLogger) Notice(format string, args ...interface{}) {
	if l.LogLevel >= LogLevelNotice {
		logToWriter(l.Output, "[NOTICE] ", format, args...)
	}
}

// Info logs an info message.
func (l WriterLogger) Info(format string, args ...interface{}) {
	if l.LogLevel >= LogLevelInfo {
		logToWriter(l.Output, "[INFO] ", format, args...)
	}
}

// Debug logs a debug message.
func (l WriterLogger) Debug(format string, args ...interface{}) {
	if l.LogLevel >= LogLevelDebug {
		logToWriter(l.Output, "[DEBUG] ", format, args...)
	}
}

// Trace logs a trace message.
func (l WriterLogger) Trace(format string, args ...interface{}) {
	if l.LogLevel >= LogLevelTrace {
		logToWriter(l.Output, "[TRACE] ", format, args...)
	}
}

func logToWriter(f io.Writer, prefix, format string, args ...interface{}) {
	_, file, line, ok := runtime.Caller(2)
	if !ok {
		file, line = "???", 0
	} else {
		file = filepath.Base(file)
	}
	src := fmt.Sprintf("%s %s:%d ", prefix, file, line) + format + "\n"
	fmt.Fprintf(f, src, args...)
}
