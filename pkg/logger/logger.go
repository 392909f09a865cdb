// Package logger provides the process-wide structured logger.
package logger

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/sirupsen/logrus"
)

var (
	globalLogger = newLogger(os.Stderr, logrus.InfoLevel)
	logFile      *os.File
	mu           sync.Mutex
)

// Options configures the global logger.
type Options struct {
	Output  io.Writer // Console sink; defaults to stderr
	File    string    // Optional log file, appended to
	Verbose bool      // Enables debug level
}

func newLogger(out io.Writer, level logrus.Level) *logrus.Logger {
	l := logrus.New()
	l.SetOutput(out)
	l.SetLevel(level)
	l.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "15:04:05.000",
	})
	return l
}

// Init configures the global logger. Calling it again replaces the
// previous configuration and closes the previous log file.
func Init(opts Options) error {
	mu.Lock()
	defer mu.Unlock()

	// Close previous log file if exists
	if logFile != nil {
		logFile.Close()
		logFile = nil
	}

	out := opts.Output
	if out == nil {
		out = os.Stderr
	}

	if opts.File != "" {
		f, err := os.OpenFile(opts.File, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			return fmt.Errorf("failed to create log file: %w", err)
		}
		logFile = f
		out = io.MultiWriter(out, f)
	}

	level := logrus.InfoLevel
	if opts.Verbose {
		level = logrus.DebugLevel
	}
	globalLogger = newLogger(out, level)
	return nil
}

// Close closes the log file and resets output to stderr.
func Close() {
	mu.Lock()
	defer mu.Unlock()

	if logFile != nil {
		logFile.Close()
		logFile = nil
	}
	globalLogger = newLogger(os.Stderr, globalLogger.GetLevel())
}

func current() *logrus.Logger {
	mu.Lock()
	defer mu.Unlock()
	return globalLogger
}

// Info logs an info message.
func Info(format string, v ...interface{}) {
	current().Infof(format, v...)
}

// Debug logs a debug message.
func Debug(format string, v ...interface{}) {
	current().Debugf(format, v...)
}

// Error logs an error message.
func Error(format string, v ...interface{}) {
	current().Errorf(format, v...)
}

// Warn logs a warning message.
func Warn(format string, v ...interface{}) {
	current().Warnf(format, v...)
}

// WithField returns an entry carrying a structured field.
func WithField(key string, value interface{}) *logrus.Entry {
	return current().WithField(key, value)
}

// WithFields returns an entry carrying structured fields.
func WithFields(fields logrus.Fields) *logrus.Entry {
	return current().WithFields(fields)
}

// GetWriter returns a writer that logs each line at info level, for
// handing to libraries that want an io.Writer.
func GetWriter() io.Writer {
	return current().Writer()
}
