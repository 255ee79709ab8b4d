// Package logger provides the plugin-facing structured logger.
package logger

import (
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

// Logger is a named logrus logger handed to console plugins.
type Logger struct {
	inner *logrus.Logger
	name  string
}

// NewDefault creates a logger for the named plugin with text output on
// stderr. PLUGBOARD_LOG_LEVEL selects the minimum level (default info).
func NewDefault(name string) *Logger {
	inner := logrus.New()
	inner.SetOutput(os.Stderr)
	inner.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	level := logrus.InfoLevel
	if raw := os.Getenv("PLUGBOARD_LOG_LEVEL"); raw != "" {
		if parsed, err := logrus.ParseLevel(strings.ToLower(raw)); err == nil {
			level = parsed
		}
	}
	inner.SetLevel(level)

	return &Logger{inner: inner, name: name}
}

// NewNop returns a logger that discards everything. Intended for tests.
func NewNop() *Logger {
	inner := logrus.New()
	inner.SetOutput(io.Discard)
	return &Logger{inner: inner, name: "test"}
}

// Name returns the plugin name the logger was created for.
func (l *Logger) Name() string {
	return l.name
}

// WithField returns an entry carrying the plugin name and one extra field.
func (l *Logger) WithField(key string, value interface{}) *logrus.Entry {
	return l.entry().WithField(key, value)
}

// WithFields returns an entry carrying the plugin name and the given fields.
// A nil map is allowed.
func (l *Logger) WithFields(fields map[string]interface{}) *logrus.Entry {
	entry := l.entry()
	for k, v := range fields {
		entry = entry.WithField(k, v)
	}
	return entry
}

// WithError returns an entry carrying the plugin name and the error.
func (l *Logger) WithError(err error) *logrus.Entry {
	return l.entry().WithError(err)
}

func (l *Logger) entry() *logrus.Entry {
	return l.inner.WithField("plugin", l.name)
}

// Debug logs a debug message.
func (l *Logger) Debug(args ...interface{}) { l.entry().Debug(args...) }

// Info logs an info message.
func (l *Logger) Info(args ...interface{}) { l.entry().Info(args...) }

// Warn logs a warning.
func (l *Logger) Warn(args ...interface{}) { l.entry().Warn(args...) }

// Error logs an error.
func (l *Logger) Error(args ...interface{}) { l.entry().Error(args...) }
