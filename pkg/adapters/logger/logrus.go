package logger

import (
	"io"

	"github.com/sirupsen/logrus"

	"github.com/user/vidreader/pkg/ports"
)

// Format selects the LogrusLogger output encoding.
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
)

// LogrusLogger writes structured log records through logrus. Messages are not
// translated; the untranslated message key is kept in the "key" field so
// records can be grouped regardless of their arguments.
type LogrusLogger struct {
	entry *logrus.Entry
}

// NewLogrus creates a structured logger writing to w.
func NewLogrus(level ports.LogLevel, format Format, w io.Writer) *LogrusLogger {
	l := logrus.New()
	l.SetOutput(w)
	l.SetLevel(logrusLevel(level))
	if format == FormatJSON {
		l.SetFormatter(&logrus.JSONFormatter{TimestampFormat: "2006-01-02T15:04:05.000Z07:00"})
	} else {
		l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true, DisableColors: true})
	}
	return &LogrusLogger{entry: logrus.NewEntry(l)}
}

func logrusLevel(level ports.LogLevel) logrus.Level {
	switch level {
	case ports.LevelDebug:
		return logrus.DebugLevel
	case ports.LevelWarn:
		return logrus.WarnLevel
	case ports.LevelError:
		return logrus.ErrorLevel
	case ports.LevelQuiet:
		return logrus.PanicLevel
	default:
		return logrus.InfoLevel
	}
}

// Debug logs a debug message.
func (l *LogrusLogger) Debug(msg string, args ...interface{}) {
	l.entry.WithField("key", msg).Debugf(msg, args...)
}

// Info logs an informational message.
func (l *LogrusLogger) Info(msg string, args ...interface{}) {
	l.entry.WithField("key", msg).Infof(msg, args...)
}

// Warn logs a warning message.
func (l *LogrusLogger) Warn(msg string, args ...interface{}) {
	l.entry.WithField("key", msg).Warnf(msg, args...)
}

// Error logs an error message.
func (l *LogrusLogger) Error(msg string, args ...interface{}) {
	l.entry.WithField("key", msg).Errorf(msg, args...)
}

// WithComponent returns a logger that adds a "component" field.
func (l *LogrusLogger) WithComponent(component string) ports.Logger {
	return &LogrusLogger{entry: l.entry.WithField("component", component)}
}

// Ensure LogrusLogger implements ports.Logger
var _ ports.Logger = (*LogrusLogger)(nil)
