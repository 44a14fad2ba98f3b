package logger

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Logger writes one JSON object per line with the fields every service shares:
// timestamp, level, service, hostname, action, message and request_id.
type Logger struct {
	service  string
	hostname string
	base     *logrus.Logger
}

// New returns a Logger writing to stdout. The level is taken from LOG_LEVEL
// and defaults to debug.
func New(service string) *Logger {
	base := logrus.New()
	base.SetOutput(os.Stdout)
	base.SetLevel(levelFromEnv())
	return FromLogrus(service, base)
}

// FromLogrus wraps an existing logrus logger, replacing its formatter.
func FromLogrus(service string, base *logrus.Logger) *Logger {
	hostname, _ := os.Hostname()
	base.SetFormatter(&logrus.JSONFormatter{
		TimestampFormat: time.RFC3339,
		FieldMap: logrus.FieldMap{
			logrus.FieldKeyTime: "timestamp",
			logrus.FieldKeyMsg:  "message",
		},
	})
	return &Logger{service: service, hostname: hostname, base: base}
}

// Discard returns a Logger that drops everything.
func Discard() *Logger {
	base := logrus.New()
	base.SetOutput(io.Discard)
	return FromLogrus("discard", base)
}

// With returns a logger for another service name sharing the same output.
func (l *Logger) With(service string) *Logger {
	return &Logger{service: service, hostname: l.hostname, base: l.base}
}

func (l *Logger) Debug(action, message, requestID string, fields map[string]interface{}) {
	l.entry(action, requestID, fields).Debug(message)
}

func (l *Logger) Info(action, message, requestID string, fields map[string]interface{}) {
	l.entry(action, requestID, fields).Info(message)
}

func (l *Logger) Warn(action, message, requestID string, fields map[string]interface{}) {
	l.entry(action, requestID, fields).Warn(message)
}

func (l *Logger) Error(action, message, requestID string, err error, fields map[string]interface{}) {
	e := l.entry(action, requestID, fields)
	if err != nil {
		e = e.WithField("error", map[string]string{"msg": err.Error()})
	}
	e.Error(message)
}

func (l *Logger) entry(action, requestID string, fields map[string]interface{}) *logrus.Entry {
	e := l.base.WithFields(logrus.Fields{
		"service":  l.service,
		"hostname": l.hostname,
		"action":   action,
	})
	if requestID != "" {
		e = e.WithField("request_id", requestID)
	}
	if len(fields) > 0 {
		e = e.WithField("details", fields)
	}
	return e
}

// GenerateRequestID returns a fresh correlation id for work that did not
// arrive with one.
func GenerateRequestID() string {
	return uuid.NewString()
}

func levelFromEnv() logrus.Level {
	lvl, err := logrus.ParseLevel(strings.TrimSpace(os.Getenv("LOG_LEVEL")))
	if err != nil {
		return logrus.DebugLevel
	}
	return lvl
}
