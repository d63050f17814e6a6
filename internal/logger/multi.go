package logger

import (
	"time"

	"github.com/harrison/xhsassist/internal/models"
)

// MultiLogger fans every message out to several TaskLoggers.
type MultiLogger struct {
	loggers []TaskLogger
}

// NewMultiLogger combines loggers; nil entries are skipped.
func NewMultiLogger(loggers ...TaskLogger) *MultiLogger {
	m := &MultiLogger{}
	for _, l := range loggers {
		if l != nil {
			m.loggers = append(m.loggers, l)
		}
	}
	return m
}

func (m *MultiLogger) LogTrace(message string) {
	for _, l := range m.loggers {
		l.LogTrace(message)
	}
}

func (m *MultiLogger) LogDebug(message string) {
	for _, l := range m.loggers {
		l.LogDebug(message)
	}
}

func (m *MultiLogger) LogInfo(message string) {
	for _, l := range m.loggers {
		l.LogInfo(message)
	}
}

func (m *MultiLogger) LogWarn(message string) {
	for _, l := range m.loggers {
		l.LogWarn(message)
	}
}

func (m *MultiLogger) LogError(message string) {
	for _, l := range m.loggers {
		l.LogError(message)
	}
}

func (m *MultiLogger) LogTaskStart(kind models.TaskKind, runID, target string) {
	for _, l := range m.loggers {
		l.LogTaskStart(kind, runID, target)
	}
}

func (m *MultiLogger) LogTaskDone(kind models.TaskKind, runID string, duration time.Duration, err error) {
	for _, l := range m.loggers {
		l.LogTaskDone(kind, runID, duration, err)
	}
}

// NopLogger discards everything.
type NopLogger struct{}

func (NopLogger) LogTrace(string) {}

func (NopLogger) LogDebug(string) {}

func (NopLogger) LogInfo(string) {}

func (NopLogger) LogWarn(string) {}

func (NopLogger) LogError(string) {}

func (NopLogger) LogTaskStart(models.TaskKind, string, string) {}

func (NopLogger) LogTaskDone(models.TaskKind, string, time.Duration, error) {}
