package models

import (
	"encoding/json"
	"time"
)

// TaskReport summarizes one finished orchestrated task. It is handed to
// observers (usage tracker, history store) after the task is finalized.
type TaskReport struct {
	RunID     string
	Kind      TaskKind
	Target    string // URL or a short description of the input
	StartedAt time.Time
	Duration  time.Duration
	ExitCode  *int
	Strategy  string // extraction strategy that found the payload
	Payload   json.RawMessage
	InputLen  int
	Err       *TaskError
}

// Succeeded reports whether the task produced a payload.
func (r TaskReport) Succeeded() bool {
	return r.Err == nil
}

// Category returns the failure category, or "" on success.
func (r TaskReport) Category() ErrorCategory {
	if r.Err == nil {
		return ""
	}
	return r.Err.Category
}
