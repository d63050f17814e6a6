package models

import (
	"errors"
	"fmt"
)

// ErrorCategory classifies why a task did not produce a payload.
type ErrorCategory string

// Error categories
const (
	CategoryTimeout        ErrorCategory = "Timeout"        // Runner killed the process at the deadline
	CategoryInvalidInput   ErrorCategory = "InvalidInput"   // Rejected before spawning
	CategoryProcessFailure ErrorCategory = "ProcessFailure" // Non-zero exit or spawn failure
	CategoryCancelled      ErrorCategory = "Cancelled"      // Helper reported user cancellation
	CategoryParseFailure   ErrorCategory = "ParseFailure"   // Exit 0 but no usable payload
)

// ParseErrorCategory maps a config string to a category.
func ParseErrorCategory(s string) (ErrorCategory, error) {
	switch s {
	case "timeout", string(CategoryTimeout):
		return CategoryTimeout, nil
	case "invalid_input", string(CategoryInvalidInput):
		return CategoryInvalidInput, nil
	case "process_failure", string(CategoryProcessFailure):
		return CategoryProcessFailure, nil
	case "cancelled", string(CategoryCancelled):
		return CategoryCancelled, nil
	case "parse_failure", string(CategoryParseFailure):
		return CategoryParseFailure, nil
	}
	return "", fmt.Errorf("unknown error category %q", s)
}

// TaskError is the terminal failure of a task. Message is safe to show to
// users; RawDetail holds truncated process output and is meant for logs only.
type TaskError struct {
	Category  ErrorCategory
	Message   string
	RawDetail string
	ExitCode  *int
	Err       error
}

// NewTaskError creates a TaskError with the given category and message.
func NewTaskError(category ErrorCategory, message string) *TaskError {
	return &TaskError{Category: category, Message: message}
}

// Error implements error.
func (e *TaskError) Error() string {
	return fmt.Sprintf("%s: %s", e.Category, e.Message)
}

// Unwrap returns the underlying cause, if any.
func (e *TaskError) Unwrap() error {
	return e.Err
}

// WithDetail attaches raw output for logging.
func (e *TaskError) WithDetail(detail string) *TaskError {
	e.RawDetail = detail
	return e
}

// WithExitCode records the exit code that produced the error.
func (e *TaskError) WithExitCode(code *int) *TaskError {
	e.ExitCode = code
	return e
}

// WithCause records the underlying error.
func (e *TaskError) WithCause(err error) *TaskError {
	e.Err = err
	return e
}

// AsTaskError extracts a *TaskError from err.
func AsTaskError(err error) (*TaskError, bool) {
	var te *TaskError
	if errors.As(err, &te) {
		return te, true
	}
	return nil, false
}

// CategoryOf returns the category of err, or ProcessFailure when err is not a TaskError.
func CategoryOf(err error) ErrorCategory {
	if te, ok := AsTaskError(err); ok {
		return te.Category
	}
	return CategoryProcessFailure
}

// Truncate shortens s to at most maxLen bytes, appending "..." when cut.
func Truncate(s string, maxLen int) string {
	if maxLen <= 0 || len(s) <= maxLen {
		return s
	}
	// avoid splitting a UTF-8 sequence
	cut := maxLen
	for cut > 0 && s[cut]&0xC0 == 0x80 {
		cut--
	}
	return s[:cut] + "..."
}
