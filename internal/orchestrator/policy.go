package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/harrison/xhsassist/internal/models"
)

// ExitRule is what a non-zero exit code means for one task kind.
type ExitRule struct {
	Category models.ErrorCategory
	Message  string
}

// ExitPolicy maps non-zero exit codes to rules. Codes without an entry fall
// back to a generic ProcessFailure, so the mapping is total. Exit code 0 is
// never looked up: it always means "extract the payload".
type ExitPolicy map[int]ExitRule

// Messages shown to users. Each category has its own wording.
const (
	MsgTimeout       = "task timed out; a shorter video or a faster network may help"
	MsgUsage         = "helper usage error"
	MsgInvalidLink   = "processing failed, check that the link is valid"
	MsgCancelled     = "task was cancelled"
	MsgParseFailure  = "helper finished but returned no usable result"
	MsgStartFailure  = "could not start the helper process"
	MsgInvalidInput  = "invalid input"
	msgGenericExitFn = "helper failed with exit code %d"
)

// DefaultExitPolicy is the contract the bundled Python helpers follow:
// 1 = bad usage, 2 = processing failed, 3 = cancelled by the user.
func DefaultExitPolicy() ExitPolicy {
	return ExitPolicy{
		1: {Category: models.CategoryProcessFailure, Message: MsgUsage},
		2: {Category: models.CategoryProcessFailure, Message: MsgInvalidLink},
		3: {Category: models.CategoryCancelled, Message: MsgCancelled},
	}
}

// Classify returns the rule for a non-zero exit code.
func (p ExitPolicy) Classify(code int) ExitRule {
	if rule, ok := p[code]; ok {
		return rule
	}
	return ExitRule{Category: models.CategoryProcessFailure, Message: fmt.Sprintf(msgGenericExitFn, code)}
}

// WithOverrides returns a copy of p where each overridden code maps to the
// given category. Overrides that keep a code's current category keep its
// message too.
func (p ExitPolicy) WithOverrides(overrides map[int]models.ErrorCategory) ExitPolicy {
	out := make(ExitPolicy, len(p)+len(overrides))
	for code, rule := range p {
		out[code] = rule
	}
	for code, cat := range overrides {
		if code == 0 {
			continue
		}
		if cur, ok := out[code]; ok && cur.Category == cat {
			continue
		}
		out[code] = ExitRule{Category: cat, Message: categoryMessage(cat, code)}
	}
	return out
}

// ContextError classifies a task that never spawned because ctx was already
// done: a passed deadline is a Timeout, anything else is Cancelled. It
// returns nil when err is not a context error.
func ContextError(err error, timeoutMsg string) *models.TaskError {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return models.NewTaskError(models.CategoryTimeout, timeoutMsg).WithCause(err)
	case errors.Is(err, context.Canceled):
		return models.NewTaskError(models.CategoryCancelled, MsgCancelled).WithCause(err)
	}
	return nil
}

// Codes lists the explicitly mapped codes in ascending order.
func (p ExitPolicy) Codes() []int {
	codes := make([]int, 0, len(p))
	for c := range p {
		codes = append(codes, c)
	}
	sort.Ints(codes)
	return codes
}

func categoryMessage(cat models.ErrorCategory, code int) string {
	switch cat {
	case models.CategoryTimeout:
		return MsgTimeout
	case models.CategoryCancelled:
		return MsgCancelled
	case models.CategoryInvalidInput:
		return MsgInvalidLink
	case models.CategoryParseFailure:
		return MsgParseFailure
	default:
		return fmt.Sprintf(msgGenericExitFn, code)
	}
}
