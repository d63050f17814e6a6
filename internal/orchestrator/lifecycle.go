package orchestrator

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/harrison/xhsassist/internal/models"
)

// Phase is the lifecycle position of one orchestrated task.
type Phase int

// Task phases
const (
	PhaseIdle Phase = iota
	PhaseRunning
	PhaseCompleted
	PhaseTimedOut
	PhaseKilled
	PhaseFinalized
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseRunning:
		return "running"
	case PhaseCompleted:
		return "completed"
	case PhaseTimedOut:
		return "timed_out"
	case PhaseKilled:
		return "killed"
	case PhaseFinalized:
		return "finalized"
	default:
		return "unknown"
	}
}

var allowedTransitions = map[Phase][]Phase{
	PhaseIdle:      {PhaseRunning, PhaseFinalized},
	PhaseRunning:   {PhaseCompleted, PhaseTimedOut, PhaseKilled, PhaseFinalized}, // Finalized: spawn failed
	PhaseCompleted: {PhaseFinalized},
	PhaseTimedOut:  {PhaseFinalized},
	PhaseKilled:    {PhaseFinalized},
}

// taskRun tracks a single task from request to report. It is owned by one
// call to Run and never reused.
type taskRun struct {
	id      string
	req     models.TaskRequest
	phase   Phase
	started time.Time
	history []Phase
}

func newTaskRun(req models.TaskRequest) *taskRun {
	return &taskRun{
		id:      uuid.New().String(),
		req:     req,
		phase:   PhaseIdle,
		history: []Phase{PhaseIdle},
	}
}

// advance moves the run to next, rejecting transitions the lifecycle does
// not allow. Idle may jump straight to Finalized when input is rejected.
func (r *taskRun) advance(next Phase) error {
	for _, p := range allowedTransitions[r.phase] {
		if p == next {
			if next == PhaseRunning {
				r.started = time.Now()
			}
			r.phase = next
			r.history = append(r.history, next)
			return nil
		}
	}
	return fmt.Errorf("task %s: illegal transition %s -> %s", r.id, r.phase, next)
}

// settle records how the process ended.
func (r *taskRun) settle(outcome *models.ProcessOutcome) error {
	switch {
	case outcome.TimedOut:
		return r.advance(PhaseTimedOut)
	case outcome.Killed():
		return r.advance(PhaseKilled)
	default:
		return r.advance(PhaseCompleted)
	}
}

func (r *taskRun) elapsed() time.Duration {
	if r.started.IsZero() {
		return 0
	}
	return time.Since(r.started)
}
