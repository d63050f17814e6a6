package runner

import "sync/atomic"

// State is the lifecycle position of one supervised process.
type State int32

// Supervisor states. Completed, TimedOut and Killed are terminal.
const (
	StateIdle State = iota
	StateRunning
	StateCompleted
	StateTimedOut
	StateKilled
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StateCompleted:
		return "completed"
	case StateTimedOut:
		return "timed_out"
	case StateKilled:
		return "killed"
	default:
		return "unknown"
	}
}

// supervisor arbitrates between the process exiting on its own and the
// runner killing it. Every terminal transition is a compare-and-swap from
// Running, so exactly one of exit/timeout/cancel wins and the kill function
// runs at most once.
type supervisor struct {
	state atomic.Int32
	kills atomic.Int32
	kill  func() error
}

func newSupervisor(kill func() error) *supervisor {
	return &supervisor{kill: kill}
}

// State returns the current state.
func (s *supervisor) State() State {
	return State(s.state.Load())
}

// begin moves Idle to Running. It fails if the supervisor was already used.
func (s *supervisor) begin() bool {
	return s.state.CompareAndSwap(int32(StateIdle), int32(StateRunning))
}

// exited is called when the process has been reaped. It returns false when a
// kill already finalized the run.
func (s *supervisor) exited() bool {
	return s.state.CompareAndSwap(int32(StateRunning), int32(StateCompleted))
}

// expire is called by the timeout timer.
func (s *supervisor) expire() bool {
	return s.terminate(StateTimedOut)
}

// cancel is called when the caller's context is done.
func (s *supervisor) cancel() bool {
	return s.terminate(StateKilled)
}

func (s *supervisor) terminate(to State) bool {
	if !s.state.CompareAndSwap(int32(StateRunning), int32(to)) {
		return false
	}
	s.kills.Add(1)
	if s.kill != nil {
		// the process may already be gone; nothing useful to do with the error
		_ = s.kill()
	}
	return true
}

// killCount reports how many kill signals were sent.
func (s *supervisor) killCount() int {
	return int(s.kills.Load())
}
