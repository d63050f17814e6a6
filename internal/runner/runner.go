// Package runner spawns one external process per call, collects its output
// and enforces a timeout.
//
// Ordinary failures (non-zero exit, timeout, kill) are reported in the
// returned ProcessOutcome. Run only returns an error when the process could
// not be started at all.
package runner

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"time"

	"github.com/harrison/xhsassist/internal/logger"
	"github.com/harrison/xhsassist/internal/models"
)

// ErrStart wraps every failure to launch a process.
var ErrStart = errors.New("failed to start process")

// DefaultWaitDelay bounds how long Run waits for the output pipes to drain
// after the process is gone.
const DefaultWaitDelay = 2 * time.Second

// Runner runs external commands. It holds no per-call state, so a single
// Runner can serve any number of concurrent invocations.
type Runner struct {
	// MaxOutputBytes caps each of stdout and stderr (0 = unbounded).
	MaxOutputBytes int64

	// WaitDelay is passed to exec.Cmd.WaitDelay (0 = DefaultWaitDelay).
	WaitDelay time.Duration

	// Logger receives start/finish events. Can be nil for silent operation.
	Logger logger.Logger
}

// New creates a Runner with an output cap and logger.
func New(maxOutputBytes int64, log logger.Logger) *Runner {
	return &Runner{MaxOutputBytes: maxOutputBytes, Logger: log}
}

// Run executes inv and blocks until the process exits, the invocation
// timeout elapses, or ctx is done. On timeout or cancellation the whole
// process group is killed and the outcome carries a nil ExitCode.
func (r *Runner) Run(ctx context.Context, inv models.ProcessInvocation) (*models.ProcessOutcome, error) {
	if err := inv.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStart, err)
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStart, err)
	}

	cmd := exec.Command(inv.InterpreterPath, inv.Argv()...)
	cmd.Dir = inv.WorkingDir
	cmd.Env = processEnvironment(inv.Env)
	cmd.WaitDelay = r.WaitDelay
	if cmd.WaitDelay <= 0 {
		cmd.WaitDelay = DefaultWaitDelay
	}
	setProcessGroup(cmd)

	stdout := newOutputBuffer(r.MaxOutputBytes)
	stderr := newOutputBuffer(r.MaxOutputBytes)
	cmd.Stdout = stdout
	cmd.Stderr = stderr

	r.logDebug(fmt.Sprintf("spawn: %s (timeout %s)", inv.String(), timeoutLabel(inv.Timeout)))

	start := time.Now()
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrStart, inv.InterpreterPath, err)
	}

	sup := newSupervisor(func() error { return killProcessGroup(cmd) })
	sup.begin()

	done := make(chan error, 1)
	go func() {
		err := cmd.Wait()
		// from here on a firing timer is a no-op
		sup.exited()
		done <- err
	}()

	var timer *time.Timer
	if inv.Timeout > 0 {
		timer = time.AfterFunc(inv.Timeout, func() {
			if sup.expire() {
				r.logDebug(fmt.Sprintf("timeout after %s, killed pid %d", inv.Timeout, cmd.Process.Pid))
			}
		})
	}

	var waitErr error
	select {
	case waitErr = <-done:
	case <-ctx.Done():
		sup.cancel()
		waitErr = <-done
	}
	if timer != nil {
		timer.Stop()
	}

	outcome := &models.ProcessOutcome{
		Stdout:          stdout.String(),
		Stderr:          stderr.String(),
		Duration:        time.Since(start),
		StdoutTruncated: stdout.Truncated(),
		StderrTruncated: stderr.Truncated(),
	}

	switch sup.State() {
	case StateTimedOut:
		outcome.TimedOut = true
	case StateKilled:
		outcome.TimedOut = errors.Is(ctx.Err(), context.DeadlineExceeded)
	default:
		outcome.ExitCode = exitCodeOf(waitErr)
	}

	r.logDebug(fmt.Sprintf("exit: %s code=%s timed_out=%t duration=%s stdout=%dB stderr=%dB",
		inv.InterpreterPath, outcome.ExitCodeString(), outcome.TimedOut,
		outcome.Duration.Round(time.Millisecond), stdout.Written(), stderr.Written()))

	return outcome, nil
}

// exitCodeOf maps the result of cmd.Wait to an exit code. A process that
// died from a signal has no exit code.
func exitCodeOf(err error) *int {
	if err == nil {
		return models.IntPtr(0)
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		if code := exitErr.ExitCode(); code >= 0 {
			return models.IntPtr(code)
		}
		return nil
	}
	// ErrWaitDelay: the process exited but left its pipes open
	if errors.Is(err, exec.ErrWaitDelay) {
		return models.IntPtr(0)
	}
	return nil
}

func timeoutLabel(d time.Duration) string {
	if d <= 0 {
		return "none"
	}
	return d.String()
}

func (r *Runner) logDebug(msg string) {
	if r.Logger != nil {
		r.Logger.LogDebug(msg)
	}
}
