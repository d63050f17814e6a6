package models

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// ProcessInvocation describes one external command to run.
// It is immutable once built; use NewInvocation or Clone to get a private copy.
type ProcessInvocation struct {
	InterpreterPath string            // Executable to spawn (python, claude, ...)
	ScriptPath      string            // Script passed as the first argument (optional)
	Args            []string          // Positional arguments after the script
	WorkingDir      string            // Working directory for the child (optional)
	Env             map[string]string // Environment overrides merged on top of os.Environ()
	Timeout         time.Duration     // Upper bound on the run, 0 = none
}

// NewInvocation builds a ProcessInvocation that does not share its slices
// or maps with the caller.
func NewInvocation(interpreter, script string, args []string, workDir string, env map[string]string, timeout time.Duration) ProcessInvocation {
	inv := ProcessInvocation{
		InterpreterPath: interpreter,
		ScriptPath:      script,
		Args:            append([]string(nil), args...),
		WorkingDir:      workDir,
		Timeout:         timeout,
	}
	if len(env) > 0 {
		inv.Env = make(map[string]string, len(env))
		for k, v := range env {
			inv.Env[k] = v
		}
	}
	return inv
}

// Clone returns a deep copy of the invocation.
func (p ProcessInvocation) Clone() ProcessInvocation {
	return NewInvocation(p.InterpreterPath, p.ScriptPath, p.Args, p.WorkingDir, p.Env, p.Timeout)
}

// Argv returns the arguments passed to the interpreter: the script path
// (when set) followed by Args.
func (p ProcessInvocation) Argv() []string {
	argv := make([]string, 0, len(p.Args)+1)
	if p.ScriptPath != "" {
		argv = append(argv, p.ScriptPath)
	}
	return append(argv, p.Args...)
}

// Validate checks the fields required to spawn a process.
func (p ProcessInvocation) Validate() error {
	if strings.TrimSpace(p.InterpreterPath) == "" {
		return fmt.Errorf("interpreter path is required")
	}
	if p.Timeout < 0 {
		return fmt.Errorf("timeout must be >= 0, got %v", p.Timeout)
	}
	return nil
}

// String renders the command line for logs. Environment values are never
// printed, only their keys.
func (p ProcessInvocation) String() string {
	var sb strings.Builder
	sb.WriteString(p.InterpreterPath)
	for _, a := range p.Argv() {
		sb.WriteByte(' ')
		sb.WriteString(a)
	}
	if len(p.Env) > 0 {
		keys := make([]string, 0, len(p.Env))
		for k := range p.Env {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		fmt.Fprintf(&sb, " (env: %s)", strings.Join(keys, ","))
	}
	return sb.String()
}

// ProcessOutcome is what the runner observed when the process ended.
type ProcessOutcome struct {
	ExitCode        *int          // nil when the process was killed
	Stdout          string        // Accumulated standard output
	Stderr          string        // Accumulated standard error
	TimedOut        bool          // Killed because the timeout elapsed
	Duration        time.Duration // Wall time from start to finish
	StdoutTruncated bool          // Stdout exceeded the buffer cap
	StderrTruncated bool          // Stderr exceeded the buffer cap
}

// Killed reports whether the process ended without an exit code.
func (o *ProcessOutcome) Killed() bool {
	return o.ExitCode == nil
}

// Succeeded reports whether the process exited with code 0.
func (o *ProcessOutcome) Succeeded() bool {
	return o.ExitCode != nil && *o.ExitCode == 0
}

// ExitCodeString renders the exit code, or "killed".
func (o *ProcessOutcome) ExitCodeString() string {
	if o.ExitCode == nil {
		return "killed"
	}
	return fmt.Sprintf("%d", *o.ExitCode)
}

// IntPtr returns a pointer to v.
func IntPtr(v int) *int {
	return &v
}
