// Package claude runs note analysis and rewriting through the claude CLI.
// Calls go through the same process runner and result extractor as the
// Python helpers.
package claude

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/tidwall/gjson"

	"github.com/harrison/xhsassist/internal/extract"
	"github.com/harrison/xhsassist/internal/logger"
	"github.com/harrison/xhsassist/internal/models"
	"github.com/harrison/xhsassist/internal/orchestrator"
)

// Mode selects what the model is asked to do.
type Mode string

// Modes
const (
	ModeAnalyze  Mode = "analyze"
	ModeGenerate Mode = "generate"
)

// ParseMode validates a mode name.
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case ModeAnalyze:
		return ModeAnalyze, nil
	case ModeGenerate:
		return ModeGenerate, nil
	}
	return "", fmt.Errorf("unknown mode %q (want analyze or generate)", s)
}

// Input limits, counted in characters.
const (
	MinContentLength = 10
	MaxContentLength = 10000
	MaxTopicLength   = 200
)

// Timeout message for analyze runs.
const MsgTimeout = "analysis timed out; try shorter content or retry later"

// Request is one analyze or generate call.
type Request struct {
	Mode     Mode
	Content  string
	Topic    string // generate only
	Keywords string // generate only, optional
	Deep     bool
	Thinking bool
}

// Validate checks lengths and required fields. Errors are InvalidInput.
func (r Request) Validate() error {
	n := utf8.RuneCountInString(strings.TrimSpace(r.Content))
	if n < MinContentLength || n > MaxContentLength {
		return models.NewTaskError(models.CategoryInvalidInput,
			fmt.Sprintf("content must be %d to %d characters, got %d", MinContentLength, MaxContentLength, n))
	}
	switch r.Mode {
	case ModeAnalyze:
	case ModeGenerate:
		t := utf8.RuneCountInString(strings.TrimSpace(r.Topic))
		if t < 1 || t > MaxTopicLength {
			return models.NewTaskError(models.CategoryInvalidInput,
				fmt.Sprintf("topic must be 1 to %d characters", MaxTopicLength))
		}
	default:
		return models.NewTaskError(models.CategoryInvalidInput, fmt.Sprintf("unknown mode %q", r.Mode))
	}
	return nil
}

// Prompt renders the user prompt for the request.
func (r Request) Prompt() string {
	content := strings.TrimSpace(r.Content)
	if r.Mode == ModeGenerate {
		return BuildGeneratePrompt(content, strings.TrimSpace(r.Topic), r.Keywords, r.Deep, r.Thinking)
	}
	return BuildAnalyzePrompt(content, r.Deep, r.Thinking)
}

// Result is the model's answer.
type Result struct {
	RunID     string          `json:"run_id"`
	Mode      Mode            `json:"mode"`
	Topic     string          `json:"topic,omitempty"`
	Text      string          `json:"text"`
	Thinking  string          `json:"thinking,omitempty"`
	Notes     []GeneratedNote `json:"notes,omitempty"`
	SessionID string          `json:"session_id,omitempty"`
	CostUSD   float64         `json:"cost_usd,omitempty"`
	Duration  time.Duration   `json:"duration"`
}

// Analyzer invokes the claude CLI. It is safe for concurrent use once
// configured.
type Analyzer struct {
	// ClaudePath is the claude binary (default "claude").
	ClaudePath string

	// Timeout bounds each call (0 = none).
	Timeout time.Duration

	// SystemPrompt defaults to DefaultSystemPrompt.
	SystemPrompt string

	// WorkDir is the working directory of the CLI process.
	WorkDir string

	// DetailLimit caps RawDetail in bytes.
	DetailLimit int

	exec      orchestrator.Executor
	logger    logger.TaskLogger
	observers []orchestrator.Observer
}

// NewAnalyzer creates an Analyzer that spawns the CLI through exec.
func NewAnalyzer(exec orchestrator.Executor, claudePath string, timeout time.Duration, log logger.TaskLogger) *Analyzer {
	if log == nil {
		log = logger.NopLogger{}
	}
	if claudePath == "" {
		claudePath = "claude"
	}
	return &Analyzer{
		ClaudePath:   claudePath,
		Timeout:      timeout,
		SystemPrompt: DefaultSystemPrompt,
		DetailLimit:  orchestrator.DefaultDetailLimit,
		exec:         exec,
		logger:       log,
	}
}

// Observe registers fn to receive a report after each call.
func (a *Analyzer) Observe(fn orchestrator.Observer) {
	if fn != nil {
		a.observers = append(a.observers, fn)
	}
}

// Invocation returns the process invocation for req without running it.
func (a *Analyzer) Invocation(req Request) models.ProcessInvocation {
	system := a.SystemPrompt
	if system == "" {
		system = DefaultSystemPrompt
	}
	args := []string{
		"--system-prompt", system,
		"-p", req.Prompt(),
		"--output-format", "json",
		"--settings", `{"disableAllHooks": true}`,
	}
	return models.NewInvocation(a.ClaudePath, "", args, a.WorkDir, cliEnv(), a.Timeout)
}

// Run validates req, calls the CLI and decodes its answer. Any error is a
// *models.TaskError.
func (a *Analyzer) Run(ctx context.Context, req Request) (*Result, error) {
	runID := uuid.New().String()
	started := time.Now()
	a.logger.LogTaskStart(models.TaskAnalyze, runID, string(req.Mode))

	res, terr := a.run(ctx, runID, req)
	duration := time.Since(started)

	report := models.TaskReport{
		RunID:     runID,
		Kind:      models.TaskAnalyze,
		Target:    describe(req),
		StartedAt: started,
		Duration:  duration,
		InputLen:  utf8.RuneCountInString(req.Content),
	}
	var err error
	if terr != nil {
		report.Err = terr
		err = terr
	} else {
		res.Duration = duration
		report.Strategy = "result"
		if payload, merr := json.Marshal(res); merr == nil {
			report.Payload = payload
		}
	}
	a.logger.LogTaskDone(models.TaskAnalyze, runID, duration, err)
	for _, obs := range a.observers {
		obs(report)
	}

	if terr != nil {
		return nil, terr
	}
	return res, nil
}

func (a *Analyzer) run(ctx context.Context, runID string, req Request) (*Result, *models.TaskError) {
	if err := req.Validate(); err != nil {
		te, _ := models.AsTaskError(err)
		return nil, te
	}

	outcome, err := a.exec.Run(ctx, a.Invocation(req))
	if err != nil {
		if terr := orchestrator.ContextError(ctx.Err(), MsgTimeout); terr != nil {
			return nil, terr
		}
		return nil, models.NewTaskError(models.CategoryProcessFailure, "could not start the claude CLI").
			WithDetail(models.Truncate(err.Error(), a.DetailLimit)).
			WithCause(err)
	}

	detail := models.Truncate(strings.TrimSpace(outcome.Stderr+"\n"+outcome.Stdout), a.DetailLimit)
	switch {
	case outcome.TimedOut:
		return nil, models.NewTaskError(models.CategoryTimeout, MsgTimeout).WithDetail(detail)
	case outcome.ExitCode == nil:
		return nil, models.NewTaskError(models.CategoryCancelled, orchestrator.MsgCancelled).WithDetail(detail)
	case *outcome.ExitCode != 0:
		if rl := DetectRateLimit(outcome.Stderr+"\n"+outcome.Stdout, time.Now()); rl != nil {
			return nil, models.NewTaskError(models.CategoryProcessFailure, rl.Message()).
				WithDetail(detail).
				WithExitCode(outcome.ExitCode)
		}
		return nil, models.NewTaskError(models.CategoryProcessFailure,
			fmt.Sprintf("claude CLI failed with exit code %d", *outcome.ExitCode)).
			WithDetail(detail).
			WithExitCode(outcome.ExitCode)
	}

	extracted := extract.Extract(outcome.Stdout)
	if !extracted.OK() {
		return nil, models.NewTaskError(models.CategoryParseFailure, "claude CLI returned no JSON result").
			WithDetail(detail).
			WithExitCode(outcome.ExitCode)
	}
	raw := extracted.Payload()

	if gjson.GetBytes(raw, "is_error").Bool() {
		msg, _ := extract.FirstString(raw, "result", "error")
		if rl := DetectRateLimit(msg, time.Now()); rl != nil {
			msg = rl.Message()
		}
		return nil, models.NewTaskError(models.CategoryParseFailure, "claude reported an error: "+models.Truncate(msg, 200)).
			WithDetail(detail).
			WithExitCode(outcome.ExitCode)
	}

	text, ok := extract.FirstString(raw, "result", "content")
	if !ok {
		return nil, models.NewTaskError(models.CategoryParseFailure, "claude result has no text").
			WithDetail(models.Truncate(string(raw), a.DetailLimit)).
			WithExitCode(outcome.ExitCode)
	}

	res := &Result{
		RunID:     runID,
		Mode:      req.Mode,
		Text:      strings.TrimSpace(text),
		SessionID: gjson.GetBytes(raw, "session_id").String(),
		CostUSD:   gjson.GetBytes(raw, "total_cost_usd").Float(),
	}
	if req.Mode == ModeGenerate {
		res.Topic = strings.TrimSpace(req.Topic)
	}
	if req.Thinking {
		res.Thinking, res.Text = SplitThinking(res.Text)
	}
	if req.Mode == ModeGenerate {
		res.Notes = ParseGeneratedNotes(res.Text)
	}
	return res, nil
}

func describe(req Request) string {
	if req.Mode == ModeGenerate {
		return fmt.Sprintf("generate: %s", models.Truncate(strings.TrimSpace(req.Topic), 60))
	}
	first, _, _ := strings.Cut(strings.TrimSpace(req.Content), "\n")
	return fmt.Sprintf("analyze: %s", models.Truncate(first, 60))
}
