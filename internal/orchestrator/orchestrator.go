// Package orchestrator turns a TaskRequest into one helper process run and
// classifies the result. It owns argument building, input validation, the
// per-task exit code policy and envelope decoding.
package orchestrator

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/harrison/xhsassist/internal/extract"
	"github.com/harrison/xhsassist/internal/logger"
	"github.com/harrison/xhsassist/internal/models"
)

// Environment variables passed to the helpers.
const (
	EnvCookies  = "XHS_COOKIES"
	EnvEncoding = "PYTHONIOENCODING"
)

// DefaultDetailLimit caps RawDetail in bytes.
const DefaultDetailLimit = 500

// Executor runs one process invocation. *runner.Runner satisfies it.
type Executor interface {
	Run(ctx context.Context, inv models.ProcessInvocation) (*models.ProcessOutcome, error)
}

// Settings locates the helpers and bounds their run time.
type Settings struct {
	PythonPath        string
	CrawlerScript     string
	TranscriberScript string
	WorkDir           string
	FetchTimeout      time.Duration
	TranscribeTimeout time.Duration
	DetailLimit       int
}

// DefaultSettings returns the settings used when no config file exists.
func DefaultSettings() Settings {
	return Settings{
		PythonPath:        "python3",
		CrawlerScript:     "crawler_api.py",
		TranscriberScript: "video_transcriber.py",
		FetchTimeout:      60 * time.Second,
		TranscribeTimeout: 10 * time.Minute,
		DetailLimit:       DefaultDetailLimit,
	}
}

// Observer is told about every finished task.
type Observer func(models.TaskReport)

// Orchestrator runs transcription and crawl tasks. It is safe for
// concurrent use once configured.
type Orchestrator struct {
	exec      Executor
	settings  Settings
	policies  map[models.TaskKind]ExitPolicy
	logger    logger.TaskLogger
	observers []Observer
}

// New creates an Orchestrator with the default exit policy for every kind.
func New(exec Executor, settings Settings, log logger.TaskLogger) *Orchestrator {
	if log == nil {
		log = logger.NopLogger{}
	}
	if settings.DetailLimit <= 0 {
		settings.DetailLimit = DefaultDetailLimit
	}
	return &Orchestrator{
		exec:     exec,
		settings: settings,
		policies: map[models.TaskKind]ExitPolicy{
			models.TaskTranscribe:   DefaultExitPolicy(),
			models.TaskFetchNote:    DefaultExitPolicy(),
			models.TaskFetchProfile: DefaultExitPolicy(),
		},
		logger: log,
	}
}

// SetExitPolicy replaces the exit code policy of one task kind.
func (o *Orchestrator) SetExitPolicy(kind models.TaskKind, policy ExitPolicy) {
	o.policies[kind] = policy
}

// ExitPolicy returns the policy in effect for kind.
func (o *Orchestrator) ExitPolicy(kind models.TaskKind) ExitPolicy {
	if p, ok := o.policies[kind]; ok {
		return p
	}
	return DefaultExitPolicy()
}

// Observe registers fn to receive a report after each task. Register
// observers before running tasks.
func (o *Orchestrator) Observe(fn Observer) {
	if fn != nil {
		o.observers = append(o.observers, fn)
	}
}

// Run executes req and returns the helper's data payload. Any error is a
// *models.TaskError.
func (o *Orchestrator) Run(ctx context.Context, req models.TaskRequest) (json.RawMessage, error) {
	report := o.Execute(ctx, req)
	if report.Err != nil {
		return nil, report.Err
	}
	return report.Payload, nil
}

// Execute is Run with the full report.
func (o *Orchestrator) Execute(ctx context.Context, req models.TaskRequest) models.TaskReport {
	run := newTaskRun(req)
	o.logger.LogTaskStart(req.Kind, run.id, req.URL)

	report := o.execute(ctx, run)
	if err := run.advance(PhaseFinalized); err != nil {
		o.logger.LogWarn(err.Error())
	}

	var err error
	if report.Err != nil {
		err = report.Err
	}
	o.logger.LogTaskDone(req.Kind, run.id, report.Duration, err)

	for _, obs := range o.observers {
		obs(report)
	}
	return report
}

func (o *Orchestrator) execute(ctx context.Context, run *taskRun) models.TaskReport {
	report := models.TaskReport{
		RunID:     run.id,
		Kind:      run.req.Kind,
		Target:    run.req.URL,
		StartedAt: time.Now(),
		InputLen:  len(run.req.URL),
	}

	inv, terr := o.buildInvocation(run.req)
	if terr != nil {
		report.Err = terr
		return report
	}

	if err := run.advance(PhaseRunning); err != nil {
		report.Err = models.NewTaskError(models.CategoryProcessFailure, MsgStartFailure).WithCause(err)
		return report
	}
	outcome, err := o.exec.Run(ctx, inv)
	report.Duration = run.elapsed()
	if err != nil {
		if terr := ContextError(ctx.Err(), MsgTimeout); terr != nil {
			report.Err = terr
			return report
		}
		report.Err = models.NewTaskError(models.CategoryProcessFailure, MsgStartFailure).
			WithDetail(models.Truncate(err.Error(), o.settings.DetailLimit)).
			WithCause(err)
		return report
	}
	if err := run.settle(outcome); err != nil {
		o.logger.LogWarn(err.Error())
	}
	report.ExitCode = outcome.ExitCode

	o.logOutput(run, outcome)
	payload, strategy, terr := o.classify(run.req.Kind, outcome)
	if terr != nil {
		report.Err = terr
		return report
	}
	report.Payload = payload
	report.Strategy = strategy
	return report
}

// BuildInvocation validates req and returns the invocation Run would spawn.
func (o *Orchestrator) BuildInvocation(req models.TaskRequest) (models.ProcessInvocation, error) {
	inv, terr := o.buildInvocation(req)
	if terr != nil {
		return models.ProcessInvocation{}, terr
	}
	return inv, nil
}

func (o *Orchestrator) buildInvocation(req models.TaskRequest) (models.ProcessInvocation, *models.TaskError) {
	link := strings.TrimSpace(req.URL)
	if err := ValidateURL(link); err != nil {
		return models.ProcessInvocation{}, invalidInput(err)
	}

	env := map[string]string{EnvEncoding: "utf-8"}
	var script string
	var args []string
	var timeout time.Duration

	switch req.Kind {
	case models.TaskTranscribe:
		script = o.settings.TranscriberScript
		args = []string{link}
		timeout = o.settings.TranscribeTimeout
	case models.TaskFetchNote:
		if _, err := PostID(link); err != nil {
			return models.ProcessInvocation{}, invalidInput(err)
		}
		script = o.settings.CrawlerScript
		args = []string{"note", link}
		timeout = o.settings.FetchTimeout
	case models.TaskFetchProfile:
		if _, err := UserID(link); err != nil {
			return models.ProcessInvocation{}, invalidInput(err)
		}
		limit, err := NormalizeLimit(req.Limit)
		if err != nil {
			return models.ProcessInvocation{}, invalidInput(err)
		}
		script = o.settings.CrawlerScript
		args = []string{"user", link, strconv.Itoa(limit)}
		timeout = o.settings.FetchTimeout
	default:
		return models.ProcessInvocation{}, invalidInput(fmt.Errorf("unsupported task kind %q", req.Kind))
	}

	if req.Kind != models.TaskTranscribe && !req.Credentials.Empty() {
		cookies, err := req.Credentials.Encode()
		if err != nil {
			return models.ProcessInvocation{}, invalidInput(err)
		}
		env[EnvCookies] = cookies
	}

	return models.NewInvocation(o.settings.PythonPath, script, args, o.settings.WorkDir, env, timeout), nil
}

func invalidInput(err error) *models.TaskError {
	return models.NewTaskError(models.CategoryInvalidInput, fmt.Sprintf("%s: %v", MsgInvalidInput, err)).WithCause(err)
}

// classify maps a process outcome to a payload or a TaskError.
func (o *Orchestrator) classify(kind models.TaskKind, outcome *models.ProcessOutcome) (json.RawMessage, string, *models.TaskError) {
	detail := o.detail(outcome)

	switch {
	case outcome.TimedOut:
		return nil, "", models.NewTaskError(models.CategoryTimeout, MsgTimeout).WithDetail(detail)
	case outcome.ExitCode == nil:
		return nil, "", models.NewTaskError(models.CategoryCancelled, MsgCancelled).WithDetail(detail)
	case *outcome.ExitCode != 0:
		if diag := extract.Diagnostic(outcome.Stdout); diag != "" {
			o.logger.LogDebug(fmt.Sprintf("%s helper reported: %s", kind, models.Truncate(diag, o.settings.DetailLimit)))
		}
		rule := o.ExitPolicy(kind).Classify(*outcome.ExitCode)
		return nil, "", models.NewTaskError(rule.Category, rule.Message).
			WithDetail(detail).
			WithExitCode(outcome.ExitCode)
	}

	res := extract.Extract(outcome.Stdout)
	if !res.OK() {
		return nil, "", models.NewTaskError(models.CategoryParseFailure, MsgParseFailure).
			WithDetail(res.Reason() + ": " + models.Truncate(outcome.Stdout, o.settings.DetailLimit)).
			WithExitCode(outcome.ExitCode)
	}

	env, err := extract.DecodeEnvelope(res.Payload())
	if err != nil {
		return nil, "", models.NewTaskError(models.CategoryParseFailure, MsgParseFailure).
			WithDetail(models.Truncate(string(res.Payload()), o.settings.DetailLimit)).
			WithExitCode(outcome.ExitCode).
			WithCause(err)
	}
	if !env.Success {
		msg := MsgParseFailure
		if env.Error != "" {
			msg = "helper reported failure: " + models.Truncate(env.Error, 200)
		}
		return nil, "", models.NewTaskError(models.CategoryParseFailure, msg).
			WithDetail(models.Truncate(env.Error, o.settings.DetailLimit)).
			WithExitCode(outcome.ExitCode)
	}
	if env.Data == nil {
		return nil, "", models.NewTaskError(models.CategoryParseFailure, "helper result has no data").
			WithDetail(models.Truncate(string(res.Payload()), o.settings.DetailLimit)).
			WithExitCode(outcome.ExitCode)
	}
	return env.Data, res.Strategy(), nil
}

func (o *Orchestrator) detail(outcome *models.ProcessOutcome) string {
	text := strings.TrimSpace(outcome.Stderr)
	if text == "" {
		text = strings.TrimSpace(outcome.Stdout)
	}
	return models.Truncate(text, o.settings.DetailLimit)
}

func (o *Orchestrator) logOutput(run *taskRun, outcome *models.ProcessOutcome) {
	id := run.id
	if len(id) > 8 {
		id = id[:8]
	}
	if s := strings.TrimSpace(outcome.Stdout); s != "" {
		o.logger.LogTrace(fmt.Sprintf("[%s] stdout: %s", id, models.Truncate(s, o.settings.DetailLimit)))
	}
	if s := strings.TrimSpace(outcome.Stderr); s != "" {
		o.logger.LogDebug(fmt.Sprintf("[%s] stderr: %s", id, models.Truncate(s, o.settings.DetailLimit)))
	}
	o.logger.LogDebug(fmt.Sprintf("[%s] %s exit=%s phase=%s", id, run.req.Kind, outcome.ExitCodeString(), run.phase))
}

// Transcribe converts a video link to text.
func (o *Orchestrator) Transcribe(ctx context.Context, link string) (*models.Transcript, error) {
	data, err := o.Run(ctx, models.TaskRequest{Kind: models.TaskTranscribe, URL: link})
	if err != nil {
		return nil, err
	}
	var t models.Transcript
	if err := json.Unmarshal(data, &t); err != nil {
		return nil, decodeError(data, err)
	}
	if t.URL == "" {
		t.URL = link
	}
	return &t, nil
}

// FetchNote fetches one note. The crawler may return either a posts list or
// a bare post object.
func (o *Orchestrator) FetchNote(ctx context.Context, link string, creds models.CredentialSet) (*models.Post, error) {
	data, err := o.Run(ctx, models.TaskRequest{Kind: models.TaskFetchNote, URL: link, Credentials: creds})
	if err != nil {
		return nil, err
	}
	return DecodeNote(data)
}

// DecodeNote reads a fetchNote payload: either {"posts":[...]} or a bare post.
func DecodeNote(data json.RawMessage) (*models.Post, error) {
	if posts := gjson.GetBytes(data, "posts"); posts.IsArray() {
		var payload models.NotePayload
		if err := json.Unmarshal(data, &payload); err != nil {
			return nil, decodeError(data, err)
		}
		if len(payload.Posts) == 0 {
			return nil, models.NewTaskError(models.CategoryParseFailure, "note not found in helper result")
		}
		return &payload.Posts[0], nil
	}
	var post models.Post
	if err := json.Unmarshal(data, &post); err != nil {
		return nil, decodeError(data, err)
	}
	return &post, nil
}

// FetchProfile fetches a user profile and up to limit of their posts.
func (o *Orchestrator) FetchProfile(ctx context.Context, link string, limit int, creds models.CredentialSet) (*models.ProfilePayload, error) {
	data, err := o.Run(ctx, models.TaskRequest{Kind: models.TaskFetchProfile, URL: link, Limit: limit, Credentials: creds})
	if err != nil {
		return nil, err
	}
	var p models.ProfilePayload
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, decodeError(data, err)
	}
	return &p, nil
}

func decodeError(data json.RawMessage, err error) *models.TaskError {
	return models.NewTaskError(models.CategoryParseFailure, "helper result has an unexpected shape").
		WithDetail(models.Truncate(string(data), DefaultDetailLimit)).
		WithCause(err)
}
