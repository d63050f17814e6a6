// Package usage keeps an append-only log of helper and model calls in a
// JSON file and summarizes it.
package usage

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/harrison/xhsassist/internal/filelock"
	"github.com/harrison/xhsassist/internal/logger"
	"github.com/harrison/xhsassist/internal/models"
)

// DefaultMaxEntries is how many entries are kept when none is configured.
const DefaultMaxEntries = 1000

// RecentCount is the number of entries returned in Stats.Recent.
const RecentCount = 10

// Entry statuses
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Entry is one recorded call.
type Entry struct {
	Timestamp        time.Time `json:"timestamp"`
	Task             string    `json:"task"`
	Model            string    `json:"model"`
	ProcessingTimeMs int64     `json:"processingTime"`
	Status           string    `json:"status"`
	Category         string    `json:"category,omitempty"`
	InputLength      int       `json:"inputLength"`
	OutputLength     int       `json:"outputLength"`
}

// ProcessingTime returns the entry's duration.
func (e Entry) ProcessingTime() time.Duration {
	return time.Duration(e.ProcessingTimeMs) * time.Millisecond
}

// Tracker appends entries to a JSON array file. Writers in different
// processes are serialized by a sidecar lock file.
type Tracker struct {
	path       string
	maxEntries int
	logger     logger.Logger
	now        func() time.Time
}

// NewTracker creates a tracker writing to path and keeping the newest
// maxEntries entries (DefaultMaxEntries when <= 0).
func NewTracker(path string, maxEntries int, log logger.Logger) *Tracker {
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}
	if log == nil {
		log = logger.NopLogger{}
	}
	return &Tracker{path: path, maxEntries: maxEntries, logger: log, now: time.Now}
}

// Path returns the log file location.
func (t *Tracker) Path() string {
	return t.path
}

// Record appends e, stamping it with the current time when unset.
func (t *Tracker) Record(ctx context.Context, e Entry) error {
	if e.Timestamp.IsZero() {
		e.Timestamp = t.now()
	}
	err := filelock.Update(ctx, t.path, func(current []byte) ([]byte, error) {
		entries, err := decode(current)
		if err != nil {
			// keep the unreadable file for inspection and start over
			backup := t.path + ".corrupt"
			if werr := os.WriteFile(backup, current, 0644); werr != nil {
				return nil, fmt.Errorf("usage log is corrupt and backup failed: %w", werr)
			}
			t.logger.LogWarn(fmt.Sprintf("usage log %s unreadable (%v), moved to %s", t.path, err, backup))
			entries = nil
		}
		entries = append(entries, e)
		if len(entries) > t.maxEntries {
			entries = entries[len(entries)-t.maxEntries:]
		}
		return json.MarshalIndent(entries, "", "  ")
	})
	if err != nil {
		return fmt.Errorf("record usage: %w", err)
	}
	t.logger.LogDebug(fmt.Sprintf("usage recorded: %s %s %s (%dms)", e.Model, e.Task, e.Status, e.ProcessingTimeMs))
	return nil
}

// RecordReport records a finished orchestrated task.
func (t *Tracker) RecordReport(ctx context.Context, r models.TaskReport) error {
	e := Entry{
		Timestamp:        r.StartedAt,
		Task:             string(r.Kind),
		Model:            ModelFor(r.Kind),
		ProcessingTimeMs: r.Duration.Milliseconds(),
		Status:           StatusSuccess,
		InputLength:      r.InputLen,
		OutputLength:     len(r.Payload),
	}
	if !r.Succeeded() {
		e.Status = StatusError
		e.Category = string(r.Category())
	}
	return t.Record(ctx, e)
}

// ModelFor names the backend that serves a task kind.
func ModelFor(kind models.TaskKind) string {
	if kind == models.TaskAnalyze {
		return "claude"
	}
	return "python"
}

// Entries returns every stored entry, oldest first.
func (t *Tracker) Entries(ctx context.Context) ([]Entry, error) {
	data, err := filelock.Read(ctx, t.path)
	if err != nil {
		return nil, err
	}
	entries, err := decode(data)
	if err != nil {
		return nil, fmt.Errorf("usage log %s: %w", t.path, err)
	}
	return entries, nil
}

func decode(data []byte) ([]Entry, error) {
	if len(data) == 0 {
		return nil, nil
	}
	var entries []Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("decode usage entries: %w", err)
	}
	return entries, nil
}

// Stats summarizes the whole log.
type Stats struct {
	TotalCalls           int            `json:"totalCalls"`
	SuccessRate          float64        `json:"successRate"` // percent, 100 when empty
	TaskDistribution     map[string]int `json:"taskDistribution"`
	ModelDistribution    map[string]int `json:"modelDistribution"`
	CategoryDistribution map[string]int `json:"categoryDistribution"`
	AvgResponseTime      time.Duration  `json:"avgResponseTime"`
	Recent               []Entry        `json:"recentCalls"` // newest first
}

// TodayStats counts calls made since local midnight.
type TodayStats struct {
	Calls int            `json:"todayCalls"`
	Tasks map[string]int `json:"todayTasks"`
	Model map[string]int `json:"todayModels"`
}

// Stats computes totals over every stored entry.
func (t *Tracker) Stats(ctx context.Context) (Stats, error) {
	entries, err := t.Entries(ctx)
	if err != nil {
		return Stats{}, err
	}
	return Summarize(entries), nil
}

// Summarize computes Stats from entries ordered oldest first.
func Summarize(entries []Entry) Stats {
	s := Stats{
		TotalCalls:           len(entries),
		SuccessRate:          100,
		TaskDistribution:     map[string]int{},
		ModelDistribution:    map[string]int{},
		CategoryDistribution: map[string]int{},
		Recent:               []Entry{},
	}
	if len(entries) == 0 {
		return s
	}

	var ok int
	var total time.Duration
	for _, e := range entries {
		if e.Status == StatusSuccess {
			ok++
		}
		s.TaskDistribution[e.Task]++
		s.ModelDistribution[e.Model]++
		if e.Category != "" {
			s.CategoryDistribution[e.Category]++
		}
		total += e.ProcessingTime()
	}
	s.SuccessRate = float64(ok) * 100 / float64(len(entries))
	s.AvgResponseTime = total / time.Duration(len(entries))

	for i := len(entries) - 1; i >= 0 && len(s.Recent) < RecentCount; i-- {
		s.Recent = append(s.Recent, entries[i])
	}
	return s
}

// TodayStats counts the entries recorded today in local time.
func (t *Tracker) TodayStats(ctx context.Context) (TodayStats, error) {
	entries, err := t.Entries(ctx)
	if err != nil {
		return TodayStats{}, err
	}
	now := t.now()
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	ts := TodayStats{Tasks: map[string]int{}, Model: map[string]int{}}
	for _, e := range entries {
		if e.Timestamp.Before(midnight) {
			continue
		}
		ts.Calls++
		ts.Tasks[e.Task]++
		ts.Model[e.Model]++
	}
	return ts, nil
}

// SortedKeys returns the keys of a distribution ordered by count, then name.
func SortedKeys(dist map[string]int) []string {
	keys := make([]string, 0, len(dist))
	for k := range dist {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if dist[keys[i]] != dist[keys[j]] {
			return dist[keys[i]] > dist[keys[j]]
		}
		return keys[i] < keys[j]
	})
	return keys
}
