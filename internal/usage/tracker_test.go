package usage

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harrison/xhsassist/internal/models"
)

func newTestTracker(t *testing.T, max int) *Tracker {
	t.Helper()
	return NewTracker(filepath.Join(t.TempDir(), "logs", "api-usage.json"), max, nil)
}

func TestRecord_AppendsAndTrims(t *testing.T) {
	tr := newTestTracker(t, 3)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		require.NoError(t, tr.Record(ctx, Entry{Task: "transcribe", Model: "python", ProcessingTimeMs: int64(i), Status: StatusSuccess}))
	}

	entries, err := tr.Entries(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, int64(2), entries[0].ProcessingTimeMs, "oldest entries are dropped")
	assert.Equal(t, int64(4), entries[2].ProcessingTimeMs)
	assert.False(t, entries[0].Timestamp.IsZero())
}

func TestRecord_FileIsJSONArray(t *testing.T) {
	tr := newTestTracker(t, 0)
	require.NoError(t, tr.Record(context.Background(), Entry{Task: "analyze", Model: "claude", Status: StatusError, Category: "Timeout"}))

	data, err := os.ReadFile(tr.Path())
	require.NoError(t, err)
	var raw []map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))
	require.Len(t, raw, 1)
	assert.Equal(t, "claude", raw[0]["model"])
	assert.Equal(t, "Timeout", raw[0]["category"])
	assert.Contains(t, raw[0], "processingTime")
}

func TestRecord_CorruptFileIsSetAside(t *testing.T) {
	tr := newTestTracker(t, 0)
	require.NoError(t, os.MkdirAll(filepath.Dir(tr.Path()), 0755))
	require.NoError(t, os.WriteFile(tr.Path(), []byte("{not json"), 0644))

	require.NoError(t, tr.Record(context.Background(), Entry{Task: "fetchNote", Status: StatusSuccess}))

	entries, err := tr.Entries(context.Background())
	require.NoError(t, err)
	assert.Len(t, entries, 1)

	backup, err := os.ReadFile(tr.Path() + ".corrupt")
	require.NoError(t, err)
	assert.Equal(t, "{not json", string(backup))
}

func TestRecordReport(t *testing.T) {
	tr := newTestTracker(t, 0)
	ctx := context.Background()

	require.NoError(t, tr.RecordReport(ctx, models.TaskReport{
		Kind:     models.TaskFetchNote,
		Duration: 1500 * time.Millisecond,
		InputLen: 40,
		Payload:  json.RawMessage(`{"id":"x"}`),
	}))
	require.NoError(t, tr.RecordReport(ctx, models.TaskReport{
		Kind: models.TaskAnalyze,
		Err:  models.NewTaskError(models.CategoryTimeout, "slow"),
	}))

	entries, err := tr.Entries(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	assert.Equal(t, "fetchNote", entries[0].Task)
	assert.Equal(t, "python", entries[0].Model)
	assert.Equal(t, int64(1500), entries[0].ProcessingTimeMs)
	assert.Equal(t, StatusSuccess, entries[0].Status)
	assert.Equal(t, 10, entries[0].OutputLength)

	assert.Equal(t, "claude", entries[1].Model)
	assert.Equal(t, StatusError, entries[1].Status)
	assert.Equal(t, "Timeout", entries[1].Category)
}

func TestSummarize(t *testing.T) {
	t.Run("empty", func(t *testing.T) {
		s := Summarize(nil)
		assert.Equal(t, 0, s.TotalCalls)
		assert.Equal(t, float64(100), s.SuccessRate)
		assert.Empty(t, s.Recent)
		assert.NotNil(t, s.TaskDistribution)
	})

	t.Run("mixed", func(t *testing.T) {
		var entries []Entry
		for i := 0; i < 12; i++ {
			e := Entry{Task: "fetchNote", Model: "python", ProcessingTimeMs: 1000, Status: StatusSuccess, InputLength: i}
			if i%4 == 0 {
				e.Task = "analyze"
				e.Model = "claude"
				e.Status = StatusError
				e.Category = "ParseFailure"
				e.ProcessingTimeMs = 4000
			}
			entries = append(entries, e)
		}

		s := Summarize(entries)
		assert.Equal(t, 12, s.TotalCalls)
		assert.InDelta(t, 75.0, s.SuccessRate, 0.001)
		assert.Equal(t, map[string]int{"fetchNote": 9, "analyze": 3}, s.TaskDistribution)
		assert.Equal(t, map[string]int{"python": 9, "claude": 3}, s.ModelDistribution)
		assert.Equal(t, map[string]int{"ParseFailure": 3}, s.CategoryDistribution)
		assert.Equal(t, 1750*time.Millisecond, s.AvgResponseTime)

		require.Len(t, s.Recent, RecentCount)
		assert.Equal(t, 11, s.Recent[0].InputLength, "newest first")
		assert.Equal(t, 2, s.Recent[9].InputLength)
	})
}

func TestTodayStats(t *testing.T) {
	tr := newTestTracker(t, 0)
	fixed := time.Date(2026, 3, 14, 15, 0, 0, 0, time.Local)
	tr.now = func() time.Time { return fixed }
	ctx := context.Background()

	require.NoError(t, tr.Record(ctx, Entry{Timestamp: fixed.Add(-20 * time.Hour), Task: "transcribe", Model: "python"}))
	require.NoError(t, tr.Record(ctx, Entry{Timestamp: fixed.Add(-time.Hour), Task: "analyze", Model: "claude"}))
	require.NoError(t, tr.Record(ctx, Entry{Task: "analyze", Model: "claude"}))

	ts, err := tr.TodayStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, ts.Calls)
	assert.Equal(t, map[string]int{"analyze": 2}, ts.Tasks)
	assert.Equal(t, map[string]int{"claude": 2}, ts.Model)
}

func TestStats_MissingFile(t *testing.T) {
	tr := newTestTracker(t, 0)
	s, err := tr.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, s.TotalCalls)
}

func TestRecord_Concurrent(t *testing.T) {
	tr := newTestTracker(t, 0)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, tr.Record(ctx, Entry{Task: "fetchNote", Status: StatusSuccess}))
		}()
	}
	wg.Wait()

	entries, err := tr.Entries(ctx)
	require.NoError(t, err)
	assert.Len(t, entries, 20)
}

func TestSortedKeys(t *testing.T) {
	assert.Equal(t, []string{"b", "a", "c"}, SortedKeys(map[string]int{"a": 2, "b": 5, "c": 2}))
}
