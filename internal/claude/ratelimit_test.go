package claude

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetectRateLimit(t *testing.T) {
	shanghai, err := time.LoadLocation("Asia/Shanghai")
	if err != nil {
		t.Skip("tzdata not available")
	}
	now := time.Date(2024, 5, 1, 10, 30, 0, 0, shanghai)

	tests := []struct {
		name      string
		output    string
		wantNil   bool
		wantReset time.Time
	}{
		{name: "no indicator", output: "something else failed", wantNil: true},
		{name: "unix timestamp", output: "Claude AI usage limit reached|1714550400", wantReset: time.Unix(1714550400, 0)},
		{
			name:      "reset clock later today",
			output:    "You're out of extra usage · resets 2pm (Asia/Shanghai)",
			wantReset: time.Date(2024, 5, 1, 14, 0, 0, 0, shanghai),
		},
		{
			name:      "reset clock tomorrow",
			output:    "Your limit will reset at 9am (Asia/Shanghai)",
			wantReset: time.Date(2024, 5, 2, 9, 0, 0, 0, shanghai),
		},
		{
			name:      "limit resets without at",
			output:    "5-hour limit resets 11pm (Asia/Shanghai)",
			wantReset: time.Date(2024, 5, 1, 23, 0, 0, 0, shanghai),
		},
		{name: "clock without limit wording", output: "the counter resets at 9am (Asia/Shanghai)", wantNil: true},
		{name: "retry seconds", output: "rate limited, retry after 120s", wantReset: now.Add(2 * time.Minute)},
		{name: "json retry_after", output: "429\n{\"error\":\"rate_limit\",\"retry_after\":60}", wantReset: now.Add(time.Minute)},
		{name: "indicator only", output: "Too many requests"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DetectRateLimit(tt.output, now)
			if tt.wantNil {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.True(t, tt.wantReset.Equal(got.ResetAt), "reset %v, want %v", got.ResetAt, tt.wantReset)
		})
	}
}

func TestRateLimit_Message(t *testing.T) {
	assert.Equal(t, "claude usage limit reached, try again later", (&RateLimit{}).Message())
	reset := time.Date(2024, 5, 1, 14, 5, 0, 0, time.Local)
	assert.Equal(t, "claude usage limit reached, resets at 14:05", (&RateLimit{ResetAt: reset}).Message())
}
