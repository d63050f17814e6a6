package claude

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/tidwall/gjson"
)

// RateLimit describes a usage limit reported by the claude CLI.
type RateLimit struct {
	ResetAt time.Time // zero when the CLI did not say
}

// Message is the user-facing text for a limited call.
func (r *RateLimit) Message() string {
	if r.ResetAt.IsZero() {
		return "claude usage limit reached, try again later"
	}
	return fmt.Sprintf("claude usage limit reached, resets at %s", r.ResetAt.Local().Format("15:04"))
}

var (
	// Claude AI usage limit reached|1718000000
	unixResetPattern = regexp.MustCompile(`usage limit reached\|(\d+)`)
	// limit will reset at 2pm (Asia/Shanghai) / resets 1am (Europe/Dublin)
	clockResetPattern = regexp.MustCompile(`(?i)resets?\s+(?:at\s+)?(\d{1,2})(am|pm)\s*\(([^)]+)\)`)
	// retry in 300 seconds / retry after 300s
	retryPattern   = regexp.MustCompile(`(?i)retry (?:in|after)\s+(\d+)\s*(?:seconds?|s)\b`)
	limitIndicator = regexp.MustCompile(`(?i)(out of .*usage|rate.?limit|usage.?limit|limit (?:will )?resets?|\b429\b|too.?many.?requests)`)
)

// DetectRateLimit looks for a usage limit notice in CLI output. It returns
// nil when output does not look rate limited. Only call it on failed runs;
// analysis text can legitimately mention rate limits.
func DetectRateLimit(output string, now time.Time) *RateLimit {
	if !limitIndicator.MatchString(output) {
		return nil
	}

	if m := unixResetPattern.FindStringSubmatch(output); m != nil {
		if ts, err := strconv.ParseInt(m[1], 10, 64); err == nil {
			return &RateLimit{ResetAt: time.Unix(ts, 0)}
		}
	}

	if m := clockResetPattern.FindStringSubmatch(output); m != nil {
		hour, _ := strconv.Atoi(m[1])
		switch {
		case strings.EqualFold(m[2], "pm") && hour != 12:
			hour += 12
		case strings.EqualFold(m[2], "am") && hour == 12:
			hour = 0
		}
		loc, err := time.LoadLocation(strings.TrimSpace(m[3]))
		if err != nil {
			loc = time.UTC
		}
		local := now.In(loc)
		reset := time.Date(local.Year(), local.Month(), local.Day(), hour, 0, 0, 0, loc)
		if reset.Before(local) {
			reset = reset.Add(24 * time.Hour)
		}
		return &RateLimit{ResetAt: reset}
	}

	if m := retryPattern.FindStringSubmatch(output); m != nil {
		if secs, err := strconv.ParseInt(m[1], 10, 64); err == nil {
			return &RateLimit{ResetAt: now.Add(time.Duration(secs) * time.Second)}
		}
	}

	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimSpace(line)
		if !gjson.Valid(line) {
			continue
		}
		if secs := gjson.Get(line, "retry_after").Int(); secs > 0 {
			return &RateLimit{ResetAt: now.Add(time.Duration(secs) * time.Second)}
		}
	}

	return &RateLimit{}
}
