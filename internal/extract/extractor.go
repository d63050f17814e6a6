// Package extract recovers a single JSON value from the free-form stdout of
// a helper process. Helpers print log lines first and their result object
// last, so the strategies look at the whole output, then individual lines
// from the end, then the widest brace span.
package extract

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/harrison/xhsassist/internal/models"
)

// NoPayloadReason is the failure reason when every strategy misses.
const NoPayloadReason = "no parseable JSON payload found"

// ErrNotObject is returned by DecodeEnvelope for JSON that is not an object.
var ErrNotObject = errors.New("payload is not a JSON object")

// Strategy is one way of locating JSON in stdout. Fn reports ok=false when
// it finds nothing valid.
type Strategy struct {
	Name string
	Fn   func(stdout string) (json.RawMessage, bool)
}

// Strategies is the ordered cascade used by Extract. The first hit wins.
var Strategies = []Strategy{
	{Name: "whole", Fn: WholeOutput},
	{Name: "lines", Fn: LastJSONLine},
	{Name: "span", Fn: BraceSpan},
}

// Extract runs the strategy cascade over stdout.
func Extract(stdout string) models.ExtractedResult {
	for _, s := range Strategies {
		if raw, ok := s.Fn(stdout); ok {
			return models.ExtractSuccess(raw, s.Name)
		}
	}
	return models.ExtractFailure(NoPayloadReason)
}

// WholeOutput parses the trimmed output as one JSON value.
func WholeOutput(stdout string) (json.RawMessage, bool) {
	return valid(strings.TrimSpace(stdout))
}

// LastJSONLine returns the latest printed line that looks like and parses as
// a JSON object.
func LastJSONLine(stdout string) (json.RawMessage, bool) {
	lines := strings.Split(stdout, "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		line := strings.TrimSpace(lines[i])
		if !strings.HasPrefix(line, "{") || !strings.HasSuffix(line, "}") {
			continue
		}
		if raw, ok := valid(line); ok {
			return raw, true
		}
	}
	return nil, false
}

// BraceSpan parses everything from the first '{' to the last '}'. This
// catches objects pretty-printed across several lines. A span that sits
// directly inside '[' ... ']' is an array element, not the result, and is
// rejected.
func BraceSpan(stdout string) (json.RawMessage, bool) {
	start := strings.Index(stdout, "{")
	end := strings.LastIndex(stdout, "}")
	if start < 0 || end <= start {
		return nil, false
	}
	before := strings.TrimRight(stdout[:start], " \t\r\n")
	after := strings.TrimLeft(stdout[end+1:], " \t\r\n")
	if strings.HasSuffix(before, "[") && strings.HasPrefix(after, "]") {
		return nil, false
	}
	return valid(stdout[start : end+1])
}

func valid(s string) (json.RawMessage, bool) {
	if s == "" || !gjson.Valid(s) {
		return nil, false
	}
	return json.RawMessage(s), true
}

// DecodeEnvelope reads the {success, data, error} result object without
// forcing a schema on data. A missing success field reads as false.
func DecodeEnvelope(raw json.RawMessage) (models.Envelope, error) {
	if !gjson.ValidBytes(raw) {
		return models.Envelope{}, fmt.Errorf("decode envelope: invalid JSON")
	}
	root := gjson.ParseBytes(raw)
	if !root.IsObject() {
		return models.Envelope{}, ErrNotObject
	}

	env := models.Envelope{Success: root.Get("success").Bool()}
	if data := root.Get("data"); data.Exists() && data.Type != gjson.Null {
		env.Data = json.RawMessage(data.Raw)
	}
	env.Error = root.Get("error").String()
	if env.Error == "" {
		env.Error = root.Get("message").String()
	}
	return env, nil
}

// FirstString returns the first non-empty string found at any of paths.
func FirstString(raw json.RawMessage, paths ...string) (string, bool) {
	for _, p := range paths {
		if r := gjson.GetBytes(raw, p); r.Exists() && r.Type == gjson.String && r.Str != "" {
			return r.Str, true
		}
	}
	return "", false
}

// Diagnostic digs an error message out of output that failed, for logs.
// It returns "" when the output carries none.
func Diagnostic(stdout string) string {
	res := Extract(stdout)
	if !res.OK() {
		return ""
	}
	msg, _ := FirstString(res.Payload(), "error", "message")
	return msg
}
