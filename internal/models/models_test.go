package models

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"
)

func TestParseTaskKind(t *testing.T) {
	tests := []struct {
		in      string
		want    TaskKind
		wantErr bool
	}{
		{"transcribe", TaskTranscribe, false},
		{"fetchNote", TaskFetchNote, false},
		{"fetch-note", TaskFetchNote, false},
		{"FETCH_PROFILE", TaskFetchProfile, false},
		{" analyze ", TaskAnalyze, false},
		{"podcast", "", true},
		{"", "", true},
	}
	for _, tt := range tests {
		got, err := ParseTaskKind(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseTaskKind(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseTaskKind(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestParseErrorCategory(t *testing.T) {
	for _, in := range []string{"cancelled", "Cancelled"} {
		if got, err := ParseErrorCategory(in); err != nil || got != CategoryCancelled {
			t.Errorf("ParseErrorCategory(%q) = %q, %v", in, got, err)
		}
	}
	if got, _ := ParseErrorCategory("invalid_input"); got != CategoryInvalidInput {
		t.Errorf("expected InvalidInput, got %q", got)
	}
	if _, err := ParseErrorCategory("fatal"); err == nil {
		t.Error("expected error for unknown category")
	}
}

func TestCredentialSet(t *testing.T) {
	set, err := ParseCredentialSet([]byte(`[{"name":"web_session","value":"abc"},{"name":" ","value":"x"},{"name":"a1","value":"b"}]`))
	if err != nil {
		t.Fatalf("ParseCredentialSet: %v", err)
	}
	if len(set) != 2 {
		t.Fatalf("entries without a name must be dropped, got %d", len(set))
	}

	encoded, err := set.Encode()
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if encoded != `[{"name":"web_session","value":"abc"},{"name":"a1","value":"b"}]` {
		t.Errorf("unexpected encoding %s", encoded)
	}

	var empty CredentialSet
	if !empty.Empty() {
		t.Error("nil set should be empty")
	}
	if s, _ := empty.Encode(); s != "" {
		t.Errorf("empty set encodes to %q, want empty string", s)
	}

	if _, err := ParseCredentialSet([]byte(`{"name":"x"}`)); err == nil {
		t.Error("expected error for non-array cookies")
	}
}

func TestTaskError(t *testing.T) {
	cause := errors.New("exec: not found")
	te := NewTaskError(CategoryProcessFailure, "could not start helper").
		WithDetail("stderr text").
		WithExitCode(IntPtr(2)).
		WithCause(cause)

	if te.Error() != "ProcessFailure: could not start helper" {
		t.Errorf("unexpected message %q", te.Error())
	}
	if !errors.Is(te, cause) {
		t.Error("TaskError should unwrap to its cause")
	}
	if *te.ExitCode != 2 || te.RawDetail != "stderr text" {
		t.Errorf("unexpected fields %+v", te)
	}

	wrapped := fmt.Errorf("fetch: %w", te)
	got, ok := AsTaskError(wrapped)
	if !ok || got != te {
		t.Error("AsTaskError should find a wrapped TaskError")
	}
	if CategoryOf(wrapped) != CategoryProcessFailure {
		t.Errorf("CategoryOf = %q", CategoryOf(wrapped))
	}
	if CategoryOf(errors.New("plain")) != CategoryProcessFailure {
		t.Error("plain errors count as ProcessFailure")
	}
	if _, ok := AsTaskError(nil); ok {
		t.Error("nil is not a TaskError")
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		in   string
		max  int
		want string
	}{
		{"hello", 10, "hello"},
		{"hello", 0, "hello"},
		{"hello world", 5, "hello..."},
		// 你 is 3 bytes; cutting at 4 must not split 好
		{"你好", 4, "你..."},
	}
	for _, tt := range tests {
		if got := Truncate(tt.in, tt.max); got != tt.want {
			t.Errorf("Truncate(%q, %d) = %q, want %q", tt.in, tt.max, got, tt.want)
		}
	}
}

func TestProcessInvocation(t *testing.T) {
	args := []string{"note", "https://x"}
	env := map[string]string{"XHS_COOKIES": "secret", "PYTHONIOENCODING": "utf-8"}
	inv := NewInvocation("python3", "crawler_api.py", args, "", env, time.Minute)

	args[0] = "changed"
	env["XHS_COOKIES"] = "changed"
	if inv.Args[0] != "note" || inv.Env["XHS_COOKIES"] != "secret" {
		t.Error("NewInvocation must copy args and env")
	}

	if got := strings.Join(inv.Argv(), " "); got != "crawler_api.py note https://x" {
		t.Errorf("Argv = %q", got)
	}
	s := inv.String()
	if strings.Contains(s, "secret") {
		t.Error("String must not print environment values")
	}
	if !strings.HasSuffix(s, "(env: PYTHONIOENCODING,XHS_COOKIES)") {
		t.Errorf("String = %q", s)
	}

	clone := inv.Clone()
	clone.Args[0] = "user"
	if inv.Args[0] != "note" {
		t.Error("Clone must not share args")
	}

	if err := (ProcessInvocation{}).Validate(); err == nil {
		t.Error("missing interpreter should fail validation")
	}
	if err := NewInvocation("python3", "", nil, "", nil, -time.Second).Validate(); err == nil {
		t.Error("negative timeout should fail validation")
	}
	if len(NewInvocation("claude", "", []string{"-p"}, "", nil, 0).Argv()) != 1 {
		t.Error("Argv without a script is just Args")
	}
}

func TestProcessOutcome(t *testing.T) {
	killed := &ProcessOutcome{}
	if !killed.Killed() || killed.Succeeded() || killed.ExitCodeString() != "killed" {
		t.Errorf("unexpected killed outcome: %+v", killed)
	}
	ok := &ProcessOutcome{ExitCode: IntPtr(0)}
	if ok.Killed() || !ok.Succeeded() || ok.ExitCodeString() != "0" {
		t.Errorf("unexpected success outcome: %+v", ok)
	}
	failed := &ProcessOutcome{ExitCode: IntPtr(3)}
	if failed.Succeeded() || failed.ExitCodeString() != "3" {
		t.Errorf("unexpected failed outcome: %+v", failed)
	}
}

func TestExtractedResult(t *testing.T) {
	var zero ExtractedResult
	if zero.OK() || zero.Reason() == "" {
		t.Error("zero value is a failure with a reason")
	}

	raw := json.RawMessage(`{"a":1}`)
	res := ExtractSuccess(raw, "lines")
	raw[2] = 'b'
	if string(res.Payload()) != `{"a":1}` {
		t.Error("ExtractSuccess must copy the payload")
	}
	if !res.OK() || res.Strategy() != "lines" || res.Reason() != "" {
		t.Errorf("unexpected success result")
	}

	fail := ExtractFailure("nothing here")
	if fail.OK() || fail.Payload() != nil || fail.Reason() != "nothing here" {
		t.Errorf("unexpected failure result")
	}
}

func TestTaskReport(t *testing.T) {
	ok := TaskReport{Kind: TaskTranscribe}
	if !ok.Succeeded() || ok.Category() != "" {
		t.Error("report without error is a success")
	}
	failed := TaskReport{Err: NewTaskError(CategoryTimeout, "slow")}
	if failed.Succeeded() || failed.Category() != CategoryTimeout {
		t.Error("report with error carries its category")
	}
}
