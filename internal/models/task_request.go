package models

import (
	"encoding/json"
	"fmt"
	"strings"
)

// TaskKind identifies what an orchestrated task does.
type TaskKind string

// Task kinds
const (
	TaskTranscribe   TaskKind = "transcribe"
	TaskFetchNote    TaskKind = "fetchNote"
	TaskFetchProfile TaskKind = "fetchProfile"
	TaskAnalyze      TaskKind = "analyze"
)

// AllTaskKinds lists every kind in a stable order.
var AllTaskKinds = []TaskKind{TaskTranscribe, TaskFetchNote, TaskFetchProfile, TaskAnalyze}

// ParseTaskKind accepts both the canonical names and the CLI spellings
// (fetch-note, fetch_note).
func ParseTaskKind(s string) (TaskKind, error) {
	norm := strings.ToLower(strings.NewReplacer("-", "", "_", "").Replace(strings.TrimSpace(s)))
	for _, k := range AllTaskKinds {
		if strings.ToLower(string(k)) == norm {
			return k, nil
		}
	}
	return "", fmt.Errorf("unknown task kind %q", s)
}

// TaskRequest is the input to the orchestrator.
type TaskRequest struct {
	Kind        TaskKind
	URL         string
	Limit       int           // Post count for fetchProfile, 0 = default
	Credentials CredentialSet // Cookies handed to the crawler
}

// Cookie is one name/value pair of session material.
type Cookie struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// CredentialSet is the cookie list passed to the crawler through its
// environment. It is only ever serialized by the invocation builder.
type CredentialSet []Cookie

// Empty reports whether there is nothing to pass.
func (c CredentialSet) Empty() bool {
	return len(c) == 0
}

// Encode serializes the set as a JSON array of {name, value}.
func (c CredentialSet) Encode() (string, error) {
	if c.Empty() {
		return "", nil
	}
	data, err := json.Marshal([]Cookie(c))
	if err != nil {
		return "", fmt.Errorf("encode credentials: %w", err)
	}
	return string(data), nil
}

// ParseCredentialSet decodes a JSON array of cookies. Entries without a
// name are dropped.
func ParseCredentialSet(data []byte) (CredentialSet, error) {
	var raw []Cookie
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse credentials: %w", err)
	}
	out := make(CredentialSet, 0, len(raw))
	for _, c := range raw {
		if strings.TrimSpace(c.Name) == "" {
			continue
		}
		out = append(out, c)
	}
	return out, nil
}
