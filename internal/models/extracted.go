package models

import "encoding/json"

// ExtractedResult is either a recovered JSON payload or the reason none was found.
// Build one with ExtractSuccess or ExtractFailure; the zero value is a failure.
type ExtractedResult struct {
	payload  json.RawMessage
	strategy string
	reason   string
}

// ExtractSuccess wraps a payload recovered by the named strategy.
func ExtractSuccess(payload json.RawMessage, strategy string) ExtractedResult {
	return ExtractedResult{payload: append(json.RawMessage(nil), payload...), strategy: strategy}
}

// ExtractFailure records why no payload could be recovered.
func ExtractFailure(reason string) ExtractedResult {
	return ExtractedResult{reason: reason}
}

// OK reports whether a payload was recovered.
func (r ExtractedResult) OK() bool {
	return r.payload != nil
}

// Payload returns a copy of the recovered JSON, or nil on failure.
func (r ExtractedResult) Payload() json.RawMessage {
	if r.payload == nil {
		return nil
	}
	return append(json.RawMessage(nil), r.payload...)
}

// Strategy names the extraction strategy that succeeded.
func (r ExtractedResult) Strategy() string {
	return r.strategy
}

// Reason explains a failure. Empty on success.
func (r ExtractedResult) Reason() string {
	if r.OK() {
		return ""
	}
	if r.reason == "" {
		return "no parseable JSON payload found"
	}
	return r.reason
}

// Envelope is the result object printed by the helper scripts.
type Envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data,omitempty"`
	Error   string          `json:"error,omitempty"`
}
