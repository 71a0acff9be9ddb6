package langfuse

import (
	"encoding/json"
	"time"
)

// ScoreDataType selects how the store interprets a score value.
type ScoreDataType string

const (
	ScoreDataTypeNumeric     ScoreDataType = "NUMERIC"
	ScoreDataTypeCategorical ScoreDataType = "CATEGORICAL"
)

// Score is the payload for the store's score-write API. Value is numeric for
// NUMERIC scores and a string label for CATEGORICAL ones. Re-submitting the
// same (TraceID, Name) pair is treated as an overwrite by the store.
type Score struct {
	TraceID  string        `json:"traceId"`
	Name     string        `json:"name"`
	Value    any           `json:"value"`
	DataType ScoreDataType `json:"dataType,omitempty"`
	Comment  string        `json:"comment,omitempty"`
}

// Trace is an indexed model execution as returned by the store. The store
// assigns ids itself unless the caller supplied a deterministic one.
type Trace struct {
	ID        string        `json:"id"`
	Name      string        `json:"name,omitempty"`
	Timestamp time.Time     `json:"timestamp"`
	SessionID string        `json:"sessionId,omitempty"`
	Tags      []string      `json:"tags,omitempty"`
	Metadata  TraceMetadata `json:"metadata,omitempty"`
	Latency   float64       `json:"latency,omitempty"`
}

// TraceMetadata carries the OTel-style attributes the instrumentation layer
// recorded on the trace, e.g. "session.id", "test.name" and "langfuse.tags".
type TraceMetadata struct {
	Attributes map[string]json.RawMessage `json:"attributes,omitempty"`
}

// StringAttr returns the attribute under key decoded as a string, or "" when
// the attribute is absent or not a string.
func (m TraceMetadata) StringAttr(key string) string {
	raw, ok := m.Attributes[key]
	if !ok {
		return ""
	}

	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return ""
	}
	return s
}

// StringSliceAttr returns the attribute under key decoded as a list of
// strings. The instrumentation layer sometimes records lists as JSON-encoded
// strings, so a string attribute is decoded a second time before giving up.
func (m TraceMetadata) StringSliceAttr(key string) []string {
	raw, ok := m.Attributes[key]
	if !ok {
		return nil
	}

	var list []string
	if err := json.Unmarshal(raw, &list); err == nil {
		return list
	}

	var nested string
	if err := json.Unmarshal(raw, &nested); err != nil {
		return nil
	}
	if err := json.Unmarshal([]byte(nested), &list); err != nil {
		return nil
	}
	return list
}

// TraceQuery filters the store's trace search API.
type TraceQuery struct {
	SessionID     string
	Tags          []string
	FromTimestamp time.Time
	Limit         int
	OrderBy       string
}

type tracePage struct {
	Data []*Trace `json:"data"`
}

type healthStatus struct {
	Status  string `json:"status"`
	Version string `json:"version"`
}
