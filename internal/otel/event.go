// Package otel records structured run events for pulse.
//
// Events are typed structs serialized as JSONL lines. The Logger writes
// events asynchronously via a buffered channel and background drain goroutine.
// An optional RingBuffer keeps recent events in memory for /debug/events.
package otel

import (
	"encoding/json"
	"time"
)

// Level defines event severity for filtering.
type Level string

const (
	LevelDebug Level = "debug"
	LevelInfo  Level = "info"
	LevelWarn  Level = "warn"
	LevelError Level = "error"
)

// EventKind identifies the category of an event.
// Dot-delimited: "<subsystem>.<action>".
type EventKind string

const (
	// Batch run events
	KindRunStart          EventKind = "run.start"
	KindLoadComplete      EventKind = "load.complete"
	KindPrepComplete      EventKind = "prep.complete"
	KindSignalComplete    EventKind = "signal.complete"
	KindSignalError       EventKind = "signal.error"
	KindNarrativeComplete EventKind = "narrative.complete"
	KindArtifactWrite     EventKind = "artifact.write"
	KindRunComplete       EventKind = "run.complete"

	// Serving events
	KindDatasetReload EventKind = "dataset.reload"
	KindFetchComplete EventKind = "fetch.complete"
	KindFetchError    EventKind = "fetch.error"

	// Trace events, emitted only when PULSE_TRACE is set
	KindQueryRouted EventKind = "trace.query_routed"
)

// Event is the universal run record. Every field except Kind and Time is
// optional. Serialized as a single JSONL line.
type Event struct {
	Time      time.Time      `json:"t"`
	Level     Level          `json:"level,omitempty"`
	Kind      EventKind      `json:"kind"`
	Comp      string         `json:"comp,omitempty"`       // component: "pipeline", "server", "fetch"
	SessionID string         `json:"session_id,omitempty"` // uuid, same for the whole run
	Dur       time.Duration  `json:"-"`                    // not serialized directly
	DurMs     float64        `json:"dur_ms,omitempty"`     // computed from Dur at marshal time
	Count     int            `json:"count,omitempty"`
	Signal    string         `json:"signal,omitempty"`
	Route     string         `json:"route,omitempty"`
	Path      string         `json:"path,omitempty"`
	Source    string         `json:"source,omitempty"` // subreddit or dataset location
	Err       string         `json:"err,omitempty"`
	Msg       string         `json:"msg,omitempty"`
	Extra     map[string]any `json:"extra,omitempty"`
}

// MarshalJSON implements json.Marshaler, converting Dur to DurMs.
func (e Event) MarshalJSON() ([]byte, error) {
	type Alias Event
	a := struct {
		Alias
	}{Alias: Alias(e)}
	if e.Dur > 0 {
		a.DurMs = float64(e.Dur) / float64(time.Millisecond)
	}
	return json.Marshal(a)
}
