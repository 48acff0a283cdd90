package otel

import (
	"sort"
	"strings"
	"sync"
	"time"
)

// DefaultRingSize is the default ring buffer capacity.
const DefaultRingSize = 1024

// RingBuffer keeps the most recent events in memory for the debug views.
// Goroutine-safe.
type RingBuffer struct {
	mu    sync.Mutex
	buf   []Event
	head  int // next write position
	count int
}

// NewRingBuffer creates a ring buffer holding up to size events.
func NewRingBuffer(size int) *RingBuffer {
	if size <= 0 {
		size = DefaultRingSize
	}
	return &RingBuffer{buf: make([]Event, size)}
}

// Push adds an event, evicting the oldest when full. Extra is copied so
// later mutation by the caller does not leak into the buffer.
func (r *RingBuffer) Push(e Event) {
	if e.Extra != nil {
		cp := make(map[string]any, len(e.Extra))
		for k, v := range e.Extra {
			cp[k] = v
		}
		e.Extra = cp
	}
	r.mu.Lock()
	r.buf[r.head] = e
	r.head = (r.head + 1) % len(r.buf)
	if r.count < len(r.buf) {
		r.count++
	}
	r.mu.Unlock()
}

// at returns the i-th oldest buffered event. Caller holds mu.
func (r *RingBuffer) at(i int) Event {
	oldest := 0
	if r.count == len(r.buf) {
		oldest = r.head
	}
	return r.buf[(oldest+i)%len(r.buf)]
}

// Snapshot returns every buffered event, oldest first.
func (r *RingBuffer) Snapshot() []Event {
	return r.Last(r.Len())
}

// Last returns the n most recent events, oldest first.
func (r *RingBuffer) Last(n int) []Event {
	r.mu.Lock()
	defer r.mu.Unlock()

	if n > r.count {
		n = r.count
	}
	if n <= 0 {
		return nil
	}
	out := make([]Event, n)
	skip := r.count - n
	for i := range out {
		out[i] = r.at(skip + i)
	}
	return out
}

// Len returns the number of buffered events.
func (r *RingBuffer) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.count
}

// Cap returns the buffer capacity.
func (r *RingBuffer) Cap() int {
	return len(r.buf)
}

// RunSummary describes the latest batch run seen in the buffer.
type RunSummary struct {
	SessionID string        `json:"session_id,omitempty"`
	Started   time.Time     `json:"started"`
	Done      bool          `json:"done"`
	Artifacts int           `json:"artifacts,omitempty"`
	Dur       time.Duration `json:"dur_ns,omitempty"`
}

// Stats aggregates the buffered events.
type Stats struct {
	Kinds map[EventKind]int `json:"kinds"`
	// SignalErrors counts signal.error events per extractor.
	SignalErrors map[string]int `json:"signal_errors"`
	// FetchErrors counts fetch.error events per subreddit.
	FetchErrors map[string]int `json:"fetch_errors"`
	// Routes counts traced queries per route.
	Routes         map[string]int `json:"routes"`
	ReloadFailures int            `json:"reload_failures"`
	LastRun        *RunSummary    `json:"last_run,omitempty"`
}

// Count returns the number of buffered events of kind k.
func (s Stats) Count(k EventKind) int {
	return s.Kinds[k]
}

// Degraded lists the extractors that reported errors, most frequent first.
func (s Stats) Degraded() []string {
	return rankKeys(s.SignalErrors)
}

// FailingSources lists the subreddits whose fetches failed, most frequent
// first.
func (s Stats) FailingSources() []string {
	return rankKeys(s.FetchErrors)
}

func rankKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if m[keys[i]] != m[keys[j]] {
			return m[keys[i]] > m[keys[j]]
		}
		return keys[i] < keys[j]
	})
	return keys
}

// Stats walks the buffer oldest first and aggregates it.
func (r *RingBuffer) Stats() Stats {
	s := Stats{
		Kinds:        make(map[EventKind]int),
		SignalErrors: make(map[string]int),
		FetchErrors:  make(map[string]int),
		Routes:       make(map[string]int),
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for i := 0; i < r.count; i++ {
		e := r.at(i)
		s.Kinds[e.Kind]++

		switch e.Kind {
		case KindSignalError:
			s.SignalErrors[nonEmpty(e.Signal)]++
		case KindFetchError:
			s.FetchErrors[nonEmpty(e.Source)]++
		case KindQueryRouted:
			s.Routes[nonEmpty(e.Route)]++
		case KindDatasetReload:
			if e.Err != "" {
				s.ReloadFailures++
			}
		case KindRunStart:
			s.LastRun = &RunSummary{SessionID: e.SessionID, Started: e.Time}
		case KindRunComplete:
			if s.LastRun != nil && s.LastRun.SessionID == e.SessionID {
				s.LastRun.Done = true
				s.LastRun.Artifacts = e.Count
				s.LastRun.Dur = e.Dur
			}
		}
	}
	return s
}

func nonEmpty(s string) string {
	if strings.TrimSpace(s) == "" {
		return "unknown"
	}
	return s
}
