package otel

// Goroutine safety:
// The drain goroutine is the sole reader of l.ch and the sole writer to l.w.
// Logger.mu protects only the l.buf pointer (read by drain, written by SetRingBuffer).
// The ring buffer's own mu handles concurrent Push/Snapshot/Last/Stats calls.
// No nested lock acquisition occurs: drain releases Logger.mu before calling rb.Push().

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

const (
	// writerChanSize is the capacity of the async write channel.
	// At ~200 bytes/event, 4096 events buffers ~800KB.
	writerChanSize = 4096
)

// logEntry carries both serialized bytes (for disk) and the original Event
// (for ring buffer). This avoids a lossy JSON round-trip through the ring
// buffer. Fields like Dur (json:"-") are preserved in the ring copy.
type logEntry struct {
	data []byte
	ev   Event
}

// Logger serializes events as JSONL via an async background writer.
// Goroutine-safe. All emitted events flow through a buffered channel
// to a drain goroutine that writes to disk and pushes to the ring buffer.
type Logger struct {
	mu        sync.Mutex
	buf       *RingBuffer   // nil until SetRingBuffer
	sessionID string        // uuid, set once at creation
	ch        chan logEntry // buffered channel for async writes
	w         io.Writer     // destination (event log file)
	dropped   atomic.Uint64 // events dropped due to full channel, encode failure, or write error
	closed    atomic.Bool   // true after Close(); prevents send-on-closed-channel panic
	done      chan struct{} // closed when drain goroutine exits
	closeOnce sync.Once
}

// NewLogger creates a Logger writing JSONL to w asynchronously with a fresh
// session ID. Starts a background drain goroutine. Call Close() to flush and stop.
func NewLogger(w io.Writer) *Logger {
	return NewSessionLogger(w, uuid.NewString())
}

// NewSessionLogger is NewLogger with a caller-chosen session ID, such as a
// batch run ID.
func NewSessionLogger(w io.Writer, sessionID string) *Logger {
	l := &Logger{
		sessionID: sessionID,
		ch:        make(chan logEntry, writerChanSize),
		w:         w,
		done:      make(chan struct{}),
	}
	go l.drain()
	return l
}

// NewNullLogger creates a Logger that discards output.
// Callers should still call Close() to stop the drain goroutine.
func NewNullLogger() *Logger {
	return NewLogger(io.Discard)
}

// drain is the background goroutine that reads from ch and writes to disk + ring buffer.
func (l *Logger) drain() {
	defer close(l.done)
	for entry := range l.ch {
		if _, err := l.w.Write(entry.data); err != nil {
			l.dropped.Add(1)
		}

		l.mu.Lock()
		rb := l.buf
		l.mu.Unlock()

		if rb != nil {
			rb.Push(entry.ev)
		}
	}
}

// Emit writes an event to the JSONL log (and ring buffer if attached).
// A nil Logger discards every event.
// Sets Time (if zero) and SessionID. Goroutine-safe. Non-blocking: if the
// channel is full or the logger is closed, the event is dropped and the
// drop counter is incremented.
//
// Safe to call concurrently with Close(). If Close() races between the
// closed-flag check and the channel send, the resulting panic is recovered
// and the event is counted as dropped.
func (l *Logger) Emit(e Event) {
	if l == nil {
		return
	}
	defer func() {
		if recover() != nil {
			l.dropped.Add(1)
		}
	}()

	if l.closed.Load() {
		l.dropped.Add(1)
		return
	}

	if e.Time.IsZero() {
		e.Time = time.Now()
	}
	e.SessionID = l.sessionID

	data, err := json.Marshal(e)
	if err != nil {
		l.dropped.Add(1)
		return
	}
	data = append(data, '\n')

	select {
	case l.ch <- logEntry{data: data, ev: e}:
	default:
		l.dropped.Add(1)
	}
}

// SessionID returns the ID stamped on every event.
func (l *Logger) SessionID() string {
	return l.sessionID
}

// Signal records one extractor outcome.
func (l *Logger) Signal(name string, err error) {
	if err != nil {
		l.Emit(Event{Level: LevelWarn, Kind: KindSignalError, Comp: "signals", Signal: name, Err: err.Error()})
		return
	}
	l.Emit(Event{Level: LevelDebug, Kind: KindSignalComplete, Comp: "signals", Signal: name})
}

// Fetch records the acquisition outcome of one subreddit. fresh counts the
// posts not seen before.
func (l *Logger) Fetch(subreddit string, fresh int, err error) {
	if err != nil {
		l.Emit(Event{Level: LevelWarn, Kind: KindFetchError, Comp: "fetch", Source: subreddit, Err: err.Error()})
		return
	}
	l.Emit(Event{Level: LevelInfo, Kind: KindFetchComplete, Comp: "fetch", Source: subreddit, Count: fresh})
}

// Reload records a dataset rebuild. rows is ignored on failure.
func (l *Logger) Reload(path string, rows int, dur time.Duration, err error) {
	if err != nil {
		l.Emit(Event{Level: LevelWarn, Kind: KindDatasetReload, Comp: "server", Path: path, Err: err.Error()})
		return
	}
	l.Emit(Event{Level: LevelInfo, Kind: KindDatasetReload, Comp: "server", Path: path, Count: rows, Dur: dur})
}

// QueryRouted records a routed query when tracing covers route.
func (l *Logger) QueryRouted(comp, route, query string, dur time.Duration) {
	if Traced(route) {
		l.Query(comp, route, query, dur)
	}
}

// Query records a routed query unconditionally.
func (l *Logger) Query(comp, route, query string, dur time.Duration) {
	l.Emit(Event{Level: LevelDebug, Kind: KindQueryRouted, Comp: comp, Route: route, Msg: query, Dur: dur})
}

// SetRingBuffer attaches a ring buffer for live inspection.
func (l *Logger) SetRingBuffer(buf *RingBuffer) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.buf = buf
}

// Dropped returns the number of events dropped since creation.
func (l *Logger) Dropped() uint64 {
	if l == nil {
		return 0
	}
	return l.dropped.Load()
}

// Close flushes pending events, stops the drain goroutine, and reports
// any dropped events to stderr. Safe to call from goroutines that may
// still be calling Emit(). Those calls will be dropped, not panicked.
func (l *Logger) Close() {
	l.closeOnce.Do(func() {
		l.closed.Store(true)
		close(l.ch)
		<-l.done

		if d := l.dropped.Load(); d > 0 {
			fmt.Fprintf(os.Stderr, "pulse: %d events dropped during session %s\n", d, l.sessionID)
		}
	})
}
