package otel

import (
	"bytes"
	"encoding/json"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestEmitWritesValidJSONL(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(&buf)

	l.Emit(Event{Kind: KindSignalComplete, Level: LevelInfo, Comp: "pipeline"})
	l.Close()

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("expected 1 line, got %d", len(lines))
	}

	var decoded map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &decoded); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if decoded["kind"] != "signal.complete" {
		t.Errorf("expected kind=signal.complete, got %v", decoded["kind"])
	}
	if decoded["level"] != "info" {
		t.Errorf("expected level=info, got %v", decoded["level"])
	}
	if decoded["comp"] != "pipeline" {
		t.Errorf("expected comp=pipeline, got %v", decoded["comp"])
	}
}

func TestEmitSetsTimeAndSessionID(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(&buf)

	before := time.Now()
	l.Emit(Event{Kind: KindRunStart})
	l.Close()
	after := time.Now()

	var ev Event
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &ev); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	if ev.Time.Before(before) || ev.Time.After(after) {
		t.Errorf("time %v not in [%v, %v]", ev.Time, before, after)
	}
	if ev.SessionID == "" {
		t.Error("session_id should be set")
	}
	if _, err := uuid.Parse(ev.SessionID); err != nil {
		t.Errorf("session_id should be a uuid, got %q: %v", ev.SessionID, err)
	}
}

func TestDurToMs(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(&buf)

	l.Emit(Event{Kind: KindLoadComplete, Dur: 1500 * time.Millisecond})
	l.Close()

	var decoded map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	durMs, ok := decoded["dur_ms"].(float64)
	if !ok {
		t.Fatal("dur_ms not present or not float64")
	}
	if durMs != 1500 {
		t.Errorf("expected dur_ms=1500, got %v", durMs)
	}
}

func TestOmitempty(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(&buf)

	l.Emit(Event{Kind: KindRunStart})
	l.Close()

	line := strings.TrimSpace(buf.String())
	for _, field := range []string{"dur_ms", "count", "signal", "route", "path", "source", "err", "msg", "extra"} {
		if strings.Contains(line, `"`+field+`"`) {
			t.Errorf("expected field %q to be omitted, but found in: %s", field, line)
		}
	}
}

func TestConcurrentSignals(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(&buf)

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			l.Signal("authors", nil)
		}()
	}
	wg.Wait()
	l.Close()

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 100 {
		t.Errorf("expected 100 lines, got %d", len(lines))
	}
	for i, line := range lines {
		var decoded map[string]any
		if err := json.Unmarshal([]byte(line), &decoded); err != nil {
			t.Errorf("line %d: invalid JSON: %v", i, err)
		}
	}
}

func TestClose(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(&buf)

	l.Emit(Event{Kind: KindRunStart, Msg: "start"})
	l.Emit(Event{Kind: KindRunComplete, Msg: "stop"})
	l.Close()

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines after Close, got %d", len(lines))
	}

	// Idempotent close
	l.Close()
}

func TestDropCounter(t *testing.T) {
	// Use a blocking writer that holds up the drain goroutine while we flood the channel.
	bw := &blockingWriter{
		started: make(chan struct{}),
		block:   make(chan struct{}),
	}
	l := NewLogger(bw)

	// First emit gets picked up by drain, which blocks on write.
	l.Emit(Event{Kind: KindSignalComplete})
	<-bw.started // wait for drain to enter Write (deterministic, no sleep)

	// Now flood: channel capacity is writerChanSize, so writerChanSize+10 should cause drops.
	for i := 0; i < writerChanSize+10; i++ {
		l.Emit(Event{Kind: KindSignalComplete})
	}

	dropped := l.Dropped()
	if dropped == 0 {
		t.Error("expected some drops when channel is full, got 0")
	}

	close(bw.block) // unblock writer
	l.Close()
}

type blockingWriter struct {
	started chan struct{} // closed when first Write begins
	block   chan struct{} // closed to unblock writer
	once    sync.Once
}

func (w *blockingWriter) Write(p []byte) (int, error) {
	w.once.Do(func() {
		close(w.started) // signal that drain has entered Write
		<-w.block        // block until test is done flooding
	})
	return len(p), nil
}

func TestRecorders(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(&buf)

	l.Signal("topics", nil)
	l.Signal("sentiment", errForTest("lexicon unavailable"))
	l.Fetch("golang", 4, nil)
	l.Fetch("rust", 0, errForTest("HTTP error: 429"))
	l.Reload("posts.jsonl", 120, 8*time.Millisecond, nil)
	l.Reload("posts.jsonl", 0, 0, errForTest("missing created_utc"))
	l.Query("chat", "authors", "top authors", time.Millisecond)
	l.Close()

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 7 {
		t.Fatalf("expected 7 lines, got %d", len(lines))
	}

	tests := []struct {
		level, kind, comp, key, val string
	}{
		{"debug", "signal.complete", "signals", "signal", "topics"},
		{"warn", "signal.error", "signals", "err", "lexicon unavailable"},
		{"info", "fetch.complete", "fetch", "source", "golang"},
		{"warn", "fetch.error", "fetch", "err", "HTTP error: 429"},
		{"info", "dataset.reload", "server", "path", "posts.jsonl"},
		{"warn", "dataset.reload", "server", "err", "missing created_utc"},
		{"debug", "trace.query_routed", "chat", "route", "authors"},
	}
	for i, tt := range tests {
		var decoded map[string]any
		if err := json.Unmarshal([]byte(lines[i]), &decoded); err != nil {
			t.Errorf("line %d: %v", i, err)
			continue
		}
		for field, want := range map[string]string{"level": tt.level, "kind": tt.kind, "comp": tt.comp, tt.key: tt.val} {
			if decoded[field] != want {
				t.Errorf("line %d: %s=%v, want %v", i, field, decoded[field], want)
			}
		}
	}
}

func TestNilLoggerDiscards(t *testing.T) {
	var l *Logger
	l.Signal("topics", nil)
	l.Fetch("golang", 1, nil)
	l.Reload("posts.jsonl", 1, 0, nil)
	if l.Dropped() != 0 {
		t.Error("nil logger should report no drops")
	}
}

type errForTest string

func (e errForTest) Error() string { return string(e) }

func TestSessionIDConsistent(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(&buf)

	l.Emit(Event{Kind: KindRunStart})
	l.Emit(Event{Kind: KindRunComplete})
	l.Close()

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(lines))
	}

	var ev1, ev2 map[string]any
	json.Unmarshal([]byte(lines[0]), &ev1)
	json.Unmarshal([]byte(lines[1]), &ev2)

	sid1 := ev1["session_id"].(string)
	sid2 := ev2["session_id"].(string)
	if sid1 != sid2 {
		t.Errorf("session IDs differ: %q vs %q", sid1, sid2)
	}
}

func TestSessionLoggerUsesGivenID(t *testing.T) {
	var buf bytes.Buffer
	l := NewSessionLogger(&buf, "run-42")
	l.Emit(Event{Kind: KindRunStart})
	l.Close()

	var ev Event
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &ev); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if ev.SessionID != "run-42" || l.SessionID() != "run-42" {
		t.Errorf("session id = %q, want run-42", ev.SessionID)
	}
}
