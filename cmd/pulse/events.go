package main

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/abelbrown/pulse/internal/pipeline"
)

var eventsCmd = &cobra.Command{
	Use:   "events [file]",
	Short: "View a run-event log",
	Long: `Prints the last events of a run-event log, by default events.jsonl in
the output directory.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runEvents,
}

var eventsFlags struct {
	tail    int
	follow  bool
	kind    string
	level   string
	comp    string
	route   string
	rawJSON bool
}

func init() {
	f := eventsCmd.Flags()
	f.IntVar(&eventsFlags.tail, "tail", 50, "number of recent lines to show")
	f.BoolVarP(&eventsFlags.follow, "follow", "f", false, "follow mode (like tail -f)")
	f.StringVar(&eventsFlags.kind, "kind", "", "filter by event kind prefix (e.g. 'signal')")
	f.StringVar(&eventsFlags.level, "level", "", "minimum level: debug, info, warn, error")
	f.StringVar(&eventsFlags.comp, "comp", "", "filter by component name")
	f.StringVar(&eventsFlags.route, "route", "", "filter by query route")
	f.BoolVar(&eventsFlags.rawJSON, "json", false, "output raw JSON lines")
}

// eventRecord mirrors otel.Event for JSON decoding.
// We decode from JSONL rather than importing otel to keep this
// subcommand usable even if the event schema evolves.
type eventRecord struct {
	Time      time.Time      `json:"t"`
	Level     string         `json:"level"`
	Kind      string         `json:"kind"`
	Comp      string         `json:"comp"`
	SessionID string         `json:"session_id"`
	DurMs     float64        `json:"dur_ms"`
	Count     int            `json:"count"`
	Signal    string         `json:"signal"`
	Route     string         `json:"route"`
	Path      string         `json:"path"`
	Source    string         `json:"source"`
	Err       string         `json:"err"`
	Msg       string         `json:"msg"`
	Extra     map[string]any `json:"extra"`
}

// levelRank returns a numeric rank for filtering (higher = more severe).
func levelRank(level string) int {
	switch level {
	case "debug":
		return 0
	case "info":
		return 1
	case "warn":
		return 2
	case "error":
		return 3
	default:
		return 0
	}
}

type eventFilter struct {
	kind, level, comp, route string
}

func (f eventFilter) match(ev eventRecord) bool {
	if f.kind != "" && !strings.HasPrefix(ev.Kind, f.kind) {
		return false
	}
	if f.level != "" && levelRank(ev.Level) < levelRank(f.level) {
		return false
	}
	if f.comp != "" && ev.Comp != f.comp {
		return false
	}
	if f.route != "" && ev.Route != f.route {
		return false
	}
	return true
}

// formatEvent renders one event as a single human-readable line.
func formatEvent(ev eventRecord) string {
	ts := ev.Time.Format("15:04:05.000")
	lvl := strings.ToUpper(ev.Level)
	if lvl == "" {
		lvl = "?"
	}

	parts := []string{fmt.Sprintf("%s %-5s [%-8s] %-20s", ts, lvl, ev.Comp, ev.Kind)}

	if ev.Msg != "" {
		parts = append(parts, "- "+ev.Msg)
	}
	if ev.DurMs > 0 {
		parts = append(parts, fmt.Sprintf("(%.*fms)", durPrecision(ev.DurMs), ev.DurMs))
	}
	if ev.Count > 0 {
		parts = append(parts, fmt.Sprintf("n=%d", ev.Count))
	}
	if ev.Signal != "" {
		parts = append(parts, "signal="+ev.Signal)
	}
	if ev.Route != "" {
		parts = append(parts, "route="+ev.Route)
	}
	if ev.Source != "" {
		parts = append(parts, "src="+ev.Source)
	}
	if ev.Path != "" {
		parts = append(parts, "path="+ev.Path)
	}
	if ev.Err != "" {
		parts = append(parts, "err="+ev.Err)
	}

	return strings.Join(parts, " ")
}

func runEvents(cmd *cobra.Command, args []string) error {
	logPath := filepath.Join(cfg.Output, pipeline.EventsFile)
	if len(args) == 1 {
		logPath = args[0]
	}

	f, err := os.Open(logPath)
	if err != nil {
		return fmt.Errorf("event log not found at %s (run 'pulse analyze' first): %w", logPath, err)
	}
	defer f.Close()

	filter := eventFilter{
		kind:  eventsFlags.kind,
		level: eventsFlags.level,
		comp:  eventsFlags.comp,
		route: eventsFlags.route,
	}
	out := cmd.OutOrStdout()
	emit := func(ev eventRecord, raw []byte) {
		if eventsFlags.rawJSON {
			fmt.Fprintln(out, string(raw))
			return
		}
		fmt.Fprintln(out, formatEvent(ev))
	}

	for _, l := range readTailLines(f, eventsFlags.tail, filter.match) {
		emit(l.ev, l.raw)
	}
	if !eventsFlags.follow {
		return nil
	}

	// Follow mode: poll for lines appended after the tail.
	reader := bufio.NewReader(f)
	ctx := cmd.Context()
	for {
		line, err := reader.ReadBytes('\n')
		if err != nil {
			if !errors.Is(err, io.EOF) {
				return err
			}
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(100 * time.Millisecond):
			}
			continue
		}
		line = trimLine(line)
		if len(line) == 0 {
			continue
		}
		var ev eventRecord
		if json.Unmarshal(line, &ev) != nil {
			continue
		}
		if filter.match(ev) {
			emit(ev, line)
		}
	}
}

type parsedLine struct {
	ev  eventRecord
	raw []byte
}

// readTailLines reads r and returns the last n lines matching the filter.
func readTailLines(r io.Reader, n int, match func(eventRecord) bool) []parsedLine {
	scanner := bufio.NewScanner(r)
	// Allow large lines (some events may have big Extra maps)
	scanner.Buffer(make([]byte, 0, 64*1024), 256*1024)

	var ring []parsedLine
	if n > 0 {
		ring = make([]parsedLine, 0, n)
	}

	for scanner.Scan() {
		raw := scanner.Bytes()
		if len(raw) == 0 {
			continue
		}
		var ev eventRecord
		if json.Unmarshal(raw, &ev) != nil {
			continue
		}
		if !match(ev) {
			continue
		}
		if n <= 0 {
			continue
		}
		// scanner reuses its buffer
		rawCopy := make([]byte, len(raw))
		copy(rawCopy, raw)

		if len(ring) < n {
			ring = append(ring, parsedLine{ev: ev, raw: rawCopy})
		} else {
			copy(ring, ring[1:])
			ring[n-1] = parsedLine{ev: ev, raw: rawCopy}
		}
	}

	return ring
}

func trimLine(b []byte) []byte {
	for len(b) > 0 && (b[len(b)-1] == '\n' || b[len(b)-1] == '\r') {
		b = b[:len(b)-1]
	}
	return b
}

func durPrecision(ms float64) int {
	if ms >= 100 {
		return 0
	}
	if ms >= 1 {
		return 1
	}
	return 2
}
