package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/abelbrown/pulse/internal/otel"
)

// debugPanelChrome is the number of terminal lines consumed by DebugPanel's
// border (top + bottom = 2) and vertical padding (top + bottom = 2).
// Must be updated if DebugPanel style changes.
const debugPanelChrome = 4

// debugOverlay renders the debug panel showing session stats and recent events.
// Pure function with no side effects. Returns empty string if ring is nil.
func debugOverlay(ring *otel.RingBuffer, width, height int) string {
	if ring == nil {
		return ""
	}

	stats := ring.Stats()
	recent := ring.Last(20)

	var lines []string
	lines = append(lines, DebugHeaderStyle.Render("Session Stats"))
	lines = append(lines, fmt.Sprintf("  Queries:    %d routed%s",
		stats.Count(otel.KindQueryRouted), topRoutes(stats.Routes)))
	lines = append(lines, fmt.Sprintf("  Signals:    %d complete, %d errors",
		stats.Count(otel.KindSignalComplete), stats.Count(otel.KindSignalError)))
	if degraded := stats.Degraded(); len(degraded) > 0 {
		lines = append(lines, "  Degraded:   "+truncateRunes(countList(degraded, stats.SignalErrors), 58))
	}
	lines = append(lines, fmt.Sprintf("  Fetches:    %d complete, %d errors",
		stats.Count(otel.KindFetchComplete), stats.Count(otel.KindFetchError)))
	if failing := stats.FailingSources(); len(failing) > 0 {
		lines = append(lines, "  Failing:    "+truncateRunes(countList(failing, stats.FetchErrors), 58))
	}
	lines = append(lines, fmt.Sprintf("  Reloads:    %d (%d failed)",
		stats.Count(otel.KindDatasetReload), stats.ReloadFailures))
	if run := stats.LastRun; run != nil {
		state := "running"
		if run.Done {
			state = fmt.Sprintf("done, %d artifacts in %s", run.Artifacts, run.Dur.Round(time.Millisecond))
		}
		lines = append(lines, "  Last run:   "+state)
	}
	lines = append(lines, fmt.Sprintf("  Buffer:     %d / %d events", ring.Len(), ring.Cap()))
	lines = append(lines, "")

	// --- Recent events section ---
	lines = append(lines, DebugHeaderStyle.Render("Recent Events"))
	for _, e := range recent {
		age := time.Since(e.Time)
		ageStr := formatAge(age)

		line := fmt.Sprintf("  %6s  %-22s", ageStr, string(e.Kind))
		if e.Msg != "" {
			line += "  " + truncateRunes(e.Msg, 40)
		}
		if e.Err != "" {
			line += "  ERR:" + truncateRunes(e.Err, 30)
		}
		if e.Route != "" {
			line += "  route:" + e.Route
		}
		lines = append(lines, line)
	}

	// Truncate to fit terminal height (subtract chrome added by DebugPanel border/padding)
	maxHeight := height - debugPanelChrome
	if maxHeight < 1 {
		maxHeight = 1
	}
	if len(lines) > maxHeight {
		lines = lines[:maxHeight]
	}

	panelWidth := 76
	if panelWidth > width-4 {
		panelWidth = width - 4
	}
	if panelWidth < 20 {
		panelWidth = 20
	}

	content := strings.Join(lines, "\n")
	return DebugPanel.Width(panelWidth).Render(content)
}

// formatAge formats a duration as a compact human string.
// Handles negative durations from clock skew by clamping to "0ms".
func formatAge(d time.Duration) string {
	if d < 0 {
		return "0ms"
	}
	switch {
	case d < time.Second:
		return fmt.Sprintf("%dms", d.Milliseconds())
	case d < time.Minute:
		return fmt.Sprintf("%.1fs", d.Seconds())
	default:
		return fmt.Sprintf("%.0fm", d.Minutes())
	}
}

// debugStatusBar renders the status bar for the debug overlay.
func debugStatusBar(width int) string {
	keys := StatusBarKey.Render("^D") + StatusBarText.Render(":close")
	return StatusBar.Width(width).Render("  [DEBUG]  " + keys)
}

// countList renders names as "a×3, b×1" using counts.
func countList(names []string, counts map[string]int) string {
	parts := make([]string, len(names))
	for i, n := range names {
		parts[i] = fmt.Sprintf("%s×%d", n, counts[n])
	}
	return strings.Join(parts, ", ")
}

// topRoutes renders the busiest route, if any.
func topRoutes(routes map[string]int) string {
	best, n := "", 0
	for r, c := range routes {
		if c > n || (c == n && r < best) {
			best, n = r, c
		}
	}
	if n == 0 {
		return ""
	}
	return fmt.Sprintf(" (top: %s)", best)
}

// truncateRunes shortens s to at most n runes, marking the cut with "…".
func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	if n <= 1 {
		return string(r[:n])
	}
	return string(r[:n-1]) + "…"
}
