package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

const emptyHint = "Ask about trending topics, top authors, subreddits, sentiment, flashpoints, domains, controversial posts or a narrative summary."

// renderTranscript renders every exchange, oldest first.
func renderTranscript(history []exchange, width int) string {
	if len(history) == 0 {
		return HelpStyle.Render(emptyHint)
	}

	answer := AnswerStyle
	if width > 0 {
		answer = answer.Width(width)
	}

	var b strings.Builder
	for _, e := range history {
		b.WriteString(QueryStyle.Render("> " + e.query))
		b.WriteString("\n")
		if e.pending {
			b.WriteString(PendingStyle.Render("..."))
			b.WriteString("\n")
			continue
		}
		b.WriteString(answer.Render(e.answer))
		b.WriteString("\n")
	}
	return b.String()
}

// renderStatusBar renders the bottom bar: answer count on the left, key
// hints on the right.
func renderStatusBar(answered int, pending bool, width int) string {
	position := fmt.Sprintf(" %d asked ", answered)
	if pending {
		position = " Thinking... "
	}

	keys := []string{
		StatusBarKey.Render("Enter") + StatusBarText.Render(":ask"),
		StatusBarKey.Render("PgUp/PgDn") + StatusBarText.Render(":scroll"),
		StatusBarKey.Render("^D") + StatusBarText.Render(":debug"),
		StatusBarKey.Render("Esc") + StatusBarText.Render(":quit"),
	}
	keyHints := strings.Join(keys, " ")

	padding := width - lipgloss.Width(position) - lipgloss.Width(keyHints)
	if padding < 0 {
		padding = 0
	}
	return StatusBar.Width(width).Render(position + strings.Repeat(" ", padding) + keyHints)
}
