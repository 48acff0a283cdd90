package ui

import "github.com/charmbracelet/lipgloss"

// Colors used in the application.
var (
	colorPrimary   = lipgloss.Color("62")  // Purple
	colorSecondary = lipgloss.Color("241") // Gray
	colorMuted     = lipgloss.Color("240") // Darker gray
	colorHighlight = lipgloss.Color("212") // Pink
)

// QueryStyle renders the user's question in the transcript.
var QueryStyle = lipgloss.NewStyle().
	Bold(true).
	Foreground(colorHighlight).
	Padding(0, 1)

// AnswerStyle renders router answers.
var AnswerStyle = lipgloss.NewStyle().
	Foreground(lipgloss.Color("255")).
	PaddingLeft(3).
	MarginBottom(1)

// PendingStyle renders the placeholder while an answer is computed.
var PendingStyle = lipgloss.NewStyle().
	Foreground(colorSecondary).
	Italic(true).
	PaddingLeft(3)

// PromptStyle for the input prompt.
var PromptStyle = lipgloss.NewStyle().
	Foreground(colorPrimary).
	Bold(true)

// StatusBar style for the bottom status bar.
var StatusBar = lipgloss.NewStyle().
	Foreground(lipgloss.Color("255")).
	Background(lipgloss.Color("236")).
	Padding(0, 1)

// StatusBarKey style for key hints in status bar.
var StatusBarKey = lipgloss.NewStyle().
	Foreground(colorHighlight).
	Bold(true)

// StatusBarText style for descriptive text in status bar.
var StatusBarText = lipgloss.NewStyle().
	Foreground(colorSecondary)

// HelpStyle for the empty-transcript hint.
var HelpStyle = lipgloss.NewStyle().
	Foreground(colorMuted).
	Padding(1, 2)

// DebugPanel frames the event overlay.
var DebugPanel = lipgloss.NewStyle().
	Border(lipgloss.RoundedBorder()).
	BorderForeground(colorPrimary).
	Padding(1, 2)

// DebugHeaderStyle for overlay section headers.
var DebugHeaderStyle = lipgloss.NewStyle().
	Bold(true).
	Foreground(colorHighlight)
