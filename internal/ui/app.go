package ui

import (
	"context"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/abelbrown/pulse/internal/otel"
)

// chrome is the number of lines below the transcript: input and status bar.
const chrome = 2

// Answerer answers a free-text query. *router.Router satisfies it.
type Answerer interface {
	Answer(ctx context.Context, query string) string
}

type exchange struct {
	query   string
	answer  string
	pending bool
}

// App is the root Bubble Tea model.
// App does not hold the router; answers arrive as AnswerReady messages.
type App struct {
	ask  func(query string) tea.Cmd
	ring *otel.RingBuffer

	input   textinput.Model
	view    viewport.Model
	spin    spinner.Model
	history []exchange

	pending   bool
	showDebug bool
	width     int
	height    int
	ready     bool
}

// NewApp creates an App. ask returns the Cmd that answers one query; ring
// may be nil, which disables the debug overlay.
func NewApp(ask func(query string) tea.Cmd, ring *otel.RingBuffer) App {
	in := textinput.New()
	in.Placeholder = "Ask about topics, authors, sentiment..."
	in.Prompt = PromptStyle.Render("> ")
	in.CharLimit = 500
	in.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	return App{ask: ask, ring: ring, input: in, spin: sp}
}

// AskCmd adapts an Answerer to the ask function NewApp expects.
func AskCmd(ctx context.Context, a Answerer) func(string) tea.Cmd {
	return func(query string) tea.Cmd {
		return func() tea.Msg {
			start := time.Now()
			answer := a.Answer(ctx, query)
			return AnswerReady{Query: query, Answer: answer, Dur: time.Since(start)}
		}
	}
}

// Run starts the chat and blocks until the user quits or ctx is done.
func Run(ctx context.Context, a Answerer, ring *otel.RingBuffer) error {
	p := tea.NewProgram(NewApp(AskCmd(ctx, a), ring), tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	return err
}

// Init starts the cursor blinking.
func (a App) Init() tea.Cmd {
	return textinput.Blink
}

// Update handles messages and returns the updated model and any commands.
func (a App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return a.handleKeyMsg(msg)

	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		h := msg.Height - chrome
		if h < 1 {
			h = 1
		}
		if !a.ready {
			a.view = viewport.New(msg.Width, h)
			a.ready = true
		} else {
			a.view.Width = msg.Width
			a.view.Height = h
		}
		a.input.Width = msg.Width - 4
		a.refresh()
		return a, nil

	case AnswerReady:
		for i := len(a.history) - 1; i >= 0; i-- {
			if a.history[i].pending && a.history[i].query == msg.Query {
				a.history[i].answer = msg.Answer
				a.history[i].pending = false
				break
			}
		}
		a.pending = false
		a.refresh()
		return a, nil

	case spinner.TickMsg:
		if !a.pending {
			return a, nil
		}
		var cmd tea.Cmd
		a.spin, cmd = a.spin.Update(msg)
		return a, cmd
	}

	var cmd tea.Cmd
	a.input, cmd = a.input.Update(msg)
	return a, cmd
}

// handleKeyMsg processes keyboard input.
func (a App) handleKeyMsg(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "esc":
		return a, tea.Quit

	case "ctrl+d":
		a.showDebug = !a.showDebug
		return a, nil

	case "pgup", "pgdown":
		var cmd tea.Cmd
		a.view, cmd = a.view.Update(msg)
		return a, cmd

	case "enter":
		query := strings.TrimSpace(a.input.Value())
		if query == "" || a.pending || a.ask == nil {
			return a, nil
		}
		a.history = append(a.history, exchange{query: query, pending: true})
		a.pending = true
		a.input.Reset()
		a.refresh()
		return a, tea.Batch(a.ask(query), a.spin.Tick)
	}

	var cmd tea.Cmd
	a.input, cmd = a.input.Update(msg)
	return a, cmd
}

// refresh re-renders the transcript into the viewport and scrolls to the end.
func (a *App) refresh() {
	if !a.ready {
		return
	}
	a.view.SetContent(renderTranscript(a.history, a.width))
	a.view.GotoBottom()
}

// View renders the UI.
func (a App) View() string {
	if !a.ready {
		return "Loading..."
	}

	if a.showDebug && a.ring != nil {
		return debugOverlay(a.ring, a.width, a.height-1) + "\n" + debugStatusBar(a.width)
	}

	line := a.input.View()
	if a.pending {
		line = a.spin.View() + PendingStyle.Render("Thinking...")
	}
	return a.view.View() + "\n" + line + "\n" + renderStatusBar(len(a.history), a.pending, a.width)
}

// History returns the transcript as query/answer pairs (for testing).
func (a App) History() [][2]string {
	out := make([][2]string, len(a.history))
	for i, e := range a.history {
		out[i] = [2]string{e.query, e.answer}
	}
	return out
}

// Pending reports whether an answer is outstanding (for testing).
func (a App) Pending() bool {
	return a.pending
}
