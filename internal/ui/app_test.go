package ui

import (
	"context"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/abelbrown/pulse/internal/otel"
)

// mockAsk records queries and answers them by echoing.
type mockAsk struct {
	queries []string
}

func (m *mockAsk) ask(query string) tea.Cmd {
	m.queries = append(m.queries, query)
	return func() tea.Msg {
		return AnswerReady{Query: query, Answer: "echo: " + query}
	}
}

type echoAnswerer struct{}

func (echoAnswerer) Answer(ctx context.Context, q string) string { return "answer to " + q }

func sized(t *testing.T, app App) App {
	t.Helper()
	m, _ := app.Update(tea.WindowSizeMsg{Width: 100, Height: 30})
	return m.(App)
}

func typeText(app App, s string) App {
	for _, r := range s {
		m, _ := app.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
		app = m.(App)
	}
	return app
}

func press(app App, k tea.KeyType) (App, tea.Cmd) {
	m, cmd := app.Update(tea.KeyMsg{Type: k})
	return m.(App), cmd
}

func TestAppViewBeforeSize(t *testing.T) {
	app := NewApp(nil, nil)
	if got := app.View(); got != "Loading..." {
		t.Errorf("View() before size = %q, want Loading...", got)
	}
}

func TestAppEmptyTranscriptShowsHint(t *testing.T) {
	app := sized(t, NewApp(nil, nil))
	if !strings.Contains(app.View(), "trending topics") {
		t.Errorf("empty view should show the hint, got:\n%s", app.View())
	}
}

func TestAppSubmitQuery(t *testing.T) {
	mock := &mockAsk{}
	app := sized(t, NewApp(mock.ask, nil))
	app = typeText(app, "top authors")

	app, cmd := press(app, tea.KeyEnter)
	if cmd == nil {
		t.Fatal("enter should return a command")
	}
	if len(mock.queries) != 1 || mock.queries[0] != "top authors" {
		t.Fatalf("ask called with %v", mock.queries)
	}
	if !app.Pending() {
		t.Error("app should be pending after submit")
	}
	if !strings.Contains(app.View(), "Thinking...") {
		t.Error("pending view should show Thinking...")
	}

	m, _ := app.Update(AnswerReady{Query: "top authors", Answer: "alice has contributed 2 posts"})
	app = m.(App)
	if app.Pending() {
		t.Error("app should not be pending after the answer")
	}
	hist := app.History()
	if len(hist) != 1 || hist[0][1] != "alice has contributed 2 posts" {
		t.Errorf("history = %v", hist)
	}
	if !strings.Contains(app.View(), "alice has contributed 2 posts") {
		t.Errorf("view should show the answer, got:\n%s", app.View())
	}
}

func TestAppIgnoresBlankAndConcurrentQueries(t *testing.T) {
	mock := &mockAsk{}
	app := sized(t, NewApp(mock.ask, nil))

	app = typeText(app, "   ")
	app, cmd := press(app, tea.KeyEnter)
	if cmd != nil || len(mock.queries) != 0 {
		t.Error("blank query should not be asked")
	}

	app = typeText(app, "sentiment")
	app, _ = press(app, tea.KeyEnter)
	app = typeText(app, "spike")
	_, cmd = press(app, tea.KeyEnter)
	if cmd != nil {
		t.Error("second query while pending should be ignored")
	}
	if len(mock.queries) != 1 {
		t.Errorf("ask called %d times, want 1", len(mock.queries))
	}
}

func TestAppQuit(t *testing.T) {
	for _, k := range []tea.KeyType{tea.KeyCtrlC, tea.KeyEsc} {
		_, cmd := press(sized(t, NewApp(nil, nil)), k)
		if cmd == nil {
			t.Fatalf("%v should quit", k)
		}
		if _, ok := cmd().(tea.QuitMsg); !ok {
			t.Errorf("%v should produce QuitMsg", k)
		}
	}
}

func TestAppDebugToggle(t *testing.T) {
	ring := otel.NewRingBuffer(8)
	ring.Push(otel.Event{Kind: otel.KindQueryRouted, Route: "topics", Time: time.Now()})
	app := sized(t, NewApp(nil, ring))

	app, _ = press(app, tea.KeyCtrlD)
	if !strings.Contains(app.View(), "Session Stats") {
		t.Errorf("debug view should show stats, got:\n%s", app.View())
	}
	app, _ = press(app, tea.KeyCtrlD)
	if strings.Contains(app.View(), "Session Stats") {
		t.Error("second ctrl+d should close the overlay")
	}
}

func TestAskCmd(t *testing.T) {
	msg := AskCmd(context.Background(), echoAnswerer{})("hello")()
	ready, ok := msg.(AnswerReady)
	if !ok {
		t.Fatalf("got %T, want AnswerReady", msg)
	}
	if ready.Query != "hello" || ready.Answer != "answer to hello" {
		t.Errorf("got %+v", ready)
	}
}
