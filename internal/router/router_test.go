package router

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abelbrown/pulse/internal/brain"
	"github.com/abelbrown/pulse/internal/metrics"
	"github.com/abelbrown/pulse/internal/model"
	"github.com/abelbrown/pulse/internal/narrative"
	"github.com/abelbrown/pulse/internal/signals"
	"github.com/abelbrown/pulse/internal/tfidf"
)

type stubProvider struct {
	content string
	err     error
}

func (s stubProvider) Name() string    { return "stub" }
func (s stubProvider) Available() bool { return true }
func (s stubProvider) Generate(ctx context.Context, req brain.Request) (brain.Response, error) {
	return brain.Response{Content: s.content}, s.err
}

func at(d, h int) time.Time {
	return time.Date(2024, 5, d, h, 0, 0, 0, time.UTC)
}

func sample() *model.Collection {
	mk := func(id, author, sub, text, domain string, when time.Time, score, comments int) model.Post {
		return model.Post{
			ID: id, Author: author, Subreddit: sub, Title: text, Text: text + " ",
			Domain: domain, Datetime: when, Score: score, NumComments: comments,
		}
	}
	return model.NewCollection([]model.Post{
		mk("1", "alice", "golang", "generics landed in golang", "go.dev", at(1, 9), 10, 2),
		mk("2", "bob", "golang", "golang release notes", "go.dev", at(1, 10), 0, 30),
		mk("3", "alice", "rust", "rust borrow checker", "", at(2, 9), 5, 5),
		mk("4", "carol", "golang", "golang generics again", "github.com", at(2, 11), 100, 1),
		mk("5", "alice", "python", "python typing", "python.org", at(3, 9), 3, 9),
	})
}

func newRouter(t *testing.T, c *model.Collection, opts Options, gen *narrative.Generator) (*Router, *metrics.Metrics) {
	t.Helper()
	m := metrics.New()
	return New(Static{C: c}, opts, tfidf.NewVectorizer(tfidf.DefaultMaxFeatures), nil, gen, m), m
}

func TestMatchPrecedence(t *testing.T) {
	r, _ := newRouter(t, sample(), DefaultOptions(), nil)

	tests := []struct {
		query string
		want  string
	}{
		{"what are the trending topics", "topics"},
		{"Which AUTHOR posts most?", "authors"},
		{"which author dominates each subreddit", "authors"},
		{"subreddit sentiment", "subreddits"},
		{"community", "subreddits"},
		{"overall sentiment please", "sentiment"},
		{"any spike in activity", "flashpoints"},
		{"top url sources", "domains"},
		{"most controversial threads", "controversial"},
		{"give me a summary", "narrative"},
		{"controversial topic", "topics"},
		{"influencer summary", "authors"},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			route, ok := r.Match(tt.query)
			require.True(t, ok)
			assert.Equal(t, tt.want, route.Name)
		})
	}
}

func TestRouteTableOrder(t *testing.T) {
	r, _ := newRouter(t, sample(), DefaultOptions(), nil)
	var names []string
	for _, route := range r.Routes() {
		names = append(names, route.Name)
	}
	assert.Equal(t, []string{
		"topics", "authors", "subreddits", "sentiment",
		"flashpoints", "domains", "controversial", "narrative",
	}, names)
}

func TestUnknownQuery(t *testing.T) {
	r, m := newRouter(t, sample(), DefaultOptions(), nil)
	assert.Equal(t, Unknown, r.Answer(context.Background(), "hello there"))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.QueryRoutes.WithLabelValues("unknown")))
}

func TestTopicsAnswer(t *testing.T) {
	r, m := newRouter(t, sample(), DefaultOptions(), nil)
	got := r.Answer(context.Background(), "trending")

	assert.True(t, strings.HasPrefix(got, "Based on the analysis of the data, the following topics are currently trending:\n\n"))
	assert.Contains(t, got, "The topic 'golang' has a significant score of ")
	assert.True(t, strings.HasSuffix(got, "\nThese topics highlight the key areas of interest in the current discourse."))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.QueryRoutes.WithLabelValues("topics")))
}

func TestAuthorsAnswer(t *testing.T) {
	r, _ := newRouter(t, sample(), DefaultOptions(), nil)
	got := r.Answer(context.Background(), "top authors")

	want := "The analysis of the data reveals the most active authors or influencers:\n\n" +
		"alice has contributed 3 posts, showcasing their significant activity.\n" +
		"bob has contributed 1 posts, showcasing their significant activity.\n" +
		"carol has contributed 1 posts, showcasing their significant activity.\n" +
		"\nThese authors play a crucial role in shaping the discussions within the community."
	assert.Equal(t, want, got)
}

func TestSubredditsAnswerRespectsLimit(t *testing.T) {
	opts := DefaultOptions()
	opts.Subreddits = 1
	r, _ := newRouter(t, sample(), opts, nil)
	got := r.Answer(context.Background(), "community")

	assert.Contains(t, got, "The subreddit 'golang' has 3 posts, reflecting its engagement level.\n")
	assert.NotContains(t, got, "'rust'")
}

func TestSentimentAnswerIsPlaceholder(t *testing.T) {
	r, _ := newRouter(t, sample(), DefaultOptions(), nil)
	got := r.Answer(context.Background(), "sentiment")
	assert.Contains(t, got, "Positive sentiment accounts for 60% of the discussions, while 30% of the content is neutral. Negative sentiment constitutes 10%.")
}

func TestFlashpointMethods(t *testing.T) {
	c := model.NewCollection([]model.Post{
		{ID: "a", Datetime: at(1, 1)},
		{ID: "b", Datetime: at(2, 1)},
		{ID: "c", Datetime: at(3, 1)},
		{ID: "d", Datetime: at(3, 2)},
		{ID: "e", Datetime: at(3, 3)},
		{ID: "f", Datetime: at(3, 4)},
	})

	r, _ := newRouter(t, c, DefaultOptions(), nil)
	got := r.Answer(context.Background(), "flashpoints")
	assert.Contains(t, got, "On 2024-05-03, there were 4 posts, indicating a significant spike in activity.\n")
	assert.NotContains(t, got, "2024-05-01")

	opts := DefaultOptions()
	opts.FlashpointMethod = signals.MethodMaxDay
	r, _ = newRouter(t, c, opts, nil)
	got = r.Answer(context.Background(), "spike")
	assert.Contains(t, got, "On 2024-05-03, there were 4 posts")
}

func TestDomainsAnswer(t *testing.T) {
	r, _ := newRouter(t, sample(), DefaultOptions(), nil)
	got := r.Answer(context.Background(), "which domain")
	assert.Contains(t, got, "The domain 'go.dev' was referenced 2 times, highlighting its relevance.\n")
	assert.True(t, strings.HasSuffix(got, "These domains are key sources of information in the discussions."))
}

func TestControversialAnswer(t *testing.T) {
	r, _ := newRouter(t, sample(), DefaultOptions(), nil)
	got := r.Answer(context.Background(), "controversial")

	lines := strings.Split(got, "\n")
	require.GreaterOrEqual(t, len(lines), 3)
	assert.Equal(t, "The post titled 'golang release notes' by bob has a score of 0, indicating its controversial nature.", lines[2])
}

func TestNarrativeAnswer(t *testing.T) {
	gen := narrative.NewGenerator(stubProvider{content: "A story."}, "4-5", 100)
	r, _ := newRouter(t, sample(), DefaultOptions(), gen)
	got := r.Answer(context.Background(), "narrative")
	assert.Equal(t, "The following narrative summary has been generated based on the data:\n\nA story.", got)
}

type recordingProvider struct {
	prompts *[]string
}

func (p recordingProvider) Name() string    { return "recording" }
func (p recordingProvider) Available() bool { return true }
func (p recordingProvider) Generate(ctx context.Context, req brain.Request) (brain.Response, error) {
	*p.prompts = append(*p.prompts, req.UserPrompt)
	return brain.Response{Content: "ok"}, nil
}

func TestNarrativeUsesAnalystPrompt(t *testing.T) {
	var prompts []string
	gen := narrative.NewGenerator(recordingProvider{prompts: &prompts}, "4-5", 100)
	r, _ := newRouter(t, sample(), DefaultOptions(), gen)
	r.Answer(context.Background(), "give me a summary")

	require.Len(t, prompts, 1)
	for _, want := range []string{"You are a Reddit analyst", "Topics: ", "Author Influence: ", "Controversial Posts: ", "Sentiments: positive 60%"} {
		assert.Contains(t, prompts[0], want)
	}
	assert.NotContains(t, prompts[0], "digital culture analyst")
}

func TestNarrativeFailureIsCounted(t *testing.T) {
	gen := narrative.NewGenerator(stubProvider{err: errors.New("quota")}, "4-5", 100)
	r, m := newRouter(t, sample(), DefaultOptions(), gen)
	got := r.Answer(context.Background(), "summary")

	assert.True(t, strings.HasSuffix(got, narrative.FailureText))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.NarrativeFailures))
}

func TestHandlerErrorIsRendered(t *testing.T) {
	// No text survives stop-word removal, so topics degrade.
	c := model.NewCollection([]model.Post{{ID: "1", Text: "the and of "}})
	r, m := newRouter(t, c, DefaultOptions(), nil)

	got := r.Answer(context.Background(), "topics")
	assert.True(t, strings.HasPrefix(got, "Error: "), got)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SignalRuns.WithLabelValues("topics", metrics.StatusDegraded)))
}

func TestNarrativeWithoutGeneratorIsError(t *testing.T) {
	r, _ := newRouter(t, sample(), DefaultOptions(), nil)
	assert.Equal(t, "Error: no narrative generator configured", r.Answer(context.Background(), "summary"))
}

func TestAnswerRecoversPanics(t *testing.T) {
	r, _ := newRouter(t, sample(), DefaultOptions(), nil)
	r.routes = []Route{{
		Name:     "boom",
		Triggers: []string{"boom"},
		Handle: func(context.Context, *model.Collection) (string, error) {
			panic("kaboom")
		},
	}}
	assert.Equal(t, "Error: kaboom", r.Answer(context.Background(), "boom"))
}

func TestEmptyCollectionNeverPanics(t *testing.T) {
	r, _ := newRouter(t, model.Empty(), DefaultOptions(), nil)
	for _, q := range []string{"topic", "author", "subreddit", "sentiment", "spike", "url", "controversial", "summary", "nothing"} {
		assert.NotPanics(t, func() { r.Answer(context.Background(), q) }, q)
	}
}
