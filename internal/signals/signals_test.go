package signals

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/abelbrown/pulse/internal/model"
	"github.com/abelbrown/pulse/internal/tfidf"
)

func day(d int) time.Time {
	return time.Date(2024, 3, d, 12, 0, 0, 0, time.UTC)
}

func post(id, author, sub string, when time.Time) model.Post {
	return model.Post{ID: id, Author: author, Subreddit: sub, Datetime: when, Title: "post " + id, Text: "post " + id + " "}
}

func TestValueCountsOrder(t *testing.T) {
	got := valueCounts([]string{"b", "a", "", "a", "c", "b", "d"}, 3)
	want := []Count{{"b", 2}, {"a", 2}, {"c", 1}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("valueCounts mismatch (-want +got):\n%s", diff)
	}
}

func TestTopRankingsRespectN(t *testing.T) {
	c := model.NewCollection([]model.Post{
		{Author: "alice", Subreddit: "golang", Domain: "go.dev"},
		{Author: "bob", Subreddit: "golang"},
		{Author: "alice", Subreddit: "rust", Domain: "go.dev"},
		{Author: "carol", Subreddit: "python", Domain: "python.org"},
	})

	authors, err := TopAuthors(c, 2)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]Count{{"alice", 2}, {"bob", 1}}, authors); diff != "" {
		t.Errorf("authors (-want +got):\n%s", diff)
	}

	subs, _ := TopSubreddits(c, 10)
	if len(subs) != 3 || subs[0].Key != "golang" {
		t.Errorf("unexpected subreddits %v", subs)
	}

	domains, _ := TopDomains(c, 10)
	if diff := cmp.Diff([]Count{{"go.dev", 2}, {"python.org", 1}}, domains); diff != "" {
		t.Errorf("domains should exclude absent (-want +got):\n%s", diff)
	}
}

func TestTopicsOnCollection(t *testing.T) {
	c := model.NewCollection([]model.Post{
		{Text: "golang release golang generics"},
		{Text: "golang tooling"},
		{Text: "rust release"},
	})
	terms, err := Topics(c, tfidf.NewVectorizer(tfidf.DefaultMaxFeatures), 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(terms) != 2 || terms[0].Word != "golang" {
		t.Errorf("unexpected topics %v", terms)
	}
}

func TestTopicsDegradesOnEmptyVocabulary(t *testing.T) {
	c := model.NewCollection([]model.Post{{Text: "the and"}})
	terms, err := Topics(c, tfidf.NewVectorizer(tfidf.DefaultMaxFeatures), 5)
	var xerr *ExtractorError
	if !errors.As(err, &xerr) || xerr.Signal != "topics" {
		t.Fatalf("expected topics ExtractorError, got %v", err)
	}
	if !errors.Is(err, tfidf.ErrEmptyVocabulary) {
		t.Error("ExtractorError should wrap the cause")
	}
	if terms != nil {
		t.Errorf("expected empty default, got %v", terms)
	}
}

func TestGuardRecoversPanic(t *testing.T) {
	run := func() (n int, err error) {
		defer guard("boom", &err)
		var m map[string]int
		m["x"] = 1
		return 1, nil
	}
	n, err := run()
	var xerr *ExtractorError
	if !errors.As(err, &xerr) || xerr.Signal != "boom" {
		t.Fatalf("expected ExtractorError, got %v", err)
	}
	if n != 0 {
		t.Errorf("expected zero default, got %d", n)
	}
}

func TestPlaceholderSentimentIsFixed(t *testing.T) {
	want := Distribution{Positive: 60, Neutral: 30, Negative: 10}
	if got := PlaceholderSentiment(model.Empty()); got != want {
		t.Errorf("got %+v", got)
	}
}

func TestLexiconSentimentPolarity(t *testing.T) {
	c := model.NewCollection([]model.Post{
		{Text: "I love this, it is great and wonderful"},
		{Text: "This is terrible, awful and I hate it"},
		{Text: ""},
	})
	s, err := LexiconSentiment(c, NewAnalyzer())
	if err != nil {
		t.Fatal(err)
	}
	if len(s.Scores) != 3 {
		t.Fatalf("column not row aligned: %d scores", len(s.Scores))
	}
	if s.Scores[0] <= 0 || s.Scores[1] >= 0 {
		t.Errorf("unexpected polarity %v", s.Scores)
	}
	for _, v := range s.Scores {
		if v < -1 || v > 1 {
			t.Errorf("score %v out of range", v)
		}
	}
}

func TestSentimentMeanEmptyIsNaN(t *testing.T) {
	if !math.IsNaN(Sentiment{}.Mean()) {
		t.Error("mean of no scores should be NaN")
	}
}

func TestStatisticalFlashpoint(t *testing.T) {
	var posts []model.Post
	for i, n := range []int{1, 1, 1, 5} {
		for j := 0; j < n; j++ {
			posts = append(posts, post("p", "a", "s", day(i+1)))
		}
	}
	spikes, err := StatisticalFlashpoint(model.NewCollection(posts))
	if err != nil {
		t.Fatal(err)
	}
	if len(spikes) != 1 || spikes[0].Count != 5 || spikes[0].Day.Day() != 4 {
		t.Errorf("unexpected spikes %v", spikes)
	}

	single, _ := StatisticalFlashpoint(model.NewCollection(posts[:1]))
	if len(single) != 0 {
		t.Errorf("single-day series should have no spikes, got %v", single)
	}
}

func TestMaxDayFlashpoint(t *testing.T) {
	c := model.NewCollection([]model.Post{
		{ID: "a", Datetime: day(1), Score: 1},
		{ID: "b", Datetime: day(2), Score: 5},
		{ID: "c", Datetime: day(2).Add(time.Hour), Score: 9},
		{ID: "d", Datetime: day(3), Score: 100},
	})
	spike, err := MaxDayFlashpoint(c, 5)
	if err != nil {
		t.Fatal(err)
	}
	if !spike.Found || spike.String() != "2024-03-02" || spike.Count != 2 {
		t.Fatalf("unexpected spike %+v", spike)
	}
	if spike.Posts[0].ID != "c" || spike.Posts[1].ID != "b" {
		t.Errorf("spike posts not ordered by score: %v", spike.Posts)
	}

	present := false
	for _, d := range DailyCounts(c) {
		if d.Day.Equal(spike.Day) {
			present = true
		}
	}
	if !present {
		t.Error("spike day must be present in the data")
	}
}

func TestMaxDayFlashpointEmpty(t *testing.T) {
	spike, err := MaxDayFlashpoint(model.Empty(), 5)
	if err != nil {
		t.Fatal(err)
	}
	if spike.Found || spike.String() != "none" {
		t.Errorf("expected none signal, got %+v", spike)
	}
}

func TestControversialDedupesTitles(t *testing.T) {
	c := model.NewCollection([]model.Post{
		{ID: "1", Title: "same", Score: 0, NumComments: 10},
		{ID: "2", Title: "same", Score: 0, NumComments: 50},
		{ID: "3", Title: "calm", Score: 100, NumComments: 1},
		{ID: "4", Title: "hot", Score: 1, NumComments: 20},
		{ID: "5", Title: "undefined", Score: -1, NumComments: 0},
	})
	ranked, err := Controversial(c, 10)
	if err != nil {
		t.Fatal(err)
	}

	var ids []string
	titles := make(map[string]bool)
	for _, p := range ranked {
		if titles[p.Title] {
			t.Errorf("duplicate title %q", p.Title)
		}
		titles[p.Title] = true
		ids = append(ids, p.ID)
	}
	if diff := cmp.Diff([]string{"2", "4", "3", "5"}, ids); diff != "" {
		t.Errorf("ranking mismatch (-want +got):\n%s", diff)
	}
	if got := ranked[1].UpvoteRatio; math.Abs(got-1.0/21) > 1e-9 {
		t.Errorf("upvote ratio = %v", got)
	}
	if ranked[3].UpvoteRatio != 0 {
		t.Errorf("non-positive denominator should give 0, got %v", ranked[3].UpvoteRatio)
	}

	top, _ := Controversial(c, 2)
	if len(top) != 2 {
		t.Errorf("expected top 2, got %d", len(top))
	}
}

func TestCoPostGraphThreshold(t *testing.T) {
	c := model.NewCollection([]model.Post{
		{ID: "1", Author: "alice", URL: "https://example.com/a"},
		{ID: "2", Author: "bob", URL: "https://example.com/a"},
		{ID: "3", Author: "carol", URL: "https://example.com/b"},
	})

	g, err := CoPostGraph(c, 1)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]Edge{{A: "alice", B: "bob", Weight: 1}}, g.Edges()); diff != "" {
		t.Errorf("edges (-want +got):\n%s", diff)
	}
	if g.Degree("alice") != 1 || g.Degree("carol") != 0 {
		t.Errorf("unexpected degrees")
	}

	g2, _ := CoPostGraph(c, 2)
	if len(g2.Edges()) != 0 || g2.NodeCount() != 0 {
		t.Errorf("expected empty graph at threshold 2, got %v", g2.Edges())
	}
}

func TestCoPostGraphWeights(t *testing.T) {
	c := model.NewCollection([]model.Post{
		{Author: "alice", URL: "u1"},
		{Author: "bob", URL: "u1"},
		{Author: "bob", URL: "u1"},
		{Author: "alice", URL: "u2"},
		{Author: "bob", URL: "u2"},
		{Author: "carol", URL: "u2"},
	})
	g, _ := CoPostGraph(c, 2)
	if diff := cmp.Diff([]Edge{{A: "alice", B: "bob", Weight: 2}}, g.Edges()); diff != "" {
		t.Errorf("edges (-want +got):\n%s", diff)
	}
	if top := g.TopByDegree(1); len(top) != 1 || top[0] != "alice" {
		t.Errorf("unexpected top nodes %v", top)
	}
}

func TestCrossPosting(t *testing.T) {
	c := model.NewCollection([]model.Post{
		{Author: "alice", Subreddit: "golang"},
		{Author: "alice", Subreddit: "rust"},
		{Author: "alice", Subreddit: "rust"},
		{Author: "bob", Subreddit: "golang"},
	})
	m, err := CrossPosting(c, DefaultMinSubreddits)
	if err != nil {
		t.Fatal(err)
	}
	if r, cols := m.Shape(); r != 1 || cols != 2 {
		t.Fatalf("shape = %d x %d", r, cols)
	}
	if m.Get("alice", "rust") != 2 || m.Get("bob", "golang") != 0 {
		t.Errorf("unexpected counts %+v", m)
	}

	none, _ := CrossPosting(c, 3)
	if !none.Empty() {
		t.Error("expected empty matrix")
	}
}

func TestDomainsBySubreddit(t *testing.T) {
	c := model.NewCollection([]model.Post{
		{Subreddit: "golang", Domain: "go.dev"},
		{Subreddit: "golang"},
		{Subreddit: "rust", Domain: "github.com"},
	})
	m, _ := DomainsBySubreddit(c)
	if r, _ := m.Shape(); r != 2 {
		t.Errorf("expected 2 subreddits, got %d", r)
	}
}

func TestKeywordSignals(t *testing.T) {
	long := make([]byte, 300)
	for i := range long {
		long[i] = 'x'
	}
	c := model.NewCollection([]model.Post{
		{Title: "Gophers unite", Text: "Gophers unite ", Subreddit: "golang", Score: 3, Datetime: day(4)},
		{Title: "about GOPHERS", SelfText: string(long), Text: "about GOPHERS " + string(long), Subreddit: "go", Score: 10, Datetime: day(4)},
		{Title: "rust", Text: "rust ", Datetime: day(5)},
		{Title: "gophers again", Text: "gophers again ", Subreddit: "golang", Score: 1, Datetime: day(11)},
	})

	ex, err := KeywordExamples(c, "gophers", 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(ex) != 2 || ex[0].Score != 10 {
		t.Fatalf("unexpected examples %+v", ex)
	}
	if len(ex[0].SelfText) != selftextPreview+3 {
		t.Errorf("preview length = %d", len(ex[0].SelfText))
	}
	if ex[1].SelfText != "" {
		t.Errorf("empty selftext should stay empty, got %q", ex[1].SelfText)
	}

	series, _ := KeywordTimeSeries(c, "gophers")
	want := []DayCount{
		{Day: time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC), Count: 2},
		{Day: time.Date(2024, 3, 11, 0, 0, 0, 0, time.UTC), Count: 1},
	}
	if diff := cmp.Diff(want, series); diff != "" {
		t.Errorf("series (-want +got):\n%s", diff)
	}

	m, _ := KeywordByCommunity(c, "gophers")
	if m.Get("2024-03-04", "golang") != 1 || m.Get("2024-03-04", "go") != 1 {
		t.Errorf("unexpected community matrix %+v", m)
	}

	s := Sentiment{Scores: []float64{0.5, -0.5, 0.9, 0.2}}
	weekly, _ := WeeklySentiment(c, s, "gophers")
	if len(weekly) != 2 || weekly[0].Value != 0 || weekly[1].Value != 0.2 {
		t.Errorf("unexpected weekly series %+v", weekly)
	}
}

func TestWeekStart(t *testing.T) {
	// 2024-03-10 is a Sunday
	got := WeekStart(time.Date(2024, 3, 10, 23, 0, 0, 0, time.UTC))
	want := time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("WeekStart = %v, want %v", got, want)
	}
}

func TestLinkSentiment(t *testing.T) {
	c := model.NewCollection([]model.Post{
		{Subreddit: "a", URL: "https://Example.com/1"},
		{Subreddit: "b", URL: "https://example.com/2"},
		{Subreddit: "a", URL: "https://example.com/3"},
		{Subreddit: "c", URL: "https://other.org"},
	})
	s := Sentiment{Scores: []float64{0.2, 0.9, 0.4, -1}}
	means, matches, err := LinkSentiment(c, s, "example.com")
	if err != nil {
		t.Fatal(err)
	}
	if len(matches) != 3 {
		t.Errorf("expected 3 matching posts, got %d", len(matches))
	}
	if len(means) != 2 || means[0].Key != "b" || math.Abs(means[1].Value-0.3) > 1e-9 {
		t.Errorf("unexpected means %+v", means)
	}
}

func TestPowerUsersAndAuthorStats(t *testing.T) {
	c := model.NewCollection([]model.Post{
		{Author: "alice", Subreddit: "x", Title: "a1", Score: 1, NumComments: 2},
		{Author: "alice", Subreddit: "y", Title: "a2", Score: 5, NumComments: 4},
		{Author: "bob", Subreddit: "x", Title: "b1", Score: 3},
	})
	users, _ := PowerUsers(c, 1)
	if len(users) != 1 || users[0].Author != "alice" || users[0].Posts[0].Title != "a2" {
		t.Errorf("unexpected power users %+v", users)
	}
	if got, want := users[0].Examples(), "- *a2* in r/y (↑ 5)\n- *a1* in r/x (↑ 1)"; got != want {
		t.Errorf("Examples() = %q, want %q", got, want)
	}

	stats, _ := AuthorStats(c)
	want := AuthorStat{Author: "alice", PostCount: 2, AvgScore: 3, AvgComments: 3, Subreddits: 2}
	if diff := cmp.Diff(want, stats[0]); diff != "" {
		t.Errorf("stats (-want +got):\n%s", diff)
	}
}
