package insight

import (
	"strings"
	"testing"
	"time"

	"github.com/abelbrown/pulse/internal/model"
	"github.com/abelbrown/pulse/internal/signals"
	"github.com/abelbrown/pulse/internal/tfidf"
)

func fixture() *model.Collection {
	d1 := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	d2 := time.Date(2024, 5, 2, 10, 0, 0, 0, time.UTC)
	return model.NewCollection([]model.Post{
		{ID: "1", Author: "alice", Subreddit: "golang", Domain: "go.dev", Text: "golang release notes", Datetime: d1},
		{ID: "2", Author: "alice", Subreddit: "rust", Domain: "github.com", Text: "rust release golang", Datetime: d2},
		{ID: "3", Author: "bob", Subreddit: "golang", Text: "golang generics", Datetime: d2},
	})
}

func TestComputeAndSummary(t *testing.T) {
	c := fixture()
	sent := signals.Sentiment{Scores: []float64{0.5, 0.1, 0.0}}
	r := Compute(c, sent, tfidf.NewVectorizer(tfidf.DefaultMaxFeatures), DefaultOptions())

	if len(r.Errors) != 0 {
		t.Fatalf("unexpected degraded signals: %v", r.Errors)
	}
	if r.Posts != 3 || !r.Flashpoint.Found {
		t.Fatalf("unexpected report %+v", r)
	}
	if r.Keywords(3)[0] != "golang" {
		t.Errorf("unexpected keywords %v", r.Keywords(3))
	}

	summary := r.Summary()
	for _, want := range []string{
		"The dataset contains 3 posts with an average sentiment of 0.20.",
		"Top subreddits are golang, rust and top domains include go.dev, github.com.",
		"Subreddit cross-posting network generated with 1 users and 2 subreddits.",
		"Top domains by subreddit calculated for 2 subreddits.",
		"A flashpoint day with unusually high posting activity was detected on 2024-05-02.",
	} {
		if !strings.Contains(summary, want) {
			t.Errorf("summary missing %q:\n%s", want, summary)
		}
	}
}

func TestSentencesOnEmptySignals(t *testing.T) {
	r := Report{}
	got := r.Sentences()
	want := []string{
		"No significant cross-posting activity detected.",
		"No significant domain sharing detected.",
		"No flashpoint day detected.",
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("sentence %d = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestComputeOnEmptyCollection(t *testing.T) {
	r := Compute(model.Empty(), signals.Sentiment{}, tfidf.NewVectorizer(tfidf.DefaultMaxFeatures), DefaultOptions())
	if r.Posts != 0 || r.Flashpoint.Found {
		t.Errorf("unexpected report %+v", r)
	}
	if !strings.Contains(r.Summary(), "No flashpoint day detected.") {
		t.Error("empty summary should report no flashpoint")
	}
}
