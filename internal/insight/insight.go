// Package insight combines several signals into the human-readable dataset
// summary shared by the batch report and the narrative prompt.
package insight

import (
	"fmt"
	"strings"
	"time"

	"github.com/abelbrown/pulse/internal/model"
	"github.com/abelbrown/pulse/internal/signals"
	"github.com/abelbrown/pulse/internal/tfidf"
)

// Options sizes the signals a Report is computed from.
type Options struct {
	Topics        int
	Subreddits    int
	Domains       int
	MinSubreddits int
}

// DefaultOptions mirrors the batch report's defaults.
func DefaultOptions() Options {
	return Options{
		Topics:        10,
		Subreddits:    5,
		Domains:       10,
		MinSubreddits: signals.DefaultMinSubreddits,
	}
}

// Report is the bundle of signals behind the summary.
type Report struct {
	Posts         int
	First, Last   time.Time
	MeanSentiment float64
	Topics        []tfidf.Term
	TopSubreddits []string
	TopDomains    []string
	CrossPosting  signals.Matrix
	DomainsBySub  signals.Matrix
	Flashpoint    signals.MaxDay

	// Errors collects the extractors that degraded to defaults.
	Errors []error
}

// Compute runs the signals a Report needs. It never fails: degraded signals
// are recorded in Report.Errors and contribute their defaults.
func Compute(c *model.Collection, sent signals.Sentiment, v *tfidf.Vectorizer, opts Options) Report {
	r := Report{Posts: c.Len(), MeanSentiment: sent.Mean()}
	r.First, r.Last, _ = c.DateRange()

	keep := func(err error) {
		if err != nil {
			r.Errors = append(r.Errors, err)
		}
	}

	var err error
	r.Topics, err = signals.Topics(c, v, opts.Topics)
	keep(err)

	subs, err := signals.TopSubreddits(c, opts.Subreddits)
	keep(err)
	r.TopSubreddits = signals.Keys(subs)

	domains, err := signals.TopDomains(c, opts.Domains)
	keep(err)
	r.TopDomains = signals.Keys(domains)

	r.CrossPosting, err = signals.CrossPosting(c, opts.MinSubreddits)
	keep(err)
	r.DomainsBySub, err = signals.DomainsBySubreddit(c)
	keep(err)
	r.Flashpoint, err = signals.MaxDayFlashpoint(c, 5)
	keep(err)

	return r
}

// Keywords returns up to n leading topic words.
func (r Report) Keywords(n int) []string {
	var words []string
	for i, t := range r.Topics {
		if i == n {
			break
		}
		words = append(words, t.Word)
	}
	return words
}

// CrossPostingSentence describes the cross-posting network in one line.
func CrossPostingSentence(m signals.Matrix) string {
	if m.Empty() {
		return "No significant cross-posting activity detected."
	}
	users, subs := m.Shape()
	return fmt.Sprintf("Subreddit cross-posting network generated with %d users and %d subreddits.", users, subs)
}

// DomainSentence describes domain sharing across subreddits in one line.
func DomainSentence(m signals.Matrix) string {
	if m.Empty() {
		return "No significant domain sharing detected."
	}
	subs, _ := m.Shape()
	return fmt.Sprintf("Top domains by subreddit calculated for %d subreddits.", subs)
}

// FlashpointSentence describes the busiest day in one line.
func FlashpointSentence(spike signals.MaxDay) string {
	if !spike.Found {
		return "No flashpoint day detected."
	}
	return fmt.Sprintf("A flashpoint day with unusually high posting activity was detected on %s.", spike)
}

// Sentences returns the cross-posting, domain and flashpoint lines.
func (r Report) Sentences() []string {
	return []string{
		CrossPostingSentence(r.CrossPosting),
		DomainSentence(r.DomainsBySub),
		FlashpointSentence(r.Flashpoint),
	}
}

// Summary renders the report as plain sentences, one per line.
func (r Report) Summary() string {
	var b strings.Builder
	fmt.Fprintf(&b, "The dataset contains %d posts with an average sentiment of %.2f.\n", r.Posts, r.MeanSentiment)
	fmt.Fprintf(&b, "Key topics include %s.\n", strings.Join(r.Keywords(3), ", "))
	fmt.Fprintf(&b, "Top subreddits are %s and top domains include %s.\n",
		strings.Join(r.TopSubreddits, ", "), strings.Join(r.TopDomains, ", "))
	for _, s := range r.Sentences() {
		b.WriteString(s)
		b.WriteByte('\n')
	}
	return b.String()
}
