package signals

import (
	"sort"
	"time"

	"github.com/jonreiter/govader"
	"gonum.org/v1/gonum/stat"

	"github.com/abelbrown/pulse/internal/model"
)

// Distribution is a percentage breakdown of sentiment.
type Distribution struct {
	Positive int `json:"positive"`
	Neutral  int `json:"neutral"`
	Negative int `json:"negative"`
}

// PlaceholderSentiment returns a fixed 60/30/10 distribution regardless of
// input. It is a stub kept for the query path; nothing is computed.
func PlaceholderSentiment(*model.Collection) Distribution {
	return Distribution{Positive: 60, Neutral: 30, Negative: 10}
}

// Sentiment is a row-aligned column of compound polarity scores in [-1, 1].
// Scores[i] belongs to the collection row i it was computed from.
type Sentiment struct {
	Scores []float64
}

// Mean returns the average score, NaN when there are no rows.
func (s Sentiment) Mean() float64 {
	return stat.Mean(s.Scores, nil)
}

// At returns the score of row i, or 0 when the column is missing.
func (s Sentiment) At(i int) float64 {
	if i < 0 || i >= len(s.Scores) {
		return 0
	}
	return s.Scores[i]
}

// Analyzer scores text with a lexicon-based model.
type Analyzer struct {
	sia *govader.SentimentIntensityAnalyzer
}

// NewAnalyzer loads the VADER lexicon.
func NewAnalyzer() *Analyzer {
	return &Analyzer{sia: govader.NewSentimentIntensityAnalyzer()}
}

// Compound returns the compound polarity of text.
func (a *Analyzer) Compound(text string) float64 {
	return a.sia.PolarityScores(text).Compound
}

// LexiconSentiment scores every row's Text. The collection is not modified;
// callers keep the returned column alongside it.
func LexiconSentiment(c *model.Collection, a *Analyzer) (s Sentiment, err error) {
	defer guard("sentiment", &err)

	scores := make([]float64, c.Len())
	for i := range scores {
		scores[i] = a.Compound(c.At(i).Text)
	}
	return Sentiment{Scores: scores}, nil
}

// WeekValue is the mean of a series over one week.
type WeekValue struct {
	Week  time.Time `json:"week"` // Monday 00:00 UTC
	Value float64   `json:"value"`
}

// WeekStart returns Monday 00:00 UTC of the week containing t.
func WeekStart(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	day := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	offset := (int(day.Weekday()) + 6) % 7
	return day.AddDate(0, 0, -offset)
}

// WeeklySentiment averages the sentiment of posts whose text contains
// keyword, per Monday-start week, ascending.
func WeeklySentiment(c *model.Collection, s Sentiment, keyword string) (series []WeekValue, err error) {
	defer guard("weekly_sentiment", &err)

	posts, rows := c.MatchingText(keyword)
	sums := make(map[time.Time][]float64)
	for i, p := range posts {
		w := WeekStart(p.Datetime)
		sums[w] = append(sums[w], s.At(rows[i]))
	}
	for w, vals := range sums {
		series = append(series, WeekValue{Week: w, Value: stat.Mean(vals, nil)})
	}
	sort.Slice(series, func(i, j int) bool { return series[i].Week.Before(series[j].Week) })
	return series, nil
}

// LinkSentiment averages the sentiment of posts whose URL contains keyword,
// per subreddit, by descending mean. It also returns the matching posts.
func LinkSentiment(c *model.Collection, s Sentiment, keyword string) (means []Value, matches []model.Post, err error) {
	defer guard("link_sentiment", &err)

	posts, rows := c.MatchingURL(keyword)
	bySub := make(map[string][]float64)
	for i, p := range posts {
		bySub[p.Subreddit] = append(bySub[p.Subreddit], s.At(rows[i]))
	}
	for sub, vals := range bySub {
		means = append(means, Value{Key: sub, Value: stat.Mean(vals, nil)})
	}
	sort.Slice(means, func(i, j int) bool {
		if means[i].Value != means[j].Value {
			return means[i].Value > means[j].Value
		}
		return means[i].Key < means[j].Key
	})
	return means, posts, nil
}
