package signals

import (
	"github.com/abelbrown/pulse/internal/model"
)

// selftextPreview bounds the body shown with keyword examples.
const selftextPreview = 200

// Example is a representative post for a keyword.
type Example struct {
	Author    string `json:"author"`
	Subreddit string `json:"subreddit"`
	Score     int    `json:"score"`
	Title     string `json:"title"`
	SelfText  string `json:"selftext"`
}

// KeywordExamples returns up to n posts whose text contains keyword, by
// descending score. Bodies are cut to a short preview.
func KeywordExamples(c *model.Collection, keyword string, n int) (examples []Example, err error) {
	defer guard("keyword_examples", &err)

	posts, _ := c.MatchingText(keyword)
	for _, p := range topByScore(posts, n) {
		examples = append(examples, Example{
			Author:    p.Author,
			Subreddit: p.Subreddit,
			Score:     p.Score,
			Title:     p.Title,
			SelfText:  preview(p.SelfText),
		})
	}
	return examples, nil
}

func preview(s string) string {
	if s == "" {
		return ""
	}
	r := []rune(s)
	if len(r) > selftextPreview {
		r = r[:selftextPreview]
	}
	return string(r) + "..."
}

// KeywordTimeSeries counts posts whose text contains keyword per UTC day.
// Days without a match are absent.
func KeywordTimeSeries(c *model.Collection, keyword string) (series []DayCount, err error) {
	defer guard("keyword_series", &err)

	posts, _ := c.MatchingText(keyword)
	return dailyCounts(posts), nil
}

// KeywordByCommunity counts keyword matches per (day, subreddit). Rows are
// days formatted YYYY-MM-DD, columns are subreddits.
func KeywordByCommunity(c *model.Collection, keyword string) (m Matrix, err error) {
	defer guard("keyword_by_community", &err)

	posts, _ := c.MatchingText(keyword)
	pairs := make([][2]string, 0, len(posts))
	for _, p := range posts {
		pairs = append(pairs, [2]string{p.Date().Format("2006-01-02"), p.Subreddit})
	}
	return crosstab(pairs), nil
}

// KeywordTexts returns the text of the first n posts mentioning keyword, in
// load order.
func KeywordTexts(c *model.Collection, keyword string, n int) []string {
	posts, _ := c.MatchingText(keyword)
	if n > 0 && len(posts) > n {
		posts = posts[:n]
	}
	texts := make([]string, len(posts))
	for i, p := range posts {
		texts[i] = p.Text
	}
	return texts
}
