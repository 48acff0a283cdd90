package signals

import (
	"math"
	"sort"

	"github.com/abelbrown/pulse/internal/model"
)

// ControversialPost is one ranked post of the controversy signal.
// Absent record fields arrive here as zero values: 0 for numbers and "" for
// text.
type ControversialPost struct {
	ID          string  `json:"id"`
	Title       string  `json:"title"`
	Author      string  `json:"authorName"`
	Subreddit   string  `json:"subreddit"`
	SelfText    string  `json:"selfText"`
	URL         string  `json:"url"`
	Score       int     `json:"score"`
	Comments    int     `json:"comments"`
	Controversy float64 `json:"controversy"`
	UpvoteRatio float64 `json:"upvoteRatio"`
}

// ControversyScore is num_comments / (score + 1). A zero denominator gives
// +Inf for commented posts and NaN for uncommented ones.
func ControversyScore(score, comments int) float64 {
	return float64(comments) / float64(score+1)
}

// UpvoteRatio is score / (score + comments), or 0 when that denominator is
// not positive.
func UpvoteRatio(score, comments int) float64 {
	den := score + comments
	if den <= 0 {
		return 0
	}
	return float64(score) / float64(den)
}

// Controversial ranks posts by descending controversy score, keeps the first
// post of every title and returns the top n. NaN scores sort last; equal
// scores keep load order.
func Controversial(c *model.Collection, n int) (ranked []ControversialPost, err error) {
	defer guard("controversy", &err)

	all := make([]ControversialPost, 0, c.Len())
	for _, p := range c.Posts() {
		all = append(all, ControversialPost{
			ID:          p.ID,
			Title:       p.Title,
			Author:      p.Author,
			Subreddit:   p.Subreddit,
			SelfText:    p.SelfText,
			URL:         p.URL,
			Score:       p.Score,
			Comments:    p.NumComments,
			Controversy: ControversyScore(p.Score, p.NumComments),
			UpvoteRatio: UpvoteRatio(p.Score, p.NumComments),
		})
	}

	sort.SliceStable(all, func(i, j int) bool {
		a, b := all[i].Controversy, all[j].Controversy
		if math.IsNaN(b) {
			return !math.IsNaN(a)
		}
		return a > b
	})

	seen := make(map[string]struct{})
	for _, p := range all {
		if _, dup := seen[p.Title]; dup {
			continue
		}
		seen[p.Title] = struct{}{}
		ranked = append(ranked, p)
		if n > 0 && len(ranked) == n {
			break
		}
	}
	return ranked, nil
}
