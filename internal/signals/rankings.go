package signals

import (
	"fmt"
	"sort"
	"strings"

	"github.com/abelbrown/pulse/internal/model"
	"github.com/abelbrown/pulse/internal/tfidf"
)

// Topics ranks the n highest TF-IDF terms of the collection's text.
func Topics(c *model.Collection, v *tfidf.Vectorizer, n int) (terms []tfidf.Term, err error) {
	defer guard("topics", &err)

	if c.IsEmpty() {
		return nil, nil
	}
	docs := make([]string, c.Len())
	for i := range docs {
		docs[i] = c.At(i).Text
	}
	terms, err = v.TopTerms(docs, n)
	if err != nil {
		return nil, fail("topics", err)
	}
	return terms, nil
}

// TopAuthors ranks authors by post count.
func TopAuthors(c *model.Collection, n int) (counts []Count, err error) {
	defer guard("authors", &err)
	return rankField(c, n, func(p model.Post) string { return p.Author }), nil
}

// TopSubreddits ranks communities by post count.
func TopSubreddits(c *model.Collection, n int) (counts []Count, err error) {
	defer guard("subreddits", &err)
	return rankField(c, n, func(p model.Post) string { return p.Subreddit }), nil
}

// TopDomains ranks extracted link domains by post count. Posts without a
// domain are excluded.
func TopDomains(c *model.Collection, n int) (counts []Count, err error) {
	defer guard("domains", &err)
	return rankField(c, n, func(p model.Post) string { return p.Domain }), nil
}

func rankField(c *model.Collection, n int, field func(model.Post) string) []Count {
	keys := make([]string, c.Len())
	for i := range keys {
		keys[i] = field(c.At(i))
	}
	return valueCounts(keys, n)
}

// AuthorStat summarizes one author's activity.
type AuthorStat struct {
	Author      string  `json:"author"`
	PostCount   int     `json:"post_count"`
	AvgScore    float64 `json:"avg_score"`
	AvgComments float64 `json:"avg_comments"`
	Subreddits  int     `json:"subreddits"`
}

// AuthorStats returns per-author activity, by descending post count.
// Equal counts are ordered by author name.
func AuthorStats(c *model.Collection) (stats []AuthorStat, err error) {
	defer guard("author_stats", &err)

	type acc struct {
		posts, score, comments int
		subs                   map[string]struct{}
	}
	byAuthor := make(map[string]*acc)
	for _, p := range c.Posts() {
		if p.Author == "" {
			continue
		}
		a, ok := byAuthor[p.Author]
		if !ok {
			a = &acc{subs: make(map[string]struct{})}
			byAuthor[p.Author] = a
		}
		a.posts++
		a.score += p.Score
		a.comments += p.NumComments
		if p.Subreddit != "" {
			a.subs[p.Subreddit] = struct{}{}
		}
	}

	for name, a := range byAuthor {
		stats = append(stats, AuthorStat{
			Author:      name,
			PostCount:   a.posts,
			AvgScore:    float64(a.score) / float64(a.posts),
			AvgComments: float64(a.comments) / float64(a.posts),
			Subreddits:  len(a.subs),
		})
	}
	sort.Slice(stats, func(i, j int) bool {
		if stats[i].PostCount != stats[j].PostCount {
			return stats[i].PostCount > stats[j].PostCount
		}
		return stats[i].Author < stats[j].Author
	})
	return stats, nil
}

// PowerUser is a top author with their best posts.
type PowerUser struct {
	Author string       `json:"author"`
	Posts  []model.Post `json:"posts"`
}

// Examples renders the posts as markdown bullets, one per line:
// "- *<title>* in r/<subreddit> (↑ <score>)".
func (u PowerUser) Examples() string {
	lines := make([]string, len(u.Posts))
	for i, p := range u.Posts {
		lines[i] = fmt.Sprintf("- *%s* in r/%s (↑ %d)", p.Title, p.Subreddit, p.Score)
	}
	return strings.Join(lines, "\n")
}

// PowerUsers returns the n most active authors, each with their three
// highest-scoring posts.
func PowerUsers(c *model.Collection, n int) (users []PowerUser, err error) {
	defer guard("power_users", &err)

	top, _ := TopAuthors(c, n)
	for _, a := range top {
		posts, _ := c.Filter(func(p model.Post) bool { return p.Author == a.Key })
		users = append(users, PowerUser{Author: a.Key, Posts: topByScore(posts, 3)})
	}
	return users, nil
}

// topByScore returns up to n posts by descending score, stable on ties.
func topByScore(posts []model.Post, n int) []model.Post {
	sorted := append([]model.Post(nil), posts...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Score > sorted[j].Score
	})
	if n > 0 && len(sorted) > n {
		sorted = sorted[:n]
	}
	return sorted
}
