package model

import (
	"slices"
	"strings"
	"time"
)

// Collection is an ordered multiset of posts held in load order.
//
// A Collection is never mutated after construction. Stages that derive data
// build a new Collection or keep their own row-aligned columns.
type Collection struct {
	posts []Post
}

// NewCollection copies posts into a new Collection.
func NewCollection(posts []Post) *Collection {
	return &Collection{posts: slices.Clone(posts)}
}

// Empty returns a Collection with no rows.
func Empty() *Collection {
	return &Collection{}
}

// Len returns the number of rows. Safe on a nil Collection.
func (c *Collection) Len() int {
	if c == nil {
		return 0
	}
	return len(c.posts)
}

// IsEmpty reports whether the collection has no rows.
func (c *Collection) IsEmpty() bool {
	return c.Len() == 0
}

// At returns the row at index i.
func (c *Collection) At(i int) Post {
	return c.posts[i]
}

// Posts returns a copy of the rows in load order.
func (c *Collection) Posts() []Post {
	if c == nil {
		return nil
	}
	return slices.Clone(c.posts)
}

// Filter returns the rows matching keep, in load order, with their original
// row indexes so callers can look up row-aligned columns.
func (c *Collection) Filter(keep func(Post) bool) (posts []Post, rows []int) {
	if c == nil {
		return nil, nil
	}
	for i, p := range c.posts {
		if keep(p) {
			posts = append(posts, p)
			rows = append(rows, i)
		}
	}
	return posts, rows
}

// MatchingText returns rows whose Text contains keyword, case-insensitively.
func (c *Collection) MatchingText(keyword string) (posts []Post, rows []int) {
	kw := strings.ToLower(keyword)
	return c.Filter(func(p Post) bool {
		return strings.Contains(strings.ToLower(p.Text), kw)
	})
}

// MatchingURL returns rows whose URL contains keyword, case-insensitively.
func (c *Collection) MatchingURL(keyword string) (posts []Post, rows []int) {
	kw := strings.ToLower(keyword)
	return c.Filter(func(p Post) bool {
		return p.URL != "" && strings.Contains(strings.ToLower(p.URL), kw)
	})
}

// DateRange returns the earliest and latest post instants.
func (c *Collection) DateRange() (first, last time.Time, ok bool) {
	if c.IsEmpty() {
		return time.Time{}, time.Time{}, false
	}
	first, last = c.posts[0].Datetime, c.posts[0].Datetime
	for _, p := range c.posts[1:] {
		if p.Datetime.Before(first) {
			first = p.Datetime
		}
		if p.Datetime.After(last) {
			last = p.Datetime
		}
	}
	return first, last, true
}
