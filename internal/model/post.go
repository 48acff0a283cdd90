// Package model holds the post data model shared by every pipeline stage.
package model

import (
	"encoding/json"
	"errors"
	"math"
	"strconv"
	"strings"
	"time"
)

// DeletedAuthor is the sentinel Reddit uses for removed accounts.
const DeletedAuthor = "[deleted]"

// Post is one social-media submission.
//
// The attribute fields mirror the line-delimited record format. The derived
// fields are populated by the preprocessor and are never written back.
type Post struct {
	ID          string   `json:"id"`
	Subreddit   string   `json:"subreddit"`
	Author      string   `json:"author"`
	Title       string   `json:"title"`
	SelfText    string   `json:"selftext"`
	URL         string   `json:"url,omitempty"`
	CreatedUTC  *float64 `json:"created_utc"`
	Score       int      `json:"score"`
	NumComments int      `json:"num_comments"`
	Permalink   string   `json:"permalink,omitempty"`

	// CreatedRaw holds a created_utc value that could not be read as epoch
	// seconds. The preprocessor rejects such posts.
	CreatedRaw json.RawMessage `json:"-"`

	Datetime  time.Time `json:"-"`
	Text      string    `json:"-"`
	WordCount int       `json:"-"`
	Domain    string    `json:"-"`
}

// HasDomain reports whether the preprocessor extracted a link domain.
func (p Post) HasDomain() bool {
	return p.Domain != ""
}

// Date returns the UTC calendar day of the post.
func (p Post) Date() time.Time {
	y, m, d := p.Datetime.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Created returns the creation instant decoded from CreatedUTC.
// ok is false when the field is missing.
func (p Post) Created() (t time.Time, ok bool) {
	if p.CreatedUTC == nil {
		return time.Time{}, false
	}
	secs := *p.CreatedUTC
	whole := int64(secs)
	nanos := int64((secs - float64(whole)) * float64(time.Second))
	return time.Unix(whole, nanos).UTC(), true
}

// ErrBadTimestamp reports a created_utc value that is not epoch seconds.
var ErrBadTimestamp = errors.New("created_utc is not epoch seconds")

// UnmarshalJSON decodes a record, accepting created_utc as a number or a
// numeric string. Any other created_utc is kept in CreatedRaw instead of
// failing the record.
func (p *Post) UnmarshalJSON(data []byte) error {
	type plain Post
	aux := struct {
		*plain
		CreatedUTC json.RawMessage `json:"created_utc"`
	}{plain: (*plain)(p)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	p.CreatedUTC, p.CreatedRaw = nil, nil
	raw := aux.CreatedUTC
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	secs, err := ParseEpoch(raw)
	if err != nil {
		p.CreatedRaw = append(json.RawMessage(nil), raw...)
		return nil
	}
	p.CreatedUTC = &secs
	return nil
}

// ParseEpoch reads a JSON number or numeric string as epoch seconds.
func ParseEpoch(raw json.RawMessage) (float64, error) {
	text := string(raw)
	var str string
	if json.Unmarshal(raw, &str) == nil {
		text = strings.TrimSpace(str)
	}
	secs, err := strconv.ParseFloat(text, 64)
	if err != nil || math.IsNaN(secs) || math.IsInf(secs, 0) {
		return 0, ErrBadTimestamp
	}
	return secs, nil
}

// Float64 returns a pointer to v. Handy for building posts in code.
func Float64(v float64) *float64 {
	return &v
}
