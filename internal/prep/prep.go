// Package prep derives the computed post fields every signal depends on.
package prep

import (
	"errors"
	"fmt"
	"strings"

	"github.com/abelbrown/pulse/internal/logging"
	"github.com/abelbrown/pulse/internal/model"
)

// ErrMissingTimestamp is wrapped by DataError when created_utc is absent.
var ErrMissingTimestamp = errors.New("missing created_utc")

// DataError reports a required field that is missing or unusable.
// It fails the whole preprocessing step.
type DataError struct {
	Field  string
	PostID string
	Err    error
}

func (e *DataError) Error() string {
	return fmt.Sprintf("post %q: field %s: %v", e.PostID, e.Field, e.Err)
}

func (e *DataError) Unwrap() error { return e.Err }

// Preprocess returns a new collection with Datetime, Text, WordCount and
// Domain populated. Row count and order are preserved.
func Preprocess(c *model.Collection) (*model.Collection, error) {
	if c.IsEmpty() {
		return model.Empty(), nil
	}

	posts := c.Posts()
	for i := range posts {
		p := &posts[i]

		if p.CreatedRaw != nil {
			return nil, &DataError{
				Field:  "created_utc",
				PostID: p.ID,
				Err:    fmt.Errorf("%w: %s", model.ErrBadTimestamp, p.CreatedRaw),
			}
		}
		created, ok := p.Created()
		if !ok {
			return nil, &DataError{Field: "created_utc", PostID: p.ID, Err: ErrMissingTimestamp}
		}
		p.Datetime = created
		p.Text = p.Title + " " + p.SelfText
		p.WordCount = len(strings.Fields(p.Text))
		p.Domain = ExtractDomain(p.URL)
	}

	out := model.NewCollection(posts)
	if first, last, ok := out.DateRange(); ok {
		logging.Info("Preprocessed posts",
			"rows", out.Len(),
			"earliest", first.Format("2006-01-02 15:04:05"),
			"latest", last.Format("2006-01-02 15:04:05"))
	}
	return out, nil
}

// ExtractDomain returns the host component of rawURL using the naive
// split-on-slash rule: the URL must contain "http" and its third slash
// separated part is the host. Anything else yields "".
//
// This is intentionally not net/url: "https://example.com:8080/x" keeps its
// port and "xhttp/a/b" yields "b".
func ExtractDomain(rawURL string) string {
	if rawURL == "" || !strings.Contains(rawURL, "http") {
		return ""
	}
	parts := strings.Split(rawURL, "/")
	if len(parts) < 3 {
		return ""
	}
	return parts[2]
}
