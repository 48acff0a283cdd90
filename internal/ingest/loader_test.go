package ingest

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/abelbrown/pulse/internal/model"
	"github.com/abelbrown/pulse/internal/store"
	"github.com/google/go-cmp/cmp"
)

func TestReadJSONLUnwrapsAndSkipsMalformed(t *testing.T) {
	input := strings.Join([]string{
		`{"id":"a","subreddit":"golang","author":"alice","title":"one","created_utc":1704067200}`,
		`{"data":{"id":"b","subreddit":"rust","author":"bob","title":"two","created_utc":1704153600}}`,
		`not json at all`,
		``,
		`{"id":"c","score":"not-a-number"}`,
		`{"id":"d","subreddit":"golang","title":"four"}`,
	}, "\n")

	c, stats, err := ReadJSONL(strings.NewReader(input))
	if err != nil {
		t.Fatalf("ReadJSONL: %v", err)
	}

	var ids []string
	for _, p := range c.Posts() {
		ids = append(ids, p.ID)
	}
	if diff := cmp.Diff([]string{"a", "b", "d"}, ids); diff != "" {
		t.Errorf("kept ids mismatch (-want +got):\n%s", diff)
	}
	if stats.Malformed != 2 {
		t.Errorf("expected 2 malformed records, got %d", stats.Malformed)
	}
	if got := c.At(1).Subreddit; got != "rust" {
		t.Errorf("wrapped record not unwrapped, subreddit = %q", got)
	}
}

func TestReadJSONLKeepsUndecodableTimestamp(t *testing.T) {
	input := `{"id":"a","title":"one","created_utc":"1704067200"}
{"id":"b","title":"two","created_utc":"abc"}
`
	c, stats, err := ReadJSONL(strings.NewReader(input))
	if err != nil {
		t.Fatalf("ReadJSONL: %v", err)
	}
	if stats.Kept != 2 || stats.Malformed != 0 {
		t.Fatalf("stats = %+v, want 2 kept and none malformed", stats)
	}
	if got := c.At(0).CreatedUTC; got == nil || *got != 1704067200 {
		t.Errorf("numeric string created_utc = %v", got)
	}
	if string(c.At(1).CreatedRaw) != `"abc"` {
		t.Errorf("CreatedRaw = %s, want \"abc\"", c.At(1).CreatedRaw)
	}
}

func TestReadJSONLDropsDuplicateIDs(t *testing.T) {
	input := `{"id":"a","title":"first"}
{"id":"a","title":"second"}`
	c, stats, err := ReadJSONL(strings.NewReader(input))
	if err != nil {
		t.Fatal(err)
	}
	if c.Len() != 1 || c.At(0).Title != "first" {
		t.Errorf("expected first occurrence kept, got %+v", c.Posts())
	}
	if stats.Duplicates != 1 {
		t.Errorf("expected 1 duplicate, got %d", stats.Duplicates)
	}
}

func TestReadJSONLEmptyInput(t *testing.T) {
	c, _, err := ReadJSONL(strings.NewReader("garbage\nmore garbage\n"))
	if err != nil {
		t.Fatalf("fully malformed input should not error: %v", err)
	}
	if !c.IsEmpty() {
		t.Errorf("expected empty collection, got %d rows", c.Len())
	}
}

func TestReadJSONArray(t *testing.T) {
	input := `[{"id":"a","title":"x"},{"id":"b","title":"y"},42]`
	c, stats, err := ReadJSON(strings.NewReader(input))
	if err != nil {
		t.Fatal(err)
	}
	if c.Len() != 2 {
		t.Errorf("expected 2 posts, got %d", c.Len())
	}
	if stats.Malformed != 1 {
		t.Errorf("expected 1 malformed element, got %d", stats.Malformed)
	}
}

func TestReadJSONNotAnArray(t *testing.T) {
	c, _, err := ReadJSON(strings.NewReader(`{"id":"a"}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !c.IsEmpty() {
		t.Error("expected empty collection for non-array document")
	}
}

func TestLoadUnsupportedFormat(t *testing.T) {
	_, err := Load(context.Background(), "posts.csv")
	var fe *FormatError
	if !errors.As(err, &fe) {
		t.Fatalf("expected FormatError, got %v", err)
	}
	if fe.Ext != ".csv" {
		t.Errorf("unexpected ext %q", fe.Ext)
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(context.Background(), filepath.Join(t.TempDir(), "missing.jsonl"))
	if err == nil {
		t.Fatal("expected error for missing file")
	}
	var fe *FormatError
	if errors.As(err, &fe) {
		t.Error("missing file should not be a FormatError")
	}
}

func TestAppendThenLoadJSONL(t *testing.T) {
	path := filepath.Join(t.TempDir(), "posts.jsonl")
	posts := []model.Post{
		{ID: "a", Title: "hello", CreatedUTC: model.Float64(1704067200)},
		{ID: "b", Title: "world", CreatedUTC: model.Float64(1704153600)},
	}
	if err := AppendJSONL(path, posts[:1]); err != nil {
		t.Fatal(err)
	}
	if err := AppendJSONL(path, posts[1:]); err != nil {
		t.Fatal(err)
	}

	c, err := Load(context.Background(), path)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(posts, c.Posts()); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadFromStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "posts.db")
	st, err := store.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := st.SavePosts(context.Background(), []model.Post{
		{ID: "a", Subreddit: "golang", Title: "x", CreatedUTC: model.Float64(1704067200)},
	}); err != nil {
		t.Fatal(err)
	}
	st.Close()

	c, err := Load(context.Background(), path)
	if err != nil {
		t.Fatal(err)
	}
	if c.Len() != 1 || c.At(0).Subreddit != "golang" {
		t.Errorf("unexpected posts %+v", c.Posts())
	}
}

func TestLoadEmptyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.jsonl")
	if err := os.WriteFile(path, nil, 0644); err != nil {
		t.Fatal(err)
	}
	c, err := Load(context.Background(), path)
	if err != nil {
		t.Fatal(err)
	}
	if !c.IsEmpty() {
		t.Error("expected empty collection")
	}
}
