// Package ingest loads post records into a model.Collection.
//
// Supported location formats are line-delimited JSON (.jsonl), a whole
// document JSON array (.json) and the SQLite post store (.db, .sqlite).
// Malformed records are skipped one at a time; only an unrecognized format
// or an unreadable location fails the load.
package ingest

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/abelbrown/pulse/internal/logging"
	"github.com/abelbrown/pulse/internal/model"
	"github.com/abelbrown/pulse/internal/store"
)

// maxLineBytes bounds a single JSONL record. Long selftext bodies are common.
const maxLineBytes = 16 * 1024 * 1024

// FormatError reports a location whose encoding the loader does not know.
type FormatError struct {
	Path string
	Ext  string
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("unsupported file format %q for %s: use .jsonl, .json or .db", e.Ext, e.Path)
}

// Stats describes what a load kept and dropped.
type Stats struct {
	Read       int // records seen
	Kept       int
	Malformed  int
	Duplicates int
}

// Load reads the posts stored at path.
func Load(ctx context.Context, path string) (*model.Collection, error) {
	c, _, err := LoadWithStats(ctx, path)
	return c, err
}

// LoadWithStats is Load plus the per-load record accounting.
func LoadWithStats(ctx context.Context, path string) (*model.Collection, Stats, error) {
	ext := strings.ToLower(filepath.Ext(path))

	var (
		c     *model.Collection
		stats Stats
		err   error
	)
	switch ext {
	case ".jsonl":
		c, stats, err = loadFile(path, ReadJSONL)
	case ".json":
		c, stats, err = loadFile(path, ReadJSON)
	case ".db", ".sqlite", ".sqlite3":
		c, stats, err = loadStore(ctx, path)
	default:
		return nil, Stats{}, &FormatError{Path: path, Ext: ext}
	}
	if err != nil {
		return nil, stats, err
	}

	logging.Info("Loaded posts",
		"path", path,
		"kept", stats.Kept,
		"malformed", stats.Malformed,
		"duplicates", stats.Duplicates)
	return c, stats, nil
}

func loadFile(path string, read func(io.Reader) (*model.Collection, Stats, error)) (*model.Collection, Stats, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, Stats{}, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	return read(f)
}

func loadStore(ctx context.Context, path string) (*model.Collection, Stats, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, Stats{}, fmt.Errorf("open %s: %w", path, err)
	}
	st, err := store.Open(path)
	if err != nil {
		return nil, Stats{}, err
	}
	defer st.Close()

	posts, err := st.AllPosts(ctx)
	if err != nil {
		return nil, Stats{}, fmt.Errorf("read posts from %s: %w", path, err)
	}
	stats := Stats{Read: len(posts), Kept: len(posts)}
	return model.NewCollection(posts), stats, nil
}

// ReadJSONL decodes one post per line. A record wrapped one level deep under
// a "data" key is unwrapped. Lines that fail to decode are skipped.
func ReadJSONL(r io.Reader) (*model.Collection, Stats, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), maxLineBytes)

	b := newBuilder()
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		b.stats.Read++

		var fields map[string]json.RawMessage
		if err := json.Unmarshal(line, &fields); err != nil {
			b.stats.Malformed++
			continue
		}
		raw := json.RawMessage(line)
		if inner, ok := fields["data"]; ok {
			raw = inner
		}
		b.add(raw)
	}
	if err := scanner.Err(); err != nil {
		return nil, b.stats, fmt.Errorf("read jsonl: %w", err)
	}
	return b.collection(), b.stats, nil
}

// ReadJSON decodes a whole-document array of posts. A document that is not an
// array yields an empty collection.
func ReadJSON(r io.Reader) (*model.Collection, Stats, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, Stats{}, fmt.Errorf("read json: %w", err)
	}

	var records []json.RawMessage
	if err := json.Unmarshal(data, &records); err != nil {
		logging.Warn("JSON document is not an array of posts", "err", err)
		return model.Empty(), Stats{}, nil
	}

	b := newBuilder()
	for _, raw := range records {
		b.stats.Read++
		b.add(raw)
	}
	return b.collection(), b.stats, nil
}

// builder accumulates decoded posts, dropping malformed and duplicate ids.
type builder struct {
	posts []model.Post
	seen  map[string]struct{}
	stats Stats
}

func newBuilder() *builder {
	return &builder{seen: make(map[string]struct{})}
}

func (b *builder) add(raw json.RawMessage) {
	var p model.Post
	if err := json.Unmarshal(raw, &p); err != nil {
		b.stats.Malformed++
		return
	}
	if p.ID != "" {
		if _, dup := b.seen[p.ID]; dup {
			b.stats.Duplicates++
			return
		}
		b.seen[p.ID] = struct{}{}
	}
	b.posts = append(b.posts, p)
	b.stats.Kept++
}

func (b *builder) collection() *model.Collection {
	return model.NewCollection(b.posts)
}
