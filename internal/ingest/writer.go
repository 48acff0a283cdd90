package ingest

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"

	"github.com/abelbrown/pulse/internal/model"
)

// AppendJSONL appends posts to the line-delimited file at path, creating it
// if needed. Each post is written as one JSON object per line.
func AppendJSONL(path string, posts []model.Post) error {
	if len(posts) == 0 {
		return nil
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}

	w := bufio.NewWriter(f)
	enc := json.NewEncoder(w)
	for _, p := range posts {
		if err := enc.Encode(p); err != nil {
			f.Close()
			return fmt.Errorf("encode post %s: %w", p.ID, err)
		}
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}
