// Package signals computes the analytical signals of a preprocessed post
// collection: rankings, sentiment, flashpoints, controversy, networks and
// keyword-scoped series.
//
// Every extractor returns its result together with an error. The result is
// always usable: on failure it is the signal's empty default and the error is
// an *ExtractorError that has already been logged. One failing signal never
// aborts a batch.
package signals

import (
	"fmt"
	"sort"
	"time"

	"github.com/abelbrown/pulse/internal/logging"
)

// ExtractorError reports a failure inside one signal computation.
type ExtractorError struct {
	Signal string
	Err    error
}

func (e *ExtractorError) Error() string {
	return fmt.Sprintf("signal %s: %v", e.Signal, e.Err)
}

func (e *ExtractorError) Unwrap() error { return e.Err }

// fail wraps err for signal and logs it.
func fail(signal string, err error) error {
	xerr := &ExtractorError{Signal: signal, Err: err}
	logging.Warn("Signal degraded to default", "signal", signal, "err", err)
	return xerr
}

// guard converts a panic inside an extractor into an ExtractorError.
// Use as: defer guard("name", &err)
func guard(signal string, err *error) {
	if r := recover(); r != nil {
		*err = fail(signal, fmt.Errorf("panic: %v", r))
	}
}

// Count is one (key, frequency) pair of a ranking.
type Count struct {
	Key   string `json:"key"`
	Count int    `json:"count"`
}

// Keys returns the ranking keys in order.
func Keys(counts []Count) []string {
	keys := make([]string, len(counts))
	for i, c := range counts {
		keys[i] = c.Key
	}
	return keys
}

// DayCount is the number of posts on one UTC calendar day.
type DayCount struct {
	Day   time.Time `json:"day"`
	Count int       `json:"count"`
}

// Value is a (key, scalar) pair such as a per-subreddit mean.
type Value struct {
	Key   string  `json:"key"`
	Value float64 `json:"value"`
}

// valueCounts counts non-empty keys and returns them by descending count.
// Equal counts keep first-appearance order. n <= 0 keeps every key.
func valueCounts(keys []string, n int) []Count {
	index := make(map[string]int)
	var counts []Count
	for _, k := range keys {
		if k == "" {
			continue
		}
		if i, ok := index[k]; ok {
			counts[i].Count++
			continue
		}
		index[k] = len(counts)
		counts = append(counts, Count{Key: k, Count: 1})
	}

	sort.SliceStable(counts, func(i, j int) bool {
		return counts[i].Count > counts[j].Count
	})
	if n > 0 && len(counts) > n {
		counts = counts[:n]
	}
	return counts
}

// Matrix is a dense labelled count table, such as a crosstab.
// Row and column labels are sorted ascending.
type Matrix struct {
	Rows   []string `json:"rows"`
	Cols   []string `json:"cols"`
	Counts [][]int  `json:"counts"`
}

// Empty reports whether the table has no rows or no columns.
func (m Matrix) Empty() bool {
	return len(m.Rows) == 0 || len(m.Cols) == 0
}

// Shape returns (rows, cols).
func (m Matrix) Shape() (int, int) {
	return len(m.Rows), len(m.Cols)
}

// Get returns the count at (row, col) by label, 0 if either is absent.
func (m Matrix) Get(row, col string) int {
	i := sort.SearchStrings(m.Rows, row)
	j := sort.SearchStrings(m.Cols, col)
	if i >= len(m.Rows) || m.Rows[i] != row || j >= len(m.Cols) || m.Cols[j] != col {
		return 0
	}
	return m.Counts[i][j]
}

// crosstab builds a Matrix from (row, col) pairs.
func crosstab(pairs [][2]string) Matrix {
	rowSet := make(map[string]struct{})
	colSet := make(map[string]struct{})
	for _, p := range pairs {
		rowSet[p[0]] = struct{}{}
		colSet[p[1]] = struct{}{}
	}

	m := Matrix{Rows: sortedKeys(rowSet), Cols: sortedKeys(colSet)}
	rowIdx := indexOf(m.Rows)
	colIdx := indexOf(m.Cols)
	m.Counts = make([][]int, len(m.Rows))
	for i := range m.Counts {
		m.Counts[i] = make([]int, len(m.Cols))
	}
	for _, p := range pairs {
		m.Counts[rowIdx[p[0]]][colIdx[p[1]]]++
	}
	return m
}

func sortedKeys(set map[string]struct{}) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func indexOf(labels []string) map[string]int {
	idx := make(map[string]int, len(labels))
	for i, l := range labels {
		idx[l] = i
	}
	return idx
}
