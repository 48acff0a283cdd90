// Package tfidf scores terms across a document collection with
// term-frequency / inverse-document-frequency weighting.
//
// The weighting matches the common "smooth idf, l2 normalized rows" scheme:
//
//	idf(t)  = ln((1 + n) / (1 + df(t))) + 1
//	w(d, t) = count(d, t) * idf(t), then each row scaled to unit length
//
// Tokens are lower-cased runs of two or more word characters. The vocabulary
// is sorted alphabetically and, when capped, keeps the terms with the highest
// corpus frequency.
package tfidf

import (
	"errors"
	"math"
	"regexp"
	"slices"
	"sort"
	"strings"

	"gonum.org/v1/gonum/floats"
)

// DefaultMaxFeatures caps the vocabulary size.
const DefaultMaxFeatures = 1000

// ErrEmptyVocabulary is returned when no document contains a usable term.
var ErrEmptyVocabulary = errors.New("empty vocabulary; perhaps the documents only contain stop words")

var tokenPattern = regexp.MustCompile(`[\p{L}\p{N}_]{2,}`)

// Vectorizer converts documents into TF-IDF weights.
type Vectorizer struct {
	MaxFeatures int                 // 0 means unlimited
	StopWords   map[string]struct{} // nil means keep every token
}

// NewVectorizer returns a Vectorizer with the English stop-word list and the
// given vocabulary cap.
func NewVectorizer(maxFeatures int) *Vectorizer {
	return &Vectorizer{
		MaxFeatures: maxFeatures,
		StopWords:   EnglishStopWords(),
	}
}

// Term is one vocabulary entry and its summed weight across all documents.
type Term struct {
	Word  string  `json:"word"`
	Score float64 `json:"score"`
}

// Tokenize splits doc into lower-cased tokens, dropping stop words.
func (v *Vectorizer) Tokenize(doc string) []string {
	raw := tokenPattern.FindAllString(strings.ToLower(doc), -1)
	tokens := raw[:0]
	for _, tok := range raw {
		if _, stop := v.StopWords[tok]; stop {
			continue
		}
		tokens = append(tokens, tok)
	}
	return tokens
}

// Row is one sparse document vector: Values[k] is the weight of vocabulary
// term Index[k]. Index is ascending and holds only non-zero terms.
type Row struct {
	Index  []int
	Values []float64
}

// At returns the weight of vocabulary term j.
func (r Row) At(j int) float64 {
	k := sort.SearchInts(r.Index, j)
	if k < len(r.Index) && r.Index[k] == j {
		return r.Values[k]
	}
	return 0
}

// Matrix is a fitted document-term weight matrix.
type Matrix struct {
	Vocabulary []string // alphabetical
	Rows       []Row    // one row per document
}

// FitTransform learns the vocabulary from docs and returns their weights.
func (v *Vectorizer) FitTransform(docs []string) (*Matrix, error) {
	tokenized := make([][]string, len(docs))
	corpusFreq := make(map[string]int)
	for i, doc := range docs {
		tokenized[i] = v.Tokenize(doc)
		for _, tok := range tokenized[i] {
			corpusFreq[tok]++
		}
	}
	if len(corpusFreq) == 0 {
		return nil, ErrEmptyVocabulary
	}

	vocab := v.limitVocabulary(corpusFreq)
	index := make(map[string]int, len(vocab))
	for i, w := range vocab {
		index[w] = i
	}

	rows := make([]Row, len(docs))
	docFreq := make([]float64, len(vocab))
	counts := make(map[int]float64)
	for i, toks := range tokenized {
		clear(counts)
		for _, tok := range toks {
			if j, ok := index[tok]; ok {
				counts[j]++
			}
		}
		row := Row{Index: make([]int, 0, len(counts)), Values: make([]float64, len(counts))}
		for j := range counts {
			row.Index = append(row.Index, j)
			docFreq[j]++
		}
		sort.Ints(row.Index)
		for k, j := range row.Index {
			row.Values[k] = counts[j]
		}
		rows[i] = row
	}

	n := float64(len(docs))
	idf := make([]float64, len(vocab))
	for j, df := range docFreq {
		idf[j] = math.Log((1+n)/(1+df)) + 1
	}

	for _, row := range rows {
		for k, j := range row.Index {
			row.Values[k] *= idf[j]
		}
		if norm := floats.Norm(row.Values, 2); norm > 0 {
			floats.Scale(1/norm, row.Values)
		}
	}

	return &Matrix{Vocabulary: vocab, Rows: rows}, nil
}

// limitVocabulary keeps the MaxFeatures most frequent terms and returns them
// in alphabetical order. Frequency ties go to the alphabetically earlier term.
func (v *Vectorizer) limitVocabulary(freq map[string]int) []string {
	vocab := make([]string, 0, len(freq))
	for w := range freq {
		vocab = append(vocab, w)
	}
	sort.Strings(vocab)

	if v.MaxFeatures > 0 && len(vocab) > v.MaxFeatures {
		byFreq := slices.Clone(vocab)
		sort.SliceStable(byFreq, func(i, j int) bool {
			return freq[byFreq[i]] > freq[byFreq[j]]
		})
		vocab = byFreq[:v.MaxFeatures]
		sort.Strings(vocab)
	}
	return vocab
}

// ColumnSums returns the summed weight of every vocabulary term, in
// vocabulary order.
func (m *Matrix) ColumnSums() []Term {
	terms := make([]Term, len(m.Vocabulary))
	for j, w := range m.Vocabulary {
		terms[j].Word = w
	}
	for _, row := range m.Rows {
		for k, j := range row.Index {
			terms[j].Score += row.Values[k]
		}
	}
	return terms
}

// TopTerms fits docs and returns the n highest scoring terms, descending.
// Equal scores keep vocabulary order. n <= 0 returns every term.
func (v *Vectorizer) TopTerms(docs []string, n int) ([]Term, error) {
	m, err := v.FitTransform(docs)
	if err != nil {
		return nil, err
	}

	terms := m.ColumnSums()
	sort.SliceStable(terms, func(i, j int) bool {
		return terms[i].Score > terms[j].Score
	})
	if n > 0 && len(terms) > n {
		terms = terms[:n]
	}
	return terms, nil
}
