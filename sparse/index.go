package sparse

import (
	"fmt"
	"math"
)

// Index is a fitted TF-IDF model together with the term matrix of the
// corpus it was fitted on. It is immutable once built and safe for
// concurrent use.
type Index struct {
	cfg    Config
	terms  []string
	lookup map[string]int32
	idf    []float64
	rows   []Vector
}

func newIndex(cfg Config, terms []string, idf []float64) *Index {
	lookup := make(map[string]int32, len(terms))
	for i, term := range terms {
		lookup[term] = int32(i)
	}
	return &Index{cfg: cfg, terms: terms, lookup: lookup, idf: idf}
}

// Restore rebuilds an index from persisted parts. Terms must be sorted and
// unique, idf must have one entry per term, and every row must reference
// valid term positions in ascending order.
func Restore(cfg Config, terms []string, idf []float64, rows []Vector) (*Index, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if len(terms) != len(idf) {
		return nil, fmt.Errorf("%w: %d terms but %d idf weights", ErrInvalidIndex, len(terms), len(idf))
	}
	for i := 1; i < len(terms); i++ {
		if terms[i-1] >= terms[i] {
			return nil, fmt.Errorf("%w: terms not sorted at %d", ErrInvalidIndex, i)
		}
	}
	for i, w := range idf {
		if math.IsNaN(w) || w <= 0 {
			return nil, fmt.Errorf("%w: idf weight %d is %v", ErrInvalidIndex, i, w)
		}
	}
	for i, row := range rows {
		if !row.validate(len(terms)) {
			return nil, fmt.Errorf("%w: row %d", ErrInvalidIndex, i)
		}
	}

	idx := newIndex(cfg, terms, idf)
	idx.rows = rows
	return idx, nil
}

// Config returns the configuration the index was built with.
func (x *Index) Config() Config {
	return x.cfg
}

// Features returns the vocabulary size.
func (x *Index) Features() int {
	return len(x.terms)
}

// Terms returns the vocabulary in index order. The slice must not be modified.
func (x *Index) Terms() []string {
	return x.terms
}

// IDF returns the inverse document frequency weights in index order.
// The slice must not be modified.
func (x *Index) IDF() []float64 {
	return x.idf
}

// Rows returns the term matrix, one row per fitted text.
// The slice must not be modified.
func (x *Index) Rows() []Vector {
	return x.rows
}

// Len returns the number of rows.
func (x *Index) Len() int {
	return len(x.rows)
}

// Transform cleans the query and maps it into the index's vector space.
// Terms outside the vocabulary are ignored, so the result may be empty.
func (x *Index) Transform(query string) Vector {
	query = CleanQuery(query, x.cfg.MaxQueryLength)

	counts := make(map[string]int)
	for _, term := range analyze(x.cfg, query) {
		counts[term]++
	}
	return x.weigh(counts)
}

// Similarities returns the cosine similarity between the query and every
// row, in row order. Rows or queries without known terms score 0.
func (x *Index) Similarities(query string) []float64 {
	q := x.Transform(query)
	scores := make([]float64, len(x.rows))
	if q.IsZero() {
		return scores
	}
	for i, row := range x.rows {
		scores[i] = Cosine(q, row)
	}
	return scores
}

func (x *Index) weigh(counts map[string]int) Vector {
	weights := make(map[int32]float64, len(counts))
	for term, c := range counts {
		if i, ok := x.lookup[term]; ok {
			weights[i] = float64(c) * x.idf[i]
		}
	}
	return newVector(weights)
}
