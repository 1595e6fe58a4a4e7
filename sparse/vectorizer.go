// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package sparse

import (
	"fmt"
	"math"
	"regexp"
	"sort"
	"strings"
)

// tokenPattern matches runs of two or more word characters.
var tokenPattern = regexp.MustCompile(`[\p{L}\p{N}_]{2,}`)

// Vectorizer turns texts into TF-IDF weighted term vectors.
type Vectorizer struct {
	cfg Config
}

// NewVectorizer creates a vectorizer after validating cfg.
func NewVectorizer(cfg Config) (*Vectorizer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Vectorizer{cfg: cfg}, nil
}

// Config returns the vectorizer configuration.
func (v *Vectorizer) Config() Config {
	return v.cfg
}

// Analyze returns the terms (n-grams) of text in order of appearance,
// duplicates included.
func (v *Vectorizer) Analyze(text string) []string {
	return analyze(v.cfg, text)
}

// Fit builds an index over texts. Every call starts from scratch; the
// returned index holds one row per text, in input order.
func (v *Vectorizer) Fit(texts []string) (*Index, error) {
	n := len(texts)
	if n == 0 {
		return nil, ErrEmptyCorpus
	}

	counts := make([]map[string]int, n)
	df := make(map[string]int)
	tf := make(map[string]int)
	for i, text := range texts {
		c := make(map[string]int)
		for _, term := range analyze(v.cfg, text) {
			c[term]++
		}
		for term, k := range c {
			df[term]++
			tf[term] += k
		}
		counts[i] = c
	}
	if len(df) == 0 {
		return nil, ErrEmptyVocabulary
	}

	maxDocCount := v.cfg.MaxDF * float64(n)
	if maxDocCount < float64(v.cfg.MinDF) {
		return nil, fmt.Errorf("%w: max df %v covers fewer texts than min df %d",
			ErrNoTermsAfterPruning, v.cfg.MaxDF, v.cfg.MinDF)
	}

	terms := make([]string, 0, len(df))
	for term, d := range df {
		if d >= v.cfg.MinDF && float64(d) <= maxDocCount {
			terms = append(terms, term)
		}
	}
	if len(terms) == 0 {
		return nil, ErrNoTermsAfterPruning
	}
	sort.Strings(terms)

	if v.cfg.MaxFeatures > 0 && len(terms) > v.cfg.MaxFeatures {
		sort.SliceStable(terms, func(i, j int) bool {
			return tf[terms[i]] > tf[terms[j]]
		})
		terms = terms[:v.cfg.MaxFeatures]
		sort.Strings(terms)
	}

	idf := make([]float64, len(terms))
	for i, term := range terms {
		idf[i] = math.Log(float64(1+n)/float64(1+df[term])) + 1
	}

	idx := newIndex(v.cfg, terms, idf)
	idx.rows = make([]Vector, n)
	for i, c := range counts {
		idx.rows[i] = idx.weigh(c)
	}
	return idx, nil
}

func analyze(cfg Config, text string) []string {
	tokens := tokenPattern.FindAllString(strings.ToLower(text), -1)
	if cfg.StopWords {
		kept := tokens[:0]
		for _, tok := range tokens {
			if !IsStopWord(tok) {
				kept = append(kept, tok)
			}
		}
		tokens = kept
	}
	if len(tokens) == 0 {
		return nil
	}

	terms := make([]string, 0, len(tokens)*(cfg.NgramMax-cfg.NgramMin+1))
	for size := cfg.NgramMin; size <= cfg.NgramMax; size++ {
		if size == 1 {
			terms = append(terms, tokens...)
			continue
		}
		for i := 0; i+size <= len(tokens); i++ {
			terms = append(terms, strings.Join(tokens[i:i+size], " "))
		}
	}
	return terms
}
