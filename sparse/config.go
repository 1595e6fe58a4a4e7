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

import "fmt"

const (
	// DefaultMaxFeatures caps the vocabulary size.
	DefaultMaxFeatures = 2000

	// DefaultMaxQueryLength is the character cap applied by CleanQuery.
	DefaultMaxQueryLength = 200
)

// Config controls tokenisation and vocabulary selection.
type Config struct {
	// NgramMin and NgramMax bound the n-gram sizes, inclusive.
	NgramMin int `yaml:"ngram_min"`
	NgramMax int `yaml:"ngram_max"`

	// MaxFeatures keeps only the most frequent terms. Zero means unlimited.
	MaxFeatures int `yaml:"max_features"`

	// MinDF is the minimum number of texts a term must appear in.
	MinDF int `yaml:"min_df"`

	// MaxDF is the maximum proportion of texts a term may appear in.
	MaxDF float64 `yaml:"max_df"`

	// StopWords enables removal of English stop words before n-grams are built.
	StopWords bool `yaml:"stop_words"`

	// MaxQueryLength is the character cap for queries. Zero disables truncation.
	MaxQueryLength int `yaml:"max_query_length"`
}

// DefaultConfig returns unigrams and bigrams, English stop words and a
// 2000 term vocabulary.
func DefaultConfig() Config {
	return Config{
		NgramMin:       1,
		NgramMax:       2,
		MaxFeatures:    DefaultMaxFeatures,
		MinDF:          1,
		MaxDF:          1.0,
		StopWords:      true,
		MaxQueryLength: DefaultMaxQueryLength,
	}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if c.NgramMin < 1 || c.NgramMax < c.NgramMin {
		return fmt.Errorf("%w: ngram range (%d, %d)", ErrInvalidConfig, c.NgramMin, c.NgramMax)
	}
	if c.MaxFeatures < 0 {
		return fmt.Errorf("%w: max features %d", ErrInvalidConfig, c.MaxFeatures)
	}
	if c.MinDF < 1 {
		return fmt.Errorf("%w: min df %d", ErrInvalidConfig, c.MinDF)
	}
	if c.MaxDF <= 0 || c.MaxDF > 1 {
		return fmt.Errorf("%w: max df %v must be in (0, 1]", ErrInvalidConfig, c.MaxDF)
	}
	if c.MaxQueryLength < 0 {
		return fmt.Errorf("%w: max query length %d", ErrInvalidConfig, c.MaxQueryLength)
	}
	return nil
}
