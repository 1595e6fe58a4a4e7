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

package store

import (
	"fmt"
	"log/slog"

	"github.com/poiesic/retrievit/core"
	"github.com/poiesic/retrievit/fragment"
	"github.com/poiesic/retrievit/search"
	"github.com/poiesic/retrievit/sparse"
)

// Option configures a Store.
type Option func(*Store) error

// WithChunking sets the fragment size and overlap in characters.
// Default is 512 / 50.
func WithChunking(size, overlap int) Option {
	return func(s *Store) error {
		f, err := fragment.New(size, overlap)
		if err != nil {
			return err
		}
		s.fragmenter = f
		return nil
	}
}

// WithSparseConfig sets the TF-IDF vectorizer configuration.
// Default is sparse.DefaultConfig().
func WithSparseConfig(cfg sparse.Config) Option {
	return func(s *Store) error {
		v, err := sparse.NewVectorizer(cfg)
		if err != nil {
			return err
		}
		s.vectorizer = v
		return nil
	}
}

// WithWeights sets the ranking weights.
// Default is search.DefaultWeights().
func WithWeights(w search.Weights) Option {
	return func(s *Store) error {
		if err := w.Validate(); err != nil {
			return err
		}
		s.weights = w
		return nil
	}
}

// WithPoolSize sets the worker pool size for concurrent fragmenting and
// encoding. Default is runtime.NumCPU() / 2, with a minimum of 1.
func WithPoolSize(size int) Option {
	return func(s *Store) error {
		if size < 1 {
			size = 1
		}
		s.poolSize = size
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) error {
		if logger == nil {
			logger = slog.Default()
		}
		s.logger = logger
		return nil
	}
}

// SearchOptions controls a single search.
type SearchOptions struct {
	// TopK is the maximum number of results. Must be positive.
	TopK int
	// MinScore is the minimum final score, within [0, 1]. When no candidate
	// reaches it the best TopK candidates are returned anyway.
	MinScore float64
	// UseHybrid adds the sparse lexical signal to the dense one.
	UseHybrid bool
	// Strategy selects fused per-fragment scoring or merged result lists.
	// Empty means search.StrategyFused.
	Strategy search.Strategy
	// Monitor, if set, observes the ranking pass.
	Monitor search.SearchMonitor
}

// DefaultSearchOptions returns five hybrid results with a 0.1 minimum score.
func DefaultSearchOptions() SearchOptions {
	return SearchOptions{
		TopK:      5,
		MinScore:  0.1,
		UseHybrid: true,
		Strategy:  search.StrategyFused,
	}
}

// Validate checks the options.
func (o SearchOptions) Validate() error {
	if err := core.ValidateSearchParams(o.TopK, o.MinScore); err != nil {
		return err
	}
	if _, err := search.ParseStrategy(string(o.Strategy)); err != nil {
		return fmt.Errorf("%w: %w", core.ErrInvalidSearchParams, err)
	}
	return nil
}
