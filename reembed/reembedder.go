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

package reembed

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/poiesic/retrievit/ai"
	"github.com/poiesic/retrievit/core"
	"github.com/poiesic/retrievit/ingestion"
	"github.com/poiesic/retrievit/storage"
	"github.com/poiesic/retrievit/storage/badger"
)

// Config holds configuration for the reembedding operation.
type Config struct {
	// BatchSize is the number of fragments encoded per request
	BatchSize int

	// ReportInterval is how often to report progress (number of fragments)
	ReportInterval int

	// MaxRetries is the maximum number of attempts per batch
	MaxRetries int

	// RetryDelay is the base delay for exponential backoff
	RetryDelay time.Duration
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		BatchSize:      100,
		ReportInterval: 100,
		MaxRetries:     3,
		RetryDelay:     1 * time.Second,
	}
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if c.BatchSize <= 0 {
		return fmt.Errorf("%w: batch size must be greater than 0", core.ErrInvalidConfig)
	}
	if c.ReportInterval <= 0 {
		return fmt.Errorf("%w: report interval must be greater than 0", core.ErrInvalidConfig)
	}
	if c.MaxRetries <= 0 {
		return fmt.Errorf("%w: max retries must be greater than 0", core.ErrInvalidConfig)
	}
	return nil
}

// Reembedder re-encodes the fragments of a snapshot.
type Reembedder struct {
	encoder   ai.Encoder
	config    *Config
	progress  io.Writer
	processor *BatchProcessor
}

// NewReembedder creates a new reembedder.
// progress: where to write progress output (typically os.Stderr)
func NewReembedder(encoder ai.Encoder, config *Config, progress io.Writer) (*Reembedder, error) {
	if encoder == nil {
		return nil, ErrEncoderRequired
	}
	if config == nil {
		config = DefaultConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if progress == nil {
		progress = io.Discard
	}

	return &Reembedder{
		encoder:   encoder,
		config:    config,
		progress:  progress,
		processor: NewBatchProcessor(encoder, config.MaxRetries, config.RetryDelay),
	}, nil
}

// Run returns a copy of snap whose embeddings come from the reembedder's
// encoder. The manifest records the new model and dimension. snap itself is
// not modified.
func (r *Reembedder) Run(ctx context.Context, snap *storage.Snapshot) (*storage.Snapshot, error) {
	if err := snap.Validate(); err != nil {
		return nil, err
	}

	out := *snap
	out.Manifest.EncoderModel = r.encoder.Model()
	out.Manifest.SavedAt = time.Now().UTC()
	out.Embeddings = make([][]float32, 0, len(snap.Fragments))

	total := len(snap.Fragments)
	if total == 0 {
		fmt.Fprintf(r.progress, "No fragments found in snapshot (0 fragments)\n")
		out.Manifest.Dimension = 0
		return &out, nil
	}

	fmt.Fprintf(r.progress, "Starting reembedding of %d fragments with %s (batch size: %d)\n",
		total, r.encoder.Model(), r.config.BatchSize)

	tracker := ingestion.NewProgressTracker(r.progress, total, r.config.ReportInterval)
	tracker.Start()

	for start := 0; start < total; start += r.config.BatchSize {
		end := min(start+r.config.BatchSize, total)

		texts := make([]string, end-start)
		for i, f := range snap.Fragments[start:end] {
			texts[i] = f.Text
		}

		embeddings, err := r.processor.Process(ctx, texts)
		if err != nil {
			return nil, fmt.Errorf("failed to process fragments %d-%d: %w", start, end-1, err)
		}
		if len(out.Embeddings) > 0 && len(embeddings[0]) != len(out.Embeddings[0]) {
			return nil, fmt.Errorf("%w: batch at %d has dimension %d, earlier batches %d",
				core.ErrDimensionMismatch, start, len(embeddings[0]), len(out.Embeddings[0]))
		}
		out.Embeddings = append(out.Embeddings, embeddings...)
		tracker.Increment(end - start)
	}

	tracker.Finish()
	out.Manifest.Dimension = len(out.Embeddings[0])

	elapsed := tracker.Elapsed()
	fmt.Fprintf(r.progress, "Reembedding complete. Processed %d fragments in %v\n",
		total, elapsed.Round(time.Millisecond))

	return &out, nil
}

// RunPath reads the snapshot at src, re-encodes it and writes the result to
// dst. src and dst may be the same directory.
func (r *Reembedder) RunPath(ctx context.Context, src, dst string) error {
	snap, err := badger.ReadSnapshot(ctx, src)
	if err != nil {
		return fmt.Errorf("failed to read snapshot: %w", err)
	}

	out, err := r.Run(ctx, snap)
	if err != nil {
		return err
	}

	if err := badger.WriteSnapshot(ctx, dst, out); err != nil {
		return fmt.Errorf("failed to write snapshot: %w", err)
	}
	return nil
}
