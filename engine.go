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

package retrievit

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/poiesic/retrievit/ai"
	"github.com/poiesic/retrievit/ai/openai"
	"github.com/poiesic/retrievit/config"
	"github.com/poiesic/retrievit/core"
	"github.com/poiesic/retrievit/ingestion"
	"github.com/poiesic/retrievit/storage/badger"
	"github.com/poiesic/retrievit/store"
)

// EncoderFactory builds an encoder for an encoder configuration.
type EncoderFactory func(*ai.Config) (ai.Encoder, error)

// Engine wires configuration, encoder and store together.
type Engine struct {
	cfg        *config.Config
	newEncoder EncoderFactory
	storeOpts  []store.Option
	logger     *slog.Logger

	mu      sync.RWMutex
	encoder ai.Encoder
	store   *store.Store
}

// EngineOption configures an Engine.
type EngineOption func(*engineOptions)

type engineOptions struct {
	newEncoder EncoderFactory
	storeOpts  []store.Option
	logger     *slog.Logger
}

// WithEncoderFactory replaces the OpenAI-compatible encoder constructor.
func WithEncoderFactory(f EncoderFactory) EngineOption {
	return func(o *engineOptions) {
		o.newEncoder = f
	}
}

// WithStoreOptions appends store options after those derived from the
// configuration.
func WithStoreOptions(opts ...store.Option) EngineOption {
	return func(o *engineOptions) {
		o.storeOpts = append(o.storeOpts, opts...)
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) EngineOption {
	return func(o *engineOptions) {
		o.logger = logger
	}
}

// Open builds the encoder described by cfg and an empty store.
func Open(cfg *config.Config, opts ...EngineOption) (*Engine, error) {
	options := applyOptions(opts)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	encoder, err := options.newEncoder(cfg.AIConfig())
	if err != nil {
		return nil, fmt.Errorf("failed to create encoder: %w", err)
	}
	return newEngine(cfg, encoder, options)
}

// OpenWithEncoder is Open with a caller-supplied encoder.
func OpenWithEncoder(cfg *config.Config, encoder ai.Encoder, opts ...EngineOption) (*Engine, error) {
	options := applyOptions(opts)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return newEngine(cfg, encoder, options)
}

func applyOptions(opts []EngineOption) *engineOptions {
	options := &engineOptions{
		newEncoder: openai.NewEncoder,
	}
	for _, opt := range opts {
		opt(options)
	}
	if options.logger == nil {
		options.logger = slog.Default()
	}
	return options
}

func newEngine(cfg *config.Config, encoder ai.Encoder, options *engineOptions) (*Engine, error) {
	e := &Engine{
		cfg:        cfg,
		newEncoder: options.newEncoder,
		storeOpts:  options.storeOpts,
		logger:     options.logger.With("component", "engine"),
	}

	s, err := e.openStore(encoder)
	if err != nil {
		return nil, err
	}
	e.encoder = encoder
	e.store = s
	return e, nil
}

func (e *Engine) openStore(encoder ai.Encoder) (*store.Store, error) {
	opts := append(e.cfg.StoreOptions(), store.WithLogger(e.logger.With("component", "store")))
	opts = append(opts, e.storeOpts...)
	return store.New(encoder, opts...)
}

// Config returns the engine configuration.
func (e *Engine) Config() *config.Config {
	return e.cfg
}

// Encoder returns the encoder currently in use.
func (e *Engine) Encoder() ai.Encoder {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.encoder
}

// Store returns the current store.
func (e *Engine) Store() *store.Store {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.store
}

// AddDocuments adds docs to the store in one batch.
func (e *Engine) AddDocuments(ctx context.Context, docs []core.Document) (*core.IngestReport, error) {
	return e.Store().AddDocuments(ctx, docs)
}

// Ingest adds docs in configured batch sizes, printing progress to progress
// when it is not nil.
func (e *Engine) Ingest(ctx context.Context, docs []core.Document, progress io.Writer) (*core.IngestReport, error) {
	pipeline, err := e.NewIngestionPipeline(progress)
	if err != nil {
		return nil, err
	}
	return pipeline.Run(ctx, docs)
}

// NewIngestionPipeline creates a pipeline writing into the current store.
func (e *Engine) NewIngestionPipeline(progress io.Writer) (*ingestion.Pipeline, error) {
	opts := []ingestion.Option{ingestion.WithLogger(e.logger.With("component", "ingestion"))}
	if e.cfg.Store.BatchSize > 0 {
		opts = append(opts, ingestion.WithBatchSize(e.cfg.Store.BatchSize))
	}
	if progress != nil {
		opts = append(opts, ingestion.WithProgress(progress))
	}
	return ingestion.NewPipeline(e.Store(), opts...)
}

// Search runs query with the configured search options.
func (e *Engine) Search(ctx context.Context, query string) ([]core.ScoredResult, error) {
	return e.Store().Search(ctx, query, e.cfg.SearchOptions())
}

// SearchWith runs query with explicit options.
func (e *Engine) SearchWith(ctx context.Context, query string, opts store.SearchOptions) ([]core.ScoredResult, error) {
	return e.Store().Search(ctx, query, opts)
}

// Statistics returns the store statistics.
func (e *Engine) Statistics() core.Statistics {
	return e.Store().Statistics()
}

// Clear empties the store.
func (e *Engine) Clear() error {
	return e.Store().Clear()
}

// Save writes the store to path, or to the configured store path when path
// is empty.
func (e *Engine) Save(ctx context.Context, path string) error {
	if path == "" {
		path = e.cfg.Store.Path
	}
	return e.Store().Save(ctx, path)
}

// Load replaces the store with the snapshot at path, or at the configured
// store path when path is empty. When the snapshot was written with another
// encoder model, a new encoder for that model is built first so that queries
// keep matching the stored embeddings.
func (e *Engine) Load(ctx context.Context, path string) error {
	if path == "" {
		path = e.cfg.Store.Path
	}

	manifest, err := badger.ReadManifest(ctx, path)
	if err != nil {
		return err
	}

	current := e.Encoder()
	if manifest.EncoderModel == current.Model() {
		return e.Store().Load(ctx, path)
	}

	e.logger.Info("snapshot uses a different encoder model, switching",
		"configured", current.Model(), "snapshot", manifest.EncoderModel)

	aiCfg := e.cfg.AIConfig()
	aiCfg.EmbeddingModel = manifest.EncoderModel
	encoder, err := e.newEncoder(aiCfg)
	if err != nil {
		return fmt.Errorf("%w: cannot build encoder %q: %w", core.ErrEncoderMismatch, manifest.EncoderModel, err)
	}

	s, err := e.openStore(encoder)
	if err != nil {
		return err
	}
	if err := s.Load(ctx, path); err != nil {
		s.Close()
		return err
	}

	e.mu.Lock()
	old := e.store
	e.store = s
	e.encoder = encoder
	e.mu.Unlock()

	return old.Close()
}

// Close releases the store.
func (e *Engine) Close() error {
	if err := e.Store().Close(); err != nil {
		e.logger.Error("error closing store", "err", err)
		return err
	}
	return nil
}
