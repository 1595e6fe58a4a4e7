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

package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/poiesic/retrievit/ai"
	"github.com/poiesic/retrievit/core"
	"github.com/poiesic/retrievit/fragment"
	"github.com/poiesic/retrievit/search"
	"github.com/poiesic/retrievit/sparse"
	"github.com/poiesic/retrievit/store"
	"gopkg.in/yaml.v3"
)

// Environment variables that override file settings.
const (
	EnvEmbeddingHost   = "EMBEDDING_HOST"
	EnvEmbeddingModel  = "EMBEDDING_MODEL"
	EnvEmbeddingAPIKey = "EMBEDDING_API_KEY"
	EnvChunkSize       = "CHUNK_SIZE"
	EnvChunkOverlap    = "CHUNK_OVERLAP"
	EnvStorePath       = "RETRIEVIT_DB"
)

// EmbeddingConfig configures the dense encoder service.
type EmbeddingConfig struct {
	Host              string  `yaml:"host"`
	Model             string  `yaml:"model"`
	APIKey            string  `yaml:"api_key"`
	RequestsPerSecond float64 `yaml:"requests_per_second"`
}

// ChunkingConfig configures fragmenting.
type ChunkingConfig struct {
	Size    int `yaml:"size"`
	Overlap int `yaml:"overlap"`
}

// SearchConfig holds search defaults and ranking weights.
type SearchConfig struct {
	TopK      int            `yaml:"top_k"`
	MinScore  float64        `yaml:"min_score"`
	UseHybrid bool           `yaml:"use_hybrid"`
	Strategy  string         `yaml:"strategy"`
	Weights   search.Weights `yaml:"weights"`
}

// StoreConfig configures where the store is persisted and how it ingests.
type StoreConfig struct {
	// Path is the snapshot directory.
	Path string `yaml:"path"`
	// PoolSize is the encoding worker count. Zero picks a default.
	PoolSize int `yaml:"pool_size"`
	// BatchSize is the number of documents per ingestion batch.
	BatchSize int `yaml:"batch_size"`
}

// Config is the root configuration.
type Config struct {
	Embedding EmbeddingConfig `yaml:"embedding"`
	Chunking  ChunkingConfig  `yaml:"chunking"`
	Sparse    sparse.Config   `yaml:"sparse"`
	Search    SearchConfig    `yaml:"search"`
	Store     StoreConfig     `yaml:"store"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	aiCfg := ai.DefaultConfig()
	opts := store.DefaultSearchOptions()
	return &Config{
		Embedding: EmbeddingConfig{
			Host:   aiCfg.EmbeddingHost,
			Model:  aiCfg.EmbeddingModel,
			APIKey: aiCfg.APIToken,
		},
		Chunking: ChunkingConfig{
			Size:    fragment.DefaultChunkSize,
			Overlap: fragment.DefaultChunkOverlap,
		},
		Sparse: sparse.DefaultConfig(),
		Search: SearchConfig{
			TopK:      opts.TopK,
			MinScore:  opts.MinScore,
			UseHybrid: opts.UseHybrid,
			Strategy:  string(opts.Strategy),
			Weights:   search.DefaultWeights(),
		},
		Store: StoreConfig{
			Path:      "retrievit.db",
			BatchSize: 64,
		},
	}
}

// Load reads the YAML file at path on top of the defaults and then applies
// environment overrides. An empty path or a missing file yields the defaults
// with overrides applied. The result is validated.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return nil, err
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("%w: %s: %w", core.ErrInvalidConfig, path, err)
			}
		}
	}

	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadEnvFile loads variables from a .env file into the process environment
// without replacing variables that are already set. An empty path loads
// ".env" from the working directory when it exists.
func LoadEnvFile(path string) error {
	if path == "" {
		if _, err := os.Stat(".env"); err != nil {
			return nil
		}
		return godotenv.Load()
	}
	return godotenv.Load(path)
}

// ApplyEnv overrides settings with any environment variables that are set.
func (c *Config) ApplyEnv() error {
	if v, ok := os.LookupEnv(EnvEmbeddingHost); ok {
		c.Embedding.Host = v
	}
	if v, ok := os.LookupEnv(EnvEmbeddingModel); ok {
		c.Embedding.Model = v
	}
	if v, ok := os.LookupEnv(EnvEmbeddingAPIKey); ok {
		c.Embedding.APIKey = v
	}
	if v, ok := os.LookupEnv(EnvStorePath); ok {
		c.Store.Path = v
	}

	var err error
	if c.Chunking.Size, err = envInt(EnvChunkSize, c.Chunking.Size); err != nil {
		return err
	}
	if c.Chunking.Overlap, err = envInt(EnvChunkOverlap, c.Chunking.Overlap); err != nil {
		return err
	}
	return nil
}

func envInt(name string, fallback int) (int, error) {
	v, ok := os.LookupEnv(name)
	if !ok || v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%w: %s=%q is not an integer", core.ErrInvalidConfig, name, v)
	}
	return n, nil
}

// Validate checks every section.
func (c *Config) Validate() error {
	if c.Embedding.Host == "" {
		return fmt.Errorf("%w: embedding host is required", core.ErrInvalidConfig)
	}
	if c.Embedding.Model == "" {
		return fmt.Errorf("%w: embedding model is required", core.ErrInvalidConfig)
	}
	if c.Embedding.RequestsPerSecond < 0 {
		return fmt.Errorf("%w: requests_per_second cannot be negative", core.ErrInvalidConfig)
	}
	if err := core.ValidateChunkParams(c.Chunking.Size, c.Chunking.Overlap); err != nil {
		return fmt.Errorf("%w: %w", core.ErrInvalidConfig, err)
	}
	if err := c.Sparse.Validate(); err != nil {
		return fmt.Errorf("%w: %w", core.ErrInvalidConfig, err)
	}
	if err := c.SearchOptions().Validate(); err != nil {
		return fmt.Errorf("%w: %w", core.ErrInvalidConfig, err)
	}
	if err := c.Search.Weights.Validate(); err != nil {
		return fmt.Errorf("%w: %w", core.ErrInvalidConfig, err)
	}
	if c.Store.Path == "" {
		return fmt.Errorf("%w: store path is required", core.ErrInvalidConfig)
	}
	if c.Store.PoolSize < 0 || c.Store.BatchSize < 0 {
		return fmt.Errorf("%w: pool_size and batch_size cannot be negative", core.ErrInvalidConfig)
	}
	return nil
}

// AIConfig returns the encoder configuration.
func (c *Config) AIConfig() *ai.Config {
	return ai.NewConfig(
		ai.WithEmbeddingHost(c.Embedding.Host),
		ai.WithEmbeddingModel(c.Embedding.Model),
		ai.WithAPIToken(c.Embedding.APIKey),
		ai.WithRequestsPerSecond(c.Embedding.RequestsPerSecond),
	)
}

// StoreOptions returns the store options described by the configuration.
func (c *Config) StoreOptions() []store.Option {
	opts := []store.Option{
		store.WithChunking(c.Chunking.Size, c.Chunking.Overlap),
		store.WithSparseConfig(c.Sparse),
		store.WithWeights(c.Search.Weights),
	}
	if c.Store.PoolSize > 0 {
		opts = append(opts, store.WithPoolSize(c.Store.PoolSize))
	}
	return opts
}

// SearchOptions returns the default per-query options.
func (c *Config) SearchOptions() store.SearchOptions {
	return store.SearchOptions{
		TopK:      c.Search.TopK,
		MinScore:  c.Search.MinScore,
		UseHybrid: c.Search.UseHybrid,
		Strategy:  search.Strategy(c.Search.Strategy),
	}
}

// Save writes the configuration as YAML, creating parent directories.
func Save(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
