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

package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/poiesic/retrievit"
	"github.com/poiesic/retrievit/ai"
	"github.com/poiesic/retrievit/ai/openai"
	"github.com/poiesic/retrievit/config"
	"github.com/poiesic/retrievit/core"
	"github.com/poiesic/retrievit/ingestion"
	"github.com/poiesic/retrievit/reembed"
	"github.com/poiesic/retrievit/search"
	"github.com/poiesic/retrievit/storage"
	"github.com/urfave/cli/v2"
)

// openEngine builds the engine for a command. Tests replace it to avoid a
// live embedding service.
var openEngine = func(cfg *config.Config) (*retrievit.Engine, error) {
	return retrievit.Open(cfg)
}

// newEncoder builds the encoder used by reembed.
var newEncoder = openai.NewEncoder

func main() {
	if err := newApp().Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func newApp() *cli.App {
	dbFlag := &cli.StringFlag{
		Name:    "db",
		Aliases: []string{"d"},
		Usage:   "Path to the snapshot directory (overrides config and RETRIEVIT_DB)",
	}

	return &cli.App{
		Name:  "retrievit",
		Usage: "Hybrid dense and sparse retrieval over document collections",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "info",
			},
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to YAML configuration file",
				Value:   "retrievit.yaml",
			},
			&cli.StringFlag{
				Name:  "env-file",
				Usage: "Path to .env file (defaults to ./.env when present)",
			},
		},
		Before: setupLogger,
		Commands: []*cli.Command{
			{
				Name:      "ingest",
				Usage:     "Add documents from JSON or JSON Lines files to the store",
				ArgsUsage: "FILE...",
				Action:    ingestCommand,
				Flags: []cli.Flag{
					dbFlag,
					&cli.IntFlag{
						Name:  "batch-size",
						Usage: "Number of documents to add per batch (overrides config)",
					},
					&cli.BoolFlag{
						Name:  "quiet",
						Usage: "Do not print progress",
					},
				},
			},
			{
				Name:      "search",
				Usage:     "Search the store",
				ArgsUsage: "QUERY",
				Action:    searchCommand,
				Flags: []cli.Flag{
					dbFlag,
					&cli.IntFlag{
						Name:    "top-k",
						Aliases: []string{"k"},
						Usage:   "Maximum number of results (overrides config)",
					},
					&cli.Float64Flag{
						Name:  "min-score",
						Usage: "Minimum score in [0, 1] (overrides config)",
						Value: -1,
					},
					&cli.BoolFlag{
						Name:  "dense",
						Usage: "Use dense similarity only",
					},
					&cli.StringFlag{
						Name:  "strategy",
						Usage: "Ranking strategy (fused, merged)",
					},
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Print results as JSON",
					},
				},
			},
			{
				Name:   "stats",
				Usage:  "Print store statistics",
				Action: statsCommand,
				Flags: []cli.Flag{
					dbFlag,
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Print statistics as JSON",
					},
				},
			},
			{
				Name:   "reembed",
				Usage:  "Re-encode every stored fragment with another embedding model",
				Action: reembedCommand,
				Flags: []cli.Flag{
					dbFlag,
					&cli.StringFlag{
						Name:  "out",
						Usage: "Snapshot directory to write (defaults to replacing the source)",
					},
					&cli.StringFlag{
						Name:  "embedding-host",
						Usage: "Embedding service host URL (overrides config)",
					},
					&cli.StringFlag{
						Name:     "embedding-model",
						Usage:    "Embedding model name",
						Required: true,
					},
					&cli.IntFlag{
						Name:  "batch-size",
						Usage: "Number of fragments to encode per request",
						Value: 100,
					},
					&cli.IntFlag{
						Name:  "report-interval",
						Usage: "Report progress every N fragments",
						Value: 100,
					},
					&cli.IntFlag{
						Name:  "max-retries",
						Usage: "Maximum attempts per batch",
						Value: 3,
					},
					&cli.DurationFlag{
						Name:  "retry-delay",
						Usage: "Base delay for exponential backoff",
						Value: 1 * time.Second,
					},
				},
			},
			{
				Name:   "clear",
				Usage:  "Remove every document from the store",
				Action: clearCommand,
				Flags:  []cli.Flag{dbFlag},
			},
		},
	}
}

// loadConfig reads the .env file, the config file and the --db override.
func loadConfig(c *cli.Context) (*config.Config, error) {
	if err := config.LoadEnvFile(c.String("env-file")); err != nil {
		return nil, fmt.Errorf("failed to load env file: %w", err)
	}
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	if db := c.String("db"); db != "" {
		cfg.Store.Path = db
	}
	return cfg, nil
}

// openExisting opens the engine and loads its snapshot. A missing snapshot
// leaves the store empty when allowMissing is set.
func openExisting(ctx context.Context, cfg *config.Config, allowMissing bool) (*retrievit.Engine, error) {
	engine, err := openEngine(cfg)
	if err != nil {
		return nil, err
	}
	err = engine.Load(ctx, cfg.Store.Path)
	if err == nil || (allowMissing && errors.Is(err, storage.ErrSnapshotNotFound)) {
		return engine, nil
	}
	engine.Close()
	return nil, fmt.Errorf("failed to load store %s: %w", cfg.Store.Path, err)
}

func ingestCommand(c *cli.Context) error {
	ctx := context.Background()
	if c.NArg() == 0 {
		return fmt.Errorf("at least one document file is required")
	}

	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	if n := c.Int("batch-size"); n > 0 {
		cfg.Store.BatchSize = n
	}

	var docs []core.Document
	for _, path := range c.Args().Slice() {
		loaded, err := ingestion.LoadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read documents: %w", err)
		}
		docs = append(docs, loaded...)
	}

	engine, err := openExisting(ctx, cfg, true)
	if err != nil {
		return err
	}
	defer engine.Close()

	progress := c.App.ErrWriter
	if c.Bool("quiet") {
		progress = nil
	}
	report, err := engine.Ingest(ctx, docs, progress)
	if err != nil {
		return fmt.Errorf("ingestion failed: %w", err)
	}
	if err := engine.Save(ctx, cfg.Store.Path); err != nil {
		return fmt.Errorf("failed to save store: %w", err)
	}

	out := c.App.Writer
	fmt.Fprintf(out, "Documents: %d processed, %d errors, %d total\n", report.Processed, report.Errors, report.Total)
	fmt.Fprintf(out, "Fragments created: %d\n", report.FragmentsCreated)
	fmt.Fprintf(out, "Sparse features: %d\n", report.SparseFeatures)
	for _, d := range report.ErrorDetails {
		fmt.Fprintf(out, "  error at %d (%s): %s\n", d.Position, d.Identifier, d.Message)
	}
	return nil
}

func searchCommand(c *cli.Context) error {
	ctx := context.Background()
	query := strings.TrimSpace(strings.Join(c.Args().Slice(), " "))
	if query == "" {
		return fmt.Errorf("a query is required")
	}

	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}

	opts := cfg.SearchOptions()
	if k := c.Int("top-k"); k != 0 {
		opts.TopK = k
	}
	if s := c.Float64("min-score"); s >= 0 {
		opts.MinScore = s
	}
	if c.Bool("dense") {
		opts.UseHybrid = false
	}
	if name := c.String("strategy"); name != "" {
		strategy, err := search.ParseStrategy(name)
		if err != nil {
			return err
		}
		opts.Strategy = strategy
	}

	engine, err := openExisting(ctx, cfg, false)
	if err != nil {
		return err
	}
	defer engine.Close()

	results, err := engine.SearchWith(ctx, query, opts)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	out := c.App.Writer
	if c.Bool("json") {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(results)
	}

	if len(results) == 0 {
		fmt.Fprintln(out, "No results.")
		return nil
	}
	for _, r := range results {
		fmt.Fprintf(out, "%d. [%.4f] %s", r.Rank, r.Score, r.Title)
		if r.Identifier != "" {
			fmt.Fprintf(out, " (%s)", r.Identifier)
		}
		fmt.Fprintf(out, " fragment %d/%d\n", r.Fragment.Index+1, r.Fragment.Total)
		if len(r.Authors) > 0 {
			fmt.Fprintf(out, "   %s\n", strings.Join(r.Authors, ", "))
		}
		fmt.Fprintf(out, "   %s\n", snippet(r.Fragment.Text, 160))
	}
	return nil
}

func statsCommand(c *cli.Context) error {
	ctx := context.Background()
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}

	engine, err := openExisting(ctx, cfg, true)
	if err != nil {
		return err
	}
	defer engine.Close()

	stats := engine.Statistics()
	out := c.App.Writer
	if c.Bool("json") {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(stats)
	}

	fmt.Fprintf(out, "Store: %s\n", cfg.Store.Path)
	fmt.Fprintf(out, "Documents: %d\n", stats.TotalDocuments)
	fmt.Fprintf(out, "Fragments: %d (%.2f per document)\n", stats.TotalFragments, stats.AvgFragmentsPerDocument)
	fmt.Fprintf(out, "Embedding model: %s (dimension %d)\n", stats.EmbeddingModel, stats.EmbeddingDimension)
	fmt.Fprintf(out, "Sparse features: %d\n", stats.SparseFeatures)
	fmt.Fprintf(out, "Chunking: %d / %d\n", stats.ChunkSize, stats.ChunkOverlap)
	return nil
}

func clearCommand(c *cli.Context) error {
	ctx := context.Background()
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}

	engine, err := openExisting(ctx, cfg, true)
	if err != nil {
		return err
	}
	defer engine.Close()

	if err := engine.Clear(); err != nil {
		return err
	}
	if err := engine.Save(ctx, cfg.Store.Path); err != nil {
		return fmt.Errorf("failed to save store: %w", err)
	}
	fmt.Fprintf(c.App.Writer, "Cleared %s\n", cfg.Store.Path)
	return nil
}

func reembedCommand(c *cli.Context) error {
	ctx := context.Background()
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}

	aiCfg := cfg.AIConfig()
	aiCfg.EmbeddingModel = c.String("embedding-model")
	if host := c.String("embedding-host"); host != "" {
		aiCfg.EmbeddingHost = host
	}
	if err := aiCfg.Validate(); err != nil {
		return fmt.Errorf("invalid AI configuration: %w", err)
	}

	var encoder ai.Encoder
	if encoder, err = newEncoder(aiCfg); err != nil {
		return fmt.Errorf("failed to create encoder: %w", err)
	}

	reembedder, err := reembed.NewReembedder(encoder, &reembed.Config{
		BatchSize:      c.Int("batch-size"),
		ReportInterval: c.Int("report-interval"),
		MaxRetries:     c.Int("max-retries"),
		RetryDelay:     c.Duration("retry-delay"),
	}, c.App.ErrWriter)
	if err != nil {
		return err
	}

	dst := c.String("out")
	if dst == "" {
		dst = cfg.Store.Path
	}

	fmt.Fprintf(c.App.ErrWriter, "Source: %s\n", cfg.Store.Path)
	fmt.Fprintf(c.App.ErrWriter, "Destination: %s\n", dst)
	fmt.Fprintf(c.App.ErrWriter, "Embedding host: %s\n", aiCfg.EmbeddingHost)
	fmt.Fprintf(c.App.ErrWriter, "Embedding model: %s\n", aiCfg.EmbeddingModel)
	fmt.Fprintln(c.App.ErrWriter)

	if err := reembedder.RunPath(ctx, cfg.Store.Path, dst); err != nil {
		return fmt.Errorf("reembedding failed: %w", err)
	}
	fmt.Fprintf(c.App.Writer, "Reembedded %s with %s\n", dst, aiCfg.EmbeddingModel)
	return nil
}

// snippet shortens text to at most n characters on one line.
func snippet(text string, n int) string {
	text = strings.Join(strings.Fields(text), " ")
	runes := []rune(text)
	if len(runes) <= n {
		return text
	}
	return string(runes[:n]) + "..."
}

func setupLogger(c *cli.Context) error {
	// Get log level from flag and normalize to lowercase
	levelStr := strings.ToLower(c.String("log-level"))

	var level slog.Level
	switch levelStr {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		return fmt.Errorf("invalid log level %q: must be one of debug, info, warn, error", levelStr)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	return nil
}
