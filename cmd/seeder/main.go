package main

import (
	"context"
	"flag"
	"log/slog"
	"os"

	"github.com/poiesic/retrievit"
	"github.com/poiesic/retrievit/ai/mock"
	"github.com/poiesic/retrievit/config"
	"github.com/poiesic/retrievit/core"
	"github.com/poiesic/retrievit/ingestion"
)

var documents = []core.Document{
	{
		Identifier:    "demo-0001",
		Title:         "Machine Learning Fundamentals",
		Authors:       []string{"John Doe", "Jane Smith"},
		PublishedDate: "2024-01-15",
		Categories:    []string{"cs.LG", "cs.AI"},
		FullText: "Machine learning is a subset of artificial intelligence that focuses on algorithms " +
			"that learn from data. Supervised learning fits a model to labelled examples, while " +
			"unsupervised learning discovers structure in unlabelled data. Deep learning stacks many " +
			"layers of neural networks to learn hierarchical representations of images, audio and text.",
	},
	{
		Identifier:    "demo-0002",
		Title:         "Information Retrieval Systems",
		Authors:       []string{"Alice Johnson"},
		PublishedDate: "2024-02-20",
		Categories:    []string{"cs.IR"},
		FullText: "Information retrieval systems help users find relevant documents in large collections. " +
			"Classic systems rank documents with term weighting schemes such as TF-IDF, while modern " +
			"systems embed queries and documents in a dense vector space. Hybrid retrieval combines " +
			"both signals so that exact keyword matches and semantic similarity contribute to the ranking.",
	},
}

var (
	seedFileName = flag.String("src", "", "JSON or JSON Lines file of seed documents")
	dbPath       = flag.String("db", "./retrievit_db", "snapshot directory to write")
	offline      = flag.Bool("offline", false, "use the deterministic hashed encoder instead of the embedding service")
)

func init() {
	handler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})
	slog.SetDefault(slog.New(handler))
	flag.Parse()
}

func main() {
	cfg, err := config.Load("")
	if err != nil {
		panic(err)
	}
	cfg.Store.Path = *dbPath

	var engine *retrievit.Engine
	if *offline {
		engine, err = retrievit.OpenWithEncoder(cfg, mock.NewMockEncoder())
	} else {
		engine, err = retrievit.Open(cfg)
	}
	if err != nil {
		panic(err)
	}
	defer engine.Close()

	docs := documents
	if *seedFileName != "" {
		docs, err = ingestion.LoadFile(*seedFileName)
		if err != nil {
			panic(err)
		}
	}

	ctx := context.Background()
	report, err := engine.Ingest(ctx, docs, os.Stderr)
	if err != nil {
		panic(err)
	}
	if err := engine.Save(ctx, cfg.Store.Path); err != nil {
		panic(err)
	}

	slog.Info("seeded store",
		"path", cfg.Store.Path,
		"documents", report.Processed,
		"errors", report.Errors,
		"fragments", report.FragmentsCreated)
}
