package openai

import (
	"context"
	"fmt"
	"log/slog"
	"math"

	"github.com/poiesic/retrievit/ai"
	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/openai"
	"golang.org/x/time/rate"
)

// Encoder implements ai.Encoder using OpenAI-compatible embedding APIs.
type Encoder struct {
	embedder embeddings.Embedder
	model    string
	limiter  *rate.Limiter
	logger   *slog.Logger
}

var _ ai.Encoder = (*Encoder)(nil)

// newEncoder is an internal constructor that returns the concrete type.
func newEncoder(config *ai.Config) (*Encoder, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	client, err := openai.New(
		openai.WithBaseURL(config.EmbeddingHost),
		openai.WithToken(config.APIToken),
		openai.WithEmbeddingModel(config.EmbeddingModel),
	)
	if err != nil {
		return nil, err
	}

	// Wrap in langchaingo embedder
	embedder, err := embeddings.NewEmbedder(client, embeddings.WithStripNewLines(true))
	if err != nil {
		return nil, err
	}

	return &Encoder{
		embedder: embedder,
		model:    config.EmbeddingModel,
		limiter:  newLimiter(config.RequestsPerSecond),
		logger:   slog.Default().With("component", "openai-encoder", "model", config.EmbeddingModel),
	}, nil
}

// newLimiter returns nil when rps is zero, meaning unlimited.
func newLimiter(rps float64) *rate.Limiter {
	if rps <= 0 {
		return nil
	}
	burst := int(math.Ceil(rps))
	return rate.NewLimiter(rate.Limit(rps), burst)
}

// NewEncoder creates a new encoder using the provided configuration.
//
// Returns ai.Encoder interface to enforce abstraction.
func NewEncoder(config *ai.Config) (ai.Encoder, error) {
	return newEncoder(config)
}

// Model returns the embedding model identifier.
func (e *Encoder) Model() string {
	return e.model
}

// Encode generates a vector embedding for a single text string.
func (e *Encoder) Encode(ctx context.Context, text string) ([]float32, error) {
	e.logger.Debug("generating embedding for single text", "length", len(text))

	vectors, err := e.embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// EncodeBatch generates vector embeddings for multiple text strings in one request.
func (e *Encoder) EncodeBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}
	e.logger.Debug("generating embeddings for texts", "count", len(texts))
	return e.embed(ctx, texts)
}

func (e *Encoder) embed(ctx context.Context, texts []string) ([][]float32, error) {
	if e.limiter != nil {
		if err := e.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	vectors, err := e.embedder.EmbedDocuments(ctx, texts)
	if err != nil {
		e.logger.Error("failed to generate embeddings", "count", len(texts), "err", err)
		return nil, err
	}

	if len(vectors) != len(texts) {
		e.logger.Warn("embedder returned unexpected result count", "expected", len(texts), "received", len(vectors))
		return nil, fmt.Errorf("embedding result mismatch: expected %d, received %d", len(texts), len(vectors))
	}

	for i, v := range vectors {
		if len(v) == 0 {
			return nil, fmt.Errorf("embedding %d is empty", i)
		}
	}

	return vectors, nil
}
