package reembed

import (
	"context"
	"fmt"
	"time"

	"github.com/poiesic/retrievit/ai"
	"github.com/poiesic/retrievit/core"
)

// BatchProcessor encodes batches of fragment texts.
type BatchProcessor struct {
	encoder        ai.Encoder
	maxRetries     int
	retryBaseDelay time.Duration
}

// NewBatchProcessor creates a new batch processor.
// maxRetries: maximum number of attempts per batch
// retryBaseDelay: base delay for exponential backoff
func NewBatchProcessor(encoder ai.Encoder, maxRetries int, retryBaseDelay time.Duration) *BatchProcessor {
	return &BatchProcessor{
		encoder:        encoder,
		maxRetries:     maxRetries,
		retryBaseDelay: retryBaseDelay,
	}
}

// Process returns one embedding per text. All embeddings share the
// dimension of the first one.
func (bp *BatchProcessor) Process(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	var embeddings [][]float32
	err := RetryWithBackoff(ctx, func() error {
		var err error
		embeddings, err = bp.encoder.EncodeBatch(ctx, texts)
		return err
	}, bp.maxRetries, bp.retryBaseDelay)
	if err != nil {
		return nil, fmt.Errorf("%w: failed after %d attempts: %w", core.ErrEncodingFailed, bp.maxRetries, err)
	}

	if len(embeddings) != len(texts) {
		return nil, fmt.Errorf("%w: expected %d embeddings, got %d", core.ErrEncodingFailed, len(texts), len(embeddings))
	}
	for i, e := range embeddings {
		if len(e) == 0 || len(e) != len(embeddings[0]) {
			return nil, fmt.Errorf("%w: embedding %d has dimension %d, embedding 0 has %d",
				core.ErrDimensionMismatch, i, len(e), len(embeddings[0]))
		}
	}
	return embeddings, nil
}
