package ai

import "context"

// Encoder maps text to a dense vector embedding for semantic similarity.
// Implementations must be deterministic for a given model and thread-safe
// for concurrent use. All vectors produced by one Encoder share a dimension.
type Encoder interface {
	// Encode generates a vector embedding for a single text string.
	Encode(ctx context.Context, text string) ([]float32, error)

	// EncodeBatch generates embeddings for multiple texts. The result has the
	// same order and semantics as calling Encode on each text.
	EncodeBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Model identifies the embedding model. Persisted state records it so that
	// reloaded stores keep using a compatible encoder.
	Model() string
}
