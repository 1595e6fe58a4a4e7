package mock

import (
	"context"
	"hash/fnv"
	"math"
	"strings"
	"sync"
	"unicode"
)

// DefaultDimension is the vector size produced by the default mock behaviour.
const DefaultDimension = 64

// MockEncoder is a test double for ai.Encoder.
// It allows custom behavior injection via function fields.
type MockEncoder struct {
	// EncodeFunc is called by Encode if set.
	// If nil, uses default deterministic behavior.
	EncodeFunc func(ctx context.Context, text string) ([]float32, error)

	// EncodeBatchFunc is called by EncodeBatch if set.
	// If nil, each text is encoded with Encode.
	EncodeBatchFunc func(ctx context.Context, texts []string) ([][]float32, error)

	// ModelName is returned by Model.
	ModelName string

	// Dimension of the default vectors.
	Dimension int

	mu        sync.Mutex
	callCount int
}

// NewMockEncoder creates a mock encoder with default deterministic behavior.
// Note: Returns concrete type so tests can inject behaviour and inspect calls.
func NewMockEncoder() *MockEncoder {
	return &MockEncoder{
		ModelName: "mock-encoder",
		Dimension: DefaultDimension,
	}
}

// Model returns the configured model name.
func (m *MockEncoder) Model() string {
	return m.ModelName
}

// Encode generates a deterministic bag-of-words embedding.
func (m *MockEncoder) Encode(ctx context.Context, text string) ([]float32, error) {
	m.count()

	if m.EncodeFunc != nil {
		return m.EncodeFunc(ctx, text)
	}

	return HashedBagOfWords(text, m.Dimension), nil
}

// EncodeBatch generates deterministic embeddings for multiple texts.
func (m *MockEncoder) EncodeBatch(ctx context.Context, texts []string) ([][]float32, error) {
	m.count()

	if m.EncodeBatchFunc != nil {
		return m.EncodeBatchFunc(ctx, texts)
	}

	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		if m.EncodeFunc != nil {
			v, err := m.EncodeFunc(ctx, text)
			if err != nil {
				return nil, err
			}
			vectors[i] = v
			continue
		}
		vectors[i] = HashedBagOfWords(text, m.Dimension)
	}
	return vectors, nil
}

// CallCount returns the number of times any method was called.
func (m *MockEncoder) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.callCount
}

// Reset clears the call count and any injected behaviour.
func (m *MockEncoder) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.callCount = 0
	m.EncodeFunc = nil
	m.EncodeBatchFunc = nil
}

func (m *MockEncoder) count() {
	m.mu.Lock()
	m.callCount++
	m.mu.Unlock()
}

// HashedBagOfWords maps each lowercased word of text to one of dim buckets
// with FNV hashing and returns the unit-length count vector. Texts sharing
// words therefore have positive cosine similarity. A text without words maps
// to a fixed non-zero vector.
func HashedBagOfWords(text string, dim int) []float32 {
	if dim <= 0 {
		dim = DefaultDimension
	}
	vector := make([]float32, dim)

	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	for _, word := range words {
		h := fnv.New32a()
		h.Write([]byte(word))
		vector[h.Sum32()%uint32(dim)]++
	}
	if len(words) == 0 {
		vector[0] = 1
	}

	var sumSquares float64
	for _, v := range vector {
		sumSquares += float64(v) * float64(v)
	}
	norm := float32(math.Sqrt(sumSquares))
	for i := range vector {
		vector[i] /= norm
	}
	return vector
}
