package mock

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dot(a, b []float32) float64 {
	var sum float64
	for i := range a {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}

func TestMockEncoder_Defaults(t *testing.T) {
	encoder := NewMockEncoder()
	ctx := context.Background()

	v1, err := encoder.Encode(ctx, "Machine learning basics")
	require.NoError(t, err)
	v2, err := encoder.Encode(ctx, "Machine learning basics")
	require.NoError(t, err)

	assert.Len(t, v1, DefaultDimension)
	assert.Equal(t, v1, v2, "encoding must be deterministic")
	assert.InDelta(t, 1.0, math.Sqrt(dot(v1, v1)), 1e-5)
	assert.Equal(t, "mock-encoder", encoder.Model())
	assert.Equal(t, 2, encoder.CallCount())
}

func TestMockEncoder_SharedWordsAreSimilar(t *testing.T) {
	query := HashedBagOfWords("machine learning", 256)
	related := HashedBagOfWords("Machine learning is a subset of artificial intelligence.", 256)
	unrelated := HashedBagOfWords("Bread recipes with sourdough starter", 256)

	assert.Greater(t, dot(query, related), dot(query, unrelated))
	assert.Greater(t, dot(query, related), 0.0)
}

func TestMockEncoder_EmptyText(t *testing.T) {
	v := HashedBagOfWords("  ...  ", 8)
	require.Len(t, v, 8)
	assert.Equal(t, float32(1), v[0])
}

func TestMockEncoder_Batch(t *testing.T) {
	encoder := NewMockEncoder()
	ctx := context.Background()

	vectors, err := encoder.EncodeBatch(ctx, []string{"alpha", "beta"})
	require.NoError(t, err)
	require.Len(t, vectors, 2)

	single, err := encoder.Encode(ctx, "beta")
	require.NoError(t, err)
	assert.Equal(t, single, vectors[1], "batch must match single encodes")
}

func TestMockEncoder_Injection(t *testing.T) {
	encoder := NewMockEncoder()
	ctx := context.Background()
	boom := errors.New("boom")

	encoder.EncodeFunc = func(ctx context.Context, text string) ([]float32, error) {
		if text == "bad" {
			return nil, boom
		}
		return []float32{1, 0}, nil
	}

	v, err := encoder.Encode(ctx, "good")
	require.NoError(t, err)
	assert.Equal(t, []float32{1, 0}, v)

	_, err = encoder.EncodeBatch(ctx, []string{"good", "bad"})
	assert.ErrorIs(t, err, boom)

	encoder.Reset()
	assert.Equal(t, 0, encoder.CallCount())
	v, err = encoder.Encode(ctx, "good")
	require.NoError(t, err)
	assert.Len(t, v, DefaultDimension)
}
