// Package mock provides a test double implementation of ai.Encoder.
//
// MockEncoder lets tests run without an embedding service while still getting
// meaningful similarities: its default vectors are hashed bags of words, so
// texts that share words point in similar directions.
//
// # Usage in Tests
//
//	// Basic usage with default behavior
//	encoder := mock.NewMockEncoder()
//	vector, err := encoder.Encode(ctx, "test")
//
//	// Custom behavior injection
//	encoder.EncodeFunc = func(ctx context.Context, text string) ([]float32, error) {
//	    return []float32{0.1, 0.2, 0.3}, nil
//	}
//
//	// Check call counts
//	count := encoder.CallCount()
package mock
