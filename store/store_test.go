package store

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/poiesic/retrievit/ai/mock"
	"github.com/poiesic/retrievit/core"
	"github.com/poiesic/retrievit/fragment"
	"github.com/poiesic/retrievit/search"
	"github.com/poiesic/retrievit/storage"
	"github.com/poiesic/retrievit/storage/badger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T, opts ...Option) (*Store, *mock.MockEncoder) {
	t.Helper()
	encoder := mock.NewMockEncoder()
	s, err := New(encoder, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s, encoder
}

func sampleDocuments() []core.Document {
	return []core.Document{
		{
			Identifier: "2101.00001",
			Title:      "Learning Systems",
			Authors:    []string{"Ada Lovelace"},
			Categories: []string{"cs.LG"},
			FullText: "Machine learning is a subset of artificial intelligence. " +
				"Machine learning models learn patterns from data and improve with experience.",
		},
		{
			Identifier: "2101.00002",
			Title:      "Baking",
			FullText:   "The recipe calls for flour, sugar and butter baked at a moderate temperature until golden.",
		},
		{
			Identifier: "2101.00003",
			Title:      "Hiking",
			FullText:   "Mountain trails offer scenic views of glaciers and alpine lakes during summer.",
		},
	}
}

func TestNew(t *testing.T) {
	t.Run("nil encoder", func(t *testing.T) {
		_, err := New(nil)
		assert.ErrorIs(t, err, ErrEncoderRequired)
	})

	t.Run("defaults", func(t *testing.T) {
		s, _ := newTestStore(t)
		stats := s.Statistics()
		assert.Equal(t, fragment.DefaultChunkSize, stats.ChunkSize)
		assert.Equal(t, fragment.DefaultChunkOverlap, stats.ChunkOverlap)
		assert.Equal(t, "mock-encoder", stats.EmbeddingModel)
		assert.Zero(t, stats.TotalDocuments)
	})

	t.Run("invalid chunking", func(t *testing.T) {
		_, err := New(mock.NewMockEncoder(), WithChunking(100, 100))
		assert.ErrorIs(t, err, core.ErrInvalidChunkParams)
	})

	t.Run("invalid weights", func(t *testing.T) {
		w := search.DefaultWeights()
		w.HighSparse = -1
		_, err := New(mock.NewMockEncoder(), WithWeights(w))
		assert.ErrorIs(t, err, search.ErrInvalidWeights)
	})
}

func TestStore_SearchEmpty(t *testing.T) {
	s, encoder := newTestStore(t)

	results, err := s.Search(context.Background(), "anything", DefaultSearchOptions())
	require.NoError(t, err)
	assert.NotNil(t, results)
	assert.Empty(t, results)
	assert.Zero(t, encoder.CallCount(), "empty store does not encode the query")
}

func TestStore_AddDocuments(t *testing.T) {
	ctx := context.Background()

	t.Run("fragment counts", func(t *testing.T) {
		s, _ := newTestStore(t, WithChunking(200, 20))

		short := strings.Repeat("abcde ", 25)
		long := strings.Repeat("word ", 200)
		pieces, err := fragment.Split(long, 200, 20)
		require.NoError(t, err)

		report, err := s.AddDocuments(ctx, []core.Document{
			{Identifier: "short", FullText: short},
			{Identifier: "long", FullText: long},
		})
		require.NoError(t, err)
		assert.Equal(t, 2, report.Processed)
		assert.Zero(t, report.Errors)
		assert.Equal(t, 1+len(pieces), report.FragmentsCreated)

		stats := s.Statistics()
		assert.Equal(t, 2, stats.TotalDocuments)
		assert.Equal(t, 1+len(pieces), stats.TotalFragments)
		assert.Equal(t, mock.DefaultDimension, stats.EmbeddingDimension)
		assert.InDelta(t, float64(1+len(pieces))/2, stats.AvgFragmentsPerDocument, 1e-9)
		assert.Equal(t, 200, stats.ChunkSize)
		assert.Equal(t, 20, stats.ChunkOverlap)
	})

	t.Run("per document errors", func(t *testing.T) {
		s, _ := newTestStore(t)
		docs := sampleDocuments()
		docs = []core.Document{docs[0], {Identifier: "blank", FullText: "   "}, docs[1]}

		report, err := s.AddDocuments(ctx, docs)
		require.NoError(t, err)
		assert.Equal(t, 3, report.Total)
		assert.Equal(t, 2, report.Processed)
		assert.Equal(t, 1, report.Errors)
		require.Len(t, report.ErrorDetails, 1)
		assert.Equal(t, 1, report.ErrorDetails[0].Position)
		assert.Equal(t, "blank", report.ErrorDetails[0].Identifier)
		assert.Positive(t, report.SparseFeatures)
		assert.Equal(t, 2, s.Statistics().TotalDocuments)
	})

	t.Run("encoding failure", func(t *testing.T) {
		s, encoder := newTestStore(t)
		encoder.EncodeBatchFunc = func(_ context.Context, texts []string) ([][]float32, error) {
			if strings.Contains(texts[0], "flour") {
				return nil, errors.New("backend unavailable")
			}
			out := make([][]float32, len(texts))
			for i, text := range texts {
				out[i] = mock.HashedBagOfWords(text, mock.DefaultDimension)
			}
			return out, nil
		}

		report, err := s.AddDocuments(ctx, sampleDocuments())
		require.NoError(t, err)
		assert.Equal(t, 2, report.Processed)
		require.Len(t, report.ErrorDetails, 1)
		assert.Equal(t, "2101.00002", report.ErrorDetails[0].Identifier)
		assert.Contains(t, report.ErrorDetails[0].Message, core.ErrEncodingFailed.Error())
	})

	t.Run("dimension mismatch", func(t *testing.T) {
		s, encoder := newTestStore(t)
		docs := sampleDocuments()

		_, err := s.AddDocuments(ctx, docs[:1])
		require.NoError(t, err)

		encoder.Dimension = 32
		report, err := s.AddDocuments(ctx, docs[1:2])
		require.NoError(t, err)
		assert.Zero(t, report.Processed)
		require.Len(t, report.ErrorDetails, 1)
		assert.Contains(t, report.ErrorDetails[0].Message, core.ErrDimensionMismatch.Error())

		_, err = s.Search(ctx, "learning", DefaultSearchOptions())
		assert.ErrorIs(t, err, core.ErrDimensionMismatch)
	})

	t.Run("stored documents carry content ids", func(t *testing.T) {
		s, _ := newTestStore(t)
		docs := sampleDocuments()
		_, err := s.AddDocuments(ctx, docs)
		require.NoError(t, err)

		results, err := s.Search(ctx, "machine learning", DefaultSearchOptions())
		require.NoError(t, err)
		require.NotEmpty(t, results)
		assert.Equal(t, docs[0].ContentID(), results[0].DocumentId)
		assert.Zero(t, docs[0].Id, "caller documents are not modified")
	})

	t.Run("sparse fit failure disables hybrid", func(t *testing.T) {
		s, _ := newTestStore(t)
		report, err := s.AddDocuments(ctx, []core.Document{
			{Identifier: "stop", FullText: "the and of it is"},
		})
		require.NoError(t, err)
		assert.Equal(t, 1, report.Processed)
		require.Len(t, report.ErrorDetails, 1)
		assert.Equal(t, -1, report.ErrorDetails[0].Position)
		assert.Zero(t, report.SparseFeatures)

		results, err := s.Search(ctx, "the and", DefaultSearchOptions())
		require.NoError(t, err)
		require.Len(t, results, 1)
		assert.Equal(t, core.SearchTypeDense, results[0].SearchType)
	})

	t.Run("cancelled context", func(t *testing.T) {
		s, _ := newTestStore(t)
		cctx, cancel := context.WithCancel(ctx)
		cancel()

		_, err := s.AddDocuments(cctx, sampleDocuments())
		assert.ErrorIs(t, err, context.Canceled)
		assert.Zero(t, s.Statistics().TotalDocuments)
	})
}

func TestStore_Search(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)
	_, err := s.AddDocuments(ctx, sampleDocuments())
	require.NoError(t, err)

	t.Run("relevant fragment ranks first", func(t *testing.T) {
		results, err := s.Search(ctx, "machine learning", DefaultSearchOptions())
		require.NoError(t, err)
		require.NotEmpty(t, results)

		top := results[0]
		assert.Equal(t, "2101.00001", top.Identifier)
		assert.Equal(t, "Learning Systems", top.Title)
		assert.Equal(t, []string{"Ada Lovelace"}, top.Authors)
		assert.Equal(t, 1, top.Rank)
		assert.Positive(t, top.Score)
		assert.LessOrEqual(t, top.Score, 1.0)
		assert.Equal(t, core.SearchTypeHybrid, top.SearchType)
		assert.Equal(t, core.PointID("2101.00001", 0), top.Fragment.PointID)

		for i := 1; i < len(results); i++ {
			assert.GreaterOrEqual(t, results[i-1].Score, results[i].Score)
			assert.Equal(t, i+1, results[i].Rank)
		}
	})

	t.Run("long query", func(t *testing.T) {
		query := strings.Repeat("machine learning ", 20)
		require.Greater(t, len(query), 200)

		results, err := s.Search(ctx, query, DefaultSearchOptions())
		require.NoError(t, err)
		require.NotEmpty(t, results)
		assert.Equal(t, "2101.00001", results[0].Identifier)
	})

	t.Run("dense only", func(t *testing.T) {
		opts := DefaultSearchOptions()
		opts.UseHybrid = false
		results, err := s.Search(ctx, "machine learning", opts)
		require.NoError(t, err)
		require.NotEmpty(t, results)
		assert.Equal(t, core.SearchTypeDense, results[0].SearchType)
	})

	t.Run("merged strategy", func(t *testing.T) {
		opts := DefaultSearchOptions()
		opts.Strategy = search.StrategyMerged
		results, err := s.Search(ctx, "machine learning", opts)
		require.NoError(t, err)
		require.NotEmpty(t, results)
		assert.Equal(t, "2101.00001", results[0].Identifier)
		assert.Equal(t, core.SearchTypeMerged, results[0].SearchType)
	})

	t.Run("top k bounds results", func(t *testing.T) {
		opts := DefaultSearchOptions()
		opts.TopK = 1
		opts.MinScore = 0
		results, err := s.Search(ctx, "machine learning", opts)
		require.NoError(t, err)
		assert.Len(t, results, 1)
	})

	t.Run("invalid parameters", func(t *testing.T) {
		tests := []struct {
			name string
			opts SearchOptions
		}{
			{"zero top k", SearchOptions{TopK: 0, MinScore: 0.1}},
			{"negative min score", SearchOptions{TopK: 5, MinScore: -0.1}},
			{"min score above one", SearchOptions{TopK: 5, MinScore: 1.5}},
			{"unknown strategy", SearchOptions{TopK: 5, Strategy: "bogus"}},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				_, err := s.Search(ctx, "learning", tt.opts)
				assert.ErrorIs(t, err, core.ErrInvalidSearchParams)
			})
		}
	})

	t.Run("empty query", func(t *testing.T) {
		_, err := s.Search(ctx, "   ", DefaultSearchOptions())
		assert.ErrorIs(t, err, core.ErrEmptyQuery)
	})

	t.Run("concurrent searches", func(t *testing.T) {
		var wg sync.WaitGroup
		errs := make(chan error, 16)
		for i := 0; i < 16; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				results, err := s.Search(ctx, "alpine glaciers", DefaultSearchOptions())
				if err == nil && len(results) == 0 {
					err = errors.New("no results")
				}
				errs <- err
			}()
		}
		wg.Wait()
		close(errs)
		for err := range errs {
			assert.NoError(t, err)
		}
	})
}

func TestStore_SearchExactFragment(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)

	const text = "Machine learning is a subset of artificial intelligence."
	docs := sampleDocuments()
	docs[0].FullText = text
	_, err := s.AddDocuments(ctx, docs)
	require.NoError(t, err)

	results, err := s.Search(ctx, "machine learning", DefaultSearchOptions())
	require.NoError(t, err)
	require.NotEmpty(t, results)
	assert.Equal(t, text, results[0].Fragment.Text)
	assert.Equal(t, 1, results[0].Rank)
	assert.Positive(t, results[0].Score)
	for _, r := range results {
		assert.GreaterOrEqual(t, r.Score, 0.0)
		assert.LessOrEqual(t, r.Score, 1.0)
	}
}

func TestStore_RestoreDuringAdd(t *testing.T) {
	ctx := context.Background()

	source, _ := newTestStore(t, WithChunking(100, 10))
	_, err := source.AddDocuments(ctx, sampleDocuments())
	require.NoError(t, err)
	snap, err := source.Snapshot()
	require.NoError(t, err)

	s, _ := newTestStore(t, WithChunking(300, 30))
	long := []core.Document{{Identifier: "long", FullText: strings.Repeat("neural networks learn representations. ", 20)}}

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			assert.NoError(t, s.Restore(snap))
		}()
		go func() {
			defer wg.Done()
			_, err := s.AddDocuments(ctx, long)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	stats := s.Statistics()
	assert.Equal(t, 100, stats.ChunkSize)
	assert.Equal(t, 10, stats.ChunkOverlap)

	current, err := s.Snapshot()
	require.NoError(t, err)
	require.NoError(t, current.Validate())
	for _, f := range current.Fragments {
		assert.LessOrEqual(t, f.Length, stats.ChunkSize, "fragment %s cut with stale chunk settings", f.PointID)
	}
}

func TestStore_Clear(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)
	_, err := s.AddDocuments(ctx, sampleDocuments())
	require.NoError(t, err)

	require.NoError(t, s.Clear())

	stats := s.Statistics()
	assert.Zero(t, stats.TotalDocuments)
	assert.Zero(t, stats.TotalFragments)
	assert.Zero(t, stats.SparseFeatures)
	assert.Zero(t, stats.EmbeddingDimension)
	assert.Zero(t, stats.AvgFragmentsPerDocument)

	results, err := s.Search(ctx, "machine learning", DefaultSearchOptions())
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestStore_SaveLoad(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "snapshot")

	s, _ := newTestStore(t, WithChunking(200, 20))
	_, err := s.AddDocuments(ctx, sampleDocuments())
	require.NoError(t, err)

	before, err := s.Search(ctx, "machine learning", DefaultSearchOptions())
	require.NoError(t, err)
	require.NoError(t, s.Save(ctx, path))

	t.Run("round trip", func(t *testing.T) {
		loaded, _ := newTestStore(t)
		require.NoError(t, loaded.Load(ctx, path))

		assert.Equal(t, s.Statistics(), loaded.Statistics())

		after, err := loaded.Search(ctx, "machine learning", DefaultSearchOptions())
		require.NoError(t, err)
		require.Len(t, after, len(before))
		for i := range before {
			assert.Equal(t, before[i].Fragment.PointID, after[i].Fragment.PointID)
			assert.InDelta(t, before[i].Score, after[i].Score, 1e-9)
		}
	})

	t.Run("encoder mismatch", func(t *testing.T) {
		encoder := mock.NewMockEncoder()
		encoder.ModelName = "other-model"
		other, err := New(encoder)
		require.NoError(t, err)
		defer other.Close()

		err = other.Load(ctx, path)
		assert.ErrorIs(t, err, core.ErrEncoderMismatch)
		assert.Zero(t, other.Statistics().TotalDocuments)
	})

	t.Run("missing snapshot", func(t *testing.T) {
		loaded, _ := newTestStore(t)
		err := loaded.Load(ctx, filepath.Join(t.TempDir(), "absent"))
		assert.ErrorIs(t, err, storage.ErrSnapshotNotFound)
	})

	t.Run("empty store round trip", func(t *testing.T) {
		emptyPath := filepath.Join(t.TempDir(), "empty")
		empty, _ := newTestStore(t)
		require.NoError(t, empty.Save(ctx, emptyPath))

		loaded, _ := newTestStore(t)
		require.NoError(t, loaded.Load(ctx, emptyPath))
		assert.Zero(t, loaded.Statistics().TotalFragments)
	})
}

func TestStore_SaveToRepository(t *testing.T) {
	ctx := context.Background()
	repo, backend, err := badger.NewMemorySnapshotRepository()
	require.NoError(t, err)
	defer func() {
		repo.Close()
		backend.Close()
	}()

	s, _ := newTestStore(t)
	_, err = s.AddDocuments(ctx, sampleDocuments())
	require.NoError(t, err)
	require.NoError(t, s.SaveTo(ctx, repo))

	loaded, _ := newTestStore(t)
	require.NoError(t, loaded.LoadFrom(ctx, repo))
	assert.Equal(t, s.Statistics(), loaded.Statistics())
}

func TestStore_Closed(t *testing.T) {
	s, _ := newTestStore(t)
	require.NoError(t, s.Close())
	require.NoError(t, s.Close())

	ctx := context.Background()
	_, err := s.AddDocuments(ctx, sampleDocuments())
	assert.ErrorIs(t, err, ErrStoreClosed)
	_, err = s.Search(ctx, "learning", DefaultSearchOptions())
	assert.ErrorIs(t, err, ErrStoreClosed)
	assert.ErrorIs(t, s.Clear(), ErrStoreClosed)
}
