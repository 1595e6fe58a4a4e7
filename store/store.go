package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"runtime"
	"slices"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/panjf2000/ants/v2"
	"github.com/poiesic/retrievit/ai"
	"github.com/poiesic/retrievit/core"
	"github.com/poiesic/retrievit/fragment"
	"github.com/poiesic/retrievit/search"
	"github.com/poiesic/retrievit/sparse"
	"github.com/poiesic/retrievit/storage"
	"github.com/poiesic/retrievit/storage/badger"
)

// Store holds ingested documents, their fragments, dense embeddings and the
// sparse index, and answers hybrid searches over them.
//
// Searches, statistics and saves share a read lock; adds, clears and loads
// take the write lock. Fragmenting and encoding of new documents happen on a
// worker pool before the write lock is taken, so adds also hold ingestMu for
// their whole duration. Clear and Restore take ingestMu first, which keeps
// them from landing between the prepare and commit phases of an add.
type Store struct {
	encoder    ai.Encoder
	fragmenter *fragment.Fragmenter
	vectorizer *sparse.Vectorizer
	weights    search.Weights
	ranker     *search.Ranker
	pool       *ants.Pool
	poolSize   int
	logger     *slog.Logger

	ingestMu sync.Mutex

	mu         sync.RWMutex
	closed     bool
	documents  []core.Document
	fragments  []core.Fragment
	embeddings [][]float32
	index      *sparse.Index
	dimension  int
}

// New creates an empty store around encoder.
func New(encoder ai.Encoder, opts ...Option) (*Store, error) {
	if encoder == nil {
		return nil, ErrEncoderRequired
	}

	// Default pool size
	poolSize := runtime.NumCPU() / 2
	if poolSize < 1 {
		poolSize = 1
	}

	s := &Store{
		encoder:  encoder,
		weights:  search.DefaultWeights(),
		poolSize: poolSize,
		logger:   slog.Default().With("component", "store"),
	}

	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}

	if s.fragmenter == nil {
		f, err := fragment.New(fragment.DefaultChunkSize, fragment.DefaultChunkOverlap)
		if err != nil {
			return nil, err
		}
		s.fragmenter = f
	}
	if s.vectorizer == nil {
		v, err := sparse.NewVectorizer(sparse.DefaultConfig())
		if err != nil {
			return nil, err
		}
		s.vectorizer = v
	}

	ranker, err := search.NewRanker(search.WithWeights(s.weights), search.WithLogger(s.logger))
	if err != nil {
		return nil, err
	}
	s.ranker = ranker

	pool, err := ants.NewPool(s.poolSize)
	if err != nil {
		return nil, err
	}
	s.pool = pool

	return s, nil
}

// Close releases the worker pool. The store must not be used afterwards.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	s.pool.Release()
	return nil
}

// prepared is a document fragmented and encoded, ready to commit.
type prepared struct {
	pieces     []string
	embeddings [][]float32
	err        error
}

// AddDocuments fragments, encodes and stores docs, then refits the sparse
// index over every stored fragment. Problems with individual documents are
// reported in the returned IngestReport and do not stop the batch. The error
// is non-nil only when the store is closed or ctx ends before the commit.
func (s *Store) AddDocuments(ctx context.Context, docs []core.Document) (*core.IngestReport, error) {
	if s.isClosed() {
		return nil, ErrStoreClosed
	}

	s.ingestMu.Lock()
	defer s.ingestMu.Unlock()

	report := &core.IngestReport{Total: len(docs)}
	if len(docs) == 0 {
		s.mu.RLock()
		report.SparseFeatures = s.sparseFeatures()
		s.mu.RUnlock()
		return report, nil
	}

	s.mu.RLock()
	fragmenter := s.fragmenter
	s.mu.RUnlock()

	results := make([]prepared, len(docs))
	var wg sync.WaitGroup
	for i := range docs {
		wg.Add(1)
		err := s.pool.Submit(func() {
			defer wg.Done()
			results[i] = s.prepare(ctx, fragmenter, &docs[i])
		})
		if err != nil {
			wg.Done()
			results[i] = prepared{err: err}
		}
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrStoreClosed
	}

	for i, p := range results {
		doc := &docs[i]
		if p.err != nil {
			s.logger.Warn("document rejected", "position", i, "identifier", doc.Identifier, "err", p.err)
			report.AddError(i, doc.Identifier, p.err)
			continue
		}
		if err := s.checkDimension(p.embeddings); err != nil {
			s.logger.Warn("document rejected", "position", i, "identifier", doc.Identifier, "err", err)
			report.AddError(i, doc.Identifier, err)
			continue
		}
		s.commit(doc, p)
		report.Processed++
		report.FragmentsCreated += len(p.pieces)
	}

	if report.Processed > 0 {
		s.refit(report)
	}
	report.SparseFeatures = s.sparseFeatures()

	s.logger.Info("documents added",
		"total", report.Total,
		"processed", report.Processed,
		"errors", report.Errors,
		"fragments", report.FragmentsCreated,
		"sparseFeatures", report.SparseFeatures)

	return report, nil
}

// prepare fragments and encodes one document. It touches no store state.
func (s *Store) prepare(ctx context.Context, fragmenter *fragment.Fragmenter, doc *core.Document) prepared {
	if err := core.ValidateDocument(doc); err != nil {
		return prepared{err: err}
	}

	pieces := fragmenter.Split(doc.Text())
	if len(pieces) == 0 {
		return prepared{err: fmt.Errorf("%w: %w", core.ErrInvalidDocument, core.ErrEmptyContent)}
	}

	embeddings, err := s.encoder.EncodeBatch(ctx, pieces)
	if err != nil {
		return prepared{err: fmt.Errorf("%w: %w", core.ErrEncodingFailed, err)}
	}
	if len(embeddings) != len(pieces) {
		return prepared{err: fmt.Errorf("%w: expected %d embeddings, received %d",
			core.ErrEncodingFailed, len(pieces), len(embeddings))}
	}
	for i, e := range embeddings {
		if len(e) == 0 {
			return prepared{err: fmt.Errorf("%w: empty embedding for fragment %d", core.ErrEncodingFailed, i)}
		}
		if len(e) != len(embeddings[0]) {
			return prepared{err: fmt.Errorf("%w: fragment %d has dimension %d, fragment 0 has %d",
				core.ErrDimensionMismatch, i, len(e), len(embeddings[0]))}
		}
	}

	return prepared{pieces: pieces, embeddings: embeddings}
}

// checkDimension must be called with the write lock held.
func (s *Store) checkDimension(embeddings [][]float32) error {
	d := len(embeddings[0])
	if s.dimension != 0 && d != s.dimension {
		return fmt.Errorf("%w: got %d, store uses %d", core.ErrDimensionMismatch, d, s.dimension)
	}
	return nil
}

// commit must be called with the write lock held.
func (s *Store) commit(doc *core.Document, p prepared) {
	if s.dimension == 0 {
		s.dimension = len(p.embeddings[0])
	}

	stored := cloneDocument(doc)
	stored.Id = stored.ContentID()
	docIndex := len(s.documents)
	s.documents = append(s.documents, stored)

	for j, text := range p.pieces {
		s.fragments = append(s.fragments, core.Fragment{
			PointID:       core.PointID(stored.Identifier, j),
			DocumentIndex: docIndex,
			Index:         j,
			Text:          text,
			Length:        utf8.RuneCountInString(text),
			Total:         len(p.pieces),
		})
	}
	s.embeddings = append(s.embeddings, p.embeddings...)
}

// refit rebuilds the sparse index from every fragment. On failure hybrid
// scoring stays disabled until the next successful fit. Must be called with
// the write lock held.
func (s *Store) refit(report *core.IngestReport) {
	texts := make([]string, len(s.fragments))
	for i, f := range s.fragments {
		texts[i] = f.Text
	}

	start := time.Now()
	idx, err := s.vectorizer.Fit(texts)
	if err != nil {
		s.index = nil
		s.logger.Warn("sparse index unavailable, hybrid search disabled", "err", err)
		report.AddError(-1, "", fmt.Errorf("sparse index: %w", err))
		return
	}
	s.index = idx
	s.logger.Debug("sparse index rebuilt",
		"fragments", len(texts),
		"features", idx.Features(),
		"elapsed", time.Since(start))
}

// Search ranks stored fragments against query. An empty store yields an
// empty result without consulting the encoder.
func (s *Store) Search(ctx context.Context, query string, opts SearchOptions) ([]core.ScoredResult, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(query) == "" {
		return nil, core.ErrEmptyQuery
	}
	strategy, _ := search.ParseStrategy(string(opts.Strategy))

	s.mu.RLock()
	closed, empty := s.closed, len(s.fragments) == 0
	s.mu.RUnlock()
	if closed {
		return nil, ErrStoreClosed
	}
	if empty {
		s.logger.Debug("search on empty store", "query", query)
		return []core.ScoredResult{}, nil
	}

	embedding, err := s.encoder.Encode(ctx, query)
	if err != nil {
		s.logger.Error("error encoding query", "query", query, "err", err)
		return nil, fmt.Errorf("%w: %w", core.ErrEncodingFailed, err)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.fragments) == 0 {
		return []core.ScoredResult{}, nil
	}
	if len(embedding) != s.dimension {
		return nil, fmt.Errorf("%w: query has dimension %d, store uses %d",
			core.ErrDimensionMismatch, len(embedding), s.dimension)
	}

	candidates := make([]search.Candidate, len(s.fragments))
	for i, f := range s.fragments {
		candidates[i] = search.Candidate{
			Embedding:     s.embeddings[i],
			Length:        f.Length,
			FragmentIndex: f.Index,
		}
	}

	searchType := core.SearchTypeDense
	var lexical []float64
	if opts.UseHybrid && s.index != nil {
		lexical = s.index.Similarities(query)
		searchType = core.SearchTypeHybrid
		if strategy == search.StrategyMerged {
			searchType = core.SearchTypeMerged
		}
	}

	ranked := s.ranker.RankWithMonitor(search.Request{
		Query:      query,
		Embedding:  embedding,
		Lexical:    lexical,
		Candidates: candidates,
		TopK:       opts.TopK,
		MinScore:   opts.MinScore,
		Strategy:   strategy,
	}, opts.Monitor)

	results := make([]core.ScoredResult, len(ranked))
	for i, r := range ranked {
		f := s.fragments[r.Position]
		doc := &s.documents[f.DocumentIndex]
		results[i] = core.ScoredResult{
			Fragment:      f,
			Score:         r.Score,
			Rank:          i + 1,
			DocumentId:    doc.Id,
			Identifier:    doc.Identifier,
			Title:         doc.Title,
			Authors:       slices.Clone(doc.Authors),
			PublishedDate: doc.PublishedDate,
			Categories:    slices.Clone(doc.Categories),
			SearchType:    searchType,
		}
	}

	s.logger.Debug("search complete", "query", query, "results", len(results), "type", searchType)
	return results, nil
}

// Clear removes every document, fragment, embedding and the sparse index.
// Chunking and encoder settings are kept.
func (s *Store) Clear() error {
	s.ingestMu.Lock()
	defer s.ingestMu.Unlock()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrStoreClosed
	}

	s.documents = nil
	s.fragments = nil
	s.embeddings = nil
	s.index = nil
	s.dimension = 0

	s.logger.Info("store cleared")
	return nil
}

// Statistics reports the store's current size and configuration.
func (s *Store) Statistics() core.Statistics {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := core.Statistics{
		TotalDocuments:     len(s.documents),
		TotalFragments:     len(s.fragments),
		EmbeddingModel:     s.encoder.Model(),
		EmbeddingDimension: s.dimension,
		SparseFeatures:     s.sparseFeatures(),
		ChunkSize:          s.fragmenter.Size(),
		ChunkOverlap:       s.fragmenter.Overlap(),
	}
	if len(s.documents) > 0 {
		stats.AvgFragmentsPerDocument = float64(len(s.fragments)) / float64(len(s.documents))
	}
	return stats
}

// Save writes the complete store state as a snapshot directory at path,
// replacing any snapshot already there.
func (s *Store) Save(ctx context.Context, path string) error {
	snap, err := s.Snapshot()
	if err != nil {
		return err
	}
	if err := badger.WriteSnapshot(ctx, path, snap); err != nil {
		s.logger.Error("error saving snapshot", "path", path, "err", err)
		return err
	}
	s.logger.Info("store saved", "path", path, "documents", len(snap.Documents), "fragments", len(snap.Fragments))
	return nil
}

// SaveTo writes the complete store state to repo.
func (s *Store) SaveTo(ctx context.Context, repo storage.SnapshotRepository) error {
	snap, err := s.Snapshot()
	if err != nil {
		return err
	}
	return repo.Save(ctx, snap)
}

// Snapshot captures the current state. Stored records are never modified in
// place, so the snapshot shares them with the store.
func (s *Store) Snapshot() (*storage.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrStoreClosed
	}

	snap := &storage.Snapshot{
		Manifest: storage.Manifest{
			SchemaVersion: storage.SchemaVersion,
			EncoderModel:  s.encoder.Model(),
			Dimension:     s.dimension,
			ChunkSize:     s.fragmenter.Size(),
			ChunkOverlap:  s.fragmenter.Overlap(),
			Sparse:        s.vectorizer.Config(),
			Documents:     len(s.documents),
			Fragments:     len(s.fragments),
			SavedAt:       time.Now().UTC(),
		},
		Documents:  s.documents,
		Fragments:  s.fragments,
		Embeddings: s.embeddings,
	}
	if s.index != nil {
		snap.Terms = s.index.Terms()
		snap.IDF = s.index.IDF()
		snap.Rows = s.index.Rows()
		snap.Manifest.SparseFeatures = s.index.Features()
		snap.Manifest.Sparse = s.index.Config()
	}
	return snap, nil
}

// Load replaces the store state with the snapshot directory at path.
// Nothing changes unless the whole snapshot is read and validated.
func (s *Store) Load(ctx context.Context, path string) error {
	snap, err := badger.ReadSnapshot(ctx, path)
	if err != nil {
		s.logger.Error("error reading snapshot", "path", path, "err", err)
		return err
	}
	if err := s.Restore(snap); err != nil {
		return err
	}
	s.logger.Info("store loaded", "path", path, "documents", len(snap.Documents), "fragments", len(snap.Fragments))
	return nil
}

// LoadFrom replaces the store state with the snapshot held by repo.
func (s *Store) LoadFrom(ctx context.Context, repo storage.SnapshotRepository) error {
	snap, err := repo.Load(ctx)
	if err != nil {
		return err
	}
	return s.Restore(snap)
}

// Restore validates snap and swaps it in as the store state. Chunking and
// sparse settings are taken from the snapshot.
func (s *Store) Restore(snap *storage.Snapshot) error {
	if err := snap.Validate(); err != nil {
		return err
	}
	m := snap.Manifest
	if m.EncoderModel != s.encoder.Model() {
		return fmt.Errorf("%w: snapshot uses %q, store uses %q",
			core.ErrEncoderMismatch, m.EncoderModel, s.encoder.Model())
	}

	fragmenter, err := fragment.New(m.ChunkSize, m.ChunkOverlap)
	if err != nil {
		return fmt.Errorf("%w: %w", storage.ErrCorruptSnapshot, err)
	}
	vectorizer, err := sparse.NewVectorizer(m.Sparse)
	if err != nil {
		return fmt.Errorf("%w: %w", storage.ErrCorruptSnapshot, err)
	}

	var index *sparse.Index
	if snap.HasSparseIndex() {
		index, err = sparse.Restore(m.Sparse, snap.Terms, snap.IDF, snap.Rows)
		if err != nil {
			return fmt.Errorf("%w: %w", storage.ErrCorruptSnapshot, err)
		}
	}

	s.ingestMu.Lock()
	defer s.ingestMu.Unlock()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrStoreClosed
	}

	// Clipped so later adds reallocate instead of writing into snap.
	s.fragmenter = fragmenter
	s.vectorizer = vectorizer
	s.documents = slices.Clip(snap.Documents)
	s.fragments = slices.Clip(snap.Fragments)
	s.embeddings = slices.Clip(snap.Embeddings)
	s.index = index
	s.dimension = m.Dimension
	if len(s.fragments) == 0 {
		s.dimension = 0
	}
	return nil
}

func (s *Store) isClosed() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.closed
}

// sparseFeatures must be called with a lock held.
func (s *Store) sparseFeatures() int {
	if s.index == nil {
		return 0
	}
	return s.index.Features()
}

func cloneDocument(doc *core.Document) core.Document {
	c := *doc
	c.Authors = slices.Clone(doc.Authors)
	c.Categories = slices.Clone(doc.Categories)
	c.Metadata = maps.Clone(doc.Metadata)
	return c
}

// IsDocumentError reports whether err describes a rejected document rather
// than a failure of the store itself.
func IsDocumentError(err error) bool {
	return errors.Is(err, core.ErrInvalidDocument) ||
		errors.Is(err, core.ErrEncodingFailed) ||
		errors.Is(err, core.ErrDimensionMismatch)
}
