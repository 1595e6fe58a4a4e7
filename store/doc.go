// Package store is the in-memory retrieval store. It keeps ingested
// documents, their fragments, the dense embedding of every fragment and a
// TF-IDF index over all fragment texts, and ranks fragments against free-text
// queries with the hybrid ranker from package search.
//
// Basic usage:
//
//	s, err := store.New(encoder, store.WithChunking(512, 50))
//	if err != nil {
//		return err
//	}
//	defer s.Close()
//
//	report, err := s.AddDocuments(ctx, docs)
//	results, err := s.Search(ctx, "machine learning", store.DefaultSearchOptions())
//
// The whole state can be written to and read back from a snapshot directory
// with Save and Load. A snapshot is only loaded into a store whose encoder
// reports the same model.
package store
