package storage

import (
	"fmt"
	"time"

	"github.com/poiesic/retrievit/core"
	"github.com/poiesic/retrievit/sparse"
)

// SchemaVersion is the snapshot layout written by this package.
const SchemaVersion = 1

// Manifest describes a snapshot: the parameters the state was built with and
// the number of records of each kind.
type Manifest struct {
	SchemaVersion  int
	EncoderModel   string
	Dimension      int
	ChunkSize      int
	ChunkOverlap   int
	Sparse         sparse.Config
	Documents      int
	Fragments      int
	SparseFeatures int
	SavedAt        time.Time
}

// Snapshot is the complete persisted state of a retrieval store.
// Fragments, Embeddings and Rows are index aligned; Terms and IDF are
// empty when the store had no usable sparse index.
type Snapshot struct {
	Manifest   Manifest
	Documents  []core.Document
	Fragments  []core.Fragment
	Embeddings [][]float32
	Terms      []string
	IDF        []float64
	Rows       []sparse.Vector
}

// HasSparseIndex reports whether the snapshot carries a fitted sparse index.
func (s *Snapshot) HasSparseIndex() bool {
	return len(s.Terms) > 0
}

// Validate checks that the snapshot's parts agree with each other and with
// its manifest.
func (s *Snapshot) Validate() error {
	m := s.Manifest
	if m.SchemaVersion != SchemaVersion {
		return fmt.Errorf("%w: got version %d, want %d", ErrSchemaMismatch, m.SchemaVersion, SchemaVersion)
	}
	if m.Documents != len(s.Documents) || m.Fragments != len(s.Fragments) {
		return fmt.Errorf("%w: manifest counts %d/%d, found %d documents and %d fragments",
			ErrCorruptSnapshot, m.Documents, m.Fragments, len(s.Documents), len(s.Fragments))
	}
	if len(s.Embeddings) != len(s.Fragments) {
		return fmt.Errorf("%w: %d embeddings for %d fragments", ErrCorruptSnapshot, len(s.Embeddings), len(s.Fragments))
	}
	for i, e := range s.Embeddings {
		if len(e) != m.Dimension {
			return fmt.Errorf("%w: embedding %d has dimension %d, want %d", ErrCorruptSnapshot, i, len(e), m.Dimension)
		}
	}
	for i, f := range s.Fragments {
		if f.DocumentIndex < 0 || f.DocumentIndex >= len(s.Documents) {
			return fmt.Errorf("%w: fragment %d references document %d", ErrCorruptSnapshot, i, f.DocumentIndex)
		}
	}
	if len(s.Terms) != len(s.IDF) || len(s.Terms) != m.SparseFeatures {
		return fmt.Errorf("%w: %d terms, %d idf weights, manifest says %d",
			ErrCorruptSnapshot, len(s.Terms), len(s.IDF), m.SparseFeatures)
	}
	if s.HasSparseIndex() && len(s.Rows) != len(s.Fragments) {
		return fmt.Errorf("%w: %d sparse rows for %d fragments", ErrCorruptSnapshot, len(s.Rows), len(s.Fragments))
	}
	if !s.HasSparseIndex() && len(s.Rows) != 0 {
		return fmt.Errorf("%w: sparse rows without vocabulary", ErrCorruptSnapshot)
	}
	return nil
}
