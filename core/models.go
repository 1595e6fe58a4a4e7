package core

import (
	"encoding/binary"
	"strconv"
	"strings"

	"github.com/go-crypt/x/blake2b"
	"github.com/google/uuid"
)

// ID is a unique identifier for domain entities.
// It is generated using content-based hashing.
type ID uint64

// IDFromContent generates a deterministic ID from text content using BLAKE2b hashing.
// This ensures that identical content produces identical IDs.
func IDFromContent(text string) ID {
	h, _ := blake2b.New(8, nil) // 8 bytes = 64 bits
	h.Write([]byte(text))
	sum := h.Sum(nil)
	return ID(binary.LittleEndian.Uint64(sum))
}

// PointID derives the stable external key of a fragment from its document
// identifier and position, as a name-based (SHA-1) UUID.
func PointID(identifier string, fragmentIndex int) string {
	if identifier == "" {
		identifier = "unknown"
	}
	name := identifier + "_" + strconv.Itoa(fragmentIndex)
	return uuid.NewSHA1(uuid.NameSpaceDNS, []byte(name)).String()
}

// Document is a source record handed to the engine for ingestion.
// Only the text fields are interpreted; everything else is provenance that
// is copied onto search results.
type Document struct {
	Id            ID                `json:"-"`
	Identifier    string            `json:"identifier"`
	Title         string            `json:"title"`
	Authors       []string          `json:"authors,omitempty"`
	PublishedDate string            `json:"published_date,omitempty"`
	Categories    []string          `json:"categories,omitempty"`
	Abstract      string            `json:"abstract,omitempty"`
	FullText      string            `json:"full_text,omitempty"`
	Metadata      map[string]string `json:"metadata,omitempty"`
}

// Text returns the text to fragment: full text, else abstract, else title.
func (d *Document) Text() string {
	if text := strings.TrimSpace(d.FullText); text != "" {
		return d.FullText
	}
	if text := strings.TrimSpace(d.Abstract); text != "" {
		return d.Abstract
	}
	return d.Title
}

// ContentID computes the content hash used as the document's Id.
func (d *Document) ContentID() ID {
	return IDFromContent(d.Identifier + "\x00" + d.Title + "\x00" + d.Text())
}

// Fragment is a bounded piece of a single document and the unit of retrieval.
type Fragment struct {
	PointID       string `json:"point_id"`    // Stable external key, see PointID
	DocumentIndex int    `json:"doc_index"`   // Position of the parent document in the store
	Index         int    `json:"chunk_index"` // Position within the parent document
	Text          string `json:"text"`
	Length        int    `json:"length"`       // Length of Text in characters
	Total         int    `json:"total_chunks"` // Number of fragments produced for the parent document
}

// SearchType names the scoring path that produced a result.
type SearchType string

const (
	SearchTypeHybrid SearchType = "hybrid"
	SearchTypeDense  SearchType = "dense"
	SearchTypeMerged SearchType = "merged"
)

// ScoredResult is a fragment returned by a search, with provenance copied
// from its document.
type ScoredResult struct {
	Fragment      Fragment   `json:"fragment"`
	Score         float64    `json:"score"` // Always within [0, 1]
	Rank          int        `json:"rank"`  // 1-based position in the result list
	DocumentId    ID         `json:"document_id"`
	Identifier    string     `json:"identifier"`
	Title         string     `json:"title"`
	Authors       []string   `json:"authors,omitempty"`
	PublishedDate string     `json:"published_date,omitempty"`
	Categories    []string   `json:"categories,omitempty"`
	SearchType    SearchType `json:"search_type"`
}

// Statistics summarises the contents and configuration of a store.
type Statistics struct {
	TotalDocuments          int     `json:"total_documents"`
	TotalFragments          int     `json:"total_fragments"`
	EmbeddingModel          string  `json:"embedding_model"`
	EmbeddingDimension      int     `json:"embedding_dimension"`
	SparseFeatures          int     `json:"tfidf_features"`
	ChunkSize               int     `json:"chunk_size"`
	ChunkOverlap            int     `json:"chunk_overlap"`
	AvgFragmentsPerDocument float64 `json:"avg_fragments_per_doc"`
}

// DocumentError records why one document of a batch was skipped.
// Position is -1 for failures that concern the whole batch.
type DocumentError struct {
	Position   int    `json:"position"`
	Identifier string `json:"identifier,omitempty"`
	Message    string `json:"message"`
}

// IngestReport is the per-batch outcome of adding documents.
type IngestReport struct {
	Total            int             `json:"total_documents"`
	Processed        int             `json:"processed"`
	Errors           int             `json:"errors"`
	ErrorDetails     []DocumentError `json:"errors_details,omitempty"`
	FragmentsCreated int             `json:"fragments_created"`
	SparseFeatures   int             `json:"tfidf_features"`
}

// AddError appends an error detail and bumps the error count.
func (r *IngestReport) AddError(position int, identifier string, err error) {
	r.Errors++
	r.ErrorDetails = append(r.ErrorDetails, DocumentError{
		Position:   position,
		Identifier: identifier,
		Message:    err.Error(),
	})
}

// Merge folds another report into r.
func (r *IngestReport) Merge(other *IngestReport) {
	if other == nil {
		return
	}
	r.Total += other.Total
	r.Processed += other.Processed
	r.Errors += other.Errors
	r.ErrorDetails = append(r.ErrorDetails, other.ErrorDetails...)
	r.FragmentsCreated += other.FragmentsCreated
	r.SparseFeatures = other.SparseFeatures
}
