package ingestion

import (
	"context"
	"io"
	"log/slog"

	"github.com/poiesic/retrievit/core"
)

// DefaultBatchSize is the number of documents added per store call.
const DefaultBatchSize = 64

// DocumentAdder accepts batches of documents. *store.Store satisfies it.
type DocumentAdder interface {
	AddDocuments(ctx context.Context, docs []core.Document) (*core.IngestReport, error)
}

// Pipeline feeds documents to a store in batches.
type Pipeline struct {
	store     DocumentAdder
	batchSize int
	progress  io.Writer
	logger    *slog.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline) error

// WithBatchSize sets the number of documents per batch.
// Default is DefaultBatchSize.
func WithBatchSize(size int) Option {
	return func(p *Pipeline) error {
		if size < 1 {
			size = 1
		}
		p.batchSize = size
		return nil
	}
}

// WithProgress prints progress to w after every batch. Default is no output.
func WithProgress(w io.Writer) Option {
	return func(p *Pipeline) error {
		p.progress = w
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) error {
		if logger == nil {
			logger = slog.Default()
		}
		p.logger = logger
		return nil
	}
}

// NewPipeline creates a pipeline writing into store.
func NewPipeline(store DocumentAdder, opts ...Option) (*Pipeline, error) {
	if store == nil {
		return nil, ErrStoreRequired
	}

	p := &Pipeline{
		store:     store,
		batchSize: DefaultBatchSize,
		logger:    slog.Default().With("component", "ingestion"),
	}

	for _, opt := range opts {
		if err := opt(p); err != nil {
			return nil, err
		}
	}
	return p, nil
}

// Run adds docs batch by batch and returns the combined report. Error
// positions refer to docs, not to the batch they were sent in; batch-level
// errors keep position -1. Run stops at the first error returned by the
// store and returns the report for the batches completed so far.
func (p *Pipeline) Run(ctx context.Context, docs []core.Document) (*core.IngestReport, error) {
	report := &core.IngestReport{}

	var tracker *ProgressTracker
	if p.progress != nil {
		tracker = NewProgressTracker(p.progress, len(docs), p.batchSize)
		tracker.Start()
	}

	for start := 0; start < len(docs); start += p.batchSize {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		end := min(start+p.batchSize, len(docs))
		batch, err := p.store.AddDocuments(ctx, docs[start:end])
		if err != nil {
			p.logger.Error("error adding batch", "start", start, "end", end, "err", err)
			return report, err
		}

		for i := range batch.ErrorDetails {
			if batch.ErrorDetails[i].Position >= 0 {
				batch.ErrorDetails[i].Position += start
			}
		}
		report.Merge(batch)

		p.logger.Debug("batch added", "start", start, "end", end,
			"processed", batch.Processed, "errors", batch.Errors)
		if tracker != nil {
			tracker.Increment(end - start)
		}
	}

	if tracker != nil {
		tracker.Finish()
	}

	p.logger.Info("ingestion complete",
		"documents", report.Total,
		"processed", report.Processed,
		"errors", report.Errors,
		"fragments", report.FragmentsCreated)
	return report, nil
}
