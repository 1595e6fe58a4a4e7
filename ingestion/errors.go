package ingestion

import "errors"

var (
	// ErrStoreRequired is returned when a pipeline is created without a store.
	ErrStoreRequired = errors.New("store required")

	// ErrInvalidInput is returned when a document file cannot be decoded.
	ErrInvalidInput = errors.New("invalid document input")
)
