package store

import "errors"

var (
	// ErrEncoderRequired is returned when a store is created without an encoder.
	ErrEncoderRequired = errors.New("encoder required")

	// ErrStoreClosed is returned by operations on a closed store.
	ErrStoreClosed = errors.New("store is closed")
)
