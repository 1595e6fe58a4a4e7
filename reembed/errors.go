package reembed

import "errors"

var (
	// ErrInvalidMaxAttempts is returned when maxAttempts is <= 0
	ErrInvalidMaxAttempts = errors.New("maxAttempts must be greater than 0")

	// ErrEncoderRequired is returned when a reembedder is created without an encoder.
	ErrEncoderRequired = errors.New("encoder required")
)
