// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package core

import "errors"

// Domain validation errors
var (
	// ErrInvalidDocument indicates a Document failed validation.
	ErrInvalidDocument = errors.New("invalid document")

	// ErrEmptyContent indicates a document has no full text, abstract or title.
	ErrEmptyContent = errors.New("document has no text content")

	// ErrInvalidChunkParams indicates an unusable chunk size/overlap combination.
	ErrInvalidChunkParams = errors.New("invalid chunk parameters")

	// ErrInvalidSearchParams indicates a malformed top-k or minimum score.
	ErrInvalidSearchParams = errors.New("invalid search parameters")

	// ErrEmptyQuery indicates the query text is blank.
	ErrEmptyQuery = errors.New("query cannot be empty")

	// ErrInvalidConfig indicates a configuration value is out of range.
	ErrInvalidConfig = errors.New("invalid configuration")
)

// Encoder related errors
var (
	// ErrEncodingFailed indicates the dense encoder could not embed a text.
	ErrEncodingFailed = errors.New("encoding failed")

	// ErrDimensionMismatch indicates an embedding does not match the store dimension.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")

	// ErrEncoderMismatch indicates persisted state was produced by a different encoder model.
	ErrEncoderMismatch = errors.New("encoder model mismatch")
)
