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

import (
	"fmt"
	"strings"
)

// ValidateDocument validates a Document according to domain rules.
//
// Validation rules:
//   - document must not be nil
//   - at least one of FullText, Abstract or Title must contain text
//
// NOT validated (provenance only):
//   - Identifier, Authors, PublishedDate, Categories, Metadata
func ValidateDocument(doc *Document) error {
	if doc == nil {
		return fmt.Errorf("%w: document is nil", ErrInvalidDocument)
	}

	if strings.TrimSpace(doc.Text()) == "" {
		return fmt.Errorf("%w: %w", ErrInvalidDocument, ErrEmptyContent)
	}

	return nil
}

// ValidateChunkParams checks that a chunk size and overlap guarantee forward
// progress when fragmenting.
func ValidateChunkParams(size, overlap int) error {
	if size <= 0 {
		return fmt.Errorf("%w: chunk size must be positive, got %d", ErrInvalidChunkParams, size)
	}
	if overlap < 0 {
		return fmt.Errorf("%w: chunk overlap cannot be negative, got %d", ErrInvalidChunkParams, overlap)
	}
	if overlap >= size {
		return fmt.Errorf("%w: chunk overlap %d must be smaller than chunk size %d", ErrInvalidChunkParams, overlap, size)
	}
	return nil
}

// ValidateSearchParams checks top-k and minimum score bounds.
func ValidateSearchParams(topK int, minScore float64) error {
	if topK <= 0 {
		return fmt.Errorf("%w: top_k must be positive, got %d", ErrInvalidSearchParams, topK)
	}
	if minScore < 0 || minScore > 1 {
		return fmt.Errorf("%w: min_score must be within [0, 1], got %g", ErrInvalidSearchParams, minScore)
	}
	return nil
}
