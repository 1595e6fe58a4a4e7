package core

import (
	"errors"
	"testing"
)

func TestValidateDocument(t *testing.T) {
	tests := []struct {
		name    string
		doc     *Document
		wantErr error
	}{
		{
			name:    "valid document",
			doc:     &Document{Title: "Paper", FullText: "Some body text."},
			wantErr: nil,
		},
		{
			name:    "title only is enough",
			doc:     &Document{Title: "Just a title"},
			wantErr: nil,
		},
		{
			name:    "nil document",
			doc:     nil,
			wantErr: ErrInvalidDocument,
		},
		{
			name:    "blank document",
			doc:     &Document{Title: "  ", FullText: "\n"},
			wantErr: ErrEmptyContent,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateDocument(tt.doc)
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("ValidateDocument() unexpected error = %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("ValidateDocument() error = %v, want %v", err, tt.wantErr)
			}
			if !errors.Is(err, ErrInvalidDocument) {
				t.Errorf("ValidateDocument() error should wrap ErrInvalidDocument, got %v", err)
			}
		})
	}
}

func TestValidateChunkParams(t *testing.T) {
	tests := []struct {
		name    string
		size    int
		overlap int
		wantErr bool
	}{
		{"defaults", 512, 50, false},
		{"no overlap", 200, 0, false},
		{"overlap just below size", 10, 9, false},
		{"zero size", 0, 0, true},
		{"negative overlap", 100, -1, true},
		{"overlap equals size", 100, 100, true},
		{"overlap exceeds size", 100, 150, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateChunkParams(tt.size, tt.overlap)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidChunkParams) {
					t.Errorf("ValidateChunkParams(%d, %d) error = %v, want ErrInvalidChunkParams", tt.size, tt.overlap, err)
				}
			} else if err != nil {
				t.Errorf("ValidateChunkParams(%d, %d) unexpected error = %v", tt.size, tt.overlap, err)
			}
		})
	}
}

func TestValidateSearchParams(t *testing.T) {
	tests := []struct {
		name     string
		topK     int
		minScore float64
		wantErr  bool
	}{
		{"defaults", 5, 0.1, false},
		{"zero threshold", 1, 0, false},
		{"max threshold", 1, 1, false},
		{"zero top k", 0, 0.1, true},
		{"negative top k", -3, 0.1, true},
		{"negative min score", 5, -0.1, true},
		{"min score above one", 5, 1.5, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateSearchParams(tt.topK, tt.minScore)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidSearchParams) {
					t.Errorf("ValidateSearchParams() error = %v, want ErrInvalidSearchParams", err)
				}
			} else if err != nil {
				t.Errorf("ValidateSearchParams() unexpected error = %v", err)
			}
		})
	}
}
