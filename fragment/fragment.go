package fragment

import (
	"strings"

	"github.com/poiesic/retrievit/core"
)

const (
	// DefaultChunkSize is the default fragment length in characters.
	DefaultChunkSize = 512
	// DefaultChunkOverlap is the default number of characters shared by consecutive fragments.
	DefaultChunkOverlap = 50

	// earliestBreak is the fraction of a window a boundary must lie beyond.
	earliestBreak = 0.7
)

// boundaries are tried in priority order: sentence end, paragraph, line, word.
var boundaries = [][]rune{
	[]rune(". "),
	[]rune("\n\n"),
	[]rune("\n"),
	[]rune(" "),
}

// Fragmenter splits text with a fixed, validated chunk configuration.
type Fragmenter struct {
	size    int
	overlap int
}

// New creates a Fragmenter. It fails with core.ErrInvalidChunkParams when
// overlap is not smaller than size.
func New(size, overlap int) (*Fragmenter, error) {
	if err := core.ValidateChunkParams(size, overlap); err != nil {
		return nil, err
	}
	return &Fragmenter{size: size, overlap: overlap}, nil
}

// Size returns the configured chunk size.
func (f *Fragmenter) Size() int { return f.size }

// Overlap returns the configured chunk overlap.
func (f *Fragmenter) Overlap() int { return f.overlap }

// Split fragments text using the Fragmenter's configuration.
func (f *Fragmenter) Split(text string) []string {
	return split([]rune(text), f.size, f.overlap)
}

// Split fragments text into overlapping chunks of at most size characters,
// preferring to cut after a sentence, paragraph, line or word boundary.
func Split(text string, size, overlap int) ([]string, error) {
	if err := core.ValidateChunkParams(size, overlap); err != nil {
		return nil, err
	}
	return split([]rune(text), size, overlap), nil
}

func split(text []rune, size, overlap int) []string {
	n := len(text)
	if n <= size {
		if trimmed := strings.TrimSpace(string(text)); trimmed != "" {
			return []string{trimmed}
		}
		return nil
	}

	var fragments []string
	start := 0
	for start < n {
		end := start + size

		if end < n {
			end = breakPoint(text, start, end, size)
		}

		if piece := strings.TrimSpace(string(text[start:min(end, n)])); piece != "" {
			fragments = append(fragments, piece)
		}

		next := end - overlap
		if next <= start {
			// Only reachable when a late boundary plus a large overlap would
			// move the window backwards.
			next = end
		}
		start = next
	}

	return fragments
}

// breakPoint returns the end of the window [start, end), moved back to just
// after the best boundary marker when one lies far enough into the window.
func breakPoint(text []rune, start, end, size int) int {
	threshold := float64(start) + float64(size)*earliestBreak
	for _, marker := range boundaries {
		pos := lastIndex(text, marker, start, end)
		if pos >= 0 && float64(pos) > threshold {
			return pos + len(marker)
		}
	}
	return end
}

// lastIndex finds the last occurrence of marker fully contained in text[start:end].
func lastIndex(text, marker []rune, start, end int) int {
	for i := end - len(marker); i >= start; i-- {
		match := true
		for j, r := range marker {
			if text[i+j] != r {
				match = false
				break
			}
		}
		if match {
			return i
		}
	}
	return -1
}
