package fragment

import (
	"fmt"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/poiesic/retrievit/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func numberedWords(count int) string {
	words := make([]string, count)
	for i := range words {
		words[i] = fmt.Sprintf("w%d", i)
	}
	return strings.Join(words, " ")
}

func TestNew(t *testing.T) {
	t.Run("valid configuration", func(t *testing.T) {
		f, err := New(DefaultChunkSize, DefaultChunkOverlap)
		require.NoError(t, err)
		assert.Equal(t, 512, f.Size())
		assert.Equal(t, 50, f.Overlap())
	})

	t.Run("overlap not smaller than size", func(t *testing.T) {
		_, err := New(100, 100)
		assert.ErrorIs(t, err, core.ErrInvalidChunkParams)
	})

	t.Run("zero size", func(t *testing.T) {
		_, err := New(0, 0)
		assert.ErrorIs(t, err, core.ErrInvalidChunkParams)
	})
}

func TestSplit_ShortText(t *testing.T) {
	t.Run("returns a single trimmed fragment", func(t *testing.T) {
		fragments, err := Split("  Machine learning is a subset of AI.\n", 200, 20)
		require.NoError(t, err)
		assert.Equal(t, []string{"Machine learning is a subset of AI."}, fragments)
	})

	t.Run("text exactly chunk size", func(t *testing.T) {
		text := strings.Repeat("x", 200)
		fragments, err := Split(text, 200, 20)
		require.NoError(t, err)
		assert.Equal(t, []string{text}, fragments)
	})

	t.Run("length counts characters not bytes", func(t *testing.T) {
		text := strings.Repeat("é", 150)
		require.Greater(t, len(text), 200)
		fragments, err := Split(text, 200, 20)
		require.NoError(t, err)
		assert.Equal(t, []string{text}, fragments)
	})

	t.Run("blank text yields nothing", func(t *testing.T) {
		fragments, err := Split("   \n ", 200, 20)
		require.NoError(t, err)
		assert.Empty(t, fragments)
	})
}

func TestSplit_InvalidParams(t *testing.T) {
	_, err := Split("anything", 10, 10)
	assert.ErrorIs(t, err, core.ErrInvalidChunkParams)

	_, err = Split("anything", 10, -1)
	assert.ErrorIs(t, err, core.ErrInvalidChunkParams)
}

func TestSplit_PrefersSentenceBoundary(t *testing.T) {
	text := strings.Repeat("a", 80) + ". " + strings.Repeat("b", 100)

	fragments, err := Split(text, 100, 10)
	require.NoError(t, err)
	require.Len(t, fragments, 3)

	assert.Equal(t, strings.Repeat("a", 80)+".", fragments[0])
	assert.Equal(t, strings.Repeat("a", 8)+". "+strings.Repeat("b", 90), fragments[1])
	assert.Equal(t, strings.Repeat("b", 20), fragments[2])
}

func TestSplit_IgnoresEarlyBoundary(t *testing.T) {
	// The only sentence end sits at 10% of the window, so the raw window end is kept.
	text := strings.Repeat("a", 10) + ". " + strings.Repeat("b", 150)

	fragments, err := Split(text, 100, 0)
	require.NoError(t, err)
	require.NotEmpty(t, fragments)
	assert.Equal(t, 100, utf8.RuneCountInString(fragments[0]))
}

func TestSplit_FallsBackToWordBoundary(t *testing.T) {
	text := numberedWords(200)

	fragments, err := Split(text, 100, 10)
	require.NoError(t, err)
	require.Greater(t, len(fragments), 1)

	for i, fragment := range fragments[:len(fragments)-1] {
		assert.False(t, strings.HasSuffix(fragment, " "), "fragment %d should be trimmed", i)
		// Cut happened right after a space, so the fragment ends on a whole word.
		last := fragment[strings.LastIndex(fragment, " ")+1:]
		assert.Contains(t, strings.Fields(text), last, "fragment %d ends mid-word", i)
	}
}

func TestSplit_Scenario(t *testing.T) {
	text := numberedWords(1000)[:1000]
	require.Len(t, text, 1000)

	fragments, err := Split(text, 200, 20)
	require.NoError(t, err)
	assert.Greater(t, len(fragments), 1)

	for _, fragment := range fragments {
		assert.LessOrEqual(t, utf8.RuneCountInString(fragment), 200)
		assert.NotEmpty(t, fragment)
	}
}

func TestSplit_CoversText(t *testing.T) {
	text := numberedWords(600)
	fragments, err := Split(text, 120, 15)
	require.NoError(t, err)
	require.NotEmpty(t, fragments)

	prevStart, prevEnd := -1, 0
	for i, fragment := range fragments {
		offset := strings.Index(text[prevStart+1:], fragment)
		require.GreaterOrEqual(t, offset, 0, "fragment %d is not a substring of the input", i)
		start := prevStart + 1 + offset

		if start > prevEnd {
			assert.Empty(t, strings.TrimSpace(text[prevEnd:start]), "gap before fragment %d", i)
		}
		prevStart = start
		prevEnd = max(prevEnd, start+len(fragment))
	}
	assert.Empty(t, strings.TrimSpace(text[prevEnd:]), "tail of the text is not covered")
}

func TestSplit_TerminatesWithLargeOverlap(t *testing.T) {
	text := numberedWords(300)

	fragments, err := Split(text, 10, 9)
	require.NoError(t, err)
	require.NotEmpty(t, fragments)
	for _, fragment := range fragments {
		assert.LessOrEqual(t, utf8.RuneCountInString(fragment), 10)
	}
}

func TestFragmenter_Split(t *testing.T) {
	f, err := New(100, 10)
	require.NoError(t, err)

	text := strings.Repeat("a", 80) + ". " + strings.Repeat("b", 100)
	expected, err := Split(text, 100, 10)
	require.NoError(t, err)

	assert.Equal(t, expected, f.Split(text))
}

func TestSplit_Deterministic(t *testing.T) {
	text := numberedWords(500)
	first, err := Split(text, 150, 30)
	require.NoError(t, err)
	second, err := Split(text, 150, 30)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}
