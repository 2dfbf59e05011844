package usecases

import (
	"fmt"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplit_BlankTextIsInvalid(t *testing.T) {
	for _, text := range []string{"", "   ", "\n\t\n"} {
		_, err := Split(text, 100, 10)
		assert.ErrorIs(t, err, ErrInvalidInput, "%q", text)
	}
}

func TestSplit_ShortTextIsSingleTrimmedChunk(t *testing.T) {
	chunks, err := Split("  hello world  ", 100, 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"hello world"}, chunks)
}

func TestSplit_WordsWithOverlap(t *testing.T) {
	chunks, err := Split("aaaa bbbb cccc dddd", 10, 5)
	require.NoError(t, err)
	assert.Equal(t, []string{"aaaa bbbb", "bbbb cccc", "cccc dddd"}, chunks)
}

func TestSplit_PrefersParagraphBreaks(t *testing.T) {
	chunks, err := Split("para one.\n\npara two.", 12, 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"para one.", "para two."}, chunks)
}

func TestSplit_FallsBackToCharacters(t *testing.T) {
	chunks, err := Split("abcdefghij", 4, 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"abcd", "efgh", "ij"}, chunks)
}

func TestSplit_CountsRunesNotBytes(t *testing.T) {
	chunks, err := Split("Mức phạt vi phạm", 9, 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"Mức phạt", "vi phạm"}, chunks)
}

func TestSplit_BoundsOrderAndOverlap(t *testing.T) {
	words := make([]string, 200)
	for i := range words {
		words[i] = fmt.Sprintf("word%d", i)
	}
	text := strings.Join(words, " ")

	chunks, err := Split(text, 50, 10)
	require.NoError(t, err)
	require.Greater(t, len(chunks), 1)

	pos := 0
	for i, c := range chunks {
		assert.LessOrEqual(t, utf8.RuneCountInString(c), 50)
		idx := strings.Index(text[pos:], c)
		require.GreaterOrEqual(t, idx, 0, "chunk %d out of order", i)
		pos += idx

		if i > 0 {
			prev := strings.Fields(chunks[i-1])
			assert.Equal(t, prev[len(prev)-1], strings.Fields(c)[0], "chunk %d should start with the previous chunk's last word", i)
		}
	}
	assert.True(t, strings.HasSuffix(chunks[len(chunks)-1], "word199"))
	assert.True(t, strings.HasPrefix(chunks[0], "word0 "))
}

func TestNewSplitter_Defaults(t *testing.T) {
	s := NewSplitter(0, -1)
	assert.Equal(t, 1000, s.chunkSize)
	assert.Equal(t, 200, s.overlap)

	s = NewSplitter(10, 10)
	assert.Equal(t, 2, s.overlap)
}
