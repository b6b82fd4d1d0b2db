package chunker

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChunkEmptyInput(t *testing.T) {
	c := New(Config{Size: 100, Overlap: 20})

	_, err := c.Chunk("")
	assert.ErrorIs(t, err, ErrEmptyInput)

	_, err = c.Chunk("   \n\t  ")
	assert.ErrorIs(t, err, ErrEmptyInput)
}

func TestChunkShortTextSinglePiece(t *testing.T) {
	c := New(Config{Size: 100, Overlap: 20})

	pieces, err := c.Chunk("short text")
	require.NoError(t, err)
	require.Len(t, pieces, 1)
	assert.Equal(t, 0, pieces[0].Index)
	assert.Equal(t, "short text", pieces[0].Text)
	assert.Equal(t, 0, pieces[0].Start)
	assert.Equal(t, 10, pieces[0].End)
}

func TestChunkExactWindowSinglePiece(t *testing.T) {
	c := New(Config{Size: 10, Overlap: 2})

	pieces, err := c.Chunk("abcdefghij")
	require.NoError(t, err)
	assert.Len(t, pieces, 1)
}

func TestChunkOffsetsStrictlyIncrease(t *testing.T) {
	c := New(Config{Size: 50, Overlap: 10})
	text := strings.Repeat("The quick brown fox jumps over the lazy dog. ", 40)

	pieces, err := c.Chunk(text)
	require.NoError(t, err)
	require.Greater(t, len(pieces), 1)

	runes := []rune(text)
	for i, p := range pieces {
		assert.Equal(t, i, p.Index)
		assert.GreaterOrEqual(t, p.Start, 0)
		assert.LessOrEqual(t, p.End, len(runes))
		assert.Less(t, p.Start, p.End)
		assert.Equal(t, string(runes[p.Start:p.End]), p.Text)
		if i > 0 {
			assert.Greater(t, p.Start, pieces[i-1].Start, "starts must strictly increase")
			assert.Greater(t, p.End, pieces[i-1].End, "ends must strictly increase")
		}
	}
	assert.Equal(t, len(runes), pieces[len(pieces)-1].End)
}

func TestChunkOverlapBetweenPieces(t *testing.T) {
	c := NewWithPolicy(Config{Size: 100, Overlap: 25}, hardCutPolicy{})
	text := strings.Repeat("a", 300)

	pieces, err := c.Chunk(text)
	require.NoError(t, err)
	require.Greater(t, len(pieces), 1)

	for i := 1; i < len(pieces); i++ {
		assert.Equal(t, pieces[i-1].End-25, pieces[i].Start)
	}
}

// hardCutPolicy always requests a cut at the window end.
type hardCutPolicy struct{}

func (hardCutPolicy) Cut(window []rune) int { return -1 }

func TestChunkWindowFormula(t *testing.T) {
	c := NewWithPolicy(Config{Size: 1000, Overlap: 200}, hardCutPolicy{})
	text := strings.Repeat("x", 5000)

	pieces, err := c.Chunk(text)
	require.NoError(t, err)

	// ceil((5000-1000)/800)+1 = 6 windows
	assert.Len(t, pieces, 6)
	assert.Equal(t, 6, EstimateCount(5000, 1000, 200))
}

func TestEstimateCount(t *testing.T) {
	assert.Equal(t, 0, EstimateCount(0, 100, 20))
	assert.Equal(t, 1, EstimateCount(50, 100, 20))
	assert.Equal(t, 1, EstimateCount(100, 100, 20))
	assert.Equal(t, 2, EstimateCount(101, 100, 20))
}

func TestSentenceBoundaryPolicyCutsAtTerminator(t *testing.T) {
	p := SentenceBoundaryPolicy{MinFraction: 0.5}
	window := []rune(strings.Repeat("a", 40) + ". " + strings.Repeat("b", 8))

	cut := p.Cut(window)
	require.Equal(t, 41, cut)
	assert.Equal(t, '.', window[cut-1])
}

func TestSentenceBoundaryPolicyRejectsEarlyCut(t *testing.T) {
	p := SentenceBoundaryPolicy{MinFraction: 0.5}

	// The only terminator sits in the first half of the window and no
	// whitespace follows it, so no acceptable cut exists.
	window := []rune("ab." + strings.Repeat("c", 60))
	assert.Equal(t, -1, p.Cut(window))
}

func TestSentenceBoundaryPolicyFallsBackToWhitespace(t *testing.T) {
	p := SentenceBoundaryPolicy{MinFraction: 0.5}
	window := []rune(strings.Repeat("a", 40) + " " + strings.Repeat("b", 9))

	cut := p.Cut(window)
	require.Greater(t, cut, 0)
	assert.Equal(t, 41, cut)
}

func TestChunkTerminatesWithPathologicalBoundary(t *testing.T) {
	// Overlap close to the window size plus early boundary cuts used to risk
	// a non-advancing window. The chunker must still terminate and cover the
	// whole text.
	c := New(Config{Size: 40, Overlap: 30})
	text := strings.Repeat("word. ", 100)

	pieces, err := c.Chunk(text)
	require.NoError(t, err)
	require.NotEmpty(t, pieces)

	runes := []rune(text)
	assert.Equal(t, len(runes), pieces[len(pieces)-1].End)
	for i := 1; i < len(pieces); i++ {
		assert.Greater(t, pieces[i].End, pieces[i-1].End)
	}
}

func TestChunkUnicodeOffsetsAreRunes(t *testing.T) {
	c := NewWithPolicy(Config{Size: 4, Overlap: 0}, hardCutPolicy{})

	pieces, err := c.Chunk("日本語のテキスト")
	require.NoError(t, err)
	require.Len(t, pieces, 2)
	assert.Equal(t, "日本語の", pieces[0].Text)
	assert.Equal(t, "テキスト", pieces[1].Text)
	assert.Equal(t, 4, pieces[0].End)
	assert.Equal(t, 8, pieces[1].End)
}
