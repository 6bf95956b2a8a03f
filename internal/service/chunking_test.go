package service

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gradnav/gradnav/internal/domain"
)

// distinctSentences builds text of unique numbered sentences so chunk
// positions can be located unambiguously.
func distinctSentences(n int) string {
	var b strings.Builder
	for i := 0; i < n; i++ {
		fmt.Fprintf(&b, "Sentence %04d covers a distinct admissions detail for later lookup. ", i)
	}
	return strings.TrimSpace(b.String())
}

func TestChunker_Split_EmptyInput(t *testing.T) {
	c := NewChunker(nil)

	assert.Empty(t, c.Split("", domain.PageTypeGeneral))
	assert.Empty(t, c.Split("   \n\t  ", domain.PageTypeGeneral))
}

func TestChunker_Split_ShortInputSingleChunk(t *testing.T) {
	c := NewChunker(nil)
	text := "Applications open in September and close in mid December."

	chunks := c.Split(text, domain.PageTypeGeneral)

	require.Len(t, chunks, 1)
	assert.Equal(t, text, chunks[0])
}

func TestChunker_Split_Deterministic(t *testing.T) {
	c := NewChunker(nil)
	text := distinctSentences(80)

	first := c.Split(text, domain.PageTypeAdmissions)
	second := c.Split(text, domain.PageTypeAdmissions)

	assert.Equal(t, first, second)
}

func TestChunker_Split_AdmissionsPageTwoChunks(t *testing.T) {
	c := NewChunker(map[domain.PageType]SplitParams{
		domain.PageTypeAdmissions: {TargetSize: 1600, OverlapFraction: 0.2},
	})
	text := distinctSentences(44)
	require.Greater(t, len([]rune(text)), 2900)
	require.Less(t, len([]rune(text)), 3200)

	chunks := c.Split(text, domain.PageTypeAdmissions)

	require.Len(t, chunks, 2)
	overlap := SplitParams{TargetSize: 1600, OverlapFraction: 0.2}.OverlapChars()
	for _, chunk := range chunks {
		assert.LessOrEqual(t, len([]rune(chunk)), 1600+overlap)
		assert.GreaterOrEqual(t, len([]rune(chunk)), minChunkChars)
	}
}

func TestChunker_Split_CoversWholeText(t *testing.T) {
	c := NewChunker(nil)
	text := distinctSentences(120)

	chunks := c.Split(text, domain.PageTypeGeneral)
	require.Greater(t, len(chunks), 2)

	prevEnd := 0
	for i, chunk := range chunks {
		start := strings.Index(text, chunk)
		require.GreaterOrEqual(t, start, 0, "chunk %d is not a substring of the input", i)
		// Consecutive chunks overlap or touch, never leave a gap. The slack
		// covers whitespace trimmed at the boundary.
		assert.LessOrEqual(t, start, prevEnd+1, "gap before chunk %d", i)
		prevEnd = start + len(chunk)
	}
	assert.GreaterOrEqual(t, prevEnd, len(text)-1)
}

func TestChunker_Split_FAQOneChunkPerQuestion(t *testing.T) {
	c := NewChunker(nil)
	text := strings.Join([]string{
		"What is the application deadline for the masters program? Applications are due on December 15 for fall admission.",
		"How many recommendation letters are needed for a complete file? Three letters from faculty or supervisors are expected.",
		"When will admission decisions be released to applicants each cycle? Decisions typically go out by the middle of March.",
	}, "\n")

	chunks := c.Split(text, domain.PageTypeFAQ)

	require.Len(t, chunks, 3)
	assert.True(t, strings.HasPrefix(chunks[0], "What is the application deadline"))
	assert.True(t, strings.HasPrefix(chunks[1], "How many recommendation letters"))
	assert.True(t, strings.HasPrefix(chunks[2], "When will admission decisions"))
}

func TestChunker_Split_FAQMergesShortFragments(t *testing.T) {
	c := NewChunker(nil)
	text := "What about fees? Low.\n" +
		"How many recommendation letters are needed for a complete application file? Three letters from faculty members or direct supervisors are expected by the committee."

	chunks := c.Split(text, domain.PageTypeFAQ)

	// The first fragment is under the merge floor and folds into its
	// neighbor instead of surfacing as a fragment of its own.
	require.Len(t, chunks, 1)
	assert.Contains(t, chunks[0], "What about fees?")
	assert.Contains(t, chunks[0], "Three letters")
}

func TestChunker_Split_FAQOversizeFragmentRewindowed(t *testing.T) {
	c := NewChunker(map[domain.PageType]SplitParams{
		domain.PageTypeFAQ:     {TargetSize: 300, OverlapFraction: 0.1},
		domain.PageTypeGeneral: {TargetSize: 700, OverlapFraction: 0.1},
	})
	text := "What documents does the graduate application require from international students? " + distinctSentences(12)

	chunks := c.Split(text, domain.PageTypeFAQ)

	require.Greater(t, len(chunks), 1)
	for _, chunk := range chunks {
		assert.LessOrEqual(t, len([]rune(chunk)), 300+overlapFloor)
	}
}

func TestChunker_Split_DropsNoiseChunks(t *testing.T) {
	c := NewChunker(nil)

	chunks := c.Split("Apply now.", domain.PageTypeGeneral)

	assert.Empty(t, chunks)
}
