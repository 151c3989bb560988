package knowledge

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChunkEmpty(t *testing.T) {
	assert.Empty(t, Chunk("", 1500, 250))
	assert.Empty(t, Chunk("   \n\t  ", 1500, 250))
}

func TestChunkShortContent(t *testing.T) {
	chunks := Chunk("one small paragraph", 1500, 250)
	require.Len(t, chunks, 1)
	assert.Equal(t, "one small paragraph", chunks[0])
}

func TestChunkCoversAllContent(t *testing.T) {
	var sb strings.Builder
	for i := 0; i < 200; i++ {
		sb.WriteString("The planets move through the zodiac at differing speeds. ")
	}
	content := sb.String()

	chunks := Chunk(content, 500, 100)
	require.Greater(t, len(chunks), 1)

	// First chunk starts the content, last chunk ends it.
	assert.True(t, strings.HasPrefix(content, chunks[0]))
	assert.True(t, strings.HasSuffix(strings.TrimSpace(content), chunks[len(chunks)-1]))

	for _, c := range chunks {
		assert.LessOrEqual(t, len(c), 500)
		assert.NotEmpty(t, strings.TrimSpace(c))
	}
}

func TestChunkPrefersParagraphBreaks(t *testing.T) {
	para := strings.Repeat("a", 180)
	content := para + "\n\n" + para + "\n\n" + para

	chunks := Chunk(content, 200, 20)
	require.GreaterOrEqual(t, len(chunks), 2)
	// The break lands on the blank line rather than mid-paragraph.
	assert.Equal(t, para, strings.TrimSpace(chunks[0]))
}

func TestChunkPrefersSentenceBreaks(t *testing.T) {
	content := strings.Repeat("A full sentence ends here. ", 40)
	chunks := Chunk(content, 300, 50)
	require.Greater(t, len(chunks), 1)
	for _, c := range chunks[:len(chunks)-1] {
		trimmed := strings.TrimRight(c, " ")
		assert.True(t, strings.HasSuffix(trimmed, "."),
			"chunk should end on a sentence boundary: %q", trimmed)
	}
}

func TestChunkOverlap(t *testing.T) {
	content := strings.Repeat("x", 1000)
	chunks := Chunk(content, 400, 100)
	require.Greater(t, len(chunks), 1)

	// With no natural breaks each chunk steps forward size-overlap runes.
	for i := 1; i < len(chunks); i++ {
		assert.True(t, strings.HasPrefix(chunks[i], chunks[i-1][300:]),
			"chunk %d should start with the previous chunk's tail", i)
	}
}

func TestChunkAlwaysAdvances(t *testing.T) {
	// Overlap equal to chunk size must not loop forever.
	content := strings.Repeat("y", 100)
	chunks := Chunk(content, 10, 10)
	assert.NotEmpty(t, chunks)
	assert.Less(t, len(chunks), 200)
}
