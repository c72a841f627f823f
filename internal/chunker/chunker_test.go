package chunker

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAutoSelect(t *testing.T) {
	assert.Equal(t, Heading, AutoSelect("markdown", "fixed"))
	assert.Equal(t, Function, AutoSelect("code", "fixed"))
	assert.Equal(t, "fixed", AutoSelect("text", "fixed"))
	assert.Equal(t, "paragraph", AutoSelect("csv", "paragraph"))
}

func TestSplitHeading(t *testing.T) {
	words := make([]string, 60)
	for i := range words {
		words[i] = "word"
	}
	body := ""
	for i := 0; i < 60; i++ {
		body += "word "
	}
	text := "# One\n" + body + "\n# Two\n" + body + "\n# Three\n" + body
	chunks := Split(text, Heading, 1000, 0, nil)
	assert.Len(t, chunks, 3)
}

func TestSplitFixedRespectsOverlap(t *testing.T) {
	text := "abcdefghij"
	chunks := Split(text, Fixed, 4, 2, nil)
	require.NotEmpty(t, chunks)
	assert.Equal(t, "abcd", chunks[0])
	// next chunk starts 2 chars back from end of previous
	assert.Equal(t, "cdef", chunks[1])
}

func TestSplitFixedNoOverlap(t *testing.T) {
	chunks := Split("abcdefgh", Fixed, 4, 0, nil)
	assert.Equal(t, []string{"abcd", "efgh"}, chunks)
}

func TestSplitParagraph(t *testing.T) {
	text := "para one here\n\npara two here\n\npara three here"
	chunks := Split(text, Paragraph, 20, 0, nil)
	assert.True(t, len(chunks) >= 2)
}

func TestSplitFunction(t *testing.T) {
	text := "func A() {\n  x := 1\n}\n\nfunc B() {\n  y := 2\n}\n"
	chunks := Split(text, Function, 1000, 0, nil)
	assert.Len(t, chunks, 2)
}

func TestSplitUnknownStrategyFallsBackToFixed(t *testing.T) {
	chunks := Split("abcdefgh", "bogus", 4, 0, nil)
	assert.Equal(t, []string{"abcd", "efgh"}, chunks)
}

func TestSplitEmptyAfterTrimNotWritten(t *testing.T) {
	chunks := Split("   \n\n   ", Fixed, 4, 0, nil)
	assert.Empty(t, chunks)
}

func TestWriteChunksNaming(t *testing.T) {
	dir := t.TempDir()
	n, err := WriteChunks("abcdefgh", dir, Fixed, 4, 0, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	names := []string{}
	for _, e := range entries {
		names = append(names, e.Name())
	}
	assert.ElementsMatch(t, []string{"01.txt", "02.txt"}, names)

	data, err := os.ReadFile(filepath.Join(dir, "01.txt"))
	require.NoError(t, err)
	assert.Equal(t, "abcd", string(data))
}

func TestPadWidthWidensBeyond99(t *testing.T) {
	assert.Equal(t, 2, padWidth(50))
	assert.Equal(t, 4, padWidth(150))
}
