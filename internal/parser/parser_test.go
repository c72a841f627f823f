package parser

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTemp(t *testing.T, name, content string) string {
	t.Helper()
	dir := t.TempDir()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	return p
}

func TestDetect(t *testing.T) {
	assert.Equal(t, TypeMarkdown, Detect("a.md"))
	assert.Equal(t, TypeText, Detect("a.txt"))
	assert.Equal(t, TypeCode, Detect("a.go"))
	assert.Equal(t, TypeCSV, Detect("a.csv"))
	assert.Equal(t, TypeJSON, Detect("a.json"))
	assert.Equal(t, TypePDF, Detect("a.pdf"))
	assert.Equal(t, TypeHTML, Detect("a.html"))
	assert.Equal(t, TypeDocx, Detect("a.docx"))
	assert.Equal(t, TypeUnknown, Detect("a.xyz"))
}

func TestParseMarkdownStripsFrontmatter(t *testing.T) {
	p := writeTemp(t, "a.md", "---\ntitle: x\n---\n# Heading\nbody\n")
	text, err := Parse(p, TypeMarkdown)
	require.NoError(t, err)
	assert.Equal(t, "# Heading\nbody\n", text)
}

func TestParseMarkdownNoFrontmatter(t *testing.T) {
	p := writeTemp(t, "a.md", "# Heading\nbody\n")
	text, err := Parse(p, TypeMarkdown)
	require.NoError(t, err)
	assert.Equal(t, "# Heading\nbody\n", text)
}

func TestParseJSONFlatten(t *testing.T) {
	p := writeTemp(t, "a.json", `{"a": 1, "b": {"c": "x"}}`)
	text, err := Parse(p, TypeJSON)
	require.NoError(t, err)
	assert.Contains(t, text, "a: 1")
	assert.Contains(t, text, "b.c: x")
}

func TestParseJSONInvalidFallsBackToRaw(t *testing.T) {
	p := writeTemp(t, "a.json", `not json`)
	text, err := Parse(p, TypeJSON)
	require.NoError(t, err)
	assert.Equal(t, "not json", text)
}

func TestParseCSV(t *testing.T) {
	p := writeTemp(t, "a.csv", "name,age\nalice,30\nbob,\n")
	text, err := Parse(p, TypeCSV)
	require.NoError(t, err)
	assert.Contains(t, text, "--- Record 1 ---")
	assert.Contains(t, text, "name: alice")
	assert.Contains(t, text, "age: 30")
	assert.Contains(t, text, "--- Record 2 ---")
	assert.NotContains(t, text, "age: \n")
}

func TestParseTextPassthrough(t *testing.T) {
	p := writeTemp(t, "a.txt", "plain text content")
	text, err := Parse(p, TypeText)
	require.NoError(t, err)
	assert.Equal(t, "plain text content", text)
}
