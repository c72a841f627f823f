package search

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kxddry/ragdag/internal/embedding/codec"
)

func writeChunk(t *testing.T, root, relPath, content string) {
	t.Helper()
	full := filepath.Join(root, filepath.FromSlash(relPath))
	require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
	require.NoError(t, os.WriteFile(full, []byte(content), 0o644))
}

func TestKeywordScoresAndRanks(t *testing.T) {
	root := t.TempDir()
	writeChunk(t, root, "docs/a/01.txt", "the quick brown fox jumps over the lazy dog")
	writeChunk(t, root, "docs/a/02.txt", "completely unrelated content about weather")
	writeChunk(t, root, "docs/a/_scratch.txt", "fox fox fox fox fox fox")

	e := &Engine{StoreRoot: root}
	results, err := e.Search(context.Background(), Keyword, "fox dog", "", 10)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "docs/a/01.txt", results[0].ChunkRelPath)
}

func TestKeywordNoMatchesEmpty(t *testing.T) {
	root := t.TempDir()
	writeChunk(t, root, "docs/a/01.txt", "nothing relevant here")
	e := &Engine{StoreRoot: root}
	results, err := e.Search(context.Background(), Keyword, "zzzzz", "", 10)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestHybridDegradesToKeywordWhenProviderNil(t *testing.T) {
	root := t.TempDir()
	writeChunk(t, root, "docs/a/01.txt", "hello world")
	e := &Engine{StoreRoot: root}
	results, err := e.Search(context.Background(), Hybrid, "hello", "", 10)
	require.NoError(t, err)
	require.Len(t, results, 1)
}

type fakeProvider struct {
	dims int
	fn   func([]string) ([][]float32, error)
}

func (p *fakeProvider) Embed(_ context.Context, texts []string) ([][]float32, error) {
	return p.fn(texts)
}
func (p *fakeProvider) Dimensions() int   { return p.dims }
func (p *fakeProvider) ModelName() string { return "fake" }

func TestHybridFusesScores(t *testing.T) {
	root := t.TempDir()
	writeChunk(t, root, "docs/a/01.txt", "fox fox fox")
	writeChunk(t, root, "docs/a/02.txt", "fox")

	require.NoError(t, codec.Write(filepath.Join(root, "docs"),
		[][]float32{{1, 0}, {0, 1}},
		[]string{"docs/a/01.txt", "docs/a/02.txt"},
		2, "fake", false))

	e := &Engine{
		StoreRoot: root,
		Provider: &fakeProvider{dims: 2, fn: func(texts []string) ([][]float32, error) {
			return [][]float32{{1, 0}}, nil
		}},
		KeywordWeight: 0.3,
		VectorWeight:  0.7,
	}
	results, err := e.Search(context.Background(), Hybrid, "fox", "docs", 10)
	require.NoError(t, err)
	require.NotEmpty(t, results)
	assert.Equal(t, "docs/a/01.txt", results[0].ChunkRelPath)
}

func TestHybridFallsBackOnEmbedError(t *testing.T) {
	root := t.TempDir()
	writeChunk(t, root, "docs/a/01.txt", "hello world")

	e := &Engine{
		StoreRoot: root,
		Provider: &fakeProvider{dims: 2, fn: func(texts []string) ([][]float32, error) {
			return nil, assertErr{}
		}},
	}
	results, err := e.Search(context.Background(), Hybrid, "hello", "", 10)
	require.NoError(t, err)
	require.Len(t, results, 1)
}

type assertErr struct{}

func (assertErr) Error() string { return "boom" }

func TestHybridFallsBackOnKeywordWhenEmbeddingsMissing(t *testing.T) {
	root := t.TempDir()
	writeChunk(t, root, "docs/a/01.txt", "fox fox fox")

	e := &Engine{
		StoreRoot: root,
		Provider: &fakeProvider{dims: 2, fn: func(texts []string) ([][]float32, error) {
			return [][]float32{{1, 0}}, nil
		}},
	}
	results, err := e.Search(context.Background(), Hybrid, "fox", "docs", 10)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "docs/a/01.txt", results[0].ChunkRelPath)
}
