package maintenance

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kxddry/ragdag/internal/embedding/codec"
	"github.com/kxddry/ragdag/internal/store"
)

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Init(t.TempDir())
	require.NoError(t, err)
	return s
}

func TestVerifyFindsOrphanEdge(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.AppendEdges([]store.Edge{
		{Source: "docs/a/01.txt", Target: "/abs/src.md", Type: store.EdgeChunkedFrom},
	}))
	rpt, err := Verify(s)
	require.NoError(t, err)
	require.Len(t, rpt.OrphanEdges, 1)
	assert.Equal(t, "docs/a/01.txt", rpt.OrphanEdges[0].Source)
}

func TestVerifyIgnoresNonChunkShapedSource(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.AppendEdges([]store.Edge{
		{Source: "query_2026-01-01T00:00:00Z", Target: "docs/a/01.txt", Type: store.EdgeRetrieved},
	}))
	rpt, err := Verify(s)
	require.NoError(t, err)
	assert.Empty(t, rpt.OrphanEdges)
}

func TestVerifyFindsStaleProcessed(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.RecordProcessed("/does/not/exist.md", "hash1", ""))
	rpt, err := Verify(s)
	require.NoError(t, err)
	require.Len(t, rpt.StaleProcessed, 1)
}

func TestVerifyFindsEmbeddingMismatch(t *testing.T) {
	s := newTestStore(t)
	dir := filepath.Join(s.Root, "docs")
	require.NoError(t, codec.Write(dir, [][]float32{{1, 0}}, []string{"docs/a/01.txt"}, 2, "m", false))
	// corrupt manifest so its row count disagrees with the header.
	require.NoError(t, os.WriteFile(filepath.Join(dir, "manifest.tsv"), []byte("# h\n"), 0o644))

	rpt, err := Verify(s)
	require.NoError(t, err)
	assert.Contains(t, rpt.EmbeddingMismatches, "docs")
}

func TestRepairDropsOrphansPreservesNonChunkShaped(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.AppendEdges([]store.Edge{
		{Source: "docs/a/01.txt", Target: "/abs/src.md", Type: store.EdgeChunkedFrom},
		{Source: "query_2026-01-01T00:00:00Z", Target: "docs/a/02.txt", Type: store.EdgeRetrieved},
	}))
	removed, err := Repair(s)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	edges, err := s.ReadEdges()
	require.NoError(t, err)
	require.Len(t, edges, 1)
	assert.Equal(t, "query_2026-01-01T00:00:00Z", edges[0].Source)
}

func TestGCRemovesOrphansAndStale(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.AppendEdges([]store.Edge{
		{Source: "docs/a/01.txt", Target: "/abs/src.md", Type: store.EdgeChunkedFrom},
	}))
	require.NoError(t, s.RecordProcessed("/does/not/exist.md", "hash1", ""))

	rpt, err := GC(s)
	require.NoError(t, err)
	assert.Equal(t, 1, rpt.OrphanEdgesRemoved)
	assert.Equal(t, 1, rpt.StaleProcessedRemoved)

	recs, err := s.ReadProcessed()
	require.NoError(t, err)
	assert.Empty(t, recs)
}

type fakeProvider struct{ dims int }

func (p fakeProvider) Embed(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = make([]float32, p.dims)
	}
	return out, nil
}
func (p fakeProvider) Dimensions() int   { return p.dims }
func (p fakeProvider) ModelName() string { return "fake" }

func TestReindexRejectsNoneProvider(t *testing.T) {
	s := newTestStore(t)
	err := Reindex(context.Background(), s, nil, "m", "")
	assert.Error(t, err)
}

func TestReindexRewritesEmbeddings(t *testing.T) {
	s := newTestStore(t)
	_, err := s.IngestDocument("/abs/src.md", "docs", "src", "hash1", "# One\nbody one\n# Two\nbody two", "heading", 1000, 0, nil)
	require.NoError(t, err)

	require.NoError(t, Reindex(context.Background(), s, fakeProvider{dims: 3}, "m", "docs"))

	header, err := codec.ReadHeader(filepath.Join(s.Root, "docs"))
	require.NoError(t, err)
	assert.Equal(t, uint32(2), header.Count)
}
