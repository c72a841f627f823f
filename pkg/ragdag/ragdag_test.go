package ragdag

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitOpenRoundTrip(t *testing.T) {
	dir := t.TempDir()
	r, err := Init(dir)
	require.NoError(t, err)
	require.NoError(t, r.Close())

	r2, err := Open(dir)
	require.NoError(t, err)
	assert.Equal(t, r.Store.Root, r2.Store.Root)
}

func TestOpenMissingStoreErrors(t *testing.T) {
	_, err := Open(t.TempDir())
	assert.Error(t, err)
}

func TestOpenPrefersRAGDAGStoreOverDir(t *testing.T) {
	real := t.TempDir()
	r, err := Init(real)
	require.NoError(t, err)
	require.NoError(t, r.Close())

	t.Setenv("RAGDAG_STORE", real)
	r2, err := Open(t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, r.Store.Root, r2.Store.Root)
}

func TestAddIngestsAndSkipsOnReAdd(t *testing.T) {
	dir := t.TempDir()
	r, err := Init(dir)
	require.NoError(t, err)

	srcPath := filepath.Join(dir, "note.md")
	require.NoError(t, os.WriteFile(srcPath, []byte("# Heading\nsome body text about foxes"), 0o644))

	res, err := r.Add(context.Background(), srcPath, "", true)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Files)
	assert.GreaterOrEqual(t, res.Chunks, 1)

	res2, err := r.Add(context.Background(), srcPath, "", true)
	require.NoError(t, err)
	assert.Equal(t, 0, res2.Files)
	assert.Equal(t, 1, res2.Skipped)
}

func TestAddDirectorySkipsDotfilesAndStore(t *testing.T) {
	dir := t.TempDir()
	r, err := Init(dir)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.txt"), []byte("hello world"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".hidden"), []byte("secret"), 0o644))

	res, err := r.Add(context.Background(), dir, "", false)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Files)
}

func TestSearchAfterAdd(t *testing.T) {
	dir := t.TempDir()
	r, err := Init(dir)
	require.NoError(t, err)

	srcPath := filepath.Join(dir, "note.txt")
	require.NoError(t, os.WriteFile(srcPath, []byte("quokkas are marsupials found in western australia"), 0o644))
	_, err = r.Add(context.Background(), srcPath, "", false)
	require.NoError(t, err)

	results, err := r.Search(context.Background(), "keyword", "quokkas", "", 5)
	require.NoError(t, err)
	require.Len(t, results, 1)
}

func TestAskWithoutLLMReturnsContext(t *testing.T) {
	dir := t.TempDir()
	r, err := Init(dir)
	require.NoError(t, err)

	srcPath := filepath.Join(dir, "note.txt")
	require.NoError(t, os.WriteFile(srcPath, []byte("quokkas are marsupials found in western australia"), 0o644))
	_, err = r.Add(context.Background(), srcPath, "", false)
	require.NoError(t, err)

	res, err := r.Ask(context.Background(), "quokkas", "", 5, false)
	require.NoError(t, err)
	assert.Contains(t, res.Context, "quokkas")
	assert.Empty(t, res.Answer)
}

func TestGraphAndLinkAndVerify(t *testing.T) {
	dir := t.TempDir()
	r, err := Init(dir)
	require.NoError(t, err)

	srcPath := filepath.Join(dir, "note.txt")
	require.NoError(t, os.WriteFile(srcPath, []byte("hello world"), 0o644))
	_, err = r.Add(context.Background(), srcPath, "", false)
	require.NoError(t, err)

	sum, err := r.Graph("")
	require.NoError(t, err)
	assert.Equal(t, 1, sum.Chunks)

	require.NoError(t, r.Link("note/01.txt", "note/01.txt", "references"))

	rpt, err := r.Verify()
	require.NoError(t, err)
	assert.Empty(t, rpt.OrphanEdges)
}
