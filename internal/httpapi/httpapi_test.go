package httpapi

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kxddry/ragdag/internal/logging"
	"github.com/kxddry/ragdag/pkg/ragdag"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestServer(t *testing.T) (*gin.Engine, *ragdag.RagDag) {
	t.Helper()
	dir := t.TempDir()
	r, err := ragdag.Init(dir)
	require.NoError(t, err)
	return New(r, logging.Noop()), r
}

func doJSON(engine *gin.Engine, method, path string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	engine, _ := newTestServer(t)
	rec := doJSON(engine, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "ok")
}

func TestHealthSetsRequestID(t *testing.T) {
	engine, _ := newTestServer(t)
	rec := doJSON(engine, http.MethodGet, "/health", nil)
	assert.NotEmpty(t, rec.Header().Get("X-Request-Id"))
}

func TestAddAndSearch(t *testing.T) {
	engine, r := newTestServer(t)

	srcPath := filepath.Join(r.Store.Root, "..", "note.txt")
	require.NoError(t, os.WriteFile(srcPath, []byte("wombats dig extensive burrow systems"), 0o644))

	rec := doJSON(engine, http.MethodPost, "/add", map[string]interface{}{"path": srcPath, "embed": false})
	require.Equal(t, http.StatusOK, rec.Code)
	var addResp map[string]int
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &addResp))
	assert.Equal(t, 1, addResp["files"])

	rec = doJSON(engine, http.MethodPost, "/search", map[string]interface{}{"query": "wombats", "mode": "keyword"})
	require.Equal(t, http.StatusOK, rec.Code)
	var results []map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &results))
	require.Len(t, results, 1)
	assert.Contains(t, results[0]["content"], "wombats")
}

func TestAddRejectsMissingPath(t *testing.T) {
	engine, _ := newTestServer(t)
	rec := doJSON(engine, http.MethodPost, "/add", map[string]interface{}{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAskWithoutPriorAddReturnsEmptyContext(t *testing.T) {
	engine, _ := newTestServer(t)
	rec := doJSON(engine, http.MethodPost, "/ask", map[string]interface{}{"question": "anything", "use_llm": false})
	require.Equal(t, http.StatusOK, rec.Code)
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Empty(t, resp["answer"])
}

func TestGraphEmptyStore(t *testing.T) {
	engine, _ := newTestServer(t)
	rec := doJSON(engine, http.MethodGet, "/graph", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, float64(0), resp["chunks"])
}

func TestLinkThenNeighbors(t *testing.T) {
	engine, r := newTestServer(t)

	srcPath := filepath.Join(r.Store.Root, "..", "a.txt")
	require.NoError(t, os.WriteFile(srcPath, []byte("hello there"), 0o644))
	rec := doJSON(engine, http.MethodPost, "/add", map[string]interface{}{"path": srcPath, "embed": false})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(engine, http.MethodPost, "/link", map[string]interface{}{"source": "a/01.txt", "target": "a/01.txt"})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(engine, http.MethodGet, "/neighbors/a/01.txt", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var edges []map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &edges))
	assert.NotEmpty(t, edges)
}

func TestRelateOnEmptyStoreIsNoop(t *testing.T) {
	engine, _ := newTestServer(t)
	rec := doJSON(engine, http.MethodPost, "/relate", map[string]interface{}{})
	assert.Equal(t, http.StatusOK, rec.Code)
}
