package provider

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	openai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kxddry/ragdag/internal/ragerr"
)

func TestNewNoneKindReturnsNoopProvider(t *testing.T) {
	for _, kind := range []string{"", "none"} {
		p, err := New(kind, "", 0)
		require.NoError(t, err)
		assert.Equal(t, "none", p.ModelName())
		assert.Equal(t, 0, p.Dimensions())
		vecs, err := p.Embed(context.Background(), []string{"x"})
		require.NoError(t, err)
		assert.Nil(t, vecs)
	}
}

func TestNewLocalKindIsUnavailable(t *testing.T) {
	_, err := New("local", "", 1536)
	require.Error(t, err)
	kind, ok := ragerr.KindOf(err)
	require.True(t, ok)
	assert.Equal(t, ragerr.KindProviderUnavailable, kind)
}

func TestNewUnknownKindErrors(t *testing.T) {
	_, err := New("bogus", "", 1536)
	require.Error(t, err)
	kind, ok := ragerr.KindOf(err)
	require.True(t, ok)
	assert.Equal(t, ragerr.KindProviderUnavailable, kind)
}

func TestNewOpenAIRequiresAPIKey(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	_, err := New("openai", "", 1536)
	require.Error(t, err)
	kind, ok := ragerr.KindOf(err)
	require.True(t, ok)
	assert.Equal(t, ragerr.KindProviderUnavailable, kind)
}

func TestNewOpenAIDefaultsModelAndDimensions(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "test-key")
	p, err := New("openai", "", 1536)
	require.NoError(t, err)
	assert.Equal(t, "text-embedding-3-small", p.ModelName())
	assert.Equal(t, 1536, p.Dimensions())
}

func TestOpenAIEmbedMismatchedCountIsProviderFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(openai.EmbeddingResponse{
			Data: []openai.Embedding{{Embedding: []float32{0.1, 0.2}}},
		})
	}))
	defer server.Close()

	cfg := openai.DefaultConfig("test-key")
	cfg.BaseURL = server.URL + "/v1"
	p := &openaiProvider{client: openai.NewClientWithConfig(cfg), model: "text-embedding-3-small", dims: 2}

	_, err := p.Embed(context.Background(), []string{"a", "b"})
	require.Error(t, err)
	kind, ok := ragerr.KindOf(err)
	require.True(t, ok)
	assert.Equal(t, ragerr.KindProviderFailure, kind)
}

func TestOpenAIEmbedEmptyInputIsNoop(t *testing.T) {
	p := &openaiProvider{client: openai.NewClient("test-key"), model: "m", dims: 8}
	vecs, err := p.Embed(context.Background(), nil)
	require.NoError(t, err)
	assert.Nil(t, vecs)
}
