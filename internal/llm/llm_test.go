package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildUserMessageWrapsContext(t *testing.T) {
	msg := BuildUserMessage("what is x?", "some context")
	assert.Contains(t, msg, "[BEGIN CONTEXT]")
	assert.Contains(t, msg, "[END CONTEXT]")
	assert.Contains(t, msg, "some context")
	assert.Contains(t, msg, "Question: what is x?")
}

func TestNoneProviderReturnsEmpty(t *testing.T) {
	p, err := New("none", "")
	require.NoError(t, err)
	out, err := p.Answer(context.Background(), SystemPrompt, "hi")
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestNewOpenAIMissingKeyErrors(t *testing.T) {
	old := os.Getenv("OPENAI_API_KEY")
	os.Unsetenv("OPENAI_API_KEY")
	defer os.Setenv("OPENAI_API_KEY", old)

	_, err := New("openai", "gpt-4o-mini")
	assert.Error(t, err)
}

func TestNewAnthropicUnavailable(t *testing.T) {
	_, err := New("anthropic", "claude-3")
	assert.Error(t, err)
}

func TestOllamaProviderCallsConfiguredURL(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/generate", r.URL.Path)
		var req ollamaRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "llama3", req.Model)
		assert.False(t, req.Stream)
		json.NewEncoder(w).Encode(ollamaResponse{Response: "the answer"})
	}))
	defer srv.Close()

	old := os.Getenv("OLLAMA_URL")
	os.Setenv("OLLAMA_URL", srv.URL)
	defer os.Setenv("OLLAMA_URL", old)

	p, err := New("ollama", "llama3")
	require.NoError(t, err)
	out, err := p.Answer(context.Background(), SystemPrompt, "hello")
	require.NoError(t, err)
	assert.Equal(t, "the answer", out)
}
