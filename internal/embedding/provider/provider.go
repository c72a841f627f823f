// Package provider implements the embedding capability: a narrow
// Embed/Dimensions/ModelName interface with a config-selected factory.
package provider

import (
	"context"
	"os"

	openai "github.com/sashabaranov/go-openai"

	"github.com/kxddry/ragdag/internal/ragerr"
)

// Provider is the embedding capability. Implementations never read
// credentials from the store's config file, only from the environment.
type Provider interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	Dimensions() int
	ModelName() string
}

// New builds a Provider for the given kind ("none", "openai", "local").
// dimensions is the store's configured embedding.dimensions; the openai
// provider reports it from Dimensions() and does not check it against the
// length of the vectors the API returns.
func New(kind, model string, dimensions int) (Provider, error) {
	switch kind {
	case "", "none":
		return noneProvider{}, nil
	case "openai":
		return newOpenAIProvider(model, dimensions)
	case "local":
		// No local in-process embedding model ships with the retrieval
		// pack (no ONNX/ggml binding appears anywhere in it); ingest
		// with this provider configured fails loudly rather than
		// silently producing zero vectors.
		return nil, ragerr.New(ragerr.KindProviderUnavailable, "local embedding provider not built into this binary")
	default:
		return nil, ragerr.New(ragerr.KindProviderUnavailable, "unknown embedding provider "+kind)
	}
}

// noneProvider is the sentinel: ingest skips embedding, hybrid search
// degrades to keyword.
type noneProvider struct{}

func (noneProvider) Embed(context.Context, []string) ([][]float32, error) { return nil, nil }
func (noneProvider) Dimensions() int                                       { return 0 }
func (noneProvider) ModelName() string                                     { return "none" }

type openaiProvider struct {
	client *openai.Client
	model  string
	dims   int
}

func newOpenAIProvider(model string, dimensions int) (Provider, error) {
	key := os.Getenv("OPENAI_API_KEY")
	if key == "" {
		return nil, ragerr.New(ragerr.KindProviderUnavailable, "OPENAI_API_KEY not set")
	}
	if model == "" {
		model = "text-embedding-3-small"
	}
	return &openaiProvider{client: openai.NewClient(key), model: model, dims: dimensions}, nil
}

func (p *openaiProvider) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	resp, err := p.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Model: openai.EmbeddingModel(p.model),
		Input: texts,
	})
	if err != nil {
		return nil, ragerr.Wrap(err, "openai embeddings")
	}
	if len(resp.Data) != len(texts) {
		return nil, ragerr.New(ragerr.KindProviderFailure, "openai returned mismatched embedding count")
	}
	out := make([][]float32, len(resp.Data))
	for i, d := range resp.Data {
		v := make([]float32, len(d.Embedding))
		for j, f := range d.Embedding {
			v[j] = float32(f)
		}
		out[i] = v
	}
	return out, nil
}

func (p *openaiProvider) Dimensions() int   { return p.dims }
func (p *openaiProvider) ModelName() string { return p.model }
