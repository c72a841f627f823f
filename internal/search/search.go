// Package search implements the three query modes over a store: keyword,
// vector, and hybrid.
package search

import (
	"context"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/kxddry/ragdag/internal/embedding/provider"
	"github.com/kxddry/ragdag/internal/logging"
	"github.com/kxddry/ragdag/internal/similarity"
)

// Mode names accepted by Search.
const (
	Keyword = "keyword"
	Vector  = "vector"
	Hybrid  = "hybrid"
)

// Result is one search hit. Content is loaded lazily by callers that need
// it (Ask does; a bare search listing may not).
type Result struct {
	ChunkRelPath string
	Score        float64
	Domain       string
}

// Engine runs searches against a single store root.
type Engine struct {
	StoreRoot     string
	Provider      provider.Provider
	KeywordWeight float64
	VectorWeight  float64
	Log           logging.Logger
}

// Search dispatches to the requested mode.
func (e *Engine) Search(ctx context.Context, mode, query, domain string, topK int) ([]Result, error) {
	switch mode {
	case Keyword:
		return e.keyword(query, domain, topK)
	case Vector:
		return e.vector(ctx, query, domain, topK)
	case Hybrid:
		return e.hybrid(ctx, query, domain, topK)
	default:
		return e.hybrid(ctx, query, domain, topK)
	}
}

// keyword implements the keyword mode: substring occurrence counts
// of whitespace-tokenized query terms (len>=2), scored
// floor(total_matches*10000/content_length_chars).
func (e *Engine) keyword(query, domain string, topK int) ([]Result, error) {
	tokens := tokenize(query)
	if len(tokens) == 0 {
		return nil, nil
	}

	var results []Result
	err := e.walkChunks(domain, func(relPath, content string) {
		lower := strings.ToLower(content)
		total := 0
		for _, tok := range tokens {
			total += strings.Count(lower, tok)
		}
		if total == 0 {
			return
		}
		score := math.Floor(float64(total) * 10000 / float64(len(content)))
		results = append(results, Result{ChunkRelPath: relPath, Score: score, Domain: domainOf(relPath)})
	})
	if err != nil {
		return nil, err
	}
	sort.SliceStable(results, func(i, j int) bool { return results[i].Score > results[j].Score })
	if topK > 0 && len(results) > topK {
		results = results[:topK]
	}
	return results, nil
}

func tokenize(query string) []string {
	fields := strings.Fields(strings.ToLower(query))
	tokens := make([]string, 0, len(fields))
	for _, f := range fields {
		if len(f) >= 2 {
			tokens = append(tokens, f)
		}
	}
	return tokens
}

// walkChunks visits every *.txt file under domain (or the whole store) that
// does not begin with "_".
func (e *Engine) walkChunks(domain string, visit func(relPath, content string)) error {
	root := e.StoreRoot
	if domain != "" {
		root = filepath.Join(e.StoreRoot, domain)
	}
	return filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return nil
			}
			return err
		}
		if d.IsDir() {
			return nil
		}
		name := d.Name()
		if !strings.HasSuffix(name, ".txt") || strings.HasPrefix(name, "_") {
			return nil
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return nil
		}
		rel, err := filepath.Rel(e.StoreRoot, path)
		if err != nil {
			return nil
		}
		visit(filepath.ToSlash(rel), string(data))
		return nil
	})
}

func domainOf(relPath string) string {
	parts := strings.Split(relPath, "/")
	if len(parts) < 2 {
		return ""
	}
	return parts[0]
}

// vector implements the vector mode: embed the query then delegate
// to the similarity engine.
func (e *Engine) vector(ctx context.Context, query, domain string, topK int) ([]Result, error) {
	if e.Provider == nil {
		return nil, nil
	}
	vecs, err := e.Provider.Embed(ctx, []string{query})
	if err != nil || len(vecs) == 0 {
		return nil, err
	}
	matches, err := similarity.SearchVectors(e.StoreRoot, vecs[0], domain, nil, topK)
	if err != nil {
		return nil, err
	}
	out := make([]Result, len(matches))
	for i, m := range matches {
		out[i] = Result{ChunkRelPath: m.ChunkRelPath, Score: m.Score, Domain: domainOf(m.ChunkRelPath)}
	}
	return out, nil
}

// hybrid implements the hybrid mode with degradation to keyword
// when the provider is none, the codec is unavailable, or the vector path
// errors at runtime.
func (e *Engine) hybrid(ctx context.Context, query, domain string, topK int) ([]Result, error) {
	if e.Provider == nil || e.Provider.ModelName() == "none" {
		if e.Log != nil {
			e.Log.Debug("hybrid search: provider none, degrading to keyword")
		}
		return e.keyword(query, domain, topK)
	}

	prefilterK := topK * 3
	if prefilterK <= 0 {
		prefilterK = 30
	}
	kwResults, err := e.keyword(query, domain, prefilterK)
	if err != nil {
		return nil, err
	}
	if len(kwResults) == 0 {
		return nil, nil
	}

	candidatePaths := make([]string, len(kwResults))
	kwScoreByPath := make(map[string]float64, len(kwResults))
	for i, r := range kwResults {
		candidatePaths[i] = r.ChunkRelPath
		kwScoreByPath[r.ChunkRelPath] = r.Score
	}

	vecs, err := e.Provider.Embed(ctx, []string{query})
	if err != nil || len(vecs) == 0 {
		if e.Log != nil {
			e.Log.Debug("hybrid search: embed failed, falling back to keyword: %v", err)
		}
		return e.keyword(query, domain, topK)
	}
	matches, err := similarity.SearchVectors(e.StoreRoot, vecs[0], domain, candidatePaths, prefilterK)
	if err != nil {
		if e.Log != nil {
			e.Log.Debug("hybrid search: vector path failed, falling back to keyword: %v", err)
		}
		return e.keyword(query, domain, topK)
	}
	if len(matches) == 0 {
		if e.Log != nil {
			e.Log.Debug("hybrid search: no vectors indexed for domain, falling back to keyword")
		}
		return e.keyword(query, domain, topK)
	}

	vecScoreByPath := make(map[string]float64, len(matches))
	for _, m := range matches {
		vecScoreByPath[m.ChunkRelPath] = m.Score
	}

	maxKw := 0.0
	for _, s := range kwScoreByPath {
		if s > maxKw {
			maxKw = s
		}
	}
	if maxKw == 0 {
		maxKw = 1
	}

	fused := make([]Result, 0, len(candidatePaths))
	for _, path := range candidatePaths {
		kwNorm := kwScoreByPath[path] / maxKw
		vecScore := vecScoreByPath[path]
		score := e.keywordWeight()*kwNorm + e.vectorWeight()*vecScore
		fused = append(fused, Result{ChunkRelPath: path, Score: score, Domain: domainOf(path)})
	}
	sort.SliceStable(fused, func(i, j int) bool { return fused[i].Score > fused[j].Score })
	if topK > 0 && len(fused) > topK {
		fused = fused[:topK]
	}
	return fused, nil
}

func (e *Engine) keywordWeight() float64 {
	if e.KeywordWeight == 0 && e.VectorWeight == 0 {
		return 0.3
	}
	return e.KeywordWeight
}

func (e *Engine) vectorWeight() float64 {
	if e.KeywordWeight == 0 && e.VectorWeight == 0 {
		return 0.7
	}
	return e.VectorWeight
}

// LoadChunkContent reads a chunk's text by store-root-relative path.
func LoadChunkContent(storeRoot, relPath string) (string, error) {
	data, err := os.ReadFile(filepath.Join(storeRoot, filepath.FromSlash(relPath)))
	if err != nil {
		return "", err
	}
	return string(data), nil
}
