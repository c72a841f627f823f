// Package ask implements the retrieve/expand/assemble/answer/record
// pipeline.
package ask

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/kxddry/ragdag/internal/compat"
	"github.com/kxddry/ragdag/internal/llm"
	"github.com/kxddry/ragdag/internal/search"
	"github.com/kxddry/ragdag/internal/store"
)

// candidateExpandDecay is applied to an expanded candidate's score
// relative to the primary candidate it was discovered from: half the
// originating candidate's score.
const candidateExpandDecay = 0.5

// candidate is one entry of the working retrieval list.
type candidate struct {
	relPath  string
	score    float64
	expanded bool
}

// Result is what Ask returns.
type Result struct {
	Context string
	Sources []string
	Answer  string // "" when use_llm is false or the provider is none
}

// Options configures one Ask call.
type Options struct {
	Question    string
	Domain      string
	TopK        int
	UseLLM      bool
	Mode        string // keyword|vector|hybrid, defaults to hybrid
	MaxContext  int
	RecordQuery bool
}

// Ask runs the full pipeline against a store using engine for retrieval and
// llmProvider (may be nil) for the answer step.
func Ask(ctx context.Context, s *store.Store, engine *search.Engine, llmProvider llm.Provider, opts Options) (Result, error) {
	mode := opts.Mode
	if mode == "" {
		mode = search.Hybrid
	}
	topK := opts.TopK
	if topK <= 0 {
		topK = 10
	}

	primary, err := engine.Search(ctx, mode, opts.Question, opts.Domain, topK)
	if err != nil {
		return Result{}, err
	}

	candidates := make([]candidate, 0, len(primary))
	primaryPaths := make(map[string]bool, len(primary))
	for _, r := range primary {
		candidates = append(candidates, candidate{relPath: r.ChunkRelPath, score: r.Score})
		primaryPaths[r.ChunkRelPath] = true
	}

	edges, err := s.ReadEdges()
	if err != nil {
		return Result{}, err
	}
	byOutgoingSource := map[string][]store.Edge{}
	for _, e := range edges {
		if e.Type == store.EdgeRelatedTo || e.Type == store.EdgeReferences {
			byOutgoingSource[e.Source] = append(byOutgoingSource[e.Source], e)
		}
	}

	seen := make(map[string]bool, len(candidates))
	for _, c := range candidates {
		seen[c.relPath] = true
	}
	for _, c := range primary {
		for _, e := range byOutgoingSource[c.ChunkRelPath] {
			if seen[e.Target] {
				continue
			}
			seen[e.Target] = true
			candidates = append(candidates, candidate{
				relPath:  e.Target,
				score:    c.Score * candidateExpandDecay,
				expanded: true,
			})
		}
	}

	sort.SliceStable(candidates, func(i, j int) bool { return candidates[i].score > candidates[j].score })

	maxContext := opts.MaxContext
	if maxContext <= 0 {
		maxContext = 8000
	}

	var b strings.Builder
	sources := make([]string, 0, len(candidates))
	usedTokens := 0
	added := map[string]bool{}
	for _, c := range candidates {
		if added[c.relPath] {
			continue
		}
		content, err := search.LoadChunkContent(s.Root, c.relPath)
		if err != nil {
			continue
		}
		tokens := compat.TokenEstimate(content)
		if usedTokens+tokens > maxContext {
			break
		}
		fmt.Fprintf(&b, "--- Source: %s (score: %.4f) ---\n%s\n\n", c.relPath, c.score, content)
		usedTokens += tokens
		added[c.relPath] = true
		sources = append(sources, c.relPath)
	}

	result := Result{Context: b.String(), Sources: sources}

	if opts.UseLLM && llmProvider != nil {
		systemPrompt := loadPromptOverride(s.Root)
		userMsg := llm.BuildUserMessage(opts.Question, result.Context)
		answer, err := llmProvider.Answer(ctx, systemPrompt, userMsg)
		if err != nil {
			return result, err
		}
		result.Answer = answer
	}

	if opts.RecordQuery {
		if err := recordQuery(s, opts.Question, primary); err != nil {
			return result, err
		}
	}

	return result, nil
}

// loadPromptOverride reads prompt.txt from the store root if present,
// falling back to the built-in system prompt (step 5).
func loadPromptOverride(storeRoot string) string {
	data, err := os.ReadFile(filepath.Join(storeRoot, "prompt.txt"))
	if err != nil {
		return llm.SystemPrompt
	}
	text := strings.TrimSpace(string(data))
	if text == "" {
		return llm.SystemPrompt
	}
	return text
}

// recordQuery synthesizes a query_<iso_ts> node and appends retrieved
// edges to each primary (non-expanded) candidate (step 6).
func recordQuery(s *store.Store, question string, primary []search.Result) error {
	if len(primary) == 0 {
		return nil
	}
	ts := compat.ISOTimestamp()
	node := "query_" + ts
	edges := make([]store.Edge, 0, len(primary))
	for _, r := range primary {
		edges = append(edges, store.Edge{
			Source:   node,
			Target:   r.ChunkRelPath,
			Type:     store.EdgeRetrieved,
			Metadata: "timestamp=" + ts,
		})
	}
	return s.AppendEdges(edges)
}
