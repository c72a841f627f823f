// Package ragdag is the top-level library facade over a single store: it
// wires config, parser, chunker, store, embedding, search, graph, ask and
// maintenance behind one struct that wraps the capability interfaces.
package ragdag

import (
	"context"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/kxddry/ragdag/internal/ask"
	"github.com/kxddry/ragdag/internal/chunker"
	"github.com/kxddry/ragdag/internal/compat"
	"github.com/kxddry/ragdag/internal/config"
	"github.com/kxddry/ragdag/internal/embedding/codec"
	"github.com/kxddry/ragdag/internal/embedding/provider"
	"github.com/kxddry/ragdag/internal/graph"
	"github.com/kxddry/ragdag/internal/llm"
	"github.com/kxddry/ragdag/internal/logging"
	"github.com/kxddry/ragdag/internal/maintenance"
	"github.com/kxddry/ragdag/internal/parser"
	"github.com/kxddry/ragdag/internal/ragerr"
	"github.com/kxddry/ragdag/internal/search"
	"github.com/kxddry/ragdag/internal/store"
)

// RagDag wraps one open store and its configured capabilities.
type RagDag struct {
	Store  *store.Store
	Config *config.Store
	Log    logging.Logger

	embedProvider provider.Provider
	llmProvider   llm.Provider
}

// Init creates a new store rooted at dir (idempotent) and returns it opened.
func Init(dir string) (*RagDag, error) {
	s, err := store.Init(dir)
	if err != nil {
		return nil, ragerr.Wrap(err, "init store")
	}
	return open(s)
}

// Open finds the nearest ancestor .ragdag directory starting from dir and
// opens it. If RAGDAG_STORE is set, it names the directory whose .ragdag
// child is opened directly, taking precedence over dir and ancestor search.
// Returns ragerr.NotAStore if none is found.
func Open(dir string) (*RagDag, error) {
	if envDir := os.Getenv("RAGDAG_STORE"); envDir != "" {
		dir = envDir
	}
	root, err := compat.FindStore(dir)
	if err != nil {
		return nil, ragerr.NotAStore
	}
	return open(store.Open(root))
}

func open(s *store.Store) (*RagDag, error) {
	cfg, err := config.Load(s.ConfigPath())
	if err != nil {
		return nil, ragerr.Wrap(err, "load config")
	}
	r := &RagDag{Store: s, Config: cfg, Log: logging.New()}

	embedKind := cfg.Get("embedding", "provider", "none")
	embedModel := cfg.Get("embedding", "model", "text-embedding-3-small")
	dims, _ := strconv.Atoi(cfg.Get("embedding", "dimensions", "1536"))
	if p, err := provider.New(embedKind, embedModel, dims); err == nil {
		r.embedProvider = p
	} else {
		r.Log.Debug("embedding provider unavailable: %v", err)
		r.embedProvider = nil
	}

	llmKind := cfg.Get("llm", "provider", "none")
	llmModel := cfg.Get("llm", "model", "gpt-4o-mini")
	if p, err := llm.New(llmKind, llmModel); err == nil {
		r.llmProvider = p
	} else {
		r.Log.Debug("llm provider unavailable: %v", err)
		r.llmProvider = nil
	}

	return r, nil
}

// AddResult reports what Add did, mirroring the original facade's summary
// dict shape (files/chunks/skipped).
type AddResult struct {
	Files   int
	Chunks  int
	Skipped int
}

// Add ingests a file or every eligible file under a directory. domain ==
// "auto" applies the store's .domain-rules, using the "unsorted" domain when
// no rule matches; "" ingests in flat mode, with documents placed directly
// under the store root.
func (r *RagDag) Add(ctx context.Context, path, domain string, embed bool) (AddResult, error) {
	info, err := os.Stat(path)
	if err != nil {
		return AddResult{}, ragerr.Wrap(err, "stat path")
	}

	var files []string
	if info.IsDir() {
		files, err = collectFiles(path)
		if err != nil {
			return AddResult{}, err
		}
	} else {
		files = []string{path}
	}

	chunkSize, _ := strconv.Atoi(r.Config.Get("general", "chunk_size", "1000"))
	chunkOverlap, _ := strconv.Atoi(r.Config.Get("general", "chunk_overlap", "100"))
	configuredStrategy := r.Config.Get("general", "chunk_strategy", "heading")
	embedProviderKind := r.Config.Get("embedding", "provider", "none")

	var result AddResult
	for _, f := range files {
		absPath, err := filepath.Abs(f)
		if err != nil {
			return result, err
		}
		hash, err := compat.ContentHashFile(absPath)
		if err != nil {
			return result, ragerr.Wrap(err, "hash "+absPath)
		}

		processed, err := r.Store.IsProcessed(absPath, hash)
		if err != nil {
			return result, err
		}
		if processed {
			result.Skipped++
			continue
		}

		ftype := parser.Detect(absPath)
		text, err := parser.Parse(absPath, ftype)
		if err != nil {
			raw, readErr := os.ReadFile(absPath)
			if readErr != nil {
				return result, ragerr.Wrapf(err, "parse and fallback-read %s", absPath)
			}
			text = string(raw)
		}

		strategy := chunker.AutoSelect(string(ftype), configuredStrategy)

		fileDomain := domain
		if fileDomain == "auto" {
			applied, err := r.Store.ApplyDomainRules(absPath)
			if err != nil {
				return result, err
			}
			if applied == "" {
				applied = "unsorted"
			}
			fileDomain = applied
		}

		docName := compat.Sanitize(strings.TrimSuffix(filepath.Base(absPath), filepath.Ext(absPath)))
		if docName == "" {
			docName = "document"
		}

		ingestRes, err := r.Store.IngestDocument(absPath, fileDomain, docName, hash, text, strategy, chunkSize, chunkOverlap, r.Log)
		if err != nil {
			return result, ragerr.Wrapf(err, "ingest %s", absPath)
		}

		if embed && embedProviderKind != "none" && r.embedProvider != nil {
			if err := r.embedDocument(ctx, ingestRes.RelDocPath, fileDomain); err != nil {
				return result, ragerr.Wrapf(err, "embed %s", absPath)
			}
		}

		result.Files++
		result.Chunks += ingestRes.Chunks
	}
	return result, nil
}

func (r *RagDag) embedDocument(ctx context.Context, relDocPath, domain string) error {
	docDir := filepath.Join(r.Store.Root, filepath.FromSlash(relDocPath))
	entries, err := os.ReadDir(docDir)
	if err != nil {
		return err
	}
	var paths, texts []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".txt") {
			continue
		}
		full := filepath.Join(docDir, e.Name())
		data, err := os.ReadFile(full)
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(r.Store.Root, full)
		if err != nil {
			return err
		}
		paths = append(paths, filepath.ToSlash(rel))
		texts = append(texts, string(data))
	}
	if len(paths) == 0 {
		return nil
	}
	vectors, err := r.embedProvider.Embed(ctx, texts)
	if err != nil {
		return err
	}
	domainDir := r.Store.DomainDir(domain)
	return codec.Write(domainDir, vectors, paths, r.embedProvider.Dimensions(), r.embedProvider.ModelName(), true)
}

func collectFiles(root string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if d.Name() == compat.StoreDirName() || d.Name() == ".git" {
				return filepath.SkipDir
			}
			return nil
		}
		if strings.HasPrefix(d.Name(), ".") {
			return nil
		}
		files = append(files, path)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return files, nil
}

func (r *RagDag) searchEngine() *search.Engine {
	kwWeight, _ := strconv.ParseFloat(r.Config.Get("search", "keyword_weight", "0.3"), 64)
	vecWeight, _ := strconv.ParseFloat(r.Config.Get("search", "vector_weight", "0.7"), 64)
	return &search.Engine{
		StoreRoot:     r.Store.Root,
		Provider:      r.embedProvider,
		KeywordWeight: kwWeight,
		VectorWeight:  vecWeight,
		Log:           r.Log,
	}
}

// Search runs one search call. mode == "" uses the store's configured default.
func (r *RagDag) Search(ctx context.Context, mode, query, domain string, topK int) ([]search.Result, error) {
	if mode == "" {
		mode = r.Config.Get("search", "default_mode", "hybrid")
	}
	if topK <= 0 {
		topK, _ = strconv.Atoi(r.Config.Get("search", "top_k", "10"))
	}
	return r.searchEngine().Search(ctx, mode, query, domain, topK)
}

// Ask runs the full retrieve/expand/assemble/answer/record pipeline.
func (r *RagDag) Ask(ctx context.Context, question, domain string, topK int, useLLM bool) (ask.Result, error) {
	maxContext, _ := strconv.Atoi(r.Config.Get("llm", "max_context", "8000"))
	recordQueries := r.Config.Get("edges", "record_queries", "false") == "true"
	mode := r.Config.Get("search", "default_mode", "hybrid")

	return ask.Ask(ctx, r.Store, r.searchEngine(), r.llmProvider, ask.Options{
		Question:    question,
		Domain:      domain,
		TopK:        topK,
		UseLLM:      useLLM,
		Mode:        mode,
		MaxContext:  maxContext,
		RecordQuery: recordQueries,
	})
}

func (r *RagDag) graphEngine() *graph.Graph { return &graph.Graph{Store: r.Store} }

// Graph returns store-wide or domain-scoped summary statistics.
func (r *RagDag) Graph(domain string) (graph.Summary, error) { return r.graphEngine().Summary(domain) }

// Neighbors returns node's outgoing and incoming edges.
func (r *RagDag) Neighbors(node string) ([]graph.NeighborEdge, error) {
	return r.graphEngine().Neighbors(node)
}

// Trace walks node's provenance chain back to its origin.
func (r *RagDag) Trace(node string) ([]graph.TraceHop, error) { return r.graphEngine().Trace(node) }

// Relate computes and appends related_to edges within scope.
func (r *RagDag) Relate(domain string, threshold float64) (int, error) {
	return r.graphEngine().Relate(domain, threshold)
}

// Link appends a single trusted edge.
func (r *RagDag) Link(source, target, edgeType string) error {
	return r.graphEngine().Link(source, target, edgeType)
}

// Verify reports the store's invariant violations without modifying it.
func (r *RagDag) Verify() (maintenance.Report, error) { return maintenance.Verify(r.Store) }

// Repair drops orphaned edges.
func (r *RagDag) Repair() (int, error) { return maintenance.Repair(r.Store) }

// GC drops orphaned edges and stale processed records.
func (r *RagDag) GC() (maintenance.GCReport, error) { return maintenance.GC(r.Store) }

// Reindex rebuilds a domain's (or every domain's) embeddings from scratch.
func (r *RagDag) Reindex(ctx context.Context, domain string) error {
	if r.embedProvider == nil {
		return ragerr.New(ragerr.KindProviderUnavailable, "no embedding provider configured")
	}
	model := r.Config.Get("embedding", "model", "text-embedding-3-small")
	return maintenance.Reindex(ctx, r.Store, r.embedProvider, model, domain)
}

// Close is a no-op placeholder: the store holds no long-lived file handles
// between calls (the read-paths-are-pure-reads guarantee).
func (r *RagDag) Close() error { return nil }

// StoreRoot returns the store's .ragdag directory path.
func (r *RagDag) StoreRoot() string { return r.Store.Root }
