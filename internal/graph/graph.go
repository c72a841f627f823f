// Package graph implements the summary/neighbors/trace/relate/link
// operations over a store's edge log.
package graph

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/kxddry/ragdag/internal/embedding/codec"
	"github.com/kxddry/ragdag/internal/similarity"
	"github.com/kxddry/ragdag/internal/store"
)

// Summary is graph()'s result.
type Summary struct {
	Domains     int
	Documents   int
	Chunks      int
	Edges       int
	EdgesByType map[string]int
}

// Graph runs read/write operations against a single store.
type Graph struct {
	Store *store.Store
}

// Summary computes domain/document/chunk/edge counts: counts scoped to domain
// when given, else the whole store. An empty store yields all zeros. A
// first-level directory that holds chunk files itself is a flat-mode document
// (ingested with no domain) and is counted as a document, not a domain.
func (g *Graph) Summary(domain string) (Summary, error) {
	sum := Summary{EdgesByType: map[string]int{}}

	entries, err := os.ReadDir(g.Store.Root)
	if err != nil {
		return sum, err
	}
	for _, d := range entries {
		if !d.IsDir() || strings.HasPrefix(d.Name(), ".") {
			continue
		}
		if domain != "" && d.Name() != domain {
			continue
		}
		docs, err := os.ReadDir(filepath.Join(g.Store.Root, d.Name()))
		if err != nil {
			continue
		}
		flatChunks := 0
		for _, c := range docs {
			if !c.IsDir() && strings.HasSuffix(c.Name(), ".txt") {
				flatChunks++
			}
		}
		if flatChunks > 0 {
			sum.Documents++
			sum.Chunks += flatChunks
			continue
		}
		sum.Domains++
		for _, doc := range docs {
			if !doc.IsDir() {
				continue
			}
			sum.Documents++
			chunks, err := os.ReadDir(filepath.Join(g.Store.Root, d.Name(), doc.Name()))
			if err != nil {
				continue
			}
			for _, c := range chunks {
				if !c.IsDir() && strings.HasSuffix(c.Name(), ".txt") {
					sum.Chunks++
				}
			}
		}
	}

	// Edge counts are read from .edges in full and never filtered by domain.
	edges, err := g.Store.ReadEdges()
	if err != nil {
		return sum, err
	}
	sum.Edges = len(edges)
	for _, e := range edges {
		sum.EdgesByType[e.Type]++
	}
	return sum, nil
}

// NeighborEdge is one row of a Neighbors result, tagged with its direction
// arrow relative to the queried node.
type NeighborEdge struct {
	Direction string // "→" (outgoing) or "←" (incoming)
	Other     string
	Type      string
	Metadata  string
}

// Neighbors lists a node's outgoing edges (node is the source) and incoming
// edges (node is the target).
func (g *Graph) Neighbors(node string) ([]NeighborEdge, error) {
	edges, err := g.Store.ReadEdges()
	if err != nil {
		return nil, err
	}
	var out []NeighborEdge
	for _, e := range edges {
		if e.Source == node {
			out = append(out, NeighborEdge{Direction: "→", Other: e.Target, Type: e.Type, Metadata: e.Metadata})
		}
		if e.Target == node {
			out = append(out, NeighborEdge{Direction: "←", Other: e.Source, Type: e.Type, Metadata: e.Metadata})
		}
	}
	return out, nil
}

const traceHopCap = 20

// TraceHop is one line of a Trace result.
type TraceHop struct {
	Node     string
	Parent   string // "" at origin
	EdgeType string // "origin" at the terminal hop
}

// Trace walks backward through chunked_from or derived_via edges where node
// is the source, stopping at a revisit, a missing parent, or the hard
// 20-hop cap.
func (g *Graph) Trace(node string) ([]TraceHop, error) {
	edges, err := g.Store.ReadEdges()
	if err != nil {
		return nil, err
	}
	parentOf := make(map[string]store.Edge, len(edges))
	for _, e := range edges {
		if e.Type == store.EdgeChunkedFrom || e.Type == store.EdgeDerivedVia {
			if _, exists := parentOf[e.Source]; !exists {
				parentOf[e.Source] = e
			}
		}
	}

	var chain []TraceHop
	visited := map[string]bool{}
	current := node
	for depth := 0; depth < traceHopCap; depth++ {
		if visited[current] {
			chain = append(chain, TraceHop{Node: current, Parent: "", EdgeType: "origin"})
			return chain, nil
		}
		visited[current] = true
		e, ok := parentOf[current]
		if !ok {
			chain = append(chain, TraceHop{Node: current, Parent: "", EdgeType: "origin"})
			return chain, nil
		}
		chain = append(chain, TraceHop{Node: current, Parent: e.Target, EdgeType: e.Type})
		current = e.Target
	}
	if len(chain) > 0 {
		last := &chain[len(chain)-1]
		last.Parent = ""
		last.EdgeType = "origin"
	}
	return chain, nil
}

// Relate computes pairwise cosine similarity within scope, appending
// related_to edges at or above threshold that don't already exist in
// either direction. Missing embeddings yields zero additions, not an
// error. Existing edges are loaded into a dedup set once up front.
func (g *Graph) Relate(domain string, threshold float64) (int, error) {
	edges, err := g.Store.ReadEdges()
	if err != nil {
		return 0, err
	}
	existing := map[string]bool{}
	for _, e := range edges {
		if e.Type == store.EdgeRelatedTo {
			existing[e.Source+"\x00"+e.Target] = true
			existing[e.Target+"\x00"+e.Source] = true
		}
	}

	domains, err := domainsWithEmbeddings(g.Store.Root, domain)
	if err != nil {
		return 0, err
	}

	added := 0
	var newEdges []store.Edge
	for _, dom := range domains {
		dir := filepath.Join(g.Store.Root, dom)
		_, vectors, err := codec.Read(dir)
		if err != nil {
			continue
		}
		manifest, err := codec.LoadManifest(dir)
		if err != nil || len(manifest) != len(vectors) {
			continue
		}
		for i := 0; i < len(manifest); i++ {
			for j := i + 1; j < len(manifest); j++ {
				a, b := manifest[i].Path, manifest[j].Path
				if existing[a+"\x00"+b] {
					continue
				}
				score := similarity.Cosine(vectors[i], vectors[j])
				if score < threshold {
					continue
				}
				existing[a+"\x00"+b] = true
				existing[b+"\x00"+a] = true
				newEdges = append(newEdges, store.Edge{
					Source: a, Target: b, Type: store.EdgeRelatedTo,
					Metadata: fmt.Sprintf("similarity=%.4f", score),
				})
				added++
			}
		}
	}
	if len(newEdges) > 0 {
		if err := g.Store.AppendEdges(newEdges); err != nil {
			return 0, err
		}
	}
	return added, nil
}

func domainsWithEmbeddings(root, domain string) ([]string, error) {
	if domain != "" {
		if _, err := os.Stat(filepath.Join(root, domain, "embeddings.bin")); err != nil {
			return nil, nil
		}
		return []string{domain}, nil
	}
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, err
	}
	var dirs []string
	for _, e := range entries {
		if !e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		if _, err := os.Stat(filepath.Join(root, e.Name(), "embeddings.bin")); err == nil {
			dirs = append(dirs, e.Name())
		}
	}
	sort.Strings(dirs)
	return dirs, nil
}

// Link appends a single trusted edge, no existence check performed.
// edgeType defaults to "references".
func (g *Graph) Link(source, target, edgeType string) error {
	if edgeType == "" {
		edgeType = store.EdgeReferences
	}
	return g.Store.AppendEdges([]store.Edge{{Source: source, Target: target, Type: edgeType}})
}
