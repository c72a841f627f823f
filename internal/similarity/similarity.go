// Package similarity implements cosine similarity search over the
// embedding codec's on-disk vectors.
package similarity

import (
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/kxddry/ragdag/internal/embedding/codec"
)

const epsilon = 1e-10

// Cosine returns (q·m) / max(|q|,eps)*max(|m|,eps) for a single pair.
func Cosine(q, m []float32) float64 {
	var dot, qn, mn float64
	n := len(q)
	if len(m) < n {
		n = len(m)
	}
	for i := 0; i < n; i++ {
		dot += float64(q[i]) * float64(m[i])
		qn += float64(q[i]) * float64(q[i])
		mn += float64(m[i]) * float64(m[i])
	}
	qn = math.Sqrt(qn)
	mn = math.Sqrt(mn)
	if qn < epsilon {
		qn = epsilon
	}
	if mn < epsilon {
		mn = epsilon
	}
	return dot / (qn * mn)
}

// CosineAll returns cosine(q, M[i]) for every row of M.
func CosineAll(q []float32, m [][]float32) []float64 {
	out := make([]float64, len(m))
	for i, row := range m {
		out[i] = Cosine(q, row)
	}
	return out
}

// Match is one search_vectors result.
type Match struct {
	ChunkRelPath string
	Score        float64
}

// SearchVectors implements the search_vectors: load domain(s)'
// embeddings, optionally restrict to candidatePaths (others excluded, not
// scored zero), score by cosine, sort descending, truncate to topK.
// Missing embeddings files yield an empty result, not an error. Manifest
// entries store store-root-relative chunk paths, matching edge targets.
func SearchVectors(storeRoot string, query []float32, domain string, candidatePaths []string, topK int) ([]Match, error) {
	domains, err := domainsToLoad(storeRoot, domain)
	if err != nil {
		return nil, err
	}

	var candidateSet map[string]bool
	if candidatePaths != nil {
		candidateSet = make(map[string]bool, len(candidatePaths))
		for _, p := range candidatePaths {
			candidateSet[p] = true
		}
	}

	var matches []Match
	for _, dom := range domains {
		dir := filepath.Join(storeRoot, dom)
		_, vectors, err := codec.Read(dir)
		if err != nil {
			continue // no embeddings.bin for this domain: contributes nothing
		}
		manifest, err := codec.LoadManifest(dir)
		if err != nil || len(manifest) == 0 {
			continue
		}
		for i, entry := range manifest {
			if i >= len(vectors) {
				break
			}
			if candidateSet != nil && !candidateSet[entry.Path] {
				continue
			}
			matches = append(matches, Match{ChunkRelPath: entry.Path, Score: Cosine(query, vectors[i])})
		}
	}

	sort.SliceStable(matches, func(i, j int) bool { return matches[i].Score > matches[j].Score })
	if topK > 0 && len(matches) > topK {
		matches = matches[:topK]
	}
	return matches, nil
}

func domainsToLoad(storeRoot, domain string) ([]string, error) {
	if domain != "" {
		return []string{domain}, nil
	}
	entries, err := os.ReadDir(storeRoot)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var dirs []string
	for _, e := range entries {
		if !e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		dirs = append(dirs, e.Name())
	}
	return dirs, nil
}
