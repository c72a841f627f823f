// Package maintenance implements verify/repair/gc/reindex over a store's
// persisted invariants.
package maintenance

import (
	"context"
	"os"
	"path/filepath"

	"github.com/kxddry/ragdag/internal/embedding/codec"
	"github.com/kxddry/ragdag/internal/embedding/provider"
	"github.com/kxddry/ragdag/internal/ragerr"
	"github.com/kxddry/ragdag/internal/store"
)

// Report is verify's result.
type Report struct {
	OrphanEdges         []store.Edge
	StaleProcessed      []store.ProcessedRecord
	EmbeddingMismatches []string // domain names whose manifest/bin disagree
}

// Verify scans the store for three invariant violations: orphaned edges,
// stale processed records, and embedding files
// whose header count disagrees with their manifest's row count.
func Verify(s *store.Store) (Report, error) {
	var rpt Report

	edges, err := s.ReadEdges()
	if err != nil {
		return rpt, err
	}
	for _, e := range edges {
		if store.IsChunkShaped(e.Source) {
			if _, err := os.Stat(filepath.Join(s.Root, filepath.FromSlash(e.Source))); os.IsNotExist(err) {
				rpt.OrphanEdges = append(rpt.OrphanEdges, e)
			}
		}
	}

	recs, err := s.ReadProcessed()
	if err != nil {
		return rpt, err
	}
	for _, r := range recs {
		if _, err := os.Stat(r.Path); os.IsNotExist(err) {
			rpt.StaleProcessed = append(rpt.StaleProcessed, r)
		}
	}

	domains, err := listDomains(s.Root)
	if err != nil {
		return rpt, err
	}
	for _, dom := range domains {
		dir := filepath.Join(s.Root, dom)
		if _, err := os.Stat(filepath.Join(dir, "embeddings.bin")); os.IsNotExist(err) {
			continue
		}
		header, err := codec.ReadHeader(dir)
		if err != nil {
			rpt.EmbeddingMismatches = append(rpt.EmbeddingMismatches, dom)
			continue
		}
		manifest, err := codec.LoadManifest(dir)
		if err != nil || uint32(len(manifest)) != header.Count {
			rpt.EmbeddingMismatches = append(rpt.EmbeddingMismatches, dom)
		}
	}

	return rpt, nil
}

// Repair rewrites .edges omitting orphaned rows. Non-chunk-shaped sources
// (query nodes, external URIs) are preserved unconditionally: they are not
// verifiable against the filesystem. .processed is untouched.
func Repair(s *store.Store) (removed int, err error) {
	edges, err := s.ReadEdges()
	if err != nil {
		return 0, err
	}
	kept := make([]store.Edge, 0, len(edges))
	for _, e := range edges {
		if store.IsChunkShaped(e.Source) {
			if _, statErr := os.Stat(filepath.Join(s.Root, filepath.FromSlash(e.Source))); os.IsNotExist(statErr) {
				removed++
				continue
			}
		}
		kept = append(kept, e)
	}
	if removed > 0 {
		if err := s.RewriteEdges(kept); err != nil {
			return removed, err
		}
	}
	return removed, nil
}

// GCReport is gc's result.
type GCReport struct {
	OrphanEdgesRemoved    int
	StaleProcessedRemoved int
}

// GC does everything Repair does, plus drops stale processed records.
func GC(s *store.Store) (GCReport, error) {
	var rpt GCReport

	removed, err := Repair(s)
	if err != nil {
		return rpt, err
	}
	rpt.OrphanEdgesRemoved = removed

	recs, err := s.ReadProcessed()
	if err != nil {
		return rpt, err
	}
	kept := make([]store.ProcessedRecord, 0, len(recs))
	for _, r := range recs {
		if _, statErr := os.Stat(r.Path); os.IsNotExist(statErr) {
			rpt.StaleProcessedRemoved++
			continue
		}
		kept = append(kept, r)
	}
	if rpt.StaleProcessedRemoved > 0 {
		if err := s.RewriteProcessed(kept); err != nil {
			return rpt, err
		}
	}
	return rpt, nil
}

// Reindex deletes a domain's embeddings.bin and manifest.tsv, then
// re-embeds every chunk file via prov. domain == "" reindexes every
// domain. prov must not be the none provider.
func Reindex(ctx context.Context, s *store.Store, prov provider.Provider, model, domain string) error {
	if prov == nil || prov.ModelName() == "none" {
		return ragerr.New(ragerr.KindProviderUnavailable, "reindex requires a configured, non-none embedding provider")
	}

	domains, err := domainsToReindex(s.Root, domain)
	if err != nil {
		return err
	}
	for _, dom := range domains {
		dir := filepath.Join(s.Root, dom)
		os.Remove(filepath.Join(dir, "embeddings.bin"))
		os.Remove(filepath.Join(dir, "manifest.tsv"))

		chunkPaths, texts, err := loadDomainChunks(s.Root, dir)
		if err != nil {
			return err
		}
		if len(chunkPaths) == 0 {
			continue
		}
		vectors, err := prov.Embed(ctx, texts)
		if err != nil {
			return ragerr.Wrap(err, "reindex embed")
		}
		if err := codec.Write(dir, vectors, chunkPaths, prov.Dimensions(), model, false); err != nil {
			return err
		}
	}
	return nil
}

func listDomains(root string) ([]string, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, err
	}
	var dirs []string
	for _, e := range entries {
		if e.IsDir() && e.Name()[0] != '.' {
			dirs = append(dirs, e.Name())
		}
	}
	return dirs, nil
}

func domainsToReindex(root, domain string) ([]string, error) {
	if domain != "" {
		return []string{domain}, nil
	}
	return listDomains(root)
}

func loadDomainChunks(root, domainDir string) (paths []string, texts []string, err error) {
	err = filepath.WalkDir(domainDir, func(path string, d os.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() || filepath.Ext(path) != ".txt" {
			return nil
		}
		data, readErr := os.ReadFile(path)
		if readErr != nil {
			return readErr
		}
		rel, relErr := filepath.Rel(root, path)
		if relErr != nil {
			return relErr
		}
		paths = append(paths, filepath.ToSlash(rel))
		texts = append(texts, string(data))
		return nil
	})
	return paths, texts, err
}
