// Package store implements the on-disk store layout: chunk placement,
// the processed log, the edge log and domain rules.
package store

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"sync"

	"github.com/kxddry/ragdag/internal/chunker"
	"github.com/kxddry/ragdag/internal/compat"
	"github.com/kxddry/ragdag/internal/config"
	"github.com/kxddry/ragdag/internal/logging"
	"github.com/kxddry/ragdag/internal/ragerr"
)

// Edge is one row of the edge log.
type Edge struct {
	Source   string
	Target   string
	Type     string
	Metadata string
}

// Recognized edge types . The set is open: unknown types are
// stored verbatim by AppendEdges.
const (
	EdgeChunkedFrom = "chunked_from"
	EdgeDerivedVia  = "derived_via"
	EdgeRelatedTo   = "related_to"
	EdgeReferences  = "references"
	EdgeRetrieved   = "retrieved"
)

// ProcessedRecord is one row of the processed log.
type ProcessedRecord struct {
	Path      string
	Hash      string
	Domain    string
	Timestamp string
}

const edgesHeader = "# source\ttarget\tedge_type\tmetadata"
const processedHeader = "# source_path\tcontent_hash\tdomain\ttimestamp"
const domainRulesHeader = "# .domain-rules"

var chunkNamePattern = regexp.MustCompile(`^\d+\.txt$`)

// IsChunkShaped reports whether relPath's basename looks like a chunk file
// (NN.txt), the shape maintenance uses to decide whether a node is
// verifiable against the filesystem.
func IsChunkShaped(relPath string) bool {
	return chunkNamePattern.MatchString(filepath.Base(relPath))
}

// Store wraps a single .ragdag root directory. Concurrent writers on the
// same Store are serialized through mu, per the recommendation of a
// coarse store-level mutex; cross-process concurrency is out of scope.
type Store struct {
	Root string
	mu   sync.Mutex
}

// Init creates a new .ragdag store rooted at parentDir, writing config
// defaults and empty logs with header comments. Idempotent: existing files
// are left untouched.
func Init(parentDir string) (*Store, error) {
	root := filepath.Join(parentDir, compat.StoreDirName())
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, err
	}
	s := &Store{Root: root}

	if _, err := os.Stat(s.ConfigPath()); os.IsNotExist(err) {
		if err := config.WriteDefaults(s.ConfigPath()); err != nil {
			return nil, err
		}
	}
	for path, header := range map[string]string{
		s.EdgesPath():       edgesHeader,
		s.ProcessedPath():   processedHeader,
		s.DomainRulesPath(): domainRulesHeader,
	} {
		if _, err := os.Stat(path); os.IsNotExist(err) {
			if err := os.WriteFile(path, []byte(header+"\n"), 0o644); err != nil {
				return nil, err
			}
		}
	}
	return s, nil
}

// Open wraps an existing .ragdag directory without touching its contents.
func Open(ragdagRoot string) *Store {
	return &Store{Root: ragdagRoot}
}

func (s *Store) ConfigPath() string       { return filepath.Join(s.Root, ".config") }
func (s *Store) EdgesPath() string        { return filepath.Join(s.Root, ".edges") }
func (s *Store) ProcessedPath() string    { return filepath.Join(s.Root, ".processed") }
func (s *Store) DomainRulesPath() string  { return filepath.Join(s.Root, ".domain-rules") }
func (s *Store) DomainDir(domain string) string {
	if domain == "" {
		return s.Root
	}
	return filepath.Join(s.Root, domain)
}

// ---------------------------------------------------------------------
// Edge log
// ---------------------------------------------------------------------

// ReadEdges returns every non-header, non-blank edge log row.
func (s *Store) ReadEdges() ([]Edge, error) {
	f, err := os.Open(s.EdgesPath())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	defer f.Close()

	var edges []Edge
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 8*1024*1024)
	for sc.Scan() {
		line := sc.Text()
		if strings.HasPrefix(line, "#") || strings.TrimSpace(line) == "" {
			continue
		}
		parts := strings.Split(line, "\t")
		if len(parts) < 3 {
			continue
		}
		e := Edge{Source: parts[0], Target: parts[1], Type: parts[2]}
		if len(parts) > 3 {
			e.Metadata = parts[3]
		}
		edges = append(edges, e)
	}
	return edges, sc.Err()
}

// AppendEdges appends new rows to the edge log, holding the store's write
// lock for the duration of the append to preserve line integrity under
// concurrent ingest.
func (s *Store) AppendEdges(edges []Edge) error {
	if len(edges) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	f, err := os.OpenFile(s.EdgesPath(), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()
	w := bufio.NewWriter(f)
	for _, e := range edges {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", e.Source, e.Target, e.Type, e.Metadata)
	}
	return w.Flush()
}

// RewriteEdges replaces the entire edge log contents atomically
// (write-temp-then-rename), used by repair and gc. Ingest's chunked_from
// replacement rewrites the log through replaceChunkedFromEdges instead.
func (s *Store) RewriteEdges(edges []Edge) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	var b strings.Builder
	b.WriteString(edgesHeader)
	b.WriteByte('\n')
	for _, e := range edges {
		fmt.Fprintf(&b, "%s\t%s\t%s\t%s\n", e.Source, e.Target, e.Type, e.Metadata)
	}
	return writeFileAtomic(s.EdgesPath(), []byte(b.String()))
}

// replaceChunkedFromEdges removes prior chunked_from edges whose target
// equals absSource, then appends fresh ones for the given chunk relative
// paths. Preserves every edge of any other type or source (step 4).
func (s *Store) replaceChunkedFromEdges(absSource string, chunkRelPaths []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, err := s.readEdgesLocked()
	if err != nil {
		return err
	}
	kept := existing[:0]
	for _, e := range existing {
		if e.Target == absSource && e.Type == EdgeChunkedFrom {
			continue
		}
		kept = append(kept, e)
	}
	for _, rel := range chunkRelPaths {
		kept = append(kept, Edge{Source: rel, Target: absSource, Type: EdgeChunkedFrom})
	}

	var b strings.Builder
	b.WriteString(edgesHeader)
	b.WriteByte('\n')
	for _, e := range kept {
		fmt.Fprintf(&b, "%s\t%s\t%s\t%s\n", e.Source, e.Target, e.Type, e.Metadata)
	}
	return writeFileAtomic(s.EdgesPath(), []byte(b.String()))
}

func (s *Store) readEdgesLocked() ([]Edge, error) {
	f, err := os.Open(s.EdgesPath())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	defer f.Close()
	var edges []Edge
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 8*1024*1024)
	for sc.Scan() {
		line := sc.Text()
		if strings.HasPrefix(line, "#") || strings.TrimSpace(line) == "" {
			continue
		}
		parts := strings.Split(line, "\t")
		if len(parts) < 3 {
			continue
		}
		e := Edge{Source: parts[0], Target: parts[1], Type: parts[2]}
		if len(parts) > 3 {
			e.Metadata = parts[3]
		}
		edges = append(edges, e)
	}
	return edges, sc.Err()
}

// ---------------------------------------------------------------------
// Processed log
// ---------------------------------------------------------------------

// ReadProcessed returns every processed-log record.
func (s *Store) ReadProcessed() ([]ProcessedRecord, error) {
	f, err := os.Open(s.ProcessedPath())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	defer f.Close()
	var recs []ProcessedRecord
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 8*1024*1024)
	for sc.Scan() {
		line := sc.Text()
		if strings.HasPrefix(line, "#") || strings.TrimSpace(line) == "" {
			continue
		}
		parts := strings.Split(line, "\t")
		if len(parts) < 4 {
			continue
		}
		recs = append(recs, ProcessedRecord{Path: parts[0], Hash: parts[1], Domain: parts[2], Timestamp: parts[3]})
	}
	return recs, sc.Err()
}

// IsProcessed reports whether absPath was already ingested with exactly
// contentHash. The comparison is exact field equality, never substring.
func (s *Store) IsProcessed(absPath, contentHash string) (bool, error) {
	recs, err := s.ReadProcessed()
	if err != nil {
		return false, err
	}
	for _, r := range recs {
		if r.Path == absPath && r.Hash == contentHash {
			return true, nil
		}
	}
	return false, nil
}

// RecordProcessed removes any prior record for absPath and appends a fresh
// one, rewriting the log atomically.
func (s *Store) RecordProcessed(absPath, contentHash, domain string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	recs, err := s.readProcessedLocked()
	if err != nil {
		return err
	}
	kept := recs[:0]
	for _, r := range recs {
		if r.Path == absPath {
			continue
		}
		kept = append(kept, r)
	}
	kept = append(kept, ProcessedRecord{Path: absPath, Hash: contentHash, Domain: domain, Timestamp: compat.ISOTimestamp()})

	var b strings.Builder
	b.WriteString(processedHeader)
	b.WriteByte('\n')
	for _, r := range kept {
		fmt.Fprintf(&b, "%s\t%s\t%s\t%s\n", r.Path, r.Hash, r.Domain, r.Timestamp)
	}
	return writeFileAtomic(s.ProcessedPath(), []byte(b.String()))
}

// RewriteProcessed replaces the entire processed log, used by gc.
func (s *Store) RewriteProcessed(recs []ProcessedRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	var b strings.Builder
	b.WriteString(processedHeader)
	b.WriteByte('\n')
	for _, r := range recs {
		fmt.Fprintf(&b, "%s\t%s\t%s\t%s\n", r.Path, r.Hash, r.Domain, r.Timestamp)
	}
	return writeFileAtomic(s.ProcessedPath(), []byte(b.String()))
}

func (s *Store) readProcessedLocked() ([]ProcessedRecord, error) {
	f, err := os.Open(s.ProcessedPath())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	defer f.Close()
	var recs []ProcessedRecord
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 8*1024*1024)
	for sc.Scan() {
		line := sc.Text()
		if strings.HasPrefix(line, "#") || strings.TrimSpace(line) == "" {
			continue
		}
		parts := strings.Split(line, "\t")
		if len(parts) < 4 {
			continue
		}
		recs = append(recs, ProcessedRecord{Path: parts[0], Hash: parts[1], Domain: parts[2], Timestamp: parts[3]})
	}
	return recs, sc.Err()
}

// ---------------------------------------------------------------------
// Domain rules
// ---------------------------------------------------------------------

// domainRuleArrow is the literal separator used by .domain-rules lines.
const domainRuleArrow = "→"

// ApplyDomainRules returns the domain assigned to absSourcePath by the
// first matching rule in .domain-rules, or "" if none match.
func (s *Store) ApplyDomainRules(absSourcePath string) (string, error) {
	data, err := os.ReadFile(s.DomainRulesPath())
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", err
	}
	sourceLower := strings.ToLower(absSourcePath)
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if !strings.Contains(line, domainRuleArrow) {
			continue
		}
		patternsStr, domainStr, _ := strings.Cut(line, domainRuleArrow)
		domainStr = strings.TrimSpace(domainStr)
		if domainStr == "" {
			continue
		}
		for _, pattern := range strings.Fields(patternsStr) {
			pattern = strings.ToLower(strings.TrimSpace(pattern))
			if pattern != "" && strings.Contains(sourceLower, pattern) {
				return domainStr, nil
			}
		}
	}
	return "", nil
}

// ---------------------------------------------------------------------
// Ingest
// ---------------------------------------------------------------------

// IngestResult reports what IngestDocument did.
type IngestResult struct {
	RelDocPath string
	Chunks     int
}

// IngestDocument performs the stage-then-replace atomic chunk placement,
// then updates the processed log and chunked_from edges. text is the
// already-parsed document body; domain may
// be "" for flat mode.
func (s *Store) IngestDocument(absSourcePath, domain, docName, contentHash, text, strategy string, chunkSize, overlap int, log logging.Logger) (IngestResult, error) {
	targetDir := filepath.Join(s.DomainDir(domain), docName)
	parentDir := filepath.Dir(targetDir)
	if err := os.MkdirAll(parentDir, 0o755); err != nil {
		return IngestResult{}, err
	}

	stagingDir, err := os.MkdirTemp(parentDir, filepath.Base(targetDir)+".new-")
	if err != nil {
		return IngestResult{}, err
	}
	defer os.RemoveAll(stagingDir)

	count, err := chunker.WriteChunks(text, stagingDir, strategy, chunkSize, overlap, log)
	if err != nil {
		return IngestResult{}, err
	}

	if err := replaceDocumentDir(targetDir, stagingDir); err != nil {
		return IngestResult{}, err
	}

	if err := s.RecordProcessed(absSourcePath, contentHash, domain); err != nil {
		return IngestResult{}, ragerr.Wrap(err, "record processed")
	}

	relDoc, err := filepath.Rel(s.Root, targetDir)
	if err != nil {
		return IngestResult{}, err
	}
	chunkRelPaths, err := chunkFiles(targetDir, relDoc)
	if err != nil {
		return IngestResult{}, err
	}
	if err := s.replaceChunkedFromEdges(absSourcePath, chunkRelPaths); err != nil {
		return IngestResult{}, ragerr.Wrap(err, "replace chunked_from edges")
	}

	return IngestResult{RelDocPath: relDoc, Chunks: count}, nil
}

// replaceDocumentDir implements step 2: if target exists, delete
// its *.txt files and move the staged ones into place; otherwise rename
// staging to target directly. Either way, after successful return the
// chunk set is exactly the new one, or on failure the previous set remains.
func replaceDocumentDir(targetDir, stagingDir string) error {
	if _, err := os.Stat(targetDir); os.IsNotExist(err) {
		return os.Rename(stagingDir, targetDir)
	} else if err != nil {
		return err
	}

	oldTxt, err := filepath.Glob(filepath.Join(targetDir, "*.txt"))
	if err != nil {
		return err
	}
	newTxt, err := filepath.Glob(filepath.Join(stagingDir, "*.txt"))
	if err != nil {
		return err
	}
	for _, f := range oldTxt {
		if err := os.Remove(f); err != nil {
			return err
		}
	}
	for _, f := range newTxt {
		if err := os.Rename(f, filepath.Join(targetDir, filepath.Base(f))); err != nil {
			return err
		}
	}
	return nil
}

func chunkFiles(dir, relDoc string) ([]string, error) {
	entries, err := filepath.Glob(filepath.Join(dir, "*.txt"))
	if err != nil {
		return nil, err
	}
	sort.Strings(entries)
	rels := make([]string, 0, len(entries))
	for _, e := range entries {
		rels = append(rels, filepath.ToSlash(filepath.Join(relDoc, filepath.Base(e))))
	}
	return rels, nil
}

func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return err
	}
	return os.Rename(tmpPath, path)
}
