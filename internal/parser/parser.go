// Package parser detects file types and extracts plain text from
// heterogeneous source documents for the ingest pipeline.
package parser

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"

	"github.com/kxddry/ragdag/internal/ragerr"
)

// FileType is one of the recognized document categories.
type FileType string

const (
	TypeMarkdown FileType = "markdown"
	TypeText     FileType = "text"
	TypePDF      FileType = "pdf"
	TypeHTML     FileType = "html"
	TypeDocx     FileType = "docx"
	TypeCSV      FileType = "csv"
	TypeJSON     FileType = "json"
	TypeCode     FileType = "code"
	TypeConfig   FileType = "config"
	TypeUnknown  FileType = "unknown"
)

var codeExts = map[string]bool{
	".py": true, ".js": true, ".ts": true, ".go": true, ".rs": true,
	".java": true, ".c": true, ".cpp": true, ".h": true, ".rb": true,
	".php": true, ".swift": true, ".kt": true, ".scala": true, ".sh": true,
	".bash": true, ".zsh": true, ".r": true, ".jl": true, ".lua": true, ".pl": true,
}

var configExts = map[string]bool{
	".ini": true, ".toml": true, ".cfg": true, ".conf": true, ".env": true,
}

// Detect returns the file's category based on its suffix. A missing or
// unknown suffix falls back to a best-effort content probe
// (probeByContent); a file that cannot be read or looks binary yields
// TypeUnknown.
func Detect(path string) FileType {
	ext := strings.ToLower(filepath.Ext(path))
	switch {
	case ext == ".md" || ext == ".markdown":
		return TypeMarkdown
	case ext == ".txt" || ext == ".text" || ext == ".log":
		return TypeText
	case codeExts[ext]:
		return TypeCode
	case ext == ".csv":
		return TypeCSV
	case ext == ".json" || ext == ".jsonl":
		return TypeJSON
	case ext == ".pdf":
		return TypePDF
	case ext == ".html" || ext == ".htm":
		return TypeHTML
	case ext == ".docx":
		return TypeDocx
	case configExts[ext]:
		return TypeConfig
	default:
		return probeByContent(path)
	}
}

// probeByContent is a best-effort fallback for unrecognised suffixes: it
// reads a small prefix and guesses text vs. binary. Absence of a
// confident signal yields TypeUnknown, never an error.
func probeByContent(path string) FileType {
	f, err := os.Open(path)
	if err != nil {
		return TypeUnknown
	}
	defer f.Close()
	buf := make([]byte, 512)
	n, _ := f.Read(buf)
	if n == 0 {
		return TypeUnknown
	}
	if bytes.ContainsRune(buf[:n], 0) {
		return TypeUnknown
	}
	return TypeText
}

// externalTimeout bounds pdftotext/pandoc invocations.
const externalTimeout = 30 * time.Second

// Parse extracts plain text from path according to its detected type.
func Parse(path string, ftype FileType) (string, error) {
	switch ftype {
	case TypeMarkdown:
		return parseMarkdown(path)
	case TypePDF:
		return parsePDF(path)
	case TypeHTML:
		return parseHTML(path)
	case TypeDocx:
		return parseDocx(path)
	case TypeCSV:
		return parseCSV(path)
	case TypeJSON:
		return parseJSON(path)
	default:
		return readLossyUTF8(path)
	}
}

func readLossyUTF8(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return strings.ToValidUTF8(string(data), "�"), nil
}

func parseMarkdown(path string) (string, error) {
	text, err := readLossyUTF8(path)
	if err != nil {
		return "", err
	}
	if strings.HasPrefix(text, "---") {
		if end := strings.Index(text[3:], "---"); end != -1 {
			text = strings.TrimLeft(text[3+end+3:], "\n")
		}
	}
	return text, nil
}

func parsePDF(path string) (string, error) {
	out, err := runExternal(externalTimeout, "pdftotext", path, "-")
	if err != nil || strings.TrimSpace(out) == "" {
		return "", ragerr.New(ragerr.KindParseUnavailable, fmt.Sprintf("pdftotext unavailable for %s", path))
	}
	return out, nil
}

var htmlSanitizer = bluemonday.StrictPolicy()

func parseHTML(path string) (string, error) {
	if out, err := runExternal(externalTimeout, "pandoc", "-t", "plain", path); err == nil && strings.TrimSpace(out) != "" {
		return out, nil
	}
	raw, err := readLossyUTF8(path)
	if err != nil {
		return "", err
	}
	stripped := htmlSanitizer.Sanitize(raw)
	return strings.Join(strings.Fields(stripped), " "), nil
}

func parseDocx(path string) (string, error) {
	out, err := runExternal(externalTimeout, "pandoc", "-t", "plain", path)
	if err != nil || strings.TrimSpace(out) == "" {
		return "", ragerr.New(ragerr.KindParseUnavailable, fmt.Sprintf("pandoc unavailable for %s", path))
	}
	return out, nil
}

func runExternal(timeout time.Duration, name string, args ...string) (string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	cmd := exec.CommandContext(ctx, name, args...)
	var out bytes.Buffer
	cmd.Stdout = &out
	if err := cmd.Run(); err != nil {
		return "", err
	}
	return out.String(), nil
}

func parseCSV(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	header, err := r.Read()
	if err != nil {
		return readLossyUTF8(path)
	}

	var b strings.Builder
	recordN := 1
	for {
		row, err := r.Read()
		if err != nil {
			break
		}
		fmt.Fprintf(&b, "--- Record %d ---\n", recordN)
		for i, val := range row {
			if val == "" || i >= len(header) {
				continue
			}
			fmt.Fprintf(&b, "%s: %s\n", header[i], strings.Trim(val, `"`))
		}
		recordN++
	}
	return strings.TrimRight(b.String(), "\n"), nil
}

func parseJSON(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	var v interface{}
	if err := json.Unmarshal(data, &v); err != nil {
		return string(data), nil
	}
	var lines []string
	flattenJSON(v, "", &lines)
	return strings.Join(lines, "\n"), nil
}

func flattenJSON(v interface{}, prefix string, out *[]string) {
	switch t := v.(type) {
	case map[string]interface{}:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			flattenJSON(t[k], prefix+k+".", out)
		}
	case []interface{}:
		for i, item := range t {
			flattenJSON(item, fmt.Sprintf("%s%d.", prefix, i), out)
		}
	default:
		*out = append(*out, fmt.Sprintf("%s: %v", strings.TrimSuffix(prefix, "."), t))
	}
}
