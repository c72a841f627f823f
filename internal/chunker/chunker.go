// Package chunker splits parsed document text into ordered chunk files
// using one of four size/overlap-aware strategies.
package chunker

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/kxddry/ragdag/internal/logging"
)

// Strategy names recognized by Split/WriteChunks.
const (
	Heading   = "heading"
	Paragraph = "paragraph"
	Fixed     = "fixed"
	Function  = "function"
)

// AutoSelect returns the chunking strategy ingest should use for a given
// file type, falling back to the configured default for anything not
// explicitly named.
func AutoSelect(fileType, configuredDefault string) string {
	switch fileType {
	case "markdown":
		return Heading
	case "code":
		return Function
	default:
		return configuredDefault
	}
}

var functionBoundary = regexp.MustCompile(`^(def |class |function |const |let |var |export |pub fn |fn |func )`)

// Split divides text into chunk strings per strategy, chunkSize and
// overlap (both in characters). Empty-after-trim chunks are dropped.
// Unknown strategies fall back to Fixed, with a warning through log.
func Split(text, strategy string, chunkSize, overlap int, log logging.Logger) []string {
	switch strategy {
	case Heading:
		return splitBoundary(text, chunkSize, overlap, func(line string) bool {
			return strings.HasPrefix(line, "#")
		})
	case Paragraph:
		return splitParagraph(text, chunkSize, overlap)
	case Fixed:
		return splitFixed(text, chunkSize, overlap)
	case Function:
		return splitFunction(text, chunkSize, overlap)
	default:
		if log != nil {
			log.Warn("chunker: unknown strategy %q, falling back to fixed", strategy)
		}
		return splitFixed(text, chunkSize, overlap)
	}
}

// splitBoundary implements the shared heading-style algorithm: flush on a
// line matching isBoundary, or when the buffer reaches chunkSize.
func splitBoundary(text string, chunkSize, overlap int, isBoundary func(string) bool) []string {
	lines := strings.Split(text, "\n")
	var chunks []string
	var buffer []string
	bufLen := 0

	flush := func() string {
		joined := strings.Join(buffer, "\n")
		if strings.TrimSpace(joined) != "" {
			chunks = append(chunks, joined)
		}
		return joined
	}

	for _, line := range lines {
		if isBoundary(line) && bufLen > 0 {
			joined := flush()
			if overlap > 0 {
				tail := lastNChars(joined, overlap)
				buffer = []string{tail, line}
			} else {
				buffer = []string{line}
			}
			bufLen = sumLen(buffer)
			continue
		}
		buffer = append(buffer, line)
		bufLen += len(line) + 1

		if bufLen >= chunkSize {
			joined := flush()
			if overlap > 0 {
				buffer = []string{lastNChars(joined, overlap)}
			} else {
				buffer = nil
			}
			bufLen = sumLen(buffer)
		}
	}
	if len(buffer) > 0 {
		flush()
	}
	return chunks
}

func splitFunction(text string, chunkSize, overlap int) []string {
	lines := strings.Split(text, "\n")
	var chunks []string
	var buffer []string
	bufLen := 0

	flush := func() string {
		joined := strings.Join(buffer, "\n")
		if strings.TrimSpace(joined) != "" {
			chunks = append(chunks, joined)
		}
		return joined
	}

	for _, line := range lines {
		isBoundary := functionBoundary.MatchString(strings.TrimLeft(line, " \t"))
		if isBoundary && bufLen > 0 {
			joined := flush()
			if overlap > 0 {
				buffer = []string{lastNChars(joined, overlap), line}
			} else {
				buffer = []string{line}
			}
			bufLen = sumLen(buffer)
			continue
		}
		buffer = append(buffer, line)
		bufLen += len(line) + 1

		if bufLen >= 2*chunkSize {
			joined := flush()
			if overlap > 0 {
				buffer = []string{lastNChars(joined, overlap)}
			} else {
				buffer = nil
			}
			bufLen = sumLen(buffer)
		}
	}
	if len(buffer) > 0 {
		flush()
	}
	return chunks
}

func splitParagraph(text string, chunkSize, overlap int) []string {
	paragraphs := regexp.MustCompile(`\n\s*\n`).Split(text, -1)
	var chunks []string
	buffer := ""

	for _, para := range paragraphs {
		para = strings.TrimSpace(para)
		if para == "" {
			continue
		}
		switch {
		case buffer != "" && len(buffer)+len(para)+2 > chunkSize:
			chunks = append(chunks, buffer)
			if overlap > 0 {
				buffer = lastNChars(buffer, overlap) + "\n\n" + para
			} else {
				buffer = para
			}
		case buffer != "":
			buffer += "\n\n" + para
		default:
			buffer = para
		}
	}
	if strings.TrimSpace(buffer) != "" {
		chunks = append(chunks, buffer)
	}
	return chunks
}

func splitFixed(text string, chunkSize, overlap int) []string {
	var chunks []string
	runes := []rune(text)
	textLen := len(runes)
	effectiveOverlap := overlap
	if chunkSize > 1 && effectiveOverlap > chunkSize-1 {
		effectiveOverlap = chunkSize - 1
	} else if chunkSize <= 1 {
		effectiveOverlap = 0
	}

	start := 0
	for start < textLen {
		end := start + chunkSize
		if end > textLen {
			end = textLen
		}
		chunk := string(runes[start:end])
		if strings.TrimSpace(chunk) != "" {
			chunks = append(chunks, chunk)
		}
		if end == textLen {
			break
		}
		start = end - effectiveOverlap
	}
	return chunks
}

func lastNChars(s string, n int) string {
	runes := []rune(s)
	if n >= len(runes) {
		return s
	}
	if n <= 0 {
		return ""
	}
	return string(runes[len(runes)-n:])
}

func sumLen(parts []string) int {
	total := 0
	for _, p := range parts {
		total += len(p) + 1
	}
	return total
}

// WriteChunks splits text and writes it as sequential NN.txt files into
// outDir, returning the number of files written. Padding widens beyond two
// digits when the chunk count requires it, remaining readable by any
// %0Nd-agnostic glob of *.txt.
func WriteChunks(text, outDir, strategy string, chunkSize, overlap int, log logging.Logger) (int, error) {
	parts := Split(text, strategy, chunkSize, overlap, log)
	if len(parts) == 0 {
		if strings.TrimSpace(text) == "" {
			return 0, nil
		}
		parts = []string{text}
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return 0, err
	}
	width := padWidth(len(parts))
	for i, part := range parts {
		name := fmt.Sprintf("%0*d.txt", width, i+1)
		if err := os.WriteFile(filepath.Join(outDir, name), []byte(part), 0o644); err != nil {
			return i, err
		}
	}
	return len(parts), nil
}

// padWidth returns the zero-pad width for count files: at least 2 digits,
// widened to digits(count)+1 when count needs more room.
func padWidth(count int) int {
	if count <= 99 {
		return 2
	}
	return len(fmt.Sprintf("%d", count)) + 1
}
