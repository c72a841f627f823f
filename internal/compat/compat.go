// Package compat holds small, dependency-free primitives shared across the
// store: sanitization, content hashing, token estimation and store discovery.
package compat

import (
	"crypto/sha256"
	"encoding/hex"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const storeDirName = ".ragdag"

// Sanitize returns the longest subsequence of characters from [a-z0-9._-]
// in s, after lowercasing. Any other rune is dropped, not replaced.
func Sanitize(s string) string {
	lower := strings.ToLower(s)
	var b strings.Builder
	b.Grow(len(lower))
	for _, r := range lower {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '.', r == '_', r == '-':
			b.WriteRune(r)
		}
	}
	return b.String()
}

// ContentHashFile streams a file's bytes to SHA-256 and returns lowercase hex.
func ContentHashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// ContentHashBytes hashes raw bytes directly, used where the caller already
// holds the source content in memory.
func ContentHashBytes(b []byte) string {
	h := sha256.Sum256(b)
	return hex.EncodeToString(h[:])
}

// TokenEstimate approximates a token count from whitespace-separated words.
// The formula is fixed by contract: callers relying on deterministic budgets
// must see the same number for the same text across implementations.
func TokenEstimate(text string) int {
	words := len(strings.Fields(text))
	return words * 13 / 10
}

// ISOTimestamp returns the current UTC time formatted as
// YYYY-MM-DDThh:mm:ssZ.
func ISOTimestamp() string {
	return time.Now().UTC().Format("2006-01-02T15:04:05Z")
}

// FindStore walks from dir upward through ancestors looking for a .ragdag
// child directory, returning its path. It fails if none is found before
// reaching the filesystem root.
func FindStore(dir string) (string, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", err
	}
	cur := abs
	for {
		candidate := filepath.Join(cur, storeDirName)
		if fi, err := os.Stat(candidate); err == nil && fi.IsDir() {
			return candidate, nil
		}
		parent := filepath.Dir(cur)
		if parent == cur {
			return "", os.ErrNotExist
		}
		cur = parent
	}
}

// StoreDirName returns the fixed name of the store root directory (".ragdag").
func StoreDirName() string { return storeDirName }
