// Package sidecar implements locating the
// JSON sidecar for a media file across the known Takeout mangling
// patterns. The attempted candidate paths are logged for diagnostics and
// only exact filesystem existence counts -- no heuristic match.
package sidecar

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"gphotoreorg/internal/filename"
)

// Match is the result of a successful lookup: the resolved sidecar path
// and the ordered list of candidate paths tried before it (for
// diagnostics "must be ... logged" requirement).
type Match struct {
	Path       string
	Attempts   []string
	Aggressive bool // true if found only via step 8 (try_hard cross-extension)
}

var parenSuffix = regexp.MustCompile(`^(.*)\((\d+)\)$`)

// exists is a tiny seam so tests can fake a filesystem without touching
// disk; production code always uses statExists.
type existsFunc func(string) bool

func statExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// Find locates the sidecar for mediaPath. tryHard enables step 8
// (aggressive cross-extension matching), used by the json_aggressive
// resolver and only then.
func Find(mediaPath string, tryHard bool) (*Match, bool) {
	return find(mediaPath, tryHard, statExists)
}

func find(mediaPath string, tryHard bool, exists existsFunc) (*Match, bool) {
	m := &Match{}
	if p, ok := tryBasicForms(mediaPath, m, exists); ok {
		return finish(m, p, false)
	}

	// Step 4: strip a trailing "(n)" from the stem and retry, then
	// reinsert "(n)" before the extension.
	if p, ok := tryParenStripped(mediaPath, m, exists); ok {
		return finish(m, p, false)
	}

	// Step 5: truncated basenames -- try each prefix of
	// "supplemental-metadata" down to length 1.
	if filename.IsLikelyTruncated(mediaPath) {
		if p, ok := tryTruncatedSupplemental(mediaPath, m, exists); ok {
			return finish(m, p, false)
		}
	}

	// Step 6: strip a known "extras" suffix from the stem and retry 1-5.
	if filename.HasExtrasSuffix(filepath.Base(mediaPath)) {
		stripped := filepath.Join(filepath.Dir(mediaPath), filename.StripExtrasSuffix(filepath.Base(mediaPath)))
		if p, ok := tryAllOf(stripped, m, exists); ok {
			return finish(m, p, false)
		}
	}

	// Step 7: strip a "partial extras" suffix and retry 1-5.
	if stripped, ok := filename.StripPartialExtrasSuffix(filepath.Base(mediaPath)); ok {
		full := filepath.Join(filepath.Dir(mediaPath), stripped)
		if p, ok := tryAllOf(full, m, exists); ok {
			return finish(m, p, false)
		}
	}

	// Step 8: aggressive cross-extension, try_hard only.
	if tryHard {
		if p, ok := tryAggressiveExtensions(mediaPath, m, exists); ok {
			return finish(m, p, true)
		}
	}

	logAttempts(mediaPath, m.Attempts, false)
	return nil, false
}

// tryAllOf re-runs steps 1-5 against an already-transformed path (used by
// steps 6 and 7, which strip extras suffixes before retrying).
func tryAllOf(path string, m *Match, exists existsFunc) (string, bool) {
	if p, ok := tryBasicForms(path, m, exists); ok {
		return p, true
	}
	if p, ok := tryParenStripped(path, m, exists); ok {
		return p, true
	}
	if filename.IsLikelyTruncated(path) {
		if p, ok := tryTruncatedSupplemental(path, m, exists); ok {
			return p, true
		}
	}
	return "", false
}

// tryBasicForms is steps 1-3: {path}.json, {path}.supplemental-metadata.json,
// {path}.supplemental-metadata(n).json for n in 1..9.
func tryBasicForms(path string, m *Match, exists existsFunc) (string, bool) {
	if p := attempt(path+".json", m, exists); p != "" {
		return p, true
	}
	if p := attempt(path+".supplemental-metadata.json", m, exists); p != "" {
		return p, true
	}
	for n := 1; n <= 9; n++ {
		cand := fmt.Sprintf("%s.supplemental-metadata(%d).json", path, n)
		if p := attempt(cand, m, exists); p != "" {
			return p, true
		}
	}
	return "", false
}

// tryParenStripped is step 4.
func tryParenStripped(path string, m *Match, exists existsFunc) (string, bool) {
	ext := filepath.Ext(path)
	stem := strings.TrimSuffix(path, ext)
	sub := parenSuffix.FindStringSubmatch(stem)
	if sub == nil {
		return "", false
	}
	bareStem := strings.TrimRight(sub[1], " ")
	n := sub[2]
	barePath := bareStem + ext
	// Each basic form is built from the bare path, and "(n)" is reinserted
	// before its extension; only that numbered name is checked on disk.
	numbered := func(cand string) bool { return exists(reinsertParen(cand, n)) }
	if p, ok := tryBasicForms(barePath, m, numbered); ok {
		return reinsertParen(p, n), true
	}
	return "", false
}

func reinsertParen(sidecarPath, n string) string {
	// sidecarPath looks like <base>.json or <base>.supplemental-metadata.json
	// etc; the "(n)" belongs on the media basename, not the sidecar, but
	// Takeout actually numbers the sidecar filename itself when the media
	// file was deduplicated by the OS, so we reinsert on the sidecar stem.
	ext := filepath.Ext(sidecarPath)
	stem := strings.TrimSuffix(sidecarPath, ext)
	return fmt.Sprintf("%s(%s)%s", stem, n, ext)
}

// tryTruncatedSupplemental is step 5: try each prefix of the literal
// string "supplemental-metadata" down to length 1, inserted between the
// media stem and ".json".
func tryTruncatedSupplemental(path string, m *Match, exists existsFunc) (string, bool) {
	const word = "supplemental-metadata"
	for n := len(word) - 1; n >= 1; n-- {
		cand := fmt.Sprintf("%s.%s.json", path, word[:n])
		if p := attempt(cand, m, exists); p != "" {
			return p, true
		}
	}
	return "", false
}

// tryAggressiveExtensions is step 8: substitute each common photo/video
// extension for the actual one and retry 1-5.
func tryAggressiveExtensions(mediaPath string, m *Match, exists existsFunc) (string, bool) {
	dir := filepath.Dir(mediaPath)
	stem := strings.TrimSuffix(filepath.Base(mediaPath), filepath.Ext(mediaPath))
	candidates := []string{
		".jpg", ".jpeg", ".heic", ".heif", ".png", ".mp4", ".mov", ".dng",
	}
	for _, ext := range candidates {
		altPath := filepath.Join(dir, stem+strings.ToUpper(ext))
		if p, ok := tryAllOf(altPath, m, exists); ok {
			return p, true
		}
		altPath = filepath.Join(dir, stem+ext)
		if p, ok := tryAllOf(altPath, m, exists); ok {
			return p, true
		}
	}
	return "", false
}

func attempt(candidate string, m *Match, exists existsFunc) string {
	m.Attempts = append(m.Attempts, candidate)
	if exists(candidate) {
		return candidate
	}
	return ""
}

func finish(m *Match, path string, aggressive bool) (*Match, bool) {
	m.Path = path
	m.Aggressive = aggressive
	logAttempts(path, m.Attempts, true)
	return m, true
}

func logAttempts(mediaPath string, attempts []string, found bool) {
	if !found {
		log.Printf("sidecar: no match for %s after %d attempts: %v", mediaPath, len(attempts), attempts)
		return
	}
	log.Printf("sidecar: matched %s after %d attempts: %v", mediaPath, len(attempts), attempts)
}
