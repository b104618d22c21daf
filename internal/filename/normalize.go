// Package filename implements stripping
// localized "-edited" suffixes (NFC-safe), recognizing Takeout's 51-char
// truncation, and emoji hex-encoding directory names for filesystem
// safety. NFC normalization is grounded on mutagen's scan.go use of
// golang.org/x/text/unicode/norm for filename comparison.
package filename

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// TakeoutMaxBasenameLen is the truncation limit Google Takeout applies to
// exported filenames.
const TakeoutMaxBasenameLen = 51

// extrasSuffixes are localized "-edited" suffixes, always
// matched against the NFC-normalized, lowercased stem.
var extrasSuffixes = []string{
	"-edited",      // English
	"-bearbeitet",  // German
	"-bewerkt",     // Dutch
	"-edytowane",   // Polish
	"-編集済み",        // Japanese
	"-编辑过",         // Chinese
	"-modificato",  // Italian
	"-modifié",     // French
	"-editado",     // Spanish / Catalan
	"-edité",       // French alt
}

// ExtrasSuffixes exposes the canonical list, e.g. for aggressive sidecar
// matching that needs to try each one explicitly.
func ExtrasSuffixes() []string {
	out := make([]string, len(extrasSuffixes))
	copy(out, extrasSuffixes)
	return out
}

// nfcLower normalizes s to NFC and lowercases it, so `Foto-modificato.jpg`
// in NFD form still matches the NFC suffix table.
func nfcLower(s string) string {
	return strings.ToLower(norm.NFC.String(s))
}

// HasExtrasSuffix reports whether base's stem (sans extension) ends with
// one of the localized "-edited" suffixes.
func HasExtrasSuffix(base string) bool {
	ext := filepath.Ext(base)
	stem := nfcLower(strings.TrimSuffix(base, ext))
	for _, suf := range extrasSuffixes {
		if strings.HasSuffix(stem, suf) {
			return true
		}
	}
	return false
}

// StripExtrasSuffix removes a recognized "-edited" suffix from base's
// stem, preserving the extension and the file's original casing outside
// the matched suffix span. Returns base unchanged if no suffix matches.
func StripExtrasSuffix(base string) string {
	ext := filepath.Ext(base)
	rawStem := strings.TrimSuffix(base, ext)
	stem := nfcLower(rawStem)
	for _, suf := range extrasSuffixes {
		if strings.HasSuffix(stem, suf) {
			cut := len(rawStem) - len(suf)
			if cut < 0 {
				cut = 0
			}
			return rawStem[:cut] + ext
		}
	}
	return base
}

// PartialExtrasSuffix detects a suffix truncated by Takeout's 51-char
// limit: a non-empty prefix of "-edited" (or any localized variant) left
// dangling at the very end of the stem, e.g. "-ed" or "-edit" as a
// prefix of "-edited". Returns the matched partial suffix and true.
func PartialExtrasSuffix(base string) (string, bool) {
	ext := filepath.Ext(base)
	stem := nfcLower(strings.TrimSuffix(base, ext))
	for _, suf := range extrasSuffixes {
		for n := len(suf) - 1; n >= 3; n-- { // require at least "-ed"-length overlap
			partial := suf[:n]
			if strings.HasSuffix(stem, partial) {
				return partial, true
			}
		}
	}
	return "", false
}

// StripPartialExtrasSuffix removes a detected partial "-edited" suffix
// from base's stem.
func StripPartialExtrasSuffix(base string) (string, bool) {
	partial, ok := PartialExtrasSuffix(base)
	if !ok {
		return base, false
	}
	ext := filepath.Ext(base)
	rawStem := strings.TrimSuffix(base, ext)
	cut := len(rawStem) - len(partial)
	if cut < 0 {
		cut = 0
	}
	return rawStem[:cut] + ext, true
}

// commonExtensions is the small re-guess set used when a trailing
// extension itself looks truncated.
var commonExtensions = []string{".jpg", ".jpeg", ".png", ".heic", ".mp4", ".mov", ".gif"}

// GuessTruncatedExtension returns a plausible extension when ext looks
// like a partial prefix of one of the common extensions (e.g. ".jp" from
// ".jpg" cut by the 51-char limit).
func GuessTruncatedExtension(ext string) (string, bool) {
	ext = strings.ToLower(ext)
	if ext == "" {
		return "", false
	}
	for _, full := range commonExtensions {
		if full == ext {
			return ext, true
		}
		if strings.HasPrefix(full, ext) && len(ext) >= 2 {
			return full, true
		}
	}
	return "", false
}

// IsLikelyTruncated reports whether path's basename, when the Takeout
// supplemental-metadata suffix is appended, would exceed 51 characters --
// the condition step 5 and S3 key off of.
func IsLikelyTruncated(path string) bool {
	base := filepath.Base(path)
	return len(base)+len(".supplemental-metadata.json") > TakeoutMaxBasenameLen
}

// --- emoji encoding ---

// emojiEncodingPattern matches a run of one or more emoji-encoded
// codepoints so decoding can be applied at output time.
var emojiEncodingPattern = regexp.MustCompile(`_0x([0-9A-Fa-f]+)_`)

// isBMPSafe reports whether r is ASCII-Latin-safe for all target
// filesystems (NTFS/APFS/ext4), i.e. does not need encoding.
func isBMPSafe(r rune) bool {
	if r > unicode.MaxLatin1 {
		return false
	}
	switch r {
	case '/', '\\', ':', '*', '?', '"', '<', '>', '|':
		return false
	}
	return true
}

// EncodeForFilesystem replaces every non-BMP-safe code point in name with
// a deterministic "_0xNNNN_" hex run, so the directory can be created
// safely on any output filesystem. The transform is reversible via
// DecodeForDisplay. Input directories are never mutated by this function;
// callers apply it only to in-process working names.
func EncodeForFilesystem(name string) string {
	var b strings.Builder
	for _, r := range name {
		if isBMPSafe(r) {
			b.WriteRune(r)
		} else {
			fmt.Fprintf(&b, "_0x%X_", r)
		}
	}
	return b.String()
}

// DecodeForDisplay reverses EncodeForFilesystem, restoring original
// folder names on final output.
func DecodeForDisplay(name string) string {
	return emojiEncodingPattern.ReplaceAllStringFunc(name, func(m string) string {
		sub := emojiEncodingPattern.FindStringSubmatch(m)
		if sub == nil {
			return m
		}
		var r rune
		for _, c := range sub[1] {
			v := hexDigit(c)
			if v < 0 {
				return m
			}
			r = r*16 + rune(v)
		}
		return string(r)
	})
}

func hexDigit(c rune) int {
	switch {
	case c >= '0' && c <= '9':
		return int(c - '0')
	case c >= 'a' && c <= 'f':
		return int(c-'a') + 10
	case c >= 'A' && c <= 'F':
		return int(c-'A') + 10
	default:
		return -1
	}
}
