// Package extfix implements stage 1, extension repair: sniffing a file's
// true MIME type from its header bytes and renaming the extension (and
// its paired JSON sidecar) when it disagrees with what the file actually
// is. Per, per-file failures are logged
// and counted; the stage only fails outright if the whole input is
// inaccessible.
package extfix

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"gphotoreorg/internal/classify"
	"gphotoreorg/internal/config"
)

// Stats are the counters the orchestrator folds into its final report.
type Stats struct {
	Scanned int
	Fixed   int
	Failed  int
}

// Run walks root and repairs extensions according to mode:
//   - none: no-op.
//   - solo: fix only files with no sidecar (the safest mode: nothing else
//     needs to be kept in sync).
//   - conservative: fix only when the sniffed MIME has an unambiguous,
//     single canonical extension.
//   - standard: fix whenever the sniffed MIME disagrees with the current
//     extension, renaming any paired sidecar alongside it.
func Run(root string, mode config.ExtensionFixing) (Stats, error) {
	var stats Stats
	if mode == config.FixNone {
		return stats, nil
	}

	rootInfo, err := os.Stat(root)
	if err != nil {
		return stats, fmt.Errorf("extfix: input root inaccessible: %w", err)
	}
	if !rootInfo.IsDir() {
		return stats, fmt.Errorf("extfix: input root %s is not a directory", root)
	}

	err = filepath.Walk(root, func(path string, info os.FileInfo, walkErr error) error {
		if walkErr != nil {
			log.Printf("extfix: walk error at %s: %v", path, walkErr)
			stats.Failed++
			return nil
		}
		if info.IsDir() || classify.IsJSONSidecar(path) {
			return nil
		}
		ext := filepath.Ext(path)
		if !classify.IsMediaExtension(ext) {
			return nil
		}
		stats.Scanned++

		fixed, err := fixOne(path, ext, mode)
		if err != nil {
			log.Printf("extfix: %s: %v", path, err)
			stats.Failed++
			return nil
		}
		if fixed {
			stats.Fixed++
		}
		return nil
	})
	if err != nil {
		return stats, fmt.Errorf("extfix: walking %s: %w", root, err)
	}
	return stats, nil
}

func fixOne(path, currentExt string, mode config.ExtensionFixing) (bool, error) {
	hasSidecar := hasJSONSidecar(path)
	if mode == config.FixSolo && hasSidecar {
		return false, nil
	}

	mime := classify.SniffFile(path)
	wantExt := classify.ExtensionForMIME(mime)
	if wantExt == "" {
		return false, nil // unrecognized signature: leave alone
	}
	if strings.EqualFold(wantExt, currentExt) {
		return false, nil
	}
	if mode == config.FixConservative && !unambiguousMIME(mime) {
		return false, nil
	}

	newPath := strings.TrimSuffix(path, currentExt) + wantExt
	if _, err := os.Stat(newPath); err == nil {
		return false, fmt.Errorf("rename target %s already exists", newPath)
	}
	if err := os.Rename(path, newPath); err != nil {
		return false, fmt.Errorf("renaming media file: %w", err)
	}

	if hasSidecar {
		oldSidecar := path + ".json"
		newSidecar := newPath + ".json"
		if _, err := os.Stat(oldSidecar); err == nil {
			if err := os.Rename(oldSidecar, newSidecar); err != nil {
				return true, fmt.Errorf("renaming paired sidecar: %w", err)
			}
		}
	}
	return true, nil
}

func hasJSONSidecar(path string) bool {
	_, err := os.Stat(path + ".json")
	return err == nil
}

// unambiguousMIME reports whether a sniffed MIME type maps to exactly one
// plausible extension with no video/container overlap (conservative mode
// only fixes these two-tier recognition design).
func unambiguousMIME(m classify.MIME) bool {
	switch m {
	case classify.MIMEJPEG, classify.MIMEPNG, classify.MIMEGIF, classify.MIMETIFF, classify.MIMEHEIF, classify.MIMEWebP:
		return true
	default:
		return false
	}
}
