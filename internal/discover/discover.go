// Package discover implements stage 2: walking the resolved Takeout tree,
// classifying each directory (year folder / album folder / special
// folder), matching each media file's sidecar, and building the initial
// one-file-per-FileEntity universe that stage 3 (dedup) merges. Grounded
// on a WalkDir-plus-GetPhotos style walk, generalized to carry
// album/year/special-folder provenance.
package discover

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gphotoreorg/internal/classify"
	"gphotoreorg/internal/domain"
	"gphotoreorg/internal/sidecar"
	"gphotoreorg/internal/sidecarjson"
)

// Stats are the counters the orchestrator folds into its report.
type Stats struct {
	MediaFound int
	DirsWalked int
}

// ResolveMediaRoot walks down from input to find the actual Google Photos
// subtree: "a directory containing either a
// `Takeout/Google Photos/` subtree or the Google Photos subtree directly".
func ResolveMediaRoot(input string) (string, error) {
	candidates := []string{
		filepath.Join(input, "Takeout", "Google Photos"),
		filepath.Join(input, "Google Photos"),
		input,
	}
	for _, c := range candidates {
		info, err := os.Stat(c)
		if err == nil && info.IsDir() {
			return c, nil
		}
	}
	return "", fmt.Errorf("path resolution: could not locate Google Photos subtree under %s", input)
}

// Run walks root (the resolved media root) and returns one FileEntity per
// discovered media file, with sidecar/album/year provenance attached. An
// I/O error on root itself is returned as an error; an empty result is
// not an error here and is turned into errkind.NoMediaFound (exit code
// 13) upstream.
func Run(root string) ([]*domain.FileEntity, Stats, error) {
	var stats Stats
	var files []*domain.FileEntity

	rootInfo, err := os.Stat(root)
	if err != nil {
		return nil, stats, fmt.Errorf("discover: root inaccessible: %w", err)
	}
	if !rootInfo.IsDir() {
		return nil, stats, fmt.Errorf("discover: root %s is not a directory", root)
	}

	err = filepath.Walk(root, func(path string, info os.FileInfo, walkErr error) error {
		if walkErr != nil {
			return fmt.Errorf("walking %s: %w", path, walkErr)
		}
		if info.IsDir() {
			stats.DirsWalked++
			return nil
		}
		if classify.IsJSONSidecar(path) || strings.HasPrefix(info.Name(), ".") {
			return nil
		}
		ext := filepath.Ext(path)
		if !classify.IsMediaExtension(ext) {
			return nil
		}

		fe := buildFileEntity(path, info, root)
		files = append(files, fe)
		stats.MediaFound++
		return nil
	})
	if err != nil {
		return nil, stats, fmt.Errorf("discover: walk failed: %w", err)
	}

	return files, stats, nil
}

func buildFileEntity(path string, info os.FileInfo, root string) *domain.FileEntity {
	fe := &domain.FileEntity{
		SourcePath: domain.NormalizedSourcePath(path),
		SourceDir:  filepath.Dir(path),
		Size:       info.Size(),
		ModTime:    info.ModTime(),
	}

	classifyFolder(fe, path, root)

	if m, ok := sidecar.Find(path, false); ok {
		fe.SidecarPath = m.Path
		if sc, err := sidecarjson.Load(m.Path); err == nil {
			fe.PartnerShared = sc.PartnerShared()
		}
	}

	return fe
}

// classifyFolder walks path's ancestor chain up to root, recording the
// first year/album/special folder encountered
func classifyFolder(fe *domain.FileEntity, path, root string) {
	dir := filepath.Dir(path)
	for dir != root && dir != "." && dir != string(filepath.Separator) {
		base := filepath.Base(dir)

		if special := classify.SpecialFolderName(base); special != "" {
			fe.SpecialFolder = special
			return
		}
		if classify.IsYearFolder(base) {
			fe.FromYearFolder = true
			return
		}
		if !classify.IsHiddenOrSystem(base) && dir != root {
			// An album folder is any non-special, non-year, non-hidden
			// directory that is a direct or indirect parent; the
			// top-level directory directly under root is recorded as the
			// album (for Takeout's flat one-level album layout that is
			// also the immediate parent).
			if filepath.Dir(dir) == root || fe.AlbumName == "" {
				fe.AlbumName = base
				fe.AlbumSourceDir = dir
			}
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
}
