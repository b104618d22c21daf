// Package move implements the five album-handling placement strategies
// that turn a merged MediaEntity set into physical files (and,
// depending on strategy, shortcuts or physical copies) under the output
// tree. Grounded on a Copy/AddPhoto pattern (MkdirAll-then-copy,
// idempotent collision suffixing via an isFilenameBetter-style sibling
// check), generalized from a single flat "year/month-day" layout into
// five placement strategies and several date-division levels.
package move

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"sync"

	"gphotoreorg/internal/config"
	"gphotoreorg/internal/domain"
	"gphotoreorg/internal/filename"
	"gphotoreorg/internal/pool"
)

// Stats are the counters the orchestrator folds into its final report.
type Stats struct {
	Moved           int
	Copied          int
	Shortcuts       int
	Duplicates      int
	LeftInInput     int
	CollisionsSeen  int
}

const (
	allPhotosDir    = "ALL_PHOTOS"
	albumsDir       = "Albums"
	partnerSharedDir = "PARTNER_SHARED"
	duplicatesDir   = "_Duplicates"
	dateUnknownDir  = "date-unknown"
)

// Run materializes entities under cfg.Output according to cfg.AlbumBehavior
// and cfg.DateDivision, writes albums-info.json itself under the "json"
// strategy, and returns the aggregated Stats together with the first
// per-entity error.
func Run(entities []*domain.MediaEntity, cfg *config.Config, pools *pool.Set) (Stats, error) {
	var stats Stats
	var statsMu sync.Mutex
	dirLocks := newDirLockSet()

	var wg sync.WaitGroup
	var firstErr error
	var errMu sync.Mutex

	p := pools.Get(pool.FileIO)
	ctx := context.Background()

	for _, m := range entities {
		m := m
		if err := p.Acquire(ctx); err != nil {
			continue
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer p.Release()
			local, err := placeEntity(m, cfg, dirLocks)
			statsMu.Lock()
			mergeStats(&stats, local)
			statsMu.Unlock()
			if err != nil {
				errMu.Lock()
				if firstErr == nil {
					firstErr = err
				}
				errMu.Unlock()
				log.Printf("move: entity %s: %v", m.ID, err)
			}
		}()
	}
	wg.Wait()

	if cfg.AlbumBehavior == config.AlbumJSON {
		if err := writeAlbumsInfo(entities, cfg.Output); err != nil {
			log.Printf("move: writing albums-info.json: %v", err)
		}
	}

	return stats, firstErr
}

func mergeStats(dst *Stats, src Stats) {
	dst.Moved += src.Moved
	dst.Copied += src.Copied
	dst.Shortcuts += src.Shortcuts
	dst.Duplicates += src.Duplicates
	dst.LeftInInput += src.LeftInInput
	dst.CollisionsSeen += src.CollisionsSeen
}

// placeEntity routes one MediaEntity's files according to the selected
// strategy and returns its share of the statistics.
func placeEntity(m *domain.MediaEntity, cfg *config.Config, locks *dirLockSet) (Stats, error) {
	var stats Stats

	base := allPhotosDir
	if cfg.DividePartnerShared && m.PartnerShared {
		base = partnerSharedDir
	}
	dateSubdir := dateDivisionPath(m, cfg.DateDivision)
	allPhotosTargetDir := filepath.Join(cfg.Output, base, dateSubdir)

	removeDuplicates(m, cfg, locks, &stats)

	switch cfg.AlbumBehavior {
	case config.AlbumIgnore:
		return placeIgnore(m, allPhotosTargetDir, cfg, locks, &stats)
	case config.AlbumNothing, config.AlbumJSON:
		return placeNothingOrJSON(m, allPhotosTargetDir, cfg, locks, &stats)
	case config.AlbumDuplicateCopy:
		return placeDuplicateCopy(m, allPhotosTargetDir, cfg, locks, &stats)
	case config.AlbumReverseShortcut:
		return placeReverseShortcut(m, allPhotosTargetDir, cfg, locks, &stats)
	case config.AlbumShortcut:
		fallthrough
	default:
		return placeShortcut(m, allPhotosTargetDir, cfg, locks, &stats)
	}
}

// placeIgnore drops album-only files entirely; only files that
// originated from a year folder are placed.
func placeIgnore(m *domain.MediaEntity, allPhotosDir string, cfg *config.Config, locks *dirLockSet, stats *Stats) (Stats, error) {
	if !m.PrimaryFile.FromYearFolder {
		stats.LeftInInput++
		return *stats, nil
	}
	if err := movePrimary(m, allPhotosDir, cfg, locks, stats); err != nil {
		return *stats, err
	}
	return *stats, nil
}

// placeNothingOrJSON moves the primary into ALL_PHOTOS and ignores
// albums for physical placement (the "json" strategy additionally emits
// albums-info.json from the already-populated AlbumsMap after the run;
// the "nothing" strategy never does). Album-only files (entity has no
// year-folder file) are still routed so no media is lost.
func placeNothingOrJSON(m *domain.MediaEntity, allPhotosDir string, cfg *config.Config, locks *dirLockSet, stats *Stats) (Stats, error) {
	if err := movePrimary(m, allPhotosDir, cfg, locks, stats); err != nil {
		return *stats, err
	}
	return *stats, nil
}

// placeShortcut moves the primary into ALL_PHOTOS and creates one
// shortcut per album pointing at its new location.
func placeShortcut(m *domain.MediaEntity, allPhotosDir string, cfg *config.Config, locks *dirLockSet, stats *Stats) (Stats, error) {
	if err := movePrimary(m, allPhotosDir, cfg, locks, stats); err != nil {
		return *stats, err
	}
	for _, albumName := range m.AlbumNames() {
		dir := filepath.Join(cfg.Output, albumsDir, filename.DecodeForDisplay(albumName))
		if err := placeShortcutIn(m.PrimaryFile, dir, cfg, locks, stats); err != nil {
			log.Printf("move: shortcut for %s in album %s: %v", m.PrimaryFile.SourcePath, albumName, err)
		}
	}
	return *stats, nil
}

// placeDuplicateCopy moves the primary into ALL_PHOTOS and makes a
// physical copy in each album folder.
func placeDuplicateCopy(m *domain.MediaEntity, allPhotosDir string, cfg *config.Config, locks *dirLockSet, stats *Stats) (Stats, error) {
	if err := movePrimary(m, allPhotosDir, cfg, locks, stats); err != nil {
		return *stats, err
	}
	for _, albumName := range m.AlbumNames() {
		dir := filepath.Join(cfg.Output, albumsDir, filename.DecodeForDisplay(albumName))
		if err := copyIntoDir(m.PrimaryFile.TargetPath, dir, cfg, locks, stats); err != nil {
			log.Printf("move: album copy for %s in album %s: %v", m.PrimaryFile.SourcePath, albumName, err)
		}
	}
	dropSecondaries(m, stats)
	return *stats, nil
}

// placeReverseShortcut moves the primary (or a representative file) into
// the first album, then shortcuts from ALL_PHOTOS and every other album.
func placeReverseShortcut(m *domain.MediaEntity, allPhotosDir string, cfg *config.Config, locks *dirLockSet, stats *Stats) (Stats, error) {
	albums := m.AlbumNames()
	if len(albums) == 0 {
		return placeShortcut(m, allPhotosDir, cfg, locks, stats)
	}
	primaryAlbum := albums[0]
	primaryAlbumDir := filepath.Join(cfg.Output, albumsDir, filename.DecodeForDisplay(primaryAlbum))

	if err := moveFileInto(m.PrimaryFile, primaryAlbumDir, cfg, locks, stats); err != nil {
		return *stats, err
	}

	if err := placeShortcutIn(m.PrimaryFile, allPhotosDir, cfg, locks, stats); err != nil {
		log.Printf("move: reverse-shortcut into ALL_PHOTOS for %s: %v", m.PrimaryFile.SourcePath, err)
	}
	for _, albumName := range albums[1:] {
		dir := filepath.Join(cfg.Output, albumsDir, filename.DecodeForDisplay(albumName))
		if err := placeShortcutIn(m.PrimaryFile, dir, cfg, locks, stats); err != nil {
			log.Printf("move: reverse-shortcut for %s in album %s: %v", m.PrimaryFile.SourcePath, albumName, err)
		}
	}
	dropSecondaries(m, stats)
	return *stats, nil
}

// movePrimary is the common "move primary into targetDir" step shared by
// most strategies, including the Pixel .MP/.MV rename.
func movePrimary(m *domain.MediaEntity, targetDir string, cfg *config.Config, locks *dirLockSet, stats *Stats) error {
	if err := moveFileInto(m.PrimaryFile, targetDir, cfg, locks, stats); err != nil {
		return err
	}
	if cfg.AlbumBehavior != config.AlbumShortcut && cfg.AlbumBehavior != config.AlbumReverseShortcut {
		dropSecondaries(m, stats)
	}
	return nil
}

// dropSecondaries marks secondary files as not materialized: they exist
// only to have enriched AlbumsMap and are left untouched in the input
// tree when the strategy does not shortcut them.
func dropSecondaries(m *domain.MediaEntity, stats *Stats) {
	for _, f := range m.SecondaryFiles {
		if f.TargetPath == "" {
			stats.LeftInInput++
		}
	}
}

// moveFileInto moves f (with its sidecar) into targetDir, honoring
// transform_pixel_mp, collision suffixing, and dry-run.
func moveFileInto(f *domain.FileEntity, targetDir string, cfg *config.Config, locks *dirLockSet, stats *Stats) error {
	destName := filepath.Base(f.SourcePath)
	if cfg.TransformPixelMP {
		destName = transformPixelName(destName)
	}

	unlock := locks.Lock(targetDir)
	defer unlock()

	destPath, collided, err := uniqueName(targetDir, destName, f.SourcePath)
	if err != nil {
		return err
	}
	if collided {
		stats.CollisionsSeen++
	}

	if cfg.DryRun {
		log.Printf("move: [dry-run] would move %s -> %s", f.SourcePath, destPath)
		f.TargetPath = domain.NormalizedSourcePath(destPath)
		f.IsMoved = true
		stats.Moved++
		return nil
	}

	if err := atomicMove(f.SourcePath, destPath); err != nil {
		return fmt.Errorf("moving %s: %w", f.SourcePath, err)
	}
	f.TargetPath = domain.NormalizedSourcePath(destPath)
	f.IsMoved = true
	stats.Moved++

	if f.SidecarPath != "" {
		if err := os.Remove(f.SidecarPath); err != nil && !os.IsNotExist(err) {
			log.Printf("move: could not remove sidecar %s: %v", f.SidecarPath, err)
		}
	}
	return nil
}

// copyIntoDir makes a byte-for-byte copy of an already-moved primary
// into targetDir.
func copyIntoDir(srcPath, targetDir string, cfg *config.Config, locks *dirLockSet, stats *Stats) error {
	destName := filepath.Base(srcPath)
	unlock := locks.Lock(targetDir)
	defer unlock()

	destPath, collided, err := uniqueName(targetDir, destName, srcPath)
	if err != nil {
		return err
	}
	if collided {
		stats.CollisionsSeen++
	}
	if cfg.DryRun {
		log.Printf("move: [dry-run] would copy %s -> %s", srcPath, destPath)
		stats.Copied++
		return nil
	}
	if err := copyFile(srcPath, destPath); err != nil {
		return err
	}
	stats.Copied++
	return nil
}

// placeShortcutIn creates a symlink (Unix) pointing at f.TargetPath
// inside dir. This build targets Unix-like
// filesystems; Windows .lnk/junction creation is a platform-specific
// extension point not exercised on this OS.
func placeShortcutIn(f *domain.FileEntity, dir string, cfg *config.Config, locks *dirLockSet, stats *Stats) error {
	if f.TargetPath == "" {
		return errors.New("shortcut requested before primary was placed")
	}
	destName := filepath.Base(f.TargetPath)
	unlock := locks.Lock(dir)
	defer unlock()

	destPath, collided, err := uniqueName(dir, destName, f.TargetPath)
	if err != nil {
		return err
	}
	if collided {
		stats.CollisionsSeen++
	}
	if cfg.DryRun {
		log.Printf("move: [dry-run] would symlink %s -> %s", destPath, f.TargetPath)
		stats.Shortcuts++
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating album dir %s: %w", dir, err)
	}
	rel, err := filepath.Rel(filepath.Dir(destPath), f.TargetPath)
	if err != nil {
		rel = f.TargetPath
	}
	if err := os.Symlink(rel, destPath); err != nil {
		return fmt.Errorf("symlinking %s -> %s: %w", destPath, f.TargetPath, err)
	}
	stats.Shortcuts++
	return nil
}

// removeDuplicates deletes (or reroutes to _Duplicates/) every file in
// m.DuplicatesFiles
func removeDuplicates(m *domain.MediaEntity, cfg *config.Config, locks *dirLockSet, stats *Stats) {
	for _, d := range m.DuplicatesFiles {
		if cfg.KeepDuplicates {
			rel := strings.TrimPrefix(domain.NormalizedSourcePath(d.SourcePath), domain.NormalizedSourcePath(cfg.Input)+"/")
			destPath := filepath.Join(cfg.Output, duplicatesDir, filepath.FromSlash(rel))
			if cfg.DryRun {
				log.Printf("move: [dry-run] would route duplicate %s -> %s", d.SourcePath, destPath)
				stats.Duplicates++
				continue
			}
			unlock := locks.Lock(filepath.Dir(destPath))
			if err := atomicMove(d.SourcePath, destPath); err != nil {
				log.Printf("move: routing duplicate %s to _Duplicates: %v", d.SourcePath, err)
				unlock()
				continue
			}
			unlock()
			d.TargetPath = domain.NormalizedSourcePath(destPath)
			d.IsMoved = true
		} else {
			if !cfg.DryRun {
				if err := os.Remove(d.SourcePath); err != nil && !os.IsNotExist(err) {
					log.Printf("move: removing duplicate %s: %v", d.SourcePath, err)
					continue
				}
			}
			d.IsDeleted = true
		}
		if d.SidecarPath != "" && !cfg.DryRun {
			_ = os.Remove(d.SidecarPath)
		}
		stats.Duplicates++
	}
}

// dateDivisionPath returns the ALL_PHOTOS/PARTNER_SHARED sub-path for m's
// date_taken at the given division level. Date-division
// never applies to Albums/*.
func dateDivisionPath(m *domain.MediaEntity, level config.DateDivision) string {
	if m.DateTaken == nil {
		return dateUnknownDir
	}
	t := *m.DateTaken
	switch level {
	case config.DivideYear:
		return fmt.Sprintf("%04d", t.Year())
	case config.DivideYearMonth:
		return filepath.Join(fmt.Sprintf("%04d", t.Year()), fmt.Sprintf("%02d", int(t.Month())))
	case config.DivideYearMonthDay:
		return filepath.Join(fmt.Sprintf("%04d", t.Year()), fmt.Sprintf("%02d", int(t.Month())), fmt.Sprintf("%02d", t.Day()))
	default:
		return ""
	}
}

// transformPixelName renames a Pixel Motion Photo .MP/.MV extension to
// .mp4 with no transcoding.
func transformPixelName(name string) string {
	ext := filepath.Ext(name)
	switch strings.ToLower(ext) {
	case ".mp", ".mv":
		return strings.TrimSuffix(name, ext) + ".mp4"
	default:
		return name
	}
}

var collisionSuffix = regexp.MustCompile(`^(.*)\((\d+)\)$`)

// uniqueName returns a path in dir for baseName that does not collide
// with an existing, non-identical file, applying the idempotent "(n)"
// suffix rule: never "(1)(1)", an existing "(n)" suffix is detected and
// incremented rather than stacked. sourcePath is used only to detect the
// degenerate case of a file colliding with itself (e.g. a retried run).
func uniqueName(dir, baseName, sourcePath string) (string, bool, error) {
	candidate := filepath.Join(dir, baseName)
	info, err := os.Stat(candidate)
	if err != nil {
		if os.IsNotExist(err) {
			return candidate, false, nil
		}
		return "", false, fmt.Errorf("stat %s: %w", candidate, err)
	}
	if sameFile(candidate, sourcePath, info) {
		return candidate, false, nil
	}

	ext := filepath.Ext(baseName)
	stem := strings.TrimSuffix(baseName, ext)
	start := 1
	if sub := collisionSuffix.FindStringSubmatch(stem); sub != nil {
		stem = strings.TrimRight(sub[1], " ")
		if n, convErr := strconv.Atoi(sub[2]); convErr == nil {
			start = n + 1
		}
	}

	for n := start; ; n++ {
		candidate = filepath.Join(dir, fmt.Sprintf("%s(%d)%s", stem, n, ext))
		info, err := os.Stat(candidate)
		if err != nil {
			if os.IsNotExist(err) {
				return candidate, true, nil
			}
			return "", false, fmt.Errorf("stat %s: %w", candidate, err)
		}
		if sameFile(candidate, sourcePath, info) {
			return candidate, true, nil
		}
	}
}

// sameFile is a cheap (size-only) identity check used to short-circuit
// uniqueName when retried against an already-placed output; a thorough
// byte comparison already happened upstream in stage 3.
func sameFile(existingPath, sourcePath string, existingInfo os.FileInfo) bool {
	if sourcePath == "" {
		return false
	}
	srcInfo, err := os.Stat(sourcePath)
	if err != nil {
		return false
	}
	return existingInfo.Size() == srcInfo.Size() && filepath.Base(existingPath) == filepath.Base(sourcePath)
}

// atomicMove renames src to dst when they share a device; otherwise it
// copies, fsyncs, verifies the size, then removes src. A cross-device EXDEV is the expected trigger for the
// copy fallback on Linux.
func atomicMove(src, dst string) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return fmt.Errorf("creating target dir: %w", err)
	}
	err := os.Rename(src, dst)
	if err == nil {
		return nil
	}
	if !isCrossDevice(err) {
		return err
	}
	if err := copyFile(src, dst); err != nil {
		return err
	}
	if err := os.Remove(src); err != nil {
		return fmt.Errorf("removing source after cross-device copy: %w", err)
	}
	return nil
}

// isCrossDevice reports whether err is the EXDEV rename failure Linux
// (and most Unixes) return when src and dst are on different
// filesystems. Matched by message rather than a platform-specific errno
// constant so this file builds without OS-specific imports.
func isCrossDevice(err error) bool {
	var linkErr *os.LinkError
	if errors.As(err, &linkErr) {
		msg := linkErr.Err.Error()
		return strings.Contains(msg, "cross-device") || strings.Contains(msg, "invalid cross-device link")
	}
	return strings.Contains(err.Error(), "cross-device")
}

func copyFile(src, dst string) error {
	srcInfo, err := os.Stat(src)
	if err != nil {
		return fmt.Errorf("stat source %s: %w", src, err)
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return fmt.Errorf("creating target dir: %w", err)
	}

	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("opening source %s: %w", src, err)
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("creating dest %s: %w", dst, err)
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		os.Remove(dst)
		return fmt.Errorf("copying %s -> %s: %w", src, dst, err)
	}
	if err := out.Sync(); err != nil {
		os.Remove(dst)
		return fmt.Errorf("fsync %s: %w", dst, err)
	}
	dstInfo, err := os.Stat(dst)
	if err != nil || dstInfo.Size() != srcInfo.Size() {
		os.Remove(dst)
		return fmt.Errorf("size mismatch copying %s -> %s", src, dst)
	}
	return nil
}

// dirLockSet serializes collision detection per target directory.
type dirLockSet struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newDirLockSet() *dirLockSet {
	return &dirLockSet{locks: make(map[string]*sync.Mutex)}
}

func (s *dirLockSet) Lock(dir string) func() {
	s.mu.Lock()
	l, ok := s.locks[dir]
	if !ok {
		l = &sync.Mutex{}
		s.locks[dir] = l
	}
	s.mu.Unlock()
	l.Lock()
	return l.Unlock
}

// writeAlbumsInfo emits albums-info.json for the "json" strategy.
func writeAlbumsInfo(entities []*domain.MediaEntity, output string) error {
	type entry struct {
		PrimaryPath   string   `json:"primary_path"`
		Albums        []string `json:"albums"`
		DateTaken     string   `json:"dateTaken,omitempty"`
		PartnerShared bool     `json:"partnerShared,omitempty"`
	}
	var out []entry
	for _, m := range entities {
		if m.PrimaryFile == nil || m.PrimaryFile.TargetPath == "" {
			continue
		}
		e := entry{
			PrimaryPath:   m.PrimaryFile.TargetPath,
			Albums:        m.AlbumNames(),
			PartnerShared: m.PartnerShared,
		}
		if m.DateTaken != nil {
			e.DateTaken = m.DateTaken.Format("2006-01-02T15:04:05Z07:00")
		}
		out = append(out, e)
	}
	return writeJSONFile(filepath.Join(output, "albums-info.json"), out)
}

// writeJSONFile marshals v as indented JSON to path, creating parent
// directories as needed.
func writeJSONFile(path string, v interface{}) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
