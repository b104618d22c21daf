// Package domain holds the core data model: FileEntity,
// MediaEntity, AlbumEntity, and the small enums that tag them. These
// types are built fresh for this pipeline; a Photo/Library pair and
// similar legacy media adapters from prior art are intentionally not
// reused.
package domain

import (
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

// DateAccuracy is an ordinal: 0 is the most trustworthy.
type DateAccuracy int

const (
	AccuracyJSON DateAccuracy = iota
	AccuracyExternalDictionary
	AccuracyNativeExif
	AccuracyExiftoolExif
	AccuracyFilenameGuess
	AccuracyFolderYear
	AccuracyJSONAggressive
	AccuracyNone
)

// ExtractionMethod records which resolver produced date_taken.
type ExtractionMethod string

const (
	MethodJSON             ExtractionMethod = "json"
	MethodNativeExif       ExtractionMethod = "native_exif"
	MethodExiftoolExif     ExtractionMethod = "exiftool_exif"
	MethodFilenameGuess    ExtractionMethod = "filename_guess"
	MethodFolderYear       ExtractionMethod = "folder_year"
	MethodJSONAggressive   ExtractionMethod = "json_aggressive"
	MethodExternalDict     ExtractionMethod = "external_dictionary"
	MethodNone             ExtractionMethod = "none"
)

// GPSCoordinates is the decoded geoData payload from a sidecar, or the
// EXIF GPS tags read back from a file.
type GPSCoordinates struct {
	Latitude  float64
	Longitude float64
	Altitude  float64
}

// IsZero reports whether the coordinates are the Takeout "no GPS" sentinel
// (0,0), which Google emits instead of omitting the field.
func (g GPSCoordinates) IsZero() bool {
	return g.Latitude == 0 && g.Longitude == 0
}

// FileEntity represents one concrete file on disk during processing,
// before content-hash merging groups several of these into one
// MediaEntity.
type FileEntity struct {
	SourcePath string // absolute, forward-slash-normalized
	TargetPath string // assigned during placement, empty until stage 7

	SourceDir string // parent directory of SourcePath, cached for dedup/album grouping
	SidecarPath string // matched JSON sidecar path, if any
	Size      int64
	ModTime   time.Time

	IsCanonical     bool // not shortcut, not duplicate, lived in year folder
	IsShortcut      bool
	IsMoved         bool
	IsDeleted       bool
	IsDuplicateCopy bool

	// Ranking is the merge tiebreak: smaller wins. Computed in stage 3.
	Ranking int

	DateAccuracy *DateAccuracy

	// AlbumName is set when SourcePath was discovered under an album
	// folder; empty for year-folder or special-folder files.
	AlbumName string
	// AlbumSourceDir is the emoji-encoded-on-disk album directory this
	// file was found in, recorded for AlbumEntity.source_directories.
	AlbumSourceDir string

	// FromYearFolder is true when this file's immediate ancestor chain
	// includes a recognized year folder before any album folder.
	FromYearFolder bool
	// SpecialFolder names the special folder (Archive, Trash, Locked
	// Folder) this file came from, or "" if none.
	SpecialFolder string

	// PartnerShared mirrors googlePhotosOrigin.fromPartnerSharing read
	// from this file's own sidecar (a file's own truth, before entity
	// merge promotes it to MediaEntity.PartnerShared).
	PartnerShared bool
}

// NormalizedSourcePath returns SourcePath with OS separators replaced by
// forward slashes, per the "forward-slash-normalized" invariant.
func NormalizedSourcePath(p string) string {
	return filepath.ToSlash(p)
}

// Basename is a small helper used throughout ranking and collision logic.
func (f *FileEntity) Basename() string {
	return filepath.Base(f.SourcePath)
}

// RefreshCanonical recomputes IsCanonical from its derivation rule
// (not shortcut, not duplicate, lived in year folder)
// Called once placement flags are final (post stage 7).
func (f *FileEntity) RefreshCanonical() {
	f.IsCanonical = f.FromYearFolder && !f.IsShortcut && !f.IsDuplicateCopy
}

// AlbumEntity records one album and the directories it was observed in.
type AlbumEntity struct {
	Name             string
	SourceDirectories map[string]struct{} // set<string>, emoji-encoded on-disk form
}

// NewAlbumEntity constructs an empty AlbumEntity for name.
func NewAlbumEntity(name string) *AlbumEntity {
	return &AlbumEntity{Name: name, SourceDirectories: make(map[string]struct{})}
}

// AddSourceDirectory records dir as an observed location for this album.
func (a *AlbumEntity) AddSourceDirectory(dir string) {
	a.SourceDirectories[dir] = struct{}{}
}

// MediaEntity is the central aggregate after merging.
type MediaEntity struct {
	ID uuid.UUID

	PrimaryFile     *FileEntity
	SecondaryFiles  []*FileEntity
	DuplicatesFiles []*FileEntity

	AlbumsMap map[string]*AlbumEntity

	DateTaken            *time.Time
	DateAccuracy         DateAccuracy
	DateTimeExtractionMethod ExtractionMethod

	GPS *GPSCoordinates

	PartnerShared bool

	ContentDigest string // populated once hashed (stage 3), same for every file in the entity
	Size          int64
}

// NewMediaEntity wraps a single just-discovered file as a one-file entity,
// the stage-2 lifecycle start ("Lifecycle").
func NewMediaEntity(f *FileEntity) *MediaEntity {
	return &MediaEntity{
		ID:                       uuid.New(),
		PrimaryFile:              f,
		AlbumsMap:                make(map[string]*AlbumEntity),
		DateTimeExtractionMethod: MethodNone,
		DateAccuracy:             AccuracyNone,
		Size:                     f.Size,
	}
}

// AllFiles returns primary ∪ secondary ∪ duplicates, the set invariant
// #1 is checked against.
func (m *MediaEntity) AllFiles() []*FileEntity {
	out := make([]*FileEntity, 0, 1+len(m.SecondaryFiles)+len(m.DuplicatesFiles))
	if m.PrimaryFile != nil {
		out = append(out, m.PrimaryFile)
	}
	out = append(out, m.SecondaryFiles...)
	out = append(out, m.DuplicatesFiles...)
	return out
}

// SetDateIfMoreAccurate enforces that once date_taken is set by a more
// accurate resolver, a less accurate one must not overwrite it.
func (m *MediaEntity) SetDateIfMoreAccurate(t time.Time, accuracy DateAccuracy, method ExtractionMethod) bool {
	if m.DateTaken != nil && m.DateAccuracy <= accuracy {
		return false
	}
	m.DateTaken = &t
	m.DateAccuracy = accuracy
	m.DateTimeExtractionMethod = method
	return true
}

// RecordAlbum adds dir to the album named name's source directories,
// creating the AlbumEntity on first sight. Year-folder parentage must
// never be passed here.
func (m *MediaEntity) RecordAlbum(name, sourceDir string) {
	a, ok := m.AlbumsMap[name]
	if !ok {
		a = NewAlbumEntity(name)
		m.AlbumsMap[name] = a
	}
	a.AddSourceDirectory(sourceDir)
}

// AlbumNames returns the entity's album names in stable sorted order.
func (m *MediaEntity) AlbumNames() []string {
	names := make([]string, 0, len(m.AlbumsMap))
	for n := range m.AlbumsMap {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// StripQuotes is a tiny helper used by the sidecar/json package when
// logging paths that may contain spaces; kept here since both FileEntity
// and progress snapshots need the same escaping rule.
func StripQuotes(s string) string {
	return strings.Trim(s, `"`)
}
