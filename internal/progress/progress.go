// Package progress implements atomic write/resume of progress.json at
// the output root, so a pipeline that was interrupted can skip stages
// it already completed rather than redoing destructive work. Grounded
// on a json-file-as-database pattern (load-into-struct, mutate, atomic
// rewrite), generalized from a single library record to a step/entity
// snapshot.
package progress

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"gphotoreorg/internal/domain"
)

const fileName = "progress.json"

// StepResult is what the orchestrator records for one completed stage.
type StepResult struct {
	Duration Duration `json:"duration"`
	Result   string   `json:"result"`
	Message  string   `json:"message"`
}

// Duration carries both an ISO8601 string and the raw seconds, the
// `{duration: {iso8601, seconds}}` shape progress.json uses throughout.
type Duration struct {
	ISO8601 string  `json:"iso8601"`
	Seconds float64 `json:"seconds"`
}

// NewDuration builds a Duration from a time.Duration.
func NewDuration(d time.Duration) Duration {
	return Duration{
		ISO8601: formatISO8601(d),
		Seconds: d.Seconds(),
	}
}

// formatISO8601 renders d as a coarse "PTnHnMnS" duration string; the
// orchestrator only ever needs this for human inspection of progress.json,
// not for re-parsing.
func formatISO8601(d time.Duration) string {
	total := d.Seconds()
	h := int(total) / 3600
	m := (int(total) % 3600) / 60
	s := total - float64(h*3600+m*60)
	var b strings.Builder
	b.WriteString("PT")
	if h > 0 {
		fmt.Fprintf(&b, "%dH", h)
	}
	if m > 0 {
		fmt.Fprintf(&b, "%dM", m)
	}
	fmt.Fprintf(&b, "%.3fS", s)
	return b.String()
}

// fileSnapshot is the serialized form of domain.FileEntity, paths always
// forward-slash-normalized
type fileSnapshot struct {
	SourcePath      string     `json:"source_path"`
	TargetPath      string     `json:"target_path"`
	SourceDir       string     `json:"source_dir"`
	SidecarPath     string     `json:"sidecar_path,omitempty"`
	Size            int64      `json:"size"`
	ModTime         time.Time  `json:"mod_time"`
	IsCanonical     bool       `json:"is_canonical"`
	IsShortcut      bool       `json:"is_shortcut"`
	IsMoved         bool       `json:"is_moved"`
	IsDeleted       bool       `json:"is_deleted"`
	IsDuplicateCopy bool       `json:"is_duplicate_copy"`
	Ranking         int        `json:"ranking"`
	DateAccuracy    *int       `json:"date_accuracy,omitempty"`
	AlbumName       string     `json:"album_name,omitempty"`
	AlbumSourceDir  string     `json:"album_source_dir,omitempty"`
	FromYearFolder  bool       `json:"from_year_folder"`
	SpecialFolder   string     `json:"special_folder,omitempty"`
	PartnerShared   bool       `json:"partner_shared"`
}

// albumSnapshot is the serialized form of one entry in a MediaEntity's
// AlbumsMap.
type albumSnapshot struct {
	Name              string   `json:"name"`
	SourceDirectories []string `json:"source_directories"`
}

// entitySnapshot is the serialized form of domain.MediaEntity.
type entitySnapshot struct {
	ID                       string           `json:"id"`
	PrimaryFile              *fileSnapshot    `json:"primary_file"`
	SecondaryFiles           []*fileSnapshot  `json:"secondary_files,omitempty"`
	DuplicatesFiles          []*fileSnapshot  `json:"duplicates_files,omitempty"`
	Albums                   []*albumSnapshot `json:"albums,omitempty"`
	DateTaken                *time.Time       `json:"date_taken,omitempty"`
	DateAccuracy             int              `json:"date_accuracy"`
	DateTimeExtractionMethod string           `json:"date_time_extraction_method"`
	GPSLatitude              *float64         `json:"gps_latitude,omitempty"`
	GPSLongitude             *float64         `json:"gps_longitude,omitempty"`
	GPSAltitude              *float64         `json:"gps_altitude,omitempty"`
	PartnerShared            bool             `json:"partner_shared"`
	ContentDigest            string           `json:"content_digest,omitempty"`
	Size                     int64            `json:"size"`
}

// Document is the full on-disk shape of progress.json. The
// "Completed steps" key preserves the capitalized, space-containing
// name used on disk verbatim.
type Document struct {
	CompletedSteps              []string                  `json:"Completed steps"`
	Steps                       map[string]StepResult     `json:"steps"`
	DatasetRoot                 string                    `json:"dataset_root"`
	OutputRoot                  string                    `json:"output_root"`
	MediaEntityCollectionObject []*entitySnapshot         `json:"media_entity_collection_object"`
	UpdatedAt                   time.Time                 `json:"updated_at"`
}

// Path returns the progress.json location for a given output root.
func Path(outputRoot string) string {
	return filepath.Join(outputRoot, fileName)
}

// New builds an empty Document anchored at the given roots.
func New(datasetRoot, outputRoot string) *Document {
	return &Document{
		CompletedSteps: nil,
		Steps:          make(map[string]StepResult),
		DatasetRoot:    filepath.ToSlash(datasetRoot),
		OutputRoot:     filepath.ToSlash(outputRoot),
	}
}

// MarkStep records stepID's result and, when success is true, lists it as
// a completed step; a failed step is recorded but not marked complete.
func (d *Document) MarkStep(stepID string, dur time.Duration, success bool, message string) {
	result := "ok"
	if !success {
		result = "failed"
	}
	d.Steps[stepID] = StepResult{
		Duration: NewDuration(dur),
		Result:   result,
		Message:  message,
	}
	for _, existing := range d.CompletedSteps {
		if existing == stepID {
			return
		}
	}
	if success {
		d.CompletedSteps = append(d.CompletedSteps, stepID)
	}
}

// IsComplete reports whether stepID is listed as a completed step.
func (d *Document) IsComplete(stepID string) bool {
	for _, s := range d.CompletedSteps {
		if s == stepID {
			return true
		}
	}
	return false
}

// SetEntities replaces the snapshot with the current MediaEntity
// collection.
func (d *Document) SetEntities(entities []*domain.MediaEntity) {
	d.MediaEntityCollectionObject = make([]*entitySnapshot, 0, len(entities))
	for _, m := range entities {
		d.MediaEntityCollectionObject = append(d.MediaEntityCollectionObject, snapshotEntity(m))
	}
}

// Entities rebuilds the MediaEntity collection from the snapshot, rebasing
// every stored path from oldDatasetRoot/oldOutputRoot onto
// newDatasetRoot/newOutputRoot resume contract. Pass
// identical old/new roots for a plain same-location resume.
func (d *Document) Entities(oldDatasetRoot, oldOutputRoot, newDatasetRoot, newOutputRoot string) ([]*domain.MediaEntity, error) {
	out := make([]*domain.MediaEntity, 0, len(d.MediaEntityCollectionObject))
	for _, es := range d.MediaEntityCollectionObject {
		m, err := hydrateEntity(es, oldDatasetRoot, oldOutputRoot, newDatasetRoot, newOutputRoot)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, nil
}

// Load reads and parses progress.json at outputRoot. A missing file is
// not an error: it returns (nil, nil), the "fresh run" case.
func Load(outputRoot string) (*Document, error) {
	data, err := os.ReadFile(Path(outputRoot))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("progress: read: %w", err)
	}
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("progress: parse: %w", err)
	}
	return &doc, nil
}

// Save atomically rewrites progress.json: write to a temp file in the
// same directory, fsync, then rename over the target, so a crash mid-write
// never leaves a truncated or partially-written progress file behind.
func (d *Document) Save(outputRoot string) error {
	d.UpdatedAt = time.Now().UTC()
	data, err := json.MarshalIndent(d, "", "  ")
	if err != nil {
		return fmt.Errorf("progress: marshal: %w", err)
	}
	if err := os.MkdirAll(outputRoot, 0o755); err != nil {
		return fmt.Errorf("progress: mkdir: %w", err)
	}
	tmp, err := os.CreateTemp(outputRoot, fileName+".tmp-*")
	if err != nil {
		return fmt.Errorf("progress: tempfile: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("progress: write: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("progress: fsync: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("progress: close: %w", err)
	}
	if err := os.Rename(tmpName, Path(outputRoot)); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("progress: rename: %w", err)
	}
	return nil
}

func snapshotFile(f *domain.FileEntity) *fileSnapshot {
	if f == nil {
		return nil
	}
	var acc *int
	if f.DateAccuracy != nil {
		v := int(*f.DateAccuracy)
		acc = &v
	}
	return &fileSnapshot{
		SourcePath:      filepath.ToSlash(f.SourcePath),
		TargetPath:      filepath.ToSlash(f.TargetPath),
		SourceDir:       filepath.ToSlash(f.SourceDir),
		SidecarPath:     filepath.ToSlash(f.SidecarPath),
		Size:            f.Size,
		ModTime:         f.ModTime,
		IsCanonical:     f.IsCanonical,
		IsShortcut:      f.IsShortcut,
		IsMoved:         f.IsMoved,
		IsDeleted:       f.IsDeleted,
		IsDuplicateCopy: f.IsDuplicateCopy,
		Ranking:         f.Ranking,
		DateAccuracy:    acc,
		AlbumName:       f.AlbumName,
		AlbumSourceDir:  f.AlbumSourceDir,
		FromYearFolder:  f.FromYearFolder,
		SpecialFolder:   f.SpecialFolder,
		PartnerShared:   f.PartnerShared,
	}
}

func snapshotEntity(m *domain.MediaEntity) *entitySnapshot {
	es := &entitySnapshot{
		ID:                       m.ID.String(),
		PrimaryFile:              snapshotFile(m.PrimaryFile),
		DateTaken:                m.DateTaken,
		DateAccuracy:             int(m.DateAccuracy),
		DateTimeExtractionMethod: string(m.DateTimeExtractionMethod),
		PartnerShared:            m.PartnerShared,
		ContentDigest:            m.ContentDigest,
		Size:                     m.Size,
	}
	for _, f := range m.SecondaryFiles {
		es.SecondaryFiles = append(es.SecondaryFiles, snapshotFile(f))
	}
	for _, f := range m.DuplicatesFiles {
		es.DuplicatesFiles = append(es.DuplicatesFiles, snapshotFile(f))
	}
	if m.GPS != nil {
		lat, lon, alt := m.GPS.Latitude, m.GPS.Longitude, m.GPS.Altitude
		es.GPSLatitude, es.GPSLongitude, es.GPSAltitude = &lat, &lon, &alt
	}
	names := m.AlbumNames()
	for _, name := range names {
		a := m.AlbumsMap[name]
		dirs := make([]string, 0, len(a.SourceDirectories))
		for d := range a.SourceDirectories {
			dirs = append(dirs, d)
		}
		es.Albums = append(es.Albums, &albumSnapshot{Name: a.Name, SourceDirectories: dirs})
	}
	return es
}

func rebasePath(p, oldRoot, newRoot string) string {
	if p == "" || oldRoot == newRoot {
		return filepath.FromSlash(p)
	}
	oldSlash := filepath.ToSlash(oldRoot)
	if rel, ok := cutPrefix(p, oldSlash); ok {
		return filepath.FromSlash(filepath.ToSlash(newRoot) + rel)
	}
	return filepath.FromSlash(p)
}

// cutPrefix is a forward-slash-aware prefix trim, kept local rather than
// pulled from strings.CutPrefix so the leading-slash boundary is checked
// explicitly (a dataset_root of "/a/b" must not match "/a/bc").
func cutPrefix(p, prefix string) (string, bool) {
	if !strings.HasPrefix(p, prefix) {
		return "", false
	}
	rest := p[len(prefix):]
	if rest != "" && !strings.HasPrefix(rest, "/") {
		return "", false
	}
	return rest, true
}

func rebaseFile(fs *fileSnapshot, oldDatasetRoot, oldOutputRoot, newDatasetRoot, newOutputRoot string) *domain.FileEntity {
	if fs == nil {
		return nil
	}
	var acc *domain.DateAccuracy
	if fs.DateAccuracy != nil {
		v := domain.DateAccuracy(*fs.DateAccuracy)
		acc = &v
	}
	return &domain.FileEntity{
		SourcePath:      rebasePath(fs.SourcePath, oldDatasetRoot, newDatasetRoot),
		TargetPath:      rebasePath(fs.TargetPath, oldOutputRoot, newOutputRoot),
		SourceDir:       rebasePath(fs.SourceDir, oldDatasetRoot, newDatasetRoot),
		SidecarPath:     rebasePath(fs.SidecarPath, oldDatasetRoot, newDatasetRoot),
		Size:            fs.Size,
		ModTime:         fs.ModTime,
		IsCanonical:     fs.IsCanonical,
		IsShortcut:      fs.IsShortcut,
		IsMoved:         fs.IsMoved,
		IsDeleted:       fs.IsDeleted,
		IsDuplicateCopy: fs.IsDuplicateCopy,
		Ranking:         fs.Ranking,
		DateAccuracy:    acc,
		AlbumName:       fs.AlbumName,
		AlbumSourceDir:  fs.AlbumSourceDir,
		FromYearFolder:  fs.FromYearFolder,
		SpecialFolder:   fs.SpecialFolder,
		PartnerShared:   fs.PartnerShared,
	}
}

func hydrateEntity(es *entitySnapshot, oldDatasetRoot, oldOutputRoot, newDatasetRoot, newOutputRoot string) (*domain.MediaEntity, error) {
	id, err := uuid.Parse(es.ID)
	if err != nil {
		return nil, fmt.Errorf("progress: entity %s: %w", es.ID, err)
	}
	m := &domain.MediaEntity{
		ID:                       id,
		PrimaryFile:              rebaseFile(es.PrimaryFile, oldDatasetRoot, oldOutputRoot, newDatasetRoot, newOutputRoot),
		AlbumsMap:                make(map[string]*domain.AlbumEntity),
		DateTaken:                es.DateTaken,
		DateAccuracy:             domain.DateAccuracy(es.DateAccuracy),
		DateTimeExtractionMethod: domain.ExtractionMethod(es.DateTimeExtractionMethod),
		PartnerShared:            es.PartnerShared,
		ContentDigest:            es.ContentDigest,
		Size:                     es.Size,
	}
	for _, fs := range es.SecondaryFiles {
		m.SecondaryFiles = append(m.SecondaryFiles, rebaseFile(fs, oldDatasetRoot, oldOutputRoot, newDatasetRoot, newOutputRoot))
	}
	for _, fs := range es.DuplicatesFiles {
		m.DuplicatesFiles = append(m.DuplicatesFiles, rebaseFile(fs, oldDatasetRoot, oldOutputRoot, newDatasetRoot, newOutputRoot))
	}
	if es.GPSLatitude != nil && es.GPSLongitude != nil {
		gps := &domain.GPSCoordinates{Latitude: *es.GPSLatitude, Longitude: *es.GPSLongitude}
		if es.GPSAltitude != nil {
			gps.Altitude = *es.GPSAltitude
		}
		m.GPS = gps
	}
	for _, a := range es.Albums {
		album := domain.NewAlbumEntity(a.Name)
		for _, d := range a.SourceDirectories {
			album.AddSourceDirectory(d)
		}
		m.AlbumsMap[a.Name] = album
	}
	return m, nil
}
