// Package pipeline implements the orchestrator that sequences the eight
// stages, aggregates statistics, persists resumable progress, and
// produces the final report. Stages are a closed set matched by a
// tagged enum in a switch rather than dynamic dispatch, since growth of
// the stage list is unlikely. Grounded on a Library.Update/AddPhotos
// style sequencing, generalized from "one library operation" to eight
// pipeline stages with per-stage timing, a progress bar, and
// resumability.
package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"
	bar "github.com/schollz/progressbar/v3"

	"gphotoreorg/internal/album"
	"gphotoreorg/internal/config"
	"gphotoreorg/internal/creationtime"
	"gphotoreorg/internal/dateresolve"
	"gphotoreorg/internal/dedup"
	"gphotoreorg/internal/discover"
	"gphotoreorg/internal/domain"
	"gphotoreorg/internal/errkind"
	"gphotoreorg/internal/exiftoolsvc"
	"gphotoreorg/internal/exifwrite"
	"gphotoreorg/internal/extfix"
	"gphotoreorg/internal/hashing"
	"gphotoreorg/internal/move"
	"gphotoreorg/internal/pool"
	"gphotoreorg/internal/progress"
)

// Stage is a closed enum of the eight pipeline stages. It is used only
// for progress-document step ids and report labels; the actual
// execution order runs ExifWrite after Move.
type Stage string

const (
	StageExtFix      Stage = "extension_fix"
	StageDiscover    Stage = "discover"
	StageDedup       Stage = "dedup"
	StageDateResolve Stage = "dateresolve"
	StageAlbum       Stage = "album"
	StageMove        Stage = "move"
	StageExifWrite   Stage = "exifwrite"
	StageCreationTime Stage = "creationtime"
)

// executionOrder is the sequence stages actually run in: EXIF writing
// runs after move, once every file has its final target_path, rather
// than before.
var executionOrder = []Stage{
	StageExtFix,
	StageDiscover,
	StageDedup,
	StageDateResolve,
	StageAlbum,
	StageMove,
	StageExifWrite,
	StageCreationTime,
}

// criticalStages abort the whole run on failure.
var criticalStages = map[Stage]bool{
	StageDiscover: true,
	StageMove:     true,
}

// StageReport is the per-stage outcome the orchestrator records:
// {success, duration, stats, message, error?}.
type StageReport struct {
	Stage    Stage         `json:"stage"`
	Success  bool          `json:"success"`
	Duration time.Duration `json:"duration"`
	Message  string        `json:"message"`
	Error    string        `json:"error,omitempty"`
}

// Report is the orchestrator's final aggregated output, written to
// report.json alongside the resumable progress.json.
type Report struct {
	Stages []StageReport `json:"stages"`

	MediaProcessed       int `json:"media_processed"`
	DuplicatesRemoved    int `json:"duplicates_removed"`
	ExtrasSkipped        int `json:"extras_skipped"`
	ExtensionsFixed      int `json:"extensions_fixed"`
	CoordinatesWritten   int `json:"coordinates_written"`
	DatetimesWritten     int `json:"datetimes_written"`
	CreationTimesUpdated int `json:"creation_times_updated"`
	TotalBytes           int64 `json:"total_bytes"`
	TotalBytesHuman      string `json:"total_bytes_human"`

	ExtractionMethodHistogram map[string]int `json:"extraction_method_histogram"`
}

// Orchestrator drives the eight stages against one Config. It owns the
// pool set and hash service for the run's lifetime.
type Orchestrator struct {
	cfg   *config.Config
	pools *pool.Set
	doc   *progress.Document
}

// New builds an Orchestrator for cfg. Pool multipliers come from cfg,
// letting tests override concurrency without touching runtime.NumCPU().
func New(cfg *config.Config) *Orchestrator {
	return &Orchestrator{
		cfg: cfg,
		pools: pool.NewSet(pool.Multipliers{
			Hash:            cfg.HashPoolMultiplier,
			ExifReadWrite:   cfg.ExifPoolMultiplier,
			DuplicateDetect: cfg.DedupPoolMultiplier,
			NetworkLike:     cfg.NetworkPoolMultiplier,
			FileIO:          cfg.FileIOPoolMultiplier,
		}),
	}
}

// Run executes the full pipeline against cfg.Input/cfg.Output, honoring
// resumability via progress.json and cancellation via ctx. It returns
// the final Report or a fatal error for a critical-stage failure.
func (o *Orchestrator) Run(ctx context.Context) (*Report, error) {
	if o.cfg.FixModePath != "" {
		return o.runFixMode(ctx)
	}

	if o.cfg.KeepInput {
		working, err := copySiblingInput(o.cfg.Input)
		if err != nil {
			return nil, fmt.Errorf("keep-input: copying sibling input: %w", err)
		}
		o.cfg.Input = working
		log.Printf("pipeline: --keep-input: operating on sibling copy %s", working)
	}

	mediaRoot, err := discover.ResolveMediaRoot(o.cfg.Input)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errkind.PathResolution, err)
	}

	existing, err := progress.Load(o.cfg.Output)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errkind.CorruptProgressFile, err)
	}
	if existing != nil && existing.DatasetRoot == filepath.ToSlash(o.cfg.Input) {
		o.doc = existing
	} else {
		o.doc = progress.New(o.cfg.Input, o.cfg.Output)
	}

	report := &Report{ExtractionMethodHistogram: make(map[string]int)}
	var entities []*domain.MediaEntity
	var files []*domain.FileEntity

	hasher, err := hashing.NewService(o.cfg.HashCachePath)
	if err != nil {
		return nil, fmt.Errorf("starting hash service: %w", err)
	}
	defer hasher.Close()

	var etSvc *exiftoolsvc.Service
	if et, err := exiftoolsvc.New(); err == nil {
		etSvc = et
		defer etSvc.Close()
	} else {
		log.Printf("pipeline: exiftool_exif resolver unavailable: %v", err)
	}

	for _, stage := range executionOrder {
		if err := ctx.Err(); err != nil {
			return report, fmt.Errorf("%w: %v", errkind.Cancelled, err)
		}

		stepID := string(stage)
		if o.doc.IsComplete(stepID) && o.tryRehydrate(stage, &entities) {
			log.Printf("[SKIP] %s (already complete, input present)", stepID)
			continue
		}

		start := time.Now()
		var stageErr error

		switch stage {
		case StageExtFix:
			stageErr = o.runExtFix(mediaRoot, report)
		case StageDiscover:
			files, stageErr = o.runDiscover(mediaRoot)
		case StageDedup:
			entities, stageErr = o.runDedup(ctx, files, hasher, report)
		case StageDateResolve:
			stageErr = o.runDateResolve(ctx, entities, etSvc, report)
		case StageAlbum:
			album.Enrich(entities)
		case StageMove:
			stageErr = o.runMove(entities, report)
		case StageExifWrite:
			stageErr = o.runExifWrite(ctx, entities, report)
		case StageCreationTime:
			o.runCreationTime(entities, report)
		}

		dur := time.Since(start)
		success := stageErr == nil
		msg := ""
		if stageErr != nil {
			msg = stageErr.Error()
		}
		o.doc.MarkStep(stepID, dur, success, msg)
		o.doc.SetEntities(entities)
		if saveErr := o.doc.Save(o.cfg.Output); saveErr != nil {
			log.Printf("pipeline: could not save progress.json after %s: %v", stepID, saveErr)
		}

		report.Stages = append(report.Stages, StageReport{
			Stage: stage, Success: success, Duration: dur, Message: msg,
			Error: errString(stageErr),
		})

		status := "OK"
		if !success {
			status = "FAIL"
		}
		log.Printf("[%s] %s duration=%s message=%s", status, stepID, dur, msg)

		if stageErr != nil && criticalStages[stage] {
			return report, fmt.Errorf("critical stage %s failed: %w", stepID, stageErr)
		}
	}

	o.finalizeReport(entities, report)
	if err := writeReportJSON(o.cfg.Output, report); err != nil {
		log.Printf("pipeline: could not write report.json: %v", err)
	}
	return report, nil
}

// tryRehydrate attempts to skip an already-complete stage by rebasing the
// progress snapshot onto the current roots resume
// contract. The snapshot is rebased into entities only when the discover
// or dedup stage is skipped; for every other stage the completion flag
// alone is trusted.
func (o *Orchestrator) tryRehydrate(stage Stage, entities *[]*domain.MediaEntity) bool {
	if _, err := os.Stat(o.cfg.Input); err != nil {
		return false
	}
	if stage == StageDiscover || stage == StageDedup {
		rehydrated, err := o.doc.Entities(o.doc.DatasetRoot, o.doc.OutputRoot, o.cfg.Input, o.cfg.Output)
		if err != nil {
			return false
		}
		*entities = rehydrated
	}
	return true
}

func (o *Orchestrator) runExtFix(mediaRoot string, report *Report) error {
	stats, err := extfix.Run(mediaRoot, o.cfg.ExtFixing)
	report.ExtensionsFixed += stats.Fixed
	return err
}

func (o *Orchestrator) runDiscover(mediaRoot string) ([]*domain.FileEntity, error) {
	files, dstats, err := discover.Run(mediaRoot)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("%w: no media found under %s", errkind.NoMediaFound, mediaRoot)
	}

	progressBar := bar.Default(int64(dstats.MediaFound), "discovering media")
	progressBar.Add(dstats.MediaFound)
	return files, nil
}

func (o *Orchestrator) runDedup(ctx context.Context, files []*domain.FileEntity, hasher *hashing.Service, report *Report) ([]*domain.MediaEntity, error) {
	entities, mstats, err := dedup.Merge(ctx, files, hasher, o.pools, o.cfg.SkipExtras)
	if err != nil {
		return nil, err
	}
	report.DuplicatesRemoved += mstats.DuplicatesRemoved
	report.ExtrasSkipped += mstats.ExtrasSkipped
	report.MediaProcessed += len(entities)
	return entities, nil
}

func (o *Orchestrator) runDateResolve(ctx context.Context, entities []*domain.MediaEntity, etSvc *exiftoolsvc.Service, report *Report) error {
	p := o.pools.Get(pool.ExifReadWrite)
	progressBar := bar.Default(int64(len(entities)), "resolving dates")
	defer progressBar.Close()

	type outcome struct {
		entity *domain.MediaEntity
		res    dateresolve.Resolution
	}
	results := make(chan outcome, len(entities))

	for _, m := range entities {
		m := m
		if err := p.Acquire(ctx); err != nil {
			return fmt.Errorf("%w: %v", errkind.Cancelled, err)
		}
		go func() {
			defer p.Release()
			var best dateresolve.Resolution
			for _, f := range m.AllFiles() {
				r := dateresolve.Resolve(f, o.cfg, etSvc)
				if r.Found && (!best.Found || r.Accuracy < best.Accuracy) {
					best = r
				}
				if best.Found && best.Accuracy == domain.AccuracyJSON {
					break
				}
			}
			results <- outcome{entity: m, res: best}
		}()
	}

	for range entities {
		o := <-results
		progressBar.Add(1)
		if !o.res.Found {
			o.entity.DateTimeExtractionMethod = domain.MethodNone
			continue
		}
		o.entity.SetDateIfMoreAccurate(o.res.Date, o.res.Accuracy, o.res.Method)
		if o.res.GPS != nil {
			o.entity.GPS = o.res.GPS
		}
		if o.res.PartnerShared {
			o.entity.PartnerShared = true
		}
	}
	return nil
}

func (o *Orchestrator) runMove(entities []*domain.MediaEntity, report *Report) error {
	_, err := move.Run(entities, o.cfg, o.pools)
	for _, m := range entities {
		for _, f := range m.AllFiles() {
			f.RefreshCanonical()
		}
	}
	return err
}

func (o *Orchestrator) runExifWrite(ctx context.Context, entities []*domain.MediaEntity, report *Report) error {
	stats, err := exifwrite.Run(ctx, entities, o.cfg, o.pools, exiftoolsvc.New)
	report.CoordinatesWritten += stats.CoordinatesWritten
	report.DatetimesWritten += stats.DatetimesWritten
	return err
}

func (o *Orchestrator) runCreationTime(entities []*domain.MediaEntity, report *Report) {
	stats := creationtime.Run(entities, o.cfg.UpdateCreationTime)
	report.CreationTimesUpdated += stats.Updated
}

func (o *Orchestrator) finalizeReport(entities []*domain.MediaEntity, report *Report) {
	var total int64
	for _, m := range entities {
		total += m.Size
		report.ExtractionMethodHistogram[string(m.DateTimeExtractionMethod)]++
	}
	report.TotalBytes = total
	report.TotalBytesHuman = humanize.Bytes(uint64(total))
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

func writeReportJSON(outputRoot string, report *Report) error {
	path := filepath.Join(outputRoot, "report.json")
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return writeJSON(f, report)
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// copySiblingInput implements Config.KeepInput: copy the
// whole input tree to a sibling "<input>_working" directory and return
// its path, so the original input tree is never mutated by move
// semantics. Grounded on an AddPhoto-style exec.Command("cp", ...) copy,
// generalized to a full recursive tree copy via the standard library
// instead of shelling out.
func copySiblingInput(input string) (string, error) {
	clean := filepath.Clean(input)
	dest := clean + "_working"
	if _, err := os.Stat(dest); err == nil {
		return "", fmt.Errorf("sibling working copy %s already exists", dest)
	}
	if err := copyTree(clean, dest); err != nil {
		return "", err
	}
	return dest, nil
}

func copyTree(src, dst string) error {
	return filepath.Walk(src, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)
		if info.IsDir() {
			return os.MkdirAll(target, info.Mode())
		}
		return copyOneFile(path, target, info.Mode())
	})
}

func copyOneFile(src, dst string, mode os.FileMode) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, mode)
	if err != nil {
		return err
	}
	defer out.Close()
	_, err = io.Copy(out, in)
	return err
}

// runFixMode implements Config.FixModePath: discover media under
// path, resolve dates the same way the full pipeline does, and write
// EXIF tags back in place, skipping dedup, album enrichment, and move
// entirely. No progress.json is written for this mode; it is meant for
// a quick repair pass over an already-organized tree.
func (o *Orchestrator) runFixMode(ctx context.Context) (*Report, error) {
	report := &Report{ExtractionMethodHistogram: make(map[string]int)}

	files, _, err := discover.Run(o.cfg.FixModePath)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errkind.PathResolution, err)
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("%w: no media found under %s", errkind.NoMediaFound, o.cfg.FixModePath)
	}

	var etSvc *exiftoolsvc.Service
	if et, err := exiftoolsvc.New(); err == nil {
		etSvc = et
		defer etSvc.Close()
	}

	entities := make([]*domain.MediaEntity, 0, len(files))
	for _, f := range files {
		f.TargetPath = f.SourcePath
		entities = append(entities, domain.NewMediaEntity(f))
	}

	start := time.Now()
	if err := o.runDateResolve(ctx, entities, etSvc, report); err != nil {
		return report, err
	}
	report.Stages = append(report.Stages, StageReport{
		Stage: StageDateResolve, Success: true, Duration: time.Since(start),
	})

	start = time.Now()
	writeStats, err := exifwrite.Run(ctx, entities, o.cfg, o.pools, exiftoolsvc.New)
	report.CoordinatesWritten += writeStats.CoordinatesWritten
	report.DatetimesWritten += writeStats.DatetimesWritten
	report.Stages = append(report.Stages, StageReport{
		Stage: StageExifWrite, Success: err == nil, Duration: time.Since(start), Error: errString(err),
	})
	if err != nil {
		return report, err
	}

	o.finalizeReport(entities, report)
	return report, nil
}
