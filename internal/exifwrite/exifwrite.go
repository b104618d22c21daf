// Package exifwrite implements the EXIF writer, executed post-move once
// every FileEntity has a target_path. It dispatches JPEGs to the native
// in-process writer (internal/exifread.WriteJPEG) and everything else to
// ExifTool, batched through internal/exiftoolsvc. Grounded on a
// per-worker Exiftool instance pattern, generalized to a pooled,
// batched, split-and-retry design.
package exifwrite

import (
	"context"
	"fmt"
	"log"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"gphotoreorg/internal/classify"
	"gphotoreorg/internal/config"
	"gphotoreorg/internal/domain"
	"gphotoreorg/internal/exifread"
	"gphotoreorg/internal/exiftoolsvc"
	"gphotoreorg/internal/pool"
)

const maxFileSizeForWrite = 64 * 1024 * 1024 // limit_file_size

// Stats are the counters the orchestrator folds into its final report.
type Stats struct {
	CoordinatesWritten int
	DatetimesWritten   int
	BatchesAttempted   int
	BatchesSplit       int
	PerFileRetries     int
	Skipped            int
	Failed             int
}

func (s *Stats) merge(o Stats) {
	s.CoordinatesWritten += o.CoordinatesWritten
	s.DatetimesWritten += o.DatetimesWritten
	s.BatchesAttempted += o.BatchesAttempted
	s.BatchesSplit += o.BatchesSplit
	s.PerFileRetries += o.PerFileRetries
	s.Skipped += o.Skipped
	s.Failed += o.Failed
}

// candidate is one physical output file queued for a write, paired with
// the MediaEntity fields that decide what gets written.
type candidate struct {
	path      string
	size      int64
	isVideo   bool
	isJPEG    bool
	dateTaken *time.Time
	gps       *domain.GPSCoordinates
}

// Run selects every eligible physical file across entities and writes
// date/GPS tags into it: physical files at their target_path, skipping
// shortcut files and pure duplicates.
func Run(ctx context.Context, entities []*domain.MediaEntity, cfg *config.Config, pools *pool.Set, svcFactory func() (*exiftoolsvc.Service, error)) (Stats, error) {
	var total Stats
	if !cfg.WriteExif {
		return total, nil
	}

	jpegBatch, exiftoolImageBatch, exiftoolVideoBatch := partition(entities, cfg)
	total.Skipped += countSkipped(entities, cfg)

	var mu sync.Mutex
	var wg sync.WaitGroup
	var firstErr atomic.Value
	var rerouted []candidate

	for _, c := range jpegBatch {
		c := c
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := pools.Get(pool.ExifReadWrite).Acquire(ctx); err != nil {
				return
			}
			defer pools.Get(pool.ExifReadWrite).Release()
			if !writeNativeJPEG(c, &mu, &total) {
				mu.Lock()
				rerouted = append(rerouted, c)
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	// Problematic JPEGs re-route to ExifTool writing.
	exiftoolImageBatch = append(exiftoolImageBatch, rerouted...)

	if len(exiftoolImageBatch) > 0 {
		if err := runExiftoolBatches(ctx, exiftoolImageBatch, cfg.ExiftoolImageBatchSize, pools, svcFactory, &mu, &total); err != nil {
			firstErr.Store(err)
		}
	}
	if len(exiftoolVideoBatch) > 0 {
		if err := runExiftoolBatches(ctx, exiftoolVideoBatch, cfg.ExiftoolVideoBatchSize, pools, svcFactory, &mu, &total); err != nil {
			firstErr.Store(err)
		}
	}

	if v := firstErr.Load(); v != nil {
		return total, v.(error)
	}
	return total, nil
}

// partition walks every AllFiles() entry once, splitting into the native
// JPEG batch and the two ExifTool batches (still image, video), skipping
// shortcuts, duplicates, and oversized files.
func partition(entities []*domain.MediaEntity, cfg *config.Config) (jpeg, exiftoolImage, exiftoolVideo []candidate) {
	for _, m := range entities {
		if m.DateTaken == nil && m.GPS == nil {
			continue
		}
		for _, f := range m.AllFiles() {
			if !eligible(f, cfg) {
				continue
			}
			ext := strings.ToLower(filepath.Ext(f.Basename()))
			c := candidate{path: f.TargetPath, size: f.Size, dateTaken: m.DateTaken, gps: m.GPS}
			switch {
			case classify.IsVideoExtension(ext):
				c.isVideo = true
				exiftoolVideo = append(exiftoolVideo, c)
			case ext == ".jpg" || ext == ".jpeg":
				c.isJPEG = true
				jpeg = append(jpeg, c)
			default:
				exiftoolImage = append(exiftoolImage, c)
			}
		}
	}
	return
}

func eligible(f *domain.FileEntity, cfg *config.Config) bool {
	if f.TargetPath == "" || f.IsDeleted || f.IsShortcut || f.IsDuplicateCopy {
		return false
	}
	if cfg.LimitFileSize && f.Size > maxFileSizeForWrite {
		return false
	}
	return true
}

func countSkipped(entities []*domain.MediaEntity, cfg *config.Config) int {
	n := 0
	for _, m := range entities {
		for _, f := range m.AllFiles() {
			if !eligible(f, cfg) {
				n++
			}
		}
	}
	return n
}

// writeNativeJPEG returns false when the native writer failed and the
// candidate should be rerouted to the ExifTool batch.
func writeNativeJPEG(c candidate, mu *sync.Mutex, total *Stats) bool {
	dt := c.dateTaken
	gps := c.gps
	err := exifread.WriteJPEG(c.path, dt, gps)
	mu.Lock()
	defer mu.Unlock()
	if err != nil {
		log.Printf("exifwrite: native write failed for %s, rerouting: %v", c.path, err)
		return false
	}
	if dt != nil {
		total.DatetimesWritten++
	}
	if gps != nil {
		total.CoordinatesWritten++
	}
	return true
}

// runExiftoolBatches chunks candidates into batchSize-sized requests and
// hands each chunk to one pooled ExifTool worker, following the typical
// image-batch 500-1000 / video-batch 16-32 sizing guidance.
func runExiftoolBatches(ctx context.Context, cands []candidate, batchSize int, pools *pool.Set, svcFactory func() (*exiftoolsvc.Service, error), mu *sync.Mutex, total *Stats) error {
	if batchSize <= 0 {
		batchSize = 1
	}
	var wg sync.WaitGroup
	var firstErr atomic.Value

	for start := 0; start < len(cands); start += batchSize {
		end := start + batchSize
		if end > len(cands) {
			end = len(cands)
		}
		chunk := cands[start:end]

		wg.Add(1)
		go func(chunk []candidate) {
			defer wg.Done()
			if err := pools.Get(pool.NetworkLike).Acquire(ctx); err != nil {
				return
			}
			defer pools.Get(pool.NetworkLike).Release()

			svc, err := svcFactory()
			if err != nil {
				firstErr.Store(fmt.Errorf("starting exiftool: %w", err))
				return
			}
			defer svc.Close()

			writeChunk(svc, chunk, mu, total)
		}(chunk)
	}
	wg.Wait()

	if v := firstErr.Load(); v != nil {
		return v.(error)
	}
	return nil
}

func writeChunk(svc *exiftoolsvc.Service, chunk []candidate, mu *sync.Mutex, total *Stats) {
	byPath := make(map[string]candidate, len(chunk))
	reqs := make([]exiftoolsvc.WriteRequest, 0, len(chunk))
	for _, c := range chunk {
		byPath[c.path] = c
		reqs = append(reqs, exiftoolsvc.WriteRequest{
			Path:     c.path,
			DateTime: c.dateTaken,
			GPS:      c.gps,
			IsVideo:  c.isVideo,
		})
	}

	mu.Lock()
	total.BatchesAttempted++
	mu.Unlock()

	result := svc.WriteBatch(reqs)

	mu.Lock()
	defer mu.Unlock()
	for _, path := range result.Succeeded {
		c := byPath[path]
		if c.dateTaken != nil {
			total.DatetimesWritten++
		}
		if c.gps != nil {
			total.CoordinatesWritten++
		}
	}
	if len(result.Failed) > 0 && len(result.Failed) < len(reqs) {
		total.BatchesSplit++
	}
	for path, msg := range result.Failed {
		total.PerFileRetries++
		total.Failed++
		log.Printf("exifwrite: exiftool write failed for %s: %s", path, msg)
	}
}
