// Package exiftoolsvc wraps a long-lived ExifTool process run with
// `-stay_open True -@ <argfile>`. It backs both the exiftool_exif date
// resolver and the ExifTool half of the EXIF writer. Grounded on
// github.com/barasher/go-exiftool's NewExiftool/ExtractMetadata usage,
// generalized to batched writes with argfiles and split-and-retry on
// partial failure.
package exiftoolsvc

import (
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	exiftool "github.com/barasher/go-exiftool"

	"gphotoreorg/internal/domain"
)

// Service owns one long-lived ExifTool process per worker, matching the
// teacher's worker-owns-its-own-instance pattern in util/import.go.
type Service struct {
	et *exiftool.Exiftool
}

// New starts a new ExifTool process whose output scanner uses a 4MB
// buffer (with a 2MB maximum-token argument).
func New() (*Service, error) {
	buf := make([]byte, 4096*1024)
	et, err := exiftool.NewExiftool(exiftool.Buffer(buf, 2048*1024))
	if err != nil {
		return nil, fmt.Errorf("starting exiftool: %w", err)
	}
	return &Service{et: et}, nil
}

// Close terminates the underlying ExifTool process.
func (s *Service) Close() error {
	return s.et.Close()
}

// videoDateTags additionally get written for videos so container and
// per-track dates stay consistent
var videoDateTags = []string{"CreateDate", "ModifyDate", "TrackCreateDate", "MediaCreateDate"}

// ReadDates extracts every supported date tag from path via ExifTool and
// returns the oldest valid one, the same semantics as the native reader.
func (s *Service) ReadDates(path string) (time.Time, bool) {
	metas := s.et.ExtractMetadata(path)
	if len(metas) == 0 || metas[0].Err != nil {
		return time.Time{}, false
	}
	fields := metas[0].Fields

	var oldest time.Time
	found := false
	now := time.Now()
	candidates := []string{
		"DateTimeOriginal", "DateTime", "CreateDate", "DateCreated",
		"CreationDate", "MediaCreateDate", "TrackCreateDate", "EncodedDate",
		"MetadataDate", "ModifyDate",
	}
	for _, tag := range candidates {
		raw, ok := fields[tag]
		if !ok {
			continue
		}
		s, ok := raw.(string)
		if !ok || s == "" {
			continue
		}
		t, err := parseExifDate(s)
		if err != nil {
			continue
		}
		if t.Year() < 1970 || t.After(now.AddDate(1, 0, 0)) {
			continue
		}
		if !found || t.Before(oldest) {
			oldest = t
			found = true
		}
	}
	return oldest, found
}

func parseExifDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	layouts := []string{"2006:01:02 15:04:05", "2006:01:02 15:04:05-07:00", time.RFC3339}
	var lastErr error
	for _, layout := range layouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		} else {
			lastErr = err
		}
	}
	return time.Time{}, lastErr
}

// WriteRequest is one file's worth of tag assignments for a batched
// ExifTool write.
type WriteRequest struct {
	Path     string
	DateTime *time.Time
	GPS      *domain.GPSCoordinates
	IsVideo  bool
}

// BatchResult reports per-file success/failure attribution parsed out of
// an ExifTool execute block's stdout/stderr
type BatchResult struct {
	Succeeded []string
	Failed    map[string]string // path -> error message
}

// WriteBatch writes DateTime/GPS tags for every request in one
// WriteMetadata call (ExifTool's -@ argfile execution under the hood),
// then splits and retries failures: if the batch comes back with every
// file erroring, the argfile execution itself is the likely cause
// rather than each file being individually bad, so the same set is
// retried once more as a batch before falling back to a per-file
// WriteMetadata call for whatever is still failing.
func (s *Service) WriteBatch(reqs []WriteRequest) BatchResult {
	result := BatchResult{Failed: make(map[string]string)}
	if len(reqs) == 0 {
		return result
	}

	metas := buildFileMetadata(reqs)
	s.et.WriteMetadata(metas)
	offenders := splitFailures(reqs, metas, &result)
	if len(offenders) == 0 {
		return result
	}

	if len(offenders) == len(reqs) && len(reqs) > 1 {
		retryMetas := buildFileMetadata(offenders)
		s.et.WriteMetadata(retryMetas)
		offenders = splitFailures(offenders, retryMetas, &result)
	}

	for _, req := range offenders {
		if err := s.writeOne(req); err != nil {
			result.Failed[req.Path] = err.Error()
			log.Printf("exiftoolsvc: %s still failing after batch and per-file retry, attempted args: %v", req.Path, buildArgfileArgs([]WriteRequest{req}))
			continue
		}
		result.Succeeded = append(result.Succeeded, req.Path)
	}
	return result
}

// splitFailures walks metas (the result of a WriteMetadata call made
// against reqs, same order, same length) and records successes directly
// into result, returning the subset of reqs whose write errored.
func splitFailures(reqs []WriteRequest, metas []exiftool.FileMetadata, result *BatchResult) []WriteRequest {
	var offenders []WriteRequest
	for i, m := range metas {
		if m.Err == nil {
			result.Succeeded = append(result.Succeeded, reqs[i].Path)
			continue
		}
		offenders = append(offenders, reqs[i])
	}
	return offenders
}

// buildFileMetadata renders one exiftool.FileMetadata per request, ready
// for a single batched WriteMetadata call.
func buildFileMetadata(reqs []WriteRequest) []exiftool.FileMetadata {
	metas := make([]exiftool.FileMetadata, len(reqs))
	for i, req := range reqs {
		metas[i] = exiftool.FileMetadata{File: req.Path, Fields: fieldsForRequest(req)}
	}
	return metas
}

// fieldsForRequest builds the ExifTool tag assignment map for one write
// request.
func fieldsForRequest(req WriteRequest) map[string]interface{} {
	fields := make(map[string]interface{})
	if req.DateTime != nil {
		formatted := req.DateTime.UTC().Format("2006:01:02 15:04:05")
		fields["DateTimeOriginal"] = formatted
		fields["CreateDate"] = formatted
		fields["ModifyDate"] = formatted
		if req.IsVideo {
			for _, tag := range videoDateTags {
				fields[tag] = formatted
			}
		}
	}
	if req.GPS != nil {
		fields["GPSLatitude"] = fmt.Sprintf("%.6f", req.GPS.Latitude)
		fields["GPSLatitudeRef"] = latRef(req.GPS.Latitude)
		fields["GPSLongitude"] = fmt.Sprintf("%.6f", req.GPS.Longitude)
		fields["GPSLongitudeRef"] = lonRef(req.GPS.Longitude)
		if req.GPS.Altitude != 0 {
			fields["GPSAltitude"] = strconv.FormatFloat(req.GPS.Altitude, 'f', 2, 64)
		}
	}
	return fields
}

// writeOne applies one file's tag assignments via a single-element
// WriteMetadata call, the last-resort fallback once batching has been
// ruled out for a given request.
func (s *Service) writeOne(req WriteRequest) error {
	fields := fieldsForRequest(req)
	if len(fields) == 0 {
		return nil
	}
	metas := []exiftool.FileMetadata{{File: req.Path, Fields: fields}}
	s.et.WriteMetadata(metas)
	if metas[0].Err != nil {
		return metas[0].Err
	}
	return nil
}

func latRef(lat float64) string {
	if lat < 0 {
		return "S"
	}
	return "N"
}

func lonRef(lon float64) string {
	if lon < 0 {
		return "W"
	}
	return "E"
}

// buildArgfileArgs renders the "-@" argfile lines a batch would carry on
// the command-line ExifTool protocol, used to log what was attempted
// once a request has exhausted batch and per-file retries.
func buildArgfileArgs(reqs []WriteRequest) []string {
	var lines []string
	for _, r := range reqs {
		if r.DateTime != nil {
			formatted := r.DateTime.UTC().Format("2006:01:02 15:04:05")
			lines = append(lines, fmt.Sprintf("-DateTimeOriginal=%s", formatted))
		}
		if r.GPS != nil {
			lines = append(lines, fmt.Sprintf("-GPSLatitude=%.6f", r.GPS.Latitude))
			lines = append(lines, fmt.Sprintf("-GPSLatitudeRef=%s", latRef(r.GPS.Latitude)))
			lines = append(lines, fmt.Sprintf("-GPSLongitude=%.6f", r.GPS.Longitude))
			lines = append(lines, fmt.Sprintf("-GPSLongitudeRef=%s", lonRef(r.GPS.Longitude)))
		}
		lines = append(lines, r.Path)
	}
	lines = append(lines, "-execute")
	return lines
}
