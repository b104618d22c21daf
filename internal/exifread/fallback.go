// fallback.go adds a second, lighter-weight native EXIF decode attempt
// using rwcarlsen/goexif, grounded on tendant-photo-organizer's main.go
// (which reads DateTimeOriginal/DateTime via this exact library) and the
// retrieval pack's other goexif-based tool. dsoprea/go-exif/v3 is tried
// first since it also yields GPS; this fallback exists for the formats
// dsoprea's stricter IFD walk rejects but goexif's looser one accepts.
package exifread

import (
	"os"
	"time"

	goexif "github.com/rwcarlsen/goexif/exif"
)

// ReadDatesFallback re-attempts date extraction with rwcarlsen/goexif,
// used when ReadDates returns ErrUnsupportedFormat.
func ReadDatesFallback(path string) (Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return Result{}, err
	}
	defer f.Close()

	x, err := goexif.Decode(f)
	if err != nil {
		return Result{}, ErrUnsupportedFormat
	}

	// x.DateTime() already prefers DateTimeOriginal and falls back to
	// DateTime/DateTimeDigitized internally.
	t, err := x.DateTime()
	if err != nil {
		return Result{}, nil
	}
	now := time.Now()
	if t.Year() < 1970 || t.After(now.AddDate(1, 0, 0)) {
		return Result{}, nil
	}

	return Result{OldestDate: t, Found: true}, nil
}
