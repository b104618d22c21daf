// Package exifread implements the native (in-process) half of EXIF date
// and GPS resolution and EXIF writing: reading every supported EXIF date
// tag and the GPS IFD directly from file bytes, without shelling out to
// ExifTool. Grounded on the dsoprea/go-exif/v3 tag-walking pattern in a
// dupe-detection web UI's getExif helper (SearchAndExtractExif ->
// Collect -> root/Exif IFD FindTagWithName), generalized to the full
// date-tag list and GPS extraction.
package exifread

import (
	"fmt"
	"os"
	"time"

	"github.com/dsoprea/go-exif/v3"
	exifcommon "github.com/dsoprea/go-exif/v3/common"
	"github.com/golang/geo/s2"

	"gphotoreorg/internal/domain"
)

// dateTags is every supported date tag, in the order native image IFDs
// are likely to carry them. Video-only tags
// (MediaCreateDate, TrackCreateDate, EncodedDate) are not present in
// still-image EXIF and are only ever populated by the ExifTool resolver.
var dateTags = []string{
	"DateTimeOriginal",
	"DateTime",
	"CreateDate",
	"DateCreated",
	"CreationDate",
	"ModifyDate",
	"MetadataDate",
}

const exifDateLayout = "2006:01:02 15:04:05"

// ErrUnsupportedFormat signals the caller should fall back to ExifTool,
// per the fallback_to_exiftool_on_native_miss config flag.
var ErrUnsupportedFormat = fmt.Errorf("format unsupported by native exif reader")

// Result is every oldest-valid date tag found, plus any GPS tags.
type Result struct {
	OldestDate time.Time
	Found      bool
	GPS        *domain.GPSCoordinates
}

// ReadDates parses EXIF date tags from path, rejecting obviously-bad
// values (year<1970 or >current+1), and returns the oldest valid one.
func ReadDates(path string) (Result, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Result{}, fmt.Errorf("reading %s: %w", path, err)
	}

	rawExif, err := exif.SearchAndExtractExif(data)
	if err != nil {
		return Result{}, ErrUnsupportedFormat
	}

	ti := exif.NewTagIndex()
	if err := exif.LoadStandardTags(ti); err != nil {
		return Result{}, fmt.Errorf("loading exif tag index: %w", err)
	}
	ifdMapping, err := exifcommon.NewIfdMappingWithStandard()
	if err != nil {
		return Result{}, fmt.Errorf("building ifd mapping: %w", err)
	}
	_, index, err := exif.Collect(ifdMapping, ti, rawExif)
	if err != nil {
		return Result{}, fmt.Errorf("collecting exif ifds: %w", err)
	}

	rootIfd := index.RootIfd
	var exifIfd *exif.Ifd
	if ifd, ok := index.Lookup["IFD/Exif"]; ok {
		exifIfd = ifd
	}

	var oldest time.Time
	found := false
	now := time.Now()

	tryTag := func(ifd *exif.Ifd, tag string) {
		if ifd == nil {
			return
		}
		entries, err := ifd.FindTagWithName(tag)
		if err != nil || len(entries) == 0 {
			return
		}
		s, err := entries[0].FormatFirst()
		if err != nil || s == "" {
			return
		}
		t, err := time.Parse(exifDateLayout, s)
		if err != nil {
			return
		}
		if t.Year() < 1970 || t.After(now.AddDate(1, 0, 0)) {
			return
		}
		if !found || t.Before(oldest) {
			oldest = t
			found = true
		}
	}

	for _, tag := range dateTags {
		tryTag(rootIfd, tag)
		tryTag(exifIfd, tag)
	}

	res := Result{OldestDate: oldest, Found: found}
	if gps := readGPS(rootIfd); gps != nil {
		res.GPS = gps
	}
	return res, nil
}

// readGPS reads the GPS sub-IFD via dsoprea's GpsInfo() helper and
// validates the coordinate pair with golang/geo's s2.LatLng, rejecting
// degenerate (NaN / out-of-range) values before they reach the domain
// model.
func readGPS(rootIfd *exif.Ifd) *domain.GPSCoordinates {
	if rootIfd == nil {
		return nil
	}
	gi, err := rootIfd.GpsInfo()
	if err != nil || gi == nil {
		return nil
	}
	ll := s2.LatLngFromDegrees(gi.Latitude.Decimal(), gi.Longitude.Decimal())
	if !ll.IsValid() {
		return nil
	}
	return &domain.GPSCoordinates{
		Latitude:  gi.Latitude.Decimal(),
		Longitude: gi.Longitude.Decimal(),
		Altitude:  float64(gi.Altitude),
	}
}
