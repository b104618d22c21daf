package exifread

import (
	"fmt"
	"os"
	"time"

	"github.com/dsoprea/go-exif/v3"
	exifcommon "github.com/dsoprea/go-exif/v3/common"
	jpegstructure "github.com/dsoprea/go-jpeg-image-structure/v2"

	"gphotoreorg/internal/domain"
)

// ErrWriteUnsupported signals the caller should re-route the write to
// ExifTool, as it does for problematic JPEGs (e.g. a truncated
// InteropIFD).
var ErrWriteUnsupported = fmt.Errorf("jpeg structure not writable by native exif writer")

// toDMS decomposes an absolute decimal-degree coordinate into the
// degrees/minutes/seconds triplet the GPS IFD tags store, sign-correcting
// via the given positive/negative hemisphere letters.
func toDMS(decimal float64, positive, negative byte) exif.GpsDegreesValue {
	orientation := positive
	if decimal < 0 {
		orientation = negative
		decimal = -decimal
	}
	degrees := float64(int(decimal))
	minutesFull := (decimal - degrees) * 60
	minutes := float64(int(minutesFull))
	seconds := (minutesFull - minutes) * 60
	return exif.GpsDegreesValue{
		Orientation: orientation,
		Degrees:     degrees,
		Minutes:     minutes,
		Seconds:     seconds,
	}
}

// WriteJPEG sets DateTimeOriginal and DateTime (ExifTool's ModifyDate)
// and, if gps is non-nil, the GPS IFD, directly into path's EXIF segment
// without shelling out; CreateDate (DateTimeDigitized) is not written. Grounded on dsoprea/go-jpeg-image-structure's SegmentList,
// the sibling package to the go-exif/v3 reader already used by
// ReadDates/readGPS above.
func WriteJPEG(path string, dt *time.Time, gps *domain.GPSCoordinates) error {
	jmp := jpegstructure.NewJpegMediaParser()
	intfc, err := jmp.ParseFile(path)
	if err != nil {
		return fmt.Errorf("%w: parsing %s: %v", ErrWriteUnsupported, path, err)
	}
	sl, ok := intfc.(*jpegstructure.SegmentList)
	if !ok {
		return fmt.Errorf("%w: %s is not a segment list", ErrWriteUnsupported, path)
	}

	rootIb, err := sl.ConstructExifBuilder()
	if err != nil {
		im, mErr := exifcommon.NewIfdMappingWithStandard()
		if mErr != nil {
			return fmt.Errorf("building ifd mapping: %w", mErr)
		}
		ti := exif.NewTagIndex()
		rootIb = exif.NewIfdBuilder(im, ti, exifcommon.IfdStandardIfdIdentity, exifcommon.EncodeDefaultByteOrder)
	}

	if dt != nil {
		formatted := dt.UTC().Format(exifDateLayout)
		for _, tag := range []string{"DateTimeOriginal", "DateTime"} {
			if err := rootIb.SetStandardWithName(tag, formatted); err != nil {
				return fmt.Errorf("%w: setting %s: %v", ErrWriteUnsupported, tag, err)
			}
		}
	}

	if gps != nil {
		lat := toDMS(gps.Latitude, 'N', 'S')
		if err := rootIb.SetStandardWithName("GPSLatitude", lat); err != nil {
			return fmt.Errorf("%w: setting GPSLatitude: %v", ErrWriteUnsupported, err)
		}
		if err := rootIb.SetStandardWithName("GPSLatitudeRef", string(lat.Orientation)); err != nil {
			return fmt.Errorf("%w: setting GPSLatitudeRef: %v", ErrWriteUnsupported, err)
		}

		lon := toDMS(gps.Longitude, 'E', 'W')
		if err := rootIb.SetStandardWithName("GPSLongitude", lon); err != nil {
			return fmt.Errorf("%w: setting GPSLongitude: %v", ErrWriteUnsupported, err)
		}
		if err := rootIb.SetStandardWithName("GPSLongitudeRef", string(lon.Orientation)); err != nil {
			return fmt.Errorf("%w: setting GPSLongitudeRef: %v", ErrWriteUnsupported, err)
		}
	}

	if err := sl.SetExif(rootIb); err != nil {
		return fmt.Errorf("%w: applying exif builder: %v", ErrWriteUnsupported, err)
	}

	tmpPath := path + ".exiftmp"
	out, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("creating temp file for %s: %w", path, err)
	}
	if err := sl.Write(out); err != nil {
		out.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("%w: writing segments: %v", ErrWriteUnsupported, err)
	}
	if err := out.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("closing temp file for %s: %w", path, err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("replacing %s: %w", path, err)
	}
	return nil
}
