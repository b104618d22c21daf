// Package dateresolve implements the ordered
// chain of date resolvers (json, external_dictionary, native_exif,
// exiftool_exif, filename_guess, folder_year, json_aggressive). The first
// resolver to return a timestamp fixes date_taken and
// date_time_extraction_method; a resolver failure never halts the
// pipeline.
package dateresolve

import (
	"path/filepath"
	"time"

	"gphotoreorg/internal/classify"
	"gphotoreorg/internal/config"
	"gphotoreorg/internal/domain"
	"gphotoreorg/internal/exifread"
	"gphotoreorg/internal/exiftoolsvc"
	"gphotoreorg/internal/sidecar"
	"gphotoreorg/internal/sidecarjson"
)

// Resolution is the outcome for a single FileEntity.
type Resolution struct {
	Date     time.Time
	Accuracy domain.DateAccuracy
	Method   domain.ExtractionMethod
	GPS      *domain.GPSCoordinates
	// PartnerShared is set when the matched sidecar carries
	// googlePhotosOrigin.fromPartnerSharing.
	PartnerShared bool
	Found         bool
}

// Resolve runs the fixed resolver order against f. It
// is called once per FileEntity in stage 4; the orchestrator applies the
// result to the owning MediaEntity via SetDateIfMoreAccurate so that a
// later, less-accurate file in the same entity cannot downgrade an
// already-resolved date.
func Resolve(f *domain.FileEntity, cfg *config.Config, et *exiftoolsvc.Service) Resolution {
	// The external dictionary resolver sits ahead of native_exif but
	// behind sidecar JSON: sidecar JSON (resolver 1) still outranks it.
	if r, ok := resolveJSON(f, false); ok {
		return r
	}
	if r, ok := resolveExternalDictionary(f, cfg); ok {
		return r
	}
	if r, ok := resolveNativeExif(f, cfg); ok {
		return r
	}
	if r, ok := resolveExiftoolExif(f, cfg, et); ok {
		return r
	}
	if cfg.GuessFromName {
		if r, ok := resolveFilenameGuess(f); ok {
			return r
		}
	}
	if r, ok := resolveFolderYear(f); ok {
		return r
	}
	if r, ok := resolveJSON(f, true); ok {
		return r
	}
	return Resolution{Method: domain.MethodNone}
}

func resolveJSON(f *domain.FileEntity, aggressive bool) (Resolution, bool) {
	sidecarPath := f.SidecarPath
	if sidecarPath == "" {
		if m, ok := sidecar.Find(f.SourcePath, aggressive); ok {
			sidecarPath = m.Path
		} else {
			return Resolution{}, false
		}
	} else if aggressive {
		// Non-aggressive already tried this exact sidecar; aggressive
		// retry must look harder via cross-extension matching.
		if m, ok := sidecar.Find(f.SourcePath, true); ok && m.Aggressive {
			sidecarPath = m.Path
		} else {
			return Resolution{}, false
		}
	}

	sc, err := sidecarjson.Load(sidecarPath)
	if err != nil {
		return Resolution{}, false
	}
	t, ok := sc.PhotoTakenTime()
	if !ok {
		t, ok = sc.CreationTime()
	}
	if !ok {
		return Resolution{}, false
	}

	res := Resolution{
		Date:          t,
		Found:         true,
		PartnerShared: sc.PartnerShared(),
	}
	if aggressive {
		res.Accuracy = domain.AccuracyJSONAggressive
		res.Method = domain.MethodJSONAggressive
	} else {
		res.Accuracy = domain.AccuracyJSON
		res.Method = domain.MethodJSON
	}
	if sc.HasGPS() {
		res.GPS = &domain.GPSCoordinates{
			Latitude:  sc.GeoData.Latitude,
			Longitude: sc.GeoData.Longitude,
			Altitude:  sc.GeoData.Altitude,
		}
	}
	return res, true
}

func resolveExternalDictionary(f *domain.FileEntity, cfg *config.Config) (Resolution, bool) {
	if cfg.FileDatesDictionary == nil {
		return Resolution{}, false
	}
	hint, ok := cfg.FileDatesDictionary[f.SourcePath]
	if !ok {
		return Resolution{}, false
	}
	t, err := time.Parse(time.RFC3339, hint.OldestDate)
	if err != nil {
		t, err = time.Parse("2006-01-02", hint.OldestDate)
		if err != nil {
			return Resolution{}, false
		}
	}
	return Resolution{
		Date:     t,
		Found:    true,
		Accuracy: domain.AccuracyExternalDictionary,
		Method:   domain.MethodExternalDict,
	}, true
}

func resolveNativeExif(f *domain.FileEntity, cfg *config.Config) (Resolution, bool) {
	res, err := exifread.ReadDates(f.SourcePath)
	if err == exifread.ErrUnsupportedFormat {
		if fb, fbErr := exifread.ReadDatesFallback(f.SourcePath); fbErr == nil && fb.Found {
			return Resolution{
				Date: fb.OldestDate, Found: true,
				Accuracy: domain.AccuracyNativeExif, Method: domain.MethodNativeExif,
			}, true
		}
		return Resolution{}, false
	}
	if err != nil || !res.Found {
		return Resolution{}, false
	}
	return Resolution{
		Date: res.OldestDate, Found: true,
		Accuracy: domain.AccuracyNativeExif, Method: domain.MethodNativeExif,
		GPS: res.GPS,
	}, true
}

func resolveExiftoolExif(f *domain.FileEntity, cfg *config.Config, et *exiftoolsvc.Service) (Resolution, bool) {
	if et == nil || !cfg.FallbackToExiftoolOnNativeMiss {
		return Resolution{}, false
	}
	t, ok := et.ReadDates(f.SourcePath)
	if !ok {
		return Resolution{}, false
	}
	return Resolution{
		Date: t, Found: true,
		Accuracy: domain.AccuracyExiftoolExif, Method: domain.MethodExiftoolExif,
	}, true
}

func resolveFilenameGuess(f *domain.FileEntity) (Resolution, bool) {
	t, ok := GuessFromFilename(filepath.Base(f.SourcePath))
	if !ok {
		return Resolution{}, false
	}
	return Resolution{
		Date: t, Found: true,
		Accuracy: domain.AccuracyFilenameGuess, Method: domain.MethodFilenameGuess,
	}, true
}

func resolveFolderYear(f *domain.FileEntity) (Resolution, bool) {
	dir := filepath.Base(filepath.Dir(f.SourcePath))
	year, ok := classify.YearFromFolderName(dir)
	if !ok {
		return Resolution{}, false
	}
	return Resolution{
		Date: time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC), Found: true,
		Accuracy: domain.AccuracyFolderYear, Method: domain.MethodFolderYear,
	}, true
}
