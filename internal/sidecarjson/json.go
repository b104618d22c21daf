// Package sidecarjson decodes the Takeout sidecar JSON schema fields
// consumed by this pipeline: photoTakenTime, creationTime,
// geoData, and googlePhotosOrigin.fromPartnerSharing.
package sidecarjson

import (
	"encoding/json"
	"os"
	"strconv"
	"time"
)

// timestampField decodes Takeout's epoch-seconds-as-string convention.
type timestampField struct {
	Timestamp string `json:"timestamp"`
}

// Sidecar is the subset of the Takeout per-file JSON schema this pipeline
// reads.
type Sidecar struct {
	Title       string `json:"title"`
	Description string `json:"description"`

	CreationTimeRaw   timestampField `json:"creationTime"`
	PhotoTakenTimeRaw timestampField `json:"photoTakenTime"`

	GeoData struct {
		Latitude  float64 `json:"latitude"`
		Longitude float64 `json:"longitude"`
		Altitude  float64 `json:"altitude"`
	} `json:"geoData"`

	GooglePhotosOrigin struct {
		FromPartnerSharing *struct{} `json:"fromPartnerSharing"`
	} `json:"googlePhotosOrigin"`
}

// Load parses the sidecar JSON file at path.
func Load(path string) (*Sidecar, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var s Sidecar
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// PhotoTakenTime parses the photoTakenTime.timestamp field (epoch
// seconds, UTC), the primary date source.
func (s *Sidecar) PhotoTakenTime() (time.Time, bool) {
	return parseEpochSeconds(s.PhotoTakenTimeRaw.Timestamp)
}

// CreationTime parses the creationTime.timestamp field, a secondary
// timestamp some callers use when photoTakenTime is absent/zero.
func (s *Sidecar) CreationTime() (time.Time, bool) {
	return parseEpochSeconds(s.CreationTimeRaw.Timestamp)
}

func parseEpochSeconds(raw string) (time.Time, bool) {
	if raw == "" {
		return time.Time{}, false
	}
	secs, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return time.Time{}, false
	}
	return time.Unix(secs, 0).UTC(), true
}

// HasGPS reports whether geoData carries a non-zero coordinate pair
// (Takeout emits 0,0 instead of omitting the field when there is none).
func (s *Sidecar) HasGPS() bool {
	return s.GeoData.Latitude != 0 || s.GeoData.Longitude != 0
}

// PartnerShared reports googlePhotosOrigin.fromPartnerSharing presence.
func (s *Sidecar) PartnerShared() bool {
	return s.GooglePhotosOrigin.FromPartnerSharing != nil
}
