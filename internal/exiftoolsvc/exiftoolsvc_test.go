package exiftoolsvc

import (
	"testing"
	"time"

	"gphotoreorg/internal/domain"
)

func TestParseExifDateAcceptsColonSeparatedLayout(t *testing.T) {
	got, err := parseExifDate("2019:06:15 12:00:00")
	if err != nil {
		t.Fatalf("parseExifDate: %v", err)
	}
	want := time.Date(2019, time.June, 15, 12, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("parseExifDate() = %v, want %v", got, want)
	}
}

func TestParseExifDateAcceptsRFC3339(t *testing.T) {
	got, err := parseExifDate("2019-06-15T12:00:00Z")
	if err != nil {
		t.Fatalf("parseExifDate: %v", err)
	}
	if got.Year() != 2019 || got.Month() != time.June || got.Day() != 15 {
		t.Errorf("parseExifDate() = %v, want 2019-06-15", got)
	}
}

func TestParseExifDateRejectsGarbage(t *testing.T) {
	if _, err := parseExifDate("not a date"); err == nil {
		t.Fatal("expected an error for an unparsable date string")
	}
}

func TestLatLonRef(t *testing.T) {
	cases := []struct {
		lat, lon   float64
		wantLatRef string
		wantLonRef string
	}{
		{40.0, -73.0, "N", "W"},
		{-33.0, 151.0, "S", "E"},
		{0, 0, "N", "E"},
	}
	for _, c := range cases {
		if got := latRef(c.lat); got != c.wantLatRef {
			t.Errorf("latRef(%v) = %s, want %s", c.lat, got, c.wantLatRef)
		}
		if got := lonRef(c.lon); got != c.wantLonRef {
			t.Errorf("lonRef(%v) = %s, want %s", c.lon, got, c.wantLonRef)
		}
	}
}

func TestBuildArgfileArgsIncludesDateAndGPSAssignments(t *testing.T) {
	dt := time.Date(2020, time.January, 2, 3, 4, 5, 0, time.UTC)
	reqs := []WriteRequest{
		{
			Path:     "/photos/a.jpg",
			DateTime: &dt,
			GPS:      &domain.GPSCoordinates{Latitude: 10.5, Longitude: -20.25},
		},
	}
	args := buildArgfileArgs(reqs)

	want := []string{
		"-DateTimeOriginal=2020:01:02 03:04:05",
		"-GPSLatitude=10.500000",
		"-GPSLatitudeRef=N",
		"-GPSLongitude=-20.250000",
		"-GPSLongitudeRef=W",
		"/photos/a.jpg",
		"-execute",
	}
	if len(args) != len(want) {
		t.Fatalf("buildArgfileArgs() = %v, want %v", args, want)
	}
	for i := range want {
		if args[i] != want[i] {
			t.Errorf("args[%d] = %q, want %q", i, args[i], want[i])
		}
	}
}

func TestBuildArgfileArgsOmitsAbsentFields(t *testing.T) {
	reqs := []WriteRequest{{Path: "/photos/b.jpg"}}
	args := buildArgfileArgs(reqs)
	want := []string{"/photos/b.jpg", "-execute"}
	if len(args) != len(want) {
		t.Fatalf("buildArgfileArgs() = %v, want %v", args, want)
	}
	for i := range want {
		if args[i] != want[i] {
			t.Errorf("args[%d] = %q, want %q", i, args[i], want[i])
		}
	}
}

func TestWriteBatchOnNilServiceReturnsEmptyForEmptyInput(t *testing.T) {
	var s Service
	result := s.WriteBatch(nil)
	if len(result.Succeeded) != 0 || len(result.Failed) != 0 {
		t.Errorf("WriteBatch(nil) = %+v, want an empty result", result)
	}
}
