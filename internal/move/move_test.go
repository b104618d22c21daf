package move

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"gphotoreorg/internal/config"
	"gphotoreorg/internal/domain"
)

func TestDateDivisionPath(t *testing.T) {
	taken := time.Date(2021, time.March, 5, 0, 0, 0, 0, time.UTC)
	m := &domain.MediaEntity{DateTaken: &taken}

	tests := []struct {
		level config.DateDivision
		want  string
	}{
		{config.DivideNone, ""},
		{config.DivideYear, "2021"},
		{config.DivideYearMonth, filepath.Join("2021", "03")},
		{config.DivideYearMonthDay, filepath.Join("2021", "03", "05")},
	}
	for _, tt := range tests {
		if got := dateDivisionPath(m, tt.level); got != tt.want {
			t.Errorf("dateDivisionPath(level=%v) = %q, want %q", tt.level, got, tt.want)
		}
	}
}

func TestDateDivisionPathUnknownDate(t *testing.T) {
	m := &domain.MediaEntity{}
	if got := dateDivisionPath(m, config.DivideYear); got != dateUnknownDir {
		t.Errorf("dateDivisionPath with no date_taken = %q, want %q", got, dateUnknownDir)
	}
}

func TestTransformPixelName(t *testing.T) {
	tests := map[string]string{
		"MVIMG_20190101.MP":  "MVIMG_20190101.mp4",
		"MVIMG_20190101.MV":  "MVIMG_20190101.mp4",
		"IMG_20190101.jpg":   "IMG_20190101.jpg",
	}
	for in, want := range tests {
		if got := transformPixelName(in); got != want {
			t.Errorf("transformPixelName(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestUniqueNameNoCollision(t *testing.T) {
	dir := t.TempDir()
	path, collided, err := uniqueName(dir, "IMG_0001.jpg", "")
	if err != nil {
		t.Fatalf("uniqueName: %v", err)
	}
	if collided {
		t.Errorf("expected no collision in an empty directory")
	}
	if path != filepath.Join(dir, "IMG_0001.jpg") {
		t.Errorf("uniqueName() = %q, want the plain candidate path", path)
	}
}

func TestUniqueNameIncrementsSuffix(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "IMG_0001.jpg"), []byte("a"), 0o644); err != nil {
		t.Fatal(err)
	}
	path, collided, err := uniqueName(dir, "IMG_0001.jpg", "")
	if err != nil {
		t.Fatalf("uniqueName: %v", err)
	}
	if !collided {
		t.Fatalf("expected a collision against the existing file")
	}
	if path != filepath.Join(dir, "IMG_0001(1).jpg") {
		t.Errorf("uniqueName() = %q, want IMG_0001(1).jpg", path)
	}
}

func TestUniqueNameDoesNotStackSuffixes(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "IMG_0001.jpg"), []byte("a"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "IMG_0001(1).jpg"), []byte("b"), 0o644); err != nil {
		t.Fatal(err)
	}
	// Retrying with an already-suffixed base name must continue the same
	// counter, never produce "(1)(1)".
	path, _, err := uniqueName(dir, "IMG_0001(1).jpg", "")
	if err != nil {
		t.Fatalf("uniqueName: %v", err)
	}
	if path != filepath.Join(dir, "IMG_0001(2).jpg") {
		t.Errorf("uniqueName() = %q, want IMG_0001(2).jpg", path)
	}
}

func TestUniqueNameRecognizesRetryOfSameSource(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(t.TempDir(), "IMG_0001.jpg")
	if err := os.WriteFile(src, []byte("identical"), 0o644); err != nil {
		t.Fatal(err)
	}
	dst := filepath.Join(dir, "IMG_0001.jpg")
	if err := os.WriteFile(dst, []byte("identical"), 0o644); err != nil {
		t.Fatal(err)
	}

	path, collided, err := uniqueName(dir, "IMG_0001.jpg", src)
	if err != nil {
		t.Fatalf("uniqueName: %v", err)
	}
	if collided {
		t.Errorf("expected a retried move against its own prior output to not be treated as a new collision")
	}
	if path != dst {
		t.Errorf("uniqueName() = %q, want the existing destination %q", path, dst)
	}
}
