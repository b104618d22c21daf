package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"gphotoreorg/internal/config"
)

func writeFile(t *testing.T, path string, data []byte) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestOrchestratorRunEndToEnd(t *testing.T) {
	root := t.TempDir()
	input := filepath.Join(root, "Takeout", "Google Photos")
	output := filepath.Join(root, "output")

	writeFile(t, filepath.Join(input, "Photos from 2019", "IMG_0001.jpg"), []byte("fake jpeg bytes one"))
	writeFile(t, filepath.Join(input, "Photos from 2019", "IMG_0001.jpg.json"), []byte(`{"photoTakenTime":{"timestamp":"1560000000"}}`))
	writeFile(t, filepath.Join(input, "Vacation", "IMG_0001.jpg"), []byte("fake jpeg bytes one"))
	writeFile(t, filepath.Join(input, "Photos from 2020", "IMG_0002.jpg"), []byte("fake jpeg bytes two, different"))

	cfg := config.Default()
	cfg.Input = input
	cfg.Output = output
	cfg.WriteExif = false // avoid depending on an external exiftool binary
	cfg.GuessFromName = false

	orch := New(cfg)
	report, err := orch.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if report.MediaProcessed != 2 {
		t.Errorf("MediaProcessed = %d, want 2 (one merged year/album pair + one distinct file)", report.MediaProcessed)
	}
	// The pair lives in two different folders, so the album copy is kept as
	// a secondary rather than removed as an in-folder duplicate.
	if report.DuplicatesRemoved != 0 {
		t.Errorf("DuplicatesRemoved = %d, want 0", report.DuplicatesRemoved)
	}

	// The year-2019 copy should have been placed into ALL_PHOTOS and the
	// Vacation folder copy should have become a shortcut, per the default
	// AlbumShortcut strategy.
	allPhotos := filepath.Join(output, "ALL_PHOTOS", "IMG_0001.jpg")
	if _, err := os.Stat(allPhotos); err != nil {
		t.Errorf("expected a placed file at %s: %v", allPhotos, err)
	}
	albumLink := filepath.Join(output, "Albums", "Vacation", "IMG_0001.jpg")
	if _, err := os.Lstat(albumLink); err != nil {
		t.Errorf("expected an album shortcut at %s: %v", albumLink, err)
	}

	secondFile := filepath.Join(output, "ALL_PHOTOS", "IMG_0002.jpg")
	if _, err := os.Stat(secondFile); err != nil {
		t.Errorf("expected the distinct second file at %s: %v", secondFile, err)
	}

	if _, err := os.Stat(filepath.Join(output, "progress.json")); err != nil {
		t.Errorf("expected progress.json to be written: %v", err)
	}
	if _, err := os.Stat(filepath.Join(output, "report.json")); err != nil {
		t.Errorf("expected report.json to be written: %v", err)
	}

	for _, s := range report.Stages {
		if !s.Success {
			t.Errorf("stage %s failed: %s", s.Stage, s.Message)
		}
	}
}

func TestOrchestratorRunErrorsWhenNoMediaFound(t *testing.T) {
	root := t.TempDir()
	input := filepath.Join(root, "empty")
	if err := os.MkdirAll(input, 0o755); err != nil {
		t.Fatal(err)
	}

	cfg := config.Default()
	cfg.Input = input
	cfg.Output = filepath.Join(root, "output")
	cfg.WriteExif = false

	orch := New(cfg)
	if _, err := orch.Run(context.Background()); err == nil {
		t.Fatal("expected an error for an input tree with no media")
	}
}
