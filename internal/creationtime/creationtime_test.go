package creationtime

import (
	"os"
	"path/filepath"
	"testing"

	"gphotoreorg/internal/domain"
)

func TestRunDisabledIsNoop(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.jpg")
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	entity := domain.NewMediaEntity(&domain.FileEntity{TargetPath: path})

	stats := Run([]*domain.MediaEntity{entity}, false)
	if stats != (Stats{}) {
		t.Errorf("Run(enabled=false) = %+v, want zero stats", stats)
	}
}

func TestRunSkipsFilesWithNoTargetOrDeleted(t *testing.T) {
	entities := []*domain.MediaEntity{
		domain.NewMediaEntity(&domain.FileEntity{}),
		domain.NewMediaEntity(&domain.FileEntity{TargetPath: "/some/path", IsDeleted: true}),
	}
	stats := Run(entities, true)
	if stats.Skipped != 2 {
		t.Errorf("Skipped = %d, want 2", stats.Skipped)
	}
	if stats.Updated != 0 || stats.Failed != 0 {
		t.Errorf("expected no updates or failures, got %+v", stats)
	}
}

func TestRunUpdatesPhysicalFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.jpg")
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	entity := domain.NewMediaEntity(&domain.FileEntity{TargetPath: path})

	stats := Run([]*domain.MediaEntity{entity}, true)
	if stats.Updated != 1 {
		t.Errorf("Updated = %d, want 1", stats.Updated)
	}
	if stats.Failed != 0 || stats.Skipped != 0 {
		t.Errorf("expected a clean pass, got %+v", stats)
	}
}

func TestRunCountsMissingFilesAsFailed(t *testing.T) {
	entity := domain.NewMediaEntity(&domain.FileEntity{TargetPath: "/nonexistent/path/a.jpg"})
	stats := Run([]*domain.MediaEntity{entity}, true)
	if stats.Failed != 1 {
		t.Errorf("Failed = %d, want 1", stats.Failed)
	}
}
