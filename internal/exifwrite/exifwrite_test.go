package exifwrite

import (
	"testing"
	"time"

	"gphotoreorg/internal/config"
	"gphotoreorg/internal/domain"
)

func mediaWithTarget(targetPath string, size int64, dateTaken *time.Time) *domain.MediaEntity {
	f := &domain.FileEntity{TargetPath: targetPath, Size: size}
	return &domain.MediaEntity{PrimaryFile: f, DateTaken: dateTaken}
}

func TestEligibleRejectsShortcutsDuplicatesAndUnplaced(t *testing.T) {
	cfg := config.Default()
	base := &domain.FileEntity{TargetPath: "/out/a.jpg", Size: 100}

	if !eligible(base, cfg) {
		t.Error("expected a plain placed file to be eligible")
	}

	unplaced := &domain.FileEntity{Size: 100}
	if eligible(unplaced, cfg) {
		t.Error("expected a file with no TargetPath to be ineligible")
	}

	shortcut := &domain.FileEntity{TargetPath: "/out/a.jpg", Size: 100, IsShortcut: true}
	if eligible(shortcut, cfg) {
		t.Error("expected a shortcut file to be ineligible")
	}

	dup := &domain.FileEntity{TargetPath: "/out/a.jpg", Size: 100, IsDuplicateCopy: true}
	if eligible(dup, cfg) {
		t.Error("expected a duplicate-copy file to be ineligible")
	}

	deleted := &domain.FileEntity{TargetPath: "/out/a.jpg", Size: 100, IsDeleted: true}
	if eligible(deleted, cfg) {
		t.Error("expected a deleted file to be ineligible")
	}
}

func TestEligibleRespectsLimitFileSize(t *testing.T) {
	cfg := config.Default()
	cfg.LimitFileSize = true
	big := &domain.FileEntity{TargetPath: "/out/big.mov", Size: maxFileSizeForWrite + 1}
	if eligible(big, cfg) {
		t.Error("expected an oversized file to be ineligible when LimitFileSize is set")
	}

	cfg.LimitFileSize = false
	if !eligible(big, cfg) {
		t.Error("expected an oversized file to be eligible when LimitFileSize is disabled")
	}
}

func TestPartitionRoutesByExtensionAndSkipsEntitiesWithNoSignal(t *testing.T) {
	dt := time.Date(2020, time.May, 1, 0, 0, 0, 0, time.UTC)
	cfg := config.Default()

	entities := []*domain.MediaEntity{
		mediaWithTarget("/out/2020/a.jpg", 10, &dt),
		mediaWithTarget("/out/2020/b.heic", 10, &dt),
		mediaWithTarget("/out/2020/c.mp4", 10, &dt),
		mediaWithTarget("/out/2020/d.jpg", 10, nil), // no date, no GPS: excluded entirely
	}

	jpeg, exiftoolImage, exiftoolVideo := partition(entities, cfg)

	if len(jpeg) != 1 || jpeg[0].path != "/out/2020/a.jpg" {
		t.Errorf("jpeg batch = %+v, want exactly a.jpg", jpeg)
	}
	if len(exiftoolImage) != 1 || exiftoolImage[0].path != "/out/2020/b.heic" {
		t.Errorf("exiftool image batch = %+v, want exactly b.heic", exiftoolImage)
	}
	if len(exiftoolVideo) != 1 || !exiftoolVideo[0].isVideo || exiftoolVideo[0].path != "/out/2020/c.mp4" {
		t.Errorf("exiftool video batch = %+v, want exactly c.mp4 marked isVideo", exiftoolVideo)
	}
}

func TestPartitionSkipsIneligibleFiles(t *testing.T) {
	dt := time.Date(2020, time.May, 1, 0, 0, 0, 0, time.UTC)
	cfg := config.Default()

	shortcutFile := &domain.FileEntity{TargetPath: "/out/x.jpg", Size: 10, IsShortcut: true}
	m := &domain.MediaEntity{PrimaryFile: shortcutFile, DateTaken: &dt}

	jpeg, exiftoolImage, exiftoolVideo := partition([]*domain.MediaEntity{m}, cfg)
	if len(jpeg)+len(exiftoolImage)+len(exiftoolVideo) != 0 {
		t.Errorf("expected a shortcut file to be excluded from every batch, got jpeg=%v image=%v video=%v", jpeg, exiftoolImage, exiftoolVideo)
	}
}

func TestCountSkippedCountsOnlyIneligibleFiles(t *testing.T) {
	dt := time.Date(2020, time.May, 1, 0, 0, 0, 0, time.UTC)
	cfg := config.Default()

	eligibleFile := mediaWithTarget("/out/a.jpg", 10, &dt)
	shortcut := &domain.MediaEntity{PrimaryFile: &domain.FileEntity{TargetPath: "/out/b.jpg", Size: 10, IsShortcut: true}, DateTaken: &dt}

	n := countSkipped([]*domain.MediaEntity{eligibleFile, shortcut}, cfg)
	if n != 1 {
		t.Errorf("countSkipped() = %d, want 1", n)
	}
}

func TestRunIsNoopWhenWriteExifDisabled(t *testing.T) {
	cfg := config.Default()
	cfg.WriteExif = false
	dt := time.Date(2020, time.May, 1, 0, 0, 0, 0, time.UTC)
	entities := []*domain.MediaEntity{mediaWithTarget("/out/a.jpg", 10, &dt)}

	stats, err := Run(nil, entities, cfg, nil, nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if stats != (Stats{}) {
		t.Errorf("Run() with WriteExif=false = %+v, want zero Stats", stats)
	}
}
