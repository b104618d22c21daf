package move

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"gphotoreorg/internal/config"
	"gphotoreorg/internal/domain"
	"gphotoreorg/internal/pool"
)

func newTestEntity(t *testing.T, root, name string, fromYearFolder bool, album string, dateTaken time.Time) *domain.MediaEntity {
	t.Helper()
	dir := filepath.Join(root, "input")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte("fake photo bytes: "+name), 0o644); err != nil {
		t.Fatal(err)
	}
	f := &domain.FileEntity{SourcePath: path, Size: int64(len("fake photo bytes: " + name)), FromYearFolder: fromYearFolder}
	m := domain.NewMediaEntity(f)
	m.DateTaken = &dateTaken
	if album != "" {
		m.RecordAlbum(album, filepath.Dir(path))
	}
	return m
}

func TestRunShortcutStrategyMovesPrimaryAndLinksAlbum(t *testing.T) {
	root := t.TempDir()
	dt := time.Date(2021, time.March, 5, 0, 0, 0, 0, time.UTC)
	m := newTestEntity(t, root, "IMG_0001.jpg", true, "Vacation", dt)

	cfg := config.Default()
	cfg.Output = filepath.Join(root, "output")
	cfg.AlbumBehavior = config.AlbumShortcut
	cfg.DateDivision = config.DivideYear

	pools := pool.NewSet(pool.Multipliers{Hash: 1, ExifReadWrite: 1, DuplicateDetect: 1, NetworkLike: 1, FileIO: 1})

	stats, err := Run([]*domain.MediaEntity{m}, cfg, pools)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if stats.Moved != 1 {
		t.Errorf("stats.Moved = %d, want 1", stats.Moved)
	}
	if stats.Shortcuts != 1 {
		t.Errorf("stats.Shortcuts = %d, want 1", stats.Shortcuts)
	}

	wantTarget := filepath.Join(cfg.Output, allPhotosDir, "2021", "IMG_0001.jpg")
	if m.PrimaryFile.TargetPath != domain.NormalizedSourcePath(wantTarget) {
		t.Errorf("PrimaryFile.TargetPath = %q, want %q", m.PrimaryFile.TargetPath, wantTarget)
	}
	if _, err := os.Stat(wantTarget); err != nil {
		t.Errorf("expected the primary file at %s: %v", wantTarget, err)
	}

	link := filepath.Join(cfg.Output, albumsDir, "Vacation", "IMG_0001.jpg")
	info, err := os.Lstat(link)
	if err != nil {
		t.Fatalf("expected an album shortcut at %s: %v", link, err)
	}
	if info.Mode()&os.ModeSymlink == 0 {
		t.Errorf("expected %s to be a symlink", link)
	}
}

func TestRunDuplicateCopyStrategyCopiesIntoAlbum(t *testing.T) {
	root := t.TempDir()
	dt := time.Date(2022, time.July, 4, 0, 0, 0, 0, time.UTC)
	m := newTestEntity(t, root, "IMG_0002.jpg", true, "Fireworks", dt)

	cfg := config.Default()
	cfg.Output = filepath.Join(root, "output")
	cfg.AlbumBehavior = config.AlbumDuplicateCopy
	cfg.DateDivision = config.DivideNone

	pools := pool.NewSet(pool.Multipliers{Hash: 1, ExifReadWrite: 1, DuplicateDetect: 1, NetworkLike: 1, FileIO: 1})

	stats, err := Run([]*domain.MediaEntity{m}, cfg, pools)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if stats.Moved != 1 || stats.Copied != 1 {
		t.Errorf("stats = %+v, want Moved=1 Copied=1", stats)
	}

	copyPath := filepath.Join(cfg.Output, albumsDir, "Fireworks", "IMG_0002.jpg")
	if _, err := os.Stat(copyPath); err != nil {
		t.Errorf("expected a physical album copy at %s: %v", copyPath, err)
	}
	originalPath := filepath.Join(cfg.Output, allPhotosDir, "IMG_0002.jpg")
	if _, err := os.Stat(originalPath); err != nil {
		t.Errorf("expected the primary at %s: %v", originalPath, err)
	}
}

func TestRunIgnoreStrategyLeavesAlbumOnlyFilesInPlace(t *testing.T) {
	root := t.TempDir()
	dt := time.Date(2022, time.July, 4, 0, 0, 0, 0, time.UTC)
	// not from a year folder: under the "ignore" strategy this file should
	// never be placed, only recorded as left in the input tree.
	m := newTestEntity(t, root, "IMG_0003.jpg", false, "Fireworks", dt)

	cfg := config.Default()
	cfg.Output = filepath.Join(root, "output")
	cfg.AlbumBehavior = config.AlbumIgnore

	pools := pool.NewSet(pool.Multipliers{Hash: 1, ExifReadWrite: 1, DuplicateDetect: 1, NetworkLike: 1, FileIO: 1})

	stats, err := Run([]*domain.MediaEntity{m}, cfg, pools)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if stats.Moved != 0 || stats.LeftInInput != 1 {
		t.Errorf("stats = %+v, want Moved=0 LeftInInput=1", stats)
	}
	if m.PrimaryFile.TargetPath != "" {
		t.Errorf("expected TargetPath to stay empty under the ignore strategy, got %q", m.PrimaryFile.TargetPath)
	}
}

func TestRunRoutesDuplicatesToDuplicatesDirWhenKept(t *testing.T) {
	root := t.TempDir()
	dt := time.Date(2022, time.July, 4, 0, 0, 0, 0, time.UTC)
	m := newTestEntity(t, root, "IMG_0004.jpg", true, "", dt)

	dupDir := filepath.Join(root, "input")
	dupPath := filepath.Join(dupDir, "IMG_0004_dup.jpg")
	if err := os.WriteFile(dupPath, []byte("dup bytes"), 0o644); err != nil {
		t.Fatal(err)
	}
	dup := &domain.FileEntity{SourcePath: dupPath, Size: 9}
	m.DuplicatesFiles = append(m.DuplicatesFiles, dup)

	cfg := config.Default()
	cfg.Input = filepath.Join(root, "input")
	cfg.Output = filepath.Join(root, "output")
	cfg.AlbumBehavior = config.AlbumNothing
	cfg.KeepDuplicates = true

	pools := pool.NewSet(pool.Multipliers{Hash: 1, ExifReadWrite: 1, DuplicateDetect: 1, NetworkLike: 1, FileIO: 1})

	stats, err := Run([]*domain.MediaEntity{m}, cfg, pools)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if stats.Duplicates != 1 {
		t.Errorf("stats.Duplicates = %d, want 1", stats.Duplicates)
	}
	if dup.TargetPath == "" {
		t.Error("expected the duplicate to be re-routed with a TargetPath set")
	}
	if _, err := os.Stat(dupPath); !os.IsNotExist(err) {
		t.Errorf("expected the duplicate removed from its original location, stat err = %v", err)
	}
}
