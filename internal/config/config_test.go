package config

import (
	"path/filepath"
	"testing"
)

func TestParseFlagsRequiresInputAndOutput(t *testing.T) {
	if _, err := ParseFlags([]string{}); err == nil {
		t.Errorf("expected an error when --input/--output are both missing")
	}
}

func TestParseFlagsFixModeDoesNotRequireInputOutput(t *testing.T) {
	cfg, err := ParseFlags([]string{"--fix", "/some/path"})
	if err != nil {
		t.Fatalf("ParseFlags with --fix: %v", err)
	}
	if cfg.FixModePath == "" {
		t.Errorf("expected FixModePath to be set")
	}
}

func TestParseFlagsAppliesDefaultsAndOverrides(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "in")
	output := filepath.Join(dir, "out")

	cfg, err := ParseFlags([]string{
		"--input", input,
		"--output", output,
		"--albums", "json",
		"--divide-to-dates", "2",
		"--skip-extras",
		"--write-exif=false",
	})
	if err != nil {
		t.Fatalf("ParseFlags: %v", err)
	}
	if cfg.AlbumBehavior != AlbumJSON {
		t.Errorf("AlbumBehavior = %q, want json", cfg.AlbumBehavior)
	}
	if cfg.DateDivision != DivideYearMonth {
		t.Errorf("DateDivision = %v, want DivideYearMonth", cfg.DateDivision)
	}
	if !cfg.SkipExtras {
		t.Errorf("expected SkipExtras to be true")
	}
	if cfg.WriteExif {
		t.Errorf("expected WriteExif to be false when explicitly disabled")
	}
	// Untouched defaults should survive flag parsing.
	if !cfg.GuessFromName {
		t.Errorf("expected GuessFromName default to remain true")
	}
}

func TestParseFlagsRejectsInvalidDivision(t *testing.T) {
	dir := t.TempDir()
	_, err := ParseFlags([]string{
		"--input", filepath.Join(dir, "in"),
		"--output", filepath.Join(dir, "out"),
		"--divide-to-dates", "7",
	})
	if err == nil {
		t.Errorf("expected an error for an out-of-range --divide-to-dates value")
	}
}

func TestDefaultPoolMultipliers(t *testing.T) {
	cfg := Default()
	if cfg.HashPoolMultiplier != 4 || cfg.NetworkPoolMultiplier != 16 {
		t.Errorf("unexpected default pool multipliers: hash=%d network=%d", cfg.HashPoolMultiplier, cfg.NetworkPoolMultiplier)
	}
}
