package dateresolve

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"gphotoreorg/internal/config"
	"gphotoreorg/internal/domain"
)

func writeMedia(t *testing.T, path string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("not a real photo"), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestResolveFallsBackToFolderYearWithNoOtherSignal(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "Photos from 2019", "mystery.jpg")
	writeMedia(t, path)

	f := &domain.FileEntity{SourcePath: path}
	res := Resolve(f, config.Default(), nil)

	if !res.Found {
		t.Fatalf("expected Resolve to fall back to folder_year")
	}
	if res.Method != domain.MethodFolderYear {
		t.Errorf("Method = %v, want MethodFolderYear", res.Method)
	}
	if res.Date.Year() != 2019 {
		t.Errorf("Date.Year() = %d, want 2019", res.Date.Year())
	}
}

func TestResolveUsesFilenameGuessWhenEnabled(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "misc", "IMG_20190615_120000.jpg")
	writeMedia(t, path)

	cfg := config.Default()
	cfg.GuessFromName = true
	f := &domain.FileEntity{SourcePath: path}
	res := Resolve(f, cfg, nil)

	if !res.Found || res.Method != domain.MethodFilenameGuess {
		t.Fatalf("Resolve() = %+v, want a filename_guess match", res)
	}
	if res.Date.Year() != 2019 || res.Date.Month() != time.June || res.Date.Day() != 15 {
		t.Errorf("Date = %v, want 2019-06-15", res.Date)
	}
}

func TestResolvePrefersJSONOverFolderYearAndDictionary(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "2019", "a.jpg")
	writeMedia(t, path)
	if err := os.WriteFile(path+".json", []byte(`{"photoTakenTime":{"timestamp":"1500000000"}}`), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg := config.Default()
	cfg.GuessFromName = true
	cfg.FileDatesDictionary = map[string]config.FileDateHint{
		path: {OldestDate: "2001-01-01"},
	}
	f := &domain.FileEntity{SourcePath: path}
	res := Resolve(f, cfg, nil)

	if !res.Found || res.Method != domain.MethodJSON {
		t.Fatalf("Resolve() = %+v, want the sidecar JSON to win", res)
	}
	want := time.Unix(1500000000, 0).UTC()
	if !res.Date.Equal(want) {
		t.Errorf("Date = %v, want %v", res.Date, want)
	}
}

func TestResolveExternalDictionaryBeatsFolderYear(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "2019", "b.jpg")
	writeMedia(t, path)

	cfg := config.Default()
	cfg.FileDatesDictionary = map[string]config.FileDateHint{
		path: {OldestDate: "2001-06-15"},
	}
	f := &domain.FileEntity{SourcePath: path}
	res := Resolve(f, cfg, nil)

	if !res.Found || res.Method != domain.MethodExternalDict {
		t.Fatalf("Resolve() = %+v, want the external dictionary to win over folder_year", res)
	}
	if res.Date.Year() != 2001 {
		t.Errorf("Date.Year() = %d, want 2001", res.Date.Year())
	}
}

func TestResolveReturnsMethodNoneWhenNothingMatches(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "misc", "a.jpg")
	writeMedia(t, path)

	f := &domain.FileEntity{SourcePath: path}
	res := Resolve(f, config.Default(), nil)

	if res.Found {
		t.Fatalf("expected no resolver to match, got %+v", res)
	}
	if res.Method != domain.MethodNone {
		t.Errorf("Method = %v, want MethodNone", res.Method)
	}
}
