// Package config builds the single, read-only Configuration value that
// flows into every pipeline stage. It is constructed once from CLI flags
// (and optionally overlaid from a YAML file) and never mutated after the
// pipeline starts, matching the "no setters after stage start" design
// note
package config

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"gopkg.in/yaml.v2"
)

// AlbumBehavior is one of the six album-handling strategies
type AlbumBehavior string

const (
	AlbumShortcut        AlbumBehavior = "shortcut"
	AlbumDuplicateCopy   AlbumBehavior = "duplicate-copy"
	AlbumReverseShortcut AlbumBehavior = "reverse-shortcut"
	AlbumJSON            AlbumBehavior = "json"
	AlbumNothing         AlbumBehavior = "nothing"
	AlbumIgnore          AlbumBehavior = "ignore"
)

// DateDivision controls the ALL_PHOTOS/PARTNER_SHARED sub-layout.
type DateDivision int

const (
	DivideNone DateDivision = iota
	DivideYear
	DivideYearMonth
	DivideYearMonthDay
)

// ExtensionFixing is the stage-1 mode.
type ExtensionFixing string

const (
	FixNone         ExtensionFixing = "none"
	FixStandard     ExtensionFixing = "standard"
	FixConservative ExtensionFixing = "conservative"
	FixSolo         ExtensionFixing = "solo"
)

// FileDateHint is an externally supplied date for a source path, consumed
// by the external_dictionary resolver.
type FileDateHint struct {
	OldestDate string `json:"OldestDate" yaml:"OldestDate"`
}

// Config is the immutable, process-wide configuration handed by pointer
// into every stage. Nothing below this struct may call a setter once the
// pipeline has started.
type Config struct {
	Input  string
	Output string

	AlbumBehavior AlbumBehavior
	DateDivision  DateDivision
	ExtFixing     ExtensionFixing

	WriteExif              bool
	TransformPixelMP       bool
	UpdateCreationTime     bool
	LimitFileSize          bool
	DividePartnerShared    bool
	SkipExtras             bool
	GuessFromName          bool
	KeepDuplicates         bool
	KeepInput              bool
	Verbose                bool
	DryRun                 bool

	FixModePath string

	FileDatesDictionary map[string]FileDateHint

	// FallbackToExiftoolOnNativeMiss controls whether a native EXIF miss
	// falls through to an ExifTool read with the same semantics.
	FallbackToExiftoolOnNativeMiss bool
	ForceProcessUnsupportedFormats bool
	SilenceUnsupportedWarnings     bool

	// Pool multipliers, overridable in tests.
	HashPoolMultiplier       int
	ExifPoolMultiplier       int
	DedupPoolMultiplier      int
	NetworkPoolMultiplier    int
	FileIOPoolMultiplier     int

	ExiftoolImageBatchSize int
	ExiftoolVideoBatchSize int
	ExiftoolPerFileTimeout int // seconds
	ExiftoolBatchTimeout   int // seconds

	HashCachePath string // sqlite persistent hash cache, empty disables
}

// Default returns a Config with sensible defaults: shortcut
// albums, no date division, EXIF writing on, filename guessing on.
func Default() *Config {
	return &Config{
		AlbumBehavior:                  AlbumShortcut,
		DateDivision:                   DivideNone,
		ExtFixing:                      FixNone,
		WriteExif:                      true,
		TransformPixelMP:               false,
		UpdateCreationTime:             false,
		LimitFileSize:                  true,
		DividePartnerShared:            false,
		SkipExtras:                     false,
		GuessFromName:                  true,
		KeepDuplicates:                 false,
		KeepInput:                      false,
		FallbackToExiftoolOnNativeMiss: true,
		ForceProcessUnsupportedFormats: false,
		SilenceUnsupportedWarnings:     true,
		HashPoolMultiplier:             4,
		ExifPoolMultiplier:             6,
		DedupPoolMultiplier:            6,
		NetworkPoolMultiplier:          16,
		FileIOPoolMultiplier:           4,
		ExiftoolImageBatchSize:         800,
		ExiftoolVideoBatchSize:         24,
		ExiftoolPerFileTimeout:         60,
		ExiftoolBatchTimeout:           600,
	}
}

// ParseFlags builds a Config from the provided argument list (normally
// os.Args[1:]), matching the CLI surface documented It is
// the thin external collaborator the spec places out of core scope; it
// exists here only to wire the pipeline end to end.
func ParseFlags(args []string) (*Config, error) {
	cfg := Default()

	fs := flag.NewFlagSet("gphotoreorg", flag.ContinueOnError)
	input := fs.String("input", "", "source Takeout directory")
	output := fs.String("output", "", "destination root")
	albums := fs.String("albums", string(AlbumShortcut), "shortcut|duplicate-copy|reverse-shortcut|json|nothing|ignore")
	divideToDates := fs.Int("divide-to-dates", 0, "0|1|2|3")
	skipExtras := fs.Bool("skip-extras", cfg.SkipExtras, "drop -edited variants")
	writeExif := fs.Bool("write-exif", cfg.WriteExif, "write EXIF metadata")
	transformPixelMP := fs.Bool("transform-pixel-mp", cfg.TransformPixelMP, "rename .MP/.MV to .mp4")
	updateCreationTime := fs.Bool("update-creation-time", cfg.UpdateCreationTime, "align creation time to modified time")
	limitFilesize := fs.Bool("limit-filesize", cfg.LimitFileSize, "skip EXIF writes for files >64MB")
	fixExtensions := fs.String("fix-extensions", string(cfg.ExtFixing), "none|standard|conservative|solo")
	dividePartnerShared := fs.Bool("divide-partner-shared", cfg.DividePartnerShared, "separate PARTNER_SHARED folder")
	keepDuplicates := fs.Bool("keep-duplicates", cfg.KeepDuplicates, "route duplicates to _Duplicates instead of deleting")
	keepInput := fs.Bool("keep-input", cfg.KeepInput, "operate on a sibling copy of input")
	fileDates := fs.String("fileDates", "", "path to external date dictionary JSON")
	fixPath := fs.String("fix", "", "special mode: only re-date files in place")
	verbose := fs.Bool("verbose", false, "detailed logging")
	dryRun := fs.Bool("dry-run", false, "compute placement without touching the filesystem")
	configPath := fs.String("config", "", "optional YAML config overlay")
	hashCache := fs.String("hash-cache", "", "optional sqlite path for a persistent cross-run hash cache")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	if *configPath != "" {
		if err := overlayYAML(cfg, *configPath); err != nil {
			return nil, fmt.Errorf("loading config overlay %s: %w", *configPath, err)
		}
	}

	if *fixPath == "" {
		if *input == "" {
			return nil, fmt.Errorf("--input is required unless --fix is given")
		}
		if *output == "" {
			return nil, fmt.Errorf("--output is required")
		}
	}

	cfg.Input = *input
	cfg.Output = *output
	cfg.AlbumBehavior = AlbumBehavior(*albums)
	switch *divideToDates {
	case 0:
		cfg.DateDivision = DivideNone
	case 1:
		cfg.DateDivision = DivideYear
	case 2:
		cfg.DateDivision = DivideYearMonth
	case 3:
		cfg.DateDivision = DivideYearMonthDay
	default:
		return nil, fmt.Errorf("--divide-to-dates must be 0, 1, 2, or 3")
	}
	cfg.SkipExtras = *skipExtras
	cfg.WriteExif = *writeExif
	cfg.TransformPixelMP = *transformPixelMP
	cfg.UpdateCreationTime = *updateCreationTime
	cfg.LimitFileSize = *limitFilesize
	cfg.ExtFixing = ExtensionFixing(*fixExtensions)
	cfg.DividePartnerShared = *dividePartnerShared
	cfg.KeepDuplicates = *keepDuplicates
	cfg.KeepInput = *keepInput
	cfg.FixModePath = *fixPath
	cfg.Verbose = *verbose
	cfg.DryRun = *dryRun
	cfg.HashCachePath = *hashCache

	if *configPath != "" {
		if err := overlayYAML(cfg, *configPath); err != nil {
			return nil, fmt.Errorf("loading config overlay %s: %w", *configPath, err)
		}
	}

	if *fileDates != "" {
		dict, err := loadFileDatesDictionary(*fileDates)
		if err != nil {
			return nil, fmt.Errorf("loading --fileDates %s: %w", *fileDates, err)
		}
		cfg.FileDatesDictionary = dict
	}

	if cfg.Input != "" {
		abs, err := filepath.Abs(cfg.Input)
		if err == nil {
			cfg.Input = abs
		}
	}
	if cfg.Output != "" {
		abs, err := filepath.Abs(cfg.Output)
		if err == nil {
			cfg.Output = abs
		}
	}

	return cfg, nil
}

func overlayYAML(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	var overlay struct {
		Albums              string `yaml:"albums"`
		DivideToDates        int    `yaml:"divide_to_dates"`
		SkipExtras           bool   `yaml:"skip_extras"`
		WriteExif            bool   `yaml:"write_exif"`
		DividePartnerShared  bool   `yaml:"divide_partner_shared"`
		KeepDuplicates       bool   `yaml:"keep_duplicates"`
		HashCachePath        string `yaml:"hash_cache_path"`
	}
	if err := yaml.Unmarshal(data, &overlay); err != nil {
		return err
	}
	if overlay.Albums != "" {
		cfg.AlbumBehavior = AlbumBehavior(overlay.Albums)
	}
	cfg.SkipExtras = cfg.SkipExtras || overlay.SkipExtras
	cfg.DividePartnerShared = cfg.DividePartnerShared || overlay.DividePartnerShared
	cfg.KeepDuplicates = cfg.KeepDuplicates || overlay.KeepDuplicates
	if overlay.HashCachePath != "" {
		cfg.HashCachePath = overlay.HashCachePath
	}
	return nil
}

func loadFileDatesDictionary(path string) (map[string]FileDateHint, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var dict map[string]FileDateHint
	if err := json.Unmarshal(data, &dict); err != nil {
		return nil, err
	}
	return dict, nil
}

// NumCPU is exposed so pool construction (internal/pool) and config share
// one notion of core count; tests can still override multipliers.
func NumCPU() int {
	n := runtime.NumCPU()
	if n < 1 {
		return 1
	}
	return n
}
