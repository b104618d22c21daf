// Command gphotoreorg reorganizes a Google Photos Takeout export into a
// deduplicated, date-sorted library with albums preserved as shortcuts
// (or one of the other placement strategies) and EXIF metadata restored
// from the export's sidecar JSON. See internal/config for the full flag
// surface and internal/pipeline for the eight processing stages.
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"gphotoreorg/internal/config"
	"gphotoreorg/internal/errkind"
	"gphotoreorg/internal/pipeline"
)

// Exit codes match the contract documented for operators and scripts
// driving this binary: 0 success, 1 a stage failed during processing, 2
// bad arguments, 10 a required path was missing entirely, 11 an
// errkind.InputMissing error (no stage returns one; a missing input path
// exits with 10), 12 the media root could not be resolved under input,
// 13 discovery found no media files.
const (
	exitOK              = 0
	exitProcessingError = 1
	exitArgError        = 2
	exitPathMissing     = 10
	exitInputMissing    = 11
	exitPathResolution  = 12
	exitNoMedia         = 13
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	cfg, err := config.ParseFlags(args)
	if err != nil {
		fmt.Fprintln(os.Stderr, "gphotoreorg:", err)
		return exitArgError
	}

	if cfg.FixModePath == "" {
		if _, statErr := os.Stat(cfg.Input); statErr != nil {
			fmt.Fprintf(os.Stderr, "gphotoreorg: input path %s: %v\n", cfg.Input, statErr)
			return exitPathMissing
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Verbose {
		log.SetFlags(log.LstdFlags | log.Lmicroseconds)
	} else {
		log.SetFlags(log.LstdFlags)
	}

	orch := pipeline.New(cfg)
	report, err := orch.Run(ctx)
	if err != nil {
		switch {
		case errors.Is(err, errkind.InputMissing):
			fmt.Fprintln(os.Stderr, "gphotoreorg:", err)
			return exitInputMissing
		case errors.Is(err, errkind.PathResolution):
			fmt.Fprintln(os.Stderr, "gphotoreorg:", err)
			return exitPathResolution
		case errors.Is(err, errkind.NoMediaFound):
			fmt.Fprintln(os.Stderr, "gphotoreorg:", err)
			return exitNoMedia
		case errors.Is(err, errkind.Cancelled):
			fmt.Fprintln(os.Stderr, "gphotoreorg: cancelled:", err)
			return exitProcessingError
		default:
			fmt.Fprintln(os.Stderr, "gphotoreorg:", err)
			return exitProcessingError
		}
	}

	if report != nil {
		log.Printf("done: %d media processed, %d duplicates removed, %s written",
			report.MediaProcessed, report.DuplicatesRemoved, report.TotalBytesHuman)
	}
	return exitOK
}
