// Package creationtime implements the final stage: aligning each output
// file's creation time to its modified time. The
// actual syscall is platform-specific (creationtime_linux.go /
// creationtime_darwin.go / creationtime_windows.go); this file holds the
// shared walk, clamping, and best-effort failure policy.
package creationtime

import (
	"log"
	"os"
	"time"

	"gphotoreorg/internal/domain"
)

// epoch is the earliest creation time several platforms accept; dates
// older than this are clamped.
var epoch = time.Date(1970, time.January, 1, 0, 0, 0, 0, time.UTC)

// Stats are the counters the orchestrator folds into its final report.
type Stats struct {
	Updated int
	Failed  int
	Skipped int
}

// Run walks every physical output FileEntity (shortcuts included only on
// platforms where creation time is independently settable) and sets its
// creation time to its modified time.
func Run(entities []*domain.MediaEntity, enabled bool) Stats {
	var stats Stats
	if !enabled {
		return stats
	}
	for _, m := range entities {
		for _, f := range m.AllFiles() {
			if f.TargetPath == "" || f.IsDeleted {
				stats.Skipped++
				continue
			}
			if f.IsShortcut && !shortcutCreationTimeSettable {
				stats.Skipped++
				continue
			}
			if err := alignOne(f.TargetPath); err != nil {
				log.Printf("creationtime: %s: %v", f.TargetPath, err)
				stats.Failed++
				continue
			}
			stats.Updated++
		}
	}
	return stats
}

func alignOne(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	modTime := info.ModTime()
	target := modTime
	if target.Before(epoch) {
		target = epoch
	}
	return setCreationTime(path, target)
}

