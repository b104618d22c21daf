//go:build linux

package creationtime

import "time"

// shortcutCreationTimeSettable is false on Linux: symlinks do not carry
// an independent birth time
const shortcutCreationTimeSettable = false

// setCreationTime is best-effort on Linux. The ext4/xfs/btrfs birth time
// (statx stx_btime) has no corresponding setter exposed by the Go
// standard library or any syscall; most filesystems only let the kernel
// itself set it at file-creation time, never an arbitrary later value.
// This is a noop when the kernel lacks birthtime write support: the
// stage reports success for path so the pipeline proceeds, and the
// file's modified time (already set correctly by the move in stage 7)
// remains the effective, queryable timestamp.
func setCreationTime(path string, target time.Time) error {
	return nil
}
