//go:build darwin

package creationtime

import (
	"encoding/binary"
	"fmt"
	"time"

	"golang.org/x/sys/unix"
)

// shortcutCreationTimeSettable is true on macOS: symlinks carry their own
// birth time via setattrlist
const shortcutCreationTimeSettable = true

// setCreationTime uses setattrlist(ATTR_CMN_CRTIME) to set path's birth
// time on APFS/HFS+, the macOS mechanism names explicitly.
// The attribute buffer is a single timespec{sec, nsec} pair, the layout
// setattrlist expects for ATTR_CMN_CRTIME.
func setCreationTime(path string, target time.Time) error {
	attrs := &unix.Attrlist{
		Bitmapcount: unix.ATTR_BIT_MAP_COUNT,
		Commonattr:  unix.ATTR_CMN_CRTIME,
	}

	buf := make([]byte, 16)
	binary.LittleEndian.PutUint64(buf[0:8], uint64(target.Unix()))
	binary.LittleEndian.PutUint64(buf[8:16], uint64(target.Nanosecond()))

	if err := unix.Setattrlist(path, attrs, buf, 0); err != nil {
		return fmt.Errorf("setattrlist %s: %w", path, err)
	}
	return nil
}
