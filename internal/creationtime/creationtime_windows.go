//go:build windows

package creationtime

import (
	"syscall"
	"time"
)

// shortcutCreationTimeSettable is true on Windows: ".lnk" shortcuts are
// ordinary files and accept SetFileTime like any other
const shortcutCreationTimeSettable = true

// setCreationTime uses the Win32 SetFileTime API via the syscall
// package's existing handle-based wrapper.
func setCreationTime(path string, target time.Time) error {
	pathPtr, err := syscall.UTF16PtrFromString(path)
	if err != nil {
		return err
	}

	handle, err := syscall.CreateFile(
		pathPtr,
		syscall.FILE_WRITE_ATTRIBUTES,
		syscall.FILE_SHARE_READ|syscall.FILE_SHARE_WRITE|syscall.FILE_SHARE_DELETE,
		nil,
		syscall.OPEN_EXISTING,
		syscall.FILE_FLAG_BACKUP_SEMANTICS,
		0,
	)
	if err != nil {
		return err
	}
	defer syscall.CloseHandle(handle)

	ft := syscall.NsecToFiletime(target.UnixNano())
	return syscall.SetFileTime(handle, &ft, nil, nil)
}
