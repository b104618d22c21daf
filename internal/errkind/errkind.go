// Package errkind defines the sentinel error kinds stages wrap their
// failures in so main.go can map a run's outcome to a stable exit code.
package errkind

import "errors"

// Kind is a coarse classification of a pipeline failure. Stages wrap the
// underlying error with fmt.Errorf("...: %w", Kind) so callers can test
// with errors.Is.
type Kind error

var (
	InputMissing         Kind = errors.New("input missing")
	NoMediaFound         Kind = errors.New("no media found")
	PathResolution       Kind = errors.New("path resolution failed")
	PermissionDenied     Kind = errors.New("permission denied")
	UnsupportedFormat    Kind = errors.New("unsupported format")
	SidecarMissing       Kind = errors.New("sidecar missing")
	ExifReadFailed       Kind = errors.New("exif read failed")
	ExifWriteFailed      Kind = errors.New("exif write failed")
	CrossDeviceMove      Kind = errors.New("cross-device move")
	CollisionUnresolvable Kind = errors.New("collision unresolvable")
	ExternalToolTimeout  Kind = errors.New("external tool timeout")
	ExternalToolFailed   Kind = errors.New("external tool failed")
	Cancelled            Kind = errors.New("cancelled")
	CorruptProgressFile  Kind = errors.New("corrupt progress file")
)
