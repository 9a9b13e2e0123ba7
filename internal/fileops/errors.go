package fileops

import (
	"errors"
	"io/fs"
)

// Shared error taxonomy for file operations. The scheduler folds these
// into per-item manifests; nothing here is fatal to the process.
var (
	ErrNotFound              = errors.New("not found")
	ErrPermissionDenied      = errors.New("permission denied")
	ErrAlreadyExists         = errors.New("already exists")
	ErrCrossDeviceMoveFailed = errors.New("cross-device move failed")
	ErrIO                    = errors.New("io error")
)

// Classify wraps an OS error with the matching taxonomy sentinel so
// callers can test with errors.Is regardless of platform spelling.
func Classify(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, fs.ErrNotExist):
		return errors.Join(ErrNotFound, err)
	case errors.Is(err, fs.ErrPermission):
		return errors.Join(ErrPermissionDenied, err)
	case errors.Is(err, fs.ErrExist):
		return errors.Join(ErrAlreadyExists, err)
	default:
		return errors.Join(ErrIO, err)
	}
}
