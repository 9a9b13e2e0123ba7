//go:build windows

package fileops

import (
	"path/filepath"
	"strings"
)

// SameDevice reports whether two paths live on the same filesystem.
// On Windows the volume name (drive letter or UNC share) stands in for
// the device ID.
func SameDevice(a, b string) (bool, error) {
	volA := strings.ToUpper(filepath.VolumeName(absOrSelf(a)))
	volB := strings.ToUpper(filepath.VolumeName(absOrSelf(b)))
	return volA == volB, nil
}

func absOrSelf(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		return path
	}
	return abs
}
