//go:build !windows

package fileops

import (
	"os"
	"syscall"
)

// SameDevice reports whether two paths live on the same filesystem,
// compared by stat device IDs. Moves across devices cannot rename and
// must fall back to copy-then-delete.
func SameDevice(a, b string) (bool, error) {
	devA, err := deviceID(a)
	if err != nil {
		return false, err
	}
	devB, err := deviceID(b)
	if err != nil {
		return false, err
	}
	return devA == devB, nil
}

func deviceID(path string) (uint64, error) {
	info, err := os.Stat(path)
	if err != nil {
		return 0, Classify(err)
	}
	st, ok := info.Sys().(*syscall.Stat_t)
	if !ok {
		return 0, nil
	}
	return uint64(st.Dev), nil
}
