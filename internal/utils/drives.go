package utils

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
)

// MountedDrives returns the mounted volumes usable as navigation
// roots.
func MountedDrives() []string {
	var drives []string

	switch runtime.GOOS {
	case "windows":
		for letter := 'A'; letter <= 'Z'; letter++ {
			drive := string(letter) + ":\\"
			if _, err := os.Stat(drive); err == nil {
				drives = append(drives, drive)
			}
		}

	case "darwin":
		if entries, err := os.ReadDir("/Volumes"); err == nil {
			for _, entry := range entries {
				if entry.IsDir() {
					drives = append(drives, filepath.Join("/Volumes", entry.Name()))
				}
			}
		}
		drives = append(drives, "/")

	default:
		drives = append(drives, "/")

		// /mnt covers WSL drive mounts; /media/<user> covers removable
		// media on desktop Linux.
		if entries, err := os.ReadDir("/mnt"); err == nil {
			for _, entry := range entries {
				if entry.IsDir() {
					p := filepath.Join("/mnt", entry.Name())
					if _, err := os.Stat(p); err == nil {
						drives = append(drives, p)
					}
				}
			}
		}
		if entries, err := os.ReadDir("/media"); err == nil {
			for _, entry := range entries {
				if !entry.IsDir() {
					continue
				}
				userDir := filepath.Join("/media", entry.Name())
				if userEntries, err := os.ReadDir(userDir); err == nil {
					for _, userEntry := range userEntries {
						if userEntry.IsDir() {
							drives = append(drives, filepath.Join(userDir, userEntry.Name()))
						}
					}
				}
			}
		}
	}

	return drives
}

// DriveLabel returns a short human-readable label for a drive path.
func DriveLabel(path string) string {
	switch runtime.GOOS {
	case "windows":
		return strings.ToUpper(string(path[0])) + ":"
	default:
		if path == "/" {
			return "Root"
		}
		if strings.HasPrefix(path, "/mnt/") {
			// WSL drives like /mnt/c -> "C:"
			letter := strings.TrimPrefix(path, "/mnt/")
			if len(letter) == 1 {
				return strings.ToUpper(letter) + ":"
			}
		}
		return filepath.Base(path)
	}
}
