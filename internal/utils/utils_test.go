package utils

import (
	"runtime"
	"testing"
)

func TestFormatFileSize(t *testing.T) {
	tests := []struct {
		size int64
		want string
	}{
		{0, "0 B"},
		{512, "512 B"},
		{1024, "1.0 KB"},
		{1536, "1.5 KB"},
		{1048576, "1.0 MB"},
		{5 * 1024 * 1024 * 1024, "5.0 GB"},
	}

	for _, tt := range tests {
		if got := FormatFileSize(tt.size); got != tt.want {
			t.Errorf("FormatFileSize(%d) = %q, want %q", tt.size, got, tt.want)
		}
	}
}

func TestDriveLabelRoot(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("unix drive labels")
	}
	if got := DriveLabel("/"); got != "Root" {
		t.Errorf("DriveLabel(/) = %q", got)
	}
	if got := DriveLabel("/mnt/c"); got != "C:" {
		t.Errorf("DriveLabel(/mnt/c) = %q", got)
	}
}
