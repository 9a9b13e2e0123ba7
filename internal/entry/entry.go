package entry

import (
	"io/fs"
	"path/filepath"
	"strings"
	"time"
)

// Kind classifies a filesystem entry.
type Kind int

const (
	KindFile Kind = iota
	KindDir
	KindSymlink
	KindArchiveMember
)

// String returns the string representation of the kind.
func (k Kind) String() string {
	switch k {
	case KindFile:
		return "file"
	case KindDir:
		return "dir"
	case KindSymlink:
		return "symlink"
	case KindArchiveMember:
		return "archive-member"
	default:
		return "unknown"
	}
}

// SizeUnknown marks entries whose size cannot be determined
// (broken symlinks, some archive members).
const SizeUnknown int64 = -1

// Entry is one filesystem object. Entries are values and are never
// mutated after construction; a changed file produces a new Entry.
type Entry struct {
	Path       string // absolute path
	Name       string // display name (base name within its directory)
	Kind       Kind
	Size       int64 // SizeUnknown when not determinable
	ModTime    time.Time
	Mode       fs.FileMode // permission bits, platform-normalized
	LinkTarget string      // symlink target, empty otherwise
	Generation uint64      // snapshot version this entry was created under
}

// IsDir reports whether the entry behaves as a directory for navigation.
// Symlinks that resolve to directories are handled at listing time and
// carry KindDir here.
func (e Entry) IsDir() bool {
	return e.Kind == KindDir
}

// SortMode selects the ordering of entries within a snapshot.
type SortMode int

const (
	SortByName SortMode = iota
	SortBySize
	SortByDate
	SortByType
)

// String returns the config-file name of the sort mode.
func (s SortMode) String() string {
	switch s {
	case SortBySize:
		return "size"
	case SortByDate:
		return "date"
	case SortByType:
		return "type"
	default:
		return "name"
	}
}

// ParseSortMode maps a config-file name back to a SortMode.
// Unknown names fall back to name order.
func ParseSortMode(s string) SortMode {
	switch s {
	case "size":
		return SortBySize
	case "date":
		return SortByDate
	case "type":
		return SortByType
	default:
		return SortByName
	}
}

// Less is the entry comparator for the given sort mode.
// ".." stays at the top always; directories sort before files except
// in size order.
func Less(mode SortMode, a, b Entry) bool {
	if a.Name == ".." {
		return true
	}
	if b.Name == ".." {
		return false
	}

	if mode != SortBySize && a.IsDir() != b.IsDir() {
		return a.IsDir()
	}

	switch mode {
	case SortBySize:
		if a.Size != b.Size {
			return a.Size > b.Size
		}
	case SortByDate:
		if !a.ModTime.Equal(b.ModTime) {
			return a.ModTime.After(b.ModTime)
		}
	case SortByType:
		extA := strings.ToLower(filepath.Ext(a.Name))
		extB := strings.ToLower(filepath.Ext(b.Name))
		if extA != extB {
			return extA < extB
		}
	}

	nameA := strings.ToLower(a.Name)
	nameB := strings.ToLower(b.Name)
	if nameA != nameB {
		return nameA < nameB
	}
	// Unique paths make this a total order.
	return a.Path < b.Path
}
