// Package fsx turns directories (and archive containers) into entry
// listings. It is the only place the engine stats the filesystem for
// navigation; everything above works on the returned snapshot data.
package fsx

import (
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/sync/singleflight"

	"github.com/LFroesch/voyager/internal/archive"
	"github.com/LFroesch/voyager/internal/entry"
	"github.com/LFroesch/voyager/internal/fileops"
)

// Lister lists directories. Concurrent listings of the same directory
// are coalesced with singleflight so rapid refresh requests cannot
// pile up duplicate ReadDir work.
type Lister struct {
	sf singleflight.Group
}

// List returns the entries of dir. Hidden entries (dot-prefixed) are
// skipped unless showHidden is set. If dir points into an archive
// container the member listing is returned instead, so panes navigate
// into containers transparently.
func (l *Lister) List(dir string, showHidden bool) ([]entry.Entry, error) {
	key := dir
	if showHidden {
		key += "\x00hidden"
	}
	v, err, _ := l.sf.Do(key, func() (interface{}, error) {
		return listPath(dir, showHidden)
	})
	if err != nil {
		return nil, err
	}
	return v.([]entry.Entry), nil
}

func listPath(dir string, showHidden bool) ([]entry.Entry, error) {
	if archivePath, inner, ok := SplitArchivePath(dir); ok {
		entries, err := archive.List(archivePath, inner)
		if err != nil {
			return nil, fileops.Classify(err)
		}
		return filterHidden(entries, showHidden), nil
	}

	dirEntries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fileops.Classify(err)
	}

	entries := make([]entry.Entry, 0, len(dirEntries))
	for _, de := range dirEntries {
		if !showHidden && strings.HasPrefix(de.Name(), ".") {
			continue
		}
		e, err := buildEntry(filepath.Join(dir, de.Name()), de.Name())
		if err != nil {
			// Raced with a deletion mid-listing; skip rather than fail
			// the whole directory.
			continue
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// filterHidden drops dot-prefixed entries from an archive member
// listing, matching the directory branch's show-hidden handling.
func filterHidden(entries []entry.Entry, showHidden bool) []entry.Entry {
	if showHidden {
		return entries
	}
	kept := entries[:0]
	for _, e := range entries {
		if strings.HasPrefix(e.Name, ".") {
			continue
		}
		kept = append(kept, e)
	}
	return kept
}

// Stat builds a single entry for path, the re-stat used when a watcher
// event upserts into a snapshot.
func Stat(path string) (entry.Entry, error) {
	return buildEntry(path, filepath.Base(path))
}

// buildEntry stats one path with the symlink handling panes expect:
// a symlink resolving to a directory lists and navigates as a
// directory (LinkTarget still records the indirection); a symlink to a
// file or a broken link stays KindSymlink.
func buildEntry(path, name string) (entry.Entry, error) {
	linfo, err := os.Lstat(path)
	if err != nil {
		return entry.Entry{}, fileops.Classify(err)
	}

	e := entry.Entry{
		Path:    path,
		Name:    name,
		Kind:    entry.KindFile,
		Size:    linfo.Size(),
		ModTime: linfo.ModTime(),
		Mode:    linfo.Mode().Perm(),
	}

	switch {
	case linfo.IsDir():
		e.Kind = entry.KindDir
		e.Size = entry.SizeUnknown
	case linfo.Mode()&os.ModeSymlink != 0:
		e.Kind = entry.KindSymlink
		if target, err := os.Readlink(path); err == nil {
			e.LinkTarget = target
		}
		if tinfo, err := os.Stat(path); err == nil {
			e.Size = tinfo.Size()
			e.ModTime = tinfo.ModTime()
			e.Mode = tinfo.Mode().Perm()
			if tinfo.IsDir() {
				e.Kind = entry.KindDir
				e.Size = entry.SizeUnknown
			}
		}
		// Broken symlink: keep the link's own metadata.
	case archive.IsArchive(name):
		// Navigable like a directory, still a file on disk.
	}

	return e, nil
}

// SplitArchivePath walks up path looking for a container file; it
// returns the container and the inner directory below it. A plain
// directory path returns ok=false.
func SplitArchivePath(path string) (archivePath, inner string, ok bool) {
	probe := filepath.Clean(path)
	var innerParts []string
	for {
		if archive.IsArchive(probe) {
			if info, err := os.Stat(probe); err == nil && !info.IsDir() {
				return probe, strings.Join(innerParts, "/"), true
			}
		}
		parent := filepath.Dir(probe)
		if parent == probe {
			return "", "", false
		}
		innerParts = append([]string{filepath.Base(probe)}, innerParts...)
		probe = parent
	}
}
