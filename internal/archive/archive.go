// Package archive presents container files as directory-like listings
// so panes can navigate into them transparently. Only listing is
// supported here; extraction and format plumbing stay out of the core.
package archive

import (
	"archive/tar"
	"archive/zip"
	"compress/gzip"
	"errors"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/LFroesch/voyager/internal/entry"
)

// ErrUnsupported is returned for container formats this package does
// not understand.
var ErrUnsupported = errors.New("unsupported archive format")

// IsArchive reports whether a path looks like a listable container.
func IsArchive(p string) bool {
	name := strings.ToLower(p)
	switch {
	case strings.HasSuffix(name, ".zip"),
		strings.HasSuffix(name, ".tar"),
		strings.HasSuffix(name, ".tar.gz"),
		strings.HasSuffix(name, ".tgz"):
		return true
	default:
		return false
	}
}

// List returns the top-level members of the archive at archivePath as
// entries, or the members under inner (a directory path within the
// archive) when inner is non-empty. Member paths are synthetic:
// archivePath joined with the member name, so they stay unique across
// panes.
func List(archivePath, inner string) ([]entry.Entry, error) {
	name := strings.ToLower(archivePath)
	switch {
	case strings.HasSuffix(name, ".zip"):
		return listZip(archivePath, inner)
	case strings.HasSuffix(name, ".tar"), strings.HasSuffix(name, ".tar.gz"), strings.HasSuffix(name, ".tgz"):
		return listTar(archivePath, inner)
	default:
		return nil, ErrUnsupported
	}
}

func listZip(archivePath, inner string) ([]entry.Entry, error) {
	r, err := zip.OpenReader(archivePath)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	c := newCollector(archivePath, inner)
	for _, f := range r.File {
		c.add(f.Name, int64(f.UncompressedSize64), f.Modified, f.FileInfo().IsDir(), f.Mode())
	}
	return c.entries(), nil
}

func listTar(archivePath, inner string) ([]entry.Entry, error) {
	f, err := os.Open(archivePath)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var reader io.Reader = f
	lower := strings.ToLower(archivePath)
	if strings.HasSuffix(lower, ".gz") || strings.HasSuffix(lower, ".tgz") {
		gz, err := gzip.NewReader(f)
		if err != nil {
			return nil, err
		}
		defer gz.Close()
		reader = gz
	}

	c := newCollector(archivePath, inner)
	tr := tar.NewReader(reader)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		switch hdr.Typeflag {
		case tar.TypeReg, tar.TypeDir, tar.TypeSymlink:
			c.add(hdr.Name, hdr.Size, hdr.ModTime, hdr.Typeflag == tar.TypeDir, hdr.FileInfo().Mode())
		}
	}
	return c.entries(), nil
}

// collector flattens archive member paths into one listing level.
// Intermediate directories with no explicit archive header are
// synthesized from member paths.
type collector struct {
	archivePath string
	inner       string
	byName      map[string]entry.Entry
	order       []string
}

func newCollector(archivePath, inner string) *collector {
	return &collector{
		archivePath: archivePath,
		inner:       strings.Trim(inner, "/"),
		byName:      make(map[string]entry.Entry),
	}
}

func (c *collector) add(member string, size int64, modTime time.Time, isDir bool, mode os.FileMode) {
	member = strings.Trim(path.Clean(member), "/")
	if member == "." || member == "" {
		return
	}
	if c.inner != "" {
		if !strings.HasPrefix(member, c.inner+"/") {
			return
		}
		member = member[len(c.inner)+1:]
	}

	// Only the first path component lists at this level; deeper members
	// are reachable by navigating in.
	name, _, nested := strings.Cut(member, "/")
	kind := entry.KindArchiveMember
	entrySize := size
	if isDir || nested {
		kind = entry.KindDir
		entrySize = entry.SizeUnknown
	}

	if existing, ok := c.byName[name]; ok {
		// A synthesized dir is never downgraded back to a file.
		if existing.Kind == entry.KindDir {
			return
		}
	} else {
		c.order = append(c.order, name)
	}

	c.byName[name] = entry.Entry{
		Path:    filepath.Join(c.archivePath, c.inner, name),
		Name:    name,
		Kind:    kind,
		Size:    entrySize,
		ModTime: modTime,
		Mode:    mode.Perm(),
	}
}

func (c *collector) entries() []entry.Entry {
	out := make([]entry.Entry, 0, len(c.order))
	for _, name := range c.order {
		out = append(out, c.byName[name])
	}
	return out
}
