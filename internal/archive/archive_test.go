package archive

import (
	"archive/tar"
	"archive/zip"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/LFroesch/voyager/internal/entry"
)

func buildZip(t *testing.T, dir string) string {
	t.Helper()
	zipPath := filepath.Join(dir, "bundle.zip")
	f, err := os.Create(zipPath)
	if err != nil {
		t.Fatalf("create zip: %v", err)
	}
	defer f.Close()

	zw := zip.NewWriter(f)
	for name, content := range map[string]string{
		"readme.md":       "hello",
		"src/main.go":     "package main",
		"src/util/aux.go": "package util",
	} {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatalf("zip create %s: %v", name, err)
		}
		w.Write([]byte(content))
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("close zip: %v", err)
	}
	return zipPath
}

func TestIsArchive(t *testing.T) {
	for _, p := range []string{"a.zip", "b.tar", "c.tar.gz", "d.TGZ"} {
		if !IsArchive(p) {
			t.Errorf("IsArchive(%s) = false", p)
		}
	}
	for _, p := range []string{"a.txt", "b.gz", "dir"} {
		if IsArchive(p) {
			t.Errorf("IsArchive(%s) = true", p)
		}
	}
}

func TestListZipTopLevel(t *testing.T) {
	zipPath := buildZip(t, t.TempDir())

	entries, err := List(zipPath, "")
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}

	byName := map[string]entry.Entry{}
	for _, e := range entries {
		byName[e.Name] = e
	}

	if len(entries) != 2 {
		t.Fatalf("expected 2 top-level entries, got %d", len(entries))
	}
	if e, ok := byName["readme.md"]; !ok || e.Kind != entry.KindArchiveMember {
		t.Error("readme.md missing or not an archive member")
	}
	if e, ok := byName["src"]; !ok || e.Kind != entry.KindDir {
		t.Error("src missing or not synthesized as a directory")
	}
}

func TestListZipInnerDir(t *testing.T) {
	zipPath := buildZip(t, t.TempDir())

	entries, err := List(zipPath, "src")
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}

	byName := map[string]entry.Entry{}
	for _, e := range entries {
		byName[e.Name] = e
	}
	if len(entries) != 2 {
		t.Fatalf("expected main.go and util, got %d entries", len(entries))
	}
	if e := byName["main.go"]; e.Kind != entry.KindArchiveMember {
		t.Error("main.go should be an archive member")
	}
	if e := byName["util"]; e.Kind != entry.KindDir {
		t.Error("util should list as a directory")
	}
	// Synthetic paths nest under the archive path
	want := filepath.Join(zipPath, "src", "main.go")
	if byName["main.go"].Path != want {
		t.Errorf("expected synthetic path %s, got %s", want, byName["main.go"].Path)
	}
}

func TestListTar(t *testing.T) {
	tempDir := t.TempDir()
	tarPath := filepath.Join(tempDir, "bundle.tar")
	f, err := os.Create(tarPath)
	if err != nil {
		t.Fatalf("create tar: %v", err)
	}

	tw := tar.NewWriter(f)
	content := []byte("data")
	tw.WriteHeader(&tar.Header{
		Name:     "file.txt",
		Mode:     0644,
		Size:     int64(len(content)),
		ModTime:  time.Now(),
		Typeflag: tar.TypeReg,
	})
	tw.Write(content)
	tw.WriteHeader(&tar.Header{
		Name:     "nested/inner.txt",
		Mode:     0644,
		Size:     0,
		ModTime:  time.Now(),
		Typeflag: tar.TypeReg,
	})
	tw.Close()
	f.Close()

	entries, err := List(tarPath, "")
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
}

func TestListUnsupported(t *testing.T) {
	if _, err := List("/tmp/whatever.rar", ""); err != ErrUnsupported {
		t.Errorf("expected ErrUnsupported, got %v", err)
	}
}
