// Package fileops implements the low-level filesystem primitives the
// operation scheduler builds on: cancellable copies with progress,
// moves with cross-device fallback, deletes to a restorable backup
// location, and conflict-suffix naming.
package fileops

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// copy chunk size; also the cancellation check granularity during a
// long single-file copy.
const copyChunkSize = 128 * 1024

// ProgressFunc receives the number of bytes written since the previous
// call. It is invoked from the copying goroutine.
type ProgressFunc func(delta int64)

// CreateFile creates a new empty file inside dir.
func CreateFile(dir, name string) (string, error) {
	path := filepath.Join(dir, name)
	file, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
	if err != nil {
		return "", Classify(err)
	}
	return path, Classify(file.Close())
}

// CreateDir creates a new directory inside dir.
func CreateDir(dir, name string) (string, error) {
	path := filepath.Join(dir, name)
	if err := os.Mkdir(path, 0755); err != nil {
		return "", Classify(err)
	}
	return path, nil
}

// Rename renames a file or directory in place, refusing to clobber an
// existing target.
func Rename(oldPath, newName string) (string, error) {
	newPath := filepath.Join(filepath.Dir(oldPath), newName)
	if _, err := os.Lstat(newPath); err == nil {
		return "", fmt.Errorf("%w: %s", ErrAlreadyExists, newPath)
	}
	if err := os.Rename(oldPath, newPath); err != nil {
		return "", Classify(err)
	}
	return newPath, nil
}

// RenamePath is Rename with a full destination path instead of a name
// within the same directory. Used by undo to move things back.
func RenamePath(oldPath, newPath string) error {
	if _, err := os.Lstat(newPath); err == nil {
		return fmt.Errorf("%w: %s", ErrAlreadyExists, newPath)
	}
	return Classify(os.Rename(oldPath, newPath))
}

// Copy copies src (file or directory) to dst, reporting progress and
// honoring ctx cancellation between chunks and between files.
// Directories are copied depth-first.
func Copy(ctx context.Context, src, dst string, onProgress ProgressFunc) error {
	info, err := os.Stat(src)
	if err != nil {
		return Classify(err)
	}
	if info.IsDir() {
		return copyDir(ctx, src, dst, onProgress)
	}
	return copyFile(ctx, src, dst, info.Mode(), onProgress)
}

func copyFile(ctx context.Context, src, dst string, mode os.FileMode, onProgress ProgressFunc) error {
	in, err := os.Open(src)
	if err != nil {
		return Classify(err)
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, mode.Perm())
	if err != nil {
		return Classify(err)
	}

	buf := make([]byte, copyChunkSize)
	for {
		if err := ctx.Err(); err != nil {
			out.Close()
			os.Remove(dst) // don't leave a truncated destination behind
			return err
		}

		n, readErr := in.Read(buf)
		if n > 0 {
			if _, writeErr := out.Write(buf[:n]); writeErr != nil {
				out.Close()
				os.Remove(dst)
				return Classify(writeErr)
			}
			if onProgress != nil {
				onProgress(int64(n))
			}
		}
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			out.Close()
			os.Remove(dst)
			return Classify(readErr)
		}
	}

	return Classify(out.Close())
}

func copyDir(ctx context.Context, src, dst string, onProgress ProgressFunc) error {
	srcInfo, err := os.Stat(src)
	if err != nil {
		return Classify(err)
	}
	if err := os.MkdirAll(dst, srcInfo.Mode().Perm()); err != nil {
		return Classify(err)
	}

	entries, err := os.ReadDir(src)
	if err != nil {
		return Classify(err)
	}

	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return err
		}

		srcPath := filepath.Join(src, e.Name())
		dstPath := filepath.Join(dst, e.Name())

		if e.IsDir() {
			if err := copyDir(ctx, srcPath, dstPath, onProgress); err != nil {
				return err
			}
			continue
		}

		info, err := e.Info()
		if err != nil {
			return Classify(err)
		}
		if err := copyFile(ctx, srcPath, dstPath, info.Mode(), onProgress); err != nil {
			return err
		}
	}

	return nil
}

// Move moves src to dst. Within one filesystem this is a rename; when
// the device IDs differ (or rename fails the way cross-device renames
// do) it falls back to copy-then-delete-source, deleting the source
// only after the copy fully succeeded.
func Move(ctx context.Context, src, dst string, onProgress ProgressFunc) error {
	sameDev, devErr := SameDevice(src, filepath.Dir(dst))
	if devErr == nil && sameDev {
		if err := os.Rename(src, dst); err == nil {
			if onProgress != nil {
				// Renames move bytes for free; report the size so batch
				// progress still adds up.
				if size, _, err := TotalSize(dst); err == nil {
					onProgress(size)
				}
			}
			return nil
		}
		// Rename can still fail on bind mounts that share a device ID;
		// fall through to the copy path.
	}

	if err := Copy(ctx, src, dst, onProgress); err != nil {
		if ctx.Err() != nil {
			return err
		}
		return fmt.Errorf("%w: %v", ErrCrossDeviceMoveFailed, err)
	}
	if err := os.RemoveAll(src); err != nil {
		return fmt.Errorf("%w: source cleanup: %v", ErrCrossDeviceMoveFailed, err)
	}
	return nil
}

// TotalSize walks path and returns the total byte count and number of
// files, used for batch progress totals. Directories themselves count
// zero bytes.
func TotalSize(path string) (bytes int64, items int, err error) {
	info, err := os.Lstat(path)
	if err != nil {
		return 0, 0, Classify(err)
	}
	if !info.IsDir() {
		return info.Size(), 1, nil
	}

	walkErr := filepath.WalkDir(path, func(p string, d os.DirEntry, err error) error {
		if err != nil {
			return nil // unreadable subtree, count what we can
		}
		if d.IsDir() {
			return nil
		}
		if info, err := d.Info(); err == nil {
			bytes += info.Size()
			items++
		}
		return nil
	})
	return bytes, items, walkErr
}

// SuffixName returns the first "name (N)" variant (extension
// preserved) that does not exist in dir, for the rename-with-suffix
// conflict policy.
func SuffixName(dir, name string) string {
	ext := filepath.Ext(name)
	stem := name[:len(name)-len(ext)]
	for n := 1; ; n++ {
		candidate := fmt.Sprintf("%s (%d)%s", stem, n, ext)
		if _, err := os.Lstat(filepath.Join(dir, candidate)); os.IsNotExist(err) {
			return candidate
		}
	}
}
