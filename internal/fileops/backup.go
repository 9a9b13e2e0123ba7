package fileops

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Backup holds deleted entries so deletes stay undoable. Unlike a
// desktop trash integration there is always a known restore path,
// which the undo ledger depends on.
type Backup struct {
	root string
}

// NewBackup creates (if needed) and opens a backup location. An empty
// root selects the default under the user config directory.
func NewBackup(root string) (*Backup, error) {
	if root == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("cannot get home directory: %w", err)
		}
		root = filepath.Join(homeDir, ".config", "voyager", "trash")
	}
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, Classify(err)
	}
	return &Backup{root: root}, nil
}

// Root returns the backup directory.
func (b *Backup) Root() string {
	return b.root
}

// Delete moves path into the backup location and returns where it
// landed, the pre-state the undo ledger captures for restores. The
// backup name carries a timestamp so repeated deletes of equal names
// never collide.
func (b *Backup) Delete(path string) (string, error) {
	if _, err := os.Lstat(path); err != nil {
		return "", Classify(err)
	}

	name := fmt.Sprintf("%d-%s", time.Now().UnixNano(), filepath.Base(path))
	backupPath := filepath.Join(b.root, name)

	if err := os.Rename(path, backupPath); err == nil {
		return backupPath, nil
	}

	// Backup dir on another filesystem: copy then remove the original.
	if err := Copy(context.Background(), path, backupPath, nil); err != nil {
		return "", err
	}
	if err := os.RemoveAll(path); err != nil {
		os.RemoveAll(backupPath)
		return "", Classify(err)
	}
	return backupPath, nil
}

// Restore moves a backed-up entry back to its original path, refusing
// to clobber anything created there in the meantime.
func (b *Backup) Restore(backupPath, originalPath string) error {
	if _, err := os.Lstat(originalPath); err == nil {
		return fmt.Errorf("%w: %s", ErrAlreadyExists, originalPath)
	}
	if err := os.Rename(backupPath, originalPath); err == nil {
		return nil
	}
	if err := Copy(context.Background(), backupPath, originalPath, nil); err != nil {
		return err
	}
	return Classify(os.RemoveAll(backupPath))
}

// Purge permanently removes a backed-up entry. Used when the ledger
// evicts old records.
func (b *Backup) Purge(backupPath string) error {
	return Classify(os.RemoveAll(backupPath))
}
