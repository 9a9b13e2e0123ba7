package undo

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/LFroesch/voyager/internal/fileops"
	"github.com/LFroesch/voyager/internal/ops"
)

type fixture struct {
	sched  *ops.Scheduler
	ledger *Ledger
}

func newFixture(t *testing.T, limit int) *fixture {
	t.Helper()
	backup, err := fileops.NewBackup(filepath.Join(t.TempDir(), "trash"))
	if err != nil {
		t.Fatalf("NewBackup failed: %v", err)
	}
	sched := ops.NewScheduler(backup, ops.Options{})
	go func() {
		for range sched.Results() {
		}
	}()
	return &fixture{sched: sched, ledger: NewLedger(sched, limit)}
}

// run submits a request, waits for it, and feeds the outcome to the
// ledger the way the engine does.
func (f *fixture) run(t *testing.T, req ops.Request) *ops.Record {
	t.Helper()
	rec, err := f.sched.Submit(req)
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	f.wait(t, rec)
	f.ledger.OnComplete(rec)
	return rec
}

func (f *fixture) wait(t *testing.T, rec *ops.Record) {
	t.Helper()
	select {
	case <-rec.Done():
	case <-time.After(10 * time.Second):
		t.Fatalf("op %d did not finish", rec.Seq)
	}
}

// undo pops the ledger and completes the inverse.
func (f *fixture) undo(t *testing.T) *ops.Record {
	t.Helper()
	inv, err := f.ledger.Undo()
	if err != nil {
		t.Fatalf("Undo failed: %v", err)
	}
	f.wait(t, inv)
	f.ledger.OnComplete(inv)
	return inv
}

func (f *fixture) redo(t *testing.T) *ops.Record {
	t.Helper()
	replay, err := f.ledger.Redo()
	if err != nil {
		t.Fatalf("Redo failed: %v", err)
	}
	f.wait(t, replay)
	f.ledger.OnComplete(replay)
	return replay
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func exists(path string) bool {
	_, err := os.Lstat(path)
	return err == nil
}

func TestUndoRename(t *testing.T) {
	dir := t.TempDir()
	old := filepath.Join(dir, "draft.txt")
	writeFile(t, old, "body")

	f := newFixture(t, 0)
	rec := f.run(t, ops.Request{Kind: ops.OpRename, Sources: []string{old}, NewName: "final.txt"})

	if !exists(filepath.Join(dir, "final.txt")) {
		t.Fatal("rename did not apply")
	}
	f.undo(t)

	if !exists(old) || exists(filepath.Join(dir, "final.txt")) {
		t.Error("undo did not restore the original name")
	}
	if rec.Status() != ops.StatusUndone {
		t.Errorf("expected undone, got %s", rec.Status())
	}

	f.redo(t)
	if exists(old) || !exists(filepath.Join(dir, "final.txt")) {
		t.Error("redo did not re-apply the rename")
	}
}

func TestUndoMoveRestoresSources(t *testing.T) {
	src := t.TempDir()
	dst := t.TempDir()
	a := filepath.Join(src, "a.txt")
	b := filepath.Join(src, "b.txt")
	writeFile(t, a, "a")
	writeFile(t, b, "b")

	f := newFixture(t, 0)
	f.run(t, ops.Request{Kind: ops.OpMove, Sources: []string{a, b}, DestDir: dst})

	if exists(a) || exists(b) {
		t.Fatal("move left sources behind")
	}
	f.undo(t)

	if !exists(a) || !exists(b) {
		t.Error("undo did not move files back")
	}
	if exists(filepath.Join(dst, "a.txt")) {
		t.Error("undo left a copy at the destination")
	}
}

func TestUndoCopyDeletesCopies(t *testing.T) {
	src := t.TempDir()
	dst := t.TempDir()
	a := filepath.Join(src, "a.txt")
	writeFile(t, a, "a")

	f := newFixture(t, 0)
	f.run(t, ops.Request{Kind: ops.OpCopy, Sources: []string{a}, DestDir: dst})
	f.undo(t)

	if exists(filepath.Join(dst, "a.txt")) {
		t.Error("undo left the copy in place")
	}
	if !exists(a) {
		t.Error("undo touched the original")
	}

	f.redo(t)
	if !exists(filepath.Join(dst, "a.txt")) {
		t.Error("redo did not recreate the copy")
	}
}

func TestUndoDeleteRestoresFromBackup(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "keep.txt")
	writeFile(t, a, "precious")

	f := newFixture(t, 0)
	f.run(t, ops.Request{Kind: ops.OpDelete, Sources: []string{a}})

	if exists(a) {
		t.Fatal("delete left the file")
	}
	f.undo(t)

	data, err := os.ReadFile(a)
	if err != nil {
		t.Fatalf("undo did not restore the file: %v", err)
	}
	if string(data) != "precious" {
		t.Errorf("restored content = %q", data)
	}

	// Redo deletes it again; a second undo must still work because the
	// replay captured a fresh backup.
	f.redo(t)
	if exists(a) {
		t.Fatal("redo did not delete the file")
	}
	f.undo(t)
	if !exists(a) {
		t.Error("second undo after redo did not restore the file")
	}
}

func TestUndoCreate(t *testing.T) {
	dir := t.TempDir()

	f := newFixture(t, 0)
	f.run(t, ops.Request{Kind: ops.OpCreateDir, DestDir: dir, NewName: "scratch"})

	made := filepath.Join(dir, "scratch")
	if !exists(made) {
		t.Fatal("create did not apply")
	}
	f.undo(t)
	if exists(made) {
		t.Error("undo left the directory")
	}
}

func TestFreshOperationClearsRedo(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.txt")
	writeFile(t, a, "a")

	f := newFixture(t, 0)
	f.run(t, ops.Request{Kind: ops.OpRename, Sources: []string{a}, NewName: "b.txt"})
	f.undo(t)

	if !f.ledger.CanRedo() {
		t.Fatal("expected a redo target after undo")
	}
	f.run(t, ops.Request{Kind: ops.OpCreateFile, DestDir: dir, NewName: "new.txt"})

	if f.ledger.CanRedo() {
		t.Error("fresh operation did not clear the redo stack")
	}
	if _, err := f.ledger.Redo(); !errors.Is(err, ErrNotUndoable) {
		t.Errorf("expected ErrNotUndoable, got %v", err)
	}
}

func TestUndoEmptyHistory(t *testing.T) {
	f := newFixture(t, 0)
	if _, err := f.ledger.Undo(); !errors.Is(err, ErrNotUndoable) {
		t.Errorf("expected ErrNotUndoable, got %v", err)
	}
	if f.ledger.CanUndo() {
		t.Error("CanUndo on empty ledger")
	}
}

func TestFailedOperationNotRecorded(t *testing.T) {
	dir := t.TempDir()

	f := newFixture(t, 0)
	rec, err := f.sched.Submit(ops.Request{
		Kind:    ops.OpDelete,
		Sources: []string{filepath.Join(dir, "ghost.txt")},
	})
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	f.wait(t, rec)
	f.ledger.OnComplete(rec)

	if f.ledger.CanUndo() {
		t.Error("operation with no successes was recorded")
	}
}

func TestTrimPurgesEvictedBackups(t *testing.T) {
	dir := t.TempDir()

	f := newFixture(t, 2)

	var first *ops.Record
	for i, name := range []string{"a.txt", "b.txt", "c.txt"} {
		p := filepath.Join(dir, name)
		writeFile(t, p, name)
		rec := f.run(t, ops.Request{Kind: ops.OpDelete, Sources: []string{p}})
		if i == 0 {
			first = rec
		}
	}

	// Limit 2: deleting a third file evicts the first record and its
	// backup must be gone from disk.
	backups := first.Succeeded()
	if len(backups) != 1 || backups[0].BackupPath == "" {
		t.Fatal("first delete did not capture a backup")
	}
	if exists(backups[0].BackupPath) {
		t.Error("evicted record's backup was not purged")
	}

	// The two retained deletes still undo.
	f.undo(t)
	f.undo(t)
	if !exists(filepath.Join(dir, "b.txt")) || !exists(filepath.Join(dir, "c.txt")) {
		t.Error("retained history did not restore")
	}
}
