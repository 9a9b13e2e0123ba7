// Package ops executes batched file operations asynchronously with
// bounded parallelism, progress reporting, cooperative cancellation
// and per-item outcome manifests. Completed records feed the undo
// ledger.
package ops

import (
	"context"
	"sync"
	"time"
)

// Kind tags the operation an OperationRecord performs.
type Kind int

const (
	OpCopy Kind = iota
	OpMove
	OpDelete
	OpRename
	OpCreateFile
	OpCreateDir
)

// String returns the string representation of the kind.
func (k Kind) String() string {
	switch k {
	case OpCopy:
		return "copy"
	case OpMove:
		return "move"
	case OpDelete:
		return "delete"
	case OpRename:
		return "rename"
	case OpCreateFile:
		return "create-file"
	case OpCreateDir:
		return "create-dir"
	default:
		return "unknown"
	}
}

// Status is the lifecycle state of a record (and of each item).
type Status int

const (
	StatusPending Status = iota
	StatusInProgress
	StatusCompleted
	StatusFailed
	StatusCancelled
	StatusSkipped
	StatusUndone
)

// String returns the string representation of the status.
func (s Status) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusInProgress:
		return "in-progress"
	case StatusCompleted:
		return "completed"
	case StatusFailed:
		return "failed"
	case StatusCancelled:
		return "cancelled"
	case StatusSkipped:
		return "skipped"
	case StatusUndone:
		return "undone"
	default:
		return "unknown"
	}
}

// ConflictPolicy decides what happens when a copy/move destination
// already holds a same-named entry. PolicyAsk pauses the item and asks
// the registered decision callback; without a callback the item fails.
type ConflictPolicy int

const (
	PolicyAsk ConflictPolicy = iota
	PolicyOverwrite
	PolicySkip
	PolicySuffix
)

// Item is one per-entry suboperation of a batch.
type Item struct {
	Source     string
	Dest       string // final destination path; for deletes this is empty
	BackupPath string // where a deleted entry was parked, for undo
	Status     Status
	Err        error
}

// Progress is the monotonic progress of one record.
type Progress struct {
	BytesDone  int64
	BytesTotal int64
	ItemsDone  int
	ItemsTotal int
}

// Record is the undo-capable description of one submitted batch. It
// doubles as the operation handle: consumers poll Snapshot/Progress,
// wait on Done and request Cancel.
type Record struct {
	Seq    uint64
	Kind   Kind
	Policy ConflictPolicy

	// Rename/create parameters
	NewName string
	DestDir string

	SubmittedAt time.Time

	mu          sync.Mutex
	items       []*Item
	status      Status
	progress    Progress
	completedAt time.Time

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

// Cancel requests cooperative cancellation. Completed suboperations
// stay completed; there is no rollback.
func (r *Record) Cancel() {
	r.cancel()
}

// Done is closed when the record reaches a terminal status.
func (r *Record) Done() <-chan struct{} {
	return r.done
}

// Status returns the record's current lifecycle state.
func (r *Record) Status() Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.status
}

// Progress returns the current progress counters.
func (r *Record) Progress() Progress {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.progress
}

// Items returns a copy of the per-item manifest.
func (r *Record) Items() []Item {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Item, len(r.items))
	for i, it := range r.items {
		out[i] = *it
	}
	return out
}

// Succeeded returns the items that completed, the set an undo of this
// record reverses.
func (r *Record) Succeeded() []Item {
	var out []Item
	for _, it := range r.Items() {
		if it.Status == StatusCompleted {
			out = append(out, it)
		}
	}
	return out
}

// CompletedAt returns when the record reached a terminal status.
func (r *Record) CompletedAt() time.Time {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.completedAt
}

// MarkUndone flips a record to undone after the ledger reversed it.
func (r *Record) MarkUndone() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.status = StatusUndone
}

// MarkRedone restores a previously undone record's completed status.
func (r *Record) MarkRedone() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.status = StatusCompleted
}

// Item fields are written by worker goroutines and read through
// Items(); both sides go through r.mu.

func (r *Record) completeItem(it *Item) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if it.Status == StatusPending || it.Status == StatusInProgress {
		it.Status = StatusCompleted
	}
}

func (r *Record) failItem(it *Item, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	it.Status = StatusFailed
	it.Err = err
}

func (r *Record) cancelItem(it *Item) {
	r.mu.Lock()
	defer r.mu.Unlock()
	it.Status = StatusCancelled
	it.Err = ErrCancelled
}

func (r *Record) skipItem(it *Item) {
	r.mu.Lock()
	defer r.mu.Unlock()
	it.Status = StatusSkipped
}

func (r *Record) setItemDest(it *Item, dest string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	it.Dest = dest
}

func (r *Record) setItemBackup(it *Item, path string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	it.BackupPath = path
}

func (r *Record) setStatus(s Status) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.status = s
}

func (r *Record) addBytes(delta int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.progress.BytesDone += delta
}

func (r *Record) itemDone() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.progress.ItemsDone++
}

// finish computes the terminal status from the manifest: cancelled if
// cancellation was requested, completed as long as anything succeeded
// (partial success is a first-class completion, surfaced through the
// manifest), failed only when nothing succeeded.
func (r *Record) finish(cancelled bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	succeeded, failed := 0, 0
	for _, it := range r.items {
		switch it.Status {
		case StatusCompleted:
			succeeded++
		case StatusFailed:
			failed++
		}
	}

	switch {
	case cancelled:
		r.status = StatusCancelled
	case failed > 0 && succeeded == 0:
		r.status = StatusFailed
	default:
		r.status = StatusCompleted
	}
	r.completedAt = time.Now()
	close(r.done)
}
