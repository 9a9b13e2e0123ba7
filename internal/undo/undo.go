// Package undo keeps the append-only history of completed operation
// records and replays inverses through the scheduler. Reversibility is
// inverse-operation replay, not filesystem snapshotting: a rename
// undoes as a rename, a move as a move back, a copy as a delete of the
// copies, a delete as a restore from its backup location. Only the
// items that actually succeeded are reversed.
package undo

import (
	"errors"
	"path/filepath"
	"sync"

	"github.com/LFroesch/voyager/internal/logging"
	"github.com/LFroesch/voyager/internal/ops"
)

// ErrNotUndoable is returned when there is nothing to undo/redo or the
// record cannot be reversed (e.g. a delete with no captured backup).
var ErrNotUndoable = errors.New("not undoable")

// Ledger owns the undo and redo stacks. The two are mutually
// exclusive: recording any fresh operation clears the redo future.
type Ledger struct {
	mu    sync.Mutex
	sched *ops.Scheduler
	limit int

	undoStack []*ops.Record
	redoStack []*ops.Record

	// Inverse records currently in flight, keyed to the original they
	// reverse (or re-apply). OnComplete finalizes the bookkeeping.
	pending map[*ops.Record]pendingAction
}

type pendingAction struct {
	original *ops.Record
	redo     bool
}

// NewLedger creates a ledger replaying through sched, retaining at
// most limit records (0 selects the default of 100).
func NewLedger(sched *ops.Scheduler, limit int) *Ledger {
	if limit <= 0 {
		limit = 100
	}
	return &Ledger{
		sched:   sched,
		limit:   limit,
		pending: make(map[*ops.Record]pendingAction),
	}
}

// OnComplete folds a finished record into the history. The engine
// calls this for every terminal record, including the inverse records
// the ledger itself submitted; those finalize undo/redo bookkeeping
// instead of being recorded again.
func (l *Ledger) OnComplete(rec *ops.Record) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if action, ok := l.pending[rec]; ok {
		delete(l.pending, rec)
		if len(rec.Succeeded()) == 0 {
			// The inverse achieved nothing; put the original back where
			// it came from so the user can retry.
			logging.Warn("op %d: inverse of op %d failed", rec.Seq, action.original.Seq)
			if action.redo {
				l.redoStack = append(l.redoStack, action.original)
			} else {
				l.undoStack = append(l.undoStack, action.original)
			}
			return
		}
		if action.redo {
			// Push the replay, not the original: its items carry the
			// current destinations and backup paths.
			action.original.MarkRedone()
			l.undoStack = append(l.undoStack, rec)
		} else {
			action.original.MarkUndone()
			l.redoStack = append(l.redoStack, action.original)
		}
		return
	}

	// Fresh operation: only record it if something succeeded and the
	// kind is reversible at all.
	if len(rec.Succeeded()) == 0 {
		return
	}
	if rec.Status() != ops.StatusCompleted && rec.Status() != ops.StatusCancelled {
		return
	}

	l.undoStack = append(l.undoStack, rec)
	l.redoStack = nil // a new edit invalidates the redo future
	l.trimLocked()
}

// CanUndo reports whether an undo target exists.
func (l *Ledger) CanUndo() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.undoStack) > 0
}

// CanRedo reports whether a redo target exists.
func (l *Ledger) CanRedo() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.redoStack) > 0
}

// Undo pops the most recent record and submits its inverse, returning
// the inverse's handle. The original is marked undone only once the
// inverse completes (see OnComplete).
func (l *Ledger) Undo() (*ops.Record, error) {
	l.mu.Lock()
	if len(l.undoStack) == 0 {
		l.mu.Unlock()
		return nil, errors.Join(ErrNotUndoable, errors.New("empty undo history"))
	}
	original := l.undoStack[len(l.undoStack)-1]
	l.undoStack = l.undoStack[:len(l.undoStack)-1]
	l.mu.Unlock()

	req, err := inverseRequest(original)
	if err != nil {
		// Put it back; the user may clear the blocker and retry.
		l.mu.Lock()
		l.undoStack = append(l.undoStack, original)
		l.mu.Unlock()
		return nil, err
	}

	inverse, err := l.sched.Submit(req)
	if err != nil {
		l.mu.Lock()
		l.undoStack = append(l.undoStack, original)
		l.mu.Unlock()
		return nil, err
	}

	l.mu.Lock()
	l.pending[inverse] = pendingAction{original: original}
	l.mu.Unlock()
	logging.Info("undo of op %d submitted as op %d", original.Seq, inverse.Seq)
	return inverse, nil
}

// Redo re-applies the most recently undone record.
func (l *Ledger) Redo() (*ops.Record, error) {
	l.mu.Lock()
	if len(l.redoStack) == 0 {
		l.mu.Unlock()
		return nil, errors.Join(ErrNotUndoable, errors.New("empty redo history"))
	}
	original := l.redoStack[len(l.redoStack)-1]
	l.redoStack = l.redoStack[:len(l.redoStack)-1]
	l.mu.Unlock()

	req, err := redoRequest(original)
	if err != nil {
		l.mu.Lock()
		l.redoStack = append(l.redoStack, original)
		l.mu.Unlock()
		return nil, err
	}

	replay, err := l.sched.Submit(req)
	if err != nil {
		l.mu.Lock()
		l.redoStack = append(l.redoStack, original)
		l.mu.Unlock()
		return nil, err
	}

	l.mu.Lock()
	l.pending[replay] = pendingAction{original: original, redo: true}
	l.mu.Unlock()
	return replay, nil
}

// Clear drops the whole history, purging any backups held only by it.
func (l *Ledger) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, rec := range l.undoStack {
		l.purgeBackups(rec)
	}
	l.undoStack = nil
	l.redoStack = nil
}

// trimLocked evicts the oldest records past the retention limit.
// Callers hold l.mu.
func (l *Ledger) trimLocked() {
	for len(l.undoStack) > l.limit {
		l.purgeBackups(l.undoStack[0])
		l.undoStack = l.undoStack[1:]
	}
}

// purgeBackups permanently drops the backups of an evicted delete
// record; nothing can restore them once the record leaves the history.
func (l *Ledger) purgeBackups(rec *ops.Record) {
	if rec.Kind != ops.OpDelete {
		return
	}
	for _, it := range rec.Succeeded() {
		if it.BackupPath != "" {
			if err := l.sched.Backup().Purge(it.BackupPath); err != nil {
				logging.Warn("purge backup %s: %v", it.BackupPath, err)
			}
		}
	}
}

// inverseRequest builds the operation that reverses rec's succeeded
// items.
func inverseRequest(rec *ops.Record) (ops.Request, error) {
	succeeded := rec.Succeeded()
	if len(succeeded) == 0 {
		return ops.Request{}, ErrNotUndoable
	}

	switch rec.Kind {
	case ops.OpRename:
		it := succeeded[0]
		return ops.Request{
			Kind:    ops.OpRename,
			Sources: []string{it.Dest},
			NewName: filepath.Base(it.Source),
		}, nil

	case ops.OpMove:
		sources := make([]string, len(succeeded))
		dests := make([]string, len(succeeded))
		for i, it := range succeeded {
			sources[i] = it.Dest
			dests[i] = it.Source
		}
		return ops.Request{Kind: ops.OpMove, Sources: sources, Dests: dests}, nil

	case ops.OpCopy:
		sources := make([]string, len(succeeded))
		for i, it := range succeeded {
			sources[i] = it.Dest
		}
		return ops.Request{Kind: ops.OpDelete, Sources: sources}, nil

	case ops.OpDelete:
		sources := make([]string, 0, len(succeeded))
		dests := make([]string, 0, len(succeeded))
		for _, it := range succeeded {
			if it.BackupPath == "" {
				return ops.Request{}, errors.Join(ErrNotUndoable, errors.New("no backup captured"))
			}
			sources = append(sources, it.BackupPath)
			dests = append(dests, it.Source)
		}
		return ops.Request{Kind: ops.OpMove, Sources: sources, Dests: dests}, nil

	case ops.OpCreateFile, ops.OpCreateDir:
		return ops.Request{Kind: ops.OpDelete, Sources: []string{succeeded[0].Dest}}, nil

	default:
		return ops.Request{}, ErrNotUndoable
	}
}

// redoRequest rebuilds the original request from the record so a
// previously undone operation can be re-applied.
func redoRequest(rec *ops.Record) (ops.Request, error) {
	succeeded := rec.Succeeded()
	if len(succeeded) == 0 {
		return ops.Request{}, ErrNotUndoable
	}

	switch rec.Kind {
	case ops.OpRename:
		return ops.Request{
			Kind:    ops.OpRename,
			Sources: []string{succeeded[0].Source},
			NewName: rec.NewName,
		}, nil

	case ops.OpMove, ops.OpCopy:
		sources := make([]string, len(succeeded))
		dests := make([]string, len(succeeded))
		for i, it := range succeeded {
			sources[i] = it.Source
			dests[i] = it.Dest
		}
		return ops.Request{Kind: rec.Kind, Sources: sources, Dests: dests}, nil

	case ops.OpDelete:
		sources := make([]string, len(succeeded))
		for i, it := range succeeded {
			sources[i] = it.Source
		}
		return ops.Request{Kind: ops.OpDelete, Sources: sources}, nil

	case ops.OpCreateFile, ops.OpCreateDir:
		return ops.Request{Kind: rec.Kind, DestDir: rec.DestDir, NewName: rec.NewName}, nil

	default:
		return ops.Request{}, ErrNotUndoable
	}
}
