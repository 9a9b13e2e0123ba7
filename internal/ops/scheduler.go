package ops

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/LFroesch/voyager/internal/fileops"
	"github.com/LFroesch/voyager/internal/logging"
)

// ErrCancelled marks items and batches stopped by a cancellation
// request.
var ErrCancelled = errors.New("cancelled")

// Result is the message a finished suboperation (Item != nil) or
// finished batch (Item == nil) sends to the owning loop. AppliedAt is
// the local mutation timestamp the state manager uses to drop stale
// watcher events for the same paths.
type Result struct {
	Record    *Record
	Item      *Item
	AppliedAt time.Time
}

// ConflictRequest asks the caller to resolve a destination collision
// for one item. The suboperation is paused until the decision returns.
type ConflictRequest struct {
	Record *Record
	Source string
	Dest   string
}

// DecisionFunc resolves a conflict. Returning PolicyAsk again fails
// the item with AlreadyExists.
type DecisionFunc func(ConflictRequest) ConflictPolicy

// Request describes one batch submission.
type Request struct {
	Kind    Kind
	Sources []string
	DestDir string         // copy/move destination, create parent
	Dests   []string       // explicit per-source destination paths; overrides DestDir joining (undo restores)
	NewName string         // rename target name, create name
	Policy  ConflictPolicy // conflict policy, PolicyAsk by default
}

// Scheduler executes batches with bounded internal parallelism.
// Workers take a semaphore slot per suboperation (descriptor budget)
// and a per-destination-directory ticket (listing consistency), then
// report results over the Results channel for the owning loop to fold
// into snapshots.
type Scheduler struct {
	sem        chan struct{}
	destLocks  *dirLocks
	backup     *fileops.Backup
	results    chan Result
	seq        atomic.Uint64
	decide     DecisionFunc
	onProgress func(*Record)
	liveness   time.Duration
	wg         sync.WaitGroup
}

// Options tune a scheduler. Zero values select the defaults.
type Options struct {
	Workers    int           // concurrent in-flight suboperations, default 4
	Liveness   time.Duration // max interval between progress callbacks, default 200ms
	Decide     DecisionFunc  // conflict decision callback, may be nil
	OnProgress func(*Record) // progress notification, may be nil
}

// NewScheduler creates a scheduler parked on the given backup
// location (used for undoable deletes).
func NewScheduler(backup *fileops.Backup, opts Options) *Scheduler {
	workers := opts.Workers
	if workers <= 0 {
		workers = 4
	}
	liveness := opts.Liveness
	if liveness <= 0 {
		liveness = 200 * time.Millisecond
	}
	return &Scheduler{
		sem:        make(chan struct{}, workers),
		destLocks:  newDirLocks(),
		backup:     backup,
		results:    make(chan Result, 128),
		decide:     opts.Decide,
		onProgress: opts.OnProgress,
		liveness:   liveness,
	}
}

// Results returns the stream of item and batch completions. The
// owning loop must drain it.
func (s *Scheduler) Results() <-chan Result {
	return s.results
}

// Backup exposes the backup location, which the undo ledger needs for
// restores and purges.
func (s *Scheduler) Backup() *fileops.Backup {
	return s.backup
}

// Wait blocks until every submitted batch has finished. Used by tests
// and the CLI driver at shutdown.
func (s *Scheduler) Wait() {
	s.wg.Wait()
}

// Submit validates a request, decomposes it into suboperations and
// schedules them. It never blocks on the filesystem: validation is
// Lstat-only and execution happens on the worker pool. Sources that
// are already gone fail per-item, not as a whole-batch error.
func (s *Scheduler) Submit(req Request) (*Record, error) {
	if len(req.Sources) == 0 && req.Kind != OpCreateFile && req.Kind != OpCreateDir {
		return nil, fmt.Errorf("%w: empty source set", fileops.ErrIO)
	}
	if len(req.Dests) > 0 && len(req.Dests) != len(req.Sources) {
		return nil, fmt.Errorf("%w: destination list does not match sources", fileops.ErrIO)
	}
	switch req.Kind {
	case OpCopy, OpMove:
		if req.DestDir == "" && len(req.Dests) == 0 {
			return nil, fmt.Errorf("%w: missing destination", fileops.ErrIO)
		}
	case OpRename:
		if len(req.Sources) != 1 || req.NewName == "" {
			return nil, fmt.Errorf("%w: rename takes one source and a new name", fileops.ErrIO)
		}
	case OpCreateFile, OpCreateDir:
		if req.DestDir == "" || req.NewName == "" {
			return nil, fmt.Errorf("%w: create takes a directory and a name", fileops.ErrIO)
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	rec := &Record{
		Seq:         s.seq.Add(1),
		Kind:        req.Kind,
		Policy:      req.Policy,
		NewName:     req.NewName,
		DestDir:     req.DestDir,
		SubmittedAt: time.Now(),
		status:      StatusPending,
		ctx:         ctx,
		cancel:      cancel,
		done:        make(chan struct{}),
	}

	if req.Kind == OpCreateFile || req.Kind == OpCreateDir {
		rec.items = []*Item{{Dest: filepath.Join(req.DestDir, req.NewName), Status: StatusPending}}
	} else {
		for i, src := range req.Sources {
			it := &Item{Source: src, Status: StatusPending}
			if len(req.Dests) > 0 {
				it.Dest = req.Dests[i]
			}
			rec.items = append(rec.items, it)
		}
	}
	rec.progress.ItemsTotal = len(rec.items)

	// Size the batch for byte progress. Vanished sources are caught
	// here and fail per-item without aborting siblings.
	for _, it := range rec.items {
		switch req.Kind {
		case OpCopy, OpMove:
			bytes, _, err := fileops.TotalSize(it.Source)
			if err != nil {
				it.Status = StatusFailed
				it.Err = err
				continue
			}
			rec.mu.Lock()
			rec.progress.BytesTotal += bytes
			rec.mu.Unlock()
		case OpDelete, OpRename:
			if _, err := os.Lstat(it.Source); err != nil {
				it.Status = StatusFailed
				it.Err = fileops.Classify(err)
			}
		}
	}

	// Reserve destination-order tickets now, in submission order.
	waits := make([]<-chan struct{}, len(rec.items))
	releases := make([]func(), len(rec.items))
	for i, it := range rec.items {
		dir := s.destDirFor(req, it)
		waits[i], releases[i] = s.destLocks.ticket(dir)
	}

	rec.setStatus(StatusInProgress)
	logging.Info("op %d submitted: %s, %d items", rec.Seq, rec.Kind, len(rec.items))

	s.wg.Add(1)
	go s.runBatch(rec, req, waits, releases)

	return rec, nil
}

// destDirFor picks the directory whose listing consistency an item
// affects, the key for per-destination serialization.
func (s *Scheduler) destDirFor(req Request, it *Item) string {
	switch req.Kind {
	case OpCopy, OpMove:
		if it.Dest != "" {
			return filepath.Dir(it.Dest)
		}
		return filepath.Clean(req.DestDir)
	case OpRename, OpDelete:
		return filepath.Dir(it.Source)
	default: // creates
		return filepath.Clean(req.DestDir)
	}
}

func (s *Scheduler) runBatch(rec *Record, req Request, waits []<-chan struct{}, releases []func()) {
	defer s.wg.Done()

	// Liveness ticker: progress consumers hear from us at least this
	// often while the batch runs, even during one long copy.
	stopTick := make(chan struct{})
	if s.onProgress != nil {
		go func() {
			t := time.NewTicker(s.liveness)
			defer t.Stop()
			for {
				select {
				case <-stopTick:
					return
				case <-t.C:
					s.onProgress(rec)
				}
			}
		}()
	}

	var itemWG sync.WaitGroup
	for i, it := range rec.items {
		if it.Status == StatusFailed {
			// Failed validation; release its ticket and move on.
			releases[i]()
			rec.itemDone()
			continue
		}

		itemWG.Add(1)
		go func(it *Item, wait <-chan struct{}, release func()) {
			defer itemWG.Done()
			defer release()

			// Destination order first, then a worker slot. Waiting on a
			// ticket holds no slot, so a long queue on one directory
			// cannot starve the pool into a deadlock.
			select {
			case <-wait:
			case <-rec.ctx.Done():
				s.skipCancelled(rec, it)
				return
			}

			select {
			case s.sem <- struct{}{}:
			case <-rec.ctx.Done():
				s.skipCancelled(rec, it)
				return
			}
			defer func() { <-s.sem }()

			if rec.ctx.Err() != nil {
				s.skipCancelled(rec, it)
				return
			}

			s.runItem(rec, req, it)
			rec.itemDone()
			if s.onProgress != nil {
				s.onProgress(rec)
			}
			s.results <- Result{Record: rec, Item: it, AppliedAt: time.Now()}
		}(it, waits[i], releases[i])
	}

	itemWG.Wait()
	close(stopTick)

	rec.finish(rec.ctx.Err() != nil)
	if s.onProgress != nil {
		s.onProgress(rec)
	}
	logging.Info("op %d finished: %s", rec.Seq, rec.Status())
	s.results <- Result{Record: rec, AppliedAt: time.Now()}
}

func (s *Scheduler) skipCancelled(rec *Record, it *Item) {
	rec.cancelItem(it)
	rec.itemDone()
	s.results <- Result{Record: rec, Item: it, AppliedAt: time.Now()}
}

// runItem executes one suboperation. Errors land in the item manifest;
// siblings keep running.
func (s *Scheduler) runItem(rec *Record, req Request, it *Item) {
	var err error
	skipped := false
	switch req.Kind {
	case OpCopy:
		skipped, err = s.runTransfer(rec, req, it, false)
	case OpMove:
		skipped, err = s.runTransfer(rec, req, it, true)
	case OpDelete:
		var backupPath string
		backupPath, err = s.backup.Delete(it.Source)
		if err == nil {
			rec.setItemBackup(it, backupPath)
		}
	case OpRename:
		var newPath string
		newPath, err = fileops.Rename(it.Source, req.NewName)
		if err == nil {
			rec.setItemDest(it, newPath)
		}
	case OpCreateFile:
		_, err = fileops.CreateFile(req.DestDir, req.NewName)
	case OpCreateDir:
		_, err = fileops.CreateDir(req.DestDir, req.NewName)
	}

	switch {
	case skipped:
		rec.skipItem(it)
	case err == nil:
		rec.completeItem(it)
	case rec.ctx.Err() != nil:
		rec.cancelItem(it)
	default:
		rec.failItem(it, err)
		logging.Warn("op %d item %s failed: %v", rec.Seq, it.Source, err)
	}
}

// runTransfer handles the copy/move items including destination
// conflict resolution. The skipped return marks a PolicySkip outcome.
func (s *Scheduler) runTransfer(rec *Record, req Request, it *Item, move bool) (bool, error) {
	name := filepath.Base(it.Source)
	dest := it.Dest // explicit destination (undo restores)
	if dest == "" {
		dest = filepath.Join(req.DestDir, name)
	}

	if _, err := os.Lstat(dest); err == nil {
		policy := rec.Policy
		if policy == PolicyAsk && s.decide != nil {
			// Pause the item until the caller decides.
			policy = s.decide(ConflictRequest{Record: rec, Source: it.Source, Dest: dest})
		}
		switch policy {
		case PolicyOverwrite:
			if err := os.RemoveAll(dest); err != nil {
				return false, fileops.Classify(err)
			}
		case PolicySkip:
			return true, nil
		case PolicySuffix:
			destDir := filepath.Dir(dest)
			dest = filepath.Join(destDir, fileops.SuffixName(destDir, filepath.Base(dest)))
		default:
			return false, fmt.Errorf("%w: %s", fileops.ErrAlreadyExists, dest)
		}
	}

	rec.setItemDest(it, dest)
	if move {
		return false, fileops.Move(rec.ctx, it.Source, dest, rec.addBytes)
	}
	return false, fileops.Copy(rec.ctx, it.Source, dest, rec.addBytes)
}
