// Package engine runs the command/event loop that owns all pane state.
// Every snapshot mutation happens on the loop goroutine: intents from
// the caller, watcher events, and scheduler results are serialized
// through it, so panes and snapshots need no locks. Filesystem work
// (listings, copies) runs on workers and comes back as messages.
package engine

import (
	"context"
	"errors"
	"sync"

	"github.com/atotto/clipboard"
	"github.com/skratchdot/open-golang/open"

	"github.com/LFroesch/voyager/internal/entry"
	"github.com/LFroesch/voyager/internal/fileops"
	"github.com/LFroesch/voyager/internal/filter"
	"github.com/LFroesch/voyager/internal/logging"
	"github.com/LFroesch/voyager/internal/ops"
	"github.com/LFroesch/voyager/internal/state"
	"github.com/LFroesch/voyager/internal/undo"
	"github.com/LFroesch/voyager/internal/watch"
)

// ErrStopped is returned when a command is issued after the loop has
// exited.
var ErrStopped = errors.New("engine stopped")

// Notification is pushed to subscribers after every applied mutation.
// PaneID identifies the changed pane (0 for operation-only updates);
// Record carries the operation the update concerns, if any. The caller
// reads current state back through the engine; the notification only
// says that something changed.
type Notification struct {
	PaneID uint64
	Record *ops.Record
}

// Options configures an Engine. Zero values select defaults.
type Options struct {
	Sort       entry.SortMode
	ShowHidden bool
	HistoryCap int
	Workers    int
	UndoLimit  int
	BackupDir  string           // delete-backup location, default under the config dir
	Decide     ops.DecisionFunc // conflict resolution callback, may be nil
}

// Engine wires the state manager, the operation scheduler, the undo
// ledger and the filesystem watcher together under one owning loop.
type Engine struct {
	man    *state.Manager
	sched  *ops.Scheduler
	ledger *undo.Ledger

	watcher *watch.Watcher
	watched map[string]struct{}

	cmds chan func()
	done chan struct{}

	subMu sync.Mutex
	subs  []chan Notification
}

// New builds an engine. Run must be started before commands are
// issued.
func New(opts Options) (*Engine, error) {
	backup, err := fileops.NewBackup(opts.BackupDir)
	if err != nil {
		return nil, err
	}
	watcher, err := watch.New()
	if err != nil {
		return nil, err
	}

	e := &Engine{
		man: state.NewManager(state.Options{
			Sort:       opts.Sort,
			ShowHidden: opts.ShowHidden,
			HistoryCap: opts.HistoryCap,
		}),
		watcher: watcher,
		watched: make(map[string]struct{}),
		cmds:    make(chan func(), 64),
		done:    make(chan struct{}),
	}
	e.sched = ops.NewScheduler(backup, ops.Options{
		Workers: opts.Workers,
		Decide:  opts.Decide,
		OnProgress: func(rec *ops.Record) {
			e.notify(0, rec)
		},
	})
	e.ledger = undo.NewLedger(e.sched, opts.UndoLimit)
	return e, nil
}

// Run executes the owning loop until ctx is cancelled. All pane and
// snapshot mutation happens here.
func (e *Engine) Run(ctx context.Context) {
	defer close(e.done)
	defer e.watcher.Close()

	for {
		select {
		case <-ctx.Done():
			return
		case fn := <-e.cmds:
			fn()
		case ev, ok := <-e.watcher.Events():
			if !ok {
				return
			}
			e.handleEvent(ev)
		case err := <-e.watcher.Errors():
			logging.Warn("watcher: %v", err)
		case res := <-e.sched.Results():
			e.handleResult(res)
		}
	}
}

// Subscribe registers a notification channel. Slow subscribers miss
// updates rather than blocking the loop; the next notification still
// reflects the latest state.
func (e *Engine) Subscribe() <-chan Notification {
	ch := make(chan Notification, 64)
	e.subMu.Lock()
	e.subs = append(e.subs, ch)
	e.subMu.Unlock()
	return ch
}

func (e *Engine) notify(paneID uint64, rec *ops.Record) {
	e.subMu.Lock()
	defer e.subMu.Unlock()
	n := Notification{PaneID: paneID, Record: rec}
	for _, ch := range e.subs {
		select {
		case ch <- n:
		default:
		}
	}
}

// post queues fn onto the loop; it reports false once the loop has
// exited.
func (e *Engine) post(fn func()) bool {
	select {
	case e.cmds <- fn:
		return true
	case <-e.done:
		return false
	}
}

// call runs fn on the loop and waits for it.
func (e *Engine) call(fn func()) error {
	ran := make(chan struct{})
	if !e.post(func() {
		fn()
		close(ran)
	}) {
		return ErrStopped
	}
	select {
	case <-ran:
		return nil
	case <-e.done:
		return ErrStopped
	}
}

// OpenPane opens a pane on dir and starts watching it.
func (e *Engine) OpenPane(dir string) (uint64, error) {
	var (
		id      uint64
		openErr error
	)
	err := e.call(func() {
		var p *state.Pane
		p, openErr = e.man.Open(dir)
		if openErr != nil {
			return
		}
		id = p.ID
		e.updateWatches()
		e.notify(id, nil)
	})
	if err != nil {
		return 0, err
	}
	return id, openErr
}

// ClosePane discards a pane and drops watches no other pane needs.
func (e *Engine) ClosePane(paneID uint64) error {
	return e.withPane(paneID, func(p *state.Pane) {
		e.man.Close(p)
		e.updateWatches()
	})
}

// Pane returns a read-only view of the pane's current state. The
// returned snapshot is immutable; Dir, selection and results are
// copied, so the caller can use them off the loop.
func (e *Engine) Pane(paneID uint64) (PaneView, error) {
	var view PaneView
	err := e.withPane(paneID, func(p *state.Pane) {
		view = PaneView{
			ID:        p.ID,
			Dir:       p.Dir(),
			Snapshot:  p.Snapshot(),
			Err:       p.Err(),
			Query:     p.Query(),
			Results:   p.Results(),
			Selection: p.Selection(),
		}
	})
	return view, err
}

// Navigate moves the pane to dir. The fresh listing is asynchronous; a
// notification follows when it lands.
func (e *Engine) Navigate(paneID uint64, dir string) error {
	return e.withPane(paneID, func(p *state.Pane) {
		gen := e.man.StartNavigate(p, dir)
		e.updateWatches()
		e.notify(p.ID, nil)
		e.listAsync(p, gen)
	})
}

// Refresh re-lists the pane's directory asynchronously.
func (e *Engine) Refresh(paneID uint64) error {
	return e.withPane(paneID, func(p *state.Pane) {
		_, gen := e.man.StartRefresh(p)
		e.listAsync(p, gen)
	})
}

// Back moves one step back in the pane's history.
func (e *Engine) Back(paneID uint64) error {
	return e.withPane(paneID, func(p *state.Pane) {
		gen, ok := e.man.StartBack(p)
		if !ok {
			return
		}
		e.updateWatches()
		e.notify(p.ID, nil)
		e.listAsync(p, gen)
	})
}

// Forward moves one step forward in the pane's history.
func (e *Engine) Forward(paneID uint64) error {
	return e.withPane(paneID, func(p *state.Pane) {
		gen, ok := e.man.StartForward(p)
		if !ok {
			return
		}
		e.updateWatches()
		e.notify(p.ID, nil)
		e.listAsync(p, gen)
	})
}

// listAsync runs the listing for the pane's current directory off the
// loop and posts the result back for application.
func (e *Engine) listAsync(p *state.Pane, gen uint64) {
	dir := p.Dir()
	go func() {
		entries, err := e.man.List(dir)
		e.post(func() {
			if e.man.ApplyListing(p, gen, dir, entries, err) {
				e.notify(p.ID, nil)
			}
		})
	}()
}

// SetFilter updates the pane's fuzzy query.
func (e *Engine) SetFilter(paneID uint64, query string) error {
	return e.withPane(paneID, func(p *state.Pane) {
		e.man.SetFilter(p, query)
		e.notify(p.ID, nil)
	})
}

// ToggleSelect flips one path in the pane's selection.
func (e *Engine) ToggleSelect(paneID uint64, path string) error {
	return e.withPane(paneID, func(p *state.Pane) {
		p.ToggleSelect(path)
		e.notify(p.ID, nil)
	})
}

// ClearSelection empties the pane's selection.
func (e *Engine) ClearSelection(paneID uint64) error {
	return e.withPane(paneID, func(p *state.Pane) {
		p.ClearSelection()
		e.notify(p.ID, nil)
	})
}

// SetSort reorders all panes under the new mode.
func (e *Engine) SetSort(mode entry.SortMode) error {
	return e.call(func() {
		e.man.SetSort(mode)
		for _, p := range e.man.Panes() {
			e.notify(p.ID, nil)
		}
	})
}

// SetShowHidden flips hidden-entry visibility and refreshes every
// pane.
func (e *Engine) SetShowHidden(show bool) error {
	return e.call(func() {
		e.man.SetShowHidden(show)
		for _, p := range e.man.Panes() {
			_, gen := e.man.StartRefresh(p)
			e.listAsync(p, gen)
		}
	})
}

// Submit hands a batch to the scheduler. Validation errors surface
// here; execution results arrive as notifications.
func (e *Engine) Submit(req ops.Request) (*ops.Record, error) {
	select {
	case <-e.done:
		return nil, ErrStopped
	default:
	}
	return e.sched.Submit(req)
}

// Cancel requests cooperative cancellation of an in-flight record.
func (e *Engine) Cancel(rec *ops.Record) {
	rec.Cancel()
}

// Undo reverses the most recent operation.
func (e *Engine) Undo() (*ops.Record, error) {
	return e.ledger.Undo()
}

// Redo re-applies the most recently undone operation.
func (e *Engine) Redo() (*ops.Record, error) {
	return e.ledger.Redo()
}

// CanUndo reports whether an undo target exists.
func (e *Engine) CanUndo() bool { return e.ledger.CanUndo() }

// CanRedo reports whether a redo target exists.
func (e *Engine) CanRedo() bool { return e.ledger.CanRedo() }

// OpenEntry opens a path with the platform's default application.
func (e *Engine) OpenEntry(path string) error {
	return open.Start(path)
}

// CopyToClipboard places text (typically an absolute path or entry
// name) on the system clipboard.
func (e *Engine) CopyToClipboard(text string) error {
	return clipboard.WriteAll(text)
}

// Wait blocks until all submitted operations have finished. Used by
// batch drivers before exiting.
func (e *Engine) Wait() {
	e.sched.Wait()
}

func (e *Engine) withPane(paneID uint64, fn func(*state.Pane)) error {
	var missing bool
	err := e.call(func() {
		p, ok := e.man.Pane(paneID)
		if !ok {
			missing = true
			return
		}
		fn(p)
	})
	if err != nil {
		return err
	}
	if missing {
		return errors.New("no such pane")
	}
	return nil
}

// handleEvent routes one watcher event to every pane it falls inside.
func (e *Engine) handleEvent(ev watch.Event) {
	for _, p := range e.man.Panes() {
		if e.man.ApplyEvent(p, ev) {
			e.notify(p.ID, nil)
		}
	}
}

// handleResult folds a scheduler completion into pane snapshots and,
// for batch completions, the undo ledger.
func (e *Engine) handleResult(res ops.Result) {
	if res.Item == nil {
		e.ledger.OnComplete(res.Record)
		e.notify(0, res.Record)
		return
	}
	if res.Item.Status != ops.StatusCompleted {
		e.notify(0, res.Record)
		return
	}

	removed, added := itemEffect(res.Record.Kind, res.Item)
	for _, p := range e.man.Panes() {
		before := p.Snapshot()
		e.man.ApplyLocal(p, removed, added, res.AppliedAt)
		if p.Snapshot() != before {
			e.notify(p.ID, res.Record)
		}
	}
}

// itemEffect maps a completed item to the path it removed and the path
// it added, as seen by directory listings.
func itemEffect(kind ops.Kind, it *ops.Item) (removed, added string) {
	switch kind {
	case ops.OpCopy:
		return "", it.Dest
	case ops.OpMove, ops.OpRename:
		return it.Source, it.Dest
	case ops.OpDelete:
		return it.Source, ""
	case ops.OpCreateFile, ops.OpCreateDir:
		return "", it.Dest
	default:
		return "", ""
	}
}

// updateWatches reconciles the watched directory set against the open
// panes' current directories.
func (e *Engine) updateWatches() {
	want := make(map[string]struct{})
	for _, p := range e.man.Panes() {
		want[p.Dir()] = struct{}{}
	}
	for dir := range want {
		if _, ok := e.watched[dir]; ok {
			continue
		}
		if err := e.watcher.Watch(dir); err != nil {
			// Archive interiors and vanished directories are not
			// watchable; the pane still works through manual refresh.
			logging.Debug("watch %s: %v", dir, err)
			continue
		}
		e.watched[dir] = struct{}{}
	}
	for dir := range e.watched {
		if _, ok := want[dir]; ok {
			continue
		}
		e.watcher.Unwatch(dir)
		delete(e.watched, dir)
	}
}

// PaneView is the copy-out view of a pane handed to callers outside
// the loop.
type PaneView struct {
	ID        uint64
	Dir       string
	Snapshot  *entry.Snapshot
	Err       error
	Query     string
	Results   []filter.Result
	Selection []string
}
