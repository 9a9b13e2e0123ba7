// Package state owns pane navigation and snapshot reconciliation. A
// Manager and its panes belong to one goroutine; filesystem listings
// run elsewhere and come back through ApplyListing, keyed by a
// generation token so a superseded listing is dropped instead of
// clobbering a newer one.
package state

import (
	"path/filepath"
	"time"

	"github.com/LFroesch/voyager/internal/entry"
	"github.com/LFroesch/voyager/internal/fsx"
	"github.com/LFroesch/voyager/internal/logging"
	"github.com/LFroesch/voyager/internal/watch"
)

const defaultHistoryCap = 50

// Options configures a Manager.
type Options struct {
	Sort       entry.SortMode
	ShowHidden bool
	HistoryCap int // visited paths retained per pane; 0 selects the default
}

// Manager owns the open panes. Not safe for concurrent use: the engine
// loop is the sole caller, matching the single-owner snapshot model.
type Manager struct {
	lister     fsx.Lister
	sort       entry.SortMode
	showHidden bool
	historyCap int

	panes  map[uint64]*Pane
	nextID uint64
}

// NewManager creates an empty Manager.
func NewManager(opts Options) *Manager {
	if opts.HistoryCap <= 0 {
		opts.HistoryCap = defaultHistoryCap
	}
	return &Manager{
		sort:       opts.Sort,
		showHidden: opts.ShowHidden,
		historyCap: opts.HistoryCap,
		panes:      make(map[uint64]*Pane),
	}
}

// ShowHidden reports whether listings include dot-prefixed entries.
func (m *Manager) ShowHidden() bool { return m.showHidden }

// SetShowHidden flips hidden-entry visibility. Takes effect on the
// next listing of each pane; callers refresh to see it immediately.
func (m *Manager) SetShowHidden(show bool) { m.showHidden = show }

// Sort returns the active sort mode.
func (m *Manager) Sort() entry.SortMode { return m.sort }

// SetSort reorders every pane's snapshot under the new mode.
func (m *Manager) SetSort(mode entry.SortMode) {
	m.sort = mode
	for _, p := range m.panes {
		if p.snap != nil {
			p.installSnapshot(p.snap.Resorted(mode))
		}
	}
}

// Panes returns the open panes.
func (m *Manager) Panes() []*Pane {
	out := make([]*Pane, 0, len(m.panes))
	for _, p := range m.panes {
		out = append(out, p)
	}
	return out
}

// Pane returns the pane with the given id.
func (m *Manager) Pane(id uint64) (*Pane, bool) {
	p, ok := m.panes[id]
	return p, ok
}

// Open lists dir and creates a pane on it. The listing is synchronous:
// an unlistable path fails here rather than producing a degraded pane.
func (m *Manager) Open(dir string) (*Pane, error) {
	dir = filepath.Clean(dir)
	entries, err := m.lister.List(dir, m.showHidden)
	if err != nil {
		return nil, err
	}

	m.nextID++
	p := &Pane{
		ID:        m.nextID,
		dir:       dir,
		history:   []string{dir},
		selection: make(map[string]struct{}),
		lastLocal: make(map[string]time.Time),
		cache:     make(map[string]*entry.Snapshot),
	}
	p.installSnapshot(entry.NewSnapshot(dir, m.sort, entries))
	m.panes[p.ID] = p
	logging.Debug("pane %d opened at %s (%d entries)", p.ID, dir, p.snap.Len())
	return p, nil
}

// Close discards a pane.
func (m *Manager) Close(p *Pane) {
	delete(m.panes, p.ID)
}

// StartRefresh begins an asynchronous re-listing of the pane's current
// directory. The caller lists dir off the owning goroutine and feeds
// the result to ApplyListing with gen; a StartRefresh issued later
// supersedes this one.
func (m *Manager) StartRefresh(p *Pane) (dir string, gen uint64) {
	p.pendingGen++
	return p.dir, p.pendingGen
}

// ApplyListing installs the result of a listing started with gen. A
// superseded generation is dropped and reported false. Failure
// degrades the pane to an invalid snapshot (entriless, version still
// advancing) and keeps the error readable via Pane.Err.
func (m *Manager) ApplyListing(p *Pane, gen uint64, dir string, entries []entry.Entry, err error) bool {
	if gen != p.pendingGen {
		return false
	}
	if dir != p.dir {
		// The pane navigated away while this listing was in flight.
		return false
	}
	if err != nil {
		logging.Warn("pane %d: listing %s failed: %v", p.ID, dir, err)
		p.lastErr = err
		p.installSnapshot(entry.NewInvalid(dir, m.sort, p.nextVersion()))
		return true
	}
	p.lastErr = nil
	p.installSnapshot(entry.NewSnapshotAt(dir, m.sort, p.nextVersion(), entries))
	return true
}

// Refresh re-lists the pane's directory synchronously, preserving the
// selection by path.
func (m *Manager) Refresh(p *Pane) error {
	dir, gen := m.StartRefresh(p)
	entries, err := m.lister.List(dir, m.showHidden)
	m.ApplyListing(p, gen, dir, entries, err)
	return err
}

// StartNavigate switches the pane to dir, pushing the departed
// directory onto history and truncating any forward entries. If a
// cached snapshot for dir exists it is shown immediately; either way
// the returned generation must be satisfied by a fresh listing fed to
// ApplyListing. Selection and filter are reset: they belong to the
// directory being left.
func (m *Manager) StartNavigate(p *Pane, dir string) (gen uint64) {
	dir = filepath.Clean(dir)
	if dir != p.dir {
		p.history = append(p.history[:p.histIdx+1], dir)
		if len(p.history) > m.historyCap {
			p.history = p.history[len(p.history)-m.historyCap:]
		}
		p.histIdx = len(p.history) - 1
	}
	m.switchTo(p, dir)
	p.pendingGen++
	return p.pendingGen
}

// Navigate is StartNavigate with a synchronous listing.
func (m *Manager) Navigate(p *Pane, dir string) error {
	gen := m.StartNavigate(p, dir)
	entries, err := m.lister.List(p.dir, m.showHidden)
	m.ApplyListing(p, gen, p.dir, entries, err)
	return err
}

// StartBack moves one step back in history. It reports false when no
// earlier directory exists. On success the cached snapshot (if any)
// shows immediately and the returned generation must be satisfied with
// a fresh listing, since the directory may have changed since the last
// visit.
func (m *Manager) StartBack(p *Pane) (gen uint64, ok bool) {
	if !p.CanBack() {
		return 0, false
	}
	p.histIdx--
	m.switchTo(p, p.history[p.histIdx])
	p.pendingGen++
	return p.pendingGen, true
}

// StartForward is StartBack in the other direction.
func (m *Manager) StartForward(p *Pane) (gen uint64, ok bool) {
	if !p.CanForward() {
		return 0, false
	}
	p.histIdx++
	m.switchTo(p, p.history[p.histIdx])
	p.pendingGen++
	return p.pendingGen, true
}

// Back moves back in history with a synchronous re-listing.
func (m *Manager) Back(p *Pane) error {
	gen, ok := m.StartBack(p)
	if !ok {
		return nil
	}
	entries, err := m.lister.List(p.dir, m.showHidden)
	m.ApplyListing(p, gen, p.dir, entries, err)
	return err
}

// Forward moves forward in history with a synchronous re-listing.
func (m *Manager) Forward(p *Pane) error {
	gen, ok := m.StartForward(p)
	if !ok {
		return nil
	}
	entries, err := m.lister.List(p.dir, m.showHidden)
	m.ApplyListing(p, gen, p.dir, entries, err)
	return err
}

// switchTo points the pane at dir, reusing a still-valid cached
// snapshot when one exists so there is something to show before the
// fresh listing lands.
func (m *Manager) switchTo(p *Pane, dir string) {
	p.dir = dir
	p.selection = make(map[string]struct{})
	p.query = ""
	p.lastErr = nil
	if cached, ok := p.cache[dir]; ok && cached.Valid {
		p.installSnapshot(cached)
		return
	}
	p.installSnapshot(entry.NewSnapshot(dir, m.sort, nil))
}

// SetFilter updates the pane's fuzzy query and recomputes the result
// set against the current snapshot.
func (m *Manager) SetFilter(p *Pane, query string) {
	p.query = query
	p.refilter()
}

// List exposes the manager's lister so callers can run listings off
// the owning goroutine (the StartX/ApplyListing pattern).
func (m *Manager) List(dir string) ([]entry.Entry, error) {
	return m.lister.List(dir, m.showHidden)
}

// ApplyEvent reconciles one watcher event into the pane's snapshot.
// Events outside the current directory, or at or before the path's
// last local mutation, are dropped. It reports whether the snapshot
// changed.
func (m *Manager) ApplyEvent(p *Pane, ev watch.Event) bool {
	if p.snap == nil || !watch.DirectlyIn(p.dir, ev.Path) {
		return false
	}
	if p.staleEvent(ev.Path, ev.At) {
		logging.Debug("pane %d: dropping stale event for %s", p.ID, ev.Path)
		return false
	}

	switch ev.Kind {
	case watch.Created, watch.Modified:
		e, err := fsx.Stat(ev.Path)
		if err != nil {
			// Raced with a deletion after the event fired; the path is
			// gone now, so treat it as removed.
			m.evict(p, ev.Path)
		} else {
			p.installSnapshot(p.snap.Upsert(e))
		}
	case watch.Removed, watch.RenamedFrom:
		m.evict(p, ev.Path)
	default:
		return false
	}
	p.markLocal(ev.Path, ev.At)
	return true
}

// ApplyLocal folds a completed operation item into the pane: the
// removed path is evicted, the added path re-stated and upserted, and
// both are stamped so the watcher's echo of this change is dropped.
// Either path may be empty, and paths outside the pane's directory are
// ignored.
// A move or rename within the pane lands as a single snapshot version:
// no intermediate state where the entry exists under neither name.
func (m *Manager) ApplyLocal(p *Pane, removed, added string, at time.Time) {
	if p.snap == nil {
		return
	}
	if removed != "" && !watch.DirectlyIn(p.dir, removed) {
		removed = ""
	}
	if added != "" && !watch.DirectlyIn(p.dir, added) {
		added = ""
	}

	var addedEntry *entry.Entry
	if added != "" {
		if e, err := fsx.Stat(added); err == nil {
			addedEntry = &e
		}
	}

	switch {
	case removed != "" && addedEntry != nil:
		delete(p.selection, removed)
		delete(p.lastLocal, removed)
		p.installSnapshot(p.snap.Rename(removed, *addedEntry))
	case removed != "":
		m.evict(p, removed)
	case addedEntry != nil:
		p.installSnapshot(p.snap.Upsert(*addedEntry))
	}

	if removed != "" {
		p.markLocal(removed, at)
	}
	if added != "" {
		p.markLocal(added, at)
	}
}

func (m *Manager) evict(p *Pane, path string) {
	delete(p.selection, path)
	delete(p.lastLocal, path)
	p.installSnapshot(p.snap.Evict(path))
}
