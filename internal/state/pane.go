package state

import (
	"sort"
	"time"

	"github.com/LFroesch/voyager/internal/entry"
	"github.com/LFroesch/voyager/internal/filter"
)

// Pane is one navigable view: a directory, its current snapshot, the
// visit history, the selection, and the active filter. A pane is owned
// by a single goroutine (the engine loop); it has no internal locking.
type Pane struct {
	ID uint64

	dir     string
	snap    *entry.Snapshot
	lastErr error // listing error behind an invalid snapshot

	history []string
	histIdx int

	selection map[string]struct{}
	query     string
	results   []filter.Result

	// lastLocal records the most recent local mutation (or applied
	// watcher event) per path; older watcher events are dropped.
	lastLocal map[string]time.Time

	// cache keeps the last snapshot seen for each visited directory so
	// back/forward can show something immediately while a fresh
	// listing is in flight.
	cache map[string]*entry.Snapshot

	// pendingGen supersedes in-flight listings: only the result
	// carrying the latest generation is applied.
	pendingGen uint64
}

// Dir returns the pane's current directory.
func (p *Pane) Dir() string { return p.dir }

// Snapshot returns the current snapshot. Nil only before the first
// listing has been applied.
func (p *Pane) Snapshot() *entry.Snapshot { return p.snap }

// Err returns the listing error that invalidated the current snapshot,
// or nil if the snapshot is valid.
func (p *Pane) Err() error { return p.lastErr }

// Query returns the active filter query.
func (p *Pane) Query() string { return p.query }

// Results returns the filtered view of the snapshot for the active
// query, best score first. With an empty query this is the full
// snapshot in its sort order.
func (p *Pane) Results() []filter.Result { return p.results }

// CanBack reports whether history holds an earlier directory.
func (p *Pane) CanBack() bool { return p.histIdx > 0 }

// CanForward reports whether history holds a later directory.
func (p *Pane) CanForward() bool { return p.histIdx < len(p.history)-1 }

// History returns the visit history and the current position in it.
func (p *Pane) History() ([]string, int) {
	out := make([]string, len(p.history))
	copy(out, p.history)
	return out, p.histIdx
}

// Selection returns the selected paths in sorted order. The selection
// may reference paths no longer present in the snapshot until the next
// listing reconciles them away.
func (p *Pane) Selection() []string {
	out := make([]string, 0, len(p.selection))
	for path := range p.selection {
		out = append(out, path)
	}
	sort.Strings(out)
	return out
}

// Selected reports whether path is selected.
func (p *Pane) Selected(path string) bool {
	_, ok := p.selection[path]
	return ok
}

// Select adds path to the selection.
func (p *Pane) Select(path string) {
	p.selection[path] = struct{}{}
}

// Deselect removes path from the selection.
func (p *Pane) Deselect(path string) {
	delete(p.selection, path)
}

// ToggleSelect flips path's membership in the selection.
func (p *Pane) ToggleSelect(path string) {
	if p.Selected(path) {
		p.Deselect(path)
	} else {
		p.Select(path)
	}
}

// ClearSelection empties the selection.
func (p *Pane) ClearSelection() {
	p.selection = make(map[string]struct{})
}

// markLocal stamps a path so watcher events observed at or before t
// are recognized as stale echoes of a change this process already
// applied.
func (p *Pane) markLocal(path string, t time.Time) {
	if last, ok := p.lastLocal[path]; !ok || t.After(last) {
		p.lastLocal[path] = t
	}
}

// staleEvent reports whether an event for path observed at t predates
// (or equals) the last locally applied change.
func (p *Pane) staleEvent(path string, t time.Time) bool {
	last, ok := p.lastLocal[path]
	return ok && !t.After(last)
}

// installSnapshot replaces the pane's snapshot, pruning the selection
// to surviving paths and re-running the filter. Entries shift position
// between versions, so everything derived is recomputed by path.
func (p *Pane) installSnapshot(snap *entry.Snapshot) {
	p.snap = snap
	p.cache[snap.Dir] = snap

	for path := range p.selection {
		if !snap.Contains(path) {
			delete(p.selection, path)
		}
	}
	p.refilter()
}

// refilter recomputes the filter results from the current snapshot.
func (p *Pane) refilter() {
	if p.snap == nil {
		p.results = nil
		return
	}
	names := p.snap.Names()
	paths := make([]string, p.snap.Len())
	for i := 0; i < p.snap.Len(); i++ {
		paths[i] = p.snap.At(i).Path
	}
	p.results = filter.Filter(p.query, names, paths)
}

// nextVersion returns the version a snapshot superseding the current
// one should carry.
func (p *Pane) nextVersion() uint64 {
	if p.snap == nil {
		return 1
	}
	return p.snap.Version + 1
}
