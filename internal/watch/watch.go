// Package watch wraps fsnotify into the normalized change-event stream
// consumed by the state manager. The watcher carries no business state:
// it only translates OS notifications, stamps them with an observation
// time and forwards them. Reconciliation ordering is the state
// manager's job.
package watch

import (
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/LFroesch/voyager/internal/logging"
)

// Kind is the normalized event kind. fsnotify reports a rename as a
// Rename op on the old path plus a Create op on the new path, so the
// renamed-to half of a rename arrives here as Created.
type Kind int

const (
	Created Kind = iota
	Modified
	Removed
	RenamedFrom
)

// String returns the string representation of the event kind.
func (k Kind) String() string {
	switch k {
	case Created:
		return "created"
	case Modified:
		return "modified"
	case Removed:
		return "removed"
	case RenamedFrom:
		return "renamed-from"
	default:
		return "unknown"
	}
}

// Event is one normalized filesystem notification. Delivery is
// at-least-once and may race in-flight operations.
type Event struct {
	Path string
	Kind Kind
	At   time.Time
}

// Watcher is the process-wide filesystem subscription. Directories are
// added and removed as panes navigate; all events funnel into a single
// channel.
type Watcher struct {
	fw     *fsnotify.Watcher
	events chan Event
	errs   chan error

	closeOnce sync.Once
	done      chan struct{}
}

// New starts the watcher and its forwarding goroutine.
func New() (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	w := &Watcher{
		fw:     fw,
		events: make(chan Event, 256),
		errs:   make(chan error, 8),
		done:   make(chan struct{}),
	}
	go w.run()
	return w, nil
}

// Events returns the normalized event stream.
func (w *Watcher) Events() <-chan Event {
	return w.events
}

// Errors returns watcher-level errors (overflow, lost watches).
func (w *Watcher) Errors() <-chan error {
	return w.errs
}

// Watch starts watching a directory.
func (w *Watcher) Watch(dir string) error {
	return w.fw.Add(dir)
}

// Unwatch stops watching a directory. Unwatching a directory that is
// not watched (or was deleted out from under us) is not an error.
func (w *Watcher) Unwatch(dir string) {
	if err := w.fw.Remove(dir); err != nil {
		logging.Debug("unwatch %s: %v", dir, err)
	}
}

// Close tears down the watcher and closes the event stream.
func (w *Watcher) Close() error {
	var err error
	w.closeOnce.Do(func() {
		close(w.done)
		err = w.fw.Close()
	})
	return err
}

func (w *Watcher) run() {
	defer close(w.events)
	for {
		select {
		case <-w.done:
			return
		case ev, ok := <-w.fw.Events:
			if !ok {
				return
			}
			kind, keep := Normalize(ev.Op)
			if !keep {
				continue
			}
			select {
			case w.events <- Event{Path: ev.Name, Kind: kind, At: time.Now()}:
			case <-w.done:
				return
			}
		case err, ok := <-w.fw.Errors:
			if !ok {
				return
			}
			select {
			case w.errs <- err:
			default:
				// Error channel full; drop rather than stall delivery.
				logging.Warn("watcher error dropped: %v", err)
			}
		}
	}
}

// Normalize maps an fsnotify op bitmask to an event kind. Remove and
// Rename win over other bits set in the same op; Chmod is folded into
// Modified since permission bits are part of entry metadata.
func Normalize(op fsnotify.Op) (Kind, bool) {
	switch {
	case op.Has(fsnotify.Remove):
		return Removed, true
	case op.Has(fsnotify.Rename):
		return RenamedFrom, true
	case op.Has(fsnotify.Create):
		return Created, true
	case op.Has(fsnotify.Write), op.Has(fsnotify.Chmod):
		return Modified, true
	default:
		return 0, false
	}
}

// DirectlyIn reports whether path is an immediate child of dir, the
// containment check used to route events to open panes.
func DirectlyIn(dir, path string) bool {
	return filepath.Dir(path) == filepath.Clean(dir)
}
