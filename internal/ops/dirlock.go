package ops

import "sync"

// dirLocks serializes suboperations per destination directory in
// submission order. Tickets are taken synchronously at submit time, so
// two batches targeting the same directory run their items in the
// order they were submitted even though workers pick them up
// concurrently.
type dirLocks struct {
	mu    sync.Mutex
	tails map[string]chan struct{}
}

func newDirLocks() *dirLocks {
	return &dirLocks{tails: make(map[string]chan struct{})}
}

// ticket reserves a position in dir's queue. The returned wait channel
// is closed when every earlier ticket for dir has released; release
// hands the queue to the next waiter.
func (d *dirLocks) ticket(dir string) (wait <-chan struct{}, release func()) {
	d.mu.Lock()
	prev := d.tails[dir]
	done := make(chan struct{})
	d.tails[dir] = done
	d.mu.Unlock()

	if prev == nil {
		closed := make(chan struct{})
		close(closed)
		prev = closed
	}

	var once sync.Once
	release = func() {
		once.Do(func() {
			close(done)
			d.mu.Lock()
			if d.tails[dir] == done {
				delete(d.tails, dir)
			}
			d.mu.Unlock()
		})
	}
	return prev, release
}
