package entry

import "sort"

// Snapshot is an immutable, versioned listing of one directory.
// Mutating operations return a new Snapshot with Version+1; the receiver
// is never changed, so a snapshot handed to a caller stays stable.
type Snapshot struct {
	Dir     string
	Version uint64
	Sort    SortMode
	Valid   bool // cleared when the backing listing failed or is stale

	entries []Entry
	byPath  map[string]int
}

// NewSnapshot builds version-1 snapshot for dir from a fresh listing.
// Entries are deduplicated by path (last one wins) and sorted per mode.
func NewSnapshot(dir string, mode SortMode, entries []Entry) *Snapshot {
	return rebuild(dir, mode, 1, entries)
}

// NewSnapshotAt is NewSnapshot with an explicit starting version, used
// when a fresh listing supersedes an existing snapshot and must carry
// its version sequence forward.
func NewSnapshotAt(dir string, mode SortMode, version uint64, entries []Entry) *Snapshot {
	return rebuild(dir, mode, version, entries)
}

// NewInvalid returns an empty snapshot with the validity flag cleared,
// used when a directory cannot be listed. Version continues from the
// superseded snapshot so consumers still observe forward progress.
func NewInvalid(dir string, mode SortMode, version uint64) *Snapshot {
	s := rebuild(dir, mode, version, nil)
	s.Valid = false
	return s
}

func rebuild(dir string, mode SortMode, version uint64, entries []Entry) *Snapshot {
	// Dedupe by path, keeping the most recently supplied entry.
	byPath := make(map[string]int, len(entries))
	deduped := make([]Entry, 0, len(entries))
	for _, e := range entries {
		e.Generation = version
		if i, ok := byPath[e.Path]; ok {
			deduped[i] = e
			continue
		}
		byPath[e.Path] = len(deduped)
		deduped = append(deduped, e)
	}

	sort.SliceStable(deduped, func(i, j int) bool {
		return Less(mode, deduped[i], deduped[j])
	})
	for i, e := range deduped {
		byPath[e.Path] = i
	}

	return &Snapshot{
		Dir:     dir,
		Version: version,
		Sort:    mode,
		Valid:   true,
		entries: deduped,
		byPath:  byPath,
	}
}

// Len returns the number of entries.
func (s *Snapshot) Len() int {
	return len(s.entries)
}

// At returns the entry at index i in sorted order.
func (s *Snapshot) At(i int) Entry {
	return s.entries[i]
}

// Entries returns the sorted entries. Callers must not modify the
// returned slice.
func (s *Snapshot) Entries() []Entry {
	return s.entries
}

// Lookup finds an entry by absolute path.
func (s *Snapshot) Lookup(path string) (Entry, bool) {
	i, ok := s.byPath[path]
	if !ok {
		return Entry{}, false
	}
	return s.entries[i], true
}

// Contains reports whether a path is present.
func (s *Snapshot) Contains(path string) bool {
	_, ok := s.byPath[path]
	return ok
}

// Names returns the flat display-name list in snapshot order, the
// input shape the fuzzy filter operates on.
func (s *Snapshot) Names() []string {
	names := make([]string, len(s.entries))
	for i, e := range s.entries {
		names[i] = e.Name
	}
	return names
}

// Upsert returns a new snapshot with e inserted, or replaced if an
// entry with the same path already exists.
func (s *Snapshot) Upsert(e Entry) *Snapshot {
	next := s.clone()
	next.upsertInPlace(e)
	return next
}

// Evict returns a new snapshot without the entry at path. Evicting an
// absent path still produces a new version so consumers observe the
// reconciliation pass.
func (s *Snapshot) Evict(path string) *Snapshot {
	next := s.clone()
	next.evictInPlace(path)
	return next
}

// Rename applies an evict+upsert pair atomically: the old path is gone
// and the new entry is present in the same returned snapshot.
func (s *Snapshot) Rename(oldPath string, e Entry) *Snapshot {
	next := s.clone()
	next.evictInPlace(oldPath)
	next.upsertInPlace(e)
	return next
}

// Resorted returns a new snapshot ordered by mode.
func (s *Snapshot) Resorted(mode SortMode) *Snapshot {
	return rebuild(s.Dir, mode, s.Version+1, s.entries)
}

// Invalidated returns a copy with the validity flag cleared. The
// entries are retained so the caller can keep showing something until
// the next refresh supersedes it.
func (s *Snapshot) Invalidated() *Snapshot {
	next := s.clone()
	next.Valid = false
	return next
}

func (s *Snapshot) clone() *Snapshot {
	entries := make([]Entry, len(s.entries))
	copy(entries, s.entries)
	byPath := make(map[string]int, len(s.byPath))
	for k, v := range s.byPath {
		byPath[k] = v
	}
	return &Snapshot{
		Dir:     s.Dir,
		Version: s.Version + 1,
		Sort:    s.Sort,
		Valid:   s.Valid,
		entries: entries,
		byPath:  byPath,
	}
}

func (s *Snapshot) upsertInPlace(e Entry) {
	e.Generation = s.Version
	if i, ok := s.byPath[e.Path]; ok {
		s.entries[i] = e
		// Metadata changes can move the entry under size/date order.
		s.resortInPlace()
		return
	}
	i := sort.Search(len(s.entries), func(i int) bool {
		return Less(s.Sort, e, s.entries[i])
	})
	s.entries = append(s.entries, Entry{})
	copy(s.entries[i+1:], s.entries[i:])
	s.entries[i] = e
	s.reindexFrom(i)
}

func (s *Snapshot) evictInPlace(path string) {
	i, ok := s.byPath[path]
	if !ok {
		return
	}
	s.entries = append(s.entries[:i], s.entries[i+1:]...)
	delete(s.byPath, path)
	s.reindexFrom(i)
}

func (s *Snapshot) resortInPlace() {
	sort.SliceStable(s.entries, func(i, j int) bool {
		return Less(s.Sort, s.entries[i], s.entries[j])
	})
	s.reindexFrom(0)
}

func (s *Snapshot) reindexFrom(i int) {
	for ; i < len(s.entries); i++ {
		s.byPath[s.entries[i].Path] = i
	}
}
