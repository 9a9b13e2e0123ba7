package state

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/LFroesch/voyager/internal/entry"
	"github.com/LFroesch/voyager/internal/fileops"
	"github.com/LFroesch/voyager/internal/watch"
)

func writeFiles(t *testing.T, dir string, names ...string) {
	t.Helper()
	for _, n := range names {
		if err := os.WriteFile(filepath.Join(dir, n), []byte(n), 0644); err != nil {
			t.Fatalf("write %s: %v", n, err)
		}
	}
}

func names(p *Pane) []string {
	return p.Snapshot().Names()
}

func TestOpenListsDirectory(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, "b.txt", "a.txt")

	m := NewManager(Options{})
	p, err := m.Open(dir)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}

	got := names(p)
	if len(got) != 2 || got[0] != "a.txt" || got[1] != "b.txt" {
		t.Errorf("entries = %v", got)
	}
	if p.Snapshot().Version != 1 {
		t.Errorf("fresh snapshot version = %d", p.Snapshot().Version)
	}
	if len(p.Results()) != 2 {
		t.Errorf("empty query should pass all entries, got %d", len(p.Results()))
	}
}

func TestOpenMissingDirectory(t *testing.T) {
	m := NewManager(Options{})
	if _, err := m.Open(filepath.Join(t.TempDir(), "nope")); !errors.Is(err, fileops.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestRefreshPreservesSelectionByPath(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, "a.txt", "b.txt")

	m := NewManager(Options{})
	p, err := m.Open(dir)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	keep := filepath.Join(dir, "a.txt")
	gone := filepath.Join(dir, "b.txt")
	p.Select(keep)
	p.Select(gone)

	if err := os.Remove(gone); err != nil {
		t.Fatal(err)
	}
	writeFiles(t, dir, "c.txt")

	v := p.Snapshot().Version
	if err := m.Refresh(p); err != nil {
		t.Fatalf("Refresh failed: %v", err)
	}

	if p.Snapshot().Version != v+1 {
		t.Errorf("version = %d, want %d", p.Snapshot().Version, v+1)
	}
	sel := p.Selection()
	if len(sel) != 1 || sel[0] != keep {
		t.Errorf("selection = %v, want just %s", sel, keep)
	}
}

func TestNavigateHistoryAndBackForward(t *testing.T) {
	root := t.TempDir()
	sub := filepath.Join(root, "sub")
	if err := os.Mkdir(sub, 0755); err != nil {
		t.Fatal(err)
	}
	writeFiles(t, root, "top.txt")
	writeFiles(t, sub, "inner.txt")

	m := NewManager(Options{})
	p, err := m.Open(root)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}

	if err := m.Navigate(p, sub); err != nil {
		t.Fatalf("Navigate failed: %v", err)
	}
	if p.Dir() != sub || !p.Snapshot().Contains(filepath.Join(sub, "inner.txt")) {
		t.Fatalf("navigate did not land in %s", sub)
	}
	if !p.CanBack() || p.CanForward() {
		t.Error("history state after navigate wrong")
	}

	if err := m.Back(p); err != nil {
		t.Fatalf("Back failed: %v", err)
	}
	if p.Dir() != root {
		t.Errorf("back landed in %s", p.Dir())
	}
	if !p.CanForward() {
		t.Error("forward unavailable after back")
	}

	if err := m.Forward(p); err != nil {
		t.Fatalf("Forward failed: %v", err)
	}
	if p.Dir() != sub {
		t.Errorf("forward landed in %s", p.Dir())
	}
}

func TestNavigateTruncatesForwardHistory(t *testing.T) {
	root := t.TempDir()
	a := filepath.Join(root, "a")
	b := filepath.Join(root, "b")
	for _, d := range []string{a, b} {
		if err := os.Mkdir(d, 0755); err != nil {
			t.Fatal(err)
		}
	}

	m := NewManager(Options{})
	p, err := m.Open(root)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if err := m.Navigate(p, a); err != nil {
		t.Fatal(err)
	}
	if err := m.Back(p); err != nil {
		t.Fatal(err)
	}
	if err := m.Navigate(p, b); err != nil {
		t.Fatal(err)
	}

	if p.CanForward() {
		t.Error("forward history survived a fresh navigate")
	}
	hist, idx := p.History()
	if len(hist) != 2 || hist[idx] != b {
		t.Errorf("history = %v idx %d", hist, idx)
	}
}

func TestSupersededListingDropped(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, "a.txt")

	m := NewManager(Options{})
	p, err := m.Open(dir)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}

	// Two refreshes race; the older generation must lose even when its
	// result arrives last.
	d1, gen1 := m.StartRefresh(p)
	_, gen2 := m.StartRefresh(p)

	fresh, err := m.List(d1)
	if err != nil {
		t.Fatal(err)
	}
	if m.ApplyListing(p, gen2, d1, fresh, nil) != true {
		t.Error("latest generation was not applied")
	}
	v := p.Snapshot().Version
	if m.ApplyListing(p, gen1, d1, nil, nil) {
		t.Error("stale generation was applied")
	}
	if p.Snapshot().Version != v {
		t.Error("stale listing changed the snapshot")
	}
}

func TestListingFailureDegradesPane(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, "a.txt")

	m := NewManager(Options{})
	p, err := m.Open(dir)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}

	d, gen := m.StartRefresh(p)
	m.ApplyListing(p, gen, d, nil, fileops.ErrPermissionDenied)

	snap := p.Snapshot()
	if snap.Valid {
		t.Error("snapshot still valid after failed listing")
	}
	if snap.Len() != 0 {
		t.Error("degraded snapshot kept entries")
	}
	if snap.Version != 2 {
		t.Errorf("degraded snapshot version = %d", snap.Version)
	}
	if !errors.Is(p.Err(), fileops.ErrPermissionDenied) {
		t.Errorf("pane error = %v", p.Err())
	}

	// Recovery: the next good listing restores validity.
	if err := m.Refresh(p); err != nil {
		t.Fatalf("Refresh failed: %v", err)
	}
	if !p.Snapshot().Valid || p.Err() != nil {
		t.Error("pane did not recover after a good listing")
	}
}

func TestApplyEventCreatedModifiedRemoved(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, "a.txt")

	m := NewManager(Options{})
	p, err := m.Open(dir)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}

	// Created: file appears on disk, event upserts it.
	newPath := filepath.Join(dir, "new.txt")
	writeFiles(t, dir, "new.txt")
	if !m.ApplyEvent(p, watch.Event{Path: newPath, Kind: watch.Created, At: time.Now()}) {
		t.Fatal("created event not applied")
	}
	if !p.Snapshot().Contains(newPath) {
		t.Error("created entry missing from snapshot")
	}

	// Modified: metadata refreshes in place.
	if err := os.WriteFile(newPath, []byte("longer content"), 0644); err != nil {
		t.Fatal(err)
	}
	m.ApplyEvent(p, watch.Event{Path: newPath, Kind: watch.Modified, At: time.Now()})
	e, _ := p.Snapshot().Lookup(newPath)
	if e.Size != int64(len("longer content")) {
		t.Errorf("modified entry size = %d", e.Size)
	}

	// Removed: entry evicted and deselected.
	p.Select(newPath)
	if err := os.Remove(newPath); err != nil {
		t.Fatal(err)
	}
	m.ApplyEvent(p, watch.Event{Path: newPath, Kind: watch.Removed, At: time.Now()})
	if p.Snapshot().Contains(newPath) {
		t.Error("removed entry still in snapshot")
	}
	if p.Selected(newPath) {
		t.Error("removed entry still selected")
	}
}

func TestRemovedThenCreatedYieldsSingleFreshEntry(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, "a.txt")
	path := filepath.Join(dir, "a.txt")

	m := NewManager(Options{})
	p, err := m.Open(dir)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}

	m.ApplyEvent(p, watch.Event{Path: path, Kind: watch.Removed, At: time.Now()})
	if err := os.WriteFile(path, []byte("rewritten!"), 0644); err != nil {
		t.Fatal(err)
	}
	m.ApplyEvent(p, watch.Event{Path: path, Kind: watch.Created, At: time.Now()})

	count := 0
	for _, e := range p.Snapshot().Entries() {
		if e.Path == path {
			count++
			if e.Size != int64(len("rewritten!")) {
				t.Errorf("entry carries stale metadata, size = %d", e.Size)
			}
		}
	}
	if count != 1 {
		t.Errorf("found %d entries for %s", count, path)
	}
}

func TestStaleEventDropped(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, "a.txt")
	path := filepath.Join(dir, "a.txt")

	m := NewManager(Options{})
	p, err := m.Open(dir)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}

	// A local delete applied at time T; the watcher's echo observed at
	// or before T must not resurrect the entry.
	at := time.Now()
	if err := os.Remove(path); err != nil {
		t.Fatal(err)
	}
	m.ApplyLocal(p, path, "", at)
	if p.Snapshot().Contains(path) {
		t.Fatal("local eviction did not apply")
	}

	if m.ApplyEvent(p, watch.Event{Path: path, Kind: watch.Created, At: at}) {
		t.Error("stale echo was applied")
	}
	if m.ApplyEvent(p, watch.Event{Path: path, Kind: watch.Created, At: at.Add(-time.Second)}) {
		t.Error("older event was applied")
	}
	// Later events win again.
	writeFiles(t, dir, "a.txt")
	if !m.ApplyEvent(p, watch.Event{Path: path, Kind: watch.Created, At: at.Add(time.Second)}) {
		t.Error("newer event was dropped")
	}
}

func TestEventOutsidePaneIgnored(t *testing.T) {
	dir := t.TempDir()
	other := t.TempDir()
	writeFiles(t, other, "x.txt")

	m := NewManager(Options{})
	p, err := m.Open(dir)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if m.ApplyEvent(p, watch.Event{Path: filepath.Join(other, "x.txt"), Kind: watch.Created, At: time.Now()}) {
		t.Error("event for a foreign directory was applied")
	}
}

func TestCreatedEventForVanishedPathEvicts(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, "a.txt")
	path := filepath.Join(dir, "a.txt")

	m := NewManager(Options{})
	p, err := m.Open(dir)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}

	// The path is gone by the time the event is processed; the failed
	// re-stat downgrades it to a removal.
	if err := os.Remove(path); err != nil {
		t.Fatal(err)
	}
	m.ApplyEvent(p, watch.Event{Path: path, Kind: watch.Modified, At: time.Now()})
	if p.Snapshot().Contains(path) {
		t.Error("vanished path survived reconciliation")
	}
}

func TestSetFilterRecomputedOnSnapshotChange(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, "main.go", "main_test.go", "readme.md")

	m := NewManager(Options{})
	p, err := m.Open(dir)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}

	m.SetFilter(p, "main")
	if len(p.Results()) != 2 {
		t.Fatalf("filter results = %d, want 2", len(p.Results()))
	}

	// A new matching file shows up in the filtered view after its event.
	writeFiles(t, dir, "domain.txt")
	m.ApplyEvent(p, watch.Event{Path: filepath.Join(dir, "domain.txt"), Kind: watch.Created, At: time.Now()})
	if len(p.Results()) != 3 {
		t.Errorf("filter results after event = %d, want 3", len(p.Results()))
	}
}

func TestBackReusesCachedSnapshot(t *testing.T) {
	root := t.TempDir()
	sub := filepath.Join(root, "sub")
	if err := os.Mkdir(sub, 0755); err != nil {
		t.Fatal(err)
	}
	writeFiles(t, root, "top.txt")

	m := NewManager(Options{})
	p, err := m.Open(root)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if err := m.Navigate(p, sub); err != nil {
		t.Fatal(err)
	}

	// Going back shows the cached listing immediately, before the fresh
	// listing is applied.
	gen, ok := m.StartBack(p)
	if !ok {
		t.Fatal("StartBack refused")
	}
	if p.Dir() != root {
		t.Fatalf("back landed in %s", p.Dir())
	}
	if !p.Snapshot().Contains(filepath.Join(root, "top.txt")) {
		t.Error("cached snapshot not reused")
	}

	// The directory changed while away; the fresh listing reconciles.
	writeFiles(t, root, "fresh.txt")
	entries, err := m.List(root)
	if err != nil {
		t.Fatal(err)
	}
	m.ApplyListing(p, gen, root, entries, nil)
	if !p.Snapshot().Contains(filepath.Join(root, "fresh.txt")) {
		t.Error("async re-listing not applied")
	}
}

func TestApplyLocalRenameIsOneVersion(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, "old.txt")
	oldPath := filepath.Join(dir, "old.txt")
	newPath := filepath.Join(dir, "new.txt")

	m := NewManager(Options{})
	p, err := m.Open(dir)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	p.Select(oldPath)

	if err := os.Rename(oldPath, newPath); err != nil {
		t.Fatal(err)
	}
	v := p.Snapshot().Version
	m.ApplyLocal(p, oldPath, newPath, time.Now())

	snap := p.Snapshot()
	if snap.Version != v+1 {
		t.Errorf("rename took %d versions, want 1", snap.Version-v)
	}
	if snap.Contains(oldPath) || !snap.Contains(newPath) {
		t.Errorf("entries = %v", snap.Names())
	}
	if p.Selected(oldPath) {
		t.Error("departed path still selected")
	}
}

func TestBackSkipsInvalidCachedSnapshot(t *testing.T) {
	root := t.TempDir()
	sub := filepath.Join(root, "sub")
	if err := os.Mkdir(sub, 0755); err != nil {
		t.Fatal(err)
	}

	m := NewManager(Options{})
	p, err := m.Open(root)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}

	// The pane degrades at root, then navigates away; the invalid
	// snapshot sits in the cache.
	d, gen := m.StartRefresh(p)
	m.ApplyListing(p, gen, d, nil, fileops.ErrPermissionDenied)
	if p.Snapshot().Valid {
		t.Fatal("degrade did not apply")
	}
	if err := m.Navigate(p, sub); err != nil {
		t.Fatal(err)
	}

	// Going back must not resurface the degraded snapshot.
	if _, ok := m.StartBack(p); !ok {
		t.Fatal("StartBack refused")
	}
	if !p.Snapshot().Valid {
		t.Error("invalid cached snapshot was reused")
	}
	if p.Snapshot().Len() != 0 {
		t.Errorf("placeholder not empty: %v", names(p))
	}
}

func TestSetSortReordersPanes(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "big.txt"), make([]byte, 1000), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "a.txt"), []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}

	m := NewManager(Options{Sort: entry.SortByName})
	p, err := m.Open(dir)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if names(p)[0] != "a.txt" {
		t.Fatalf("name order wrong: %v", names(p))
	}

	m.SetSort(entry.SortBySize)
	if names(p)[0] != "big.txt" {
		t.Errorf("size order wrong: %v", names(p))
	}
}

func TestShowHiddenToggle(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, "visible.txt", ".hidden")

	m := NewManager(Options{})
	p, err := m.Open(dir)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if p.Snapshot().Len() != 1 {
		t.Fatalf("hidden entry listed by default: %v", names(p))
	}

	m.SetShowHidden(true)
	if err := m.Refresh(p); err != nil {
		t.Fatal(err)
	}
	if p.Snapshot().Len() != 2 {
		t.Errorf("hidden entry missing after toggle: %v", names(p))
	}
}
