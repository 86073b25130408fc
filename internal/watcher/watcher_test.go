package watcher

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestWatcher_BuildSnapshot(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "foo.ts"), "export const x = 1;")
	writeFile(t, filepath.Join(dir, "bar.txt"), "not ts")

	w := New([]string{dir}, Options{}, nil)
	snap := w.buildSnapshot()

	if len(snap) != 1 {
		t.Fatalf("expected 1 file in snapshot, got %d", len(snap))
	}
	if _, ok := snap[filepath.Join(dir, "foo.ts")]; !ok {
		t.Fatalf("expected foo.ts in snapshot, got %v", snap)
	}
}

func TestWatcher_BuildSnapshot_Extensions(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"a.ts", "b.tsx", "c.mts", "d.cts", "e.js", "sub/f.ts"} {
		writeFile(t, filepath.Join(dir, name), name)
	}

	snap := New([]string{dir}, Options{}, nil).buildSnapshot()
	if len(snap) != 5 {
		t.Fatalf("expected 5 files in snapshot, got %d", len(snap))
	}

	snap = New([]string{dir}, Options{Extensions: []string{".tsx"}}, nil).buildSnapshot()
	if len(snap) != 1 {
		t.Fatalf("expected 1 file with custom extensions, got %d", len(snap))
	}
}

func TestWatcher_BuildSnapshot_SkipsDirs(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "src", "a.ts"), "a")
	writeFile(t, filepath.Join(dir, "node_modules", "pkg", "index.d.ts"), "b")
	writeFile(t, filepath.Join(dir, "dist", "a.d.ts"), "c")

	w := New([]string{dir}, Options{SkipPaths: []string{filepath.Join(dir, "dist")}}, nil)
	snap := w.buildSnapshot()
	if len(snap) != 1 {
		t.Fatalf("expected only src/a.ts, got %v", snap)
	}
}

func TestWatcher_BuildSnapshot_Files(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "src", "a.ts"), "a")
	writeFile(t, filepath.Join(dir, "tsconfig.json"), "{}")
	writeFile(t, filepath.Join(dir, "other.json"), "{}")
	config := filepath.Join(dir, "tsmaterialise.config.yaml")

	w := New([]string{filepath.Join(dir, "src")}, Options{
		Files: []string{filepath.Join(dir, "tsconfig.json"), config},
	}, nil)
	before := w.buildSnapshot()
	if len(before) != 2 {
		t.Fatalf("expected a.ts and tsconfig.json, got %v", before)
	}

	writeFile(t, config, "marker: __m")
	events := w.diff(before, w.buildSnapshot())
	if len(events) != 1 || events[0] != (Event{Path: config, Op: "create"}) {
		t.Errorf("events = %v, want create of %s", events, config)
	}
}

func TestWatcher_Diff(t *testing.T) {
	w := &Watcher{}
	now := time.Now()
	old := map[string]fileInfo{
		"/a.ts": {modTime: now, size: 10},
		"/b.ts": {modTime: now, size: 20},
		"/d.ts": {modTime: now, size: 1},
	}
	next := map[string]fileInfo{
		"/a.ts": {modTime: now.Add(time.Second), size: 15},
		"/c.ts": {modTime: now, size: 30},
		"/d.ts": {modTime: now, size: 1},
	}
	events := w.diff(old, next)
	want := []Event{
		{Path: "/a.ts", Op: "write"},
		{Path: "/b.ts", Op: "remove"},
		{Path: "/c.ts", Op: "create"},
	}
	if len(events) != len(want) {
		t.Fatalf("got %v, want %v", events, want)
	}
	for i := range want {
		if events[i] != want[i] {
			t.Errorf("event %d = %v, want %v", i, events[i], want[i])
		}
	}
}

func TestWatcher_Diff_NoChange(t *testing.T) {
	w := &Watcher{}
	snap := map[string]fileInfo{"/a.ts": {modTime: time.Now(), size: 10}}
	if events := w.diff(snap, snap); len(events) != 0 {
		t.Errorf("expected 0 events, got %v", events)
	}
}

func TestWatcher_WatchDeliversBatch(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a.ts"), "a")

	batches := make(chan []Event, 4)
	w := New([]string{dir}, Options{
		PollInterval: 10 * time.Millisecond,
		Debounce:     30 * time.Millisecond,
	}, func(events []Event) { batches <- events })

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Watch(ctx) }()

	// Give the watcher time to take its first snapshot.
	time.Sleep(50 * time.Millisecond)
	writeFile(t, filepath.Join(dir, "b.ts"), "b")

	select {
	case events := <-batches:
		found := false
		for _, e := range events {
			if e.Path == filepath.Join(dir, "b.ts") && e.Op == "create" {
				found = true
			}
		}
		if !found {
			t.Errorf("batch %v has no create event for b.ts", events)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("no change delivered")
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Watch() = %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Watch did not return after cancel")
	}
}
