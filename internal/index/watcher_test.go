package index

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestWatcherReindexesNewFile(t *testing.T) {
	if testing.Short() {
		t.Skip("watcher test sleeps past the debounce window")
	}

	workspace := newTestWorkspace(t)
	m := newTestManager(t, workspace)
	if _, err := m.Build(context.Background(), false); err != nil {
		t.Fatal(err)
	}
	before := m.Stats().TotalFiles

	w, err := NewWatcher(m)
	if err != nil {
		t.Fatal(err)
	}
	if err := w.Start(); err != nil {
		t.Fatal(err)
	}
	defer w.Stop()

	path := filepath.Join(workspace, "extra.go")
	if err := os.WriteFile(path, []byte("package config\n\nfunc Extra() {}\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if m.Stats().TotalFiles > before {
			return
		}
		time.Sleep(100 * time.Millisecond)
	}
	t.Fatalf("watcher did not index the new file; files = %d", m.Stats().TotalFiles)
}

func TestWatcherRemovesDeletedFile(t *testing.T) {
	if testing.Short() {
		t.Skip("watcher test sleeps past the debounce window")
	}

	workspace := newTestWorkspace(t)
	m := newTestManager(t, workspace)
	if _, err := m.Build(context.Background(), false); err != nil {
		t.Fatal(err)
	}
	before := m.Stats().TotalFiles

	w, err := NewWatcher(m)
	if err != nil {
		t.Fatal(err)
	}
	if err := w.Start(); err != nil {
		t.Fatal(err)
	}
	defer w.Stop()

	if err := os.Remove(filepath.Join(workspace, "notes.md")); err != nil {
		t.Fatal(err)
	}

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if m.Stats().TotalFiles < before {
			return
		}
		time.Sleep(100 * time.Millisecond)
	}
	t.Fatalf("watcher did not remove the deleted file; files = %d", m.Stats().TotalFiles)
}
