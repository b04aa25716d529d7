package vaultfs

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestWatcherEmitsWriteEvent(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "alice.md")
	if err := os.WriteFile(path, []byte("# Alice\n"), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}

	w, err := NewWatcher(root, 30*time.Millisecond)
	if err != nil {
		t.Fatalf("new watcher: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	w.Start(ctx)
	defer w.Stop()

	if err := os.WriteFile(path, []byte("# Alice\n\nUpdated.\n"), 0644); err != nil {
		t.Fatalf("rewrite: %v", err)
	}

	select {
	case ev := <-w.Changes:
		if ev.Path != path {
			t.Fatalf("event path = %s, want %s", ev.Path, path)
		}
		if ev.Kind != EventWrite {
			t.Fatalf("event kind = %s, want write", ev.Kind)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for write event")
	}
}

func TestWatcherIgnoresNonMarkdown(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "notes.txt")
	if err := os.WriteFile(path, []byte("plain"), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}

	w, err := NewWatcher(root, 30*time.Millisecond)
	if err != nil {
		t.Fatalf("new watcher: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	w.Start(ctx)
	defer w.Stop()

	if err := os.WriteFile(path, []byte("plain updated"), 0644); err != nil {
		t.Fatalf("rewrite: %v", err)
	}

	select {
	case ev := <-w.Changes:
		t.Fatalf("expected no event for non-markdown file, got %v", ev)
	case <-time.After(200 * time.Millisecond):
	}
}
