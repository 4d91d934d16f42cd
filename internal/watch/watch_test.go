package watch

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDebouncedReloadFiresOnceAfterBurst(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "doc.pdf")
	if err := os.WriteFile(target, []byte("v1"), 0o644); err != nil {
		t.Fatalf("seed file: %v", err)
	}

	w, events, err := New(target, 30*time.Millisecond)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer w.Close()

	// Burst of writes within the debounce window should coalesce.
	for i := 0; i < 3; i++ {
		if err := os.WriteFile(target, []byte("v2"), 0o644); err != nil {
			t.Fatalf("write: %v", err)
		}
		time.Sleep(5 * time.Millisecond)
	}

	select {
	case ev := <-events:
		if ev.Kind != Reload {
			t.Fatalf("got event kind %v, want Reload", ev.Kind)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for debounced Reload")
	}

	select {
	case ev := <-events:
		t.Fatalf("unexpected extra event %v after single burst", ev)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestDeletedSurfacesImmediately(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "doc.pdf")
	if err := os.WriteFile(target, []byte("v1"), 0o644); err != nil {
		t.Fatalf("seed file: %v", err)
	}

	w, events, err := New(target, 200*time.Millisecond)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer w.Close()

	if err := os.Remove(target); err != nil {
		t.Fatalf("remove: %v", err)
	}

	select {
	case ev := <-events:
		if ev.Kind != Deleted {
			t.Fatalf("got event kind %v, want Deleted", ev.Kind)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for Deleted event")
	}
}

func TestUnrelatedFileIgnored(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "doc.pdf")
	other := filepath.Join(dir, "other.txt")
	if err := os.WriteFile(target, []byte("v1"), 0o644); err != nil {
		t.Fatalf("seed file: %v", err)
	}

	w, events, err := New(target, 30*time.Millisecond)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer w.Close()

	if err := os.WriteFile(other, []byte("irrelevant"), 0o644); err != nil {
		t.Fatalf("write other: %v", err)
	}

	select {
	case ev := <-events:
		t.Fatalf("unexpected event %v for unrelated file", ev)
	case <-time.After(200 * time.Millisecond):
	}
}
