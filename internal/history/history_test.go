package history

import (
	"encoding/json"
	"testing"
)

func TestRoundTrip(t *testing.T) {
	h := New()
	h.Set("/a/b.pdf", 4)
	h.Set("/c/d.pdf", 0)

	data, err := json.Marshal(h)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var h2 History
	if err := json.Unmarshal(data, &h2); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	for path, page := range h.Pages {
		got, ok := h2.Pages[path]
		if !ok || got != page {
			t.Errorf("round trip lost %q: got (%d,%v), want %d", path, got, ok, page)
		}
	}
}

func TestGetMissing(t *testing.T) {
	h := New()
	if _, ok := h.Get("/nope.pdf"); ok {
		t.Fatal("expected ok=false for unknown path")
	}
}

func TestSetOnZeroValue(t *testing.T) {
	var h History
	h.Set("/a.pdf", 2)
	if got, ok := h.Get("/a.pdf"); !ok || got != 2 {
		t.Fatalf("Set on zero-value History failed: got (%d,%v)", got, ok)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	h := New()
	h.Set("/docs/report.pdf", 7)
	if err := h.Save(); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got, ok := loaded.Get("/docs/report.pdf"); !ok || got != 7 {
		t.Fatalf("loaded history = (%d,%v), want (7,true)", got, ok)
	}
}

func TestLoadMissingFileReturnsEmpty(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	h, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(h.Pages) != 0 {
		t.Fatalf("expected empty history, got %v", h.Pages)
	}
}
