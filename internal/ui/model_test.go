package ui

import (
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/termviewer/pdftui/internal/convert"
	"github.com/termviewer/pdftui/internal/render"
	"github.com/termviewer/pdftui/internal/termproto"
)

func newTestModel(n int) *Model {
	renderIn := make(chan render.Notif, 8)
	convIn := make(chan convert.Msg, 8)
	m := New(Options{
		Path:    "/doc.pdf",
		CellPxW: 10,
		CellPxH: 20,
		TermCap: termproto.CapSixel,
		RenderIn: renderIn,
		ConvIn:   convIn,
	})
	m.pageCount = n
	m.slots = make([]pageSlot, n)
	return m
}

func newKittyTestModel(n int) *Model {
	m := newTestModel(n)
	m.opts.TermCap = termproto.CapKitty
	return m
}

func sendKey(m *Model, r rune) *Model {
	result, _ := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
	return result.(*Model)
}

func TestHandleKeyPageRightAdvances(t *testing.T) {
	m := newTestModel(5)
	m = sendKey(m, 'l')
	if m.current != 1 {
		t.Fatalf("current = %d, want 1", m.current)
	}
}

func TestHandleKeyPageLeftClampsAtZero(t *testing.T) {
	m := newTestModel(5)
	m = sendKey(m, 'h')
	if m.current != 0 {
		t.Fatalf("current = %d, want 0", m.current)
	}
}

func TestHandleKeyRightToLeftSwapsDirection(t *testing.T) {
	m := newTestModel(5)
	m.rightToLeft = true
	m = sendKey(m, 'l')
	if m.current != 0 {
		t.Fatalf("current = %d, want 0 (swapped)", m.current)
	}
}

func TestHandleKeySearchEntersModal(t *testing.T) {
	m := newTestModel(5)
	m = sendKey(m, '/')
	if !m.status.InInput() {
		t.Fatal("expected modal input after /")
	}
}

func TestModalInputAppendsAndSubmits(t *testing.T) {
	m := newTestModel(5)
	m = sendKey(m, '/')
	m = sendKey(m, 'f')
	m = sendKey(m, 'o')
	m = sendKey(m, 'o')
	buf, ok := m.status.InputBuffer()
	if !ok || buf != "foo" {
		t.Fatalf("buf = %q, ok = %v", buf, ok)
	}

	result, _ := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m = result.(*Model)
	if m.status.InInput() {
		t.Fatal("expected modal to close after Enter")
	}
}

func TestJumpToPageModal(t *testing.T) {
	m := newTestModel(5)
	m = sendKey(m, 'g')
	m = sendKey(m, '3')
	result, _ := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m = result.(*Model)
	if m.current != 2 {
		t.Fatalf("current = %d, want 2 (1-indexed input 3)", m.current)
	}
}

func TestEscapePopsModalWithoutSubmitting(t *testing.T) {
	m := newTestModel(5)
	m = sendKey(m, 'g')
	m = sendKey(m, '9')
	result, _ := m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	m = result.(*Model)
	if m.status.InInput() {
		t.Fatal("expected modal closed")
	}
	if m.current != 0 {
		t.Fatalf("current = %d, want unchanged 0", m.current)
	}
}

func TestInvertTogglesAndMarksFrameDirty(t *testing.T) {
	m := newTestModel(5)
	m.imageFrameDirty = false
	m = sendKey(m, 'i')
	if !m.invert {
		t.Fatal("expected invert true")
	}
	if !m.imageFrameDirty {
		t.Fatal("expected frame marked dirty")
	}
}

func TestHandleRenderResultNumPagesResetsSlots(t *testing.T) {
	m := newTestModel(0)
	result, _ := m.Update(renderResultMsg{render.NumPagesResult{N: 7}})
	m = result.(*Model)
	if m.pageCount != 7 || len(m.slots) != 7 {
		t.Fatalf("pageCount = %d, len(slots) = %d", m.pageCount, len(m.slots))
	}
}

func TestHandleConvertResultStoresSlotImage(t *testing.T) {
	m := newTestModel(3)
	result, _ := m.Update(convertResultMsg{convert.PageResult{
		PageNum:    1,
		NumResults: 2,
		Image:      convert.Image{Kind: convert.KindGeneric, Generic: []byte("x"), CellW: 4, CellH: 5},
	}})
	m = result.(*Model)
	if m.slots[1].image == nil || !m.slots[1].image.ready {
		t.Fatal("expected slot 1 marked ready")
	}
	if m.slots[1].numResults == nil || *m.slots[1].numResults != 2 {
		t.Fatal("expected slot 1 numResults = 2")
	}
}

func TestZoomInIncreasesZoomLevel(t *testing.T) {
	m := newKittyTestModel(1)
	m = sendKey(m, 'O')
	if m.zoomLevel <= minZoom {
		t.Fatalf("zoomLevel = %v, want > %v", m.zoomLevel, minZoom)
	}
}

func TestZoomOutClampsAtMinZoom(t *testing.T) {
	m := newKittyTestModel(1)
	m = sendKey(m, 'o')
	if m.zoomLevel != minZoom {
		t.Fatalf("zoomLevel = %v, want %v", m.zoomLevel, minZoom)
	}
}

func TestZoomIgnoredOnNonKittyTerminal(t *testing.T) {
	m := newTestModel(1) // defaults to CapSixel
	m = sendKey(m, 'O')
	if m.zoomLevel != minZoom {
		t.Fatalf("zoomLevel = %v, want unchanged %v on a non-Kitty terminal", m.zoomLevel, minZoom)
	}
}

func TestPanNoOpAtMinZoom(t *testing.T) {
	m := newKittyTestModel(1)
	m = sendKey(m, 'L')
	if m.panX != 0 {
		t.Fatalf("panX = %v, want 0 (pan is a no-op at minZoom)", m.panX)
	}
}

func TestPanShiftsWindowWhenZoomed(t *testing.T) {
	m := newKittyTestModel(1)
	m = sendKey(m, 'O') // zoom in first so panning has room to move
	m = sendKey(m, 'L') // pan right
	if m.panX <= 0 {
		t.Fatalf("panX = %v, want > 0 after panning right while zoomed", m.panX)
	}
}

func TestCropRectFullImageAtMinZoom(t *testing.T) {
	m := newKittyTestModel(1)
	_, _, w, h := m.cropRect(800, 600)
	if w != 0 || h != 0 {
		t.Fatalf("cropRect at minZoom = (w=%d, h=%d), want (0, 0) meaning uncropped", w, h)
	}
}

func TestCropRectShrinksWithZoom(t *testing.T) {
	m := newKittyTestModel(1)
	m.zoomLevel = 2.0
	_, _, w, h := m.cropRect(800, 600)
	if w != 400 || h != 300 {
		t.Fatalf("cropRect at zoom 2.0 = (w=%d, h=%d), want (400, 300)", w, h)
	}
}

func TestJumpToHitSkipsPagesWithNoResults(t *testing.T) {
	m := newTestModel(4)
	two := 2
	m.slots[3].numResults = &two
	result, _ := m.jumpToHit(1)
	m = result.(*Model)
	if m.current != 3 {
		t.Fatalf("current = %d, want 3", m.current)
	}
}
