package ui

import (
	"testing"

	tea "github.com/charmbracelet/bubbletea"
)

func typeRune(b *StatusBar, r rune) {
	b.UpdateInput(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
}

func backspace(b *StatusBar) {
	b.UpdateInput(tea.KeyMsg{Type: tea.KeyBackspace})
}

func TestStatusBarStartsInHelp(t *testing.T) {
	b := NewStatusBar()
	if b.current.kind != statusHelp {
		t.Fatalf("got %v, want statusHelp", b.current.kind)
	}
}

func TestStatusBarPopRestoresPrevious(t *testing.T) {
	b := NewStatusBar()
	b.ShowReloaded()
	b.BeginSearch()
	typeRune(b, 'a')
	typeRune(b, 'b')

	b.Pop()
	if b.current.kind != statusReloaded {
		t.Fatalf("got %v, want statusReloaded after pop", b.current.kind)
	}
}

func TestStatusBarPopWithNoPreviousFallsBackToHelp(t *testing.T) {
	b := NewStatusBar()
	b.Pop()
	if b.current.kind != statusHelp {
		t.Fatalf("got %v, want statusHelp", b.current.kind)
	}
}

func TestStatusBarBackspaceOnEmptyBufferIsNoOp(t *testing.T) {
	b := NewStatusBar()
	b.BeginGoToPage()
	backspace(b)
	buf, ok := b.InputBuffer()
	if !ok || buf != "" {
		t.Fatalf("buf = %q, ok = %v", buf, ok)
	}
}

func TestStatusBarAppendAndBackspace(t *testing.T) {
	b := NewStatusBar()
	b.BeginGoToPage()
	typeRune(b, '1')
	typeRune(b, '2')
	backspace(b)
	buf, ok := b.InputBuffer()
	if !ok || buf != "1" {
		t.Fatalf("buf = %q, ok = %v, want \"1\"", buf, ok)
	}
}

func TestStatusBarInputIgnoredOutsideModal(t *testing.T) {
	b := NewStatusBar()
	typeRune(b, 'x')
	buf, ok := b.InputBuffer()
	if ok || buf != "" {
		t.Fatalf("buf = %q, ok = %v, want no active input", buf, ok)
	}
}

func TestStatusBarRenderDefaultShowsPageCount(t *testing.T) {
	b := NewStatusBar()
	b.current = statusState{kind: statusKind(99)} // unknown kind falls through to default
	got := b.Render(3, 10)
	want := "4 / 10"
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}
