package ui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
)

// statusKind is the bottom-bar message state spec.md §4.3 names:
// Help | Reloaded | Error(s) | Input(GoToPage|Search) | SearchResults(term).
type statusKind int

const (
	statusHelp statusKind = iota
	statusReloaded
	statusError
	statusInputGoToPage
	statusInputSearch
	statusSearchResults
)

// statusState is one bottom-bar state, with its modal input buffer
// where relevant.
type statusState struct {
	kind statusKind
	text string // error message, input buffer, or active search term
}

// StatusBar is the bottom-bar state machine: one active state plus a
// single-slot "previous" used to pop back on Escape. The goto-page and
// search modals are driven by a bubbles/textinput.Model the same way
// the teacher's ask_user_ui.go drives its inline text prompt.
type StatusBar struct {
	current  statusState
	previous *statusState
	input    textinput.Model
}

// NewStatusBar starts in the Help state.
func NewStatusBar() *StatusBar {
	ti := textinput.New()
	ti.Prompt = ""
	ti.CharLimit = 256
	return &StatusBar{current: statusState{kind: statusHelp}, input: ti}
}

// push replaces the current state, remembering it as previous so a
// later pop can restore it.
func (b *StatusBar) push(s statusState) {
	prev := b.current
	b.previous = &prev
	b.current = s
}

// Pop restores the previous state (used by Escape-while-modal). If
// there is no previous state, it falls back to Help.
func (b *StatusBar) Pop() {
	b.input.Blur()
	if b.previous != nil {
		b.current = *b.previous
		b.previous = nil
		return
	}
	b.current = statusState{kind: statusHelp}
}

func (b *StatusBar) ShowHelp()     { b.push(statusState{kind: statusHelp}) }
func (b *StatusBar) ShowReloaded() { b.push(statusState{kind: statusReloaded}) }
func (b *StatusBar) ShowError(msg string) {
	b.push(statusState{kind: statusError, text: msg})
}

// BeginGoToPage enters the `g<digits><Enter>` modal with an empty
// buffer.
func (b *StatusBar) BeginGoToPage() {
	b.push(statusState{kind: statusInputGoToPage})
	b.input.SetValue("")
	b.input.Focus()
}

// BeginSearch enters the `/term` modal with an empty buffer.
func (b *StatusBar) BeginSearch() {
	b.push(statusState{kind: statusInputSearch})
	b.input.SetValue("")
	b.input.Focus()
}

// InInput reports whether a modal input state is active.
func (b *StatusBar) InInput() bool {
	return b.current.kind == statusInputGoToPage || b.current.kind == statusInputSearch
}

// InputBuffer returns the current modal's buffer, if any is active.
func (b *StatusBar) InputBuffer() (string, bool) {
	if !b.InInput() {
		return "", false
	}
	return b.input.Value(), true
}

// UpdateInput forwards a key message to the active modal's text input,
// handling cursor movement, backspace, and rune insertion the way
// bubbles/textinput already does. A no-op outside a modal state.
func (b *StatusBar) UpdateInput(msg tea.Msg) tea.Cmd {
	if !b.InInput() {
		return nil
	}
	var cmd tea.Cmd
	b.input, cmd = b.input.Update(msg)
	return cmd
}

// ShowSearchResults enters the SearchResults(term) state, shown while
// the renderer is still counting matches across the document.
func (b *StatusBar) ShowSearchResults(term string) {
	b.push(statusState{kind: statusSearchResults, text: term})
}

// Render formats the current state for display, given the current
// page (1-indexed for display) and page count.
func (b *StatusBar) Render(page, total int) string {
	switch b.current.kind {
	case statusReloaded:
		return "Document was reloaded!"
	case statusError:
		return b.current.text
	case statusInputGoToPage:
		return "go to page: " + b.input.View()
	case statusInputSearch:
		return "/" + b.input.View()
	case statusSearchResults:
		return fmt.Sprintf("search: %q", b.current.text)
	default:
		return fmt.Sprintf("%d / %d", page+1, total)
	}
}
