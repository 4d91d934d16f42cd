package ui

import "github.com/charmbracelet/bubbles/key"

// KeyMap defines the viewer's keybindings, built with bubbles/key the
// same way the teacher's chat TUI does.
type KeyMap struct {
	Quit key.Binding

	PageLeft  key.Binding // h / left arrow
	PageRight key.Binding // l / right arrow
	ScreenUp  key.Binding // k / up arrow
	ScreenDn  key.Binding // j / down arrow

	Search    key.Binding
	NextHit   key.Binding
	PrevHit   key.Binding
	JumpStart key.Binding

	Invert     key.Binding
	Rotate     key.Binding
	Fullscreen key.Binding
	ZoomToggle key.Binding

	PanLeft  key.Binding
	PanRight key.Binding
	PanUp    key.Binding
	PanDown  key.Binding
	ZoomOut  key.Binding
	ZoomIn   key.Binding

	Suspend key.Binding
	Enter   key.Binding
	Escape  key.Binding
}

// DefaultKeyMap returns the viewer's default bindings. Right-to-left
// mode swaps h/l and j/k at the call site (see Model.navSign),
// not here - the bindings always name the physical keys.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
		PageLeft: key.NewBinding(
			key.WithKeys("h", "left"),
			key.WithHelp("h", "previous page"),
		),
		PageRight: key.NewBinding(
			key.WithKeys("l", "right"),
			key.WithHelp("l", "next page"),
		),
		ScreenUp: key.NewBinding(
			key.WithKeys("k", "up"),
			key.WithHelp("k", "page up"),
		),
		ScreenDn: key.NewBinding(
			key.WithKeys("j", "down"),
			key.WithHelp("j", "page down"),
		),
		Search: key.NewBinding(
			key.WithKeys("/"),
			key.WithHelp("/", "search"),
		),
		NextHit: key.NewBinding(
			key.WithKeys("n"),
			key.WithHelp("n", "next match"),
		),
		PrevHit: key.NewBinding(
			key.WithKeys("N"),
			key.WithHelp("N", "previous match"),
		),
		JumpStart: key.NewBinding(
			key.WithKeys("g"),
			key.WithHelp("g", "go to page"),
		),
		Invert: key.NewBinding(
			key.WithKeys("i"),
			key.WithHelp("i", "invert colors"),
		),
		Rotate: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "rotate"),
		),
		Fullscreen: key.NewBinding(
			key.WithKeys("f"),
			key.WithHelp("f", "toggle chrome"),
		),
		ZoomToggle: key.NewBinding(
			key.WithKeys("z"),
			key.WithHelp("z", "zoom (kitty)"),
		),
		PanLeft: key.NewBinding(
			key.WithKeys("H"),
			key.WithHelp("H", "pan left"),
		),
		PanRight: key.NewBinding(
			key.WithKeys("L"),
			key.WithHelp("L", "pan right"),
		),
		PanUp: key.NewBinding(
			key.WithKeys("K"),
			key.WithHelp("K", "pan up"),
		),
		PanDown: key.NewBinding(
			key.WithKeys("J"),
			key.WithHelp("J", "pan down"),
		),
		ZoomOut: key.NewBinding(
			key.WithKeys("o"),
			key.WithHelp("o", "zoom out"),
		),
		ZoomIn: key.NewBinding(
			key.WithKeys("O"),
			key.WithHelp("O", "zoom in"),
		),
		Suspend: key.NewBinding(
			key.WithKeys("ctrl+z"),
			key.WithHelp("ctrl+z", "suspend"),
		),
		Enter: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "confirm"),
		),
		Escape: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "cancel"),
		),
	}
}
