package ui

import "github.com/charmbracelet/lipgloss"

// Theme holds the chrome's palette, the same grouping the teacher's
// chat TUI theme uses.
type Theme struct {
	Border     lipgloss.Color
	Foreground lipgloss.Color
	Muted      lipgloss.Color
	Accent     lipgloss.Color
	Error      lipgloss.Color
}

// DefaultTheme returns the viewer's default colors.
func DefaultTheme() Theme {
	return Theme{
		Border:     lipgloss.Color("240"),
		Foreground: lipgloss.Color("252"),
		Muted:      lipgloss.Color("244"),
		Accent:     lipgloss.Color("33"),
		Error:      lipgloss.Color("203"),
	}
}

// Styles is a Theme rendered into lipgloss.Style values, bound to a
// renderer so color profile detection only happens once.
type Styles struct {
	Title      lipgloss.Style
	StatusBar  lipgloss.Style
	StatusErr  lipgloss.Style
	PageCount  lipgloss.Style
	Border     lipgloss.Style
	Loading    lipgloss.Style
}

// NewStyles builds Styles from a theme using the given renderer.
func NewStyles(r *lipgloss.Renderer, t Theme) *Styles {
	return &Styles{
		Title: r.NewStyle().Foreground(t.Foreground).Bold(true),
		StatusBar: r.NewStyle().Foreground(t.Muted),
		StatusErr: r.NewStyle().Foreground(t.Error).Bold(true),
		PageCount: r.NewStyle().Foreground(t.Accent),
		Border:    r.NewStyle().Foreground(t.Border),
		Loading:   r.NewStyle().Foreground(t.Muted).Italic(true),
	}
}

// Truncate clips s to width cells, appending an ellipsis when it had to
// cut, matching the teacher's status-line truncation behavior.
func Truncate(s string, width int) string {
	if width <= 0 {
		return ""
	}
	if lipgloss.Width(s) <= width {
		return s
	}
	if width <= 1 {
		return "…"
	}
	out := []rune(s)
	for lipgloss.Width(string(out)) > width-1 {
		out = out[:len(out)-1]
	}
	return string(out) + "…"
}
