package tui

import (
	"github.com/charmbracelet/lipgloss"
)

// theme is the colour palette of the prompt.
type theme struct {
	Primary    lipgloss.Color
	Foreground lipgloss.Color
	Muted      lipgloss.Color
	Border     lipgloss.Color
}

func defaultTheme() *theme {
	return &theme{
		Primary:    lipgloss.Color("#7C3AED"), // Purple
		Foreground: lipgloss.Color("#CDD6F4"), // Light gray
		Muted:      lipgloss.Color("#6C7086"), // Medium gray
		Border:     lipgloss.Color("#45475A"), // Border gray
	}
}

// styles holds the lipgloss styles of the prompt.
type styles struct {
	Title   lipgloss.Style
	Message lipgloss.Style
	Label   lipgloss.Style
	Input   lipgloss.Style
	Help    lipgloss.Style
	Box     lipgloss.Style
}

func newStyles(t *theme) *styles {
	if t == nil {
		t = defaultTheme()
	}
	return &styles{
		Title:   lipgloss.NewStyle().Bold(true).Foreground(t.Primary),
		Message: lipgloss.NewStyle().Foreground(t.Foreground),
		Label:   lipgloss.NewStyle().Foreground(t.Muted).Width(10),
		Input:   lipgloss.NewStyle(),
		Help:    lipgloss.NewStyle().Foreground(t.Muted).Italic(true),
		Box: lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(t.Border).
			Padding(0, 1),
	}
}

func defaultStyles() *styles {
	return newStyles(nil)
}
