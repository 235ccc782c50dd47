package tui

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
)

// keyMap defines the bindings of a prompt form.
type keyMap struct {
	// Submit moves to the next field, or submits from the last one.
	Submit key.Binding

	// Next moves to the next field.
	Next key.Binding

	// Prev moves to the previous field.
	Prev key.Binding

	// Cancel abandons the prompt.
	Cancel key.Binding
}

func defaultKeyMap() *keyMap {
	return &keyMap{
		Submit: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "submit"),
		),
		Next: key.NewBinding(
			key.WithKeys("tab", "down"),
			key.WithHelp("tab", "next"),
		),
		Prev: key.NewBinding(
			key.WithKeys("shift+tab", "up"),
			key.WithHelp("shift+tab", "previous"),
		),
		Cancel: key.NewBinding(
			key.WithKeys("esc", "ctrl+c"),
			key.WithHelp("esc", "cancel"),
		),
	}
}

// ShortHelp returns the bindings shown under the form.
func (k *keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Submit, k.Next, k.Cancel}
}

// helpLine renders bindings as "key desc • key desc".
func helpLine(bindings []key.Binding) string {
	parts := make([]string, 0, len(bindings))
	for _, b := range bindings {
		h := b.Help()
		parts = append(parts, h.Key+" "+h.Desc)
	}
	return strings.Join(parts, " • ")
}
