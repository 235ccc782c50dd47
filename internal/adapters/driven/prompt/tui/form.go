package tui

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// field describes one input of a form.
type field struct {
	label       string
	placeholder string
	secret      bool
	value       string
}

// form is a small bubbletea model that collects one or more answers.
type form struct {
	title     string
	message   string
	inputs    []textinput.Model
	labels    []string
	focus     int
	submitted bool
	cancelled bool
	styles    *styles
	keys      *keyMap
}

func newForm(title, message string, fields []field, s *styles) *form {
	if s == nil {
		s = defaultStyles()
	}
	f := &form{title: title, message: message, styles: s, keys: defaultKeyMap()}
	for i, fd := range fields {
		ti := textinput.New()
		ti.Placeholder = fd.placeholder
		ti.CharLimit = 512
		ti.Width = 40
		ti.SetValue(fd.value)
		if fd.secret {
			ti.EchoMode = textinput.EchoPassword
			ti.EchoCharacter = '•'
		}
		if i == 0 {
			ti.Focus()
		}
		f.inputs = append(f.inputs, ti)
		f.labels = append(f.labels, fd.label)
	}
	return f
}

// Init starts the cursor blink.
func (f *form) Init() tea.Cmd {
	return textinput.Blink
}

// Update moves between fields on enter and tab, submits on enter in the
// last field, and cancels on esc or ctrl+c.
func (f *form) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		switch {
		case key.Matches(msg, f.keys.Cancel):
			f.cancelled = true
			return f, tea.Quit
		case key.Matches(msg, f.keys.Submit):
			if f.focus == len(f.inputs)-1 {
				f.submitted = true
				return f, tea.Quit
			}
			return f, f.move(1)
		case key.Matches(msg, f.keys.Next):
			return f, f.move(1)
		case key.Matches(msg, f.keys.Prev):
			return f, f.move(-1)
		}
	}

	var cmd tea.Cmd
	f.inputs[f.focus], cmd = f.inputs[f.focus].Update(msg)
	return f, cmd
}

func (f *form) move(delta int) tea.Cmd {
	next := f.focus + delta
	if next < 0 || next >= len(f.inputs) {
		return nil
	}
	f.inputs[f.focus].Blur()
	f.focus = next
	return f.inputs[f.focus].Focus()
}

// View renders the form.
func (f *form) View() string {
	if f.submitted || f.cancelled {
		return ""
	}
	var b strings.Builder
	b.WriteString(f.styles.Title.Render(f.title))
	b.WriteString("\n")
	if f.message != "" {
		b.WriteString(f.styles.Message.Render(f.message))
		b.WriteString("\n")
	}
	b.WriteString("\n")
	for i, in := range f.inputs {
		label := f.styles.Label.Render(f.labels[i] + ":")
		//nolint:misspell // lipgloss.Center is the correct constant from the library
		b.WriteString(lipgloss.JoinHorizontal(lipgloss.Center, label, " ", f.styles.Input.Render(in.View())))
		b.WriteString("\n")
	}
	b.WriteString("\n")
	b.WriteString(f.styles.Help.Render(helpLine(f.keys.ShortHelp())))
	b.WriteString("\n")
	return f.styles.Box.Render(b.String())
}

// values returns the trimmed answers, or nil when the form was cancelled.
func (f *form) values() []string {
	if !f.submitted {
		return nil
	}
	out := make([]string, len(f.inputs))
	for i, in := range f.inputs {
		out[i] = in.Value()
	}
	return out
}
