package components

import (
	"strings"

	"charm.land/bubbles/v2/textinput"
	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/abhisek/aptitude/internal/ui/theme"
)

// TextInput wraps bubbles/textinput for free-text answers.
type TextInput struct {
	Model     textinput.Model
	MaxWidth  int
	submitted bool
	rejected  bool
}

// NewTextInput creates a new styled text input. charLimit caps the answer
// length when positive.
func NewTextInput(placeholder string, charLimit, maxWidth int) TextInput {
	ti := textinput.New()
	ti.Placeholder = placeholder
	ti.Focus()

	if charLimit > 0 {
		ti.CharLimit = charLimit
	}

	return TextInput{
		Model:    ti,
		MaxWidth: maxWidth,
	}
}

// Init returns the initial command.
func (t TextInput) Init() tea.Cmd {
	return t.Model.Focus()
}

// Update handles messages. Input is ignored once submitted.
func (t TextInput) Update(msg tea.Msg) (TextInput, tea.Cmd) {
	if t.submitted {
		return t, nil
	}
	if _, ok := msg.(tea.KeyPressMsg); ok {
		t.rejected = false
	}

	var cmd tea.Cmd
	t.Model, cmd = t.Model.Update(msg)
	return t, cmd
}

// View renders the text input.
func (t TextInput) View() string {
	view := t.Model.View()
	switch {
	case t.submitted:
		view += " " + lipgloss.NewStyle().Foreground(theme.Success).Render("✓")
	case t.rejected:
		view += " " + lipgloss.NewStyle().Foreground(theme.Error).Render("type an answer first")
	}
	return view
}

// Value returns the trimmed input value.
func (t TextInput) Value() string {
	return strings.TrimSpace(t.Model.Value())
}

// Submit locks the input if it holds a non-blank answer and reports whether
// it did.
func (t *TextInput) Submit() bool {
	if t.Value() == "" {
		t.rejected = true
		return false
	}
	t.submitted = true
	t.Model.Blur()
	return true
}

// Submitted reports whether the answer was accepted.
func (t TextInput) Submitted() bool {
	return t.submitted
}
