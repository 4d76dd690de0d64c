// Package components holds the reusable widgets the screens are built from.
package components

import (
	"fmt"
	"strings"

	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/abhisek/aptitude/internal/ui/theme"
)

// Option is one answer of a MultiChoice.
type Option struct {
	Text     string
	Category string
}

// MultiChoice is a multiple-choice selector. There is no correct answer;
// once an option is chosen the selector locks.
type MultiChoice struct {
	Prompt      string
	Options     []Option
	Selected    int
	Submitted   bool
	ChosenIndex int
}

// NewMultiChoice creates a new multiple-choice component.
func NewMultiChoice(prompt string, options []Option) MultiChoice {
	return MultiChoice{
		Prompt:      prompt,
		Options:     options,
		ChosenIndex: -1,
	}
}

// Init returns nil.
func (m MultiChoice) Init() tea.Cmd {
	return nil
}

// Update handles keyboard navigation and selection. Digits 1-9 choose the
// matching option directly.
func (m MultiChoice) Update(msg tea.Msg) (MultiChoice, tea.Cmd) {
	if m.Submitted {
		return m, nil
	}

	kmsg, ok := msg.(tea.KeyPressMsg)
	if !ok {
		return m, nil
	}

	switch key := kmsg.String(); key {
	case "up", "k":
		if m.Selected > 0 {
			m.Selected--
		}
	case "down", "j":
		if m.Selected < len(m.Options)-1 {
			m.Selected++
		}
	case "enter", "space":
		m.choose(m.Selected)
	default:
		if len(key) == 1 && key[0] >= '1' && key[0] <= '9' {
			m.choose(int(key[0] - '1'))
		}
	}

	return m, nil
}

func (m *MultiChoice) choose(i int) {
	if i < 0 || i >= len(m.Options) {
		return
	}
	m.Selected = i
	m.Submitted = true
	m.ChosenIndex = i
}

// Chosen returns the chosen index and whether a choice was made.
func (m MultiChoice) Chosen() (int, bool) {
	return m.ChosenIndex, m.Submitted
}

// Lock marks index as chosen without going through key handling, e.g. when
// the choice came from elsewhere.
func (m *MultiChoice) Lock(index int) {
	m.choose(index)
}

// View renders the multiple-choice component.
func (m MultiChoice) View() string {
	var b strings.Builder
	if m.Prompt != "" {
		b.WriteString(lipgloss.NewStyle().Foreground(theme.Text).Bold(true).Render(m.Prompt))
		b.WriteString("\n\n")
	}

	for i, opt := range m.Options {
		prefix := "  "
		if i == m.Selected && !m.Submitted {
			prefix = "▸ "
		}
		line := fmt.Sprintf("%s%d)  %s", prefix, i+1, opt.Text)

		switch {
		case m.Submitted && i == m.ChosenIndex:
			b.WriteString(theme.Chosen.Render("✓ " + line[2:]))
		case m.Submitted:
			b.WriteString(lipgloss.NewStyle().Foreground(theme.TextDim).Render(line))
		case i == m.Selected:
			b.WriteString(theme.Selected.Render(line))
		default:
			b.WriteString(theme.Unselected.Render(line))
		}
		b.WriteString("\n")
	}

	return b.String()
}
