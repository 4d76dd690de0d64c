// Package results shows the scored profile of a finished session.
package results

import (
	"fmt"
	"strings"
	"time"

	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/abhisek/aptitude/internal/bank"
	profile "github.com/abhisek/aptitude/internal/results"
	"github.com/abhisek/aptitude/internal/screen"
	"github.com/abhisek/aptitude/internal/ui/components"
	"github.com/abhisek/aptitude/internal/ui/layout"
	"github.com/abhisek/aptitude/internal/ui/theme"
)

// Summary describes the session the profile belongs to.
type Summary struct {
	SessionID string
	Mode      string
	Elapsed   time.Duration
	TimedOut  bool
}

// Screen displays scores, insights and recommendations. The content
// scrolls when it does not fit.
type Screen struct {
	profile   *profile.Profile
	recs      *profile.Recommendations
	summary   Summary
	again     components.Button
	offset    int
	lines     int
	height    int
}

var _ screen.Screen = (*Screen)(nil)
var _ screen.KeyHintProvider = (*Screen)(nil)
var _ screen.StatusProvider = (*Screen)(nil)

// New creates the results screen. onRestart runs when the user asks for a
// new session.
func New(p *profile.Profile, sum Summary, onRestart func() tea.Cmd) *Screen {
	recs := p.Recommendations
	if recs == nil {
		recs = profile.Recommend(p)
	}
	return &Screen{
		profile: p,
		recs:    recs,
		summary: sum,
		again:   components.NewButton("New session", "r", onRestart != nil, onRestart),
	}
}

func (s *Screen) Init() tea.Cmd { return nil }

func (s *Screen) Title() string { return "Your Profile" }

func (s *Screen) Status() string {
	return s.summary.Mode + "   ⏱ " + layout.FormatClock(s.summary.Elapsed)
}

func (s *Screen) KeyHints() []layout.KeyHint {
	return []layout.KeyHint{
		{Key: "↑↓", Description: "Scroll"},
		{Key: "r", Description: "New session"},
		{Key: "q", Description: "Quit"},
	}
}

func (s *Screen) Update(msg tea.Msg) (screen.Screen, tea.Cmd) {
	kmsg, ok := msg.(tea.KeyPressMsg)
	if !ok {
		return s, nil
	}
	switch kmsg.String() {
	case "up", "k":
		if s.offset > 0 {
			s.offset--
		}
	case "down", "j":
		if s.offset < s.maxOffset() {
			s.offset++
		}
	case "ctrl+r":
		kmsg = tea.KeyPressMsg{Code: 'r', Text: "r"}
	case "q", "esc":
		return s, tea.Quit
	}
	var cmd tea.Cmd
	s.again, cmd = s.again.Update(kmsg)
	return s, cmd
}

func (s *Screen) maxOffset() int {
	return max(s.lines-s.height, 0)
}

func (s *Screen) View(width, height int) string {
	content := s.render(min(width-4, 76))
	lines := strings.Split(content, "\n")
	s.lines, s.height = len(lines), height
	s.offset = min(s.offset, s.maxOffset())

	end := min(s.offset+height, len(lines))
	visible := strings.Join(lines[s.offset:end], "\n")
	return lipgloss.PlaceHorizontal(width, lipgloss.Center, visible)
}

func (s *Screen) render(width int) string {
	p := s.profile
	var b strings.Builder

	heading := "Assessment complete"
	if s.summary.TimedOut {
		heading = "Time's up! Here is what we saw"
	}
	b.WriteString(theme.Title.Width(width).Render(heading))
	b.WriteString("\n")
	b.WriteString(theme.Subtitle.Width(width).Render(
		fmt.Sprintf("Confidence %d%%", int(p.Confidence*100+0.5))))
	b.WriteString("\n")
	if p.Origin == profile.OriginFallback {
		b.WriteString(theme.Warning.Width(width).Align(lipgloss.Center).Render(
			"The scoring service was unavailable; this is an estimated profile."))
		b.WriteString("\n")
	}
	b.WriteString("\n")

	for _, c := range p.Ranked() {
		bar := components.NewProgressBar(c.Icon()+" "+c.DisplayName(), p.Score(c)/100, true, width)
		bar.LabelWidth = 14
		bar.Color = theme.CategoryColor(string(c))
		b.WriteString(bar.View())
		b.WriteString("\n")
	}

	if len(p.Insights) > 0 {
		b.WriteString("\n")
		b.WriteString(section("Insights"))
		for _, in := range p.Insights {
			b.WriteString(bullet(in, width))
		}
	}

	if recs := s.recs; recs != nil {
		if len(recs.Strengths) > 0 {
			b.WriteString("\n")
			b.WriteString(section("Strengths"))
			for _, st := range recs.Strengths {
				b.WriteString(categoryLine(st.Category, st.Score))
				for _, ch := range st.Characteristics {
					b.WriteString(bullet(ch, width))
				}
			}
		}
		if len(recs.DevelopmentAreas) > 0 {
			b.WriteString("\n")
			b.WriteString(section("Room to grow"))
			for _, d := range recs.DevelopmentAreas {
				b.WriteString(categoryLine(d.Category, d.Score))
				for _, tip := range d.Tips {
					b.WriteString(bullet(tip, width))
				}
			}
		}
		if len(recs.Careers) > 0 {
			b.WriteString("\n")
			b.WriteString(section("Careers to explore"))
			b.WriteString(lipgloss.NewStyle().Foreground(theme.Text).Width(width).
				Render("  " + strings.Join(recs.Careers, " · ")))
			b.WriteString("\n")
		}
	}

	if s.again.Active {
		b.WriteString("\n")
		b.WriteString(s.again.View())
	}

	return strings.TrimRight(b.String(), "\n")
}

func section(title string) string {
	return lipgloss.NewStyle().Foreground(theme.Secondary).Bold(true).Render(title) + "\n"
}

func categoryLine(c bank.Category, score float64) string {
	return lipgloss.NewStyle().Foreground(theme.CategoryColor(string(c))).Bold(true).
		Render(fmt.Sprintf("  %s %s (%.0f)", c.Icon(), c.DisplayName(), score)) + "\n"
}

func bullet(text string, width int) string {
	return lipgloss.NewStyle().Foreground(theme.TextDim).Width(width).PaddingLeft(4).
		Render("• "+text) + "\n"
}
