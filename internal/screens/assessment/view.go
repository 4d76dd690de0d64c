package assessment

import (
	"fmt"
	"strings"

	"charm.land/lipgloss/v2"

	"github.com/abhisek/aptitude/internal/bank"
	"github.com/abhisek/aptitude/internal/session"
	"github.com/abhisek/aptitude/internal/ui/components"
	"github.com/abhisek/aptitude/internal/ui/theme"
)

func (s *Screen) View(width, height int) string {
	var body string
	switch {
	case s.snap.Err != nil:
		body = s.renderError()
	case s.stopped:
		body = theme.Hint.Render("The session has ended.")
	case !s.hasSnap || s.snap.Initializing || s.snap.Phase() == session.PhaseIdle:
		body = theme.Hint.Render("Starting your session...")
	case s.snap.Phase() == session.PhaseModeSelect:
		body = s.renderModeSelect()
	case s.snap.Phase() == session.PhaseFixedStage:
		body = s.renderFixedStage(width)
	case s.snap.Phase() == session.PhaseAdaptiveStage:
		body = s.renderAdaptiveStage(width)
	default:
		body = s.renderLoading()
	}
	return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center, body)
}

func (s *Screen) renderError() string {
	var b strings.Builder
	b.WriteString(theme.Failure.Render("We couldn't start your session."))
	b.WriteString("\n\n")
	b.WriteString(lipgloss.NewStyle().Foreground(theme.TextDim).Width(60).Render(s.snap.Err.Error()))
	b.WriteString("\n\n")
	b.WriteString(theme.Hint.Render("Check that the scoring service is running, then retry."))
	b.WriteString("\n\n")
	b.WriteString(s.retry.View())
	return b.String()
}

func (s *Screen) renderModeSelect() string {
	var b strings.Builder
	b.WriteString(theme.Title.Render("How would you like to be assessed?"))
	b.WriteString("\n\n")
	b.WriteString(s.modes.View())
	return b.String()
}

func (s *Screen) renderFixedStage(width int) string {
	st := s.snap.Stage
	if st == nil {
		return ""
	}
	var b strings.Builder
	b.WriteString(s.renderProgress(width))
	b.WriteString("\n\n")
	if s.snap.Downgraded && s.snap.Index == 0 {
		b.WriteString(theme.Warning.Render("Adaptive questions are unavailable, continuing with the standard set."))
		b.WriteString("\n\n")
	}
	b.WriteString(s.renderPrompt(st.Prompt, width))
	b.WriteString("\n\n")
	if st.FreeText {
		b.WriteString(s.text.View())
	} else {
		b.WriteString(s.choices.View())
	}
	return b.String()
}

func (s *Screen) renderAdaptiveStage(width int) string {
	var b strings.Builder
	b.WriteString(s.renderProgress(width))
	b.WriteString("\n\n")

	q := s.snap.Question
	if q == nil {
		c := bank.Category(s.snap.StageTag)
		b.WriteString(theme.Hint.Render(fmt.Sprintf("Preparing a %s question for you...", strings.ToLower(c.DisplayName()))))
		return b.String()
	}
	b.WriteString(s.renderPrompt(q.Text, width))
	b.WriteString("\n\n")
	b.WriteString(s.choices.View())
	return b.String()
}

func (s *Screen) renderLoading() string {
	var b strings.Builder
	if s.snap.TimedOut {
		b.WriteString(theme.Warning.Render("Time's up!"))
		b.WriteString("\n\n")
	}
	b.WriteString(theme.Title.Render("Analyzing your responses..."))
	b.WriteString("\n\n")
	b.WriteString(theme.Hint.Render("This usually takes a few seconds."))
	return b.String()
}

func (s *Screen) renderPrompt(text string, width int) string {
	w := min(width-8, 72)
	return lipgloss.NewStyle().
		Width(w).
		Foreground(theme.Text).
		Bold(true).
		Render(text)
}

func (s *Screen) renderProgress(width int) string {
	total := max(s.snap.Total, 1)
	bar := components.NewProgressBar(
		fmt.Sprintf("%d of %d", s.snap.Index+1, total),
		float64(s.snap.Index)/float64(total),
		false,
		min(width-8, 60),
	)
	return bar.View()
}
