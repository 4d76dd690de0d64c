// Package assessment is the screen that administers a session. It renders
// the snapshots published by the session runner and turns key, mouse and
// focus input into runner commands and telemetry.
package assessment

import (
	"fmt"

	tea "charm.land/bubbletea/v2"

	"github.com/abhisek/aptitude/internal/bank"
	"github.com/abhisek/aptitude/internal/router"
	"github.com/abhisek/aptitude/internal/screen"
	"github.com/abhisek/aptitude/internal/screens/results"
	"github.com/abhisek/aptitude/internal/session"
	"github.com/abhisek/aptitude/internal/telemetry"
	"github.com/abhisek/aptitude/internal/ui/components"
	"github.com/abhisek/aptitude/internal/ui/layout"
)

// Runner is the part of *session.Runner the screen drives.
type Runner interface {
	Initialize()
	SelectMode(m session.Mode)
	Choose(choice int)
	SubmitText(text string)
	Restart()
	Snapshots() <-chan session.Snapshot
	Done() <-chan struct{}
}

// Capture receives raw interaction telemetry.
type Capture interface {
	Record(eventType string, data map[string]any)
	Pointer(x, y int)
}

const answerCharLimit = 500

// Screen administers one assessment at a time.
type Screen struct {
	runner  Runner
	capture Capture

	snap    session.Snapshot
	hasSnap bool
	stopped bool

	// snapshots older than minEpoch predate a restart and are skipped
	minEpoch int

	// view key of the stage the widgets were built for
	built   string
	modes   components.Menu
	choices components.MultiChoice
	text    components.TextInput
	retry   components.Button
}

var _ screen.Screen = (*Screen)(nil)
var _ screen.KeyHintProvider = (*Screen)(nil)
var _ screen.StatusProvider = (*Screen)(nil)

// New creates the assessment screen.
func New(r Runner, c Capture) *Screen {
	s := &Screen{runner: r, capture: c}
	s.modes = s.modeMenu()
	s.retry = components.NewButton("Retry", "r", true, func() tea.Cmd {
		s.restart()
		return nil
	})
	return s
}

func (s *Screen) modeMenu() components.Menu {
	return components.NewMenu([]components.MenuItem{
		{
			Label:       "Standard assessment",
			Description: "A fixed set of scenario questions.",
			Action:      func() tea.Cmd { s.runner.SelectMode(session.ModeFixed); return nil },
		},
		{
			Label:       "Adaptive assessment",
			Description: "Questions generated from your earlier answers.",
			Action:      func() tea.Cmd { s.runner.SelectMode(session.ModeAdaptive); return nil },
		},
	})
}

func (s *Screen) Init() tea.Cmd {
	s.runner.Initialize()
	return waitForSnapshot(s.runner)
}

func (s *Screen) Title() string {
	switch s.snap.Phase() {
	case session.PhaseFixedStage:
		if s.snap.Stage != nil {
			return s.snap.Stage.Icon + " " + s.snap.Stage.Title
		}
	case session.PhaseAdaptiveStage:
		c := bank.Category(s.snap.StageTag)
		return c.Icon() + " " + c.DisplayName()
	case session.PhaseModeSelect:
		return "Choose a mode"
	case session.PhaseLoading:
		return "Analyzing"
	}
	return "Assessment"
}

// Status shows the stage counter and the remaining time.
func (s *Screen) Status() string {
	if !s.hasSnap || s.snap.SessionID == "" {
		return ""
	}
	clock := "⏱ " + layout.FormatClock(s.snap.Remaining)
	if s.inStage() {
		return fmt.Sprintf("Stage %d/%d   %s", s.snap.Index+1, s.snap.Total, clock)
	}
	return clock
}

func (s *Screen) KeyHints() []layout.KeyHint {
	hints := []layout.KeyHint{}
	switch {
	case s.snap.Err != nil:
		hints = append(hints, layout.KeyHint{Key: "r", Description: "Retry"})
	case s.snap.Phase() == session.PhaseModeSelect:
		hints = append(hints,
			layout.KeyHint{Key: "↑↓", Description: "Navigate"},
			layout.KeyHint{Key: "Enter", Description: "Select"},
		)
	case s.freeText():
		hints = append(hints, layout.KeyHint{Key: "Enter", Description: "Submit"})
	case s.inStage():
		hints = append(hints,
			layout.KeyHint{Key: "1-9", Description: "Choose"},
			layout.KeyHint{Key: "↑↓", Description: "Navigate"},
			layout.KeyHint{Key: "Enter", Description: "Confirm"},
		)
	}
	return append(hints,
		layout.KeyHint{Key: "Ctrl+R", Description: "Restart"},
		layout.KeyHint{Key: "Ctrl+C", Description: "Quit"},
	)
}

func (s *Screen) inStage() bool {
	p := s.snap.Phase()
	return p == session.PhaseFixedStage || p == session.PhaseAdaptiveStage
}

func (s *Screen) freeText() bool {
	return s.snap.Phase() == session.PhaseFixedStage && s.snap.Stage != nil && s.snap.Stage.FreeText
}

func (s *Screen) Update(msg tea.Msg) (screen.Screen, tea.Cmd) {
	switch msg := msg.(type) {
	case snapshotMsg:
		return s, s.apply(session.Snapshot(msg))

	case runnerStoppedMsg:
		s.stopped = true
		return s, nil

	case tea.MouseMotionMsg:
		s.capture.Pointer(msg.X, msg.Y)
		return s, nil

	case tea.MouseClickMsg:
		s.capture.Record(telemetry.EventClick, map[string]any{
			"x":      msg.X,
			"y":      msg.Y,
			"button": int(msg.Button),
		})
		return s, nil

	case tea.FocusMsg:
		s.capture.Record(telemetry.EventFocusChange, map[string]any{"focused": true})
		return s, nil

	case tea.BlurMsg:
		s.capture.Record(telemetry.EventFocusChange, map[string]any{"focused": false})
		return s, nil

	case tea.KeyPressMsg:
		return s, s.handleKey(msg)
	}

	if s.freeText() {
		var cmd tea.Cmd
		s.text, cmd = s.text.Update(msg)
		return s, cmd
	}
	return s, nil
}

// apply takes a new snapshot, rebuilds the stage widgets when the stage
// changed and hands off to the results screen once a profile is ready.
func (s *Screen) apply(snap session.Snapshot) tea.Cmd {
	if snap.Epoch < s.minEpoch {
		return waitForSnapshot(s.runner)
	}
	s.snap, s.hasSnap = snap, true

	if key := viewKey(snap); key != s.built {
		s.built = key
		s.rebuild()
	}
	if snap.Answered && !s.freeText() {
		s.choices.Lock(snap.Selected)
	}

	if snap.Phase() == session.PhaseResults && snap.Profile != nil {
		next := results.New(snap.Profile, results.Summary{
			SessionID: snap.SessionID,
			Mode:      snap.Mode.String(),
			Elapsed:   snap.Elapsed,
			TimedOut:  snap.TimedOut,
		}, s.restartFromResults)
		// the wait is re-armed when the user restarts
		return func() tea.Msg { return router.PushScreenMsg{Screen: next} }
	}
	return waitForSnapshot(s.runner)
}

func (s *Screen) restart() {
	s.minEpoch = s.snap.Epoch + 1
	s.runner.Restart()
}

func (s *Screen) restartFromResults() tea.Cmd {
	s.restart()
	return tea.Sequence(
		func() tea.Msg { return router.PopScreenMsg{} },
		waitForSnapshot(s.runner),
	)
}

func viewKey(snap session.Snapshot) string {
	qid := ""
	if snap.Question != nil {
		qid = snap.Question.ID
	}
	return fmt.Sprintf("%d/%s/%s/%s", snap.Epoch, snap.SessionID, snap.State, qid)
}

func (s *Screen) rebuild() {
	s.choices = components.MultiChoice{ChosenIndex: -1}
	switch s.snap.Phase() {
	case session.PhaseModeSelect:
		s.modes = s.modeMenu()
	case session.PhaseFixedStage:
		st := s.snap.Stage
		if st == nil {
			return
		}
		if st.FreeText {
			s.text = components.NewTextInput("Type your answer", answerCharLimit, 60)
			return
		}
		s.choices = components.NewMultiChoice("", options(st.Choices))
	case session.PhaseAdaptiveStage:
		if q := s.snap.Question; q != nil {
			s.choices = components.NewMultiChoice("", options(q.Choices))
		}
	}
}

func options(choices []bank.Choice) []components.Option {
	out := make([]components.Option, len(choices))
	for i, c := range choices {
		out[i] = components.Option{Text: c.Text, Category: c.Category}
	}
	return out
}

func (s *Screen) handleKey(k tea.KeyPressMsg) tea.Cmd {
	key := k.String()
	if key == "ctrl+c" {
		return nil
	}
	s.capture.Record(telemetry.EventKeyPress, map[string]any{"key": key})

	if key == "ctrl+r" {
		s.restart()
		return nil
	}
	if s.snap.Err != nil {
		var cmd tea.Cmd
		s.retry, cmd = s.retry.Update(k)
		return cmd
	}

	switch s.snap.Phase() {
	case session.PhaseModeSelect:
		var cmd tea.Cmd
		s.modes, cmd = s.modes.Update(k)
		return cmd

	case session.PhaseFixedStage, session.PhaseAdaptiveStage:
		if s.snap.Answered {
			return nil
		}
		if s.freeText() {
			if key == "enter" {
				if s.text.Submit() {
					s.runner.SubmitText(s.text.Value())
				}
				return nil
			}
			var cmd tea.Cmd
			s.text, cmd = s.text.Update(k)
			return cmd
		}
		if len(s.choices.Options) == 0 {
			return nil
		}
		chosenBefore := s.choices.Submitted
		s.choices, _ = s.choices.Update(k)
		if idx, ok := s.choices.Chosen(); ok && !chosenBefore {
			s.runner.Choose(idx)
		}
	}
	return nil
}
