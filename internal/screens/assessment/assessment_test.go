package assessment

import (
	"errors"
	"strings"
	"testing"
	"time"

	tea "charm.land/bubbletea/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abhisek/aptitude/internal/adaptive"
	"github.com/abhisek/aptitude/internal/bank"
	"github.com/abhisek/aptitude/internal/results"
	"github.com/abhisek/aptitude/internal/router"
	"github.com/abhisek/aptitude/internal/session"
	"github.com/abhisek/aptitude/internal/telemetry"
)

type fakeRunner struct {
	calls     []string
	snapshots chan session.Snapshot
	done      chan struct{}
}

func newFakeRunner() *fakeRunner {
	return &fakeRunner{snapshots: make(chan session.Snapshot, 1), done: make(chan struct{})}
}

func (f *fakeRunner) Initialize()                          { f.calls = append(f.calls, "initialize") }
func (f *fakeRunner) SelectMode(m session.Mode)            { f.calls = append(f.calls, "mode:"+m.String()) }
func (f *fakeRunner) Choose(i int)                         { f.calls = append(f.calls, "choose:"+string(rune('0'+i))) }
func (f *fakeRunner) SubmitText(text string)               { f.calls = append(f.calls, "text:"+text) }
func (f *fakeRunner) Restart()                             { f.calls = append(f.calls, "restart") }
func (f *fakeRunner) Snapshots() <-chan session.Snapshot   { return f.snapshots }
func (f *fakeRunner) Done() <-chan struct{}                { return f.done }

type recorded struct {
	typ  string
	data map[string]any
}

type fakeCapture struct {
	events   []recorded
	pointers [][2]int
}

func (f *fakeCapture) Record(t string, data map[string]any) {
	f.events = append(f.events, recorded{typ: t, data: data})
}
func (f *fakeCapture) Pointer(x, y int) { f.pointers = append(f.pointers, [2]int{x, y}) }

func (f *fakeCapture) types() []string {
	out := make([]string, len(f.events))
	for i, e := range f.events {
		out[i] = e.typ
	}
	return out
}

var stage = bank.Stage{
	ID:     "alpha",
	Title:  "Alpha",
	Icon:   "🧩",
	Prompt: "What do you do first?",
	Choices: []bank.Choice{
		{Text: "Make a plan", Category: "analytical", Weight: 0.8},
		{Text: "Sketch ideas", Category: "creative", Weight: 0.7},
	},
}

func fixedSnap(index int, st bank.Stage) session.Snapshot {
	return session.Snapshot{
		SessionID: "s-1",
		State:     session.State{Phase: session.PhaseFixedStage, Index: index},
		Mode:      session.ModeFixed,
		Stage:     &st,
		Index:     index,
		Total:     3,
		Remaining: 11*time.Minute + 30*time.Second,
	}
}

func press(code rune, text string) tea.KeyPressMsg {
	return tea.KeyPressMsg{Code: code, Text: text}
}

func newScreen(t *testing.T) (*Screen, *fakeRunner, *fakeCapture) {
	t.Helper()
	r, c := newFakeRunner(), &fakeCapture{}
	s := New(r, c)
	require.NotNil(t, s.Init())
	require.Equal(t, []string{"initialize"}, r.calls)
	return s, r, c
}

func TestWaitForSnapshot(t *testing.T) {
	r := newFakeRunner()
	r.snapshots <- session.Snapshot{SessionID: "s-9"}
	msg := waitForSnapshot(r)()
	snap, ok := msg.(snapshotMsg)
	require.True(t, ok, "got %T", msg)
	assert.Equal(t, "s-9", snap.SessionID)

	close(r.done)
	assert.IsType(t, runnerStoppedMsg{}, waitForSnapshot(r)())
}

func TestModeSelection(t *testing.T) {
	s, r, c := newScreen(t)
	s.Update(snapshotMsg(session.Snapshot{
		SessionID: "s-1",
		State:     session.State{Phase: session.PhaseModeSelect, Index: session.CursorModeSelect},
	}))
	assert.Contains(t, s.View(100, 30), "Adaptive assessment")

	s.Update(tea.KeyPressMsg{Code: tea.KeyDown})
	s.Update(tea.KeyPressMsg{Code: tea.KeyEnter})
	assert.Equal(t, []string{"initialize", "mode:adaptive"}, r.calls)
	assert.Equal(t, []string{telemetry.EventKeyPress, telemetry.EventKeyPress}, c.types())
	assert.Equal(t, "down", c.events[0].data["key"])
}

func TestFixedStageChoice(t *testing.T) {
	s, r, _ := newScreen(t)
	_, cmd := s.Update(snapshotMsg(fixedSnap(0, stage)))
	require.NotNil(t, cmd, "screen keeps waiting for snapshots")

	assert.Contains(t, s.Title(), "Alpha")
	assert.Contains(t, s.Status(), "Stage 1/3")
	assert.Contains(t, s.Status(), "11:30")
	assert.Contains(t, s.View(100, 30), "Sketch ideas")

	s.Update(press('2', "2"))
	s.Update(press('1', "1"))
	assert.Equal(t, []string{"initialize", "choose:1"}, r.calls, "a stage takes one choice")

	// the runner confirms; further keys are ignored until the next stage
	answered := fixedSnap(0, stage)
	answered.Answered, answered.Selected = true, 1
	s.Update(snapshotMsg(answered))
	s.Update(tea.KeyPressMsg{Code: tea.KeyEnter})
	assert.Len(t, r.calls, 2)

	s.Update(snapshotMsg(fixedSnap(1, stage)))
	s.Update(tea.KeyPressMsg{Code: tea.KeyEnter})
	assert.Equal(t, "choose:0", r.calls[len(r.calls)-1])
}

func TestFreeTextStage(t *testing.T) {
	s, r, _ := newScreen(t)
	free := bank.Stage{ID: "story", Title: "Story", Prompt: "Invent a gadget.", FreeText: true}
	s.Update(snapshotMsg(fixedSnap(2, free)))

	s.Update(tea.KeyPressMsg{Code: tea.KeyEnter})
	assert.Equal(t, []string{"initialize"}, r.calls, "blank answers are not submitted")

	s.text.Model.SetValue("a solar kite")
	s.Update(tea.KeyPressMsg{Code: tea.KeyEnter})
	assert.Equal(t, "text:a solar kite", r.calls[len(r.calls)-1])
}

func TestAdaptiveStage(t *testing.T) {
	s, r, _ := newScreen(t)
	pending := session.Snapshot{
		SessionID: "s-1",
		State:     session.State{Phase: session.PhaseAdaptiveStage, Index: 0},
		Mode:      session.ModeAdaptive,
		StageTag:  "creative",
		Pending:   true,
		Total:     5,
	}
	s.Update(snapshotMsg(pending))
	assert.Contains(t, s.View(100, 30), "Preparing")
	s.Update(press('1', "1"))
	assert.Equal(t, []string{"initialize"}, r.calls)

	ready := pending
	ready.Pending = false
	ready.Question = &adaptive.Question{
		ID:       "q-1",
		StageTag: "creative",
		Text:     "A new club needs a logo. You...",
		Choices: []bank.Choice{
			{Text: "draw ten options", Category: "creative", Weight: 0.9},
			{Text: "survey members", Category: "social", Weight: 0.6},
		},
	}
	s.Update(snapshotMsg(ready))
	assert.Contains(t, s.View(100, 30), "survey members")
	s.Update(press('2', "2"))
	assert.Equal(t, "choose:1", r.calls[len(r.calls)-1])
}

func TestPointerClickAndFocusTelemetry(t *testing.T) {
	s, _, c := newScreen(t)

	s.Update(tea.MouseMotionMsg{X: 10, Y: 4})
	s.Update(tea.MouseClickMsg{X: 11, Y: 5, Button: tea.MouseLeft})
	s.Update(tea.BlurMsg{})
	s.Update(tea.FocusMsg{})

	assert.Equal(t, [][2]int{{10, 4}}, c.pointers)
	assert.Equal(t, []string{telemetry.EventClick, telemetry.EventFocusChange, telemetry.EventFocusChange}, c.types())
	assert.Equal(t, 11, c.events[0].data["x"])
	assert.Equal(t, false, c.events[1].data["focused"])
	assert.Equal(t, true, c.events[2].data["focused"])
}

func TestInitErrorRetry(t *testing.T) {
	s, r, _ := newScreen(t)
	s.Update(snapshotMsg(session.Snapshot{Err: errors.New("session initialization failed: connection refused")}))

	view := s.View(100, 30)
	assert.Contains(t, view, "couldn't start")
	assert.Equal(t, "Retry", s.KeyHints()[0].Description)

	assert.Contains(t, view, "Retry (r)")

	s.Update(press('r', "r"))
	assert.Equal(t, []string{"initialize", "restart"}, r.calls)

	s.Update(snapshotMsg(session.Snapshot{Epoch: 1, Err: errors.New("still down")}))
	s.Update(tea.KeyPressMsg{Code: tea.KeyEnter})
	assert.Equal(t, []string{"initialize", "restart", "restart"}, r.calls)
}

func TestCtrlRRestartsAnywhere(t *testing.T) {
	s, r, _ := newScreen(t)
	s.Update(snapshotMsg(fixedSnap(1, stage)))
	s.Update(tea.KeyPressMsg{Code: 'r', Mod: tea.ModCtrl})
	assert.Equal(t, "restart", r.calls[len(r.calls)-1])

	// snapshots of the old epoch are skipped
	_, cmd := s.Update(snapshotMsg(fixedSnap(2, stage)))
	require.NotNil(t, cmd)
	assert.Equal(t, 1, s.snap.Index)
}

func TestResultsHandOff(t *testing.T) {
	s, r, _ := newScreen(t)
	p := &results.Profile{Analytical: 80, Creative: 60, Social: 50, Technical: 70, Research: 40, Confidence: 0.8}
	_, cmd := s.Update(snapshotMsg(session.Snapshot{
		SessionID: "s-1",
		State:     session.State{Phase: session.PhaseResults},
		Mode:      session.ModeFixed,
		Profile:   p,
		Elapsed:   4 * time.Minute,
	}))
	require.NotNil(t, cmd)
	push, ok := cmd().(router.PushScreenMsg)
	require.True(t, ok)
	require.NotNil(t, push.Screen)
	assert.Equal(t, "Your Profile", push.Screen.Title())

	_, restart := push.Screen.Update(press('r', "r"))
	require.NotNil(t, restart)
	assert.Equal(t, "restart", r.calls[len(r.calls)-1])
}

func TestLoadingView(t *testing.T) {
	s, _, _ := newScreen(t)
	s.Update(snapshotMsg(session.Snapshot{
		SessionID: "s-1",
		State:     session.State{Phase: session.PhaseLoading},
		TimedOut:  true,
	}))
	view := s.View(100, 30)
	assert.True(t, strings.Contains(view, "Time's up!"))
	assert.Equal(t, "Analyzing", s.Title())
}
