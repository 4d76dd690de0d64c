package session

import (
	"fmt"
	"maps"
	"strings"
	"time"

	"github.com/abhisek/aptitude/internal/adaptive"
	"github.com/abhisek/aptitude/internal/bank"
	"github.com/abhisek/aptitude/internal/results"
	"github.com/abhisek/aptitude/internal/telemetry"
)

// Config holds the orchestration timings.
type Config struct {
	// Budget is the total time allowed for a session.
	Budget time.Duration

	// TickInterval is the period of the budget check.
	TickInterval time.Duration

	// FeedbackDelay separates an answer from the advance it triggers.
	FeedbackDelay time.Duration

	// ModeSelectDelay separates the mode choice from the first stage.
	ModeSelectDelay time.Duration

	// SettleDelay separates Loading from the analysis request.
	SettleDelay time.Duration

	// QuestionTimeout bounds one adaptive question request.
	QuestionTimeout time.Duration
}

// DefaultConfig returns the production timings.
func DefaultConfig() Config {
	return Config{
		Budget:          12 * time.Minute,
		TickInterval:    time.Second,
		FeedbackDelay:   600 * time.Millisecond,
		ModeSelectDelay: 400 * time.Millisecond,
		SettleDelay:     1500 * time.Millisecond,
		QuestionTimeout: 20 * time.Second,
	}
}

// Session is the single owned record of one assessment.
type Session struct {
	ID        string
	Mode      Mode
	StartTime time.Time
	EndTime   time.Time
	State     State

	// FixedIndex and AdaptiveCount are the stage cursors. They only grow.
	FixedIndex    int
	AdaptiveCount int

	Responses map[string]any

	// Question is the adaptive question on screen, nil while Pending.
	Question *adaptive.Question
	Pending  bool

	// Answered is set once the current stage has been answered.
	Answered bool
	Selected int
	ShownAt  time.Time

	Completed  int
	Finished   bool
	TimedOut   bool
	Downgraded bool
	Analyzing  bool
	Profile    *results.Profile
}

// Machine applies the session transition rules. It performs no I/O and is
// not safe for concurrent use; the Runner owns it.
type Machine struct {
	bank *bank.Bank
	cfg  Config
	s    Session
}

// NewMachine creates a Machine in PhaseIdle.
func NewMachine(b *bank.Bank, cfg Config) *Machine {
	return &Machine{
		bank: b,
		cfg:  cfg,
		s: Session{
			State:         State{Phase: PhaseIdle, Index: CursorModeSelect},
			FixedIndex:    CursorModeSelect,
			AdaptiveCount: CursorModeSelect,
			Responses:     make(map[string]any),
			Selected:      -1,
		},
	}
}

// Session returns a copy of the session record.
func (m *Machine) Session() Session {
	s := m.s
	s.Responses = maps.Clone(m.s.Responses)
	return s
}

// State returns the current state.
func (m *Machine) State() State { return m.s.State }

// Config returns the timings.
func (m *Machine) Config() Config { return m.cfg }

// Bank returns the question bank.
func (m *Machine) Bank() *bank.Bank { return m.bank }

// CurrentStage returns the fixed stage on screen.
func (m *Machine) CurrentStage() (bank.Stage, bool) {
	if m.s.State.Phase != PhaseFixedStage {
		return bank.Stage{}, false
	}
	return m.bank.Stage(m.s.State.Index)
}

// StageTag returns the adaptive stage tag on screen.
func (m *Machine) StageTag() (string, bool) {
	if m.s.State.Phase != PhaseAdaptiveStage {
		return "", false
	}
	return m.bank.AdaptiveStage(m.s.State.Index)
}

// Elapsed returns the time since initialization, frozen at finish.
func (m *Machine) Elapsed(now time.Time) time.Duration {
	if m.s.StartTime.IsZero() {
		return 0
	}
	if m.s.Finished {
		return m.s.EndTime.Sub(m.s.StartTime)
	}
	return now.Sub(m.s.StartTime)
}

// Remaining returns the time left in the budget.
func (m *Machine) Remaining(now time.Time) time.Duration {
	return max(m.cfg.Budget-m.Elapsed(now), 0)
}

// Initialize starts the session under the id assigned by the scoring service.
func (m *Machine) Initialize(sessionID string, now time.Time) ([]Effect, error) {
	if m.s.State.Phase != PhaseIdle {
		return nil, invalid("initialize", m.s.State)
	}
	if sessionID == "" {
		return nil, fmt.Errorf("%w: empty session id", ErrInitFailed)
	}

	m.s.ID = sessionID
	m.s.StartTime = now
	fx := []Effect{StartTelemetry{SessionID: sessionID}, StartTimer{}}
	return append(fx, m.enter(State{Phase: PhaseModeSelect, Index: CursorModeSelect}, now)...), nil
}

// SelectMode records the mode and schedules the first advance. It is valid
// once, from PhaseModeSelect.
func (m *Machine) SelectMode(mode Mode, now time.Time) ([]Effect, error) {
	if m.s.State.Phase != PhaseModeSelect || m.s.Mode != ModeUnset || m.s.Answered {
		return nil, invalid("select mode", m.s.State)
	}
	if mode != ModeFixed && mode != ModeAdaptive {
		return nil, fmt.Errorf("select mode %q: %w", mode, ErrInvalidAnswer)
	}

	m.s.Mode = mode
	m.s.Answered = true
	m.s.Responses["mode_selection"] = mode.String()
	return []Effect{
		RecordResponse{Key: "mode_selection", Value: mode.String()},
		Record{Type: telemetry.EventModeSelected, Data: map[string]any{
			"mode":           mode.String(),
			"responseTimeMs": now.Sub(m.s.ShownAt).Milliseconds(),
		}},
		Schedule{Timer: TimerAdvance, After: m.cfg.ModeSelectDelay},
	}, nil
}

// Advance moves to the next stage or finishes the session.
func (m *Machine) Advance(now time.Time) ([]Effect, error) {
	var cursor int
	switch m.s.State.Phase {
	case PhaseModeSelect:
		if m.s.Mode == ModeUnset {
			return nil, invalid("advance before mode selection", m.s.State)
		}
		cursor = CursorModeSelect
	case PhaseFixedStage:
		cursor = m.s.FixedIndex
	case PhaseAdaptiveStage:
		if m.s.Pending {
			return nil, invalid("advance while question pending", m.s.State)
		}
		cursor = m.s.AdaptiveCount
	default:
		return nil, invalid("advance", m.s.State)
	}

	fx := []Effect{Record{Type: telemetry.EventStageComplete, Data: m.stageData()}}

	next := Next(m.s.Mode, cursor, m.bank.Len(), m.bank.AdaptiveLen())
	if m.s.Mode == ModeAdaptive {
		m.s.AdaptiveCount = cursor + 1
	} else {
		m.s.FixedIndex = cursor + 1
	}

	if next.Phase == PhaseLoading {
		return append(fx, m.finish(now, false)...), nil
	}
	return append(fx, m.enter(next, now)...), nil
}

// Choose answers the current stage with a choice index.
func (m *Machine) Choose(choice int, now time.Time) ([]Effect, error) {
	switch m.s.State.Phase {
	case PhaseFixedStage:
		return m.chooseFixed(choice, now)
	case PhaseAdaptiveStage:
		return m.chooseAdaptive(choice, now)
	default:
		return nil, invalid("choose", m.s.State)
	}
}

func (m *Machine) chooseFixed(choice int, now time.Time) ([]Effect, error) {
	stage, ok := m.CurrentStage()
	if !ok || m.s.Answered {
		return nil, invalid("choose", m.s.State)
	}
	if stage.FreeText {
		return nil, fmt.Errorf("stage %s takes text: %w", stage.ID, ErrInvalidAnswer)
	}
	if choice < 0 || choice >= len(stage.Choices) {
		return nil, fmt.Errorf("choice %d of %d: %w", choice, len(stage.Choices), ErrInvalidAnswer)
	}

	c := stage.Choices[choice]
	rt := now.Sub(m.s.ShownAt).Milliseconds()
	key := stage.ID + "_choice"
	value := map[string]any{
		"choiceIndex":    choice,
		"category":       c.Category,
		"weight":         c.Weight,
		"responseTimeMs": rt,
	}

	m.s.Answered = true
	m.s.Selected = choice
	m.s.Completed++
	m.s.Responses[key] = value
	return []Effect{
		Record{Type: telemetry.EventChoice, Data: map[string]any{
			"stage":           stage.ID,
			"choice":          choice,
			"choice_category": c.Category,
			"weight":          c.Weight,
			"responseTimeMs":  rt,
		}},
		RecordResponse{Key: key, Value: value},
		Schedule{Timer: TimerAdvance, After: m.cfg.FeedbackDelay},
	}, nil
}

func (m *Machine) chooseAdaptive(choice int, now time.Time) ([]Effect, error) {
	q := m.s.Question
	if m.s.Pending || q == nil || m.s.Answered {
		return nil, invalid("choose", m.s.State)
	}
	if choice < 0 || choice >= len(q.Choices) {
		return nil, fmt.Errorf("choice %d of %d: %w", choice, len(q.Choices), ErrInvalidAnswer)
	}

	c := q.Choices[choice]
	m.s.Answered = true
	m.s.Selected = choice
	m.s.Completed++
	m.s.Responses[adaptive.ResponseKey(q.StageTag)] = map[string]any{
		"questionId":     q.ID,
		"choiceIndex":    choice,
		"category":       c.Category,
		"weight":         c.Weight,
		"responseTimeMs": now.Sub(m.s.ShownAt).Milliseconds(),
	}
	return []Effect{
		AdaptiveChoice{Question: q, Choice: choice, At: now},
		Schedule{Timer: TimerAdvance, After: m.cfg.FeedbackDelay},
	}, nil
}

// SubmitText answers a free-text stage.
func (m *Machine) SubmitText(text string, now time.Time) ([]Effect, error) {
	stage, ok := m.CurrentStage()
	if !ok || m.s.Answered {
		return nil, invalid("submit text", m.s.State)
	}
	if !stage.FreeText {
		return nil, fmt.Errorf("stage %s takes a choice: %w", stage.ID, ErrInvalidAnswer)
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, fmt.Errorf("empty text: %w", ErrInvalidAnswer)
	}

	key := stage.ID + "_text"
	m.s.Answered = true
	m.s.Completed++
	m.s.Responses[key] = text
	return []Effect{
		Record{Type: telemetry.EventCreativeInput, Data: map[string]any{
			"stage":          stage.ID,
			"input_type":     "text",
			"length":         len([]rune(text)),
			"responseTimeMs": now.Sub(m.s.ShownAt).Milliseconds(),
		}},
		RecordResponse{Key: key, Value: text},
		Schedule{Timer: TimerAdvance, After: m.cfg.FeedbackDelay},
	}, nil
}

// QuestionReady shows the requested adaptive question.
func (m *Machine) QuestionReady(q *adaptive.Question, now time.Time) ([]Effect, error) {
	if m.s.State.Phase != PhaseAdaptiveStage || !m.s.Pending || q == nil {
		return nil, invalid("question ready", m.s.State)
	}
	m.s.Pending = false
	m.s.Question = q
	m.s.ShownAt = now
	return []Effect{QuestionDisplayed{Question: q, At: now}}, nil
}

// QuestionFailed downgrades the session to fixed mode, starting at the first
// fixed stage. The downgrade is permanent.
func (m *Machine) QuestionFailed(cause error, now time.Time) ([]Effect, error) {
	if m.s.State.Phase != PhaseAdaptiveStage || !m.s.Pending {
		return nil, invalid("question failed", m.s.State)
	}

	m.s.Pending = false
	m.s.Mode = ModeFixed
	m.s.Downgraded = true
	fx := []Effect{Downgrade{Cause: cause}}

	next := Next(ModeFixed, CursorModeSelect, m.bank.Len(), m.bank.AdaptiveLen())
	m.s.FixedIndex = max(m.s.FixedIndex, 0)
	if next.Phase == PhaseLoading {
		return append(fx, m.finish(now, false)...), nil
	}
	return append(fx, m.enter(next, now)...), nil
}

// Tick checks the budget and forces finish once it is spent.
func (m *Machine) Tick(now time.Time) ([]Effect, error) {
	if m.s.State.Phase == PhaseIdle || m.s.Finished {
		return nil, nil
	}
	if now.Sub(m.s.StartTime) < m.cfg.Budget {
		return nil, nil
	}
	return m.finish(now, true), nil
}

// Finish ends the session from any non-terminal state. A second call is a
// no-op.
func (m *Machine) Finish(now time.Time, timedOut bool) ([]Effect, error) {
	if m.s.State.Phase == PhaseIdle {
		return nil, invalid("finish", m.s.State)
	}
	return m.finish(now, timedOut), nil
}

// Settle requests the analysis after the settle delay.
func (m *Machine) Settle(now time.Time) ([]Effect, error) {
	if m.s.State.Phase != PhaseLoading || m.s.Analyzing {
		return nil, invalid("settle", m.s.State)
	}
	m.s.Analyzing = true
	return []Effect{Analyze{Request: results.Request{
		Mode:             m.s.Mode.String(),
		CompletionTimeMs: m.Elapsed(now).Milliseconds(),
		StagesCompleted:  m.s.Completed,
	}}}, nil
}

// ProfileReady moves the session to Results.
func (m *Machine) ProfileReady(p *results.Profile) ([]Effect, error) {
	if m.s.State.Phase != PhaseLoading || p == nil {
		return nil, invalid("profile ready", m.s.State)
	}
	m.s.Profile = p
	return m.transition(State{Phase: PhaseResults}), nil
}

func (m *Machine) finish(now time.Time, timedOut bool) []Effect {
	if m.s.Finished {
		return nil
	}
	m.s.Finished = true
	m.s.TimedOut = timedOut
	m.s.EndTime = now
	m.s.Pending = false

	fx := []Effect{StopTimer{}}
	if timedOut {
		fx = append(fx, Record{Type: telemetry.EventSessionTimeout, Data: map[string]any{
			"elapsedMs": now.Sub(m.s.StartTime).Milliseconds(),
			"state":     m.s.State.String(),
		}})
	}
	fx = append(fx, StopTelemetry{})
	fx = append(fx, m.transition(State{Phase: PhaseLoading})...)
	return append(fx, Schedule{Timer: TimerSettle, After: m.cfg.SettleDelay})
}

func (m *Machine) enter(next State, now time.Time) []Effect {
	fx := m.transition(next)
	m.s.Answered = false
	m.s.Selected = -1
	m.s.Question = nil
	m.s.ShownAt = now

	if next.Phase == PhaseAdaptiveStage {
		m.s.Pending = true
		tag, _ := m.bank.AdaptiveStage(next.Index)
		fx = append(fx, Record{Type: telemetry.EventStageInit, Data: m.stageData()})
		return append(fx, RequestQuestion{
			StageTag:  tag,
			Completed: next.Index,
			Elapsed:   now.Sub(m.s.StartTime),
		})
	}
	return append(fx, Record{Type: telemetry.EventStageInit, Data: m.stageData()})
}

func (m *Machine) transition(next State) []Effect {
	prev := m.s.State
	m.s.State = next
	return []Effect{Transition{From: prev, To: next}}
}

func (m *Machine) stageData() map[string]any {
	data := map[string]any{
		"state": m.s.State.String(),
		"mode":  m.s.Mode.String(),
	}
	switch m.s.State.Phase {
	case PhaseModeSelect:
		data["stage"] = "mode_select"
	case PhaseFixedStage:
		if st, ok := m.bank.Stage(m.s.State.Index); ok {
			data["stage"] = st.ID
		}
		data["index"] = m.s.State.Index
	case PhaseAdaptiveStage:
		if tag, ok := m.bank.AdaptiveStage(m.s.State.Index); ok {
			data["stage"] = tag
		}
		data["index"] = m.s.State.Index
	}
	return data
}
