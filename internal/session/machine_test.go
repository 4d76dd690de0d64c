package session

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abhisek/aptitude/internal/adaptive"
	"github.com/abhisek/aptitude/internal/bank"
	"github.com/abhisek/aptitude/internal/results"
	"github.com/abhisek/aptitude/internal/telemetry"
)

func testBank(t *testing.T) *bank.Bank {
	t.Helper()
	choices := func(a, b string) []bank.Choice {
		return []bank.Choice{
			{Text: "first", Category: a, Weight: 0.8},
			{Text: "second", Category: b, Weight: 0.6},
		}
	}
	b, err := bank.New([]bank.Stage{
		{ID: "alpha", Title: "Alpha", Prompt: "Pick one", Choices: choices("analytical", "creative")},
		{ID: "beta", Title: "Beta", Prompt: "Pick one", Choices: choices("social", "technical")},
		{ID: "gamma", Title: "Gamma", Prompt: "Pick one", Choices: choices("research", "analytical")},
	}, []string{"analytical", "creative"})
	require.NoError(t, err)
	return b
}

func testConfig() Config {
	return Config{
		Budget:          time.Minute,
		TickInterval:    time.Second,
		FeedbackDelay:   600 * time.Millisecond,
		ModeSelectDelay: 400 * time.Millisecond,
		SettleDelay:     1500 * time.Millisecond,
	}
}

var t0 = time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

// must fails the test when a machine call returns an error.
func must(t *testing.T) func([]Effect, error) []Effect {
	t.Helper()
	return func(fx []Effect, err error) []Effect {
		t.Helper()
		require.NoError(t, err)
		return fx
	}
}

func transitions(fx []Effect) []State {
	var out []State
	for _, e := range fx {
		if tr, ok := e.(Transition); ok {
			out = append(out, tr.To)
		}
	}
	return out
}

func records(fx []Effect, typ string) []Record {
	var out []Record
	for _, e := range fx {
		if r, ok := e.(Record); ok && r.Type == typ {
			out = append(out, r)
		}
	}
	return out
}

func has[T Effect](fx []Effect) (T, bool) {
	for _, e := range fx {
		if v, ok := e.(T); ok {
			return v, true
		}
	}
	var zero T
	return zero, false
}

func started(t *testing.T, b *bank.Bank) *Machine {
	t.Helper()
	m := NewMachine(b, testConfig())
	must(t)(m.Initialize("s-1", t0))
	return m
}

func TestNext(t *testing.T) {
	tests := []struct {
		name  string
		mode  Mode
		index int
		want  State
	}{
		{"fixed from mode select", ModeFixed, CursorModeSelect, State{PhaseFixedStage, 0}},
		{"fixed middle", ModeFixed, 1, State{PhaseFixedStage, 2}},
		{"fixed last", ModeFixed, 2, State{Phase: PhaseLoading}},
		{"adaptive from mode select", ModeAdaptive, CursorModeSelect, State{PhaseAdaptiveStage, 0}},
		{"adaptive last", ModeAdaptive, 1, State{Phase: PhaseLoading}},
		{"unset stays", ModeUnset, CursorModeSelect, State{PhaseModeSelect, CursorModeSelect}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Next(tt.mode, tt.index, 3, 2))
		})
	}
}

func TestInitialize(t *testing.T) {
	m := NewMachine(testBank(t), testConfig())
	fx := must(t)(m.Initialize("s-1", t0))

	assert.Equal(t, State{PhaseModeSelect, CursorModeSelect}, m.State())
	assert.Equal(t, StartTelemetry{SessionID: "s-1"}, fx[0])
	_, timer := has[StartTimer](fx)
	assert.True(t, timer)
	assert.Len(t, records(fx, telemetry.EventStageInit), 1)

	_, err := m.Initialize("s-2", t0)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	_, err = NewMachine(testBank(t), testConfig()).Initialize("", t0)
	assert.ErrorIs(t, err, ErrInitFailed)
}

func TestFixedHappyPath(t *testing.T) {
	b := testBank(t)
	m := started(t, b)
	now := t0

	var seen []State
	fx := must(t)(m.SelectMode(ModeFixed, now))
	sched, _ := has[Schedule](fx)
	assert.Equal(t, Schedule{Timer: TimerAdvance, After: 400 * time.Millisecond}, sched)
	resp, _ := has[RecordResponse](fx)
	assert.Equal(t, RecordResponse{Key: "mode_selection", Value: "fixed"}, resp)

	fx = must(t)(m.Advance(now))
	seen = append(seen, transitions(fx)...)
	for i := 0; i < b.Len(); i++ {
		now = now.Add(2 * time.Second)
		fx = must(t)(m.Choose(1, now))
		sched, _ := has[Schedule](fx)
		assert.Equal(t, TimerAdvance, sched.Timer)

		now = now.Add(600 * time.Millisecond)
		fx = must(t)(m.Advance(now))
		assert.Len(t, records(fx, telemetry.EventStageComplete), 1)
		seen = append(seen, transitions(fx)...)
	}

	assert.Equal(t, []State{
		{PhaseFixedStage, 0}, {PhaseFixedStage, 1}, {PhaseFixedStage, 2}, {Phase: PhaseLoading},
	}, seen)
	_, stopped := has[StopTimer](fx)
	assert.True(t, stopped)
	_, telStopped := has[StopTelemetry](fx)
	assert.True(t, telStopped)

	fx = must(t)(m.Settle(now))
	an, _ := has[Analyze](fx)
	assert.Equal(t, "fixed", an.Request.Mode)
	assert.Equal(t, 3, an.Request.StagesCompleted)
	assert.Equal(t, now.Sub(t0).Milliseconds(), an.Request.CompletionTimeMs)

	_, err := m.Settle(now)
	assert.ErrorIs(t, err, ErrInvalidTransition, "analysis is requested once")

	fx = must(t)(m.ProfileReady(&results.Profile{Confidence: 0.9}))
	assert.Equal(t, []State{{Phase: PhaseResults}}, transitions(fx))
	assert.True(t, m.State().Phase.Terminal())

	s := m.Session()
	assert.Equal(t, map[string]any{
		"choiceIndex": 1, "category": "technical", "weight": 0.6, "responseTimeMs": int64(2000),
	}, s.Responses["beta_choice"])
	assert.Equal(t, "fixed", s.Responses["mode_selection"])
}

func TestExactlyNPlusOneAdvancesReachLoading(t *testing.T) {
	b := testBank(t)
	m := started(t, b)
	must(t)(m.SelectMode(ModeFixed, t0))

	advances, last := 0, m.Session().FixedIndex
	for m.State().Phase != PhaseLoading {
		must(t)(m.Advance(t0))
		advances++
		idx := m.Session().FixedIndex
		assert.GreaterOrEqual(t, idx, last, "cursor never decreases")
		last = idx
		require.LessOrEqual(t, advances, b.Len()+1)
	}
	assert.Equal(t, b.Len()+1, advances)

	_, err := m.Advance(t0)
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestSelectModeGuards(t *testing.T) {
	m := NewMachine(testBank(t), testConfig())
	_, err := m.SelectMode(ModeFixed, t0)
	assert.ErrorIs(t, err, ErrInvalidTransition, "before initialize")

	must(t)(m.Initialize("s-1", t0))
	_, err = m.Advance(t0)
	assert.ErrorIs(t, err, ErrInvalidTransition, "advance before mode")

	_, err = m.SelectMode(ModeUnset, t0)
	assert.ErrorIs(t, err, ErrInvalidAnswer)

	must(t)(m.SelectMode(ModeAdaptive, t0))
	_, err = m.SelectMode(ModeFixed, t0)
	assert.ErrorIs(t, err, ErrInvalidTransition, "second selection")
	assert.Equal(t, ModeAdaptive, m.Session().Mode)
}

func TestChooseGuards(t *testing.T) {
	m := started(t, testBank(t))
	must(t)(m.SelectMode(ModeFixed, t0))
	must(t)(m.Advance(t0))

	_, err := m.Choose(5, t0)
	assert.ErrorIs(t, err, ErrInvalidAnswer)

	must(t)(m.Choose(0, t0))
	_, err = m.Choose(1, t0)
	assert.ErrorIs(t, err, ErrInvalidTransition, "a stage is answered once")
	assert.Equal(t, 0, m.Session().Selected)
}

func TestAdaptiveFlow(t *testing.T) {
	m := started(t, testBank(t))
	must(t)(m.SelectMode(ModeAdaptive, t0))

	fx := must(t)(m.Advance(t0))
	req, found := has[RequestQuestion](fx)
	require.True(t, found)
	assert.Equal(t, RequestQuestion{StageTag: "analytical", Completed: 0, Elapsed: 0}, req)
	assert.True(t, m.Session().Pending)

	_, err := m.Choose(0, t0)
	assert.ErrorIs(t, err, ErrInvalidTransition, "no question yet")

	q := &adaptive.Question{ID: "q1", StageTag: "analytical", Text: "?", Choices: []bank.Choice{
		{Text: "a", Category: "analytical", Weight: 0.9}, {Text: "b", Category: "social", Weight: 0.5},
	}}
	shown := t0.Add(time.Second)
	fx = must(t)(m.QuestionReady(q, shown))
	assert.Equal(t, []Effect{QuestionDisplayed{Question: q, At: shown}}, fx)

	fx = must(t)(m.Choose(1, shown.Add(1500*time.Millisecond)))
	ac, found := has[AdaptiveChoice](fx)
	require.True(t, found)
	assert.Equal(t, 1, ac.Choice)
	assert.Equal(t, map[string]any{
		"questionId": "q1", "choiceIndex": 1, "category": "social", "weight": 0.5, "responseTimeMs": int64(1500),
	}, m.Session().Responses["adaptive_analytical_choice"])

	fx = must(t)(m.Advance(shown.Add(2*time.Second)))
	req, _ = has[RequestQuestion](fx)
	assert.Equal(t, "creative", req.StageTag)
	assert.Equal(t, 1, req.Completed)
	assert.Equal(t, State{PhaseAdaptiveStage, 1}, m.State())
}

func TestAdaptiveFailureDowngradesToFirstFixedStage(t *testing.T) {
	m := started(t, testBank(t))
	must(t)(m.SelectMode(ModeAdaptive, t0))
	must(t)(m.Advance(t0))

	cause := errors.New("generate_question: status 500")
	fx := must(t)(m.QuestionFailed(cause, t0))

	dg, found := has[Downgrade](fx)
	require.True(t, found)
	assert.Equal(t, cause, dg.Cause)
	assert.Equal(t, ModeFixed, m.Session().Mode)
	assert.Equal(t, State{PhaseFixedStage, 0}, m.State())
	assert.True(t, m.Session().Downgraded)
	assert.Equal(t, 0, m.Session().FixedIndex)

	// Late adaptive results no longer apply.
	_, err := m.QuestionReady(&adaptive.Question{}, t0)
	assert.ErrorIs(t, err, ErrInvalidTransition)
	_, err = m.QuestionFailed(cause, t0)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	for m.State().Phase != PhaseLoading {
		must(t)(m.Choose(0, t0))
		must(t)(m.Advance(t0))
		assert.Equal(t, ModeFixed, m.Session().Mode, "never reverts to adaptive")
	}
	assert.Equal(t, 3, m.Session().Completed)
}

func TestTimeoutIsIdempotent(t *testing.T) {
	m := started(t, testBank(t))
	must(t)(m.SelectMode(ModeFixed, t0))
	must(t)(m.Advance(t0))

	fx := must(t)(m.Tick(t0.Add(30*time.Second)))
	assert.Empty(t, fx, "within budget")

	expired := t0.Add(time.Minute)
	fx = must(t)(m.Tick(expired))
	assert.Len(t, records(fx, telemetry.EventSessionTimeout), 1)
	assert.Equal(t, []State{{Phase: PhaseLoading}}, transitions(fx))
	assert.True(t, m.Session().TimedOut)

	fx = must(t)(m.Tick(expired.Add(time.Second)))
	assert.Empty(t, fx)
	fx = must(t)(m.Finish(expired.Add(time.Second), true))
	assert.Empty(t, fx)
	assert.Equal(t, PhaseLoading, m.State().Phase)

	// A scheduled advance arriving after the preemption is rejected.
	_, err := m.Advance(expired)
	assert.ErrorIs(t, err, ErrInvalidTransition)
	assert.Equal(t, time.Minute, m.Elapsed(expired.Add(time.Hour)), "elapsed freezes at finish")
	assert.Equal(t, time.Duration(0), m.Remaining(expired))
}

func TestTimeoutFromModeSelect(t *testing.T) {
	m := started(t, testBank(t))
	fx := must(t)(m.Tick(t0.Add(2*time.Minute)))
	assert.Equal(t, []State{{Phase: PhaseLoading}}, transitions(fx))
	assert.Empty(t, records(fx, telemetry.EventStageComplete))
}

func TestFreeTextStage(t *testing.T) {
	b, err := bank.New([]bank.Stage{
		{ID: "story", Title: "Story", Prompt: "Write a story", FreeText: true},
	}, nil)
	require.NoError(t, err)
	m := started(t, b)
	must(t)(m.SelectMode(ModeFixed, t0))
	must(t)(m.Advance(t0))

	_, err = m.Choose(0, t0)
	assert.ErrorIs(t, err, ErrInvalidAnswer)
	_, err = m.SubmitText("   ", t0)
	assert.ErrorIs(t, err, ErrInvalidAnswer)

	fx := must(t)(m.SubmitText("  a dragon learns to code  ", t0))
	assert.Len(t, records(fx, telemetry.EventCreativeInput), 1)
	resp, _ := has[RecordResponse](fx)
	assert.Equal(t, RecordResponse{Key: "story_text", Value: "a dragon learns to code"}, resp)
}
