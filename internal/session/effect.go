package session

import (
	"time"

	"github.com/abhisek/aptitude/internal/adaptive"
	"github.com/abhisek/aptitude/internal/results"
)

// Effect is a side effect requested by the Machine. The Runner executes them
// in order.
type Effect interface {
	isEffect()
}

// StartTelemetry activates capture for the session.
type StartTelemetry struct{ SessionID string }

// StopTelemetry deactivates capture and emits the summary.
type StopTelemetry struct{}

// StartTimer starts the periodic budget check.
type StartTimer struct{}

// StopTimer stops the periodic budget check. Stopping twice is a no-op.
type StopTimer struct{}

// Record captures a telemetry event.
type Record struct {
	Type string
	Data map[string]any
}

// RecordResponse captures a keyed response.
type RecordResponse struct {
	Key   string
	Value any
}

// TimerKind names what a delayed callback does.
type TimerKind int

const (
	// TimerAdvance calls Advance.
	TimerAdvance TimerKind = iota
	// TimerSettle calls Settle.
	TimerSettle
)

// Schedule runs a delayed callback.
type Schedule struct {
	Timer TimerKind
	After time.Duration
}

// RequestQuestion asks the adaptive controller for the next question.
type RequestQuestion struct {
	StageTag  string
	Completed int
	Elapsed   time.Duration
}

// QuestionDisplayed stamps the display time of an adaptive question.
type QuestionDisplayed struct {
	Question *adaptive.Question
	At       time.Time
}

// AdaptiveChoice records the answer of an adaptive question.
type AdaptiveChoice struct {
	Question *adaptive.Question
	Choice   int
	At       time.Time
}

// Downgrade permanently disables adaptive mode.
type Downgrade struct{ Cause error }

// Analyze asks the results coordinator for a profile.
type Analyze struct{ Request results.Request }

// Transition reports a state change.
type Transition struct{ From, To State }

func (StartTelemetry) isEffect()    {}
func (StopTelemetry) isEffect()     {}
func (StartTimer) isEffect()        {}
func (StopTimer) isEffect()         {}
func (Record) isEffect()            {}
func (RecordResponse) isEffect()    {}
func (Schedule) isEffect()          {}
func (RequestQuestion) isEffect()   {}
func (QuestionDisplayed) isEffect() {}
func (AdaptiveChoice) isEffect()    {}
func (Downgrade) isEffect()         {}
func (Analyze) isEffect()           {}
func (Transition) isEffect()        {}
