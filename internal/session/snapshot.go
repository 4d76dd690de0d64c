package session

import (
	"time"

	"github.com/abhisek/aptitude/internal/adaptive"
	"github.com/abhisek/aptitude/internal/bank"
	"github.com/abhisek/aptitude/internal/results"
)

// Snapshot is a read-only view of the session for the presentation layer.
type Snapshot struct {
	Epoch     int
	SessionID string
	State     State
	Mode      Mode

	// Stage is set in PhaseFixedStage.
	Stage *bank.Stage

	// StageTag and Question are set in PhaseAdaptiveStage. Question is nil
	// while the request is in flight.
	StageTag string
	Question *adaptive.Question
	Pending  bool

	// Index is the 0-based stage index and Total the stage count of the
	// current mode.
	Index int
	Total int

	Answered bool
	Selected int

	Elapsed   time.Duration
	Remaining time.Duration

	Initializing bool
	TimedOut     bool
	Downgraded   bool

	Profile *results.Profile

	// Err is the fatal initialization error, if any.
	Err error
}

// Phase is shorthand for s.State.Phase.
func (s Snapshot) Phase() Phase { return s.State.Phase }

func (r *Runner) snapshot() Snapshot {
	now := r.now()
	sess := r.machine.Session()
	snap := Snapshot{
		Epoch:        r.epoch,
		SessionID:    sess.ID,
		State:        sess.State,
		Mode:         sess.Mode,
		Index:        sess.State.Index,
		Answered:     sess.Answered,
		Selected:     sess.Selected,
		Elapsed:      r.machine.Elapsed(now),
		Remaining:    r.machine.Remaining(now),
		Initializing: r.initializing,
		TimedOut:     sess.TimedOut,
		Downgraded:   sess.Downgraded,
		Profile:      sess.Profile,
		Pending:      sess.Pending,
		Err:          r.initErr,
	}

	switch sess.State.Phase {
	case PhaseFixedStage:
		if st, ok := r.machine.CurrentStage(); ok {
			snap.Stage = &st
		}
		snap.Total = r.deps.Bank.Len()
	case PhaseAdaptiveStage:
		snap.StageTag, _ = r.machine.StageTag()
		if sess.Question != nil {
			q := *sess.Question
			snap.Question = &q
		}
		snap.Total = r.deps.Bank.AdaptiveLen()
	}
	return snap
}
