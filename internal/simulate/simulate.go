// Package simulate drives a session runner without a terminal, answering
// every stage with a scripted picker. It backs `aptitude simulate`.
package simulate

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/abhisek/aptitude/internal/bank"
	"github.com/abhisek/aptitude/internal/results"
	"github.com/abhisek/aptitude/internal/session"
)

// ErrStopped is returned when the runner exits before producing results.
var ErrStopped = errors.New("runner stopped before results")

// Runner is the part of *session.Runner a script drives.
type Runner interface {
	Initialize()
	SelectMode(m session.Mode)
	Choose(choice int)
	SubmitText(text string)
	Snapshots() <-chan session.Snapshot
	Done() <-chan struct{}
}

// Picker returns the index of the choice to take. It is only called with a
// non-empty slice.
type Picker func(choices []bank.Choice) int

// First always takes the first choice.
func First(_ []bank.Choice) int { return 0 }

// Random picks uniformly with rnd.
func Random(rnd *rand.Rand) Picker {
	return func(choices []bank.Choice) int { return rnd.IntN(len(choices)) }
}

// Prefer takes the heaviest choice of category, falling back to the
// heaviest choice overall.
func Prefer(category bank.Category) Picker {
	return func(choices []bank.Choice) int {
		best, bestAny := -1, 0
		for i, c := range choices {
			if c.Weight > choices[bestAny].Weight {
				bestAny = i
			}
			if bank.Category(c.Category) == category && (best < 0 || c.Weight > choices[best].Weight) {
				best = i
			}
		}
		if best < 0 {
			return bestAny
		}
		return best
	}
}

// ParsePicker understands "first", "random" and a category name.
func ParsePicker(name string, seed uint64) (Picker, error) {
	switch name {
	case "", "first":
		return First, nil
	case "random":
		return Random(rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))), nil
	}
	if bank.IsCategory(name) {
		return Prefer(bank.Category(name)), nil
	}
	return nil, fmt.Errorf("unknown picker %q: want first, random or a category", name)
}

// Script describes how to answer.
type Script struct {
	Mode session.Mode
	Pick Picker

	// Text answers free-text stages. Nil uses a canned answer.
	Text func(st bank.Stage) string

	// OnStep, when set, is called before every action.
	OnStep func(snap session.Snapshot, action string)
}

// Outcome is what a driven session produced.
type Outcome struct {
	SessionID  string           `json:"sessionId"`
	Mode       session.Mode     `json:"mode"`
	Answered   int              `json:"answered"`
	Elapsed    time.Duration    `json:"elapsedNs"`
	TimedOut   bool             `json:"timedOut"`
	Downgraded bool             `json:"downgraded"`
	Profile    *results.Profile `json:"profile"`
}

func cannedText(st bank.Stage) string {
	return "An idea for " + st.Title + ": start small, test it with friends, and keep what works."
}

// Drive initializes the session and answers until the profile is ready.
func Drive(ctx context.Context, r Runner, s Script) (*Outcome, error) {
	if s.Mode == session.ModeUnset {
		s.Mode = session.ModeFixed
	}
	if s.Pick == nil {
		s.Pick = First
	}
	if s.Text == nil {
		s.Text = cannedText
	}
	step := func(snap session.Snapshot, action string) {
		if s.OnStep != nil {
			s.OnStep(snap, action)
		}
	}

	r.Initialize()
	out := &Outcome{Mode: s.Mode}
	acted := ""
	for {
		var snap session.Snapshot
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-r.Done():
			return nil, ErrStopped
		case snap = <-r.Snapshots():
		}

		if snap.Err != nil {
			return nil, snap.Err
		}
		out.SessionID = snap.SessionID
		out.Downgraded = out.Downgraded || snap.Downgraded

		key := actionKey(snap)
		if key == acted {
			continue
		}

		switch snap.Phase() {
		case session.PhaseModeSelect:
			step(snap, "mode "+s.Mode.String())
			r.SelectMode(s.Mode)
			acted = key

		case session.PhaseFixedStage:
			if snap.Answered || snap.Stage == nil {
				continue
			}
			if snap.Stage.FreeText {
				text := s.Text(*snap.Stage)
				step(snap, "text "+snap.Stage.ID)
				r.SubmitText(text)
			} else {
				i := s.Pick(snap.Stage.Choices)
				step(snap, fmt.Sprintf("choose %s #%d", snap.Stage.ID, i+1))
				r.Choose(i)
			}
			acted = key
			out.Answered++

		case session.PhaseAdaptiveStage:
			q := snap.Question
			if snap.Answered || q == nil || len(q.Choices) == 0 {
				continue
			}
			i := s.Pick(q.Choices)
			step(snap, fmt.Sprintf("choose %s #%d", snap.StageTag, i+1))
			r.Choose(i)
			acted = key
			out.Answered++

		case session.PhaseResults:
			if snap.Profile == nil {
				continue
			}
			out.Elapsed = snap.Elapsed
			out.TimedOut = snap.TimedOut
			out.Profile = snap.Profile
			return out, nil
		}
	}
}

func actionKey(snap session.Snapshot) string {
	qid := ""
	if snap.Question != nil {
		qid = snap.Question.ID
	}
	return fmt.Sprintf("%d/%s/%s/%s", snap.Epoch, snap.SessionID, snap.State, qid)
}
