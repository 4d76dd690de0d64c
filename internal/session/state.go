// Package session orchestrates one assessment: it sequences stages in fixed
// or adaptive mode, enforces the global time budget, and hands the finished
// session to the results coordinator.
//
// Machine holds the transition rules and returns effects instead of
// performing I/O. Runner executes those effects on a single event-loop
// goroutine, so every transition is serialized.
package session

import (
	"errors"
	"fmt"
)

// Mode is the testing mode, chosen once at mode selection.
type Mode int

const (
	ModeUnset Mode = iota
	ModeFixed
	ModeAdaptive
)

func (m Mode) String() string {
	switch m {
	case ModeFixed:
		return "fixed"
	case ModeAdaptive:
		return "adaptive"
	default:
		return "unset"
	}
}

// MarshalText encodes the mode by name.
func (m Mode) MarshalText() ([]byte, error) { return []byte(m.String()), nil }

// ParseMode parses "fixed" or "adaptive".
func ParseMode(s string) (Mode, error) {
	switch s {
	case "fixed":
		return ModeFixed, nil
	case "adaptive":
		return ModeAdaptive, nil
	default:
		return ModeUnset, fmt.Errorf("unknown mode %q", s)
	}
}

// Phase is the coarse position of a session.
type Phase int

const (
	PhaseIdle Phase = iota // not initialized yet
	PhaseModeSelect
	PhaseFixedStage
	PhaseAdaptiveStage
	PhaseLoading
	PhaseResults
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseModeSelect:
		return "mode_select"
	case PhaseFixedStage:
		return "fixed_stage"
	case PhaseAdaptiveStage:
		return "adaptive_stage"
	case PhaseLoading:
		return "loading"
	case PhaseResults:
		return "results"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

// Terminal reports whether no further transition can happen.
func (p Phase) Terminal() bool { return p == PhaseResults }

// State is a phase plus the stage index for the two stage phases.
type State struct {
	Phase Phase
	Index int
}

func (s State) String() string {
	if s.Phase == PhaseFixedStage || s.Phase == PhaseAdaptiveStage {
		return fmt.Sprintf("%s(%d)", s.Phase, s.Index)
	}
	return s.Phase.String()
}

// CursorModeSelect is the cursor value before the first stage.
const CursorModeSelect = -1

// Next decides what follows the stage at index in mode, given the number of
// fixed and adaptive stages. index is CursorModeSelect at mode selection.
// The session finishes once the incremented cursor reaches the list length.
func Next(mode Mode, index, fixedN, adaptiveN int) State {
	var (
		n     int
		phase Phase
	)
	switch mode {
	case ModeFixed:
		n, phase = fixedN, PhaseFixedStage
	case ModeAdaptive:
		n, phase = adaptiveN, PhaseAdaptiveStage
	default:
		return State{Phase: PhaseModeSelect, Index: CursorModeSelect}
	}

	next := index + 1
	if next >= n {
		return State{Phase: PhaseLoading}
	}
	return State{Phase: phase, Index: next}
}

var (
	// ErrInvalidTransition is returned when an operation is not valid in the
	// current state. The state is left unchanged.
	ErrInvalidTransition = errors.New("invalid transition")

	// ErrInitFailed marks a failed session start. It is fatal for the
	// session; the user has to restart.
	ErrInitFailed = errors.New("session initialization failed")

	// ErrInvalidAnswer is returned for an out-of-range choice or empty text.
	ErrInvalidAnswer = errors.New("invalid answer")
)

func invalid(op string, s State) error {
	return fmt.Errorf("%s in %s: %w", op, s, ErrInvalidTransition)
}
