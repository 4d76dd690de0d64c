package adaptive

import (
	"context"
	"errors"
)

// Source produces the question for one adaptive stage.
type Source interface {
	Generate(ctx context.Context, sessionID string, req Request) (*Question, error)
}

// SourceFunc adapts a function to Source.
type SourceFunc func(ctx context.Context, sessionID string, req Request) (*Question, error)

func (f SourceFunc) Generate(ctx context.Context, sessionID string, req Request) (*Question, error) {
	return f(ctx, sessionID, req)
}

// ErrDisabled is returned once adaptive mode has been downgraded for the
// session.
var ErrDisabled = errors.New("adaptive mode disabled")

// ErrNoQuestion is returned when a source produced nothing usable.
var ErrNoQuestion = errors.New("no question generated")
