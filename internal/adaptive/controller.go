// Package adaptive generates one question at a time for adaptive mode,
// keeps the answer history that personalizes later questions, and owns the
// one-way downgrade to fixed mode.
package adaptive

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/abhisek/aptitude/internal/logger"
	"github.com/abhisek/aptitude/internal/metrics"
	"github.com/abhisek/aptitude/internal/telemetry"
)

// Controller requests adaptive questions and records their answers.
//
// The session state machine is its only caller; the mutex guards the history
// against a request still in flight on another goroutine.
type Controller struct {
	source     Source
	recorder   telemetry.Recorder
	validators []Validator
	log        logger.Logger
	metrics    *metrics.Manager

	mu       sync.Mutex
	history  []HistoryEntry
	disabled bool
	reason   string
}

// Option configures a Controller.
type Option func(*Controller)

// WithRecorder sets the telemetry recorder.
func WithRecorder(r telemetry.Recorder) Option {
	return func(c *Controller) { c.recorder = r }
}

// WithValidators replaces the validator chain run on remote questions.
func WithValidators(v ...Validator) Option {
	return func(c *Controller) { c.validators = v }
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(c *Controller) {
		if l != nil {
			c.log = l
		}
	}
}

// WithMetrics sets the metrics manager.
func WithMetrics(m *metrics.Manager) Option {
	return func(c *Controller) {
		if m != nil {
			c.metrics = m
		}
	}
}

// NewController creates a Controller backed by source.
func NewController(source Source, opts ...Option) *Controller {
	c := &Controller{
		source:     source,
		recorder:   nopRecorder{},
		validators: []Validator{&StructuralValidator{}, &ChoiceValidator{}},
		log:        logger.Nop(),
		metrics:    metrics.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.source == nil {
		c.source = SourceFunc(func(context.Context, string, Request) (*Question, error) {
			return nil, ErrNoQuestion
		})
	}
	return c
}

// RequestNext asks the source for the question of stageTag. completed is the
// number of adaptive stages answered so far and elapsed the session time.
//
// Any failure (transport, non-2xx, malformed or empty choices) returns an
// error and no question; the caller is expected to Downgrade. The request is
// not retried.
func (c *Controller) RequestNext(ctx context.Context, sessionID, stageTag string, completed int, elapsed time.Duration) (*Question, error) {
	c.mu.Lock()
	if c.disabled {
		c.mu.Unlock()
		return nil, ErrDisabled
	}
	history := append([]HistoryEntry(nil), c.history...)
	c.mu.Unlock()

	req := Request{
		StageTag: stageTag,
		Context:  BuildContext(completed, elapsed, history),
		History:  history,
	}

	q, err := c.source.Generate(ctx, sessionID, req)
	if err == nil && q == nil {
		err = ErrNoQuestion
	}
	if err == nil {
		if verr := Validate(q, req, c.validators); verr != nil {
			err = verr
		}
	}
	c.metrics.AdaptiveQuestion(err)
	if err != nil {
		c.log.Warn(ctx, "adaptive question request failed",
			logger.String("session_id", sessionID),
			logger.String("stage", stageTag),
			logger.Error(err),
		)
		return nil, fmt.Errorf("request %s question: %w", stageTag, err)
	}

	if q.ID == "" {
		q.ID = uuid.NewString()
	}
	if q.StageTag == "" {
		q.StageTag = stageTag
	}
	c.recorder.Record(telemetry.EventQuestionGenerated, map[string]any{
		"stage":       stageTag,
		"questionId":  q.ID,
		"choiceCount": len(q.Choices),
	})
	return q, nil
}

// MarkDisplayed stores the time q was rendered.
func (c *Controller) MarkDisplayed(q *Question, at time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	q.DisplayTime = at
}

// RecordChoice stores the answer on q, appends it to the history and mirrors
// it to telemetry under "adaptive_<stage>_choice". Answering the same
// question twice returns the first entry unchanged.
func (c *Controller) RecordChoice(q *Question, choice int, at time.Time) (HistoryEntry, error) {
	if choice < 0 || choice >= len(q.Choices) {
		return HistoryEntry{}, fmt.Errorf("choice %d out of range [0,%d)", choice, len(q.Choices))
	}

	c.mu.Lock()
	if q.Answered() {
		entry := c.entryForLocked(q.ID)
		c.mu.Unlock()
		return entry, nil
	}
	selected := choice
	q.Selected = &selected
	if !q.DisplayTime.IsZero() {
		q.ResponseTime = at.Sub(q.DisplayTime)
	}
	picked := q.Choices[choice]
	entry := HistoryEntry{
		Stage:          q.StageTag,
		QuestionID:     q.ID,
		Question:       q.Text,
		SelectedChoice: choice,
		Category:       picked.Category,
		ResponseTimeMs: q.ResponseTime.Milliseconds(),
	}
	c.history = append(c.history, entry)
	c.mu.Unlock()

	c.recorder.Record(telemetry.EventAdaptiveChoice, map[string]any{
		"stage":           q.StageTag,
		"questionId":      q.ID,
		"choice":          choice,
		"choice_category": picked.Category,
		"responseTimeMs":  entry.ResponseTimeMs,
	})
	c.recorder.RecordResponse(ResponseKey(q.StageTag), map[string]any{
		"questionId":     q.ID,
		"question":       q.Text,
		"choiceIndex":    choice,
		"category":       picked.Category,
		"weight":         picked.Weight,
		"responseTimeMs": entry.ResponseTimeMs,
	})
	return entry, nil
}

// Downgrade permanently disables adaptive mode for this controller. Only the
// first call records the fallback.
func (c *Controller) Downgrade(cause error) {
	c.mu.Lock()
	if c.disabled {
		c.mu.Unlock()
		return
	}
	c.disabled = true
	c.reason = "unknown"
	if cause != nil {
		c.reason = cause.Error()
	}
	reason := c.reason
	c.mu.Unlock()

	c.metrics.AdaptiveDowngrade()
	c.recorder.Record(telemetry.EventAdaptiveFallback, map[string]any{
		"reason":   reason,
		"answered": len(c.History()),
	})
}

// Disabled reports whether adaptive mode has been downgraded.
func (c *Controller) Disabled() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.disabled
}

// Reason returns the error text that caused the downgrade.
func (c *Controller) Reason() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.reason
}

// History returns a copy of the answered questions in order.
func (c *Controller) History() []HistoryEntry {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]HistoryEntry(nil), c.history...)
}

func (c *Controller) entryForLocked(id string) HistoryEntry {
	for _, h := range c.history {
		if h.QuestionID == id {
			return h
		}
	}
	return HistoryEntry{}
}

// ResponseKey is the response key an adaptive answer is stored under.
func ResponseKey(stageTag string) string {
	return "adaptive_" + stageTag + "_choice"
}

// IsValidation reports whether err came from the validator chain.
func IsValidation(err error) bool {
	var verr *ValidationError
	return errors.As(err, &verr)
}

type nopRecorder struct{}

func (nopRecorder) Record(string, map[string]any) {}
func (nopRecorder) RecordResponse(string, any)    {}
