package telemetry

import (
	"context"
	"time"
)

// Event types produced by the client. Names match what the scoring service's
// behavioral processor groups on.
const (
	EventSessionStart      = "session_start"
	EventSessionSummary    = "session_summary"
	EventSessionTimeout    = "session_timeout"
	EventPointerMove       = "mouse_move"
	EventClick             = "click"
	EventKeyPress          = "keypress"
	EventFocusChange       = "focus_change"
	EventStageInit         = "stage_init"
	EventStageComplete     = "stage_complete"
	EventModeSelected      = "mode_selected"
	EventChoice            = "choice"
	EventCreativeInput     = "creative_input"
	EventQuestionGenerated = "question_generated"
	EventAdaptiveChoice    = "adaptive_choice"
	EventAdaptiveFallback  = "adaptive_fallback"
	EventError             = "error"
)

// Event is one captured interaction or lifecycle marker.
type Event struct {
	// Seq orders events within a collector.
	Seq       uint64
	Type      string
	Timestamp time.Time
	SessionID string
	Data      map[string]any
}

// Seconds returns the capture time as fractional Unix seconds.
func (e Event) Seconds() float64 {
	return float64(e.Timestamp.UnixNano()) / float64(time.Second)
}

// Response is a keyed answer mirrored to the scoring service.
type Response struct {
	SessionID string
	Key       string
	Value     any
	Timestamp time.Time
}

// Sink receives telemetry asynchronously. Implementations must be safe to call
// from the flush worker goroutine.
type Sink interface {
	Name() string
	SendEvent(ctx context.Context, e Event) error
	SendResponse(ctx context.Context, r Response) error
}

// Recorder is the capture surface components depend on.
type Recorder interface {
	Record(eventType string, data map[string]any)
	RecordResponse(key string, value any)
}
