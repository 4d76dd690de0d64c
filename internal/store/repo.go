package store

import (
	"context"
	"time"
)

// QueryOpts configures journal queries with filtering and pagination.
type QueryOpts struct {
	SessionID string // exact match when set
	Limit     int    // max results (0 = unlimited)
	After     int64  // sequence > After
}

// EventRecord is one journaled telemetry event.
type EventRecord struct {
	Sequence   int64
	SessionID  string
	LocalSeq   uint64
	Type       string
	CapturedAt time.Time
	Data       map[string]any
}

// ResponseRecord is one journaled keyed response.
type ResponseRecord struct {
	Sequence   int64
	SessionID  string
	Key        string
	Value      any
	RecordedAt time.Time
}

// SessionSummary aggregates the journal rows of one session.
type SessionSummary struct {
	SessionID string
	Events    int
	FirstSeen time.Time
	LastSeen  time.Time
}

// LLMRequestEventData captures the data for a single LLM request event.
type LLMRequestEventData struct {
	Sequence     int64
	Provider     string
	Model        string
	Purpose      string
	InputTokens  int
	OutputTokens int
	LatencyMs    int64
	Success      bool
	ErrorMessage string
	RequestBody  string
	ResponseBody string
	CreatedAt    time.Time
}

// EventRepo provides append access to LLM request events.
type EventRepo interface {
	// AppendLLMRequest records an LLM API call event.
	AppendLLMRequest(ctx context.Context, data LLMRequestEventData) error
}

var _ EventRepo = (*Store)(nil)
