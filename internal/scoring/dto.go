package scoring

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"time"

	"github.com/abhisek/aptitude/internal/adaptive"
	"github.com/abhisek/aptitude/internal/bank"
	"github.com/abhisek/aptitude/internal/telemetry"
)

type startResponse struct {
	SessionID       string `json:"sessionId"`
	LegacySessionID string `json:"session_id"`
}

// EventPayload is the wire form of one telemetry event.
type EventPayload struct {
	EventType string         `json:"eventType"`
	Timestamp float64        `json:"timestamp"`
	SessionID string         `json:"sessionId"`
	Data      map[string]any `json:"data"`
}

// NewEventPayload converts a captured event to its wire form.
func NewEventPayload(e telemetry.Event) EventPayload {
	data := e.Data
	if data == nil {
		data = map[string]any{}
	}
	return EventPayload{
		EventType: e.Type,
		Timestamp: e.Seconds(),
		SessionID: e.SessionID,
		Data:      data,
	}
}

// QuestionRequest is the body of generate-question.
type QuestionRequest struct {
	StageTag          string                  `json:"stageTag"`
	UserContext       adaptive.UserContext    `json:"userContext"`
	PreviousResponses []adaptive.HistoryEntry `json:"previousResponses"`
}

// QuestionResponse is the reply of generate-question.
type QuestionResponse struct {
	QuestionID  string        `json:"questionId,omitempty"`
	StageTag    string        `json:"stageTag"`
	Question    string        `json:"question"`
	Choices     []bank.Choice `json:"choices"`
	GeneratedAt Timestamp     `json:"generatedAt"`
}

// Health is the reply of GET /health.
type Health struct {
	API       string    `json:"api"`
	Version   string    `json:"version"`
	LLM       string    `json:"llm"`
	Timestamp Timestamp `json:"timestamp"`
}

// Timestamp is a diagnostic time field. It decodes RFC3339, ISO 8601 without
// a zone (read as UTC) and Unix seconds; anything else decodes to the zero
// time rather than failing the whole reply.
type Timestamp struct {
	time.Time
}

var isoLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
}

// UnmarshalJSON implements json.Unmarshaler.
func (ts *Timestamp) UnmarshalJSON(b []byte) error {
	ts.Time = time.Time{}
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		return nil
	}
	if b[0] != '"' {
		if secs, err := strconv.ParseFloat(string(b), 64); err == nil && !math.IsInf(secs, 0) && !math.IsNaN(secs) {
			whole, frac := math.Modf(secs)
			ts.Time = time.Unix(int64(whole), int64(frac*1e9)).UTC()
		}
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return nil
	}
	for _, layout := range isoLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			ts.Time = t
			return nil
		}
	}
	return nil
}
