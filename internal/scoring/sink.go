package scoring

import (
	"context"

	"github.com/abhisek/aptitude/internal/telemetry"
)

// Sink adapts the client to a telemetry.Sink.
func (c *Client) Sink() telemetry.Sink {
	return &sink{client: c}
}

type sink struct {
	client *Client
}

func (s *sink) Name() string { return "scoring" }

func (s *sink) SendEvent(ctx context.Context, e telemetry.Event) error {
	return s.client.SendEvent(ctx, e.SessionID, NewEventPayload(e))
}

func (s *sink) SendResponse(ctx context.Context, r telemetry.Response) error {
	return s.client.SendResponse(ctx, r.SessionID, r.Key, r.Value)
}
