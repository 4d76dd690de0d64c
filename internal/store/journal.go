package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	entsql "entgo.io/ent/dialect/sql"

	"github.com/abhisek/aptitude/internal/telemetry"
)

var (
	eventColumns    = []string{"sequence", "session_id", "local_seq", "event_type", "captured_at", "data"}
	responseColumns = []string{"sequence", "session_id", "response_key", "value", "recorded_at"}
)

// AppendEvent journals one captured telemetry event.
func (s *Store) AppendEvent(ctx context.Context, e telemetry.Event) error {
	seqNum, err := s.seq.Next(ctx)
	if err != nil {
		return fmt.Errorf("next sequence: %w", err)
	}
	data, err := json.Marshal(e.Data)
	if err != nil {
		return fmt.Errorf("marshal event data: %w", err)
	}

	query, args := builder().Insert(tableEvents).
		Columns(eventColumns...).
		Values(seqNum, e.SessionID, int64(e.Seq), e.Type, e.Timestamp.UnixNano(), string(data)).
		Query()
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("save telemetry event: %w", err)
	}
	return nil
}

// AppendResponse journals one keyed response. Later rows for the same key
// supersede earlier ones when read back through Responses.
func (s *Store) AppendResponse(ctx context.Context, r telemetry.Response) error {
	seqNum, err := s.seq.Next(ctx)
	if err != nil {
		return fmt.Errorf("next sequence: %w", err)
	}
	value, err := json.Marshal(r.Value)
	if err != nil {
		return fmt.Errorf("marshal response value: %w", err)
	}

	query, args := builder().Insert(tableResponses).
		Columns(responseColumns...).
		Values(seqNum, r.SessionID, r.Key, string(value), r.Timestamp.UnixNano()).
		Query()
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("save response: %w", err)
	}
	return nil
}

// Events returns journaled events in capture order.
func (s *Store) Events(ctx context.Context, opts QueryOpts) ([]EventRecord, error) {
	sel := builder().Select(eventColumns...).
		From(builder().Table(tableEvents)).
		OrderBy("sequence")
	if opts.SessionID != "" {
		sel.Where(entsql.EQ("session_id", opts.SessionID))
	}
	if opts.After > 0 {
		sel.Where(entsql.GT("sequence", opts.After))
	}
	if opts.Limit > 0 {
		sel.Limit(opts.Limit)
	}

	query, args := sel.Query()
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query telemetry events: %w", err)
	}
	defer rows.Close()

	var out []EventRecord
	for rows.Next() {
		var (
			rec      EventRecord
			localSeq int64
			captured int64
			data     string
		)
		if err := rows.Scan(&rec.Sequence, &rec.SessionID, &localSeq, &rec.Type, &captured, &data); err != nil {
			return nil, fmt.Errorf("scan telemetry event: %w", err)
		}
		rec.LocalSeq = uint64(localSeq)
		rec.CapturedAt = time.Unix(0, captured)
		if data != "" && data != "null" {
			if err := json.Unmarshal([]byte(data), &rec.Data); err != nil {
				return nil, fmt.Errorf("decode event data: %w", err)
			}
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Responses returns the latest value per key for a session.
func (s *Store) Responses(ctx context.Context, sessionID string) (map[string]any, error) {
	query, args := builder().Select("response_key", "value").
		From(builder().Table(tableResponses)).
		Where(entsql.EQ("session_id", sessionID)).
		OrderBy("sequence").
		Query()
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query responses: %w", err)
	}
	defer rows.Close()

	out := make(map[string]any)
	for rows.Next() {
		var key, raw string
		if err := rows.Scan(&key, &raw); err != nil {
			return nil, fmt.Errorf("scan response: %w", err)
		}
		var v any
		if err := json.Unmarshal([]byte(raw), &v); err != nil {
			return nil, fmt.Errorf("decode response %q: %w", key, err)
		}
		out[key] = v
	}
	return out, rows.Err()
}

// Sessions lists journaled sessions, most recently active first.
func (s *Store) Sessions(ctx context.Context, limit int) ([]SessionSummary, error) {
	sel := builder().Select(
		"session_id",
		entsql.As(entsql.Count("*"), "events"),
		entsql.As(entsql.Min("captured_at"), "first_seen"),
		entsql.As(entsql.Max("captured_at"), "last_seen"),
	).
		From(builder().Table(tableEvents)).
		GroupBy("session_id").
		OrderBy(entsql.Desc("last_seen"))
	if limit > 0 {
		sel.Limit(limit)
	}

	query, args := sel.Query()
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query sessions: %w", err)
	}
	defer rows.Close()

	var out []SessionSummary
	for rows.Next() {
		var (
			sum         SessionSummary
			first, last int64
		)
		if err := rows.Scan(&sum.SessionID, &sum.Events, &first, &last); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		sum.FirstSeen = time.Unix(0, first)
		sum.LastSeen = time.Unix(0, last)
		out = append(out, sum)
	}
	return out, rows.Err()
}

// Sink returns a telemetry sink that journals everything it receives.
func (s *Store) Sink() telemetry.Sink {
	return journalSink{s: s}
}

type journalSink struct {
	s *Store
}

func (j journalSink) Name() string { return "journal" }

func (j journalSink) SendEvent(ctx context.Context, e telemetry.Event) error {
	return j.s.AppendEvent(ctx, e)
}

func (j journalSink) SendResponse(ctx context.Context, r telemetry.Response) error {
	return j.s.AppendResponse(ctx, r)
}
