package store

import (
	"context"
	"fmt"
	"time"

	entsql "entgo.io/ent/dialect/sql"
)

var llmRequestColumns = []string{
	"sequence", "provider", "model", "purpose", "input_tokens", "output_tokens",
	"latency_ms", "success", "error_message", "request_body", "response_body", "created_at",
}

func (s *Store) AppendLLMRequest(ctx context.Context, data LLMRequestEventData) error {
	seqNum, err := s.seq.Next(ctx)
	if err != nil {
		return fmt.Errorf("next sequence: %w", err)
	}
	created := data.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}

	query, args := builder().Insert(tableLLMRequests).
		Columns(llmRequestColumns...).
		Values(seqNum, data.Provider, data.Model, data.Purpose, data.InputTokens,
			data.OutputTokens, data.LatencyMs, boolInt(data.Success), data.ErrorMessage,
			data.RequestBody, data.ResponseBody, created.UnixNano()).
		Query()
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("save LLM request event: %w", err)
	}
	return nil
}

// LLMRequests returns journaled LLM requests, newest first.
func (s *Store) LLMRequests(ctx context.Context, opts QueryOpts) ([]LLMRequestEventData, error) {
	sel := builder().Select(llmRequestColumns...).
		From(builder().Table(tableLLMRequests)).
		OrderBy(entsql.Desc("sequence"))
	if opts.After > 0 {
		sel.Where(entsql.GT("sequence", opts.After))
	}
	if opts.Limit > 0 {
		sel.Limit(opts.Limit)
	}
	return s.queryLLMRequests(ctx, sel)
}

// LLMRequest returns the journaled request with the given sequence, or nil.
func (s *Store) LLMRequest(ctx context.Context, sequence int64) (*LLMRequestEventData, error) {
	sel := builder().Select(llmRequestColumns...).
		From(builder().Table(tableLLMRequests)).
		Where(entsql.EQ("sequence", sequence))
	out, err := s.queryLLMRequests(ctx, sel)
	if err != nil || len(out) == 0 {
		return nil, err
	}
	return &out[0], nil
}

func (s *Store) queryLLMRequests(ctx context.Context, sel *entsql.Selector) ([]LLMRequestEventData, error) {
	query, args := sel.Query()
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query LLM requests: %w", err)
	}
	defer rows.Close()

	var out []LLMRequestEventData
	for rows.Next() {
		var (
			d       LLMRequestEventData
			success int
			created int64
		)
		if err := rows.Scan(&d.Sequence, &d.Provider, &d.Model, &d.Purpose, &d.InputTokens,
			&d.OutputTokens, &d.LatencyMs, &success, &d.ErrorMessage, &d.RequestBody,
			&d.ResponseBody, &created); err != nil {
			return nil, fmt.Errorf("scan LLM request: %w", err)
		}
		d.Success = success != 0
		d.CreatedAt = time.Unix(0, created)
		out = append(out, d)
	}
	return out, rows.Err()
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
