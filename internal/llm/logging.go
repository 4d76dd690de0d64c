package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/abhisek/aptitude/internal/logger"
	"github.com/abhisek/aptitude/internal/store"
)

// LoggingProvider is a decorator that logs every LLM request and, when a
// repo is set, journals it.
type LoggingProvider struct {
	inner Provider
	repo  store.EventRepo
	log   logger.Logger
	now   func() time.Time
}

// WithLogging wraps a Provider with request logging.
func WithLogging(p Provider, repo store.EventRepo, log logger.Logger) Provider {
	if log == nil {
		log = logger.Nop()
	}
	return &LoggingProvider{inner: p, repo: repo, log: log.Named("llm"), now: time.Now}
}

func (l *LoggingProvider) Generate(ctx context.Context, req Request) (*Response, error) {
	start := l.now()
	purpose := PurposeFrom(ctx)

	resp, err := l.inner.Generate(ctx, req)

	latency := l.now().Sub(start)
	data := store.LLMRequestEventData{
		Provider:    l.inner.ModelID(),
		Model:       l.inner.ModelID(),
		Purpose:     purpose,
		LatencyMs:   latency.Milliseconds(),
		Success:     err == nil,
		RequestBody: serializeRequest(req),
		CreatedAt:   start,
	}
	if resp != nil {
		data.InputTokens = resp.Usage.InputTokens
		data.OutputTokens = resp.Usage.OutputTokens
		data.Model = resp.Model
		data.ResponseBody = string(resp.Content)
	}

	fields := []logger.Field{
		logger.String("purpose", purpose),
		logger.String("session_id", SessionIDFrom(ctx)),
		logger.String("model", data.Model),
		logger.Int64("latency_ms", data.LatencyMs),
		logger.Int("input_tokens", data.InputTokens),
		logger.Int("output_tokens", data.OutputTokens),
	}
	if err != nil {
		data.ErrorMessage = err.Error()
		l.log.Warn(ctx, "llm request failed", append(fields, logger.String("kind", string(KindOf(err))), logger.Error(err))...)
	} else {
		l.log.Debug(ctx, "llm request", fields...)
	}

	// A journal failure never fails the request.
	if l.repo != nil {
		if logErr := l.repo.AppendLLMRequest(ctx, data); logErr != nil {
			l.log.Warn(ctx, "failed to journal llm request", logger.Error(logErr))
		}
	}

	return resp, err
}

func (l *LoggingProvider) ModelID() string {
	return l.inner.ModelID()
}

// serializeRequest builds a readable representation of the LLM request.
func serializeRequest(req Request) string {
	var b strings.Builder

	if req.System != "" {
		b.WriteString("[system]\n")
		b.WriteString(req.System)
		b.WriteString("\n\n")
	}

	for _, m := range req.Messages {
		fmt.Fprintf(&b, "[%s]\n", m.Role)
		b.WriteString(m.Content)
		b.WriteString("\n\n")
	}

	if req.Schema != nil {
		if def, err := json.Marshal(req.Schema.Definition); err == nil {
			fmt.Fprintf(&b, "[schema: %s]\n", req.Schema.Name)
			b.Write(def)
			b.WriteString("\n")
		}
	}

	return b.String()
}
