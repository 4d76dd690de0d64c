package adaptive

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/abhisek/aptitude/internal/bank"
	"github.com/abhisek/aptitude/internal/llm"
)

// LLMSource implements Source by prompting an LLM provider directly.
type LLMSource struct {
	provider llm.Provider
	config   LLMConfig
	now      func() time.Time
}

// NewLLMSource creates an LLMSource with the given provider and config.
func NewLLMSource(provider llm.Provider, cfg LLMConfig) *LLMSource {
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}
	return &LLMSource{provider: provider, config: cfg, now: time.Now}
}

// questionOutput is the raw LLM response before validation.
type questionOutput struct {
	Question string        `json:"question"`
	Choices  []bank.Choice `json:"choices"`
}

// Generate produces one validated question. Retryable validation failures
// (a repeated or malformed question) trigger regeneration up to MaxAttempts.
func (s *LLMSource) Generate(ctx context.Context, sessionID string, req Request) (*Question, error) {
	ctx = llm.WithSessionID(llm.WithPurpose(ctx, llm.PurposeAdaptiveQuestion), sessionID)
	msg := buildUserMessage(req, s.config)

	var lastErr error
	for attempt := 0; attempt < s.config.MaxAttempts; attempt++ {
		q, err := s.generateOnce(ctx, req, msg)
		if err == nil {
			return q, nil
		}
		lastErr = err

		var verr *ValidationError
		if !errors.As(err, &verr) || !verr.Retryable {
			return nil, err
		}
	}
	return nil, fmt.Errorf("after %d attempts: %w", s.config.MaxAttempts, lastErr)
}

func (s *LLMSource) generateOnce(ctx context.Context, req Request, msg string) (*Question, error) {
	resp, err := s.provider.Generate(ctx,
		llm.UserPrompt(systemPrompt, msg, QuestionSchema, s.config.MaxTokens, s.config.Temperature))
	if err != nil {
		return nil, fmt.Errorf("LLM generation failed: %w", err)
	}

	var raw questionOutput
	if err := json.Unmarshal(resp.Content, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse LLM response: %w", err)
	}

	q := &Question{
		ID:          uuid.NewString(),
		StageTag:    req.StageTag,
		Text:        raw.Question,
		Choices:     raw.Choices,
		GeneratedAt: s.now(),
	}
	if verr := Validate(q, req, s.config.Validators); verr != nil {
		return nil, verr
	}
	return q, nil
}
