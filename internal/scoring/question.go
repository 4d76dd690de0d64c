package scoring

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/abhisek/aptitude/internal/adaptive"
	"github.com/abhisek/aptitude/internal/results"
)

// GenerateQuestion asks the Adaptive Question Service for the next question.
// It satisfies adaptive.Source through adaptive.SourceFunc.
func (c *Client) GenerateQuestion(ctx context.Context, sessionID string, req adaptive.Request) (*adaptive.Question, error) {
	body := QuestionRequest{
		StageTag:          req.StageTag,
		UserContext:       req.Context,
		PreviousResponses: req.History,
	}
	if body.PreviousResponses == nil {
		body.PreviousResponses = []adaptive.HistoryEntry{}
	}

	var out QuestionResponse
	if err := c.do(ctx, EndpointQuestion, sessionID, http.MethodPost, sessionPath(sessionID, "generate-question"), body, &out, c.timeout); err != nil {
		return nil, err
	}
	if len(out.Choices) == 0 {
		return nil, fmt.Errorf("%s: %w: empty choice list", EndpointQuestion, ErrMalformed)
	}

	q := &adaptive.Question{
		ID:          out.QuestionID,
		StageTag:    out.StageTag,
		Text:        out.Question,
		Choices:     out.Choices,
		GeneratedAt: out.GeneratedAt.Time,
	}
	if q.StageTag == "" {
		q.StageTag = req.StageTag
	}
	if q.GeneratedAt.IsZero() {
		q.GeneratedAt = time.Now()
	}
	return q, nil
}

// Analyze requests the scored profile. It implements results.Scorer.
func (c *Client) Analyze(ctx context.Context, sessionID string, req results.Request) (*results.Profile, error) {
	var raw json.RawMessage
	if err := c.do(ctx, EndpointAnalyze, sessionID, http.MethodPost, sessionPath(sessionID, "analyze"), req, &raw, c.analyzeTimeout); err != nil {
		return nil, err
	}
	p, err := results.ParseProfile(raw)
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %v", EndpointAnalyze, ErrMalformed, err)
	}
	return p, nil
}
