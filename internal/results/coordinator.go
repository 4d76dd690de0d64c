package results

import (
	"context"
	"errors"
	"time"

	"github.com/abhisek/aptitude/internal/logger"
	"github.com/abhisek/aptitude/internal/metrics"
)

// ErrNoScorer is returned internally when the Coordinator has no scorer.
var ErrNoScorer = errors.New("no scoring service configured")

// Request summarizes the finished session for scoring.
type Request struct {
	Mode             string `json:"mode"`
	CompletionTimeMs int64  `json:"completionTimeMs"`
	StagesCompleted  int    `json:"stagesCompleted"`
}

// Scorer is the remote scoring collaborator.
type Scorer interface {
	Analyze(ctx context.Context, sessionID string, req Request) (*Profile, error)
}

// Coordinator always produces a profile: the scorer's when it answers in
// time, the local fallback otherwise.
type Coordinator struct {
	scorer   Scorer
	fallback *Fallback
	timeout  time.Duration
	log      logger.Logger
	metrics  *metrics.Manager
}

// CoordinatorOption configures a Coordinator.
type CoordinatorOption func(*Coordinator)

// WithTimeout bounds the scorer call. Zero or negative disables the bound.
func WithTimeout(d time.Duration) CoordinatorOption {
	return func(c *Coordinator) { c.timeout = d }
}

// WithFallback replaces the fallback generator.
func WithFallback(f *Fallback) CoordinatorOption {
	return func(c *Coordinator) {
		if f != nil {
			c.fallback = f
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) CoordinatorOption {
	return func(c *Coordinator) {
		if l != nil {
			c.log = l
		}
	}
}

// WithMetrics sets the metrics manager.
func WithMetrics(m *metrics.Manager) CoordinatorOption {
	return func(c *Coordinator) {
		if m != nil {
			c.metrics = m
		}
	}
}

// NewCoordinator creates a Coordinator. A nil scorer always falls back.
func NewCoordinator(scorer Scorer, opts ...CoordinatorOption) *Coordinator {
	c := &Coordinator{
		scorer:   scorer,
		fallback: NewFallback(nil),
		timeout:  15 * time.Second,
		log:      logger.Nop(),
		metrics:  metrics.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Analyze scores the session. It never fails.
func (c *Coordinator) Analyze(ctx context.Context, sessionID string, req Request) *Profile {
	p, err := c.remote(ctx, sessionID, req)
	if err != nil {
		c.log.Warn(ctx, "scoring failed, using local profile",
			logger.String("session_id", sessionID),
			logger.Error(err),
		)
		p = c.fallback.Generate()
	}
	c.metrics.Profile(string(p.Origin))
	return p
}

func (c *Coordinator) remote(ctx context.Context, sessionID string, req Request) (*Profile, error) {
	if c.scorer == nil {
		return nil, ErrNoScorer
	}
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	p, err := c.scorer.Analyze(ctx, sessionID, req)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, ErrNoScores
	}
	if p.Insights == nil {
		p.Insights = []string{}
	}
	if p.Recommendations == nil {
		p.Recommendations = Recommend(p)
	}
	p.Origin = OriginRemote
	return p, nil
}
