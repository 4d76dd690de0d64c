package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/abhisek/aptitude/internal/adaptive"
	"github.com/abhisek/aptitude/internal/bank"
	"github.com/abhisek/aptitude/internal/broker"
	"github.com/abhisek/aptitude/internal/llm"
	"github.com/abhisek/aptitude/internal/logger"
	"github.com/abhisek/aptitude/internal/metrics"
	"github.com/abhisek/aptitude/internal/results"
	"github.com/abhisek/aptitude/internal/scoring"
	"github.com/abhisek/aptitude/internal/session"
	"github.com/abhisek/aptitude/internal/store"
	"github.com/abhisek/aptitude/internal/telemetry"
	"github.com/abhisek/aptitude/internal/tracing"
)

// client is everything an assessment needs, assembled from cfg.
type client struct {
	log       logger.Logger
	bank      *bank.Bank
	scoring   *scoring.Client
	journal   *store.Store
	publisher *broker.Publisher
	collector *telemetry.Collector
	runner    *session.Runner

	metricsSrv *http.Server
	shutdown   func(context.Context) error
}

type clientOptions struct {
	baseURL string
	session session.Config
}

// buildClient wires the assessment runner. Optional collaborators (journal,
// AMQP mirror, metrics endpoint) that fail to start are logged and skipped.
func buildClient(ctx context.Context, opts clientOptions) (*client, error) {
	c := &client{log: logger.Named("client")}
	m := metrics.Default()

	shutdown, err := tracing.Setup(ctx, cfg.Tracing.Endpoint, cfg.Tracing.ServiceName)
	if err != nil {
		return nil, fmt.Errorf("setup tracing: %w", err)
	}
	c.shutdown = shutdown

	c.bank = bank.Default()
	if cfg.Bank.Path != "" {
		b, err := bank.Load(cfg.Bank.Path)
		if err != nil {
			return nil, fmt.Errorf("load question bank: %w", err)
		}
		c.bank = b
	}

	baseURL := opts.baseURL
	if baseURL == "" {
		baseURL = cfg.Scoring.BaseURL
	}
	c.scoring = scoring.New(baseURL,
		scoring.WithTimeout(cfg.Scoring.RequestTimeout),
		scoring.WithAnalyzeTimeout(cfg.Scoring.AnalyzeTimeout),
		scoring.WithLogger(logger.Named("scoring")),
		scoring.WithMetrics(m),
	)
	sinks := []telemetry.Sink{c.scoring.Sink()}

	var repo store.EventRepo
	if cfg.Journal.DSN != "" {
		st, err := store.Open(cfg.Journal.DSN)
		if err != nil {
			c.log.Warn(ctx, "journal disabled", logger.String("dsn", cfg.Journal.DSN), logger.Error(err))
		} else {
			c.journal = st
			repo = st
			sinks = append(sinks, st.Sink())
		}
	}

	if cfg.AMQP.URL != "" && cfg.AMQP.Exchange != "" {
		p, err := broker.Dial(cfg.AMQP.URL, cfg.AMQP.Exchange)
		if err != nil {
			c.log.Warn(ctx, "amqp mirror disabled", logger.String("exchange", cfg.AMQP.Exchange), logger.Error(err))
		} else {
			c.publisher = p
			sinks = append(sinks, p)
		}
	}

	c.collector = telemetry.NewCollector(
		telemetry.WithSinks(sinks...),
		telemetry.WithThrottle(cfg.Telemetry.Throttle),
		telemetry.WithQueueSize(cfg.Telemetry.QueueSize),
		telemetry.WithSendTimeout(cfg.Telemetry.SendTimeout),
		telemetry.WithLogger(logger.Named("telemetry")),
		telemetry.WithMetrics(m),
	)

	questions, err := questionSource(ctx, c.scoring, repo)
	if err != nil {
		c.Close(ctx)
		return nil, err
	}

	coord := results.NewCoordinator(c.scoring,
		results.WithTimeout(cfg.Scoring.AnalyzeTimeout),
		results.WithLogger(logger.Named("results")),
		results.WithMetrics(m),
	)

	c.runner = session.NewRunner(session.Deps{
		Bank:      c.bank,
		Starter:   c.scoring,
		Questions: questions,
		Analyzer:  coord,
		Telemetry: c.collector,
	}, opts.session,
		session.WithLogger(logger.Named("session")),
		session.WithMetrics(m),
	)

	if cfg.Metrics.Addr != "" {
		c.metricsSrv = &http.Server{
			Addr:              cfg.Metrics.Addr,
			Handler:           m.Handler(),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			if err := c.metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				c.log.Warn(ctx, "metrics endpoint stopped", logger.String("addr", cfg.Metrics.Addr), logger.Error(err))
			}
		}()
	}
	return c, nil
}

// questionSource picks the adaptive question source from cfg.Adaptive.Source.
func questionSource(ctx context.Context, sc *scoring.Client, repo store.EventRepo) (adaptive.Source, error) {
	if cfg.Adaptive.Source != "llm" {
		return adaptive.SourceFunc(sc.GenerateQuestion), nil
	}
	llmCfg, ok := cfg.LLMProviderConfig()
	if !ok {
		return nil, errors.New("adaptive.source is llm but no LLM provider is configured")
	}
	provider, err := llm.NewProvider(ctx, llmCfg, repo, logger.Named("llm"))
	if err != nil {
		return nil, fmt.Errorf("create LLM provider: %w", err)
	}
	return adaptive.NewLLMSource(provider, adaptive.DefaultLLMConfig()), nil
}

// sessionConfig maps the session section onto session.Config.
func sessionConfig() session.Config {
	return session.Config{
		Budget:          cfg.Session.Budget,
		TickInterval:    cfg.Session.TickInterval,
		FeedbackDelay:   cfg.Session.FeedbackDelay,
		ModeSelectDelay: cfg.Session.ModeSelectDelay,
		SettleDelay:     cfg.Session.SettleDelay,
		QuestionTimeout: cfg.Adaptive.Timeout,
	}
}

// Close releases everything buildClient opened. The runner must already
// have stopped.
func (c *client) Close(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, cfg.Telemetry.SendTimeout+2*time.Second)
	defer cancel()

	if c.collector != nil {
		if err := c.collector.Close(ctx); err != nil {
			c.log.Warn(ctx, "telemetry flush incomplete", logger.Error(err))
		}
	}
	if c.publisher != nil {
		if err := c.publisher.Close(); err != nil {
			c.log.Warn(ctx, "close amqp publisher", logger.Error(err))
		}
	}
	if c.journal != nil {
		if err := c.journal.Close(); err != nil {
			c.log.Warn(ctx, "close journal", logger.Error(err))
		}
	}
	if c.metricsSrv != nil {
		_ = c.metricsSrv.Shutdown(ctx)
	}
	if c.shutdown != nil {
		if err := c.shutdown(ctx); err != nil {
			c.log.Warn(ctx, "flush traces", logger.Error(err))
		}
	}
}
