// Package server is the local Scoring and Adaptive Question Service behind
// `aptitude serve`. Sessions are kept in memory; analysis blends an optional
// model assessment with behavioral metrics.
package server

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/abhisek/aptitude/internal/adaptive"
	"github.com/abhisek/aptitude/internal/llm"
	"github.com/abhisek/aptitude/internal/logger"
	"github.com/abhisek/aptitude/internal/metrics"
)

// Server wires the HTTP routes to the session registry.
type Server struct {
	engine    *gin.Engine
	registry  *Registry
	questions adaptive.Source
	analyzer  *Analyzer
	provider  llm.Provider
	log       logger.Logger
	metrics   *metrics.Manager
	version   string
	origins   []string
	now       func() time.Time

	failQuestions bool
	failAnalyze   bool
}

// Option configures a Server.
type Option func(*Server)

// WithProvider enables model-backed question generation and analysis.
func WithProvider(p llm.Provider) Option {
	return func(s *Server) { s.provider = p }
}

// WithQuestionSource overrides the question source.
func WithQuestionSource(src adaptive.Source) Option {
	return func(s *Server) { s.questions = src }
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.log = l
		}
	}
}

// WithMetrics sets the metrics manager served at /metrics.
func WithMetrics(m *metrics.Manager) Option {
	return func(s *Server) {
		if m != nil {
			s.metrics = m
		}
	}
}

// WithVersion sets the version reported by /health.
func WithVersion(v string) Option {
	return func(s *Server) { s.version = v }
}

// WithCORSOrigins sets the allowed browser origins.
func WithCORSOrigins(origins ...string) Option {
	return func(s *Server) { s.origins = origins }
}

// WithFailures forces generate-question and/or analyze to answer 500.
func WithFailures(questions, analyze bool) Option {
	return func(s *Server) {
		s.failQuestions = questions
		s.failAnalyze = analyze
	}
}

// New builds a Server and its routes.
func New(opts ...Option) *Server {
	s := &Server{
		registry: NewRegistry(),
		log:      logger.Nop(),
		metrics:  metrics.Default(),
		version:  "dev",
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.questions == nil {
		if s.provider != nil {
			s.questions = adaptive.NewLLMSource(s.provider, adaptive.DefaultLLMConfig())
		} else {
			s.questions = adaptive.NewFallbackSource()
		}
	}
	s.analyzer = NewAnalyzer(s.provider, s.log)
	s.engine = s.routes()
	return s
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler { return s.engine }

// Registry returns the session registry.
func (s *Server) Registry() *Registry { return s.registry }

func (s *Server) routes() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), s.observe())
	if len(s.origins) > 0 {
		r.Use(cors.New(cors.Config{
			AllowOrigins:  s.origins,
			AllowMethods:  []string{"GET", "POST", "OPTIONS"},
			AllowHeaders:  []string{"Content-Type", "Content-Length", "Accept", "Origin", "X-Requested-With"},
			ExposeHeaders: []string{"Content-Length"},
			MaxAge:        12 * time.Hour,
		}))
	}

	r.GET("/", s.root)
	r.GET("/health", s.health)
	r.GET("/metrics", gin.WrapH(s.metrics.Handler()))

	r.POST("/session/start", s.startSession)
	sess := r.Group("/session/:id", s.requireSession)
	{
		sess.POST("/event", s.logEvent)
		sess.POST("/response", s.logResponse)
		sess.POST("/generate-question", s.generateQuestion)
		sess.POST("/analyze", s.analyze)
	}
	return r
}

// observe logs and counts every request.
func (s *Server) observe() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := s.now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		status := c.Writer.Status()
		d := s.now().Sub(start)
		s.metrics.HTTPRequest(c.Request.Method, route, strconv.Itoa(status), d)
		s.log.Debug(c.Request.Context(), "request",
			logger.String("method", c.Request.Method),
			logger.String("route", route),
			logger.Int("status", status),
			logger.Int64("duration_ms", d.Milliseconds()),
		)
	}
}

// Run serves on addr until ctx ends, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info(ctx, "scoring service listening", logger.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	s.log.Info(ctx, "shutting down scoring service")
	return srv.Shutdown(shutdownCtx)
}
