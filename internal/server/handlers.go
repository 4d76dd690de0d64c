package server

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/abhisek/aptitude/internal/adaptive"
	"github.com/abhisek/aptitude/internal/behavior"
	"github.com/abhisek/aptitude/internal/logger"
	"github.com/abhisek/aptitude/internal/results"
	"github.com/abhisek/aptitude/internal/scoring"
)

const defaultStageTag = "analytical"

func (s *Server) root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": "Aptitude assessment API running", "status": "healthy"})
}

func (s *Server) health(c *gin.Context) {
	status := "disabled"
	if s.provider != nil {
		status = "ready: " + s.provider.ModelID()
	}
	c.JSON(http.StatusOK, scoring.Health{
		API:       "running",
		Version:   s.version,
		LLM:       status,
		Timestamp: scoring.Timestamp{Time: s.now().UTC()},
	})
}

func (s *Server) startSession(c *gin.Context) {
	id := s.registry.Create()
	s.log.Info(c.Request.Context(), "session started", logger.String("session_id", id))
	c.JSON(http.StatusOK, gin.H{"sessionId": id, "status": "started"})
}

// requireSession rejects requests for unknown session ids.
func (s *Server) requireSession(c *gin.Context) {
	if !s.registry.Exists(c.Param("id")) {
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "session not found"})
		return
	}
	c.Next()
}

func (s *Server) logEvent(c *gin.Context) {
	var ev scoring.EventPayload
	if err := c.ShouldBindJSON(&ev); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid event", "details": err.Error()})
		return
	}
	if ev.EventType == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "eventType is required"})
		return
	}
	s.registry.AddEvent(c.Param("id"), behavior.Event{
		Type:      ev.EventType,
		Timestamp: ev.Timestamp,
		Data:      ev.Data,
	})
	c.JSON(http.StatusOK, gin.H{"status": "logged"})
}

func (s *Server) logResponse(c *gin.Context) {
	var kv map[string]any
	if err := c.ShouldBindJSON(&kv); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid response", "details": err.Error()})
		return
	}
	s.registry.MergeResponses(c.Param("id"), kv)
	c.JSON(http.StatusOK, gin.H{"status": "logged"})
}

func (s *Server) generateQuestion(c *gin.Context) {
	if s.failQuestions {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "question generation failed", "details": "forced failure"})
		return
	}

	var req scoring.QuestionRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request", "details": err.Error()})
		return
	}
	if req.StageTag == "" {
		req.StageTag = defaultStageTag
	}

	id := c.Param("id")
	ctx := c.Request.Context()
	history := append(req.PreviousResponses, s.registry.Asked(id, req.StageTag)...)
	q, err := s.questions.Generate(ctx, id, adaptive.Request{
		StageTag: req.StageTag,
		Context:  req.UserContext,
		History:  history,
	})
	if err != nil {
		s.log.Warn(ctx, "question generation failed",
			logger.String("session_id", id),
			logger.String("stage", req.StageTag),
			logger.Error(err),
		)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "question generation failed", "details": err.Error()})
		return
	}

	s.registry.AddQuestion(id, req.StageTag, q.Text)
	generated := q.GeneratedAt
	if generated.IsZero() {
		generated = s.now()
	}
	c.JSON(http.StatusOK, scoring.QuestionResponse{
		QuestionID:  q.ID,
		StageTag:    req.StageTag,
		Question:    q.Text,
		Choices:     q.Choices,
		GeneratedAt: scoring.Timestamp{Time: generated.UTC()},
	})
}

func (s *Server) analyze(c *gin.Context) {
	if s.failAnalyze {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "analysis failed", "details": "forced failure"})
		return
	}

	var req results.Request
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request", "details": err.Error()})
		return
	}

	data, ok := s.registry.Get(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
		return
	}
	p := s.analyzer.Analyze(c.Request.Context(), data, req)
	s.log.Info(c.Request.Context(), "session analyzed",
		logger.String("session_id", data.ID),
		logger.Int("events", len(data.Events)),
		logger.Float64("confidence", p.Confidence),
	)
	c.JSON(http.StatusOK, p)
}
