package server

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"github.com/abhisek/aptitude/internal/bank"
	"github.com/abhisek/aptitude/internal/behavior"
	"github.com/abhisek/aptitude/internal/llm"
	"github.com/abhisek/aptitude/internal/logger"
	"github.com/abhisek/aptitude/internal/results"
)

// Blend weights for combining model and behavioral scores.
const (
	modelWeight      = 0.6
	behavioralWeight = 0.4

	// BehavioralConfidence is the confidence of a profile computed without a
	// model.
	BehavioralConfidence = 0.6
)

// AnalysisSchema is the structured output requested from the model.
var AnalysisSchema = &llm.Schema{
	Name:        "ability-analysis",
	Description: "Ability scores, confidence and insights derived from assessment answers",
	Definition: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"ability_scores": map[string]any{
				"type": "object",
				"properties": map[string]any{
					"analytical": scoreProperty,
					"creative":   scoreProperty,
					"social":     scoreProperty,
					"technical":  scoreProperty,
					"research":   scoreProperty,
				},
				"required":             []any{"analytical", "creative", "social", "technical", "research"},
				"additionalProperties": false,
			},
			"confidence": map[string]any{"type": "number", "minimum": 0, "maximum": 1},
			"insights": map[string]any{
				"type":     "array",
				"items":    map[string]any{"type": "string"},
				"maxItems": 5,
			},
		},
		"required":             []any{"ability_scores", "confidence", "insights"},
		"additionalProperties": false,
	},
}

var scoreProperty = map[string]any{"type": "number", "minimum": 0, "maximum": 100}

const analysisSystemPrompt = `You assess a person's abilities from their answers to a short scenario-based test.
Each answer names the ability category the chosen option signals and a weight for how strongly it does.
Score five categories from 0 to 100: analytical (logic, problem solving), creative (originality),
social (empathy, communication), technical (practical implementation), research (curiosity, experimentation).
Give a confidence between 0 and 1 and up to three short insights addressed to the person.`

type analysisOutput struct {
	AbilityScores map[string]float64 `json:"ability_scores"`
	Confidence    float64            `json:"confidence"`
	Insights      []string           `json:"insights"`
}

// Analyzer scores a session. Without a provider it uses behavioral metrics
// alone.
type Analyzer struct {
	provider llm.Provider
	log      logger.Logger
}

// NewAnalyzer creates an Analyzer. provider may be nil.
func NewAnalyzer(provider llm.Provider, log logger.Logger) *Analyzer {
	if log == nil {
		log = logger.Nop()
	}
	return &Analyzer{provider: provider, log: log}
}

// Analyze produces the profile for a session. A model failure degrades to
// the behavioral-only profile.
func (a *Analyzer) Analyze(ctx context.Context, data SessionData, req results.Request) *results.Profile {
	m := behavior.Process(data.Events)
	if a.provider == nil {
		return behavioralProfile(m)
	}

	out, err := a.ask(ctx, data, req, m)
	if err != nil {
		a.log.Warn(ctx, "model analysis failed, using behavioral scores",
			logger.String("session_id", data.ID), logger.Error(err))
		return behavioralProfile(m)
	}
	return Combine(m, out.AbilityScores, out.Confidence, out.Insights)
}

func (a *Analyzer) ask(ctx context.Context, data SessionData, req results.Request, m behavior.Metrics) (*analysisOutput, error) {
	prompt, err := buildAnalysisPrompt(data, req, m)
	if err != nil {
		return nil, err
	}
	resp, err := a.provider.Generate(llm.WithSessionID(llm.WithPurpose(ctx, llm.PurposeAnalysis), data.ID),
		llm.UserPrompt(analysisSystemPrompt, prompt, AnalysisSchema, 600, 0.4))
	if err != nil {
		return nil, err
	}

	// Mock and relayed providers skip structured output, so check again.
	if err := llm.ValidateJSON(AnalysisSchema, resp.Content); err != nil {
		return nil, err
	}
	var out analysisOutput
	if err := json.Unmarshal(resp.Content, &out); err != nil {
		return nil, fmt.Errorf("decode analysis: %w", err)
	}
	return &out, nil
}

func buildAnalysisPrompt(data SessionData, req results.Request, m behavior.Metrics) (string, error) {
	responses, err := json.MarshalIndent(data.Responses, "", " ")
	if err != nil {
		return "", fmt.Errorf("encode responses: %w", err)
	}
	metrics, err := json.Marshal(m)
	if err != nil {
		return "", fmt.Errorf("encode metrics: %w", err)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Mode: %s. Stages completed: %d. Time taken: %d ms.\n\n", req.Mode, req.StagesCompleted, req.CompletionTimeMs)
	fmt.Fprintf(&b, "Answers:\n%s\n\n", responses)
	if outputs := data.CreativeOutputs(); len(outputs) > 0 {
		b.WriteString("Free-text answers:\n")
		for _, o := range outputs {
			fmt.Fprintf(&b, "- %s\n", o)
		}
		b.WriteString("\n")
	}
	fmt.Fprintf(&b, "Behavioral metrics (0-1): %s\n", metrics)
	return b.String(), nil
}

// Combine blends model scores (0-100) with behavioral scores, 60/40,
// rounded to one decimal. Categories the model left out count as 50.
func Combine(m behavior.Metrics, model map[string]float64, confidence float64, insights []string) *results.Profile {
	behavioral := m.Scores()
	p := &results.Profile{
		Confidence: clamp(confidence, 0, 1),
		Insights:   append([]string{}, insights...),
	}
	for _, c := range bank.AllCategories() {
		mv, ok := model[string(c)]
		if !ok {
			mv = 50
		}
		mv = clamp(mv, 0, 100)
		p.SetScore(c, round1(modelWeight*mv+behavioralWeight*behavioral[string(c)]))
	}
	return p
}

func behavioralProfile(m behavior.Metrics) *results.Profile {
	scores := m.Scores()
	p := &results.Profile{Confidence: BehavioralConfidence}
	for _, c := range bank.AllCategories() {
		p.SetScore(c, round1(scores[string(c)]))
	}

	top := p.Ranked()[0]
	p.Insights = []string{
		"These scores come from how you interacted with the test, not from a detailed answer review.",
		fmt.Sprintf("Your interaction pattern leans %s.", strings.ToLower(top.DisplayName())),
		reactionInsight(m.ReactionTime),
	}
	return p
}

func reactionInsight(rt float64) string {
	switch {
	case rt >= 0.7:
		return "You made decisions quickly and steadily."
	case rt <= 0.3:
		return "You took your time over decisions."
	default:
		return "Your decision pace was balanced."
	}
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
