package adaptive

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/abhisek/aptitude/internal/bank"
)

// FallbackSource serves a fixed question per stage tag. It never fails and
// never touches the network.
type FallbackSource struct {
	now func() time.Time
}

// NewFallbackSource creates a FallbackSource.
func NewFallbackSource() *FallbackSource {
	return &FallbackSource{now: time.Now}
}

type staticQuestion struct {
	text    string
	choices []bank.Choice
}

var staticQuestions = map[string]staticQuestion{
	"analytical": {
		text: "Your team's project is suddenly falling behind schedule. What do you do first?",
		choices: []bank.Choice{
			{Text: "Run a detailed analysis of the metrics and find the root cause", Category: "analytical", Weight: 0.9},
			{Text: "Hold a brainstorming session to find a new approach", Category: "creative", Weight: 0.7},
			{Text: "Talk to each team member one on one", Category: "social", Weight: 0.6},
			{Text: "Introduce new tools and processes", Category: "technical", Weight: 0.8},
		},
	},
	"creative": {
		text: "You need to explain a complex idea to an audience that has never heard of it. How do you do it?",
		choices: []bank.Choice{
			{Text: "Use metaphors, stories and visual images", Category: "creative", Weight: 0.9},
			{Text: "Build clear diagrams and a step-by-step structure", Category: "analytical", Weight: 0.7},
			{Text: "Focus on practical examples", Category: "technical", Weight: 0.6},
			{Text: "Adapt the style to each listener", Category: "social", Weight: 0.8},
		},
	},
	"social": {
		text: "A colleague strongly disagrees with your proposal in a meeting. How do you respond?",
		choices: []bank.Choice{
			{Text: "Listen calmly to their view and look for common ground", Category: "social", Weight: 0.9},
			{Text: "Argue the merits of your proposal logically", Category: "analytical", Weight: 0.7},
			{Text: "Suggest a compromise solution", Category: "creative", Weight: 0.6},
			{Text: "Show concrete examples of how it would be built", Category: "technical", Weight: 0.5},
		},
	},
	"technical": {
		text: "A tool everyone on your team relies on keeps breaking. What do you do?",
		choices: []bank.Choice{
			{Text: "Take it apart to understand exactly how it fails", Category: "technical", Weight: 0.9},
			{Text: "Collect data on when the failures happen", Category: "research", Weight: 0.7},
			{Text: "Design a workaround nobody has tried", Category: "creative", Weight: 0.6},
			{Text: "Find out who else has the problem and pool knowledge", Category: "social", Weight: 0.5},
		},
	},
	"research": {
		text: "You notice an odd pattern in data nobody asked you to look at. What next?",
		choices: []bank.Choice{
			{Text: "Set up a small experiment to test what causes it", Category: "research", Weight: 0.9},
			{Text: "Model it formally and check for errors in the data", Category: "analytical", Weight: 0.7},
			{Text: "Build a quick tool to monitor it over time", Category: "technical", Weight: 0.6},
			{Text: "Share it with colleagues and ask what they think", Category: "social", Weight: 0.5},
		},
	},
}

// Generate returns the static question for the stage, falling back to the
// analytical one for unknown tags.
func (s *FallbackSource) Generate(_ context.Context, _ string, req Request) (*Question, error) {
	sq, ok := staticQuestions[req.StageTag]
	if !ok {
		sq = staticQuestions["analytical"]
	}
	return &Question{
		ID:          uuid.NewString(),
		StageTag:    req.StageTag,
		Text:        sq.text,
		Choices:     append([]bank.Choice(nil), sq.choices...),
		GeneratedAt: s.now(),
	}, nil
}
