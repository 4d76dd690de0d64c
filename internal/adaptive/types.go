package adaptive

import (
	"time"

	"github.com/abhisek/aptitude/internal/bank"
)

// Question is one generated adaptive question.
type Question struct {
	ID       string
	StageTag string
	Text     string
	Choices  []bank.Choice

	GeneratedAt time.Time

	// DisplayTime is set by MarkDisplayed when the question is rendered;
	// response latency is measured from it.
	DisplayTime time.Time

	// Selected is the chosen choice index once answered, nil before.
	Selected     *int
	ResponseTime time.Duration
}

// Answered reports whether a choice has been recorded.
func (q *Question) Answered() bool {
	return q.Selected != nil
}

// HistoryEntry is one answered question as sent back to the question
// service for personalization.
type HistoryEntry struct {
	Stage          string `json:"stage"`
	QuestionID     string `json:"questionId"`
	Question       string `json:"question,omitempty"`
	SelectedChoice int    `json:"selectedChoice"`
	Category       string `json:"category,omitempty"`
	ResponseTimeMs int64  `json:"responseTimeMs"`
}

// ResponsePattern summarizes the dominant answer category so far.
type ResponsePattern struct {
	MostCommonCategory string  `json:"mostCommonCategory"`
	Confidence         float64 `json:"confidence"`
}

// UserContext is the personalization context for the next question.
type UserContext struct {
	CompletedStages int             `json:"completedStages"`
	TimeElapsedMs   int64           `json:"timeElapsedMs"`
	ResponsePattern ResponsePattern `json:"responsePattern"`
}

// Request asks a Source for the question of one adaptive stage.
type Request struct {
	StageTag string
	Context  UserContext
	History  []HistoryEntry
}

// PriorQuestions returns the texts of earlier questions for the same stage.
func (r Request) PriorQuestions() []string {
	var out []string
	for _, h := range r.History {
		if h.Stage == r.StageTag && h.Question != "" {
			out = append(out, h.Question)
		}
	}
	return out
}
