package adaptive

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/abhisek/aptitude/internal/llm"
)

func validQuestionJSON(text string) json.RawMessage {
	return json.RawMessage(`{
		"question": "` + text + `",
		"choices": [
			{"text": "Sketch a plan on paper", "category": "analytical", "weight": 0.8},
			{"text": "Build a prototype right away", "category": "technical", "weight": 0.7},
			{"text": "Ask a friend for ideas", "category": "social", "weight": 0.5}
		]
	}`)
}

func TestLLMSource_ValidQuestion(t *testing.T) {
	mock := llm.NewMockProvider(llm.MockResponse{Content: validQuestionJSON("How would you start building a treehouse?")})
	src := NewLLMSource(mock, DefaultLLMConfig())

	q, err := src.Generate(context.Background(), "s-1", Request{StageTag: "technical"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if q.Text != "How would you start building a treehouse?" {
		t.Errorf("text = %q", q.Text)
	}
	if len(q.Choices) != 3 || q.Choices[1].Category != "technical" {
		t.Errorf("choices = %+v", q.Choices)
	}
	if q.StageTag != "technical" || q.ID == "" {
		t.Errorf("stage/id not set: %+v", q)
	}

	req := mock.Calls[0]
	if req.Schema == nil || req.Schema.Name != QuestionSchema.Name {
		t.Errorf("expected question schema on request")
	}
	if !strings.Contains(req.Messages[0].Content, "technical") {
		t.Errorf("user message should mention the stage: %q", req.Messages[0].Content)
	}
}

func TestLLMSource_RepeatedQuestionIsRegenerated(t *testing.T) {
	const repeated = "What do you do on a rainy afternoon?"
	mock := llm.NewMockProvider(
		llm.MockResponse{Content: validQuestionJSON(repeated)},
		llm.MockResponse{Content: validQuestionJSON("Which puzzle would you pick first?")},
	)
	src := NewLLMSource(mock, DefaultLLMConfig())
	req := Request{
		StageTag: "creative",
		History:  []HistoryEntry{{Stage: "creative", Question: repeated}},
	}

	q, err := src.Generate(context.Background(), "s-1", req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if q.Text != "Which puzzle would you pick first?" {
		t.Errorf("text = %q", q.Text)
	}
	if mock.CallCount() != 2 {
		t.Errorf("calls = %d, want 2", mock.CallCount())
	}
}

func TestLLMSource_GivesUpAfterMaxAttempts(t *testing.T) {
	const repeated = "What do you do on a rainy afternoon?"
	mock := llm.NewMockProvider(
		llm.MockResponse{Content: validQuestionJSON(repeated)},
		llm.MockResponse{Content: validQuestionJSON(repeated)},
		llm.MockResponse{Content: validQuestionJSON(repeated)},
		llm.MockResponse{Content: validQuestionJSON("never reached")},
	)
	src := NewLLMSource(mock, DefaultLLMConfig())
	req := Request{
		StageTag: "creative",
		History:  []HistoryEntry{{Stage: "creative", Question: repeated}},
	}

	_, err := src.Generate(context.Background(), "s-1", req)
	if !IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if mock.CallCount() != 3 {
		t.Errorf("calls = %d, want 3", mock.CallCount())
	}
}

func TestLLMSource_ProviderErrorIsNotRetried(t *testing.T) {
	mock := llm.NewMockProvider(
		llm.MockResponse{Err: errors.New("connection refused")},
		llm.MockResponse{Content: validQuestionJSON("unused")},
	)
	src := NewLLMSource(mock, DefaultLLMConfig())

	_, err := src.Generate(context.Background(), "s-1", Request{StageTag: "social"})
	if err == nil {
		t.Fatal("expected error")
	}
	if mock.CallCount() != 1 {
		t.Errorf("calls = %d, want 1", mock.CallCount())
	}
}

func TestLLMSource_MalformedJSON(t *testing.T) {
	mock := llm.NewMockProvider(llm.MockResponse{Content: json.RawMessage(`"not an object"`)})
	src := NewLLMSource(mock, DefaultLLMConfig())

	if _, err := src.Generate(context.Background(), "s-1", Request{StageTag: "social"}); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestFallbackSource(t *testing.T) {
	src := NewFallbackSource()
	for _, tag := range []string{"analytical", "creative", "social", "technical", "research", "memory"} {
		q, err := src.Generate(context.Background(), "s-1", Request{StageTag: tag})
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", tag, err)
		}
		if q.StageTag != tag {
			t.Errorf("%s: stage = %q", tag, q.StageTag)
		}
		if verr := Validate(q, Request{StageTag: tag}, DefaultValidators()); verr != nil {
			t.Errorf("%s: fallback question fails validation: %v", tag, verr)
		}
	}
}
