package adaptive

import "github.com/abhisek/aptitude/internal/llm"

// QuestionSchema defines the JSON schema for LLM question generation responses.
var QuestionSchema = &llm.Schema{
	Name:        "adaptive-question",
	Description: "A single scenario question whose choices each signal one ability category",
	Definition: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"question": map[string]any{
				"type":        "string",
				"description": "A short real-life scenario ending in a question, second person",
			},
			"choices": map[string]any{
				"type":     "array",
				"minItems": MinChoices,
				"maxItems": MaxChoices,
				"items": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"text": map[string]any{
							"type":        "string",
							"description": "One course of action, one sentence",
						},
						"category": map[string]any{
							"type":        "string",
							"enum":        []any{"analytical", "creative", "social", "technical", "research"},
							"description": "The ability this choice signals",
						},
						"weight": map[string]any{
							"type":        "number",
							"minimum":     0,
							"maximum":     1,
							"description": "How strongly the choice signals its category",
						},
					},
					"required":             []any{"text", "category", "weight"},
					"additionalProperties": false,
				},
			},
		},
		"required":             []any{"question", "choices"},
		"additionalProperties": false,
	},
}
