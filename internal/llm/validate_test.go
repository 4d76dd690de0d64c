package llm

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
)

func choiceSchema() *Schema {
	return &Schema{
		Name:        "test-choice",
		Description: "One answer choice",
		Definition: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"text":     map[string]any{"type": "string"},
				"weight":   map[string]any{"type": "number", "minimum": 0, "maximum": 1},
				"category": map[string]any{"type": "string", "enum": []any{"analytical", "creative", "social"}},
			},
			"required":             []any{"text", "category"},
			"additionalProperties": false,
		},
	}
}

func TestValidateJSON(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		ok   bool
	}{
		{"valid", `{"text":"Plan it","category":"analytical","weight":0.8}`, true},
		{"optional field omitted", `{"text":"Plan it","category":"social"}`, true},
		{"missing required", `{"text":"Plan it"}`, false},
		{"unknown category", `{"text":"Plan it","category":"musical"}`, false},
		{"weight out of range", `{"text":"Plan it","category":"creative","weight":1.5}`, false},
		{"extra property", `{"text":"Plan it","category":"creative","mood":"happy"}`, false},
		{"wrong type", `{"text":7,"category":"creative"}`, false},
		{"not JSON", `{"text":`, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateJSON(choiceSchema(), json.RawMessage(tt.raw))
			if tt.ok {
				if err != nil {
					t.Fatalf("expected no error, got: %v", err)
				}
				return
			}
			var inv *ErrInvalidResponse
			if !errors.As(err, &inv) {
				t.Fatalf("expected *ErrInvalidResponse, got %T: %v", err, err)
			}
			if string(inv.Content) != tt.raw {
				t.Errorf("content = %s, want %s", inv.Content, tt.raw)
			}
		})
	}
}

func TestValidateJSON_NilSchema(t *testing.T) {
	if err := ValidateJSON(nil, json.RawMessage(`not json at all`)); err != nil {
		t.Fatalf("expected nil schema to accept anything, got: %v", err)
	}
}

func TestValidateJSON_NestedArray(t *testing.T) {
	schema := &Schema{
		Name: "test-scores",
		Definition: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"scores": map[string]any{
					"type":     "array",
					"items":    map[string]any{"type": "number"},
					"maxItems": 3,
				},
			},
			"required": []any{"scores"},
		},
	}

	if err := ValidateJSON(schema, json.RawMessage(`{"scores":[80,72.5]}`)); err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if err := ValidateJSON(schema, json.RawMessage(`{"scores":[1,2,3,4]}`)); err == nil {
		t.Fatal("expected error for too many items")
	}
	if err := ValidateJSON(schema, json.RawMessage(`{"scores":["high"]}`)); err == nil {
		t.Fatal("expected error for wrong item type")
	}
}

func TestCheckContent(t *testing.T) {
	req := Request{Schema: choiceSchema()}
	raw := json.RawMessage(`{"text":"Plan it","category":"analytical"}`)

	ctx := WithPurpose(context.Background(), PurposeAnalysis)

	var maxTok *ErrMaxTokensExceeded
	if err := checkContent(ctx, req, raw, StopMaxTokens); !errors.As(err, &maxTok) {
		t.Fatalf("expected *ErrMaxTokensExceeded, got %v", err)
	}
	var refused *ErrRefused
	if err := checkContent(ctx, req, raw, StopRefused); !errors.As(err, &refused) {
		t.Fatalf("expected *ErrRefused, got %v", err)
	}
	if refused.Reason != PurposeAnalysis+" request" {
		t.Errorf("refusal reason = %q", refused.Reason)
	}
	if err := checkContent(ctx, req, raw, StopEnd); err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
}

func TestKindOf(t *testing.T) {
	tests := []struct {
		err  error
		want Kind
	}{
		{nil, KindNone},
		{&ErrRateLimit{}, KindRateLimit},
		{&ErrInvalidResponse{Err: errors.New("bad")}, KindInvalid},
		{&ErrMaxTokensExceeded{}, KindMaxTokens},
		{&ErrRefused{Reason: "safety"}, KindRefused},
		{&ErrProviderUnavailable{}, KindUnavailable},
		{fromStatus(429, errors.New("slow down")), KindRateLimit},
		{fromStatus(503, errors.New("down")), KindUnavailable},
		{errors.New("boom"), KindOther},
	}
	for _, tt := range tests {
		if got := KindOf(tt.err); got != tt.want {
			t.Errorf("KindOf(%v) = %q, want %q", tt.err, got, tt.want)
		}
	}
}
