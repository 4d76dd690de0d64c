package bank

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDefault_SeedBankPasses(t *testing.T) {
	b := Default()
	if b.Len() == 0 {
		t.Fatal("default bank has no stages")
	}
	if b.AdaptiveLen() != 6 {
		t.Errorf("AdaptiveLen = %d, want 6", b.AdaptiveLen())
	}
	last, _ := b.Stage(b.Len() - 1)
	if !last.FreeText {
		t.Errorf("last stage %q should be free text", last.ID)
	}
}

func TestStage_OutOfRange(t *testing.T) {
	b := Default()
	if _, ok := b.Stage(-1); ok {
		t.Error("Stage(-1) should not be ok")
	}
	if _, ok := b.Stage(b.Len()); ok {
		t.Error("Stage(Len) should not be ok")
	}
	if _, ok := b.AdaptiveStage(b.AdaptiveLen()); ok {
		t.Error("AdaptiveStage(AdaptiveLen) should not be ok")
	}
}

func TestStages_ReturnsCopy(t *testing.T) {
	b := Default()
	stages := b.Stages()
	stages[0].ID = "mutated"
	s, _ := b.Stage(0)
	if s.ID == "mutated" {
		t.Error("Stages() must not expose internal storage")
	}
}

func TestValidate_DetectsProblems(t *testing.T) {
	tests := []struct {
		name   string
		stages []Stage
		want   string
	}{
		{"empty", nil, "at least one fixed stage"},
		{"duplicate", []Stage{
			{ID: "a", Prompt: "p", FreeText: true},
			{ID: "a", Prompt: "p", FreeText: true},
		}, "duplicate stage id"},
		{"few choices", []Stage{
			{ID: "a", Prompt: "p", Choices: []Choice{{Text: "x", Category: "social", Weight: 0.5}}},
		}, "at least 2 choices"},
		{"unknown category", []Stage{
			{ID: "a", Prompt: "p", Choices: []Choice{
				{Text: "x", Category: "social", Weight: 0.5},
				{Text: "y", Category: "magic", Weight: 0.5},
			}},
		}, "unknown category"},
		{"weight range", []Stage{
			{ID: "a", Prompt: "p", Choices: []Choice{
				{Text: "x", Category: "social", Weight: 1.5},
				{Text: "y", Category: "creative", Weight: 0.5},
			}},
		}, "weight must be in [0, 1]"},
		{"free text with choices", []Stage{
			{ID: "a", Prompt: "p", FreeText: true, Choices: []Choice{{Text: "x", Category: "social"}}},
		}, "must not have choices"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validate(tt.stages, []string{"analytical"})
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error %q should mention %q", err, tt.want)
			}
		})
	}
}

func TestLoad_YAMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bank.yaml")
	content := `
stages:
  - id: bridge
    title: Bridge
    prompt: "A rope bridge sways. What do you check first?"
    choices:
      - {text: "The knots", category: technical, weight: 0.8}
      - {text: "The group's nerves", category: social, weight: 0.6}
  - id: note
    prompt: "Leave a note for the next traveller."
    free_text: true
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	b, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if b.Len() != 2 {
		t.Fatalf("Len = %d, want 2", b.Len())
	}
	s, _ := b.Stage(0)
	if len(s.Choices) != 2 || s.Choices[0].Category != "technical" {
		t.Errorf("unexpected first stage: %+v", s)
	}
	if n, _ := b.Stage(1); !n.FreeText {
		t.Error("second stage should be free text")
	}
	if b.AdaptiveLen() != len(seedAdaptiveStages()) {
		t.Errorf("AdaptiveLen = %d, want built-in tags", b.AdaptiveLen())
	}
}
