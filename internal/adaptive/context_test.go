package adaptive

import (
	"math"
	"testing"
	"time"
)

func TestDominantCategory(t *testing.T) {
	tests := []struct {
		name     string
		history  []HistoryEntry
		wantCat  string
		wantConf float64
	}{
		{"empty", nil, "", 0},
		{"uncategorized only", []HistoryEntry{{Stage: "a"}}, "", 0},
		{"single", []HistoryEntry{{Category: "social"}}, "social", 1},
		{
			"clear winner",
			[]HistoryEntry{{Category: "creative"}, {Category: "social"}, {Category: "creative"}, {Category: ""}},
			"creative", 2.0 / 3.0,
		},
		{
			"tie goes to first seen",
			[]HistoryEntry{{Category: "technical"}, {Category: "research"}, {Category: "research"}, {Category: "technical"}},
			"technical", 0.5,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cat, conf := DominantCategory(tt.history)
			if cat != tt.wantCat {
				t.Errorf("category = %q, want %q", cat, tt.wantCat)
			}
			if math.Abs(conf-tt.wantConf) > 1e-9 {
				t.Errorf("confidence = %v, want %v", conf, tt.wantConf)
			}
		})
	}
}

func TestBuildContext(t *testing.T) {
	ctx := BuildContext(2, 90*time.Second, []HistoryEntry{
		{Category: "analytical"}, {Category: "analytical"},
	})
	if ctx.CompletedStages != 2 {
		t.Errorf("completed = %d, want 2", ctx.CompletedStages)
	}
	if ctx.TimeElapsedMs != 90000 {
		t.Errorf("elapsed = %d, want 90000", ctx.TimeElapsedMs)
	}
	if ctx.ResponsePattern.MostCommonCategory != "analytical" || ctx.ResponsePattern.Confidence != 1 {
		t.Errorf("pattern = %+v", ctx.ResponsePattern)
	}
}

func TestPriorQuestionsFiltersByStage(t *testing.T) {
	req := Request{
		StageTag: "social",
		History: []HistoryEntry{
			{Stage: "social", Question: "Q1"},
			{Stage: "creative", Question: "Q2"},
			{Stage: "social", Question: ""},
		},
	}
	got := req.PriorQuestions()
	if len(got) != 1 || got[0] != "Q1" {
		t.Fatalf("PriorQuestions = %v, want [Q1]", got)
	}
}
