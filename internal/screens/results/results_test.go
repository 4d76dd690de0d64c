package results

import (
	"strings"
	"testing"
	"time"

	tea "charm.land/bubbletea/v2"

	profile "github.com/abhisek/aptitude/internal/results"
)

func testProfile() *profile.Profile {
	return &profile.Profile{
		Analytical: 82,
		Creative:   64,
		Social:     55,
		Technical:  71,
		Research:   40,
		Confidence: 0.75,
		Insights:   []string{"Quick, consistent decisions"},
	}
}

func TestViewShowsScoresAndRecommendations(t *testing.T) {
	s := New(testProfile(), Summary{Mode: "fixed", Elapsed: 5 * time.Minute}, nil)
	view := s.View(100, 200)

	for _, want := range []string{"Assessment complete", "75%", "Quick, consistent decisions", "Strengths", "Careers to explore"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q", want)
		}
	}
	if strings.Contains(view, "estimated profile") {
		t.Error("remote profiles should not carry the fallback notice")
	}
	if s.recs == nil {
		t.Error("recommendations should be derived when the profile has none")
	}
	if got := s.Status(); !strings.Contains(got, "5:00") {
		t.Errorf("status should show elapsed time, got %q", got)
	}
}

func TestFallbackNoticeAndTimeout(t *testing.T) {
	p := testProfile()
	p.Origin = profile.OriginFallback
	s := New(p, Summary{TimedOut: true}, nil)
	view := s.View(100, 200)

	if !strings.Contains(view, "estimated profile") {
		t.Error("expected fallback notice")
	}
	if !strings.Contains(view, "Time's up!") {
		t.Error("expected timeout heading")
	}
}

func TestScrollIsBounded(t *testing.T) {
	s := New(testProfile(), Summary{}, nil)
	s.View(100, 5)

	for i := 0; i < 500; i++ {
		s.Update(tea.KeyPressMsg{Code: tea.KeyDown})
	}
	if s.offset != s.maxOffset() {
		t.Errorf("offset %d should stop at %d", s.offset, s.maxOffset())
	}
	if s.offset == 0 {
		t.Error("content taller than the screen should scroll")
	}
	for i := 0; i < 500; i++ {
		s.Update(tea.KeyPressMsg{Code: tea.KeyUp})
	}
	if s.offset != 0 {
		t.Errorf("expected offset 0, got %d", s.offset)
	}
}

func TestRestartAndQuit(t *testing.T) {
	restarted := 0
	s := New(testProfile(), Summary{}, func() tea.Cmd {
		restarted++
		return nil
	})

	s.Update(tea.KeyPressMsg{Code: 'r', Text: "r"})
	if restarted != 1 {
		t.Errorf("expected one restart, got %d", restarted)
	}

	_, cmd := s.Update(tea.KeyPressMsg{Code: 'q', Text: "q"})
	if cmd == nil {
		t.Fatal("expected quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("expected tea.QuitMsg")
	}
}

func TestNewSessionButton(t *testing.T) {
	if view := New(testProfile(), Summary{}, nil).View(100, 200); strings.Contains(view, "New session") {
		t.Error("button should be hidden without a restart handler")
	}

	restarted := 0
	s := New(testProfile(), Summary{}, func() tea.Cmd {
		restarted++
		return nil
	})
	if view := s.View(100, 200); !strings.Contains(view, "New session (r)") {
		t.Error("expected the new session button")
	}
	s.Update(tea.KeyPressMsg{Code: tea.KeyEnter})
	s.Update(tea.KeyPressMsg{Code: 'r', Mod: tea.ModCtrl})
	if restarted != 2 {
		t.Errorf("expected enter and ctrl+r to restart, got %d", restarted)
	}
}
