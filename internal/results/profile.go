// Package results turns a finished session into an ability profile, asking
// the scoring service first and falling back to a local generator when it
// cannot answer.
package results

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/abhisek/aptitude/internal/bank"
)

// Origin tells where a profile came from.
type Origin string

const (
	OriginRemote   Origin = "remote"
	OriginFallback Origin = "fallback"
)

// FallbackConfidence is the fixed confidence of a locally generated profile.
const FallbackConfidence = 0.7

// ErrNoScores is returned when a scoring response carries none of the
// category keys.
var ErrNoScores = errors.New("profile has no category scores")

// Profile is the scored output of a session. The JSON form is flat: one
// numeric field per category plus confidence and insights.
type Profile struct {
	Analytical float64  `json:"analytical"`
	Creative   float64  `json:"creative"`
	Social     float64  `json:"social"`
	Technical  float64  `json:"technical"`
	Research   float64  `json:"research"`
	Confidence float64  `json:"confidence"`
	Insights   []string `json:"insights"`

	Recommendations *Recommendations `json:"recommendations,omitempty"`

	// Origin is set by the Coordinator and not part of the wire form.
	Origin Origin `json:"-"`
}

// Score returns the score for a category, 0 for unknown ones.
func (p *Profile) Score(c bank.Category) float64 {
	switch c {
	case bank.CategoryAnalytical:
		return p.Analytical
	case bank.CategoryCreative:
		return p.Creative
	case bank.CategorySocial:
		return p.Social
	case bank.CategoryTechnical:
		return p.Technical
	case bank.CategoryResearch:
		return p.Research
	default:
		return 0
	}
}

// SetScore assigns the score of a category. Unknown categories are ignored.
func (p *Profile) SetScore(c bank.Category, v float64) {
	switch c {
	case bank.CategoryAnalytical:
		p.Analytical = v
	case bank.CategoryCreative:
		p.Creative = v
	case bank.CategorySocial:
		p.Social = v
	case bank.CategoryTechnical:
		p.Technical = v
	case bank.CategoryResearch:
		p.Research = v
	}
}

// Scores returns the category scores as a map.
func (p *Profile) Scores() map[bank.Category]float64 {
	out := make(map[bank.Category]float64, 5)
	for _, c := range bank.AllCategories() {
		out[c] = p.Score(c)
	}
	return out
}

// ParseProfile decodes a scoring response. At least one category key must be
// present; missing ones default to 0.
func ParseProfile(data []byte) (*Profile, error) {
	var keys map[string]json.RawMessage
	if err := json.Unmarshal(data, &keys); err != nil {
		return nil, fmt.Errorf("decode profile: %w", err)
	}

	found := false
	for _, c := range bank.AllCategories() {
		if _, ok := keys[string(c)]; ok {
			found = true
			break
		}
	}
	if !found {
		return nil, ErrNoScores
	}

	var p Profile
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("decode profile: %w", err)
	}
	if p.Insights == nil {
		p.Insights = []string{}
	}
	return &p, nil
}

// Ranked returns the categories ordered by score, highest first. Ties keep
// display order.
func (p *Profile) Ranked() []bank.Category {
	cats := bank.AllCategories()
	// insertion sort keeps equal scores in display order
	for i := 1; i < len(cats); i++ {
		for j := i; j > 0 && p.Score(cats[j]) > p.Score(cats[j-1]); j-- {
			cats[j], cats[j-1] = cats[j-1], cats[j]
		}
	}
	return cats
}

// String renders a compact one-line summary.
func (p *Profile) String() string {
	parts := make([]string, 0, 6)
	for _, c := range bank.AllCategories() {
		parts = append(parts, fmt.Sprintf("%s=%.1f", c, p.Score(c)))
	}
	parts = append(parts, fmt.Sprintf("confidence=%.2f", p.Confidence))
	return strings.Join(parts, " ")
}
