package results

import (
	"fmt"
	"math"
	"math/rand/v2"

	"github.com/abhisek/aptitude/internal/bank"
)

// Range is the documented band a fallback score is drawn from:
// [Base, Base+Spread).
type Range struct {
	Base   float64
	Spread float64
}

// FallbackRanges are the per-category bands used by the local generator.
var FallbackRanges = map[bank.Category]Range{
	bank.CategoryAnalytical: {Base: 60, Spread: 30},
	bank.CategoryCreative:   {Base: 55, Spread: 35},
	bank.CategorySocial:     {Base: 50, Spread: 40},
	bank.CategoryTechnical:  {Base: 58, Spread: 32},
	bank.CategoryResearch:   {Base: 52, Spread: 38},
}

// Rand is the random source the fallback draws from.
type Rand interface {
	Float64() float64
}

// Fallback generates a profile without any network collaborator.
type Fallback struct {
	rnd Rand
}

// NewFallback creates a Fallback. A nil source uses the global generator.
func NewFallback(rnd Rand) *Fallback {
	if rnd == nil {
		rnd = globalRand{}
	}
	return &Fallback{rnd: rnd}
}

type globalRand struct{}

func (globalRand) Float64() float64 { return rand.Float64() }

// Generate draws one score per category within its range, with fixed
// confidence and recommendations derived from the draw.
func (f *Fallback) Generate() *Profile {
	p := &Profile{Confidence: FallbackConfidence, Origin: OriginFallback}
	for _, c := range bank.AllCategories() {
		r := FallbackRanges[c]
		p.SetScore(c, math.Round((r.Base+f.rnd.Float64()*r.Spread)*10)/10)
	}
	p.Recommendations = Recommend(p)

	top := p.Recommendations.Strengths[0].Category
	low := p.Recommendations.DevelopmentAreas[len(p.Recommendations.DevelopmentAreas)-1].Category
	p.Insights = []string{
		fmt.Sprintf("Your strongest area appears to be %s thinking.", top.DisplayName()),
		fmt.Sprintf("%s skills have the most room to grow.", low.DisplayName()),
		"This profile was estimated locally because the scoring service was unavailable.",
	}
	return p
}
