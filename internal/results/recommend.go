package results

import "github.com/abhisek/aptitude/internal/bank"

// Strength is a top-ranked category with what it tends to look like.
type Strength struct {
	Category        bank.Category `json:"category"`
	Score           float64       `json:"score"`
	Characteristics []string      `json:"characteristics"`
}

// DevelopmentArea is a bottom-ranked category with ways to grow it.
type DevelopmentArea struct {
	Category bank.Category `json:"category"`
	Score    float64       `json:"score"`
	Tips     []string      `json:"tips"`
}

// Recommendations is derived purely from a profile's scores.
type Recommendations struct {
	Strengths        []Strength        `json:"strengths"`
	DevelopmentAreas []DevelopmentArea `json:"developmentAreas"`
	Careers          []string          `json:"careers"`
}

var characteristics = map[bank.Category][]string{
	bank.CategoryAnalytical: {
		"Breaks complex problems into clear steps",
		"Relies on evidence and logic when deciding",
		"Notices inconsistencies others miss",
	},
	bank.CategoryCreative: {
		"Generates original ideas quickly",
		"Comfortable with ambiguity and open-ended tasks",
		"Connects concepts from unrelated fields",
	},
	bank.CategorySocial: {
		"Reads people and situations with empathy",
		"Communicates ideas clearly to different audiences",
		"Builds trust and resolves conflict",
	},
	bank.CategoryTechnical: {
		"Turns plans into working solutions",
		"Learns new tools and systems fast",
		"Enjoys hands-on troubleshooting",
	},
	bank.CategoryResearch: {
		"Driven by curiosity and open questions",
		"Designs experiments to test assumptions",
		"Persists through long investigations",
	},
}

var tips = map[bank.Category][]string{
	bank.CategoryAnalytical: {
		"Practice logic puzzles and structured problem solving",
		"Write down the reasoning behind your next big decision",
		"Try estimating before calculating",
	},
	bank.CategoryCreative: {
		"Set aside time for unstructured brainstorming",
		"Sketch or write freely without judging the result",
		"Borrow ideas from a field you know little about",
	},
	bank.CategorySocial: {
		"Practice active listening in your next conversation",
		"Join a group project or volunteer team",
		"Ask for feedback on how you communicate",
	},
	bank.CategoryTechnical: {
		"Build a small project end to end",
		"Take apart a tool or program to see how it works",
		"Follow a hands-on tutorial in a new technology",
	},
	bank.CategoryResearch: {
		"Keep a journal of questions that puzzle you",
		"Read one primary source on a topic you care about",
		"Run a small experiment to test a belief",
	},
}

var careers = map[bank.Category][]string{
	bank.CategoryAnalytical: {"Data Analyst", "Financial Analyst", "Operations Researcher", "Actuary"},
	bank.CategoryCreative:   {"Product Designer", "Art Director", "Writer", "Architect"},
	bank.CategorySocial:     {"Psychologist", "Teacher", "HR Manager", "Social Worker"},
	bank.CategoryTechnical:  {"Software Engineer", "Mechanical Engineer", "Systems Administrator", "Electronics Technician"},
	bank.CategoryResearch:   {"Research Scientist", "Laboratory Analyst", "UX Researcher", "Epidemiologist"},
}

// Recommend derives strengths (top two), development areas (bottom two) and
// careers (highest category) from the profile's scores.
func Recommend(p *Profile) *Recommendations {
	ranked := p.Ranked()
	rec := &Recommendations{}

	for _, c := range ranked[:2] {
		rec.Strengths = append(rec.Strengths, Strength{
			Category:        c,
			Score:           p.Score(c),
			Characteristics: append([]string(nil), characteristics[c]...),
		})
	}
	for _, c := range ranked[len(ranked)-2:] {
		rec.DevelopmentAreas = append(rec.DevelopmentAreas, DevelopmentArea{
			Category: c,
			Score:    p.Score(c),
			Tips:     append([]string(nil), tips[c]...),
		})
	}
	rec.Careers = append([]string(nil), careers[ranked[0]]...)
	return rec
}
