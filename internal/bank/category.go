package bank

// Category is one of the five ability categories a choice can signal.
type Category string

const (
	CategoryAnalytical Category = "analytical"
	CategoryCreative   Category = "creative"
	CategorySocial     Category = "social"
	CategoryTechnical  Category = "technical"
	CategoryResearch   Category = "research"
)

// AllCategories returns the categories in display order.
func AllCategories() []Category {
	return []Category{
		CategoryAnalytical,
		CategoryCreative,
		CategorySocial,
		CategoryTechnical,
		CategoryResearch,
	}
}

// IsCategory reports whether s names one of the five categories.
func IsCategory(s string) bool {
	for _, c := range AllCategories() {
		if string(c) == s {
			return true
		}
	}
	return false
}

// DisplayName returns a human-readable name for a category.
func (c Category) DisplayName() string {
	switch c {
	case CategoryAnalytical:
		return "Analytical"
	case CategoryCreative:
		return "Creative"
	case CategorySocial:
		return "Social"
	case CategoryTechnical:
		return "Technical"
	case CategoryResearch:
		return "Research"
	default:
		return string(c)
	}
}

// Icon returns the glyph shown next to the category.
func (c Category) Icon() string {
	switch c {
	case CategoryAnalytical:
		return "🧠"
	case CategoryCreative:
		return "🎨"
	case CategorySocial:
		return "🤝"
	case CategoryTechnical:
		return "🔧"
	case CategoryResearch:
		return "🔬"
	default:
		return "•"
	}
}
