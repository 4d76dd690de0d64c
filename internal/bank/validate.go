package bank

import (
	"fmt"
	"strings"
)

// validate performs all structural checks on a bank definition.
// Returns a combined error describing every problem found, or nil.
func validate(stages []Stage, adaptiveStages []string) error {
	var errs []string

	if len(stages) == 0 {
		errs = append(errs, "at least one fixed stage is required")
	}

	ids := make(map[string]bool, len(stages))
	for i, s := range stages {
		prefix := fmt.Sprintf("stage %d (%q)", i, s.ID)
		if s.ID == "" {
			errs = append(errs, fmt.Sprintf("stage %d: id is empty", i))
		} else if ids[s.ID] {
			errs = append(errs, fmt.Sprintf("duplicate stage id: %q", s.ID))
		}
		ids[s.ID] = true

		if strings.TrimSpace(s.Prompt) == "" {
			errs = append(errs, prefix+": prompt is empty")
		}

		if s.FreeText {
			if len(s.Choices) > 0 {
				errs = append(errs, prefix+": free-text stages must not have choices")
			}
			continue
		}
		if len(s.Choices) < 2 {
			errs = append(errs, fmt.Sprintf("%s: needs at least 2 choices, got %d", prefix, len(s.Choices)))
		}
		for j, c := range s.Choices {
			if strings.TrimSpace(c.Text) == "" {
				errs = append(errs, fmt.Sprintf("%s choice %d: text is empty", prefix, j))
			}
			if !IsCategory(c.Category) {
				errs = append(errs, fmt.Sprintf("%s choice %d: unknown category %q", prefix, j, c.Category))
			}
			if c.Weight < 0 || c.Weight > 1 {
				errs = append(errs, fmt.Sprintf("%s choice %d: weight must be in [0, 1], got %f", prefix, j, c.Weight))
			}
		}
	}

	tags := make(map[string]bool, len(adaptiveStages))
	for _, tag := range adaptiveStages {
		if tag == "" {
			errs = append(errs, "adaptive stage tag is empty")
		} else if tags[tag] {
			errs = append(errs, fmt.Sprintf("duplicate adaptive stage tag: %q", tag))
		}
		tags[tag] = true
	}

	if len(errs) > 0 {
		return fmt.Errorf("question bank validation failed:\n  %s", strings.Join(errs, "\n  "))
	}
	return nil
}
