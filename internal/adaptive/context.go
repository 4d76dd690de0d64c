package adaptive

import "time"

// BuildContext assembles the personalization context from the number of
// completed adaptive stages, the elapsed session time and the answer history.
func BuildContext(completed int, elapsed time.Duration, history []HistoryEntry) UserContext {
	category, confidence := DominantCategory(history)
	return UserContext{
		CompletedStages: completed,
		TimeElapsedMs:   elapsed.Milliseconds(),
		ResponsePattern: ResponsePattern{
			MostCommonCategory: category,
			Confidence:         confidence,
		},
	}
}

// DominantCategory returns the most frequent answer category and its share
// of all categorized answers. Ties go to the category seen first. Returns
// ("", 0) when no answer carries a category.
func DominantCategory(history []HistoryEntry) (string, float64) {
	counts := make(map[string]int)
	var order []string
	total := 0
	for _, h := range history {
		if h.Category == "" {
			continue
		}
		if counts[h.Category] == 0 {
			order = append(order, h.Category)
		}
		counts[h.Category]++
		total++
	}
	if total == 0 {
		return "", 0
	}

	best := order[0]
	for _, c := range order[1:] {
		if counts[c] > counts[best] {
			best = c
		}
	}
	return best, float64(counts[best]) / float64(total)
}
