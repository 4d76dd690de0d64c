package behavior

import (
	"math"
	"strconv"
)

// Gap windows, in seconds, outside of which intervals are treated as noise.
const (
	minGap         = 0.1
	maxReactionGap = 10.0
	maxActionGap   = 60.0
	recoveryWindow = 30.0
)

// reactionTime scores how quickly consecutive clicks, choices and key presses
// follow each other. Faster is higher.
func reactionTime(groups map[string][]Event) float64 {
	var gaps []float64
	for _, typ := range []string{TypeClick, TypeChoice, TypeKeyPress} {
		evs := groups[typ]
		for i := 1; i < len(evs); i++ {
			d := evs[i].Timestamp - evs[i-1].Timestamp
			if d > minGap && d < maxReactionGap {
				gaps = append(gaps, d)
			}
		}
	}
	if len(gaps) == 0 {
		return Neutral
	}
	return clamp(1-(mean(gaps)-0.5)/3, 0, 1)
}

// consistency is one minus the normalized Shannon entropy of the chosen
// categories.
func consistency(choices []Event) float64 {
	if len(choices) < 3 {
		return Neutral
	}

	counts := make(map[string]int)
	for _, e := range choices {
		counts[text(e.Data, "choice_category", "unknown")]++
	}
	if len(counts) == 1 {
		return 0.8
	}

	total := float64(len(choices))
	var entropy float64
	for _, n := range counts {
		p := float64(n) / total
		entropy -= p * math.Log2(p)
	}
	return clamp(1-entropy/math.Log2(float64(len(counts))), 0, 1)
}

// exploration combines pointer coverage of the screen with the diversity of
// choices made.
func exploration(groups map[string][]Event) float64 {
	score := Neutral

	moves := groups[TypePointerMove]
	if len(moves) > 10 {
		minX, minY := math.Inf(1), math.Inf(1)
		maxX, maxY := math.Inf(-1), math.Inf(-1)
		for _, e := range moves {
			x, _ := number(e.Data, "x")
			y, _ := number(e.Data, "y")
			minX, maxX = min(minX, x), max(maxX, x)
			minY, maxY = min(minY, y), max(maxY, y)
		}
		w, h := screenSize(moves)
		coverage := (maxX - minX) * (maxY - minY) / (w * h)
		score = max(score, min(1, coverage*2))
	}

	if choices := groups[TypeChoice]; len(choices) > 0 {
		unique := make(map[string]struct{})
		for _, e := range choices {
			unique[text(e.Data, "choice", "")] = struct{}{}
		}
		diversity := float64(len(unique)) / float64(len(choices))
		score = (score + diversity) / 2
	}
	return clamp(score, 0, 1)
}

// screenSize returns the terminal or screen dimensions the pointer events
// report, or the default screen.
func screenSize(moves []Event) (float64, float64) {
	w, h := float64(DefaultScreenWidth), float64(DefaultScreenHeight)
	for _, e := range moves {
		sw, okW := number(e.Data, "screen_w")
		sh, okH := number(e.Data, "screen_h")
		if okW && okH && sw > 0 && sh > 0 {
			return sw, sh
		}
	}
	return w, h
}

// errorRecovery scores how soon a successful action follows each error.
func errorRecovery(groups map[string][]Event) float64 {
	errs := groups[TypeError]
	if len(errs) == 0 {
		return 0.7
	}

	actions := append(append([]Event(nil), groups[TypeChoice]...), groups[TypeClick]...)
	scores := make([]float64, 0, len(errs))
	for _, e := range errs {
		best := math.Inf(1)
		for _, a := range actions {
			d := a.Timestamp - e.Timestamp
			if d > 0 && d < recoveryWindow {
				best = min(best, d)
			}
		}
		if math.IsInf(best, 1) {
			scores = append(scores, 0.2)
			continue
		}
		scores = append(scores, max(0, 1-best/recoveryWindow))
	}
	return mean(scores)
}

// persistence scores the average gap between any two consecutive actions.
// events must already be sorted.
func persistence(events []Event) float64 {
	var gaps []float64
	for i := 1; i < len(events); i++ {
		d := events[i].Timestamp - events[i-1].Timestamp
		if d > minGap && d < maxActionGap {
			gaps = append(gaps, d)
		}
	}
	if len(gaps) == 0 {
		return Neutral
	}
	return clamp(1-(mean(gaps)-2)/20, 0, 1)
}

// creativeVariety counts the distinct creative input types, saturating at
// three.
func creativeVariety(inputs []Event) float64 {
	if len(inputs) == 0 {
		return Neutral
	}
	types := make(map[string]struct{})
	for _, e := range inputs {
		types[text(e.Data, "input_type", "text")] = struct{}{}
	}
	return min(1, float64(len(types))/3)
}

func formatNumber(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
