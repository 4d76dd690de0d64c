// Package behavior derives interaction metrics from a session's telemetry
// events: reaction speed, decision consistency, exploration, error recovery
// and persistence, blended into per-category behavioral scores.
package behavior

import "sort"

// Event types the processor groups on.
const (
	TypeClick         = "click"
	TypeChoice        = "choice"
	TypeKeyPress      = "keypress"
	TypePointerMove   = "mouse_move"
	TypeError         = "error"
	TypeCreativeInput = "creative_input"
)

// Default screen used to normalize pointer coverage when events do not carry
// their own dimensions.
const (
	DefaultScreenWidth  = 1920
	DefaultScreenHeight = 1080
)

// Neutral is the value every metric takes when there is nothing to measure.
const Neutral = 0.5

// Event is one telemetry event as received from a client.
type Event struct {
	Type string
	// Timestamp is capture time in fractional seconds.
	Timestamp float64
	Data      map[string]any
}

// Metrics holds the derived values, all in [0,1].
type Metrics struct {
	ReactionTime  float64 `json:"avg_reaction_time"`
	Consistency   float64 `json:"decision_consistency"`
	Exploration   float64 `json:"exploration_score"`
	ErrorRecovery float64 `json:"error_recovery"`
	Persistence   float64 `json:"persistence"`

	Logic      float64 `json:"logic_score"`
	Creativity float64 `json:"creativity_score"`
	Social     float64 `json:"social_score"`
	Technical  float64 `json:"technical_score"`
}

// Scores maps the metrics onto the five ability categories, scaled to
// 0-100.
func (m Metrics) Scores() map[string]float64 {
	return map[string]float64{
		"analytical": m.Logic * 100,
		"creative":   m.Creativity * 100,
		"social":     m.Social * 100,
		"technical":  m.Technical * 100,
		"research":   m.Exploration * 100,
	}
}

// NeutralMetrics returns the metrics for a session with no events.
func NeutralMetrics() Metrics {
	return Metrics{
		ReactionTime:  Neutral,
		Consistency:   Neutral,
		Exploration:   Neutral,
		ErrorRecovery: Neutral,
		Persistence:   Neutral,
		Logic:         Neutral,
		Creativity:    Neutral,
		Social:        Neutral,
		Technical:     Neutral,
	}
}

// Process computes metrics for the given events. Input order does not
// matter; events are sorted by timestamp first.
func Process(events []Event) Metrics {
	if len(events) == 0 {
		return NeutralMetrics()
	}

	sorted := append([]Event(nil), events...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Timestamp < sorted[j].Timestamp })
	groups := groupByType(sorted)

	m := Metrics{
		ReactionTime:  reactionTime(groups),
		Consistency:   consistency(groups[TypeChoice]),
		Exploration:   exploration(groups),
		ErrorRecovery: errorRecovery(groups),
		Persistence:   persistence(sorted),
	}
	deriveScores(&m, groups)
	return m
}

func groupByType(events []Event) map[string][]Event {
	groups := make(map[string][]Event)
	for _, e := range events {
		groups[e.Type] = append(groups[e.Type], e)
	}
	return groups
}

func deriveScores(m *Metrics, groups map[string][]Event) {
	m.Logic = clamp(0.4*m.Consistency+0.3*(1-m.ReactionTime)+0.3*m.ErrorRecovery, 0, 1)
	m.Creativity = clamp(0.5*m.Exploration+0.3*(1-m.Consistency)+0.2*creativeVariety(groups[TypeCreativeInput]), 0, 1)
	m.Social = clamp(0.4*m.ErrorRecovery+0.3*m.Persistence+0.3*Neutral, 0, 1)
	m.Technical = clamp(0.4*m.ReactionTime+0.4*m.Consistency+0.2*m.Persistence, 0, 1)
}

func clamp(v, lo, hi float64) float64 {
	return max(lo, min(hi, v))
}

func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	var sum float64
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

// number reads a numeric payload field. JSON decoding yields float64, the
// in-process collector stores ints.
func number(data map[string]any, key string) (float64, bool) {
	switch v := data[key].(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	default:
		return 0, false
	}
}

func text(data map[string]any, key, def string) string {
	if s, ok := data[key].(string); ok {
		return s
	}
	if v, ok := data[key]; ok && v != nil {
		if f, ok := number(data, key); ok {
			return formatNumber(f)
		}
	}
	return def
}
