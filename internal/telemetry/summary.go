package telemetry

import (
	"maps"
	"time"
)

// Summary describes what a collector captured during one session.
type Summary struct {
	SessionID string
	Counts    map[string]int
	Total     int

	// Duration is last event time minus first event time; a diagnostic
	// metric only, 0 when nothing was captured.
	Duration time.Duration
}

// Data renders the summary as an event payload.
func (s Summary) Data() map[string]any {
	counts := make(map[string]any, len(s.Counts))
	for k, v := range s.Counts {
		counts[k] = v
	}
	return map[string]any{
		"counts":          counts,
		"totalEvents":     s.Total,
		"sessionDuration": s.Duration.Seconds(),
	}
}

func (c *Collector) summaryLocked() Summary {
	sum := Summary{
		SessionID: c.sessionID,
		Counts:    maps.Clone(c.counts),
		Total:     len(c.events),
	}
	if sum.Counts == nil {
		sum.Counts = map[string]int{}
	}
	if n := len(c.events); n > 0 {
		sum.Duration = c.events[n-1].Timestamp.Sub(c.events[0].Timestamp)
	}
	return sum
}
