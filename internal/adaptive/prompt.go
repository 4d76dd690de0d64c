package adaptive

import (
	"fmt"
	"strings"
)

const systemPrompt = `You are a psychologist designing an interactive ability assessment for adults.

Rules:
- Write one NEW, unique scenario question that reveals the ability described for the stage.
- The scenario is concrete and everyday, two or three sentences, written in the second person.
- Offer exactly 4 choices. Each is one plausible course of action, one sentence long.
- Exactly one choice targets the stage's ability with the highest weight; the others signal different categories.
- No choice is obviously correct or socially preferable.
- Weights are between 0 and 1 and express how strongly the choice signals its category.
- Do not repeat any question from the "already asked" list.`

// stageDescriptions maps stage tags to the ability each stage measures.
var stageDescriptions = map[string]string{
	"analytical":    "analytical thinking and logical problem solving",
	"creative":      "creative thinking and original ideas",
	"social":        "social skills, empathy and communication",
	"technical":     "technical and practical implementation skills",
	"research":      "research potential, curiosity and experimentation",
	"problem":       "structured problem solving under constraints",
	"collaboration": "collaboration and teamwork",
	"memory":        "memory and attention to detail",
}

// StageDescription returns the ability measured by stageTag.
func StageDescription(stageTag string) string {
	if d, ok := stageDescriptions[stageTag]; ok {
		return d
	}
	return "general abilities"
}

// buildUserMessage constructs the user message for one stage request.
func buildUserMessage(req Request, cfg LLMConfig) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Stage: %s\n", req.StageTag)
	fmt.Fprintf(&b, "Ability measured: %s\n", StageDescription(req.StageTag))
	fmt.Fprintf(&b, "Completed stages: %d\n", req.Context.CompletedStages)
	fmt.Fprintf(&b, "Minutes elapsed: %.1f\n", float64(req.Context.TimeElapsedMs)/60000)

	if p := req.Context.ResponsePattern; p.MostCommonCategory != "" {
		fmt.Fprintf(&b, "Dominant answer category so far: %s (%.0f%% of answers)\n",
			p.MostCommonCategory, p.Confidence*100)
	}

	b.WriteString("\nAlready asked in this session:\n")
	b.WriteString(buildDedup(req.PriorQuestions(), cfg.MaxPriorQuestions))

	b.WriteString("\n\nPrevious answers:\n")
	b.WriteString(buildHistory(req.History, cfg.MaxHistory))

	return b.String()
}

// buildDedup formats prior questions for the prompt, respecting the max limit.
// Returns "None" if there are no prior questions.
func buildDedup(prior []string, max int) string {
	if len(prior) == 0 {
		return "None"
	}
	if max > 0 && len(prior) > max {
		prior = prior[len(prior)-max:]
	}

	var b strings.Builder
	for i, q := range prior {
		fmt.Fprintf(&b, "%d. %s\n", i+1, q)
	}
	return strings.TrimRight(b.String(), "\n")
}

// buildHistory formats the most recent answers for the prompt.
func buildHistory(history []HistoryEntry, max int) string {
	if len(history) == 0 {
		return "None"
	}
	if max > 0 && len(history) > max {
		history = history[len(history)-max:]
	}

	var b strings.Builder
	for i, h := range history {
		fmt.Fprintf(&b, "%d. [%s] picked a %s answer in %.1fs\n",
			i+1, h.Stage, orNone(h.Category), float64(h.ResponseTimeMs)/1000)
	}
	return strings.TrimRight(b.String(), "\n")
}

func orNone(s string) string {
	if s == "" {
		return "uncategorized"
	}
	return s
}
