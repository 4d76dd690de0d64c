package bank

func seedAdaptiveStages() []string {
	return []string{"analytical", "creative", "social", "technical", "research", "problem"}
}

func seedStages() []Stage {
	return []Stage{
		{
			ID:     "signal",
			Title:  "The Blinking Signal",
			Icon:   "📡",
			Prompt: "A beacon on a hill blinks 2, 4, 8, 16 times and then goes dark. The villagers ask you what it means. What do you do first?",
			Choices: []Choice{
				{Text: "Work out the pattern and predict the next signal", Category: "analytical", Weight: 0.9},
				{Text: "Imagine what story the beacon is trying to tell", Category: "creative", Weight: 0.7},
				{Text: "Ask the villagers what they have noticed before", Category: "social", Weight: 0.6},
				{Text: "Climb the hill and inspect the beacon mechanism", Category: "technical", Weight: 0.8},
			},
		},
		{
			ID:     "island",
			Title:  "Stranded",
			Icon:   "🏝️",
			Prompt: "Your boat drifts to an unknown island with four other travellers. Night is coming. Where do you put your energy?",
			Choices: []Choice{
				{Text: "Organise the group and agree who does what", Category: "social", Weight: 0.9},
				{Text: "Build a shelter from whatever you can find", Category: "technical", Weight: 0.8},
				{Text: "Explore the shoreline to learn what is here", Category: "research", Weight: 0.8},
				{Text: "List supplies and plan rations for three days", Category: "analytical", Weight: 0.7},
			},
		},
		{
			ID:     "workshop",
			Title:  "The Broken Machine",
			Icon:   "⚙️",
			Prompt: "An old machine in a workshop hums but does nothing. There is no manual. How do you approach it?",
			Choices: []Choice{
				{Text: "Take it apart carefully and test each part", Category: "technical", Weight: 0.9},
				{Text: "Form hypotheses about what each part does and test them", Category: "research", Weight: 0.8},
				{Text: "Reason about the symptoms to narrow down the fault", Category: "analytical", Weight: 0.8},
				{Text: "Repurpose it into something new", Category: "creative", Weight: 0.7},
			},
		},
		{
			ID:     "festival",
			Title:  "Festival Poster",
			Icon:   "🎪",
			Prompt: "The town festival needs a poster by tomorrow and the theme is still open. What is your move?",
			Choices: []Choice{
				{Text: "Sketch three bold concepts nobody has tried", Category: "creative", Weight: 0.9},
				{Text: "Ask people what the festival means to them", Category: "social", Weight: 0.7},
				{Text: "Look at what made past posters successful", Category: "research", Weight: 0.7},
				{Text: "Set up a template and a print workflow first", Category: "technical", Weight: 0.6},
			},
		},
		{
			ID:     "disagreement",
			Title:  "The Heated Meeting",
			Icon:   "💬",
			Prompt: "During a meeting a colleague rejects your idea loudly in front of everyone. How do you respond?",
			Choices: []Choice{
				{Text: "Listen calmly and look for common ground", Category: "social", Weight: 0.9},
				{Text: "Lay out the reasoning behind the idea step by step", Category: "analytical", Weight: 0.7},
				{Text: "Propose a compromise that blends both views", Category: "creative", Weight: 0.6},
				{Text: "Show a working prototype of the idea", Category: "technical", Weight: 0.6},
			},
		},
		{
			ID:     "observatory",
			Title:  "A Strange Reading",
			Icon:   "🔭",
			Prompt: "Your instrument records a signal that does not match any known source. Everyone else thinks it is noise.",
			Choices: []Choice{
				{Text: "Collect more data under different conditions", Category: "research", Weight: 0.9},
				{Text: "Check the analysis for statistical mistakes", Category: "analytical", Weight: 0.8},
				{Text: "Recalibrate the instrument and rule out faults", Category: "technical", Weight: 0.7},
				{Text: "Share it with others and gather opinions", Category: "social", Weight: 0.5},
			},
		},
		{
			ID:       "invention",
			Title:    "Your Invention",
			Icon:     "💡",
			Prompt:   "Describe, in a sentence or two, an invention that would make your mornings better.",
			FreeText: true,
		},
	}
}
