package adaptive

// LLMConfig controls the behavior of the LLMSource.
type LLMConfig struct {
	// Validators is the ordered list of validators run on every generated
	// question. The first failure stops the pipeline.
	Validators []Validator

	// MaxTokens is the token budget for the LLM response.
	MaxTokens int

	// Temperature controls LLM output randomness (0.0-1.0).
	Temperature float64

	// MaxPriorQuestions caps the questions listed for deduplication.
	MaxPriorQuestions int

	// MaxHistory caps the previous answers included in the prompt.
	MaxHistory int

	// MaxAttempts bounds regeneration when a question fails a retryable
	// validator, e.g. when the model repeats itself.
	MaxAttempts int
}

// DefaultLLMConfig returns the standard validator chain and recommended
// defaults.
func DefaultLLMConfig() LLMConfig {
	return LLMConfig{
		Validators:        DefaultValidators(),
		MaxTokens:         700,
		Temperature:       0.8,
		MaxPriorQuestions: 8,
		MaxHistory:        10,
		MaxAttempts:       3,
	}
}
