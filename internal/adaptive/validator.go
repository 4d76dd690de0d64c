package adaptive

import (
	"fmt"
	"strings"
)

// Validator checks a generated question before it is shown.
// Implementations should be stateless and safe for concurrent use.
type Validator interface {
	// Name returns a short identifier for this validator, e.g. "structural".
	Name() string

	// Validate returns nil if the question passes, or a ValidationError.
	Validate(q *Question, req Request) *ValidationError
}

// ValidationError describes why a question failed validation.
type ValidationError struct {
	Validator string // Name of the validator that failed
	Message   string // Human-readable description of the failure
	Retryable bool   // Whether regeneration is likely to fix this
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validator %q: %s", e.Validator, e.Message)
}

// Choice count bounds for a displayable question.
const (
	MinChoices = 2
	MaxChoices = 6
)

// StructuralValidator checks that the question has text and a usable choice
// list.
type StructuralValidator struct{}

func (v *StructuralValidator) Name() string { return "structural" }

func (v *StructuralValidator) Validate(q *Question, _ Request) *ValidationError {
	if strings.TrimSpace(q.Text) == "" {
		return &ValidationError{Validator: v.Name(), Message: "question text is empty", Retryable: true}
	}
	if len(q.Text) > 600 {
		return &ValidationError{Validator: v.Name(), Message: "question text exceeds 600 characters", Retryable: true}
	}
	if len(q.Choices) < MinChoices {
		return &ValidationError{
			Validator: v.Name(),
			Message:   fmt.Sprintf("need at least %d choices, got %d", MinChoices, len(q.Choices)),
			Retryable: true,
		}
	}
	if len(q.Choices) > MaxChoices {
		return &ValidationError{
			Validator: v.Name(),
			Message:   fmt.Sprintf("at most %d choices allowed, got %d", MaxChoices, len(q.Choices)),
			Retryable: true,
		}
	}
	for i, c := range q.Choices {
		if strings.TrimSpace(c.Text) == "" {
			return &ValidationError{Validator: v.Name(), Message: fmt.Sprintf("choice %d has no text", i), Retryable: true}
		}
	}
	return nil
}

// ChoiceValidator checks choice metadata: a category tag on every choice and
// weights in [0,1].
type ChoiceValidator struct{}

func (v *ChoiceValidator) Name() string { return "choice" }

func (v *ChoiceValidator) Validate(q *Question, _ Request) *ValidationError {
	for i, c := range q.Choices {
		if c.Category == "" {
			return &ValidationError{Validator: v.Name(), Message: fmt.Sprintf("choice %d has no category", i), Retryable: true}
		}
		if c.Weight < 0 || c.Weight > 1 {
			return &ValidationError{
				Validator: v.Name(),
				Message:   fmt.Sprintf("choice %d weight %.2f outside [0,1]", i, c.Weight),
				Retryable: true,
			}
		}
	}
	return nil
}

// DedupValidator rejects a question already asked for the same stage.
type DedupValidator struct{}

func (v *DedupValidator) Name() string { return "dedup" }

func (v *DedupValidator) Validate(q *Question, req Request) *ValidationError {
	text := normalize(q.Text)
	for _, prior := range req.PriorQuestions() {
		if normalize(prior) == text {
			return &ValidationError{Validator: v.Name(), Message: "question repeats an earlier one", Retryable: true}
		}
	}
	return nil
}

// DefaultValidators is the standard chain run on every question.
func DefaultValidators() []Validator {
	return []Validator{&StructuralValidator{}, &ChoiceValidator{}, &DedupValidator{}}
}

// Validate runs validators in order and returns the first failure.
func Validate(q *Question, req Request, validators []Validator) *ValidationError {
	for _, v := range validators {
		if err := v.Validate(q, req); err != nil {
			return err
		}
	}
	return nil
}

func normalize(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}
