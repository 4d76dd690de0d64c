package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"
)

// ErrRateLimit indicates the provider returned a rate limit error (429).
type ErrRateLimit struct {
	RetryAfter time.Duration
	Err        error
}

func (e *ErrRateLimit) Error() string {
	return fmt.Sprintf("rate limited (retry after %s): %v", e.RetryAfter, e.Err)
}

func (e *ErrRateLimit) Unwrap() error { return e.Err }

// ErrInvalidResponse indicates the model returned content that does not
// conform to the requested schema.
type ErrInvalidResponse struct {
	Content json.RawMessage
	Err     error
}

func (e *ErrInvalidResponse) Error() string {
	return fmt.Sprintf("invalid LLM response: %v", e.Err)
}

func (e *ErrInvalidResponse) Unwrap() error { return e.Err }

// ErrProviderUnavailable indicates the provider is down or unreachable.
type ErrProviderUnavailable struct {
	Err error
}

func (e *ErrProviderUnavailable) Error() string {
	if e.Err == nil {
		return "LLM provider unavailable"
	}
	return fmt.Sprintf("LLM provider unavailable: %v", e.Err)
}

func (e *ErrProviderUnavailable) Unwrap() error { return e.Err }

// ErrMaxTokensExceeded indicates the output was cut off at MaxTokens.
type ErrMaxTokensExceeded struct {
	Content json.RawMessage
}

func (e *ErrMaxTokensExceeded) Error() string {
	return "LLM response truncated: max tokens exceeded"
}

// ErrRefused indicates the provider declined to answer, for a refusal or a
// safety filter. Repeating the same prompt will not help.
type ErrRefused struct {
	Reason string
}

func (e *ErrRefused) Error() string {
	return fmt.Sprintf("LLM refused the request: %s", e.Reason)
}

// Kind is a coarse error class, used for retry decisions and as a log field.
type Kind string

const (
	KindNone        Kind = ""
	KindCanceled    Kind = "canceled"
	KindRateLimit   Kind = "rate_limit"
	KindInvalid     Kind = "invalid_response"
	KindMaxTokens   Kind = "max_tokens"
	KindRefused     Kind = "refused"
	KindUnavailable Kind = "unavailable"
	KindOther       Kind = "other"
)

// KindOf classifies err.
func KindOf(err error) Kind {
	var (
		rl      *ErrRateLimit
		inv     *ErrInvalidResponse
		maxTok  *ErrMaxTokensExceeded
		refused *ErrRefused
		unavail *ErrProviderUnavailable
	)
	switch {
	case err == nil:
		return KindNone
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return KindCanceled
	case errors.As(err, &rl):
		return KindRateLimit
	case errors.As(err, &maxTok):
		return KindMaxTokens
	case errors.As(err, &refused):
		return KindRefused
	case errors.As(err, &inv):
		return KindInvalid
	case errors.As(err, &unavail):
		return KindUnavailable
	default:
		return KindOther
	}
}

// fromStatus maps a provider API failure with an HTTP status onto the typed
// errors. Anything that is not a 429 counts as the provider being
// unavailable.
func fromStatus(status int, err error) error {
	if status == http.StatusTooManyRequests {
		return &ErrRateLimit{Err: err}
	}
	return &ErrProviderUnavailable{Err: err}
}
