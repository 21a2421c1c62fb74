package llm

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Request is one text completion call.
type Request struct {
	System          string
	Prompt          string
	Temperature     float32
	MaxOutputTokens int32
}

// Client is a text completion provider. Cross-cutting concerns (rate
// limiting, retries, logging, timeouts) are applied via Middleware.
type Client interface {
	Name() string
	Generate(ctx context.Context, req Request) (string, error)
	Close() error
}

var ErrEmptyResponse = errors.New("llm: empty response from model")

// PermanentError indicates an error that will not resolve with retries.
type PermanentError struct {
	Err error
}

func (e *PermanentError) Error() string { return e.Err.Error() }
func (e *PermanentError) Unwrap() error { return e.Err }

func NewPermanentError(err error) error {
	return &PermanentError{Err: err}
}

// Error is a failed provider call. Status is the HTTP status when the
// provider reported one; RetryAfter is the provider's hint, if any.
type Error struct {
	Provider    string
	Status      int
	RateLimited bool
	RetryAfter  time.Duration
	Err         error
}

func (e *Error) Error() string {
	switch {
	case e.RateLimited:
		return fmt.Sprintf("llm %s: rate limited: %v", e.Provider, e.Err)
	case e.Status != 0:
		return fmt.Sprintf("llm %s: status %d: %v", e.Provider, e.Status, e.Err)
	default:
		return fmt.Sprintf("llm %s: %v", e.Provider, e.Err)
	}
}

func (e *Error) Unwrap() error { return e.Err }

// IsRateLimited reports whether err carries a provider rate-limit signal.
func IsRateLimited(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.RateLimited
}

// retryable reports whether another attempt could succeed.
func retryable(err error) bool {
	var p *PermanentError
	if errors.As(err, &p) {
		return false
	}
	var e *Error
	if errors.As(err, &e) {
		if e.RateLimited {
			return false
		}
		if e.Status >= 400 && e.Status < 500 && e.Status != 408 {
			return false
		}
	}
	return true
}
