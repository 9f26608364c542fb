// Package provider calls externally hosted text-generation services in a
// fixed order and extracts a summary from whichever answers first.
package provider

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Provider performs one text-generation call.
//
// Generate returns the raw response body of a successful (2xx) call. Any
// other outcome is an error; non-2xx responses are reported as
// *ProviderError so the status and body survive for diagnostics.
type Provider interface {
	ID() string
	Generate(ctx context.Context, prompt string, maxTokens int) ([]byte, error)
}

// ProviderError is returned when a provider responds with a non-2xx status
// or cannot be called at all (StatusCode 0).
//
// RawResponse holds the response body bytes and must never include API keys.
type ProviderError struct {
	Provider    string
	StatusCode  int
	Message     string
	RawResponse []byte
}

func (e *ProviderError) Error() string {
	if e == nil {
		return "provider error"
	}
	if e.StatusCode > 0 {
		return fmt.Sprintf("%s request failed: status %d: %s", e.Provider, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s request failed: %s", e.Provider, e.Message)
}

// ProviderAttempt is the transient record of one call.
type ProviderAttempt struct {
	Provider string
	Status   int
	Body     []byte
	Duration time.Duration
	Err      error
}

// ProviderAttemptError describes why a single attempt did not produce a
// summary. The chain recovers from it by moving to the next provider.
type ProviderAttemptError struct {
	Attempt ProviderAttempt
}

func (e *ProviderAttemptError) Error() string {
	if e == nil {
		return "provider attempt failed"
	}
	a := e.Attempt
	var b strings.Builder
	b.WriteString(a.Provider)
	// ProviderError already reports its status.
	var perr *ProviderError
	if a.Status > 0 && !errors.As(a.Err, &perr) {
		fmt.Fprintf(&b, ": status %d", a.Status)
	}
	if a.Err != nil {
		b.WriteString(": ")
		b.WriteString(a.Err.Error())
	}
	return b.String()
}

func (e *ProviderAttemptError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Attempt.Err
}

// AllProvidersFailedError is returned when every configured provider failed.
// Attempts holds one record per provider in call order.
type AllProvidersFailedError struct {
	Attempts []ProviderAttempt
}

func (e *AllProvidersFailedError) Error() string {
	if e == nil || len(e.Attempts) == 0 {
		return "no external providers configured"
	}
	return fmt.Sprintf("all %d providers failed; last: %s", len(e.Attempts), e.Diagnostic())
}

// Diagnostic returns the message of the last failed attempt.
func (e *AllProvidersFailedError) Diagnostic() string {
	if e == nil || len(e.Attempts) == 0 {
		return "no external providers configured"
	}
	last := e.Attempts[len(e.Attempts)-1]
	return (&ProviderAttemptError{Attempt: last}).Error()
}

// Errors returns each attempt as a ProviderAttemptError.
func (e *AllProvidersFailedError) Errors() []error {
	if e == nil {
		return nil
	}
	out := make([]error, 0, len(e.Attempts))
	for _, attempt := range e.Attempts {
		out = append(out, &ProviderAttemptError{Attempt: attempt})
	}
	return out
}

// errEmptyExtraction marks a 2xx response with no usable text.
var errEmptyExtraction = fmt.Errorf("response contained no summary text")

func truncate(body []byte, max int) string {
	s := strings.TrimSpace(string(body))
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
