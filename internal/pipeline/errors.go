package pipeline

import (
	"fmt"

	"github.com/namelens/sumlens/internal/provider"
	"github.com/namelens/sumlens/internal/ratelimit"
)

// ProviderAttemptError and AllProvidersFailedError come from the provider
// chain. The pipeline absorbs both.
type (
	ProviderAttemptError    = provider.ProviderAttemptError
	AllProvidersFailedError = provider.AllProvidersFailedError
)

// InvalidInputError rejects a request before it is rate limited.
type InvalidInputError struct {
	Field  string
	Reason string
}

func (e *InvalidInputError) Error() string {
	if e == nil {
		return "invalid input"
	}
	if e.Field == "" {
		return e.Reason
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

// RateLimitExceededError is returned when the client has spent its quota.
type RateLimitExceededError struct {
	Decision ratelimit.Decision
}

func (e *RateLimitExceededError) Error() string {
	if e == nil {
		return "rate limit exceeded"
	}
	return fmt.Sprintf("rate limit exceeded: resets in %ds", e.Decision.ResetSeconds)
}

// PersistenceError is logged when a background write fails. It never
// reaches the caller.
type PersistenceError struct {
	RecordID string
	Err      error
}

func (e *PersistenceError) Error() string {
	if e == nil {
		return "persistence failed"
	}
	return fmt.Sprintf("persist summary %s: %v", e.RecordID, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Code returns the error code used in logs.
func (e *PersistenceError) Code() string { return "PERSISTENCE_FAILED" }
