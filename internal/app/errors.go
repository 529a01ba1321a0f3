/**
 * @description
 * This file defines the error taxonomy surfaced by the application service.
 * Every failure a handler needs to map to a status code is either a sentinel
 * error or a typed error carrying the details the API contract requires
 * (required vs. available credits, rate-limit reset time).
 */

package app

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrBotVerificationRequired = errors.New("challenge token required for anonymous requests")
	ErrBotVerificationFailed   = errors.New("bot verification failed")
	ErrUpstreamSubmission      = errors.New("upstream submission failed")
	ErrCancellationNotAllowed  = errors.New("subscription cancellation requires a paid tier")
)

// ValidationError reports a malformed or missing request field. It is surfaced
// verbatim to the caller and never retried.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return "validation failed: " + e.Reason
}

// InsufficientCreditsError reports that the ledger balance does not cover the
// model's credit cost.
type InsufficientCreditsError struct {
	Required  int64
	Available int64
}

func (e *InsufficientCreditsError) Error() string {
	return fmt.Sprintf("insufficient credits: required %d, available %d", e.Required, e.Available)
}

// RateLimitError reports an exhausted anonymous usage window.
type RateLimitError struct {
	Limit   int
	ResetAt time.Time
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limit of %d reached, resets at %s", e.Limit, e.ResetAt.UTC().Format(time.RFC3339))
}
