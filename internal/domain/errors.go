package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrorKind classifies publish failures for the orchestrator.
type ErrorKind string

const (
	// ErrRateLimited marks an error the primary API raised because it is
	// temporarily refusing requests. Recoverable by channel failover.
	ErrRateLimited ErrorKind = "rate_limited"

	// ErrTransient marks a failure worth a bounded in-channel retry.
	ErrTransient ErrorKind = "transient"

	// ErrResourceUnavailable marks a channel whose backing resource could
	// not be acquired at all (e.g. the browser failed to start).
	ErrResourceUnavailable ErrorKind = "resource_unavailable"

	// ErrPersistence marks a history record that could not be durably
	// written. Surfaced to the caller, never swallowed.
	ErrPersistence ErrorKind = "persistence"

	// ErrIdentifierRecovery marks a fallback post that went out but whose
	// platform identifier could not be determined.
	ErrIdentifierRecovery ErrorKind = "identifier_recovery"

	// ErrTotalFailure marks a run where no channel produced a main post.
	ErrTotalFailure ErrorKind = "total_failure"
)

// PublishError carries the classification alongside the underlying cause.
// RetryAfter is the server-suggested wait for rate-limit errors, zero when
// the API gave no hint.
type PublishError struct {
	Kind       ErrorKind
	Cause      error
	RetryAfter time.Duration
}

func (e *PublishError) Error() string {
	if e.Cause == nil {
		return string(e.Kind)
	}
	return fmt.Sprintf("%s: %v", e.Kind, e.Cause)
}

func (e *PublishError) Unwrap() error {
	return e.Cause
}

// NewPublishError wraps cause with a classification.
func NewPublishError(kind ErrorKind, cause error) *PublishError {
	return &PublishError{Kind: kind, Cause: cause}
}

// KindOf extracts the classification from err, defaulting to ErrTransient
// for unclassified errors.
func KindOf(err error) ErrorKind {
	var pe *PublishError
	if errors.As(err, &pe) {
		return pe.Kind
	}
	return ErrTransient
}

// RetryAfterOf extracts the server-suggested wait from err, zero when err
// carries none.
func RetryAfterOf(err error) time.Duration {
	var pe *PublishError
	if errors.As(err, &pe) {
		return pe.RetryAfter
	}
	return 0
}

// rateLimitMarkers are matched case-insensitively against the full error
// text. Misclassifying a real rate limit as transient wastes retries on a
// channel that will keep failing, so the list is deliberately broad.
var rateLimitMarkers = []string{
	"rate limit exceeded",
	"429",
	"too many requests",
	"rate limited",
	"quota exceeded",
}

// IsRateLimitError detects the rate-limit condition from the error text.
func IsRateLimitError(err error) bool {
	if err == nil {
		return false
	}
	text := strings.ToLower(err.Error())
	for _, marker := range rateLimitMarkers {
		if strings.Contains(text, marker) {
			return true
		}
	}
	return false
}
