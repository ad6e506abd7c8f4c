package domain

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Domain errors represent the failure taxonomy callers can act on.
// Typed errors below wrap one of these so errors.Is works on either.
var (
	// ErrNotFound indicates an unknown framework, reference or resource.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrTransientIO indicates an upstream timeout or connection failure.
	// It is recovered by the fetch layer and never reaches callers.
	ErrTransientIO = errors.New("transient upstream failure")

	// ErrMalformedContent indicates a resource could not be parsed.
	ErrMalformedContent = errors.New("malformed content")

	// ErrSourceUnavailable indicates the breaker is open and no fallback exists.
	ErrSourceUnavailable = errors.New("source unavailable")

	// ErrRateLimited indicates admission was denied.
	ErrRateLimited = errors.New("rate limited")

	// ErrCancelled indicates the caller cancelled or its deadline passed.
	ErrCancelled = errors.New("cancelled")
)

// NotFoundError names the missing entity.
type NotFoundError struct {
	Kind string
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Kind, e.ID)
}

// Unwrap returns ErrNotFound.
func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// TransientIOError wraps a retryable upstream failure.
type TransientIOError struct {
	Source     string
	ResourceID string
	Err        error
}

func (e *TransientIOError) Error() string {
	return fmt.Sprintf("%s: fetching %s: %v", e.Source, e.ResourceID, e.Err)
}

// Unwrap returns the sentinel and the cause.
func (e *TransientIOError) Unwrap() []error { return []error{ErrTransientIO, e.Err} }

// MalformedContentError identifies a resource (or entry) that failed to parse.
type MalformedContentError struct {
	ResourceID string
	Reason     string
}

func (e *MalformedContentError) Error() string {
	return fmt.Sprintf("malformed content in %s: %s", e.ResourceID, e.Reason)
}

// Unwrap returns ErrMalformedContent.
func (e *MalformedContentError) Unwrap() error { return ErrMalformedContent }

// SourceUnavailableError is returned when a source cannot serve a resource.
type SourceUnavailableError struct {
	Source     string
	ResourceID string

	// FallbackServed is true when part of the requested data came from a fallback.
	FallbackServed bool
}

func (e *SourceUnavailableError) Error() string {
	msg := fmt.Sprintf("source %s unavailable for %s", e.Source, e.ResourceID)
	if e.FallbackServed {
		msg += " (partial fallback served)"
	}
	return msg
}

// Unwrap returns ErrSourceUnavailable.
func (e *SourceUnavailableError) Unwrap() error { return ErrSourceUnavailable }

// RateLimitedError reports how long a caller must wait.
type RateLimitedError struct {
	Caller            string
	Class             string
	RetryAfterSeconds int
}

func (e *RateLimitedError) Error() string {
	return fmt.Sprintf("rate limit exceeded for %s operations, retry after %ds", e.Class, e.RetryAfterSeconds)
}

// Unwrap returns ErrRateLimited.
func (e *RateLimitedError) Unwrap() error { return ErrRateLimited }

// RetryAfter returns the wait as a duration.
func (e *RateLimitedError) RetryAfter() time.Duration {
	return time.Duration(e.RetryAfterSeconds) * time.Second
}

// Wire codes for the transport boundary.
const (
	CodeNotFound          = "not_found"
	CodeInvalidInput      = "invalid_input"
	CodeMalformedContent  = "malformed_content"
	CodeSourceUnavailable = "source_unavailable"
	CodeRateLimited       = "rate_limited"
	CodeCancelled         = "cancelled"
	CodeInternal          = "internal"
)

// ErrorCode maps an error to its wire code.
func ErrorCode(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrNotFound):
		return CodeNotFound
	case errors.Is(err, ErrInvalidInput):
		return CodeInvalidInput
	case errors.Is(err, ErrMalformedContent):
		return CodeMalformedContent
	case errors.Is(err, ErrSourceUnavailable), errors.Is(err, ErrTransientIO):
		return CodeSourceUnavailable
	case errors.Is(err, ErrRateLimited):
		return CodeRateLimited
	case errors.Is(err, ErrCancelled), errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded):
		return CodeCancelled
	default:
		return CodeInternal
	}
}

// IsPermanent reports whether retrying the same request cannot succeed.
func IsPermanent(err error) bool {
	return errors.Is(err, ErrNotFound) || errors.Is(err, ErrMalformedContent) ||
		errors.Is(err, ErrInvalidInput)
}
