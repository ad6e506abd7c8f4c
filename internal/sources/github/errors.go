package github

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	gh "github.com/google/go-github/v80/github"

	"github.com/custodia-labs/govlens/internal/core/domain"
)

// RateLimitError represents a rate limit exceeded error with reset time.
type RateLimitError struct {
	ResetAt   time.Time
	Remaining int
	Limit     int
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("github: rate limit exceeded, resets at %s", e.ResetAt.Format(time.RFC3339))
}

// APIError represents a GitHub API error response.
type APIError struct {
	StatusCode int
	Message    string
	URL        string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("github: API error %d: %s (URL: %s)", e.StatusCode, e.Message, e.URL)
}

// IsNotFound checks if the error indicates a resource was not found.
func IsNotFound(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == http.StatusNotFound
	}
	return false
}

// IsRateLimited checks if the error indicates rate limiting.
func IsRateLimited(err error) bool {
	var rateLimitErr *RateLimitError
	return errors.As(err, &rateLimitErr)
}

// wrapError converts go-github errors into the domain taxonomy. Missing
// files become *domain.NotFoundError; every other upstream failure is a
// *domain.TransientIOError that feeds the circuit breaker.
func (l *Loader) wrapError(err error, resourceID string) error {
	if err == nil {
		return nil
	}

	var cause error
	var ghErr *gh.ErrorResponse
	var rateLimitErr *gh.RateLimitError
	var abuseErr *gh.AbuseRateLimitError
	switch {
	case errors.As(err, &rateLimitErr), errors.As(err, &abuseErr):
		cause = &RateLimitError{
			ResetAt:   l.limiter.ResetTime(),
			Remaining: l.limiter.Remaining(),
			Limit:     l.limiter.Limit(),
		}
	case errors.As(err, &ghErr) && ghErr.Response != nil:
		apiErr := &APIError{StatusCode: ghErr.Response.StatusCode, Message: ghErr.Message}
		if ghErr.Response.Request != nil {
			apiErr.URL = ghErr.Response.Request.URL.String()
		}
		if apiErr.StatusCode == http.StatusNotFound {
			return &domain.NotFoundError{Kind: "resource", ID: resourceID}
		}
		cause = apiErr
	case errors.Is(err, context.Canceled):
		return err
	default:
		cause = err
	}
	return &domain.TransientIOError{Source: Name, ResourceID: resourceID, Err: cause}
}
