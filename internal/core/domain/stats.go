package domain

import (
	"context"
	"time"
)

// CacheStats is a point-in-time view of the coalescing cache.
type CacheStats struct {
	Hits      int64   `json:"hits"`
	Misses    int64   `json:"misses"`
	HitRate   float64 `json:"hit_rate"`
	Entries   int     `json:"entries"`
	Evictions int64   `json:"evictions"`
	Coalesced int64   `json:"coalesced"`

	// SizeEstimate is the summed size estimate of all entries.
	SizeEstimate int64 `json:"size_estimate"`
}

// BreakerState is the circuit breaker state of one source.
type BreakerState string

// Available breaker states.
const (
	BreakerClosed   BreakerState = "closed"
	BreakerOpen     BreakerState = "open"
	BreakerHalfOpen BreakerState = "half_open"
)

// BreakerStats is a copy of one source's breaker state.
type BreakerStats struct {
	Source              string       `json:"source"`
	State               BreakerState `json:"state"`
	ConsecutiveFailures int          `json:"consecutive_failures"`
	LastTransition      time.Time    `json:"last_transition"`
}

// OperationClass groups operations for rate limiting.
type OperationClass string

// Available operation classes.
const (
	ClassSearch OperationClass = "search"
	ClassGet    OperationClass = "get"
	ClassAdmin  OperationClass = "admin"
)

type callerKey struct{}

// AnonymousCaller is used when no caller identity is attached.
const AnonymousCaller = "anonymous"

// WithCaller attaches a caller identity to the context.
func WithCaller(ctx context.Context, caller string) context.Context {
	return context.WithValue(ctx, callerKey{}, caller)
}

// CallerFrom returns the caller identity, or AnonymousCaller.
func CallerFrom(ctx context.Context) string {
	if c, ok := ctx.Value(callerKey{}).(string); ok && c != "" {
		return c
	}
	return AnonymousCaller
}
