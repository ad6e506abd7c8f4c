package services

import (
	"math"
	"sync"
	"time"

	"github.com/custodia-labs/govlens/internal/core/domain"
)

// sweepEvery is how many Allow calls pass between sweeps of idle callers.
const sweepEvery = 256

// RateLimiter enforces a sliding-window budget per caller and operation class.
// Rejected calls are never queued.
type RateLimiter struct {
	cfg domain.RateLimitSettings
	now func() time.Time

	mu    sync.Mutex
	logs  map[string][]time.Time
	calls int
}

// NewRateLimiter creates a limiter. A nil clock uses time.Now.
func NewRateLimiter(cfg domain.RateLimitSettings, now func() time.Time) *RateLimiter {
	if now == nil {
		now = time.Now
	}
	return &RateLimiter{
		cfg:  cfg,
		now:  now,
		logs: make(map[string][]time.Time),
	}
}

// Allow records a call and returns *domain.RateLimitedError when the
// caller has used its budget for the class in the current window.
func (r *RateLimiter) Allow(caller string, class domain.OperationClass) error {
	if !r.cfg.Enabled {
		return nil
	}
	budget := r.cfg.Budget(class)
	if budget <= 0 {
		return nil
	}
	window := r.cfg.Window.Std()
	now := r.now()
	key := caller + "|" + string(class)

	r.mu.Lock()
	defer r.mu.Unlock()

	r.calls++
	if r.calls%sweepEvery == 0 {
		r.sweepLocked(now, window)
	}

	log := trimWindow(r.logs[key], now, window)
	if len(log) >= budget {
		r.logs[key] = log
		wait := log[0].Add(window).Sub(now)
		secs := int(math.Ceil(wait.Seconds()))
		if secs < 1 {
			secs = 1
		}
		return &domain.RateLimitedError{Caller: caller, Class: string(class), RetryAfterSeconds: secs}
	}
	r.logs[key] = append(log, now)
	return nil
}

// trimWindow drops timestamps older than the window.
func trimWindow(log []time.Time, now time.Time, window time.Duration) []time.Time {
	cutoff := now.Add(-window)
	i := 0
	for i < len(log) && !log[i].After(cutoff) {
		i++
	}
	return log[i:]
}

// sweepLocked forgets callers with no call inside the window. Caller must hold mu.
func (r *RateLimiter) sweepLocked(now time.Time, window time.Duration) {
	for k, log := range r.logs {
		if len(trimWindow(log, now, window)) == 0 {
			delete(r.logs, k)
		}
	}
}

// Tracked returns the number of caller/class logs currently held.
func (r *RateLimiter) Tracked() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.logs)
}
