package services

import (
	"sync"
	"time"

	"github.com/custodia-labs/govlens/internal/core/domain"
	"github.com/custodia-labs/govlens/internal/core/ports/driven"
)

// admission is the breaker's decision for one call.
type admission int

const (
	// admitPass lets the call through while Closed.
	admitPass admission = iota
	// admitProbe lets the single HalfOpen probe through.
	admitProbe
	// admitReject short-circuits to the fallback.
	admitReject
)

// CircuitBreaker tracks the health of one live source.
//
// Thread Safety:
//
//	All transitions happen under mu, so at most one probe is admitted
//	per HalfOpen period.
type CircuitBreaker struct {
	source    string
	threshold int
	cooldown  time.Duration
	now       func() time.Time
	telemetry driven.Telemetry

	mu             sync.Mutex
	state          domain.BreakerState
	failures       int
	lastTransition time.Time
	probing        bool
}

// NewCircuitBreaker creates a Closed breaker.
func NewCircuitBreaker(
	source string, threshold int, cooldown time.Duration, now func() time.Time, telemetry driven.Telemetry,
) *CircuitBreaker {
	if now == nil {
		now = time.Now
	}
	if telemetry == nil {
		telemetry = driven.NopTelemetry{}
	}
	return &CircuitBreaker{
		source:         source,
		threshold:      threshold,
		cooldown:       cooldown,
		now:            now,
		telemetry:      telemetry,
		state:          domain.BreakerClosed,
		lastTransition: now(),
	}
}

// admit decides whether a call may reach the live loader.
func (b *CircuitBreaker) admit() admission {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case domain.BreakerClosed:
		return admitPass
	case domain.BreakerOpen:
		if b.now().Sub(b.lastTransition) < b.cooldown {
			return admitReject
		}
		b.transitionLocked(domain.BreakerHalfOpen)
		b.probing = true
		return admitProbe
	case domain.BreakerHalfOpen:
		if b.probing {
			return admitReject
		}
		b.probing = true
		return admitProbe
	default:
		return admitReject
	}
}

// recordAttemptFailure counts one failed attempt of a Closed call.
// It returns false once the breaker has opened, ending further retries.
func (b *CircuitBreaker) recordAttemptFailure() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state != domain.BreakerClosed {
		return false
	}
	b.failures++
	if b.failures >= b.threshold {
		b.transitionLocked(domain.BreakerOpen)
		return false
	}
	return true
}

// recordSuccess resets the failure counter. Only the probe may close an
// Open or HalfOpen breaker; a late success from a call admitted while
// Closed is ignored once the breaker has left Closed.
func (b *CircuitBreaker) recordSuccess(probe bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !probe {
		if b.state == domain.BreakerClosed {
			b.failures = 0
		}
		return
	}
	b.probing = false
	b.failures = 0
	if b.state != domain.BreakerClosed {
		b.transitionLocked(domain.BreakerClosed)
	}
}

// recordProbeFailure reopens the breaker and restarts the cooldown.
func (b *CircuitBreaker) recordProbeFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.probing = false
	b.failures++
	b.transitionLocked(domain.BreakerOpen)
}

// releaseProbe gives up a probe slot without a verdict, e.g. on NotFound.
func (b *CircuitBreaker) releaseProbe() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.probing = false
}

// transitionLocked moves to a new state. Caller must hold mu.
func (b *CircuitBreaker) transitionLocked(to domain.BreakerState) {
	from := b.state
	b.state = to
	b.lastTransition = b.now()
	if to == domain.BreakerClosed {
		b.failures = 0
	}
	b.telemetry.Record(driven.EventBreakerTransition, map[string]any{
		"source": b.source,
		"from":   string(from),
		"state":  string(to),
	})
}

// State returns the current state.
func (b *CircuitBreaker) State() domain.BreakerState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Stats returns a copy of the breaker state.
func (b *CircuitBreaker) Stats() domain.BreakerStats {
	b.mu.Lock()
	defer b.mu.Unlock()
	return domain.BreakerStats{
		Source:              b.source,
		State:               b.state,
		ConsecutiveFailures: b.failures,
		LastTransition:      b.lastTransition,
	}
}
