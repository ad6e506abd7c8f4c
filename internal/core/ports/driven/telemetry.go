package driven

// Event names recorded by core services.
const (
	EventCacheHit          = "cache.hit"
	EventCacheMiss         = "cache.miss"
	EventCacheEvict        = "cache.evict"
	EventCacheStaleServed  = "cache.stale_served"
	EventBreakerTransition = "breaker.transition"
	EventFallbackServed    = "fetch.fallback"
	EventFetchRetry        = "fetch.retry"
	EventLoadLatency       = "load.latency"
	EventLoadFailed        = "load.failed"
	EventRateLimited       = "ratelimit.rejected"
)

// Telemetry receives counters and events. Implementations must never block.
type Telemetry interface {
	Record(event string, fields map[string]any)
}

// NopTelemetry discards every event.
type NopTelemetry struct{}

// Record implements Telemetry.
func (NopTelemetry) Record(string, map[string]any) {}
