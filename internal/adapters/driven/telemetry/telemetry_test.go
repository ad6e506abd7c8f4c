package telemetry

import (
	"io"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/govlens/internal/core/ports/driven"
)

type recordingSink struct {
	mu     sync.Mutex
	events []string
	block  chan struct{}
}

func (r *recordingSink) Handle(event string, _ map[string]any) {
	if r.block != nil {
		<-r.block
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

func (r *recordingSink) got() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.events...)
}

func TestDispatcher_FansOut(t *testing.T) {
	a, b := &recordingSink{}, &recordingSink{}
	d := NewDispatcher(8, a, b)

	d.Record(driven.EventCacheHit, nil)
	d.Record(driven.EventCacheMiss, nil)
	d.Close()

	assert.Equal(t, []string{driven.EventCacheHit, driven.EventCacheMiss}, a.got())
	assert.Equal(t, a.got(), b.got())
	assert.Zero(t, d.Dropped())
}

func TestDispatcher_NeverBlocks(t *testing.T) {
	sink := &recordingSink{block: make(chan struct{})}
	d := NewDispatcher(2, sink)

	done := make(chan struct{})
	go func() {
		for range 100 {
			d.Record(driven.EventCacheHit, nil)
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Record blocked on a full queue")
	}
	assert.GreaterOrEqual(t, d.Dropped(), int64(97))

	close(sink.block)
	d.Close()
	d.Record(driven.EventCacheHit, nil)
	d.Close()
	assert.GreaterOrEqual(t, d.Dropped(), int64(98), "events after close are dropped")
}

func TestPrometheusSink(t *testing.T) {
	s := NewPrometheusSink()

	s.Handle(driven.EventBreakerTransition, map[string]any{"source": "github", "state": "open", "from": "closed"})
	s.Handle(driven.EventBreakerTransition, map[string]any{"source": "github", "state": "open"})
	s.Handle(driven.EventRateLimited, map[string]any{"class": "search"})
	s.Handle(driven.EventFetchRetry, map[string]any{"source": "github", "attempt": 2})
	s.Handle(driven.EventLoadLatency, map[string]any{"source": "github", "seconds": 0.2})
	s.Handle(driven.EventLoadLatency, map[string]any{"op": "framework", "seconds": 1.5})

	assert.InDelta(t, 2, testutil.ToFloat64(
		s.events.WithLabelValues(driven.EventBreakerTransition, "github", "", "open", "")), 1e-9)
	assert.InDelta(t, 1, testutil.ToFloat64(
		s.events.WithLabelValues(driven.EventRateLimited, "", "search", "", "")), 1e-9)
	assert.Equal(t, 2, testutil.CollectAndCount(s.latency))

	d := NewDispatcher(1)
	require.NoError(t, s.RegisterDropped(d))
	d.Close()

	srv := httptest.NewServer(s.Handler())
	defer srv.Close()
	resp, err := srv.Client().Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	text := string(body)
	assert.True(t, strings.Contains(text, "govlens_events_total"))
	assert.True(t, strings.Contains(text, "govlens_load_latency_seconds_bucket"))
	assert.True(t, strings.Contains(text, "govlens_telemetry_dropped_total"))
}

func TestLabel(t *testing.T) {
	f := map[string]any{"s": "x", "n": 3, "nil": nil}
	assert.Equal(t, "x", label(f, "s"))
	assert.Equal(t, "3", label(f, "n"))
	assert.Equal(t, "", label(f, "nil"))
	assert.Equal(t, "", label(f, "missing"))
}

func TestLogSink(t *testing.T) {
	assert.NotPanics(t, func() {
		LogSink{}.Handle(driven.EventCacheHit, map[string]any{"class": "search"})
	})
}
