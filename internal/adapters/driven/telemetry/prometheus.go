package telemetry

import (
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/custodia-labs/govlens/internal/core/ports/driven"
)

// eventLabels are copied from event fields onto the event counter.
var eventLabels = []string{"event", "source", "class", "state", "op"}

// PrometheusSink exports events as Prometheus metrics on its own registry.
type PrometheusSink struct {
	registry *prometheus.Registry
	events   *prometheus.CounterVec
	latency  *prometheus.HistogramVec
}

// NewPrometheusSink creates a sink with Go runtime and process collectors.
func NewPrometheusSink() *PrometheusSink {
	reg := prometheus.NewRegistry()
	s := &PrometheusSink{
		registry: reg,
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "govlens",
			Name:      "events_total",
			Help:      "Telemetry events by name and labels",
		}, eventLabels),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "govlens",
			Name:      "load_latency_seconds",
			Help:      "Latency of upstream fetches and framework loads",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"op", "source"}),
	}
	reg.MustRegister(
		s.events,
		s.latency,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return s
}

// Handle implements Sink.
func (s *PrometheusSink) Handle(event string, fields map[string]any) {
	if event == driven.EventLoadLatency {
		if secs, ok := fields["seconds"].(float64); ok {
			op := label(fields, "op")
			if op == "" {
				op = "fetch"
			}
			s.latency.WithLabelValues(op, label(fields, "source")).Observe(secs)
		}
		return
	}
	s.events.WithLabelValues(
		event,
		label(fields, "source"),
		label(fields, "class"),
		label(fields, "state"),
		label(fields, "op"),
	).Inc()
}

// RegisterDropped exports a dispatcher's dropped-event count.
func (s *PrometheusSink) RegisterDropped(d *Dispatcher) error {
	return s.registry.Register(prometheus.NewCounterFunc(prometheus.CounterOpts{
		Namespace: "govlens",
		Name:      "telemetry_dropped_total",
		Help:      "Telemetry events dropped because the queue was full",
	}, func() float64 { return float64(d.Dropped()) }))
}

// Handler serves the registry in the Prometheus text format.
func (s *PrometheusSink) Handler() http.Handler {
	return promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{})
}

// Registry returns the sink's registry.
func (s *PrometheusSink) Registry() *prometheus.Registry {
	return s.registry
}

func label(fields map[string]any, key string) string {
	v, ok := fields[key]
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}
