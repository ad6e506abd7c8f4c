package telemetry

import (
	"sync"
	"sync/atomic"

	"github.com/custodia-labs/govlens/internal/core/ports/driven"
)

// DefaultBuffer is the default queue length.
const DefaultBuffer = 1024

// Sink consumes dispatched events.
type Sink interface {
	Handle(event string, fields map[string]any)
}

// Ensure Dispatcher implements the interface.
var _ driven.Telemetry = (*Dispatcher)(nil)

type record struct {
	event  string
	fields map[string]any
}

// Dispatcher delivers events to sinks asynchronously.
type Dispatcher struct {
	ch      chan record
	sinks   []Sink
	dropped atomic.Int64

	mu     sync.RWMutex
	closed bool
	done   chan struct{}
}

// NewDispatcher starts a dispatcher. A non-positive buffer uses DefaultBuffer.
func NewDispatcher(buffer int, sinks ...Sink) *Dispatcher {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	d := &Dispatcher{
		ch:    make(chan record, buffer),
		sinks: sinks,
		done:  make(chan struct{}),
	}
	go d.run()
	return d
}

// Record implements driven.Telemetry. It never blocks.
func (d *Dispatcher) Record(event string, fields map[string]any) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		d.dropped.Add(1)
		return
	}
	select {
	case d.ch <- record{event: event, fields: fields}:
	default:
		d.dropped.Add(1)
	}
}

// Dropped returns how many events were discarded.
func (d *Dispatcher) Dropped() int64 {
	return d.dropped.Load()
}

// Close stops accepting events, delivers what is queued and waits.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		<-d.done
		return
	}
	d.closed = true
	close(d.ch)
	d.mu.Unlock()
	<-d.done
}

func (d *Dispatcher) run() {
	defer close(d.done)
	for r := range d.ch {
		for _, s := range d.sinks {
			s.Handle(r.event, r.fields)
		}
	}
}
