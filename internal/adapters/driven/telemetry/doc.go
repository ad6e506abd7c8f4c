// Package telemetry implements driven.Telemetry.
//
// The Dispatcher queues events on a bounded channel and fans them out to
// sinks on a single goroutine. Record never blocks: when the queue is full
// the event is dropped and counted. Sinks export to Prometheus and to the
// verbose logger.
package telemetry
