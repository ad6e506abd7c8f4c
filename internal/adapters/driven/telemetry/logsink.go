package telemetry

import "github.com/custodia-labs/govlens/internal/logger"

// LogSink writes events through the verbose logger.
type LogSink struct{}

// Handle implements Sink.
func (LogSink) Handle(event string, fields map[string]any) {
	logger.Event(event, fields)
}
