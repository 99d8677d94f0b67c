// Package sinks provides progress.Sink implementations.
package sinks

import (
	"context"

	"go.uber.org/zap"

	"github.com/kaykas/booth-beacon-app-sub000/internal/progress"
)

// LogSink emits structured logs for progress streams. It is the default
// consumer when a caller asks for streaming visibility without wiring
// anything else up.
type LogSink struct {
	logger *zap.Logger
}

// NewLogSink wires a zap logger to the sink interface.
func NewLogSink(logger *zap.Logger) *LogSink {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogSink{logger: logger}
}

// Consume logs the event with structured fields.
func (s *LogSink) Consume(_ context.Context, evt progress.Event) error {
	s.logger.Info("progress event",
		zap.String("kind", string(evt.Kind)),
		zap.String("run_id", evt.RunID),
		zap.String("source", evt.SourceName),
		zap.Int("batch", evt.Batch),
		zap.Int("pages", evt.Pages),
		zap.Int("records", evt.Records),
		zap.Duration("dur", evt.Dur),
		zap.String("note", evt.Note),
	)
	return nil
}

// Close implements the Sink interface; it performs no action.
func (s *LogSink) Close(context.Context) error {
	return nil
}
