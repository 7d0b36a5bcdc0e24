package events

import (
	"context"
	"log/slog"
)

// LogPublisher writes events to a structured logger
type LogPublisher struct {
	logger *slog.Logger
}

// NewLogPublisher creates a publisher that logs at info level
func NewLogPublisher(logger *slog.Logger) *LogPublisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogPublisher{logger: logger}
}

func (p *LogPublisher) Publish(ctx context.Context, e Event) error {
	p.logger.InfoContext(ctx, "event",
		"event_id", e.ID,
		"type", e.Type,
		"payload", string(e.Payload),
	)
	return nil
}

func (p *LogPublisher) Close() error {
	return nil
}
