package events

import (
	"context"
	"log/slog"
)

// Publisher delivers envelopes to a broker.
type Publisher interface {
	Publish(ctx context.Context, env Envelope) error
	Close() error
}

// LogPublisher writes events to the application log instead of a broker.
type LogPublisher struct {
	logger *slog.Logger
}

func NewLogPublisher(logger *slog.Logger) *LogPublisher {
	return &LogPublisher{logger: logger}
}

func (p *LogPublisher) Publish(ctx context.Context, env Envelope) error {
	p.logger.LogAttrs(ctx, slog.LevelDebug, "event",
		slog.String("event_id", env.EventID),
		slog.String("event_type", env.EventType),
		slog.String("correlation_id", env.CorrelationID),
		slog.String("payload", string(env.Payload)),
	)
	return nil
}

func (p *LogPublisher) Close() error { return nil }

// Emit builds an envelope and publishes it, logging instead of returning
// failures. Services call it after commit.
func Emit(ctx context.Context, pub Publisher, logger *slog.Logger, eventType, correlationID string, payload any) {
	if pub == nil {
		return
	}
	env, err := NewEnvelope(eventType, correlationID, payload)
	if err == nil {
		err = pub.Publish(ctx, env)
	}
	if err != nil {
		logger.Warn("event publish failed",
			slog.String("event_type", eventType),
			slog.String("correlation_id", correlationID),
			slog.String("error", err.Error()),
		)
	}
}
