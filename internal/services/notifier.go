package services

import (
	"context"
	"log/slog"

	"tripledger/internal/amqp"
	"tripledger/internal/metrics"
)

// EventPublisher delivers committed change events, typically to AMQP.
type EventPublisher interface {
	Publish(ctx context.Context, ev amqp.ChangeEvent) error
}

// Invalidator drops derived data cached for an owner.
type Invalidator interface {
	Invalidate(ownerID string)
}

// Notifier runs the post-commit side effects of a mutation. A nil Notifier,
// or one without a publisher, only skips those effects.
type Notifier struct {
	publisher   EventPublisher
	invalidator Invalidator
	metrics     *metrics.Metrics
}

func NewNotifier(publisher EventPublisher, invalidator Invalidator, m *metrics.Metrics) *Notifier {
	return &Notifier{publisher: publisher, invalidator: invalidator, metrics: m}
}

// Committed invalidates the owner's cached summaries and publishes events.
// Publish failures are logged and never reach the caller: the change is
// already durable.
func (n *Notifier) Committed(ctx context.Context, ownerID string, events ...amqp.ChangeEvent) {
	if n == nil {
		return
	}
	if n.invalidator != nil {
		n.invalidator.Invalidate(ownerID)
	}
	if n.publisher == nil {
		if len(events) > 0 {
			slog.DebugContext(ctx, "Event publisher not configured, skipping change events", "count", len(events))
		}
		return
	}
	for _, ev := range events {
		err := n.publisher.Publish(ctx, ev)
		n.metrics.EventPublished(err)
		if err != nil {
			slog.ErrorContext(ctx, "Failed to publish change event",
				"type", ev.Type,
				"entity_id", ev.EntityID,
				"error", err)
		}
	}
}
