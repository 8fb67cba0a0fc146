package notify

import (
	"context"
	"fmt"

	"fundline/internal/broker"
	"fundline/pkg/events"
	"fundline/pkg/metrics"
)

// Notifier emits chained notification.requested events back onto the domain
// topic. The chained event carries the source event id as causation id, so a
// replayed source event produces a notification request with the same
// causation chain and downstream consumers can dedupe on it.
type Notifier struct {
	producer broker.Producer
	topic    string
}

func NewNotifier(producer broker.Producer, topic string) *Notifier {
	return &Notifier{
		producer: producer,
		topic:    topic,
	}
}

// Request publishes a notification.requested event caused by source.
// A nil producer or empty topic disables chaining, which keeps the
// processors usable in tests and in dry-run tooling.
func (n *Notifier) Request(ctx context.Context, source events.Event, channel string, payload map[string]interface{}) error {
	if n.producer == nil || n.topic == "" {
		return nil
	}

	if payload == nil {
		payload = make(map[string]interface{})
	}
	payload["channel"] = channel
	payload["source_event_type"] = source.Type

	event := events.NewBuilder().
		WithType(events.TypeNotificationRequested).
		WithAggregateID(source.AggregateID).
		WithPayload(payload).
		CausedBy(source).
		Build()

	if err := n.producer.Publish(ctx, n.topic, *event); err != nil {
		return fmt.Errorf("failed to publish notification request: %w", err)
	}

	metrics.NotificationsRequestedTotal.WithLabelValues(source.Type).Inc()
	return nil
}
