package events

import (
	"time"

	"github.com/google/uuid"
)

type Builder struct {
	event *Event
}

func NewBuilder() *Builder {
	return &Builder{
		event: &Event{
			Payload: make(map[string]interface{}),
			Version: DefaultVersion,
		},
	}
}

func (b *Builder) WithID(id string) *Builder {
	b.event.ID = id
	return b
}

func (b *Builder) WithType(eventType string) *Builder {
	b.event.Type = eventType
	return b
}

func (b *Builder) WithAggregateID(aggregateID string) *Builder {
	b.event.AggregateID = aggregateID
	return b
}

func (b *Builder) WithPayload(payload map[string]interface{}) *Builder {
	b.event.Payload = payload
	return b
}

func (b *Builder) WithTimestamp(timestamp time.Time) *Builder {
	b.event.Timestamp = timestamp
	return b
}

func (b *Builder) WithVersion(version string) *Builder {
	b.event.Version = version
	return b
}

func (b *Builder) WithCorrelationID(correlationID string) *Builder {
	b.event.CorrelationID = correlationID
	return b
}

// CausedBy links the event under construction to its cause and carries the
// cause's correlation id forward so the whole chain stays traceable.
func (b *Builder) CausedBy(cause Event) *Builder {
	b.event.CausationID = cause.ID
	if b.event.CorrelationID == "" {
		b.event.CorrelationID = cause.CorrelationID
	}
	return b
}

func (b *Builder) WithMetadata(metadata map[string]interface{}) *Builder {
	b.event.Metadata = metadata
	return b
}

func (b *Builder) Build() *Event {
	if b.event.ID == "" {
		b.event.ID = uuid.New().String()
	}
	if b.event.Timestamp.IsZero() {
		b.event.Timestamp = time.Now().UTC()
	}
	return b.event
}
