package broker

import (
	"context"

	"fundline/pkg/events"
)

type Producer interface {
	Publish(ctx context.Context, topic string, event events.Event) error
	Close() error
}

type Consumer interface {
	Consume(ctx context.Context, topic string, handler HandlerFunc) error
	Close() error
	SetServiceName(name string)
}

type HandlerFunc func(ctx context.Context, event events.Event) error
