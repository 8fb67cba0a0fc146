package processors

import (
	"context"

	"fundline/pkg/events"
)

// Processor consumes the events matching its pattern and performs the
// durable writes for one concern. Handle must be idempotent for the same
// event: the ledger makes a second delivery rare, not impossible.
type Processor interface {
	Name() string
	Pattern() string
	Handle(ctx context.Context, event events.Event) error
}
