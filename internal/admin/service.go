package admin

import (
	"context"
	"time"

	"fundline/internal/bus"
	"fundline/internal/deadletter"
	"fundline/internal/ledger"
	"fundline/internal/replay"
	"fundline/pkg/events"
	"fundline/pkg/logging"
)

type Service interface {
	PublishEvent(ctx context.Context, req PublishEventRequest) (*PublishEventResponse, error)
	Replay(ctx context.Context, req replay.Request) (*replay.Summary, error)
	ListDeadLetters(ctx context.Context, filter deadletter.Filter) (*DeadLetterListResponse, error)
	GetDeadLetter(ctx context.Context, id string) (*deadletter.Entry, error)
	ListLedgerRecords(ctx context.Context, filter ledger.Filter) (*LedgerListResponse, error)
}

type service struct {
	dispatcher  *bus.Dispatcher
	replayer    *replay.Service
	deadLetters deadletter.Repository
	ledger      ledger.Repository
}

func NewService(
	dispatcher *bus.Dispatcher,
	replayer *replay.Service,
	deadLetters deadletter.Repository,
	ledgerRepo ledger.Repository,
) Service {
	return &service{
		dispatcher:  dispatcher,
		replayer:    replayer,
		deadLetters: deadLetters,
		ledger:      ledgerRepo,
	}
}

// PublishEvent builds the event and hands it to the bus. The request id from
// the HTTP middleware becomes the correlation id when the caller sets none.
func (s *service) PublishEvent(ctx context.Context, req PublishEventRequest) (*PublishEventResponse, error) {
	builder := events.NewBuilder().
		WithType(req.Type).
		WithAggregateID(req.AggregateID).
		WithPayload(req.Payload)

	if req.Timestamp > 0 {
		builder = builder.WithTimestamp(time.UnixMilli(req.Timestamp).UTC())
	}
	if req.Version != "" {
		builder = builder.WithVersion(req.Version)
	}

	correlationID := req.CorrelationID
	if correlationID == "" {
		correlationID = logging.GetCorrelationID(ctx)
	}
	builder = builder.WithCorrelationID(correlationID)

	event := builder.Build()
	if req.CausationID != "" {
		event.CausationID = req.CausationID
	}

	if err := s.dispatcher.Publish(ctx, *event); err != nil {
		return nil, err
	}

	return &PublishEventResponse{
		EventID: event.ID,
		Status:  "accepted",
	}, nil
}

func (s *service) Replay(ctx context.Context, req replay.Request) (*replay.Summary, error) {
	return s.replayer.Replay(ctx, req)
}

func (s *service) ListDeadLetters(ctx context.Context, filter deadletter.Filter) (*DeadLetterListResponse, error) {
	entries, err := s.deadLetters.List(ctx, filter)
	if err != nil {
		return nil, err
	}

	total, err := s.deadLetters.Count(ctx, filter)
	if err != nil {
		return nil, err
	}

	return &DeadLetterListResponse{
		Entries: entries,
		Total:   total,
	}, nil
}

func (s *service) GetDeadLetter(ctx context.Context, id string) (*deadletter.Entry, error) {
	return s.deadLetters.Get(ctx, id)
}

func (s *service) ListLedgerRecords(ctx context.Context, filter ledger.Filter) (*LedgerListResponse, error) {
	records, err := s.ledger.List(ctx, filter)
	if err != nil {
		return nil, err
	}

	return &LedgerListResponse{Records: records}, nil
}
