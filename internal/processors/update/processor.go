package update

import (
	"context"
	"fmt"

	"fundline/internal/audit"
	"fundline/internal/constants"
	"fundline/internal/logger"
	"fundline/internal/notify"
	pkgerrors "fundline/pkg/errors"
	"fundline/pkg/events"
)

// Processor applies update.* events: the audit trail for project updates and
// the chained supporter notification.
type Processor struct {
	audit    audit.Recorder
	notifier *notify.Notifier
	logger   logger.Logger
}

func NewProcessor(auditRecorder audit.Recorder, notifier *notify.Notifier, log logger.Logger) *Processor {
	return &Processor{
		audit:    auditRecorder,
		notifier: notifier,
		logger:   log,
	}
}

func (p *Processor) Name() string {
	return constants.ProcessorUpdate
}

func (p *Processor) Pattern() string {
	return events.PatternUpdate
}

func (p *Processor) Handle(ctx context.Context, event events.Event) error {
	switch event.Type {
	case events.TypeUpdateCreated:
		return p.applyCreated(ctx, event)
	default:
		p.logger.WarnwCtx(ctx, "Unhandled update event type",
			"event_type", event.Type,
			"event_id", event.ID,
		)
		return nil
	}
}

func (p *Processor) applyCreated(ctx context.Context, event events.Event) error {
	campaignID := event.PayloadString("campaign_id")
	if campaignID == "" {
		return pkgerrors.ErrValidation.WithDetail("message", fmt.Sprintf("event %s carries no campaign id", event.ID))
	}

	if err := p.audit.Record(ctx, audit.Entry{
		SourceEventID: event.ID,
		Action:        "update_created",
		ActorID:       event.PayloadString("author_id"),
		AggregateID:   campaignID,
		Details: map[string]interface{}{
			"update_id": event.AggregateID,
			"title":     event.PayloadString("title"),
		},
		Timestamp: event.Timestamp,
	}); err != nil {
		return err
	}

	return p.notifier.Request(ctx, event, "email", map[string]interface{}{
		"campaign_id": campaignID,
		"update_id":   event.AggregateID,
		"title":       event.PayloadString("title"),
		"audience":    "supporters",
	})
}
