package update

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fundline/internal/audit"
	"fundline/internal/logger"
	"fundline/internal/notify"
	pkgerrors "fundline/pkg/errors"
	"fundline/pkg/events"
)

type fakeAudit struct {
	entries []audit.Entry
}

func (a *fakeAudit) Record(ctx context.Context, entry audit.Entry) error {
	a.entries = append(a.entries, entry)
	return nil
}

type fakeProducer struct {
	published []events.Event
}

func (p *fakeProducer) Publish(ctx context.Context, topic string, event events.Event) error {
	p.published = append(p.published, event)
	return nil
}

func (p *fakeProducer) Close() error { return nil }

func newTestProcessor() (*Processor, *fakeAudit, *fakeProducer) {
	auditRec := &fakeAudit{}
	producer := &fakeProducer{}
	notifier := notify.NewNotifier(producer, "fundline.events")
	return NewProcessor(auditRec, notifier, logger.NopLogger()), auditRec, producer
}

func updateCreatedEvent() events.Event {
	return events.Event{
		ID:          "evt-1",
		Type:        events.TypeUpdateCreated,
		AggregateID: "upd-1",
		Payload: map[string]interface{}{
			"campaign_id": "camp-1",
			"author_id":   "user-3",
			"title":       "Milestone reached",
		},
		Timestamp: time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC),
	}
}

func TestHandleUpdateCreated(t *testing.T) {
	proc, auditRec, producer := newTestProcessor()

	err := proc.Handle(context.Background(), updateCreatedEvent())
	require.NoError(t, err)

	require.Len(t, auditRec.entries, 1)
	entry := auditRec.entries[0]
	assert.Equal(t, "update_created", entry.Action)
	assert.Equal(t, "user-3", entry.ActorID)
	assert.Equal(t, "camp-1", entry.AggregateID)
	assert.Equal(t, "upd-1", entry.Details["update_id"])

	require.Len(t, producer.published, 1)
	notification := producer.published[0]
	assert.Equal(t, events.TypeNotificationRequested, notification.Type)
	assert.Equal(t, "evt-1", notification.CausationID)
	assert.Equal(t, "supporters", notification.PayloadString("audience"))
	assert.Equal(t, "camp-1", notification.PayloadString("campaign_id"))
}

func TestHandleMissingCampaignIDIsValidationError(t *testing.T) {
	proc, auditRec, producer := newTestProcessor()

	event := updateCreatedEvent()
	delete(event.Payload, "campaign_id")

	err := proc.Handle(context.Background(), event)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsValidation(err))
	assert.Empty(t, auditRec.entries)
	assert.Empty(t, producer.published)
}

func TestHandleUnknownTypeIsNoop(t *testing.T) {
	proc, auditRec, producer := newTestProcessor()

	event := updateCreatedEvent()
	event.Type = "update.deleted"

	err := proc.Handle(context.Background(), event)
	require.NoError(t, err)

	assert.Empty(t, auditRec.entries)
	assert.Empty(t, producer.published)
}
