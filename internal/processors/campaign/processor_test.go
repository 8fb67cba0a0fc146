package campaign

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fundline/internal/audit"
	"fundline/internal/logger"
	"fundline/internal/search"
	pkgerrors "fundline/pkg/errors"
	"fundline/pkg/events"
)

type fakeRoleRepository struct {
	grants []string
}

func (r *fakeRoleRepository) GrantRole(ctx context.Context, userID, role string) error {
	r.grants = append(r.grants, userID+"/"+role)
	return nil
}

type fakeSearchRepository struct {
	upserts []search.CampaignDocument
	deletes []string
}

func (r *fakeSearchRepository) Upsert(ctx context.Context, doc search.CampaignDocument) error {
	r.upserts = append(r.upserts, doc)
	return nil
}

func (r *fakeSearchRepository) Delete(ctx context.Context, campaignID string) error {
	r.deletes = append(r.deletes, campaignID)
	return nil
}

func (r *fakeSearchRepository) Get(ctx context.Context, campaignID string) (*search.CampaignDocument, error) {
	return nil, nil
}

type fakeAudit struct {
	entries []audit.Entry
}

func (a *fakeAudit) Record(ctx context.Context, entry audit.Entry) error {
	a.entries = append(a.entries, entry)
	return nil
}

func newTestProcessor() (*Processor, *fakeRoleRepository, *fakeSearchRepository, *fakeAudit) {
	roles := &fakeRoleRepository{}
	searchRepo := &fakeSearchRepository{}
	auditRec := &fakeAudit{}
	proc := NewProcessor(roles, searchRepo, auditRec, logger.NopLogger())
	return proc, roles, searchRepo, auditRec
}

func createdEvent() events.Event {
	return events.Event{
		ID:          "evt-1",
		Type:        events.TypeCampaignCreated,
		AggregateID: "camp-1",
		Payload: map[string]interface{}{
			"owner_id":    "user-3",
			"title":       "Clean water for Kivu",
			"description": "Wells for three villages",
			"status":      "draft",
			"goal_amount": 25000.0,
		},
		Timestamp: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC),
	}
}

func TestHandleCreated(t *testing.T) {
	proc, roles, searchRepo, auditRec := newTestProcessor()

	err := proc.Handle(context.Background(), createdEvent())
	require.NoError(t, err)

	assert.Equal(t, []string{"user-3/" + RoleFundraiser}, roles.grants)

	require.Len(t, searchRepo.upserts, 1)
	doc := searchRepo.upserts[0]
	assert.Equal(t, "camp-1", doc.ID)
	assert.Equal(t, "Clean water for Kivu", doc.Title)
	assert.Equal(t, "user-3", doc.OwnerID)
	assert.Equal(t, "draft", doc.Status)
	assert.Equal(t, 25000.0, doc.GoalAmount)

	require.Len(t, auditRec.entries, 1)
	entry := auditRec.entries[0]
	assert.Equal(t, "campaign_created", entry.Action)
	assert.Equal(t, "user-3", entry.ActorID)
	assert.Equal(t, "camp-1", entry.AggregateID)
	assert.Equal(t, "evt-1", entry.SourceEventID)
}

func TestHandleCreatedWithoutOwnerSkipsRoleGrant(t *testing.T) {
	proc, roles, searchRepo, _ := newTestProcessor()

	event := createdEvent()
	delete(event.Payload, "owner_id")

	err := proc.Handle(context.Background(), event)
	require.NoError(t, err)

	assert.Empty(t, roles.grants)
	assert.Len(t, searchRepo.upserts, 1)
}

func TestHandleUpdatedProjectsWithoutRoleGrant(t *testing.T) {
	proc, roles, searchRepo, auditRec := newTestProcessor()

	event := createdEvent()
	event.Type = events.TypeCampaignUpdated
	event.Payload["title"] = "Clean water for North Kivu"

	err := proc.Handle(context.Background(), event)
	require.NoError(t, err)

	assert.Empty(t, roles.grants)
	require.Len(t, searchRepo.upserts, 1)
	assert.Equal(t, "Clean water for North Kivu", searchRepo.upserts[0].Title)
	require.Len(t, auditRec.entries, 1)
	assert.Equal(t, "campaign_updated", auditRec.entries[0].Action)
}

func TestHandlePublishedDefaultsStatus(t *testing.T) {
	proc, _, searchRepo, _ := newTestProcessor()

	event := createdEvent()
	event.Type = events.TypeCampaignPublished
	delete(event.Payload, "status")

	err := proc.Handle(context.Background(), event)
	require.NoError(t, err)

	require.Len(t, searchRepo.upserts, 1)
	assert.Equal(t, "published", searchRepo.upserts[0].Status)
}

func TestHandleDeletedRemovesProjection(t *testing.T) {
	proc, _, searchRepo, auditRec := newTestProcessor()

	event := createdEvent()
	event.Type = events.TypeCampaignDeleted

	err := proc.Handle(context.Background(), event)
	require.NoError(t, err)

	assert.Equal(t, []string{"camp-1"}, searchRepo.deletes)
	assert.Empty(t, searchRepo.upserts)
	require.Len(t, auditRec.entries, 1)
	assert.Equal(t, "campaign_deleted", auditRec.entries[0].Action)
}

func TestHandleUnknownTypeIsNoop(t *testing.T) {
	proc, roles, searchRepo, auditRec := newTestProcessor()

	event := createdEvent()
	event.Type = "campaign.archived"

	err := proc.Handle(context.Background(), event)
	require.NoError(t, err)

	assert.Empty(t, roles.grants)
	assert.Empty(t, searchRepo.upserts)
	assert.Empty(t, auditRec.entries)
}

func TestHandleCampaignIDFallsBackToPayload(t *testing.T) {
	proc, _, searchRepo, _ := newTestProcessor()

	event := createdEvent()
	event.AggregateID = ""
	event.Payload["campaign_id"] = "camp-9"

	err := proc.Handle(context.Background(), event)
	require.NoError(t, err)

	require.Len(t, searchRepo.upserts, 1)
	assert.Equal(t, "camp-9", searchRepo.upserts[0].ID)
}

func TestHandleMissingCampaignIDIsValidationError(t *testing.T) {
	proc, _, searchRepo, auditRec := newTestProcessor()

	event := createdEvent()
	event.AggregateID = ""

	err := proc.Handle(context.Background(), event)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsValidation(err))
	assert.Empty(t, searchRepo.upserts)
	assert.Empty(t, auditRec.entries)
}
