package campaign

import (
	"context"
	"fmt"
	"strings"

	"fundline/internal/audit"
	"fundline/internal/constants"
	"fundline/internal/logger"
	"fundline/internal/search"
	pkgerrors "fundline/pkg/errors"
	"fundline/pkg/events"
)

// Processor applies campaign.* events: audit trail, owner role promotion and
// the denormalized search projection.
type Processor struct {
	repo   Repository
	search search.Repository
	audit  audit.Recorder
	logger logger.Logger
}

func NewProcessor(repo Repository, searchRepo search.Repository, auditRecorder audit.Recorder, log logger.Logger) *Processor {
	return &Processor{
		repo:   repo,
		search: searchRepo,
		audit:  auditRecorder,
		logger: log,
	}
}

func (p *Processor) Name() string {
	return constants.ProcessorCampaign
}

func (p *Processor) Pattern() string {
	return events.PatternCampaign
}

func (p *Processor) Handle(ctx context.Context, event events.Event) error {
	campaignID := event.AggregateID
	if campaignID == "" {
		campaignID = event.PayloadString("campaign_id")
	}
	if campaignID == "" {
		return pkgerrors.ErrValidation.WithDetail("message", fmt.Sprintf("event %s carries no campaign id", event.ID))
	}

	switch event.Type {
	case events.TypeCampaignCreated:
		if err := p.promoteOwner(ctx, event); err != nil {
			return err
		}
		if err := p.project(ctx, event, campaignID); err != nil {
			return err
		}
	case events.TypeCampaignUpdated, events.TypeCampaignPublished:
		if err := p.project(ctx, event, campaignID); err != nil {
			return err
		}
	case events.TypeCampaignDeleted:
		if err := p.search.Delete(ctx, campaignID); err != nil {
			return err
		}
	default:
		p.logger.WarnwCtx(ctx, "Unhandled campaign event type",
			"event_type", event.Type,
			"event_id", event.ID,
		)
		return nil
	}

	action := "campaign_" + verb(event.Type)
	return p.audit.Record(ctx, audit.Entry{
		SourceEventID: event.ID,
		Action:        action,
		ActorID:       event.PayloadString("owner_id"),
		AggregateID:   campaignID,
		Details:       event.Payload,
		Timestamp:     event.Timestamp,
	})
}

func (p *Processor) promoteOwner(ctx context.Context, event events.Event) error {
	ownerID := event.PayloadString("owner_id")
	if ownerID == "" {
		p.logger.WarnwCtx(ctx, "Campaign created without owner id, skipping role grant",
			"event_id", event.ID,
		)
		return nil
	}

	return p.repo.GrantRole(ctx, ownerID, RoleFundraiser)
}

func (p *Processor) project(ctx context.Context, event events.Event, campaignID string) error {
	status := event.PayloadString("status")
	if event.Type == events.TypeCampaignPublished && status == "" {
		status = "published"
	}

	return p.search.Upsert(ctx, search.CampaignDocument{
		ID:          campaignID,
		Title:       event.PayloadString("title"),
		Description: event.PayloadString("description"),
		OwnerID:     event.PayloadString("owner_id"),
		Status:      status,
		GoalAmount:  event.PayloadFloat("goal_amount"),
		TotalRaised: event.PayloadFloat("total_raised"),
	})
}

func verb(eventType string) string {
	if idx := strings.LastIndex(eventType, "."); idx >= 0 {
		return eventType[idx+1:]
	}
	return eventType
}
