package donation

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

// Processor applies donation.* events: donation row, campaign totals and
// audit trail, plus the chained donor notification.
type Processor struct {
	repo     Repository
	audit    audit.Recorder
	notifier *notify.Notifier
	logger   logger.Logger
}

func NewProcessor(repo Repository, auditRecorder audit.Recorder, notifier *notify.Notifier, log logger.Logger) *Processor {
	return &Processor{
		repo:     repo,
		audit:    auditRecorder,
		notifier: notifier,
		logger:   log,
	}
}

func (p *Processor) Name() string {
	return constants.ProcessorDonation
}

func (p *Processor) Pattern() string {
	return events.PatternDonation
}

func (p *Processor) Handle(ctx context.Context, event events.Event) error {
	switch event.Type {
	case events.TypeDonationCompleted:
		return p.apply(ctx, event, StatusCompleted, true)
	case events.TypeDonationRefunded:
		return p.apply(ctx, event, StatusRefunded, true)
	case events.TypeDonationFailed:
		return p.apply(ctx, event, StatusFailed, false)
	default:
		p.logger.WarnwCtx(ctx, "Unhandled donation event type",
			"event_type", event.Type,
			"event_id", event.ID,
		)
		return nil
	}
}

func (p *Processor) apply(ctx context.Context, event events.Event, status string, notifyDonor bool) error {
	donation, err := donationFromEvent(event, status)
	if err != nil {
		return err
	}

	if err := p.repo.Upsert(ctx, *donation); err != nil {
		return err
	}

	totals, err := p.repo.RecomputeCampaignTotals(ctx, donation.CampaignID)
	if err != nil {
		return err
	}

	if err := p.audit.Record(ctx, audit.Entry{
		SourceEventID: event.ID,
		Action:        "donation_" + status,
		ActorID:       donation.DonorID,
		AggregateID:   donation.CampaignID,
		Details: map[string]interface{}{
			"donation_id": donation.ID,
			"amount":      donation.Amount,
			"currency":    donation.Currency,
		},
		Timestamp: event.Timestamp,
	}); err != nil {
		return err
	}

	p.logger.InfowCtx(ctx, "Donation applied",
		"donation_id", donation.ID,
		"campaign_id", donation.CampaignID,
		"status", status,
		"total_raised", totals.TotalRaised,
	)

	if !notifyDonor {
		return nil
	}

	return p.notifier.Request(ctx, event, "email", map[string]interface{}{
		"recipient_id": donation.DonorID,
		"campaign_id":  donation.CampaignID,
		"amount":       donation.Amount,
		"currency":     donation.Currency,
		"status":       status,
	})
}

func donationFromEvent(event events.Event, status string) (*Donation, error) {
	donationID := event.PayloadString("donation_id")
	if donationID == "" {
		donationID = event.AggregateID
	}
	if donationID == "" {
		return nil, pkgerrors.ErrValidation.WithDetail("message", fmt.Sprintf("event %s carries no donation id", event.ID))
	}

	campaignID := event.PayloadString("campaign_id")
	if campaignID == "" {
		return nil, pkgerrors.ErrValidation.WithDetail("message", fmt.Sprintf("event %s carries no campaign id", event.ID))
	}

	currency := event.PayloadString("currency")
	if currency == "" {
		currency = "USD"
	}

	return &Donation{
		ID:            donationID,
		CampaignID:    campaignID,
		DonorID:       event.PayloadString("donor_id"),
		Amount:        event.PayloadFloat("amount"),
		Currency:      currency,
		Status:        status,
		SourceEventID: event.ID,
		CreatedAt:     event.Timestamp,
	}, nil
}
