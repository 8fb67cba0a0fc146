package donation

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	pkgerrors "fundline/pkg/errors"
)

type Repository interface {
	Upsert(ctx context.Context, donation Donation) error
	RecomputeCampaignTotals(ctx context.Context, campaignID string) (*CampaignTotals, error)
	GetTotals(ctx context.Context, campaignID string) (*CampaignTotals, error)
}

type PostgresRepository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) Repository {
	return &PostgresRepository{db: db}
}

// Upsert writes the donation row keyed by donation id. Applying the same
// event twice rewrites the row with identical values.
func (r *PostgresRepository) Upsert(ctx context.Context, donation Donation) error {
	now := time.Now().UTC()
	if donation.CreatedAt.IsZero() {
		donation.CreatedAt = now
	}

	query := `
		INSERT INTO donations (id, campaign_id, donor_id, amount, currency, status, source_event_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO UPDATE
		SET status = EXCLUDED.status,
		    amount = EXCLUDED.amount,
		    currency = EXCLUDED.currency,
		    source_event_id = EXCLUDED.source_event_id,
		    updated_at = EXCLUDED.updated_at
	`

	_, err := r.db.ExecContext(ctx, query,
		donation.ID, donation.CampaignID, donation.DonorID,
		donation.Amount, donation.Currency, donation.Status,
		donation.SourceEventID, donation.CreatedAt, now,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert donation: %w", err)
	}

	return nil
}

// RecomputeCampaignTotals rebuilds the campaign totals row from the sum of
// completed donations. Recomputation instead of increment means a duplicate
// apply cannot inflate the total.
func (r *PostgresRepository) RecomputeCampaignTotals(ctx context.Context, campaignID string) (*CampaignTotals, error) {
	query := `
		INSERT INTO campaign_totals (campaign_id, total_raised, donation_count, updated_at)
		SELECT $1,
		       COALESCE(SUM(amount), 0),
		       COUNT(*),
		       NOW()
		FROM donations
		WHERE campaign_id = $1 AND status = 'completed'
		ON CONFLICT (campaign_id) DO UPDATE
		SET total_raised = EXCLUDED.total_raised,
		    donation_count = EXCLUDED.donation_count,
		    updated_at = EXCLUDED.updated_at
		RETURNING campaign_id, total_raised, donation_count, updated_at
	`

	var totals CampaignTotals
	err := r.db.QueryRowContext(ctx, query, campaignID).Scan(
		&totals.CampaignID, &totals.TotalRaised, &totals.DonationCount, &totals.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to recompute campaign totals: %w", err)
	}

	return &totals, nil
}

func (r *PostgresRepository) GetTotals(ctx context.Context, campaignID string) (*CampaignTotals, error) {
	query := `
		SELECT campaign_id, total_raised, donation_count, updated_at
		FROM campaign_totals
		WHERE campaign_id = $1
	`

	var totals CampaignTotals
	err := r.db.QueryRowContext(ctx, query, campaignID).Scan(
		&totals.CampaignID, &totals.TotalRaised, &totals.DonationCount, &totals.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, pkgerrors.ErrNotFound.WithDetail("campaign_id", campaignID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get campaign totals: %w", err)
	}

	return &totals, nil
}
