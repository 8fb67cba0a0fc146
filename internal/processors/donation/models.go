package donation

import "time"

// Donation statuses mirror the event verbs that produce them.
const (
	StatusCompleted = "completed"
	StatusRefunded  = "refunded"
	StatusFailed    = "failed"
)

type Donation struct {
	ID            string
	CampaignID    string
	DonorID       string
	Amount        float64
	Currency      string
	Status        string
	SourceEventID string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

type CampaignTotals struct {
	CampaignID    string
	TotalRaised   float64
	DonationCount int
	UpdatedAt     time.Time
}
