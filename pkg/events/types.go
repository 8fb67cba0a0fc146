package events

// Event types produced by the platform. Producers must use these tags; the
// per-aggregate wildcard patterns below route them to processors.
const (
	TypeDonationCompleted = "donation.completed"
	TypeDonationRefunded  = "donation.refunded"
	TypeDonationFailed    = "donation.failed"

	TypeCampaignCreated   = "campaign.created"
	TypeCampaignUpdated   = "campaign.updated"
	TypeCampaignPublished = "campaign.published"
	TypeCampaignDeleted   = "campaign.deleted"

	TypeUpdateCreated = "update.created"

	TypeNotificationRequested = "notification.requested"
)

const (
	PatternDonation = "donation.*"
	PatternCampaign = "campaign.*"
	PatternUpdate   = "update.*"
)
