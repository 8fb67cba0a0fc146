package cel

// MatchExpressionExamples documents replay filter expressions for the admin
// API. They are surfaced verbatim in the swagger description.
var MatchExpressionExamples = map[string]string{
	"by_type":            `type == "donation.completed"`,
	"by_type_prefix":     `type.startsWith("campaign.")`,
	"by_aggregate":       `aggregate_id == "camp-42"`,
	"large_donations":    `type == "donation.completed" && payload.amount > 500.0`,
	"by_currency":        `payload.currency in ["EUR", "GBP"]`,
	"has_donor":          `has(payload.donor_id) && payload.donor_id != ""`,
	"combined":           `type.startsWith("donation.") && payload.amount >= 10.0 && payload.currency == "USD"`,
	"refunds_or_failed":  `type == "donation.refunded" || type == "donation.failed"`,
	"published_after":    `type == "campaign.published" && timestamp > timestamp("2026-01-01T00:00:00Z")`,
	"dlq_replay_cohort":  `has(metadata.dlq_reason)`,
}
