package replay

import (
	"time"
)

// Request selects the slice of the event log to re-drive. All selectors are
// optional and combine with AND; MatchExpression is a CEL filter evaluated
// per event on top of the store-level selectors.
type Request struct {
	From            time.Time `json:"from,omitempty"`
	To              time.Time `json:"to,omitempty"`
	Types           []string  `json:"types,omitempty"`
	AggregateID     string    `json:"aggregate_id,omitempty"`
	MatchExpression string    `json:"match_expression,omitempty"`
	DryRun          bool      `json:"dry_run"`
	RunID           string    `json:"run_id,omitempty"`
}

// Failure records one failed delivery during a live replay.
type Failure struct {
	EventID   string `json:"event_id"`
	EventType string `json:"event_type"`
	Processor string `json:"processor"`
	Error     string `json:"error"`
}

// Summary is the aggregate report of one replay run. ReplayedEvents counts
// delivery attempts: an event whose processors were all ledger skips still
// counts as replayed, with zero failures.
type Summary struct {
	RunID          string    `json:"run_id"`
	DryRun         bool      `json:"dry_run"`
	Resumed        bool      `json:"resumed"`
	MatchedEvents  int       `json:"matched_events"`
	ReplayedEvents int       `json:"replayed_events"`
	FailedEvents   int       `json:"failed_events"`
	Failures       []Failure `json:"failures,omitempty"`
	StartedAt      time.Time `json:"started_at"`
	CompletedAt    time.Time `json:"completed_at"`
}
