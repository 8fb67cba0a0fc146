package deadletter

import (
	"time"

	"fundline/pkg/events"
)

// Entry is one recorded processor failure. Entries are append-only; the same
// event failing in two processors (or twice in one after re-claim) produces
// distinct entries.
type Entry struct {
	ID              string       `json:"id"`
	OriginalEventID string       `json:"original_event_id"`
	Event           events.Event `json:"event"`
	ProcessorName   string       `json:"processor_name"`
	FailureReason   string       `json:"failure_reason"`
	CreatedAt       time.Time    `json:"created_at"`
}

// Filter narrows dead-letter listings for the admin API.
type Filter struct {
	OriginalEventID string
	ProcessorName   string
	From            time.Time
	To              time.Time
	Limit           int
	Offset          int
}
