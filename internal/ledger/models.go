package ledger

import "time"

// Record status values. A key moves pending -> complete or pending -> failed.
// complete is terminal; failed and stale pending keys may be re-claimed.
const (
	StatusPending  = "pending"
	StatusComplete = "complete"
	StatusFailed   = "failed"
)

// Record is one idempotency key: a (event, processor) pair and the state of
// its side effect.
type Record struct {
	EventID       string     `json:"event_id"`
	ProcessorName string     `json:"processor_name"`
	Status        string     `json:"status"`
	FailureReason string     `json:"failure_reason,omitempty"`
	ClaimedAt     time.Time  `json:"claimed_at"`
	CompletedAt   *time.Time `json:"completed_at,omitempty"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// Filter narrows ledger listings for the admin API.
type Filter struct {
	EventID       string
	ProcessorName string
	Status        string
	Limit         int
	Offset        int
}
