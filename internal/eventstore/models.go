package eventstore

import "time"

// Filter narrows a chronological scan of the event log. Zero values mean
// "no constraint". After is an exclusive cursor: only events strictly later
// than (AfterTimestamp, AfterID) are returned.
type Filter struct {
	From           time.Time
	To             time.Time
	Types          []string
	AggregateID    string
	AfterTimestamp time.Time
	AfterID        string
	Limit          int
}

// Cursor identifies the last event a batched scan has consumed.
type Cursor struct {
	Timestamp time.Time `json:"timestamp"`
	EventID   string    `json:"event_id"`
}
