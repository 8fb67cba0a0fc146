package admin

import (
	"fundline/internal/deadletter"
	"fundline/internal/ledger"
)

// PublishEventRequest is the admin API shape of a domain event. Timestamp is
// epoch milliseconds; zero means "now".
type PublishEventRequest struct {
	Type          string                 `json:"type" binding:"required"`
	AggregateID   string                 `json:"aggregate_id"`
	Payload       map[string]interface{} `json:"payload"`
	Timestamp     int64                  `json:"timestamp"`
	Version       string                 `json:"version"`
	CorrelationID string                 `json:"correlation_id"`
	CausationID   string                 `json:"causation_id"`
}

type PublishEventResponse struct {
	EventID string `json:"event_id"`
	Status  string `json:"status"`
}

type DeadLetterListResponse struct {
	Entries []deadletter.Entry `json:"entries"`
	Total   int64              `json:"total"`
}

type LedgerListResponse struct {
	Records []ledger.Record `json:"records"`
}

// ErrorResponse mirrors the error body produced by pkg/errors for swagger.
type ErrorResponse struct {
	Error     string                 `json:"error"`
	ErrorCode string                 `json:"error_code"`
	Details   map[string]interface{} `json:"details,omitempty"`
}
