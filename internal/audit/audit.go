package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Recorder is the write side of the audit trail.
type Recorder interface {
	Record(ctx context.Context, entry Entry) error
}

// Writer persists the immutable audit trail. Rows are keyed by
// (source_event_id, action), so re-applying an event writes nothing new even
// when the ledger check is bypassed during a replay.
type Writer struct {
	db *sql.DB
}

func NewWriter(db *sql.DB) *Writer {
	return &Writer{db: db}
}

type Entry struct {
	ID            string
	SourceEventID string
	Action        string
	ActorID       string
	AggregateID   string
	Details       map[string]interface{}
	Timestamp     time.Time
}

func (w *Writer) Record(ctx context.Context, entry Entry) error {
	query := `
		INSERT INTO audit_logs (id, source_event_id, action, actor_id, aggregate_id, details, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (source_event_id, action) DO NOTHING
	`

	id := uuid.New().String()
	if entry.ID != "" {
		id = entry.ID
	}

	detailsJSON, err := json.Marshal(entry.Details)
	if err != nil {
		return fmt.Errorf("failed to encode audit details: %w", err)
	}

	var actorID *string
	if entry.ActorID != "" {
		actorID = &entry.ActorID
	}

	var aggregateID *string
	if entry.AggregateID != "" {
		aggregateID = &entry.AggregateID
	}

	timestamp := time.Now()
	if !entry.Timestamp.IsZero() {
		timestamp = entry.Timestamp
	}

	_, err = w.db.ExecContext(ctx, query,
		id, entry.SourceEventID, entry.Action,
		actorID, aggregateID, detailsJSON, timestamp,
	)

	if err != nil {
		return fmt.Errorf("failed to record audit entry: %w", err)
	}

	return nil
}
