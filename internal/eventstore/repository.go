package eventstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/lib/pq"

	pkgerrors "fundline/pkg/errors"
	"fundline/pkg/events"
)

// Repository is the append-only event log. Events are never updated or
// deleted; Append with an already-stored id is a no-op.
type Repository interface {
	Append(ctx context.Context, event events.Event) (bool, error)
	Get(ctx context.Context, eventID string) (*events.Event, error)
	Query(ctx context.Context, filter Filter) ([]events.Event, error)
	Count(ctx context.Context, filter Filter) (int64, error)
}

type PostgresRepository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) Repository {
	return &PostgresRepository{db: db}
}

// Append stores the event. It returns false when an event with the same id
// is already in the log, which makes redelivered broker messages harmless.
func (r *PostgresRepository) Append(ctx context.Context, event events.Event) (bool, error) {
	payload, err := json.Marshal(event.Payload)
	if err != nil {
		return false, fmt.Errorf("failed to marshal event payload: %w", err)
	}

	var metadata []byte
	if event.Metadata != nil {
		metadata, err = json.Marshal(event.Metadata)
		if err != nil {
			return false, fmt.Errorf("failed to marshal event metadata: %w", err)
		}
	}

	query := `
		INSERT INTO event_store (event_id, event_type, aggregate_id, event_data, event_version, correlation_id, causation_id, metadata, occurred_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (event_id) DO NOTHING
	`

	res, err := r.db.ExecContext(ctx, query,
		event.ID, event.Type, nullString(event.AggregateID), payload,
		event.Version, nullString(event.CorrelationID), nullString(event.CausationID),
		nullBytes(metadata), event.Timestamp,
	)
	if err != nil {
		return false, fmt.Errorf("failed to append event: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return false, err
	}

	return rows == 1, nil
}

func (r *PostgresRepository) Get(ctx context.Context, eventID string) (*events.Event, error) {
	query := `
		SELECT event_id, event_type, aggregate_id, event_data, event_version, correlation_id, causation_id, metadata, occurred_at
		FROM event_store
		WHERE event_id = $1
	`

	row := r.db.QueryRowContext(ctx, query, eventID)
	event, err := scanEvent(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, pkgerrors.ErrNotFound.WithDetail("event_id", eventID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get event: %w", err)
	}

	return event, nil
}

// Query returns events in chronological order, ties broken by event id so
// the order is total and a cursor scan never skips or repeats.
func (r *PostgresRepository) Query(ctx context.Context, filter Filter) ([]events.Event, error) {
	query, args := buildQuery(filter, false)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	defer rows.Close()

	var result []events.Event
	for rows.Next() {
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("context cancelled: %w", ctx.Err())
		default:
		}

		event, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		result = append(result, *event)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate events: %w", err)
	}

	return result, nil
}

func (r *PostgresRepository) Count(ctx context.Context, filter Filter) (int64, error) {
	query, args := buildQuery(filter, true)

	var count int64
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count events: %w", err)
	}

	return count, nil
}

func buildQuery(filter Filter, count bool) (string, []interface{}) {
	var sb strings.Builder
	if count {
		sb.WriteString(`SELECT COUNT(*) FROM event_store`)
	} else {
		sb.WriteString(`SELECT event_id, event_type, aggregate_id, event_data, event_version, correlation_id, causation_id, metadata, occurred_at FROM event_store`)
	}

	var conditions []string
	var args []interface{}

	if !filter.From.IsZero() {
		args = append(args, filter.From)
		conditions = append(conditions, fmt.Sprintf("occurred_at >= $%d", len(args)))
	}
	if !filter.To.IsZero() {
		args = append(args, filter.To)
		conditions = append(conditions, fmt.Sprintf("occurred_at <= $%d", len(args)))
	}
	if len(filter.Types) > 0 {
		args = append(args, pq.Array(filter.Types))
		conditions = append(conditions, fmt.Sprintf("event_type = ANY($%d)", len(args)))
	}
	if filter.AggregateID != "" {
		args = append(args, filter.AggregateID)
		conditions = append(conditions, fmt.Sprintf("aggregate_id = $%d", len(args)))
	}
	if !filter.AfterTimestamp.IsZero() && filter.AfterID != "" {
		args = append(args, filter.AfterTimestamp, filter.AfterID)
		conditions = append(conditions, fmt.Sprintf("(occurred_at, event_id) > ($%d, $%d)", len(args)-1, len(args)))
	}

	if len(conditions) > 0 {
		sb.WriteString(" WHERE " + strings.Join(conditions, " AND "))
	}

	if !count {
		sb.WriteString(" ORDER BY occurred_at ASC, event_id ASC")
		if filter.Limit > 0 {
			args = append(args, filter.Limit)
			sb.WriteString(fmt.Sprintf(" LIMIT $%d", len(args)))
		}
	}

	return sb.String(), args
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanEvent(row rowScanner) (*events.Event, error) {
	var (
		event         events.Event
		aggregateID   sql.NullString
		correlationID sql.NullString
		causationID   sql.NullString
		payload       []byte
		metadata      []byte
	)

	if err := row.Scan(
		&event.ID, &event.Type, &aggregateID, &payload, &event.Version,
		&correlationID, &causationID, &metadata, &event.Timestamp,
	); err != nil {
		return nil, err
	}

	event.AggregateID = aggregateID.String
	event.CorrelationID = correlationID.String
	event.CausationID = causationID.String
	event.Timestamp = event.Timestamp.UTC()

	if len(payload) > 0 {
		if err := json.Unmarshal(payload, &event.Payload); err != nil {
			return nil, fmt.Errorf("failed to unmarshal event payload: %w", err)
		}
	}
	if len(metadata) > 0 {
		if err := json.Unmarshal(metadata, &event.Metadata); err != nil {
			return nil, fmt.Errorf("failed to unmarshal event metadata: %w", err)
		}
	}

	return &event, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullBytes(b []byte) interface{} {
	if len(b) == 0 {
		return nil
	}
	return b
}
