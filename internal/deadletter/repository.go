package deadletter

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	pkgerrors "fundline/pkg/errors"
	"fundline/pkg/events"
)

// Repository is the write-once dead-letter store. Entries are never updated
// or deleted by the pipeline; only an operator decision removes them.
type Repository interface {
	Enqueue(ctx context.Context, event events.Event, processorName, failureReason string) (*Entry, error)
	Get(ctx context.Context, id string) (*Entry, error)
	List(ctx context.Context, filter Filter) ([]Entry, error)
	Count(ctx context.Context, filter Filter) (int64, error)
}

type PostgresRepository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) Repository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Enqueue(ctx context.Context, event events.Event, processorName, failureReason string) (*Entry, error) {
	data, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal event: %w", err)
	}

	entry := &Entry{
		ID:              uuid.New().String(),
		OriginalEventID: event.ID,
		Event:           event,
		ProcessorName:   processorName,
		FailureReason:   failureReason,
		CreatedAt:       time.Now().UTC(),
	}

	query := `
		INSERT INTO dead_letters (id, original_event_id, event_data, processor_name, failure_reason, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err = r.db.ExecContext(ctx, query,
		entry.ID, entry.OriginalEventID, data,
		entry.ProcessorName, entry.FailureReason, entry.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to enqueue dead letter: %w", err)
	}

	return entry, nil
}

func (r *PostgresRepository) Get(ctx context.Context, id string) (*Entry, error) {
	query := `
		SELECT id, original_event_id, event_data, processor_name, failure_reason, created_at
		FROM dead_letters
		WHERE id = $1
	`

	row := r.db.QueryRowContext(ctx, query, id)
	entry, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, pkgerrors.ErrNotFound.WithDetail("id", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get dead letter: %w", err)
	}

	return entry, nil
}

func (r *PostgresRepository) List(ctx context.Context, filter Filter) ([]Entry, error) {
	var sb strings.Builder
	sb.WriteString(`
		SELECT id, original_event_id, event_data, processor_name, failure_reason, created_at
		FROM dead_letters
	`)

	conditions, args := buildConditions(filter)
	if len(conditions) > 0 {
		sb.WriteString(" WHERE " + strings.Join(conditions, " AND "))
	}

	sb.WriteString(" ORDER BY created_at DESC")

	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		sb.WriteString(fmt.Sprintf(" LIMIT $%d", len(args)))
	}
	if filter.Offset > 0 {
		args = append(args, filter.Offset)
		sb.WriteString(fmt.Sprintf(" OFFSET $%d", len(args)))
	}

	rows, err := r.db.QueryContext(ctx, sb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list dead letters: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("context cancelled: %w", ctx.Err())
		default:
		}

		entry, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan dead letter: %w", err)
		}
		entries = append(entries, *entry)
	}

	return entries, rows.Err()
}

func (r *PostgresRepository) Count(ctx context.Context, filter Filter) (int64, error) {
	var sb strings.Builder
	sb.WriteString(`SELECT COUNT(*) FROM dead_letters`)

	conditions, args := buildConditions(filter)
	if len(conditions) > 0 {
		sb.WriteString(" WHERE " + strings.Join(conditions, " AND "))
	}

	var count int64
	if err := r.db.QueryRowContext(ctx, sb.String(), args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count dead letters: %w", err)
	}

	return count, nil
}

func buildConditions(filter Filter) ([]string, []interface{}) {
	var conditions []string
	var args []interface{}

	if filter.OriginalEventID != "" {
		args = append(args, filter.OriginalEventID)
		conditions = append(conditions, fmt.Sprintf("original_event_id = $%d", len(args)))
	}
	if filter.ProcessorName != "" {
		args = append(args, filter.ProcessorName)
		conditions = append(conditions, fmt.Sprintf("processor_name = $%d", len(args)))
	}
	if !filter.From.IsZero() {
		args = append(args, filter.From)
		conditions = append(conditions, fmt.Sprintf("created_at >= $%d", len(args)))
	}
	if !filter.To.IsZero() {
		args = append(args, filter.To)
		conditions = append(conditions, fmt.Sprintf("created_at <= $%d", len(args)))
	}

	return conditions, args
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanEntry(row rowScanner) (*Entry, error) {
	var (
		entry Entry
		data  []byte
	)

	if err := row.Scan(
		&entry.ID, &entry.OriginalEventID, &data,
		&entry.ProcessorName, &entry.FailureReason, &entry.CreatedAt,
	); err != nil {
		return nil, err
	}

	if err := json.Unmarshal(data, &entry.Event); err != nil {
		return nil, fmt.Errorf("failed to unmarshal dead letter event: %w", err)
	}

	return &entry, nil
}
