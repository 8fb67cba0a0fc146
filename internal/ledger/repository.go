package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	pkgerrors "fundline/pkg/errors"
)

// Repository is the durable idempotency ledger. Claim is the only gate for
// side effects: a processor may apply an event only while it holds the
// pending claim for that (event, processor) key.
type Repository interface {
	Claim(ctx context.Context, eventID, processorName string, staleBefore time.Time) (bool, error)
	MarkComplete(ctx context.Context, eventID, processorName string) error
	MarkFailed(ctx context.Context, eventID, processorName, reason string) error
	Get(ctx context.Context, eventID, processorName string) (*Record, error)
	List(ctx context.Context, filter Filter) ([]Record, error)
}

type PostgresRepository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) Repository {
	return &PostgresRepository{db: db}
}

// Claim atomically takes the (event, processor) key. The insert wins for a
// fresh key; the conflict update wins only when the existing row is failed
// or a pending claim older than staleBefore. Everything else affects zero
// rows, so exactly one of any number of concurrent claimants succeeds.
func (r *PostgresRepository) Claim(ctx context.Context, eventID, processorName string, staleBefore time.Time) (bool, error) {
	query := `
		INSERT INTO processing_ledger (event_id, processor_name, status, failure_reason, claimed_at, updated_at)
		VALUES ($1, $2, 'pending', NULL, NOW(), NOW())
		ON CONFLICT (event_id, processor_name) DO UPDATE
		SET status = 'pending', failure_reason = NULL, claimed_at = NOW(), updated_at = NOW()
		WHERE processing_ledger.status = 'failed'
		   OR (processing_ledger.status = 'pending' AND processing_ledger.claimed_at < $3)
	`

	res, err := r.db.ExecContext(ctx, query, eventID, processorName, staleBefore)
	if err != nil {
		return false, fmt.Errorf("failed to claim ledger key: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return false, err
	}

	return rows == 1, nil
}

func (r *PostgresRepository) MarkComplete(ctx context.Context, eventID, processorName string) error {
	query := `
		UPDATE processing_ledger
		SET status = 'complete', failure_reason = NULL, completed_at = NOW(), updated_at = NOW()
		WHERE event_id = $1 AND processor_name = $2 AND status = 'pending'
	`

	res, err := r.db.ExecContext(ctx, query, eventID, processorName)
	if err != nil {
		return fmt.Errorf("failed to mark ledger key complete: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return fmt.Errorf("ledger key %s/%s is not pending", eventID, processorName)
	}

	return nil
}

func (r *PostgresRepository) MarkFailed(ctx context.Context, eventID, processorName, reason string) error {
	query := `
		UPDATE processing_ledger
		SET status = 'failed', failure_reason = $3, updated_at = NOW()
		WHERE event_id = $1 AND processor_name = $2 AND status = 'pending'
	`

	res, err := r.db.ExecContext(ctx, query, eventID, processorName, reason)
	if err != nil {
		return fmt.Errorf("failed to mark ledger key failed: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return fmt.Errorf("ledger key %s/%s is not pending", eventID, processorName)
	}

	return nil
}

func (r *PostgresRepository) Get(ctx context.Context, eventID, processorName string) (*Record, error) {
	query := `
		SELECT event_id, processor_name, status, failure_reason, claimed_at, completed_at, updated_at
		FROM processing_ledger
		WHERE event_id = $1 AND processor_name = $2
	`

	row := r.db.QueryRowContext(ctx, query, eventID, processorName)
	record, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, pkgerrors.ErrNotFound.WithDetail("event_id", eventID).WithDetail("processor_name", processorName)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get ledger record: %w", err)
	}

	return record, nil
}

func (r *PostgresRepository) List(ctx context.Context, filter Filter) ([]Record, error) {
	var sb strings.Builder
	sb.WriteString(`
		SELECT event_id, processor_name, status, failure_reason, claimed_at, completed_at, updated_at
		FROM processing_ledger
	`)

	var conditions []string
	var args []interface{}

	if filter.EventID != "" {
		args = append(args, filter.EventID)
		conditions = append(conditions, fmt.Sprintf("event_id = $%d", len(args)))
	}
	if filter.ProcessorName != "" {
		args = append(args, filter.ProcessorName)
		conditions = append(conditions, fmt.Sprintf("processor_name = $%d", len(args)))
	}
	if filter.Status != "" {
		args = append(args, filter.Status)
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)))
	}

	if len(conditions) > 0 {
		sb.WriteString(" WHERE " + strings.Join(conditions, " AND "))
	}

	sb.WriteString(" ORDER BY updated_at DESC")

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
		return nil, fmt.Errorf("failed to list ledger records: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("context cancelled: %w", ctx.Err())
		default:
		}

		record, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan ledger record: %w", err)
		}
		records = append(records, *record)
	}

	return records, rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanRecord(row rowScanner) (*Record, error) {
	var (
		record        Record
		failureReason sql.NullString
		completedAt   sql.NullTime
	)

	if err := row.Scan(
		&record.EventID, &record.ProcessorName, &record.Status,
		&failureReason, &record.ClaimedAt, &completedAt, &record.UpdatedAt,
	); err != nil {
		return nil, err
	}

	record.FailureReason = failureReason.String
	if completedAt.Valid {
		t := completedAt.Time
		record.CompletedAt = &t
	}

	return &record, nil
}
