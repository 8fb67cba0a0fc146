package campaign

import (
	"context"
	"database/sql"
	"fmt"
)

// RoleFundraiser is granted to a user the first time one of their campaigns
// is created.
const RoleFundraiser = "fundraiser"

type Repository interface {
	GrantRole(ctx context.Context, userID, role string) error
}

type PostgresRepository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) Repository {
	return &PostgresRepository{db: db}
}

// GrantRole is an idempotent role grant; re-granting an existing role is a
// no-op.
func (r *PostgresRepository) GrantRole(ctx context.Context, userID, role string) error {
	query := `
		INSERT INTO user_roles (user_id, role, granted_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (user_id, role) DO NOTHING
	`

	_, err := r.db.ExecContext(ctx, query, userID, role)
	if err != nil {
		return fmt.Errorf("failed to grant role: %w", err)
	}

	return nil
}
