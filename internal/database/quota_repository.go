package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/postloop/content-pipeline/internal/domain"
)

// QuotaRepository handles database operations for quota accounts.
type QuotaRepository struct {
	db *sqlx.DB
}

// NewQuotaRepository creates a new quota repository.
func NewQuotaRepository(db *sqlx.DB) *QuotaRepository {
	return &QuotaRepository{db: db}
}

// Get fetches the quota account for a requester.
func (r *QuotaRepository) Get(ctx context.Context, requesterID string) (*domain.QuotaAccount, error) {
	query := `
		SELECT requester_id, plan, remaining, updated_at
		FROM quota_accounts
		WHERE requester_id = $1
	`

	var account domain.QuotaAccount
	if err := r.db.GetContext(ctx, &account, query, requesterID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrAccountNotFound
		}
		return nil, fmt.Errorf("get quota account: %w", err)
	}

	return &account, nil
}

// Decrement atomically takes one credit from a metered account, but only
// when at least one credit remains. The WHERE clause is the race guard: two
// concurrent runs can both pass the up-front check, yet only as many
// decrements land as there are credits, and remaining never goes negative.
// Returns false when no credit was available to take.
func (r *QuotaRepository) Decrement(ctx context.Context, requesterID string) (bool, error) {
	query := `
		UPDATE quota_accounts
		SET remaining = remaining - 1, updated_at = NOW()
		WHERE requester_id = $1 AND plan = 'metered' AND remaining >= 1
	`

	result, err := r.db.ExecContext(ctx, query, requesterID)
	if err != nil {
		return false, fmt.Errorf("decrement quota: %w", err)
	}

	affected, raErr := result.RowsAffected()
	if raErr != nil {
		return false, fmt.Errorf("decrement quota rows: %w", raErr)
	}

	return affected == 1, nil
}
