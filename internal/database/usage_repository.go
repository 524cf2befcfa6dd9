package database

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/postloop/content-pipeline/internal/domain"
)

// UsageRepository appends and reads the immutable usage-event audit log.
type UsageRepository struct {
	db *sqlx.DB
}

// NewUsageRepository creates a new usage repository.
func NewUsageRepository(db *sqlx.DB) *UsageRepository {
	return &UsageRepository{db: db}
}

// Append records a usage event. Events are never updated or deleted.
func (r *UsageRepository) Append(ctx context.Context, event *domain.UsageEvent) error {
	query := `
		INSERT INTO usage_events (id, requester_id, service, credits_used, success, response_time_ms, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := r.db.ExecContext(ctx, query,
		event.ID,
		event.RequesterID,
		event.Service,
		event.CreditsUsed,
		event.Success,
		event.ResponseTimeMs,
		event.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("append usage event: %w", err)
	}

	return nil
}

// ListByRequester returns a requester's usage events, newest first.
func (r *UsageRepository) ListByRequester(ctx context.Context, requesterID string, limit int) ([]domain.UsageEvent, error) {
	query := `
		SELECT id, requester_id, service, credits_used, success, response_time_ms, created_at
		FROM usage_events
		WHERE requester_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`

	events := []domain.UsageEvent{}
	if err := r.db.SelectContext(ctx, &events, query, requesterID, limit); err != nil {
		return nil, fmt.Errorf("list usage events: %w", err)
	}

	return events, nil
}
