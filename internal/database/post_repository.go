package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/postloop/content-pipeline/internal/domain"
)

// PostRepository handles database operations for post records.
type PostRepository struct {
	db *sqlx.DB
}

// NewPostRepository creates a new post repository.
func NewPostRepository(db *sqlx.DB) *PostRepository {
	return &PostRepository{db: db}
}

// Insert stores a new post record.
func (r *PostRepository) Insert(ctx context.Context, post *domain.Post) error {
	query := `
		INSERT INTO posts (id, requester_id, content, tone, status, ai_score, human_score, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := r.db.ExecContext(ctx, query,
		post.ID,
		post.RequesterID,
		post.Content,
		post.Tone,
		string(post.Status),
		post.AIScore,
		post.HumanScore,
		post.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert post: %w", err)
	}

	return nil
}

// GetByID fetches a single post record.
func (r *PostRepository) GetByID(ctx context.Context, id string) (*domain.Post, error) {
	query := `
		SELECT id, requester_id, content, tone, status, ai_score, human_score, created_at
		FROM posts
		WHERE id = $1
	`

	var post domain.Post
	if err := r.db.GetContext(ctx, &post, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrPostNotFound
		}
		return nil, fmt.Errorf("get post: %w", err)
	}

	return &post, nil
}

// ListByRequester returns a requester's posts, newest first.
func (r *PostRepository) ListByRequester(ctx context.Context, requesterID string, limit, offset int) ([]domain.Post, error) {
	query := `
		SELECT id, requester_id, content, tone, status, ai_score, human_score, created_at
		FROM posts
		WHERE requester_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`

	posts := []domain.Post{}
	if err := r.db.SelectContext(ctx, &posts, query, requesterID, limit, offset); err != nil {
		return nil, fmt.Errorf("list posts: %w", err)
	}

	return posts, nil
}

// UpdateStatus moves a post to a new lifecycle state.
func (r *PostRepository) UpdateStatus(ctx context.Context, id string, status domain.PostStatus) error {
	query := `UPDATE posts SET status = $2 WHERE id = $1`

	result, err := r.db.ExecContext(ctx, query, id, string(status))
	if err != nil {
		return fmt.Errorf("update post status: %w", err)
	}

	affected, raErr := result.RowsAffected()
	if raErr != nil {
		return fmt.Errorf("update post status rows: %w", raErr)
	}
	if affected == 0 {
		return domain.ErrPostNotFound
	}

	return nil
}

// Delete removes a post record.
func (r *PostRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM posts WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete post: %w", err)
	}

	affected, raErr := result.RowsAffected()
	if raErr != nil {
		return fmt.Errorf("delete post rows: %w", raErr)
	}
	if affected == 0 {
		return domain.ErrPostNotFound
	}

	return nil
}
