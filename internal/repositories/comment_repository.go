package repositories

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/vidtweet/backend/internal/db"
	"github.com/vidtweet/backend/internal/models"
)

// PostgresCommentRepository provides PostgreSQL-backed persistence for comments.
type PostgresCommentRepository struct {
	store
}

// NewPostgresCommentRepository constructs a comment repository backed by PostgreSQL.
func NewPostgresCommentRepository(pool db.Pool, timeout time.Duration) *PostgresCommentRepository {
	return &PostgresCommentRepository{store: newStore(pool, timeout)}
}

// Create stores a comment. A missing video yields ErrNotFound.
func (r *PostgresCommentRepository) Create(ctx context.Context, c models.Comment) error {
	ctx, conn, release, err := r.acquire(ctx)
	if err != nil {
		return err
	}
	defer release()

	_, err = conn.Exec(ctx, `
        INSERT INTO comments (id, video_id, owner_id, content, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6)
    `, c.ID, c.VideoID, c.OwnerID, c.Content, c.CreatedAt, c.UpdatedAt)
	if err != nil {
		return translate("insert comment", err)
	}
	return nil
}

// FindByID fetches a comment.
func (r *PostgresCommentRepository) FindByID(ctx context.Context, id string) (models.Comment, error) {
	ctx, conn, release, err := r.acquire(ctx)
	if err != nil {
		return models.Comment{}, err
	}
	defer release()

	var c models.Comment
	err = conn.QueryRow(ctx, `
        SELECT id, video_id, owner_id, content, created_at, updated_at
        FROM comments
        WHERE id = $1
    `, id).Scan(&c.ID, &c.VideoID, &c.OwnerID, &c.Content, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return models.Comment{}, translate("select comment", err)
	}
	return c, nil
}

// UpdateContent replaces a comment's text.
func (r *PostgresCommentRepository) UpdateContent(ctx context.Context, id, content string, now time.Time) (models.Comment, error) {
	ctx, conn, release, err := r.acquire(ctx)
	if err != nil {
		return models.Comment{}, err
	}
	defer release()

	var c models.Comment
	err = conn.QueryRow(ctx, `
        UPDATE comments
        SET content = $2, updated_at = $3
        WHERE id = $1
        RETURNING id, video_id, owner_id, content, created_at, updated_at
    `, id, content, now).Scan(&c.ID, &c.VideoID, &c.OwnerID, &c.Content, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return models.Comment{}, translate("update comment", err)
	}
	return c, nil
}

// Delete removes a comment and its likes.
func (r *PostgresCommentRepository) Delete(ctx context.Context, id string) error {
	return r.inTx(ctx, "delete comment", func(ctx context.Context, tx pgx.Tx) error {
		if err := deleteLikes(ctx, tx, string(models.LikeKindComment), id); err != nil {
			return err
		}
		tag, err := tx.Exec(ctx, `DELETE FROM comments WHERE id = $1`, id)
		if err != nil {
			return translate("delete comment", err)
		}
		if tag.RowsAffected() == 0 {
			return ErrNotFound
		}
		return nil
	})
}
