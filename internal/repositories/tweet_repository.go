package repositories

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/vidtweet/backend/internal/db"
	"github.com/vidtweet/backend/internal/models"
)

// PostgresTweetRepository provides PostgreSQL-backed persistence for tweets.
type PostgresTweetRepository struct {
	store
}

// NewPostgresTweetRepository constructs a tweet repository backed by PostgreSQL.
func NewPostgresTweetRepository(pool db.Pool, timeout time.Duration) *PostgresTweetRepository {
	return &PostgresTweetRepository{store: newStore(pool, timeout)}
}

// Create stores a new tweet.
func (r *PostgresTweetRepository) Create(ctx context.Context, tweet models.Tweet) error {
	ctx, conn, release, err := r.acquire(ctx)
	if err != nil {
		return err
	}
	defer release()

	_, err = conn.Exec(ctx, `
        INSERT INTO tweets (id, owner_id, content, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5)
    `, tweet.ID, tweet.OwnerID, tweet.Content, tweet.CreatedAt, tweet.UpdatedAt)
	if err != nil {
		return translate("insert tweet", err)
	}
	return nil
}

// FindByID fetches a tweet.
func (r *PostgresTweetRepository) FindByID(ctx context.Context, id string) (models.Tweet, error) {
	ctx, conn, release, err := r.acquire(ctx)
	if err != nil {
		return models.Tweet{}, err
	}
	defer release()

	var t models.Tweet
	err = conn.QueryRow(ctx, `
        SELECT id, owner_id, content, created_at, updated_at
        FROM tweets
        WHERE id = $1
    `, id).Scan(&t.ID, &t.OwnerID, &t.Content, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return models.Tweet{}, translate("select tweet", err)
	}
	return t, nil
}

// UpdateContent replaces a tweet's text.
func (r *PostgresTweetRepository) UpdateContent(ctx context.Context, id, content string, now time.Time) (models.Tweet, error) {
	ctx, conn, release, err := r.acquire(ctx)
	if err != nil {
		return models.Tweet{}, err
	}
	defer release()

	var t models.Tweet
	err = conn.QueryRow(ctx, `
        UPDATE tweets
        SET content = $2, updated_at = $3
        WHERE id = $1
        RETURNING id, owner_id, content, created_at, updated_at
    `, id, content, now).Scan(&t.ID, &t.OwnerID, &t.Content, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return models.Tweet{}, translate("update tweet", err)
	}
	return t, nil
}

// Delete removes a tweet and its likes.
func (r *PostgresTweetRepository) Delete(ctx context.Context, id string) error {
	return r.inTx(ctx, "delete tweet", func(ctx context.Context, tx pgx.Tx) error {
		if err := deleteLikes(ctx, tx, string(models.LikeKindTweet), id); err != nil {
			return err
		}
		tag, err := tx.Exec(ctx, `DELETE FROM tweets WHERE id = $1`, id)
		if err != nil {
			return translate("delete tweet", err)
		}
		if tag.RowsAffected() == 0 {
			return ErrNotFound
		}
		return nil
	})
}
