package repositories

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/vidtweet/backend/internal/db"
	"github.com/vidtweet/backend/internal/models"
)

// PostgresVideoRepository provides PostgreSQL-backed persistence for videos.
type PostgresVideoRepository struct {
	store
}

// NewPostgresVideoRepository constructs a video repository backed by PostgreSQL.
func NewPostgresVideoRepository(pool db.Pool, timeout time.Duration) *PostgresVideoRepository {
	return &PostgresVideoRepository{store: newStore(pool, timeout)}
}

const videoColumns = `id, owner_id, title, description, video_url, thumbnail_url, duration_seconds, views, is_published, created_at, updated_at`

func scanVideo(row pgx.Row) (models.Video, error) {
	var v models.Video
	err := row.Scan(&v.ID, &v.OwnerID, &v.Title, &v.Description, &v.VideoURL, &v.ThumbnailURL,
		&v.Duration, &v.Views, &v.IsPublished, &v.CreatedAt, &v.UpdatedAt)
	return v, err
}

// Create stores a new video record.
func (r *PostgresVideoRepository) Create(ctx context.Context, v models.Video) error {
	ctx, conn, release, err := r.acquire(ctx)
	if err != nil {
		return err
	}
	defer release()

	_, err = conn.Exec(ctx, `
        INSERT INTO videos (`+videoColumns+`)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
    `, v.ID, v.OwnerID, v.Title, v.Description, v.VideoURL, v.ThumbnailURL, v.Duration, v.Views,
		v.IsPublished, v.CreatedAt, v.UpdatedAt)
	if err != nil {
		return translate("insert video", err)
	}
	return nil
}

// FindByID fetches a single video.
func (r *PostgresVideoRepository) FindByID(ctx context.Context, id string) (models.Video, error) {
	ctx, conn, release, err := r.acquire(ctx)
	if err != nil {
		return models.Video{}, err
	}
	defer release()

	v, err := scanVideo(conn.QueryRow(ctx, `SELECT `+videoColumns+` FROM videos WHERE id = $1`, id))
	if err != nil {
		return models.Video{}, translate("select video", err)
	}
	return v, nil
}

// Update writes the editable fields of v: title, description and thumbnail.
func (r *PostgresVideoRepository) Update(ctx context.Context, v models.Video) (models.Video, error) {
	ctx, conn, release, err := r.acquire(ctx)
	if err != nil {
		return models.Video{}, err
	}
	defer release()

	updated, err := scanVideo(conn.QueryRow(ctx, `
        UPDATE videos
        SET title = $2, description = $3, thumbnail_url = $4, updated_at = $5
        WHERE id = $1
        RETURNING `+videoColumns,
		v.ID, v.Title, v.Description, v.ThumbnailURL, v.UpdatedAt))
	if err != nil {
		return models.Video{}, translate("update video", err)
	}
	return updated, nil
}

// Delete removes a video together with its comments and every like on either.
func (r *PostgresVideoRepository) Delete(ctx context.Context, id string) error {
	return r.inTx(ctx, "delete video", func(ctx context.Context, tx pgx.Tx) error {
		rows, err := tx.Query(ctx, `SELECT id FROM comments WHERE video_id = $1`, id)
		if err != nil {
			return translate("select video comments", err)
		}
		commentIDs, err := pgx.CollectRows(rows, pgx.RowTo[string])
		if err != nil {
			return translate("collect video comments", err)
		}

		if err := deleteLikes(ctx, tx, string(models.LikeKindComment), commentIDs...); err != nil {
			return err
		}
		if err := deleteLikes(ctx, tx, string(models.LikeKindVideo), id); err != nil {
			return err
		}

		tag, err := tx.Exec(ctx, `DELETE FROM videos WHERE id = $1`, id)
		if err != nil {
			return translate("delete video", err)
		}
		if tag.RowsAffected() == 0 {
			return ErrNotFound
		}
		return nil
	})
}

// IncrementViews adds one view. Every call counts; there is no per-viewer dedup.
func (r *PostgresVideoRepository) IncrementViews(ctx context.Context, id string) error {
	ctx, conn, release, err := r.acquire(ctx)
	if err != nil {
		return err
	}
	defer release()

	tag, err := conn.Exec(ctx, `UPDATE videos SET views = views + 1 WHERE id = $1`, id)
	if err != nil {
		return translate("increment views", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// TogglePublish flips the published flag and returns the stored video.
func (r *PostgresVideoRepository) TogglePublish(ctx context.Context, id string, now time.Time) (models.Video, error) {
	ctx, conn, release, err := r.acquire(ctx)
	if err != nil {
		return models.Video{}, err
	}
	defer release()

	v, err := scanVideo(conn.QueryRow(ctx, `
        UPDATE videos
        SET is_published = NOT is_published, updated_at = $2
        WHERE id = $1
        RETURNING `+videoColumns,
		id, now))
	if err != nil {
		return models.Video{}, translate("toggle publish", err)
	}
	return v, nil
}
