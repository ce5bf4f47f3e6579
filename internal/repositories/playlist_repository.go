package repositories

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vidtweet/backend/internal/db"
	"github.com/vidtweet/backend/internal/models"
)

// PostgresPlaylistRepository persists playlists and their video membership.
type PostgresPlaylistRepository struct {
	store
}

// NewPostgresPlaylistRepository constructs a playlist repository backed by PostgreSQL.
func NewPostgresPlaylistRepository(pool db.Pool, timeout time.Duration) *PostgresPlaylistRepository {
	return &PostgresPlaylistRepository{store: newStore(pool, timeout)}
}

// Create stores an empty playlist.
func (r *PostgresPlaylistRepository) Create(ctx context.Context, p models.Playlist) error {
	ctx, conn, release, err := r.acquire(ctx)
	if err != nil {
		return err
	}
	defer release()

	_, err = conn.Exec(ctx, `
        INSERT INTO playlists (id, owner_id, name, description, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6)
    `, p.ID, p.OwnerID, p.Name, p.Description, p.CreatedAt, p.UpdatedAt)
	if err != nil {
		return translate("insert playlist", err)
	}
	return nil
}

// FindByID fetches a playlist without its videos.
func (r *PostgresPlaylistRepository) FindByID(ctx context.Context, id string) (models.Playlist, error) {
	ctx, conn, release, err := r.acquire(ctx)
	if err != nil {
		return models.Playlist{}, err
	}
	defer release()

	var p models.Playlist
	err = conn.QueryRow(ctx, `
        SELECT id, owner_id, name, description, created_at, updated_at
        FROM playlists
        WHERE id = $1
    `, id).Scan(&p.ID, &p.OwnerID, &p.Name, &p.Description, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return models.Playlist{}, translate("select playlist", err)
	}
	return p, nil
}

// Update changes name and description.
func (r *PostgresPlaylistRepository) Update(ctx context.Context, p models.Playlist) (models.Playlist, error) {
	ctx, conn, release, err := r.acquire(ctx)
	if err != nil {
		return models.Playlist{}, err
	}
	defer release()

	var out models.Playlist
	err = conn.QueryRow(ctx, `
        UPDATE playlists
        SET name = $2, description = $3, updated_at = $4
        WHERE id = $1
        RETURNING id, owner_id, name, description, created_at, updated_at
    `, p.ID, p.Name, p.Description, p.UpdatedAt).Scan(&out.ID, &out.OwnerID, &out.Name, &out.Description, &out.CreatedAt, &out.UpdatedAt)
	if err != nil {
		return models.Playlist{}, translate("update playlist", err)
	}
	return out, nil
}

// Delete removes a playlist; membership rows cascade.
func (r *PostgresPlaylistRepository) Delete(ctx context.Context, id string) error {
	ctx, conn, release, err := r.acquire(ctx)
	if err != nil {
		return err
	}
	defer release()

	tag, err := conn.Exec(ctx, `DELETE FROM playlists WHERE id = $1`, id)
	if err != nil {
		return translate("delete playlist", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// AddVideo adds videoID to the playlist. Adding a member again is a no-op.
// A missing video yields ErrNotFound.
func (r *PostgresPlaylistRepository) AddVideo(ctx context.Context, playlistID, videoID string, at time.Time) error {
	ctx, conn, release, err := r.acquire(ctx)
	if err != nil {
		return err
	}
	defer release()

	_, err = conn.Exec(ctx, `
        INSERT INTO playlist_videos (playlist_id, video_id, added_at)
        VALUES ($1, $2, $3)
        ON CONFLICT (playlist_id, video_id) DO NOTHING
    `, playlistID, videoID, at)
	if err != nil {
		return translate("add playlist video", err)
	}
	return r.touch(ctx, conn, playlistID, at)
}

// RemoveVideo drops videoID from the playlist. Removing a non-member is a no-op.
func (r *PostgresPlaylistRepository) RemoveVideo(ctx context.Context, playlistID, videoID string, at time.Time) error {
	ctx, conn, release, err := r.acquire(ctx)
	if err != nil {
		return err
	}
	defer release()

	if _, err := conn.Exec(ctx, `
        DELETE FROM playlist_videos
        WHERE playlist_id = $1 AND video_id = $2
    `, playlistID, videoID); err != nil {
		return translate("remove playlist video", err)
	}
	return r.touch(ctx, conn, playlistID, at)
}

func (r *PostgresPlaylistRepository) touch(ctx context.Context, conn *pgxpool.Conn, playlistID string, at time.Time) error {
	if _, err := conn.Exec(ctx, `UPDATE playlists SET updated_at = $2 WHERE id = $1`, playlistID, at); err != nil {
		return translate("touch playlist", err)
	}
	return nil
}
