package views

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vidtweet/backend/internal/models"
	"github.com/vidtweet/backend/internal/query"
)

// Playlist loads a playlist with its owner and the videos viewerID may see,
// in the order they were added.
func (e *Engine) Playlist(ctx context.Context, playlistID, viewerID string) (models.PlaylistView, error) {
	var view models.PlaylistView
	err := e.run(ctx, "playlist", func(ctx context.Context, conn *pgxpool.Conn) error {
		err := conn.QueryRow(ctx, `
            SELECT p.id, p.name, p.description, p.created_at, p.updated_at, `+ownerColumns+`
            FROM playlists p
            JOIN users u ON u.id = p.owner_id
            WHERE p.id = $1
        `, playlistID).Scan(&view.ID, &view.Name, &view.Description, &view.CreatedAt, &view.UpdatedAt,
			&view.Owner.ID, &view.Owner.Username, &view.Owner.FullName, &view.Owner.Avatar)
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrPlaylistNotFound
		}
		if err != nil {
			return fmt.Errorf("select playlist: %w", err)
		}

		rows, err := conn.Query(ctx, `
            SELECT `+videoSummaryColumns+`
            FROM playlist_videos pv
            JOIN videos v ON v.id = pv.video_id
            JOIN users u ON u.id = v.owner_id
            WHERE pv.playlist_id = $1 AND (v.is_published OR v.owner_id = $2)
            ORDER BY pv.added_at ASC, v.id ASC
        `, playlistID, nullable(viewerID))
		if err != nil {
			return fmt.Errorf("query playlist videos: %w", err)
		}
		videos, err := collect(rows, scanVideoSummary)
		if err != nil {
			return fmt.Errorf("scan playlist videos: %w", err)
		}
		view.Videos = videos
		view.TotalVideos = len(videos)
		return nil
	})
	return view, err
}

// UserPlaylists lists ownerID's playlists newest first with their size and the
// thumbnail of the first video added.
func (e *Engine) UserPlaylists(ctx context.Context, ownerID string, p query.Pagination) (models.Page[models.PlaylistSummary], error) {
	var page models.Page[models.PlaylistSummary]
	err := e.run(ctx, "user_playlists", func(ctx context.Context, conn *pgxpool.Conn) error {
		rows, err := conn.Query(ctx, `
            SELECT p.id, p.name, p.description,
                (SELECT COUNT(*) FROM playlist_videos pv WHERE pv.playlist_id = p.id),
                COALESCE((
                    SELECT v.thumbnail_url
                    FROM playlist_videos pv
                    JOIN videos v ON v.id = pv.video_id
                    WHERE pv.playlist_id = p.id
                    ORDER BY pv.added_at ASC, v.id ASC
                    LIMIT 1
                ), ''),
                p.created_at, p.updated_at
            FROM playlists p
            WHERE p.owner_id = $1
            ORDER BY p.created_at DESC, p.id DESC
            LIMIT $2 OFFSET $3
        `, ownerID, p.FetchLimit(), p.Offset())
		if err != nil {
			return fmt.Errorf("query user playlists: %w", err)
		}
		items, err := collect(rows, func(row pgx.Row, s *models.PlaylistSummary) error {
			return row.Scan(&s.ID, &s.Name, &s.Description, &s.TotalVideos, &s.Thumbnail, &s.CreatedAt, &s.UpdatedAt)
		})
		if err != nil {
			return fmt.Errorf("scan user playlists: %w", err)
		}
		page = models.NewPage(items, p.Page, p.Limit)
		return nil
	})
	return page, err
}
