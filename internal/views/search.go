package views

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vidtweet/backend/internal/models"
	"github.com/vidtweet/backend/internal/query"
)

// Search finds channels whose name or handle contains text and published
// videos whose title contains text, ignoring case. Both scans are sequential.
func (e *Engine) Search(ctx context.Context, text string, p query.Pagination) (models.SearchResult, error) {
	result := models.SearchResult{Users: []models.OwnerSummary{}, Videos: []models.VideoRef{}}
	pattern := query.LikePattern(text)

	err := e.run(ctx, "search", func(ctx context.Context, conn *pgxpool.Conn) error {
		rows, err := conn.Query(ctx, `
            SELECT `+ownerColumns+`
            FROM users u
            WHERE u.full_name ILIKE $1 OR u.username ILIKE $1
            ORDER BY u.full_name ASC, u.id ASC
            LIMIT $2 OFFSET $3
        `, pattern, p.Limit, p.Offset())
		if err != nil {
			return fmt.Errorf("search users: %w", err)
		}
		users, err := collect(rows, scanOwner)
		if err != nil {
			return fmt.Errorf("scan user matches: %w", err)
		}

		rows, err = conn.Query(ctx, `
            SELECT v.id, v.title, v.thumbnail_url
            FROM videos v
            WHERE v.is_published AND v.title ILIKE $1
            ORDER BY v.created_at DESC, v.id DESC
            LIMIT $2 OFFSET $3
        `, pattern, p.Limit, p.Offset())
		if err != nil {
			return fmt.Errorf("search videos: %w", err)
		}
		videos, err := collect(rows, func(row pgx.Row, v *models.VideoRef) error {
			return row.Scan(&v.ID, &v.Title, &v.Thumbnail)
		})
		if err != nil {
			return fmt.Errorf("scan video matches: %w", err)
		}

		result.Users = users
		result.Videos = videos
		return nil
	})
	return result, err
}
