package views

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vidtweet/backend/internal/models"
	"github.com/vidtweet/backend/internal/query"
)

// VideoFeed lists videos matching q with their owners attached. Unpublished
// videos are only visible to their owner.
func (e *Engine) VideoFeed(ctx context.Context, q query.VideoQuery, viewerID string) (models.Page[models.VideoSummary], error) {
	var page models.Page[models.VideoSummary]
	err := e.run(ctx, "video_feed", func(ctx context.Context, conn *pgxpool.Conn) error {
		args := []any{nullable(viewerID)}
		where := []string{"(v.is_published OR v.owner_id = $1)"}
		if q.Text != "" {
			args = append(args, query.LikePattern(q.Text))
			where = append(where, fmt.Sprintf("v.title ILIKE $%d", len(args)))
		}
		if q.OwnerID != "" {
			args = append(args, q.OwnerID)
			where = append(where, fmt.Sprintf("v.owner_id = $%d", len(args)))
		}
		args = append(args, q.FetchLimit(), q.Offset())

		sql := fmt.Sprintf(`
            SELECT %s
            FROM videos v
            JOIN users u ON u.id = v.owner_id
            WHERE %s
            ORDER BY %s
            LIMIT $%d OFFSET $%d
        `, videoSummaryColumns, strings.Join(where, " AND "), q.OrderBy(), len(args)-1, len(args))

		rows, err := conn.Query(ctx, sql, args...)
		if err != nil {
			return fmt.Errorf("query video feed: %w", err)
		}
		items, err := collect(rows, scanVideoSummary)
		if err != nil {
			return fmt.Errorf("scan video feed: %w", err)
		}
		page = models.NewPage(items, q.Page, q.Limit)
		return nil
	})
	return page, err
}

// PublicVideos lists published videos newest first without authentication.
func (e *Engine) PublicVideos(ctx context.Context, p query.Pagination) (models.Page[models.VideoSummary], error) {
	var page models.Page[models.VideoSummary]
	err := e.run(ctx, "public_videos", func(ctx context.Context, conn *pgxpool.Conn) error {
		rows, err := conn.Query(ctx, `
            SELECT `+videoSummaryColumns+`
            FROM videos v
            JOIN users u ON u.id = v.owner_id
            WHERE v.is_published
            ORDER BY v.created_at DESC, v.id DESC
            LIMIT $1 OFFSET $2
        `, p.FetchLimit(), p.Offset())
		if err != nil {
			return fmt.Errorf("query public videos: %w", err)
		}
		items, err := collect(rows, scanVideoSummary)
		if err != nil {
			return fmt.Errorf("scan public videos: %w", err)
		}
		page = models.NewPage(items, p.Page, p.Limit)
		return nil
	})
	return page, err
}

// VideoDetail returns one video with its like count and whether viewerID
// liked it. It does not count a view; callers increment views separately.
func (e *Engine) VideoDetail(ctx context.Context, videoID, viewerID string) (models.VideoDetail, error) {
	var detail models.VideoDetail
	err := e.run(ctx, "video_detail", func(ctx context.Context, conn *pgxpool.Conn) error {
		dest := append(videoSummaryDest(&detail.VideoSummary), &detail.UpdatedAt, &detail.LikesCount, &detail.IsLiked)
		err := conn.QueryRow(ctx, `
            SELECT `+videoSummaryColumns+`,
                v.updated_at,
                (SELECT COUNT(*) FROM likes l WHERE l.target_kind = 'video' AND l.target_id = v.id),
                EXISTS (
                    SELECT 1 FROM likes l
                    WHERE l.target_kind = 'video' AND l.target_id = v.id AND l.liked_by = $2
                )
            FROM videos v
            JOIN users u ON u.id = v.owner_id
            WHERE v.id = $1 AND (v.is_published OR v.owner_id = $2)
        `, videoID, nullable(viewerID)).Scan(dest...)
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrVideoNotFound
		}
		if err != nil {
			return fmt.Errorf("select video detail: %w", err)
		}
		return nil
	})
	return detail, err
}

// LikedVideos lists videos userID liked, newest like first.
func (e *Engine) LikedVideos(ctx context.Context, userID string, p query.Pagination) (models.Page[models.LikedVideo], error) {
	var page models.Page[models.LikedVideo]
	err := e.run(ctx, "liked_videos", func(ctx context.Context, conn *pgxpool.Conn) error {
		rows, err := conn.Query(ctx, `
            SELECT `+videoSummaryColumns+`, l.created_at
            FROM likes l
            JOIN videos v ON l.target_kind = 'video' AND v.id = l.target_id
            JOIN users u ON u.id = v.owner_id
            WHERE l.liked_by = $1 AND (v.is_published OR v.owner_id = $1)
            ORDER BY l.created_at DESC, v.id DESC
            LIMIT $2 OFFSET $3
        `, userID, p.FetchLimit(), p.Offset())
		if err != nil {
			return fmt.Errorf("query liked videos: %w", err)
		}
		items, err := collect(rows, func(row pgx.Row, lv *models.LikedVideo) error {
			return row.Scan(append(videoSummaryDest(&lv.VideoSummary), &lv.LikedAt)...)
		})
		if err != nil {
			return fmt.Errorf("scan liked videos: %w", err)
		}
		page = models.NewPage(items, p.Page, p.Limit)
		return nil
	})
	return page, err
}

// WatchHistory resolves userID's watched videos, most recently watched first.
func (e *Engine) WatchHistory(ctx context.Context, userID string, p query.Pagination) (models.Page[models.WatchedVideo], error) {
	var page models.Page[models.WatchedVideo]
	err := e.run(ctx, "watch_history", func(ctx context.Context, conn *pgxpool.Conn) error {
		rows, err := conn.Query(ctx, `
            SELECT `+videoSummaryColumns+`, w.watched_at
            FROM watch_history w
            JOIN videos v ON v.id = w.video_id
            JOIN users u ON u.id = v.owner_id
            WHERE w.user_id = $1 AND (v.is_published OR v.owner_id = $1)
            ORDER BY w.watched_at DESC, v.id DESC
            LIMIT $2 OFFSET $3
        `, userID, p.FetchLimit(), p.Offset())
		if err != nil {
			return fmt.Errorf("query watch history: %w", err)
		}
		items, err := collect(rows, func(row pgx.Row, wv *models.WatchedVideo) error {
			return row.Scan(append(videoSummaryDest(&wv.VideoSummary), &wv.WatchedAt)...)
		})
		if err != nil {
			return fmt.Errorf("scan watch history: %w", err)
		}
		page = models.NewPage(items, p.Page, p.Limit)
		return nil
	})
	return page, err
}
