package views

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vidtweet/backend/internal/models"
	"github.com/vidtweet/backend/internal/query"
)

// CommentFeed lists the comments on videoID, newest first. A video without
// comments yields an empty page; a video the viewer cannot see is not found.
func (e *Engine) CommentFeed(ctx context.Context, videoID, viewerID string, p query.Pagination) (models.Page[models.CommentView], error) {
	var page models.Page[models.CommentView]
	err := e.run(ctx, "comment_feed", func(ctx context.Context, conn *pgxpool.Conn) error {
		var visible bool
		if err := conn.QueryRow(ctx, `
            SELECT EXISTS (SELECT 1 FROM videos WHERE id = $1 AND (is_published OR owner_id = $2))
        `, videoID, nullable(viewerID)).Scan(&visible); err != nil {
			return fmt.Errorf("check comment video: %w", err)
		}
		if !visible {
			return ErrVideoNotFound
		}

		rows, err := conn.Query(ctx, `
            SELECT c.id, c.content, c.created_at, c.updated_at,
                `+ownerColumns+`,
                v.id, v.title, v.thumbnail_url,
                (SELECT COUNT(*) FROM likes l WHERE l.target_kind = 'comment' AND l.target_id = c.id),
                EXISTS (
                    SELECT 1 FROM likes l
                    WHERE l.target_kind = 'comment' AND l.target_id = c.id AND l.liked_by = $2
                )
            FROM comments c
            JOIN users u ON u.id = c.owner_id
            JOIN videos v ON v.id = c.video_id
            WHERE c.video_id = $1
            ORDER BY c.created_at DESC, c.id DESC
            LIMIT $3 OFFSET $4
        `, videoID, nullable(viewerID), p.FetchLimit(), p.Offset())
		if err != nil {
			return fmt.Errorf("query comments: %w", err)
		}
		items, err := collect(rows, func(row pgx.Row, c *models.CommentView) error {
			return row.Scan(&c.ID, &c.Content, &c.CreatedAt, &c.UpdatedAt,
				&c.Owner.ID, &c.Owner.Username, &c.Owner.FullName, &c.Owner.Avatar,
				&c.Video.ID, &c.Video.Title, &c.Video.Thumbnail,
				&c.LikesCount, &c.IsLiked)
		})
		if err != nil {
			return fmt.Errorf("scan comments: %w", err)
		}
		page = models.NewPage(items, p.Page, p.Limit)
		return nil
	})
	return page, err
}

// Tweets lists all tweets newest first, with like aggregates for viewerID.
func (e *Engine) Tweets(ctx context.Context, viewerID string, p query.Pagination) (models.Page[models.TweetView], error) {
	return e.tweets(ctx, "tweets", "", viewerID, p)
}

// UserTweets lists ownerID's tweets newest first. An unknown owner is not found.
func (e *Engine) UserTweets(ctx context.Context, ownerID, viewerID string, p query.Pagination) (models.Page[models.TweetView], error) {
	return e.tweets(ctx, "user_tweets", ownerID, viewerID, p)
}

func (e *Engine) tweets(ctx context.Context, name, ownerID, viewerID string, p query.Pagination) (models.Page[models.TweetView], error) {
	var page models.Page[models.TweetView]
	err := e.run(ctx, name, func(ctx context.Context, conn *pgxpool.Conn) error {
		if ownerID != "" {
			var exists bool
			if err := conn.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM users WHERE id = $1)`, ownerID).Scan(&exists); err != nil {
				return fmt.Errorf("check tweet owner: %w", err)
			}
			if !exists {
				return ErrChannelNotFound
			}
		}

		rows, err := conn.Query(ctx, `
            SELECT t.id, t.content, t.created_at, t.updated_at,
                `+ownerColumns+`,
                (SELECT COUNT(*) FROM likes l WHERE l.target_kind = 'tweet' AND l.target_id = t.id),
                EXISTS (
                    SELECT 1 FROM likes l
                    WHERE l.target_kind = 'tweet' AND l.target_id = t.id AND l.liked_by = $1
                )
            FROM tweets t
            JOIN users u ON u.id = t.owner_id
            WHERE ($2::UUID IS NULL OR t.owner_id = $2)
            ORDER BY t.created_at DESC, t.id DESC
            LIMIT $3 OFFSET $4
        `, nullable(viewerID), nullable(ownerID), p.FetchLimit(), p.Offset())
		if err != nil {
			return fmt.Errorf("query %s: %w", name, err)
		}
		items, err := collect(rows, func(row pgx.Row, t *models.TweetView) error {
			return row.Scan(&t.ID, &t.Content, &t.CreatedAt, &t.UpdatedAt,
				&t.Owner.ID, &t.Owner.Username, &t.Owner.FullName, &t.Owner.Avatar,
				&t.LikesCount, &t.LikedByMe)
		})
		if err != nil {
			return fmt.Errorf("scan %s: %w", name, err)
		}
		page = models.NewPage(items, p.Page, p.Limit)
		return nil
	})
	return page, err
}
