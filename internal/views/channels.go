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

// ChannelProfile loads the channel named username as seen by viewerID.
func (e *Engine) ChannelProfile(ctx context.Context, username, viewerID string) (models.ChannelProfile, error) {
	var p models.ChannelProfile
	err := e.run(ctx, "channel_profile", func(ctx context.Context, conn *pgxpool.Conn) error {
		err := conn.QueryRow(ctx, `
            SELECT u.id, u.username, u.full_name, u.email, u.avatar_url,
                COALESCE(u.cover_image_url, ''), u.created_at,
                (SELECT COUNT(*) FROM subscriptions s WHERE s.channel_id = u.id),
                (SELECT COUNT(*) FROM subscriptions s WHERE s.subscriber_id = u.id),
                EXISTS (
                    SELECT 1 FROM subscriptions s
                    WHERE s.channel_id = u.id AND s.subscriber_id = $2
                )
            FROM users u
            WHERE u.username = $1
        `, strings.ToLower(strings.TrimSpace(username)), nullable(viewerID)).Scan(
			&p.ID, &p.Username, &p.FullName, &p.Email, &p.Avatar, &p.CoverImage, &p.CreatedAt,
			&p.SubscribersCount, &p.ChannelsSubscribedToCount, &p.IsSubscribed,
		)
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrChannelNotFound
		}
		if err != nil {
			return fmt.Errorf("select channel profile: %w", err)
		}
		return nil
	})
	return p, err
}

// ChannelStats summarises channelID for its dashboard. Each figure is an
// independent subquery; all run in one round trip.
func (e *Engine) ChannelStats(ctx context.Context, channelID string) (models.ChannelStats, error) {
	var s models.ChannelStats
	err := e.run(ctx, "channel_stats", func(ctx context.Context, conn *pgxpool.Conn) error {
		err := conn.QueryRow(ctx, `
            SELECT
                (SELECT COUNT(*) FROM videos WHERE owner_id = $1),
                (SELECT COALESCE(SUM(views), 0)::BIGINT FROM videos WHERE owner_id = $1),
                (SELECT COUNT(*) FROM subscriptions WHERE channel_id = $1),
                (SELECT COUNT(*)
                    FROM likes l
                    JOIN videos v ON l.target_kind = 'video' AND v.id = l.target_id
                    WHERE v.owner_id = $1),
                (SELECT COUNT(*)
                    FROM likes l
                    JOIN tweets t ON l.target_kind = 'tweet' AND t.id = l.target_id
                    WHERE t.owner_id = $1),
                (SELECT COUNT(*) FROM tweets WHERE owner_id = $1)
        `, channelID).Scan(
			&s.TotalVideos, &s.TotalViews, &s.TotalSubscribers,
			&s.TotalVideoLikes, &s.TotalTweetLikes, &s.TotalTweets,
		)
		if err != nil {
			return fmt.Errorf("select channel stats: %w", err)
		}
		return nil
	})
	return s, err
}

// ChannelVideos lists every video ownerID uploaded, published or not, with
// like counts, newest first.
func (e *Engine) ChannelVideos(ctx context.Context, ownerID string, p query.Pagination) (models.Page[models.ChannelVideo], error) {
	var page models.Page[models.ChannelVideo]
	err := e.run(ctx, "channel_videos", func(ctx context.Context, conn *pgxpool.Conn) error {
		rows, err := conn.Query(ctx, `
            SELECT v.id, v.title, v.thumbnail_url, v.views, v.is_published,
                (SELECT COUNT(*) FROM likes l WHERE l.target_kind = 'video' AND l.target_id = v.id),
                v.created_at
            FROM videos v
            WHERE v.owner_id = $1
            ORDER BY v.created_at DESC, v.id DESC
            LIMIT $2 OFFSET $3
        `, ownerID, p.FetchLimit(), p.Offset())
		if err != nil {
			return fmt.Errorf("query channel videos: %w", err)
		}
		items, err := collect(rows, func(row pgx.Row, cv *models.ChannelVideo) error {
			return row.Scan(&cv.ID, &cv.Title, &cv.Thumbnail, &cv.Views, &cv.IsPublished, &cv.LikesCount, &cv.CreatedAt)
		})
		if err != nil {
			return fmt.Errorf("scan channel videos: %w", err)
		}
		page = models.NewPage(items, p.Page, p.Limit)
		return nil
	})
	return page, err
}

// Subscribers lists the users following channelID, newest first.
func (e *Engine) Subscribers(ctx context.Context, channelID string, p query.Pagination) (models.Page[models.SubscriptionView], error) {
	return e.subscriptions(ctx, "subscribers", "s.subscriber_id", "s.channel_id", channelID, p)
}

// SubscribedChannels lists the channels subscriberID follows, newest first.
func (e *Engine) SubscribedChannels(ctx context.Context, subscriberID string, p query.Pagination) (models.Page[models.SubscriptionView], error) {
	return e.subscriptions(ctx, "subscribed_channels", "s.channel_id", "s.subscriber_id", subscriberID, p)
}

// subscriptions joins the other side of each subscription. Both column
// arguments are fixed by the two callers above.
func (e *Engine) subscriptions(ctx context.Context, name, joinColumn, filterColumn, userID string, p query.Pagination) (models.Page[models.SubscriptionView], error) {
	var page models.Page[models.SubscriptionView]
	err := e.run(ctx, name, func(ctx context.Context, conn *pgxpool.Conn) error {
		rows, err := conn.Query(ctx, fmt.Sprintf(`
            SELECT %s, s.created_at
            FROM subscriptions s
            JOIN users u ON u.id = %s
            WHERE %s = $1
            ORDER BY s.created_at DESC, u.id DESC
            LIMIT $2 OFFSET $3
        `, ownerColumns, joinColumn, filterColumn), userID, p.FetchLimit(), p.Offset())
		if err != nil {
			return fmt.Errorf("query %s: %w", name, err)
		}
		items, err := collect(rows, func(row pgx.Row, sv *models.SubscriptionView) error {
			return row.Scan(&sv.User.ID, &sv.User.Username, &sv.User.FullName, &sv.User.Avatar, &sv.SubscribedAt)
		})
		if err != nil {
			return fmt.Errorf("scan %s: %w", name, err)
		}
		page = models.NewPage(items, p.Page, p.Limit)
		return nil
	})
	return page, err
}
