// Package views builds the denormalized read models returned by the API.
//
// Each view is a single SQL pipeline: filter, join owners and related rows,
// derive counts and viewer flags with correlated subqueries, project, order and
// page. Counts are read fresh on every call; nothing is cached.
package views

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vidtweet/backend/internal/apperr"
	"github.com/vidtweet/backend/internal/db"
	"github.com/vidtweet/backend/internal/logging"
	"github.com/vidtweet/backend/internal/metrics"
	"github.com/vidtweet/backend/internal/models"
)

var (
	ErrChannelNotFound  = apperr.Sentinel(apperr.NotFound, "channel does not exist")
	ErrVideoNotFound    = apperr.Sentinel(apperr.NotFound, "video not found")
	ErrPlaylistNotFound = apperr.Sentinel(apperr.NotFound, "playlist not found")
)

// Engine runs read pipelines against the entity store.
type Engine struct {
	pool    db.Pool
	timeout time.Duration
}

// NewEngine constructs an Engine. timeout bounds each pipeline.
func NewEngine(pool db.Pool, timeout time.Duration) *Engine {
	return &Engine{pool: pool, timeout: timeout}
}

// run executes fn on one connection inside a span and records its duration.
func (e *Engine) run(ctx context.Context, name string, fn func(ctx context.Context, conn *pgxpool.Conn) error) (err error) {
	ctx, span := logging.StartSpan(ctx, "view."+name)
	start := time.Now()
	defer func() {
		metrics.RecordViewPipeline(name, time.Since(start), err)
		if err != nil {
			logging.FromContext(ctx).Warn("view pipeline failed", "view", name, "error", err)
		}
		span.End()
	}()

	ctx, conn, release, err := db.Acquire(ctx, e.pool, e.timeout)
	if err != nil {
		return err
	}
	defer release()

	return fn(ctx, conn)
}

// nullable turns an absent viewer into SQL NULL so comparisons against it are
// never true.
func nullable(id string) any {
	if id == "" {
		return nil
	}
	return id
}

const ownerColumns = `u.id, u.username, u.full_name, u.avatar_url`

const videoSummaryColumns = `v.id, v.title, v.description, v.video_url, v.thumbnail_url,
        v.duration_seconds, v.views, v.is_published, v.created_at, ` + ownerColumns

func videoSummaryDest(v *models.VideoSummary) []any {
	return []any{
		&v.ID, &v.Title, &v.Description, &v.VideoFile, &v.Thumbnail,
		&v.Duration, &v.Views, &v.IsPublished, &v.CreatedAt,
		&v.Owner.ID, &v.Owner.Username, &v.Owner.FullName, &v.Owner.Avatar,
	}
}

// collect scans every row with scan and always returns a non-nil slice.
func collect[T any](rows pgx.Rows, scan func(row pgx.Row, item *T) error) ([]T, error) {
	defer rows.Close()
	items := []T{}
	for rows.Next() {
		var item T
		if err := scan(rows, &item); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

func scanVideoSummary(row pgx.Row, v *models.VideoSummary) error {
	return row.Scan(videoSummaryDest(v)...)
}

func scanOwner(row pgx.Row, o *models.OwnerSummary) error {
	return row.Scan(&o.ID, &o.Username, &o.FullName, &o.Avatar)
}
