package repositories

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/vidtweet/backend/internal/db"
	"github.com/vidtweet/backend/internal/models"
	"github.com/vidtweet/backend/internal/toggle"
)

// PostgresLikeRepository persists likes on videos, comments and tweets.
type PostgresLikeRepository struct {
	store
	now func() time.Time
}

// NewPostgresLikeRepository constructs a like repository backed by PostgreSQL.
func NewPostgresLikeRepository(pool db.Pool, timeout time.Duration) *PostgresLikeRepository {
	return &PostgresLikeRepository{store: newStore(pool, timeout), now: func() time.Time { return time.Now().UTC() }}
}

// TargetVisible reports whether the liked entity exists and viewerID may see
// it. A video is visible when published or owned by the viewer and a comment
// inherits the visibility of its video. Tweets are always visible.
func (r *PostgresLikeRepository) TargetVisible(ctx context.Context, viewerID string, target models.LikeTarget) (bool, error) {
	if !target.Kind.Valid() {
		return false, ErrConstraint
	}

	var sql string
	args := []any{target.ID, viewerID}
	switch target.Kind {
	case models.LikeKindVideo:
		sql = `SELECT EXISTS (SELECT 1 FROM videos WHERE id = $1 AND (is_published OR owner_id = $2))`
	case models.LikeKindComment:
		sql = `
            SELECT EXISTS (
                SELECT 1 FROM comments c
                JOIN videos v ON v.id = c.video_id
                WHERE c.id = $1 AND (v.is_published OR v.owner_id = $2)
            )`
	default:
		sql = `SELECT EXISTS (SELECT 1 FROM tweets WHERE id = $1)`
		args = args[:1]
	}

	ctx, conn, release, err := r.acquire(ctx)
	if err != nil {
		return false, err
	}
	defer release()

	var visible bool
	if err := conn.QueryRow(ctx, sql, args...).Scan(&visible); err != nil {
		return false, translate("check like target", err)
	}
	return visible, nil
}

// Count returns the number of likes on target.
func (r *PostgresLikeRepository) Count(ctx context.Context, target models.LikeTarget) (int64, error) {
	ctx, conn, release, err := r.acquire(ctx)
	if err != nil {
		return 0, err
	}
	defer release()

	var n int64
	err = conn.QueryRow(ctx, `
        SELECT COUNT(*) FROM likes WHERE target_kind = $1 AND target_id = $2
    `, string(target.Kind), target.ID).Scan(&n)
	if err != nil {
		return 0, translate("count likes", err)
	}
	return n, nil
}

// Relation returns the toggleable like of userID on target.
func (r *PostgresLikeRepository) Relation(userID string, target models.LikeTarget) toggle.Relation {
	return &likeRelation{repo: r, userID: userID, target: target}
}

type likeRelation struct {
	repo   *PostgresLikeRepository
	userID string
	target models.LikeTarget
}

func (l *likeRelation) Name() string { return "like_" + string(l.target.Kind) }

func (l *likeRelation) Exists(ctx context.Context) (bool, error) {
	ctx, conn, release, err := l.repo.acquire(ctx)
	if err != nil {
		return false, err
	}
	defer release()

	var exists bool
	err = conn.QueryRow(ctx, `
        SELECT EXISTS (
            SELECT 1 FROM likes
            WHERE liked_by = $1 AND target_kind = $2 AND target_id = $3
        )
    `, l.userID, string(l.target.Kind), l.target.ID).Scan(&exists)
	if err != nil {
		return false, translate("select like", err)
	}
	return exists, nil
}

func (l *likeRelation) Create(ctx context.Context) error {
	ctx, conn, release, err := l.repo.acquire(ctx)
	if err != nil {
		return err
	}
	defer release()

	like := models.Like{ID: uuid.NewString(), LikedBy: l.userID, Target: l.target, CreatedAt: l.repo.now()}
	_, err = conn.Exec(ctx, `
        INSERT INTO likes (id, liked_by, target_kind, target_id, created_at)
        VALUES ($1, $2, $3, $4, $5)
    `, like.ID, like.LikedBy, string(like.Target.Kind), like.Target.ID, like.CreatedAt)
	if err != nil {
		err = translate("insert like", err)
		if errors.Is(err, ErrConflict) {
			return toggle.ErrDuplicate
		}
		return err
	}
	return nil
}

func (l *likeRelation) Remove(ctx context.Context) (bool, error) {
	ctx, conn, release, err := l.repo.acquire(ctx)
	if err != nil {
		return false, err
	}
	defer release()

	tag, err := conn.Exec(ctx, `
        DELETE FROM likes
        WHERE liked_by = $1 AND target_kind = $2 AND target_id = $3
    `, l.userID, string(l.target.Kind), l.target.ID)
	if err != nil {
		return false, translate("delete like", err)
	}
	return tag.RowsAffected() > 0, nil
}
