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

// PostgresSubscriptionRepository persists channel subscriptions.
type PostgresSubscriptionRepository struct {
	store
	now func() time.Time
}

// NewPostgresSubscriptionRepository constructs a subscription repository backed by PostgreSQL.
func NewPostgresSubscriptionRepository(pool db.Pool, timeout time.Duration) *PostgresSubscriptionRepository {
	return &PostgresSubscriptionRepository{store: newStore(pool, timeout), now: func() time.Time { return time.Now().UTC() }}
}

// CountSubscribers returns how many users follow channelID.
func (r *PostgresSubscriptionRepository) CountSubscribers(ctx context.Context, channelID string) (int64, error) {
	ctx, conn, release, err := r.acquire(ctx)
	if err != nil {
		return 0, err
	}
	defer release()

	var n int64
	if err := conn.QueryRow(ctx, `SELECT COUNT(*) FROM subscriptions WHERE channel_id = $1`, channelID).Scan(&n); err != nil {
		return 0, translate("count subscribers", err)
	}
	return n, nil
}

// Relation returns the toggleable subscription of subscriberID to channelID.
// Callers reject subscriberID == channelID before toggling; the table's check
// constraint backs that up.
func (r *PostgresSubscriptionRepository) Relation(subscriberID, channelID string) toggle.Relation {
	return &subscriptionRelation{repo: r, subscriberID: subscriberID, channelID: channelID}
}

type subscriptionRelation struct {
	repo         *PostgresSubscriptionRepository
	subscriberID string
	channelID    string
}

func (s *subscriptionRelation) Name() string { return "subscription" }

func (s *subscriptionRelation) Exists(ctx context.Context) (bool, error) {
	ctx, conn, release, err := s.repo.acquire(ctx)
	if err != nil {
		return false, err
	}
	defer release()

	var exists bool
	err = conn.QueryRow(ctx, `
        SELECT EXISTS (
            SELECT 1 FROM subscriptions
            WHERE subscriber_id = $1 AND channel_id = $2
        )
    `, s.subscriberID, s.channelID).Scan(&exists)
	if err != nil {
		return false, translate("select subscription", err)
	}
	return exists, nil
}

func (s *subscriptionRelation) Create(ctx context.Context) error {
	ctx, conn, release, err := s.repo.acquire(ctx)
	if err != nil {
		return err
	}
	defer release()

	sub := models.Subscription{ID: uuid.NewString(), SubscriberID: s.subscriberID, ChannelID: s.channelID, CreatedAt: s.repo.now()}
	_, err = conn.Exec(ctx, `
        INSERT INTO subscriptions (id, subscriber_id, channel_id, created_at)
        VALUES ($1, $2, $3, $4)
    `, sub.ID, sub.SubscriberID, sub.ChannelID, sub.CreatedAt)
	if err != nil {
		err = translate("insert subscription", err)
		if errors.Is(err, ErrConflict) {
			return toggle.ErrDuplicate
		}
		return err
	}
	return nil
}

func (s *subscriptionRelation) Remove(ctx context.Context) (bool, error) {
	ctx, conn, release, err := s.repo.acquire(ctx)
	if err != nil {
		return false, err
	}
	defer release()

	tag, err := conn.Exec(ctx, `
        DELETE FROM subscriptions
        WHERE subscriber_id = $1 AND channel_id = $2
    `, s.subscriberID, s.channelID)
	if err != nil {
		return false, translate("delete subscription", err)
	}
	return tag.RowsAffected() > 0, nil
}
