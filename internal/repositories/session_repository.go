package repositories

import (
	"context"
	"time"

	"github.com/vidtweet/backend/internal/auth"
	"github.com/vidtweet/backend/internal/db"
)

// PostgresSessionStore keeps the single active refresh token of each user in
// the users table.
type PostgresSessionStore struct {
	store
}

// NewPostgresSessionStore constructs a session store backed by PostgreSQL.
func NewPostgresSessionStore(pool db.Pool, timeout time.Duration) *PostgresSessionStore {
	return &PostgresSessionStore{store: newStore(pool, timeout)}
}

// SaveRefreshToken replaces whatever token the user had, ending any other session.
func (s *PostgresSessionStore) SaveRefreshToken(ctx context.Context, userID, token string) error {
	ctx, conn, release, err := s.acquire(ctx)
	if err != nil {
		return err
	}
	defer release()

	tag, err := conn.Exec(ctx, `UPDATE users SET refresh_token = $2 WHERE id = $1`, userID, token)
	if err != nil {
		return translate("save refresh token", err)
	}
	if tag.RowsAffected() == 0 {
		return auth.ErrSessionNotFound
	}
	return nil
}

// RotateRefreshToken swaps current for next only if current is still the
// active token. A stale or replayed token matches no row.
func (s *PostgresSessionStore) RotateRefreshToken(ctx context.Context, userID, current, next string) error {
	ctx, conn, release, err := s.acquire(ctx)
	if err != nil {
		return err
	}
	defer release()

	tag, err := conn.Exec(ctx, `
        UPDATE users
        SET refresh_token = $3
        WHERE id = $1 AND refresh_token = $2
    `, userID, current, next)
	if err != nil {
		return translate("rotate refresh token", err)
	}
	if tag.RowsAffected() == 0 {
		return auth.ErrSessionNotFound
	}
	return nil
}

// ClearRefreshToken ends the user's session. Clearing an absent session is not an error.
func (s *PostgresSessionStore) ClearRefreshToken(ctx context.Context, userID string) error {
	ctx, conn, release, err := s.acquire(ctx)
	if err != nil {
		return err
	}
	defer release()

	if _, err := conn.Exec(ctx, `UPDATE users SET refresh_token = NULL WHERE id = $1`, userID); err != nil {
		return translate("clear refresh token", err)
	}
	return nil
}
