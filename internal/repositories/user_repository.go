package repositories

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/vidtweet/backend/internal/db"
	"github.com/vidtweet/backend/internal/models"
)

// PostgresUserRepository provides PostgreSQL-backed persistence for users.
type PostgresUserRepository struct {
	store
}

// NewPostgresUserRepository constructs a user repository backed by PostgreSQL.
func NewPostgresUserRepository(pool db.Pool, timeout time.Duration) *PostgresUserRepository {
	return &PostgresUserRepository{store: newStore(pool, timeout)}
}

const userColumns = `id, username, email, full_name, password_hash, avatar_url, COALESCE(cover_image_url, ''), created_at, updated_at`

func scanUser(row pgx.Row) (models.User, error) {
	var user models.User
	err := row.Scan(&user.ID, &user.Username, &user.Email, &user.FullName, &user.PasswordHash,
		&user.AvatarURL, &user.CoverImageURL, &user.CreatedAt, &user.UpdatedAt)
	return user, err
}

// Create persists a new user record. Username and email are stored lowercased.
func (r *PostgresUserRepository) Create(ctx context.Context, user models.User) error {
	ctx, conn, release, err := r.acquire(ctx)
	if err != nil {
		return err
	}
	defer release()

	_, err = conn.Exec(ctx, `
        INSERT INTO users (id, username, email, full_name, password_hash, avatar_url, cover_image_url, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, NULLIF($7, ''), $8, $9)
    `, user.ID, strings.ToLower(user.Username), strings.ToLower(user.Email), user.FullName, user.PasswordHash,
		user.AvatarURL, user.CoverImageURL, user.CreatedAt, user.UpdatedAt)
	if err != nil {
		return translate("insert user", err)
	}

	return nil
}

// FindByID fetches a user by identifier.
func (r *PostgresUserRepository) FindByID(ctx context.Context, id string) (models.User, error) {
	ctx, conn, release, err := r.acquire(ctx)
	if err != nil {
		return models.User{}, err
	}
	defer release()

	user, err := scanUser(conn.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
	if err != nil {
		return models.User{}, translate("select user by id", err)
	}
	return user, nil
}

// FindByLogin fetches a user whose email or username equals identifier,
// ignoring case.
func (r *PostgresUserRepository) FindByLogin(ctx context.Context, identifier string) (models.User, error) {
	ctx, conn, release, err := r.acquire(ctx)
	if err != nil {
		return models.User{}, err
	}
	defer release()

	identifier = strings.ToLower(strings.TrimSpace(identifier))
	user, err := scanUser(conn.QueryRow(ctx, `
        SELECT `+userColumns+`
        FROM users
        WHERE email = $1 OR username = $1
        LIMIT 1
    `, identifier))
	if err != nil {
		return models.User{}, translate("select user by login", err)
	}
	return user, nil
}

// UpdateAccount changes the display name and email and returns the stored user.
func (r *PostgresUserRepository) UpdateAccount(ctx context.Context, id, fullName, email string, now time.Time) (models.User, error) {
	ctx, conn, release, err := r.acquire(ctx)
	if err != nil {
		return models.User{}, err
	}
	defer release()

	user, err := scanUser(conn.QueryRow(ctx, `
        UPDATE users
        SET full_name = $2, email = $3, updated_at = $4
        WHERE id = $1
        RETURNING `+userColumns,
		id, fullName, strings.ToLower(email), now))
	if err != nil {
		return models.User{}, translate("update account", err)
	}
	return user, nil
}

// UpdatePassword replaces the password hash.
func (r *PostgresUserRepository) UpdatePassword(ctx context.Context, id, passwordHash string, now time.Time) error {
	ctx, conn, release, err := r.acquire(ctx)
	if err != nil {
		return err
	}
	defer release()

	tag, err := conn.Exec(ctx, `
        UPDATE users
        SET password_hash = $2, updated_at = $3
        WHERE id = $1
    `, id, passwordHash, now)
	if err != nil {
		return translate("update password", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdateAvatar stores a new avatar URL and returns the one it replaced.
func (r *PostgresUserRepository) UpdateAvatar(ctx context.Context, id, url string, now time.Time) (string, error) {
	return r.replaceImage(ctx, "avatar_url", id, url, now)
}

// UpdateCoverImage stores a new cover image URL and returns the one it replaced.
func (r *PostgresUserRepository) UpdateCoverImage(ctx context.Context, id, url string, now time.Time) (string, error) {
	return r.replaceImage(ctx, "cover_image_url", id, url, now)
}

// replaceImage swaps an image column under a row lock. column is always one of
// the two constants above.
func (r *PostgresUserRepository) replaceImage(ctx context.Context, column, id, url string, now time.Time) (string, error) {
	var previous string
	err := r.inTx(ctx, "replace "+column, func(ctx context.Context, tx pgx.Tx) error {
		row := tx.QueryRow(ctx, fmt.Sprintf(`SELECT COALESCE(%s, '') FROM users WHERE id = $1 FOR UPDATE`, column), id)
		if err := row.Scan(&previous); err != nil {
			return translate("select "+column, err)
		}
		if _, err := tx.Exec(ctx, fmt.Sprintf(`UPDATE users SET %s = $2, updated_at = $3 WHERE id = $1`, column), id, url, now); err != nil {
			return translate("update "+column, err)
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	return previous, nil
}

// AddToWatchHistory records that userID watched videoID. Watching again only
// refreshes the timestamp; the history never holds duplicates.
func (r *PostgresUserRepository) AddToWatchHistory(ctx context.Context, userID, videoID string, at time.Time) error {
	ctx, conn, release, err := r.acquire(ctx)
	if err != nil {
		return err
	}
	defer release()

	_, err = conn.Exec(ctx, `
        INSERT INTO watch_history (user_id, video_id, watched_at)
        VALUES ($1, $2, $3)
        ON CONFLICT (user_id, video_id)
        DO UPDATE SET watched_at = EXCLUDED.watched_at
    `, userID, videoID, at)
	if err != nil {
		return translate("append watch history", err)
	}
	return nil
}
