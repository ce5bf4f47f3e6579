package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vidtweet/backend/internal/db"
)

// store is embedded by every repository. Each call acquires its own
// connection bounded by timeout.
type store struct {
	pool    db.Pool
	timeout time.Duration
}

func newStore(pool db.Pool, timeout time.Duration) store {
	return store{pool: pool, timeout: timeout}
}

func (s store) acquire(ctx context.Context) (context.Context, *pgxpool.Conn, func(), error) {
	return db.Acquire(ctx, s.pool, s.timeout)
}

// inTx runs fn inside a transaction on a freshly acquired connection.
func (s store) inTx(ctx context.Context, op string, fn func(ctx context.Context, tx pgx.Tx) error) error {
	ctx, conn, release, err := s.acquire(ctx)
	if err != nil {
		return err
	}
	defer release()

	tx, err := conn.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin %s: %w", op, err)
	}
	if err := fn(ctx, tx); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return translate("commit "+op, err)
	}
	return nil
}

// deleteLikes removes likes pointing at the given targets. Likes carry no
// foreign key to their target, so every delete of a likeable row calls this.
func deleteLikes(ctx context.Context, tx pgx.Tx, kind string, targetIDs ...string) error {
	if len(targetIDs) == 0 {
		return nil
	}
	if _, err := tx.Exec(ctx, `
        DELETE FROM likes
        WHERE target_kind = $1 AND target_id = ANY($2::UUID[])
    `, kind, targetIDs); err != nil {
		return fmt.Errorf("delete %s likes: %w", kind, err)
	}
	return nil
}
