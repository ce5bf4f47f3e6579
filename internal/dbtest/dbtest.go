// Package dbtest boots a throwaway CockroachDB node for integration tests.
package dbtest

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/cockroachdb/cockroach-go/v2/testserver"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Tables lists every application table, children first.
var Tables = []string{
	"watch_history",
	"playlist_videos",
	"playlists",
	"likes",
	"subscriptions",
	"comments",
	"tweets",
	"videos",
	"users",
}

// Start launches a single-node test server, connects a pool and applies the
// migrations in migrationsDir. The returned stop func closes both.
func Start(ctx context.Context, migrationsDir string) (*pgxpool.Pool, func(), error) {
	server, err := testserver.NewTestServer()
	if err != nil {
		return nil, nil, fmt.Errorf("start cockroach test server: %w", err)
	}

	pool, err := pgxpool.New(ctx, server.PGURL().String())
	if err != nil {
		server.Stop()
		return nil, nil, fmt.Errorf("connect to cockroach test server: %w", err)
	}

	if err := ApplyMigrations(ctx, pool, migrationsDir); err != nil {
		pool.Close()
		server.Stop()
		return nil, nil, fmt.Errorf("apply migrations: %w", err)
	}

	stop := func() {
		pool.Close()
		server.Stop()
	}
	return pool, stop, nil
}

// ApplyMigrations executes every .sql file in dir in lexical order.
func ApplyMigrations(ctx context.Context, pool *pgxpool.Pool, dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("read migrations dir: %w", err)
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".sql" {
			continue
		}
		contents, err := os.ReadFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			return fmt.Errorf("read migration %s: %w", entry.Name(), err)
		}

		if _, err := pool.Exec(ctx, string(contents)); err != nil {
			return fmt.Errorf("apply migration %s: %w", entry.Name(), err)
		}
	}

	return nil
}

// Reset empties every table so each test starts from a clean database.
func Reset(t testing.TB, pool *pgxpool.Pool) {
	t.Helper()
	ctx := context.Background()
	conn, err := pool.Acquire(ctx)
	if err != nil {
		t.Fatalf("acquire connection: %v", err)
	}
	defer conn.Release()

	for _, table := range Tables {
		if _, err := conn.Exec(ctx, "DELETE FROM "+table); err != nil {
			t.Fatalf("clear table %s: %v", table, err)
		}
	}
}
