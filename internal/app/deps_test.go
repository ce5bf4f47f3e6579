package app

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vidtweet/backend/internal/config"
)

type fakePool struct{}

func (fakePool) Acquire(context.Context) (*pgxpool.Conn, error) {
	return nil, errors.New("not implemented")
}

func (fakePool) Close() {}

type pingingPool struct{ fakePool }

func (pingingPool) Ping(context.Context) error { return nil }

func testConfig() config.Config {
	return config.Config{
		Database: config.DatabaseConfig{QueryTimeout: time.Second},
		Auth: config.AuthConfig{
			AccessTokenSecret:  "access",
			AccessTokenTTL:     time.Minute,
			RefreshTokenSecret: "refresh",
			RefreshTokenTTL:    time.Hour,
			BcryptCost:         4,
		},
		Storage: config.StorageConfig{
			Bucket:    "test-bucket",
			Endpoint:  "http://localhost:9000",
			Region:    "us-east-1",
			UploadDir: os.TempDir(),
			Timeout:   time.Second,
		},
		Media: config.MediaConfig{FFProbePath: "ffprobe", ProbeTimeout: time.Second, JanitorWorkers: 1, JanitorQueue: 4},
	}
}

func TestBuildDependencies(t *testing.T) {
	t.Setenv("AWS_ACCESS_KEY_ID", "test")
	t.Setenv("AWS_SECRET_ACCESS_KEY", "test")

	deps, cleanup, err := buildDependencies(context.Background(), pingingPool{}, testConfig(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cleanup == nil {
		t.Fatal("expected cleanup function")
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		if err := cleanup(ctx); err != nil {
			t.Errorf("cleanup: %v", err)
		}
	}()

	checks := map[string]any{
		"users":         deps.Users,
		"sessions":      deps.Sessions,
		"authenticator": deps.Authenticator,
		"videos":        deps.Videos,
		"tweets":        deps.Tweets,
		"comments":      deps.Comments,
		"likes":         deps.Likes,
		"subscriptions": deps.Subscriptions,
		"playlists":     deps.Playlists,
		"views":         deps.Views,
		"media":         deps.Media,
		"janitor":       deps.Janitor,
		"limiter":       deps.Limiter,
		"db":            deps.DB,
	}
	for name, dep := range checks {
		if dep == nil || reflect.ValueOf(dep).IsZero() {
			t.Errorf("expected %s to be configured", name)
		}
	}
	if !deps.Out.IncludeStack {
		t.Error("expected stack traces outside production")
	}
}

func TestBuildDependenciesRequiresBucket(t *testing.T) {
	cfg := testConfig()
	cfg.Storage.Bucket = ""

	if _, _, err := buildDependencies(context.Background(), fakePool{}, cfg, nil); err == nil {
		t.Fatal("expected missing bucket to fail")
	}
}

func TestBuildDependenciesRejectsBadTrustedProxy(t *testing.T) {
	cfg := testConfig()
	cfg.Server.TrustedProxies = []string{"10.0.0.0/99"}

	if _, _, err := buildDependencies(context.Background(), fakePool{}, cfg, nil); err == nil {
		t.Fatal("expected invalid trusted proxy to fail")
	}
}

func TestListMigrationsSortsSQLFiles(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"0002_likes.sql", "0001_init.sql", "notes.txt"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("SELECT 1;"), 0o600); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
	if err := os.Mkdir(filepath.Join(dir, "0003_dir.sql"), 0o700); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	got, err := listMigrations(dir)
	if err != nil {
		t.Fatalf("list migrations: %v", err)
	}
	if want := []string{"0001_init.sql", "0002_likes.sql"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v got %v", want, got)
	}

	pending := pendingMigrations(got, map[string]struct{}{"0001_init.sql": {}})
	if !reflect.DeepEqual(pending, []string{"0002_likes.sql"}) {
		t.Fatalf("unexpected pending migrations %v", pending)
	}
}

func TestSeedFileName(t *testing.T) {
	if got := seedFileName("dev"); got != "dev_seed.sql" {
		t.Fatalf("unexpected seed file %q", got)
	}
	if got := seedFileName("custom.sql"); got != "custom.sql" {
		t.Fatalf("unexpected seed file %q", got)
	}
}

func TestShouldRetryMigration(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "nil", err: nil, want: false},
		{name: "deadline", err: context.DeadlineExceeded, want: true},
		{name: "tx closed", err: pgx.ErrTxClosed, want: true},
		{name: "serialization", err: &pgconn.PgError{Code: "40001"}, want: true},
		{name: "syntax", err: &pgconn.PgError{Code: "42601"}, want: false},
		{name: "other", err: errors.New("boom"), want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := shouldRetryMigration(tt.err); got != tt.want {
				t.Fatalf("expected %v got %v", tt.want, got)
			}
		})
	}
}

func TestMigrationBackoffCaps(t *testing.T) {
	if got := migrationBackoff(1); got != migrationBaseBackoff {
		t.Fatalf("unexpected first backoff %v", got)
	}
	if got := migrationBackoff(10); got != migrationMaxBackoff {
		t.Fatalf("expected capped backoff, got %v", got)
	}
}
