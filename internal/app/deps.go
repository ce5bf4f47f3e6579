package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/vidtweet/backend/internal/auth"
	"github.com/vidtweet/backend/internal/config"
	"github.com/vidtweet/backend/internal/db"
	"github.com/vidtweet/backend/internal/envelope"
	"github.com/vidtweet/backend/internal/handlers"
	"github.com/vidtweet/backend/internal/media"
	"github.com/vidtweet/backend/internal/middleware"
	"github.com/vidtweet/backend/internal/repositories"
	"github.com/vidtweet/backend/internal/storage"
	"github.com/vidtweet/backend/internal/views"
)

// cleanupFunc stops the background workers started by buildDependencies.
type cleanupFunc func(context.Context) error

// buildDependencies wires together concrete implementations used by the HTTP handlers.
func buildDependencies(ctx context.Context, pool db.Pool, cfg config.Config, logger *slog.Logger) (handlers.Dependencies, cleanupFunc, error) {
	if logger == nil {
		logger = slog.Default()
	}
	timeout := cfg.Database.QueryTimeout

	trusted, err := cfg.Server.TrustedProxyPrefixes()
	if err != nil {
		return handlers.Dependencies{}, nil, err
	}

	s3, err := storage.NewS3Storage(ctx, cfg.Storage)
	if err != nil {
		return handlers.Dependencies{}, nil, fmt.Errorf("configure blob storage: %w", err)
	}
	blobs := storage.NewGuarded(s3, storage.GuardOptions{Timeout: cfg.Storage.Timeout, Logger: logger})

	janitor := media.NewJanitor(blobs, media.JanitorConfig{
		QueueSize: cfg.Media.JanitorQueue,
		Workers:   cfg.Media.JanitorWorkers,
		Timeout:   cfg.Storage.Timeout,
	}, logger)
	uploads := media.NewUploads(cfg.Storage.UploadDir, blobs, media.NewProber(cfg.Media.FFProbePath, cfg.Media.ProbeTimeout))

	sessions := auth.NewManager(auth.Config{
		AccessSecret:  cfg.Auth.AccessTokenSecret,
		AccessTTL:     cfg.Auth.AccessTokenTTL,
		RefreshSecret: cfg.Auth.RefreshTokenSecret,
		RefreshTTL:    cfg.Auth.RefreshTokenTTL,
	}, repositories.NewPostgresSessionStore(pool, timeout))

	deps := handlers.Dependencies{
		Logger:        logger,
		Out:           envelope.Writer{IncludeStack: !cfg.IsProduction()},
		Authenticator: sessions,
		Sessions:      sessions,
		Limiter:       middleware.NewKeyedRateLimiter(cfg.RateLimit),

		Users:         repositories.NewPostgresUserRepository(pool, timeout),
		Videos:        repositories.NewPostgresVideoRepository(pool, timeout),
		Tweets:        repositories.NewPostgresTweetRepository(pool, timeout),
		Comments:      repositories.NewPostgresCommentRepository(pool, timeout),
		Likes:         repositories.NewPostgresLikeRepository(pool, timeout),
		Subscriptions: repositories.NewPostgresSubscriptionRepository(pool, timeout),
		Playlists:     repositories.NewPostgresPlaylistRepository(pool, timeout),
		Views:         views.NewEngine(pool, timeout),

		Media:   uploads,
		Janitor: janitor,

		CORSOrigins:    cfg.Server.CORSOrigins,
		BcryptCost:     cfg.Auth.BcryptCost,
		SecureCookies:  cfg.Auth.SecureCookies,
		MaxUploadBytes: cfg.Server.MaxUploadBytes,
		TrustedProxies: trusted,
	}
	if pinger, ok := pool.(handlers.Pinger); ok {
		deps.DB = pinger
	}

	cleanup := func(ctx context.Context) error {
		err := janitor.Shutdown(ctx)
		if errors.Is(err, context.DeadlineExceeded) {
			logger.Warn("blob janitor did not drain before shutdown", "error", err)
			return nil
		}
		if err != nil {
			return fmt.Errorf("stop blob janitor: %w", err)
		}
		return nil
	}

	return deps, cleanup, nil
}
