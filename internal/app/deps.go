package app

import (
	"context"
	"log/slog"
	"time"

	"github.com/sparkmatch/backend/internal/config"
	"github.com/sparkmatch/backend/internal/db"
	"github.com/sparkmatch/backend/internal/feed"
	"github.com/sparkmatch/backend/internal/handlers"
	"github.com/sparkmatch/backend/internal/identity"
	"github.com/sparkmatch/backend/internal/media"
	"github.com/sparkmatch/backend/internal/middleware"
	"github.com/sparkmatch/backend/internal/repositories"
	"github.com/sparkmatch/backend/internal/session"
	"github.com/sparkmatch/backend/internal/storage"
)

// buildDependencies wires together concrete implementations used by the HTTP
// handlers and hydrates the session store from its persisted snapshot. The
// returned cleanup drains the upload queue.
func buildDependencies(ctx context.Context, pool db.Pool, cfg config.Config, logger *slog.Logger) (handlers.Dependencies, func(context.Context) error, error) {
	accounts := repositories.NewPostgresAccountRepository(pool)
	deviceSessions := repositories.NewPostgresDeviceSessionRepository(pool)
	profiles := repositories.NewPostgresProfileRepository(pool)

	provider := identity.NewPostgresProvider(accounts, deviceSessions)

	snapshot := session.NewFileSnapshotStore(cfg.SnapshotPath)
	sessions := session.NewStore(provider, profiles, snapshot, logger)
	if err := sessions.Hydrate(ctx); err != nil {
		return handlers.Dependencies{}, nil, err
	}

	objects, err := storage.NewS3Storage(ctx, cfg.ObjectStore)
	if err != nil {
		return handlers.Dependencies{}, nil, err
	}

	thumbs := media.NewFFmpegThumbnailer(cfg.FFmpegPath, cfg.FFmpegTimeout)
	pipeline := media.NewPipeline(objects, profiles, sessions, thumbs,
		media.PipelineConfig{DisableThumbnails: cfg.ObjectStore.DisableThumbnails}, logger)

	queue := media.NewQueue(pipeline, media.QueueConfig{
		QueueSize: cfg.UploadQueueSize,
		Workers:   cfg.UploadWorkers,
	}, logger)

	deps := handlers.Dependencies{
		Sessions:    sessions,
		Media:       pipeline,
		Uploads:     queue,
		Feed:        feed.NewLoader(profiles, cfg.FeedCacheTTL),
		AuthLimiter: middleware.NewIPRateLimiter(10, time.Minute, 5, 10*time.Minute),
	}

	cleanup := func(ctx context.Context) error {
		return queue.Shutdown(ctx)
	}

	return deps, cleanup, nil
}
