package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/redis/go-redis/v9"

	"github.com/hszk-dev/tubefeed/internal/config"
	"github.com/hszk-dev/tubefeed/internal/domain/repository"
	"github.com/hszk-dev/tubefeed/internal/infrastructure/atom"
	"github.com/hszk-dev/tubefeed/internal/infrastructure/cache"
	"github.com/hszk-dev/tubefeed/internal/infrastructure/postgres"
	"github.com/hszk-dev/tubefeed/internal/infrastructure/queue"
	"github.com/hszk-dev/tubefeed/internal/infrastructure/storage"
	"github.com/hszk-dev/tubefeed/internal/infrastructure/youtube"
	"github.com/hszk-dev/tubefeed/internal/usecase"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	level, err := cfg.Log.SlogLevel()
	if err != nil {
		return err
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	pgCfg := postgres.DefaultClientConfig(cfg.Database.DSN())
	pgCfg.ApplicationName = "tubefeed-worker"
	pgClient, err := postgres.NewClient(ctx, pgCfg)
	if err != nil {
		return fmt.Errorf("failed to connect to PostgreSQL: %w", err)
	}
	defer pgClient.Close()
	if err := pgClient.EnsureSchema(ctx); err != nil {
		return fmt.Errorf("failed to prepare schema: %w", err)
	}
	logger.Info("connected to PostgreSQL")

	storageClient, err := storage.NewClient(ctx, storage.ClientConfig{
		Endpoint:       cfg.MinIO.Endpoint,
		PublicEndpoint: cfg.MinIO.PublicEndpoint,
		AccessKey:      cfg.MinIO.AccessKey,
		SecretKey:      cfg.MinIO.SecretKey,
		Bucket:         cfg.MinIO.Bucket,
		UseSSL:         cfg.MinIO.UseSSL,
	})
	if err != nil {
		return fmt.Errorf("failed to connect to MinIO: %w", err)
	}
	logger.Info("connected to MinIO", slog.String("bucket", storageClient.Bucket()))

	queueCfg := queue.DefaultClientConfig(cfg.RabbitMQ.URL())
	queueCfg.Prefetch = cfg.Worker.Prefetch
	queueClient, err := queue.NewClient(ctx, queueCfg)
	if err != nil {
		return fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}
	defer queueClient.Close()
	logger.Info("connected to RabbitMQ")

	// Handle resolutions are shared with the API when Redis is enabled.
	var handles repository.HandleDirectory = cache.NewMemoryHandleDirectory()
	if cfg.Redis.Enabled {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr(),
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer redisClient.Close()

		if err := redisClient.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("failed to connect to Redis: %w", err)
		}
		handles = cache.NewRedisHandleDirectory(redisClient, cfg.Redis.HandleTTL)
		logger.Info("connected to Redis")
	}

	renderSvc := usecase.NewRenderService(
		postgres.NewRenderRepository(pgClient.Pool()),
		storageClient,
		nil,
		newFeedService(cfg, handles),
		usecase.RenderServiceConfig{
			DownloadURLExpiry: cfg.Render.DownloadURLExpiry,
			MaxRetries:        cfg.Worker.MaxRetries,
		},
	)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	var wg sync.WaitGroup

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting worker, consuming render tasks")
		err := queueClient.ConsumeRenderTasks(ctx, func(task repository.RenderTask) error {
			wg.Add(1)
			defer wg.Done()

			logger.Info("processing task",
				slog.String("render_id", task.RenderID.String()),
				slog.String("channel", task.Channel),
				slog.Int("retry_count", task.RetryCount),
			)

			if err := renderSvc.ProcessTask(ctx, task); err != nil {
				logger.Error("task processing failed",
					slog.String("render_id", task.RenderID.String()),
					slog.Int("retry_count", task.RetryCount),
					slog.String("error", err.Error()),
				)
				return err
			}

			logger.Info("task completed",
				slog.String("render_id", task.RenderID.String()),
			)
			return nil
		})
		if err != nil && ctx.Err() == nil {
			errCh <- fmt.Errorf("consumer error: %w", err)
		}
	}()

	select {
	case err := <-errCh:
		return err
	case sig := <-quit:
		logger.Info("shutting down worker", slog.String("signal", sig.String()))
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Worker.ShutdownTimeout)
	defer shutdownCancel()

	cancel()

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		logger.Info("all in-flight tasks completed")
	case <-shutdownCtx.Done():
		logger.Warn("shutdown timeout exceeded, some tasks may not have completed")
	}

	logger.Info("worker stopped")
	return nil
}

// newFeedService builds the same pipeline the API serves so rendered
// documents match live responses byte for byte.
func newFeedService(cfg *config.Config, handles repository.HandleDirectory) usecase.FeedService {
	client := youtube.NewClient(youtube.ClientConfig{
		BaseURL:   cfg.Feed.UpstreamBaseURL,
		Timeout:   cfg.Feed.UpstreamTimeout,
		UserAgent: cfg.Feed.UpstreamUserAgent,
	})

	deps := usecase.FeedDeps{
		Coordinator: usecase.NewFetchCoordinator(youtube.NewExtractor(client), youtube.NewFeedFetcher(client)),
		Codec:       atom.NewCodec(cfg.Server.BaseURL, cfg.Feed.UpstreamBaseURL),
		Handles:     handles,
	}
	if cfg.Titles.Enabled {
		deps.Titles = youtube.NewDeArrow(youtube.NewClient(youtube.ClientConfig{
			BaseURL:   cfg.Titles.BaseURL,
			Timeout:   cfg.Feed.UpstreamTimeout,
			UserAgent: cfg.Feed.UpstreamUserAgent,
		}))
	}

	return usecase.NewFeedService(deps, usecase.FeedServiceConfig{
		CacheTTL:         cfg.Feed.CacheTTL,
		TitleConcurrency: cfg.Titles.Concurrency,
	})
}
