package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/hszk-dev/tubefeed/internal/api/handler"
	"github.com/hszk-dev/tubefeed/internal/api/middleware"
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

	feedSvc := newFeedService(cfg, handles)
	checks := map[string]handler.Pinger{}

	var renderSvc usecase.RenderService
	if cfg.Render.Enabled {
		pgClient, err := postgres.NewClient(ctx, postgres.DefaultClientConfig(cfg.Database.DSN()))
		if err != nil {
			return fmt.Errorf("failed to connect to PostgreSQL: %w", err)
		}
		defer pgClient.Close()
		if err := pgClient.EnsureSchema(ctx); err != nil {
			return fmt.Errorf("failed to prepare schema: %w", err)
		}
		prometheus.MustRegister(pgClient.Collector())
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

		queueClient, err := queue.NewClient(ctx, queue.DefaultClientConfig(cfg.RabbitMQ.URL()))
		if err != nil {
			return fmt.Errorf("failed to connect to RabbitMQ: %w", err)
		}
		defer queueClient.Close()
		logger.Info("connected to RabbitMQ")

		renderSvc = usecase.NewRenderService(
			postgres.NewRenderRepository(pgClient.Pool()),
			storageClient,
			queueClient,
			nil,
			usecase.RenderServiceConfig{
				DownloadURLExpiry: cfg.Render.DownloadURLExpiry,
				MaxRetries:        cfg.Worker.MaxRetries,
			},
		)
		checks["postgres"] = pgClient
		checks["minio"] = storageClient
	}

	r := setupRouter(logger, feedSvc, renderSvc, checks)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go sweepCache(ctx, logger, feedSvc, cfg.Feed.SweepInterval)

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting server",
			slog.Int("port", cfg.Server.Port),
			slog.Duration("cache_ttl", cfg.Feed.CacheTTL),
			slog.Bool("render_enabled", cfg.Render.Enabled),
		)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("server error: %w", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-quit:
		logger.Info("shutting down server", slog.String("signal", sig.String()))
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown error: %w", err)
	}

	logger.Info("server stopped")
	return nil
}

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

func sweepCache(ctx context.Context, logger *slog.Logger, svc usecase.FeedService, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if removed := svc.SweepCache(); removed > 0 {
				logger.Debug("swept feed cache", slog.Int("removed", removed))
			}
		}
	}
}

func setupRouter(logger *slog.Logger, feeds usecase.FeedService, renders usecase.RenderService, checks map[string]handler.Pinger) *chi.Mux {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(logger))
	r.Use(middleware.Recoverer(logger))

	r.Get("/health", handler.NewHealthHandler(checks).Health)
	r.Handle("/metrics", promhttp.Handler())

	if renders != nil {
		renderHandler := handler.NewRenderHandler(renders)
		r.Route("/v1/renders", func(r chi.Router) {
			r.Post("/{channel}", renderHandler.Create)
			r.Get("/{id}", renderHandler.Get)
		})
	}

	r.Get("/{channel}", handler.NewFeedHandler(feeds).Get)

	return r
}
