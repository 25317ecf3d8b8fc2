package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/google/uuid"

	"github.com/hszk-dev/tubefeed/internal/domain/model"
	"github.com/hszk-dev/tubefeed/internal/domain/repository"
	"github.com/hszk-dev/tubefeed/internal/infrastructure/metrics"
)

const (
	// DefaultMaxRetries is the default maximum number of attempts before a render is marked as failed.
	DefaultMaxRetries = 3
)

var (
	// ErrRenderAlreadyCompleted is returned when a task targets a render that already finished.
	ErrRenderAlreadyCompleted = errors.New("render has already completed")
)

// RenderServiceConfig holds configuration for RenderService.
type RenderServiceConfig struct {
	// DownloadURLExpiry is the lifetime of presigned download URLs.
	DownloadURLExpiry time.Duration
	// MaxRetries is the number of attempts before a render is marked as failed.
	MaxRetries int
}

// DefaultRenderServiceConfig returns the default configuration.
func DefaultRenderServiceConfig() RenderServiceConfig {
	return RenderServiceConfig{
		DownloadURLExpiry: 15 * time.Minute,
		MaxRetries:        DefaultMaxRetries,
	}
}

// RenderOutput is a render job and, once it is ready, where to download it.
type RenderOutput struct {
	Render      *model.Render
	DownloadURL string
}

// RenderService pre-renders filtered feeds into object storage.
type RenderService interface {
	// CreateRender records a PENDING render and queues it for the worker.
	CreateRender(ctx context.Context, channel model.ChannelIdentifier, spec model.FilterSpec) (*model.Render, error)

	// GetRender retrieves a render job by ID.
	GetRender(ctx context.Context, id uuid.UUID) (*RenderOutput, error)

	// ProcessTask handles a render task from the message queue.
	// Returns nil on success or permanent failure.
	// Returns error for transient failures that should trigger a retry.
	ProcessTask(ctx context.Context, task repository.RenderTask) error
}

type renderService struct {
	repo    repository.RenderRepository
	storage repository.FeedStorage
	queue   repository.MessageQueue
	feeds   FeedService

	downloadURLExpiry time.Duration
	maxRetries        int
}

// NewRenderService creates a new RenderService instance. queue may be nil
// in the worker, feeds may be nil in the API.
func NewRenderService(
	repo repository.RenderRepository,
	storage repository.FeedStorage,
	queue repository.MessageQueue,
	feeds FeedService,
	cfg RenderServiceConfig,
) RenderService {
	return &renderService{
		repo:              repo,
		storage:           storage,
		queue:             queue,
		feeds:             feeds,
		downloadURLExpiry: cfg.DownloadURLExpiry,
		maxRetries:        cfg.MaxRetries,
	}
}

// CreateRender persists the job and publishes its task.
func (s *renderService) CreateRender(ctx context.Context, channel model.ChannelIdentifier, spec model.FilterSpec) (*model.Render, error) {
	render := model.NewRender(channel, spec)

	if err := s.repo.Create(ctx, render); err != nil {
		return nil, fmt.Errorf("create render: %w", err)
	}

	task := repository.RenderTask{
		RenderID: render.ID,
		Channel:  render.Channel.String(),
		Query:    render.Query,
	}
	if err := s.queue.PublishRenderTask(ctx, task); err != nil {
		return nil, fmt.Errorf("publish render task: %w", err)
	}

	return render, nil
}

// GetRender returns the job, with a presigned URL when its document is stored.
func (s *renderService) GetRender(ctx context.Context, id uuid.UUID) (*RenderOutput, error) {
	render, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	out := &RenderOutput{Render: render}
	if !render.IsReady() || render.ObjectKey == "" {
		return out, nil
	}

	exists, err := s.storage.FeedExists(ctx, render.ObjectKey)
	if err != nil {
		return nil, fmt.Errorf("check rendered feed: %w", err)
	}
	if !exists {
		slog.WarnContext(ctx, "rendered feed missing from storage",
			"render_id", id,
			"object_key", render.ObjectKey,
		)
		return out, nil
	}

	out.DownloadURL, err = s.storage.FeedDownloadURL(ctx, render.ObjectKey, s.downloadURLExpiry)
	if err != nil {
		return nil, fmt.Errorf("generate presigned download URL: %w", err)
	}
	return out, nil
}

// ProcessTask renders one feed and uploads it.
func (s *renderService) ProcessTask(ctx context.Context, task repository.RenderTask) error {
	// Out of attempts: mark as failed and ack the message.
	if task.RetryCount >= s.maxRetries {
		s.fail(ctx, task.RenderID, "max retries exceeded")
		return nil
	}

	render, err := s.repo.GetByID(ctx, task.RenderID)
	if errors.Is(err, repository.ErrRenderNotFound) {
		slog.WarnContext(ctx, "dropping task for unknown render", "render_id", task.RenderID)
		return nil
	}
	if err != nil {
		return s.retry(fmt.Errorf("get render: %w", err))
	}

	switch render.Status {
	case model.StatusReady, model.StatusFailed:
		slog.InfoContext(ctx, "skipping completed render",
			"render_id", render.ID,
			"status", render.Status.String(),
			"error", ErrRenderAlreadyCompleted,
		)
		return nil
	case model.StatusPending:
		if err := render.TransitionTo(model.StatusProcessing); err != nil {
			return fmt.Errorf("transition to processing: %w", err)
		}
		if err := s.repo.Update(ctx, render); err != nil {
			return s.retry(fmt.Errorf("update render: %w", err))
		}
	}

	channel, spec, err := decodeTask(task)
	if err != nil {
		s.fail(ctx, render.ID, err.Error())
		return nil
	}

	out, err := s.feeds.GetFeed(ctx, channel, spec)
	if errors.Is(err, repository.ErrChannelNotFound) {
		s.fail(ctx, render.ID, err.Error())
		return nil
	}
	if err != nil {
		return s.retry(fmt.Errorf("build feed: %w", err))
	}

	key, err := s.storage.StoreFeed(ctx, repository.RenderedFeed{
		Identity:    out.Identity,
		Channel:     channel.String(),
		ContentType: out.ContentType,
		Body:        out.Body,
		VideoCount:  len(out.Feed.Videos),
	})
	if err != nil {
		return s.retry(fmt.Errorf("store rendered feed: %w", err))
	}

	render.SetOutput(out.Identity, key, len(out.Feed.Videos))
	if err := render.TransitionTo(model.StatusReady); err != nil {
		return fmt.Errorf("transition to ready: %w", err)
	}
	if err := s.repo.Update(ctx, render); err != nil {
		return s.retry(fmt.Errorf("update render: %w", err))
	}

	metrics.RenderTasksTotal.WithLabelValues(metrics.RenderReady).Inc()
	return nil
}

func (s *renderService) retry(err error) error {
	metrics.RenderTasksTotal.WithLabelValues(metrics.RenderRetry).Inc()
	return err
}

// fail moves a render to FAILED. Errors are logged; the task is acked regardless.
func (s *renderService) fail(ctx context.Context, id uuid.UUID, reason string) {
	metrics.RenderTasksTotal.WithLabelValues(metrics.RenderFailed).Inc()

	if err := s.markFailed(ctx, id); err != nil {
		slog.ErrorContext(ctx, "failed to mark render as failed",
			"render_id", id,
			"reason", reason,
			"error", err,
		)
		return
	}
	slog.WarnContext(ctx, "render failed", "render_id", id, "reason", reason)
}

func (s *renderService) markFailed(ctx context.Context, id uuid.UUID) error {
	render, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("get render: %w", err)
	}

	if render.Status == model.StatusPending {
		if err := render.TransitionTo(model.StatusProcessing); err != nil {
			return fmt.Errorf("transition to processing: %w", err)
		}
	}
	if render.Status != model.StatusProcessing {
		return nil
	}

	if err := render.TransitionTo(model.StatusFailed); err != nil {
		return fmt.Errorf("transition to failed: %w", err)
	}
	if err := s.repo.Update(ctx, render); err != nil {
		return fmt.Errorf("update render: %w", err)
	}
	return nil
}

func decodeTask(task repository.RenderTask) (model.ChannelIdentifier, model.FilterSpec, error) {
	channel, err := model.ParseChannelIdentifier(task.Channel)
	if err != nil {
		return "", model.FilterSpec{}, err
	}
	q, err := url.ParseQuery(task.Query)
	if err != nil {
		return "", model.FilterSpec{}, fmt.Errorf("%w: %v", model.ErrInvalidFilterSyntax, err)
	}
	spec, err := model.ParseFilterSpec(q)
	if err != nil {
		return "", model.FilterSpec{}, err
	}
	return channel, spec, nil
}
