package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/hszk-dev/tubefeed/internal/domain/model"
	"github.com/hszk-dev/tubefeed/internal/domain/repository"
	"github.com/hszk-dev/tubefeed/internal/infrastructure/cache"
	"github.com/hszk-dev/tubefeed/internal/infrastructure/metrics"
)

// FeedServiceConfig holds configuration for FeedService.
type FeedServiceConfig struct {
	// CacheTTL is how long a canonical feed is served before the pipeline
	// runs again. Zero keeps entries forever.
	CacheTTL time.Duration
	// TitleConcurrency bounds concurrent alternative title lookups.
	TitleConcurrency int
}

// DefaultFeedServiceConfig returns the default configuration.
func DefaultFeedServiceConfig() FeedServiceConfig {
	return FeedServiceConfig{
		CacheTTL:         5 * time.Minute,
		TitleConcurrency: 4,
	}
}

// FeedOutput is a serialized, filtered channel feed.
type FeedOutput struct {
	Identity    string
	ContentType string
	Body        []byte
	Feed        *model.CanonicalFeed
	Source      cache.Source
}

// FeedService defines the interface for channel feed operations.
type FeedService interface {
	// GetFeed returns the channel feed filtered by spec and serialized.
	GetFeed(ctx context.Context, id model.ChannelIdentifier, spec model.FilterSpec) (*FeedOutput, error)

	// SweepCache drops expired canonical feeds and returns how many were removed.
	SweepCache() int
}

// FeedDeps groups the collaborators of FeedService. Titles and Handles are optional.
type FeedDeps struct {
	Coordinator *FetchCoordinator
	Codec       repository.FeedCodec
	Titles      repository.TitleSource
	Handles     repository.HandleDirectory
}

type feedService struct {
	coordinator *FetchCoordinator
	codec       repository.FeedCodec
	titles      repository.TitleSource
	handles     repository.HandleDirectory
	cache       *cache.SingleFlight[string, *model.CanonicalFeed]

	titleConcurrency int
}

// NewFeedService creates a new FeedService. Canonical feeds are cached per
// resolved channel key and shared between concurrent requests.
func NewFeedService(deps FeedDeps, cfg FeedServiceConfig) FeedService {
	if cfg.TitleConcurrency <= 0 {
		cfg.TitleConcurrency = 1
	}
	return &feedService{
		coordinator: deps.Coordinator,
		codec:       deps.Codec,
		titles:      deps.Titles,
		handles:     deps.Handles,
		cache: cache.NewSingleFlight[string, *model.CanonicalFeed](cache.SingleFlightOptions[*model.CanonicalFeed]{
			TTL:  cfg.CacheTTL,
			Copy: (*model.CanonicalFeed).Clone,
		}),
		titleConcurrency: cfg.TitleConcurrency,
	}
}

// GetFeed runs the cached pipeline, then filters and serializes the result.
func (s *feedService) GetFeed(ctx context.Context, id model.ChannelIdentifier, spec model.FilterSpec) (*FeedOutput, error) {
	canonical, src, err := s.canonical(ctx, id)
	if err != nil {
		return nil, err
	}

	identity, feed := Finalize(ApplyFilter(canonical, spec), spec)
	body, err := s.codec.Serialize(identity, spec.Query(), feed)
	if err != nil {
		return nil, fmt.Errorf("serialize feed: %w", err)
	}

	return &FeedOutput{
		Identity:    identity,
		ContentType: s.codec.ContentType(),
		Body:        body,
		Feed:        feed,
		Source:      src,
	}, nil
}

func (s *feedService) canonical(ctx context.Context, id model.ChannelIdentifier) (*model.CanonicalFeed, cache.Source, error) {
	target := s.resolveKnownHandle(ctx, id)

	feed, src, err := s.cache.GetOrCompute(ctx, target.Key(), func(ctx context.Context) (*model.CanonicalFeed, error) {
		return s.produce(ctx, target)
	})
	metrics.FeedCacheRequestsTotal.WithLabelValues(src.String()).Inc()
	if err != nil {
		return nil, src, err
	}
	return feed, src, nil
}

// resolveKnownHandle rewrites a handle to the stable id it resolved to
// before, so both spellings share one cache entry.
func (s *feedService) resolveKnownHandle(ctx context.Context, id model.ChannelIdentifier) model.ChannelIdentifier {
	if !id.IsHandle() || s.handles == nil {
		return id
	}

	stableID, err := s.handles.Lookup(ctx, id.Key())
	if err != nil {
		slog.WarnContext(ctx, "handle lookup failed",
			"handle", id.String(),
			"error", err,
		)
		return id
	}
	if stableID == "" {
		return id
	}

	resolved, err := model.ParseChannelIdentifier(stableID)
	if err != nil || resolved.IsHandle() {
		slog.WarnContext(ctx, "ignoring malformed handle resolution",
			"handle", id.String(),
			"stable_id", stableID,
		)
		return id
	}
	return resolved
}

// produce is the cached pipeline body for one channel key.
func (s *feedService) produce(ctx context.Context, id model.ChannelIdentifier) (*model.CanonicalFeed, error) {
	feed, err := s.coordinator.Resolve(ctx, id)
	if err != nil {
		return nil, err
	}

	if s.titles != nil {
		s.enrichTitles(ctx, feed)
	}

	if id.IsHandle() && s.handles != nil {
		if err := s.handles.Remember(ctx, id.Key(), feed.Channel.ID); err != nil {
			slog.WarnContext(ctx, "failed to remember handle",
				"handle", id.String(),
				"channel_id", feed.Channel.ID,
				"error", err,
			)
		}
	}

	slog.InfoContext(ctx, "channel pipeline completed",
		"channel", id.String(),
		"channel_id", feed.Channel.ID,
		"videos", len(feed.Videos),
	)
	return feed, nil
}

// enrichTitles replaces titles with community titles where one exists.
// Lookup failures keep the original title.
func (s *feedService) enrichTitles(ctx context.Context, feed *model.CanonicalFeed) {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.titleConcurrency)

	for i := range feed.Videos {
		v := &feed.Videos[i]
		g.Go(func() error {
			title, err := s.titles.AlternativeTitle(gctx, v.ID)
			if err != nil {
				slog.WarnContext(gctx, "alternative title lookup failed",
					"video_id", v.ID,
					"error", err,
				)
				return nil
			}
			if title != "" {
				v.Title = title
			}
			return nil
		})
	}

	_ = g.Wait()
}

// SweepCache drops expired canonical feeds.
func (s *feedService) SweepCache() int {
	removed := s.cache.Sweep()
	metrics.FeedCacheEntries.Set(float64(s.cache.Len()))
	return removed
}
