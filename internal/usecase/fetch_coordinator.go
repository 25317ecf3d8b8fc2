package usecase

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/hszk-dev/tubefeed/internal/domain/model"
	"github.com/hszk-dev/tubefeed/internal/domain/repository"
	"github.com/hszk-dev/tubefeed/internal/infrastructure/metrics"
)

// FetchCoordinator gathers both upstream records for a channel and
// reconciles them.
type FetchCoordinator struct {
	extractor repository.ChannelExtractor
	feeds     repository.FeedFetcher
	now       func() time.Time
}

// NewFetchCoordinator creates a FetchCoordinator.
func NewFetchCoordinator(extractor repository.ChannelExtractor, feeds repository.FeedFetcher) *FetchCoordinator {
	return &FetchCoordinator{
		extractor: extractor,
		feeds:     feeds,
		now:       time.Now,
	}
}

// Resolve builds the canonical feed for id. A handle is extracted first
// because only the page knows its stable id; a stable id fetches both
// sources concurrently. Any upstream failure fails the whole call.
func (c *FetchCoordinator) Resolve(ctx context.Context, id model.ChannelIdentifier) (*model.CanonicalFeed, error) {
	start := time.Now()

	var (
		ext  *model.ExtractionRecord
		feed *model.FeedRecord
		err  error
		mode string
	)
	if id.IsHandle() {
		mode = metrics.PipelineSequential
		ext, feed, err = c.fetchSequential(ctx, id)
	} else {
		mode = metrics.PipelineConcurrent
		ext, feed, err = c.fetchConcurrent(ctx, id)
	}
	if err != nil {
		return nil, err
	}

	out := Reconcile(ext, feed, c.now())
	metrics.PipelineDuration.WithLabelValues(mode).Observe(time.Since(start).Seconds())
	return out, nil
}

func (c *FetchCoordinator) fetchSequential(ctx context.Context, id model.ChannelIdentifier) (*model.ExtractionRecord, *model.FeedRecord, error) {
	ext, err := c.extractor.Extract(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	if ext.Channel.ID == "" {
		return nil, nil, fmt.Errorf("%w: no channel id found for %s", repository.ErrParse, id)
	}

	feed, err := c.feeds.FetchPublicFeed(ctx, ext.Channel.ID)
	if err != nil {
		return nil, nil, err
	}
	return ext, feed, nil
}

func (c *FetchCoordinator) fetchConcurrent(ctx context.Context, id model.ChannelIdentifier) (*model.ExtractionRecord, *model.FeedRecord, error) {
	var (
		ext  *model.ExtractionRecord
		feed *model.FeedRecord
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		ext, err = c.extractor.Extract(gctx, id)
		return err
	})
	g.Go(func() error {
		var err error
		feed, err = c.feeds.FetchPublicFeed(gctx, id.String())
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return ext, feed, nil
}
