package usecase

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hszk-dev/tubefeed/internal/domain/model"
	"github.com/hszk-dev/tubefeed/internal/domain/repository"
)

// mockExtractor provides a configurable mock for ChannelExtractor.
type mockExtractor struct {
	extractFn func(ctx context.Context, id model.ChannelIdentifier) (*model.ExtractionRecord, error)
}

func (m *mockExtractor) Extract(ctx context.Context, id model.ChannelIdentifier) (*model.ExtractionRecord, error) {
	if m.extractFn != nil {
		return m.extractFn(ctx, id)
	}
	return &model.ExtractionRecord{Channel: model.ChannelMeta{ID: id.String()}}, nil
}

// mockFeedFetcher provides a configurable mock for FeedFetcher.
type mockFeedFetcher struct {
	fetchFn func(ctx context.Context, stableID string) (*model.FeedRecord, error)
}

func (m *mockFeedFetcher) FetchPublicFeed(ctx context.Context, stableID string) (*model.FeedRecord, error) {
	if m.fetchFn != nil {
		return m.fetchFn(ctx, stableID)
	}
	return &model.FeedRecord{ChannelID: stableID}, nil
}

// mockTitleSource provides a configurable mock for TitleSource.
type mockTitleSource struct {
	titleFn func(ctx context.Context, videoID string) (string, error)
}

func (m *mockTitleSource) AlternativeTitle(ctx context.Context, videoID string) (string, error) {
	if m.titleFn != nil {
		return m.titleFn(ctx, videoID)
	}
	return "", nil
}

// mockCodec records what it was asked to serialize.
type mockCodec struct {
	mu       sync.Mutex
	identity string
	query    string
	feed     *model.CanonicalFeed
	err      error
}

func (m *mockCodec) ContentType() string {
	return "application/atom+xml"
}

func (m *mockCodec) Serialize(identity, query string, feed *model.CanonicalFeed) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.identity, m.query, m.feed = identity, query, feed
	if m.err != nil {
		return nil, m.err
	}
	return []byte("<feed>" + identity + "</feed>"), nil
}

// mockHandleDirectory provides a configurable mock for HandleDirectory.
type mockHandleDirectory struct {
	lookupFn   func(ctx context.Context, handleKey string) (string, error)
	rememberFn func(ctx context.Context, handleKey, stableID string) error
}

func (m *mockHandleDirectory) Lookup(ctx context.Context, handleKey string) (string, error) {
	if m.lookupFn != nil {
		return m.lookupFn(ctx, handleKey)
	}
	return "", nil
}

func (m *mockHandleDirectory) Remember(ctx context.Context, handleKey, stableID string) error {
	if m.rememberFn != nil {
		return m.rememberFn(ctx, handleKey, stableID)
	}
	return nil
}

// mockRenderRepository provides a configurable mock for RenderRepository.
type mockRenderRepository struct {
	createFn  func(ctx context.Context, render *model.Render) error
	getByIDFn func(ctx context.Context, id uuid.UUID) (*model.Render, error)
	updateFn  func(ctx context.Context, render *model.Render) error
}

func (m *mockRenderRepository) Create(ctx context.Context, render *model.Render) error {
	if m.createFn != nil {
		return m.createFn(ctx, render)
	}
	return nil
}

func (m *mockRenderRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Render, error) {
	if m.getByIDFn != nil {
		return m.getByIDFn(ctx, id)
	}
	return nil, repository.ErrRenderNotFound
}

func (m *mockRenderRepository) Update(ctx context.Context, render *model.Render) error {
	if m.updateFn != nil {
		return m.updateFn(ctx, render)
	}
	return nil
}

// mockFeedStorage provides a configurable mock for FeedStorage.
type mockFeedStorage struct {
	storeFeedFn       func(ctx context.Context, feed repository.RenderedFeed) (string, error)
	feedExistsFn      func(ctx context.Context, key string) (bool, error)
	feedDownloadURLFn func(ctx context.Context, key string, expiry time.Duration) (string, error)
}

func (m *mockFeedStorage) StoreFeed(ctx context.Context, feed repository.RenderedFeed) (string, error) {
	if m.storeFeedFn != nil {
		return m.storeFeedFn(ctx, feed)
	}
	return "feeds/" + feed.Identity + ".xml", nil
}

func (m *mockFeedStorage) FeedExists(ctx context.Context, key string) (bool, error) {
	if m.feedExistsFn != nil {
		return m.feedExistsFn(ctx, key)
	}
	return false, nil
}

func (m *mockFeedStorage) FeedDownloadURL(ctx context.Context, key string, expiry time.Duration) (string, error) {
	if m.feedDownloadURLFn != nil {
		return m.feedDownloadURLFn(ctx, key, expiry)
	}
	return "http://example.com/download", nil
}

// mockMessageQueue provides a configurable mock for MessageQueue.
type mockMessageQueue struct {
	publishRenderTaskFn  func(ctx context.Context, task repository.RenderTask) error
	consumeRenderTasksFn func(ctx context.Context, handler func(task repository.RenderTask) error) error
}

func (m *mockMessageQueue) PublishRenderTask(ctx context.Context, task repository.RenderTask) error {
	if m.publishRenderTaskFn != nil {
		return m.publishRenderTaskFn(ctx, task)
	}
	return nil
}

func (m *mockMessageQueue) ConsumeRenderTasks(ctx context.Context, handler func(task repository.RenderTask) error) error {
	if m.consumeRenderTasksFn != nil {
		return m.consumeRenderTasksFn(ctx, handler)
	}
	return nil
}

func (m *mockMessageQueue) Close() error {
	return nil
}

// mockFeedService provides a configurable mock for FeedService.
type mockFeedService struct {
	getFeedFn func(ctx context.Context, id model.ChannelIdentifier, spec model.FilterSpec) (*FeedOutput, error)
}

func (m *mockFeedService) GetFeed(ctx context.Context, id model.ChannelIdentifier, spec model.FilterSpec) (*FeedOutput, error) {
	if m.getFeedFn != nil {
		return m.getFeedFn(ctx, id, spec)
	}
	return &FeedOutput{Feed: &model.CanonicalFeed{}}, nil
}

func (m *mockFeedService) SweepCache() int {
	return 0
}
