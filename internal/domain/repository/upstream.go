package repository

import (
	"context"

	"github.com/hszk-dev/tubefeed/internal/domain/model"
)

// ChannelExtractor derives channel metadata and video stubs from the
// provider's channel page. It is the only collaborator able to resolve a
// handle into a stable channel id.
type ChannelExtractor interface {
	// Extract returns ErrChannelNotFound, ErrParse or ErrNetwork (wrapped) on failure.
	Extract(ctx context.Context, id model.ChannelIdentifier) (*model.ExtractionRecord, error)
}

// FeedFetcher reads the provider's public syndication feed for a stable id.
type FeedFetcher interface {
	// FetchPublicFeed returns ErrParse or ErrNetwork (wrapped) on failure.
	FetchPublicFeed(ctx context.Context, stableID string) (*model.FeedRecord, error)
}

// TitleSource looks up a crowd-sourced replacement title for a video.
// It returns an empty string when no replacement exists.
type TitleSource interface {
	AlternativeTitle(ctx context.Context, videoID string) (string, error)
}

// FeedCodec serializes a canonical feed for the wire.
type FeedCodec interface {
	// ContentType is the media type of the serialized output.
	ContentType() string

	// Serialize renders the feed. identity distinguishes the same channel
	// under different filters; query is the canonical filter query string.
	Serialize(identity, query string, feed *model.CanonicalFeed) ([]byte, error)
}

// HandleDirectory remembers which stable id a handle resolved to.
type HandleDirectory interface {
	// Lookup returns the stable id for a handle key, or "" when unknown.
	Lookup(ctx context.Context, handleKey string) (string, error)

	// Remember records a handle key to stable id resolution.
	Remember(ctx context.Context, handleKey, stableID string) error
}
