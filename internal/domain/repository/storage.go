package repository

import (
	"context"
	"time"
)

// RenderedFeed is a serialized feed document ready to be stored.
type RenderedFeed struct {
	// Identity is the canonical channel+filter identity; it names the object.
	Identity    string
	Channel     string
	ContentType string
	Body        []byte
	VideoCount  int
}

// FeedStorage keeps rendered feed documents in an object store.
// Implementations are provided by the infrastructure layer.
type FeedStorage interface {
	// StoreFeed writes the document under a key derived from its identity
	// and returns that key. Rewriting the same identity replaces the object.
	StoreFeed(ctx context.Context, feed RenderedFeed) (string, error)

	// FeedExists reports whether a stored document is still present.
	FeedExists(ctx context.Context, key string) (bool, error)

	// FeedDownloadURL returns a presigned URL valid for expiry.
	FeedDownloadURL(ctx context.Context, key string, expiry time.Duration) (string, error)
}
