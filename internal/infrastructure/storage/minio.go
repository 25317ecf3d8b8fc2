package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/url"
	"path"
	"strconv"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/hszk-dev/tubefeed/internal/domain/repository"
)

const feedPrefix = "feeds"

// minioClient is the subset of *minio.Client used for rendered feed documents.
type minioClient interface {
	BucketExists(ctx context.Context, bucketName string) (bool, error)
	PresignedGetObject(ctx context.Context, bucketName, objectName string, expiry time.Duration, reqParams url.Values) (*url.URL, error)
	PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
	StatObject(ctx context.Context, bucketName, objectName string, opts minio.StatObjectOptions) (minio.ObjectInfo, error)
}

// ClientConfig holds configuration for the MinIO client.
type ClientConfig struct {
	Endpoint       string
	PublicEndpoint string // Optional: external-facing endpoint for presigned URLs
	AccessKey      string
	SecretKey      string
	Bucket         string
	UseSSL         bool
}

// Client stores rendered feeds in a MinIO bucket and implements repository.FeedStorage.
type Client struct {
	client          minioClient
	presignedClient minioClient // may point at the public endpoint
	bucket          string
}

// NewClient creates a new MinIO client and verifies the bucket exists.
// If PublicEndpoint is set, presigned URLs are signed against it.
func NewClient(ctx context.Context, cfg ClientConfig) (*Client, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client: %w", err)
	}

	var presigned minioClient = client
	if cfg.PublicEndpoint != "" {
		presignedClient, err := minio.New(cfg.PublicEndpoint, &minio.Options{
			Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
			Secure: cfg.UseSSL,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create presigned minio client: %w", err)
		}
		presigned = presignedClient
	}

	return newClientWithMinioClient(ctx, client, presigned, cfg.Bucket)
}

func newClientWithMinioClient(ctx context.Context, client, presignedClient minioClient, bucket string) (*Client, error) {
	exists, err := client.BucketExists(ctx, bucket)
	if err != nil {
		return nil, fmt.Errorf("failed to check bucket existence: %w", err)
	}
	if !exists {
		return nil, fmt.Errorf("%w: %s", repository.ErrBucketNotFound, bucket)
	}

	return &Client{
		client:          client,
		presignedClient: presignedClient,
		bucket:          bucket,
	}, nil
}

// FeedObjectKey is the object name a rendered feed identity is stored under.
func FeedObjectKey(identity string) string {
	return path.Join(feedPrefix, identity+".xml")
}

// StoreFeed uploads a rendered feed, keyed and tagged by its identity.
func (c *Client) StoreFeed(ctx context.Context, feed repository.RenderedFeed) (string, error) {
	key := FeedObjectKey(feed.Identity)
	_, err := c.client.PutObject(ctx, c.bucket, key, bytes.NewReader(feed.Body), int64(len(feed.Body)), minio.PutObjectOptions{
		ContentType: feed.ContentType,
		UserMetadata: map[string]string{
			"Feed-Identity": feed.Identity,
			"Feed-Channel":  feed.Channel,
			"Video-Count":   strconv.Itoa(feed.VideoCount),
		},
		UserTags: map[string]string{
			"identity": feed.Identity,
			"channel":  feed.Channel,
		},
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload feed %s to bucket %s: %w", feed.Identity, c.bucket, err)
	}
	return key, nil
}

// FeedExists checks if a rendered feed is still in the bucket.
func (c *Client) FeedExists(ctx context.Context, key string) (bool, error) {
	_, err := c.client.StatObject(ctx, c.bucket, key, minio.StatObjectOptions{})
	if err != nil {
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return false, nil
		}
		return false, fmt.Errorf("failed to check feed existence: %w", err)
	}
	return true, nil
}

// FeedDownloadURL creates a presigned URL that downloads the feed as an attachment
// named after its identity.
func (c *Client) FeedDownloadURL(ctx context.Context, key string, expiry time.Duration) (string, error) {
	reqParams := make(url.Values)
	reqParams.Set("response-content-disposition", fmt.Sprintf("attachment; filename=%q", path.Base(key)))
	presignedURL, err := c.presignedClient.PresignedGetObject(ctx, c.bucket, key, expiry, reqParams)
	if err != nil {
		return "", fmt.Errorf("failed to generate presigned download URL: %w", err)
	}
	return presignedURL.String(), nil
}

// Ping verifies the MinIO connection is alive by checking bucket access.
func (c *Client) Ping(ctx context.Context) error {
	if _, err := c.client.BucketExists(ctx, c.bucket); err != nil {
		return fmt.Errorf("failed to ping minio: %w", err)
	}
	return nil
}

// Bucket returns the configured bucket name.
func (c *Client) Bucket() string {
	return c.bucket
}
