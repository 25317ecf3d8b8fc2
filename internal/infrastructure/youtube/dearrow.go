package youtube

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/tidwall/gjson"

	"github.com/hszk-dev/tubefeed/internal/domain/repository"
	"github.com/hszk-dev/tubefeed/internal/infrastructure/metrics"
)

// DeArrow looks up community submitted titles.
type DeArrow struct {
	client *Client
}

// NewDeArrow creates a title source backed by the DeArrow branding API.
func NewDeArrow(client *Client) *DeArrow {
	return &DeArrow{client: client}
}

// AlternativeTitle returns the first non-original title, or "" if none exists.
func (d *DeArrow) AlternativeTitle(ctx context.Context, videoID string) (title string, err error) {
	defer func() { observe(metrics.SourceDeArrow, err) }()

	path := "/api/branding?videoID=" + url.QueryEscape(videoID)
	body, status, err := d.client.get(ctx, path, "application/json")
	if err != nil {
		return "", err
	}
	// The branding API answers 404 for videos nobody has submitted yet.
	if status == http.StatusNotFound {
		return "", nil
	}
	if status < 200 || status > 299 {
		return "", statusError(path, status)
	}
	if !gjson.ValidBytes(body) {
		return "", fmt.Errorf("%w: branding for %s is not valid JSON", repository.ErrParse, videoID)
	}

	return gjson.GetBytes(body, "titles.#(original==false).title").String(), nil
}

var _ repository.TitleSource = (*DeArrow)(nil)
