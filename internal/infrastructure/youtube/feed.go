package youtube

import (
	"context"
	"encoding/xml"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/hszk-dev/tubefeed/internal/domain/model"
	"github.com/hszk-dev/tubefeed/internal/domain/repository"
	"github.com/hszk-dev/tubefeed/internal/infrastructure/metrics"
)

const (
	nsAtom  = "http://www.w3.org/2005/Atom"
	nsYT    = "http://www.youtube.com/xml/schemas/2015"
	nsMedia = "http://search.yahoo.com/mrss/"

	videoIDPrefix = "yt:video:"
)

type atomFeed struct {
	XMLName   xml.Name    `xml:"http://www.w3.org/2005/Atom feed"`
	ChannelID string      `xml:"http://www.youtube.com/xml/schemas/2015 channelId"`
	Entries   []atomEntry `xml:"http://www.w3.org/2005/Atom entry"`
}

type atomEntry struct {
	ID        string     `xml:"http://www.w3.org/2005/Atom id"`
	VideoID   string     `xml:"http://www.youtube.com/xml/schemas/2015 videoId"`
	Title     string     `xml:"http://www.w3.org/2005/Atom title"`
	Published string     `xml:"http://www.w3.org/2005/Atom published"`
	Updated   string     `xml:"http://www.w3.org/2005/Atom updated"`
	Group     mediaGroup `xml:"http://search.yahoo.com/mrss/ group"`
}

type mediaGroup struct {
	Title       string `xml:"http://search.yahoo.com/mrss/ title"`
	Description string `xml:"http://search.yahoo.com/mrss/ description"`
	Thumbnail   struct {
		URL string `xml:"url,attr"`
	} `xml:"http://search.yahoo.com/mrss/ thumbnail"`
	Community struct {
		StarRating *struct {
			Count string `xml:"count,attr"`
		} `xml:"http://search.yahoo.com/mrss/ starRating"`
		Statistics *struct {
			Views string `xml:"views,attr"`
		} `xml:"http://search.yahoo.com/mrss/ statistics"`
	} `xml:"http://search.yahoo.com/mrss/ community"`
}

// FeedFetcher reads the provider's public Atom feed.
type FeedFetcher struct {
	client *Client
}

// NewFeedFetcher creates a FeedFetcher using the given upstream client.
func NewFeedFetcher(client *Client) *FeedFetcher {
	return &FeedFetcher{client: client}
}

// FetchPublicFeed implements repository.FeedFetcher.
func (f *FeedFetcher) FetchPublicFeed(ctx context.Context, stableID string) (rec *model.FeedRecord, err error) {
	defer func() { observe(metrics.SourceFeed, err) }()

	path := "/feeds/videos.xml?channel_id=" + url.QueryEscape(stableID)
	body, status, err := f.client.get(ctx, path, "application/atom+xml, application/xml")
	if err != nil {
		return nil, err
	}
	if status == http.StatusNotFound {
		return nil, fmt.Errorf("%w: feed for %s", repository.ErrChannelNotFound, stableID)
	}
	if status < 200 || status > 299 {
		return nil, statusError(path, status)
	}

	rec, err = parseFeed(body)
	if err != nil {
		return nil, fmt.Errorf("feed %s: %w", stableID, err)
	}
	return rec, nil
}

func parseFeed(body []byte) (*model.FeedRecord, error) {
	var doc atomFeed
	if err := xml.Unmarshal(body, &doc); err != nil {
		return nil, fmt.Errorf("%w: decode atom: %v", repository.ErrParse, err)
	}

	rec := &model.FeedRecord{
		ChannelID: doc.ChannelID,
		Entries:   make([]model.FeedEntry, 0, len(doc.Entries)),
	}
	for _, e := range doc.Entries {
		entry, err := convertEntry(e)
		if err != nil {
			return nil, err
		}
		rec.Entries = append(rec.Entries, entry)
	}
	return rec, nil
}

func convertEntry(e atomEntry) (model.FeedEntry, error) {
	id := e.VideoID
	if id == "" {
		id = strings.TrimPrefix(e.ID, videoIDPrefix)
	}
	if id == "" {
		return model.FeedEntry{}, fmt.Errorf("%w: entry without video id", repository.ErrParse)
	}

	published, err := time.Parse(time.RFC3339, strings.TrimSpace(e.Published))
	if err != nil {
		return model.FeedEntry{}, fmt.Errorf("%w: entry %s published: %v", repository.ErrParse, id, err)
	}
	updated := published
	if s := strings.TrimSpace(e.Updated); s != "" {
		updated, err = time.Parse(time.RFC3339, s)
		if err != nil {
			return model.FeedEntry{}, fmt.Errorf("%w: entry %s updated: %v", repository.ErrParse, id, err)
		}
	}

	ext := model.MediaExtension{
		Title:       e.Group.Title,
		Description: e.Group.Description,
		Thumbnail:   e.Group.Thumbnail.URL,
	}
	if s := e.Group.Community.Statistics; s != nil {
		ext.Views = parseOptionalCount(s.Views)
	}
	if r := e.Group.Community.StarRating; r != nil {
		ext.Likes = parseOptionalCount(r.Count)
	}

	return model.FeedEntry{
		ID:          id,
		Title:       e.Title,
		Description: e.Group.Description,
		PublishedAt: published,
		UpdatedAt:   updated,
		Extension:   ext,
	}, nil
}

func parseOptionalCount(s string) *uint64 {
	n, err := strconv.ParseUint(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return nil
	}
	return &n
}

var _ repository.FeedFetcher = (*FeedFetcher)(nil)
