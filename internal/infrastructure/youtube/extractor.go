package youtube

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"
	"golang.org/x/net/html"

	"github.com/hszk-dev/tubefeed/internal/domain/model"
	"github.com/hszk-dev/tubefeed/internal/domain/repository"
	"github.com/hszk-dev/tubefeed/internal/infrastructure/metrics"
)

const initialDataPrefix = "var ytInitialData = "

// Extractor scrapes a channel's video listing page.
type Extractor struct {
	client *Client
}

// NewExtractor creates an Extractor using the given upstream client.
func NewExtractor(client *Client) *Extractor {
	return &Extractor{client: client}
}

// Extract implements repository.ChannelExtractor.
func (e *Extractor) Extract(ctx context.Context, id model.ChannelIdentifier) (rec *model.ExtractionRecord, err error) {
	defer func() { observe(metrics.SourceExtraction, err) }()

	path := videosPath(id)
	body, status, err := e.client.get(ctx, path, "text/html")
	if err != nil {
		return nil, err
	}
	if status == http.StatusNotFound {
		return nil, fmt.Errorf("%w: %s", repository.ErrChannelNotFound, id)
	}
	if status < 200 || status > 299 {
		return nil, statusError(path, status)
	}

	rec, err = parseChannelPage(body, e.client.baseURL+path)
	if err != nil {
		return nil, fmt.Errorf("extract %s: %w", id, err)
	}

	slog.DebugContext(ctx, "extracted channel page",
		"channel", id.String(),
		"channel_id", rec.Channel.ID,
		"videos", len(rec.Videos),
	)
	return rec, nil
}

func videosPath(id model.ChannelIdentifier) string {
	if id.IsHandle() {
		return "/" + url.PathEscape(id.String()) + "/videos"
	}
	return "/channel/" + url.PathEscape(id.String()) + "/videos"
}

// parseChannelPage reads the embedded ytInitialData document of a channel page.
func parseChannelPage(page []byte, pageURL string) (*model.ExtractionRecord, error) {
	data, ok := findInitialData(page)
	if !ok {
		return nil, repository.ErrChannelNotFound
	}
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("%w: ytInitialData is not valid JSON", repository.ErrParse)
	}

	meta := gjson.GetBytes(data, "metadata.channelMetadataRenderer")
	channelID := meta.Get("externalId").String()
	if !meta.Exists() || channelID == "" {
		return nil, fmt.Errorf("%w: channel metadata missing", repository.ErrParse)
	}

	rec := &model.ExtractionRecord{
		Channel: model.ChannelMeta{
			ID:          channelID,
			Handle:      handleFromVanityURL(meta.Get("vanityChannelUrl").String()),
			Title:       meta.Get("title").String(),
			Description: meta.Get("description").String(),
			URL:         pageURL,
		},
	}

	items := videoGridItems(data)
	seen := make(map[string]struct{}, len(items))
	for _, item := range items {
		renderer := item.Get("richItemRenderer.content.videoRenderer")
		if !renderer.Exists() {
			continue
		}

		videoID := renderer.Get("videoId").String()
		if videoID == "" {
			return nil, fmt.Errorf("%w: video without id", repository.ErrParse)
		}
		if _, dup := seen[videoID]; dup {
			continue
		}

		length := renderer.Get("lengthText.simpleText")
		if !length.Exists() {
			// Live and upcoming streams carry no length yet.
			continue
		}
		seconds, err := parseLength(length.String())
		if err != nil {
			return nil, err
		}

		seen[videoID] = struct{}{}
		rec.Videos = append(rec.Videos, model.VideoStub{
			ID:              videoID,
			DurationSeconds: seconds,
			Views:           parseCount(renderer.Get("viewCountText.simpleText").String()),
		})
	}

	return rec, nil
}

// findInitialData returns the JSON assigned to ytInitialData in an inline script.
func findInitialData(page []byte) ([]byte, bool) {
	z := html.NewTokenizer(bytes.NewReader(page))
	inScript := false
	for {
		switch z.Next() {
		case html.ErrorToken:
			return nil, false
		case html.StartTagToken:
			name, _ := z.TagName()
			inScript = string(name) == "script"
		case html.EndTagToken:
			inScript = false
		case html.TextToken:
			if !inScript {
				continue
			}
			text := bytes.TrimSpace(z.Text())
			if !bytes.HasPrefix(text, []byte(initialDataPrefix)) {
				continue
			}
			text = bytes.TrimPrefix(text, []byte(initialDataPrefix))
			text = bytes.TrimSuffix(text, []byte(";"))
			return text, true
		}
	}
}

// videoGridItems returns the rich grid items of the selected (videos) tab.
func videoGridItems(data []byte) []gjson.Result {
	tabs := gjson.GetBytes(data, "contents.twoColumnBrowseResultsRenderer.tabs")
	var grid gjson.Result
	tabs.ForEach(func(_, tab gjson.Result) bool {
		contents := tab.Get("tabRenderer.content.richGridRenderer.contents")
		if !contents.Exists() {
			return true
		}
		if !grid.Exists() || tab.Get("tabRenderer.selected").Bool() {
			grid = contents
		}
		return !tab.Get("tabRenderer.selected").Bool()
	})
	return grid.Array()
}

func handleFromVanityURL(vanity string) string {
	if i := strings.LastIndexByte(vanity, '/'); i >= 0 {
		vanity = vanity[i+1:]
	}
	if !strings.HasPrefix(vanity, model.HandlePrefix) {
		return ""
	}
	return vanity
}

// parseLength converts "H:MM:SS" or "MM:SS" into seconds.
func parseLength(text string) (uint64, error) {
	parts := strings.Split(strings.TrimSpace(text), ":")
	if len(parts) < 2 || len(parts) > 3 {
		return 0, fmt.Errorf("%w: length text %q", repository.ErrParse, text)
	}

	var total uint64
	for _, part := range parts {
		n, err := strconv.ParseUint(part, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("%w: length text %q", repository.ErrParse, text)
		}
		total = total*60 + n
	}
	return total, nil
}

// parseCount reads the digits of a view count text such as "1,234 views".
// Texts without digits ("No views") count as zero.
func parseCount(text string) uint64 {
	var n uint64
	for _, r := range text {
		if r >= '0' && r <= '9' {
			n = n*10 + uint64(r-'0')
		}
	}
	return n
}

var _ repository.ChannelExtractor = (*Extractor)(nil)
