package youtube

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/hszk-dev/tubefeed/internal/domain/model"
	"github.com/hszk-dev/tubefeed/internal/domain/repository"
)

const initialData = `{
  "metadata": {"channelMetadataRenderer": {
    "title": "Foo Channel",
    "externalId": "UC123",
    "description": "About foo",
    "vanityChannelUrl": "http://www.youtube.com/@foo"
  }},
  "contents": {"twoColumnBrowseResultsRenderer": {"tabs": [
    {"tabRenderer": {"title": "Home", "selected": false, "content": {"sectionListRenderer": {}}}},
    {"tabRenderer": {"title": "Videos", "selected": true, "content": {"richGridRenderer": {"contents": [
      {"richItemRenderer": {"content": {"videoRenderer": {"videoId": "A", "lengthText": {"simpleText": "1:02:03"}, "viewCountText": {"simpleText": "1,234 views"}}}}},
      {"richItemRenderer": {"content": {"videoRenderer": {"videoId": "B", "lengthText": {"simpleText": "10:00"}, "viewCountText": {"simpleText": "No views"}}}}},
      {"richItemRenderer": {"content": {"videoRenderer": {"videoId": "LIVE", "viewCountText": {"simpleText": "5 watching"}}}}},
      {"continuationItemRenderer": {}}
    ]}}}}
  ]}}
}`

const channelPage = `<!DOCTYPE html><html><head><title>Foo</title>
<script>var ytcfg = {};</script>
</head><body>
<script nonce="x">var ytInitialData = ` + initialData + `;</script>
</body></html>`

const publicFeed = `<?xml version="1.0" encoding="UTF-8"?>
<feed xmlns:yt="http://www.youtube.com/xml/schemas/2015" xmlns:media="http://search.yahoo.com/mrss/" xmlns="http://www.w3.org/2005/Atom">
 <yt:channelId>UC123</yt:channelId>
 <title>Foo Channel</title>
 <entry>
  <id>yt:video:B</id>
  <yt:videoId>B</yt:videoId>
  <title>Video B</title>
  <published>2024-03-02T10:00:00+00:00</published>
  <updated>2024-03-03T11:00:00+00:00</updated>
  <media:group>
   <media:title>Video B</media:title>
   <media:thumbnail url="https://i.ytimg.com/vi/B/hqdefault.jpg" width="480" height="360"/>
   <media:description>Line one
Use code FOO for 10% off</media:description>
   <media:community>
    <media:starRating count="42" average="5.00" min="1" max="5"/>
    <media:statistics views="900"/>
   </media:community>
  </media:group>
 </entry>
 <entry>
  <id>yt:video:SHORT</id>
  <yt:videoId>SHORT</yt:videoId>
  <title>Short</title>
  <published>2024-03-01T10:00:00+00:00</published>
  <updated>2024-03-01T10:00:00+00:00</updated>
  <media:group>
   <media:title>Short</media:title>
   <media:description></media:description>
   <media:community>
    <media:statistics views="not-a-number"/>
   </media:community>
  </media:group>
 </entry>
</feed>`

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	cfg := DefaultClientConfig()
	cfg.BaseURL = srv.URL
	cfg.Timeout = 2 * time.Second
	return NewClient(cfg)
}

func TestExtractor_Extract_Handle(t *testing.T) {
	var gotPath, gotUA string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotUA = r.UserAgent()
		_, _ = w.Write([]byte(channelPage))
	})

	rec, err := NewExtractor(client).Extract(context.Background(), model.ChannelIdentifier("@foo"))
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}

	if gotPath != "/@foo/videos" {
		t.Errorf("path = %q, want /@foo/videos", gotPath)
	}
	if gotUA != DefaultClientConfig().UserAgent {
		t.Errorf("User-Agent = %q", gotUA)
	}
	ch := rec.Channel
	if ch.ID != "UC123" || ch.Handle != "@foo" || ch.Title != "Foo Channel" || ch.Description != "About foo" {
		t.Errorf("channel = %+v", ch)
	}

	// The live stream has no length and is skipped.
	if len(rec.Videos) != 2 {
		t.Fatalf("len(Videos) = %d, want 2", len(rec.Videos))
	}
	if want := (model.VideoStub{ID: "A", DurationSeconds: 3723, Views: 1234}); rec.Videos[0] != want {
		t.Errorf("Videos[0] = %+v, want %+v", rec.Videos[0], want)
	}
	if want := (model.VideoStub{ID: "B", DurationSeconds: 600, Views: 0}); rec.Videos[1] != want {
		t.Errorf("Videos[1] = %+v, want %+v", rec.Videos[1], want)
	}
}

func TestExtractor_Extract_StableID(t *testing.T) {
	var gotPath string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		_, _ = w.Write([]byte(channelPage))
	})

	if _, err := NewExtractor(client).Extract(context.Background(), model.ChannelIdentifier("UC123")); err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	if gotPath != "/channel/UC123/videos" {
		t.Errorf("path = %q, want /channel/UC123/videos", gotPath)
	}
}

func TestExtractor_Extract_Errors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr error
	}{
		{"origin 404", http.StatusNotFound, "", repository.ErrChannelNotFound},
		{"origin 500", http.StatusInternalServerError, "", repository.ErrNetwork},
		{"no initial data", http.StatusOK, "<html><script>var other = 1;</script></html>", repository.ErrChannelNotFound},
		{"invalid json", http.StatusOK, "<script>var ytInitialData = {oops;</script>", repository.ErrParse},
		{"no metadata", http.StatusOK, `<script>var ytInitialData = {"contents":{}};</script>`, repository.ErrParse},
		{
			"bad length",
			http.StatusOK,
			`<script>var ytInitialData = {"metadata":{"channelMetadataRenderer":{"externalId":"UC1"}},` +
				`"contents":{"twoColumnBrowseResultsRenderer":{"tabs":[{"tabRenderer":{"selected":true,"content":{"richGridRenderer":{"contents":[` +
				`{"richItemRenderer":{"content":{"videoRenderer":{"videoId":"X","lengthText":{"simpleText":"soon"}}}}}]}}}}]}}};</script>`,
			repository.ErrParse,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})

			_, err := NewExtractor(client).Extract(context.Background(), model.ChannelIdentifier("UC1"))
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestExtractor_Extract_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()

	cfg := DefaultClientConfig()
	cfg.BaseURL = srv.URL
	_, err := NewExtractor(NewClient(cfg)).Extract(context.Background(), model.ChannelIdentifier("UC1"))
	if !errors.Is(err, repository.ErrNetwork) {
		t.Errorf("error = %v, want ErrNetwork", err)
	}
}

func TestParseLength(t *testing.T) {
	tests := []struct {
		in      string
		want    uint64
		wantErr bool
	}{
		{"0:59", 59, false},
		{"10:00", 600, false},
		{"1:00:00", 3600, false},
		{" 2:03:04 ", 7384, false},
		{"59", 0, true},
		{"1:2:3:4", 0, true},
		{"a:10", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parseLength(tt.in)
			if tt.wantErr {
				if !errors.Is(err, repository.ErrParse) {
					t.Errorf("parseLength(%q) error = %v, want ErrParse", tt.in, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("parseLength(%q) failed: %v", tt.in, err)
			}
			if got != tt.want {
				t.Errorf("parseLength(%q) = %d, want %d", tt.in, got, tt.want)
			}
		})
	}
}

func TestParseCount(t *testing.T) {
	tests := []struct {
		in   string
		want uint64
	}{
		{"1,234,567 views", 1234567},
		{"1 view", 1},
		{"No views", 0},
	}
	for _, tt := range tests {
		if got := parseCount(tt.in); got != tt.want {
			t.Errorf("parseCount(%q) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestFeedFetcher_FetchPublicFeed(t *testing.T) {
	var gotQuery string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/feeds/videos.xml" {
			http.NotFound(w, r)
			return
		}
		gotQuery = r.URL.Query().Get("channel_id")
		w.Header().Set("Content-Type", "text/xml; charset=UTF-8")
		_, _ = w.Write([]byte(publicFeed))
	})

	rec, err := NewFeedFetcher(client).FetchPublicFeed(context.Background(), "UC123")
	if err != nil {
		t.Fatalf("FetchPublicFeed failed: %v", err)
	}

	if gotQuery != "UC123" || rec.ChannelID != "UC123" {
		t.Errorf("channel_id = %q, ChannelID = %q", gotQuery, rec.ChannelID)
	}
	if len(rec.Entries) != 2 {
		t.Fatalf("len(Entries) = %d, want 2", len(rec.Entries))
	}

	b := rec.Entries[0]
	if b.ID != "B" || b.Title != "Video B" {
		t.Errorf("entry = (%s, %s)", b.ID, b.Title)
	}
	if b.Description != "Line one\nUse code FOO for 10% off" {
		t.Errorf("Description = %q", b.Description)
	}
	if !b.PublishedAt.Equal(time.Date(2024, 3, 2, 10, 0, 0, 0, time.UTC)) {
		t.Errorf("PublishedAt = %v", b.PublishedAt)
	}
	if !b.UpdatedAt.Equal(time.Date(2024, 3, 3, 11, 0, 0, 0, time.UTC)) {
		t.Errorf("UpdatedAt = %v", b.UpdatedAt)
	}
	if b.Extension.Thumbnail != "https://i.ytimg.com/vi/B/hqdefault.jpg" {
		t.Errorf("Thumbnail = %q", b.Extension.Thumbnail)
	}
	if b.Extension.Likes == nil || *b.Extension.Likes != 42 {
		t.Errorf("Likes = %v, want 42", b.Extension.Likes)
	}
	if b.Extension.Views == nil || *b.Extension.Views != 900 {
		t.Errorf("Views = %v, want 900", b.Extension.Views)
	}

	short := rec.Entries[1]
	if short.ID != "SHORT" {
		t.Errorf("ID = %q, want SHORT", short.ID)
	}
	if short.Extension.Likes != nil {
		t.Errorf("Likes = %v, want nil", *short.Extension.Likes)
	}
	// Unparseable counters are treated as absent.
	if short.Extension.Views != nil {
		t.Errorf("Views = %v, want nil", *short.Extension.Views)
	}
}

func TestFeedFetcher_FetchPublicFeed_Errors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr error
	}{
		{"not found", http.StatusNotFound, "", repository.ErrChannelNotFound},
		{"server error", http.StatusBadGateway, "", repository.ErrNetwork},
		{"not xml", http.StatusOK, "{}", repository.ErrParse},
		{
			"bad timestamp",
			http.StatusOK,
			`<feed xmlns="http://www.w3.org/2005/Atom"><entry><id>yt:video:X</id><published>yesterday</published></entry></feed>`,
			repository.ErrParse,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})

			_, err := NewFeedFetcher(client).FetchPublicFeed(context.Background(), "UC123")
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestFeedFetcher_EntryIDFallback(t *testing.T) {
	body := `<feed xmlns="http://www.w3.org/2005/Atom"><entry><id>yt:video:Z</id>` +
		`<published>2024-01-01T00:00:00Z</published></entry></feed>`
	rec, err := parseFeed([]byte(body))
	if err != nil {
		t.Fatalf("parseFeed failed: %v", err)
	}
	if len(rec.Entries) != 1 {
		t.Fatalf("len(Entries) = %d, want 1", len(rec.Entries))
	}
	e := rec.Entries[0]
	if e.ID != "Z" {
		t.Errorf("ID = %q, want Z", e.ID)
	}
	if !e.UpdatedAt.Equal(e.PublishedAt) {
		t.Errorf("UpdatedAt = %v, want %v", e.UpdatedAt, e.PublishedAt)
	}
}

func TestDeArrow_AlternativeTitle(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   string
	}{
		{
			name:   "first non-original title",
			status: http.StatusOK,
			body:   `{"titles":[{"title":"Original","original":true},{"title":"Better","original":false},{"title":"Other","original":false}]}`,
			want:   "Better",
		},
		{
			name:   "only original titles",
			status: http.StatusOK,
			body:   `{"titles":[{"title":"Original","original":true}]}`,
			want:   "",
		},
		{
			name:   "no submissions",
			status: http.StatusNotFound,
			body:   "Not Found",
			want:   "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotID string
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				gotID = r.URL.Query().Get("videoID")
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})

			got, err := NewDeArrow(client).AlternativeTitle(context.Background(), "vid1")
			if err != nil {
				t.Fatalf("AlternativeTitle failed: %v", err)
			}
			if gotID != "vid1" {
				t.Errorf("videoID = %q, want vid1", gotID)
			}
			if got != tt.want {
				t.Errorf("AlternativeTitle() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestDeArrow_AlternativeTitle_Errors(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<html>"))
	})
	if _, err := NewDeArrow(client).AlternativeTitle(context.Background(), "vid1"); !errors.Is(err, repository.ErrParse) {
		t.Errorf("error = %v, want ErrParse", err)
	}

	client = newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})
	if _, err := NewDeArrow(client).AlternativeTitle(context.Background(), "vid1"); !errors.Is(err, repository.ErrNetwork) {
		t.Errorf("error = %v, want ErrNetwork", err)
	}
}
